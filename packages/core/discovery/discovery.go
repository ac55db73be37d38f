// Package discovery resolves test file patterns to file paths.
package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrCannotResolvePath is returned when a pattern matches nothing at all.
var ErrCannotResolvePath = errors.New("cannot resolve path")

// LookupFunc is the signature of LookupFiles, injectable for tests.
type LookupFunc func(pattern string, extensions []string, recursive bool) ([]string, error)

// LookupFiles returns the files matching pattern.
//
// An existing file is returned as is. A directory yields its files carrying
// one of extensions, in name order, descending into subdirectories only when
// recursive is set; dotfiles are skipped. Anything else is tried as
// pattern.<ext> for each extension and then as a glob, where ** matches any
// number of directories.
func LookupFiles(pattern string, extensions []string, recursive bool) ([]string, error) {
	info, err := os.Stat(pattern)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", pattern, err)
		}
		return lookupMissing(pattern, extensions)
	}

	if !info.IsDir() {
		return []string{pattern}, nil
	}
	return lookupDir(pattern, extensions, recursive)
}

func lookupMissing(pattern string, extensions []string) ([]string, error) {
	for _, ext := range extensions {
		candidate := pattern + "." + ext
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return []string{candidate}, nil
		}
	}

	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("%w (or pattern) %q: %v", ErrCannotResolvePath, pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w (or pattern) %q", ErrCannotResolvePath, pattern)
	}
	sort.Strings(matches)
	return matches, nil
}

func lookupDir(dir string, extensions []string, recursive bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if !recursive {
				continue
			}
			nested, err := lookupDir(path, extensions, recursive)
			if err != nil {
				return nil, err
			}
			files = append(files, nested...)
			continue
		}
		if strings.HasPrefix(e.Name(), ".") || !e.Type().IsRegular() {
			continue
		}
		if HasExtension(e.Name(), extensions) {
			files = append(files, path)
		}
	}
	return files, nil
}

// HasExtension reports whether name ends in .ext for one of extensions.
func HasExtension(name string, extensions []string) bool {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return false
	}
	for _, e := range extensions {
		if strings.EqualFold(ext, strings.TrimPrefix(e, ".")) {
			return true
		}
	}
	return false
}
