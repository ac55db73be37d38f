package env

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadDotEnv parses a .env file into key-value pairs.
//
// Lines are KEY=value, optionally prefixed with export. Values may be single
// or double quoted; unquoted values end at " #". ${NAME} in an unquoted or
// double-quoted value expands to an earlier key of the same file or to the
// process environment. A non-blank, non-comment line without "=" is an error.
func LoadDotEnv(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open env file: %w", err)
	}
	defer file.Close()

	result := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		if !found || key == "" {
			return nil, fmt.Errorf("%s:%d: expected KEY=value, got %q", path, n, line)
		}
		result[key] = dotEnvValue(strings.TrimSpace(value), result)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading env file: %w", err)
	}
	return result, nil
}

func dotEnvValue(raw string, seen map[string]string) string {
	if len(raw) >= 2 {
		switch {
		case raw[0] == '\'' && raw[len(raw)-1] == '\'':
			return raw[1 : len(raw)-1]
		case raw[0] == '"' && raw[len(raw)-1] == '"':
			return expandDotEnv(raw[1:len(raw)-1], seen)
		}
	}
	if i := strings.Index(raw, " #"); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	return expandDotEnv(raw, seen)
}

func expandDotEnv(s string, seen map[string]string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, func(name string) string {
		if v, ok := seen[name]; ok {
			return v
		}
		return os.Getenv(name)
	})
}

// LoadAndExportDotEnv parses a .env file and exports its pairs to the process
// environment, where {{$NAME}} templates and exec steps see them.
// Variables already present in the environment keep their value.
func LoadAndExportDotEnv(path string) (map[string]string, error) {
	vars, err := LoadDotEnv(path)
	if err != nil {
		return nil, err
	}

	for k, v := range vars {
		if _, ok := os.LookupEnv(k); !ok {
			_ = os.Setenv(k, v) // only fails for invalid key names
		}
	}
	return vars, nil
}
