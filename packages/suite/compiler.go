package suite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	paraerrors "github.com/abdul-hamid-achik/paraspec/packages/core/errors"
	"gopkg.in/yaml.v3"
)

// NativeExtensions are loaded without registering a compiler.
var NativeExtensions = []string{"yaml", "yml"}

const commandCompilerTimeout = 30 * time.Second

// Compiler turns the bytes of a suite file into a Document.
type Compiler interface {
	Compile(path string, src []byte) (*Document, error)
}

// CompilerFunc adapts a function to Compiler.
type CompilerFunc func(path string, src []byte) (*Document, error)

func (f CompilerFunc) Compile(path string, src []byte) (*Document, error) {
	return f(path, src)
}

var builtinCompilers = map[string]Compiler{
	"yaml": CompilerFunc(compileYAML),
	"json": CompilerFunc(compileJSON),
	"hcl":  CompilerFunc(compileHCL),
}

func compileYAML(path string, src []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	return &doc, nil
}

func compileJSON(path string, src []byte) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(src))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing json: %w", err)
	}
	normalizeNumbers(&doc.Block)
	return &doc, nil
}

// commandCompiler runs an executable with the suite path as its only argument
// and decodes its standard output as a YAML document.
type commandCompiler struct {
	command string
}

func (c commandCompiler) Compile(path string, _ []byte) (*Document, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandCompilerTimeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.command, path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("compiler %s failed: %w", c.command, err)
		}
		return nil, fmt.Errorf("compiler %s failed: %w: %s", c.command, err, msg)
	}
	return compileYAML(path, stdout.Bytes())
}

// ParseCompilerSpec splits an "ext:module" pair.
func ParseCompilerSpec(spec string) (ext, module string, err error) {
	ext, module, ok := strings.Cut(strings.TrimSpace(spec), ":")
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	module = strings.TrimSpace(module)
	if !ok || ext == "" || module == "" {
		return "", "", paraerrors.Configf("invalid compiler %q: expected ext:module", spec)
	}
	return ext, module, nil
}

// ResolveCompiler returns the compiler called module. Modules starting with
// "." are executables relative to cwd, modules starting with "/" are absolute
// executables; anything else must be a builtin compiler name.
func ResolveCompiler(module, cwd string) (Compiler, error) {
	switch {
	case strings.HasPrefix(module, "."):
		return commandCompiler{command: filepath.Join(cwd, module)}, nil
	case filepath.IsAbs(module):
		return commandCompiler{command: module}, nil
	}
	if c, ok := builtinCompilers[module]; ok {
		return c, nil
	}
	return nil, paraerrors.Configf("unknown compiler module %q", module)
}

// normalizeNumbers converts json.Number values into int or float64 so JSON
// and YAML documents compare alike.
func normalizeNumbers(b *Block) {
	b.Vars = normalizeMap(b.Vars)
	for _, steps := range [][]Step{b.Before, b.BeforeEach, b.AfterEach, b.After} {
		for i := range steps {
			normalizeStep(&steps[i])
		}
	}
	for i := range b.Tests {
		normalizeStep(&b.Tests[i].Step)
	}
	for i := range b.Suites {
		normalizeNumbers(&b.Suites[i])
	}
}

func normalizeStep(s *Step) {
	if s.HTTP != nil {
		s.HTTP.JSON = normalizeValue(s.HTTP.JSON)
	}
	if e := s.Expect; e != nil {
		e.Status = normalizeValue(e.Status)
		e.Headers = normalizeMap(e.Headers)
		e.JSON = normalizeMap(e.JSON)
		e.Body = normalizeValue(e.Body)
		e.Exit = normalizeValue(e.Exit)
		e.Stdout = normalizeValue(e.Stdout)
		e.Rows = normalizeValue(e.Rows)
	}
}

func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return int(i)
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		return normalizeMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	}
	return v
}
