package env

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/paraspec/packages/builtin"
)

var variablePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// WarnFunc is a function type for handling warnings
type WarnFunc func(format string, args ...any)

// Resolver expands {{...}} templates. A template names a variable or capture,
// an environment variable ($NAME) or a builtin function call. Unresolvable
// templates are left in place and reported through the warn function.
type Resolver struct {
	mu        sync.RWMutex
	variables map[string]any
	captures  map[string]any
	funcs     *builtin.Registry
	warnFunc  WarnFunc
}

func NewResolver() *Resolver {
	return &Resolver{
		variables: make(map[string]any),
		captures:  make(map[string]any),
		funcs:     builtin.NewRegistry(),
	}
}

// SetWarnFunc sets a function to be called when warnings occur (e.g., unresolved variables)
func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnFunc = fn
}

func (r *Resolver) warn(format string, args ...any) {
	r.mu.RLock()
	fn := r.warnFunc
	r.mu.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}

func (r *Resolver) SetVariables(vars map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range vars {
		r.variables[k] = v
	}
}

func (r *Resolver) SetVariable(name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variables[name] = value
}

// SetCapture stores a captured value. Captures shadow variables of the same name.
func (r *Resolver) SetCapture(name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captures[name] = value
}

// Lookup returns the capture or variable called name.
func (r *Resolver) Lookup(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.captures[name]; ok {
		return v, true
	}
	if v, ok := r.variables[name]; ok {
		return v, true
	}
	return nil, false
}

// Resolve expands every template in input.
func (r *Resolver) Resolve(input string) string {
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		v, ok := r.evaluate(strings.TrimSpace(match[2 : len(match)-2]))
		if !ok {
			return match
		}
		return fmt.Sprintf("%v", v)
	})
}

// ResolveValue expands templates inside strings, maps and slices. A string
// that is exactly one template keeps the type of the resolved value, so a
// captured number stays a number.
func (r *Resolver) ResolveValue(v any) any {
	switch val := v.(type) {
	case string:
		if m := variablePattern.FindStringSubmatchIndex(val); m != nil && m[0] == 0 && m[1] == len(val) {
			if out, ok := r.evaluate(strings.TrimSpace(val[m[2]:m[3]])); ok {
				return out
			}
			return val
		}
		return r.Resolve(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = r.ResolveValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = r.ResolveValue(item)
		}
		return out
	default:
		return v
	}
}

// ResolveAll expands every value of values.
func (r *Resolver) ResolveAll(values map[string]string) map[string]string {
	result := make(map[string]string, len(values))
	for k, v := range values {
		result[k] = r.Resolve(v)
	}
	return result
}

// Unresolved returns the templates in input that cannot be resolved.
func (r *Resolver) Unresolved(input string) []string {
	var out []string
	for _, m := range variablePattern.FindAllStringSubmatch(input, -1) {
		expr := strings.TrimSpace(m[1])
		if !r.resolvable(expr) {
			out = append(out, expr)
		}
	}
	return out
}

func (r *Resolver) resolvable(expr string) bool {
	if strings.HasPrefix(expr, "$") {
		_, ok := os.LookupEnv(expr[1:])
		return ok
	}
	if strings.Contains(expr, "(") {
		_, ok, err := r.funcs.Call(expr)
		return ok && err == nil
	}
	_, ok := r.Lookup(expr)
	return ok
}

func (r *Resolver) evaluate(expr string) (any, bool) {
	if strings.HasPrefix(expr, "$") {
		name := expr[1:]
		if val, ok := os.LookupEnv(name); ok {
			return val, true
		}
		r.warn("unresolved environment variable: $%s", name)
		return nil, false
	}

	if strings.Contains(expr, "(") {
		result, ok, err := r.funcs.Call(expr)
		switch {
		case err != nil:
			r.warn("function call %s failed: %v", expr, err)
			return nil, false
		case !ok:
			r.warn("unresolved function call: %s", expr)
			return nil, false
		}
		return result, true
	}

	if val, ok := r.Lookup(expr); ok {
		return val, true
	}
	r.warn("unresolved variable: %s", expr)
	return nil, false
}

// Clone returns an independent resolver with the same variables, captures
// and warn function.
func (r *Resolver) Clone() *Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := NewResolver()
	clone.warnFunc = r.warnFunc
	for k, v := range r.variables {
		clone.variables[k] = v
	}
	for k, v := range r.captures {
		clone.captures[k] = v
	}
	return clone
}
