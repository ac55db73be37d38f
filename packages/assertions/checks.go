package assertions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

type checkFunc func(actual, expected any) (bool, string)

var checks = map[Operator]checkFunc{
	OpEquals:      equals,
	OpNotEquals:   negate(equals, "expected not to equal %v"),
	OpGreater:     numeric(">", func(a, b float64) bool { return a > b }),
	OpGreaterEq:   numeric(">=", func(a, b float64) bool { return a >= b }),
	OpLess:        numeric("<", func(a, b float64) bool { return a < b }),
	OpLessEq:      numeric("<=", func(a, b float64) bool { return a <= b }),
	OpContains:    text("contain", strings.Contains),
	OpNotContains: negate(text("contain", strings.Contains), "expected not to contain %v"),
	OpStartsWith:  text("start with", strings.HasPrefix),
	OpEndsWith:    text("end with", strings.HasSuffix),
	OpMatches:     matches,
	OpExists:      exists,
	OpLength:      length,
	OpIncludes:    includes,
	OpIn:          in,
	OpType:        typeOf,
}

func negate(fn checkFunc, format string) checkFunc {
	return func(actual, expected any) (bool, string) {
		if ok, _ := fn(actual, expected); ok {
			return false, fmt.Sprintf(format, expected)
		}
		return true, ""
	}
}

func numeric(sym string, cmp func(a, b float64) bool) checkFunc {
	return func(actual, expected any) (bool, string) {
		a, aok := asFloat(actual)
		b, bok := asFloat(expected)
		if !aok || !bok {
			return false, fmt.Sprintf("cannot compare non-numeric values: %v %s %v", actual, sym, expected)
		}
		if cmp(a, b) {
			return true, ""
		}
		return false, fmt.Sprintf("expected %v %s %v", actual, sym, expected)
	}
}

func text(verb string, fn func(s, sub string) bool) checkFunc {
	return func(actual, expected any) (bool, string) {
		if fn(fmt.Sprint(actual), fmt.Sprint(expected)) {
			return true, ""
		}
		return false, fmt.Sprintf("expected '%v' to %s '%v'", actual, verb, expected)
	}
}

func equals(actual, expected any) (bool, string) {
	if reflect.DeepEqual(actual, expected) {
		return true, ""
	}
	if a, ok := asFloat(actual); ok {
		if b, ok := asFloat(expected); ok && a == b {
			return true, ""
		}
	}
	if scalar(actual) && scalar(expected) && fmt.Sprint(actual) == fmt.Sprint(expected) {
		return true, ""
	}
	return false, fmt.Sprintf("expected %v, got %v", expected, actual)
}

func scalar(v any) bool {
	switch v.(type) {
	case []any, map[string]any:
		return false
	}
	return true
}

// matches accepts both "pattern" and "/pattern/".
func matches(actual, expected any) (bool, string) {
	pattern := strings.TrimSuffix(strings.TrimPrefix(fmt.Sprint(expected), "/"), "/")
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Sprintf("invalid regex pattern: %v", err)
	}
	if re.MatchString(fmt.Sprint(actual)) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to match /%v/", actual, pattern)
}

func exists(actual, expected any) (bool, string) {
	want := true
	if b, ok := expected.(bool); ok {
		want = b
	}
	switch {
	case (actual != nil) == want:
		return true, ""
	case want:
		return false, "expected to exist"
	default:
		return false, "expected not to exist"
	}
}

// sizeOf returns the length of strings, slices and maps, -1 otherwise.
func sizeOf(v any) int {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return rv.Len()
	}
	return -1
}

func length(actual, expected any) (bool, string) {
	want, ok := asInt(expected)
	if !ok {
		return false, fmt.Sprintf("expected length must be a number, got %v", expected)
	}
	got := sizeOf(actual)
	switch {
	case got < 0:
		return false, fmt.Sprintf("cannot get length of %T", actual)
	case got != want:
		return false, fmt.Sprintf("expected length %d, got %d", want, got)
	}
	return true, ""
}

func includes(actual, expected any) (bool, string) {
	items, ok := actual.([]any)
	if !ok {
		return false, fmt.Sprintf("expected array, got %T", actual)
	}
	if anyEqual(items, expected) {
		return true, ""
	}
	return false, fmt.Sprintf("expected array to include %v", expected)
}

func in(actual, expected any) (bool, string) {
	set, ok := expected.([]any)
	if !ok {
		return false, fmt.Sprintf("expected array for 'in' operator, got %T", expected)
	}
	if anyEqual(set, actual) {
		return true, ""
	}
	return false, fmt.Sprintf("expected %v to be in %v", actual, expected)
}

func anyEqual(items []any, v any) bool {
	for _, item := range items {
		if ok, _ := equals(item, v); ok {
			return true
		}
	}
	return false
}

// jsonType names v the way JSON Schema does.
func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, float32, int, int64, int32:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return reflect.TypeOf(v).String()
}

func typeOf(actual, expected any) (bool, string) {
	want, got := fmt.Sprint(expected), jsonType(actual)
	if want == got {
		return true, ""
	}
	return false, fmt.Sprintf("expected type %s, got %s", want, got)
}

func (e *Evaluator) schema(actual, expected any) (bool, string) {
	path := fmt.Sprint(expected)
	if !filepath.IsAbs(path) && e.baseDir != "" {
		path = filepath.Join(e.baseDir, path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Sprintf("failed to read schema file: %v", err)
	}
	doc, err := json.Marshal(actual)
	if err != nil {
		return false, fmt.Sprintf("failed to marshal actual value: %v", err)
	}

	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(raw), gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return false, fmt.Sprintf("schema validation error: %v", err)
	}
	if res.Valid() {
		return true, ""
	}

	msgs := make([]string, 0, len(res.Errors()))
	for _, desc := range res.Errors() {
		msgs = append(msgs, desc.String())
	}
	return false, "schema validation failed: " + strings.Join(msgs, "; ")
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	if f, ok := asFloat(v); ok {
		return int(f), true
	}
	return 0, false
}
