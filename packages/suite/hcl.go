package suite

import (
	"fmt"
	"math/big"

	"github.com/abdul-hamid-achik/paraspec/packages/core/env"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"
)

// hclRoot mirrors Document for the hcl compiler:
//
//	describe = "users api"
//	vars = { base = "http://localhost:${env.PORT}" }
//
//	before { exec = "./seed.sh" }
//
//	test "lists users" {
//	  http { url = "{{base}}/users" }
//	  expect { status = 200 }
//	}
//
//	suite "nested" { ... }
type hclRoot struct {
	Import     []string    `hcl:"import,optional"`
	Describe   string      `hcl:"describe,optional"`
	Vars       cty.Value   `hcl:"vars,optional"`
	Timeout    string      `hcl:"timeout,optional"`
	Before     []*hclStep  `hcl:"before,block"`
	BeforeEach []*hclStep  `hcl:"before_each,block"`
	AfterEach  []*hclStep  `hcl:"after_each,block"`
	After      []*hclStep  `hcl:"after,block"`
	Tests      []*hclTest  `hcl:"test,block"`
	Suites     []*hclSuite `hcl:"suite,block"`
}

type hclSuite struct {
	Title      string      `hcl:"title,label"`
	Vars       cty.Value   `hcl:"vars,optional"`
	Timeout    string      `hcl:"timeout,optional"`
	Before     []*hclStep  `hcl:"before,block"`
	BeforeEach []*hclStep  `hcl:"before_each,block"`
	AfterEach  []*hclStep  `hcl:"after_each,block"`
	After      []*hclStep  `hcl:"after,block"`
	Tests      []*hclTest  `hcl:"test,block"`
	Suites     []*hclSuite `hcl:"suite,block"`
}

type hclTest struct {
	Title   string            `hcl:"title,label"`
	Skip    bool              `hcl:"skip,optional"`
	Timeout string            `hcl:"timeout,optional"`
	Exec    string            `hcl:"exec,optional"`
	HTTP    *hclHTTP          `hcl:"http,block"`
	SQL     *hclSQL           `hcl:"sql,block"`
	Expect  *hclExpect        `hcl:"expect,block"`
	Capture map[string]string `hcl:"capture,optional"`
}

type hclStep struct {
	Exec    string            `hcl:"exec,optional"`
	HTTP    *hclHTTP          `hcl:"http,block"`
	SQL     *hclSQL           `hcl:"sql,block"`
	Expect  *hclExpect        `hcl:"expect,block"`
	Capture map[string]string `hcl:"capture,optional"`
}

type hclHTTP struct {
	Method  string            `hcl:"method,optional"`
	URL     string            `hcl:"url"`
	Headers map[string]string `hcl:"headers,optional"`
	Query   map[string]string `hcl:"query,optional"`
	Body    string            `hcl:"body,optional"`
	JSON    cty.Value         `hcl:"json,optional"`
}

type hclSQL struct {
	DSN   string `hcl:"dsn"`
	Query string `hcl:"query"`
}

type hclExpect struct {
	Status  cty.Value `hcl:"status,optional"`
	Headers cty.Value `hcl:"headers,optional"`
	JSON    cty.Value `hcl:"json,optional"`
	Body    cty.Value `hcl:"body,optional"`
	Schema  string    `hcl:"schema,optional"`
	Exit    cty.Value `hcl:"exit,optional"`
	Stdout  cty.Value `hcl:"stdout,optional"`
	Rows    cty.Value `hcl:"rows,optional"`
}

func compileHCL(path string, src []byte) (*Document, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var root hclRoot
	if diags := gohcl.DecodeBody(file.Body, hclEvalContext(), &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	doc := &Document{Import: root.Import}
	var err error
	doc.Block, err = convertHCLBlock(hclSuite{
		Title:      root.Describe,
		Vars:       root.Vars,
		Timeout:    root.Timeout,
		Before:     root.Before,
		BeforeEach: root.BeforeEach,
		AfterEach:  root.AfterEach,
		After:      root.After,
		Tests:      root.Tests,
		Suites:     root.Suites,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, err)
	}
	return doc, nil
}

// hclEvalContext exposes the process environment as env.NAME and a few
// string helpers from the cty standard library.
func hclEvalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for k, v := range env.SystemEnv("") {
		if validIdentifier(k) {
			vars[k] = cty.StringVal(v)
		}
	}
	envVal := cty.EmptyObjectVal
	if len(vars) > 0 {
		envVal = cty.ObjectVal(vars)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": envVal},
		Functions: map[string]function.Function{
			"upper":      stdlib.UpperFunc,
			"lower":      stdlib.LowerFunc,
			"format":     stdlib.FormatFunc,
			"jsonencode": stdlib.JSONEncodeFunc,
		},
	}
}

func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func convertHCLBlock(s hclSuite) (Block, error) {
	b := Block{Describe: s.Title, Timeout: s.Timeout}

	vars, err := ctyToNative(s.Vars)
	if err != nil {
		return b, fmt.Errorf("vars: %w", err)
	}
	if vars != nil {
		m, ok := vars.(map[string]any)
		if !ok {
			return b, fmt.Errorf("vars must be an object")
		}
		b.Vars = m
	}

	hooks := []struct {
		dst *[]Step
		src []*hclStep
	}{
		{&b.Before, s.Before},
		{&b.BeforeEach, s.BeforeEach},
		{&b.AfterEach, s.AfterEach},
		{&b.After, s.After},
	}
	for _, h := range hooks {
		for _, hs := range h.src {
			step, err := convertHCLStep(hs.Exec, hs.HTTP, hs.SQL, hs.Expect, hs.Capture)
			if err != nil {
				return b, err
			}
			*h.dst = append(*h.dst, step)
		}
	}

	for _, t := range s.Tests {
		step, err := convertHCLStep(t.Exec, t.HTTP, t.SQL, t.Expect, t.Capture)
		if err != nil {
			return b, fmt.Errorf("test %q: %w", t.Title, err)
		}
		b.Tests = append(b.Tests, Test{It: t.Title, Skip: t.Skip, Timeout: t.Timeout, Step: step})
	}

	for _, child := range s.Suites {
		nested, err := convertHCLBlock(*child)
		if err != nil {
			return b, fmt.Errorf("suite %q: %w", child.Title, err)
		}
		b.Suites = append(b.Suites, nested)
	}
	return b, nil
}

func convertHCLStep(exec string, h *hclHTTP, q *hclSQL, e *hclExpect, capture map[string]string) (Step, error) {
	step := Step{Exec: exec, Capture: capture}
	if h != nil {
		body, err := ctyToNative(h.JSON)
		if err != nil {
			return step, fmt.Errorf("http json: %w", err)
		}
		step.HTTP = &HTTPAction{
			Method:  h.Method,
			URL:     h.URL,
			Headers: h.Headers,
			Query:   h.Query,
			Body:    h.Body,
			JSON:    body,
		}
	}
	if q != nil {
		step.SQL = &SQLAction{DSN: q.DSN, Query: q.Query}
	}
	if e != nil {
		expect, err := convertHCLExpect(e)
		if err != nil {
			return step, fmt.Errorf("expect: %w", err)
		}
		step.Expect = expect
	}
	return step, nil
}

func convertHCLExpect(e *hclExpect) (*Expect, error) {
	out := &Expect{Schema: e.Schema}
	scalars := []struct {
		dst *any
		src cty.Value
	}{
		{&out.Status, e.Status},
		{&out.Body, e.Body},
		{&out.Exit, e.Exit},
		{&out.Stdout, e.Stdout},
		{&out.Rows, e.Rows},
	}
	for _, s := range scalars {
		v, err := ctyToNative(s.src)
		if err != nil {
			return nil, err
		}
		*s.dst = v
	}

	maps := []struct {
		name string
		dst  *map[string]any
		src  cty.Value
	}{
		{"headers", &out.Headers, e.Headers},
		{"json", &out.JSON, e.JSON},
	}
	for _, m := range maps {
		v, err := ctyToNative(m.src)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s must be an object", m.name)
		}
		*m.dst = obj
	}
	return out, nil
}

// ctyToNative converts a decoded cty value into the plain Go values the YAML
// compiler produces. Whole numbers become int.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	t := v.Type()
	switch {
	case t == cty.String:
		return v.AsString(), nil
	case t == cty.Bool:
		return v.True(), nil
	case t == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return int(i), nil
			}
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, err
		}
		return f, nil
	case t.IsListType() || t.IsTupleType() || t.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			item, err := ctyToNative(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	case t.IsObjectType() || t.IsMapType():
		out := make(map[string]any, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			item, err := ctyToNative(ev)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = item
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type %s", t.FriendlyName())
}
