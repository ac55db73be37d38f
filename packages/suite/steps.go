package suite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/paraspec/packages/assertions"
	"github.com/abdul-hamid-achik/paraspec/packages/capture"
	"github.com/abdul-hamid-achik/paraspec/packages/core/env"
	"github.com/abdul-hamid-achik/paraspec/packages/db"
	"github.com/abdul-hamid-achik/paraspec/packages/http"
	"go.uber.org/zap"
)

// execWaitDelay bounds how long a killed command may keep its output pipes
// open through child processes.
const execWaitDelay = 500 * time.Millisecond

// step runs the action of s, checks its expectations and stores its
// captures. Captures are file-wide: later steps in any suite of the file
// see them.
func (r *fileRun) step(ctx context.Context, res *env.Resolver, s *Step) error {
	for name, v := range r.captures {
		res.SetCapture(name, v)
	}

	var (
		src      assertions.Source
		expected []*assertions.Assertion
		err      error
	)
	switch s.Kind() {
	case "exec":
		src, expected, err = r.execStep(ctx, res, s)
	case "http":
		src, expected, err = r.httpStep(ctx, res, s)
	case "sql":
		src, expected, err = r.sqlStep(ctx, res, s)
	default:
		return errors.New("step has no action")
	}
	if err != nil {
		return err
	}

	for _, a := range expected {
		a.Expected = res.ResolveValue(a.Expected)
	}
	evaluator := assertions.NewEvaluator(src, assertions.WithBaseDir(r.module.Dir))
	if failed := assertions.Failures(evaluator.EvaluateAll(expected)); len(failed) > 0 {
		return &ExpectationError{Failures: failed}
	}

	if len(s.Capture) == 0 {
		return nil
	}
	values, err := capture.ExtractAll(src, s.Capture)
	for name, v := range values {
		r.captures[name] = v
		res.SetCapture(name, v)
	}
	return err
}

func (r *fileRun) execStep(ctx context.Context, res *env.Resolver, s *Step) (assertions.Source, []*assertions.Assertion, error) {
	cmdStr := strings.TrimSpace(res.Resolve(s.Exec))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", cmdStr)
	cmd.Dir = r.module.Dir
	cmd.Env = os.Environ()
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = execWaitDelay

	code := 0
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, nil, fmt.Errorf("command %q failed: %w", cmdStr, err)
		}
		code = exitErr.ExitCode()
	}
	if ce := r.framework.logger.Check(zap.DebugLevel, "exec output"); ce != nil {
		ce.Write(zap.String("command", cmdStr), zap.Int("exit", code), zap.String("stdout", stdout.String()))
	}

	src := assertions.Values{
		"exit":   code,
		"stdout": strings.TrimSpace(stdout.String()),
		"stderr": strings.TrimSpace(stderr.String()),
	}

	var exitSpec, stdoutSpec any = 0, nil
	if e := s.Expect; e != nil {
		if e.Exit != nil {
			exitSpec = e.Exit
		}
		stdoutSpec = e.Stdout
	}
	expected := assertions.Expand("exit", exitSpec)
	expected = append(expected, textAssertions("stdout", stdoutSpec)...)
	return src, expected, nil
}

func (r *fileRun) httpStep(ctx context.Context, res *env.Resolver, s *Step) (assertions.Source, []*assertions.Assertion, error) {
	h := s.HTTP
	req := http.NewRequest(res.Resolve(h.Method), res.Resolve(h.URL))
	for k, v := range h.Headers {
		req.SetHeader(k, res.Resolve(v))
	}
	for k, v := range h.Query {
		req.SetQueryParam(k, res.Resolve(v))
	}
	switch {
	case h.JSON != nil:
		if err := req.SetJSONBody(res.ResolveValue(h.JSON)); err != nil {
			return nil, nil, err
		}
	case h.Body != "":
		req.SetBody(res.Resolve(h.Body))
	}

	resp, err := r.framework.client.Do(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	var expected []*assertions.Assertion
	if e := s.Expect; e != nil {
		if e.Status != nil {
			expected = append(expected, assertions.Expand("status", e.Status)...)
		}
		for _, name := range sortedKeys(e.Headers) {
			expected = append(expected, assertions.Expand("header "+name, e.Headers[name])...)
		}
		for _, path := range sortedKeys(e.JSON) {
			expected = append(expected, assertions.Expand("body."+path, e.JSON[path])...)
		}
		expected = append(expected, textAssertions("text", e.Body)...)
		if e.Schema != "" {
			expected = append(expected, &assertions.Assertion{Subject: "body", Operator: assertions.OpSchema, Expected: e.Schema})
		}
	}
	return assertions.NewResponseSource(resp), expected, nil
}

func (r *fileRun) sqlStep(ctx context.Context, res *env.Resolver, s *Step) (assertions.Source, []*assertions.Assertion, error) {
	client, err := db.NewClient(ctx, res.Resolve(s.SQL.DSN), r.module.Dir)
	if err != nil {
		return nil, nil, err
	}
	defer client.Close()

	query := strings.TrimSpace(res.Resolve(s.SQL.Query))
	src := assertions.Values{}
	if returnsRows(query) {
		out, err := client.Query(ctx, query)
		if err != nil {
			return nil, nil, err
		}
		if len(out.Rows) > 0 {
			for col, v := range out.Rows[0] {
				src[col] = v
			}
		}
		src["rows"] = len(out.Rows)
	} else {
		n, err := client.Exec(ctx, query)
		if err != nil {
			return nil, nil, err
		}
		src["rows"] = int(n)
	}

	var expected []*assertions.Assertion
	if s.Expect != nil && s.Expect.Rows != nil {
		expected = assertions.Expand("rows", s.Expect.Rows)
	}
	return src, expected, nil
}

// textAssertions treats a plain string as a substring expectation and an
// operator map as usual.
func textAssertions(subject string, spec any) []*assertions.Assertion {
	switch v := spec.(type) {
	case nil:
		return nil
	case map[string]any:
		return assertions.Expand(subject, v)
	default:
		return []*assertions.Assertion{{Subject: subject, Operator: assertions.OpContains, Expected: v}}
	}
}

func returnsRows(query string) bool {
	fields := strings.Fields(strings.ToLower(query))
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "select", "with", "pragma", "values", "explain":
		return true
	}
	for _, f := range fields {
		if f == "returning" {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
