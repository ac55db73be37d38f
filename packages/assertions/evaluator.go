package assertions

import (
	"fmt"
)

// Result is the outcome of one assertion.
type Result struct {
	Passed   bool
	Message  string
	Expected any
	Actual   any
	Subject  string
	Operator Operator
}

// String renders the result as a single line.
func (r *Result) String() string {
	if r.Passed {
		return fmt.Sprintf("%s %s ok", r.Subject, r.Operator)
	}
	return fmt.Sprintf("%s %s: %s", r.Subject, r.Operator, r.Message)
}

// Evaluator checks assertions against one Source.
type Evaluator struct {
	source  Source
	baseDir string
}

// EvaluatorOption is a functional option for configuring an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithBaseDir sets the directory relative schema paths are resolved from.
func WithBaseDir(dir string) EvaluatorOption {
	return func(e *Evaluator) {
		e.baseDir = dir
	}
}

func NewEvaluator(src Source, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{source: src}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate resolves the subject of a and applies its operator.
func (e *Evaluator) Evaluate(a *Assertion) *Result {
	r := &Result{
		Subject:  a.Subject,
		Operator: a.Operator,
		Expected: a.Expected,
	}

	actual, err := e.source.Value(a.Subject)
	if err != nil {
		r.Message = err.Error()
		return r
	}

	r.Actual = actual
	r.Passed, r.Message = e.check(a.Operator, actual, a.Expected)
	if a.Operator == OpLength {
		r.Actual = sizeOf(actual)
	}
	return r
}

// EvaluateAll evaluates every assertion and returns the results in order.
func (e *Evaluator) EvaluateAll(as []*Assertion) []*Result {
	results := make([]*Result, 0, len(as))
	for _, a := range as {
		results = append(results, e.Evaluate(a))
	}
	return results
}

// Failures returns the failed results.
func Failures(results []*Result) []*Result {
	var failed []*Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

func (e *Evaluator) check(op Operator, actual, expected any) (bool, string) {
	switch op {
	case OpSchema:
		return e.schema(actual, expected)
	case OpEach:
		return e.each(actual, expected)
	}
	fn, ok := checks[op]
	if !ok {
		return false, fmt.Sprintf("unknown operator: %v", op)
	}
	return fn(actual, expected)
}

// each applies expected to every element. expected is either a value every
// element must equal or an operator map such as {gt: 0}.
func (e *Evaluator) each(actual, expected any) (bool, string) {
	items, ok := actual.([]any)
	if !ok {
		return false, fmt.Sprintf("expected array for 'each' operator, got %T", actual)
	}

	inner := Expand("", expected)
	for i, item := range items {
		for _, a := range inner {
			if ok, msg := e.check(a.Operator, item, a.Expected); !ok {
				return false, fmt.Sprintf("item[%d]: %s", i, msg)
			}
		}
	}
	return true, ""
}
