package assertions

import "sort"

// Operator names a comparison.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "notEquals"
	OpGreater     Operator = "gt"
	OpGreaterEq   Operator = "gte"
	OpLess        Operator = "lt"
	OpLessEq      Operator = "lte"
	OpContains    Operator = "contains"
	OpNotContains Operator = "notContains"
	OpStartsWith  Operator = "startsWith"
	OpEndsWith    Operator = "endsWith"
	OpMatches     Operator = "matches"
	OpExists      Operator = "exists"
	OpLength      Operator = "length"
	OpIncludes    Operator = "includes"
	OpIn          Operator = "in"
	OpType        Operator = "type"
	OpSchema      Operator = "schema"
	OpEach        Operator = "each"
)

var operators = map[Operator]bool{
	OpEquals: true, OpNotEquals: true, OpGreater: true, OpGreaterEq: true,
	OpLess: true, OpLessEq: true, OpContains: true, OpNotContains: true,
	OpStartsWith: true, OpEndsWith: true, OpMatches: true, OpExists: true,
	OpLength: true, OpIncludes: true, OpIn: true, OpType: true,
	OpSchema: true, OpEach: true,
}

// IsOperator reports whether name is a known operator.
func IsOperator(name string) bool {
	return operators[Operator(name)]
}

// Assertion checks one subject of a step's outcome.
type Assertion struct {
	Subject  string
	Operator Operator
	Expected any
}

// Expand turns an expectation value into assertions on subject. A map whose
// keys are all operators yields one assertion per key, in key order; any
// other value is compared for equality.
func Expand(subject string, spec any) []*Assertion {
	m, ok := spec.(map[string]any)
	if !ok || len(m) == 0 || !allOperators(m) {
		return []*Assertion{{Subject: subject, Operator: OpEquals, Expected: spec}}
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*Assertion, 0, len(keys))
	for _, k := range keys {
		out = append(out, &Assertion{Subject: subject, Operator: Operator(k), Expected: m[k]})
	}
	return out
}

func allOperators(m map[string]any) bool {
	for k := range m {
		if !IsOperator(k) {
			return false
		}
	}
	return true
}
