package capture

import (
	"fmt"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/paraspec/packages/assertions"
)

// Extractor reads captured values out of a step outcome.
type Extractor struct {
	source assertions.Source
}

func NewExtractor(src assertions.Source) *Extractor {
	return &Extractor{source: src}
}

// Extract resolves expr against the source. A missing value is reported as
// not found rather than as nil.
func (e *Extractor) Extract(expr string) (any, bool) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, false
	}
	v, err := e.source.Value(expr)
	if err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// ExtractAll resolves every capture (variable name to expression). Names whose
// expression resolved to nothing are returned, sorted, as an error.
func ExtractAll(src assertions.Source, captures map[string]string) (map[string]any, error) {
	extractor := NewExtractor(src)
	results := make(map[string]any, len(captures))

	var missing []string
	for name, expr := range captures {
		value, ok := extractor.Extract(expr)
		if !ok {
			missing = append(missing, name)
			continue
		}
		results[name] = value
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return results, fmt.Errorf("capture found no value for %s", strings.Join(missing, ", "))
	}
	return results, nil
}
