package assertions

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/paraspec/packages/http"
	"github.com/tidwall/gjson"
)

// Source resolves the subjects of assertions and captures.
type Source interface {
	Value(subject string) (any, error)
}

// Values is a Source over a fixed set of named values, used for exec and sql
// outcomes.
type Values map[string]any

func (v Values) Value(subject string) (any, error) {
	val, ok := v[subject]
	if !ok {
		return nil, fmt.Errorf("unknown subject %q", subject)
	}
	return val, nil
}

// ResponseSource resolves subjects against an HTTP response:
// status, duration (ms), header <Name>, text (the raw body), body and
// body.<gjson path>. Any other subject is a gjson path into the body.
type ResponseSource struct {
	response *http.Response
	bodyJSON gjson.Result
}

func NewResponseSource(resp *http.Response) *ResponseSource {
	return &ResponseSource{
		response: resp,
		bodyJSON: resp.JSON(),
	}
}

func (s *ResponseSource) Value(subject string) (any, error) {
	switch {
	case subject == "status":
		return s.response.StatusCode, nil
	case subject == "duration":
		return s.response.Duration.Milliseconds(), nil
	case strings.HasPrefix(subject, "header"):
		name := strings.TrimSpace(strings.TrimPrefix(subject, "header"))
		if name == "" {
			return s.response.Headers, nil
		}
		return s.response.Header(name), nil
	case subject == "text":
		return s.response.BodyString(), nil
	case subject == "body":
		if !s.bodyJSON.Exists() {
			return s.response.BodyString(), nil
		}
		return s.bodyJSON.Value(), nil
	case strings.HasPrefix(subject, "body."):
		return s.jsonValue(strings.TrimPrefix(subject, "body."))
	default:
		return s.jsonValue(subject)
	}
}

func (s *ResponseSource) jsonValue(path string) (any, error) {
	if !s.bodyJSON.Exists() {
		return nil, fmt.Errorf("response body is not JSON")
	}
	result := s.bodyJSON.Get(convertBracketNotation(path))
	if !result.Exists() {
		return nil, nil
	}
	return result.Value(), nil
}

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// convertBracketNotation converts array bracket notation to gjson dot notation
// e.g., "[0].id" -> "0.id", "items[0].tags[1]" -> "items.0.tags.1"
func convertBracketNotation(path string) string {
	return strings.TrimPrefix(bracketIndex.ReplaceAllString(path, ".$1"), ".")
}
