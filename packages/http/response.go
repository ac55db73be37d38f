package http

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Response is a fully read HTTP response. Multi-value headers are joined
// with ", ".
type Response struct {
	StatusCode int
	Status     string
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

// Header looks a header up case-insensitively.
func (r *Response) Header(name string) string {
	if v, ok := r.Headers[name]; ok {
		return v
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// IsJSON reports whether the content type names JSON or the body parses as
// JSON.
func (r *Response) IsJSON() bool {
	if strings.Contains(strings.ToLower(r.Header("Content-Type")), "json") {
		return true
	}
	return len(r.Body) > 0 && gjson.ValidBytes(r.Body)
}

// JSON parses the body. The result does not exist when the body is not JSON.
func (r *Response) JSON() gjson.Result {
	if r.IsJSON() {
		return gjson.ParseBytes(r.Body)
	}
	return gjson.Result{}
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode/100 == 2
}
