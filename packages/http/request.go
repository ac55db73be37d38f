package http

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   map[string]string
	Body    string
}

func NewRequest(method, requestURL string) *Request {
	if method == "" {
		method = "GET"
	}
	return &Request{
		Method:  strings.ToUpper(method),
		URL:     requestURL,
		Headers: make(map[string]string),
		Query:   make(map[string]string),
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

func (r *Request) SetBody(body string) *Request {
	r.Body = body
	return r
}

// SetJSONBody encodes v as the body and defaults the content type.
func (r *Request) SetJSONBody(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding json body: %w", err)
	}
	r.Body = string(data)
	if r.header("Content-Type") == "" {
		r.Headers["Content-Type"] = "application/json"
	}
	return nil
}

func (r *Request) SetQueryParam(key, value string) *Request {
	r.Query[key] = value
	return r
}

// SetBasicAuth sets an Authorization header for user and password.
func (r *Request) SetBasicAuth(user, password string) *Request {
	creds := base64.StdEncoding.EncodeToString([]byte(user + ":" + password))
	r.Headers["Authorization"] = "Basic " + creds
	return r
}

// SetBearer sets a bearer token Authorization header.
func (r *Request) SetBearer(token string) *Request {
	r.Headers["Authorization"] = "Bearer " + token
	return r
}

func (r *Request) BuildURL() string {
	if len(r.Query) == 0 {
		return r.URL
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}

	q := u.Query()
	for k, v := range r.Query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (r *Request) header(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
