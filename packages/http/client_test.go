package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/users", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"users": [{"id": 7}]}`))
	}))
	defer server.Close()

	client := NewClient()
	req := NewRequest("get", server.URL+"/users").SetQueryParam("page", "2")
	resp, err := client.Do(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header("content-type"))
	assert.Equal(t, int64(7), resp.JSON().Get("users.0.id").Int())
}

func TestClient_PostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 123}`))
	}))
	defer server.Close()

	req := NewRequest("POST", server.URL).SetBearer("abc")
	require.NoError(t, req.SetJSONBody(map[string]any{"name": "test"}))
	assert.JSONEq(t, `{"name":"test"}`, req.Body)

	resp, err := NewClient().Do(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
	assert.True(t, resp.IsSuccess())
}

func TestClient_ContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient().Do(ctx, NewRequest("GET", server.URL))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_DefaultTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := NewClient(WithTimeout(50*time.Millisecond)).Do(context.Background(), NewRequest("GET", server.URL))
	assert.Error(t, err)
}

func TestClient_DefaultHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "suite-runner/2", r.Header.Get("User-Agent"))
		assert.Equal(t, "override", r.Header.Get("X-Env"))
		w.Header().Add("X-Trace", "a")
		w.Header().Add("X-Trace", "b")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(WithUserAgent("suite-runner/2"), WithDefaultHeaders(map[string]string{"X-Env": "default"}))
	resp, err := client.Do(context.Background(), NewRequest("GET", server.URL).SetHeader("X-Env", "override"))

	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "a, b", resp.Header("x-trace"))
}

func TestClient_UserAgentDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("User-Agent")))
	}))
	defer server.Close()

	resp, err := NewClient().Do(context.Background(), NewRequest("GET", server.URL))
	require.NoError(t, err)
	assert.Equal(t, DefaultUserAgent, resp.BodyString())
}

func TestClient_InsecureSkipVerify(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := NewClient().Do(context.Background(), NewRequest("GET", server.URL))
	require.Error(t, err)

	resp, err := NewClient(WithInsecureSkipVerify(true)).Do(context.Background(), NewRequest("GET", server.URL))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClient_Redirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("moved"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	resp, err := NewClient().Do(context.Background(), NewRequest("GET", server.URL+"/old"))
	require.NoError(t, err)
	assert.Equal(t, "moved", resp.BodyString())

	resp, err = NewClient(WithRedirects(0)).Do(context.Background(), NewRequest("GET", server.URL+"/old"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr string
	}{
		{name: "http", url: "http://localhost:8080/x"},
		{name: "https", url: "https://example.com"},
		{name: "ftp", url: "ftp://example.com", wantErr: "unsupported URL scheme"},
		{name: "no host", url: "http://", wantErr: "must have a host"},
		{name: "unresolved variable", url: "{{base}}/users", wantErr: "unsupported URL scheme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResponse_IsJSON(t *testing.T) {
	assert.True(t, (&Response{Headers: map[string]string{"Content-Type": "application/problem+json"}}).IsJSON())
	assert.True(t, (&Response{Body: []byte(`[1,2]`)}).IsJSON())
	assert.False(t, (&Response{Body: []byte(`plain text`)}).IsJSON())
	assert.False(t, (&Response{Body: []byte(`plain`)}).JSON().Exists())
}
