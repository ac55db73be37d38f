package capture

import (
	"testing"

	"github.com/abdul-hamid-achik/paraspec/packages/assertions"
	"github.com/abdul-hamid-achik/paraspec/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAll_Response(t *testing.T) {
	resp := &http.Response{
		StatusCode: 201,
		Headers:    map[string]string{"Content-Type": "application/json", "Location": "/users/9"},
		Body:       []byte(`{"data": {"id": 9, "tags": ["a"]}}`),
	}

	got, err := ExtractAll(assertions.NewResponseSource(resp), map[string]string{
		"id":       "body.data.id",
		"location": "header Location",
		"status":   "status",
		"tag":      "data.tags[0]",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"id":       float64(9),
		"location": "/users/9",
		"status":   201,
		"tag":      "a",
	}, got)
}

func TestExtractAll_Missing(t *testing.T) {
	src := assertions.Values{"stdout": "ok"}

	got, err := ExtractAll(src, map[string]string{"out": "stdout", "b": "stderr", "a": "rows"})
	require.Error(t, err)
	assert.Equal(t, "capture found no value for a, b", err.Error())
	assert.Equal(t, map[string]any{"out": "ok"}, got)
}
