package suite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocument_Validate(t *testing.T) {
	tests := []struct {
		name    string
		doc     Document
		wantErr string
	}{
		{
			name: "valid",
			doc: Document{Block: Block{
				Describe: "api",
				Before:   []Step{{Exec: "true"}},
				Tests:    []Test{{It: "works", Step: Step{Exec: "true"}}, {It: "later", Skip: true}},
				Suites:   []Block{{Describe: "nested", Tests: []Test{{It: "inner", Step: Step{SQL: &SQLAction{DSN: "sqlite::memory:", Query: "select 1"}}}}}},
			}},
		},
		{
			name:    "test without title",
			doc:     Document{Block: Block{Tests: []Test{{Step: Step{Exec: "true"}}}}},
			wantErr: "test #1 has no it title",
		},
		{
			name:    "test without action",
			doc:     Document{Block: Block{Describe: "api", Tests: []Test{{It: "works"}}}},
			wantErr: "api works: must have exactly one of exec, http or sql, has 0",
		},
		{
			name:    "test with two actions",
			doc:     Document{Block: Block{Tests: []Test{{It: "works", Step: Step{Exec: "true", HTTP: &HTTPAction{URL: "http://x"}}}}}},
			wantErr: "has 2",
		},
		{
			name:    "hook without action",
			doc:     Document{Block: Block{Describe: "api", BeforeEach: []Step{{}}}},
			wantErr: "api: beforeEach hook #1",
		},
		{
			name:    "bad suite timeout",
			doc:     Document{Block: Block{Describe: "api", Timeout: "soon"}},
			wantErr: `invalid timeout "soon"`,
		},
		{
			name:    "negative test timeout",
			doc:     Document{Block: Block{Tests: []Test{{It: "t", Timeout: "-1s", Step: Step{Exec: "true"}}}}},
			wantErr: "negative",
		},
		{
			name:    "nested suite without title",
			doc:     Document{Block: Block{Describe: "api", Suites: []Block{{}}}},
			wantErr: "api: suite without a describe title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestDocument_IsLibrary(t *testing.T) {
	assert.True(t, (&Document{Import: []string{"./a.yaml"}, Block: Block{Vars: map[string]any{"a": 1}}}).IsLibrary())
	assert.False(t, (&Document{Block: Block{Describe: "api"}}).IsLibrary())
	assert.False(t, (&Document{Block: Block{After: []Step{{Exec: "true"}}}}).IsLibrary())
}
