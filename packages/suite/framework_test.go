package suite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	paraerrors "github.com/abdul-hamid-achik/paraspec/packages/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, path string, opts ...FrameworkOption) *FileResult {
	t.Helper()
	opts = append([]FrameworkOption{WithWarnWriter(io.Discard)}, opts...)
	fw := NewFramework(NewHost(), opts...)
	res, err := fw.Execute(context.Background(), path)
	require.NoError(t, err)
	fr, ok := res.(*FileResult)
	require.True(t, ok)
	return fr
}

func titles(fr *FileResult, state TestState) []string {
	var out []string
	for _, tr := range fr.Tests {
		if tr.State == state {
			out = append(out, tr.Title)
		}
	}
	return out
}

func TestFramework_ExecSteps(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "shell.yaml", `
describe: shell
vars:
  greeting: hello
tests:
  - it: echoes
    exec: echo {{greeting}}
    expect:
      stdout: hello
  - it: exit code
    exec: exit 3
    expect:
      exit: 3
  - it: wrong output
    exec: echo bye
    expect:
      stdout: hello
  - it: fails by default on non-zero exit
    exec: exit 1
  - it: later
    skip: true
`)

	fr := execute(t, path)
	assert.False(t, fr.Passed())
	assert.Equal(t, 2, fr.Passes)
	assert.Equal(t, 2, fr.Failures)
	assert.Equal(t, 1, fr.Pending)
	assert.Equal(t, []string{"shell echoes", "shell exit code"}, titles(fr, TestPassed))
	assert.Equal(t, []string{"shell later"}, titles(fr, TestPending))

	var expErr *ExpectationError
	require.True(t, errors.As(fr.Tests[2].Err, &expErr))
	assert.Equal(t, "stdout", expErr.Failures[0].Subject)
	assert.Contains(t, fr.Tests[3].Err.Error(), "exit equals")
}

func TestFramework_HookOrder(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "hooks.yaml", `
describe: root
before:
  - exec: echo before >> log
beforeEach:
  - exec: echo root-each >> log
afterEach:
  - exec: echo root-after-each >> log
after:
  - exec: echo after >> log
tests:
  - it: one
    exec: echo one >> log
suites:
  - describe: child
    beforeEach:
      - exec: echo child-each >> log
    tests:
      - it: two
        exec: echo two >> log
`)

	fr := execute(t, path)
	assert.True(t, fr.Passed())
	assert.Equal(t, []string{"root one", "root child two"}, titles(fr, TestPassed))

	data, err := os.ReadFile(filepath.Join(dir, "log"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"before",
		"root-each", "one", "root-after-each",
		"root-each", "child-each", "two", "root-after-each",
		"after",
	}, strings.Fields(string(data)))
}

func TestFramework_BeforeHookFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.yaml", `
describe: broken
before:
  - exec: exit 1
after:
  - exec: touch cleaned
tests:
  - it: first
    exec: "exit 0"
  - it: skipped
    skip: true
suites:
  - describe: nested
    tests:
      - it: deep
        exec: "exit 0"
`)

	fr := execute(t, path)
	assert.False(t, fr.Passed())
	assert.Equal(t, 3, fr.Failures)
	assert.Equal(t, 1, fr.Pending)
	require.NotEmpty(t, fr.Tests)
	assert.Equal(t, `"before all" hook in "broken"`, fr.Tests[0].Title)
	assert.Equal(t, HookBefore, fr.Tests[0].Hook)
	assert.Equal(t, []string{`"before all" hook in "broken"`, "broken first", "broken nested deep"}, titles(fr, TestFailed))
	assert.FileExists(t, filepath.Join(dir, "cleaned"), "after hooks still run")
}

func TestFramework_BeforeEachFailureAbandonsSuite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "each.yaml", `
describe: each
beforeEach:
  - exec: test ! -f stop
afterEach:
  - exec: touch stop
tests:
  - it: first
    exec: "exit 0"
  - it: second
    exec: "exit 0"
  - it: third
    exec: "exit 0"
`)

	fr := execute(t, path)
	assert.Equal(t, 1, fr.Passes)
	assert.Equal(t, []string{`"before each" hook for "each second"`, "each second", "each third"}, titles(fr, TestFailed))
}

func TestFramework_Timeouts(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "slow.yaml", `
describe: slow
tests:
  - it: sleeps
    timeout: 50ms
    exec: sleep 0.3
`)

	start := time.Now()
	fr := execute(t, path)
	assert.Less(t, time.Since(start), 2*time.Second)
	require.Equal(t, 1, fr.Failures)
	assert.EqualError(t, fr.Tests[0].Err, "timeout of 50ms exceeded")

	fr = execute(t, path, WithTimeouts(false))
	assert.True(t, fr.Passed())

	fast := writeFile(t, dir, "default.yaml", "tests:\n  - it: sleeps\n    exec: sleep 0.3\n")
	fr = execute(t, fast, WithTimeout(20*time.Millisecond))
	assert.Equal(t, 1, fr.Failures)
}

func TestFramework_HTTPSteps(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Request-Id", "req-1")
		switch {
		case r.Method == nethttp.MethodGet && r.URL.Path == "/users":
			fmt.Fprint(w, `[{"id": 1, "name": "alice"}, {"id": 2, "name": "bob"}]`)
		case r.Method == nethttp.MethodGet && r.URL.Path == "/users/1":
			fmt.Fprint(w, `{"id": 1, "name": "alice"}`)
		case r.Method == nethttp.MethodPost && r.URL.Path == "/users":
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil || r.Header.Get("Authorization") != "Bearer token" {
				w.WriteHeader(nethttp.StatusBadRequest)
				return
			}
			w.WriteHeader(nethttp.StatusCreated)
			_ = json.NewEncoder(w).Encode(body)
		default:
			w.WriteHeader(nethttp.StatusNotFound)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeFile(t, dir, "user.schema.json", `{"type": "object", "required": ["id", "name"]}`)
	path := writeFile(t, dir, "api.yaml", fmt.Sprintf(`
describe: users api
vars:
  base: %s
tests:
  - it: lists users
    http:
      url: "{{base}}/users"
    expect:
      status: 200
      headers:
        X-Request-Id: {startsWith: req}
      json:
        "0.name": alice
        "#": 2
      body: bob
    capture:
      firstID: "0.id"
  - it: fetches the captured user
    http:
      url: "{{base}}/users/{{firstID}}"
    expect:
      status: {lt: 300}
      schema: ./user.schema.json
  - it: creates a user
    http:
      method: post
      url: "{{base}}/users"
      headers:
        Authorization: Bearer token
      json:
        name: carol
    expect:
      status: 201
      json:
        name: carol
  - it: reports a wrong status
    http:
      url: "{{base}}/missing"
    expect:
      status: 200
`, srv.URL))

	fr := execute(t, path)
	assert.Equal(t, []string{"users api lists users", "users api fetches the captured user", "users api creates a user"}, titles(fr, TestPassed))
	assert.Equal(t, []string{"users api reports a wrong status"}, titles(fr, TestFailed))
}

func TestFramework_SQLSteps(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "db.yaml", `
describe: db
vars:
  dsn: sqlite:./app.db
before:
  - sql: {dsn: "{{dsn}}", query: "create table users (id integer primary key, name text)"}
  - sql: {dsn: "{{dsn}}", query: "insert into users (name) values ('alice'), ('bob')"}
tests:
  - it: counts rows
    sql: {dsn: "{{dsn}}", query: "select id, name from users order by id"}
    expect:
      rows: 2
    capture:
      firstName: name
  - it: uses the captured value
    exec: echo {{firstName}}
    expect:
      stdout: alice
  - it: counts affected rows
    sql: {dsn: "{{dsn}}", query: "delete from users where name = 'bob'"}
    expect:
      rows: {gte: 1}
`)

	fr := execute(t, path)
	assert.True(t, fr.Passed(), "%+v", fr.Tests)
	assert.Equal(t, 3, fr.Passes)
	assert.FileExists(t, filepath.Join(dir, "app.db"))
}

func TestFramework_LibraryFileHasNoTests(t *testing.T) {
	path := writeFile(t, t.TempDir(), "lib.yaml", "vars: {a: 1}\n")
	fr := execute(t, path)
	assert.True(t, fr.Passed())
	assert.Empty(t, fr.Tests)
}

func TestFramework_Errors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "api.yaml", simpleSuite)
	host := NewHost()
	fw := NewFramework(host, WithWarnWriter(io.Discard))

	// A file left in the cache declares nothing when required again.
	require.NoError(t, host.Hooks.With(NewProbe(), func() error {
		_, err := host.Loader.Require(path)
		return err
	}))
	res, err := fw.Execute(context.Background(), path)
	assert.Nil(t, res)
	assert.True(t, paraerrors.Is(err, paraerrors.KindTestExecution), "%v", err)

	broken := writeFile(t, dir, "broken.yaml", "tests: [\n")
	_, err = fw.Execute(context.Background(), broken)
	assert.True(t, paraerrors.Is(err, paraerrors.KindLoad), "%v", err)

	var nilResult *FileResult
	assert.False(t, nilResult.Passed())
}
