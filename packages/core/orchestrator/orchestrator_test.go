package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/paraspec/packages/core/discovery"
	paraerrors "github.com/abdul-hamid-achik/paraspec/packages/core/errors"
	"github.com/abdul-hamid-achik/paraspec/packages/core/runner"
	"github.com/abdul-hamid-achik/paraspec/packages/core/scheduler"
	"github.com/abdul-hamid-achik/paraspec/packages/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingReporter struct {
	mu       sync.Mutex
	info     runner.ReporterInfo
	attempts []runner.Attempt
}

func (r *recordingReporter) Start(info runner.ReporterInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.info = info
}

func (r *recordingReporter) Attempt(a runner.Attempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, a)
}

func (r *recordingReporter) End(*runner.RunResult) {}

func factory(rep runner.Reporter) ReporterFactory {
	return func(string, output.Settings) (runner.Reporter, error) {
		return rep, nil
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func suiteFile(title string, tests ...string) string {
	s := fmt.Sprintf("describe: %s\ntests:\n", title)
	for _, cmd := range tests {
		s += fmt.Sprintf("  - it: runs %s\n    exec: %q\n", cmd, cmd)
	}
	return s
}

func wait(t *testing.T, rn *runner.Runner) *runner.RunResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := rn.Wait(ctx)
	require.NoError(t, err)
	return res
}

func baseOptions(patterns ...string) Options {
	return Options{MaxParallel: 2, Reporter: "test", Patterns: patterns}
}

func TestRun_NoFilesFoundDoesNotPatch(t *testing.T) {
	var stderr bytes.Buffer
	sched := scheduler.New()
	o := New(
		WithStderr(&stderr),
		WithScheduler(sched),
		WithReporterFactory(factory(&recordingReporter{})),
		WithLookup(func(pattern string, _ []string, _ bool) ([]string, error) {
			return nil, fmt.Errorf("%w: %s", discovery.ErrCannotResolvePath, pattern)
		}),
	)

	rn, err := o.Run(context.Background(), baseOptions("missing", "gone"))
	require.Error(t, err)
	assert.Nil(t, rn)
	assert.True(t, paraerrors.Is(err, paraerrors.KindDiscoveryFatal))
	assert.Equal(t,
		"Warning: Could not find any test files matching pattern: missing\n"+
			"Warning: Could not find any test files matching pattern: gone\n",
		stderr.String())
	assert.False(t, o.Host().Hooks.Patched())
	assert.Equal(t, 0, sched.Len())
	_, set := sched.Options()
	assert.False(t, set)
}

func TestRun_DefaultPattern(t *testing.T) {
	var seen []string
	o := New(
		WithStderr(&bytes.Buffer{}),
		WithWorkingDir("/work"),
		WithLookup(func(pattern string, _ []string, _ bool) ([]string, error) {
			seen = append(seen, pattern)
			return nil, discovery.ErrCannotResolvePath
		}),
	)
	_, err := o.Run(context.Background(), Options{})
	require.Error(t, err)
	assert.Equal(t, []string{"/work/test"}, seen)
}

func TestRun_OtherLookupErrorsAreReturned(t *testing.T) {
	o := New(WithLookup(func(string, []string, bool) ([]string, error) {
		return nil, assert.AnError
	}))
	_, err := o.Run(context.Background(), baseOptions("x"))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestRun_WarnsAndRunsRemaining(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", suiteFile("a", "true"))
	writeFile(t, dir, "b.yaml", suiteFile("b", "true", "true"))

	var stderr bytes.Buffer
	rep := &recordingReporter{}
	o := New(WithStderr(&stderr), WithWorkingDir(dir), WithReporterFactory(factory(rep)))

	rn, err := o.Run(context.Background(), baseOptions("nothing-here", "."))
	require.NoError(t, err)
	res := wait(t, rn)

	assert.Contains(t, stderr.String(), "Warning: Could not find any test files matching pattern: nothing-here")
	assert.True(t, res.Success())
	assert.Equal(t, 2, res.Passed)
	assert.Equal(t, 2, rep.info.TestsLength)
	assert.Equal(t, "test", rep.info.ReporterName)
	assert.Equal(t, 2, rep.info.Options["maxParallel"])
	assert.False(t, o.Host().Hooks.Patched())
}

func TestRun_RetriesFailingFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ok.yaml", suiteFile("ok", "true"))
	writeFile(t, dir, "bad.yaml", suiteFile("bad", "false"))

	rep := &recordingReporter{}
	o := New(WithStderr(&bytes.Buffer{}), WithWorkingDir(dir), WithReporterFactory(factory(rep)))

	opts := baseOptions(dir)
	opts.Retry = 2
	rn, err := o.Run(context.Background(), opts)
	require.NoError(t, err)
	res := wait(t, rn)

	assert.False(t, res.Success())
	assert.Equal(t, 1, res.Passed)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 2, res.Retries)
	assert.Len(t, rep.attempts, 4)
}

func TestRun_LoadErrorAbortsBeforeExecution(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", suiteFile("a", "true"))
	writeFile(t, dir, "b.yaml", "describe: b\ntests:\n  - exec: \"true\"\n")
	writeFile(t, dir, "c.yaml", suiteFile("c", "true"))

	sched := scheduler.New()
	o := New(WithStderr(&bytes.Buffer{}), WithScheduler(sched), WithReporterFactory(factory(&recordingReporter{})))

	rn, err := o.Run(context.Background(), baseOptions(dir))
	require.Error(t, err)
	assert.Nil(t, rn)
	assert.True(t, paraerrors.Is(err, paraerrors.KindLoad))
	assert.Contains(t, err.Error(), "b.yaml")
	assert.False(t, o.Host().Hooks.Patched())

	ds := sched.Descriptors()
	require.Len(t, ds, 3)
	assert.Equal(t, scheduler.Loaded, ds[0].LoadState)
	assert.Equal(t, filepath.Join(dir, "b.yaml"), ds[1].Path)
	assert.Equal(t, scheduler.LoadError, ds[1].LoadState)
	assert.Error(t, ds[1].Err)
	assert.Equal(t, scheduler.LoadPending, ds[2].LoadState, "files after the failure are never loaded")
}

func TestRun_UnknownReporter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", suiteFile("a", "true"))

	o := New(WithStderr(&bytes.Buffer{}))
	opts := baseOptions(dir)
	opts.Reporter = "nyan"
	_, err := o.Run(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, paraerrors.Is(err, paraerrors.KindConfiguration))
	assert.False(t, o.Host().Hooks.Patched())
}

func TestRun_InvalidParallelism(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", suiteFile("a", "true"))

	for name, mutate := range map[string]func(*Options){
		"zero parallelism": func(o *Options) { o.MaxParallel = 0 },
		"negative retry":   func(o *Options) { o.Retry = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			rep := &recordingReporter{}
			sched := scheduler.New()
			o := New(WithStderr(&bytes.Buffer{}), WithScheduler(sched), WithReporterFactory(factory(rep)))
			opts := baseOptions(dir)
			mutate(&opts)

			_, err := o.Run(context.Background(), opts)
			require.Error(t, err)
			assert.True(t, paraerrors.Is(err, paraerrors.KindConfiguration))

			assert.Equal(t, runner.ReporterInfo{}, rep.info, "reporter must not be started")
			assert.Equal(t, 0, sched.Len(), "nothing is loaded")
			assert.Equal(t, 0, o.Host().Loader.Cache().Len())
		})
	}
}

func TestRun_LogsPhasesInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", suiteFile("a", "true"))

	core, logs := observer.New(zap.DebugLevel)
	o := New(
		WithStderr(&bytes.Buffer{}),
		WithLogger(zap.New(core)),
		WithReporterFactory(factory(&recordingReporter{})),
	)
	rn, err := o.Run(context.Background(), baseOptions(dir))
	require.NoError(t, err)
	wait(t, rn)

	var phases []string
	for _, e := range logs.All() {
		switch e.Message {
		case "discovered", "hooks patched", "loaded", "hooks restored", "module cache flushed", "dispatching":
			phases = append(phases, e.Message)
		}
	}
	assert.Equal(t, []string{"discovered", "hooks patched", "loaded", "hooks restored", "module cache flushed", "dispatching"}, phases)
}

func TestRun_RequireModules(t *testing.T) {
	const key = "PARASPEC_ORCHESTRATOR_REQUIRE_TEST"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	dir := t.TempDir()
	writeFile(t, dir, "setup/.env", key+"=from-dotenv\n")
	lib := writeFile(t, dir, "setup/common.yaml", "vars:\n  expected: from-dotenv\n")
	writeFile(t, dir, "tests/env.yaml", `
import: [../setup/common.yaml]
describe: env
tests:
  - it: sees the exported variable
    exec: echo "$`+key+`"
    expect:
      stdout: "{{expected}}"
`)

	o := New(WithStderr(&bytes.Buffer{}), WithWorkingDir(dir), WithReporterFactory(factory(&recordingReporter{})))
	opts := baseOptions("tests")
	opts.Require = []string{"setup/.env", "setup/common.yaml"}

	rn, err := o.Run(context.Background(), opts)
	require.NoError(t, err)
	res := wait(t, rn)
	assert.True(t, res.Success(), "%+v", res.Files)

	_, cached := o.Host().Loader.Cache().Get(lib)
	assert.True(t, cached, "preloaded modules stay cached")
}

func TestRun_RegistersCompilers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "api.json", `{"describe": "json", "tests": [{"it": "runs", "exec": "true"}]}`)
	writeFile(t, dir, "notes.txt", "ignored")

	o := New(WithStderr(&bytes.Buffer{}), WithReporterFactory(factory(&recordingReporter{})))
	opts := baseOptions(dir)
	opts.Compilers = []string{"json:json"}

	rn, err := o.Run(context.Background(), opts)
	require.NoError(t, err)
	res := wait(t, rn)
	require.Len(t, res.Files, 1)
	assert.Equal(t, filepath.Join(dir, "api.json"), res.Files[0].Path)

	_, err = New().Run(context.Background(), Options{Compilers: []string{"nope"}})
	assert.True(t, paraerrors.Is(err, paraerrors.KindConfiguration))
}

func TestRun_TimeoutOptions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "slow.yaml", suiteFile("slow", "sleep 0.3"))

	run := func(opts Options) *runner.RunResult {
		o := New(WithStderr(&bytes.Buffer{}), WithReporterFactory(factory(&recordingReporter{})))
		rn, err := o.Run(context.Background(), opts)
		require.NoError(t, err)
		return wait(t, rn)
	}

	opts := baseOptions(dir)
	opts.Timeout = 50 * time.Millisecond
	assert.False(t, run(opts).Success())

	off := false
	opts.Timeouts = &off
	assert.True(t, run(opts).Success())
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", `
describe: users
beforeEach: [{exec: "true"}]
tests:
  - it: lists
    exec: "true"
  - it: later
    skip: true
`)

	o := New(WithStderr(&bytes.Buffer{}))
	v, err := o.Validate(context.Background(), baseOptions(dir))
	require.NoError(t, err)

	assert.Equal(t, []string{a}, v.Files)
	assert.Equal(t, []string{a}, v.Evicted)
	require.Len(t, v.Declarations, 1)
	d := v.Declarations[0]
	assert.Equal(t, []string{"users lists", "users later"}, d.Tests)
	assert.Equal(t, 1, d.Hooks)
	assert.Equal(t, 1, d.Skips)
	assert.Equal(t, 0, o.Host().Loader.Cache().Len())
}
