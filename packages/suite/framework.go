package suite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/paraspec/packages/core/env"
	paraerrors "github.com/abdul-hamid-achik/paraspec/packages/core/errors"
	"github.com/abdul-hamid-achik/paraspec/packages/core/hooks"
	"github.com/abdul-hamid-achik/paraspec/packages/core/scheduler"
	"github.com/abdul-hamid-achik/paraspec/packages/http"
	"go.uber.org/zap"
)

// DefaultTimeout applies to tests and hooks that set no timeout of their own.
const DefaultTimeout = 2 * time.Second

// Host bundles the pieces that share one set of declaration bindings: the
// registry is the host binding the controller restores, and the loader
// declares through whatever the controller currently holds.
type Host struct {
	Registry *Registry
	Hooks    *hooks.Controller[Declarer]
	Loader   *Loader
}

func NewHost(opts ...LoaderOption) *Host {
	registry := NewRegistry()
	ctrl := hooks.NewController[Declarer](registry)
	return &Host{
		Registry: registry,
		Hooks:    ctrl,
		Loader:   NewLoader(ctrl, opts...),
	}
}

// Framework runs suite files. It is the scheduler's executor.
type Framework struct {
	host     *Host
	client   *http.Client
	logger   *zap.Logger
	warn     io.Writer
	timeout  time.Duration
	timeouts bool
}

type FrameworkOption func(*Framework)

// WithTimeout sets the timeout of tests and hooks that do not set one.
func WithTimeout(d time.Duration) FrameworkOption {
	return func(f *Framework) {
		f.timeout = d
	}
}

// WithTimeouts turns timeout enforcement on or off.
func WithTimeouts(enabled bool) FrameworkOption {
	return func(f *Framework) {
		f.timeouts = enabled
	}
}

func WithHTTPClient(c *http.Client) FrameworkOption {
	return func(f *Framework) {
		f.client = c
	}
}

func WithLogger(l *zap.Logger) FrameworkOption {
	return func(f *Framework) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithWarnWriter sets where unresolved variable warnings go.
func WithWarnWriter(w io.Writer) FrameworkOption {
	return func(f *Framework) {
		f.warn = w
	}
}

func NewFramework(host *Host, opts ...FrameworkOption) *Framework {
	f := &Framework{
		host:     host,
		client:   http.NewClient(),
		logger:   zap.NewNop(),
		warn:     os.Stderr,
		timeout:  DefaultTimeout,
		timeouts: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Execute requires the file so its declarations reach the registry, runs
// the declared tree and unloads the file again.
func (f *Framework) Execute(ctx context.Context, path string) (scheduler.Result, error) {
	start := time.Now()

	mod, err := f.host.Loader.Require(path)
	if err != nil {
		return nil, err
	}
	defer f.host.Loader.Unload(mod.Path)

	result := &FileResult{File: mod.Path}
	if mod.Library {
		result.Duration = time.Since(start)
		return result, nil
	}

	tree := f.host.Registry.Take(mod.Path)
	if tree == nil {
		return nil, paraerrors.TestExecution(mod.Path, errors.New("no declarations were registered; the file was served from the module cache"))
	}

	resolver := env.NewResolver()
	resolver.SetWarnFunc(func(format string, args ...any) {
		fmt.Fprintf(f.warn, "warning: %s: %s\n", mod.Path, fmt.Sprintf(format, args...))
	})

	run := &fileRun{
		framework: f,
		module:    mod,
		result:    result,
		captures:  make(map[string]any),
	}
	run.suite(ctx, tree, resolver)
	result.Duration = time.Since(start)

	f.logger.Debug("file finished",
		zap.String("file", mod.Path),
		zap.Int("passes", result.Passes),
		zap.Int("failures", result.Failures),
		zap.Int("pending", result.Pending),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// limit returns the timeout to enforce, 0 meaning none.
func (f *Framework) limit(d time.Duration, set bool) time.Duration {
	if !f.timeouts {
		return 0
	}
	if set {
		return d
	}
	return f.timeout
}

// fileRun is the state of one Execute call.
type fileRun struct {
	framework *Framework
	module    *Module
	result    *FileResult
	captures  map[string]any
}

func (r *fileRun) suite(ctx context.Context, s *Suite, parent *env.Resolver) {
	if s.countTests() == 0 {
		return
	}
	res := parent.Clone()
	res.SetVariables(s.Vars)

	for i := range s.Before {
		if err := r.hook(ctx, s, res, &s.Before[i]); err != nil {
			r.hookFailed(HookBefore, fmt.Sprintf("%q hook in %q", HookBefore, s.FullTitle()), err)
			r.failRemaining(s.Tests, s.Suites, HookBefore, err)
			r.afterAll(ctx, s, res)
			return
		}
	}

	aborted := false
	for i, t := range s.Tests {
		if t.Skip {
			r.result.add(TestResult{Title: t.FullTitle(), State: TestPending})
			continue
		}
		if kind, err := r.test(ctx, t, res); err != nil {
			rest := s.Tests[i+1:]
			if kind == HookBeforeEach {
				rest = s.Tests[i:]
			}
			r.failRemaining(rest, s.Suites, kind, err)
			aborted = true
			break
		}
	}
	if !aborted {
		for _, child := range s.Suites {
			r.suite(ctx, child, res)
		}
	}
	r.afterAll(ctx, s, res)
}

func (r *fileRun) afterAll(ctx context.Context, s *Suite, res *env.Resolver) {
	for i := range s.After {
		if err := r.hook(ctx, s, res, &s.After[i]); err != nil {
			r.hookFailed(HookAfter, fmt.Sprintf("%q hook in %q", HookAfter, s.FullTitle()), err)
			return
		}
	}
}

// test runs t between the beforeEach and afterEach hooks of its ancestors.
// A hook failure is returned with its kind so the caller can abandon the
// rest of the suite; the test's own failure is only recorded.
func (r *fileRun) test(ctx context.Context, t *TestCase, res *env.Resolver) (HookKind, error) {
	chain := ancestors(t.parent)
	for _, s := range chain {
		for i := range s.BeforeEach {
			if err := r.hook(ctx, t.parent, res, &s.BeforeEach[i]); err != nil {
				r.hookFailed(HookBeforeEach, fmt.Sprintf("%q hook for %q", HookBeforeEach, t.FullTitle()), err)
				return HookBeforeEach, err
			}
		}
	}

	start := time.Now()
	limit := r.framework.limit(t.timeout())
	err := withTimeout(ctx, limit, func(ctx context.Context) error {
		return r.step(ctx, res, &t.Step)
	})
	tr := TestResult{Title: t.FullTitle(), State: TestPassed, Duration: time.Since(start)}
	if err != nil {
		tr.State = TestFailed
		tr.Err = err
	}
	r.result.add(tr)

	for i := len(chain) - 1; i >= 0; i-- {
		s := chain[i]
		for j := range s.AfterEach {
			if err := r.hook(ctx, t.parent, res, &s.AfterEach[j]); err != nil {
				r.hookFailed(HookAfterEach, fmt.Sprintf("%q hook for %q", HookAfterEach, t.FullTitle()), err)
				return HookAfterEach, err
			}
		}
	}
	return "", nil
}

func (r *fileRun) hook(ctx context.Context, s *Suite, res *env.Resolver, step *Step) error {
	limit := r.framework.limit(s.timeout())
	return withTimeout(ctx, limit, func(ctx context.Context) error {
		return r.step(ctx, res, step)
	})
}

func (r *fileRun) hookFailed(kind HookKind, title string, err error) {
	r.result.add(TestResult{Title: title, State: TestFailed, Err: err, Hook: kind})
}

// failRemaining fails every test that can no longer run because a hook
// failed. Skipped tests stay pending.
func (r *fileRun) failRemaining(tests []*TestCase, suites []*Suite, kind HookKind, cause error) {
	for _, t := range tests {
		if t.Skip {
			r.result.add(TestResult{Title: t.FullTitle(), State: TestPending})
			continue
		}
		r.result.add(TestResult{
			Title: t.FullTitle(),
			State: TestFailed,
			Err:   fmt.Errorf("%q hook failed: %w", kind, cause),
			Hook:  kind,
		})
	}
	for _, s := range suites {
		r.failRemaining(s.Tests, s.Suites, kind, cause)
	}
}

// ancestors returns s and its parents, outermost first.
func ancestors(s *Suite) []*Suite {
	var chain []*Suite
	for cur := s; cur != nil; cur = cur.parent {
		chain = append([]*Suite{cur}, chain...)
	}
	return chain
}

func withTimeout(ctx context.Context, limit time.Duration, fn func(context.Context) error) error {
	if limit <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	err := fn(ctx)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("timeout of %dms exceeded", limit.Milliseconds())
	}
	return err
}
