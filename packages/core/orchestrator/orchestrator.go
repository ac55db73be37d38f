package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/paraspec/packages/core/discovery"
	"github.com/abdul-hamid-achik/paraspec/packages/core/env"
	paraerrors "github.com/abdul-hamid-achik/paraspec/packages/core/errors"
	"github.com/abdul-hamid-achik/paraspec/packages/core/modcache"
	"github.com/abdul-hamid-achik/paraspec/packages/core/runner"
	"github.com/abdul-hamid-achik/paraspec/packages/core/scheduler"
	"github.com/abdul-hamid-achik/paraspec/packages/output"
	"github.com/abdul-hamid-achik/paraspec/packages/suite"
	"go.uber.org/zap"
)

// ReporterFactory builds the reporter a run reports through.
type ReporterFactory func(name string, s output.Settings) (runner.Reporter, error)

// Orchestrator turns patterns into a validated, scheduled run.
type Orchestrator struct {
	lookup    discovery.LookupFunc
	stderr    io.Writer
	logger    *zap.Logger
	reporters ReporterFactory
	sched     *scheduler.Scheduler
	host      *suite.Host
	cwd       string
}

type Option func(*Orchestrator)

// WithLookup replaces file discovery.
func WithLookup(fn discovery.LookupFunc) Option {
	return func(o *Orchestrator) {
		o.lookup = fn
	}
}

// WithStderr sets where discovery warnings go.
func WithStderr(w io.Writer) Option {
	return func(o *Orchestrator) {
		o.stderr = w
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithReporterFactory(f ReporterFactory) Option {
	return func(o *Orchestrator) {
		o.reporters = f
	}
}

// WithScheduler makes Run register tests with s instead of a fresh scheduler.
func WithScheduler(s *scheduler.Scheduler) Option {
	return func(o *Orchestrator) {
		o.sched = s
	}
}

// WithHost sets the suite host whose hooks, loader and registry are used.
func WithHost(h *suite.Host) Option {
	return func(o *Orchestrator) {
		o.host = h
	}
}

// WithWorkingDir resolves relative patterns, requires and compiler modules
// against dir.
func WithWorkingDir(dir string) Option {
	return func(o *Orchestrator) {
		o.cwd = dir
	}
}

func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		lookup:    discovery.LookupFiles,
		stderr:    os.Stderr,
		logger:    zap.NewNop(),
		reporters: output.New,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.host == nil {
		o.host = suite.NewHost()
	}
	if o.cwd == "" {
		o.cwd, _ = os.Getwd()
	}
	return o
}

// Host returns the suite host the orchestrator loads files through.
func (o *Orchestrator) Host() *suite.Host {
	return o.host
}

// Validation is what a load pass saw.
type Validation struct {
	Files        []string
	Declarations []suite.Declaration
	Evicted      []string
}

type plan struct {
	files     []string
	framework []suite.FrameworkOption
}

// Run validates every file matched by opts.Patterns and starts executing
// them. The returned runner resolves when every file reached a terminal
// state; test failures are part of its result, not errors.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*runner.Runner, error) {
	p, err := o.discover(opts)
	if err != nil {
		return nil, err
	}

	rep, err := o.reporters(opts.Reporter, output.Settings{
		Writer:  opts.Output,
		Verbose: opts.Verbose,
		NoColor: opts.NoColor,
		Options: opts.ReporterOptions,
	})
	if err != nil {
		return nil, err
	}
	rn := runner.CreateInstance(runner.WithReporter(rep), runner.WithLogger(o.logger))

	cfg := scheduler.Config{
		MaxParallelTests: opts.MaxParallel,
		RetryCount:       opts.Retry,
		DispatchRate:     opts.DispatchRate,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sched := o.sched
	if sched == nil {
		sched = scheduler.New()
	}
	if err := sched.SetOptions(cfg); err != nil {
		return nil, err
	}

	if _, err := o.load(ctx, p, sched); err != nil {
		return nil, err
	}

	info := runner.ReporterInfo{
		ReporterName: opts.Reporter,
		TestsLength:  sched.Len(),
		Options:      reporterOptions(opts),
	}
	rn.Start(info)

	framework := suite.NewFramework(o.host, append(p.framework,
		suite.WithLogger(o.logger),
		suite.WithWarnWriter(o.stderr))...)
	o.logger.Debug("dispatching", zap.Int("files", sched.Len()), zap.Int("maxParallel", opts.MaxParallel))
	if err := sched.RunTests(ctx, scheduler.RunOptions{
		Executor: framework,
		Observer: rn,
		Guard:    o.host.Hooks,
		Logger:   o.logger,
	}); err != nil {
		return nil, err
	}
	return rn, nil
}

// Validate runs the load pass without executing anything.
func (o *Orchestrator) Validate(ctx context.Context, opts Options) (*Validation, error) {
	p, err := o.discover(opts)
	if err != nil {
		return nil, err
	}
	sched := scheduler.New()
	if err := sched.SetOptions(scheduler.Config{MaxParallelTests: max(opts.MaxParallel, 1), RetryCount: opts.Retry}); err != nil {
		return nil, err
	}
	return o.load(ctx, p, sched)
}

// discover registers compilers, preloads required modules and resolves the
// patterns to absolute file paths.
func (o *Orchestrator) discover(opts Options) (*plan, error) {
	loader := o.host.Loader
	for _, spec := range opts.Compilers {
		ext, module, err := suite.ParseCompilerSpec(spec)
		if err != nil {
			return nil, err
		}
		c, err := suite.ResolveCompiler(module, o.cwd)
		if err != nil {
			return nil, err
		}
		loader.RegisterCompiler(ext, c)
		o.logger.Debug("compiler registered", zap.String("ext", ext), zap.String("module", module))
	}
	extensions := loader.Extensions()

	p := &plan{}
	if opts.Timeouts != nil {
		p.framework = append(p.framework, suite.WithTimeouts(*opts.Timeouts))
	}
	if opts.Timeout > 0 {
		p.framework = append(p.framework, suite.WithTimeout(opts.Timeout))
	}

	for _, req := range opts.Require {
		if err := o.preload(o.abs(req)); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool)
	for _, pattern := range opts.patterns() {
		files, err := o.lookup(o.abs(pattern), extensions, opts.Recursive)
		if err != nil {
			if errors.Is(err, discovery.ErrCannotResolvePath) {
				o.logger.Debug("discovery", zap.Error(paraerrors.DiscoveryWarning(pattern, err)))
				fmt.Fprintf(o.stderr, "Warning: Could not find any test files matching pattern: %s\n", pattern)
				continue
			}
			return nil, err
		}
		for _, f := range files {
			abs := o.abs(f)
			if !seen[abs] {
				seen[abs] = true
				p.files = append(p.files, abs)
			}
		}
	}
	if len(p.files) == 0 {
		return nil, paraerrors.NoTestFiles()
	}
	o.logger.Debug("discovered", zap.Strings("files", p.files))
	return p, nil
}

func (o *Orchestrator) preload(path string) error {
	if isDotEnv(path) {
		if _, err := env.LoadAndExportDotEnv(path); err != nil {
			return paraerrors.Load(path, err)
		}
		o.logger.Debug("environment loaded", zap.String("file", path))
		return nil
	}
	if _, err := o.host.Loader.Preload(path); err != nil {
		return err
	}
	o.logger.Debug("preloaded", zap.String("module", path))
	return nil
}

// load requires every file with the probe installed, registers it and then
// evicts whatever the pass added to the module cache so execution loads
// each file afresh.
func (o *Orchestrator) load(ctx context.Context, p *plan, sched *scheduler.Scheduler) (*Validation, error) {
	probe := suite.NewProbe()
	tracker := modcache.NewTracker(o.host.Loader.Cache())

	err := o.host.Hooks.With(probe, func() error {
		o.logger.Debug("hooks patched")
		tracker.Start()
		for _, file := range p.files {
			if err := sched.AddPending(file); err != nil {
				return err
			}
		}
		for _, file := range p.files {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := o.host.Loader.Require(file); err != nil {
				if markErr := sched.MarkLoadError(file, err); markErr != nil {
					o.logger.Debug("load error not recorded", zap.String("file", file), zap.Error(markErr))
				}
				return err
			}
			if err := sched.AddTest(file); err != nil {
				return err
			}
			o.logger.Debug("loaded", zap.String("file", file))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.logger.Debug("hooks restored")

	mark, err := tracker.StateMark()
	if err != nil {
		return nil, err
	}
	evicted, err := tracker.Flush(mark)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("module cache flushed", zap.Strings("evicted", evicted))

	return &Validation{
		Files:        p.files,
		Declarations: probe.Declarations(),
		Evicted:      evicted,
	}, nil
}

func (o *Orchestrator) abs(path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(o.cwd, path)
	}
	return filepath.Clean(path)
}

func isDotEnv(path string) bool {
	base := filepath.Base(path)
	return base == ".env" || strings.HasPrefix(base, ".env.") || filepath.Ext(base) == ".env"
}

func reporterOptions(opts Options) map[string]any {
	merged := map[string]any{
		"maxParallel": opts.MaxParallel,
		"retry":       opts.Retry,
		"verbose":     opts.Verbose,
	}
	for k, v := range opts.ReporterOptions {
		merged[k] = v
	}
	return merged
}
