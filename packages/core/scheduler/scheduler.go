// Package scheduler holds the registry of test files and drives their
// execution across a bounded pool of workers with retries.
package scheduler

import (
	"context"
	"sync"
	"time"

	paraerrors "github.com/abdul-hamid-achik/paraspec/packages/core/errors"
	"go.uber.org/zap"
)

// LoadState is the validation state of a descriptor.
type LoadState string

const (
	LoadPending LoadState = "pending"
	Loaded      LoadState = "loaded"
	LoadError   LoadState = "load-error"
)

// State is the execution state of a descriptor.
type State string

const (
	StatePending State = "pending"
	StateRunning State = "running"
	StatePassed  State = "passed"
	StateFailed  State = "failed"
	StateErrored State = "errored"
)

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StatePassed || s == StateFailed || s == StateErrored
}

// Descriptor is the scheduling record of one test file.
type Descriptor struct {
	Path      string
	LoadState LoadState
	State     State
	Attempts  int
	Err       error // load error, or error of the last attempt
	Durations []time.Duration
}

// Config is set once per scheduler.
type Config struct {
	MaxParallelTests int
	RetryCount       int
	// DispatchRate caps dispatches per second. Zero disables the limit.
	DispatchRate float64
}

// Validate reports the first unusable setting as a configuration error.
func (c Config) Validate() error {
	switch {
	case c.MaxParallelTests < 1:
		return paraerrors.Configf("maxParallelTests must be >= 1, got %d", c.MaxParallelTests)
	case c.RetryCount < 0:
		return paraerrors.Configf("retryCount must be >= 0, got %d", c.RetryCount)
	case c.DispatchRate < 0:
		return paraerrors.Configf("dispatch rate must be >= 0, got %g", c.DispatchRate)
	}
	return nil
}

// Result is what an Executor reports for one attempt.
type Result interface {
	Passed() bool
}

// Executor runs one test file.
type Executor interface {
	Execute(ctx context.Context, path string) (Result, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, path string) (Result, error)

func (f ExecutorFunc) Execute(ctx context.Context, path string) (Result, error) {
	return f(ctx, path)
}

// Observer receives scheduling events. Calls are made from a single
// goroutine, in order.
type Observer interface {
	OnDispatch(d Descriptor)
	OnComplete(d Descriptor, res Result, err error, retrying bool)
	OnFinish(summary Summary)
}

// Guard reports whether execution must not start yet.
type Guard interface {
	Patched() bool
}

// RunOptions wires a run.
type RunOptions struct {
	Executor Executor
	Observer Observer
	Guard    Guard
	Logger   *zap.Logger
}

// Summary is the final view of every descriptor, in registration order.
type Summary struct {
	Descriptors []Descriptor
	Duration    time.Duration
}

// Scheduler is the registry of test files.
type Scheduler struct {
	mu          sync.Mutex
	config      *Config
	descriptors []*Descriptor
	index       map[string]*Descriptor
	started     bool
}

// New returns an empty scheduler.
func New() *Scheduler {
	return &Scheduler{index: make(map[string]*Descriptor)}
}

// SetOptions sets the configuration. It must be called exactly once, before
// any AddTest.
func (s *Scheduler) SetOptions(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config != nil {
		return paraerrors.Statef("scheduler options are already set")
	}
	if len(s.descriptors) > 0 {
		return paraerrors.Statef("scheduler options must be set before tests are added")
	}
	s.config = &cfg
	return nil
}

// Options returns the configuration and whether it was set.
func (s *Scheduler) Options() (Config, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config == nil {
		return Config{}, false
	}
	return *s.config, true
}

// AddPending registers a discovered file that has not been loaded yet.
// Registering a known path again is a no-op.
func (s *Scheduler) AddPending(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mutable(path); err != nil {
		return err
	}
	s.register(path)
	return nil
}

// AddTest registers a loaded file, promoting it when it was pending.
// Registering the same path again is a no-op.
func (s *Scheduler) AddTest(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mutable(path); err != nil {
		return err
	}
	d := s.register(path)
	d.LoadState = Loaded
	d.Err = nil
	return nil
}

// MarkLoadError records that path failed its load pass. RunTests refuses a
// registry holding a file that is not loaded.
func (s *Scheduler) MarkLoadError(path string, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mutable(path); err != nil {
		return err
	}
	d := s.register(path)
	d.LoadState = LoadError
	d.Err = cause
	return nil
}

func (s *Scheduler) mutable(path string) error {
	if s.config == nil {
		return paraerrors.Statef("scheduler options must be set before adding %s", path)
	}
	if s.started {
		return paraerrors.Statef("cannot add %s: tests are already running", path)
	}
	return nil
}

func (s *Scheduler) register(path string) *Descriptor {
	if d, ok := s.index[path]; ok {
		return d
	}
	d := &Descriptor{
		Path:      path,
		LoadState: LoadPending,
		State:     StatePending,
	}
	s.descriptors = append(s.descriptors, d)
	s.index[path] = d
	return d
}

// Len returns the number of registered files.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.descriptors)
}

// Descriptors returns copies of every descriptor in registration order.
func (s *Scheduler) Descriptors() []Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyDescriptors()
}

func (s *Scheduler) copyDescriptors() []Descriptor {
	out := make([]Descriptor, len(s.descriptors))
	for i, d := range s.descriptors {
		out[i] = d.snapshot()
	}
	return out
}

func (d *Descriptor) snapshot() Descriptor {
	c := *d
	c.Durations = append([]time.Duration(nil), d.Durations...)
	return c
}
