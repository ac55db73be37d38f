package runner

import (
	"context"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/paraspec/packages/core/scheduler"
	"go.uber.org/zap"
)

// Event names emitted by a Runner.
type Event string

const (
	EventStart    Event = "start"
	EventDispatch Event = "dispatch"
	EventRetry    Event = "retry"
	EventPass     Event = "pass"
	EventFail     Event = "fail"
	EventEnd      Event = "end"
)

// Payload carries the data of one event. Fields that do not apply to an
// event are zero.
type Payload struct {
	Info       ReporterInfo
	Descriptor scheduler.Descriptor
	Result     scheduler.Result
	Err        error
	RunResult  *RunResult
}

// Handler receives emitted events.
type Handler func(Payload)

// ReporterInfo is handed to the reporter when the run starts.
type ReporterInfo struct {
	ReporterName string
	TestsLength  int
	Options      map[string]any
}

// Attempt is one finished execution of a test file.
type Attempt struct {
	Path     string
	Number   int
	State    scheduler.State
	Retrying bool
	Duration time.Duration
	Result   scheduler.Result
	Err      error
}

// Reporter presents the progress and outcome of a run.
type Reporter interface {
	Start(info ReporterInfo)
	Attempt(a Attempt)
	End(result *RunResult)
}

// Runner is the event-emitting coordinator of a run. It observes the
// scheduler and resolves exactly once, when the scheduler finishes.
type Runner struct {
	reporter Reporter
	logger   *zap.Logger

	mu       sync.Mutex
	handlers map[Event][]Handler
	stats    *Stats
	last     map[string]scheduler.Result

	endOnce sync.Once
	done    chan struct{}
	result  *RunResult
}

type Option func(*Runner)

// WithReporter binds the reporter events are surfaced to.
func WithReporter(r Reporter) Option {
	return func(rn *Runner) {
		rn.reporter = r
	}
}

// WithLogger sets the logger. A no-op logger is used by default.
func WithLogger(l *zap.Logger) Option {
	return func(rn *Runner) {
		if l != nil {
			rn.logger = l
		}
	}
}

// CreateInstance returns a runner with no subscribers.
func CreateInstance(opts ...Option) *Runner {
	r := &Runner{
		logger:   zap.NewNop(),
		handlers: make(map[Event][]Handler),
		stats:    NewStats(),
		last:     make(map[string]scheduler.Result),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// On subscribes fn to event. Handlers run synchronously, in subscription order.
func (r *Runner) On(event Event, fn Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[event] = append(r.handlers[event], fn)
}

func (r *Runner) emit(event Event, p Payload) {
	r.mu.Lock()
	hs := append([]Handler(nil), r.handlers[event]...)
	r.mu.Unlock()
	for _, h := range hs {
		h(p)
	}
}

// Start announces the run to the reporter and emits start.
func (r *Runner) Start(info ReporterInfo) {
	r.logger.Debug("run starting",
		zap.String("reporter", info.ReporterName),
		zap.Int("tests", info.TestsLength))
	if r.reporter != nil {
		r.reporter.Start(info)
	}
	r.emit(EventStart, Payload{Info: info})
}

// OnDispatch implements scheduler.Observer.
func (r *Runner) OnDispatch(d scheduler.Descriptor) {
	r.logger.Debug("dispatch", zap.String("file", d.Path), zap.Int("attempt", d.Attempts))
	r.emit(EventDispatch, Payload{Descriptor: d})
}

// OnComplete implements scheduler.Observer.
func (r *Runner) OnComplete(d scheduler.Descriptor, res scheduler.Result, err error, retrying bool) {
	var dur time.Duration
	if n := len(d.Durations); n > 0 {
		dur = d.Durations[n-1]
	}
	r.stats.Record(dur)

	r.mu.Lock()
	r.last[d.Path] = res
	r.mu.Unlock()

	if r.reporter != nil {
		r.reporter.Attempt(Attempt{
			Path:     d.Path,
			Number:   d.Attempts,
			State:    d.State,
			Retrying: retrying,
			Duration: dur,
			Result:   res,
			Err:      err,
		})
	}

	p := Payload{Descriptor: d, Result: res, Err: err}
	switch {
	case retrying:
		r.logger.Debug("retry", zap.String("file", d.Path), zap.Int("attempt", d.Attempts), zap.Error(err))
		r.emit(EventRetry, p)
	case d.State == scheduler.StatePassed:
		r.emit(EventPass, p)
	default:
		r.emit(EventFail, p)
	}
}

// OnFinish implements scheduler.Observer. Only the first call has an effect.
func (r *Runner) OnFinish(summary scheduler.Summary) {
	r.mu.Lock()
	last := make(map[string]scheduler.Result, len(r.last))
	for path, res := range r.last {
		last[path] = res
	}
	r.mu.Unlock()
	r.End(newRunResult(summary, r.stats.Snapshot(), last))
}

// End resolves the runner with result. Later calls are ignored.
func (r *Runner) End(result *RunResult) {
	r.endOnce.Do(func() {
		r.mu.Lock()
		r.result = result
		r.mu.Unlock()

		r.logger.Debug("run finished",
			zap.Int("passed", result.Passed),
			zap.Int("failed", result.Failed),
			zap.Int("errored", result.Errored),
			zap.Duration("duration", result.Duration))
		if r.reporter != nil {
			r.reporter.End(result)
		}
		r.emit(EventEnd, Payload{RunResult: result})
		close(r.done)
	})
}

// Done is closed once the run has ended.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run ends or ctx is done. Every caller gets the same
// result; ctx only bounds the wait and never stops the run.
func (r *Runner) Wait(ctx context.Context) (*RunResult, error) {
	select {
	case <-r.done:
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
