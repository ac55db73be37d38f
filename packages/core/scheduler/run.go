package scheduler

import (
	"context"
	"fmt"
	"time"

	paraerrors "github.com/abdul-hamid-achik/paraspec/packages/core/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type completion struct {
	d        *Descriptor
	res      Result
	err      error
	duration time.Duration
}

// RunTests validates the registry and starts executing it in the background.
// Completion is signalled once through opts.Observer.OnFinish.
func (s *Scheduler) RunTests(ctx context.Context, opts RunOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return paraerrors.Statef("tests are already running")
	}
	if s.config == nil {
		return paraerrors.Statef("scheduler options were never set")
	}
	if len(s.descriptors) == 0 {
		return paraerrors.Statef("no tests registered")
	}
	if err := s.config.Validate(); err != nil {
		return err
	}
	for _, d := range s.descriptors {
		switch d.LoadState {
		case LoadError:
			return paraerrors.Statef("cannot run tests: %s failed to load", d.Path)
		case LoadPending:
			return paraerrors.Statef("cannot run tests: %s was never loaded", d.Path)
		}
	}
	if opts.Executor == nil {
		return paraerrors.Configf("no executor configured")
	}
	if opts.Guard != nil && opts.Guard.Patched() {
		return paraerrors.Statef("cannot run tests while declaration hooks are patched")
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s.started = true
	queue := append([]*Descriptor(nil), s.descriptors...)
	cfg := *s.config

	go s.coordinate(ctx, cfg, opts, queue)
	return nil
}

// coordinate owns the queue and every descriptor transition.
func (s *Scheduler) coordinate(ctx context.Context, cfg Config, opts RunOptions, queue []*Descriptor) {
	start := time.Now()

	var limiter *rate.Limiter
	if cfg.DispatchRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.DispatchRate), 1)
	}

	workers := cfg.MaxParallelTests
	if workers > len(queue) {
		workers = len(queue)
	}

	jobs := make(chan *Descriptor)
	done := make(chan completion)

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for d := range jobs {
				done <- execute(ctx, opts.Executor, d)
			}
			return nil
		})
	}

	active := 0
	for {
		for active < workers && len(queue) > 0 {
			if limiter != nil {
				// A cancelled context only lifts the throttle.
				if err := limiter.Wait(ctx); err != nil {
					opts.Logger.Debug("dispatch throttle skipped", zap.Error(err))
				}
			}

			d := queue[0]
			queue = queue[1:]

			s.mu.Lock()
			d.State = StateRunning
			d.Attempts++
			snap := d.snapshot()
			s.mu.Unlock()

			active++
			opts.Observer.OnDispatch(snap)
			jobs <- d
		}

		if active == 0 {
			break
		}

		c := <-done
		active--

		retrying := false
		s.mu.Lock()
		c.d.Durations = append(c.d.Durations, c.duration)
		c.d.Err = c.err
		switch {
		case c.err == nil && c.res != nil && c.res.Passed():
			c.d.State = StatePassed
		case c.d.Attempts <= cfg.RetryCount:
			c.d.State = StatePending
			retrying = true
		case c.err != nil:
			c.d.State = StateErrored
		default:
			c.d.State = StateFailed
		}
		snap := c.d.snapshot()
		s.mu.Unlock()

		if retrying {
			queue = append(queue, c.d)
		}
		opts.Observer.OnComplete(snap, c.res, c.err, retrying)
	}

	close(jobs)
	_ = g.Wait()

	s.mu.Lock()
	summary := Summary{
		Descriptors: s.copyDescriptors(),
		Duration:    time.Since(start),
	}
	s.mu.Unlock()

	opts.Observer.OnFinish(summary)
}

func execute(ctx context.Context, ex Executor, d *Descriptor) (c completion) {
	c.d = d
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.res = nil
			c.err = fmt.Errorf("panic while running %s: %v", d.Path, r)
		}
		c.duration = time.Since(start)
	}()

	c.res, c.err = ex.Execute(ctx, d.Path)
	return c
}

type nopObserver struct{}

func (nopObserver) OnDispatch(Descriptor) {}
func (nopObserver) OnComplete(Descriptor, Result, error, bool) {}
func (nopObserver) OnFinish(Summary) {}
