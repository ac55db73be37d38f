// Package hooks guards the host framework's declaration bindings.
//
// While a suite file is loaded for validation, the bindings it declares tests
// through must not be the host's real ones, otherwise every test would be
// registered twice. A Controller holds the bindings as a two-state resource:
// host (the default) and patched (a substitute installed for one phase).
package hooks

import (
	"sync"

	paraerrors "github.com/abdul-hamid-achik/paraspec/packages/core/errors"
)

// Controller swaps declaration bindings of type B.
type Controller[B any] struct {
	mu      sync.RWMutex
	host    B
	active  B
	patched bool
}

// NewController returns a controller in the host state.
func NewController[B any](host B) *Controller[B] {
	return &Controller[B]{
		host:   host,
		active: host,
	}
}

// Patch installs substitute as the current bindings.
func (c *Controller[B]) Patch(substitute B) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.patched {
		return paraerrors.Statef("hooks are already patched")
	}
	c.active = substitute
	c.patched = true
	return nil
}

// Restore reinstates the host bindings.
func (c *Controller[B]) Restore() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.patched {
		return paraerrors.Statef("hooks are not patched")
	}
	c.active = c.host
	c.patched = false
	return nil
}

// With patches the bindings for the duration of fn and always restores them.
// An error from fn takes precedence over a restore error.
func (c *Controller[B]) With(substitute B, fn func() error) error {
	if err := c.Patch(substitute); err != nil {
		return err
	}

	err := fn()
	if restoreErr := c.Restore(); restoreErr != nil && err == nil {
		err = restoreErr
	}
	return err
}

// Current returns the bindings declarations must go through right now.
func (c *Controller[B]) Current() B {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Host returns the host's default bindings regardless of state.
func (c *Controller[B]) Host() B {
	return c.host
}

// Patched reports whether substitute bindings are installed.
func (c *Controller[B]) Patched() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.patched
}
