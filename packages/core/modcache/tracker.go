package modcache

import (
	"sort"
	"sync"

	paraerrors "github.com/abdul-hamid-achik/paraspec/packages/core/errors"
)

// Mark is an opaque snapshot of a ledger's keys at one point in time.
type Mark struct {
	keys map[string]struct{}
}

// Tracker records a baseline of cached modules and evicts what was added
// after it.
type Tracker struct {
	ledger Ledger

	mu       sync.Mutex
	baseline map[string]struct{}
	started  bool
}

// NewTracker returns a tracker over ledger.
func NewTracker(ledger Ledger) *Tracker {
	return &Tracker{ledger: ledger}
}

// Start captures the baseline. Calling it again moves the baseline.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.baseline = snapshot(t.ledger)
	t.started = true
}

// StateMark returns a mark covering everything cached so far.
func (t *Tracker) StateMark() (Mark, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return Mark{}, paraerrors.Statef("module cache tracker was not started")
	}
	return Mark{keys: snapshot(t.ledger)}, nil
}

// Delta returns, sorted, the keys present at mark but absent from the baseline.
func (t *Tracker) Delta(mark Mark) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.delta(mark)
}

// Flush evicts the delta between the baseline and mark and returns the
// evicted keys. Entries cached before Start are never evicted.
func (t *Tracker) Flush(mark Mark) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return nil, paraerrors.Statef("module cache tracker was not started")
	}

	var evicted []string
	for _, key := range t.delta(mark) {
		if t.ledger.Evict(key) {
			evicted = append(evicted, key)
		}
	}
	return evicted, nil
}

func (t *Tracker) delta(mark Mark) []string {
	var keys []string
	for k := range mark.keys {
		if _, ok := t.baseline[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func snapshot(l Ledger) map[string]struct{} {
	keys := l.Keys()
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}
