package suite

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// HookKind names when a hook runs.
type HookKind string

const (
	HookBefore     HookKind = "before all"
	HookBeforeEach HookKind = "before each"
	HookAfterEach  HookKind = "after each"
	HookAfter      HookKind = "after all"
)

// Declarer receives the declarations of a file while it is evaluated. The
// loader always declares through the bindings currently installed on the hook
// controller, which is how the validation pass observes a file without
// registering anything.
type Declarer interface {
	// Describe opens a suite, runs body to declare its content and closes it.
	Describe(file string, block *Block, body func())
	It(file string, test Test)
	Hook(file string, kind HookKind, step Step)
}

// Suite is a declared describe block.
type Suite struct {
	Title      string
	File       string
	Vars       map[string]any
	Timeout    time.Duration
	Before     []Step
	BeforeEach []Step
	AfterEach  []Step
	After      []Step
	Tests      []*TestCase
	Suites     []*Suite

	parent *Suite
}

// TestCase is a declared it block.
type TestCase struct {
	Title   string
	Skip    bool
	Timeout time.Duration
	Step    Step

	parent *Suite
}

// FullTitle joins the titles of every enclosing suite.
func (s *Suite) FullTitle() string {
	if s.parent == nil {
		return s.Title
	}
	return join(s.parent.FullTitle(), s.Title)
}

func (t *TestCase) FullTitle() string {
	return join(t.parent.FullTitle(), t.Title)
}

// timeout returns the closest configured timeout and whether one was set.
func (t *TestCase) timeout() (time.Duration, bool) {
	if t.Timeout > 0 {
		return t.Timeout, true
	}
	return t.parent.timeout()
}

func (s *Suite) timeout() (time.Duration, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.Timeout > 0 {
			return cur.Timeout, true
		}
	}
	return 0, false
}

// countTests returns the number of tests in s and its descendants.
func (s *Suite) countTests() int {
	n := len(s.Tests)
	for _, child := range s.Suites {
		n += child.countTests()
	}
	return n
}

func newSuite(file string, b *Block) *Suite {
	// Timeouts were checked when the document was validated.
	timeout, _ := parseTimeout(b.Timeout)
	return &Suite{
		Title:      b.Describe,
		File:       file,
		Vars:       b.Vars,
		Timeout:    timeout,
		Before:     b.Before,
		BeforeEach: b.BeforeEach,
		AfterEach:  b.AfterEach,
		After:      b.After,
	}
}

// Registry is the host Declarer. It builds one suite tree per file; the
// framework takes the tree when it runs the file.
type Registry struct {
	mu       sync.Mutex
	building map[string][]*Suite
	trees    map[string]*Suite
}

func NewRegistry() *Registry {
	return &Registry{
		building: make(map[string][]*Suite),
		trees:    make(map[string]*Suite),
	}
}

func (r *Registry) Describe(file string, block *Block, body func()) {
	s := newSuite(file, block)

	r.mu.Lock()
	stack := r.building[file]
	if n := len(stack); n > 0 {
		s.parent = stack[n-1]
		s.parent.Suites = append(s.parent.Suites, s)
	}
	r.building[file] = append(stack, s)
	r.mu.Unlock()

	body()

	r.mu.Lock()
	defer r.mu.Unlock()
	stack = r.building[file]
	stack = stack[:len(stack)-1]
	if len(stack) == 0 {
		delete(r.building, file)
		r.trees[file] = s
		return
	}
	r.building[file] = stack
}

func (r *Registry) It(file string, test Test) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.current(file)
	if cur == nil {
		return
	}
	timeout, _ := parseTimeout(test.Timeout)
	cur.Tests = append(cur.Tests, &TestCase{
		Title:   test.It,
		Skip:    test.Skip,
		Timeout: timeout,
		Step:    test.Step,
		parent:  cur,
	})
}

// Hook is a no-op for the registry: hooks travel with the suite's block.
func (r *Registry) Hook(string, HookKind, Step) {}

func (r *Registry) current(file string) *Suite {
	stack := r.building[file]
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1]
}

// Take hands out the tree declared by file and forgets it. It returns nil
// when the file declared nothing since the last Take.
func (r *Registry) Take(file string) *Suite {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.trees[file]
	delete(r.trees, file)
	return s
}

// Declaration is what the probe saw of one file.
type Declaration struct {
	File   string
	Suites int
	Hooks  int
	Tests  []string
	Skips  int
}

// Probe is the Declarer installed during validation. It records the titles
// a file declares and registers nothing.
type Probe struct {
	mu     sync.Mutex
	stacks map[string][]string
	files  map[string]*Declaration
}

func NewProbe() *Probe {
	return &Probe{
		stacks: make(map[string][]string),
		files:  make(map[string]*Declaration),
	}
}

func (p *Probe) decl(file string) *Declaration {
	d, ok := p.files[file]
	if !ok {
		d = &Declaration{File: file}
		p.files[file] = d
	}
	return d
}

func (p *Probe) Describe(file string, block *Block, body func()) {
	p.mu.Lock()
	p.decl(file).Suites++
	p.stacks[file] = append(p.stacks[file], block.Describe)
	p.mu.Unlock()

	body()

	p.mu.Lock()
	defer p.mu.Unlock()
	stack := p.stacks[file]
	p.stacks[file] = stack[:len(stack)-1]
}

func (p *Probe) It(file string, test Test) {
	p.mu.Lock()
	defer p.mu.Unlock()
	title := strings.TrimSpace(strings.Join(append(append([]string(nil), p.stacks[file]...), test.It), " "))
	d := p.decl(file)
	d.Tests = append(d.Tests, strings.Join(strings.Fields(title), " "))
	if test.Skip {
		d.Skips++
	}
}

func (p *Probe) Hook(file string, _ HookKind, _ Step) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.decl(file).Hooks++
}

// Declarations returns everything recorded, sorted by file.
func (p *Probe) Declarations() []Declaration {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Declaration, 0, len(p.files))
	for _, d := range p.files {
		cp := *d
		cp.Tests = append([]string(nil), d.Tests...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out
}
