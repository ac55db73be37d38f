package suite

import (
	"fmt"
	"time"
)

// Document is one decoded suite file.
type Document struct {
	// Import lists library modules whose vars are merged in before this
	// file's own, relative to the file.
	Import []string `yaml:"import,omitempty" json:"import,omitempty"`
	Block  `yaml:",inline"`
}

// Block is a describe block: the document root or a nested suite.
type Block struct {
	Describe   string         `yaml:"describe,omitempty" json:"describe,omitempty"`
	Vars       map[string]any `yaml:"vars,omitempty" json:"vars,omitempty"`
	Timeout    string         `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Before     []Step         `yaml:"before,omitempty" json:"before,omitempty"`
	BeforeEach []Step         `yaml:"beforeEach,omitempty" json:"beforeEach,omitempty"`
	AfterEach  []Step         `yaml:"afterEach,omitempty" json:"afterEach,omitempty"`
	After      []Step         `yaml:"after,omitempty" json:"after,omitempty"`
	Tests      []Test         `yaml:"tests,omitempty" json:"tests,omitempty"`
	Suites     []Block        `yaml:"suites,omitempty" json:"suites,omitempty"`
}

// Test is one it block.
type Test struct {
	It      string `yaml:"it" json:"it"`
	Skip    bool   `yaml:"skip,omitempty" json:"skip,omitempty"`
	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Step    `yaml:",inline"`
}

// Step is a single action with its expectations. Hooks are steps too.
type Step struct {
	Exec    string            `yaml:"exec,omitempty" json:"exec,omitempty"`
	HTTP    *HTTPAction       `yaml:"http,omitempty" json:"http,omitempty"`
	SQL     *SQLAction        `yaml:"sql,omitempty" json:"sql,omitempty"`
	Expect  *Expect           `yaml:"expect,omitempty" json:"expect,omitempty"`
	Capture map[string]string `yaml:"capture,omitempty" json:"capture,omitempty"`
}

type HTTPAction struct {
	Method  string            `yaml:"method,omitempty" json:"method,omitempty"`
	URL     string            `yaml:"url" json:"url"`
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Query   map[string]string `yaml:"query,omitempty" json:"query,omitempty"`
	Body    string            `yaml:"body,omitempty" json:"body,omitempty"`
	JSON    any               `yaml:"json,omitempty" json:"json,omitempty"`
}

type SQLAction struct {
	DSN   string `yaml:"dsn" json:"dsn"`
	Query string `yaml:"query" json:"query"`
}

// Expect holds the expectations of a step. Each value is either compared for
// equality or is a map of assertion operators.
type Expect struct {
	Status  any            `yaml:"status,omitempty" json:"status,omitempty"`
	Headers map[string]any `yaml:"headers,omitempty" json:"headers,omitempty"`
	JSON    map[string]any `yaml:"json,omitempty" json:"json,omitempty"`
	Body    any            `yaml:"body,omitempty" json:"body,omitempty"`
	Schema  string         `yaml:"schema,omitempty" json:"schema,omitempty"`
	Exit    any            `yaml:"exit,omitempty" json:"exit,omitempty"`
	Stdout  any            `yaml:"stdout,omitempty" json:"stdout,omitempty"`
	Rows    any            `yaml:"rows,omitempty" json:"rows,omitempty"`
}

// Kind names the action of a step.
func (s *Step) Kind() string {
	switch {
	case s.Exec != "":
		return "exec"
	case s.HTTP != nil:
		return "http"
	case s.SQL != nil:
		return "sql"
	}
	return ""
}

func (s *Step) actions() int {
	n := 0
	if s.Exec != "" {
		n++
	}
	if s.HTTP != nil {
		n++
	}
	if s.SQL != nil {
		n++
	}
	return n
}

// IsLibrary reports whether the document declares nothing and only carries
// vars and imports.
func (d *Document) IsLibrary() bool {
	b := d.Block
	return b.Describe == "" && len(b.Tests) == 0 && len(b.Suites) == 0 &&
		len(b.Before) == 0 && len(b.BeforeEach) == 0 && len(b.AfterEach) == 0 && len(b.After) == 0
}

// Validate checks what can be checked without running anything.
func (d *Document) Validate() error {
	return d.Block.validate("", true)
}

func (b *Block) validate(path string, root bool) error {
	if !root && b.Describe == "" {
		return fmt.Errorf("%ssuite without a describe title", prefix(path))
	}
	here := join(path, b.Describe)

	if _, err := parseTimeout(b.Timeout); err != nil {
		return fmt.Errorf("%s%w", prefix(here), err)
	}
	hooks := map[string][]Step{"before": b.Before, "beforeEach": b.BeforeEach, "afterEach": b.AfterEach, "after": b.After}
	for _, name := range []string{"before", "beforeEach", "afterEach", "after"} {
		for i := range hooks[name] {
			if n := hooks[name][i].actions(); n != 1 {
				return fmt.Errorf("%s%s hook #%d must have exactly one of exec, http or sql, has %d", prefix(here), name, i+1, n)
			}
		}
	}

	for i := range b.Tests {
		t := &b.Tests[i]
		if t.It == "" {
			return fmt.Errorf("%stest #%d has no it title", prefix(here), i+1)
		}
		if _, err := parseTimeout(t.Timeout); err != nil {
			return fmt.Errorf("%s%w", prefix(join(here, t.It)), err)
		}
		if n := t.actions(); n != 1 && !(t.Skip && n == 0) {
			return fmt.Errorf("%smust have exactly one of exec, http or sql, has %d", prefix(join(here, t.It)), n)
		}
	}
	for i := range b.Suites {
		if err := b.Suites[i].validate(here, false); err != nil {
			return err
		}
	}
	return nil
}

func parseTimeout(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %v", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid timeout %q: negative", s)
	}
	return d, nil
}

func join(path, title string) string {
	switch {
	case path == "":
		return title
	case title == "":
		return path
	}
	return path + " " + title
}

func prefix(path string) string {
	if path == "" {
		return ""
	}
	return path + ": "
}
