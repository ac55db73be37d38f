package suite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/paraspec/packages/core/env"
	paraerrors "github.com/abdul-hamid-achik/paraspec/packages/core/errors"
	"github.com/abdul-hamid-achik/paraspec/packages/core/hooks"
	"github.com/abdul-hamid-achik/paraspec/packages/core/modcache"
)

// Module is a loaded suite file.
type Module struct {
	Path    string
	Dir     string
	Doc     *Document
	Vars    map[string]any // imports first, then the file's own vars
	Library bool
}

// Loader requires suite files. Loaded modules are cached by absolute path; a
// cached module is returned as is and declares nothing again.
type Loader struct {
	hooks *hooks.Controller[Declarer]
	cache *modcache.Cache[*Module]

	mu        sync.Mutex
	compilers map[string]Compiler
	order     []string
}

type LoaderOption func(*Loader)

// WithCache makes the loader use c as its module cache.
func WithCache(c *modcache.Cache[*Module]) LoaderOption {
	return func(l *Loader) {
		l.cache = c
	}
}

func NewLoader(h *hooks.Controller[Declarer], opts ...LoaderOption) *Loader {
	l := &Loader{
		hooks:     h,
		cache:     modcache.NewCache[*Module](),
		compilers: make(map[string]Compiler),
	}
	for _, ext := range NativeExtensions {
		l.compilers[ext] = builtinCompilers["yaml"]
		l.order = append(l.order, ext)
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Cache returns the module cache, the ledger the orchestrator tracks.
func (l *Loader) Cache() *modcache.Cache[*Module] {
	return l.cache
}

// RegisterCompiler makes files with extension ext load through c.
func (l *Loader) RegisterCompiler(ext string, c Compiler) {
	ext = strings.TrimPrefix(ext, ".")
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.compilers[ext]; !ok {
		l.order = append(l.order, ext)
	}
	l.compilers[ext] = c
}

// Extensions lists the loadable extensions, native ones first.
func (l *Loader) Extensions() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...)
}

// Require loads the file at path and evaluates its declarations.
func (l *Loader) Require(path string) (*Module, error) {
	return l.requireRoot(path, false)
}

// Preload loads a library module: a file that carries vars and imports but
// declares no tests or hooks.
func (l *Loader) Preload(path string) (*Module, error) {
	return l.requireRoot(path, true)
}

// Unload drops path from the cache so the next Require evaluates it again.
func (l *Loader) Unload(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return l.cache.Evict(abs)
}

func (l *Loader) requireRoot(path string, library bool) (*Module, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, paraerrors.Load(path, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	mod, err := l.require(abs, library)
	if err != nil {
		return nil, paraerrors.Load(abs, err)
	}
	return mod, nil
}

func (l *Loader) require(abs string, library bool) (mod *Module, err error) {
	if cached, ok := l.cache.Get(abs); ok {
		if library && !cached.Library {
			return nil, fmt.Errorf("%s declares tests and cannot be used as a library", abs)
		}
		return cached, nil
	}

	doc, err := l.compile(abs)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if library && !doc.IsLibrary() {
		return nil, fmt.Errorf("%s declares tests and cannot be used as a library", abs)
	}

	mod = &Module{
		Path:    abs,
		Dir:     filepath.Dir(abs),
		Doc:     doc,
		Library: doc.IsLibrary(),
	}
	// Cached before evaluation so import cycles terminate.
	l.cache.Put(abs, mod)
	defer func() {
		if err != nil {
			l.cache.Evict(abs)
		}
	}()

	sources := make([]map[string]any, 0, len(doc.Import)+1)
	for _, imp := range doc.Import {
		target := imp
		if !filepath.IsAbs(target) {
			target = filepath.Join(mod.Dir, target)
		}
		dep, err := l.require(filepath.Clean(target), true)
		if err != nil {
			return nil, fmt.Errorf("import %s: %w", imp, err)
		}
		sources = append(sources, dep.Vars)
	}
	sources = append(sources, doc.Vars)
	mod.Vars = env.MergeVariables(sources...)

	if !mod.Library {
		root := doc.Block
		root.Vars = mod.Vars
		declare(l.hooks.Current(), abs, &root)
	}
	return mod, nil
}

func (l *Loader) compile(abs string) (*Document, error) {
	ext := strings.TrimPrefix(filepath.Ext(abs), ".")
	c, ok := l.compilers[ext]
	if !ok {
		return nil, fmt.Errorf("no compiler registered for .%s files", ext)
	}

	src, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	doc, err := c.Compile(abs, src)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		doc = &Document{}
	}
	return doc, nil
}

func declare(d Declarer, file string, b *Block) {
	d.Describe(file, b, func() {
		hooks := []struct {
			kind  HookKind
			steps []Step
		}{
			{HookBefore, b.Before},
			{HookBeforeEach, b.BeforeEach},
			{HookAfterEach, b.AfterEach},
			{HookAfter, b.After},
		}
		for _, h := range hooks {
			for _, step := range h.steps {
				d.Hook(file, h.kind, step)
			}
		}
		for _, t := range b.Tests {
			d.It(file, t)
		}
		for i := range b.Suites {
			declare(d, file, &b.Suites[i])
		}
	})
}
