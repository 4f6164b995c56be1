package grib

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/vk/gribdef/internal/codes"
	"github.com/vk/gribdef/internal/ctxlog"
	"github.com/vk/gribdef/internal/fsutil"
)

// DefaultBootFile is the definition file every message starts from.
const DefaultBootFile = "boot.hcl"

// Parser reads definition files. The context calls it at most once per
// file and caches the result.
type Parser interface {
	ParseDefinitions(path string) ([]Action, error)
	ParseConcepts(path string) ([]*ConceptValue, error)
	ParseElementTable(path string) (*ElementTable, error)
}

// Context is the shared state of every handle decoded with one set of
// definitions: the boot program, concept tables, element tables and
// resolved file paths. It is safe for concurrent use. Caches live until
// Close.
type Context struct {
	parser     Parser
	registry   *Registry
	logger     *slog.Logger
	searchPath []string
	bootFile   string

	bootMu sync.Mutex
	boot   []Action

	mu       sync.Mutex
	paths    map[string]string
	concepts map[string][]*ConceptValue
	tables   map[string]*ElementTable
	group    singleflight.Group
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithSearchPath sets the directories definition files are looked up in.
func WithSearchPath(dirs ...string) ContextOption {
	return func(c *Context) { c.searchPath = append(c.searchPath, dirs...) }
}

// WithBootFile overrides the name of the boot definition file.
func WithBootFile(name string) ContextOption {
	return func(c *Context) { c.bootFile = name }
}

// WithRegistry replaces the default accessor class registry.
func WithRegistry(r *Registry) ContextOption {
	return func(c *Context) { c.registry = r }
}

// WithContextLogger sets the logger used for cache and file diagnostics.
func WithContextLogger(l *slog.Logger) ContextOption {
	return func(c *Context) { c.logger = l }
}

// NewContext creates a context reading definitions through p.
func NewContext(p Parser, opts ...ContextOption) *Context {
	c := &Context{
		parser:   p,
		registry: defaultRegistry,
		logger:   slog.Default(),
		bootFile: DefaultBootFile,
		paths:    make(map[string]string),
		concepts: make(map[string][]*ConceptValue),
		tables:   make(map[string]*ElementTable),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Context) Registry() *Registry { return c.registry }

// SearchPath returns the definition search path joined with colons.
func (c *Context) SearchPath() string { return strings.Join(c.searchPath, ":") }

// FullPath resolves a definition file name against the search path.
// Results, misses included, are cached.
func (c *Context) FullPath(name string) (string, bool) {
	c.mu.Lock()
	full, ok := c.paths[name]
	c.mu.Unlock()
	if ok {
		return full, full != ""
	}

	full, _ = fsutil.Resolve(c.searchPath, name)

	c.mu.Lock()
	c.paths[name] = full
	c.mu.Unlock()
	return full, full != ""
}

// BootProgram returns the parsed boot file. Only the first caller parses
// it; later callers, concurrent or not, get the same actions. A failed
// parse is not cached.
func (c *Context) BootProgram() ([]Action, error) {
	c.bootMu.Lock()
	defer c.bootMu.Unlock()
	if c.boot != nil {
		return c.boot, nil
	}

	full, ok := c.FullPath(c.bootFile)
	if !ok {
		ctxlog.Fatal(c.logger, "Unable to find boot definitions",
			"file", c.bootFile, "definitions", c.SearchPath(),
			"hint", "check the definition path setting")
		return nil, fmt.Errorf("boot file %s not found in %q: %w", c.bootFile, c.SearchPath(), codes.ErrFileNotFound)
	}
	program, err := c.parser.ParseDefinitions(full)
	if err != nil {
		ctxlog.Fatal(c.logger, "Unable to parse boot definitions", "file", full, "error", err)
		return nil, fmt.Errorf("parse %s: %w", full, err)
	}
	if program == nil {
		program = []Action{}
	}
	c.boot = program
	return program, nil
}

// ParseDefinitions parses a definition file other than the boot file, for
// templates included by name. The result is not cached.
func (c *Context) ParseDefinitions(name string) ([]Action, error) {
	full, ok := c.FullPath(name)
	if !ok {
		return nil, fmt.Errorf("definition file %s: %w", name, codes.ErrFileNotFound)
	}
	return c.parser.ParseDefinitions(full)
}

// Concepts returns the concept values read from the local file followed by
// the master file. Either may be empty; at least one must exist. Each
// (master, local) pair is parsed once however many handles ask for it at
// the same time.
func (c *Context) Concepts(master, local string) ([]*ConceptValue, error) {
	key := master + "|" + local
	if v, ok := c.cachedConcepts(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do("concept:"+key, func() (any, error) {
		if v, ok := c.cachedConcepts(key); ok {
			return v, nil
		}
		values, err := c.loadConcepts(master, local)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.concepts[key] = values
		c.mu.Unlock()
		return values, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*ConceptValue), nil
}

func (c *Context) cachedConcepts(key string) ([]*ConceptValue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.concepts[key]
	return v, ok
}

func (c *Context) loadConcepts(master, local string) ([]*ConceptValue, error) {
	var values []*ConceptValue
	if local != "" {
		if full, ok := c.FullPath(local); ok {
			v, err := c.parser.ParseConcepts(full)
			if err != nil {
				return nil, fmt.Errorf("parse concept file %s: %w", full, err)
			}
			c.logger.Debug("Loading concept", "file", full)
			values = append(values, v...)
		}
	}

	full, ok := c.FullPath(master)
	switch {
	case ok:
		v, err := c.parser.ParseConcepts(full)
		if err != nil {
			return nil, fmt.Errorf("parse concept file %s: %w", full, err)
		}
		c.logger.Debug("Loading concept", "file", full)
		values = append(values, v...)
	case values == nil:
		ctxlog.Fatal(c.logger, "Unable to find concept file",
			"master", master, "local", local, "definitions", c.SearchPath())
		return nil, fmt.Errorf("concept file %s: %w", master, codes.ErrFileNotFound)
	}
	if values == nil {
		values = []*ConceptValue{}
	}
	return values, nil
}

// ElementTable returns the parsed element table at name, parsing it once.
func (c *Context) ElementTable(name string) (*ElementTable, error) {
	c.mu.Lock()
	t, ok := c.tables[name]
	c.mu.Unlock()
	if ok {
		return t, nil
	}

	v, err, _ := c.group.Do("table:"+name, func() (any, error) {
		c.mu.Lock()
		t, ok := c.tables[name]
		c.mu.Unlock()
		if ok {
			return t, nil
		}
		full, found := c.FullPath(name)
		if !found {
			return nil, fmt.Errorf("element table %s: %w", name, codes.ErrFileNotFound)
		}
		t, err := c.parser.ParseElementTable(full)
		if err != nil {
			return nil, fmt.Errorf("parse element table %s: %w", full, err)
		}
		c.mu.Lock()
		c.tables[name] = t
		c.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ElementTable), nil
}

// Close drops every cache. Handles created earlier keep working with the
// actions they already hold.
func (c *Context) Close() {
	c.bootMu.Lock()
	c.boot = nil
	c.bootMu.Unlock()

	c.mu.Lock()
	clear(c.paths)
	clear(c.concepts)
	clear(c.tables)
	c.mu.Unlock()
}
