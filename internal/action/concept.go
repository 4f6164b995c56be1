package action

import (
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/vk/gribdef/internal/codes"
	"github.com/vk/gribdef/internal/grib"
)

// ConceptFiles locates the concept tables of a concept statement. MasterDir
// and LocalDir name keys whose values are directories, possibly with [key]
// patterns. File is a key name or, when no such key exists, a literal file
// name.
type ConceptFiles struct {
	File      string
	MasterDir string
	LocalDir  string
}

// Concept creates a concept accessor and serves its values.
type Concept struct {
	header
	files      ConceptFiles
	values     []*grib.ConceptValue
	nofail     bool
	defaultKey string
}

// NewConcept creates a concept statement. Inline values, when given, are
// used instead of files.
func NewConcept(name string, files ConceptFiles, values []*grib.ConceptValue, nofail bool, defaultKey string, opts ...Option) *Concept {
	c := &Concept{
		header:     newHeader(name, "concept", opts),
		files:      files,
		values:     values,
		nofail:     nofail,
		defaultKey: defaultKey,
	}
	if defaultKey != "" && c.defaultValue == nil {
		c.defaultValue = grib.Arguments{grib.String(defaultKey)}
	}
	return c
}

func (c *Concept) NoFail() bool { return c.nofail }
func (c *Concept) DefaultKey() string { return c.defaultKey }

// Concept returns the concept's values: inline ones, or the local table
// followed by the master table, loaded once per context.
func (c *Concept) Concept(h *grib.Handle) ([]*grib.ConceptValue, error) {
	if c.values != nil {
		return c.values, nil
	}
	file := c.files.File
	if file == "" {
		file = c.name + ".hcl"
	} else if h.Has(file) {
		v, err := h.GetString(file)
		if err != nil {
			return nil, fmt.Errorf("concept %s file name: %w", c.name, err)
		}
		file = v
	}

	master, err := conceptPath(h, c.files.MasterDir, file)
	if err != nil {
		return nil, fmt.Errorf("concept %s: %w", c.name, err)
	}
	var local string
	if c.files.LocalDir != "" && h.Has(c.files.LocalDir) {
		if local, err = conceptPath(h, c.files.LocalDir, file); err != nil {
			return nil, fmt.Errorf("concept %s: %w", c.name, err)
		}
	}
	return h.Context.Concepts(master, local)
}

func conceptPath(h *grib.Handle, dirKey, file string) (string, error) {
	if dirKey == "" {
		return file, nil
	}
	pattern, err := h.GetString(dirKey)
	if err != nil {
		return "", err
	}
	dir, err := grib.RecomposeName(h, pattern)
	if err != nil {
		return "", err
	}
	return path.Join(dir, file), nil
}

func (c *Concept) CreateAccessor(s *grib.Section, l grib.Loader) error {
	a, err := grib.CreateAccessor(s, c, 0, nil)
	if err != nil {
		return err
	}
	s.Push(a)
	if l != nil {
		err := l.InitAccessor(a, c.defaultValue)
		if errors.Is(err, codes.ErrConceptNoMatch) {
			s.Handle.Logger().Debug("Concept default has no entry", "concept", c.name, "default", c.defaultKey)
			err = nil
		}
		if err != nil {
			return fmt.Errorf("default of concept %s: %w", c.name, err)
		}
	}
	return nil
}

func (c *Concept) Dump(w io.Writer, level int) {
	indent(w, level)
	fmt.Fprintf(w, "concept %s", c.name)
	if c.values != nil {
		fmt.Fprintf(w, " (%d values)\n", len(c.values))
		return
	}
	fmt.Fprintf(w, " (%s in %s)\n", c.files.File, c.files.MasterDir)
}
