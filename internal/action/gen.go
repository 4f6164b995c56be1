package action

import (
	"fmt"
	"io"
	"strings"

	"github.com/vk/gribdef/internal/grib"
)

// Alias is an extra name for a key, optionally namespaced.
type Alias struct {
	Name      string
	NameSpace string
}

// ParseAlias splits "ns.name" into an Alias.
func ParseAlias(s string) Alias {
	if ns, name, ok := strings.Cut(s, "."); ok {
		return Alias{Name: name, NameSpace: ns}
	}
	return Alias{Name: s}
}

// Gen creates one accessor of a class, with its attributes and aliases.
type Gen struct {
	header
	length     int64
	args       grib.Arguments
	aliases    []Alias
	attributes []*Gen
}

// NewGen creates a key statement. op is the accessor class.
func NewGen(name, class string, length int64, args grib.Arguments, opts ...Option) *Gen {
	return &Gen{header: newHeader(name, class, opts), length: length, args: args}
}

// AddAlias registers an extra name the key is also found under.
func (g *Gen) AddAlias(a Alias) { g.aliases = append(g.aliases, a) }

// AddAttribute adds a child attribute created along with the key.
func (g *Gen) AddAttribute(attr *Gen) { g.attributes = append(g.attributes, attr) }

// Length is the byte length handed to the accessor's Init.
func (g *Gen) Length() int64 { return g.length }

// Args returns the statement's arguments.
func (g *Gen) Args() grib.Arguments { return g.args }

func (g *Gen) CreateAccessor(s *grib.Section, l grib.Loader) error {
	a, err := grib.CreateAccessor(s, g, g.length, g.args)
	if err != nil {
		return err
	}
	if err := g.createAttributes(a, l); err != nil {
		a.Destroy()
		return err
	}
	for _, al := range g.aliases {
		a.Core().Alias(al.Name, al.NameSpace)
	}
	s.Push(a)

	if g.flags.Has(grib.FlagConstraint) {
		s.Handle.ObserveArguments(a, g.defaultValue)
	}
	if l != nil {
		if err := l.InitAccessor(a, g.defaultValue); err != nil {
			return fmt.Errorf("default of %s: %w", g.name, err)
		}
	}
	return nil
}

func (g *Gen) createAttributes(owner grib.Accessor, l grib.Loader) error {
	for _, attr := range g.attributes {
		a, err := grib.CreateAttribute(owner, attr, attr.length, attr.args)
		if err != nil {
			return err
		}
		if err := attr.createAttributes(a, l); err != nil {
			return err
		}
		if l != nil {
			if err := l.InitAccessor(a, attr.defaultValue); err != nil {
				return fmt.Errorf("default of %s->%s: %w", g.name, attr.name, err)
			}
		}
	}
	return nil
}

func (g *Gen) Dump(w io.Writer, level int) {
	indent(w, level)
	if g.length > 0 {
		fmt.Fprintf(w, "%s[%d] %s", g.op, g.length, g.name)
	} else {
		fmt.Fprintf(w, "%s %s", g.op, g.name)
	}
	if len(g.args) > 0 {
		parts := make([]string, len(g.args))
		for i, e := range g.args {
			parts[i] = e.String()
		}
		fmt.Fprintf(w, "(%s)", strings.Join(parts, ","))
	}
	if e := g.defaultValue.Expression(0); e != nil {
		fmt.Fprintf(w, " = %s", e)
	}
	if g.flags != 0 {
		fmt.Fprintf(w, " : %s", g.flags)
	}
	fmt.Fprintln(w)
	for _, attr := range g.attributes {
		attr.Dump(w, level+1)
	}
}
