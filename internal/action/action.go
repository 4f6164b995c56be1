// Package action implements the statements of the definition language.
// Each statement is a grib.Action: executing it against a section creates
// accessors (Gen, Section, List, Concept), removes one (Remove) or picks a
// branch (Switch).
package action

import (
	"fmt"
	"io"
	"strings"

	"github.com/vk/gribdef/internal/grib"
)

// header is the part every action shares.
type header struct {
	name         string
	op           string
	nameSpace    string
	flags        grib.Flags
	defaultValue grib.Arguments
}

func (h *header) Name() string { return h.name }
func (h *header) Op() string { return h.op }
func (h *header) NameSpace() string { return h.nameSpace }
func (h *header) Flags() grib.Flags { return h.flags }
func (h *header) DefaultValue() grib.Arguments { return h.defaultValue }

// NotifyChange re-packs the observer from its default value expression.
func (h *header) NotifyChange(observer, _ grib.Accessor) error {
	e := h.defaultValue.Expression(0)
	if e == nil {
		return nil
	}
	return observer.PackExpression(e)
}

// Execute runs a program against s in order, stopping at the first error.
func Execute(program []grib.Action, s *grib.Section, l grib.Loader) error {
	for _, act := range program {
		if err := act.CreateAccessor(s, l); err != nil {
			return err
		}
	}
	return nil
}

// DumpProgram writes the program's statements, one per line.
func DumpProgram(w io.Writer, program []grib.Action, level int) {
	for _, act := range program {
		act.Dump(w, level)
	}
}

func indent(w io.Writer, level int) {
	fmt.Fprint(w, strings.Repeat("     ", level))
}

// Option configures an action.
type Option func(*header)

// WithNameSpace puts the created key in a namespace.
func WithNameSpace(ns string) Option {
	return func(h *header) { h.nameSpace = ns }
}

// WithFlags sets the flags of the created key.
func WithFlags(f grib.Flags) Option {
	return func(h *header) { h.flags |= f }
}

// WithDefault sets the default value expression.
func WithDefault(e grib.Expression) Option {
	return func(h *header) { h.defaultValue = grib.Arguments{e} }
}

func newHeader(name, op string, opts []Option) header {
	h := header{name: name, op: op}
	for _, opt := range opts {
		opt(&h)
	}
	return h
}
