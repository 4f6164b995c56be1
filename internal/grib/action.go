package grib

import (
	"errors"
	"io"

	"github.com/vk/gribdef/internal/codes"
)

// Action is one parsed definition statement. Executing it against a
// section creates, removes or selects accessors.
type Action interface {
	Name() string
	Op() string
	NameSpace() string
	Flags() Flags
	DefaultValue() Arguments

	CreateAccessor(s *Section, l Loader) error
	NotifyChange(observer, observed Accessor) error
	Dump(w io.Writer, level int)
}

// ConceptSource is implemented by actions that create concept accessors.
type ConceptSource interface {
	Concept(h *Handle) ([]*ConceptValue, error)
	NoFail() bool
	DefaultKey() string
}

// Loader initialises freshly created accessors when a message is built
// from scratch instead of decoded.
type Loader interface {
	InitAccessor(a Accessor, defaultValue Arguments) error
}

// DefaultLoader packs each accessor's default value, if it has one.
type DefaultLoader struct{}

func (DefaultLoader) InitAccessor(a Accessor, defaultValue Arguments) error {
	e := defaultValue.Expression(0)
	if e == nil {
		return nil
	}
	err := a.PackExpression(e)
	if errors.Is(err, codes.ErrNotImplemented) {
		return nil
	}
	return err
}
