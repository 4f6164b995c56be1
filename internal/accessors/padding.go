package accessors

import (
	"fmt"

	"github.com/vk/gribdef/internal/codes"
	"github.com/vk/gribdef/internal/grib"
)

func init() {
	grib.Register("pad", func() grib.Accessor { return &Pad{} })
	grib.Register("padto", func() grib.Accessor { return &PadTo{} })
}

// Pad is a run of zero bytes whose size is an expression over other keys.
// The padding pass resizes it when those keys change.
type Pad struct {
	grib.Base
	expr grib.Expression
}

func (a *Pad) Init(_ int64, args grib.Arguments) error {
	a.expr = args.Expression(0)
	if a.expr == nil {
		return fmt.Errorf("%s: size expression required: %w", a.Name, codes.ErrInvalidArgument)
	}
	a.Flags |= grib.FlagReadOnly | grib.FlagHidden
	a.Length = a.PreferredSize(true)
	return nil
}

func (a *Pad) NativeType() grib.NativeType { return grib.TypeBytes }
func (a *Pad) Clone(s *grib.Section) (grib.Accessor, error) { return grib.CloneOf(a, s) }

// PreferredSize evaluates the size expression. An expression that cannot
// be evaluated yet keeps the current size.
func (a *Pad) PreferredSize(bool) uint64 {
	n, err := a.expr.EvaluateLong(a.Handle())
	if err != nil {
		return a.Length
	}
	return uint64(max(n, 0))
}

func (a *Pad) Resize(size uint64) error {
	return a.ResizeBytes(make([]byte, size))
}

func (a *Pad) IsMissing() bool { return false }

// PadTo fills the enclosing section with zero bytes up to an absolute size
// measured from the section's start.
type PadTo struct {
	Pad
}

func (a *PadTo) Init(length int64, args grib.Arguments) error {
	if err := a.Pad.Init(length, args); err != nil {
		return err
	}
	a.Length = a.PreferredSize(true)
	return nil
}

func (a *PadTo) Clone(s *grib.Section) (grib.Accessor, error) { return grib.CloneOf(a, s) }

func (a *PadTo) PreferredSize(bool) uint64 {
	n, err := a.expr.EvaluateLong(a.Handle())
	if err != nil {
		return a.Length
	}
	used := a.Offset - a.Parent.StartOffset()
	if n <= 0 || uint64(n) <= used {
		return 0
	}
	return uint64(n) - used
}
