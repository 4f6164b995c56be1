package accessors

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vk/gribdef/internal/codes"
	"github.com/vk/gribdef/internal/grib"
)

func init() {
	grib.Register("variable", func() grib.Accessor { return &Variable{} })
	grib.Register("transient", func() grib.Accessor { return &Variable{transient: true} })
	grib.Register("constant", func() grib.Accessor { return &Variable{constant: true} })
}

// Variable keeps its value in memory rather than in the message. Its type
// follows the initial value and later packs. A constant is a read-only
// variable.
type Variable struct {
	grib.Base
	typ       grib.NativeType
	long      int64
	double    float64
	str       string
	transient bool
	constant  bool
}

func (a *Variable) Init(length int64, args grib.Arguments) error {
	a.Length = 0
	if a.transient {
		a.Flags |= grib.FlagTransient
	}
	if a.constant {
		a.Flags |= grib.FlagReadOnly
	}
	a.typ = grib.TypeLong

	e := args.Expression(0)
	if e == nil && a.Creator != nil {
		e = a.Creator.DefaultValue().Expression(0)
	}
	if e == nil {
		return nil
	}
	h := a.Handle()
	switch e.NativeType(h) {
	case grib.TypeString:
		s, err := e.EvaluateString(h)
		if err != nil {
			return fmt.Errorf("%s: %w", a.Name, err)
		}
		a.setString(s)
	case grib.TypeDouble:
		d, err := e.EvaluateDouble(h)
		if err != nil {
			return fmt.Errorf("%s: %w", a.Name, err)
		}
		a.setDouble(d)
	default:
		l, err := e.EvaluateLong(h)
		if err != nil {
			return fmt.Errorf("%s: %w", a.Name, err)
		}
		a.setLong(l)
	}
	return nil
}

func (a *Variable) setLong(v int64) {
	a.typ, a.long, a.double, a.str = grib.TypeLong, v, float64(v), strconv.FormatInt(v, 10)
}

func (a *Variable) setDouble(v float64) {
	a.typ, a.long, a.double, a.str = grib.TypeDouble, int64(v), v, grib.FormatDouble(v)
}

func (a *Variable) setString(v string) {
	a.typ, a.str = grib.TypeString, v
	if l, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
		a.long, a.double = l, float64(l)
	} else if d, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
		a.long, a.double = int64(d), d
	}
}

func (a *Variable) NativeType() grib.NativeType { return a.typ }
func (a *Variable) StringLength() int { return len(a.str) }
func (a *Variable) Clone(s *grib.Section) (grib.Accessor, error) { return grib.CloneOf(a, s) }

func (a *Variable) UnpackLong(dst []int64) (int, error) {
	if len(dst) < 1 {
		return 0, codes.ArrayTooSmall(1)
	}
	if a.typ == grib.TypeString {
		if _, err := strconv.ParseInt(strings.TrimSpace(a.str), 10, 64); err != nil {
			return 0, fmt.Errorf("%s: %q as long: %w", a.Name, a.str, codes.ErrWrongConversion)
		}
	}
	dst[0] = a.long
	return 1, nil
}

func (a *Variable) UnpackDouble(dst []float64) (int, error) {
	if len(dst) < 1 {
		return 0, codes.ArrayTooSmall(1)
	}
	dst[0] = a.double
	return 1, nil
}

func (a *Variable) UnpackString(dst []byte) (int, error) {
	return grib.CopyString(dst, a.str)
}

func (a *Variable) PackLong(v []int64) error {
	if len(v) != 1 {
		return fmt.Errorf("%s: %d values: %w", a.Name, len(v), codes.ErrCountMismatch)
	}
	a.setLong(v[0])
	return nil
}

func (a *Variable) PackDouble(v []float64) error {
	if len(v) != 1 {
		return fmt.Errorf("%s: %d values: %w", a.Name, len(v), codes.ErrCountMismatch)
	}
	a.setDouble(v[0])
	return nil
}

func (a *Variable) PackString(s string) error {
	a.setString(s)
	return nil
}

func (a *Variable) IsMissing() bool {
	switch a.typ {
	case grib.TypeLong:
		return a.long == grib.MissingLong
	case grib.TypeDouble:
		return a.double == grib.MissingDouble
	}
	return false
}

func (a *Variable) Compare(other grib.Accessor) error {
	o, ok := other.(*Variable)
	if !ok {
		return a.Base.Compare(other)
	}
	if a.typ != o.typ {
		return fmt.Errorf("%s: %s against %s: %w", a.Name, a.typ, o.typ, codes.ErrValueMismatch)
	}
	switch {
	case a.typ == grib.TypeDouble && a.double != o.double:
		return fmt.Errorf("%s: %g != %g: %w", a.Name, a.double, o.double, codes.ErrDoubleValueMismatch)
	case a.typ != grib.TypeDouble && a.str != o.str:
		return fmt.Errorf("%s: %q != %q: %w", a.Name, a.str, o.str, codes.ErrValueMismatch)
	}
	return nil
}
