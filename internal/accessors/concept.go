package accessors

import (
	"fmt"
	"strconv"

	"github.com/vk/gribdef/internal/codes"
	"github.com/vk/gribdef/internal/grib"
)

func init() {
	grib.Register("concept", func() grib.Accessor { return &Concept{} })
}

// unknownConcept is what a nofail concept reads as when nothing matches.
const unknownConcept = "unknown"

// Concept is a named view over several raw keys. Reading it picks the
// concept value whose conditions match best; writing a name sets every key
// its conditions mention. The values come from the creating action, which
// must be a grib.ConceptSource.
type Concept struct {
	grib.Base
}

func (a *Concept) Init(_ int64, _ grib.Arguments) error {
	if _, ok := a.Creator.(grib.ConceptSource); !ok {
		return fmt.Errorf("%s: concept created by %T: %w", a.Name, a.Creator, codes.ErrInternal)
	}
	a.Length = 0
	return nil
}

func (a *Concept) source() grib.ConceptSource { return a.Creator.(grib.ConceptSource) }

func (a *Concept) NativeType() grib.NativeType {
	if a.Flags.Has(grib.FlagLongType) {
		return grib.TypeLong
	}
	return grib.TypeString
}

func (a *Concept) Clone(s *grib.Section) (grib.Accessor, error) { return grib.CloneOf(a, s) }

func (a *Concept) current() (string, error) {
	h := a.Handle()
	values, err := a.source().Concept(h)
	if err != nil {
		return "", err
	}
	if best, ok := grib.BestConcept(h, values); ok {
		return best.Name, nil
	}
	if a.source().NoFail() {
		return unknownConcept, nil
	}
	return "", fmt.Errorf("%s: %w", a.Name, codes.ErrConceptNoMatch)
}

func (a *Concept) StringLength() int {
	values, err := a.source().Concept(a.Handle())
	if err != nil {
		return len(unknownConcept)
	}
	n := len(unknownConcept)
	for _, v := range values {
		n = max(n, len(v.Name))
	}
	return n
}

func (a *Concept) UnpackString(dst []byte) (int, error) {
	name, err := a.current()
	if err != nil {
		return 0, err
	}
	return grib.CopyString(dst, name)
}

func (a *Concept) UnpackLong(dst []int64) (int, error) {
	if len(dst) < 1 {
		return 0, codes.ArrayTooSmall(1)
	}
	name, err := a.current()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(name, 10, 64)
	if err != nil {
		if name == unknownConcept {
			dst[0] = grib.MissingLong
			return 1, nil
		}
		return 0, fmt.Errorf("%s: %q as long: %w", a.Name, name, codes.ErrWrongConversion)
	}
	dst[0] = v
	return 1, nil
}

func (a *Concept) UnpackDouble(dst []float64) (int, error) {
	if len(dst) < 1 {
		return 0, codes.ArrayTooSmall(1)
	}
	var v [1]int64
	if _, err := a.UnpackLong(v[:]); err != nil {
		return 0, err
	}
	dst[0] = float64(v[0])
	return 1, nil
}

// PackString sets the raw keys so that the concept reads as name.
func (a *Concept) PackString(name string) error {
	h := a.Handle()
	values, err := a.source().Concept(h)
	if err != nil {
		return err
	}
	v := grib.FindConcept(values, name)
	if v == nil {
		return fmt.Errorf("%s: no concept value %q: %w", a.Name, name, codes.ErrConceptNoMatch)
	}
	for _, c := range v.Conditions {
		if err := setCondition(h, c); err != nil {
			return fmt.Errorf("%s=%s: %w", a.Name, name, err)
		}
	}
	return nil
}

func setCondition(h *grib.Handle, c grib.ConceptCondition) error {
	switch c.Value.NativeType(h) {
	case grib.TypeLong:
		v, err := c.Value.EvaluateLong(h)
		if err != nil {
			return err
		}
		return h.SetLongInternal(c.Name, v)
	case grib.TypeDouble:
		v, err := c.Value.EvaluateDouble(h)
		if err != nil {
			return err
		}
		return h.SetDoubleInternal(c.Name, v)
	default:
		v, err := c.Value.EvaluateString(h)
		if err != nil {
			return err
		}
		return h.SetStringInternal(c.Name, v)
	}
}

func (a *Concept) PackLong(v []int64) error {
	if len(v) != 1 {
		return fmt.Errorf("%s: %d values: %w", a.Name, len(v), codes.ErrCountMismatch)
	}
	return a.PackString(strconv.FormatInt(v[0], 10))
}

func (a *Concept) IsMissing() bool {
	name, err := a.current()
	return err != nil || name == unknownConcept
}

func (a *Concept) Compare(other grib.Accessor) error {
	x, err := grib.UnpackStringValue(a)
	if err != nil {
		return err
	}
	y, err := grib.UnpackStringValue(other)
	if err != nil {
		return err
	}
	if x != y {
		return fmt.Errorf("%s: %q != %q: %w", a.Name, x, y, codes.ErrValueMismatch)
	}
	return nil
}

func (a *Concept) Dump(d grib.Dumper) {
	if a.NativeType() == grib.TypeLong {
		d.DumpLong(a, "")
		return
	}
	d.DumpString(a, "")
}
