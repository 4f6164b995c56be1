package accessors

import (
	"fmt"
	"math"

	"github.com/vk/gribdef/internal/codes"
	"github.com/vk/gribdef/internal/grib"
)

func init() {
	grib.Register("g2level", func() grib.Accessor { return &G2Level{} })
	grib.Register("gaussian_grid_name", func() grib.Accessor { return &GaussianGridName{} })
	grib.Register("size", func() grib.Accessor { return &Size{} })
	grib.Register("bits", func() grib.Accessor { return &Bits{} })
	grib.Register("label", func() grib.Accessor { return &Label{} })
}

// Surface types whose level is stored in Pa but read in hPa.
const (
	surfaceIsobaric      = 100
	surfacePressureDelta = 108
)

// G2Level is the level of a GRIB2 fixed surface as one number, built from
// its type, scale factor and scaled value.
type G2Level struct {
	grib.Base
	typeOfSurface string
	scaleFactor   string
	scaledValue   string
	pressureUnits string
}

func (a *G2Level) Init(_ int64, args grib.Arguments) error {
	a.typeOfSurface = args.GetName(0)
	a.scaleFactor = args.GetName(1)
	a.scaledValue = args.GetName(2)
	a.pressureUnits = args.GetName(3)
	if a.scaleFactor == "" || a.scaledValue == "" {
		return fmt.Errorf("%s: scale factor and scaled value keys required: %w", a.Name, codes.ErrInvalidArgument)
	}
	a.Flags |= grib.FlagFunction
	a.Length = 0
	return nil
}

func (a *G2Level) NativeType() grib.NativeType { return grib.TypeDouble }
func (a *G2Level) Clone(s *grib.Section) (grib.Accessor, error) { return grib.CloneOf(a, s) }

// hectopascals reports whether the level must be converted between Pa and
// hPa.
func (a *G2Level) hectopascals() bool {
	h := a.Handle()
	if a.typeOfSurface == "" {
		return false
	}
	t, err := h.GetLong(a.typeOfSurface)
	if err != nil || (t != surfaceIsobaric && t != surfacePressureDelta) {
		return false
	}
	units := "hPa"
	if a.pressureUnits != "" {
		if u, err := h.GetString(a.pressureUnits); err == nil {
			units = u
		}
	}
	return units == "hPa"
}

func (a *G2Level) UnpackDouble(dst []float64) (int, error) {
	if len(dst) < 1 {
		return 0, codes.ArrayTooSmall(1)
	}
	h := a.Handle()
	scale, err := h.GetLong(a.scaleFactor)
	if err != nil {
		return 0, err
	}
	value, err := h.GetLong(a.scaledValue)
	if err != nil {
		return 0, err
	}
	switch {
	case value == grib.MissingLong:
		dst[0] = 0
		return 1, nil
	case scale == grib.MissingLong:
		dst[0] = float64(value)
	default:
		dst[0] = float64(value) / math.Pow10(int(scale))
	}
	if a.hectopascals() {
		dst[0] /= 100
	}
	return 1, nil
}

func (a *G2Level) UnpackLong(dst []int64) (int, error) {
	if len(dst) < 1 {
		return 0, codes.ArrayTooSmall(1)
	}
	var v [1]float64
	if _, err := a.UnpackDouble(v[:]); err != nil {
		return 0, err
	}
	dst[0] = int64(math.Round(v[0]))
	return 1, nil
}

// PackDouble stores v with the smallest decimal scale that keeps it exact,
// giving up after nine digits.
func (a *G2Level) PackDouble(v []float64) error {
	if len(v) != 1 {
		return fmt.Errorf("%s: %d values: %w", a.Name, len(v), codes.ErrCountMismatch)
	}
	x := v[0]
	if a.hectopascals() {
		x *= 100
	}
	var scale int64
	for scale < 9 && math.Abs(x*math.Pow10(int(scale))-math.Round(x*math.Pow10(int(scale)))) > 1e-9 {
		scale++
	}
	scaled := math.Round(x * math.Pow10(int(scale)))
	if scaled > math.MaxInt32 || scaled < math.MinInt32 {
		return fmt.Errorf("%s: %g: %w", a.Name, v[0], codes.ErrOutOfRange)
	}

	h := a.Handle()
	if err := h.SetLongInternal(a.scaleFactor, scale); err != nil {
		return err
	}
	return h.SetLongInternal(a.scaledValue, int64(scaled))
}

func (a *G2Level) PackLong(v []int64) error {
	if len(v) != 1 {
		return fmt.Errorf("%s: %d values: %w", a.Name, len(v), codes.ErrCountMismatch)
	}
	return a.PackDouble([]float64{float64(v[0])})
}

func (a *G2Level) IsMissing() bool {
	h := a.Handle()
	s, _ := h.IsMissing(a.scaleFactor)
	v, _ := h.IsMissing(a.scaledValue)
	return s && v
}

// GaussianGridName names a Gaussian grid: F for regular, N for reduced and
// O for octahedral, followed by the number of parallels between a pole and
// the equator.
type GaussianGridName struct {
	grib.Base
	n            string
	ni           string
	isOctahedral string
}

func (a *GaussianGridName) Init(_ int64, args grib.Arguments) error {
	a.n = args.GetName(0)
	a.ni = args.GetName(1)
	a.isOctahedral = args.GetName(2)
	a.Length = 0
	a.Flags |= grib.FlagReadOnly | grib.FlagEditionSpecific
	return nil
}

func (a *GaussianGridName) NativeType() grib.NativeType { return grib.TypeString }
func (a *GaussianGridName) StringLength() int { return 16 }
func (a *GaussianGridName) Clone(s *grib.Section) (grib.Accessor, error) { return grib.CloneOf(a, s) }

func (a *GaussianGridName) UnpackString(dst []byte) (int, error) {
	h := a.Handle()
	n, err := h.GetLong(a.n)
	if err != nil {
		return 0, err
	}

	missing, err := h.IsMissing(a.ni)
	if err != nil {
		return 0, err
	}
	name := fmt.Sprintf("F%d", n)
	if missing {
		octahedral, err := h.GetLong(a.isOctahedral)
		if err != nil {
			return 0, err
		}
		if octahedral == 1 {
			name = fmt.Sprintf("O%d", n)
		} else {
			name = fmt.Sprintf("N%d", n)
		}
	}
	return grib.CopyString(dst, name)
}

// Size is the number of values held by another key.
type Size struct {
	grib.Base
	key string
}

func (a *Size) Init(_ int64, args grib.Arguments) error {
	a.key = args.GetName(0)
	a.Length = 0
	a.Flags |= grib.FlagReadOnly | grib.FlagFunction
	return nil
}

func (a *Size) NativeType() grib.NativeType { return grib.TypeLong }
func (a *Size) Clone(s *grib.Section) (grib.Accessor, error) { return grib.CloneOf(a, s) }

func (a *Size) UnpackLong(dst []int64) (int, error) {
	if len(dst) < 1 {
		return 0, codes.ArrayTooSmall(1)
	}
	n, err := a.Handle().GetSize(a.key)
	if err != nil {
		return 0, err
	}
	dst[0] = int64(n)
	return 1, nil
}

// Bits is a bit field inside the bytes of another key: nbits bits starting
// at bit start of the referenced accessor.
type Bits struct {
	grib.Base
	key   string
	start uint64
	nbits uint
}

func (a *Bits) Init(_ int64, args grib.Arguments) error {
	h := a.Handle()
	a.key = args.GetName(0)
	start, err := args.GetLong(h, 1)
	if err != nil {
		return fmt.Errorf("%s: start: %w", a.Name, err)
	}
	nbits, err := args.GetLong(h, 2)
	if err != nil {
		return fmt.Errorf("%s: width: %w", a.Name, err)
	}
	if start < 0 || nbits <= 0 || nbits > 64 {
		return fmt.Errorf("%s: bits %d+%d: %w", a.Name, start, nbits, codes.ErrInvalidArgument)
	}
	a.start, a.nbits = uint64(start), uint(nbits)
	a.Length = 0
	return nil
}

func (a *Bits) NativeType() grib.NativeType { return grib.TypeLong }
func (a *Bits) Clone(s *grib.Section) (grib.Accessor, error) { return grib.CloneOf(a, s) }

func (a *Bits) target() (grib.Accessor, error) {
	t := a.Handle().FindAccessor(a.key)
	if t == nil {
		return nil, fmt.Errorf("%s: key %s: %w", a.Name, a.key, codes.ErrNotFound)
	}
	if a.start+uint64(a.nbits) > t.ByteCount()*8 {
		return nil, fmt.Errorf("%s: bits %d+%d outside %s: %w", a.Name, a.start, a.nbits, a.key, codes.ErrDecoding)
	}
	return t, nil
}

func (a *Bits) UnpackLong(dst []int64) (int, error) {
	if len(dst) < 1 {
		return 0, codes.ArrayTooSmall(1)
	}
	t, err := a.target()
	if err != nil {
		return 0, err
	}
	v, err := grib.DecodeUnsigned(a.Handle().Buffer.Data, t.ByteOffset()*8+a.start, a.nbits)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", a.Name, err)
	}
	dst[0] = int64(v)
	return 1, nil
}

func (a *Bits) PackLong(v []int64) error {
	if len(v) != 1 {
		return fmt.Errorf("%s: %d values: %w", a.Name, len(v), codes.ErrCountMismatch)
	}
	if v[0] < 0 {
		return fmt.Errorf("%s: negative value %d: %w", a.Name, v[0], codes.ErrOutOfRange)
	}
	t, err := a.target()
	if err != nil {
		return err
	}
	buf := make([]byte, t.ByteCount())
	if _, err := t.UnpackBytes(buf); err != nil {
		return err
	}
	if err := grib.EncodeUnsigned(buf, a.start, a.nbits, uint64(v[0])); err != nil {
		return fmt.Errorf("%s: %w", a.Name, err)
	}
	if err := t.Core().ReplaceBytes(buf); err != nil {
		return err
	}
	return a.Handle().NotifyChange(t)
}

// Label marks a position in the tree. It holds no value.
type Label struct {
	grib.Base
}

func (a *Label) Init(int64, grib.Arguments) error {
	a.Length = 0
	return nil
}

func (a *Label) NativeType() grib.NativeType { return grib.TypeLabel }
func (a *Label) ValueCount() (int, error) { return 0, nil }
func (a *Label) Clone(s *grib.Section) (grib.Accessor, error) { return grib.CloneOf(a, s) }

func (a *Label) UnpackString(dst []byte) (int, error) {
	return grib.CopyString(dst, a.Name)
}
