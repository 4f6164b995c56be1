package accessors

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vk/gribdef/internal/codes"
	"github.com/vk/gribdef/internal/grib"
)

func init() {
	grib.Register("to_double", func() grib.Accessor { return &ToDouble{} })
	grib.Register("sexagesimal2decimal", func() grib.Accessor { return &Sexagesimal2Decimal{} })
}

// ToDouble reads a number out of another key's string form: length
// characters starting at start, divided by scale. It stores nothing.
type ToDouble struct {
	grib.Base
	key    string
	start  int64
	length int64
	scale  int64
}

func (a *ToDouble) Init(_ int64, args grib.Arguments) error {
	h := a.Handle()
	a.key = args.GetName(0)
	if a.key == "" {
		return fmt.Errorf("%s: missing source key: %w", a.Name, codes.ErrInvalidArgument)
	}
	a.start, _ = args.GetLong(h, 1)
	a.length, _ = args.GetLong(h, 2)
	a.scale, _ = args.GetLong(h, 3)
	if a.scale == 0 {
		a.scale = 1
	}
	if a.start < 0 || a.length < 0 {
		return fmt.Errorf("%s: substring [%d:+%d]: %w", a.Name, a.start, a.length, codes.ErrInvalidArgument)
	}
	a.Flags |= grib.FlagReadOnly
	a.Length = 0
	return nil
}

func (a *ToDouble) NativeType() grib.NativeType { return grib.TypeDouble }
func (a *ToDouble) Clone(s *grib.Section) (grib.Accessor, error) { return grib.CloneOf(a, s) }

func (a *ToDouble) ValueCount() (int, error) {
	return a.Handle().GetSize(a.key)
}

func (a *ToDouble) StringLength() int {
	if a.length > 0 {
		return int(a.length)
	}
	if src := a.Handle().FindAccessor(a.key); src != nil {
		return src.StringLength()
	}
	return 0
}

// text returns the selected substring of the source key.
func (a *ToDouble) text() (string, error) {
	s, err := a.Handle().GetString(a.key)
	if err != nil {
		return "", err
	}
	if a.start > int64(len(s)) {
		return "", fmt.Errorf("%s: start %d beyond %q: %w", a.Name, a.start, s, codes.ErrStringTooSmall)
	}
	s = s[a.start:]
	if a.length > 0 {
		if a.length > int64(len(s)) {
			return "", fmt.Errorf("%s: %d characters wanted from %q: %w", a.Name, a.length, s, codes.ErrStringTooSmall)
		}
		s = s[:a.length]
	}
	return s, nil
}

func (a *ToDouble) UnpackString(dst []byte) (int, error) {
	if need := a.StringLength(); len(dst) < need {
		return 0, codes.TooSmall(need)
	}
	s, err := a.text()
	if err != nil {
		return 0, err
	}
	return grib.CopyString(dst, s)
}

func (a *ToDouble) UnpackLong(dst []int64) (int, error) {
	if len(dst) < 1 {
		return 0, codes.ArrayTooSmall(1)
	}
	s, err := a.text()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q as long: %w", a.Name, s, codes.ErrWrongConversion)
	}
	dst[0] = v / a.scale
	return 1, nil
}

func (a *ToDouble) UnpackDouble(dst []float64) (int, error) {
	if len(dst) < 1 {
		return 0, codes.ArrayTooSmall(1)
	}
	s, err := a.text()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q as double: %w", a.Name, s, codes.ErrWrongConversion)
	}
	dst[0] = v / float64(a.scale)
	return 1, nil
}

func (a *ToDouble) Dump(d grib.Dumper) { d.DumpString(a, "") }

// Sexagesimal2Decimal reads an angle written as [-]DDDMMSS and converts it
// to decimal degrees.
type Sexagesimal2Decimal struct {
	ToDouble
}

func (a *Sexagesimal2Decimal) Clone(s *grib.Section) (grib.Accessor, error) { return grib.CloneOf(a, s) }

func (a *Sexagesimal2Decimal) UnpackDouble(dst []float64) (int, error) {
	if len(dst) < 1 {
		return 0, codes.ArrayTooSmall(1)
	}
	s, err := a.text()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q as angle: %w", a.Name, s, codes.ErrWrongConversion)
	}
	sign := 1.0
	if v < 0 {
		sign, v = -1, -v
	}
	deg := v / 10000
	minutes := v / 100 % 100
	seconds := v % 100
	dst[0] = sign * (float64(deg) + float64(minutes)/60 + float64(seconds)/3600)
	return 1, nil
}

func (a *Sexagesimal2Decimal) UnpackString(dst []byte) (int, error) {
	var v [1]float64
	if _, err := a.UnpackDouble(v[:]); err != nil {
		return 0, err
	}
	return grib.CopyString(dst, strconv.FormatFloat(v[0], 'f', 6, 64))
}

func (a *Sexagesimal2Decimal) StringLength() int { return 16 }

func (a *Sexagesimal2Decimal) Dump(d grib.Dumper) { d.DumpDouble(a, "") }
