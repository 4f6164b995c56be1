package accessors

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/vk/gribdef/internal/codes"
	"github.com/vk/gribdef/internal/grib"
)

func init() {
	grib.Register("uint64", func() grib.Accessor { return &Uint64{} })
}

// Uint64 is an 8 byte big-endian unsigned integer exposed as a long. Values
// that do not fit a signed 64 bit long fail to decode instead of wrapping.
type Uint64 struct {
	grib.Base
}

func (a *Uint64) Init(length int64, args grib.Arguments) error {
	a.Length = 8
	return nil
}

func (a *Uint64) NativeType() grib.NativeType { return grib.TypeLong }
func (a *Uint64) Clone(s *grib.Section) (grib.Accessor, error) { return grib.CloneOf(a, s) }

func (a *Uint64) UnpackLong(dst []int64) (int, error) {
	if len(dst) < 1 {
		return 0, codes.ArrayTooSmall(1)
	}
	raw := a.Raw()
	if len(raw) != 8 {
		return 0, fmt.Errorf("%s: %w", a.Name, codes.ErrDecoding)
	}
	var result uint64
	for _, b := range raw {
		result = result<<8 | uint64(b)
	}
	if result > math.MaxInt64 {
		a.Handle().Logger().Error("Value cannot be decoded as a long", "key", a.Name, "value", result)
		return 0, fmt.Errorf("%s: %d does not fit a long: %w", a.Name, result, codes.ErrDecoding)
	}
	dst[0] = int64(result)
	return 1, nil
}

func (a *Uint64) PackLong(v []int64) error {
	if len(v) != 1 {
		return fmt.Errorf("%s: %d values: %w", a.Name, len(v), codes.ErrCountMismatch)
	}
	if v[0] < 0 {
		return fmt.Errorf("%s: negative value %d: %w", a.Name, v[0], codes.ErrOutOfRange)
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v[0]))
	return a.ReplaceBytes(buf)
}
