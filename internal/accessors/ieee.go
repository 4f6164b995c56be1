package accessors

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/vk/gribdef/internal/codes"
	"github.com/vk/gribdef/internal/grib"
)

func init() {
	grib.Register("ieeefloat", func() grib.Accessor { return &IEEE{width: 4} })
	grib.Register("ieeedouble", func() grib.Accessor { return &IEEE{width: 8} })
}

// IEEE holds count big-endian IEEE 754 numbers of 4 or 8 bytes.
type IEEE struct {
	grib.Base
	width uint64
	count int
}

func (a *IEEE) Init(length int64, args grib.Arguments) error {
	if length > 0 && uint64(length) != a.width {
		return fmt.Errorf("%s: %s is %d bytes wide, not %d: %w", a.Name, a.Class, a.width, length, codes.ErrInvalidArgument)
	}
	n, err := countArgument(a.Handle(), args, 0)
	if err != nil {
		return fmt.Errorf("%s: count: %w", a.Name, err)
	}
	a.count = n
	a.Length = a.width * uint64(n)
	return nil
}

func (a *IEEE) NativeType() grib.NativeType { return grib.TypeDouble }
func (a *IEEE) ValueCount() (int, error) { return a.count, nil }
func (a *IEEE) Clone(s *grib.Section) (grib.Accessor, error) { return grib.CloneOf(a, s) }

func (a *IEEE) UnpackDouble(dst []float64) (int, error) {
	if len(dst) < a.count {
		return 0, codes.ArrayTooSmall(a.count)
	}
	raw := a.Raw()
	if uint64(len(raw)) != a.Length {
		return 0, fmt.Errorf("%s: %w", a.Name, codes.ErrDecoding)
	}
	for i := 0; i < a.count; i++ {
		p := raw[uint64(i)*a.width:]
		if a.width == 4 {
			dst[i] = float64(math.Float32frombits(binary.BigEndian.Uint32(p)))
		} else {
			dst[i] = math.Float64frombits(binary.BigEndian.Uint64(p))
		}
	}
	return a.count, nil
}

func (a *IEEE) PackDouble(v []float64) error {
	if len(v) != a.count {
		return fmt.Errorf("%s: %d values for %d slots: %w", a.Name, len(v), a.count, codes.ErrCountMismatch)
	}
	buf := make([]byte, a.Length)
	for i, x := range v {
		p := buf[uint64(i)*a.width:]
		if a.width == 4 {
			if !math.IsInf(x, 0) && math.Abs(x) > math.MaxFloat32 {
				return fmt.Errorf("%s: %g overflows a float: %w", a.Name, x, codes.ErrOutOfRange)
			}
			binary.BigEndian.PutUint32(p, math.Float32bits(float32(x)))
		} else {
			binary.BigEndian.PutUint64(p, math.Float64bits(x))
		}
	}
	return a.ReplaceBytes(buf)
}

func (a *IEEE) IsMissing() bool { return false }
