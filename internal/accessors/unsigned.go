// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Fixed width big-endian integers: unsigned, signed (sign and magnitude) and
// the section_length key that records a section's size.
package accessors

import (
	"fmt"

	"github.com/vk/gribdef/internal/codes"
	"github.com/vk/gribdef/internal/grib"
)

func init() {
	grib.Register("unsigned", func() grib.Accessor { return &Unsigned{} })
	grib.Register("signed", func() grib.Accessor { return &Signed{} })
	grib.Register("section_length", func() grib.Accessor { return &SectionLength{} })
}

// countArgument evaluates an optional element count argument. Without one
// the field holds a single value.
func countArgument(h *grib.Handle, args grib.Arguments, i int) (int, error) {
	if args.Expression(i) == nil {
		return 1, nil
	}
	n, err := args.GetLong(h, i)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative element count %d: %w", n, codes.ErrDecoding)
	}
	return int(n), nil
}

// Unsigned is an array of count unsigned integers of nbytes each.
type Unsigned struct {
	grib.Base
	nbytes uint64
	count  int
}

func (a *Unsigned) Init(length int64, args grib.Arguments) error {
	if length < 0 || length > 8 {
		return fmt.Errorf("%s: width of %d bytes: %w", a.Name, length, codes.ErrInvalidArgument)
	}
	n, err := countArgument(a.Handle(), args, 0)
	if err != nil {
		return fmt.Errorf("%s: count: %w", a.Name, err)
	}
	a.nbytes = uint64(length)
	a.count = n
	a.Length = a.nbytes * uint64(n)
	return nil
}

func (a *Unsigned) NativeType() grib.NativeType { return grib.TypeLong }
func (a *Unsigned) ValueCount() (int, error) { return a.count, nil }
func (a *Unsigned) Clone(s *grib.Section) (grib.Accessor, error) { return grib.CloneOf(a, s) }

func (a *Unsigned) bits() uint { return uint(a.nbytes * 8) }

func (a *Unsigned) UnpackLong(dst []int64) (int, error) {
	if len(dst) < a.count {
		return 0, codes.ArrayTooSmall(a.count)
	}
	data := a.Handle().Buffer.Data
	missing := grib.Ones(a.bits())
	for i := 0; i < a.count; i++ {
		pos := (a.Offset + uint64(i)*a.nbytes) * 8
		v, err := grib.DecodeUnsigned(data, pos, a.bits())
		if err != nil {
			return 0, fmt.Errorf("%s: %w", a.Name, err)
		}
		if a.Flags.Has(grib.FlagCanBeMissing) && v == missing {
			dst[i] = grib.MissingLong
			continue
		}
		if v > uint64(1<<63-1) {
			return 0, fmt.Errorf("%s: %d does not fit a long: %w", a.Name, v, codes.ErrDecoding)
		}
		dst[i] = int64(v)
	}
	return a.count, nil
}

func (a *Unsigned) PackLong(v []int64) error {
	if len(v) != a.count {
		return fmt.Errorf("%s: %d values for %d slots: %w", a.Name, len(v), a.count, codes.ErrCountMismatch)
	}
	buf := make([]byte, a.Length)
	for i, x := range v {
		var u uint64
		switch {
		case x == grib.MissingLong && a.Flags.Has(grib.FlagCanBeMissing):
			u = grib.Ones(a.bits())
		case x < 0:
			return fmt.Errorf("%s: negative value %d: %w", a.Name, x, codes.ErrOutOfRange)
		default:
			u = uint64(x)
		}
		if err := grib.EncodeUnsigned(buf, uint64(i)*a.nbytes*8, a.bits(), u); err != nil {
			return fmt.Errorf("%s: %w", a.Name, err)
		}
	}
	return a.ReplaceBytes(buf)
}

func (a *Unsigned) IsMissing() bool {
	if a.count != 1 || a.nbytes == 0 {
		return false
	}
	return a.Base.IsMissing()
}

// SectionLength is the unsigned key holding the byte length of the section
// it sits in. Section size adjustment reads and rewrites it.
type SectionLength struct {
	Unsigned
}

func (a *SectionLength) Init(length int64, args grib.Arguments) error {
	if err := a.Unsigned.Init(length, nil); err != nil {
		return err
	}
	a.Flags |= grib.FlagReadOnly | grib.FlagEditionSpecific
	a.Parent.LengthAccessor = a
	return nil
}

func (a *SectionLength) ValueCount() (int, error) { return 1, nil }
func (a *SectionLength) Clone(s *grib.Section) (grib.Accessor, error) { return grib.CloneOf(a, s) }

// Signed is a sign and magnitude integer: the top bit is the sign, the
// rest the absolute value. All bits set means missing.
type Signed struct {
	grib.Base
	nbytes uint64
	count  int
}

func (a *Signed) Init(length int64, args grib.Arguments) error {
	if length <= 0 || length > 8 {
		return fmt.Errorf("%s: width of %d bytes: %w", a.Name, length, codes.ErrInvalidArgument)
	}
	n, err := countArgument(a.Handle(), args, 0)
	if err != nil {
		return fmt.Errorf("%s: count: %w", a.Name, err)
	}
	a.nbytes = uint64(length)
	a.count = n
	a.Length = a.nbytes * uint64(n)
	return nil
}

func (a *Signed) NativeType() grib.NativeType { return grib.TypeLong }
func (a *Signed) ValueCount() (int, error) { return a.count, nil }
func (a *Signed) Clone(s *grib.Section) (grib.Accessor, error) { return grib.CloneOf(a, s) }

func (a *Signed) UnpackLong(dst []int64) (int, error) {
	if len(dst) < a.count {
		return 0, codes.ArrayTooSmall(a.count)
	}
	nbits := uint(a.nbytes * 8)
	data := a.Handle().Buffer.Data
	for i := 0; i < a.count; i++ {
		pos := (a.Offset + uint64(i)*a.nbytes) * 8
		raw, err := grib.DecodeUnsigned(data, pos, nbits)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", a.Name, err)
		}
		if a.Flags.Has(grib.FlagCanBeMissing) && raw == grib.Ones(nbits) {
			dst[i] = grib.MissingLong
			continue
		}
		mag := int64(raw & grib.Ones(nbits-1))
		if raw>>(nbits-1) == 1 {
			mag = -mag
		}
		dst[i] = mag
	}
	return a.count, nil
}

func (a *Signed) PackLong(v []int64) error {
	if len(v) != a.count {
		return fmt.Errorf("%s: %d values for %d slots: %w", a.Name, len(v), a.count, codes.ErrCountMismatch)
	}
	nbits := uint(a.nbytes * 8)
	limit := grib.Ones(nbits - 1)
	buf := make([]byte, a.Length)
	for i, x := range v {
		var u uint64
		switch {
		case x == grib.MissingLong && a.Flags.Has(grib.FlagCanBeMissing):
			u = grib.Ones(nbits)
		case x < 0:
			if uint64(-x) > limit {
				return fmt.Errorf("%s: %d exceeds %d bits: %w", a.Name, x, nbits, codes.ErrOutOfRange)
			}
			u = 1<<(nbits-1) | uint64(-x)
		default:
			if uint64(x) > limit {
				return fmt.Errorf("%s: %d exceeds %d bits: %w", a.Name, x, nbits, codes.ErrOutOfRange)
			}
			u = uint64(x)
		}
		if err := grib.EncodeUnsigned(buf, uint64(i)*a.nbytes*8, nbits, u); err != nil {
			return fmt.Errorf("%s: %w", a.Name, err)
		}
	}
	return a.ReplaceBytes(buf)
}
