// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package accessors

import (
	"fmt"
	"math"

	"github.com/vk/gribdef/internal/codes"
	"github.com/vk/gribdef/internal/grib"
)

func init() {
	grib.Register("data_g2simple_packing", func() grib.Accessor { return &SimplePacking{} })
}

// defaultBitsPerValue is used when a non-constant field is packed while the
// message says zero bits per value.
const defaultBitsPerValue = 16

// SimplePacking holds GRIB2 simple packed data values. Each value is an
// unsigned integer X of bitsPerValue bits and decodes as
//
//	Y = (R + X * 2^E) / 10^D
//
// with R the reference value, E the binary and D the decimal scale factor,
// all read from the keys named in the arguments.
type SimplePacking struct {
	grib.Base
	numberOfValues     string
	referenceValue     string
	binaryScaleFactor  string
	decimalScaleFactor string
	bitsPerValue       string
}

func (a *SimplePacking) Init(_ int64, args grib.Arguments) error {
	a.numberOfValues = args.GetName(0)
	a.referenceValue = args.GetName(1)
	a.binaryScaleFactor = args.GetName(2)
	a.decimalScaleFactor = args.GetName(3)
	a.bitsPerValue = args.GetName(4)
	if a.bitsPerValue == "" {
		return fmt.Errorf("%s: expected 5 key arguments, got %d: %w", a.Name, len(args), codes.ErrInvalidArgument)
	}

	p, err := a.params()
	if err != nil {
		return fmt.Errorf("%s: %w", a.Name, err)
	}
	a.Length = packedLength(p.n, p.bits)
	return nil
}

func packedLength(n int64, bits int64) uint64 {
	return uint64((n*bits + 7) / 8)
}

func (a *SimplePacking) NativeType() grib.NativeType { return grib.TypeDouble }
func (a *SimplePacking) Clone(s *grib.Section) (grib.Accessor, error) { return grib.CloneOf(a, s) }

func (a *SimplePacking) ValueCount() (int, error) {
	n, err := a.Handle().GetLong(a.numberOfValues)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

type packingParams struct {
	n, bits, e, d int64
	r             float64
}

func (a *SimplePacking) params() (packingParams, error) {
	h := a.Handle()
	var p packingParams
	var err error
	if p.n, err = h.GetLong(a.numberOfValues); err != nil {
		return p, err
	}
	if p.r, err = h.GetDouble(a.referenceValue); err != nil {
		return p, err
	}
	if p.e, err = h.GetLong(a.binaryScaleFactor); err != nil {
		return p, err
	}
	if p.d, err = h.GetLong(a.decimalScaleFactor); err != nil {
		return p, err
	}
	if p.bits, err = h.GetLong(a.bitsPerValue); err != nil {
		return p, err
	}
	if p.n < 0 || p.bits < 0 || p.bits > 64 {
		return p, fmt.Errorf("%d values of %d bits: %w", p.n, p.bits, codes.ErrDecoding)
	}
	return p, nil
}

func (a *SimplePacking) UnpackDouble(dst []float64) (int, error) {
	p, err := a.params()
	if err != nil {
		return 0, err
	}
	n := int(p.n)
	if len(dst) < n {
		return 0, codes.ArrayTooSmall(n)
	}
	if need := packedLength(p.n, p.bits); need > a.Length {
		return 0, fmt.Errorf("%s: %d values of %d bits need %d bytes, have %d: %w",
			a.Name, n, p.bits, need, a.Length, codes.ErrDecoding)
	}

	binary := math.Ldexp(1, int(p.e))
	decimal := math.Pow10(-int(p.d))
	raw := a.Raw()
	for i := 0; i < n; i++ {
		x, err := grib.DecodeUnsigned(raw, uint64(i)*uint64(p.bits), uint(p.bits))
		if err != nil {
			return 0, fmt.Errorf("%s: %w", a.Name, err)
		}
		dst[i] = (p.r + float64(x)*binary) * decimal
	}
	return n, nil
}

// PackDouble encodes v with the current decimal scale factor and bit
// width, choosing the reference value and binary scale factor. A constant
// field is stored with zero bits per value.
func (a *SimplePacking) PackDouble(v []float64) error {
	p, err := a.params()
	if err != nil {
		return err
	}
	h := a.Handle()
	if len(v) == 0 {
		return fmt.Errorf("%s: no values: %w", a.Name, codes.ErrInvalidArgument)
	}

	d := math.Pow10(int(p.d))
	lo, hi := v[0], v[0]
	for _, x := range v[1:] {
		lo, hi = min(lo, x), max(hi, x)
	}

	bits := p.bits
	var e int64
	var data []byte
	ref := referenceBelow(lo * d)
	if hi == lo {
		bits = 0
	} else {
		if bits == 0 {
			bits = defaultBitsPerValue
		}
		maxX := float64(grib.Ones(uint(bits)))
		e = int64(math.Ceil(math.Log2((hi*d - ref) / maxX)))
		scale := math.Ldexp(1, -int(e))

		data = make([]byte, packedLength(int64(len(v)), bits))
		for i, x := range v {
			q := math.Round((x*d - ref) * scale)
			q = min(max(q, 0), maxX)
			if err := grib.EncodeUnsigned(data, uint64(i)*uint64(bits), uint(bits), uint64(q)); err != nil {
				return fmt.Errorf("%s: %w", a.Name, err)
			}
		}
	}

	if err := h.SetLongInternal(a.numberOfValues, int64(len(v))); err != nil {
		return err
	}
	if err := h.SetDoubleInternal(a.referenceValue, ref); err != nil {
		return err
	}
	if err := h.SetLongInternal(a.binaryScaleFactor, e); err != nil {
		return err
	}
	if err := h.SetLongInternal(a.bitsPerValue, bits); err != nil {
		return err
	}
	return a.ReplaceBytes(data)
}

// referenceBelow rounds v to the nearest float32 not above it, the format
// the reference value is stored in.
func referenceBelow(v float64) float64 {
	r := float32(v)
	if float64(r) > v {
		r = math.Nextafter32(r, float32(math.Inf(-1)))
	}
	return float64(r)
}

func (a *SimplePacking) PackLong(v []int64) error {
	d := make([]float64, len(v))
	for i, x := range v {
		d[i] = float64(x)
	}
	return a.PackDouble(d)
}

// PackBytes replaces the packed data as is. The metadata keys are left
// alone, so the caller must keep them consistent.
func (a *SimplePacking) PackBytes(b []byte) error {
	return a.ReplaceBytes(b)
}

func (a *SimplePacking) IsMissing() bool { return false }

func (a *SimplePacking) Dump(d grib.Dumper) { d.DumpValues(a) }
