package accessors

import (
	"fmt"
	"math"

	"github.com/vk/gribdef/internal/codes"
	"github.com/vk/gribdef/internal/grib"
)

func init() {
	grib.Register("statistics", func() grib.Accessor { return &Statistics{} })
}

// Slots of the statistics vector, in unpack order.
const (
	StatMax = iota
	StatMin
	StatMean
	StatMissingCount
	StatStdDev
	StatSkewness
	StatKurtosis
	StatIsConstant

	statCount
)

// Statistics summarises the values of another key: max, min, mean, number
// of missing points, standard deviation, skewness, kurtosis and whether the
// field is constant. Points equal to the missing value are left out. The
// vector is computed on first read and kept until a watched key changes.
type Statistics struct {
	grib.Base
	missingValue string
	values       string
	present      string

	cached bool
	stats  [statCount]float64
}

func (a *Statistics) Init(_ int64, args grib.Arguments) error {
	a.missingValue = args.GetName(0)
	a.values = args.GetName(1)
	a.present = args.GetName(2)
	if a.present == "" {
		a.present = "missingValuesPresent"
	}
	if a.values == "" {
		return fmt.Errorf("%s: values key required: %w", a.Name, codes.ErrInvalidArgument)
	}
	a.Flags |= grib.FlagReadOnly | grib.FlagFunction | grib.FlagHidden
	a.Length = 0
	return nil
}

// PostInit watches the keys the vector is computed from.
func (a *Statistics) PostInit() error {
	h := a.Handle()
	h.Observe(a, a.values)
	h.Observe(a, a.missingValue)
	return nil
}

func (a *Statistics) NativeType() grib.NativeType { return grib.TypeDouble }
func (a *Statistics) ValueCount() (int, error) { return statCount, nil }
func (a *Statistics) Clone(s *grib.Section) (grib.Accessor, error) { return grib.CloneOf(a, s) }

// Invalidate drops the computed vector.
func (a *Statistics) Invalidate() { a.cached = false }

func (a *Statistics) UnpackDouble(dst []float64) (int, error) {
	if len(dst) < statCount {
		return 0, codes.ArrayTooSmall(statCount)
	}
	if !a.cached {
		if err := a.compute(); err != nil {
			return 0, err
		}
	}
	copy(dst, a.stats[:])
	return statCount, nil
}

func (a *Statistics) UnpackLong(dst []int64) (int, error) {
	if len(dst) < statCount {
		return 0, codes.ArrayTooSmall(statCount)
	}
	var v [statCount]float64
	if _, err := a.UnpackDouble(v[:]); err != nil {
		return 0, err
	}
	for i, x := range v {
		dst[i] = int64(x)
	}
	return statCount, nil
}

func (a *Statistics) compute() error {
	h := a.Handle()
	missing := grib.MissingDouble
	if a.missingValue != "" {
		v, err := h.GetDouble(a.missingValue)
		if err != nil {
			return err
		}
		missing = v
	}
	values, err := h.GetDoubleArray(a.values)
	if err != nil {
		return err
	}

	// Without the presence key, assume missing points may occur.
	present := true
	if p, err := h.GetLong(a.present); err == nil {
		present = p != 0
	}
	a.stats = summarise(values, missing, present)
	a.cached = true
	return nil
}

// summarise computes the statistics vector. When no point is usable max,
// min and mean are the missing value and the moments are zero.
func summarise(values []float64, missing float64, present bool) [statCount]float64 {
	var out [statCount]float64
	skip := func(v float64) bool { return present && v == missing }

	var n, nmissing int
	var sum float64
	out[StatMax], out[StatMin] = -math.MaxFloat64, math.MaxFloat64
	for _, v := range values {
		if skip(v) {
			nmissing++
			continue
		}
		n++
		sum += v
		out[StatMax] = max(out[StatMax], v)
		out[StatMin] = min(out[StatMin], v)
	}
	out[StatMissingCount] = float64(nmissing)

	if n == 0 {
		out[StatMax], out[StatMin], out[StatMean] = missing, missing, missing
		out[StatIsConstant] = 1
		return out
	}
	mean := sum / float64(n)
	out[StatMean] = mean

	var m2, m3, m4 float64
	for _, v := range values {
		if skip(v) {
			continue
		}
		d := v - mean
		m2 += d * d
		m3 += d * d * d
		m4 += d * d * d * d
	}
	m2 /= float64(n)
	m3 /= float64(n)
	m4 /= float64(n)
	sd := math.Sqrt(m2)
	out[StatStdDev] = sd
	if sd != 0 {
		out[StatSkewness] = m3 / (sd * sd * sd)
		out[StatKurtosis] = m4/(m2*m2) - 3
	} else {
		out[StatIsConstant] = 1
	}
	return out
}

func (a *Statistics) Compare(other grib.Accessor) error {
	x, err := grib.UnpackDoubleValues(a)
	if err != nil {
		return err
	}
	y, err := grib.UnpackDoubleValues(other)
	if err != nil {
		return err
	}
	if len(x) != len(y) {
		return fmt.Errorf("%s: %d values against %d: %w", a.Name, len(x), len(y), codes.ErrCountMismatch)
	}
	for i := range x {
		if x[i] != y[i] {
			return fmt.Errorf("%s[%d]: %g != %g: %w", a.Name, i, x[i], y[i], codes.ErrDoubleValueMismatch)
		}
	}
	return nil
}

func (a *Statistics) Dump(d grib.Dumper) { d.DumpValues(a) }
