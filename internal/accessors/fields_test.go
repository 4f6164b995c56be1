package accessors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gribdef/internal/codes"
	"github.com/vk/gribdef/internal/grib"
	"github.com/vk/gribdef/internal/testutil"
)

func TestSigned(t *testing.T) {
	d := testutil.Boot(t, `key "s" "signed" { length = 2 }`)
	h := d.Decode(t, []byte{0x80, 0x05})

	v, err := h.GetLong("s")
	require.NoError(t, err)
	assert.Equal(t, int64(-5), v)

	require.NoError(t, h.SetLong("s", -7))
	assert.Equal(t, []byte{0x80, 0x07}, h.Message())

	err = h.SetLong("s", 40000)
	assert.ErrorIs(t, err, codes.ErrOutOfRange)
}

func TestUnsigned_CanBeMissing(t *testing.T) {
	d := testutil.Boot(t, `
key "m" "unsigned" {
  length = 1
  flags  = ["can_be_missing"]
}
key "plain" "unsigned" { length = 1 }
`)

	h := d.Decode(t, []byte{0xFF, 0x01})
	v, err := h.GetLong("m")
	require.NoError(t, err)
	assert.Equal(t, grib.MissingLong, v)
	missing, err := h.IsMissing("m")
	require.NoError(t, err)
	assert.True(t, missing)

	h = d.Decode(t, []byte{0x05, 0x01})
	require.NoError(t, h.SetMissing("m"))
	assert.Equal(t, []byte{0xFF, 0x01}, h.Message())

	assert.ErrorIs(t, h.SetMissing("plain"), codes.ErrInvalidArgument)
	assert.ErrorIs(t, h.SetLong("plain", -1), codes.ErrOutOfRange)
}

func TestUint64(t *testing.T) {
	d := testutil.Boot(t, `key "big" "uint64" {}`)

	h := d.Decode(t, []byte{0, 0, 0, 0, 0, 0, 1, 0})
	v, err := h.GetLong("big")
	require.NoError(t, err)
	assert.Equal(t, int64(256), v)

	h = d.Decode(t, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	_, err = h.GetLong("big")
	require.ErrorIs(t, err, codes.ErrDecoding)
	assert.Contains(t, d.Logs.String(), "Value cannot be decoded as a long")
}

func TestIEEEFloat(t *testing.T) {
	d := testutil.Boot(t, `key "f" "ieeefloat" { length = 4 }`)
	h := d.Decode(t, []byte{0x3F, 0xC0, 0x00, 0x00})

	v, err := h.GetDouble("f")
	require.NoError(t, err)
	assert.Equal(t, 1.5, v)

	require.NoError(t, h.SetDouble("f", -2))
	assert.Equal(t, []byte{0xC0, 0x00, 0x00, 0x00}, h.Message())

	assert.ErrorIs(t, h.SetDouble("f", 1e39), codes.ErrOutOfRange)
}

func TestBits(t *testing.T) {
	d := testutil.Boot(t, `
key "flags8" "unsigned" { length = 1 }
key "middle" "bits" { args = [flags8, 2, 3] }
`)
	h := d.Decode(t, []byte{0xB4})

	v, err := h.GetLong("middle")
	require.NoError(t, err)
	assert.Equal(t, int64(6), v)

	require.NoError(t, h.SetLong("middle", 1))
	assert.Equal(t, []byte{0x8C}, h.Message(), "only the field's bits change")

	assert.ErrorIs(t, h.SetLong("middle", 8), codes.ErrOutOfRange)
}

func TestASCII(t *testing.T) {
	d := testutil.Boot(t, `key "name" "ascii" { length = 4 }`)
	h := d.Decode(t, []byte{'a', 'b', 0, 0})

	v, err := h.GetString("name")
	require.NoError(t, err)
	assert.Equal(t, "ab", v)

	assert.ErrorIs(t, h.SetString("name", "abcde"), codes.ErrStringTooSmall)
	require.NoError(t, h.SetString("name", "wxy"))
	assert.Equal(t, []byte{'w', 'x', 'y', 0}, h.Message())
}

func TestKsec1Expver(t *testing.T) {
	d := testutil.Boot(t, `key "experimentVersionNumber" "ksec1expver" { length = 4 }`)
	h := d.Decode(t, []byte("0001"))

	s, err := h.GetString("experimentVersionNumber")
	require.NoError(t, err)
	assert.Equal(t, "0001", s)

	v, err := h.GetLong("experimentVersionNumber")
	require.NoError(t, err)
	assert.Equal(t, int64(0x30303031), v)

	require.NoError(t, h.SetLong("experimentVersionNumber", 42))
	assert.Equal(t, []byte("0042"), h.Message())

	assert.ErrorIs(t, h.SetString("experimentVersionNumber", "abc"), codes.ErrInvalidArgument)
}

func TestBytes(t *testing.T) {
	d := testutil.Boot(t, `key "raw" "bytes" { length = 2 }`)
	h := d.Decode(t, []byte{0xAB, 0x01})

	s, err := h.GetString("raw")
	require.NoError(t, err)
	assert.Equal(t, "ab01", s)

	require.NoError(t, h.SetString("raw", "ff00"))
	assert.Equal(t, []byte{0xFF, 0x00}, h.Message())

	assert.ErrorIs(t, h.SetString("raw", "zz"), codes.ErrWrongConversion)
	assert.ErrorIs(t, h.SetBytes("raw", []byte{1, 2, 3}), codes.ErrBufferTooSmall)
}

func TestMessage(t *testing.T) {
	d := testutil.Boot(t, `
key "head" "unsigned" { length = 1 }
key "body" "message" { length = 1 }
key "end" "ascii" { length = 1 }
`)
	h := d.Decode(t, []byte{1, 'a', 'b', 'c', '7'})

	body, err := h.GetBytes("body")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), body)

	end, err := h.GetString("end")
	require.NoError(t, err)
	assert.Equal(t, "7", end)

	assert.ErrorIs(t, h.SetString("body", "xyz"), codes.ErrReadOnly)
}

func TestVariable(t *testing.T) {
	d := testutil.Boot(t, `
key "v" "transient" { default = 3 }
key "c" "constant" { args = ["abc"] }
`)
	h := d.Decode(t, nil)

	v, err := h.GetLong("v")
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	require.NoError(t, h.SetString("v", "2.5"))
	f, err := h.GetDouble("v")
	require.NoError(t, err)
	assert.Equal(t, 2.5, f)
	_, err = h.GetLong("v")
	assert.ErrorIs(t, err, codes.ErrWrongConversion)

	require.NoError(t, h.SetDouble("v", 0.125))
	s, err := h.GetString("v")
	require.NoError(t, err)
	assert.Equal(t, "0.125", s)

	c, err := h.GetString("c")
	require.NoError(t, err)
	assert.Equal(t, "abc", c)
	assert.ErrorIs(t, h.SetString("c", "x"), codes.ErrReadOnly)
	assert.Empty(t, h.Message(), "variables hold nothing in the message")
}

func TestToDouble(t *testing.T) {
	d := testutil.Boot(t, `
key "dataDate" "ascii" { length = 8 }
key "year" "to_double" { args = [dataDate, 0, 4] }
key "month" "to_double" { args = [dataDate, 4, 2] }
key "hundreds" "to_double" { args = [dataDate, 0, 4, 100] }
key "tooFar" "to_double" { args = [dataDate, 6, 4] }
`)
	h := d.Decode(t, []byte("20240315"))

	for key, want := range map[string]int64{"year": 2024, "month": 3, "hundreds": 20} {
		v, err := h.GetLong(key)
		require.NoError(t, err, key)
		assert.Equal(t, want, v, key)
	}

	hundreds, err := h.GetDouble("hundreds")
	require.NoError(t, err)
	assert.InDelta(t, 20.24, hundreds, 1e-12)

	month, err := h.GetString("month")
	require.NoError(t, err)
	assert.Equal(t, "03", month)

	_, err = h.GetLong("tooFar")
	assert.ErrorIs(t, err, codes.ErrStringTooSmall)
	assert.ErrorIs(t, h.SetLong("year", 1999), codes.ErrReadOnly)
}

func TestSexagesimal2Decimal(t *testing.T) {
	d := testutil.Boot(t, `
key "lat" "ascii" { length = 8 }
key "latitude" "sexagesimal2decimal" { args = [lat] }
`)
	h := d.Decode(t, []byte("-0453030"))

	v, err := h.GetDouble("latitude")
	require.NoError(t, err)
	assert.InDelta(t, -45.508333, v, 1e-6)

	s, err := h.GetString("latitude")
	require.NoError(t, err)
	assert.Equal(t, "-45.508333", s)
}

func TestCompare(t *testing.T) {
	d := testutil.Boot(t, `
key "levels" "unsigned" {
  length = 1
  args   = [3]
}
key "ratio" "ieeefloat" { length = 4 }
key "pair" "unsigned" {
  length = 1
  args   = [2]
}
`)
	a := d.Decode(t, []byte{1, 2, 3, 0x3F, 0xC0, 0x00, 0x00, 7, 8})
	b := d.Decode(t, []byte{1, 2, 4, 0x40, 0x00, 0x00, 0x00, 7, 8})

	assert.NoError(t, a.FindAccessor("pair").Compare(b.FindAccessor("pair")))
	assert.ErrorIs(t, a.FindAccessor("levels").Compare(b.FindAccessor("levels")), codes.ErrValueMismatch)
	assert.ErrorIs(t, a.FindAccessor("ratio").Compare(b.FindAccessor("ratio")), codes.ErrDoubleValueMismatch)
	assert.ErrorIs(t, a.FindAccessor("levels").Compare(b.FindAccessor("pair")), codes.ErrCountMismatch)
}

func TestArrayConversions(t *testing.T) {
	d := testutil.Boot(t, `
key "levels" "unsigned" {
  length = 1
  args   = [3]
}
key "ratios" "ieeefloat" {
  length = 4
  args   = [2]
}
key "missingValue" "constant" { args = [9999] }
key "levelStatistics" "statistics" { args = [missingValue, levels] }
`)
	h := d.Decode(t, []byte{
		10, 20, 30,
		0x3F, 0xC0, 0x00, 0x00,
		0x40, 0x20, 0x00, 0x00,
	})

	levels, err := h.GetDoubleArray("levels")
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30}, levels)

	s, err := h.GetString("levels")
	require.NoError(t, err)
	assert.Equal(t, "10 20 30", s)

	_, err = h.FindAccessor("levels").UnpackDouble(make([]float64, 2))
	need, ok := codes.Needed(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, 3, need)

	ratios, err := h.GetLongArray("ratios")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ratios)

	stats, err := h.GetDoubleArray("levelStatistics")
	require.NoError(t, err)
	assert.Equal(t, 30.0, stats[StatMax])
	assert.Equal(t, 10.0, stats[StatMin])
	assert.Equal(t, 20.0, stats[StatMean])
}
