package accessors

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gribdef/internal/codes"
	"github.com/vk/gribdef/internal/testutil"
)

const packingDefinitions = `
key "numberOfValues" "unsigned" { length = 2 }
key "referenceValue" "ieeefloat" { length = 4 }
key "binaryScaleFactor" "signed" { length = 2 }
key "decimalScaleFactor" "signed" { length = 2 }
key "bitsPerValue" "unsigned" {
  length  = 1
  default = 16
}
key "missingValue" "constant" { args = [9999] }
key "values" "data_g2simple_packing" {
  args = [numberOfValues, referenceValue, binaryScaleFactor, decimalScaleFactor, bitsPerValue]
}
key "statistics" "statistics" { args = [missingValue, values] }
`

func TestSummarise(t *testing.T) {
	const missing = 9999.0

	t.Run("moments", func(t *testing.T) {
		s := summarise([]float64{1, 2, 3, 4}, missing, true)
		assert.Equal(t, 4.0, s[StatMax])
		assert.Equal(t, 1.0, s[StatMin])
		assert.Equal(t, 2.5, s[StatMean])
		assert.Zero(t, s[StatMissingCount])
		assert.InDelta(t, math.Sqrt(1.25), s[StatStdDev], 1e-12)
		assert.InDelta(t, 0, s[StatSkewness], 1e-12)
		assert.InDelta(t, -1.36, s[StatKurtosis], 1e-12)
		assert.Zero(t, s[StatIsConstant])
	})

	t.Run("one to five", func(t *testing.T) {
		s := summarise([]float64{1, 2, 3, 4, 5}, missing, true)
		assert.Equal(t, 3.0, s[StatMean])
		assert.InDelta(t, math.Sqrt2, s[StatStdDev], 1e-12)
		assert.Zero(t, s[StatMissingCount])
	})

	t.Run("missing points are skipped", func(t *testing.T) {
		s := summarise([]float64{1, missing, 3}, missing, true)
		assert.Equal(t, 2.0, s[StatMean])
		assert.Equal(t, 1.0, s[StatMissingCount])
		assert.Equal(t, 3.0, s[StatMax])
	})

	t.Run("missing value counts when absent from the message", func(t *testing.T) {
		s := summarise([]float64{1, missing}, missing, false)
		assert.Equal(t, missing, s[StatMax])
		assert.Zero(t, s[StatMissingCount])
	})

	t.Run("nothing usable", func(t *testing.T) {
		for _, values := range [][]float64{nil, {missing, missing}} {
			s := summarise(values, missing, true)
			assert.Equal(t, missing, s[StatMax])
			assert.Equal(t, missing, s[StatMin])
			assert.Equal(t, missing, s[StatMean])
			assert.Equal(t, 1.0, s[StatIsConstant])
		}
	})

	t.Run("constant field", func(t *testing.T) {
		s := summarise([]float64{5, 5, 5}, missing, true)
		assert.Equal(t, 1.0, s[StatIsConstant])
		assert.Zero(t, s[StatStdDev])
	})
}

func TestSimplePacking_Decode(t *testing.T) {
	d := testutil.Boot(t, packingDefinitions)
	// Two 8 bit values scaled by 10^-1 around a reference of 10.
	h := d.Decode(t, []byte{
		0x00, 0x02,
		0x41, 0x20, 0x00, 0x00,
		0x00, 0x00,
		0x00, 0x01,
		0x08,
		0x00, 0x05,
	})

	values, err := h.GetDoubleArray("values")
	require.NoError(t, err)
	if diff := cmp.Diff([]float64{1.0, 1.5}, values, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}

	stats, err := h.GetDoubleArray("statistics")
	require.NoError(t, err)
	assert.InDelta(t, 1.5, stats[StatMax], 1e-12)
	assert.InDelta(t, 1.0, stats[StatMin], 1e-12)
	assert.InDelta(t, 1.25, stats[StatMean], 1e-12)

	_, err = h.FindAccessor("values").UnpackDouble(make([]float64, 1))
	assert.ErrorIs(t, err, codes.ErrArrayTooSmall)
}

func TestSimplePacking_Encode(t *testing.T) {
	d := testutil.Boot(t, packingDefinitions)
	h := d.Empty(t)

	stats, err := h.GetDoubleArray("statistics")
	require.NoError(t, err)
	assert.Equal(t, 9999.0, stats[StatMean], "an empty field has no mean")

	require.NoError(t, h.SetDoubleArray("values", []float64{1, 2, 3, 4}))
	values, err := h.GetDoubleArray("values")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, values)

	n, err := h.GetLong("numberOfValues")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Len(t, h.Message(), 11+8, "four 16 bit values follow the metadata")

	stats, err = h.GetDoubleArray("statistics")
	require.NoError(t, err)
	assert.Equal(t, 2.5, stats[StatMean], "statistics follow the values they watch")

	t.Run("constant field", func(t *testing.T) {
		require.NoError(t, h.SetDoubleArray("values", []float64{5, 5, 5}))
		bits, err := h.GetLong("bitsPerValue")
		require.NoError(t, err)
		assert.Zero(t, bits)

		values, err := h.GetDoubleArray("values")
		require.NoError(t, err)
		assert.Equal(t, []float64{5, 5, 5}, values)

		stats, err := h.GetDoubleArray("statistics")
		require.NoError(t, err)
		assert.Equal(t, 1.0, stats[StatIsConstant])
	})

	assert.ErrorIs(t, h.SetDoubleArray("values", nil), codes.ErrInvalidArgument)
}
