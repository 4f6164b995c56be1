package accessors

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/vk/gribdef/internal/codes"
	"github.com/vk/gribdef/internal/grib"
	"github.com/vk/gribdef/internal/testutil"
)

var conceptFiles = map[string]string{
	"boot.hcl": `
key "discipline" "unsigned" { length = 1 }
key "parameterNumber" "unsigned" { length = 1 }
key "localTablesVersion" "unsigned" { length = 1 }
key "conceptsMasterDir" "constant" { args = ["grib2"] }
key "conceptsLocalDir" "constant" { args = ["grib2/localConcepts/[localTablesVersion]"] }
concept "shortName" {
  file       = "shortName.hcl"
  master_dir = conceptsMasterDir
  local_dir  = conceptsLocalDir
  nofail     = true
}
concept "strictName" {
  file       = "shortName.hcl"
  master_dir = conceptsMasterDir
}
`,
	"grib2/shortName.hcl": `
value "t" {
  discipline      = 0
  parameterNumber = 0
}
value "q" {
  discipline      = 0
  parameterNumber = 1
}
`,
	"grib2/localConcepts/1/shortName.hcl": `
value "lt" {
  discipline      = 0
  parameterNumber = 0
}
`,
}

func TestConcept_Files(t *testing.T) {
	d := testutil.NewDefinitions(t, conceptFiles)

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{name: "local entry wins a tie", data: []byte{0, 0, 1}, want: "lt"},
		{name: "master only without local file", data: []byte{0, 0, 2}, want: "t"},
		{name: "master entry", data: []byte{0, 1, 1}, want: "q"},
		{name: "nofail", data: []byte{0, 9, 2}, want: "unknown"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := d.Decode(t, tc.data)
			v, err := h.GetString("shortName")
			require.NoError(t, err)
			assert.Equal(t, tc.want, v)
		})
	}

	t.Run("no match without nofail", func(t *testing.T) {
		h := d.Decode(t, []byte{0, 9, 2})
		_, err := h.GetString("strictName")
		assert.ErrorIs(t, err, codes.ErrConceptNoMatch)
		missing, err := h.IsMissing("strictName")
		require.NoError(t, err)
		assert.True(t, missing)
	})
}

func TestConcept_ParsedOncePerContext(t *testing.T) {
	d := testutil.NewDefinitions(t, conceptFiles)
	master := filepath.Join(d.Dir, "grib2", "shortName.hcl")

	for i := 0; i < 3; i++ {
		h := d.Decode(t, []byte{0, 1, 1})
		v, err := h.GetString("shortName")
		require.NoError(t, err)
		assert.Equal(t, "q", v)
	}
	assert.Equal(t, 1, d.Parser.Calls(master))
}

func TestConcept_ParsedOnceAcrossGoroutines(t *testing.T) {
	d := testutil.NewDefinitions(t, conceptFiles)
	master := filepath.Join(d.Dir, "grib2", "shortName.hcl")

	g, ctx := errgroup.WithContext(d.Ctx())
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			h, err := grib.NewHandle(ctx, d.Context, []byte{0, 1, 1})
			if err != nil {
				return err
			}
			defer h.Close()
			v, err := h.GetString("shortName")
			if err != nil {
				return err
			}
			if v != "q" {
				return fmt.Errorf("shortName = %q", v)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 1, d.Parser.Calls(master))
}

func TestConcept_Set(t *testing.T) {
	d := testutil.NewDefinitions(t, conceptFiles)
	h := d.Decode(t, []byte{0, 0, 2})

	require.NoError(t, h.SetString("shortName", "q"))
	assert.Equal(t, []byte{0, 1, 2}, h.Message())
	v, err := h.GetString("shortName")
	require.NoError(t, err)
	assert.Equal(t, "q", v)

	assert.ErrorIs(t, h.SetString("shortName", "nope"), codes.ErrConceptNoMatch)

	got, err := grib.ConceptConditionString(h, "shortName", "")
	require.NoError(t, err)
	assert.Equal(t, "discipline=0,parameterNumber=1", got)
}

func TestConcept_MissingFiles(t *testing.T) {
	d := testutil.Boot(t, `
key "dir" "constant" { args = ["nowhere"] }
concept "shortName" { master_dir = dir }
`)
	h := d.Decode(t, nil)

	_, err := h.GetString("shortName")
	require.ErrorIs(t, err, codes.ErrFileNotFound)
	assert.Contains(t, d.Logs.String(), "Unable to find concept file")
}

func TestElementsTable(t *testing.T) {
	d := testutil.NewDefinitions(t, map[string]string{
		"boot.hcl": `
key "masterTablesVersionNumber" "unsigned" { length = 1 }
key "localTablesVersionNumber" "unsigned" { length = 1 }
key "bufrHeaderCentre" "unsigned" { length = 1 }
key "tablesMasterDir" "constant" { args = ["bufr/tables/0/wmo/[masterTablesVersionNumber]"] }
key "tablesLocalDir" "constant" { args = ["bufr/tables/0/local/[localTablesVersionNumber]/[bufrHeaderCentre]"] }
key "elementsTable" "bufr_elements_table" { args = ["element.table", tablesMasterDir, tablesLocalDir] }
`,
		"bufr/tables/0/wmo/35/element.table": "#code|abbreviation|type|name|unit|scale|reference|width\n" +
			"001001|blockNumber|long|WMO BLOCK NUMBER|Numeric|0|0|7\n" +
			"012101|airTemperature|double|TEMPERATURE/AIR TEMPERATURE|K|2|0|16\n",
		"bufr/tables/0/local/1/98/element.table": "012101|localTemperature|double|LOCAL TEMPERATURE|K|1|0|12\n",
	})

	descriptor := func(t *testing.T, h *grib.Handle, code int64) (*grib.Element, error) {
		t.Helper()
		table, ok := h.FindAccessor("elementsTable").(*ElementsTable)
		require.True(t, ok)
		return table.Descriptor(code)
	}

	h := d.Decode(t, []byte{35, 1, 98})
	e, err := descriptor(t, h, 12101)
	require.NoError(t, err)
	assert.Equal(t, "localTemperature", e.Abbreviation)
	e, err = descriptor(t, h, 1001)
	require.NoError(t, err)
	assert.Equal(t, "blockNumber", e.Abbreviation, "codes absent locally come from the master table")
	_, err = descriptor(t, h, 99999)
	assert.ErrorIs(t, err, codes.ErrNotFound)

	path, err := h.GetString("elementsTable")
	require.NoError(t, err)
	assert.Equal(t, "bufr/tables/0/wmo/35/element.table", path)

	h = d.Decode(t, []byte{35, 2, 98})
	e, err = descriptor(t, h, 12101)
	require.NoError(t, err)
	assert.Equal(t, "airTemperature", e.Abbreviation)
	assert.Equal(t, int64(16), e.Width)
}
