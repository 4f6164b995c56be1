package grib_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	_ "github.com/vk/gribdef/internal/accessors"
	"github.com/vk/gribdef/internal/codes"
	"github.com/vk/gribdef/internal/grib"
	"github.com/vk/gribdef/internal/testutil"
)

const sampleBoot = `
key "totalLength" "unsigned" { length = 2 }
section "section1" {
  key "section1Length" "section_length" { length = 2 }
  key "centre" "unsigned" {
    length  = 1
    default = 98
    aliases = ["originatingCentre", "mars.origin"]
  }
  key "edition" "unsigned" {
    length    = 1
    default   = 2
    namespace = "ls"
  }
}
switch {
  on = [centre]
  case {
    values = [98]
    key "ecmwfLocal" "unsigned" { length = 1 }
  }
  default {
    key "otherLocal" "unsigned" { length = 1 }
  }
}
key "twiceCentre" "transient" {
  default = centre * 2
  flags   = ["constraint"]
}
`

// sampleMessage is decoded by sampleBoot: ECMWF centre, edition 2 and a
// one byte local section.
var sampleMessage = []byte{0x00, 0x07, 0x00, 0x04, 0x62, 0x02, 0x05}

// requireContiguous checks that every accessor starts where its
// predecessor ends, in every section of the tree.
func requireContiguous(t *testing.T, s *grib.Section) {
	t.Helper()
	offset := s.StartOffset()
	for _, a := range s.Accessors() {
		b := a.Core()
		require.Equal(t, offset, b.Offset, "offset of %s", b.Name)
		if b.SubSection != nil {
			requireContiguous(t, b.SubSection)
		}
		offset += b.Length
	}
}

func TestHandle_Decode(t *testing.T) {
	d := testutil.Boot(t, sampleBoot)
	h := d.Decode(t, sampleMessage)

	for key, want := range map[string]int64{
		"totalLength":    7,
		"section1Length": 4,
		"centre":         98,
		"edition":        2,
		"ecmwfLocal":     5,
		"twiceCentre":    196,
	} {
		got, err := h.GetLong(key)
		require.NoError(t, err, key)
		assert.Equal(t, want, got, key)
	}

	assert.False(t, h.Has("otherLocal"), "the default branch must not run when a case matches")
	requireContiguous(t, h.Root)

	n, err := h.SectionLength("section1")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), n)

	s, err := h.GetString("centre")
	require.NoError(t, err)
	assert.Equal(t, "98", s)

	v, err := h.GetDouble("edition")
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
}

func TestHandle_DefaultBranch(t *testing.T) {
	d := testutil.Boot(t, sampleBoot)
	h := d.Decode(t, []byte{0x00, 0x07, 0x00, 0x04, 0x07, 0x02, 0x09})

	assert.False(t, h.Has("ecmwfLocal"))
	v, err := h.GetLong("otherLocal")
	require.NoError(t, err)
	assert.Equal(t, int64(9), v)
}

func TestHandle_FindAccessor(t *testing.T) {
	d := testutil.Boot(t, sampleBoot)
	h := d.Decode(t, sampleMessage)

	centre := h.FindAccessor("centre")
	require.NotNil(t, centre)
	assert.Same(t, centre, h.FindAccessor("originatingCentre"))
	assert.Same(t, centre, h.FindAccessor("mars.origin"))
	assert.Nil(t, h.FindAccessor("grib.origin"))

	edition := h.FindAccessor("ls.edition")
	require.NotNil(t, edition)
	assert.Equal(t, "edition", edition.Core().Name)

	assert.Nil(t, h.FindAccessor("noSuchKey"))
	_, err := h.GetLong("noSuchKey")
	assert.ErrorIs(t, err, codes.ErrNotFound)
}

func TestHandle_MessageBoundary(t *testing.T) {
	truncated := sampleMessage[:6]

	t.Run("complete decode fails", func(t *testing.T) {
		d := testutil.Boot(t, sampleBoot)
		_, err := grib.NewHandle(d.Ctx(), d.Context, truncated)
		require.ErrorIs(t, err, codes.ErrDecoding)
		assert.Contains(t, d.Logs.String(), "over message boundary")
	})

	t.Run("partial decode stops quietly", func(t *testing.T) {
		d := testutil.Boot(t, sampleBoot)
		h := d.Decode(t, truncated, grib.WithPartial())
		assert.True(t, h.Has("edition"))
		assert.False(t, h.Has("ecmwfLocal"))
		assert.False(t, h.Has("twiceCentre"))
	})
}

func TestHandle_ShortSectionLength(t *testing.T) {
	// The section claims 3 bytes but holds 4.
	d := testutil.Boot(t, sampleBoot)
	_, err := grib.NewHandle(d.Ctx(), d.Context, []byte{0x00, 0x07, 0x00, 0x03, 0x62, 0x02, 0x05})
	require.NoError(t, err, "a short declared length is corrected, not fatal")
	assert.Contains(t, d.Logs.String(), "Invalid section size")
}

func TestHandle_SectionPadding(t *testing.T) {
	// Declared length 5 leaves one byte of padding after edition.
	d := testutil.Boot(t, sampleBoot)
	h := d.Decode(t, []byte{0x00, 0x08, 0x00, 0x05, 0x62, 0x02, 0xAA, 0x05})

	n, err := h.SectionLength("section1")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)

	local := h.FindAccessor("ecmwfLocal")
	require.NotNil(t, local)
	assert.Equal(t, uint64(7), local.Core().Offset)
	v, err := h.GetLong("ecmwfLocal")
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)
}

func TestHandle_Set(t *testing.T) {
	d := testutil.Boot(t, sampleBoot)
	h := d.Decode(t, append([]byte(nil), sampleMessage...))

	require.NoError(t, h.SetLong("centre", 7))
	assert.Equal(t, byte(7), h.Message()[4])

	v, err := h.GetLong("twiceCentre")
	require.NoError(t, err)
	assert.Equal(t, int64(14), v, "observers of centre are re-evaluated")

	err = h.SetLong("section1Length", 9)
	assert.ErrorIs(t, err, codes.ErrReadOnly)

	err = h.SetLong("centre", 300)
	assert.ErrorIs(t, err, codes.ErrOutOfRange)

	err = h.SetLong("noSuchKey", 1)
	assert.ErrorIs(t, err, codes.ErrNotFound)
}

func TestHandle_Empty(t *testing.T) {
	d := testutil.Boot(t, sampleBoot)
	h := d.Empty(t)

	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x04, 0x62, 0x02, 0x00}, h.Message())
	assert.True(t, h.Has("ecmwfLocal"))
	requireContiguous(t, h.Root)

	v, err := h.GetLong("twiceCentre")
	require.NoError(t, err)
	assert.Equal(t, int64(196), v)

	again, err := grib.NewHandle(d.Ctx(), d.Context, h.Message())
	require.NoError(t, err)
	defer again.Close()
	centre, err := again.GetLong("centre")
	require.NoError(t, err)
	assert.Equal(t, int64(98), centre)
}

func TestHandle_Clone(t *testing.T) {
	d := testutil.Boot(t, sampleBoot)
	h := d.Decode(t, append([]byte(nil), sampleMessage...))

	c, err := h.Clone(d.Ctx())
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, h.SetLong("ecmwfLocal", 1))
	v, err := c.GetLong("ecmwfLocal")
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)
}

func TestHandle_ArrayTooSmall(t *testing.T) {
	d := testutil.Boot(t, `
key "levels" "unsigned" {
  length = 1
  args   = [3]
}
`)
	h := d.Decode(t, []byte{10, 20, 30})

	a := h.FindAccessor("levels")
	require.NotNil(t, a)
	_, err := a.UnpackLong(make([]int64, 2))
	require.ErrorIs(t, err, codes.ErrArrayTooSmall)
	need, ok := codes.Needed(err)
	require.True(t, ok)
	assert.Equal(t, 3, need)

	values, err := h.GetLongArray("levels")
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30}, values)

	size, err := h.GetSize("levels")
	require.NoError(t, err)
	assert.Equal(t, 3, size)
}

func TestHandle_RemoveRestoresShadowedKey(t *testing.T) {
	d := testutil.Boot(t, `
key "x" "unsigned" { length = 1 }
key "x" "unsigned" { length = 1 }
remove "x" {}
`)
	h := d.Decode(t, []byte{1, 2})

	v, err := h.GetLong("x")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	assert.Equal(t, 1, h.Root.Len())
}

func TestHandle_RemoveEveryShadowedKey(t *testing.T) {
	for name, removals := range map[string]string{
		"older first": "remove \"mars.x\" {}\nremove \"x\" {}\n",
		"newer first": "remove \"x\" {}\nremove \"x\" {}\n",
	} {
		t.Run(name, func(t *testing.T) {
			d := testutil.Boot(t, `
key "x" "unsigned" {
  length    = 1
  namespace = "mars"
}
key "x" "unsigned" { length = 1 }
`+removals)
			h := d.Decode(t, []byte{1, 2})

			assert.False(t, h.Has("x"))
			assert.False(t, h.Has("mars.x"))
			assert.Equal(t, 0, h.Root.Len())
			_, err := h.GetLong("x")
			assert.ErrorIs(t, err, codes.ErrNotFound)
		})
	}
}

func TestContext_MissingBootFile(t *testing.T) {
	d := testutil.NewDefinitions(t, map[string]string{"other.hcl": ""})
	_, err := grib.NewHandle(d.Ctx(), d.Context, sampleMessage)
	require.ErrorIs(t, err, codes.ErrFileNotFound)
	assert.Contains(t, d.Logs.String(), "Unable to find boot definitions")
}

func TestContext_BootParsedOnce(t *testing.T) {
	d := testutil.Boot(t, sampleBoot)
	boot := filepath.Join(d.Dir, grib.DefaultBootFile)

	g, ctx := errgroup.WithContext(d.Ctx())
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			h, err := grib.NewHandle(ctx, d.Context, append([]byte(nil), sampleMessage...))
			if err != nil {
				return err
			}
			defer h.Close()
			v, err := h.GetLong("ecmwfLocal")
			if err != nil {
				return err
			}
			if v != 5 {
				return fmt.Errorf("ecmwfLocal = %d", v)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 1, d.Parser.Calls(boot))

	d.Context.Close()
	h, err := grib.NewHandle(context.Background(), d.Context, sampleMessage)
	require.NoError(t, err)
	h.Close()
	assert.Equal(t, 2, d.Parser.Calls(boot), "Close drops the cached boot program")
}

func TestContext_FullPath(t *testing.T) {
	d := testutil.NewDefinitions(t, map[string]string{
		"boot.hcl":           "",
		"grib2/template.hcl": "",
	})

	full, ok := d.Context.FullPath("grib2/template.hcl")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(d.Dir, "grib2", "template.hcl"), full)

	_, ok = d.Context.FullPath("grib3/template.hcl")
	assert.False(t, ok)
	assert.Equal(t, d.Dir, d.Context.SearchPath())
}
