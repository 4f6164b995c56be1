// Package dumper renders accessor trees as text.
package dumper

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vk/gribdef/internal/grib"
)

// columns is how many array values go on one line.
const columns = 9

// Text writes one "name = value;" line per key, nesting sections with
// indentation. Hidden keys and keys starting with an underscore are left
// out unless Hidden is set.
type Text struct {
	w      io.Writer
	Hidden bool
	depth  int
	err    error
}

// NewText creates a text dumper writing to w.
func NewText(w io.Writer, hidden bool) *Text {
	return &Text{w: w, Hidden: hidden}
}

var _ grib.Dumper = (*Text)(nil)

// Err returns the first write error, if any.
func (t *Text) Err() error { return t.err }

func (t *Text) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, strings.Repeat("  ", t.depth)+format, args...)
}

func (t *Text) skip(a grib.Accessor) bool {
	if t.Hidden {
		return false
	}
	b := a.Core()
	return b.Flags.Has(grib.FlagHidden) || strings.HasPrefix(b.Name, "_")
}

func (t *Text) fail(a grib.Accessor, err error) {
	t.printf("# %s: %v\n", a.Core().Name, err)
}

func (t *Text) DumpLong(a grib.Accessor, comment string) {
	if t.skip(a) {
		return
	}
	n, _ := a.ValueCount()
	if n > 1 {
		t.DumpValues(a)
		return
	}
	if a.Core().Flags.Has(grib.FlagCanBeMissing) && a.IsMissing() {
		t.line(a, "MISSING", comment)
		return
	}
	var v [1]int64
	if _, err := a.UnpackLong(v[:]); err != nil {
		t.fail(a, err)
		return
	}
	t.line(a, strconv.FormatInt(v[0], 10), comment)
}

func (t *Text) DumpDouble(a grib.Accessor, comment string) {
	if t.skip(a) {
		return
	}
	n, _ := a.ValueCount()
	if n > 1 {
		t.DumpValues(a)
		return
	}
	if a.Core().Flags.Has(grib.FlagCanBeMissing) && a.IsMissing() {
		t.line(a, "MISSING", comment)
		return
	}
	var v [1]float64
	if _, err := a.UnpackDouble(v[:]); err != nil {
		t.fail(a, err)
		return
	}
	t.line(a, fmt.Sprintf("%g", v[0]), comment)
}

func (t *Text) DumpString(a grib.Accessor, comment string) {
	if t.skip(a) {
		return
	}
	s, err := grib.UnpackStringValue(a)
	if err != nil {
		t.fail(a, err)
		return
	}
	t.line(a, strconv.Quote(s), comment)
}

func (t *Text) DumpBytes(a grib.Accessor, comment string) {
	if t.skip(a) {
		return
	}
	raw := make([]byte, a.ByteCount())
	if _, err := a.UnpackBytes(raw); err != nil {
		t.fail(a, err)
		return
	}
	parts := make([]string, len(raw))
	for i, c := range raw {
		parts[i] = fmt.Sprintf("%02x", c)
	}
	t.line(a, "("+strings.Join(parts, " ")+")", comment)
}

// DumpValues writes an array, columns values per line.
func (t *Text) DumpValues(a grib.Accessor) {
	if t.skip(a) {
		return
	}
	var text []string
	if a.NativeType() == grib.TypeLong {
		v, err := grib.UnpackLongValues(a)
		if err != nil {
			t.fail(a, err)
			return
		}
		for _, x := range v {
			text = append(text, strconv.FormatInt(x, 10))
		}
	} else {
		v, err := grib.UnpackDoubleValues(a)
		if err != nil {
			t.fail(a, err)
			return
		}
		for _, x := range v {
			text = append(text, fmt.Sprintf("%g", x))
		}
	}

	t.printf("%s(%d) = {\n", a.Core().Name, len(text))
	t.depth++
	for i := 0; i < len(text); i += columns {
		end := min(i+columns, len(text))
		sep := ","
		if end == len(text) {
			sep = ""
		}
		t.printf("%s%s\n", strings.Join(text[i:end], ", "), sep)
	}
	t.depth--
	t.printf("}\n")
}

func (t *Text) DumpLabel(a grib.Accessor, comment string) {
	if t.skip(a) {
		return
	}
	t.printf("#-READ ONLY- %s\n", a.Core().Name)
}

func (t *Text) DumpSection(a grib.Accessor, s *grib.Section) {
	if s == nil {
		return
	}
	if t.skip(a) {
		s.Dump(t)
		return
	}
	t.printf("# %s (%d bytes)\n", a.Core().Name, s.Length)
	t.depth++
	s.Dump(t)
	t.depth--
}

func (t *Text) line(a grib.Accessor, value, comment string) {
	b := a.Core()
	name := b.Name
	if b.NameSpace != "" {
		name = b.NameSpace + "." + name
	}
	if comment != "" {
		t.printf("%s = %s;  # %s\n", name, value, comment)
		return
	}
	t.printf("%s = %s;\n", name, value)
}
