package action

import (
	"fmt"
	"io"

	"github.com/vk/gribdef/internal/grib"
)

// Template runs the statements of another definition file in place. The
// file name may contain [key] patterns; it is composed and looked up on the
// context's search path when the statement runs.
type Template struct {
	header
	file string
}

// NewTemplate creates a template statement for file.
func NewTemplate(file string) *Template {
	return &Template{header: header{name: "_template", op: "template"}, file: file}
}

func (t *Template) CreateAccessor(s *grib.Section, l grib.Loader) error {
	h := s.Handle
	file, err := grib.RecomposeName(h, t.file)
	if err != nil {
		return fmt.Errorf("template %s: %w", t.file, err)
	}
	program, err := h.Context.ParseDefinitions(file)
	if err != nil {
		return fmt.Errorf("template %s: %w", file, err)
	}
	h.Logger().Debug("Running template", "file", file, "statements", len(program))
	return Execute(program, s, l)
}

func (t *Template) Dump(w io.Writer, level int) {
	indent(w, level)
	fmt.Fprintf(w, "template %s\n", t.file)
}
