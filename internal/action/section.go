package action

import (
	"fmt"
	"io"

	"github.com/vk/gribdef/internal/grib"
)

// Section creates a "section" accessor and runs its body inside the nested
// section it owns.
type Section struct {
	header
	body []grib.Action
}

// NewSection creates a section statement.
func NewSection(name string, body []grib.Action, opts ...Option) *Section {
	return &Section{header: newHeader(name, "section", opts), body: body}
}

func (sec *Section) CreateAccessor(s *grib.Section, l grib.Loader) error {
	_, err := openSection(s, sec, func(sub *grib.Section) error {
		return Execute(sec.body, sub, l)
	})
	return err
}

// openSection creates the owning accessor of act, attaches a new nested
// section and fills it through fill. Sizes are settled once the body has
// run.
func openSection(s *grib.Section, act grib.Action, fill func(*grib.Section) error) (grib.Accessor, error) {
	a, err := grib.CreateAccessor(s, act, 0, nil)
	if err != nil {
		return nil, err
	}
	sub := grib.NewSubSection(a)
	a.Core().SubSection = sub
	s.Push(a)

	if err := fill(sub); err != nil {
		return nil, err
	}
	if err := grib.AdjustSizes(sub, s.Handle.SizeMode(), 1); err != nil {
		return nil, err
	}
	return a, nil
}

func (sec *Section) Dump(w io.Writer, level int) {
	indent(w, level)
	fmt.Fprintf(w, "section %s\n", sec.name)
	DumpProgram(w, sec.body, level+1)
}

// List repeats its body count times, each repetition in a section of its
// own, all inside one list section.
type List struct {
	header
	count grib.Expression
	body  []grib.Action
}

// NewList creates a list statement.
func NewList(name string, count grib.Expression, body []grib.Action, opts ...Option) *List {
	return &List{header: newHeader(name, "section", opts), count: count, body: body}
}

func (li *List) CreateAccessor(s *grib.Section, l grib.Loader) error {
	n, err := li.count.EvaluateLong(s.Handle)
	if err != nil {
		return fmt.Errorf("list %s count %s: %w", li.name, li.count, err)
	}
	if n < 0 {
		n = 0
	}
	_, err = openSection(s, li, func(sub *grib.Section) error {
		for i := int64(0); i < n; i++ {
			item := &listItem{header: header{name: fmt.Sprintf("_%s_%d", li.name, i), op: "section"}}
			if _, err := openSection(sub, item, func(inner *grib.Section) error {
				return Execute(li.body, inner, l)
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}

func (li *List) Dump(w io.Writer, level int) {
	indent(w, level)
	fmt.Fprintf(w, "list %s(%s)\n", li.name, li.count)
	DumpProgram(w, li.body, level+1)
}

// listItem is the anonymous owner of one list repetition.
type listItem struct {
	header
}

func (it *listItem) CreateAccessor(*grib.Section, grib.Loader) error { return nil }
func (it *listItem) Dump(io.Writer, int) {}
