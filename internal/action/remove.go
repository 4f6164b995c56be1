package action

import (
	"fmt"
	"io"

	"github.com/vk/gribdef/internal/grib"
)

// Remove deletes a previously created key, wherever it sits in the tree.
// Removing a key that does not exist is not an error.
type Remove struct {
	header
	names []string
}

// NewRemove creates a remove statement for one or more keys.
func NewRemove(names ...string) *Remove {
	return &Remove{header: header{name: "_remove", op: "remove"}, names: names}
}

func (r *Remove) CreateAccessor(s *grib.Section, _ grib.Loader) error {
	h := s.Handle
	for _, name := range r.names {
		a := h.FindAccessor(name)
		if a == nil {
			h.Logger().Debug("Remove: key not found", "name", name)
			continue
		}
		a.Core().Parent.Remove(a)
	}
	return nil
}

func (r *Remove) Dump(w io.Writer, level int) {
	for _, name := range r.names {
		indent(w, level)
		fmt.Fprintf(w, "remove %s\n", name)
	}
}
