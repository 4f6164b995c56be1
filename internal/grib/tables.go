package grib

import (
	"fmt"
	"math"
	"sort"

	"github.com/vk/gribdef/internal/codes"
)

// Element is one row of a BUFR element table.
type Element struct {
	Code         int64
	Abbreviation string
	Type         string
	Name         string
	Unit         string
	Scale        int64
	Reference    int64
	Width        int64
}

// F, X and Y split the six digit descriptor code.
func (e *Element) F() int64 { return e.Code / 100000 }
func (e *Element) X() int64 { return e.Code / 1000 % 100 }
func (e *Element) Y() int64 { return e.Code % 1000 }

// Factor is the multiplier undoing Scale.
func (e *Element) Factor() float64 { return math.Pow10(-int(e.Scale)) }

// ElementTable maps descriptor codes to elements.
type ElementTable struct {
	Path     string
	Elements map[int64]*Element
}

// NewElementTable indexes elements by code. A later row replaces an
// earlier one with the same code, so local tables can be appended to a
// master table.
func NewElementTable(path string, elements []*Element) *ElementTable {
	t := &ElementTable{Path: path, Elements: make(map[int64]*Element, len(elements))}
	for _, e := range elements {
		t.Elements[e.Code] = e
	}
	return t
}

// Lookup returns the element for code.
func (t *ElementTable) Lookup(code int64) (*Element, error) {
	if e, ok := t.Elements[code]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("element %06d in %s: %w", code, t.Path, codes.ErrNotFound)
}

// Codes lists the table's codes in ascending order.
func (t *ElementTable) Codes() []int64 {
	out := make([]int64, 0, len(t.Elements))
	for c := range t.Elements {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
