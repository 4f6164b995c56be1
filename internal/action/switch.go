package action

import (
	"fmt"
	"io"
	"strings"

	"github.com/vk/gribdef/internal/codes"
	"github.com/vk/gribdef/internal/grib"
)

// Case is one branch of a switch: its body runs when every value matches
// the selector at the same position.
type Case struct {
	Values grib.Arguments
	Body   []grib.Action
}

// Switch runs the body of the first matching case, or the default.
type Switch struct {
	header
	selectors grib.Arguments
	cases     []Case
	fallback  []grib.Action
	hasDef    bool
}

// NewSwitch creates a switch over selectors. A nil fallback means the
// switch has no default branch.
func NewSwitch(selectors grib.Arguments, cases []Case, fallback []grib.Action) *Switch {
	return &Switch{
		header:    header{name: "_switch", op: "section"},
		selectors: selectors,
		cases:     cases,
		fallback:  fallback,
		hasDef:    fallback != nil,
	}
}

func (sw *Switch) CreateAccessor(s *grib.Section, l grib.Loader) error {
	h := s.Handle
	for i, c := range sw.cases {
		if sw.matches(h, c.Values) {
			h.Logger().Debug("Switch case selected", "case", i)
			return Execute(c.Body, s, l)
		}
	}
	if sw.hasDef {
		return Execute(sw.fallback, s, l)
	}
	return fmt.Errorf("switch on %s: %w", sw.selectorText(), codes.ErrSwitchNoMatch)
}

// matches compares the case values with the selectors pairwise. Extra
// values or selectors beyond the shorter list are ignored.
func (sw *Switch) matches(h *grib.Handle, values grib.Arguments) bool {
	n := min(len(values), len(sw.selectors))
	if n == 0 {
		return false
	}
	for i := 0; i < n; i++ {
		if !caseMatches(h, sw.selectors[i], values[i]) {
			return false
		}
	}
	return true
}

// caseMatches compares under the selector's native type. The literal true
// and the string "*" match anything. A side that fails to evaluate never
// matches.
func caseMatches(h *grib.Handle, selector, value grib.Expression) bool {
	switch v := value.(type) {
	case grib.True:
		return true
	case grib.String:
		if v == "*" {
			return true
		}
	}

	typ := selector.NativeType(h)
	if typ == grib.TypeUndefined {
		typ = value.NativeType(h)
	}
	switch typ {
	case grib.TypeLong:
		x, err := selector.EvaluateLong(h)
		if err != nil {
			return false
		}
		y, err := value.EvaluateLong(h)
		return err == nil && x == y
	case grib.TypeDouble:
		x, err := selector.EvaluateDouble(h)
		if err != nil {
			return false
		}
		y, err := value.EvaluateDouble(h)
		return err == nil && x == y
	case grib.TypeString:
		x, err := selector.EvaluateString(h)
		if err != nil {
			return false
		}
		y, err := value.EvaluateString(h)
		return err == nil && x == y
	}
	return false
}

func (sw *Switch) selectorText() string {
	parts := make([]string, len(sw.selectors))
	for i, e := range sw.selectors {
		parts[i] = e.String()
	}
	return strings.Join(parts, ",")
}

func (sw *Switch) Dump(w io.Writer, level int) {
	indent(w, level)
	fmt.Fprintf(w, "switch(%s)\n", sw.selectorText())
	for _, c := range sw.cases {
		parts := make([]string, len(c.Values))
		for i, e := range c.Values {
			parts[i] = e.String()
		}
		indent(w, level)
		fmt.Fprintf(w, "case %s:\n", strings.Join(parts, ","))
		DumpProgram(w, c.Body, level+1)
	}
	if sw.hasDef {
		indent(w, level)
		fmt.Fprintln(w, "default:")
		DumpProgram(w, sw.fallback, level+1)
	}
}
