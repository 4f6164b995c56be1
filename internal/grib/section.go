package grib

import (
	"strings"
)

// Section is an ordered group of sibling accessors sharing a byte region.
//
// Owner is the accessor the section hangs from (nil for the root) and
// LengthAccessor, when set, stores the section's byte length in the message.
// Padding counts bytes between the declared length and the sum of the
// children's lengths.
type Section struct {
	Handle         *Handle
	Owner          Accessor
	LengthAccessor Accessor
	Padding        uint64
	Length         uint64

	accessors []Accessor
}

// NewSubSection creates an empty section owned by owner.
func NewSubSection(owner Accessor) *Section {
	return &Section{Handle: owner.Core().Handle(), Owner: owner}
}

// Accessors returns the children in order. The slice must not be modified.
func (s *Section) Accessors() []Accessor {
	if s == nil {
		return nil
	}
	return s.accessors
}

// Len returns the number of children.
func (s *Section) Len() int {
	if s == nil {
		return 0
	}
	return len(s.accessors)
}

// First returns the first child or nil.
func (s *Section) First() Accessor {
	if s.Len() == 0 {
		return nil
	}
	return s.accessors[0]
}

// Last returns the last child or nil.
func (s *Section) Last() Accessor {
	if s.Len() == 0 {
		return nil
	}
	return s.accessors[len(s.accessors)-1]
}

func (s *Section) indexOf(a Accessor) int {
	for i, x := range s.accessors {
		if x == a {
			return i
		}
	}
	return -1
}

// Next returns the sibling after a, or nil.
func (s *Section) Next(a Accessor) Accessor {
	i := s.indexOf(a)
	if i < 0 || i+1 >= len(s.accessors) {
		return nil
	}
	return s.accessors[i+1]
}

// Previous returns the sibling before a, or nil.
func (s *Section) Previous(a Accessor) Accessor {
	i := s.indexOf(a)
	if i <= 0 {
		return nil
	}
	return s.accessors[i-1]
}

// StartOffset is where the first child of the section begins.
func (s *Section) StartOffset() uint64 {
	if s.Owner != nil {
		return s.Owner.Core().Offset
	}
	return 0
}

// NextOffset is where an accessor appended to the section would begin.
func (s *Section) NextOffset() uint64 {
	if last := s.Last(); last != nil {
		return last.NextOffset()
	}
	return s.StartOffset()
}

// Push appends a and indexes it by name on the handle. Names starting with
// an underscore are internal and never indexed. A previously indexed
// accessor of the same name becomes a's Same link, and attributes of the
// two are linked pairwise by name.
func (s *Section) Push(a Accessor) {
	s.accessors = append(s.accessors, a)

	h := s.Handle
	b := a.Core()
	if h == nil || b.Name == "" || strings.HasPrefix(b.Name, "_") {
		return
	}
	prev := h.index[b.Name]
	if prev == a {
		return
	}
	b.Same = prev
	linkSameAttributes(a, prev)
	h.index[b.Name] = a
}

func linkSameAttributes(a, b Accessor) {
	if a == nil || b == nil || len(b.Core().Attributes) == 0 {
		return
	}
	for _, attr := range a.Core().Attributes {
		if other := b.Core().Attribute(attr.Core().Name); other != nil {
			attr.Core().Same = other
		}
	}
}

// Remove unlinks a from the section and destroys it. The handle forgets a
// and everything in its subsection: index entries fall back to the newest
// accessor of the same name still in the tree, Same links skip over the
// removed accessors and their observer registrations go away.
func (s *Section) Remove(a Accessor) bool {
	i := s.indexOf(a)
	if i < 0 {
		return false
	}
	s.accessors = append(s.accessors[:i], s.accessors[i+1:]...)
	if s.LengthAccessor == a {
		s.LengthAccessor = nil
	}

	if h := s.Handle; h != nil {
		gone := map[Accessor]bool{a: true}
		if sub := a.Core().SubSection; sub != nil {
			sub.Walk(func(x Accessor) bool {
				gone[x] = true
				return true
			})
		}
		h.unlinkSame(s, gone)
		for x := range gone {
			h.reindex(x, gone)
			h.unobserve(x)
		}
	}
	a.Destroy()
	return true
}

// unlinkSame makes every live accessor, and every attribute of one, skip
// the removed accessors in its Same chain.
func (h *Handle) unlinkSame(s *Section, gone map[Accessor]bool) {
	skip := make(map[Accessor]bool, len(gone))
	for x := range gone {
		skip[x] = true
		for _, attr := range x.Core().Attributes {
			skip[attr] = true
		}
	}
	relink := func(x Accessor) {
		b := x.Core()
		for b.Same != nil && skip[b.Same] {
			b.Same = b.Same.Core().Same
		}
	}
	visit := func(x Accessor) bool {
		relink(x)
		for _, attr := range x.Core().Attributes {
			relink(attr)
		}
		return true
	}
	if h.Root != nil {
		h.Root.Walk(visit)
	}
	// s may belong to an owner not yet pushed into the tree.
	s.Walk(visit)
}

// reindex moves the name index off a removed accessor onto the newest
// accessor of the same name that is still in its section.
func (h *Handle) reindex(a Accessor, gone map[Accessor]bool) {
	b := a.Core()
	if h.index[b.Name] != a {
		return
	}
	for same := b.Same; same != nil; same = same.Core().Same {
		if p := same.Core().Parent; !gone[same] && p != nil && p.indexOf(same) >= 0 {
			h.index[b.Name] = same
			return
		}
	}
	delete(h.index, b.Name)
}

// PostInit runs the deferred setup of every accessor, depth first.
func (s *Section) PostInit() error {
	for _, a := range s.Accessors() {
		if err := a.PostInit(); err != nil {
			return err
		}
		if sub := a.Core().SubSection; sub != nil {
			if err := sub.PostInit(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Walk visits every accessor depth first, a section's owner before its
// children. Returning false from fn stops the walk.
func (s *Section) Walk(fn func(Accessor) bool) bool {
	for _, a := range s.Accessors() {
		if !fn(a) {
			return false
		}
		if sub := a.Core().SubSection; sub != nil {
			if !sub.Walk(fn) {
				return false
			}
		}
	}
	return true
}

// Dump feeds every accessor of the section to d.
func (s *Section) Dump(d Dumper) {
	for _, a := range s.Accessors() {
		a.Dump(d)
	}
}

// Destroy releases every accessor of the tree.
func (s *Section) Destroy() {
	for _, a := range s.Accessors() {
		if sub := a.Core().SubSection; sub != nil {
			sub.Destroy()
		}
		a.Destroy()
	}
	s.accessors = nil
}
