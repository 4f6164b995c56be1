package grib

import (
	"fmt"

	"github.com/vk/gribdef/internal/codes"
	"github.com/vk/gribdef/internal/ctxlog"
)

// SizeMode selects how AdjustSizes treats disagreements between recorded
// and computed geometry.
type SizeMode int

const (
	// DecodeMode trusts the message: a misplaced accessor is an error and a
	// declared section length larger than the content becomes padding.
	DecodeMode SizeMode = iota
	// UpdateMode trusts the accessors: offsets are re-seated and section
	// length keys are rewritten.
	UpdateMode
	// ForceUpdateMode rewrites section length keys even when they agree.
	ForceUpdateMode
)

// CreateRootSection makes the empty top-level section of h. The context's
// boot program is parsed on first use.
func CreateRootSection(h *Handle) (*Section, error) {
	if _, err := h.Context.BootProgram(); err != nil {
		return nil, err
	}
	h.logger.Debug("Creating root section")
	return &Section{Handle: h}, nil
}

// CreateAccessor builds one accessor of act's class at the end of s. The
// accessor is initialised but not pushed.
//
// When the new accessor ends beyond the used length of the message the
// buffer grows if it can. Otherwise the accessor is dropped: a partial
// decode reports ErrPrematureEnd, a complete one ErrDecoding.
func CreateAccessor(s *Section, act Action, length int64, args Arguments) (Accessor, error) {
	h := s.Handle
	a, err := h.Context.Registry().New(act.Op())
	if err != nil {
		ctxlog.Fatal(h.logger, "Unable to create accessor",
			"class", act.Op(), "name", act.Name(), "definitions", h.Context.SearchPath(), "error", err)
		return nil, err
	}

	b := a.Core()
	b.Name = act.Name()
	b.NameSpace = act.NameSpace()
	b.AllNames = []string{act.Name()}
	b.AllNameSpaces = []string{act.NameSpace()}
	b.Creator = act
	b.Parent = s
	b.Flags = act.Flags()
	b.Offset = s.NextOffset()

	if err := a.Init(length, args); err != nil {
		a.Destroy()
		return nil, fmt.Errorf("init %s (%s): %w", b.Name, b.Class, err)
	}

	end := a.NextOffset()
	if end > h.Buffer.ULength {
		if !h.Buffer.Growable {
			a.Destroy()
			if h.Partial {
				return nil, codes.ErrPrematureEnd
			}
			h.logger.Error("Creating accessor over message boundary",
				"owner", ownerName(s), "name", b.Name, "class", act.Op(),
				"offset", b.Offset, "end", end, "message_length", h.Buffer.ULength)
			return nil, fmt.Errorf("%s at %d-%d over message boundary %d: %w",
				b.Name, b.Offset, end, h.Buffer.ULength, codes.ErrDecoding)
		}
		h.logger.Debug("Growing message", "name", b.Name, "class", b.Class,
			"offset", b.Offset, "length", b.Length)
		h.Buffer.SetULength(end)
	}

	h.logger.Debug("Creating accessor", "owner", ownerName(s), "name", b.Name,
		"class", b.Class, "offset", b.Offset, "length", length)
	return a, nil
}

func ownerName(s *Section) string {
	if s.Owner == nil {
		return "root"
	}
	return s.Owner.Core().Name
}

// AdjustSizes walks s children first, checking that every accessor starts
// where its predecessor ends and summing lengths into the section length.
// The result is reconciled with the section's length key and propagated to
// the owning accessor.
func AdjustSizes(s *Section, mode SizeMode, depth int) error {
	if s == nil {
		return nil
	}
	h := s.Handle

	var length uint64
	if mode == DecodeMode {
		length = s.Padding
	}
	offset := s.StartOffset()

	for _, a := range s.accessors {
		b := a.Core()
		if b.Offset != offset {
			if mode == DecodeMode {
				h.logger.Error("Offset mismatch",
					"accessor", b.Name, "offset", b.Offset, "actual", offset,
					"hint", "check section lengths are in sync with their contents")
				return fmt.Errorf("offset mismatch for %s: recorded %d, actual %d: %w",
					b.Name, b.Offset, offset, codes.ErrDecoding)
			}
			b.Offset = offset
		}
		if err := AdjustSizes(b.SubSection, mode, depth+1); err != nil {
			return err
		}
		length += b.Length
		offset += b.Length
	}

	if s.LengthAccessor != nil {
		var v [1]int64
		if _, err := s.LengthAccessor.UnpackLong(v[:]); err != nil {
			return fmt.Errorf("section length %s: %w", s.LengthAccessor.Core().Name, err)
		}
		declared := uint64(max(v[0], 0))
		if declared != length || mode == ForceUpdateMode {
			if mode != DecodeMode {
				if err := s.LengthAccessor.PackLong([]int64{int64(length)}); err != nil {
					return err
				}
				s.Padding = 0
			} else {
				if !h.Partial {
					if length >= declared {
						if s.Owner != nil {
							h.logger.Error("Invalid section size",
								"section", s.Owner.Core().Name, "declared", declared, "assuming", length)
						}
						declared = length
					}
					s.Padding = declared - length
				}
				length = declared
			}
		}
	}

	if s.Owner != nil {
		s.Owner.Core().Length = length
	}
	s.Length = length
	return nil
}

// FindPaddings returns the first accessor, sub-sections first, whose length
// differs from its preferred size.
func FindPaddings(s *Section) Accessor {
	for _, a := range s.Accessors() {
		if p := FindPaddings(a.Core().SubSection); p != nil {
			return p
		}
		if a.PreferredSize(false) != a.Core().Length {
			return a
		}
	}
	return nil
}

// UpdatePaddings resizes accessors to their preferred size until none is
// left. Each accessor may be resized once; meeting one again means the
// layout does not converge.
func UpdatePaddings(root *Section) error {
	resized := make(map[Accessor]bool)
	for {
		a := FindPaddings(root)
		if a == nil {
			return nil
		}
		if resized[a] {
			return fmt.Errorf("padding of %s does not converge: %w", a.Core().Name, codes.ErrInternal)
		}
		resized[a] = true
		if err := a.Resize(a.PreferredSize(false)); err != nil {
			return fmt.Errorf("resize %s: %w", a.Core().Name, err)
		}
	}
}

// CreateAttribute builds an attribute accessor of act's class for owner.
// Attributes sit at the owner's offset and are neither pushed into a
// section nor checked against the message end.
func CreateAttribute(owner Accessor, act Action, length int64, args Arguments) (Accessor, error) {
	ob := owner.Core()
	h := ob.Handle()
	a, err := h.Context.Registry().New(act.Op())
	if err != nil {
		ctxlog.Fatal(h.logger, "Unable to create attribute",
			"class", act.Op(), "name", act.Name(), "owner", ob.Name, "error", err)
		return nil, err
	}

	b := a.Core()
	b.Name = act.Name()
	b.NameSpace = act.NameSpace()
	b.AllNames = []string{act.Name()}
	b.AllNameSpaces = []string{act.NameSpace()}
	b.Creator = act
	b.Parent = ob.Parent
	b.Flags = act.Flags()
	b.Offset = ob.Offset

	if err := a.Init(length, args); err != nil {
		a.Destroy()
		return nil, fmt.Errorf("init attribute %s->%s (%s): %w", ob.Name, b.Name, b.Class, err)
	}
	ob.AddAttribute(a)
	return a, nil
}
