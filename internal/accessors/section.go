package accessors

import (
	"github.com/vk/gribdef/internal/grib"
)

func init() {
	grib.Register("section", func() grib.Accessor { return &Section{} })
}

// Section owns a nested section. Its length is the sum of the children's,
// kept up to date by size adjustment.
type Section struct {
	grib.Base
}

func (a *Section) Init(int64, grib.Arguments) error {
	a.Length = 0
	return nil
}

func (a *Section) NativeType() grib.NativeType { return grib.TypeSection }
func (a *Section) ValueCount() (int, error) { return 0, nil }
func (a *Section) IsMissing() bool { return false }

// NextOffset is where the section's content ends. While children are still
// being added that is beyond the recorded length.
func (a *Section) NextOffset() uint64 {
	if sub := a.SubSection; sub != nil && sub.Len() > 0 {
		return max(sub.NextOffset(), a.Offset+a.Length)
	}
	return a.Offset + a.Length
}

func (a *Section) Dump(d grib.Dumper) { d.DumpSection(a, a.SubSection) }

func (a *Section) Clone(s *grib.Section) (grib.Accessor, error) {
	c, err := grib.CloneOf(a, s)
	if err != nil {
		return nil, err
	}
	if a.SubSection != nil {
		sub, err := grib.CloneSection(a.SubSection)
		if err != nil {
			return nil, err
		}
		sub.Owner = c
		c.Core().SubSection = sub
	}
	return c, nil
}
