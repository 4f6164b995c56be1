package grib

import "slices"

// CloneOf copies a concrete accessor into section s. Scalar state is copied
// as is; the copy gets its own alias lists and deep copies of its
// attributes. Classes holding slices or maps of their own copy those after
// calling CloneOf.
func CloneOf[T any, P interface {
	*T
	Accessor
}](src P, s *Section) (Accessor, error) {
	dst := P(new(T))
	*dst = *src

	b := dst.Core()
	b.Bind(dst)
	b.Parent = s
	b.Same = nil
	b.SubSection = nil
	b.ParentAsAttribute = nil
	b.AllNames = slices.Clone(b.AllNames)
	b.AllNameSpaces = slices.Clone(b.AllNameSpaces)
	b.Attributes = nil

	for _, attr := range src.Core().Attributes {
		c, err := attr.Clone(s)
		if err != nil {
			return nil, err
		}
		b.AddAttribute(c)
	}
	return dst, nil
}

// CloneSection copies every accessor of src, in order, into a new section
// of the same handle.
func CloneSection(src *Section) (*Section, error) {
	dst := &Section{Handle: src.Handle, Padding: src.Padding, Length: src.Length}
	for _, a := range src.accessors {
		c, err := a.Clone(dst)
		if err != nil {
			return nil, err
		}
		dst.accessors = append(dst.accessors, c)
		if a == src.LengthAccessor {
			dst.LengthAccessor = c
		}
	}
	return dst, nil
}
