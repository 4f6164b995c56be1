// Package accessors holds the concrete accessor classes. Each class
// registers itself with the default grib registry from an init function,
// so importing the package for its side effects is enough:
//
//	import _ "github.com/vk/gribdef/internal/accessors"
//
// Definitions then refer to a class by its registered name, for example
// "unsigned", "section_length" or "data_g2simple_packing".
package accessors
