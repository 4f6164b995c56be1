package accessors

import (
	"fmt"
	"path"

	"github.com/vk/gribdef/internal/codes"
	"github.com/vk/gribdef/internal/grib"
)

func init() {
	grib.Register("bufr_elements_table", func() grib.Accessor { return &ElementsTable{} })
}

// ElementsTable gives access to the BUFR element table selected by the
// message. The table directories are keys whose values may contain [key]
// patterns, such as tablesMasterDir = "bufr/tables/0/wmo/[masterTablesVersionNumber]".
type ElementsTable struct {
	grib.Base
	dictionary string
	masterDir  string
	localDir   string
}

func (a *ElementsTable) Init(_ int64, args grib.Arguments) error {
	h := a.Handle()
	var err error
	if a.dictionary, err = args.GetString(h, 0); err != nil {
		return fmt.Errorf("%s: dictionary: %w", a.Name, err)
	}
	a.masterDir = args.GetName(1)
	a.localDir = args.GetName(2)
	if a.masterDir == "" {
		return fmt.Errorf("%s: master directory key required: %w", a.Name, codes.ErrInvalidArgument)
	}
	a.Length = 0
	a.Flags |= grib.FlagHidden
	return nil
}

func (a *ElementsTable) NativeType() grib.NativeType { return grib.TypeString }
func (a *ElementsTable) Clone(s *grib.Section) (grib.Accessor, error) { return grib.CloneOf(a, s) }

func (a *ElementsTable) dir(key string) (string, error) {
	h := a.Handle()
	pattern, err := h.GetString(key)
	if err != nil {
		return "", err
	}
	return grib.RecomposeName(h, pattern)
}

// paths returns the master table path and, when configured, the local one.
func (a *ElementsTable) paths() (master, local string, err error) {
	dir, err := a.dir(a.masterDir)
	if err != nil {
		return "", "", err
	}
	master = path.Join(dir, a.dictionary)
	if a.localDir != "" && a.Handle().Has(a.localDir) {
		dir, err := a.dir(a.localDir)
		if err != nil {
			return "", "", err
		}
		local = path.Join(dir, a.dictionary)
	}
	return master, local, nil
}

// Descriptor looks code up in the local table first, then in the master
// table.
func (a *ElementsTable) Descriptor(code int64) (*grib.Element, error) {
	master, local, err := a.paths()
	if err != nil {
		return nil, err
	}
	gctx := a.Handle().Context
	if local != "" {
		if t, err := gctx.ElementTable(local); err == nil {
			if e, err := t.Lookup(code); err == nil {
				return e, nil
			}
		}
	}
	t, err := gctx.ElementTable(master)
	if err != nil {
		return nil, err
	}
	return t.Lookup(code)
}

func (a *ElementsTable) UnpackString(dst []byte) (int, error) {
	master, _, err := a.paths()
	if err != nil {
		return 0, err
	}
	return grib.CopyString(dst, master)
}

func (a *ElementsTable) UnpackLong(dst []int64) (int, error) {
	return 0, fmt.Errorf("%s: element table as long: %w", a.Name, codes.ErrNotImplemented)
}

func (a *ElementsTable) UnpackDouble(dst []float64) (int, error) {
	return 0, fmt.Errorf("%s: element table as double: %w", a.Name, codes.ErrNotImplemented)
}

func (a *ElementsTable) IsMissing() bool { return false }
