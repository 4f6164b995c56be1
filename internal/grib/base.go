package grib

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/vk/gribdef/internal/codes"
)

// defaultStringLength is the first-try buffer size for string unpacking when
// a class does not know its length up front.
const defaultStringLength = 1024

// Base holds the state every accessor shares and implements the generic
// behaviour: conversions between native types, raw byte access, comparison
// and dumping. Methods that depend on the concrete class dispatch through
// self, so a class overriding NativeType or UnpackLong is seen by the
// generic code.
type Base struct {
	Name          string
	NameSpace     string
	AllNames      []string
	AllNameSpaces []string
	Class         string

	Creator    Action
	Parent     *Section
	SubSection *Section

	Offset uint64
	Length uint64
	Flags  Flags

	// Same links to the accessor previously indexed under Name.
	Same              Accessor
	Attributes        []Accessor
	ParentAsAttribute Accessor

	self Accessor
}

func (b *Base) Core() *Base { return b }
func (b *Base) ClassName() string { return b.Class }

// Self returns the concrete accessor this Base is embedded in.
func (b *Base) Self() Accessor { return b.self }

// Bind attaches the concrete accessor to its embedded Base. The registry
// does this for every instance it builds.
func (b *Base) Bind(self Accessor) { b.self = self }

// Handle returns the message handle owning this accessor.
func (b *Base) Handle() *Handle {
	if b.Parent == nil {
		return nil
	}
	return b.Parent.Handle
}

// HasName reports whether name is the accessor's name or one of its aliases.
func (b *Base) HasName(name string) bool {
	for _, n := range b.AllNames {
		if n == name {
			return true
		}
	}
	return b.Name == name
}

// HasNameSpace reports whether the accessor is visible under ns.
func (b *Base) HasNameSpace(ns string) bool {
	if b.NameSpace == ns {
		return true
	}
	for _, n := range b.AllNameSpaces {
		if n == ns {
			return true
		}
	}
	return false
}

// Alias registers an extra name, optionally within a namespace.
func (b *Base) Alias(name, ns string) {
	b.AllNames = append(b.AllNames, name)
	b.AllNameSpaces = append(b.AllNameSpaces, ns)
}

// Raw returns the message bytes covered by the accessor.
func (b *Base) Raw() []byte {
	h := b.Handle()
	if h == nil || b.Offset+b.Length > uint64(len(h.Buffer.Data)) {
		return nil
	}
	return h.Buffer.Data[b.Offset : b.Offset+b.Length]
}

func (b *Base) Init(length int64, _ Arguments) error {
	if length > 0 {
		b.Length = uint64(length)
	}
	return nil
}

func (b *Base) PostInit() error { return nil }

func (b *Base) Destroy() {
	for _, a := range b.Attributes {
		a.Destroy()
	}
	b.Attributes = nil
}

func (b *Base) NativeType() NativeType { return TypeUndefined }
func (b *Base) ValueCount() (int, error) { return 1, nil }
func (b *Base) StringLength() int { return defaultStringLength }

func (b *Base) ByteCount() uint64 { return b.Length }
func (b *Base) ByteOffset() uint64 { return b.Offset }
func (b *Base) NextOffset() uint64 { return b.Offset + b.Length }
func (b *Base) PreferredSize(fromHandle bool) uint64 { return b.Length }
func (b *Base) UpdateSize(size uint64) { b.Length = size }

func (b *Base) Resize(size uint64) error {
	return fmt.Errorf("%s: resize to %d: %w", b.Name, size, codes.ErrNotImplemented)
}

func (b *Base) Clone(*Section) (Accessor, error) {
	return nil, fmt.Errorf("%s: clone of class %s: %w", b.Name, b.Class, codes.ErrNotImplemented)
}

func (b *Base) UnpackLong(dst []int64) (int, error) {
	switch b.self.NativeType() {
	case TypeDouble:
		n, err := b.self.ValueCount()
		if err != nil {
			return 0, err
		}
		if len(dst) < n {
			return 0, codes.ArrayTooSmall(n)
		}
		v := make([]float64, n)
		got, err := b.self.UnpackDouble(v)
		if err != nil {
			return 0, err
		}
		for i, d := range v[:got] {
			if d == MissingDouble {
				dst[i] = MissingLong
			} else {
				dst[i] = int64(d)
			}
		}
		return got, nil
	case TypeString:
		if len(dst) < 1 {
			return 0, codes.ArrayTooSmall(1)
		}
		s, err := UnpackStringValue(b.self)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %q as long: %w", b.Name, s, codes.ErrWrongConversion)
		}
		dst[0] = v
		return 1, nil
	}
	return 0, fmt.Errorf("%s: unpack long: %w", b.Name, codes.ErrNotImplemented)
}

func (b *Base) UnpackDouble(dst []float64) (int, error) {
	switch b.self.NativeType() {
	case TypeLong:
		n, err := b.self.ValueCount()
		if err != nil {
			return 0, err
		}
		if len(dst) < n {
			return 0, codes.ArrayTooSmall(n)
		}
		v := make([]int64, n)
		got, err := b.self.UnpackLong(v)
		if err != nil {
			return 0, err
		}
		for i, l := range v[:got] {
			dst[i] = float64(l)
		}
		return got, nil
	case TypeString:
		if len(dst) < 1 {
			return 0, codes.ArrayTooSmall(1)
		}
		s, err := UnpackStringValue(b.self)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %q as double: %w", b.Name, s, codes.ErrWrongConversion)
		}
		dst[0] = v
		return 1, nil
	}
	return 0, fmt.Errorf("%s: unpack double: %w", b.Name, codes.ErrNotImplemented)
}

// UnpackString formats numeric values. Arrays are written space separated.
func (b *Base) UnpackString(dst []byte) (int, error) {
	var parts []string
	switch b.self.NativeType() {
	case TypeDouble:
		v, err := UnpackDoubleValues(b.self)
		if err != nil {
			return 0, err
		}
		for _, d := range v {
			parts = append(parts, FormatDouble(d))
		}
	case TypeLong:
		v, err := UnpackLongValues(b.self)
		if err != nil {
			return 0, err
		}
		for _, l := range v {
			parts = append(parts, strconv.FormatInt(l, 10))
		}
	default:
		return 0, fmt.Errorf("%s: unpack string: %w", b.Name, codes.ErrNotImplemented)
	}
	return CopyString(dst, strings.Join(parts, " "))
}

func (b *Base) UnpackBytes(dst []byte) (int, error) {
	raw := b.Raw()
	if raw == nil && b.Length > 0 {
		return 0, fmt.Errorf("%s: bytes beyond message: %w", b.Name, codes.ErrDecoding)
	}
	if len(dst) < len(raw) {
		return 0, codes.TooSmall(len(raw))
	}
	return copy(dst, raw), nil
}

func (b *Base) PackLong(v []int64) error {
	if len(v) == 0 {
		return fmt.Errorf("%s: pack of no values: %w", b.Name, codes.ErrInvalidArgument)
	}
	switch b.self.NativeType() {
	case TypeDouble:
		d := make([]float64, len(v))
		for i, x := range v {
			d[i] = float64(x)
		}
		return b.self.PackDouble(d)
	case TypeString:
		return b.self.PackString(strconv.FormatInt(v[0], 10))
	}
	return fmt.Errorf("%s: pack long: %w", b.Name, codes.ErrNotImplemented)
}

func (b *Base) PackDouble(v []float64) error {
	if len(v) == 0 {
		return fmt.Errorf("%s: pack of no values: %w", b.Name, codes.ErrInvalidArgument)
	}
	switch b.self.NativeType() {
	case TypeLong:
		l := make([]int64, len(v))
		for i, x := range v {
			l[i] = int64(x)
		}
		return b.self.PackLong(l)
	case TypeString:
		return b.self.PackString(FormatDouble(v[0]))
	}
	return fmt.Errorf("%s: pack double: %w", b.Name, codes.ErrNotImplemented)
}

func (b *Base) PackString(s string) error {
	switch b.self.NativeType() {
	case TypeLong:
		v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %q as long: %w", b.Name, s, codes.ErrWrongConversion)
		}
		return b.self.PackLong([]int64{v})
	case TypeDouble:
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("%s: %q as double: %w", b.Name, s, codes.ErrWrongConversion)
		}
		return b.self.PackDouble([]float64{v})
	}
	return fmt.Errorf("%s: pack string: %w", b.Name, codes.ErrNotImplemented)
}

func (b *Base) PackBytes(v []byte) error {
	if uint64(len(v)) != b.Length {
		return fmt.Errorf("%s: pack %d bytes into %d: %w", b.Name, len(v), b.Length, codes.ErrBufferTooSmall)
	}
	return b.ReplaceBytes(v)
}

func (b *Base) PackExpression(e Expression) error {
	h := b.Handle()
	switch e.NativeType(h) {
	case TypeLong:
		v, err := e.EvaluateLong(h)
		if err != nil {
			return fmt.Errorf("%s: evaluate %s: %w", b.Name, e, err)
		}
		return b.self.PackLong([]int64{v})
	case TypeDouble:
		v, err := e.EvaluateDouble(h)
		if err != nil {
			return fmt.Errorf("%s: evaluate %s: %w", b.Name, e, err)
		}
		return b.self.PackDouble([]float64{v})
	case TypeString:
		v, err := e.EvaluateString(h)
		if err != nil {
			return fmt.Errorf("%s: evaluate %s: %w", b.Name, e, err)
		}
		return b.self.PackString(v)
	}
	return fmt.Errorf("%s: pack expression %s: %w", b.Name, e, codes.ErrNotImplemented)
}

func (b *Base) PackMissing() error {
	if !b.Flags.Has(FlagCanBeMissing) {
		return fmt.Errorf("%s: value cannot be missing: %w", b.Name, codes.ErrInvalidArgument)
	}
	switch b.self.NativeType() {
	case TypeLong:
		return b.self.PackLong([]int64{MissingLong})
	case TypeDouble:
		return b.self.PackDouble([]float64{MissingDouble})
	}
	return fmt.Errorf("%s: missing for %s: %w", b.Name, b.self.NativeType(), codes.ErrInvalidArgument)
}

// IsMissing reports whether every byte of the field is 0xFF.
func (b *Base) IsMissing() bool {
	raw := b.Raw()
	if len(raw) == 0 {
		return false
	}
	for _, c := range raw {
		if c != 0xFF {
			return false
		}
	}
	return true
}

func (b *Base) Compare(other Accessor) error {
	na, err := b.self.ValueCount()
	if err != nil {
		return err
	}
	nb, err := other.ValueCount()
	if err != nil {
		return err
	}
	if na != nb {
		return fmt.Errorf("%s: %d values against %d: %w", b.Name, na, nb, codes.ErrCountMismatch)
	}

	switch b.self.NativeType() {
	case TypeLong:
		x, y, err := unpackBothLong(b.self, other, na)
		if err != nil {
			return err
		}
		for i := range x {
			if x[i] != y[i] {
				return fmt.Errorf("%s[%d]: %d != %d: %w", b.Name, i, x[i], y[i], codes.ErrValueMismatch)
			}
		}
	case TypeDouble:
		x, err := UnpackDoubleValues(b.self)
		if err != nil {
			return err
		}
		y, err := UnpackDoubleValues(other)
		if err != nil {
			return err
		}
		for i := range x {
			if x[i] != y[i] {
				return fmt.Errorf("%s[%d]: %g != %g: %w", b.Name, i, x[i], y[i], codes.ErrDoubleValueMismatch)
			}
		}
	case TypeString:
		x, err := UnpackStringValue(b.self)
		if err != nil {
			return err
		}
		y, err := UnpackStringValue(other)
		if err != nil {
			return err
		}
		if x != y {
			return fmt.Errorf("%s: %q != %q: %w", b.Name, x, y, codes.ErrValueMismatch)
		}
	default:
		x := make([]byte, b.self.ByteCount())
		y := make([]byte, other.ByteCount())
		if _, err := b.self.UnpackBytes(x); err != nil {
			return err
		}
		if _, err := other.UnpackBytes(y); err != nil {
			return err
		}
		if !bytes.Equal(x, y) {
			return fmt.Errorf("%s: bytes differ: %w", b.Name, codes.ErrValueMismatch)
		}
	}
	return nil
}

func (b *Base) Dump(d Dumper) {
	switch b.self.NativeType() {
	case TypeString:
		d.DumpString(b.self, "")
	case TypeDouble:
		d.DumpDouble(b.self, "")
	case TypeLong:
		d.DumpLong(b.self, "")
	case TypeLabel:
		d.DumpLabel(b.self, "")
	case TypeSection:
		d.DumpSection(b.self, b.SubSection)
	default:
		d.DumpBytes(b.self, "")
	}
}

// ReplaceBytes writes data over the accessor's bytes. When the length
// changes the tail of the message moves and section lengths and offsets
// are brought back in sync. Paddings are re-evaluated either way.
func (b *Base) ReplaceBytes(data []byte) error { return b.replace(data, true) }

// ResizeBytes is ReplaceBytes without the padding pass. Padding accessors
// use it from Resize, which itself runs inside that pass.
func (b *Base) ResizeBytes(data []byte) error { return b.replace(data, false) }

func (b *Base) replace(data []byte, paddings bool) error {
	h := b.Handle()
	if h == nil {
		return fmt.Errorf("%s: not attached to a message: %w", b.Name, codes.ErrInternal)
	}
	oldLen := b.Length
	if err := h.Buffer.Replace(b.Offset, oldLen, data); err != nil {
		return fmt.Errorf("%s: %w", b.Name, err)
	}
	if uint64(len(data)) == oldLen {
		// Paddings may depend on the value just written.
		if !paddings {
			return nil
		}
		return UpdatePaddings(h.Root)
	}
	b.self.UpdateSize(uint64(len(data)))
	if err := AdjustSizes(h.Root, UpdateMode, 0); err != nil {
		return err
	}
	if !paddings {
		return nil
	}
	return UpdatePaddings(h.Root)
}

// AddAttribute attaches a child attribute accessor.
func (b *Base) AddAttribute(a Accessor) {
	a.Core().ParentAsAttribute = b.self
	b.Attributes = append(b.Attributes, a)
}

// Attribute returns the attribute called name. A dotted name such as
// "code.units" descends into nested attributes.
func (b *Base) Attribute(name string) Accessor {
	head, rest, nested := strings.Cut(name, ".")
	for _, a := range b.Attributes {
		if a.Core().Name != head {
			continue
		}
		if nested {
			return a.Core().Attribute(rest)
		}
		return a
	}
	return nil
}

// CopyString copies s into dst and returns its length. The length of s, not
// counting any terminator, is the size a caller must supply.
func CopyString(dst []byte, s string) (int, error) {
	if len(dst) < len(s) {
		return 0, codes.TooSmall(len(s))
	}
	return copy(dst, s), nil
}

// UnpackStringValue unpacks a string, sizing the buffer from the accessor
// and retrying once with the size it reports.
func UnpackStringValue(a Accessor) (string, error) {
	buf := make([]byte, a.StringLength())
	n, err := a.UnpackString(buf)
	if need, ok := codes.Needed(err); ok {
		buf = make([]byte, need)
		n, err = a.UnpackString(buf)
	}
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}

// UnpackLongValues unpacks every long value of a.
func UnpackLongValues(a Accessor) ([]int64, error) {
	n, err := a.ValueCount()
	if err != nil {
		return nil, err
	}
	v := make([]int64, max(n, 1))
	got, err := a.UnpackLong(v)
	if need, ok := codes.Needed(err); ok {
		v = make([]int64, need)
		got, err = a.UnpackLong(v)
	}
	if err != nil {
		return nil, err
	}
	return v[:got], nil
}

// UnpackDoubleValues unpacks every double value of a.
func UnpackDoubleValues(a Accessor) ([]float64, error) {
	n, err := a.ValueCount()
	if err != nil {
		return nil, err
	}
	v := make([]float64, max(n, 1))
	got, err := a.UnpackDouble(v)
	if need, ok := codes.Needed(err); ok {
		v = make([]float64, need)
		got, err = a.UnpackDouble(v)
	}
	if err != nil {
		return nil, err
	}
	return v[:got], nil
}

func unpackBothLong(a, b Accessor, n int) ([]int64, []int64, error) {
	x, err := UnpackLongValues(a)
	if err != nil {
		return nil, nil, err
	}
	y, err := UnpackLongValues(b)
	if err != nil {
		return nil, nil, err
	}
	if len(x) != n || len(y) != n {
		return nil, nil, fmt.Errorf("%s: unpacked %d and %d of %d values: %w",
			a.Core().Name, len(x), len(y), n, codes.ErrCountMismatch)
	}
	return x, y, nil
}
