package grib

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vk/gribdef/internal/codes"
	"github.com/vk/gribdef/internal/ctxlog"
)

// Handle is one message: its bytes plus the accessor tree built from the
// definitions. A handle is not safe for concurrent use; share the Context
// instead.
type Handle struct {
	Context *Context
	Buffer  *Buffer
	Root    *Section
	Partial bool

	// Loader is set while the tree is built from defaults.
	Loader Loader

	index     map[string]Accessor
	observers map[string][]Accessor
	logger    *slog.Logger
}

// HandleOption configures a handle before its tree is built.
type HandleOption func(*Handle)

// WithPartial builds the tree only as far as the bytes go. Construction
// stops quietly at the first accessor that would cross the end.
func WithPartial() HandleOption {
	return func(h *Handle) { h.Partial = true }
}

func newHandle(ctx context.Context, gctx *Context, buf *Buffer, opts []HandleOption) *Handle {
	h := &Handle{
		Context:   gctx,
		Buffer:    buf,
		index:     make(map[string]Accessor),
		observers: make(map[string][]Accessor),
		logger:    ctxlog.FromContext(ctx),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewHandle decodes data with the definitions of gctx. The bytes are not
// copied; edits through the handle may replace the backing array.
func NewHandle(ctx context.Context, gctx *Context, data []byte, opts ...HandleOption) (*Handle, error) {
	h := newHandle(ctx, gctx, NewBuffer(data, false), opts)
	if err := h.build(nil, DecodeMode); err != nil {
		return nil, err
	}
	return h, nil
}

// NewEmptyHandle builds a message from the definitions' default values.
func NewEmptyHandle(ctx context.Context, gctx *Context, opts ...HandleOption) (*Handle, error) {
	h := newHandle(ctx, gctx, NewBuffer(nil, true), opts)
	if err := h.build(DefaultLoader{}, UpdateMode); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Handle) build(loader Loader, mode SizeMode) error {
	root, err := CreateRootSection(h)
	if err != nil {
		return err
	}
	program, err := h.Context.BootProgram()
	if err != nil {
		return err
	}
	h.Root = root
	h.Loader = loader
	defer func() { h.Loader = nil }()

	for _, act := range program {
		if err := act.CreateAccessor(root, loader); err != nil {
			if h.Partial && errors.Is(err, codes.ErrPrematureEnd) {
				h.logger.Debug("Partial message ends", "at", act.Name())
				break
			}
			return err
		}
	}
	if err := root.PostInit(); err != nil {
		return err
	}
	return AdjustSizes(root, mode, 0)
}

// SizeMode is the mode sections built inside this handle are adjusted in.
func (h *Handle) SizeMode() SizeMode {
	if h.Buffer.Growable {
		return UpdateMode
	}
	return DecodeMode
}

// Logger returns the handle's logger.
func (h *Handle) Logger() *slog.Logger { return h.logger }

// FindAccessor looks a key up. Besides plain names it accepts
// "namespace.name", aliases, and "name->attribute".
func (h *Handle) FindAccessor(name string) Accessor {
	if h == nil || name == "" {
		return nil
	}
	if a, ok := h.index[name]; ok {
		return a
	}
	if key, attr, ok := strings.Cut(name, "->"); ok {
		if a := h.FindAccessor(key); a != nil {
			return a.Core().Attribute(strings.ReplaceAll(attr, "->", "."))
		}
		return nil
	}
	if ns, key, ok := strings.Cut(name, "."); ok {
		for a := h.index[key]; a != nil; a = a.Core().Same {
			if a.Core().HasNameSpace(ns) {
				return a
			}
		}
		if a := h.findAlias(key, ns); a != nil {
			return a
		}
	}
	return h.findAlias(name, "")
}

func (h *Handle) findAlias(name, ns string) Accessor {
	if h.Root == nil {
		return nil
	}
	var found Accessor
	h.Root.Walk(func(a Accessor) bool {
		b := a.Core()
		for i, n := range b.AllNames {
			if n != name {
				continue
			}
			if ns == "" || (i < len(b.AllNameSpaces) && b.AllNameSpaces[i] == ns) || b.NameSpace == ns {
				found = a
			}
		}
		return true
	})
	return found
}

func (h *Handle) lookup(name string) (Accessor, error) {
	a := h.FindAccessor(name)
	if a == nil {
		return nil, fmt.Errorf("key %s: %w", name, codes.ErrNotFound)
	}
	return a, nil
}

// Has reports whether a key exists.
func (h *Handle) Has(name string) bool { return h.FindAccessor(name) != nil }

// IsMissing reports whether a key holds its missing value.
func (h *Handle) IsMissing(name string) (bool, error) {
	a, err := h.lookup(name)
	if err != nil {
		return false, err
	}
	return a.IsMissing(), nil
}

func (h *Handle) GetLong(name string) (int64, error) {
	a, err := h.lookup(name)
	if err != nil {
		return 0, err
	}
	var v [1]int64
	if _, err := a.UnpackLong(v[:]); err != nil {
		return 0, err
	}
	return v[0], nil
}

func (h *Handle) GetDouble(name string) (float64, error) {
	a, err := h.lookup(name)
	if err != nil {
		return 0, err
	}
	var v [1]float64
	if _, err := a.UnpackDouble(v[:]); err != nil {
		return 0, err
	}
	return v[0], nil
}

func (h *Handle) GetString(name string) (string, error) {
	a, err := h.lookup(name)
	if err != nil {
		return "", err
	}
	return UnpackStringValue(a)
}

func (h *Handle) GetBytes(name string) ([]byte, error) {
	a, err := h.lookup(name)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, a.ByteCount())
	n, err := a.UnpackBytes(buf)
	if need, ok := codes.Needed(err); ok {
		buf = make([]byte, need)
		n, err = a.UnpackBytes(buf)
	}
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// GetSize returns the number of values a key holds.
func (h *Handle) GetSize(name string) (int, error) {
	a, err := h.lookup(name)
	if err != nil {
		return 0, err
	}
	return a.ValueCount()
}

func (h *Handle) GetLongArray(name string) ([]int64, error) {
	a, err := h.lookup(name)
	if err != nil {
		return nil, err
	}
	return UnpackLongValues(a)
}

func (h *Handle) GetDoubleArray(name string) ([]float64, error) {
	a, err := h.lookup(name)
	if err != nil {
		return nil, err
	}
	return UnpackDoubleValues(a)
}

// set packs through fn and notifies the key's observers. Read-only keys
// are refused unless internal is set.
func (h *Handle) set(name string, internal bool, fn func(Accessor) error) error {
	a, err := h.lookup(name)
	if err != nil {
		return err
	}
	if !internal && a.Core().Flags.Has(FlagReadOnly) {
		return fmt.Errorf("key %s: %w", name, codes.ErrReadOnly)
	}
	if err := fn(a); err != nil {
		return err
	}
	return h.NotifyChange(a)
}

func (h *Handle) SetLong(name string, v int64) error {
	return h.set(name, false, func(a Accessor) error { return a.PackLong([]int64{v}) })
}

func (h *Handle) SetLongInternal(name string, v int64) error {
	return h.set(name, true, func(a Accessor) error { return a.PackLong([]int64{v}) })
}

func (h *Handle) SetDouble(name string, v float64) error {
	return h.set(name, false, func(a Accessor) error { return a.PackDouble([]float64{v}) })
}

func (h *Handle) SetDoubleInternal(name string, v float64) error {
	return h.set(name, true, func(a Accessor) error { return a.PackDouble([]float64{v}) })
}

func (h *Handle) SetString(name, v string) error {
	return h.set(name, false, func(a Accessor) error { return a.PackString(v) })
}

func (h *Handle) SetStringInternal(name, v string) error {
	return h.set(name, true, func(a Accessor) error { return a.PackString(v) })
}

func (h *Handle) SetBytes(name string, v []byte) error {
	return h.set(name, false, func(a Accessor) error { return a.PackBytes(v) })
}

func (h *Handle) SetLongArray(name string, v []int64) error {
	return h.set(name, false, func(a Accessor) error { return a.PackLong(v) })
}

func (h *Handle) SetDoubleArray(name string, v []float64) error {
	return h.set(name, false, func(a Accessor) error { return a.PackDouble(v) })
}

func (h *Handle) SetDoubleArrayInternal(name string, v []float64) error {
	return h.set(name, true, func(a Accessor) error { return a.PackDouble(v) })
}

// SetMissing stores the missing value of a key that can be missing.
func (h *Handle) SetMissing(name string) error {
	return h.set(name, false, func(a Accessor) error { return a.PackMissing() })
}

// Message returns a copy of the current message bytes.
func (h *Handle) Message() []byte {
	return append([]byte(nil), h.Buffer.Bytes()...)
}

// SectionLength returns the byte length of the section a key owns.
func (h *Handle) SectionLength(name string) (uint64, error) {
	a, err := h.lookup(name)
	if err != nil {
		return 0, err
	}
	sub := a.Core().SubSection
	if sub == nil {
		return 0, fmt.Errorf("key %s has no section: %w", name, codes.ErrInvalidArgument)
	}
	return sub.Length, nil
}

// Dump feeds the whole tree to d.
func (h *Handle) Dump(d Dumper) {
	h.Root.Dump(d)
}

// Clone decodes a copy of the current message into a new handle.
func (h *Handle) Clone(ctx context.Context) (*Handle, error) {
	var opts []HandleOption
	if h.Partial {
		opts = append(opts, WithPartial())
	}
	return NewHandle(ctx, h.Context, h.Message(), opts...)
}

// Close releases the accessor tree.
func (h *Handle) Close() {
	if h.Root != nil {
		h.Root.Destroy()
		h.Root = nil
	}
	clear(h.index)
	clear(h.observers)
}
