package accessors

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/vk/gribdef/internal/codes"
	"github.com/vk/gribdef/internal/ctxlog"
	"github.com/vk/gribdef/internal/grib"
)

func init() {
	grib.Register("ascii", func() grib.Accessor { return &ASCII{} })
	grib.Register("ksec1expver", func() grib.Accessor { return &Ksec1Expver{} })
	grib.Register("bytes", func() grib.Accessor { return &Bytes{} })
	grib.Register("message", func() grib.Accessor { return &Message{} })
}

// ASCII is a fixed width text field, NUL padded.
type ASCII struct {
	grib.Base
}

func (a *ASCII) NativeType() grib.NativeType { return grib.TypeString }
func (a *ASCII) StringLength() int { return int(a.Length) }
func (a *ASCII) Clone(s *grib.Section) (grib.Accessor, error) { return grib.CloneOf(a, s) }

func (a *ASCII) UnpackString(dst []byte) (int, error) {
	raw := a.Raw()
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return grib.CopyString(dst, string(raw))
}

func (a *ASCII) PackString(s string) error {
	if uint64(len(s)) > a.Length {
		return fmt.Errorf("%s: %d characters for a %d byte field: %w",
			a.Name, len(s), a.Length, codes.ErrStringTooSmall)
	}
	buf := make([]byte, a.Length)
	copy(buf, s)
	return a.ReplaceBytes(buf)
}

func (a *ASCII) PackLong(v []int64) error {
	if len(v) != 1 {
		return fmt.Errorf("%s: %d values: %w", a.Name, len(v), codes.ErrCountMismatch)
	}
	return a.PackString(strconv.FormatInt(v[0], 10))
}

// IsMissing reports an all-0xFF field.
func (a *ASCII) IsMissing() bool { return a.Base.IsMissing() }

// Ksec1Expver is the four character experiment version. As a long it reads
// the four bytes as one big-endian integer.
type Ksec1Expver struct {
	ASCII
}

func (a *Ksec1Expver) Init(length int64, args grib.Arguments) error {
	if length != 4 {
		return fmt.Errorf("%s: experiment version must be 4 bytes, not %d: %w", a.Name, length, codes.ErrInvalidArgument)
	}
	return a.ASCII.Init(length, args)
}

func (a *Ksec1Expver) Clone(s *grib.Section) (grib.Accessor, error) { return grib.CloneOf(a, s) }

func (a *Ksec1Expver) UnpackLong(dst []int64) (int, error) {
	if len(dst) < 1 {
		return 0, codes.ArrayTooSmall(1)
	}
	raw := a.Raw()
	if len(raw) != 4 {
		return 0, fmt.Errorf("%s: %w", a.Name, codes.ErrDecoding)
	}
	dst[0] = int64(binary.BigEndian.Uint32(raw))
	return 1, nil
}

func (a *Ksec1Expver) PackString(s string) error {
	if len(s) != 4 {
		return fmt.Errorf("%s: value must be 4 characters, got %q: %w", a.Name, s, codes.ErrInvalidArgument)
	}
	return a.ASCII.PackString(s)
}

func (a *Ksec1Expver) PackLong(v []int64) error {
	if len(v) != 1 {
		return fmt.Errorf("%s: %d values: %w", a.Name, len(v), codes.ErrCountMismatch)
	}
	return a.PackString(fmt.Sprintf("%04d", v[0]))
}

// Bytes is an opaque byte field. Its string form is lowercase hex.
type Bytes struct {
	grib.Base
}

func (a *Bytes) NativeType() grib.NativeType { return grib.TypeBytes }
func (a *Bytes) StringLength() int { return int(a.Length) * 2 }
func (a *Bytes) Clone(s *grib.Section) (grib.Accessor, error) { return grib.CloneOf(a, s) }

func (a *Bytes) UnpackString(dst []byte) (int, error) {
	return grib.CopyString(dst, hex.EncodeToString(a.Raw()))
}

func (a *Bytes) PackString(s string) error {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("%s: %q is not hex: %w", a.Name, s, codes.ErrWrongConversion)
	}
	return a.PackBytes(b)
}

func (a *Bytes) Compare(other grib.Accessor) error {
	x := a.Raw()
	y := make([]byte, other.ByteCount())
	if _, err := other.UnpackBytes(y); err != nil {
		return err
	}
	if len(x) != len(y) {
		return fmt.Errorf("%s: %d bytes against %d: %w", a.Name, len(x), len(y), codes.ErrCountMismatch)
	}
	if !bytes.Equal(x, y) {
		return fmt.Errorf("%s: %w", a.Name, codes.ErrValueMismatch)
	}
	return nil
}

// Message covers every byte from its offset to the end of the message
// minus a trailer of length bytes. Its extent is derived, so it cannot be
// resized.
type Message struct {
	Bytes
}

func (a *Message) Init(length int64, args grib.Arguments) error {
	a.Flags |= grib.FlagReadOnly | grib.FlagEditionSpecific
	used := a.Handle().Buffer.ULength
	trailer := uint64(max(length, 0))
	if used >= a.Offset+trailer {
		a.Length = used - trailer - a.Offset
	}
	return nil
}

func (a *Message) Clone(s *grib.Section) (grib.Accessor, error) { return grib.CloneOf(a, s) }
func (a *Message) ValueCount() (int, error) { return 1, nil }
func (a *Message) StringLength() int { return int(a.Length) }

func (a *Message) UnpackString(dst []byte) (int, error) {
	return grib.CopyString(dst, string(a.Raw()))
}

func (a *Message) Resize(size uint64) error {
	ctxlog.Fatal(a.Handle().Logger(), "Resize not supported", "class", a.Class, "name", a.Name, "size", size)
	return fmt.Errorf("%s: resize of %s: %w", a.Name, a.Class, codes.ErrNotImplemented)
}
