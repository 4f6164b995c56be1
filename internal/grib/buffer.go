package grib

import (
	"encoding/binary"
	"fmt"

	"github.com/vk/gribdef/internal/codes"
)

// Buffer is the byte image of one message. ULength is the used length; Data
// may be longer when the buffer has been grown ahead of use.
type Buffer struct {
	Data     []byte
	ULength  uint64
	Growable bool
}

// NewBuffer wraps data without copying it.
func NewBuffer(data []byte, growable bool) *Buffer {
	return &Buffer{Data: data, ULength: uint64(len(data)), Growable: growable}
}

// Bytes returns the used part of the buffer.
func (b *Buffer) Bytes() []byte { return b.Data[:b.ULength] }

// Grow makes sure at least size bytes are addressable. New bytes are zero.
func (b *Buffer) Grow(size uint64) {
	if size <= uint64(len(b.Data)) {
		return
	}
	grown := make([]byte, size)
	copy(grown, b.Data)
	b.Data = grown
}

// SetULength changes the used length, growing the storage if needed.
func (b *Buffer) SetULength(n uint64) {
	b.Grow(n)
	b.ULength = n
}

// Replace substitutes the oldLen bytes at offset with data, shifting the tail
// of the message when the lengths differ.
func (b *Buffer) Replace(offset, oldLen uint64, data []byte) error {
	if offset+oldLen > b.ULength {
		return fmt.Errorf("replace [%d:%d] beyond used length %d: %w",
			offset, offset+oldLen, b.ULength, codes.ErrInternal)
	}
	newLen := uint64(len(data))
	if newLen == oldLen {
		copy(b.Data[offset:], data)
		return nil
	}
	tail := append([]byte(nil), b.Data[offset+oldLen:b.ULength]...)
	total := b.ULength - oldLen + newLen
	b.Grow(total)
	copy(b.Data[offset:], data)
	copy(b.Data[offset+newLen:], tail)
	if total < b.ULength {
		clear(b.Data[total:b.ULength])
	}
	b.ULength = total
	return nil
}

// DecodeUnsigned reads nbits (0..64) starting at bit position pos, MSB first.
func DecodeUnsigned(data []byte, pos uint64, nbits uint) (uint64, error) {
	if nbits == 0 {
		return 0, nil
	}
	if nbits > 64 {
		return 0, fmt.Errorf("bit width %d exceeds 64: %w", nbits, codes.ErrDecoding)
	}
	end := pos + uint64(nbits)
	if end > uint64(len(data))*8 {
		return 0, fmt.Errorf("read %d bits at bit %d overflows %d bytes: %w",
			nbits, pos, len(data), codes.ErrDecoding)
	}
	if pos%8 == 0 {
		off := pos / 8
		switch nbits {
		case 8:
			return uint64(data[off]), nil
		case 16:
			return uint64(binary.BigEndian.Uint16(data[off:])), nil
		case 32:
			return uint64(binary.BigEndian.Uint32(data[off:])), nil
		case 64:
			return binary.BigEndian.Uint64(data[off:]), nil
		}
	}
	var v uint64
	for i := uint64(0); i < uint64(nbits); i++ {
		p := pos + i
		bit := (data[p/8] >> (7 - p%8)) & 1
		v = v<<1 | uint64(bit)
	}
	return v, nil
}

// EncodeUnsigned writes the low nbits of v at bit position pos, MSB first.
// Bits outside the field are left untouched.
func EncodeUnsigned(data []byte, pos uint64, nbits uint, v uint64) error {
	if nbits == 0 {
		return nil
	}
	if nbits > 64 {
		return fmt.Errorf("bit width %d exceeds 64: %w", nbits, codes.ErrEncoding)
	}
	if nbits < 64 && v>>nbits != 0 {
		return fmt.Errorf("value %d does not fit in %d bits: %w", v, nbits, codes.ErrOutOfRange)
	}
	end := pos + uint64(nbits)
	if end > uint64(len(data))*8 {
		return fmt.Errorf("write %d bits at bit %d overflows %d bytes: %w",
			nbits, pos, len(data), codes.ErrEncoding)
	}
	for i := uint64(0); i < uint64(nbits); i++ {
		p := pos + i
		mask := byte(1) << (7 - p%8)
		if v>>(uint64(nbits)-1-i)&1 == 1 {
			data[p/8] |= mask
		} else {
			data[p/8] &^= mask
		}
	}
	return nil
}

// Ones returns a value with the low n bits set.
func Ones(n uint) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return 1<<n - 1
}
