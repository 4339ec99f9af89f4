// Package bits manipulates little-endian bit fields in HID reports.
package bits

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Bits is a view over a byte slice. Bit 0 is the least significant bit of the
// first byte. Setters modify the underlying slice.
type Bits struct {
	missingBits uint8
	bytes       []byte
}

func New(data []byte, missingBits int) Bits {
	return Bits{
		bytes:       data,
		missingBits: uint8(missingBits),
	}
}

// NewZeros allocates a cleared bit field of bitLen bits.
func NewZeros(bitLen int) Bits {
	size := (bitLen + 7) / 8
	return Bits{
		bytes:       make([]byte, size),
		missingBits: uint8(size*8 - bitLen),
	}
}

// NewBitSetFromString parses the String format: space separated bytes written
// most significant bit first, the last byte possibly truncated.
func NewBitSetFromString(s string) (Bits, error) {
	byteStrs := strings.Fields(s)
	b := Bits{
		bytes: make([]byte, len(byteStrs)),
	}
	for i, byteStr := range byteStrs {
		if len(byteStr) > 8 {
			return Bits{}, fmt.Errorf("byte %d is longer than 8 bits", i)
		}
		if len(byteStr) < 8 {
			if i != len(byteStrs)-1 {
				return Bits{}, errors.New("incomplete byte in the middle of the string")
			}
			b.missingBits = 8 - uint8(len(byteStr))
			byteStr = byteStr + strings.Repeat("0", 8-len(byteStr))
		}
		byteVal, err := strconv.ParseUint(byteStr, 2, 8)
		if err != nil {
			return Bits{}, errors.New("invalid byte value")
		}
		b.bytes[i] = byte(byteVal)
	}
	return b, nil
}

func (b Bits) String() string {
	parts := make([]string, 0, len(b.bytes))
	for i, byte := range b.bytes {
		s := fmt.Sprintf("%08b", byte)
		if i == len(b.bytes)-1 && b.missingBits > 0 {
			s = s[:8-b.missingBits]
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

func (b Bits) Equal(other Bits) bool {
	if b.missingBits != other.missingBits || len(b.bytes) != len(other.bytes) {
		return false
	}
	for i, byte := range b.bytes {
		if byte != other.bytes[i] {
			return false
		}
	}
	return true
}

func (b Bits) Bytes() []byte {
	return b.bytes
}

func (b Bits) Len() int {
	return len(b.bytes)*8 - int(b.missingBits)
}

func (b Bits) IsSet(bit int) bool {
	if bit < 0 || bit >= b.Len() {
		return false
	}
	return b.bytes[bit/8]&(1<<(bit%8)) != 0
}

// Set sets a bit and reports whether it changed.
func (b Bits) Set(bit int) bool {
	if bit < 0 || bit >= b.Len() {
		return false
	}
	changed := b.bytes[bit/8]&(1<<(bit%8)) == 0
	b.bytes[bit/8] |= 1 << (bit % 8)
	return changed
}

// Clear clears a bit and reports whether it changed.
func (b Bits) Clear(bit int) bool {
	if bit < 0 || bit >= b.Len() {
		return false
	}
	changed := b.bytes[bit/8]&(1<<(bit%8)) != 0
	b.bytes[bit/8] &^= 1 << (bit % 8)
	return changed
}

func (b Bits) ClearAll() bool {
	changed := false
	for i := range b.bytes {
		if b.bytes[i] != 0 {
			changed = true
		}
		b.bytes[i] = 0
	}
	return changed
}

func (b Bits) IsEmpty() bool {
	for _, byte := range b.bytes {
		if byte != 0 {
			return false
		}
	}
	return true
}

// EachChanged calls f for every bit that differs between b and other, with
// the bit's value in b. Bits past the end of other count as cleared.
func (b Bits) EachChanged(other Bits, f func(bit int, set bool) bool) {
	for bit := 0; bit < b.Len(); bit++ {
		set := b.IsSet(bit)
		if set == other.IsSet(bit) {
			continue
		}
		if !f(bit, set) {
			return
		}
	}
}

func (b Bits) Clone() Bits {
	bytes := make([]byte, len(b.bytes))
	copy(bytes, b.bytes)
	return Bits{
		bytes:       bytes,
		missingBits: b.missingBits,
	}
}
