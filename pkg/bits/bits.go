package bits

import (
	"encoding/binary"
	"fmt"
	"slices"
	"strings"
)

// Bits is a bit buffer addressed LSB-first: bit 0 is the lowest bit of the first byte.
// The last byte may be partially used, missingBits counts its unused high bits.
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

func NewZeros(bitSize int) Bits {
	byteSize := (bitSize + 7) / 8
	return Bits{
		bytes:       make([]byte, byteSize),
		missingBits: uint8(byteSize*8 - bitSize),
	}
}

func (b Bits) String() string {
	parts := make([]string, len(b.bytes))
	for i, byte := range b.bytes {
		if i == len(b.bytes)-1 && b.missingBits > 0 {
			parts[i] = fmt.Sprintf("%0*b", 8-int(b.missingBits), byte)
			continue
		}
		parts[i] = fmt.Sprintf("%08b", byte)
	}
	return strings.Join(parts, " ")
}

func (b Bits) Equal(other Bits) bool {
	return b.missingBits == other.missingBits && slices.Equal(b.bytes, other.bytes)
}

func (b Bits) Bytes() []byte {
	return b.bytes
}

func (b Bits) Len() int {
	return len(b.bytes)*8 - int(b.missingBits)
}

func (b Bits) IsSet(bit int) bool {
	if bit >= b.Len() {
		return false
	}
	return b.bytes[bit/8]&(1<<(bit%8)) != 0
}

func (b Bits) Set(bit int) bool {
	if bit >= b.Len() {
		return false
	}
	changed := b.bytes[bit/8]&(1<<(bit%8)) == 0
	b.bytes[bit/8] |= 1 << (bit % 8)
	return changed
}

func (b Bits) Uint8(index int) uint8 {
	return b.bytes[index]
}

func (b Bits) Uint16(index int) uint16 {
	return binary.LittleEndian.Uint16(b.bytes[index*2:])
}

func (b Bits) SetUint8(index int, value uint8) {
	b.bytes[index] = value
}

func (b Bits) SetUint16(index int, value uint16) {
	binary.LittleEndian.PutUint16(b.bytes[index*2:], value)
}

// ConcatBits returns a new buffer holding the bits of l followed by the bits of r.
func ConcatBits(l, r Bits) Bits {
	if l.missingBits == 0 {
		bytes := make([]byte, 0, len(l.bytes)+len(r.bytes))
		bytes = append(bytes, l.bytes...)
		bytes = append(bytes, r.bytes...)
		return Bits{
			bytes:       bytes,
			missingBits: r.missingBits,
		}
	}
	result := NewZeros(l.Len() + r.Len())
	copy(result.bytes, l.bytes)
	offset := l.Len()
	for i := 0; i < r.Len(); i++ {
		if r.IsSet(i) {
			result.Set(offset + i)
		}
	}
	return result
}

func NewScanner(data []byte) *Scanner {
	return &Scanner{
		bytes: data,
	}
}

type Scanner struct {
	bitOffset int
	bytes     []byte
}

// Next returns the next bitSize bits. An empty Bits is returned when the data is exhausted.
func (s *Scanner) Next(bitSize int) Bits {
	if bitSize <= 0 || s.bitOffset+bitSize > len(s.bytes)*8 {
		return Bits{}
	}
	if s.bitOffset%8 == 0 && bitSize%8 == 0 {
		start := s.bitOffset / 8
		s.bitOffset += bitSize
		return Bits{bytes: s.bytes[start : start+bitSize/8]}
	}
	src := New(s.bytes, 0)
	result := NewZeros(bitSize)
	for i := 0; i < bitSize; i++ {
		if src.IsSet(s.bitOffset + i) {
			result.Set(i)
		}
	}
	s.bitOffset += bitSize
	return result
}
