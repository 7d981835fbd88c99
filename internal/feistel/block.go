package feistel

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// BlockSize is the width of a Block64 in bytes.
const BlockSize = 8

// ErrInvalidArgument reports malformed fixed-width input.
var ErrInvalidArgument = errors.New("invalid argument")

// Block64 is a 64-bit block. Bit i is (b >> i) & 1, so bit 0 is the least
// significant bit.
type Block64 uint64

// BlockFromBytes maps exactly eight bytes onto a block. Byte k occupies bits
// 8k..8k+7.
func BlockFromBytes(data []byte) (Block64, error) {
	if len(data) != BlockSize {
		return 0, fmt.Errorf("%w: block must be %d bytes, got %d", ErrInvalidArgument, BlockSize, len(data))
	}
	return Block64(binary.LittleEndian.Uint64(data)), nil
}

// BlockFromString is BlockFromBytes for an 8-character string.
func BlockFromString(s string) (Block64, error) {
	return BlockFromBytes([]byte(s))
}

// Pad appends PKCS#7 padding up to a multiple of BlockSize. A full block of
// padding is added when data is already aligned, so Unpad can always recover
// the original length. The cipher itself never pads.
func Pad(data []byte) []byte {
	n := BlockSize - len(data)%BlockSize
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)
	for i := 0; i < n; i++ {
		out = append(out, byte(n))
	}
	return out
}

// Unpad strips the padding added by Pad.
func Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: padded data length %d is not a positive multiple of %d", ErrInvalidArgument, len(data), BlockSize)
	}
	n := int(data[len(data)-1])
	if n == 0 || n > BlockSize {
		return nil, fmt.Errorf("%w: bad padding length %d", ErrInvalidArgument, n)
	}
	for _, c := range data[len(data)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("%w: malformed padding", ErrInvalidArgument)
		}
	}
	return data[:len(data)-n], nil
}

// Bytes returns the eight bytes of the block, lowest byte first.
func (b Block64) Bytes() []byte {
	out := make([]byte, BlockSize)
	binary.LittleEndian.PutUint64(out, uint64(b))
	return out
}

// Split returns the high and low 32-bit halves.
func (b Block64) Split() (high, low uint32) {
	return uint32(b >> 32), uint32(b)
}

// Join places high in bits 32..63 and low in bits 0..31.
func Join(high, low uint32) Block64 {
	return Block64(high)<<32 | Block64(low)
}

func (b Block64) String() string {
	return fmt.Sprintf("%016x", uint64(b))
}

// bit returns bit i of v under the same convention as Block64.
func bit[T ~uint32 | ~uint64](v T, i int) T {
	return (v >> uint(i)) & 1
}
