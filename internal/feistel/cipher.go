// Package feistel implements a simplified, didactic 64-bit block cipher built
// on a 16-round Feistel network.
//
// Each round expands the 32-bit right half to 48 bits, mixes it with a round
// key, squeezes it back to 32 bits through an S-box and permutes the result.
// The key schedule is deliberately weak: round key i is the low 48 bits of
// key >> i. The initial and final permutations are identities. None of this
// is secure and none of it matches DES; the exact bit layout is kept so that
// blocks produced by earlier versions of the toolkit still decrypt.
package feistel

import (
	"fmt"
)

const (
	// Rounds is the number of Feistel rounds.
	Rounds = 16

	roundKeyMask = 1<<48 - 1
)

// Cipher holds a master key and its derived round keys. It is immutable after
// construction and safe for concurrent use.
type Cipher struct {
	key       Block64
	roundKeys [Rounds]uint64
}

// New creates a cipher for the given 64-bit key. Every key is valid.
func New(key Block64) *Cipher {
	c := &Cipher{key: key}
	c.roundKeys = deriveRoundKeys(key)
	return c
}

// NewFromBytes creates a cipher from an 8-byte key.
func NewFromBytes(key []byte) (*Cipher, error) {
	k, err := BlockFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("feistel key: %w", err)
	}
	return New(k), nil
}

func deriveRoundKeys(key Block64) [Rounds]uint64 {
	var keys [Rounds]uint64
	for i := 0; i < Rounds; i++ {
		keys[i] = (uint64(key) >> uint(i)) & roundKeyMask
	}
	return keys
}

// Key returns the master key.
func (c *Cipher) Key() Block64 {
	return c.key
}

// RoundKeys returns a copy of the 48-bit round key schedule.
func (c *Cipher) RoundKeys() [Rounds]uint64 {
	return c.roundKeys
}

// EncryptBlock runs the 16 rounds forward.
func (c *Cipher) EncryptBlock(plaintext Block64) Block64 {
	data := initialPermutation(plaintext)
	left, right := data.Split()

	for r := 0; r < Rounds; r++ {
		newRight := left ^ roundFunction(right, c.roundKeys[r])
		left, right = right, newRight
	}

	// The halves are swapped on recombination.
	return finalPermutation(Join(right, left))
}

// DecryptBlock inverts EncryptBlock by replaying the rounds in reverse order.
func (c *Cipher) DecryptBlock(ciphertext Block64) Block64 {
	data := initialPermutation(ciphertext)
	right, left := data.Split()

	for r := Rounds - 1; r >= 0; r-- {
		newLeft := right ^ roundFunction(left, c.roundKeys[r])
		right, left = left, newLeft
	}

	return finalPermutation(Join(left, right))
}

// Encrypt encrypts each 8-byte block of data independently. The length must
// be a multiple of BlockSize.
func (c *Cipher) Encrypt(data []byte) ([]byte, error) {
	return c.each(data, c.EncryptBlock)
}

// Decrypt is the inverse of Encrypt.
func (c *Cipher) Decrypt(data []byte) ([]byte, error) {
	return c.each(data, c.DecryptBlock)
}

func (c *Cipher) each(data []byte, fn func(Block64) Block64) ([]byte, error) {
	if len(data)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: data length %d is not a multiple of %d", ErrInvalidArgument, len(data), BlockSize)
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i += BlockSize {
		block, err := BlockFromBytes(data[i : i+BlockSize])
		if err != nil {
			return nil, err
		}
		out = append(out, fn(block).Bytes()...)
	}
	return out, nil
}

// initialPermutation and finalPermutation are identities in this scheme.
func initialPermutation(b Block64) Block64 { return b }

func finalPermutation(b Block64) Block64 { return b }

func roundFunction(half uint32, roundKey uint64) uint32 {
	mixed := expand(half) ^ roundKey
	return permute(substitute(mixed))
}

func expand(half uint32) uint64 {
	var out uint64
	for i, pos := range expansionTable {
		out |= uint64(bit(half, 32-pos)) << uint(i)
	}
	return out
}

func substitute(in uint64) uint32 {
	var out uint32
	for g := 0; g < 8; g++ {
		base := g * 6
		row := bit(in, base)<<1 | bit(in, base+5)
		col := bit(in, base+1)<<3 | bit(in, base+2)<<2 | bit(in, base+3)<<1 | bit(in, base+4)
		value := substitutionTable[row%4][col%16]
		// Bit 4g receives the most significant bit of the S-box value.
		for j := 0; j < 4; j++ {
			out |= ((value >> uint(3-j)) & 1) << uint(g*4+j)
		}
	}
	return out
}

func permute(in uint32) uint32 {
	var out uint32
	for i, pos := range permutationTable {
		out |= bit(in, 32-pos) << uint(i)
	}
	return out
}
