// Package vigenere implements a polyalphabetic substitution cipher driven by a
// repeating alphabetic key.
package vigenere

import (
	"errors"
	"strings"
)

// ErrInvalidKey is returned when a key has no alphabetic characters.
var ErrInvalidKey = errors.New("key must contain at least one letter")

// Cipher shifts each ASCII letter by the next letter of its key. Non-letters
// pass through unchanged and do not advance the key.
type Cipher struct {
	key string
}

// NormalizeKey strips everything but ASCII letters and upper-cases the rest.
func NormalizeKey(raw string) (string, error) {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c)
		case c >= 'a' && c <= 'z':
			b.WriteByte(c - 'a' + 'A')
		}
	}
	if b.Len() == 0 {
		return "", ErrInvalidKey
	}
	return b.String(), nil
}

// New normalizes rawKey and returns a cipher for it.
func New(rawKey string) (*Cipher, error) {
	key, err := NormalizeKey(rawKey)
	if err != nil {
		return nil, err
	}
	return &Cipher{key: key}, nil
}

// Key returns the normalized key.
func (c *Cipher) Key() string {
	return c.key
}

// Encode adds the key stream to every letter of text, preserving case.
func (c *Cipher) Encode(text string) string {
	return c.apply(text, 1)
}

// Decode subtracts the key stream. Decode(Encode(t)) == t for every t.
func (c *Cipher) Decode(text string) string {
	return c.apply(text, -1)
}

func (c *Cipher) apply(text string, direction int) string {
	out := make([]byte, len(text))
	keyLen := len(c.key)
	i := 0
	for pos := 0; pos < len(text); pos++ {
		ch := text[pos]
		var base byte
		switch {
		case ch >= 'a' && ch <= 'z':
			base = 'a'
		case ch >= 'A' && ch <= 'Z':
			base = 'A'
		default:
			out[pos] = ch
			continue
		}
		shift := int(c.key[i%keyLen]-'A') * direction
		out[pos] = byte((int(ch-base)+shift+26)%26) + base
		i++
	}
	return string(out)
}
