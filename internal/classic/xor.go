package classic

import "errors"

// ErrInvalidKey is returned for an empty XOR key.
var ErrInvalidKey = errors.New("key must not be empty")

// XOR combines data with a repeating key byte by byte. Applying it twice with
// the same key restores the input.
func XOR(data, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, ErrInvalidKey
	}
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ key[i%len(key)]
	}
	return out, nil
}
