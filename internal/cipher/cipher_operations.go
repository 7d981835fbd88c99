package cipher

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/RowanDark/cipherkit/internal/classic"
	"github.com/RowanDark/cipherkit/internal/feistel"
	"github.com/RowanDark/cipherkit/internal/vigenere"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var cipherDefinitions = []definition{
	{
		name:        "caesar_encode",
		kind:        OperationTypeEncrypt,
		description: "Shift letters (mod 26) and digits (mod 10) by shift",
		inverse:     "caesar_decode",
		exec:        caesarExec(classic.CaesarEncode),
	},
	{
		name:        "caesar_decode",
		kind:        OperationTypeDecrypt,
		description: "Undo caesar_encode with the same shift",
		inverse:     "caesar_encode",
		exec:        caesarExec(classic.CaesarDecode),
	},
	{
		name:        "vigenere_encode",
		kind:        OperationTypeEncrypt,
		description: "Vigenère-encode ASCII letters with key; other bytes pass through",
		inverse:     "vigenere_decode",
		exec:        vigenereExec((*vigenere.Cipher).Encode),
	},
	{
		name:        "vigenere_decode",
		kind:        OperationTypeDecrypt,
		description: "Vigenère-decode ASCII letters with key",
		inverse:     "vigenere_encode",
		exec:        vigenereExec((*vigenere.Cipher).Decode),
	},
	{
		name:        "xor",
		kind:        OperationTypeEncrypt,
		description: "XOR with a repeating key (key, or key_hex for raw bytes)",
		inverse:     "xor",
		exec:        xorExec,
	},
	{
		name:        "feistel_encrypt",
		kind:        OperationTypeEncrypt,
		description: "Encrypt 8-byte blocks with the 16-round Feistel cipher after PKCS#7 padding",
		inverse:     "feistel_decrypt",
		exec:        feistelEncrypt,
	},
	{
		name:        "feistel_decrypt",
		kind:        OperationTypeDecrypt,
		description: "Decrypt Feistel blocks and strip PKCS#7 padding",
		inverse:     "feistel_encrypt",
		exec:        feistelDecrypt,
	},
	{
		name:        "text_fold",
		kind:        OperationTypeTransform,
		description: "Strip diacritics and upper-case text (strip_punct also removes punctuation)",
		exec:        textFold,
	},
}

func caesarExec(fn func(string, int) string) execFunc {
	return func(_ context.Context, input []byte, params Params) ([]byte, error) {
		shift, err := params.RequireInt("shift")
		if err != nil {
			return nil, err
		}
		return []byte(fn(string(input), shift)), nil
	}
}

func vigenereExec(fn func(*vigenere.Cipher, string) string) execFunc {
	return func(_ context.Context, input []byte, params Params) ([]byte, error) {
		key, err := params.RequireString("key")
		if err != nil {
			return nil, err
		}
		c, err := vigenere.New(key)
		if err != nil {
			return nil, err
		}
		return []byte(fn(c, string(input))), nil
	}
}

// keyBytes reads key_hex when present, else the literal key.
func keyBytes(params Params) ([]byte, error) {
	if h, ok := params.String("key_hex"); ok && h != "" {
		key, err := decodeHex([]byte(h))
		if err != nil {
			return nil, fmt.Errorf("%w: key_hex: %v", ErrInvalidParam, err)
		}
		return key, nil
	}
	key, err := params.RequireString("key")
	if err != nil {
		return nil, err
	}
	return []byte(key), nil
}

func xorExec(_ context.Context, input []byte, params Params) ([]byte, error) {
	key, err := keyBytes(params)
	if err != nil {
		return nil, err
	}
	return classic.XOR(input, key)
}

// feistelFromParams accepts an 8-character key or key_hex, the 64-bit key
// value as 16 hex digits.
func feistelFromParams(params Params) (*feistel.Cipher, error) {
	if h, ok := params.String("key_hex"); ok && h != "" {
		h = strings.TrimPrefix(strings.TrimPrefix(h, "0x"), "0X")
		v, err := strconv.ParseUint(h, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: key_hex: %v", ErrInvalidParam, err)
		}
		return feistel.New(feistel.Block64(v)), nil
	}
	key, err := params.RequireString("key")
	if err != nil {
		return nil, err
	}
	return feistel.NewFromBytes([]byte(key))
}

func feistelEncrypt(_ context.Context, input []byte, params Params) ([]byte, error) {
	c, err := feistelFromParams(params)
	if err != nil {
		return nil, err
	}
	return c.Encrypt(feistel.Pad(input))
}

func feistelDecrypt(_ context.Context, input []byte, params Params) ([]byte, error) {
	c, err := feistelFromParams(params)
	if err != nil {
		return nil, err
	}
	out, err := c.Decrypt(input)
	if err != nil {
		return nil, err
	}
	plain, err := feistel.Unpad(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParam, err)
	}
	return plain, nil
}

func textFold(_ context.Context, input []byte, params Params) ([]byte, error) {
	stripPunct, err := params.Bool("strip_punct", false)
	if err != nil {
		return nil, err
	}

	strip := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(strip, string(input))
	if err != nil {
		return nil, fmt.Errorf("fold diacritics: %w", err)
	}
	folded = cases.Upper(language.Spanish).String(folded)

	if stripPunct {
		folded = strings.Join(strings.FieldsFunc(folded, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}), " ")
	}
	return []byte(folded), nil
}
