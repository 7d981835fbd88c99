package cipher

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

var codecDefinitions = []definition{
	{
		name:        "base64_encode",
		kind:        OperationTypeEncode,
		description: "Encode data as standard Base64",
		inverse:     "base64_decode",
		exec:        pure(encodeBase64),
	},
	{
		name:        "base64_decode",
		kind:        OperationTypeDecode,
		description: "Decode standard Base64, padded or not",
		inverse:     "base64_encode",
		exec:        pure(decodeBase64),
	},
	{
		name:        "base64url_encode",
		kind:        OperationTypeEncode,
		description: "Encode data as URL-safe Base64",
		inverse:     "base64url_decode",
		exec:        pure(encodeBase64URL),
	},
	{
		name:        "base64url_decode",
		kind:        OperationTypeDecode,
		description: "Decode URL-safe Base64, padded or not",
		inverse:     "base64url_encode",
		exec:        pure(decodeBase64URL),
	},
	{
		name:        "hex_encode",
		kind:        OperationTypeEncode,
		description: "Encode bytes as a lower-case hexadecimal string",
		inverse:     "hex_decode",
		exec:        pure(encodeHex),
	},
	{
		name:        "hex_decode",
		kind:        OperationTypeDecode,
		description: "Decode hexadecimal; accepts 0x and \\x prefixes and space, colon, comma or dash separators",
		inverse:     "hex_encode",
		exec:        pure(decodeHex),
	},
	{
		name:        "binary_encode",
		kind:        OperationTypeEncode,
		description: "Encode bytes as space separated 8-bit groups",
		inverse:     "binary_decode",
		exec:        pure(encodeBinary),
	},
	{
		name:        "binary_decode",
		kind:        OperationTypeDecode,
		description: "Decode whitespace separated bit groups, or an unbroken multiple of 8 bits",
		inverse:     "binary_encode",
		exec:        pure(decodeBinary),
	},
	{
		name:        "ascii_to_hex",
		kind:        OperationTypeEncode,
		description: "Show each byte as a space separated hex pair",
		inverse:     "hex_to_ascii",
		exec:        pure(asciiToHex),
	},
	{
		name:        "hex_to_ascii",
		kind:        OperationTypeDecode,
		description: "Turn hex pairs back into bytes",
		inverse:     "ascii_to_hex",
		exec:        pure(decodeHex),
	},
}

// pure adapts a parameterless codec to an execFunc.
func pure(fn func([]byte) ([]byte, error)) execFunc {
	return func(_ context.Context, input []byte, _ Params) ([]byte, error) {
		return fn(input)
	}
}

func encodeBase64(input []byte) ([]byte, error) {
	return []byte(base64.StdEncoding.EncodeToString(input)), nil
}

func decodeBase64(input []byte) ([]byte, error) {
	s := strings.TrimSpace(string(input))
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
		if err != nil {
			return nil, fmt.Errorf("base64 decode failed: %w", err)
		}
	}
	return decoded, nil
}

func encodeBase64URL(input []byte) ([]byte, error) {
	return []byte(base64.URLEncoding.EncodeToString(input)), nil
}

func decodeBase64URL(input []byte) ([]byte, error) {
	s := strings.TrimSpace(string(input))
	decoded, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
		if err != nil {
			return nil, fmt.Errorf("base64url decode failed: %w", err)
		}
	}
	return decoded, nil
}

func encodeHex(input []byte) ([]byte, error) {
	return []byte(hex.EncodeToString(input)), nil
}

func isHexSeparator(r rune) bool {
	return unicode.IsSpace(r) || r == ':' || r == ',' || r == '-'
}

// decodeHex splits on separators, strips prefixes and left-pads single digit
// groups, so "0x41 42", "\x41\x42", "41:42" and "a 42" all decode.
func decodeHex(input []byte) ([]byte, error) {
	s := strings.ReplaceAll(string(input), `\x`, " ")
	groups := strings.FieldsFunc(s, isHexSeparator)

	var b strings.Builder
	for _, g := range groups {
		g = strings.TrimPrefix(strings.TrimPrefix(g, "0x"), "0X")
		if len(g) == 1 {
			b.WriteByte('0')
		}
		b.WriteString(g)
	}

	decoded, err := hex.DecodeString(b.String())
	if err != nil {
		return nil, fmt.Errorf("hex decode failed: %w", err)
	}
	return decoded, nil
}

func encodeBinary(input []byte) ([]byte, error) {
	var b strings.Builder
	b.Grow(len(input) * 9)
	for i, c := range input {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%08b", c)
	}
	return []byte(b.String()), nil
}

func decodeBinary(input []byte) ([]byte, error) {
	groups := strings.Fields(string(input))
	if len(groups) == 1 && len(groups[0]) > 8 {
		whole := groups[0]
		if len(whole)%8 != 0 {
			return nil, fmt.Errorf("binary string length must be a multiple of 8, got %d", len(whole))
		}
		groups = groups[:0]
		for i := 0; i < len(whole); i += 8 {
			groups = append(groups, whole[i:i+8])
		}
	}

	out := make([]byte, 0, len(groups))
	for i, g := range groups {
		v, err := strconv.ParseUint(g, 2, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid bit group %d %q: %w", i, g, err)
		}
		out = append(out, byte(v))
	}
	return out, nil
}

func asciiToHex(input []byte) ([]byte, error) {
	var b strings.Builder
	b.Grow(len(input) * 3)
	for i, c := range input {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02x", c)
	}
	return []byte(b.String()), nil
}
