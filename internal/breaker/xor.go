package breaker

import (
	"context"
	"sort"

	"github.com/RowanDark/cipherkit/internal/classic"
)

// DefaultDictionary holds the weak keys tried by XORDictionary when none are
// configured.
var DefaultDictionary = []string{
	"clave", "admin", "1234", "root", "test", "abc", "hola",
	"user", "pass", "12345", "0000", "password", "default",
}

// XORCandidate is a key whose decoding is entirely printable.
type XORCandidate struct {
	Key   []byte  `json:"key"`
	Text  []byte  `json:"text"`
	Score float64 `json:"score"`
}

// IsPrintable reports whether every byte is printable ASCII or whitespace.
func IsPrintable(data []byte) bool {
	for _, b := range data {
		switch {
		case b >= 0x20 && b <= 0x7e:
		case b == '\t', b == '\n', b == '\v', b == '\f', b == '\r':
		default:
			return false
		}
	}
	return true
}

// XORSingleByte tries every key 0x00..0xff.
func XORSingleByte(ciphertext []byte) []XORCandidate {
	if len(ciphertext) == 0 {
		return nil
	}
	var out []XORCandidate
	for k := 0; k < 256; k++ {
		if c, ok := tryXOR(ciphertext, []byte{byte(k)}); ok {
			out = append(out, c)
		}
	}
	return out
}

// XORTwoByte tries all 65536 two-byte keys, high byte first.
func XORTwoByte(ctx context.Context, ciphertext []byte) ([]XORCandidate, error) {
	if len(ciphertext) == 0 {
		return nil, nil
	}
	var out []XORCandidate
	for hi := 0; hi < 256; hi++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		for lo := 0; lo < 256; lo++ {
			if c, ok := tryXOR(ciphertext, []byte{byte(hi), byte(lo)}); ok {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

// XORDictionary tries each word as a repeating key. Empty words are skipped.
func XORDictionary(ciphertext []byte, words []string) []XORCandidate {
	if len(ciphertext) == 0 {
		return nil
	}
	if words == nil {
		words = DefaultDictionary
	}
	var out []XORCandidate
	for _, w := range words {
		if w == "" {
			continue
		}
		if c, ok := tryXOR(ciphertext, []byte(w)); ok {
			out = append(out, c)
		}
	}
	return out
}

// RankXOR scores candidates in place and sorts them best first, keeping the
// enumeration order among equal scores.
func RankXOR(candidates []XORCandidate, scorer Scorer) []XORCandidate {
	for i := range candidates {
		candidates[i].Score = scorer.Score(string(candidates[i].Text))
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

func tryXOR(ciphertext, key []byte) (XORCandidate, bool) {
	text, err := classic.XOR(ciphertext, key)
	if err != nil || !IsPrintable(text) {
		return XORCandidate{}, false
	}
	return XORCandidate{Key: append([]byte(nil), key...), Text: text}, true
}
