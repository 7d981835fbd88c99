package breaker

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/RowanDark/cipherkit/internal/fitness"
)

var (
	// ErrUnknownCipher is returned by Recover for an unsupported cipher name.
	ErrUnknownCipher = errors.New("unknown cipher")
	// ErrNoCandidate is returned when no candidate plaintext is printable.
	ErrNoCandidate = errors.New("no plausible plaintext found")
)

// Ciphers Recover understands.
const (
	CipherVigenere = "vigenere"
	CipherCaesar   = "caesar"
	CipherXOR      = "xor"
)

// Request describes one key recovery. Zero values select the defaults:
// key length 3, one worker, the default markers and dictionary.
type Request struct {
	Cipher       string
	Ciphertext   []byte
	MaxKeyLength int
	Workers      int
	Markers      []string
	Dictionary   []string
	// TwoByte adds every 2-byte key to an XOR search.
	TwoByte bool
}

// Recovery is the outcome of Recover. Key is upper-case letters for
// Vigenère, the decimal shift for Caesar and lower-case hex for XOR.
type Recovery struct {
	Cipher     string        `json:"cipher"`
	Key        string        `json:"key"`
	Plaintext  []byte        `json:"plaintext"`
	Score      float64       `json:"score"`
	Candidates int64         `json:"candidates"`
	Duration   time.Duration `json:"duration"`
}

// Recover runs the search matching req.Cipher.
func Recover(ctx context.Context, req Request, logger *slog.Logger) (Recovery, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var scorer Scorer = fitness.Default()
	if len(req.Markers) > 0 {
		scorer = fitness.New(req.Markers...)
	}

	start := time.Now()
	rec := Recovery{Cipher: strings.ToLower(strings.TrimSpace(req.Cipher))}

	switch rec.Cipher {
	case CipherVigenere:
		maxLen := req.MaxKeyLength
		if maxLen == 0 {
			maxLen = 3
		}
		b := NewVigenere(VigenereConfig{Scorer: scorer, Workers: req.Workers, Logger: logger})
		res, err := b.Break(ctx, string(req.Ciphertext), maxLen)
		if err != nil {
			return Recovery{}, err
		}
		rec.Key, rec.Plaintext, rec.Score, rec.Candidates = res.Key, []byte(res.Text), res.Score, res.Candidates

	case CipherCaesar:
		if err := ctx.Err(); err != nil {
			return Recovery{}, err
		}
		res := BreakCaesar(string(req.Ciphertext), scorer)
		rec.Key, rec.Plaintext, rec.Score, rec.Candidates = res.Key, []byte(res.Text), res.Score, res.Candidates

	case CipherXOR:
		cands := XORSingleByte(req.Ciphertext)
		cands = append(cands, XORDictionary(req.Ciphertext, req.Dictionary)...)
		if req.TwoByte {
			pairs, err := XORTwoByte(ctx, req.Ciphertext)
			if err != nil {
				return Recovery{}, err
			}
			cands = append(cands, pairs...)
		}
		if len(cands) == 0 {
			return Recovery{}, ErrNoCandidate
		}
		best := RankXOR(cands, scorer)[0]
		rec.Key, rec.Plaintext, rec.Score, rec.Candidates = hex.EncodeToString(best.Key), best.Text, best.Score, int64(len(cands))

	default:
		return Recovery{}, fmt.Errorf("%w: %q", ErrUnknownCipher, req.Cipher)
	}

	rec.Duration = time.Since(start)
	logger.Debug("key recovered",
		"cipher", rec.Cipher,
		"score", rec.Score,
		"candidates", rec.Candidates,
		"duration", rec.Duration,
	)
	return rec, nil
}
