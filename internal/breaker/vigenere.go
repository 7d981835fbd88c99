// Package breaker recovers keys for the classical ciphers by exhaustive
// search, scoring every candidate plaintext with a language fitness function.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/RowanDark/cipherkit/internal/fitness"
	"github.com/RowanDark/cipherkit/internal/vigenere"
)

// MaxSearchLength is the longest key length whose candidate count still fits
// in an int64 (26^13).
const MaxSearchLength = 13

// MaxWorkers caps the goroutines a single search may start.
const MaxWorkers = 64

// ctx is polled once per this many candidates.
const checkInterval = 4096

// ErrSearchBounds is returned for a maximum key length outside
// 1..MaxSearchLength.
var ErrSearchBounds = errors.New("max key length out of bounds")

// Scorer rates a candidate plaintext; higher is more plausible.
type Scorer interface {
	Score(text string) float64
}

// Result is the best candidate found by a search.
type Result struct {
	Key        string  `json:"key"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
	Candidates int64   `json:"candidates"`
}

// VigenereConfig configures a VigenereBreaker.
type VigenereConfig struct {
	Scorer  Scorer
	Workers int
	Logger  *slog.Logger
}

// VigenereBreaker tries every upper-case key up to a maximum length.
//
// The cost is 26^1 + ... + 26^L decodes of the whole ciphertext. No key
// length estimation is done, so keep L small (3 is the usual bound).
type VigenereBreaker struct {
	scorer  Scorer
	workers int
	logger  *slog.Logger
}

// NewVigenere creates a breaker. A nil scorer means fitness.Default().
func NewVigenere(cfg VigenereConfig) *VigenereBreaker {
	if cfg.Scorer == nil {
		cfg.Scorer = fitness.Default()
	}
	cfg.Workers = max(1, min(cfg.Workers, MaxWorkers))
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &VigenereBreaker{
		scorer:  cfg.Scorer,
		workers: cfg.Workers,
		logger:  cfg.Logger,
	}
}

type candidate struct {
	ordinal int64
	key     string
	text    string
	score   float64
	found   bool
}

// better orders candidates by score, then by enumeration order, so the first
// candidate reaching the maximum score wins regardless of worker layout.
func better(a, b candidate) bool {
	if !a.found {
		return false
	}
	if !b.found {
		return true
	}
	if a.score != b.score {
		return a.score > b.score
	}
	return a.ordinal < b.ordinal
}

// Break enumerates keys by ascending length, then lexicographically
// ("A".."Z", "AA".."ZZ", ...), decodes ciphertext with each and keeps the
// highest scoring plaintext. Ties go to the earliest key.
func (b *VigenereBreaker) Break(ctx context.Context, ciphertext string, maxKeyLength int) (Result, error) {
	if maxKeyLength < 1 || maxKeyLength > MaxSearchLength {
		return Result{}, fmt.Errorf("%w: %d (must be 1..%d)", ErrSearchBounds, maxKeyLength, MaxSearchLength)
	}

	started := time.Now()
	best := candidate{score: math.Inf(-1)}
	var offset, tried int64

	for length := 1; length <= maxKeyLength; length++ {
		total := pow26(length)
		local, n, err := b.searchLength(ctx, ciphertext, length, total, offset)
		tried += n
		if err != nil {
			return Result{}, fmt.Errorf("vigenere search aborted at key length %d: %w", length, err)
		}
		if better(local, best) {
			best = local
		}
		offset += total
		b.logger.Debug("vigenere key length searched",
			"length", length,
			"candidates", n,
			"best_key", best.key,
			"best_score", best.score,
		)
	}

	b.logger.Debug("vigenere search finished",
		"max_key_length", maxKeyLength,
		"candidates", tried,
		"duration", time.Since(started),
	)

	return Result{Key: best.key, Text: best.text, Score: best.score, Candidates: tried}, nil
}

func (b *VigenereBreaker) searchLength(ctx context.Context, ciphertext string, length int, total, offset int64) (candidate, int64, error) {
	workers := int64(b.workers)
	if workers > total {
		workers = total
	}
	chunk := (total + workers - 1) / workers

	results := make([]candidate, workers)
	counts := make([]int64, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for w := int64(0); w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > total {
			end = total
		}
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(w, start, end int64) {
			defer wg.Done()
			results[w], counts[w], errs[w] = b.scan(ctx, ciphertext, length, start, end, offset)
		}(w, start, end)
	}
	wg.Wait()

	best := candidate{score: math.Inf(-1)}
	var tried int64
	for w := range results {
		tried += counts[w]
		if errs[w] != nil {
			return best, tried, errs[w]
		}
		if better(results[w], best) {
			best = results[w]
		}
	}
	return best, tried, nil
}

// scan walks the key indices [start, end) with an odometer over one scratch
// buffer.
func (b *VigenereBreaker) scan(ctx context.Context, ciphertext string, length int, start, end, offset int64) (candidate, int64, error) {
	key := make([]byte, length)
	setKey(key, start)

	best := candidate{score: math.Inf(-1)}
	var n int64
	for idx := start; idx < end; idx++ {
		if n%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return best, n, err
			}
		}

		c, err := vigenere.New(string(key))
		if err != nil {
			return best, n, err
		}
		text := c.Decode(ciphertext)
		score := b.scorer.Score(text)
		if !best.found || score > best.score {
			best = candidate{
				ordinal: offset + idx,
				key:     c.Key(),
				text:    text,
				score:   score,
				found:   true,
			}
		}
		n++
		increment(key)
	}
	return best, n, nil
}

// setKey writes the idx-th key of its length, most significant letter first.
func setKey(key []byte, idx int64) {
	for i := len(key) - 1; i >= 0; i-- {
		key[i] = 'A' + byte(idx%26)
		idx /= 26
	}
}

func increment(key []byte) {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] < 'Z' {
			key[i]++
			return
		}
		key[i] = 'A'
	}
}

func pow26(n int) int64 {
	total := int64(1)
	for i := 0; i < n; i++ {
		total *= 26
	}
	return total
}
