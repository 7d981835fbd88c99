package cipher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/RowanDark/cipherkit/internal/breaker"
	"github.com/RowanDark/cipherkit/internal/fitness"
)

// ErrNoCandidate is returned when a brute force finds no plausible plaintext.
var ErrNoCandidate = errors.New("no plausible plaintext found")

var analysisDefinitions = []definition{
	{
		name:        "vigenere_break",
		kind:        OperationTypeAnalyze,
		description: "Recover a Vigenère key by exhaustive search (max_key_length, workers, markers) and return the plaintext",
		exec:        vigenereBreak,
	},
	{
		name:        "caesar_break",
		kind:        OperationTypeAnalyze,
		description: "Recover a Caesar shift by fitness scoring, or method=frequency for letter analysis",
		exec:        caesarBreak,
	},
	{
		name:        "xor_break",
		kind:        OperationTypeAnalyze,
		description: "Brute force single-byte and dictionary XOR keys (two_byte adds 2-byte keys) and return the best printable plaintext",
		exec:        xorBreak,
	},
}

// scorerFromParams builds a scorer from the markers parameter, falling back
// to the default Spanish list.
func scorerFromParams(params Params) (*fitness.Scorer, error) {
	markers, err := params.Strings("markers")
	if err != nil {
		return nil, err
	}
	if len(markers) == 0 {
		return fitness.Default(), nil
	}
	return fitness.New(markers...), nil
}

func vigenereBreak(ctx context.Context, input []byte, params Params) ([]byte, error) {
	maxLen, err := params.Int("max_key_length", 3)
	if err != nil {
		return nil, err
	}
	workers, err := params.Int("workers", 1)
	if err != nil {
		return nil, err
	}
	scorer, err := scorerFromParams(params)
	if err != nil {
		return nil, err
	}

	b := breaker.NewVigenere(breaker.VigenereConfig{
		Scorer:  scorer,
		Workers: workers,
		Logger:  slog.Default(),
	})
	res, err := b.Break(ctx, string(input), maxLen)
	if err != nil {
		return nil, err
	}
	return []byte(res.Text), nil
}

func caesarBreak(_ context.Context, input []byte, params Params) ([]byte, error) {
	method, _ := params.String("method")
	switch method {
	case "", "fitness":
		scorer, err := scorerFromParams(params)
		if err != nil {
			return nil, err
		}
		return []byte(breaker.BreakCaesar(string(input), scorer).Text), nil
	case "frequency":
		shift := breaker.EstimateCaesarShift(string(input))
		return []byte(breaker.CaesarCandidates(string(input))[shift].Text), nil
	default:
		return nil, fmt.Errorf("%w: method must be fitness or frequency, got %q", ErrInvalidParam, method)
	}
}

func xorBreak(ctx context.Context, input []byte, params Params) ([]byte, error) {
	twoByte, err := params.Bool("two_byte", false)
	if err != nil {
		return nil, err
	}
	words, err := params.Strings("dictionary")
	if err != nil {
		return nil, err
	}
	scorer, err := scorerFromParams(params)
	if err != nil {
		return nil, err
	}

	cands := breaker.XORSingleByte(input)
	cands = append(cands, breaker.XORDictionary(input, words)...)
	if twoByte {
		pairs, err := breaker.XORTwoByte(ctx, input)
		if err != nil {
			return nil, err
		}
		cands = append(cands, pairs...)
	}
	if len(cands) == 0 {
		return nil, ErrNoCandidate
	}
	return breaker.RankXOR(cands, scorer)[0].Text, nil
}
