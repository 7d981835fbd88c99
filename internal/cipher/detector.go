package cipher

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/RowanDark/cipherkit/internal/fitness"
)

var (
	base64Pattern    = regexp.MustCompile(`^[A-Za-z0-9+/]+=*$`)
	base64URLPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+=*$`)
	hexPattern       = regexp.MustCompile(`^[0-9a-fA-F]+$`)
	digitsPattern    = regexp.MustCompile(`^[0-9]+$`)
	binaryPattern    = regexp.MustCompile(`^[01]+$`)
)

const (
	// monoalphabeticIC separates shifted natural language (index of
	// coincidence near 0.075 for Spanish) from polyalphabetic output, which
	// drifts towards uniform (1/26 ≈ 0.038).
	monoalphabeticIC = 0.065

	minDetectionConfidence = 0.3
	minLettersForIC        = 20
)

// SmartDetector guesses codecs and classical ciphers from the shape of the
// input.
type SmartDetector struct {
	scorer *fitness.Scorer
}

// NewSmartDetector returns a detector that treats text scoring above zero
// with the default Spanish markers as plaintext.
func NewSmartDetector() *SmartDetector {
	return &SmartDetector{scorer: fitness.Default()}
}

// Detect returns guesses with confidence of at least 0.3, most likely first.
func (d *SmartDetector) Detect(ctx context.Context, input []byte) ([]DetectionResult, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("empty input")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var results []DetectionResult
	results = append(results, d.detectBase64(input)...)
	results = append(results, d.detectHex(input)...)
	results = append(results, d.detectBinary(input)...)
	results = append(results, d.detectClassical(input)...)

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})

	filtered := results[:0]
	for _, r := range results {
		if r.Confidence >= minDetectionConfidence {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// SupportedEncodings lists what Detect can report.
func (d *SmartDetector) SupportedEncodings() []string {
	return []string{"base64", "base64url", "hex", "binary", "caesar", "vigenere"}
}

func (d *SmartDetector) detectBase64(input []byte) []DetectionResult {
	var results []DetectionResult
	s := strings.TrimSpace(string(input))

	if base64Pattern.MatchString(s) {
		if _, err := base64.StdEncoding.DecodeString(s); err == nil {
			confidence := 0.9
			if !strings.HasSuffix(s, "=") && len(s) < 8 {
				confidence = 0.5
			}
			results = append(results, DetectionResult{
				Encoding:   "base64",
				Confidence: confidence,
				Reasoning:  "Matches the Base64 alphabet and decodes",
				Operation:  "base64_decode",
			})
		} else if _, err := base64.RawStdEncoding.DecodeString(s); err == nil {
			results = append(results, DetectionResult{
				Encoding:   "base64",
				Confidence: 0.7,
				Reasoning:  "Matches the Base64 alphabet without padding",
				Operation:  "base64_decode",
			})
		}
	}

	if base64URLPattern.MatchString(s) && strings.ContainsAny(s, "-_") {
		if _, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "=")); err == nil {
			results = append(results, DetectionResult{
				Encoding:   "base64url",
				Confidence: 0.85,
				Reasoning:  "Uses the URL-safe Base64 alphabet",
				Operation:  "base64url_decode",
			})
		}
	}
	return results
}

func (d *SmartDetector) detectHex(input []byte) []DetectionResult {
	s := strings.TrimSpace(string(input))
	hasPrefix := strings.HasPrefix(s, "0x") || strings.HasPrefix(s, `\x`)

	cleaned := strings.NewReplacer("0x", "", `\x`, "", " ", "", ":", "", "-", "").Replace(s)
	if cleaned == "" || !hexPattern.MatchString(cleaned) || len(cleaned)%2 != 0 {
		return nil
	}

	confidence := 0.8
	if hasPrefix {
		confidence = 0.95
	}
	if digitsPattern.MatchString(cleaned) {
		confidence *= 0.6
	}
	return []DetectionResult{{
		Encoding:   "hex",
		Confidence: confidence,
		Reasoning:  "Only hexadecimal digits in whole bytes",
		Operation:  "hex_decode",
	}}
}

func (d *SmartDetector) detectBinary(input []byte) []DetectionResult {
	s := strings.Join(strings.Fields(string(input)), "")
	if len(s) < 8 || len(s)%8 != 0 || !binaryPattern.MatchString(s) {
		return nil
	}
	confidence := 0.85
	if len(s) < 32 {
		confidence = 0.6
	}
	return []DetectionResult{{
		Encoding:   "binary",
		Confidence: confidence,
		Reasoning:  "Only 0s and 1s in 8-bit groups",
		Operation:  "binary_decode",
	}}
}

// detectClassical flags letter-heavy text that does not read as Spanish. The
// index of coincidence then tells a shift cipher from a polyalphabetic one.
func (d *SmartDetector) detectClassical(input []byte) []DetectionResult {
	s := string(input)
	var letters, visible int
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '\n' || c == '\t' || c == '\r' {
			continue
		}
		visible++
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			letters++
		}
	}
	if letters < minLettersForIC || float64(letters) < 0.7*float64(visible) {
		return nil
	}
	if !strings.ContainsRune(s, ' ') {
		return nil
	}
	if d.scorer.Score(strings.ToUpper(s)) > 0 {
		return nil
	}

	ic := IndexOfCoincidence(s)
	if ic >= monoalphabeticIC {
		return []DetectionResult{{
			Encoding:   "caesar",
			Confidence: 0.6,
			Reasoning:  fmt.Sprintf("Letter text with no common words; index of coincidence %.4f suggests a shift cipher", ic),
			Operation:  "caesar_break",
		}}
	}
	return []DetectionResult{{
		Encoding:   "vigenere",
		Confidence: 0.5,
		Reasoning:  fmt.Sprintf("Letter text with no common words; index of coincidence %.4f suggests a polyalphabetic cipher", ic),
		Operation:  "vigenere_break",
	}}
}

// IndexOfCoincidence is the probability that two letters drawn from text
// (ASCII letters only, case-insensitive) are equal.
func IndexOfCoincidence(text string) float64 {
	var counts [26]int
	n := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c >= 'a' && c <= 'z':
			counts[c-'a']++
		case c >= 'A' && c <= 'Z':
			counts[c-'A']++
		default:
			continue
		}
		n++
	}
	if n < 2 {
		return 0
	}
	var sum float64
	for _, k := range counts {
		sum += float64(k * (k - 1))
	}
	return sum / float64(n*(n-1))
}

// Entropy is the Shannon entropy of data in bits per byte.
func Entropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	var freq [256]int
	for _, b := range data {
		freq[b]++
	}
	var h float64
	total := float64(len(data))
	for _, count := range freq {
		if count == 0 {
			continue
		}
		p := float64(count) / total
		h -= p * math.Log2(p)
	}
	return h
}

// DecodeResult is the outcome of applying a detected operation.
type DecodeResult struct {
	Detection DetectionResult `json:"detection"`
	Decoded   []byte          `json:"decoded"`
}

// DecodeAll applies every detected operation with default parameters and
// keeps the ones that succeed.
func DecodeAll(ctx context.Context, input []byte) ([]DecodeResult, error) {
	detections, err := NewSmartDetector().Detect(ctx, input)
	if err != nil {
		return nil, err
	}

	var results []DecodeResult
	for _, detection := range detections {
		op, ok := GetOperation(detection.Operation)
		if !ok {
			continue
		}
		decoded, err := op.Execute(ctx, input, nil)
		if err != nil {
			continue
		}
		results = append(results, DecodeResult{Detection: detection, Decoded: decoded})
	}
	return results, nil
}
