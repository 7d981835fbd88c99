package breaker

import (
	"math"
	"strconv"
	"strings"

	"github.com/RowanDark/cipherkit/internal/classic"
)

// referenceLetters are the most frequent Spanish letters, most frequent first.
const referenceLetters = "eaosrnidlc"

var commonWords = []string{"el", "de", "la", "que", "en", "y", "los", "se"}

// CaesarCandidate is one decoding of a brute-forced Caesar ciphertext.
type CaesarCandidate struct {
	Shift int    `json:"shift"`
	Text  string `json:"text"`
}

// CaesarCandidates decodes ciphertext with every shift 0..25.
func CaesarCandidates(ciphertext string) []CaesarCandidate {
	out := make([]CaesarCandidate, 26)
	for shift := 0; shift < 26; shift++ {
		out[shift] = CaesarCandidate{Shift: shift, Text: classic.CaesarDecode(ciphertext, shift)}
	}
	return out
}

// EstimateCaesarShift guesses the shift from letter frequencies: the most
// frequent ciphertext letter is aligned with each reference letter in turn and
// the shift whose decoding contains the most common Spanish words wins.
func EstimateCaesarShift(ciphertext string) int {
	var counts [26]int
	for i := 0; i < len(ciphertext); i++ {
		c := ciphertext[i]
		switch {
		case c >= 'a' && c <= 'z':
			counts[c-'a']++
		case c >= 'A' && c <= 'Z':
			counts[c-'A']++
		}
	}

	top := 0
	for i := 1; i < 26; i++ {
		if counts[i] > counts[top] {
			top = i
		}
	}

	bestShift, bestHits := 0, -1
	for i := 0; i < len(referenceLetters); i++ {
		shift := (top - int(referenceLetters[i]-'a') + 26) % 26
		decoded := strings.ToLower(classic.CaesarDecode(ciphertext, shift))
		hits := 0
		for _, w := range commonWords {
			if strings.Contains(decoded, w) {
				hits++
			}
		}
		if hits > bestHits {
			bestShift, bestHits = shift, hits
		}
	}
	return bestShift
}

// BreakCaesar scores all 26 decodings and returns the best one. The key is
// the decimal shift. Ties go to the smallest shift.
func BreakCaesar(ciphertext string, scorer Scorer) Result {
	best := Result{Score: math.Inf(-1)}
	for _, c := range CaesarCandidates(ciphertext) {
		score := scorer.Score(c.Text)
		if score > best.Score {
			best = Result{Key: strconv.Itoa(c.Shift), Text: c.Text, Score: score}
		}
	}
	best.Candidates = 26
	return best
}
