// Package fitness scores how much a candidate plaintext looks like natural
// language by counting space-delimited marker words.
package fitness

import (
	"strings"
)

// SpanishCommon is the default marker list: frequent short Spanish words.
var SpanishCommon = []string{
	"DE", "LA", "EL", "QUE", "Y",
	"A", "EN", "UN", "PARA", "CON",
	"POR", "COMO", "SU", "AL", "DEL",
	"LOS", "SE", "NO", "MAS", "O",
	"SI", "YA", "TODO", "ESTA", "HAY",
	"ESTO", "SON", "TIENE", "HACE", "SUS",
	"VIDA", "NOS", "TE", "LO", "ME",
	"ESTE", "ESA", "ESE", "BIEN", "MUY",
	"PUEDE", "TAMBIEN", "AUN", "MI", "DOS",
	"UNO", "OTRO", "NUEVO", "SIN", "ENTRE",
	"SOBRE",
}

// SpanishShort is a smaller list of very frequent words.
var SpanishShort = []string{"EL", "LA", "DE", "QUE", "Y", "EN", "UN", "SER", "ES", "CON"}

// Scorer sums len(marker) for each non-overlapping occurrence of each marker.
// Markers are matched case-sensitively against the candidate text.
type Scorer struct {
	markers []string
}

// New builds a scorer from bare words. Each word is trimmed, upper-cased and
// wrapped in single spaces; blank words are skipped.
func New(words ...string) *Scorer {
	markers := make([]string, 0, len(words))
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToUpper(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		m := " " + w + " "
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		markers = append(markers, m)
	}
	return &Scorer{markers: markers}
}

// Default returns a scorer over SpanishCommon.
func Default() *Scorer {
	return New(SpanishCommon...)
}

// Markers returns the space-wrapped markers in use.
func (s *Scorer) Markers() []string {
	out := make([]string, len(s.markers))
	copy(out, s.markers)
	return out
}

// Score returns 0 for text without markers and grows without bound.
func (s *Scorer) Score(text string) float64 {
	var score float64
	for _, m := range s.markers {
		score += float64(len(m) * countNonOverlapping(text, m))
	}
	return score
}

func countNonOverlapping(text, marker string) int {
	count := 0
	for pos := 0; pos <= len(text)-len(marker); {
		idx := strings.Index(text[pos:], marker)
		if idx < 0 {
			break
		}
		count++
		pos += idx + len(marker)
	}
	return count
}
