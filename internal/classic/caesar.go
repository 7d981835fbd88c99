// Package classic holds the simple ciphers of the toolkit: the Caesar shift
// and the repeating-key XOR stream.
package classic

// CaesarEncode shifts ASCII letters by shift (mod 26, case preserved) and
// ASCII digits by shift (mod 10). Other bytes pass through. Negative shifts
// move backwards.
func CaesarEncode(text string, shift int) string {
	letters := mod(shift, 26)
	digits := mod(shift, 10)
	out := make([]byte, len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c >= 'A' && c <= 'Z':
			out[i] = byte((int(c-'A')+letters)%26) + 'A'
		case c >= 'a' && c <= 'z':
			out[i] = byte((int(c-'a')+letters)%26) + 'a'
		case c >= '0' && c <= '9':
			out[i] = byte((int(c-'0')+digits)%10) + '0'
		default:
			out[i] = c
		}
	}
	return string(out)
}

// CaesarDecode inverts CaesarEncode for letters and digits.
func CaesarDecode(text string, shift int) string {
	return CaesarEncode(text, -shift)
}

func mod(v, m int) int {
	v %= m
	if v < 0 {
		v += m
	}
	return v
}
