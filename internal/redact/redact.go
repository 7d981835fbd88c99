// Package redact masks key material and plaintext before it reaches audit
// logs or history records.
package redact

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	Secret    = "[REDACTED_SECRET]"
	plainMask = "[REDACTED_PLAINTEXT]"
)

// sensitiveKeys are map keys whose values are never logged. Matching ignores
// case and treats '-' like '_'.
var sensitiveKeys = map[string]string{
	"key":          Secret,
	"key_hex":      Secret,
	"secret":       Secret,
	"auth_secret":  Secret,
	"password":     Secret,
	"passphrase":   Secret,
	"token":        Secret,
	"salt":         Secret,
	"plaintext":    plainMask,
	"input":        plainMask,
	"output":       plainMask,
	"text":         plainMask,
	"input_base64": plainMask,
}

var (
	kvSecretRe = regexp.MustCompile(`(?i)((?:key|secret|password|passphrase|token)(?:_hex)?\s*[:=]\s*)(['"]?)([^\s'",]{3,})(['"]?)`)
	bearerRe   = regexp.MustCompile(`(?i)\b(bearer)\s+([A-Za-z0-9._\-]{10,})`)
	jwtRe      = regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\b`)
)

// String redacts inline key assignments and bearer tokens from in.
func String(in string) string {
	if strings.TrimSpace(in) == "" {
		return in
	}
	masked := jwtRe.ReplaceAllString(in, Secret)
	masked = bearerRe.ReplaceAllString(masked, `$1 `+Secret)
	masked = kvSecretRe.ReplaceAllString(masked, `$1$2`+Secret+`$4`)
	return masked
}

// Sensitive reports whether values stored under key are masked outright.
func Sensitive(key string) bool {
	_, ok := sensitiveKeys[normaliseKey(key)]
	return ok
}

// Interface redacts recognised sensitive values within nested structures.
func Interface(value any) any {
	switch v := value.(type) {
	case string:
		return String(v)
	case []byte:
		return Secret
	case fmt.Stringer:
		return String(v.String())
	case []string:
		return Slice(v)
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = Interface(elem)
		}
		return out
	case map[string]string:
		m := make(map[string]any, len(v))
		for k, s := range v {
			m[k] = s
		}
		return Map(m)
	case map[string]any:
		return Map(v)
	default:
		return value
	}
}

// Map returns a copy of in with sensitive keys masked and every other value
// redacted recursively.
func Map(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if mask, ok := sensitiveKeys[normaliseKey(k)]; ok {
			if v == nil {
				out[k] = nil
				continue
			}
			out[k] = mask
			continue
		}
		out[k] = Interface(v)
	}
	return out
}

// Slice redacts sensitive values within a slice of strings.
func Slice(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = String(v)
	}
	return out
}

// Key shows the length of a key and nothing else, for messages that must
// identify which key was used without revealing it.
func Key(key string) string {
	if key == "" {
		return ""
	}
	return fmt.Sprintf("[%d chars]", len([]rune(key)))
}

func normaliseKey(k string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(k)), "-", "_")
}
