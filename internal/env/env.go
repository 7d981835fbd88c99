// Package env resolves CIPHERKIT_ prefixed environment variables, falling
// back to the legacy GOINGSECURE_ prefix.
package env

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

const (
	Prefix       = "CIPHERKIT_"
	LegacyPrefix = "GOINGSECURE_"
)

var (
	warnLogger func(msg string, args ...any) = slog.Warn
	warnMu     sync.Mutex
	warnedKeys sync.Map
)

// Key returns the current variable name for name.
func Key(name string) string {
	return Prefix + strings.ToUpper(name)
}

// Lookup returns the value of CIPHERKIT_<name>. When only the legacy
// GOINGSECURE_<name> is set it is returned instead and a deprecation warning
// is logged once per variable.
func Lookup(name string) (string, bool) {
	name = strings.ToUpper(name)
	current := Prefix + name
	if v, ok := os.LookupEnv(current); ok {
		return v, true
	}
	legacy := LegacyPrefix + name
	if v, ok := os.LookupEnv(legacy); ok {
		logDeprecated(legacy, current)
		return v, true
	}
	return "", false
}

// String is Lookup with surrounding whitespace removed; blank values count as
// unset.
func String(name string) (string, bool) {
	v, ok := Lookup(name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func logDeprecated(oldKey, newKey string) {
	onceIface, _ := warnedKeys.LoadOrStore(oldKey, &sync.Once{})
	once := onceIface.(*sync.Once)
	once.Do(func() {
		warnMu.Lock()
		logger := warnLogger
		warnMu.Unlock()
		logger("deprecated environment variable", "variable", oldKey, "replacement", newKey)
	})
}

// ResetWarningsForTesting clears the cached once guards so tests can verify
// warning behaviour deterministically.
func ResetWarningsForTesting() {
	warnMu.Lock()
	warnedKeys = sync.Map{}
	warnMu.Unlock()
}

// SetWarnLoggerForTesting swaps the logger used for warnings. The returned
// function restores the previous logger and should be deferred in tests.
func SetWarnLoggerForTesting(fn func(msg string, args ...any)) (restore func()) {
	warnMu.Lock()
	previous := warnLogger
	warnLogger = fn
	warnMu.Unlock()
	return func() {
		warnMu.Lock()
		warnLogger = previous
		warnMu.Unlock()
	}
}
