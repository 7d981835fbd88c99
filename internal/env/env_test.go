package env

import "testing"

func TestLookup(t *testing.T) {
	want := "/tmp/recipes"
	t.Setenv("CIPHERKIT_RECIPES_DIR", want)

	got, ok := Lookup("recipes_dir")
	if !ok {
		t.Fatalf("expected lookup to succeed")
	}
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestLookupPrefersCurrentPrefix(t *testing.T) {
	t.Setenv("CIPHERKIT_SERVER_ADDR", "new:1")
	t.Setenv("GOINGSECURE_SERVER_ADDR", "old:1")

	got, ok := Lookup("SERVER_ADDR")
	if !ok || got != "new:1" {
		t.Fatalf("expected current prefix to win, got %q", got)
	}
}

func TestLookupLegacyWarnsOnce(t *testing.T) {
	ResetWarningsForTesting()
	var warnings []string
	restore := SetWarnLoggerForTesting(func(msg string, args ...any) {
		warnings = append(warnings, msg)
	})
	defer restore()

	t.Setenv("GOINGSECURE_AUDIT_LOG", "/var/log/audit.jsonl")
	for i := 0; i < 3; i++ {
		got, ok := Lookup("AUDIT_LOG")
		if !ok || got != "/var/log/audit.jsonl" {
			t.Fatalf("expected legacy value, got %q (%v)", got, ok)
		}
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one deprecation warning, got %d", len(warnings))
	}
}

func TestString(t *testing.T) {
	t.Setenv("CIPHERKIT_BLANK", "   ")
	if _, ok := String("BLANK"); ok {
		t.Fatal("blank value should count as unset")
	}
	t.Setenv("CIPHERKIT_PADDED", "  value ")
	if got, ok := String("PADDED"); !ok || got != "value" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
	if _, ok := String("MISSING_FOR_SURE"); ok {
		t.Fatal("missing variable should not resolve")
	}
	if Key("workers") != "CIPHERKIT_WORKERS" {
		t.Fatalf("unexpected key %q", Key("workers"))
	}
}
