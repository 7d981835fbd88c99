package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(cwd)
	})
}

func TestLoadPrecedence(t *testing.T) {
	tempDir := t.TempDir()

	// Home config sets everything it can.
	homeDir := filepath.Join(tempDir, "home")
	if err := os.MkdirAll(filepath.Join(homeDir, ".cipherkit"), 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	homeConfig := []byte(`server_addr: 0.0.0.0:1111
recipes_dir: ~/my-recipes
history_path: /var/lib/cipherkit/history.db
breaker:
  max_key_length: 4
  workers: 2
  markers: [de, la]
xor:
  dictionary: [clave, " secreto "]
`)
	if err := os.WriteFile(filepath.Join(homeDir, ".cipherkit", "config.yaml"), homeConfig, 0o644); err != nil {
		t.Fatalf("write home config: %v", err)
	}

	// The local file overrides part of it.
	workDir := filepath.Join(tempDir, "work")
	if err := os.Mkdir(workDir, 0o755); err != nil {
		t.Fatalf("mkdir work: %v", err)
	}
	localConfig := []byte(`server_addr: 127.0.0.1:6500
breaker:
  workers: 8
`)
	if err := os.WriteFile(filepath.Join(workDir, "cipherkit.yml"), localConfig, 0o644); err != nil {
		t.Fatalf("write local config: %v", err)
	}
	chdir(t, workDir)

	// Environment beats both files; the legacy prefix still works.
	t.Setenv("CIPHERKIT_AUTH_SECRET", "env-secret")
	t.Setenv("GOINGSECURE_BREAKER_MARKERS", "que, el")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.ServerAddr != "127.0.0.1:6500" {
		t.Fatalf("unexpected server addr: %s", cfg.ServerAddr)
	}
	if cfg.AuthSecret != "env-secret" {
		t.Fatalf("expected env secret, got %q", cfg.AuthSecret)
	}
	if cfg.RecipesDir != filepath.Join(homeDir, "my-recipes") {
		t.Fatalf("expected ~ expansion, got %s", cfg.RecipesDir)
	}
	if cfg.HistoryPath != "/var/lib/cipherkit/history.db" {
		t.Fatalf("expected home history path, got %s", cfg.HistoryPath)
	}
	if cfg.Breaker.MaxKeyLength != 4 || cfg.Breaker.Workers != 8 {
		t.Fatalf("unexpected breaker config: %+v", cfg.Breaker)
	}
	if !reflect.DeepEqual(cfg.Breaker.Markers, []string{"que", "el"}) {
		t.Fatalf("expected env markers, got %v", cfg.Breaker.Markers)
	}
	if !reflect.DeepEqual(cfg.XOR.Dictionary, []string{"clave", "secreto"}) {
		t.Fatalf("unexpected dictionary: %v", cfg.XOR.Dictionary)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", filepath.Join(t.TempDir(), "home"))
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	defaults := Default()
	if !reflect.DeepEqual(cfg, defaults) {
		t.Fatalf("expected defaults, got %#v", cfg)
	}
	if defaults.Breaker.MaxKeyLength != 3 || defaults.Breaker.Workers != 1 {
		t.Fatalf("unexpected breaker defaults: %+v", defaults.Breaker)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", filepath.Join(t.TempDir(), "home"))

	tests := []struct {
		name    string
		env     map[string]string
		file    string
		wantErr string
	}{
		{
			name:    "non numeric workers",
			env:     map[string]string{"CIPHERKIT_BREAKER_WORKERS": "many"},
			wantErr: "CIPHERKIT_BREAKER_WORKERS",
		},
		{
			name:    "zero key length",
			file:    "breaker:\n  max_key_length: 0\n",
			wantErr: "max_key_length",
		},
		{
			name:    "malformed yaml",
			file:    "breaker: [\n",
			wantErr: "parse config",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			chdir(t, dir)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.file != "" {
				if err := os.WriteFile(filepath.Join(dir, "cipherkit.yml"), []byte(tt.file), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("HOME", filepath.Join(t.TempDir(), "home"))
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("audit_log: /tmp/audit.jsonl\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.AuditLog != "/tmp/audit.jsonl" {
		t.Fatalf("unexpected audit log %q", cfg.AuditLog)
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("an explicit missing file should fail")
	}
}
