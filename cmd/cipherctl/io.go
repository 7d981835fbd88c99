package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/RowanDark/cipherkit/internal/cipher"
	"github.com/RowanDark/cipherkit/internal/config"
	"github.com/RowanDark/cipherkit/internal/logging"
)

// paramFlags collects repeated -p key=value flags.
type paramFlags []string

func (p *paramFlags) String() string {
	return strings.Join(*p, ",")
}

func (p *paramFlags) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	*p = append(*p, v)
	return nil
}

// forStep returns the parameters for a step known by any of names.
// "key=value" applies to every step, "name.key=value" only to that step and
// takes precedence.
func (p paramFlags) forStep(names ...string) cipher.Params {
	params := cipher.Params{}
	var scoped [][2]string
	for _, kv := range p {
		k, v, _ := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if scope, name, ok := strings.Cut(k, "."); ok {
			if slices.Contains(names, scope) {
				scoped = append(scoped, [2]string{name, v})
			}
			continue
		}
		params[k] = v
	}
	for _, kv := range scoped {
		params[kv[0]] = kv[1]
	}
	return params
}

// stringList collects repeated flags.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// readInput returns text, the contents of path, or stdin, in that order of
// preference. A trailing newline read from stdin is dropped.
func readInput(text, path string) ([]byte, error) {
	if text != "" && path != "" {
		return nil, errors.New("use only one of -in and -file")
	}
	if text != "" {
		return []byte(text), nil
	}
	if path != "" {
		return os.ReadFile(path)
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	data = []byte(strings.TrimRight(string(data), "\r\n"))
	if len(data) == 0 {
		return nil, errors.New("no input: pass -in, -file or pipe data on stdin")
	}
	return data, nil
}

// writeOutput writes data to path, or prints it. Binary data is printed as
// Base64 unless raw is set.
func writeOutput(data []byte, path string, raw bool) error {
	if path != "" {
		return os.WriteFile(path, data, 0o600)
	}
	if raw {
		_, err := stdout.Write(data)
		return err
	}
	if utf8.Valid(data) {
		_, err := fmt.Fprintln(stdout, string(data))
		return err
	}
	fmt.Fprintln(stderr, "output is binary; printing Base64 (use -raw or -out for bytes)")
	_, err := fmt.Fprintln(stdout, base64.StdEncoding.EncodeToString(data))
	return err
}

func loadConfig() (config.Config, error) {
	if *configPath != "" {
		return config.LoadFile(*configPath)
	}
	return config.Load()
}

// openAudit returns the configured audit logger, or one that discards events
// when no audit log is set.
func openAudit(cfg config.Config, component string) (*logging.AuditLogger, error) {
	if strings.TrimSpace(cfg.AuditLog) == "" {
		return logging.Discard(component), nil
	}
	return logging.NewAuditLogger(component, logging.WithoutStdout(), logging.WithFile(cfg.AuditLog))
}

func openRecipes(cfg config.Config) (*cipher.RecipeStore, error) {
	store := cipher.NewRecipeStore(cfg.RecipesDir)
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("load recipes: %w", err)
	}
	return store, nil
}
