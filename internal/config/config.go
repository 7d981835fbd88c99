package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/RowanDark/cipherkit/internal/env"
)

const (
	homeDirName   = ".cipherkit"
	localFileName = "cipherkit.yml"
)

// Config captures the cipherkit configuration resolved from defaults, optional
// files, and environment overrides.
type Config struct {
	ServerAddr  string        `yaml:"server_addr"`
	AuthSecret  string        `yaml:"auth_secret"`
	RecipesDir  string        `yaml:"recipes_dir"`
	HistoryPath string        `yaml:"history_path"`
	AuditLog    string        `yaml:"audit_log"`
	Breaker     BreakerConfig `yaml:"breaker"`
	XOR         XORConfig     `yaml:"xor"`
}

// BreakerConfig bounds the exhaustive key search.
type BreakerConfig struct {
	MaxKeyLength int      `yaml:"max_key_length"`
	Workers      int      `yaml:"workers"`
	Markers      []string `yaml:"markers"`
}

// XORConfig holds the candidate keys tried by dictionary XOR breaking.
type XORConfig struct {
	Dictionary []string `yaml:"dictionary"`
}

// Default returns the built-in configuration. Empty markers and dictionary
// mean the library defaults; an empty history path or audit log disables them.
func Default() Config {
	cfg := Config{
		ServerAddr: "127.0.0.1:50051",
		Breaker: BreakerConfig{
			MaxKeyLength: 3,
			Workers:      1,
		},
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		cfg.RecipesDir = filepath.Join(home, homeDirName, "recipes")
	}
	return cfg
}

// Validate reports settings no component can run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ServerAddr) == "" {
		return errors.New("server_addr cannot be empty")
	}
	if c.Breaker.MaxKeyLength < 1 {
		return fmt.Errorf("breaker.max_key_length must be positive, got %d", c.Breaker.MaxKeyLength)
	}
	if c.Breaker.Workers < 1 {
		return fmt.Errorf("breaker.workers must be positive, got %d", c.Breaker.Workers)
	}
	return nil
}

// Load resolves the configuration using defaults, configuration files, and
// environment overrides. Files are applied in order, later ones winning:
//  1. ~/.cipherkit/config.yaml
//  2. ./cipherkit.yml
//
// Environment variables prefixed with CIPHERKIT_ (or the legacy GOINGSECURE_)
// have the highest precedence.
func Load() (Config, error) {
	cfg := Default()

	if err := loadHomeConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadLocalConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile applies a single YAML file on top of the defaults. Environment
// overrides still apply.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if err := applyFile(&cfg, path, false); err != nil {
		return Config{}, err
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadHomeConfig(cfg *Config) error {
	home, err := os.UserHomeDir()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		slog.Debug("no home directory, skipping user config", "error", err)
		return nil
	}
	return applyFile(cfg, filepath.Join(home, homeDirName, "config.yaml"), true)
}

func loadLocalConfig(cfg *Config) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}
	return applyFile(cfg, filepath.Join(wd, localFileName), true)
}

func applyFile(cfg *Config, path string, optional bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := applyFileConfig(cfg, data); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

type fileConfig struct {
	ServerAddr  *string            `yaml:"server_addr"`
	AuthSecret  *string            `yaml:"auth_secret"`
	RecipesDir  *string            `yaml:"recipes_dir"`
	HistoryPath *string            `yaml:"history_path"`
	AuditLog    *string            `yaml:"audit_log"`
	Breaker     *fileBreakerConfig `yaml:"breaker"`
	XOR         *fileXORConfig     `yaml:"xor"`
}

type fileBreakerConfig struct {
	MaxKeyLength *int     `yaml:"max_key_length"`
	Workers      *int     `yaml:"workers"`
	Markers      []string `yaml:"markers"`
}

type fileXORConfig struct {
	Dictionary []string `yaml:"dictionary"`
}

func applyFileConfig(cfg *Config, data []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}

	if fc.ServerAddr != nil {
		cfg.ServerAddr = strings.TrimSpace(*fc.ServerAddr)
	}
	if fc.AuthSecret != nil {
		cfg.AuthSecret = strings.TrimSpace(*fc.AuthSecret)
	}
	if fc.RecipesDir != nil {
		cfg.RecipesDir = expandHome(strings.TrimSpace(*fc.RecipesDir))
	}
	if fc.HistoryPath != nil {
		cfg.HistoryPath = expandHome(strings.TrimSpace(*fc.HistoryPath))
	}
	if fc.AuditLog != nil {
		cfg.AuditLog = expandHome(strings.TrimSpace(*fc.AuditLog))
	}
	if fc.Breaker != nil {
		if fc.Breaker.MaxKeyLength != nil {
			cfg.Breaker.MaxKeyLength = *fc.Breaker.MaxKeyLength
		}
		if fc.Breaker.Workers != nil {
			cfg.Breaker.Workers = *fc.Breaker.Workers
		}
		if fc.Breaker.Markers != nil {
			cfg.Breaker.Markers = cleanList(fc.Breaker.Markers)
		}
	}
	if fc.XOR != nil && fc.XOR.Dictionary != nil {
		cfg.XOR.Dictionary = cleanList(fc.XOR.Dictionary)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if val, ok := env.String("SERVER_ADDR"); ok {
		cfg.ServerAddr = val
	}
	if val, ok := env.String("AUTH_SECRET"); ok {
		cfg.AuthSecret = val
	}
	if val, ok := env.String("RECIPES_DIR"); ok {
		cfg.RecipesDir = expandHome(val)
	}
	if val, ok := env.String("HISTORY_PATH"); ok {
		cfg.HistoryPath = expandHome(val)
	}
	if val, ok := env.String("AUDIT_LOG"); ok {
		cfg.AuditLog = expandHome(val)
	}
	if val, ok := env.String("BREAKER_MAX_KEY_LENGTH"); ok {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%s: %w", env.Key("BREAKER_MAX_KEY_LENGTH"), err)
		}
		cfg.Breaker.MaxKeyLength = n
	}
	if val, ok := env.String("BREAKER_WORKERS"); ok {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%s: %w", env.Key("BREAKER_WORKERS"), err)
		}
		cfg.Breaker.Workers = n
	}
	if val, ok := env.String("BREAKER_MARKERS"); ok {
		cfg.Breaker.Markers = cleanList(strings.Split(val, ","))
	}
	if val, ok := env.String("XOR_DICTIONARY"); ok {
		cfg.XOR.Dictionary = cleanList(strings.Split(val, ","))
	}
	return nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
