package main

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/RowanDark/cipherkit/internal/redact"
)

func runConfig(args []string) int {
	if len(args) == 0 || args[0] != "print" {
		fmt.Fprintln(stderr, "usage: cipherctl config print")
		return 2
	}
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	if cfg.AuthSecret != "" {
		cfg.AuthSecret = redact.Secret
	}
	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		fmt.Fprintf(stderr, "encode config: %v\n", err)
		return 1
	}
	if err := enc.Close(); err != nil {
		fmt.Fprintf(stderr, "encode config: %v\n", err)
		return 1
	}
	return 0
}
