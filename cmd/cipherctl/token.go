package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/RowanDark/cipherkit/internal/logging"
	"github.com/RowanDark/cipherkit/internal/rpc"
)

func runToken(args []string) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	subject := fs.String("subject", "", "subject the token is issued to")
	ttl := fs.Duration("ttl", rpc.DefaultTokenTTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*subject) == "" {
		fmt.Fprintln(stderr, "--subject is required")
		return 2
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	token, expires, err := rpc.IssueToken([]byte(cfg.AuthSecret), *subject, *ttl)
	if err != nil {
		fmt.Fprintf(stderr, "issue token: %v\n", err)
		return 1
	}

	if audit, err := openAudit(cfg, "token"); err == nil {
		_ = audit.Emit(logging.AuditEvent{
			Subject:   *subject,
			EventType: logging.EventTokenIssued,
			Decision:  logging.DecisionAllow,
			Metadata:  map[string]any{"expires_at": expires.UTC().Format(time.RFC3339)},
		})
		_ = audit.Close()
	}

	fmt.Fprintln(stdout, token)
	fmt.Fprintf(stderr, "expires %s\n", expires.Local().Format(time.RFC3339))
	return 0
}
