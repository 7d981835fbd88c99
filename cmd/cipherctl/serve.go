package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/RowanDark/cipherkit/internal/config"
	"github.com/RowanDark/cipherkit/internal/history"
	"github.com/RowanDark/cipherkit/internal/logging"
	"github.com/RowanDark/cipherkit/internal/rpc"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", "", "listen address (default from config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	if *addr != "" {
		cfg.ServerAddr = *addr
	}
	if strings.TrimSpace(cfg.AuthSecret) == "" {
		fmt.Fprintln(stderr, "auth_secret must be configured to serve (CIPHERKIT_AUTH_SECRET)")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg); err != nil {
		fmt.Fprintf(stderr, "serve: %v\n", err)
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	var opts []logging.Option
	if cfg.AuditLog != "" {
		opts = append(opts, logging.WithoutStdout(), logging.WithFile(cfg.AuditLog))
	}
	audit, err := logging.NewAuditLogger("cipherkit", opts...)
	if err != nil {
		return fmt.Errorf("configure audit logger: %w", err)
	}
	defer audit.Close()

	recipes, err := openRecipes(cfg)
	if err != nil {
		return err
	}

	var store *history.Store
	if cfg.HistoryPath != "" {
		store, err = history.New(cfg.HistoryPath)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
	}

	srv := rpc.NewServer(rpc.Config{
		Recipes: recipes,
		History: store,
		Audit:   audit.WithComponent("rpc"),
		Logger:  logger,
		Limits: rpc.Limits{
			MaxKeyLength: cfg.Breaker.MaxKeyLength,
			Workers:      cfg.Breaker.Workers,
			Markers:      cfg.Breaker.Markers,
			Dictionary:   cfg.XOR.Dictionary,
		},
	})
	gs, err := rpc.NewGRPCServer([]byte(cfg.AuthSecret), srv)
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", cfg.ServerAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.ServerAddr, err)
	}

	logger.Info("serving", "addr", lis.Addr().String(), "history", cfg.HistoryPath != "", "recipes", len(recipes.List()))
	_ = audit.Emit(logging.AuditEvent{
		EventType: logging.EventRPCCall,
		Decision:  logging.DecisionInfo,
		Metadata:  map[string]any{"phase": "ready", "address": lis.Addr().String()},
	})

	err = rpc.Serve(ctx, gs, lis)
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	logger.Info("stopped")
	return nil
}
