package rpc

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/RowanDark/cipherkit/internal/breaker"
	"github.com/RowanDark/cipherkit/internal/cipher"
	"github.com/RowanDark/cipherkit/internal/history"
	"github.com/RowanDark/cipherkit/internal/logging"
)

// Limits bound what a remote caller may ask of the breaker.
type Limits struct {
	MaxKeyLength int
	Workers      int
	Markers      []string
	Dictionary   []string
}

// Config wires a Server. A nil Registry means cipher.Default() and nil
// Recipes means the built-in recipes only. History and Audit are optional.
type Config struct {
	Registry *cipher.Registry
	Recipes  *cipher.RecipeStore
	History  *history.Store
	Audit    *logging.AuditLogger
	Logger   *slog.Logger
	Limits   Limits
}

// Server implements ToolkitServer.
type Server struct {
	registry *cipher.Registry
	recipes  *cipher.RecipeStore
	history  *history.Store
	audit    *logging.AuditLogger
	logger   *slog.Logger
	limits   Limits
}

var _ ToolkitServer = (*Server)(nil)

// NewServer creates a Toolkit server.
func NewServer(cfg Config) *Server {
	if cfg.Registry == nil {
		cfg.Registry = cipher.Default()
	}
	if cfg.Recipes == nil {
		cfg.Recipes = cipher.NewRecipeStore("")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Limits.MaxKeyLength < 1 {
		cfg.Limits.MaxKeyLength = 3
	}
	if cfg.Limits.Workers < 1 {
		cfg.Limits.Workers = 1
	}
	return &Server{
		registry: cfg.Registry,
		recipes:  cfg.Recipes,
		history:  cfg.History,
		audit:    cfg.Audit,
		logger:   cfg.Logger,
		limits:   cfg.Limits,
	}
}

// NewGRPCServer returns a grpc.Server with srv registered behind bearer
// token authentication.
func NewGRPCServer(secret []byte, srv *Server, opts ...grpc.ServerOption) (*grpc.Server, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(UnaryAuthInterceptor(secret, srv.audit)))
	gs := grpc.NewServer(opts...)
	RegisterToolkitServer(gs, srv)
	return gs, nil
}

// Serve runs gs on lis until ctx is cancelled, then stops gracefully, forcing
// the stop after two seconds.
func Serve(ctx context.Context, gs *grpc.Server, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		done := make(chan struct{})
		go func() {
			gs.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			gs.Stop()
		}
	}()

	if err := gs.Serve(lis); err != nil {
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
	return nil
}

// Transform runs one operation or a stored recipe.
func (s *Server) Transform(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	opName := stringField(fields, "operation")
	recipeRef := stringField(fields, "recipe")
	if (opName == "") == (recipeRef == "") {
		return nil, status.Error(codes.InvalidArgument, "exactly one of operation or recipe is required")
	}
	input, err := bytesField(fields, "input")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	params := cipher.Params(fields["params"].GetStructValue().AsMap())

	var out []byte
	name := opName
	if opName != "" {
		op, ok := s.registry.Get(opName)
		if !ok {
			return nil, status.Errorf(codes.NotFound, "%v: %s", cipher.ErrUnknownOperation, opName)
		}
		var bounded cipher.Params
		if bounded, err = s.boundParams(opName, params); err != nil {
			return nil, err
		}
		out, err = op.Execute(ctx, input, bounded)
	} else {
		var recipe *cipher.Recipe
		recipe, err = s.recipes.Get(recipeRef)
		if err == nil {
			name = "recipe:" + recipe.Name
			pipeline := recipe.Pipeline.WithParams(params)
			for i, step := range pipeline.Steps {
				if pipeline.Steps[i].Params, err = s.boundParams(step.Name, step.Params); err != nil {
					return nil, err
				}
			}
			out, err = pipeline.ExecuteWith(ctx, s.registry, input)
		}
	}
	if s.audit != nil {
		_ = s.audit.Operation(SubjectFromContext(ctx), name, len(input), len(out), err)
	}
	if err != nil {
		return nil, statusFromError(err)
	}

	resp := map[string]any{"output_base64": base64.StdEncoding.EncodeToString(out)}
	if utf8.Valid(out) {
		resp["output"] = string(out)
	}
	return structpb.NewStruct(resp)
}

// boundParams holds a vigenere_break step to the same limits as Break. An
// absent max_key_length defaults to min(3, limit) and workers are clamped to
// the server pool.
func (s *Server) boundParams(name string, params cipher.Params) (cipher.Params, error) {
	if name != "vigenere_break" {
		return params, nil
	}
	maxLen, err := params.Int("max_key_length", min(3, s.limits.MaxKeyLength))
	if err != nil {
		return nil, statusFromError(err)
	}
	if maxLen < 1 || maxLen > s.limits.MaxKeyLength {
		return nil, status.Errorf(codes.InvalidArgument, "max_key_length must be between 1 and %d", s.limits.MaxKeyLength)
	}
	workers, err := params.Int("workers", s.limits.Workers)
	if err != nil {
		return nil, statusFromError(err)
	}
	out := make(cipher.Params, len(params)+2)
	for k, v := range params {
		out[k] = v
	}
	out["max_key_length"] = maxLen
	out["workers"] = max(1, min(workers, s.limits.Workers))
	return out, nil
}

// Break recovers a key. The requested max_key_length may not exceed the
// server limit.
func (s *Server) Break(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	ciphertext, err := bytesField(fields, "ciphertext")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	breq := breaker.Request{
		Cipher:       stringField(fields, "cipher"),
		Ciphertext:   ciphertext,
		MaxKeyLength: s.limits.MaxKeyLength,
		Workers:      s.limits.Workers,
		Markers:      s.limits.Markers,
		Dictionary:   s.limits.Dictionary,
		TwoByte:      fields["two_byte"].GetBoolValue(),
	}
	if v, ok := fields["max_key_length"]; ok {
		n := int(v.GetNumberValue())
		if n < 1 || n > s.limits.MaxKeyLength {
			return nil, status.Errorf(codes.InvalidArgument, "max_key_length must be between 1 and %d", s.limits.MaxKeyLength)
		}
		breq.MaxKeyLength = n
	}
	if v, ok := fields["markers"]; ok {
		breq.Markers = nil
		for _, m := range v.GetListValue().GetValues() {
			if w := strings.TrimSpace(m.GetStringValue()); w != "" {
				breq.Markers = append(breq.Markers, w)
			}
		}
	}

	subject := SubjectFromContext(ctx)
	rec, err := breaker.Recover(ctx, breq, s.logger)
	if err != nil {
		if s.audit != nil {
			_ = s.audit.SearchAborted(subject, breq.Cipher, err)
		}
		return nil, statusFromError(err)
	}
	if s.audit != nil {
		_ = s.audit.KeyRecovered(subject, rec.Cipher, len(rec.Key), rec.Score, rec.Candidates)
	}

	resp := map[string]any{
		"cipher":        rec.Cipher,
		"key":           rec.Key,
		"score":         rec.Score,
		"candidates":    float64(rec.Candidates),
		"duration_ms":   float64(rec.Duration.Milliseconds()),
		"output_base64": base64.StdEncoding.EncodeToString(rec.Plaintext),
	}
	if utf8.Valid(rec.Plaintext) {
		resp["output"] = string(rec.Plaintext)
	}
	if rec.Cipher == breaker.CipherVigenere {
		resp["max_key_length"] = float64(breq.MaxKeyLength)
	}

	if s.history != nil {
		hr := &history.Record{
			Kind:       rec.Cipher,
			Subject:    subject,
			Key:        rec.Key,
			Plaintext:  string(rec.Plaintext),
			Score:      rec.Score,
			Candidates: rec.Candidates,
			Duration:   rec.Duration,
		}
		if rec.Cipher == breaker.CipherVigenere {
			hr.MaxKeyLength = breq.MaxKeyLength
		}
		hr.SetCiphertext(ciphertext)
		if err := s.history.Save(ctx, hr); err != nil {
			s.logger.Warn("failed to save history record", "error", err)
		} else {
			resp["record_id"] = hr.ID
		}
	}
	return structpb.NewStruct(resp)
}

// ListOperations lists the registry and the recipe store.
func (s *Server) ListOperations(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	ops := s.registry.List()
	opList := make([]any, 0, len(ops))
	for _, op := range ops {
		_, reversible := op.Reverse()
		opList = append(opList, map[string]any{
			"name":        op.Name(),
			"type":        string(op.Type()),
			"description": op.Description(),
			"reversible":  reversible,
		})
	}
	recipes := s.recipes.List()
	recipeList := make([]any, 0, len(recipes))
	for _, r := range recipes {
		recipeList = append(recipeList, map[string]any{
			"id":          r.ID,
			"name":        r.Name,
			"description": r.Description,
			"builtin":     r.Builtin,
		})
	}
	return structpb.NewStruct(map[string]any{
		"operations": opList,
		"recipes":    recipeList,
	})
}

func stringField(fields map[string]*structpb.Value, key string) string {
	return strings.TrimSpace(fields[key].GetStringValue())
}

// bytesField reads key as text or key_base64 as standard Base64.
func bytesField(fields map[string]*structpb.Value, key string) ([]byte, error) {
	text, hasText := fields[key]
	encoded, hasEncoded := fields[key+"_base64"]
	switch {
	case hasText && hasEncoded:
		return nil, fmt.Errorf("only one of %s and %s_base64 may be set", key, key)
	case hasEncoded:
		data, err := base64.StdEncoding.DecodeString(encoded.GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("%s_base64: %w", key, err)
		}
		return data, nil
	default:
		return []byte(text.GetStringValue()), nil
	}
}

func statusFromError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, cipher.ErrUnknownOperation), errors.Is(err, cipher.ErrRecipeNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.InvalidArgument, err.Error())
	}
}
