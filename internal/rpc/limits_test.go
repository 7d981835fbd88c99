package rpc

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/RowanDark/cipherkit/internal/cipher"
)

func newLimitedServer(t *testing.T) *Server {
	t.Helper()

	recipes := cipher.NewRecipeStore("")
	err := recipes.Save(&cipher.Recipe{
		Name: "crack-deep",
		Pipeline: cipher.Pipeline{Steps: []cipher.Step{
			{Name: "vigenere_break", Params: cipher.Params{"max_key_length": 13, "workers": 500}},
		}},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	return NewServer(Config{
		Recipes: recipes,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Limits:  Limits{MaxKeyLength: 2, Workers: 2},
	})
}

func TestTransformHonoursBreakLimits(t *testing.T) {
	srv := newLimitedServer(t)

	tests := []struct {
		name string
		req  map[string]any
		code codes.Code
	}{
		{"operation above limit", map[string]any{"operation": "vigenere_break", "input": encodedK, "params": map[string]any{"max_key_length": 5}}, codes.InvalidArgument},
		{"operation zero length", map[string]any{"operation": "vigenere_break", "input": encodedK, "params": map[string]any{"max_key_length": 0}}, codes.InvalidArgument},
		{"operation bad length", map[string]any{"operation": "vigenere_break", "input": encodedK, "params": map[string]any{"max_key_length": "deep"}}, codes.InvalidArgument},
		{"recipe above limit", map[string]any{"recipe": "crack-deep", "input": encodedK}, codes.InvalidArgument},
		{"operation many workers", map[string]any{"operation": "vigenere_break", "input": encodedK, "params": map[string]any{"max_key_length": 2, "workers": 1000}}, codes.OK},
		{"operation default length", map[string]any{"operation": "vigenere_break", "input": encodedK}, codes.OK},
		{"recipe with override", map[string]any{"recipe": "crack-deep", "input": encodedK, "params": map[string]any{"max_key_length": 2}}, codes.OK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := srv.Transform(context.Background(), mustStruct(t, tt.req))
			if status.Code(err) != tt.code {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
			if tt.code == codes.OK && resp.GetFields()["output"].GetStringValue() != plaintext {
				t.Fatalf("unexpected output %v", resp.GetFields()["output"])
			}
		})
	}
}

func TestBoundParams(t *testing.T) {
	srv := newLimitedServer(t)

	tests := []struct {
		name    string
		op      string
		params  cipher.Params
		maxLen  int
		workers int
	}{
		{"defaults", "vigenere_break", cipher.Params{}, 2, 2},
		{"workers clamped", "vigenere_break", cipher.Params{"workers": 1000.0}, 2, 2},
		{"workers floor", "vigenere_break", cipher.Params{"workers": -4}, 2, 1},
		{"explicit length", "vigenere_break", cipher.Params{"max_key_length": 1, "workers": 1}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(tt.params)
			got, err := srv.boundParams(tt.op, tt.params)
			if err != nil {
				t.Fatalf("boundParams: %v", err)
			}
			if n, _ := got.Int("max_key_length", 0); n != tt.maxLen {
				t.Errorf("expected max_key_length %d, got %d", tt.maxLen, n)
			}
			if n, _ := got.Int("workers", 0); n != tt.workers {
				t.Errorf("expected workers %d, got %d", tt.workers, n)
			}
			if len(tt.params) != before {
				t.Error("caller params were modified")
			}
		})
	}

	in := cipher.Params{"key": "ABC"}
	got, err := srv.boundParams("vigenere_encode", in)
	if err != nil || len(got) != 1 {
		t.Fatalf("other operations should pass through unchanged, got %v, %v", got, err)
	}
}
