package cipher

import (
	"context"
	"testing"
)

// echoOperation returns its input unchanged.
type echoOperation struct {
	name string
	kind OperationType
}

func (e *echoOperation) Name() string               { return e.name }
func (e *echoOperation) Type() OperationType        { return e.kind }
func (e *echoOperation) Description() string        { return "echo" }
func (e *echoOperation) Reverse() (Operation, bool) { return e, true }

func (e *echoOperation) Execute(_ context.Context, input []byte, _ Params) ([]byte, error) {
	return input, nil
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	op := &echoOperation{name: "echo", kind: OperationTypeTransform}

	if err := r.Register(op); err != nil {
		t.Fatalf("failed to register operation: %v", err)
	}
	if err := r.Register(op); err == nil {
		t.Fatal("expected error when registering duplicate operation")
	}
	if err := r.Register(nil); err == nil {
		t.Fatal("expected error when registering nil")
	}
	if err := r.Register(&echoOperation{}); err == nil {
		t.Fatal("expected error for empty name")
	}

	got, ok := r.Get("echo")
	if !ok || got.Name() != "echo" {
		t.Fatalf("expected to find echo, got %v %v", got, ok)
	}
	if _, ok := r.Get("missing"); ok {
		t.Fatal("missing operation should not exist")
	}

	r.Unregister("echo")
	if _, ok := r.Get("echo"); ok {
		t.Fatal("echo should be gone after Unregister")
	}
}

func TestRegistryListSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(&echoOperation{name: name, kind: OperationTypeEncode}); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.Register(&echoOperation{name: "beta", kind: OperationTypeDecode}); err != nil {
		t.Fatal(err)
	}

	ops := r.List()
	want := []string{"alpha", "beta", "mid", "zeta"}
	if len(ops) != len(want) {
		t.Fatalf("expected %d operations, got %d", len(want), len(ops))
	}
	for i, op := range ops {
		if op.Name() != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], op.Name())
		}
	}

	encoders := r.ListByType(OperationTypeEncode)
	if len(encoders) != 3 {
		t.Fatalf("expected 3 encoders, got %d", len(encoders))
	}
}

func TestBuiltinRegistry(t *testing.T) {
	builtins := []string{
		"ascii_to_hex", "base64_decode", "base64_encode", "base64url_decode", "base64url_encode",
		"binary_decode", "binary_encode", "caesar_break", "caesar_decode", "caesar_encode",
		"feistel_decrypt", "feistel_encrypt", "hex_decode", "hex_encode", "hex_to_ascii",
		"text_fold", "vigenere_break", "vigenere_decode", "vigenere_encode", "xor", "xor_break",
	}

	ops := ListOperations()
	if len(ops) != len(builtins) {
		t.Fatalf("expected %d built-in operations, got %d", len(builtins), len(ops))
	}
	for i, op := range ops {
		if op.Name() != builtins[i] {
			t.Fatalf("position %d: expected %s, got %s", i, builtins[i], op.Name())
		}
		if op.Description() == "" {
			t.Errorf("%s has no description", op.Name())
		}
	}

	if got := len(ListOperationsByType(OperationTypeAnalyze)); got != 3 {
		t.Fatalf("expected 3 analysis operations, got %d", got)
	}

	// a fresh registry is independent of the default one
	r := NewBuiltinRegistry()
	r.Unregister("xor")
	if _, ok := GetOperation("xor"); !ok {
		t.Fatal("default registry must not be affected")
	}
}

func TestRegisterDefinitionsRejectsDanglingInverse(t *testing.T) {
	r := NewRegistry()
	err := r.registerDefinitions([]definition{{
		name:    "half",
		kind:    OperationTypeEncode,
		inverse: "other_half",
		exec:    pure(encodeHex),
	}})
	if err == nil {
		t.Fatal("expected error for undefined inverse")
	}
}
