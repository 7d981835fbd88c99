package rpc

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/RowanDark/cipherkit/internal/classic"
	"github.com/RowanDark/cipherkit/internal/history"
	"github.com/RowanDark/cipherkit/internal/logging"
)

const (
	testSecret = "test-secret"
	plaintext  = "EL SECRETO DE LA VIDA ES QUE NO HAY UN SECRETO PARA TODO Y EL QUE LO SABE NO LO DICE EN LA CALLE"
	encodedK   = "OV COMBODY NO VK FSNK OC AEO XY RKI EX COMBODY ZKBK DYNY I OV AEO VY CKLO XY VY NSMO OX VK MKVVO"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type testEnv struct {
	client  *Client
	history *history.Store
	audit   *syncBuffer
}

func startServer(t *testing.T) *testEnv {
	t.Helper()

	auditBuf := &syncBuffer{}
	audit, err := logging.NewAuditLogger("rpc", logging.WithoutStdout(), logging.WithWriter(auditBuf))
	if err != nil {
		t.Fatalf("audit logger: %v", err)
	}
	store, err := history.New(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	srv := NewServer(Config{
		History: store,
		Audit:   audit,
		Limits:  Limits{MaxKeyLength: 2, Workers: 2},
	})
	gs, err := NewGRPCServer([]byte(testSecret), srv)
	if err != nil {
		t.Fatalf("NewGRPCServer: %v", err)
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- Serve(ctx, gs, lis) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("Serve returned %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	token, _, err := IssueToken([]byte(testSecret), "alice", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	client, err := Dial(lis.Addr().String(), token)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return &testEnv{client: client, history: store, audit: auditBuf}
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	return s
}

func callCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestTransform(t *testing.T) {
	env := startServer(t)

	tests := []struct {
		name         string
		req          map[string]any
		output       string
		hasOutput    bool
		outputBase64 string
	}{
		{
			name:         "operation",
			req:          map[string]any{"operation": "base64_encode", "input": "hola"},
			output:       "aG9sYQ==",
			hasOutput:    true,
			outputBase64: "YUc5c1lRPT0=",
		},
		{
			name:         "recipe with key",
			req:          map[string]any{"recipe": "vigenere-base64", "input": "abc, ABC!", "params": map[string]any{"key": "ABC"}},
			output:       "YWNlLCBBQ0Uh",
			hasOutput:    true,
			outputBase64: "WVdObExDQkJRMFVo",
		},
		{
			name:         "binary output",
			req:          map[string]any{"operation": "hex_decode", "input": "ff00"},
			outputBase64: "/wA=",
		},
		{
			name:         "base64 input",
			req:          map[string]any{"operation": "caesar_decode", "input_base64": "S0hPRA==", "params": map[string]any{"shift": 3}},
			output:       "HELA",
			hasOutput:    true,
			outputBase64: "SEVMQQ==",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := env.client.Transform(callCtx(t), mustStruct(t, tt.req))
			if err != nil {
				t.Fatalf("Transform: %v", err)
			}
			fields := resp.GetFields()
			out, ok := fields["output"]
			if ok != tt.hasOutput {
				t.Fatalf("output present = %v, expected %v", ok, tt.hasOutput)
			}
			if ok && out.GetStringValue() != tt.output {
				t.Fatalf("expected output %q, got %q", tt.output, out.GetStringValue())
			}
			if got := fields["output_base64"].GetStringValue(); got != tt.outputBase64 {
				t.Fatalf("expected output_base64 %q, got %q", tt.outputBase64, got)
			}
		})
	}
}

func TestTransformFeistelBinaryRoundTrip(t *testing.T) {
	env := startServer(t)
	ctx := callCtx(t)

	// "HOLA" followed by two NUL bytes.
	const input = "SE9MQQAA"
	params := map[string]any{"key": "CLAVE123"}
	enc, err := env.client.Transform(ctx, mustStruct(t, map[string]any{"operation": "feistel_encrypt", "input_base64": input, "params": params}))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	ct := enc.GetFields()["output_base64"].GetStringValue()
	dec, err := env.client.Transform(ctx, mustStruct(t, map[string]any{"operation": "feistel_decrypt", "input_base64": ct, "params": params}))
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if got := dec.GetFields()["output_base64"].GetStringValue(); got != input {
		t.Fatalf("expected %s, got %s", input, got)
	}
}

func TestTransformErrors(t *testing.T) {
	env := startServer(t)

	tests := []struct {
		name string
		req  map[string]any
		code codes.Code
	}{
		{"unknown operation", map[string]any{"operation": "rot47", "input": "x"}, codes.NotFound},
		{"unknown recipe", map[string]any{"recipe": "nope", "input": "x"}, codes.NotFound},
		{"neither", map[string]any{"input": "x"}, codes.InvalidArgument},
		{"both", map[string]any{"operation": "hex_encode", "recipe": "feistel-hex"}, codes.InvalidArgument},
		{"missing key", map[string]any{"operation": "vigenere_encode", "input": "x"}, codes.InvalidArgument},
		{"bad base64", map[string]any{"operation": "hex_encode", "input_base64": "***"}, codes.InvalidArgument},
		{"two inputs", map[string]any{"operation": "hex_encode", "input": "a", "input_base64": "YQ=="}, codes.InvalidArgument},
		{"break above key limit", map[string]any{"operation": "vigenere_break", "input": encodedK, "params": map[string]any{"max_key_length": 5}}, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.client.Transform(callCtx(t), mustStruct(t, tt.req))
			if status.Code(err) != tt.code {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestBreak(t *testing.T) {
	env := startServer(t)
	ctx := callCtx(t)

	resp, err := env.client.Break(ctx, mustStruct(t, map[string]any{
		"cipher":         "vigenere",
		"ciphertext":     encodedK,
		"max_key_length": 1,
	}))
	if err != nil {
		t.Fatalf("Break: %v", err)
	}
	fields := resp.GetFields()
	if fields["key"].GetStringValue() != "K" || fields["output"].GetStringValue() != plaintext {
		t.Fatalf("unexpected result %v", resp)
	}
	if fields["candidates"].GetNumberValue() != 26 {
		t.Fatalf("expected 26 candidates, got %v", fields["candidates"].GetNumberValue())
	}

	id := fields["record_id"].GetStringValue()
	rec, err := env.history.Get(ctx, id)
	if err != nil {
		t.Fatalf("history record %q: %v", id, err)
	}
	if rec.Key != "K" || rec.Subject != "alice" || rec.MaxKeyLength != 1 || rec.CiphertextLen != len(encodedK) {
		t.Fatalf("unexpected history record %+v", rec)
	}

	resp, err = env.client.Break(ctx, mustStruct(t, map[string]any{
		"cipher":     "caesar",
		"ciphertext": classic.CaesarEncode(plaintext, 3),
	}))
	if err != nil {
		t.Fatalf("Break caesar: %v", err)
	}
	if resp.GetFields()["key"].GetStringValue() != "3" {
		t.Fatalf("expected shift 3, got %v", resp)
	}

	xored, err := classic.XOR([]byte(plaintext), []byte("admin"))
	if err != nil {
		t.Fatal(err)
	}
	resp, err = env.client.Break(ctx, mustStruct(t, map[string]any{
		"cipher":            "xor",
		"ciphertext_base64": encodeBase64(xored),
	}))
	if err != nil {
		t.Fatalf("Break xor: %v", err)
	}
	if got := resp.GetFields()["key"].GetStringValue(); got != "61646d696e" {
		t.Fatalf("expected hex of admin, got %q", got)
	}

	records, err := env.history.List(ctx, history.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 || records[0].Kind != "xor" {
		t.Fatalf("expected 3 records newest first, got %d", len(records))
	}

	log := env.audit.String()
	if !strings.Contains(log, string(logging.EventKeyRecovered)) {
		t.Fatalf("key recovery not audited:\n%s", log)
	}
	if strings.Contains(log, plaintext) {
		t.Fatal("plaintext leaked into the audit log")
	}
}

func TestBreakErrors(t *testing.T) {
	env := startServer(t)

	tests := []struct {
		name string
		req  map[string]any
		code codes.Code
	}{
		{"over server limit", map[string]any{"cipher": "vigenere", "ciphertext": "ABC", "max_key_length": 3}, codes.InvalidArgument},
		{"zero length", map[string]any{"cipher": "vigenere", "ciphertext": "ABC", "max_key_length": 0}, codes.InvalidArgument},
		{"unknown cipher", map[string]any{"cipher": "enigma", "ciphertext": "ABC"}, codes.InvalidArgument},
		{"xor without candidates", map[string]any{"cipher": "xor", "ciphertext": ""}, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.client.Break(callCtx(t), mustStruct(t, tt.req))
			if status.Code(err) != tt.code {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
		})
	}
	if !strings.Contains(env.audit.String(), string(logging.EventSearchAborted)) {
		t.Fatal("aborted search not audited")
	}
}

func TestListOperations(t *testing.T) {
	env := startServer(t)

	resp, err := env.client.ListOperations(callCtx(t))
	if err != nil {
		t.Fatalf("ListOperations: %v", err)
	}
	ops := resp.GetFields()["operations"].GetListValue().GetValues()
	if len(ops) != 21 {
		t.Fatalf("expected 21 operations, got %d", len(ops))
	}
	first := ops[0].GetStructValue().GetFields()
	if first["name"].GetStringValue() != "ascii_to_hex" || !first["reversible"].GetBoolValue() {
		t.Fatalf("unexpected first operation %v", first)
	}
	recipes := resp.GetFields()["recipes"].GetListValue().GetValues()
	if len(recipes) != 4 {
		t.Fatalf("expected the 4 built-in recipes, got %d", len(recipes))
	}
}

func TestUnauthenticated(t *testing.T) {
	env := startServer(t)
	addr := env.client.conn.Target()

	forged, _, err := IssueToken([]byte("other-secret"), "mallory", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	for _, token := range []string{forged, "not-a-jwt"} {
		c, err := Dial(addr, token)
		if err != nil {
			t.Fatal(err)
		}
		_, err = c.ListOperations(callCtx(t))
		_ = c.Close()
		if status.Code(err) != codes.Unauthenticated {
			t.Fatalf("expected Unauthenticated, got %v", err)
		}
	}

	// no metadata at all
	req := &structpb.Struct{}
	out := &structpb.Struct{}
	if err := env.client.conn.Invoke(callCtx(t), FullMethod(MethodListOperations), req, out); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated without a token, got %v", err)
	}

	if !strings.Contains(env.audit.String(), string(logging.EventRPCDenied)) {
		t.Fatal("denial not audited")
	}
}
