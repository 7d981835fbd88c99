package cipher

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/RowanDark/cipherkit/internal/breaker"
	"github.com/RowanDark/cipherkit/internal/feistel"
	"github.com/RowanDark/cipherkit/internal/vigenere"
)

const (
	sentence   = "EL SECRETO DE LA VIDA ES QUE NO HAY UN SECRETO PARA TODO Y EL QUE LO SABE NO LO DICE EN LA CALLE"
	sentenceVG = "GL LGCKGTH FE EC VBFA XU QNG NH JAR WN LGCKGTH RAKC THFO R GL JWE EQ STDE GQ LH FIVG EG NA VCLEG"
	sentenceCS = "HO VHFUHWR GH OD YLGD HV TXH QR KDB XQ VHFUHWR SDUD WRGR B HO TXH OR VDEH QR OR GLFH HQ OD FDOOH"
)

func TestCipherOperations(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		input    string
		params   Params
		expected string
	}{
		{"caesar int shift", "caesar_encode", sentence, Params{"shift": 3}, sentenceCS},
		{"caesar float shift", "caesar_decode", sentenceCS, Params{"shift": 3.0}, sentence},
		{"caesar string shift", "caesar_encode", "abc 789", Params{"shift": "3"}, "def 012"},
		{"vigenere encode", "vigenere_encode", sentence, Params{"key": "CAT"}, sentenceVG},
		{"vigenere decode", "vigenere_decode", sentenceVG, Params{"key": "cat"}, sentence},
		{"vigenere case", "vigenere_encode", "abc, ABC!", Params{"key": "ABC"}, "ace, ACE!"},
		{"xor hex key", "xor", "AB", Params{"key_hex": "5a"}, "\x1b\x18"},
		{"xor text key", "xor", "\x1b\x18", Params{"key": "Z"}, "AB"},
		{"text fold", "text_fold", "¿Qué pasó, niño?", nil, "¿QUE PASO, NINO?"},
		{"text fold strip", "text_fold", "¿Qué pasó, niño?", Params{"strip_punct": true}, "QUE PASO NINO"},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Execute(ctx, tt.op, []byte(tt.input), tt.params)
			if err != nil {
				t.Fatalf("%s failed: %v", tt.op, err)
			}
			if string(out) != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, out)
			}
		})
	}
}

func TestCipherOperationErrors(t *testing.T) {
	tests := []struct {
		name   string
		op     string
		params Params
		want   error
	}{
		{"caesar without shift", "caesar_encode", nil, ErrMissingParam},
		{"caesar fractional shift", "caesar_encode", Params{"shift": 1.5}, ErrInvalidParam},
		{"vigenere without key", "vigenere_encode", Params{}, ErrMissingParam},
		{"vigenere key without letters", "vigenere_encode", Params{"key": "123"}, vigenere.ErrInvalidKey},
		{"vigenere key wrong type", "vigenere_decode", Params{"key": 7}, ErrInvalidParam},
		{"xor without key", "xor", nil, ErrMissingParam},
		{"xor bad hex", "xor", Params{"key_hex": "zz"}, ErrInvalidParam},
		{"feistel short key", "feistel_encrypt", Params{"key": "short"}, feistel.ErrInvalidArgument},
		{"feistel bad hex", "feistel_encrypt", Params{"key_hex": "xyz"}, ErrInvalidParam},
		{"unknown", "rot13", nil, ErrUnknownOperation},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Execute(ctx, tt.op, []byte("data"), tt.params)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestFeistelOperations(t *testing.T) {
	ctx := context.Background()

	out, err := Execute(ctx, "feistel_encrypt", []byte("HOLAMUND"), Params{"key": "CLAVE123"})
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if got := hex.EncodeToString(out); got != "bab1c6103f9302cd0c3dacc42527cd4d" {
		t.Fatalf("expected bab1c6103f9302cd0c3dacc42527cd4d, got %s", got)
	}

	same, err := Execute(ctx, "feistel_encrypt", []byte("HOLAMUND"), Params{"key_hex": "0x3332314556414c43"})
	if err != nil {
		t.Fatalf("encrypt with key_hex failed: %v", err)
	}
	if string(same) != string(out) {
		t.Fatalf("key and key_hex disagree: %x vs %x", same, out)
	}

	for _, text := range []string{"", "HOLA", "HOLAMUND", "Mensaje de 19 bytes"} {
		enc, err := Execute(ctx, "feistel_encrypt", []byte(text), Params{"key": "CLAVE123"})
		if err != nil {
			t.Fatalf("encrypt %q failed: %v", text, err)
		}
		if len(enc)%feistel.BlockSize != 0 || len(enc) == 0 {
			t.Fatalf("encrypt %q: ciphertext length %d", text, len(enc))
		}
		dec, err := Execute(ctx, "feistel_decrypt", enc, Params{"key": "CLAVE123"})
		if err != nil {
			t.Fatalf("decrypt %q failed: %v", text, err)
		}
		if string(dec) != text {
			t.Fatalf("round trip: expected %q, got %q", text, dec)
		}
	}

	if _, err := Execute(ctx, "feistel_decrypt", []byte("odd"), Params{"key": "CLAVE123"}); !errors.Is(err, feistel.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for partial block, got %v", err)
	}
}

func TestFeistelKeepsTrailingZeros(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		input []byte
	}{
		{"single nul", []byte{0}},
		{"text then nuls", []byte{'H', 'O', 'L', 'A', 0, 0}},
		{"full block of nuls", make([]byte, feistel.BlockSize)},
		{"binary tail", []byte{0xff, 0x10, 0, 0, 0, 0, 0, 0, 0, 0x01, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := Execute(ctx, "feistel_encrypt", tt.input, Params{"key": "CLAVE123"})
			if err != nil {
				t.Fatalf("encrypt failed: %v", err)
			}
			dec, err := Execute(ctx, "feistel_decrypt", enc, Params{"key": "CLAVE123"})
			if err != nil {
				t.Fatalf("decrypt failed: %v", err)
			}
			if !bytes.Equal(dec, tt.input) {
				t.Fatalf("expected %v, got %v", tt.input, dec)
			}
		})
	}
}

func TestFeistelDecryptRejectsBadPadding(t *testing.T) {
	c, err := feistel.NewFromBytes([]byte("CLAVE123"))
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}
	// A block whose last byte is zero after decryption carries no valid padding.
	raw, err := c.Encrypt([]byte{'H', 'O', 'L', 'A', 0, 0, 0, 0})
	if err != nil {
		t.Fatalf("raw encrypt failed: %v", err)
	}
	_, err = Execute(context.Background(), "feistel_decrypt", raw, Params{"key": "CLAVE123"})
	if !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("expected ErrInvalidParam, got %v", err)
	}
}

func TestAnalysisOperations(t *testing.T) {
	xored := make([]byte, len(sentence))
	for i := range sentence {
		xored[i] = sentence[i] ^ 0x5a
	}

	tests := []struct {
		name   string
		op     string
		input  []byte
		params Params
	}{
		{"vigenere break", "vigenere_break", []byte(sentenceVG), Params{"max_key_length": 3, "workers": 4}},
		{"vigenere break short markers", "vigenere_break", []byte(sentenceVG), Params{"max_key_length": "3", "markers": "el,la,de,que,y,en,un,ser,es,con"}},
		{"caesar break", "caesar_break", []byte(sentenceCS), nil},
		{"caesar frequency", "caesar_break", []byte(sentenceCS), Params{"method": "frequency"}},
		{"xor break", "xor_break", xored, nil},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Execute(ctx, tt.op, tt.input, tt.params)
			if err != nil {
				t.Fatalf("%s failed: %v", tt.op, err)
			}
			if string(out) != sentence {
				t.Errorf("expected the plaintext back, got %q", out)
			}
		})
	}
}

func TestAnalysisOperationErrors(t *testing.T) {
	ctx := context.Background()

	if _, err := Execute(ctx, "vigenere_break", []byte(sentenceVG), Params{"max_key_length": 0}); !errors.Is(err, breaker.ErrSearchBounds) {
		t.Fatalf("expected ErrSearchBounds, got %v", err)
	}
	if _, err := Execute(ctx, "caesar_break", []byte(sentenceCS), Params{"method": "magic"}); !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("expected ErrInvalidParam, got %v", err)
	}
	if _, err := Execute(ctx, "xor_break", nil, nil); !errors.Is(err, ErrNoCandidate) {
		t.Fatalf("expected ErrNoCandidate, got %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := Execute(cancelled, "vigenere_break", []byte(sentenceVG), nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
