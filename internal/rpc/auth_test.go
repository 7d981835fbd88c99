package rpc

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc/metadata"
)

func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func TestIssueAndParseToken(t *testing.T) {
	secret := []byte("s3cret")

	token, expires, err := IssueToken(secret, " alice ", 0)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if d := time.Until(expires); d < 59*time.Minute || d > DefaultTokenTTL {
		t.Fatalf("expected default ttl, got %v", d)
	}
	claims, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != "alice" || claims.Issuer != "cipherkit" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := ParseToken([]byte("wrong"), token); err == nil {
		t.Fatal("expected signature failure")
	}
	if _, _, err := IssueToken(nil, "alice", time.Minute); !errors.Is(err, ErrEmptySecret) {
		t.Fatalf("expected ErrEmptySecret, got %v", err)
	}
	if _, _, err := IssueToken(secret, "  ", time.Minute); err == nil {
		t.Fatal("expected error for empty subject")
	}
}

func TestParseTokenRejects(t *testing.T) {
	secret := []byte("s3cret")
	sign := func(method jwt.SigningMethod, claims jwt.Claims, key any) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatal(err)
		}
		return s
	}
	past := jwt.NewNumericDate(time.Now().Add(-time.Hour))
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name  string
		token string
	}{
		{"expired", sign(jwt.SigningMethodHS256, jwt.RegisteredClaims{Issuer: "cipherkit", Subject: "a", ExpiresAt: past}, secret)},
		{"no expiry", sign(jwt.SigningMethodHS256, jwt.RegisteredClaims{Issuer: "cipherkit", Subject: "a"}, secret)},
		{"wrong issuer", sign(jwt.SigningMethodHS256, jwt.RegisteredClaims{Issuer: "other", Subject: "a", ExpiresAt: future}, secret)},
		{"other algorithm", sign(jwt.SigningMethodHS512, jwt.RegisteredClaims{Issuer: "cipherkit", Subject: "a", ExpiresAt: future}, secret)},
		{"no subject", sign(jwt.SigningMethodHS256, jwt.RegisteredClaims{Issuer: "cipherkit", ExpiresAt: future}, secret)},
		{"garbage", "abc.def.ghi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(secret, tt.token); err == nil {
				t.Fatal("expected token to be rejected")
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  []string
		want    string
		wantErr bool
	}{
		{"bearer", []string{"Bearer abc"}, "abc", false},
		{"lower case scheme", []string{"bearer  abc "}, "abc", false},
		{"basic", []string{"Basic abc"}, "", true},
		{"no token", []string{"Bearer"}, "", true},
		{"missing", nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := metadata.MD{}
			for _, h := range tt.header {
				md.Append("authorization", h)
			}
			ctx := metadata.NewIncomingContext(context.Background(), md)
			got, err := bearerToken(ctx)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Fatalf("got %q, %v", got, err)
			}
		})
	}

	if _, err := bearerToken(context.Background()); err == nil {
		t.Fatal("expected error without metadata")
	}
	if SubjectFromContext(context.Background()) != "" {
		t.Fatal("expected no subject")
	}
}
