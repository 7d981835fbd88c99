package rpc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/RowanDark/cipherkit/internal/logging"
)

const (
	tokenIssuer = "cipherkit"
	// DefaultTokenTTL applies when IssueToken gets a non-positive ttl.
	DefaultTokenTTL = time.Hour
)

// ErrEmptySecret is returned when tokens are issued, verified or served
// without a signing secret.
var ErrEmptySecret = errors.New("auth secret must not be empty")

// Claims are the JWT claims carried by bearer tokens.
type Claims struct {
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for subject.
func IssueToken(secret []byte, subject string, ttl time.Duration) (string, time.Time, error) {
	if len(secret) == 0 {
		return "", time.Time{}, ErrEmptySecret
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", time.Time{}, errors.New("token subject must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now().UTC()
	expires := now.Add(ttl)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// ParseToken verifies signature, issuer and expiry and returns the claims.
func ParseToken(secret []byte, token string) (*Claims, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

type subjectKey struct{}

// SubjectFromContext returns the authenticated subject of an RPC.
func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}

func bearerToken(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("missing metadata")
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return "", errors.New("missing authorization header")
	}
	scheme, token, found := strings.Cut(strings.TrimSpace(values[0]), " ")
	if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("authorization must be a bearer token")
	}
	return strings.TrimSpace(token), nil
}

// UnaryAuthInterceptor rejects calls without a valid bearer token and audits
// every call and denial.
func UnaryAuthInterceptor(secret []byte, audit *logging.AuditLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		token, err := bearerToken(ctx)
		var claims *Claims
		if err == nil {
			claims, err = ParseToken(secret, token)
		}
		if err != nil {
			emitAudit(audit, logging.AuditEvent{
				EventType: logging.EventRPCDenied,
				Decision:  logging.DecisionDeny,
				Reason:    err.Error(),
				Metadata:  map[string]any{"method": info.FullMethod},
			})
			return nil, status.Errorf(codes.Unauthenticated, "unauthenticated: %v", err)
		}

		ctx = context.WithValue(ctx, subjectKey{}, claims.Subject)
		start := time.Now()
		resp, err := handler(ctx, req)
		decision := logging.DecisionAllow
		if err != nil {
			decision = logging.DecisionDeny
		}
		emitAudit(audit, logging.AuditEvent{
			Subject:   claims.Subject,
			EventType: logging.EventRPCCall,
			Decision:  decision,
			Metadata: map[string]any{
				"method":      info.FullMethod,
				"code":        status.Code(err).String(),
				"duration_ms": time.Since(start).Milliseconds(),
			},
		})
		return resp, err
	}
}

func emitAudit(logger *logging.AuditLogger, event logging.AuditEvent) {
	if logger == nil {
		return
	}
	_ = logger.Emit(event)
}
