package postgrest

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource supplies the bearer credential for a call. It is owned by the
// session collaborator; the client never stores or refreshes tokens itself.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed credential, e.g. from a flag or config file.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return strings.TrimSpace(string(t)), nil }

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// checkCredential rejects a missing credential and a JWT whose exp claim has
// passed. The signature is not verified here; the server does that. Opaque
// (non-JWT) tokens are passed through.
func checkCredential(token string, now time.Time) string {
	if strings.TrimSpace(token) == "" {
		return "missing credential"
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return ""
	}
	if claims.ExpiresAt != nil && !claims.ExpiresAt.Time.After(now) {
		return "credential expired at " + claims.ExpiresAt.Time.UTC().Format(time.RFC3339)
	}
	return ""
}

// CredentialProblem describes why token would be rejected before any request
// is sent, or returns "" when it looks usable.
func CredentialProblem(token string, now time.Time) string {
	return checkCredential(token, now)
}
