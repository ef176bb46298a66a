package devapi

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RoleUser is the database role carried by tokens of signed-in users.
const RoleUser = "rsd_user"

// Claims is the JWT payload the development API issues and accepts.
type Claims struct {
	jwt.RegisteredClaims
	Role    string `json:"role"`
	Account string `json:"account"`
}

// LoadOrInitSecret reads the signing secret at path, creating a random one
// on first use.
func LoadOrInitSecret(path string) ([]byte, error) {
	if b, err := os.ReadFile(path); err == nil && len(strings.TrimSpace(string(b))) > 0 {
		return []byte(strings.TrimSpace(string(b))), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	enc := base64.RawURLEncoding.EncodeToString(raw)
	if err := os.WriteFile(path, []byte(enc+"\n"), 0o600); err != nil {
		return nil, err
	}
	return []byte(enc), nil
}

// IssueToken signs an HS256 token for account, valid for ttl.
func IssueToken(secret []byte, account string, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("empty signing secret")
	}
	if account == "" {
		account = uuid.NewString()
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:    RoleUser,
		Account: account,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "rsd_auth",
			Subject:   account,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	})
	return t.SignedString(secret)
}

func verifyToken(secret []byte, token string, now time.Time) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Role != RoleUser {
		return nil, fmt.Errorf("role %q may not write", claims.Role)
	}
	return claims, nil
}

// authenticate checks the bearer token of a mutating request.
func (s *Server) authenticate(r *http.Request, tableName string) (*Claims, error) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return nil, newAPIError(http.StatusUnauthorized, "42501", "permission denied for table "+tableName)
	}
	claims, err := verifyToken(s.secret, strings.TrimSpace(token), s.now())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, newAPIError(http.StatusUnauthorized, "PGRST301", "JWT expired")
		}
		return nil, newAPIError(http.StatusUnauthorized, "PGRST301", "JWSError").withDetails(err.Error())
	}
	return claims, nil
}
