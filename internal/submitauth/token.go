// Package submitauth authenticates bridge-module RPC callbacks: a sandboxed
// container presenting a token back to the host so the host can authorize
// and attribute the call to a specific container key (spec.md Design Notes
// §9, "Open question: bridge-module authentication").
package submitauth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("submitauth: invalid bridge token")

// Claims identifies the container and chat session a bridge callback
// claims to be acting on behalf of.
type Claims struct {
	ContainerKey string `json:"container_key"`
	ChatKey      string `json:"chat_key"`
	jwt.RegisteredClaims
}

// TokenService mints and verifies the shared-secret HS256 token every
// launched container receives as NEKRO_BRIDGE_TOKEN.
type TokenService struct {
	secret []byte
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// Mint issues a token scoped to one container's lifetime, valid for ttl
// (callers pass the configured SANDBOX_RUNNING_TIMEOUT plus slack).
func (s *TokenService) Mint(containerKey, chatKey string, ttl time.Duration) (string, error) {
	claims := Claims{
		ContainerKey: containerKey,
		ChatKey:      chatKey,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   containerKey,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses tokenString and returns its claims, rejecting anything not
// signed with HS256 and this service's secret, or expired.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
