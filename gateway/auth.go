package gateway

import (
	"crypto/rand"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const ClaimsKey contextKey = "claims"

// Claims are carried by gateway bearer tokens. An empty Statements list grants
// access to every statement in the catalog.
type Claims struct {
	jwt.RegisteredClaims
	Statements []string `json:"stmts,omitempty"`
}

// Allows reports whether the token may execute the named statement.
func (c *Claims) Allows(name string) bool {
	return len(c.Statements) == 0 || slices.Contains(c.Statements, name)
}

// LoadSecretKey reads the HMAC key at path, generating and storing a random
// key if the file does not exist yet.
func LoadSecretKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			b := make([]byte, 32)
			if _, err := rand.Read(b); err != nil {
				return nil, fmt.Errorf("failed to generate random JWT secret key: %w", err)
			}
			if err := os.WriteFile(path, b, 0600); err != nil {
				return nil, fmt.Errorf("failed to write JWT secret key: %w", err)
			}
			return b, nil
		}
		return nil, fmt.Errorf("failed to read JWT secret key: %w", err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("JWT secret key %s is empty", path)
	}
	return key, nil
}

// IssueToken signs a token for subject that expires after ttl.
func IssueToken(key []byte, subject string, statements []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Statements: statements,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// ParseToken validates tokenString against key and returns its claims.
func ParseToken(key []byte, tokenString string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return &claims, nil
}
