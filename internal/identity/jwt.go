package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/roach88/wastelog/internal/waste"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or claim checks.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the JWT payload issued to callers.
type Claims struct {
	Identity waste.Identity `json:"identity"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 caller tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an issuer. A zero ttl defaults to 24 hours.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for id.
func (i *Issuer) Issue(id waste.Identity) (string, error) {
	if id == "" {
		return "", fmt.Errorf("issue token: identity is empty")
	}
	now := i.now()
	claims := &Claims{
		Identity: id,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(id),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return signed, nil
}

// Parse verifies tokenStr and returns the caller identity it carries.
func (i *Issuer) Parse(tokenStr string) (waste.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Identity == "" {
		return "", ErrInvalidToken
	}
	return claims.Identity, nil
}
