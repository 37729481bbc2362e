package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a cookie value fails signature or shape checks.
var ErrInvalidToken = errors.New("session: invalid token")

// CookieCodec signs session ids into cookie values so that forged or
// tampered cookies are rejected before the store is consulted.
type CookieCodec struct {
	secret []byte
	now    func() time.Time
}

func NewCookieCodec(secret []byte) *CookieCodec {
	return &CookieCodec{secret: secret, now: time.Now}
}

// Encode returns an HS256 token carrying the session id as its jti.
func (c *CookieCodec) Encode(sessionID string, expiresAt time.Time) (string, error) {
	now := c.now()
	claims := jwt.RegisteredClaims{
		ID:        sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session cookie: %w", err)
	}
	return token, nil
}

// Decode verifies the token and returns the session id it carries.
func (c *CookieCodec) Decode(value string) (string, error) {
	return c.decode(value,
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
}

// DecodeExpired verifies the signature only, so that an expired cookie can
// still be used to clean up its server-side record.
func (c *CookieCodec) DecodeExpired(value string) (string, error) {
	return c.decode(value, jwt.WithoutClaimsValidation())
}

func (c *CookieCodec) decode(value string, opts ...jwt.ParserOption) (string, error) {
	var claims jwt.RegisteredClaims
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := jwt.ParseWithClaims(value, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID == "" {
		return "", ErrInvalidToken
	}
	return claims.ID, nil
}
