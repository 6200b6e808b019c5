package token

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// TypeAccess is the "type" claim the backend puts on access tokens.
const TypeAccess = "access"

var ErrEmptyToken = errors.New("empty access token")

// Claims is the unverified view of an access token. The client never holds the
// signing key; these values are informational and must not be used for
// authorization decisions.
type Claims struct {
	UserID    int64     `json:"user_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	Type      string    `json:"type,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
}

// Inspect decodes the claims of a JWT access token without verifying its
// signature.
func Inspect(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyToken
	}

	parsed, _, err := jwtlib.NewParser().ParseUnverified(raw, jwtlib.MapClaims{})
	if err != nil {
		return nil, err
	}
	mapClaims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("error extracting claims")
	}

	claims := &Claims{}
	switch id := mapClaims["user_id"].(type) {
	case float64:
		claims.UserID = int64(id)
	case int64:
		claims.UserID = id
	}
	claims.Email, _ = mapClaims["email"].(string)
	claims.Type, _ = mapClaims["type"].(string)
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	return claims, nil
}

// Expired reports whether the token's exp claim is at or before now. Tokens
// without an exp claim never expire from the client's point of view.
func (c *Claims) Expired(now time.Time) bool {
	if c == nil || c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt)
}

// OAuth2 wraps a raw access token as a bearer oauth2.Token. Expiry is filled in
// when the token is a readable JWT; opaque tokens are still returned usable.
func OAuth2(raw string) *oauth2.Token {
	tok := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}
	if claims, err := Inspect(raw); err == nil {
		tok.Expiry = claims.ExpiresAt
	}
	return tok
}
