package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned by Claims when nothing is stored.
var ErrNoToken = errors.New("session: no stored token")

// Claims is what the dashboard shows about the current credential.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Expired reports whether the token's exp has passed. A token without exp
// never reports expired.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Claims decodes the stored token WITHOUT verifying its signature. The client
// has no key; the result is for display only.
func (s *Service) Claims(ctx context.Context) (Claims, error) {
	token, err := s.store.Get(ctx)
	if err != nil {
		return Claims{}, err
	}
	if token == "" {
		return Claims{}, ErrNoToken
	}
	return ParseClaims(token)
}

func ParseClaims(token string) (Claims, error) {
	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &rc); err != nil {
		return Claims{}, fmt.Errorf("decode token claims: %w", err)
	}
	c := Claims{Subject: rc.Subject}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}
	return c, nil
}
