// Package auth provides JWT-based authentication for upkept-engine.
// Tokens are issued by the hosted auth provider and validated against its
// JWKS endpoint; everything beyond "who is calling and for which org" is
// the provider's problem.
package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// TokenKey is the context key for storing the raw JWT token string.
	TokenKey contextKey = "token"
)

// Claims represents the JWT claims structure from the auth provider.
// It embeds RegisteredClaims for standard JWT fields (sub, iss, exp, etc.)
// and adds the org claim that scopes every tenant operation.
type Claims struct {
	jwt.RegisteredClaims
	OrgClaim string   `json:"org,omitempty"`   // Organization UUID
	Email    string   `json:"email,omitempty"` // User email address
	Roles    []string `json:"roles,omitempty"` // User roles within the org

	// OrgID is the parsed OrgClaim, populated during validation.
	OrgID uuid.UUID `json:"-"`
}

// parseOrg validates and caches the org claim.
func (c *Claims) parseOrg() error {
	if c.OrgClaim == "" {
		return fmt.Errorf("missing org claim")
	}
	id, err := uuid.Parse(c.OrgClaim)
	if err != nil {
		return fmt.Errorf("invalid org claim: %w", err)
	}
	c.OrgID = id
	return nil
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetToken retrieves the raw JWT token string from the request context.
// Returns empty string and false if token is not present.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// OrgIDFromContext extracts the org ID from JWT claims in the context.
// Returns uuid.Nil if not authenticated.
func OrgIDFromContext(ctx context.Context) uuid.UUID {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return uuid.Nil
	}
	return claims.OrgID
}

// UserIDFromContext extracts the user ID (subject) from JWT claims in the
// context. Returns empty string if not authenticated.
func UserIDFromContext(ctx context.Context) string {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return ""
	}
	return claims.Subject
}
