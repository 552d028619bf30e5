// Package auth verifies relay caller tokens and resolves the owning account.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonathan/inventory-poster/internal/config"
)

// RoleAdmin is the role RequireAdminRole demands.
const RoleAdmin = "admin"

// Identity is an authenticated caller. OwnerID scopes every inventory write.
type Identity struct {
	OwnerID uuid.UUID `json:"owner_id"`
	Role    string    `json:"role"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Claims represents JWT claims with user ID and role.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator issues and validates HS256 tokens.
type Authenticator struct {
	cfg          *config.AuthConfig
	requireAdmin bool
	now          func() time.Time
}

// NewAuthenticator creates an Authenticator. requireAdmin mirrors Settings.RequireAdminRole.
func NewAuthenticator(cfg *config.AuthConfig, requireAdmin bool) *Authenticator {
	return &Authenticator{cfg: cfg, requireAdmin: requireAdmin, now: time.Now}
}

// IssueToken mints a token for an owner.
func (a *Authenticator) IssueToken(ownerID uuid.UUID, role string) (string, error) {
	now := a.now()
	expiresAt := now.Add(time.Duration(a.cfg.TTLHours) * time.Hour)

	claims := &Claims{
		UserID: ownerID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(a.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Authenticate validates a token and returns the caller identity.
func (a *Authenticator) Authenticate(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, &TokenError{Message: "token string is empty"}
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.cfg.Secret), nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Identity{}, &TokenError{Message: "invalid token signature", Cause: err}
		case errors.Is(err, jwt.ErrTokenExpired):
			return Identity{}, &TokenError{Message: "token expired", Cause: err}
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Identity{}, &TokenError{Message: "malformed token", Cause: err}
		}
		return Identity{}, &TokenError{Message: "failed to parse token", Cause: err}
	}
	if !token.Valid {
		return Identity{}, &TokenError{Message: "token is not valid"}
	}
	if claims.UserID == uuid.Nil {
		return Identity{}, &TokenError{Message: "token has no user_id"}
	}

	id := Identity{OwnerID: claims.UserID, Role: claims.Role}
	if a.requireAdmin && !id.IsAdmin() {
		return Identity{}, fmt.Errorf("role %q: %w", id.Role, ErrForbidden)
	}
	return id, nil
}
