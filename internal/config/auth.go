package config

import (
	"fmt"
	"os"
	"strconv"
)

// AuthConfig holds the shared secret used to verify relay caller tokens.
type AuthConfig struct {
	Secret   string
	TTLHours int // lifetime of tokens minted by issue-token
}

// NewAuthConfig reads JWT_SECRET (required) and JWT_EXPIRATION_HOURS (default: 24).
func NewAuthConfig() (*AuthConfig, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}

	ttl := 24
	if v := os.Getenv("JWT_EXPIRATION_HOURS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid JWT_EXPIRATION_HOURS: %v", err)
		}
		ttl = n
	}
	if ttl < 1 {
		return nil, fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", ttl)
	}

	return &AuthConfig{Secret: secret, TTLHours: ttl}, nil
}
