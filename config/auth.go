package config

import (
	"fmt"
	"time"
)

// AuthConfig configures manager authentication.
type AuthConfig struct {
	// JWTSecret signs access tokens. The API refuses to start without it.
	JWTSecret  string        `json:"jwt_secret"`
	TokenTTL   time.Duration `json:"token_ttl"`
	BcryptCost int           `json:"bcrypt_cost"`
}

// SetDefaults applies sane defaults.
func (c *AuthConfig) SetDefaults() {
	if c.TokenTTL == 0 {
		c.TokenTTL = 24 * time.Hour
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 10
	}
}

// Validate checks mandatory fields.
func (c AuthConfig) Validate() error {
	if c.TokenTTL < 0 {
		return fmt.Errorf("auth.token_ttl must not be negative")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 31")
	}
	return nil
}
