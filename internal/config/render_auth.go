package config

import (
	"fmt"
	"os"
	"strconv"
)

// RenderAuthConfig holds the shared secret used to sign requests between the
// submission service and a separately deployed rendering endpoint.
type RenderAuthConfig struct {
	Secret     string
	TTLMinutes int
}

// NewRenderAuthConfig creates a configuration from environment variables.
// It reads RENDER_SHARED_SECRET (required) and RENDER_TOKEN_TTL_MINUTES
// (default: 5).
func NewRenderAuthConfig() (*RenderAuthConfig, error) {
	secret := os.Getenv("RENDER_SHARED_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("RENDER_SHARED_SECRET is required but not set")
	}

	ttlStr := os.Getenv("RENDER_TOKEN_TTL_MINUTES")
	if ttlStr == "" {
		ttlStr = "5" // default
	}

	ttl, err := strconv.Atoi(ttlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid RENDER_TOKEN_TTL_MINUTES: %v", err)
	}

	config := &RenderAuthConfig{
		Secret:     secret,
		TTLMinutes: ttl,
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return config, nil
}

// normalize validates the configuration.
func (c *RenderAuthConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("RENDER_SHARED_SECRET cannot be empty")
	}
	if len(c.Secret) < 16 {
		return fmt.Errorf("RENDER_SHARED_SECRET must be at least 16 characters")
	}
	if c.TTLMinutes < 1 {
		return fmt.Errorf("RENDER_TOKEN_TTL_MINUTES must be at least 1 minute, got: %d", c.TTLMinutes)
	}
	return nil
}
