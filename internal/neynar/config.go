// Package neynar resolves Farcaster identities through the Neynar API.
package neynar

import (
	"errors"
	"os"
)

// ErrMissingAPIKey is returned when NEYNAR_API_KEY is not set.
var ErrMissingAPIKey = errors.New("missing NEYNAR_API_KEY environment variable")

// Config holds Neynar API configuration.
type Config struct {
	APIKey string
}

// LoadConfig reads Neynar configuration from environment variables.
// Returns ErrMissingAPIKey if NEYNAR_API_KEY is not set.
func LoadConfig() (*Config, error) {
	apiKey := os.Getenv("NEYNAR_API_KEY")
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	return &Config{APIKey: apiKey}, nil
}
