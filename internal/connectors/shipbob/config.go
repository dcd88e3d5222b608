package shipbob

import (
	"fmt"

	"github.com/custodia-labs/stratus-sync/internal/core/domain"
)

// DefaultBaseURL is the versioned ShipBob API root.
const DefaultBaseURL = "https://api.shipbob.com/2025-07"

// Config holds ShipBob API access.
type Config struct {
	// Token is a PAT or OAuth bearer token.
	Token string
	// BaseURL overrides the API root, mainly for tests.
	BaseURL string
	// PageSize is the per-page item limit.
	PageSize int
}

// Validate checks that credentials are present.
func (c Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("%w: shipbob token is required", domain.ErrMissingCredentials)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.PageSize <= 0 {
		c.PageSize = 250
	}
	return c
}
