package amazon

import (
	"fmt"
	"time"

	"github.com/custodia-labs/stratus-sync/internal/core/domain"
)

// DefaultEndpoint is the EU Selling Partner API host.
const DefaultEndpoint = "https://sellingpartnerapi-eu.amazon.com"

// Config holds SP-API access and fetch tuning.
type Config struct {
	// Endpoint is the SP-API host.
	Endpoint string
	// AccessToken is the LWA access token (refresh flows are handled
	// upstream).
	AccessToken string
	// MarketplaceIDs scopes order queries.
	MarketplaceIDs []string

	// PageSize is MaxResultsPerPage, capped at 100 by the API.
	PageSize int
	// Overlap widens the incremental window behind the high-water mark.
	Overlap time.Duration
	// Lookback bounds the window for a domain that has never synced.
	Lookback time.Duration
}

// Validate checks that credentials are present.
func (c Config) Validate() error {
	if c.AccessToken == "" || len(c.MarketplaceIDs) == 0 {
		return fmt.Errorf("%w: amazon access token and marketplace IDs are required", domain.ErrMissingCredentials)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.PageSize <= 0 || c.PageSize > 100 {
		c.PageSize = 100
	}
	if c.Overlap <= 0 {
		c.Overlap = 5 * time.Minute
	}
	if c.Lookback <= 0 {
		c.Lookback = 30 * 24 * time.Hour
	}
	return c
}
