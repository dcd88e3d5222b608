package shopify

import (
	"fmt"
	"time"

	"github.com/custodia-labs/stratus-sync/internal/core/domain"
)

// DefaultAPIVersion is the pinned Admin API version.
const DefaultAPIVersion = "2024-07"

// Config holds Shopify Admin API credentials and fetch tuning.
type Config struct {
	// Shop is the shop name without the .myshopify.com suffix.
	Shop string
	// AccessToken is the Admin API access token.
	AccessToken string
	// APIVersion pins the Admin API version.
	APIVersion string

	// PageSize is the per-page item limit. Defaults to 50, a conservative
	// value that keeps call-limit usage low.
	PageSize int
	// Overlap widens the incremental window behind the high-water mark.
	Overlap time.Duration
	// Lookback bounds the window for a domain that has never synced.
	Lookback time.Duration
}

// Validate checks that credentials are present.
func (c Config) Validate() error {
	if c.Shop == "" || c.AccessToken == "" {
		return fmt.Errorf("%w: shopify shop and access token are required", domain.ErrMissingCredentials)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	if c.PageSize <= 0 {
		c.PageSize = 50
	}
	if c.Overlap <= 0 {
		c.Overlap = 5 * time.Minute
	}
	if c.Lookback <= 0 {
		c.Lookback = 30 * 24 * time.Hour
	}
	return c
}

// BaseURL returns the versioned Admin API root for the shop.
func (c Config) BaseURL() string {
	return fmt.Sprintf("https://%s.myshopify.com/admin/api/%s", c.Shop, c.APIVersion)
}
