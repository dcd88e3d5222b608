// Package config loads the engine configuration: a TOML file for
// structure and tuning, environment variables for credentials. Secrets
// never live in the file; the file never lives in the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the process-wide configuration, constructed once at startup
// and passed into constructors. There is no ambient global state.
type Config struct {
	Warehouse Warehouse `toml:"warehouse"`
	Runner    Runner    `toml:"runner"`
	Shopify   Shopify   `toml:"shopify"`
	Amazon    Amazon    `toml:"amazon"`
	ShipBob   ShipBob   `toml:"shipbob"`
}

// Warehouse selects and tunes the destination database.
type Warehouse struct {
	Driver    string `toml:"driver"`
	DSN       string `toml:"dsn"`
	MaxConns  int    `toml:"max_conns"`
	ChunkSize int    `toml:"chunk_size"`
}

// Runner tunes the default incremental window.
type Runner struct {
	Overlap  duration `toml:"overlap"`
	Lookback duration `toml:"lookback"`
}

// Shopify holds the shopify_orders domain settings. The access token
// comes from SHOPIFY_ACCESS_TOKEN.
type Shopify struct {
	Shop        string `toml:"shop"`
	APIVersion  string `toml:"api_version"`
	PageSize    int    `toml:"page_size"`
	AccessToken string `toml:"-"`
}

// Amazon holds the amazon_orders domain settings. The access token
// comes from AMZ_ACCESS_TOKEN.
type Amazon struct {
	Endpoint       string   `toml:"endpoint"`
	MarketplaceIDs []string `toml:"marketplace_ids"`
	PageSize       int      `toml:"page_size"`
	AccessToken    string   `toml:"-"`
}

// ShipBob holds the shipbob_inventory domain settings. The token comes
// from SHIPBOB_TOKEN.
type ShipBob struct {
	BaseURL  string `toml:"base_url"`
	PageSize int    `toml:"page_size"`
	Token    string `toml:"-"`
}

// duration parses TOML strings like "5m" or "720h".
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

// Std returns the plain time.Duration.
func (d duration) Std() time.Duration { return time.Duration(d) }

// Load reads the TOML file at path, then applies environment overrides.
// A missing file is not an error; credentials and the warehouse DSN can
// come entirely from the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env
		case err != nil:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := toml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("WAREHOUSE_DRIVER"); v != "" {
		c.Warehouse.Driver = v
	}
	if v := os.Getenv("WAREHOUSE_DSN"); v != "" {
		c.Warehouse.DSN = v
	}
	if v := os.Getenv("SHOPIFY_SHOP"); v != "" {
		c.Shopify.Shop = v
	}
	c.Shopify.AccessToken = os.Getenv("SHOPIFY_ACCESS_TOKEN")
	if v := os.Getenv("AMZ_ENDPOINT"); v != "" {
		c.Amazon.Endpoint = v
	}
	if v := os.Getenv("AMZ_MARKETPLACE_IDS"); v != "" {
		c.Amazon.MarketplaceIDs = splitList(v)
	}
	c.Amazon.AccessToken = os.Getenv("AMZ_ACCESS_TOKEN")
	if v := os.Getenv("SHIPBOB_BASE"); v != "" {
		c.ShipBob.BaseURL = v
	}
	c.ShipBob.Token = os.Getenv("SHIPBOB_TOKEN")
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
