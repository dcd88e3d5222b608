// Package cli wires the engine together behind the stratus-sync command
// tree. Services are constructed lazily on first use so commands like
// version never touch the warehouse.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/stratus-sync/internal/adapters/driven/warehouse"
	"github.com/custodia-labs/stratus-sync/internal/config"
	"github.com/custodia-labs/stratus-sync/internal/connectors/amazon"
	"github.com/custodia-labs/stratus-sync/internal/connectors/shipbob"
	"github.com/custodia-labs/stratus-sync/internal/connectors/shopify"
	"github.com/custodia-labs/stratus-sync/internal/core/domain"
	"github.com/custodia-labs/stratus-sync/internal/core/ports/driven"
	"github.com/custodia-labs/stratus-sync/internal/core/ports/driving"
	"github.com/custodia-labs/stratus-sync/internal/core/services"
	"github.com/custodia-labs/stratus-sync/internal/logger"
)

var (
	cfgFile string
	verbose bool
	version = "dev"

	// Injected by ensureServices, replaced by mocks in tests.
	syncRunner driving.SyncRunner
	stateStore driven.SyncStateStore
	closeStore func() error
)

var rootCmd = &cobra.Command{
	Use:   "stratus-sync",
	Short: "Incremental sync engine for the Stratus warehouse",
	Long: `stratus-sync pulls order, inventory and accounting records from
vendor APIs and loads them into the relational warehouse, tracking a
per-domain high-water mark so each run only fetches what changed.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "stratus.toml", "path to the TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the command tree and releases the warehouse pool on exit.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	defer func() {
		if closeStore != nil {
			if err := closeStore(); err != nil {
				logger.Error("closing warehouse: %v", err)
			}
		}
	}()
	return rootCmd.Execute()
}

// ensureServices builds the warehouse store, the handler registry and
// the runner from configuration. Vendors without credentials are skipped
// with a warning rather than failing every other domain.
func ensureServices() error {
	if syncRunner != nil && stateStore != nil {
		return nil
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	store, err := warehouse.Open(warehouse.Config{
		Driver:    cfg.Warehouse.Driver,
		DSN:       cfg.Warehouse.DSN,
		MaxConns:  cfg.Warehouse.MaxConns,
		ChunkSize: cfg.Warehouse.ChunkSize,
	})
	if err != nil {
		return fmt.Errorf("opening warehouse: %w", err)
	}
	closeStore = store.Close

	var handlers []driven.Handler
	add := func(h driven.Handler, err error, vendor string) error {
		switch {
		case errors.Is(err, domain.ErrMissingCredentials):
			logger.Warn("skipping %s: %v", vendor, err)
			return nil
		case err != nil:
			return err
		default:
			handlers = append(handlers, h)
			return nil
		}
	}

	sh, err := shopify.NewOrders(shopify.Config{
		Shop:        cfg.Shopify.Shop,
		AccessToken: cfg.Shopify.AccessToken,
		APIVersion:  cfg.Shopify.APIVersion,
		PageSize:    cfg.Shopify.PageSize,
		Overlap:     cfg.Runner.Overlap.Std(),
		Lookback:    cfg.Runner.Lookback.Std(),
	})
	if err := add(sh, err, "shopify_orders"); err != nil {
		return err
	}

	am, err := amazon.NewOrders(amazon.Config{
		Endpoint:       cfg.Amazon.Endpoint,
		AccessToken:    cfg.Amazon.AccessToken,
		MarketplaceIDs: cfg.Amazon.MarketplaceIDs,
		PageSize:       cfg.Amazon.PageSize,
		Overlap:        cfg.Runner.Overlap.Std(),
		Lookback:       cfg.Runner.Lookback.Std(),
	})
	if err := add(am, err, "amazon_orders"); err != nil {
		return err
	}

	sb, err := shipbob.NewInventory(shipbob.Config{
		Token:    cfg.ShipBob.Token,
		BaseURL:  cfg.ShipBob.BaseURL,
		PageSize: cfg.ShipBob.PageSize,
	})
	if err := add(sb, err, "shipbob_inventory"); err != nil {
		return err
	}

	registry, err := services.NewRegistry(handlers...)
	if err != nil {
		return err
	}

	syncRunner = services.NewSyncService(registry, store.Upserter(), store.SyncStateStore(), services.RunnerConfig{
		Overlap:  cfg.Runner.Overlap.Std(),
		Lookback: cfg.Runner.Lookback.Std(),
	})
	stateStore = store.SyncStateStore()
	return nil
}
