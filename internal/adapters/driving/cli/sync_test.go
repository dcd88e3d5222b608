package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/stratus-sync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/stratus-sync/internal/core/domain"
)

// mockSyncRunner implements driving.SyncRunner for testing.
type mockSyncRunner struct {
	stats map[string]domain.RunStats
	names []string
}

func (m *mockSyncRunner) Run(_ context.Context, name string) (*domain.RunStats, error) {
	s, ok := m.stats[name]
	if !ok {
		return nil, domain.ErrUnknownDomain
	}
	return &s, nil
}

func (m *mockSyncRunner) RunAll(_ context.Context) []domain.RunStats {
	out := make([]domain.RunStats, 0, len(m.names))
	for _, name := range m.names {
		out = append(out, m.stats[name])
	}
	return out
}

func (m *mockSyncRunner) Domains() []string { return m.names }

func setupCLITest(runner *mockSyncRunner) func() {
	oldRunner, oldStore := syncRunner, stateStore
	syncRunner = runner
	stateStore = memory.NewSyncStateStore()
	return func() {
		syncRunner, stateStore = oldRunner, oldStore
	}
}

func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestSyncCmd_SingleDomain(t *testing.T) {
	cleanup := setupCLITest(&mockSyncRunner{
		stats: map[string]domain.RunStats{
			"shopify_orders": {
				Domain: "shopify_orders", Status: domain.StatusSuccess,
				Pages: 2, Inserted: 4, Updated: 1, Duration: 1200 * time.Millisecond,
			},
		},
		names: []string{"shopify_orders"},
	})
	defer cleanup()

	out, err := execute("sync", "shopify_orders")
	assert.NoError(t, err)
	assert.Contains(t, out, "shopify_orders")
	assert.Contains(t, out, "inserted=4")
}

func TestSyncCmd_UnknownDomain(t *testing.T) {
	cleanup := setupCLITest(&mockSyncRunner{stats: map[string]domain.RunStats{}})
	defer cleanup()

	_, err := execute("sync", "nope")
	assert.Error(t, err)
}

func TestSyncCmd_AllDomainsReportsFailure(t *testing.T) {
	cleanup := setupCLITest(&mockSyncRunner{
		stats: map[string]domain.RunStats{
			"amazon_orders":  {Domain: "amazon_orders", Status: domain.StatusError, Error: "boom"},
			"shopify_orders": {Domain: "shopify_orders", Status: domain.StatusSuccess},
		},
		names: []string{"amazon_orders", "shopify_orders"},
	})
	defer cleanup()

	out, err := execute("sync")
	assert.Error(t, err)
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "shopify_orders")
}

func TestStatusCmd(t *testing.T) {
	cleanup := setupCLITest(&mockSyncRunner{})
	defer cleanup()

	ctx := context.Background()
	at := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	assert.NoError(t, stateStore.MarkSuccess(ctx, "shopify_orders", at, "", nil))
	assert.NoError(t, stateStore.MarkError(ctx, "amazon_orders", "credentials expired"))

	out, err := execute("status")
	assert.NoError(t, err)
	assert.Contains(t, out, "shopify_orders")
	assert.Contains(t, out, "2026-08-30 09:00:00")
	assert.Contains(t, out, "credentials expired")
}

func TestStatusCmd_Empty(t *testing.T) {
	cleanup := setupCLITest(&mockSyncRunner{})
	defer cleanup()

	out, err := execute("status")
	assert.NoError(t, err)
	assert.Contains(t, out, "No domains have synced yet.")
}

func TestHealthCmd(t *testing.T) {
	cleanup := setupCLITest(&mockSyncRunner{names: []string{"shopify_orders", "amazon_orders"}})
	defer cleanup()

	ctx := context.Background()
	assert.NoError(t, stateStore.MarkSuccess(ctx, "shopify_orders", time.Now().UTC(), "", nil))

	out, err := execute("health", "--max-age", "1h")
	assert.Error(t, err)
	assert.Contains(t, out, "shopify_orders      healthy")
	assert.Contains(t, out, "amazon_orders       unhealthy")

	out, err = execute("health", "shopify_orders", "--max-age", "1h")
	assert.NoError(t, err)
	assert.Contains(t, out, "healthy")
}

func TestCleanupCmd(t *testing.T) {
	cleanup := setupCLITest(&mockSyncRunner{})
	defer cleanup()

	assert.NoError(t, stateStore.MarkError(context.Background(), "dead", "gone"))

	out, err := execute("cleanup", "--older-than", "-1s")
	assert.NoError(t, err)
	assert.Contains(t, out, "Removed 1 stale error state(s).")
}

func TestVersionCmd(t *testing.T) {
	out, err := execute("version")
	assert.NoError(t, err)
	assert.Contains(t, out, "stratus-sync version")
}
