package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/stratus-sync/internal/adapters/driving/cli"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	// Credentials may come from a local .env during development; a
	// missing file is fine.
	_ = godotenv.Load()

	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
