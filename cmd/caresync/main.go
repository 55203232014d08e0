// Command caresync syncs a caregiver app's local database with a shared
// CouchDB database.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/custodia-labs/caresync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/caresync/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	store, err := file.NewConfigStore(os.Getenv("CARESYNC_CONFIG_DIR"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cli.Configure(store, version)
	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
