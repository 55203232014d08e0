// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//
// Load assembles the typed application configuration from a ConfigStore,
// an optional .env file and CARESYNC_* environment variables.
package file
