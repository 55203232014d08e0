package domain

import "time"

// AppConfig is the typed application configuration assembled from the TOML
// config file and environment overrides.
type AppConfig struct {
	// DataDir holds the SQLite database.
	DataDir string

	// ScopeID is the caregiver space all entities sync under.
	ScopeID string

	// Verbose enables debug logging.
	Verbose bool

	// LogFile, when set, receives daemon logs with rotation.
	LogFile string

	Remote    RemoteConfig
	Scheduler SchedulerConfig

	// StatusAddr is the listen address of the status server. Empty disables it.
	StatusAddr string

	// WatchLocal triggers an immediate sync when the local database changes.
	WatchLocal bool
}

// RemoteConfig configures the remote document store.
type RemoteConfig struct {
	// URL is the CouchDB server URL, including credentials if needed.
	URL string

	// Database is the CouchDB database name.
	Database string

	// RequestsPerSecond throttles remote calls. Zero disables throttling.
	RequestsPerSecond float64

	// Burst is the token bucket size.
	Burst int

	// Timeout bounds every remote call.
	Timeout time.Duration
}

// DefaultAppConfig returns defaults for everything except the scope.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Remote: RemoteConfig{
			URL:               "http://localhost:5984",
			Database:          "caresync",
			RequestsPerSecond: 10,
			Burst:             20,
			Timeout:           30 * time.Second,
		},
		Scheduler:  DefaultSchedulerConfig(),
		StatusAddr: "127.0.0.1:9464",
	}
}
