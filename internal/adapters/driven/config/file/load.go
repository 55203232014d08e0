package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
)

// Configuration keys.
const (
	KeyDataDir            = "data_dir"
	KeyScopeID            = "scope_id"
	KeyVerbose            = "verbose"
	KeyLogFile            = "log.file"
	KeyRemoteURL          = "remote.url"
	KeyRemoteDatabase     = "remote.database"
	KeyRemoteRateLimit    = "remote.rate_limit"
	KeyRemoteBurst        = "remote.burst"
	KeyRemoteTimeout      = "remote.timeout"
	KeySchedulerEnabled   = "scheduler.enabled"
	KeySchedulerInterval  = "scheduler.interval"
	KeySchedulerAttempts  = "scheduler.max_attempts"
	KeySchedulerBackoff   = "scheduler.backoff_base"
	KeySchedulerMaxDelay  = "scheduler.backoff_max"
	KeySchedulerDisabled  = "scheduler.disabled"
	KeyStatusAddr         = "status.addr"
	KeyWatchLocal         = "watch.enabled"
	envPrefix             = "CARESYNC_"
	entityIntervalPattern = "scheduler.%s.interval"
)

// ErrScopeMissing is returned when no scope id is configured.
var ErrScopeMissing = errors.New("scope_id is not configured")

// Load builds the application configuration: defaults, then the config
// store, then the environment. envFile, when it exists, is read into the
// environment first without overriding variables that are already set.
func Load(store driven.ConfigStore, envFile string) (domain.AppConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return domain.AppConfig{}, fmt.Errorf("reading %s: %w", envFile, err)
		}
	}

	cfg := domain.DefaultAppConfig()
	applyStore(&cfg, store)
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return domain.AppConfig{}, err
	}

	if cfg.ScopeID == "" {
		return domain.AppConfig{}, fmt.Errorf("%w: set %s or %s%s", ErrScopeMissing, KeyScopeID, envPrefix, "SCOPE_ID")
	}
	if cfg.Scheduler.MaxAttempts < 1 {
		cfg.Scheduler.MaxAttempts = 1
	}
	return cfg, nil
}

func applyStore(cfg *domain.AppConfig, store driven.ConfigStore) {
	if store == nil {
		return
	}

	setString(&cfg.DataDir, store.GetString(KeyDataDir))
	setString(&cfg.ScopeID, store.GetString(KeyScopeID))
	setString(&cfg.LogFile, store.GetString(KeyLogFile))
	setString(&cfg.StatusAddr, store.GetString(KeyStatusAddr))
	setBool(&cfg.Verbose, store, KeyVerbose)
	setBool(&cfg.WatchLocal, store, KeyWatchLocal)

	setString(&cfg.Remote.URL, store.GetString(KeyRemoteURL))
	setString(&cfg.Remote.Database, store.GetString(KeyRemoteDatabase))
	if v := store.GetFloat(KeyRemoteRateLimit); v > 0 {
		cfg.Remote.RequestsPerSecond = v
	}
	if v := store.GetInt(KeyRemoteBurst); v > 0 {
		cfg.Remote.Burst = v
	}
	setDuration(&cfg.Remote.Timeout, store.GetDuration(KeyRemoteTimeout))

	sched := &cfg.Scheduler
	setBool(&sched.Enabled, store, KeySchedulerEnabled)
	if v := store.GetInt(KeySchedulerAttempts); v > 0 {
		sched.MaxAttempts = v
	}
	setDuration(&sched.BackoffBase, store.GetDuration(KeySchedulerBackoff))
	setDuration(&sched.BackoffMax, store.GetDuration(KeySchedulerMaxDelay))

	interval := store.GetDuration(KeySchedulerInterval)
	disabled := make(map[string]bool)
	for _, entityType := range store.GetStringSlice(KeySchedulerDisabled) {
		disabled[entityType] = true
	}
	for _, entityType := range domain.EntityTypes() {
		id := domain.SyncTaskID(entityType)
		tc := sched.GetTaskConfig(id)
		setDuration(&tc.Interval, interval)
		setDuration(&tc.Interval, store.GetDuration(fmt.Sprintf(entityIntervalPattern, entityType)))
		if disabled[entityType] {
			tc.Enabled = false
		}
		sched.TaskConfigs[id] = tc
	}
}

// applyEnv overlays CARESYNC_* variables. Malformed values are errors so a
// typo in a deployment does not silently fall back to a default.
func applyEnv(cfg *domain.AppConfig, lookup func(string) (string, bool)) error {
	env := func(name string) (string, bool) {
		v, ok := lookup(envPrefix + name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}

	if v, ok := env("DATA_DIR"); ok {
		cfg.DataDir = v
	}
	if v, ok := env("SCOPE_ID"); ok {
		cfg.ScopeID = v
	}
	if v, ok := env("LOG_FILE"); ok {
		cfg.LogFile = v
	}
	if v, ok := env("STATUS_ADDR"); ok {
		cfg.StatusAddr = v
	}
	if v, ok := env("REMOTE_URL"); ok {
		cfg.Remote.URL = v
	}
	if v, ok := env("REMOTE_DATABASE"); ok {
		cfg.Remote.Database = v
	}

	if v, ok := env("VERBOSE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envErr("VERBOSE", err)
		}
		cfg.Verbose = b
	}
	if v, ok := env("REMOTE_RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return envErr("REMOTE_RATE_LIMIT", err)
		}
		cfg.Remote.RequestsPerSecond = f
	}
	if v, ok := env("SYNC_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return envErr("SYNC_INTERVAL", err)
		}
		for id, tc := range cfg.Scheduler.TaskConfigs {
			tc.Interval = d
			cfg.Scheduler.TaskConfigs[id] = tc
		}
	}
	if v, ok := env("MAX_ATTEMPTS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envErr("MAX_ATTEMPTS", err)
		}
		cfg.Scheduler.MaxAttempts = n
	}
	return nil
}

func envErr(name string, err error) error {
	return fmt.Errorf("%w: %s%s: %w", domain.ErrInvalidInput, envPrefix, name, err)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

// setBool only applies keys that are present, so an absent key keeps a
// true default.
func setBool(dst *bool, store driven.ConfigStore, key string) {
	if _, ok := store.Get(key); ok {
		*dst = store.GetBool(key)
	}
}
