package config

import "time"

const (
	DefaultCacheDuration    = 60 * time.Second
	DefaultFlushRate        = 300 * time.Second
	DefaultRecomposeTimeout = 5 * time.Second
)

// Settings configures a single storage container.
//
// All durations are plain time.Duration values ("60s", "5m" in YAML); there is no tick scaling.
type Settings struct {
	// UseCache is the master switch for the object cache.
	// When false, CacheOnStore and CacheOnRetrieve are ignored.
	UseCache bool `yaml:"use_cache"`

	// CacheOnStore caches values written by Set and Store.
	CacheOnStore bool `yaml:"cache_on_store"`

	// CacheOnRetrieve caches values read from the backend.
	CacheOnRetrieve bool `yaml:"cache_on_retrieve"`

	// CacheDuration is the TTL of every cached entry.
	// Zero or negative means entries live until they are evicted or overwritten.
	CacheDuration time.Duration `yaml:"cache_duration"`

	// FlushRate is the period of the automatic flush task.
	// Zero disables automatic flushing (Flush must be called explicitly).
	FlushRate time.Duration `yaml:"flush_rate"`

	// FlushSchedule is an optional cron spec (seconds field optional, descriptors such as
	// "@every 1m" allowed). When set, it replaces FlushRate as the flush trigger.
	FlushSchedule string `yaml:"flush_schedule"`

	// RecomposeTimeout bounds how long a blocking explicit-type retrieve waits
	// for asynchronous field resolution.
	RecomposeTimeout time.Duration `yaml:"recompose_timeout"`

	// BackendRate limits backend operations per second issued by stores and flushes.
	// Zero means unlimited.
	BackendRate int `yaml:"backend_rate"`

	// Telemetry configures periodic stats logs. If nil, no stats are logged.
	Telemetry *TelemetryCfg `yaml:"telemetry"`

	// IsCacheOnStore and IsCacheOnRetrieve are derived from UseCache and the per-operation switches.
	// They are not read from YAML.
	IsCacheOnStore    bool // virtual: computed during init
	IsCacheOnRetrieve bool // virtual: computed during init
}

// DefaultSettings returns settings with caching enabled, a 60s TTL and a 300s flush period.
func DefaultSettings() *Settings {
	s := &Settings{
		UseCache:         true,
		CacheOnStore:     true,
		CacheOnRetrieve:  true,
		CacheDuration:    DefaultCacheDuration,
		FlushRate:        DefaultFlushRate,
		RecomposeTimeout: DefaultRecomposeTimeout,
	}
	s.AdjustConfig()
	return s
}

func (cfg *Settings) AdjustConfig() {
	cfg.IsCacheOnStore = cfg.UseCache && cfg.CacheOnStore
	cfg.IsCacheOnRetrieve = cfg.UseCache && cfg.CacheOnRetrieve

	if cfg.RecomposeTimeout <= 0 {
		cfg.RecomposeTimeout = DefaultRecomposeTimeout
	}
	if cfg.FlushRate < 0 {
		cfg.FlushRate = 0
	}
	if cfg.BackendRate < 0 {
		cfg.BackendRate = 0
	}
	if cfg.Telemetry.Enabled() && cfg.Telemetry.Interval <= 0 {
		cfg.Telemetry.Interval = DefaultTelemetryInterval
	}
}

// IsAutoFlushEnabled reports whether a flush task must be started for the container.
func (cfg *Settings) IsAutoFlushEnabled() bool {
	return cfg.FlushSchedule != "" || cfg.FlushRate > 0
}
