package testutil

import (
	"time"

	"github.com/Borislavv/go-ash-storage/config"
)

// Settings caches everything for a minute and never flushes on its own.
func Settings() *config.Settings {
	s := &config.Settings{
		UseCache:         true,
		CacheOnStore:     true,
		CacheOnRetrieve:  true,
		CacheDuration:    time.Minute,
		RecomposeTimeout: 2 * time.Second,
	}
	s.AdjustConfig()
	return s
}

// NoCacheSettings disables the object cache, so every read reaches the backend.
func NoCacheSettings() *config.Settings {
	s := Settings()
	s.UseCache = false
	s.AdjustConfig()
	return s
}

func SchedulerCfg() *config.SchedulerCfg {
	return &config.SchedulerCfg{Workers: 4, QueueSize: 256}
}
