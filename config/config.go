package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config groups configuration of the whole storage stack.
// Each optional component can be disabled by leaving it nil.
type Config struct {
	// Logger configures the zerolog-backed slog logger.
	// If nil, a JSON logger on stdout at info level is used.
	Logger *LoggerCfg `yaml:"logger"`

	// Scheduler configures the default task scheduler worker pool.
	Scheduler *SchedulerCfg `yaml:"scheduler"`

	// Settings configures a storage container: caching, flushing and recomposition.
	Settings *Settings `yaml:"settings"`

	// Backend selects and configures the storage medium.
	Backend *BackendCfg `yaml:"backend"`
}

// Default returns a configuration with every component set to its defaults.
func Default() *Config {
	return &Config{
		Logger:    DefaultLogger(),
		Scheduler: DefaultScheduler(),
		Settings:  DefaultSettings(),
	}
}

func (cfg *Config) AdjustConfig() {
	if cfg.Logger == nil {
		cfg.Logger = DefaultLogger()
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = DefaultScheduler()
	}
	if cfg.Settings == nil {
		cfg.Settings = DefaultSettings()
	}

	cfg.Logger.AdjustConfig()
	cfg.Scheduler.AdjustConfig()
	cfg.Settings.AdjustConfig()

	if cfg.Backend.Enabled() {
		cfg.Backend.AdjustConfig()
	}
}

// LoadConfig reads a YAML file on top of Default(), so omitted keys keep their defaults.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config yaml file %s: %w", path, err)
	}

	cfg := Default()
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml from %s: %w", path, err)
	}
	cfg.AdjustConfig()

	return cfg, nil
}
