package config

import "log/slog"

// LogFormat selects the zerolog writer.
type LogFormat string

const (
	// LogFormatJSON writes one JSON object per line.
	LogFormatJSON LogFormat = "json"

	// LogFormatConsole writes human-readable colored lines.
	LogFormatConsole LogFormat = "console"
)

type LoggerCfg struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level"`

	// Format is "json" or "console".
	Format LogFormat `yaml:"format"`

	// SlogLevel is derived from Level. It is not read from YAML.
	SlogLevel slog.Level // virtual: computed during init
}

func DefaultLogger() *LoggerCfg {
	cfg := &LoggerCfg{Level: "info", Format: LogFormatJSON}
	cfg.AdjustConfig()
	return cfg
}

func (cfg *LoggerCfg) AdjustConfig() {
	if cfg.Format != LogFormatConsole {
		cfg.Format = LogFormatJSON
	}
	if err := cfg.SlogLevel.UnmarshalText([]byte(cfg.Level)); err != nil {
		cfg.SlogLevel = slog.LevelInfo
	}
}
