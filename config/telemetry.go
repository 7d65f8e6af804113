package config

import "time"

const DefaultTelemetryInterval = 5 * time.Second

// TelemetryCfg configures periodic stats logs of a container.
type TelemetryCfg struct {
	Interval time.Duration `yaml:"interval"`
}

func (cfg *TelemetryCfg) Enabled() bool {
	return cfg != nil
}
