package ashstorage

import (
	"log/slog"
	"os"

	"github.com/Borislavv/go-ash-storage/config"
	"github.com/Borislavv/go-ash-storage/internal/telemetry"
)

// NewLogger returns a slog logger writing to stdout through zerolog.
// A nil cfg means config.DefaultLogger().
func NewLogger(cfg *config.LoggerCfg) *slog.Logger {
	if cfg == nil {
		cfg = config.DefaultLogger()
	}
	return telemetry.NewLogger(os.Stdout, cfg)
}
