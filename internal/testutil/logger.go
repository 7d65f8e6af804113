package testutil

import (
	"log/slog"
	"os"
)

// Logger writes warnings and errors of the code under test to stderr.
func Logger() *slog.Logger {
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
	return slog.New(h).With(
		slog.String("service", "ashStorage"),
		slog.String("env", "test"),
	)
}
