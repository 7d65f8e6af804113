package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const migrationTable = "ash_storage_migrations"

//go:embed migrations/*.sql
var migrations embed.FS

var (
	ErrSetDialect      = errors.New("postgres migrator: failed to set dialect")
	ErrApplyMigrations = errors.New("postgres migrator: failed to apply migrations")
)

// Migrate applies the embedded migrations. They create the default ash_storage table.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	// shares the pool connections, must not be closed
	db := stdlib.OpenDBFromPool(pool)

	goose.SetBaseFS(migrations)
	goose.SetLogger(&gooseLogger{log})
	goose.SetTableName(migrationTable)

	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrSetDialect, err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return errors.Join(ErrApplyMigrations, err)
	}
	return nil
}

type gooseLogger struct {
	log *slog.Logger
}

func (g *gooseLogger) Printf(format string, args ...any) {
	g.log.Info(fmt.Sprintf(format, args...))
}

// Fatalf logs only: goose returns the error to the caller anyway.
func (g *gooseLogger) Fatalf(format string, args ...any) {
	g.log.Error(fmt.Sprintf(format, args...))
}
