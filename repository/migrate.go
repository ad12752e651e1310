package repository

import (
	"context"
	"fmt"

	"github.com/goliatone/go-fedauth"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrate applies the embedded SQL migrations. It is safe to call on every boot.
func Migrate(ctx context.Context, db *bun.DB, logger auth.Logger) error {
	if logger == nil {
		logger = auth.DefaultLogger()
	}

	migrations := migrate.NewMigrations()
	if err := migrations.Discover(auth.GetMigrationsFS()); err != nil {
		return fmt.Errorf("discover migrations: %w", err)
	}

	migrator := migrate.NewMigrator(db, migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}

	if err := migrator.Lock(ctx); err != nil {
		return fmt.Errorf("lock migrations: %w", err)
	}
	defer func() {
		if err := migrator.Unlock(ctx); err != nil {
			logger.Warn("failed to unlock migrations", "error", err)
		}
	}()

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if group.IsZero() {
		logger.Debug("no new migrations to run")
		return nil
	}

	logger.Info("migrations applied", "group", group.String())
	return nil
}
