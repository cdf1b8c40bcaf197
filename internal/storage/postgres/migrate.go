package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/keeeeeey/DevDay/internal/config"
	"github.com/keeeeeey/DevDay/internal/storage/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// RunMigrations прогоняет встроенные goose-миграции до актуальной версии.
func RunMigrations(ctx context.Context, cfg *config.Config) error {
	const op = "storage.postgres.RunMigrations"

	db, err := sql.Open("pgx", dsn(cfg))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
