package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/angelmondragon/maison-storefront/pkg/db"
	"github.com/angelmondragon/maison-storefront/pkg/logger"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Migrations returns the embedded migration files rooted at the migrations dir.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(fmt.Sprintf("embedded migrations: %v", err))
	}
	return sub
}

// Up validates and applies every pending migration against the store database.
func Up(ctx context.Context, sqlDB *sql.DB, dialect string) (int64, error) {
	return apply(ctx, sqlDB, dialect, Migrations())
}

func apply(ctx context.Context, sqlDB *sql.DB, dialect string, fsys fs.FS) (int64, error) {
	if sqlDB == nil {
		return 0, fmt.Errorf("db is required")
	}
	gooseDialect, err := dialectFor(dialect)
	if err != nil {
		return 0, err
	}
	if err := Validate(fsys); err != nil {
		return 0, err
	}

	provider, err := goose.NewProvider(gooseDialect, sqlDB, fsys)
	if err != nil {
		return 0, fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return 0, fmt.Errorf("goose up: %w", err)
	}
	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("get db version: %w", err)
	}
	return version, nil
}

// EnsureSchema brings the key/value schema of client up to date.
func EnsureSchema(ctx context.Context, client *db.Client, logg *logger.Logger) error {
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	version, err := Up(ctx, sqlDB, client.Dialect())
	if err != nil {
		return err
	}

	if logg != nil {
		logg.Debug(logg.WithField(ctx, "schema_version", version), "store schema ready")
	}
	return nil
}

func dialectFor(dialect string) (goose.Dialect, error) {
	switch dialect {
	case db.DialectSQLite:
		return goose.DialectSQLite3, nil
	case db.DialectPostgres:
		return goose.DialectPostgres, nil
	}
	return "", fmt.Errorf("unsupported migration dialect %q", dialect)
}
