package migrate

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/angelmondragon/maison-storefront/pkg/config"
	"github.com/angelmondragon/maison-storefront/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, Validate(Migrations()))

	data, err := fs.ReadFile(Migrations(), "20261019090000_create_kv_entries.sql")
	require.NoError(t, err)
	content := string(data)
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS kv_entries",
		"PRIMARY KEY (namespace, entry_key)",
		"DROP TABLE IF EXISTS kv_entries",
	} {
		assert.True(t, strings.Contains(content, sub), "missing expected statement %q", sub)
	}
}

func TestValidateRejectsBadNames(t *testing.T) {
	bad := fstest.MapFS{
		"create_things.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
	}
	require.Error(t, Validate(bad))

	missingDown := fstest.MapFS{
		"20260101000000_things.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")},
	}
	require.Error(t, Validate(missingDown))
}

func TestEnsureSchemaOnSQLite(t *testing.T) {
	ctx := context.Background()
	client, err := db.New(ctx, config.StoreConfig{
		Driver: config.StoreDriverSQLite,
		Path:   filepath.Join(t.TempDir(), "kv.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, EnsureSchema(ctx, client, nil))
	// second run is a no-op
	require.NoError(t, EnsureSchema(ctx, client, nil))

	assert.True(t, client.DB().Migrator().HasTable("kv_entries"))
}

func TestUpRejectsUnknownDialect(t *testing.T) {
	_, err := Up(context.Background(), nil, "mysql")
	require.Error(t, err)
}

func TestApplyValidatesBeforeMigrating(t *testing.T) {
	ctx := context.Background()
	client, err := db.New(ctx, config.StoreConfig{
		Driver: config.StoreDriverSQLite,
		Path:   filepath.Join(t.TempDir(), "kv.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	sqlDB, err := client.DB().DB()
	require.NoError(t, err)

	bad := fstest.MapFS{
		"20260101000000_things.sql": {Data: []byte("-- +goose Up\nCREATE TABLE things (id INTEGER);\n")},
	}
	_, err = apply(ctx, sqlDB, client.Dialect(), bad)
	require.Error(t, err)
	assert.False(t, client.DB().Migrator().HasTable("things"))
}
