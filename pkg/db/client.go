package db

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/angelmondragon/maison-storefront/pkg/config"
	"github.com/angelmondragon/maison-storefront/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Client wraps the shared GORM connection backing the durable key/value store.
type Client struct {
	conn    *gorm.DB
	dialect string
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New boots a GORM client for the sqlite or postgres store driver.
func New(ctx context.Context, cfg config.StoreConfig, logg *logger.Logger) (*Client, error) {
	dialector, dialect, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	gormCfg := &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	}

	conn, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}

	applyPoolSettings(sqlDB, cfg, dialect)

	if logg != nil {
		logg.Debug(logg.WithField(ctx, "dialect", dialect), "store database opened")
	}

	return &Client{conn: conn, dialect: dialect}, nil
}

func dialectorFor(cfg config.StoreConfig) (gorm.Dialector, string, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.StoreDriverSQLite:
		if strings.TrimSpace(cfg.Path) == "" {
			return nil, "", fmt.Errorf("sqlite path is required")
		}
		return sqlite.Open(cfg.Path), DialectSQLite, nil
	case config.StoreDriverPostgres:
		if strings.TrimSpace(cfg.DSN) == "" {
			return nil, "", fmt.Errorf("database DSN is required")
		}
		return postgres.New(postgres.Config{
			DSN:                  cfg.DSN,
			PreferSimpleProtocol: true,
		}), DialectPostgres, nil
	}
	return nil, "", fmt.Errorf("driver %q is not backed by a database", cfg.Driver)
}

const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
)

func applyPoolSettings(sqlDB *sql.DB, cfg config.StoreConfig, dialect string) {
	// sqlite serializes writers; one connection avoids SQLITE_BUSY between tabs.
	if dialect == DialectSQLite {
		sqlDB.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}

// NewFromGorm wraps an already-open connection.
func NewFromGorm(conn *gorm.DB, dialect string) *Client {
	return &Client{conn: conn, dialect: dialect}
}

// DB returns the underlying GORM connection.
func (c *Client) DB() *gorm.DB {
	return c.conn
}

// Dialect returns the goose dialect name of the connection.
func (c *Client) Dialect() string {
	return c.dialect
}

// Ping verifies the datasource is reachable.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close shuts down the pooled connections.
func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
