package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"agribuddy/internal/config"
	"agribuddy/internal/database/migrations"

	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrStoreUnavailable means no connection to the credential store could be obtained.
var ErrStoreUnavailable = errors.New("credential store unavailable")

// Provider hands out one dedicated connection per operation.
type Provider struct {
	db     *gorm.DB
	driver string
	target string // credential-free description for logs
	logger *slog.Logger
}

// Open builds the GORM handle for the configured driver. It does not contact the
// store; reachability is checked whenever a connection is acquired.
func Open(cfg config.DatabaseConfig, logger *slog.Logger) (*Provider, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN())
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger: gormlogger.New(
			slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
			gormlogger.Config{
				SlowThreshold:             500 * time.Millisecond,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
				ParameterizedQueries:      true,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Redacted(), err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return &Provider{
		db:     db,
		driver: cfg.Driver,
		target: cfg.Redacted(),
		logger: logger,
	}, nil
}

// WithConnection acquires a connection, runs fn on it and releases it on every
// exit path. Every statement chained from conn starts with fresh conditions.
// If the connection cannot be acquired fn is not called and the returned
// error wraps ErrStoreUnavailable. Errors from fn are returned as is.
func (p *Provider) WithConnection(ctx context.Context, fn func(conn *gorm.DB) error) error {
	entered := false
	err := p.db.WithContext(ctx).Connection(func(tx *gorm.DB) error {
		if conn, ok := tx.Statement.ConnPool.(*sql.Conn); ok {
			if err := conn.PingContext(ctx); err != nil {
				return err
			}
		}
		entered = true
		return fn(tx.Session(&gorm.Session{}))
	})
	if err != nil && !entered {
		p.logger.ErrorContext(ctx, "failed to acquire database connection",
			"target", p.target,
			"error", err,
		)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}

// Ping reports whether the store is reachable.
func (p *Provider) Ping(ctx context.Context) error {
	return p.WithConnection(ctx, func(*gorm.DB) error { return nil })
}

// Migrate applies the embedded schema migrations. Safe to run on every start.
func (p *Provider) Migrate(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	dialect := goose.DialectPostgres
	if p.driver == config.DriverSQLite {
		dialect = goose.DialectSQLite3
	}

	gp, err := goose.NewProvider(dialect, sqlDB, migrations.FS)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := gp.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	for _, r := range results {
		p.logger.InfoContext(ctx, "applied migration",
			"version", r.Source.Version,
			"duration", r.Duration,
		)
	}
	return nil
}

// DB exposes the GORM handle. Repositories should go through WithConnection.
func (p *Provider) DB() *gorm.DB {
	return p.db
}

// Close closes the underlying pool.
func (p *Provider) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
