package db

import (
	"context"
	"fmt"
	"time"

	"github.com/zllovesuki/customers/config"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"moul.io/zapgorm2"
)

func dialector(cfg config.Database) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverMySQL:
		return mysql.Open(cfg.DSN()), nil
	case config.DriverPostgres:
		return postgres.New(postgres.Config{
			DriverName: "postgres",
			DSN:        cfg.DSN(),
		}), nil
	case config.DriverSQLite:
		return sqlite.Open(cfg.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

// New returns a handle for interacting with the configured database.
// Released connections are closed instead of being kept idle, so every request dials its own.
func New(logger *zap.Logger, cfg config.Database) (*gorm.DB, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}
	gLogger := zapgorm2.Logger{
		ZapLogger:                 logger,
		LogLevel:                  gormlogger.Warn,
		SlowThreshold:             time.Second,
		SkipCallerLookup:          false,
		IgnoreRecordNotFoundError: true,
	}
	db, err := gorm.Open(d, &gorm.Config{
		Logger: gLogger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "Cannot connect to database")
	}
	pool, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "Cannot get the connection pool")
	}
	pool.SetMaxIdleConns(0)
	return db, nil
}

// Provider hands out one dedicated connection per unit of work
type Provider struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewProvider returns a Provider backed by db
func NewProvider(logger *zap.Logger, db *gorm.DB) *Provider {
	return &Provider{
		db:     db,
		logger: logger,
	}
}

// WithConnection acquires a connection, runs fn on it and releases the connection
// on every exit path, including a panic inside fn. Acquisition is not retried.
func (p *Provider) WithConnection(ctx context.Context, fn func(conn *gorm.DB) error) error {
	var acquired bool
	err := p.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		acquired = true
		return fn(conn)
	})
	if err != nil && !acquired {
		p.logger.Error("Cannot acquire database connection",
			zap.Error(err),
		)
		return errors.Wrap(err, "Cannot acquire database connection")
	}
	return err
}

// Ping checks that a connection can be opened and used
func (p *Provider) Ping(ctx context.Context) error {
	return p.WithConnection(ctx, func(conn *gorm.DB) error {
		return conn.Exec("SELECT 1").Error
	})
}

// Close closes the underlying database handle
func (p *Provider) Close() error {
	pool, err := p.db.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}
