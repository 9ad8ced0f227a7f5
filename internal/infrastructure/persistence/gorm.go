package persistence

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"fare-crawler-service/pkg/logger"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormOptions tunes the connection pool of a GormManager
type GormOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
	Models          []interface{}
}

// GormManager owns a lazily opened *gorm.DB.
// Close releases the pool and the next DB call opens a fresh one.
type GormManager struct {
	mu        sync.Mutex
	dialector func() gorm.Dialector
	opts      GormOptions
	db        *gorm.DB
	migrated  bool
	logger    logger.Logger
}

// NewGormManager creates a manager; no connection is made until first use
func NewGormManager(dialector func() gorm.Dialector, opts GormOptions, log logger.Logger) *GormManager {
	return &GormManager{
		dialector: dialector,
		opts:      opts,
		logger:    log.With("component", "gorm"),
	}
}

// PostgresDialector opens Postgres connections for the given DSN
func PostgresDialector(dsn string) func() gorm.Dialector {
	return func() gorm.Dialector {
		return postgres.Open(dsn)
	}
}

// MySQLDialector opens MySQL connections for the given DSN
func MySQLDialector(dsn string) func() gorm.Dialector {
	return func() gorm.Dialector {
		return mysql.Open(dsn)
	}
}

// MySQLDSN builds a utf8mb4 DSN that parses DATETIME columns into time.Time
func MySQLDSN(host string, port int, user, password, database string) string {
	cfg := mysqldriver.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	cfg.DBName = database
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// DB returns the open handle, opening and pinging it first if needed
func (m *GormManager) DB(ctx context.Context) (*gorm.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		db, err := gorm.Open(m.dialector(), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(m.opts.MaxOpenConns)
		sqlDB.SetMaxIdleConns(m.opts.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(m.opts.ConnMaxLifetime)

		if err := sqlDB.PingContext(ctx); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}

		m.db = db
		m.logger.Info("Database connection opened")
	}

	if m.opts.AutoMigrate && !m.migrated && len(m.opts.Models) > 0 {
		if err := m.db.WithContext(ctx).AutoMigrate(m.opts.Models...); err != nil {
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
		m.migrated = true
	}

	return m.db.WithContext(ctx), nil
}

// Close releases the pool if one is open
func (m *GormManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		return nil
	}

	sqlDB, err := m.db.DB()
	m.db = nil
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		return err
	}
	m.logger.Info("Database connection closed")
	return nil
}
