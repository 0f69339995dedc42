/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"
)

// MetricsRegisterer receives the query collectors of managers created with
// EnableMetrics.
var MetricsRegisterer prometheus.Registerer = prometheus.DefaultRegisterer

const (
	defaultConnectTimeout = 30 * time.Second
	healthPingTimeout     = 5 * time.Second
)

// connector opens one database type: the database/sql driver name, its DSN
// and the Bun dialect speaking to it.
type connector struct {
	driver  func(cfg *ConnectionConfig) string
	dsn     func(cfg *ConnectionConfig) string
	dialect func() schema.Dialect
}

var connectors = map[string]connector{
	"mysql":      {driver: fixedDriver("mysql"), dsn: mysqlDSN, dialect: func() schema.Dialect { return mysqldialect.New() }},
	"postgres":   {driver: postgresDriver, dsn: postgresDSN, dialect: func() schema.Dialect { return pgdialect.New() }},
	"postgresql": {driver: postgresDriver, dsn: postgresDSN, dialect: func() schema.Dialect { return pgdialect.New() }},
	"sqlite":     {driver: fixedDriver(sqliteshim.ShimName), dsn: func(c *ConnectionConfig) string { return sqliteDSN(c.DBName) }, dialect: func() schema.Dialect { return sqlitedialect.New() }},
	"sqlite3":    {driver: fixedDriver(sqliteshim.ShimName), dsn: func(c *ConnectionConfig) string { return sqliteDSN(c.DBName) }, dialect: func() schema.Dialect { return sqlitedialect.New() }},
}

func fixedDriver(name string) func(*ConnectionConfig) string {
	return func(*ConnectionConfig) string { return name }
}

// postgresDriver picks lib/pq unless the config asks for pgx.
func postgresDriver(cfg *ConnectionConfig) string {
	if strings.EqualFold(cfg.Driver, "pgx") {
		return "pgx"
	}
	return "postgres"
}

func mysqlDSN(cfg *ConnectionConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%s&readTimeout=%s&writeTimeout=%s",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
		cfg.ConnectTimeout, cfg.ReadTimeout, cfg.WriteTimeout)
}

func postgresDSN(cfg *ConnectionConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=%d",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
		sslMode, int(cfg.ConnectTimeout.Seconds()))
}

// sqliteDSN keeps "file:" URIs and ":memory:" as given and maps a plain
// name to "<name>.db".
func sqliteDSN(name string) string {
	if strings.HasPrefix(name, "file:") || name == ":memory:" {
		return name
	}
	return name + ".db"
}

type defaultDatabaseManager struct {
	config *ConnectionConfig
	logger Logger

	mu             sync.RWMutex
	db             *bun.DB
	sqlDB          *sql.DB
	reconnectTries int

	// stopHealth cancels the background health loop; nil when none runs.
	stopHealth context.CancelFunc
}

// NewDatabaseManager returns a Bun backed manager. A nil config means
// DefaultConnectionConfig.
func NewDatabaseManager(config *ConnectionConfig) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	return &defaultDatabaseManager{config: config, logger: GetLogger()}
}

// Connect opens and pings the connection and starts the health loop when
// HealthCheckInterval is positive. It is a no-op when already connected.
func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if err := dm.open(ctx); err != nil {
		return err
	}
	if dm.config.HealthCheckInterval > 0 && dm.stopHealth == nil {
		loopCtx, cancel := context.WithCancel(context.Background())
		dm.stopHealth = cancel
		go dm.healthLoop(loopCtx)
	}
	return nil
}

// open requires dm.mu held.
func (dm *defaultDatabaseManager) open(ctx context.Context) error {
	if dm.db != nil {
		return nil
	}
	c, ok := connectors[dm.config.Type]
	if !ok {
		return fmt.Errorf("failed to create database connection: unsupported database type: %s", dm.config.Type)
	}
	if dm.config.ConnectTimeout <= 0 {
		dm.config.ConnectTimeout = defaultConnectTimeout
	}

	sqlDB, err := sql.Open(c.driver(dm.config), c.dsn(dm.config))
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	sqlDB.SetMaxIdleConns(dm.config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(dm.config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(dm.config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(dm.config.ConnMaxIdleTime)

	db := bun.NewDB(sqlDB, c.dialect())
	if err := dm.installHooks(db); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to create database connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return fmt.Errorf("database connection test failed: %w", err)
	}

	dm.db, dm.sqlDB = db, sqlDB
	dm.reconnectTries = 0
	dm.logger.Info("Database connected", "type", dm.config.Type, "driver", c.driver(dm.config),
		"host", dm.config.Host, "dbname", dm.config.DBName)
	return nil
}

func (dm *defaultDatabaseManager) installHooks(db *bun.DB) error {
	if dm.config.EnableQueryLog {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}
	if dm.config.SlowQueryTime > 0 {
		db.AddQueryHook(&SlowQueryHook{SlowTime: dm.config.SlowQueryTime, Logger: dm.logger})
	}
	if dm.config.EnableMetrics {
		hook, err := NewMetricsHook(MetricsRegisterer)
		if err != nil {
			return fmt.Errorf("failed to register query metrics: %w", err)
		}
		db.AddQueryHook(hook)
	}
	return nil
}

// close requires dm.mu held.
func (dm *defaultDatabaseManager) close() error {
	if dm.db == nil {
		return nil
	}
	err := dm.db.Close()
	dm.db, dm.sqlDB = nil, nil
	if err != nil {
		dm.logger.Error("Failed to close database connection", "error", err)
	} else {
		dm.logger.Info("Database connection closed")
	}
	return err
}

// Disconnect stops the health loop and closes the connection.
func (dm *defaultDatabaseManager) Disconnect() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.stopHealth != nil {
		dm.stopHealth()
		dm.stopHealth = nil
	}
	return dm.close()
}

// Reconnect replaces the connection and keeps the health loop running.
func (dm *defaultDatabaseManager) Reconnect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	dm.logger.Info("Reconnecting to the database", "type", dm.config.Type)
	if err := dm.close(); err != nil {
		dm.logger.Warn("Error closing existing connection", "error", err)
	}
	return dm.open(ctx)
}

func (dm *defaultDatabaseManager) Ping(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return fmt.Errorf("database not connected")
	}
	return db.PingContext(ctx)
}

func (dm *defaultDatabaseManager) GetDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

func (dm *defaultDatabaseManager) GetSQLDB() *sql.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.sqlDB
}

// HealthCheck pings the database and records the result.
func (dm *defaultDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	dm.mu.RLock()
	db, sqlDB := dm.db, dm.sqlDB
	dm.mu.RUnlock()

	start := time.Now()
	status := &HealthStatus{LastCheckTime: start}
	if db == nil {
		status.LastError = "Database not initialized"
		return status
	}

	pingCtx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	err := db.PingContext(pingCtx)
	status.ResponseTime = time.Since(start)
	status.Healthy = err == nil
	status.Connected = err == nil
	if err != nil {
		status.LastError = err.Error()
	}

	stats := sqlDB.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections
	return status
}

func (dm *defaultDatabaseManager) healthLoop(ctx context.Context) {
	ticker := time.NewTicker(dm.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, 2*healthPingTimeout)
			status := dm.HealthCheck(checkCtx)
			cancel()
			if !status.Healthy && dm.config.EnableReconnect {
				dm.retryConnect(ctx)
			}
		}
	}
}

// retryConnect makes one reconnect attempt after ReconnectInterval, up to
// MaxReconnectTries consecutive attempts.
func (dm *defaultDatabaseManager) retryConnect(ctx context.Context) {
	dm.mu.Lock()
	tries := dm.reconnectTries
	if tries < dm.config.MaxReconnectTries {
		dm.reconnectTries++
	}
	dm.mu.Unlock()

	if tries >= dm.config.MaxReconnectTries {
		dm.logger.Error("Max reconnect attempts reached", "tries", tries)
		return
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(dm.config.ReconnectInterval):
	}

	connectCtx, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
	defer cancel()
	if err := dm.Reconnect(connectCtx); err != nil {
		dm.logger.Error("Reconnect failed", "error", err, "try", tries+1)
		return
	}
	dm.logger.Info("Reconnect succeeded", "try", tries+1)
}

func (dm *defaultDatabaseManager) GetStats() *DBStats {
	sqlDB := dm.GetSQLDB()
	if sqlDB == nil {
		return &DBStats{}
	}
	stats := sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

func (dm *defaultDatabaseManager) migrationManager(opts MigrateOptions) (*MigrationManager, error) {
	db := dm.GetDB()
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	dm.mu.RLock()
	logger := dm.logger
	dm.mu.RUnlock()
	return NewMigrationManager(db, logger, opts), nil
}

func (dm *defaultDatabaseManager) RunMigrations(ctx context.Context, opts MigrateOptions) error {
	mm, err := dm.migrationManager(opts)
	if err != nil {
		return err
	}
	return mm.RunMigrations(ctx)
}

func (dm *defaultDatabaseManager) InitData(ctx context.Context, opts MigrateOptions) error {
	mm, err := dm.migrationManager(opts)
	if err != nil {
		return err
	}
	return mm.InitData(ctx)
}

func (dm *defaultDatabaseManager) SetLogger(logger Logger) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.logger = logger
}
