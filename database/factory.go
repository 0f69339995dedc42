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
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

// SupportedTypes lists the accepted ConnectionConfig.Type values.
var SupportedTypes = []string{"mysql", "postgres", "postgresql", "sqlite", "sqlite3"}

// envBinding maps one DB_* variable onto a ConnectionConfig field. set
// reports false when the value could not be parsed; the field is then kept.
type envBinding struct {
	name string
	set  func(cfg *ConnectionConfig, value string) bool
}

func stringEnv(name string, field func(cfg *ConnectionConfig) *string) envBinding {
	return envBinding{name: name, set: func(cfg *ConnectionConfig, v string) bool {
		*field(cfg) = v
		return true
	}}
}

func intEnv(name string, field func(cfg *ConnectionConfig) *int) envBinding {
	return envBinding{name: name, set: func(cfg *ConnectionConfig, v string) bool {
		n, err := strconv.Atoi(v)
		if err != nil {
			return false
		}
		*field(cfg) = n
		return true
	}}
}

func boolEnv(name string, field func(cfg *ConnectionConfig) *bool) envBinding {
	return envBinding{name: name, set: func(cfg *ConnectionConfig, v string) bool {
		*field(cfg) = v == "true"
		return true
	}}
}

// durationEnv accepts a Go duration ("250ms") or a bare number of seconds.
func durationEnv(name string, field func(cfg *ConnectionConfig) *time.Duration) envBinding {
	return envBinding{name: name, set: func(cfg *ConnectionConfig, v string) bool {
		if secs, err := strconv.Atoi(v); err == nil {
			*field(cfg) = time.Duration(secs) * time.Second
			return true
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return false
		}
		*field(cfg) = d
		return true
	}}
}

var connectionEnv = []envBinding{
	stringEnv("DB_HOST", func(c *ConnectionConfig) *string { return &c.Host }),
	intEnv("DB_PORT", func(c *ConnectionConfig) *int { return &c.Port }),
	stringEnv("DB_USERNAME", func(c *ConnectionConfig) *string { return &c.Username }),
	stringEnv("DB_PASSWORD", func(c *ConnectionConfig) *string { return &c.Password }),
	stringEnv("DB_NAME", func(c *ConnectionConfig) *string { return &c.DBName }),
	stringEnv("DB_SSLMODE", func(c *ConnectionConfig) *string { return &c.SSLMode }),
	stringEnv("DB_DRIVER", func(c *ConnectionConfig) *string { return &c.Driver }),

	intEnv("DB_MAX_IDLE_CONNS", func(c *ConnectionConfig) *int { return &c.MaxIdleConns }),
	intEnv("DB_MAX_OPEN_CONNS", func(c *ConnectionConfig) *int { return &c.MaxOpenConns }),
	durationEnv("DB_CONN_MAX_LIFETIME", func(c *ConnectionConfig) *time.Duration { return &c.ConnMaxLifetime }),

	boolEnv("DB_ENABLE_RECONNECT", func(c *ConnectionConfig) *bool { return &c.EnableReconnect }),
	durationEnv("DB_RECONNECT_INTERVAL", func(c *ConnectionConfig) *time.Duration { return &c.ReconnectInterval }),

	boolEnv("DB_ENABLE_QUERY_LOG", func(c *ConnectionConfig) *bool { return &c.EnableQueryLog }),
	durationEnv("DB_SLOW_QUERY_TIME", func(c *ConnectionConfig) *time.Duration { return &c.SlowQueryTime }),
	boolEnv("DB_ENABLE_METRICS", func(c *ConnectionConfig) *bool { return &c.EnableMetrics }),
}

// BaseDatabaseFactory owns the member store's database manager.
type BaseDatabaseFactory struct {
	manager AbstractDatabaseManager
	logger  Logger
}

// NewDatabaseFactory returns a factory logging through the global logger.
func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{logger: GetLogger()}
}

// CreateFromConfig validates cfg, applies DB_* environment overrides to it
// and builds the manager. The connection is opened by InitializeDatabase.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *ConnectionConfig) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	if !slices.Contains(SupportedTypes, cfg.Type) {
		return nil, fmt.Errorf("unsupported database type: %s, supported types: %v", cfg.Type, SupportedTypes)
	}
	f.overrideFromEnv(cfg)

	manager := NewDatabaseManager(cfg)
	manager.SetLogger(f.logger)
	f.manager = manager
	return manager, nil
}

func (f *BaseDatabaseFactory) overrideFromEnv(cfg *ConnectionConfig) {
	for _, b := range connectionEnv {
		v, ok := os.LookupEnv(b.name)
		if !ok || v == "" {
			continue
		}
		if !b.set(cfg, v) {
			f.logger.Warn("Ignoring invalid environment override", "name", b.name, "value", v)
		}
	}
}

// InitializeDatabase connects and, when runMigrations is set, migrates the
// members and teams schema with opts.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context, runMigrations bool, opts MigrateOptions) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}
	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if runMigrations {
		if err := f.manager.RunMigrations(ctx, opts); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
	}
	f.logger.Info("Member store ready", "migrated", runMigrations)
	return nil
}

func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager {
	return f.manager
}

// GetDB returns nil until a manager has been created.
func (f *BaseDatabaseFactory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

func (f *BaseDatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}

func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{LastError: "Database manager not initialized", LastCheckTime: time.Now()}
	}
	return f.manager.HealthCheck(ctx)
}

func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}
