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
	"sync"

	"github.com/uptrace/bun"
)

var (
	globalMu      sync.RWMutex
	globalFactory *BaseDatabaseFactory
	globalConfig  *Config
	// DB is the database opened by InitDB.
	DB *bun.DB
)

// GetDB returns the global Bun database instance.
func GetDB() *bun.DB {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalFactory != nil {
		return globalFactory.GetDB()
	}
	return DB
}

// GetDatabaseManager returns the global database manager.
func GetDatabaseManager() AbstractDatabaseManager {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalFactory != nil {
		return globalFactory.GetManager()
	}
	return nil
}

// GetDatabaseFactory returns the global database factory.
func GetDatabaseFactory() *BaseDatabaseFactory {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalFactory
}

// InitDB initializes the global database using the provided configuration.
// Migrations run when DataMigrateConfig.EnableMigrateOnStartup is set and
// seed files when DataInitConfig.AutoInitOnStartup is set.
func InitDB(cfg *Config) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	return InitDatabaseWithOptions(cfg, cfg.DataMigrateConfig.EnableMigrateOnStartup)
}

// InitDatabaseWithOptions initializes the database and optionally runs migrations.
func InitDatabaseWithOptions(cfg *Config, runMigrations bool) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	factory := NewDatabaseFactory()
	manager, err := factory.CreateFromConfig(&cfg.ConnectionConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}

	ctx := context.Background()
	opts := cfg.MigrateOptions()
	if err := factory.InitializeDatabase(ctx, runMigrations, opts); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if cfg.DataInitConfig.AutoInitOnStartup {
		if err := manager.InitData(ctx, opts); err != nil {
			_ = factory.Close()
			return nil, fmt.Errorf("failed to initialize data: %w", err)
		}
	}

	db := manager.GetDB()
	db.RegisterModel(RegisteredModelInstances()...)

	globalMu.Lock()
	globalFactory = factory
	globalConfig = cfg
	DB = db
	globalMu.Unlock()
	return db, nil
}

// CloseDB closes the global database connection.
func CloseDB() error {
	globalMu.Lock()
	factory := globalFactory
	globalFactory, globalConfig, DB = nil, nil, nil
	globalMu.Unlock()

	if factory != nil {
		return factory.Close()
	}
	return nil
}

// GetHealthStatus returns the current database health status.
func GetHealthStatus(ctx context.Context) *HealthStatus {
	if factory := GetDatabaseFactory(); factory != nil {
		return factory.GetHealthStatus(ctx)
	}
	return &HealthStatus{
		Healthy:   false,
		Connected: false,
		LastError: "Database not initialized",
	}
}

// GetDatabaseStats returns global database statistics.
func GetDatabaseStats() *DBStats {
	if factory := GetDatabaseFactory(); factory != nil {
		return factory.GetStats()
	}
	return &DBStats{}
}

// RunMigrations executes the database migrations of the global configuration.
func RunMigrations(ctx context.Context) error {
	manager, cfg, err := globalManager()
	if err != nil {
		return err
	}
	return manager.RunMigrations(ctx, cfg.MigrateOptions())
}

// InitData seeds data for the configured environment, "prod" when unset.
func InitData(ctx context.Context) error {
	_, cfg, err := globalManager()
	if err != nil {
		return err
	}
	env := cfg.DataInitConfig.Environment
	if env == "" {
		env = "prod"
	}
	return InitDataWithSQL(ctx, env)
}

// InitDataWithSQL seeds data by executing the SQL files for environment.
func InitDataWithSQL(ctx context.Context, environment string) error {
	manager, cfg, err := globalManager()
	if err != nil {
		return err
	}
	db := manager.GetDB()
	if db == nil {
		return fmt.Errorf("database instance not initialized")
	}

	sqlManager := NewSQLInitManager(db, environment)
	if cfg.DataInitConfig.Filepath != "" {
		sqlManager.SetSQLRootPath(cfg.DataInitConfig.Filepath)
	}
	return sqlManager.ExecuteInitialization(ctx)
}

func globalManager() (AbstractDatabaseManager, *Config, error) {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalFactory == nil || globalConfig == nil {
		return nil, nil, fmt.Errorf("database not initialized")
	}
	manager := globalFactory.GetManager()
	if manager == nil {
		return nil, nil, fmt.Errorf("database manager not initialized")
	}
	return manager, globalConfig, nil
}
