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
	"reflect"
	"sort"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

const defaultEnvironment = "development"

// MigrateOptions carries the schema and seed settings a migration run needs.
type MigrateOptions struct {
	Migrate DataMigrateConfig
	Init    DataInitConfig
}

// MigrationManager coordinates schema migrations and data initialization.
type MigrationManager struct {
	db          *bun.DB
	logger      Logger
	opts        MigrateOptions
	environment string
}

// Migration represents an applied migration record stored in the database.
type Migration struct {
	bun.BaseModel `bun:"table:bun_migrations"`

	Version     string    `bun:"version,pk"`
	Name        string    `bun:"name"`
	AppliedAt   time.Time `bun:"applied_at"`
	Description string    `bun:"description"`
}

// MigrationFunc is a migration step executed within a transaction.
type MigrationFunc func(ctx context.Context, db bun.IDB) error

// MigrationItem describes a single migration version with up/down functions.
type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
	Down        MigrationFunc
}

type indexDef struct {
	table   string
	name    string
	columns []string
	unique  bool
}

var indexDefs = []indexDef{
	{table: "members", name: "idx_members_username", columns: []string{"username"}},
	{table: "members", name: "idx_members_team_id", columns: []string{"team_id"}},
	{table: "teams", name: "idx_teams_name", columns: []string{"name"}, unique: true},
}

// NewMigrationManager constructs a MigrationManager. The seed environment
// comes from opts and defaults to "development".
func NewMigrationManager(db *bun.DB, logger Logger, opts MigrateOptions) *MigrationManager {
	env := opts.Init.Environment
	if env == "" {
		env = defaultEnvironment
	}
	return &MigrationManager{
		db:          db,
		logger:      logger,
		opts:        opts,
		environment: env,
	}
}

// SetEnvironment sets the environment used when initializing data from SQL.
func (mm *MigrationManager) SetEnvironment(env string) {
	mm.environment = env
}

// RunMigrations creates the migration tracking table if needed and executes all
// pending migrations in ascending version order.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := mm.createMigrationTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, migration := range mm.getAllMigrations() {
		if err := mm.runMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration.Version, err)
		}
	}

	if mm.logger != nil {
		mm.logger.Info("Database migrations completed!")
	}
	return nil
}

func (mm *MigrationManager) createMigrationTable(ctx context.Context) error {
	_, err := mm.db.NewCreateTable().
		Model((*Migration)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (mm *MigrationManager) getAllMigrations() []MigrationItem {
	migrations := []MigrationItem{
		{
			Version:     "001",
			Name:        "create_base_tables",
			Description: "Create base table structure",
			Up:          mm.createBaseTables,
			Down:        mm.dropBaseTables,
		},
		{
			Version:     "002",
			Name:        "create_indexes",
			Description: "Create lookup indexes",
			Up:          mm.createIndexes,
			Down:        mm.dropIndexes,
		},
	}
	if mm.opts.Init.AutoInitOnMigration {
		migrations = append(migrations, MigrationItem{
			Version:     "003",
			Name:        "seed_initial_data",
			Description: "Seed initial data",
			Up:          mm.seedInitialData,
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations
}

func (mm *MigrationManager) runMigration(ctx context.Context, migration MigrationItem) error {
	exists, err := mm.db.NewSelect().
		Model((*Migration)(nil)).
		Where("version = ?", migration.Version).
		Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := migration.Up(ctx, tx); err != nil {
			return err
		}
		_, err := tx.NewInsert().
			Model(&Migration{
				Version:     migration.Version,
				Name:        migration.Name,
				AppliedAt:   time.Now(),
				Description: migration.Description,
			}).
			Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}

	if mm.logger != nil {
		mm.logger.Info("Migration executed successfully", "version", migration.Version, "name", migration.Name)
	}
	return nil
}

func (mm *MigrationManager) tableName(model interface{}) string {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return mm.db.Table(t).Name
}

func (mm *MigrationManager) createBaseTables(ctx context.Context, db bun.IDB) error {
	var fkManager *ForeignKeyManager
	if mm.opts.Migrate.EnableForeignKey {
		fkManager = NewForeignKeyManagerFromConfig(mm.logger, mm.opts.Migrate)
		if errs := fkManager.ValidateConstraints(); len(errs) > 0 {
			for _, err := range errs {
				if mm.logger != nil {
					mm.logger.Debug("Foreign key constraint validation failed", "error", err.Error())
				}
			}
			return fmt.Errorf("foreign key constraint validation failed, %d errors in total", len(errs))
		}
	}

	for _, model := range RegisteredModelInstances() {
		q := db.NewCreateTable().
			Model(model).
			IfNotExists()
		if fkManager != nil {
			for _, clause := range fkManager.ClausesFor(mm.tableName(model)) {
				q = q.ForeignKey(clause)
			}
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table %s: %w", getModelName(model), err)
		}
	}
	return nil
}

func (mm *MigrationManager) dropBaseTables(ctx context.Context, db bun.IDB) error {
	models := RegisteredModelInstances()
	for i := len(models) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(models[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", getModelName(models[i]), err)
		}
	}
	return nil
}

func (mm *MigrationManager) createIndexes(ctx context.Context, db bun.IDB) error {
	for _, def := range indexDefs {
		q := db.NewCreateIndex().
			Table(def.table).
			Index(def.name).
			Column(def.columns...)
		if def.unique {
			q = q.Unique()
		}
		// mysql has no CREATE INDEX IF NOT EXISTS
		if db.Dialect().Name() != dialect.MySQL {
			q = q.IfNotExists()
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create index %s: %w", def.name, err)
		}
	}
	return nil
}

func (mm *MigrationManager) dropIndexes(ctx context.Context, db bun.IDB) error {
	for i := len(indexDefs) - 1; i >= 0; i-- {
		def := indexDefs[i]
		var err error
		if db.Dialect().Name() == dialect.MySQL {
			_, err = db.ExecContext(ctx, "DROP INDEX ? ON ?", bun.Ident(def.name), bun.Ident(def.table))
		} else {
			_, err = db.ExecContext(ctx, "DROP INDEX IF EXISTS ?", bun.Ident(def.name))
		}
		if err != nil {
			return fmt.Errorf("failed to drop index %s: %w", def.name, err)
		}
	}
	return nil
}

func (mm *MigrationManager) InitData(ctx context.Context) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return mm.seedInitialData(ctx, mm.db)
}

func (mm *MigrationManager) seedInitialData(ctx context.Context, db bun.IDB) error {
	sqlManager := NewSQLInitManager(db, mm.environment)
	if mm.opts.Init.Filepath != "" {
		sqlManager.SetSQLRootPath(mm.opts.Init.Filepath)
	}

	if mm.logger != nil {
		mm.logger.Info("Starting data initialization using SQL files", "environment", mm.environment)
	}

	if err := sqlManager.ExecuteInitialization(ctx); err != nil {
		return fmt.Errorf("SQL file initialization failed: %w", err)
	}

	if mm.logger != nil {
		mm.logger.Info("SQL file initialization completed")
	}
	return nil
}

func getModelName(model interface{}) string {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// GetAppliedMigrations returns migration records ordered by version.
func (mm *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]Migration, error) {
	var migrations []Migration
	err := mm.db.NewSelect().
		Model(&migrations).
		Order("version ASC").
		Scan(ctx)
	return migrations, err
}

// RollbackMigration reverts an applied migration and removes its record.
// Versions without a down step cannot be rolled back.
func (mm *MigrationManager) RollbackMigration(ctx context.Context, version string) error {
	var item *MigrationItem
	for _, m := range mm.getAllMigrations() {
		if m.Version == version {
			m := m
			item = &m
			break
		}
	}
	if item == nil {
		return fmt.Errorf("unknown migration version: %s", version)
	}
	if item.Down == nil {
		return fmt.Errorf("migration %s has no rollback step", version)
	}

	err := mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := item.Down(ctx, tx); err != nil {
			return err
		}
		_, err := tx.NewDelete().
			Model((*Migration)(nil)).
			Where("version = ?", version).
			Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to roll back migration %s: %w", version, err)
	}

	if mm.logger != nil {
		mm.logger.Info("Migration rolled back", "version", version, "name", item.Name)
	}
	return nil
}
