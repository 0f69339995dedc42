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

// Package dbtest opens migrated in-memory SQLite databases for tests.
package dbtest

import (
	"context"
	"fmt"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tomoncle/membersearch/database"
	"github.com/tomoncle/membersearch/model"
	"github.com/uptrace/bun"
)

var (
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_]+`)
	seq         atomic.Int64
)

type options struct {
	migrate database.MigrateOptions
}

// Option customises NewSQLite.
type Option func(*options)

// WithMigrateOptions sets the options the schema is migrated with.
func WithMigrateOptions(opts database.MigrateOptions) Option {
	return func(o *options) { o.migrate = opts }
}

// WithForeignKeys enables the members.team_id constraint with onDelete.
func WithForeignKeys(onDelete string) Option {
	return func(o *options) {
		o.migrate.Migrate.EnableForeignKey = true
		o.migrate.Migrate.TeamOnDelete = onDelete
	}
}

// Config returns a connection config for a private shared-cache in-memory
// database. The pool holds a single connection so every query sees the same
// database and per-connection pragmas stay in effect.
func Config(name string) *database.ConnectionConfig {
	cfg := database.DefaultConnectionConfig()
	cfg.Type = "sqlite"
	cfg.DBName = fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", unsafeChars.ReplaceAllString(name, "_"), seq.Add(1))
	cfg.MaxOpenConns = 1
	cfg.MaxIdleConns = 1
	cfg.ConnMaxLifetime = 0
	cfg.ConnMaxIdleTime = 0
	cfg.HealthCheckInterval = 0
	cfg.EnableReconnect = false
	cfg.SlowQueryTime = time.Second
	return cfg
}

// NewManager connects a manager to a fresh migrated database and closes it
// when t finishes.
func NewManager(t testing.TB, opts ...Option) database.AbstractDatabaseManager {
	t.Helper()
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	ctx := context.Background()
	manager := database.NewDatabaseManager(Config(t.Name()))
	require.NoError(t, manager.Connect(ctx))
	t.Cleanup(func() { _ = manager.Disconnect() })

	if o.migrate.Migrate.EnableForeignKey {
		_, err := manager.GetDB().ExecContext(ctx, "PRAGMA foreign_keys = ON")
		require.NoError(t, err)
	}
	require.NoError(t, manager.RunMigrations(ctx, o.migrate))
	return manager
}

// NewSQLite returns a fresh migrated database that is closed when t finishes.
func NewSQLite(t testing.TB, opts ...Option) *bun.DB {
	t.Helper()
	return NewManager(t, opts...).GetDB()
}

// Scenario is the two-team, four-member fixture.
type Scenario struct {
	TeamA   *model.Team
	TeamB   *model.Team
	Members []*model.Member
}

// SeedScenario stores teamA with member1 (10) and member2 (20) and teamB
// with member3 (30) and member4 (40).
func SeedScenario(t testing.TB, db bun.IDB) *Scenario {
	t.Helper()
	ctx := context.Background()

	s := &Scenario{TeamA: model.NewTeam("teamA"), TeamB: model.NewTeam("teamB")}
	for _, team := range []*model.Team{s.TeamA, s.TeamB} {
		_, err := db.NewInsert().Model(team).Exec(ctx)
		require.NoError(t, err)
	}

	s.Members = []*model.Member{
		model.NewMember("member1", 10, s.TeamA),
		model.NewMember("member2", 20, s.TeamA),
		model.NewMember("member3", 30, s.TeamB),
		model.NewMember("member4", 40, s.TeamB),
	}
	for _, m := range s.Members {
		_, err := db.NewInsert().Model(m).Exec(ctx)
		require.NoError(t, err)
	}
	return s
}
