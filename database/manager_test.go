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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t, "membersearch.db", sqliteDSN("membersearch"))
	assert.Equal(t, ":memory:", sqliteDSN(":memory:"))
	assert.Equal(t, "file:x?mode=memory", sqliteDSN("file:x?mode=memory"))
}

func TestManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConnectionConfig()
	cfg.DBName = "file:" + unsafeName(t.Name()) + "?mode=memory&cache=shared"
	cfg.MaxOpenConns = 1
	cfg.HealthCheckInterval = 0

	dm := NewDatabaseManager(cfg)
	assert.Error(t, dm.Ping(ctx))
	assert.False(t, dm.HealthCheck(ctx).Healthy)

	require.NoError(t, dm.Connect(ctx))
	require.NoError(t, dm.Connect(ctx))
	require.NoError(t, dm.Ping(ctx))

	status := dm.HealthCheck(ctx)
	assert.True(t, status.Healthy)
	assert.True(t, status.Connected)
	assert.Equal(t, 1, dm.GetStats().MaxOpenConns)

	require.NoError(t, dm.Disconnect())
	assert.Nil(t, dm.GetDB())
	assert.Error(t, dm.RunMigrations(ctx, MigrateOptions{}))
	assert.Equal(t, &DBStats{}, dm.GetStats())
}

func TestManagerUnsupportedType(t *testing.T) {
	cfg := DefaultConnectionConfig()
	cfg.Type = "oracle"
	assert.Error(t, NewDatabaseManager(cfg).Connect(context.Background()))

	_, err := NewDatabaseFactory().CreateFromConfig(cfg)
	assert.ErrorContains(t, err, "unsupported database type")

	_, err = NewDatabaseFactory().CreateFromConfig(nil)
	assert.Error(t, err)
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_DRIVER", "pgx")
	t.Setenv("DB_SLOW_QUERY_TIME", "250ms")
	t.Setenv("DB_ENABLE_METRICS", "true")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")
	t.Setenv("DB_CONN_MAX_LIFETIME", "30")
	t.Setenv("DB_RECONNECT_INTERVAL", "soon")

	cfg := DefaultConnectionConfig()
	cfg.Type = "postgres"
	NewDatabaseFactory().overrideFromEnv(cfg)

	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, "pgx", cfg.Driver)
	assert.Equal(t, 250*time.Millisecond, cfg.SlowQueryTime)
	assert.True(t, cfg.EnableMetrics)
	assert.Equal(t, 100, cfg.MaxOpenConns)
	assert.Equal(t, 30*time.Second, cfg.ConnMaxLifetime)
	assert.Equal(t, DefaultConnectionConfig().ReconnectInterval, cfg.ReconnectInterval)
}

func TestFactoryWithoutManager(t *testing.T) {
	f := NewDatabaseFactory()
	assert.Nil(t, f.GetDB())
	assert.NoError(t, f.Close())
	assert.False(t, f.GetHealthStatus(context.Background()).Healthy)
	assert.Error(t, f.InitializeDatabase(context.Background(), true, MigrateOptions{}))
}

func TestConnectors(t *testing.T) {
	cfg := DefaultConnectionConfig()
	cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.DBName = "db", 5432, "member", "secret", "members"
	cfg.ConnectTimeout = 10 * time.Second

	pg := connectors["postgres"]
	assert.Equal(t, "postgres", pg.driver(cfg))
	assert.Equal(t, "postgres://member:secret@db:5432/members?sslmode=disable&connect_timeout=10", pg.dsn(cfg))

	cfg.Driver = "PGX"
	assert.Equal(t, "pgx", connectors["postgresql"].driver(cfg))

	cfg.SSLMode = "require"
	assert.Contains(t, pg.dsn(cfg), "sslmode=require")

	assert.Contains(t, connectors["mysql"].dsn(cfg), "member:secret@tcp(db:5432)/members?")
	assert.Equal(t, "members.db", connectors["sqlite3"].dsn(cfg))

	for name, c := range connectors {
		assert.NotNil(t, c.dialect(), name)
	}
}
