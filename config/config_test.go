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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	conn := cfg.Database.ConnectionConfig
	assert.Equal(t, "sqlite", conn.Type)
	assert.Equal(t, "pq", conn.Driver)
	assert.Equal(t, "membersearch", conn.DBName)
	assert.Equal(t, 2*time.Second, conn.SlowQueryTime)
	assert.Equal(t, time.Hour, conn.ConnMaxLifetime)
	assert.False(t, conn.EnableMetrics)

	assert.True(t, cfg.Database.DataMigrateConfig.EnableMigrateOnStartup)
	assert.False(t, cfg.Database.DataMigrateConfig.EnableForeignKey)
	assert.Equal(t, "configs/sql", cfg.Database.DataInitConfig.Filepath)
	assert.Equal(t, "development", cfg.Database.DataInitConfig.Environment)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MEMBERSEARCH_DATABASE_CONNECTION_TYPE", "postgres")
	t.Setenv("MEMBERSEARCH_DATABASE_CONNECTION_PORT", "5433")
	t.Setenv("MEMBERSEARCH_DATABASE_CONNECTION_SLOW_QUERY_TIME", "750ms")
	t.Setenv("MEMBERSEARCH_DATABASE_MIGRATE_ENABLE_FOREIGN_KEY", "true")
	t.Setenv("MEMBERSEARCH_SERVER_ADDR", ":9999")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.ConnectionConfig.Type)
	assert.Equal(t, 5433, cfg.Database.ConnectionConfig.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.Database.ConnectionConfig.SlowQueryTime)
	assert.True(t, cfg.Database.DataMigrateConfig.EnableForeignKey)
	assert.Equal(t, ":9999", cfg.Server.Addr)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memberctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  connection:
    type: mysql
    host: db
    port: 3306
    slow_query_time: 1s
  migrate:
    enable_foreign_key: true
    team_on_delete: CASCADE
  init:
    environment: staging
log:
  format: json
`), 0644))

	t.Setenv("MEMBERSEARCH_DATABASE_CONNECTION_HOST", "override")

	cfg, err := Load(path)
	require.NoError(t, err)
	conn := cfg.Database.ConnectionConfig
	assert.Equal(t, "mysql", conn.Type)
	assert.Equal(t, "override", conn.Host)
	assert.Equal(t, 3306, conn.Port)
	assert.Equal(t, time.Second, conn.SlowQueryTime)
	assert.Equal(t, "CASCADE", cfg.Database.DataMigrateConfig.TeamOnDelete)
	assert.True(t, cfg.Database.DataMigrateConfig.EnableMigrateOnStartup)
	assert.Equal(t, "staging", cfg.Database.MigrateOptions().Init.Environment)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "config file not found")
}

func TestLoadSampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "configs", "memberctl.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "SET NULL", cfg.Database.DataMigrateConfig.TeamOnDelete)
	assert.True(t, cfg.Database.DataInitConfig.AutoInitOnMigration)
	assert.Equal(t, 500*time.Millisecond, cfg.Database.ConnectionConfig.SlowQueryTime)
}
