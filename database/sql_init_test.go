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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func writeSQL(t *testing.T, root, dir, name, content string) {
	t.Helper()
	full := filepath.Join(root, dir)
	require.NoError(t, os.MkdirAll(full, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(full, name), []byte(content), 0644))
}

func newRawSQLite(t *testing.T) *bun.DB {
	t.Helper()
	sqlDB, err := sql.Open(sqliteshim.ShimName, "file:"+unsafeName(t.Name())+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func unsafeName(name string) string {
	out := []rune(name)
	for i, r := range out {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			out[i] = '_'
		}
	}
	return string(out)
}

func TestParseFileOrder(t *testing.T) {
	s := NewSQLInitManager(nil, "test")
	assert.Equal(t, 1, s.parseFileOrder("001_teams.sql"))
	assert.Equal(t, 20, s.parseFileOrder("020_more.sql"))
	assert.Equal(t, 999, s.parseFileOrder("teams.sql"))
}

func TestSplitSQLStatements(t *testing.T) {
	s := NewSQLInitManager(nil, "test")
	got := s.splitSQLStatements(`
-- teams
INSERT INTO teams (name)
VALUES ('a');

INSERT INTO teams (name) VALUES ('b');
SELECT 1`)
	assert.Equal(t, []string{
		"INSERT INTO teams (name) VALUES ('a');",
		"INSERT INTO teams (name) VALUES ('b');",
		"SELECT 1",
	}, got)
}

func TestGetSQLFiles(t *testing.T) {
	root := t.TempDir()
	writeSQL(t, root, "common", "010_b.sql", "")
	writeSQL(t, root, "common", "002_a.sql", "")
	writeSQL(t, root, "common", "notes.txt", "")
	writeSQL(t, root, filepath.Join("environments", "test"), "001_env.sql", "")
	writeSQL(t, root, filepath.Join("environments", "other"), "001_skip.sql", "")

	s := NewSQLInitManager(nil, "test")
	s.SetSQLRootPath(root)
	files, err := s.GetSQLFiles()
	require.NoError(t, err)

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"002_a.sql", "010_b.sql", "001_env.sql"}, names)
	assert.Equal(t, "common", files[0].Environment)
	assert.Equal(t, "test", files[2].Environment)

	empty := NewSQLInitManager(nil, "test")
	empty.SetSQLRootPath(filepath.Join(root, "missing"))
	files, err = empty.GetSQLFiles()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestExecuteInitialization(t *testing.T) {
	ctx := context.Background()
	db := newRawSQLite(t)
	_, err := db.ExecContext(ctx, "CREATE TABLE teams (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE)")
	require.NoError(t, err)

	root := t.TempDir()
	writeSQL(t, root, "common", "001_teams.sql", "INSERT INTO teams (name) VALUES ('teamA');\nINSERT INTO teams (name) VALUES ('teamB');\n")
	writeSQL(t, root, filepath.Join("environments", "qa"), "001_env.sql", "INSERT INTO teams (name) VALUES ('{{.ENVIRONMENT}}');\n")

	s := NewSQLInitManager(db, "qa")
	s.SetSQLRootPath(root)
	require.NoError(t, s.ExecuteInitialization(ctx))

	var names []string
	require.NoError(t, db.NewSelect().Table("teams").Column("name").Order("id ASC").Scan(ctx, &names))
	assert.Equal(t, []string{"teamA", "teamB", "qa"}, names)

	// a rerun collides with the unique name and leaves the table untouched
	err = s.ExecuteInitialization(ctx)
	require.Error(t, err)
	_, kind := IsSqlError(err)
	assert.Equal(t, DuplicateKeyErr, kind)
	assert.True(t, IsPersistenceKind(err, DuplicateKeyErr))
	assert.ErrorContains(t, err, "001_teams.sql")

	var count int
	require.NoError(t, db.NewRaw("SELECT count(*) FROM teams").Scan(ctx, &count))
	assert.Equal(t, 3, count)
}
