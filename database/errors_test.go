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
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSqlError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		wantIs bool
		want   SQLError
	}{
		{"nil", nil, false, UnknownErr},
		{"no rows", fmt.Errorf("find: %w", sql.ErrNoRows), true, NoRowsErr},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true, DuplicateKeyErr},
		{"mysql foreign key", &mysql.MySQLError{Number: 1452}, true, ForeignKeyViolationErr},
		{"mysql other", &mysql.MySQLError{Number: 1}, true, UnknownErr},
		{"pq duplicate", &pq.Error{Code: "23505"}, true, DuplicateKeyErr},
		{"pq missing table", &pq.Error{Code: "42P01"}, true, NoTableErr},
		{"pgx foreign key", &pgconn.PgError{Code: "23503"}, true, ForeignKeyViolationErr},
		{"pgx wrapped not null", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23502"}), true, NotNullViolationErr},
		{"pgx other", &pgconn.PgError{Code: "XX000"}, true, UnknownErr},
		{"sqlite unique", errors.New("constraint failed: UNIQUE constraint failed: teams.name (2067)"), true, DuplicateKeyErr},
		{"sqlite foreign key", errors.New("FOREIGN KEY constraint failed"), true, ForeignKeyViolationErr},
		{"sqlite not null", errors.New("NOT NULL constraint failed: members.username"), true, NotNullViolationErr},
		{"sqlite no table", errors.New("SQL logic error: no such table: members (1)"), true, NoTableErr},
		{"sqlite index exists", errors.New("index idx_teams_name already exists"), true, ExistIndexErr},
		{"plain", errors.New("connection refused"), false, UnknownErr},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			is, kind := IsSqlError(tc.err)
			assert.Equal(t, tc.wantIs, is)
			assert.Equal(t, tc.want, kind, kind.String())
		})
	}
}

func TestSQLErrorString(t *testing.T) {
	assert.Equal(t, "duplicate_key", DuplicateKeyErr.String())
	assert.Equal(t, "unknown", SQLError(1000).String())
}

func TestPersistenceError(t *testing.T) {
	assert.Nil(t, NewPersistenceError("save", nil))

	cause := &pq.Error{Code: "23505", Message: "duplicate key value"}
	err := NewPersistenceError("save member", cause)
	require.Error(t, err)
	assert.True(t, IsPersistenceKind(err, DuplicateKeyErr))
	assert.False(t, IsPersistenceKind(err, NoTableErr))
	assert.False(t, IsPersistenceKind(cause, DuplicateKeyErr))
	assert.Contains(t, err.Error(), "save member: duplicate_key")

	var pqErr *pq.Error
	require.True(t, errors.As(err, &pqErr))
	assert.Same(t, cause, pqErr)

	again := NewPersistenceError("outer", fmt.Errorf("ctx: %w", err))
	var pe *PersistenceError
	require.True(t, errors.As(again, &pe))
	assert.Equal(t, "save member", pe.Op)
}
