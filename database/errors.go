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
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoIndexErr
	NoColumnErr
	ExistIndexErr
	ExistColumnErr
	NoTableErr
	ExistTableErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
	DataTruncatedErr
	InvalidTypeCastErr
)

var sqlErrorNames = map[SQLError]string{
	UnknownErr:                  "unknown",
	NoRowsErr:                   "no_rows",
	NoIndexErr:                  "no_index",
	NoColumnErr:                 "no_column",
	ExistIndexErr:               "index_exists",
	ExistColumnErr:              "column_exists",
	NoTableErr:                  "no_table",
	ExistTableErr:               "table_exists",
	DuplicateKeyErr:             "duplicate_key",
	NotNullViolationErr:         "not_null_violation",
	ForeignKeyViolationErr:      "foreign_key_violation",
	CheckConstraintViolationErr: "check_violation",
	DataTruncatedErr:            "data_truncated",
	InvalidTypeCastErr:          "invalid_type_cast",
}

func (e SQLError) String() string {
	if name, ok := sqlErrorNames[e]; ok {
		return name
	}
	return sqlErrorNames[UnknownErr]
}

// SQLSTATE codes shared by postgres drivers.
var sqlStateErrors = map[string]SQLError{
	"23505": DuplicateKeyErr,
	"23502": NotNullViolationErr,
	"23503": ForeignKeyViolationErr,
	"23514": CheckConstraintViolationErr,
	"22001": DataTruncatedErr,
	"42804": InvalidTypeCastErr,
	"42703": NoColumnErr,
	"42704": NoIndexErr,
	"42P01": NoTableErr,
	"42P07": ExistTableErr,
}

// IsSqlError classifies err. The first result reports whether err was
// recognised as a database error at all.
func IsSqlError(err error) (is bool, sqlErr SQLError) {
	if err == nil {
		return false, UnknownErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return true, NoRowsErr
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1091:
			return true, NoIndexErr
		case 1054:
			return true, NoColumnErr
		case 1061:
			return true, ExistIndexErr
		case 1060:
			return true, ExistColumnErr
		case 1146:
			return true, NoTableErr
		case 1050:
			return true, ExistTableErr
		case 1062:
			return true, DuplicateKeyErr
		case 1048:
			return true, NotNullViolationErr
		case 1216, 1217, 1451, 1452:
			return true, ForeignKeyViolationErr
		case 3819:
			return true, CheckConstraintViolationErr
		case 1265, 1406:
			return true, DataTruncatedErr
		default:
			return true, UnknownErr
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if kind, ok := sqlStateErrors[string(pqErr.Code)]; ok {
			return true, kind
		}
		return true, UnknownErr
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if kind, ok := sqlStateErrors[pgErr.Code]; ok {
			return true, kind
		}
		return true, UnknownErr
	}

	// sqlite drivers only expose messages
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "no such column") {
		return true, NoColumnErr
	}
	if strings.Contains(s, "no such index") {
		return true, NoIndexErr
	}
	if strings.Contains(s, "no such table") {
		return true, NoTableErr
	}
	if strings.Contains(s, "already exists") && strings.Contains(s, "index") {
		return true, ExistIndexErr
	}
	if strings.Contains(s, "already exists") && strings.Contains(s, "table") {
		return true, ExistTableErr
	}
	if strings.Contains(s, "unique constraint failed") {
		return true, DuplicateKeyErr
	}
	if strings.Contains(s, "not null constraint failed") {
		return true, NotNullViolationErr
	}
	if strings.Contains(s, "foreign key constraint failed") {
		return true, ForeignKeyViolationErr
	}
	if strings.Contains(s, "check constraint failed") {
		return true, CheckConstraintViolationErr
	}
	if strings.Contains(s, "datatype mismatch") {
		return true, InvalidTypeCastErr
	}
	return false, UnknownErr
}

// PersistenceError reports that the store rejected a read or a write.
// The driver error stays reachable through Unwrap.
type PersistenceError struct {
	Op   string
	Kind SQLError
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError wraps err for op, classifying it with IsSqlError.
// It returns nil for a nil err and leaves an existing PersistenceError as is.
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	_, kind := IsSqlError(err)
	return &PersistenceError{Op: op, Kind: kind, Err: err}
}

// IsPersistenceKind reports whether err is a PersistenceError of the given kind.
func IsPersistenceKind(err error, kind SQLError) bool {
	var pe *PersistenceError
	return errors.As(err, &pe) && pe.Kind == kind
}
