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
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// ErrNotInitialized is returned by operations that need a connection
// before one is established.
var ErrNotInitialized = errors.New("database not initialized")

// SQLError is the driver independent class of a failed statement.
type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoTableErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
	DataTruncatedErr
)

var sqlErrorNames = map[SQLError]string{
	NoRowsErr:                   "no_rows",
	NoTableErr:                  "no_table",
	DuplicateKeyErr:             "duplicate_key",
	NotNullViolationErr:         "not_null_violation",
	ForeignKeyViolationErr:      "foreign_key_violation",
	CheckConstraintViolationErr: "check_violation",
	DataTruncatedErr:            "data_truncated",
}

func (e SQLError) String() string {
	if name, ok := sqlErrorNames[e]; ok {
		return name
	}
	return "unknown"
}

// Postgres SQLSTATE codes.
var pqClasses = map[pq.ErrorCode]SQLError{
	"23505": DuplicateKeyErr,
	"23502": NotNullViolationErr,
	"23503": ForeignKeyViolationErr,
	"23514": CheckConstraintViolationErr,
	"22001": DataTruncatedErr,
	"42P01": NoTableErr,
}

// MySQL server error numbers.
var mysqlClasses = map[uint16]SQLError{
	1062: DuplicateKeyErr,
	1048: NotNullViolationErr,
	1216: ForeignKeyViolationErr,
	1217: ForeignKeyViolationErr,
	1451: ForeignKeyViolationErr,
	1452: ForeignKeyViolationErr,
	3819: CheckConstraintViolationErr,
	1265: DataTruncatedErr,
	1406: DataTruncatedErr,
	1146: NoTableErr,
}

// Errors of other drivers, SQLite among them, are matched by message. The
// first matching fragment wins.
var messageClasses = []struct {
	fragment string
	class    SQLError
}{
	{"unique constraint failed", DuplicateKeyErr},
	{"primary key constraint failed", DuplicateKeyErr},
	{"duplicate key value", DuplicateKeyErr},
	{"not null constraint failed", NotNullViolationErr},
	{"not-null constraint", NotNullViolationErr},
	{"foreign key constraint failed", ForeignKeyViolationErr},
	{"foreign key violation", ForeignKeyViolationErr},
	{"check constraint failed", CheckConstraintViolationErr},
	{"no such table", NoTableErr},
	{"string data right truncation", DataTruncatedErr},
}

// IsSqlError reports whether err came from the database driver and which
// class of failure it is. Postgres and MySQL errors are matched by code,
// anything else by message.
func IsSqlError(err error) (bool, SQLError) {
	if err == nil {
		return false, UnknownErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return true, NoRowsErr
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return true, pqClasses[pqErr.Code]
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return true, mysqlClasses[mysqlErr.Number]
	}
	msg := strings.ToLower(err.Error())
	for _, mc := range messageClasses {
		if strings.Contains(msg, mc.fragment) {
			return true, mc.class
		}
	}
	return false, UnknownErr
}

// IsIntegrityViolation reports whether err is a constraint failure: a
// duplicate key, a foreign key, a not-null or a check violation.
func IsIntegrityViolation(err error) bool {
	_, class := IsSqlError(err)
	switch class {
	case DuplicateKeyErr, NotNullViolationErr, ForeignKeyViolationErr, CheckConstraintViolationErr:
		return true
	}
	return false
}
