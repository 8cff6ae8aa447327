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

package repository

import (
	"errors"
	"fmt"

	"github.com/tomoncle/bus/database"
)

var (
	// ErrEntityNotFound is returned when a lookup by identifier finds no row.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrEmptyResult is returned when a delete by identifier affects no row.
	ErrEmptyResult = errors.New("no row affected")

	// ErrDataIntegrityViolation wraps driver errors caused by a constraint:
	// duplicate key, foreign key, not-null or check.
	ErrDataIntegrityViolation = errors.New("data integrity violation")

	// ErrInvalidSort is returned for an order clause on a column that is not
	// sortable.
	ErrInvalidSort = errors.New("invalid sort")
)

// translate tags constraint failures with ErrDataIntegrityViolation and
// leaves every other error as is.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if database.IsIntegrityViolation(err) {
		_, kind := database.IsSqlError(err)
		return fmt.Errorf("%w (%s): %w", ErrDataIntegrityViolation, kind, err)
	}
	return err
}
