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
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/bus/entity"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/schema"
)

func newMockDB(t *testing.T, d schema.Dialect) (*bun.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqlDB, d)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func TestDeleteByIDWrapsPostgresForeignKeyViolation(t *testing.T) {
	db, mock := newMockDB(t, pgdialect.New())
	repo := NewPlaceRepository(db)

	mock.ExpectExec(`DELETE FROM "tb_place"`).
		WillReturnError(&pq.Error{Code: "23503", Message: `update or delete on table "tb_place" violates foreign key constraint`})

	err := repo.DeleteByID(context.Background(), 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDataIntegrityViolation)
	assert.Contains(t, err.Error(), "foreign_key_violation")

	var pqErr *pq.Error
	assert.ErrorAs(t, err, &pqErr)
}

func TestDeleteByIDPassesThroughDriverFailure(t *testing.T) {
	db, mock := newMockDB(t, pgdialect.New())
	repo := NewPlaceRepository(db)
	cause := errors.New("connection reset by peer")

	mock.ExpectExec(`DELETE FROM "tb_place"`).WillReturnError(cause)

	err := repo.DeleteByID(context.Background(), 1)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrDataIntegrityViolation)
	assert.NotErrorIs(t, err, ErrEmptyResult)
}

func TestDeleteByIDWithoutAffectedRows(t *testing.T) {
	db, mock := newMockDB(t, pgdialect.New())
	repo := NewPlaceRepository(db)

	mock.ExpectExec(`DELETE FROM "tb_place"`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteByID(context.Background(), 2)
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestFindByIDPassesThroughDriverFailure(t *testing.T) {
	db, mock := newMockDB(t, pgdialect.New())
	repo := NewPlaceRepository(db)
	cause := errors.New("i/o timeout")

	mock.ExpectQuery(`SELECT .* FROM "tb_place" AS "place"`).WillReturnError(cause)

	place, ok, err := repo.FindByID(context.Background(), 1)
	assert.ErrorIs(t, err, cause)
	assert.False(t, ok)
	assert.Nil(t, place)
}

func TestSaveUpdatesByPrimaryKeyOnMySQL(t *testing.T) {
	db, mock := newMockDB(t, mysqldialect.New())
	repo := NewPlaceRepository(db)

	mock.ExpectExec("UPDATE `tb_place` .*SET .*`name_folded` = 'central hub'.*WHERE .*`id` = 5").
		WillReturnResult(sqlmock.NewResult(0, 1))

	saved, err := repo.Save(context.Background(), &entity.Place{ID: 5, Name: "Central Hub"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), saved.ID)
	assert.Equal(t, "central hub", saved.NameFolded)
}

func TestSaveOfVanishedPlaceIsNotFoundOnMySQL(t *testing.T) {
	db, mock := newMockDB(t, mysqldialect.New())
	repo := NewPlaceRepository(db)

	mock.ExpectExec("UPDATE `tb_place`").WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Save(context.Background(), &entity.Place{ID: 5, Name: "Central Hub"})
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestSaveWrapsMySQLDuplicateKey(t *testing.T) {
	db, mock := newMockDB(t, mysqldialect.New())
	repo := NewPlaceRepository(db)

	mock.ExpectExec("INSERT INTO `tb_place`").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'Airport' for key 'uk_name'"})

	_, err := repo.Save(context.Background(), &entity.Place{Name: "Airport"})
	assert.ErrorIs(t, err, ErrDataIntegrityViolation)
}
