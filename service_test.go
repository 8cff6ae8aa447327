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

package bus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/bus/database"
	"github.com/tomoncle/bus/entity"
	"github.com/tomoncle/bus/repository"
	"github.com/tomoncle/bus/types"
)

type mockPlaceRepository struct {
	mock.Mock
}

func (m *mockPlaceRepository) FindAll(ctx context.Context, page *types.PageRequest) (*types.Pagination[entity.Place], error) {
	args := m.Called(ctx, page)
	if p := args.Get(0); p != nil {
		return p.(*types.Pagination[entity.Place]), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPlaceRepository) Find(ctx context.Context, name string, page *types.PageRequest) (*types.Pagination[entity.Place], error) {
	args := m.Called(ctx, name, page)
	if p := args.Get(0); p != nil {
		return p.(*types.Pagination[entity.Place]), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPlaceRepository) FindByID(ctx context.Context, id int64) (*entity.Place, bool, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*entity.Place), args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

func (m *mockPlaceRepository) GetReference(ctx context.Context, id int64) (*entity.Place, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*entity.Place), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPlaceRepository) Save(ctx context.Context, place *entity.Place) (*entity.Place, error) {
	args := m.Called(ctx, place)
	if p := args.Get(0); p != nil {
		return p.(*entity.Place), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPlaceRepository) DeleteByID(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

const (
	existingID    int64 = 1
	nonExistingID int64 = 2
	dependentID   int64 = 3
)

func newPlace() *entity.Place {
	return &entity.Place{ID: existingID, Name: "Central Station"}
}

func newService(t *testing.T) (*mockPlaceRepository, PlaceService) {
	t.Helper()
	repo := &mockPlaceRepository{}
	t.Cleanup(func() { repo.AssertExpectations(t) })
	return repo, NewPlaceService(repo)
}

func TestFindAllPagedMapsPlacesAndKeepsMetadata(t *testing.T) {
	repo, svc := newService(t)
	ctx := context.Background()
	page := types.NewDefaultPageRequest(0, 10)

	result := types.NewDefaultPagination[entity.Place](0, 10)
	result.Total = 1
	result.Items = []*entity.Place{newPlace()}
	repo.On("Find", ctx, "", page).Return(result, nil).Once()

	dtos, err := svc.FindAllPaged(ctx, "", page)
	require.NoError(t, err)
	assert.Equal(t, 0, dtos.Page)
	assert.Equal(t, 10, dtos.PageSize)
	assert.Equal(t, 1, dtos.Total)
	require.Len(t, dtos.Items, 1)
	require.NotNil(t, dtos.Items[0].ID)
	assert.Equal(t, existingID, *dtos.Items[0].ID)
	assert.Equal(t, "Central Station", dtos.Items[0].Name)
}

func TestFindAllPagedPassesFragmentThrough(t *testing.T) {
	repo, svc := newService(t)
	ctx := context.Background()
	page := types.NewDefaultPageRequest(1, 5)

	empty := types.NewDefaultPagination[entity.Place](1, 5)
	empty.Total = 3
	repo.On("Find", ctx, "cent", page).Return(empty, nil).Once()

	dtos, err := svc.FindAllPaged(ctx, "cent", page)
	require.NoError(t, err)
	assert.Empty(t, dtos.Items)
	assert.Equal(t, 3, dtos.Total)
	assert.Equal(t, 1, dtos.Page)
}

func TestFindAllPagedTranslatesErrors(t *testing.T) {
	ctx := context.Background()
	page := types.NewDefaultPageRequest(0, 10)

	t.Run("driver failure", func(t *testing.T) {
		repo, svc := newService(t)
		repo.On("Find", ctx, "x", page).Return(nil, errors.New("connection refused")).Once()

		_, err := svc.FindAllPaged(ctx, "x", page)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDatabase)
		assert.NotContains(t, err.Error(), "connection refused")
	})

	t.Run("invalid sort", func(t *testing.T) {
		repo, svc := newService(t)
		repo.On("Find", ctx, "x", page).Return(nil, fmt.Errorf("%w: column %q is not sortable", repository.ErrInvalidSort, "secret")).Once()

		_, err := svc.FindAllPaged(ctx, "x", page)
		assert.ErrorIs(t, err, ErrValidation)
		assert.NotErrorIs(t, err, ErrDatabase)
	})
}

func TestFindByIDReturnsDTOWhenIDExists(t *testing.T) {
	repo, svc := newService(t)
	ctx := context.Background()
	repo.On("FindByID", ctx, existingID).Return(newPlace(), true, nil).Once()

	dto, err := svc.FindByID(ctx, existingID)
	require.NoError(t, err)
	require.NotNil(t, dto.ID)
	assert.Equal(t, existingID, *dto.ID)
	assert.Equal(t, "Central Station", dto.Name)
}

func TestFindByIDTwiceReturnsEqualDTOs(t *testing.T) {
	repo, svc := newService(t)
	ctx := context.Background()
	repo.On("FindByID", ctx, existingID).Return(newPlace(), true, nil).Twice()

	first, err := svc.FindByID(ctx, existingID)
	require.NoError(t, err)
	second, err := svc.FindByID(ctx, existingID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NotSame(t, first, second)
}

func TestFindByIDReturnsNotFoundWhenIDDoesNotExist(t *testing.T) {
	repo, svc := newService(t)
	ctx := context.Background()
	repo.On("FindByID", ctx, nonExistingID).Return(nil, false, nil).Once()

	_, err := svc.FindByID(ctx, nonExistingID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResourceNotFound)

	var notFound *ResourceNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, nonExistingID, notFound.ID)
	assert.Equal(t, "entity not found, id: 2", err.Error())
}

func TestFindByIDWrapsDriverFailure(t *testing.T) {
	repo, svc := newService(t)
	ctx := context.Background()
	cause := errors.New("i/o timeout")
	repo.On("FindByID", ctx, existingID).Return(nil, false, cause).Once()

	_, err := svc.FindByID(ctx, existingID)
	assert.ErrorIs(t, err, ErrDatabase)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrResourceNotFound)
}

func TestInsertAssignsIdentifier(t *testing.T) {
	repo, svc := newService(t)
	ctx := context.Background()
	clientID := int64(99)

	repo.On("Save", ctx, mock.MatchedBy(func(p *entity.Place) bool {
		return p.ID == 0 && p.Name == "Central Hub"
	})).Return(&entity.Place{ID: 7, Name: "Central Hub"}, nil).Once()

	dto, err := svc.Insert(ctx, &entity.PlaceDTO{ID: &clientID, Name: "Central Hub"})
	require.NoError(t, err)
	require.NotNil(t, dto.ID)
	assert.Equal(t, int64(7), *dto.ID)
	assert.Equal(t, "Central Hub", dto.Name)
}

func TestInsertRejectsInvalidDTO(t *testing.T) {
	ctx := context.Background()
	cases := map[string]*entity.PlaceDTO{
		"nil":      nil,
		"empty":    {Name: ""},
		"too long": {Name: strings.Repeat("a", 256)},
	}
	for name, dto := range cases {
		t.Run(name, func(t *testing.T) {
			_, svc := newService(t)
			_, err := svc.Insert(ctx, dto)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.NotEmpty(t, verr.Errors)
			assert.Equal(t, "name", verr.Errors[0].Field)
		})
	}
}

func TestInsertWrapsStoreFailure(t *testing.T) {
	repo, svc := newService(t)
	ctx := context.Background()
	repo.On("Save", ctx, mock.Anything).Return(nil, repository.ErrDataIntegrityViolation).Once()

	_, err := svc.Insert(ctx, &entity.PlaceDTO{Name: "Depot"})
	assert.ErrorIs(t, err, ErrDatabase)
}

func TestUpdateReturnsDTOWhenIDExists(t *testing.T) {
	repo, svc := newService(t)
	ctx := context.Background()
	place := newPlace()
	otherID := int64(42)

	repo.On("GetReference", ctx, existingID).Return(place, nil).Once()
	repo.On("Save", ctx, place).Return(place, nil).Once()

	dto, err := svc.Update(ctx, existingID, &entity.PlaceDTO{ID: &otherID, Name: "Central Hub"})
	require.NoError(t, err)
	require.NotNil(t, dto.ID)
	assert.Equal(t, existingID, *dto.ID)
	assert.Equal(t, "Central Hub", dto.Name)
	assert.Equal(t, existingID, place.ID)
}

func TestUpdateReturnsNotFoundWhenIDDoesNotExist(t *testing.T) {
	repo, svc := newService(t)
	ctx := context.Background()
	repo.On("GetReference", ctx, nonExistingID).
		Return(nil, fmt.Errorf("%w: id %d", repository.ErrEntityNotFound, nonExistingID)).Once()

	_, err := svc.Update(ctx, nonExistingID, &entity.PlaceDTO{Name: "Central Hub"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResourceNotFound)

	var notFound *ResourceNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, nonExistingID, notFound.ID)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestUpdateReturnsNotFoundWhenPlaceIsDeletedBeforeSave(t *testing.T) {
	repo, svc := newService(t)
	ctx := context.Background()
	place := newPlace()
	repo.On("GetReference", ctx, existingID).Return(place, nil).Once()
	repo.On("Save", ctx, place).
		Return(nil, fmt.Errorf("%w: id %d", repository.ErrEntityNotFound, existingID)).Once()

	_, err := svc.Update(ctx, existingID, &entity.PlaceDTO{Name: "Central Hub"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResourceNotFound)
	assert.NotErrorIs(t, err, ErrDatabase)

	var notFound *ResourceNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, existingID, notFound.ID)
}

// deletingRepository removes a place right after handing out a reference
// to it, as a concurrent delete would.
type deletingRepository struct {
	repository.PlaceRepository
}

func (r deletingRepository) GetReference(ctx context.Context, id int64) (*entity.Place, error) {
	place, err := r.PlaceRepository.GetReference(ctx, id)
	if err != nil {
		return nil, err
	}
	return place, r.PlaceRepository.DeleteByID(ctx, id)
}

func TestUpdateDoesNotResurrectConcurrentlyDeletedPlace(t *testing.T) {
	cfg := database.DefaultConnectionConfig()
	cfg.Type = "sqlite"
	cfg.DBName = ":memory:"
	manager := database.NewDatabaseManager(cfg)
	ctx := context.Background()
	require.NoError(t, manager.Connect(ctx))
	t.Cleanup(func() { _ = manager.Disconnect() })
	require.NoError(t, manager.RunMigrations(ctx))

	repo := repository.NewPlaceRepository(manager.GetDB())
	saved, err := repo.Save(ctx, &entity.Place{Name: "Central Station"})
	require.NoError(t, err)

	svc := NewPlaceService(deletingRepository{repo})
	_, err = svc.Update(ctx, saved.ID, &entity.PlaceDTO{Name: "Central Hub"})
	assert.ErrorIs(t, err, ErrResourceNotFound)

	_, found, err := repo.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUpdateWrapsSaveFailure(t *testing.T) {
	repo, svc := newService(t)
	ctx := context.Background()
	place := newPlace()
	repo.On("GetReference", ctx, existingID).Return(place, nil).Once()
	repo.On("Save", ctx, place).Return(nil, errors.New("deadlock")).Once()

	_, err := svc.Update(ctx, existingID, &entity.PlaceDTO{Name: "Central Hub"})
	assert.ErrorIs(t, err, ErrDatabase)
}

func TestDeleteDoesNothingWhenIDExists(t *testing.T) {
	repo, svc := newService(t)
	ctx := context.Background()
	repo.On("DeleteByID", ctx, existingID).Return(nil).Once()

	assert.NoError(t, svc.Delete(ctx, existingID))
}

func TestDeleteReturnsNotFoundWhenIDDoesNotExist(t *testing.T) {
	repo, svc := newService(t)
	ctx := context.Background()
	repo.On("DeleteByID", ctx, nonExistingID).
		Return(fmt.Errorf("%w: id %d", repository.ErrEmptyResult, nonExistingID)).Once()

	err := svc.Delete(ctx, nonExistingID)
	assert.ErrorIs(t, err, ErrResourceNotFound)
	assert.NotErrorIs(t, err, ErrDatabase)
}

func TestDeleteReturnsDatabaseErrorWhenPlaceIsReferenced(t *testing.T) {
	repo, svc := newService(t)
	ctx := context.Background()
	repo.On("DeleteByID", ctx, dependentID).Return(repository.ErrDataIntegrityViolation).Once()

	err := svc.Delete(ctx, dependentID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDatabase)
	assert.NotErrorIs(t, err, ErrResourceNotFound)

	var dbErr *DatabaseError
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, "integrity violation", dbErr.Message)
}

func TestDeleteTreatsAnyOtherFailureAsDatabaseError(t *testing.T) {
	repo, svc := newService(t)
	ctx := context.Background()
	repo.On("DeleteByID", ctx, existingID).Return(errors.New("connection reset")).Once()

	err := svc.Delete(ctx, existingID)
	assert.ErrorIs(t, err, ErrDatabase)
}
