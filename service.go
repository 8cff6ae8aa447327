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

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/bus/database"
	"github.com/tomoncle/bus/entity"
	"github.com/tomoncle/bus/repository"
	"github.com/tomoncle/bus/types"
	"github.com/tomoncle/bus/utils"
)

const (
	msgDatabaseFailure    = "database operation failed"
	msgIntegrityViolation = "integrity violation"
)

// PlaceService is the boundary between callers and the place store. Every
// store failure leaving it is either a *ResourceNotFoundError or a
// *DatabaseError.
type PlaceService interface {
	// FindAllPaged pages over the places whose name contains name, ignoring
	// case. An empty name lists every place.
	FindAllPaged(ctx context.Context, name string, page *types.PageRequest) (*types.Pagination[entity.PlaceDTO], error)

	// FindByID returns the place or a *ResourceNotFoundError.
	FindByID(ctx context.Context, id int64) (*entity.PlaceDTO, error)

	// Insert validates and stores a new place. Any identifier in dto is
	// ignored.
	Insert(ctx context.Context, dto *entity.PlaceDTO) (*entity.PlaceDTO, error)

	// Update replaces the name of an existing place. The identifier never
	// changes.
	Update(ctx context.Context, id int64, dto *entity.PlaceDTO) (*entity.PlaceDTO, error)

	// Delete removes the place or returns a *ResourceNotFoundError.
	Delete(ctx context.Context, id int64) error
}

type placeServiceImpl struct {
	repo     repository.PlaceRepository
	validate *validator.Validate
	logger   *utils.Logger
}

// NewPlaceService returns a PlaceService on top of repo.
func NewPlaceService(repo repository.PlaceRepository) PlaceService {
	return &placeServiceImpl{
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   utils.NewLogger("SERVICE"),
	}
}

// NewDefaultPlaceService returns a PlaceService backed by the global database
// connection.
func NewDefaultPlaceService() (PlaceService, error) {
	db := database.GetDB()
	if db == nil {
		return nil, database.ErrNotInitialized
	}
	return NewPlaceService(repository.NewPlaceRepository(db)), nil
}

func (s *placeServiceImpl) FindAllPaged(ctx context.Context, name string, page *types.PageRequest) (*types.Pagination[entity.PlaceDTO], error) {
	result, err := s.repo.Find(ctx, name, page)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidSort) {
			return nil, &ValidationError{Errors: []FieldError{{Field: "sort", Error: err.Error()}}}
		}
		return nil, s.databaseError("find places", err)
	}
	return types.MapPagination(result, entity.NewPlaceDTO), nil
}

func (s *placeServiceImpl) FindByID(ctx context.Context, id int64) (*entity.PlaceDTO, error) {
	place, found, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.databaseError("find place", err, "id", id)
	}
	if !found {
		return nil, s.notFound(id)
	}
	return entity.NewPlaceDTO(place), nil
}

func (s *placeServiceImpl) Insert(ctx context.Context, dto *entity.PlaceDTO) (*entity.PlaceDTO, error) {
	if dto == nil {
		return nil, &ValidationError{Errors: []FieldError{{Field: "name", Error: "is required"}}}
	}
	if err := s.validate.Struct(dto); err != nil {
		return nil, newValidationError(err)
	}
	place := &entity.Place{}
	dto.CopyToEntity(place)
	saved, err := s.repo.Save(ctx, place)
	if err != nil {
		return nil, s.databaseError("insert place", err)
	}
	return entity.NewPlaceDTO(saved), nil
}

func (s *placeServiceImpl) Update(ctx context.Context, id int64, dto *entity.PlaceDTO) (*entity.PlaceDTO, error) {
	place, err := s.repo.GetReference(ctx, id)
	if errors.Is(err, repository.ErrEntityNotFound) {
		return nil, s.notFound(id)
	}
	if err != nil {
		return nil, s.databaseError("load place", err, "id", id)
	}
	if dto != nil {
		dto.CopyToEntity(place)
	}
	saved, err := s.repo.Save(ctx, place)
	if errors.Is(err, repository.ErrEntityNotFound) {
		// deleted since it was loaded
		return nil, s.notFound(id)
	}
	if err != nil {
		return nil, s.databaseError("update place", err, "id", id)
	}
	return entity.NewPlaceDTO(saved), nil
}

// Delete does not look into the cause of a failed delete: everything but a
// missing row becomes a DatabaseError.
func (s *placeServiceImpl) Delete(ctx context.Context, id int64) error {
	err := s.repo.DeleteByID(ctx, id)
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrEmptyResult) {
		return s.notFound(id)
	}
	s.logger.WithError(err).WithField("id", id).Error("delete place failed")
	return &DatabaseError{Message: msgIntegrityViolation, Err: err}
}

func (s *placeServiceImpl) notFound(id int64) error {
	s.logger.WithField("id", id).Debug("place not found")
	return &ResourceNotFoundError{ID: id}
}

func (s *placeServiceImpl) databaseError(op string, err error, kv ...interface{}) error {
	fields := logrus.Fields{"op": op}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			fields[k] = kv[i+1]
		}
	}
	s.logger.WithError(err).WithFields(fields).Error("place store failure")
	return &DatabaseError{Message: msgDatabaseFailure, Err: err}
}
