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

	"github.com/tomoncle/bus/entity"
	"github.com/tomoncle/bus/types"
)

// CrudRepository defines basic CRUD operations for a generic entity type.
type CrudRepository[T any] interface {
	// GetOne returns ErrEntityNotFound when no row has the identifier.
	GetOne(ctx context.Context, id any) (*T, error)

	Create(ctx context.Context, entity *T) error

	// Update returns ErrEntityNotFound when the row is gone.
	Update(ctx context.Context, entity *T) error

	// Delete returns ErrEmptyResult when no row has the identifier.
	Delete(ctx context.Context, id any) error
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// Repository combines CRUD and pagination.
type Repository[T any] interface {
	CrudRepository[T]
	PageQueryRepository[T]
}

// PlaceRepository is the store of Place records.
type PlaceRepository interface {
	// FindAll pages over every place.
	FindAll(ctx context.Context, page *types.PageRequest) (*types.Pagination[entity.Place], error)

	// Find pages over the places whose name contains name, ignoring case
	// under Unicode folding. An empty name matches every place.
	Find(ctx context.Context, name string, page *types.PageRequest) (*types.Pagination[entity.Place], error)

	// FindByID reports whether the place exists. Only driver failures are
	// returned as errors.
	FindByID(ctx context.Context, id int64) (*entity.Place, bool, error)

	// GetReference returns a handle on the place to mutate and save, or
	// ErrEntityNotFound.
	GetReference(ctx context.Context, id int64) (*entity.Place, error)

	// Save inserts a place without identifier and updates the row of one
	// with an identifier. Updating a row deleted in the meantime returns
	// ErrEntityNotFound. The saved place is returned with its identifier set.
	Save(ctx context.Context, place *entity.Place) (*entity.Place, error)

	// DeleteByID returns ErrEmptyResult when the place does not exist.
	DeleteByID(ctx context.Context, id int64) error
}
