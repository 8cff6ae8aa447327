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
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tomoncle/bus/entity"
	"github.com/tomoncle/bus/types"
	"github.com/uptrace/bun"
)

const likeEscape = '!'

var placeSortColumns = []string{"id", "name", "created_at", "updated_at"}

type placeRepositoryImpl struct {
	base Repository[entity.Place]
	now  func() time.Time
}

// NewPlaceRepository returns the Bun-backed place store.
func NewPlaceRepository(db *bun.DB) PlaceRepository {
	return &placeRepositoryImpl{
		base: NewRepository[entity.Place](db),
		now:  time.Now,
	}
}

func (r *placeRepositoryImpl) FindAll(ctx context.Context, page *types.PageRequest) (*types.Pagination[entity.Place], error) {
	page = orDefaultPage(page)
	orders, err := placeOrders(page)
	if err != nil {
		return nil, err
	}
	return r.base.Page(ctx, page.WithFilter(nil).WithOrders(orders...))
}

func (r *placeRepositoryImpl) Find(ctx context.Context, name string, page *types.PageRequest) (*types.Pagination[entity.Place], error) {
	page = orDefaultPage(page)
	orders, err := placeOrders(page)
	if err != nil {
		return nil, err
	}
	filter := types.NewQueryFilter(
		"?TableAlias.name_folded LIKE ? ESCAPE '"+string(likeEscape)+"'",
		"%"+escapeLike(entity.FoldName(name))+"%",
	)
	return r.base.Page(ctx, page.WithFilter(filter).WithOrders(orders...))
}

func (r *placeRepositoryImpl) FindByID(ctx context.Context, id int64) (*entity.Place, bool, error) {
	place, err := r.base.GetOne(ctx, id)
	if errors.Is(err, ErrEntityNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return place, true, nil
}

func (r *placeRepositoryImpl) GetReference(ctx context.Context, id int64) (*entity.Place, error) {
	return r.base.GetOne(ctx, id)
}

func (r *placeRepositoryImpl) Save(ctx context.Context, place *entity.Place) (*entity.Place, error) {
	now := r.now()
	place.NameFolded = entity.FoldName(place.Name)
	place.UpdatedAt = now
	if place.CreatedAt.IsZero() {
		place.CreatedAt = now
	}
	if place.ID == 0 {
		if err := r.base.Create(ctx, place); err != nil {
			return nil, err
		}
		return place, nil
	}
	if err := r.base.Update(ctx, place); err != nil {
		if errors.Is(err, ErrEntityNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrEntityNotFound, place.ID)
		}
		return nil, err
	}
	return place, nil
}

func (r *placeRepositoryImpl) DeleteByID(ctx context.Context, id int64) error {
	return r.base.Delete(ctx, id)
}

func orDefaultPage(page *types.PageRequest) *types.PageRequest {
	if page == nil {
		return types.NewDefaultPageRequest(0, types.DefaultPageSize)
	}
	return page
}

// placeOrders validates the requested orders against the sortable columns
// and rewrites them in canonical "column DIR" form. The id is appended as a
// tie-breaker so pages never overlap.
func placeOrders(page *types.PageRequest) ([]string, error) {
	requested := page.GetOrders()
	orders := make([]string, 0, len(requested)+1)
	hasID := false
	for _, order := range requested {
		if strings.TrimSpace(order) == "" {
			continue
		}
		column, direction, err := types.SplitOrder(order)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSort, err)
		}
		column = strings.ToLower(column)
		if !slices.Contains(placeSortColumns, column) {
			return nil, fmt.Errorf("%w: column %q is not sortable", ErrInvalidSort, column)
		}
		hasID = hasID || column == "id"
		orders = append(orders, column+" "+direction.Name())
	}
	if !hasID {
		orders = append(orders, "id ASC")
	}
	return orders, nil
}

// escapeLike makes every character of s match literally inside a LIKE
// pattern that uses likeEscape.
func escapeLike(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '%', '_', likeEscape:
			b.WriteRune(likeEscape)
		}
		b.WriteRune(r)
	}
	return b.String()
}
