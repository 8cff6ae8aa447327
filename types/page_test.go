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

package types

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageRequestBounds(t *testing.T) {
	tests := []struct {
		name       string
		page, size int
		wantPage   int
		wantSize   int
		wantOffset int
	}{
		{"first page", 0, 10, 0, 10, 0},
		{"third page", 2, 10, 2, 10, 20},
		{"negative page", -3, 10, 0, 10, 0},
		{"zero size", 1, 0, 1, DefaultPageSize, DefaultPageSize},
		{"oversized", 1, 5000, 1, MaxPageSize, MaxPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewDefaultPageRequest(tt.page, tt.size)
			assert.Equal(t, tt.wantPage, p.GetPage())
			assert.Equal(t, tt.wantSize, p.GetPageSize())
			assert.Equal(t, tt.wantOffset, p.GetOffset())
		})
	}
}

func TestPageRequestCopies(t *testing.T) {
	base := NewPageRequestWithOrders(1, 20, []string{"name DESC"})
	filter := NewQueryFilter("name = ?", "Airport")

	filtered := base.WithFilter(filter)
	assert.Nil(t, base.GetFilter())
	assert.Same(t, filter, filtered.GetFilter())
	assert.Equal(t, []string{"name DESC"}, filtered.GetOrders())

	ordered := filtered.WithOrders("id ASC")
	assert.Equal(t, []string{"id ASC"}, ordered.GetOrders())
	assert.Equal(t, []string{"name DESC"}, base.GetOrders())
	assert.Equal(t, 20, ordered.GetPageSize())
	assert.Equal(t, 1, ordered.GetPage())
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"name", "name ASC", false},
		{"name,desc", "name DESC", false},
		{" id , ASC ", "id ASC", false},
		{"created_at,Desc", "created_at DESC", false},
		{",desc", "", true},
		{"name,up", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSort(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitOrder(t *testing.T) {
	column, direction, err := SplitOrder("name desc")
	require.NoError(t, err)
	assert.Equal(t, "name", column)
	assert.Equal(t, Desc, direction)

	column, direction, err = SplitOrder("id")
	require.NoError(t, err)
	assert.Equal(t, "id", column)
	assert.Equal(t, Asc, direction)

	_, _, err = SplitOrder("id sideways")
	assert.Error(t, err)
}

func TestDirectionEnum(t *testing.T) {
	assert.Equal(t, "DESC", Desc.Name())

	bad := Direction(7)
	assert.Equal(t, IllegalName, bad.String())
}

func TestNewDefaultPagination(t *testing.T) {
	p := NewDefaultPagination[int](2, 10)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 10, p.PageSize)
	assert.Zero(t, p.Total)
	assert.NotNil(t, p.Items)
	assert.Empty(t, p.Items)
}

func TestMapPaginationKeepsMetadata(t *testing.T) {
	one, two := 1, 2
	p := &Pagination[int]{Page: 3, PageSize: 2, Total: 8, Items: []*int{&one, &two}}

	out := MapPagination(p, func(n *int) *string {
		s := strconv.Itoa(*n * 10)
		return &s
	})
	assert.Equal(t, 3, out.Page)
	assert.Equal(t, 2, out.PageSize)
	assert.Equal(t, 8, out.Total)
	require.Len(t, out.Items, 2)
	assert.Equal(t, "10", *out.Items[0])
	assert.Equal(t, "20", *out.Items[1])
}
