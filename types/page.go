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
	"fmt"
	"strings"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 1000
)

// QueryFilter describes a WHERE clause schema and its argument values.
type QueryFilter struct {
	Schema string
	Args   []interface{}
}

// NewQueryFilter creates a new query filter with schema and args.
func NewQueryFilter(schema string, args ...interface{}) *QueryFilter {
	return &QueryFilter{schema, args}
}

// PageRequest describes pagination, optional filter, and ordering.
// Page indexes are zero-based.
type PageRequest struct {
	page     int
	pageSize int
	filter   *QueryFilter
	orders   []string // "id ASC", "name DESC"
}

func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		p.pageSize = DefaultPageSize
	}
	if p.pageSize > MaxPageSize {
		p.pageSize = MaxPageSize
	}
	return p.pageSize
}

func (p *PageRequest) GetPage() int {
	if p.page < 0 {
		p.page = 0
	}
	return p.page
}

func (p *PageRequest) GetOffset() int {
	return p.GetPage() * p.GetPageSize()
}

func (p *PageRequest) GetFilter() *QueryFilter {
	return p.filter
}

func (p *PageRequest) GetOrders() []string {
	return p.orders
}

// WithFilter returns a copy of the request narrowed by filter. The receiver
// is left untouched so callers can reuse their request.
func (p *PageRequest) WithFilter(filter *QueryFilter) *PageRequest {
	orders := make([]string, len(p.orders))
	copy(orders, p.orders)
	return &PageRequest{p.page, p.pageSize, filter, orders}
}

// WithOrders returns a copy of the request with the given ordering.
func (p *PageRequest) WithOrders(orders ...string) *PageRequest {
	return &PageRequest{p.page, p.pageSize, p.filter, orders}
}

// NewPageRequest constructs a PageRequest with filter and order settings.
func NewPageRequest(page int, pageSize int, filter *QueryFilter, orders []string) *PageRequest {
	return &PageRequest{page, pageSize, filter, orders}
}

// NewPageRequestWithOrders constructs a PageRequest with ordering only.
func NewPageRequestWithOrders(page int, pageSize int, orders []string) *PageRequest {
	return NewPageRequest(page, pageSize, nil, orders)
}

// NewDefaultPageRequest constructs a PageRequest with no filter or ordering.
func NewDefaultPageRequest(page int, pageSize int) *PageRequest {
	return NewPageRequest(page, pageSize, nil, make([]string, 0))
}

// ParseSort converts the "property,direction" form ("name,desc") into an
// order clause ("name DESC"). The direction part is optional.
func ParseSort(sort string) (string, error) {
	property, direction, _ := strings.Cut(sort, ",")
	property = strings.TrimSpace(property)
	if property == "" {
		return "", fmt.Errorf("sort property cannot be empty")
	}
	d, ok := ParseDirection(direction)
	if !ok {
		return "", fmt.Errorf("invalid sort direction %q", direction)
	}
	return property + " " + d.Name(), nil
}

// SplitOrder splits an order clause into its column and direction.
func SplitOrder(order string) (string, Direction, error) {
	column, direction, _ := strings.Cut(strings.TrimSpace(order), " ")
	d, ok := ParseDirection(direction)
	if !ok {
		return "", d, fmt.Errorf("invalid sort direction %q", direction)
	}
	return column, d, nil
}

// Pagination holds paged result items along with pagination metadata.
type Pagination[T any] struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	Total    int  `json:"total"`
	Items    []*T `json:"items"`
}

// NewDefaultPagination constructs an empty pagination container.
func NewDefaultPagination[T any](page int, pageSize int) *Pagination[T] {
	return &Pagination[T]{page, pageSize, 0, make([]*T, 0)}
}

// MapPagination converts every item with fn and keeps the page metadata.
func MapPagination[T any, R any](p *Pagination[T], fn func(*T) *R) *Pagination[R] {
	out := &Pagination[R]{p.Page, p.PageSize, p.Total, make([]*R, 0, len(p.Items))}
	for _, item := range p.Items {
		out.Items = append(out.Items, fn(item))
	}
	return out
}
