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
	"math"
	"strings"
)

const defaultPageSize = 10

// QueryFilter describes a WHERE clause schema and its argument values.
// A nil *QueryFilter constrains nothing.
type QueryFilter struct {
	Schema string
	Args   []interface{}
}

// NewQueryFilter creates a new query filter with schema and args.
func NewQueryFilter(schema string, args ...interface{}) *QueryFilter {
	return &QueryFilter{schema, args}
}

// IsEmpty reports whether the filter constrains nothing.
func (f *QueryFilter) IsEmpty() bool {
	return f == nil || strings.TrimSpace(f.Schema) == ""
}

// And returns the conjunction of f and other. Either side may be nil.
func (f *QueryFilter) And(other *QueryFilter) *QueryFilter {
	return And(f, other)
}

// And folds the non-empty filters into one conjunction. Each operand is
// parenthesized and the args are concatenated in operand order. It returns
// nil when no operand constrains anything.
func And(filters ...*QueryFilter) *QueryFilter {
	present := make([]*QueryFilter, 0, len(filters))
	for _, f := range filters {
		if !f.IsEmpty() {
			present = append(present, f)
		}
	}
	switch len(present) {
	case 0:
		return nil
	case 1:
		return &QueryFilter{present[0].Schema, append([]interface{}(nil), present[0].Args...)}
	}
	parts := make([]string, len(present))
	var args []interface{}
	for i, f := range present {
		parts[i] = "(" + f.Schema + ")"
		args = append(args, f.Args...)
	}
	return &QueryFilter{strings.Join(parts, " AND "), args}
}

// PageRequest describes a zero-based page, optional filter, and ordering.
type PageRequest struct {
	page     int
	pageSize int
	filter   *QueryFilter
	orders   []string // "m.id ASC", "username DESC"
}

func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		p.pageSize = defaultPageSize
	}
	return p.pageSize
}

// GetPage returns the zero-based page index.
func (p *PageRequest) GetPage() int {
	if p.page < 0 {
		p.page = 0
	}
	return p.page
}

// GetOffset returns page*size, saturating at math.MaxInt.
func (p *PageRequest) GetOffset() int {
	page, size := p.GetPage(), p.GetPageSize()
	if page > math.MaxInt/size {
		return math.MaxInt
	}
	return page * size
}

func (p *PageRequest) GetFilter() *QueryFilter {
	return p.filter
}

func (p *PageRequest) GetOrders() []string {
	return p.orders
}

// NewPageRequest constructs a PageRequest with filter and order settings.
func NewPageRequest(page int, pageSize int, filter *QueryFilter, orders []string) *PageRequest {
	return &PageRequest{page, pageSize, filter, orders}
}

// NewPageRequestWithFilter constructs a PageRequest with a filter only.
func NewPageRequestWithFilter(page int, pageSize int, filter *QueryFilter) *PageRequest {
	return NewPageRequest(page, pageSize, filter, make([]string, 0))
}

// NewPageRequestWithOrders constructs a PageRequest with ordering only.
func NewPageRequestWithOrders(page int, pageSize int, orders []string) *PageRequest {
	return NewPageRequest(page, pageSize, nil, orders)
}

// NewDefaultPageRequest constructs a PageRequest with no filter or ordering.
func NewDefaultPageRequest(page int, pageSize int) *PageRequest {
	return NewPageRequest(page, pageSize, nil, make([]string, 0))
}

// Pagination holds paged result items along with pagination metadata.
type Pagination[T any] struct {
	Page     int  `json:"page"`
	PageSize int  `json:"size"`
	Total    int  `json:"total"`
	Items    []*T `json:"content"`
}

// NewDefaultPagination constructs an empty pagination container.
func NewDefaultPagination[T any](page int, pageSize int) *Pagination[T] {
	return &Pagination[T]{page, pageSize, 0, make([]*T, 0)}
}

// TotalPages returns the number of pages needed to hold Total items.
func (p *Pagination[T]) TotalPages() int {
	if p.PageSize < 1 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// HasNext reports whether a page after this one holds items.
func (p *Pagination[T]) HasNext() bool {
	return p.Page+1 < p.TotalPages()
}

// Map converts every item of p with fn and keeps the page metadata.
func Map[T, R any](p *Pagination[T], fn func(*T) *R) *Pagination[R] {
	out := NewDefaultPagination[R](p.Page, p.PageSize)
	out.Total = p.Total
	for _, item := range p.Items {
		out.Items = append(out.Items, fn(item))
	}
	return out
}
