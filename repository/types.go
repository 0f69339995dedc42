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

	"github.com/tomoncle/membersearch/model"
	"github.com/tomoncle/membersearch/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// CrudRepository defines basic CRUD operations for a generic entity type.
type CrudRepository[T any] interface {
	// GetOne returns an empty Optional when no row has the id.
	GetOne(ctx context.Context, id any) (types.Optional[T], error)

	GetAll(ctx context.Context) ([]*T, error)

	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	Query(ctx context.Context, query string, args ...interface{}) ([]*T, error)

	Create(ctx context.Context, entity ...*T) error

	Update(ctx context.Context, entity *T) error

	Delete(ctx context.Context, id any) error
}

// TransactionRepository defines CRUD operations executed within a transaction.
type TransactionRepository[T any] interface {
	CreateWithTx(ctx context.Context, tx *bun.Tx, entity ...*T) error
	UpdateWithTx(ctx context.Context, tx *bun.Tx, entity *T) error
	DeleteWithTx(ctx context.Context, tx *bun.Tx, id any) error
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// Repository combines CRUD, pagination, and transactional operations and
// exposes Bun query builders for advanced use cases.
type Repository[T any] interface {
	CrudRepository[T]
	PageQueryRepository[T]
	TransactionRepository[T]
	Dialect() schema.Dialect
	NewSelect() *bun.SelectQuery
	NewInsert() *bun.InsertQuery
	NewUpdate() *bun.UpdateQuery
	NewDelete() *bun.DeleteQuery
}

// MemberRepository is the member store and its search queries. A nil search
// condition behaves like an empty one.
type MemberRepository interface {
	Repository[model.Member]

	// Save inserts member and assigns its generated ID.
	Save(ctx context.Context, member *model.Member) error
	// FindByID loads a member together with its team.
	FindByID(ctx context.Context, id int64) (types.Optional[model.Member], error)
	// FindAll returns every member ordered by id.
	FindAll(ctx context.Context) ([]*model.Member, error)
	FindByUsername(ctx context.Context, username string) ([]*model.Member, error)
	FindAllWithTeam(ctx context.Context) ([]*model.MemberTeamDto, error)

	// Search applies every present field as its own where clause.
	Search(ctx context.Context, cond *model.MemberSearchCondition) ([]*model.MemberTeamDto, error)
	// SearchByBuilder applies the condition as one accumulated predicate.
	SearchByBuilder(ctx context.Context, cond *model.MemberSearchCondition) ([]*model.MemberTeamDto, error)
	// SearchByRawQuery runs the condition as a plain SQL statement.
	SearchByRawQuery(ctx context.Context, cond *model.MemberSearchCondition) ([]*model.MemberTeamDto, error)
	// SearchPage returns one page of Search results and the total match count.
	// A filter on page is ANDed with cond and may reference m and t.
	SearchPage(ctx context.Context, cond *model.MemberSearchCondition, page *types.PageRequest) (*types.Pagination[model.MemberTeamDto], error)
}

// TeamRepository is the team store.
type TeamRepository interface {
	Repository[model.Team]

	FindByName(ctx context.Context, name string) (types.Optional[model.Team], error)
}
