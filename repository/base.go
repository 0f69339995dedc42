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
	"database/sql"
	"errors"

	"github.com/tomoncle/membersearch/database"
	"github.com/tomoncle/membersearch/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

type baseRepositoryImpl[T any] struct {
	db *bun.DB
}

// NewRepository returns a generic repository backed by the provided Bun DB.
func NewRepository[T any](db *bun.DB) Repository[T] {
	return newBaseRepository[T](db)
}

func newBaseRepository[T any](db *bun.DB) *baseRepositoryImpl[T] {
	return &baseRepositoryImpl[T]{db: db}
}

func (r *baseRepositoryImpl[T]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *baseRepositoryImpl[T]) NewSelect() *bun.SelectQuery { return r.db.NewSelect() }

func (r *baseRepositoryImpl[T]) NewInsert() *bun.InsertQuery { return r.db.NewInsert() }

func (r *baseRepositoryImpl[T]) NewUpdate() *bun.UpdateQuery { return r.db.NewUpdate() }

func (r *baseRepositoryImpl[T]) NewDelete() *bun.DeleteQuery { return r.db.NewDelete() }

func (r *baseRepositoryImpl[T]) ValsToSlice(entity ...*T) []*T {
	entities := make([]*T, len(entity))
	copy(entities, entity)
	return entities
}

func (r *baseRepositoryImpl[T]) GetOne(ctx context.Context, id any) (types.Optional[T], error) {
	var entity T
	err := r.db.NewSelect().Model(&entity).Where("?TableAlias.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Empty[T](), nil
	}
	if err != nil {
		return types.Empty[T](), database.NewPersistenceError("get", err)
	}
	return types.Of(&entity), nil
}

func (r *baseRepositoryImpl[T]) GetAll(ctx context.Context) ([]*T, error) {
	var entities []*T
	err := r.db.NewSelect().Model(&entities).Order("id ASC").Scan(ctx)
	if err != nil {
		return nil, database.NewPersistenceError("get all", err)
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	var entities []*T
	query := r.db.NewSelect().Model(&entities)
	if !filter.IsEmpty() {
		query = query.Where(filter.Schema, filter.Args...)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, database.NewPersistenceError("list", err)
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) Query(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	var entities []*T
	err := r.db.NewSelect().Model(&entities).Where(query, args...).Scan(ctx)
	if err != nil {
		return nil, database.NewPersistenceError("query", err)
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	var entities []*T
	query := r.db.NewSelect().Model(&entities)
	if filter := pageRequest.GetFilter(); !filter.IsEmpty() {
		query = query.Where(filter.Schema, filter.Args...)
	}
	pagination := types.NewDefaultPagination[T](pageRequest.GetPage(), pageRequest.GetPageSize())
	total, err := query.Count(ctx)
	if err != nil {
		return nil, database.NewPersistenceError("page count", err)
	}
	if total == 0 {
		return pagination, nil
	}
	orders := pageRequest.GetOrders()
	if len(orders) == 0 {
		orders = []string{"id ASC"}
	}
	err = query.
		Offset(pageRequest.GetOffset()).
		Limit(pageRequest.GetPageSize()).
		Order(orders...).
		Scan(ctx)
	if err != nil {
		return nil, database.NewPersistenceError("page", err)
	}
	pagination.Total = total
	pagination.Items = entities
	return pagination, nil
}

func (r *baseRepositoryImpl[T]) Create(ctx context.Context, entity ...*T) error {
	return r.create(ctx, r.db, entity...)
}

func (r *baseRepositoryImpl[T]) Update(ctx context.Context, entity *T) error {
	return r.update(ctx, r.db, entity)
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, id any) error {
	return r.delete(ctx, r.db, id)
}

func (r *baseRepositoryImpl[T]) CreateWithTx(ctx context.Context, tx *bun.Tx, entity ...*T) error {
	return r.create(ctx, tx, entity...)
}

func (r *baseRepositoryImpl[T]) UpdateWithTx(ctx context.Context, tx *bun.Tx, entity *T) error {
	return r.update(ctx, tx, entity)
}

func (r *baseRepositoryImpl[T]) DeleteWithTx(ctx context.Context, tx *bun.Tx, id any) error {
	return r.delete(ctx, tx, id)
}

// RunInTx runs fn in a transaction that commits when fn returns nil.
func (r *baseRepositoryImpl[T]) RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return r.db.RunInTx(ctx, nil, fn)
}

func (r *baseRepositoryImpl[T]) create(ctx context.Context, db bun.IDB, entity ...*T) error {
	if len(entity) == 0 {
		return nil
	}
	entities := r.ValsToSlice(entity...)
	_, err := db.NewInsert().Model(&entities).Exec(ctx)
	return database.NewPersistenceError("create", err)
}

func (r *baseRepositoryImpl[T]) update(ctx context.Context, db bun.IDB, entity *T) error {
	_, err := db.NewUpdate().Model(entity).WherePK().Exec(ctx)
	return database.NewPersistenceError("update", err)
}

func (r *baseRepositoryImpl[T]) delete(ctx context.Context, db bun.IDB, id any) error {
	var entity T
	_, err := db.NewDelete().Model(&entity).Where("id = ?", id).Exec(ctx)
	return database.NewPersistenceError("delete", err)
}
