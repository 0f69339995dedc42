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

// Package membersearch exposes services over the member and team
// repositories bound to the global database.
package membersearch

import (
	"context"
	"sync"

	"github.com/tomoncle/membersearch/database"
	"github.com/tomoncle/membersearch/model"
	"github.com/tomoncle/membersearch/repository"
	"github.com/tomoncle/membersearch/types"
	"github.com/uptrace/bun"
)

type Service[T any] interface {
	// Get returns a single entity by its identifier.
	Get(ctx context.Context, id any) (types.Optional[T], error)

	// All returns all entities.
	All(ctx context.Context) ([]*T, error)

	// List returns entities that match the provided filter.
	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	// Query executes a where clause and maps the results to entities.
	Query(ctx context.Context, query string, args ...interface{}) ([]*T, error)

	// Page returns a paginated list of entities.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Update modifies an existing entity.
	Update(ctx context.Context, entity *T) error

	// Delete removes an entity by its identifier.
	Delete(ctx context.Context, id any) error

	// Save inserts one or more new entities.
	Save(ctx context.Context, entity ...*T) error

	// SaveWithTx inserts entities within an existing transaction.
	SaveWithTx(ctx context.Context, tx *bun.Tx, entity ...*T) error

	// UpdateWithTx updates an entity within a transaction.
	UpdateWithTx(ctx context.Context, tx *bun.Tx, entity *T) error

	// DeleteWithTx removes an entity within a transaction.
	DeleteWithTx(ctx context.Context, tx *bun.Tx, id any) error

	// Transaction runs fn in a transaction.
	Transaction(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error

	SelectBuilder() *bun.SelectQuery
	InsertBuilder() *bun.InsertQuery
	UpdateBuilder() *bun.UpdateQuery
	DeleteBuilder() *bun.DeleteQuery
}

// lazyRepo builds its repository on first use so services can be declared
// before InitDB runs.
type lazyRepo[R any] struct {
	db    *bun.DB
	build func(db *bun.DB) R
	repo  R
	once  sync.Once
}

func (l *lazyRepo[R]) get() R {
	l.once.Do(func() {
		db := l.db
		if db == nil {
			db = database.GetDB()
		}
		l.repo = l.build(db)
	})
	return l.repo
}

type baseServiceImpl[T any] struct {
	repo *lazyRepo[repository.Repository[T]]
}

// NewService returns a default Service implementation using the generic
// repository backed by the global database connection.
func NewService[T any]() Service[T] {
	return NewServiceWithDB[T](nil)
}

// NewServiceWithDB returns a Service over db, or over the global database
// when db is nil.
func NewServiceWithDB[T any](db *bun.DB) Service[T] {
	return &baseServiceImpl[T]{repo: &lazyRepo[repository.Repository[T]]{db: db, build: repository.NewRepository[T]}}
}

func (s *baseServiceImpl[T]) baseRepo() repository.Repository[T] {
	return s.repo.get()
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, entity ...*T) error {
	return s.baseRepo().Create(ctx, entity...)
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (types.Optional[T], error) {
	return s.baseRepo().GetOne(ctx, id)
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	return s.baseRepo().GetAll(ctx)
}

func (s *baseServiceImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	return s.baseRepo().List(ctx, filter)
}

func (s *baseServiceImpl[T]) Query(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	return s.baseRepo().Query(ctx, query, args...)
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, entity *T) error {
	return s.baseRepo().Update(ctx, entity)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) error {
	return s.baseRepo().Delete(ctx, id)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	return s.baseRepo().Page(ctx, page)
}

func (s *baseServiceImpl[T]) SaveWithTx(ctx context.Context, tx *bun.Tx, entity ...*T) error {
	return s.baseRepo().CreateWithTx(ctx, tx, entity...)
}

func (s *baseServiceImpl[T]) UpdateWithTx(ctx context.Context, tx *bun.Tx, entity *T) error {
	return s.baseRepo().UpdateWithTx(ctx, tx, entity)
}

func (s *baseServiceImpl[T]) DeleteWithTx(ctx context.Context, tx *bun.Tx, id any) error {
	return s.baseRepo().DeleteWithTx(ctx, tx, id)
}

func (s *baseServiceImpl[T]) Transaction(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return s.baseRepo().RunInTx(ctx, fn)
}

func (s *baseServiceImpl[T]) SelectBuilder() *bun.SelectQuery {
	return s.baseRepo().NewSelect()
}

func (s *baseServiceImpl[T]) InsertBuilder() *bun.InsertQuery {
	return s.baseRepo().NewInsert()
}

func (s *baseServiceImpl[T]) UpdateBuilder() *bun.UpdateQuery {
	return s.baseRepo().NewUpdate()
}

func (s *baseServiceImpl[T]) DeleteBuilder() *bun.DeleteQuery {
	return s.baseRepo().NewDelete()
}

// MemberService adds the member lookups and searches to Service.
type MemberService interface {
	Service[model.Member]

	Register(ctx context.Context, member *model.Member) error
	FindByID(ctx context.Context, id int64) (types.Optional[model.Member], error)
	FindAll(ctx context.Context) ([]*model.Member, error)
	FindByUsername(ctx context.Context, username string) ([]*model.Member, error)
	FindAllWithTeam(ctx context.Context) ([]*model.MemberTeamDto, error)
	Search(ctx context.Context, cond *model.MemberSearchCondition) ([]*model.MemberTeamDto, error)
	SearchByBuilder(ctx context.Context, cond *model.MemberSearchCondition) ([]*model.MemberTeamDto, error)
	SearchByRawQuery(ctx context.Context, cond *model.MemberSearchCondition) ([]*model.MemberTeamDto, error)
	SearchPage(ctx context.Context, cond *model.MemberSearchCondition, page *types.PageRequest) (*types.Pagination[model.MemberTeamDto], error)
}

type memberServiceImpl struct {
	Service[model.Member]
	members *lazyRepo[repository.MemberRepository]
}

func NewMemberService() MemberService {
	return NewMemberServiceWithDB(nil)
}

// NewMemberServiceWithDB returns a MemberService over db, or over the global
// database when db is nil.
func NewMemberServiceWithDB(db *bun.DB) MemberService {
	return &memberServiceImpl{
		Service: NewServiceWithDB[model.Member](db),
		members: &lazyRepo[repository.MemberRepository]{db: db, build: repository.NewMemberRepository},
	}
}

func (s *memberServiceImpl) Register(ctx context.Context, member *model.Member) error {
	return s.members.get().Save(ctx, member)
}

func (s *memberServiceImpl) FindByID(ctx context.Context, id int64) (types.Optional[model.Member], error) {
	return s.members.get().FindByID(ctx, id)
}

func (s *memberServiceImpl) FindAll(ctx context.Context) ([]*model.Member, error) {
	return s.members.get().FindAll(ctx)
}

func (s *memberServiceImpl) FindByUsername(ctx context.Context, username string) ([]*model.Member, error) {
	return s.members.get().FindByUsername(ctx, username)
}

func (s *memberServiceImpl) FindAllWithTeam(ctx context.Context) ([]*model.MemberTeamDto, error) {
	return s.members.get().FindAllWithTeam(ctx)
}

func (s *memberServiceImpl) Search(ctx context.Context, cond *model.MemberSearchCondition) ([]*model.MemberTeamDto, error) {
	return s.members.get().Search(ctx, cond)
}

func (s *memberServiceImpl) SearchByBuilder(ctx context.Context, cond *model.MemberSearchCondition) ([]*model.MemberTeamDto, error) {
	return s.members.get().SearchByBuilder(ctx, cond)
}

func (s *memberServiceImpl) SearchByRawQuery(ctx context.Context, cond *model.MemberSearchCondition) ([]*model.MemberTeamDto, error) {
	return s.members.get().SearchByRawQuery(ctx, cond)
}

func (s *memberServiceImpl) SearchPage(ctx context.Context, cond *model.MemberSearchCondition, page *types.PageRequest) (*types.Pagination[model.MemberTeamDto], error) {
	return s.members.get().SearchPage(ctx, cond, page)
}

// TeamService adds the team lookup to Service.
type TeamService interface {
	Service[model.Team]

	FindByName(ctx context.Context, name string) (types.Optional[model.Team], error)
}

type teamServiceImpl struct {
	Service[model.Team]
	teams *lazyRepo[repository.TeamRepository]
}

func NewTeamService() TeamService {
	return NewTeamServiceWithDB(nil)
}

func NewTeamServiceWithDB(db *bun.DB) TeamService {
	return &teamServiceImpl{
		Service: NewServiceWithDB[model.Team](db),
		teams:   &lazyRepo[repository.TeamRepository]{db: db, build: repository.NewTeamRepository},
	}
}

func (s *teamServiceImpl) FindByName(ctx context.Context, name string) (types.Optional[model.Team], error) {
	return s.teams.get().FindByName(ctx, name)
}
