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

	"github.com/sirupsen/logrus"
	"github.com/tomoncle/membersearch/database"
	"github.com/tomoncle/membersearch/model"
	"github.com/tomoncle/membersearch/search"
	"github.com/tomoncle/membersearch/types"
	"github.com/tomoncle/membersearch/utils"
	"github.com/uptrace/bun"
)

var log = utils.NewLogger("REPOSITORY")

func conditionFields(cond *model.MemberSearchCondition) logrus.Fields {
	fields := logrus.Fields{}
	if cond == nil {
		return fields
	}
	if cond.Username != nil {
		fields["username"] = *cond.Username
	}
	if cond.TeamName != nil {
		fields["team_name"] = *cond.TeamName
	}
	if cond.AgeGoe != nil {
		fields["age_goe"] = *cond.AgeGoe
	}
	if cond.AgeLoe != nil {
		fields["age_loe"] = *cond.AgeLoe
	}
	return fields
}

// memberTeamRow is the scan target of the member/team projection.
type memberTeamRow struct {
	MemberID int64          `bun:"member_id"`
	Username string         `bun:"username"`
	Age      int            `bun:"age"`
	TeamID   sql.NullInt64  `bun:"team_id"`
	TeamName sql.NullString `bun:"team_name"`
}

func toMemberTeamDto(row *memberTeamRow) *model.MemberTeamDto {
	dto := &model.MemberTeamDto{
		MemberID: row.MemberID,
		Username: row.Username,
		Age:      row.Age,
	}
	if row.TeamID.Valid {
		id := row.TeamID.Int64
		dto.TeamID = &id
	}
	if row.TeamName.Valid {
		name := row.TeamName.String
		dto.TeamName = &name
	}
	return dto
}

func toMemberTeamDtos(rows []memberTeamRow) []*model.MemberTeamDto {
	dtos := make([]*model.MemberTeamDto, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, toMemberTeamDto(&rows[i]))
	}
	return dtos
}

type memberRepositoryImpl struct {
	*baseRepositoryImpl[model.Member]
}

// NewMemberRepository returns the member repository backed by db.
func NewMemberRepository(db *bun.DB) MemberRepository {
	return &memberRepositoryImpl{baseRepositoryImpl: newBaseRepository[model.Member](db)}
}

func (r *memberRepositoryImpl) Save(ctx context.Context, member *model.Member) error {
	if _, err := r.db.NewInsert().Model(member).Exec(ctx); err != nil {
		return database.NewPersistenceError("save member", err)
	}
	return nil
}

func (r *memberRepositoryImpl) FindByID(ctx context.Context, id int64) (types.Optional[model.Member], error) {
	member := new(model.Member)
	err := r.db.NewSelect().
		Model(member).
		Relation("Team").
		Where("m.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Empty[model.Member](), nil
	}
	if err != nil {
		return types.Empty[model.Member](), database.NewPersistenceError("find member", err)
	}
	return types.Of(member), nil
}

func (r *memberRepositoryImpl) FindAll(ctx context.Context) ([]*model.Member, error) {
	var members []*model.Member
	if err := r.db.NewSelect().Model(&members).Order(search.DefaultOrder).Scan(ctx); err != nil {
		return nil, database.NewPersistenceError("find members", err)
	}
	return members, nil
}

func (r *memberRepositoryImpl) FindByUsername(ctx context.Context, username string) ([]*model.Member, error) {
	var members []*model.Member
	err := r.db.NewSelect().
		Model(&members).
		Where(search.ColumnUsername+" = ?", username).
		Order(search.DefaultOrder).
		Scan(ctx)
	if err != nil {
		return nil, database.NewPersistenceError("find members by username", err)
	}
	return members, nil
}

func (r *memberRepositoryImpl) FindAllWithTeam(ctx context.Context) ([]*model.MemberTeamDto, error) {
	var members []*model.Member
	err := r.db.NewSelect().
		Model(&members).
		Relation("Team").
		Order(search.DefaultOrder).
		Scan(ctx)
	if err != nil {
		return nil, database.NewPersistenceError("find members with team", err)
	}
	dtos := make([]*model.MemberTeamDto, 0, len(members))
	for _, m := range members {
		dtos = append(dtos, model.NewMemberTeamDto(m))
	}
	return dtos, nil
}

// memberTeamQuery selects the member/team projection with the team joined.
func (r *memberRepositoryImpl) memberTeamQuery() *bun.SelectQuery {
	return r.db.NewSelect().
		Model((*model.Member)(nil)).
		ColumnExpr(search.MemberTeamColumns).
		Join(search.TeamJoin)
}

func (r *memberRepositoryImpl) scanMemberTeam(ctx context.Context, op string, query *bun.SelectQuery) ([]*model.MemberTeamDto, error) {
	var rows []memberTeamRow
	if err := query.Scan(ctx, &rows); err != nil {
		return nil, database.NewPersistenceError(op, err)
	}
	return toMemberTeamDtos(rows), nil
}

// applyFilter adds extra as one more where clause unless it is empty.
func applyFilter(query *bun.SelectQuery, extra *types.QueryFilter) *bun.SelectQuery {
	if extra.IsEmpty() {
		return query
	}
	return query.Where(extra.Schema, extra.Args...)
}

func applyConditions(query *bun.SelectQuery, cond *model.MemberSearchCondition) *bun.SelectQuery {
	for _, f := range search.Conditions(cond) {
		if f != nil {
			query = query.Where(f.Schema, f.Args...)
		}
	}
	return query
}

func (r *memberRepositoryImpl) Search(ctx context.Context, cond *model.MemberSearchCondition) ([]*model.MemberTeamDto, error) {
	log.WithFields(conditionFields(cond)).Debug("search members")
	query := applyConditions(r.memberTeamQuery(), cond).Order(search.DefaultOrder)
	return r.scanMemberTeam(ctx, "search members", query)
}

func (r *memberRepositoryImpl) SearchByBuilder(ctx context.Context, cond *model.MemberSearchCondition) ([]*model.MemberTeamDto, error) {
	log.WithFields(conditionFields(cond)).Debug("search members by builder")
	query := r.memberTeamQuery()
	if f := search.ByBuilder(cond).Filter(); f != nil {
		query = query.Where(f.Schema, f.Args...)
	}
	return r.scanMemberTeam(ctx, "search members by builder", query.Order(search.DefaultOrder))
}

func (r *memberRepositoryImpl) SearchByRawQuery(ctx context.Context, cond *model.MemberSearchCondition) ([]*model.MemberTeamDto, error) {
	log.WithFields(conditionFields(cond)).Debug("search members by raw query")
	sqlText, args := search.RawQuery(cond)
	var rows []memberTeamRow
	if err := r.db.NewRaw(sqlText, args...).Scan(ctx, &rows); err != nil {
		return nil, database.NewPersistenceError("search members by raw query", err)
	}
	return toMemberTeamDtos(rows), nil
}

func (r *memberRepositoryImpl) SearchPage(ctx context.Context, cond *model.MemberSearchCondition, page *types.PageRequest) (*types.Pagination[model.MemberTeamDto], error) {
	if page == nil {
		page = types.NewDefaultPageRequest(0, 0)
	}
	log.WithFields(conditionFields(cond)).
		WithField("page", page.GetPage()).
		WithField("size", page.GetPageSize()).
		Debug("search members page")

	orders := page.GetOrders()
	if len(orders) == 0 {
		orders = []string{search.DefaultOrder}
	}
	query := applyFilter(applyConditions(r.memberTeamQuery(), cond), page.GetFilter()).
		Order(orders...).
		Offset(page.GetOffset()).
		Limit(page.GetPageSize())
	content, err := r.scanMemberTeam(ctx, "search members page", query)
	if err != nil {
		return nil, err
	}

	result := types.NewDefaultPagination[model.MemberTeamDto](page.GetPage(), page.GetPageSize())
	result.Items = content

	total, known := knownTotal(page, len(content))
	if !known {
		total, err = r.countMembers(ctx, cond, page.GetFilter())
		if err != nil {
			return nil, err
		}
	}
	result.Total = total
	return result, nil
}

// knownTotal derives the total from a page that is not full: nothing follows
// it. An empty page beyond the first says nothing about earlier pages.
func knownTotal(page *types.PageRequest, fetched int) (int, bool) {
	if fetched >= page.GetPageSize() {
		return 0, false
	}
	if page.GetOffset() == 0 {
		return fetched, true
	}
	if fetched > 0 {
		return page.GetOffset() + fetched, true
	}
	return 0, false
}

// countMembers counts the matches of cond and extra. The team join is only
// added when cond filters on the team or an extra filter may reference t,
// since every member yields exactly one joined row.
func (r *memberRepositoryImpl) countMembers(ctx context.Context, cond *model.MemberSearchCondition, extra *types.QueryFilter) (int, error) {
	query := r.db.NewSelect().Model((*model.Member)(nil))
	if search.HasTeamPredicate(cond) || !extra.IsEmpty() {
		query = query.Join(search.TeamJoin)
	}
	total, err := applyFilter(applyConditions(query, cond), extra).Count(ctx)
	if err != nil {
		return 0, database.NewPersistenceError("count members", err)
	}
	return total, nil
}
