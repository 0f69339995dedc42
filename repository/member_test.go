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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/membersearch/database/dbtest"
	"github.com/tomoncle/membersearch/model"
	"github.com/tomoncle/membersearch/types"
)

func usernames(rows []*model.MemberTeamDto) []string {
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.Username)
	}
	return names
}

func newSeededMemberRepository(t *testing.T) (MemberRepository, *dbtest.Scenario) {
	t.Helper()
	db := dbtest.NewSQLite(t)
	return NewMemberRepository(db), dbtest.SeedScenario(t, db)
}

func TestSearchByUsernameAndAge(t *testing.T) {
	repo, s := newSeededMemberRepository(t)
	ctx := context.Background()
	cond := model.MemberSearchCondition{}.WithUsername("member4").WithAgeGoe(35).WithAgeLoe(40)

	strategies := map[string]func(context.Context, *model.MemberSearchCondition) ([]*model.MemberTeamDto, error){
		"where":   repo.Search,
		"builder": repo.SearchByBuilder,
		"raw":     repo.SearchByRawQuery,
	}
	for name, run := range strategies {
		t.Run(name, func(t *testing.T) {
			rows, err := run(ctx, &cond)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			got := rows[0]
			assert.Equal(t, s.Members[3].ID, got.MemberID)
			assert.Equal(t, "member4", got.Username)
			assert.Equal(t, 40, got.Age)
			require.NotNil(t, got.TeamID)
			assert.Equal(t, s.TeamB.ID, *got.TeamID)
			require.NotNil(t, got.TeamName)
			assert.Equal(t, "teamB", *got.TeamName)
		})
	}
}

func TestSearchStrategiesAgree(t *testing.T) {
	repo, _ := newSeededMemberRepository(t)
	ctx := context.Background()
	blank := "   "

	cases := []struct {
		name string
		cond *model.MemberSearchCondition
		want []string
	}{
		{"nil condition", nil, []string{"member1", "member2", "member3", "member4"}},
		{"empty condition", &model.MemberSearchCondition{}, []string{"member1", "member2", "member3", "member4"}},
		{"blank text is ignored", &model.MemberSearchCondition{Username: &blank, TeamName: &blank}, []string{"member1", "member2", "member3", "member4"}},
		{"team only", ptr(model.MemberSearchCondition{}.WithTeamName("teamA")), []string{"member1", "member2"}},
		{"age range", ptr(model.MemberSearchCondition{}.WithAgeGoe(20).WithAgeLoe(30)), []string{"member2", "member3"}},
		{"zero lower bound", ptr(model.MemberSearchCondition{}.WithAgeGoe(0)), []string{"member1", "member2", "member3", "member4"}},
		{"upper bound only", ptr(model.MemberSearchCondition{}.WithAgeLoe(10)), []string{"member1"}},
		{"team and age", ptr(model.MemberSearchCondition{}.WithTeamName("teamB").WithAgeLoe(35)), []string{"member3"}},
		{"no match", ptr(model.MemberSearchCondition{}.WithUsername("member1").WithTeamName("teamB")), []string{}},
		{"unknown team", ptr(model.MemberSearchCondition{}.WithTeamName("teamC")), []string{}},
		{"empty range", ptr(model.MemberSearchCondition{}.WithAgeGoe(30).WithAgeLoe(20)), []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			where, err := repo.Search(ctx, tc.cond)
			require.NoError(t, err)
			builder, err := repo.SearchByBuilder(ctx, tc.cond)
			require.NoError(t, err)
			raw, err := repo.SearchByRawQuery(ctx, tc.cond)
			require.NoError(t, err)

			assert.Equal(t, tc.want, usernames(where))
			assert.Equal(t, where, builder)
			assert.Equal(t, where, raw)
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestSearchEmptyConditionMatchesFindAllWithTeam(t *testing.T) {
	repo, _ := newSeededMemberRepository(t)
	ctx := context.Background()

	all, err := repo.FindAllWithTeam(ctx)
	require.NoError(t, err)
	rows, err := repo.Search(ctx, &model.MemberSearchCondition{})
	require.NoError(t, err)
	assert.Equal(t, all, rows)
}

func TestSearchPage(t *testing.T) {
	repo, _ := newSeededMemberRepository(t)
	ctx := context.Background()

	t.Run("first page", func(t *testing.T) {
		page, err := repo.SearchPage(ctx, &model.MemberSearchCondition{}, types.NewDefaultPageRequest(0, 3))
		require.NoError(t, err)
		assert.Equal(t, []string{"member1", "member2", "member3"}, usernames(page.Items))
		assert.Equal(t, 4, page.Total)
		assert.Equal(t, 0, page.Page)
		assert.Equal(t, 3, page.PageSize)
		assert.Equal(t, 2, page.TotalPages())
		assert.True(t, page.HasNext())
	})

	t.Run("last short page", func(t *testing.T) {
		page, err := repo.SearchPage(ctx, nil, types.NewDefaultPageRequest(1, 3))
		require.NoError(t, err)
		assert.Equal(t, []string{"member4"}, usernames(page.Items))
		assert.Equal(t, 4, page.Total)
		assert.False(t, page.HasNext())
	})

	t.Run("beyond the last page", func(t *testing.T) {
		page, err := repo.SearchPage(ctx, nil, types.NewDefaultPageRequest(5, 3))
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.Equal(t, 4, page.Total)
	})

	t.Run("team filter counts through the join", func(t *testing.T) {
		cond := model.MemberSearchCondition{}.WithTeamName("teamB")
		page, err := repo.SearchPage(ctx, &cond, types.NewDefaultPageRequest(0, 1))
		require.NoError(t, err)
		assert.Equal(t, []string{"member3"}, usernames(page.Items))
		assert.Equal(t, 2, page.Total)
	})

	t.Run("page filter narrows the condition", func(t *testing.T) {
		cond := model.MemberSearchCondition{}.WithAgeGoe(20)
		filter := types.NewQueryFilter("t.name = ?", "teamA")
		page, err := repo.SearchPage(ctx, &cond, types.NewPageRequestWithFilter(0, 1, filter))
		require.NoError(t, err)
		assert.Equal(t, []string{"member2"}, usernames(page.Items))
		assert.Equal(t, 1, page.Total)
	})

	t.Run("page filter counted on a full page", func(t *testing.T) {
		filter := types.NewQueryFilter("m.age > ?", 15)
		page, err := repo.SearchPage(ctx, nil, types.NewPageRequestWithFilter(0, 2, filter))
		require.NoError(t, err)
		assert.Equal(t, []string{"member2", "member3"}, usernames(page.Items))
		assert.Equal(t, 3, page.Total)
	})

	t.Run("default page", func(t *testing.T) {
		page, err := repo.SearchPage(ctx, nil, nil)
		require.NoError(t, err)
		assert.Len(t, page.Items, 4)
		assert.Equal(t, 4, page.Total)
		assert.Equal(t, 10, page.PageSize)
	})
}

func TestKnownTotal(t *testing.T) {
	cases := []struct {
		name      string
		page      *types.PageRequest
		fetched   int
		wantTotal int
		wantKnown bool
	}{
		{"full page", types.NewDefaultPageRequest(0, 3), 3, 0, false},
		{"short first page", types.NewDefaultPageRequest(0, 3), 2, 2, true},
		{"empty first page", types.NewDefaultPageRequest(0, 3), 0, 0, true},
		{"short later page", types.NewDefaultPageRequest(2, 3), 1, 7, true},
		{"empty later page", types.NewDefaultPageRequest(2, 3), 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			total, known := knownTotal(tc.page, tc.fetched)
			assert.Equal(t, tc.wantKnown, known)
			assert.Equal(t, tc.wantTotal, total)
		})
	}
}

func TestSaveAndFindByID(t *testing.T) {
	db := dbtest.NewSQLite(t)
	ctx := context.Background()
	teams := NewTeamRepository(db)
	members := NewMemberRepository(db)

	team := model.NewTeam("teamA")
	require.NoError(t, teams.Create(ctx, team))
	require.NotZero(t, team.ID)

	member := model.NewMember("member1", 10, team)
	require.NoError(t, members.Save(ctx, member))
	require.NotZero(t, member.ID)

	found, err := members.FindByID(ctx, member.ID)
	require.NoError(t, err)
	require.True(t, found.IsPresent())
	got := found.MustGet()
	assert.Equal(t, member.ID, got.ID)
	assert.Equal(t, "member1", got.Username)
	assert.Equal(t, 10, got.Age)
	require.NotNil(t, got.TeamID)
	assert.Equal(t, team.ID, *got.TeamID)
	require.NotNil(t, got.Team)
	assert.Equal(t, "teamA", got.Team.Name)

	missing, err := members.FindByID(ctx, member.ID+100)
	require.NoError(t, err)
	assert.False(t, missing.IsPresent())
}

func TestTeamAssignedBeforeSave(t *testing.T) {
	db := dbtest.NewSQLite(t)
	ctx := context.Background()

	team := model.NewTeam("late")
	member := model.NewMember("member1", 10, team)
	assert.Nil(t, member.TeamID)
	assert.Equal(t, []*model.Member{member}, team.Members)

	require.NoError(t, NewTeamRepository(db).Create(ctx, team))
	require.NoError(t, NewMemberRepository(db).Save(ctx, member))
	require.NotNil(t, member.TeamID)
	assert.Equal(t, team.ID, *member.TeamID)
}

func TestMemberWithoutTeam(t *testing.T) {
	repo, _ := newSeededMemberRepository(t)
	ctx := context.Background()

	drifter := model.NewMember("drifter", 25, nil)
	require.NoError(t, repo.Save(ctx, drifter))

	rows, err := repo.Search(ctx, ptr(model.MemberSearchCondition{}.WithUsername("drifter")))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].TeamID)
	assert.Nil(t, rows[0].TeamName)

	raw, err := repo.SearchByRawQuery(ctx, ptr(model.MemberSearchCondition{}.WithUsername("drifter")))
	require.NoError(t, err)
	assert.Equal(t, rows, raw)

	all, err := repo.FindAllWithTeam(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Nil(t, all[4].TeamID)
	assert.Nil(t, all[4].TeamName)

	inTeam, err := repo.Search(ctx, ptr(model.MemberSearchCondition{}.WithAgeGoe(25).WithAgeLoe(25)))
	require.NoError(t, err)
	assert.Equal(t, []string{"drifter"}, usernames(inTeam))

	teamOnly, err := repo.SearchPage(ctx, ptr(model.MemberSearchCondition{}.WithTeamName("teamA")), types.NewDefaultPageRequest(0, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, teamOnly.Total)
}

func TestFindAllAndByUsername(t *testing.T) {
	repo, s := newSeededMemberRepository(t)
	ctx := context.Background()

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, m := range all {
		assert.Equal(t, s.Members[i].ID, m.ID)
	}

	byName, err := repo.FindByUsername(ctx, "member2")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, 20, byName[0].Age)

	none, err := repo.FindByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}
