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

package model

import (
	"context"
	"fmt"

	"github.com/tomoncle/membersearch/database"
	"github.com/uptrace/bun"
)

func init() {
	// teams is referenced by members.team_id and must be created first
	database.RegisterModel((*Team)(nil), 1)
	database.RegisterModel((*Member)(nil), 2)
}

// Member belongs to at most one Team.
type Member struct {
	bun.BaseModel `bun:"table:members,alias:m"`

	ID       int64  `bun:"id,pk,autoincrement" json:"id"`
	Username string `bun:"username,notnull" json:"username"`
	Age      int    `bun:"age,notnull" json:"age"`
	TeamID   *int64 `bun:"team_id" json:"teamId,omitempty"`
	Team     *Team  `bun:"rel:belongs-to,join:team_id=id" json:"team,omitempty"`
}

var _ bun.BeforeAppendModelHook = (*Member)(nil)

// NewMember returns an unsaved member. team may be nil.
func NewMember(username string, age int, team *Team) *Member {
	m := &Member{Username: username, Age: age}
	if team != nil {
		m.ChangeTeam(team)
	}
	return m
}

// ChangeTeam moves the member to team, or out of any team when team is nil.
func (m *Member) ChangeTeam(team *Team) {
	m.Team = team
	if team == nil {
		m.TeamID = nil
		return
	}
	if team.ID != 0 {
		id := team.ID
		m.TeamID = &id
	}
	for _, existing := range team.Members {
		if existing == m {
			return
		}
	}
	team.Members = append(team.Members, m)
}

// BeforeAppendModel copies the id of a team that was saved after it was
// assigned to the member.
func (m *Member) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery, *bun.UpdateQuery:
		if m.Team != nil && m.Team.ID != 0 {
			id := m.Team.ID
			m.TeamID = &id
		}
	}
	return nil
}

func (m *Member) String() string {
	return fmt.Sprintf("Member(id=%d, username=%s, age=%d)", m.ID, m.Username, m.Age)
}
