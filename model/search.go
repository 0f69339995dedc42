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

// MemberSearchCondition filters members. A nil field does not constrain the
// search; blank text counts as nil.
type MemberSearchCondition struct {
	Username *string `json:"username,omitempty"`
	TeamName *string `json:"teamName,omitempty"`
	AgeGoe   *int    `json:"ageGoe,omitempty"`
	AgeLoe   *int    `json:"ageLoe,omitempty"`
}

func (c MemberSearchCondition) WithUsername(username string) MemberSearchCondition {
	c.Username = &username
	return c
}

func (c MemberSearchCondition) WithTeamName(teamName string) MemberSearchCondition {
	c.TeamName = &teamName
	return c
}

func (c MemberSearchCondition) WithAgeGoe(age int) MemberSearchCondition {
	c.AgeGoe = &age
	return c
}

func (c MemberSearchCondition) WithAgeLoe(age int) MemberSearchCondition {
	c.AgeLoe = &age
	return c
}

// MemberTeamDto is the flat member/team row returned by searches. TeamID and
// TeamName are nil for a member without a team.
type MemberTeamDto struct {
	MemberID int64   `json:"memberId"`
	Username string  `json:"username"`
	Age      int     `json:"age"`
	TeamID   *int64  `json:"teamId"`
	TeamName *string `json:"teamName"`
}

// NewMemberTeamDto flattens m and its loaded team.
func NewMemberTeamDto(m *Member) *MemberTeamDto {
	dto := &MemberTeamDto{
		MemberID: m.ID,
		Username: m.Username,
		Age:      m.Age,
	}
	if m.Team != nil && m.Team.ID != 0 {
		id, name := m.Team.ID, m.Team.Name
		dto.TeamID = &id
		dto.TeamName = &name
	} else if m.TeamID != nil {
		id := *m.TeamID
		dto.TeamID = &id
	}
	return dto
}
