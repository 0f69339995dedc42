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

package search

import (
	"strings"

	"github.com/tomoncle/membersearch/model"
)

const (
	// MemberTeamColumns projects the join onto the MemberTeamDto fields.
	MemberTeamColumns = "m.id AS member_id, m.username, m.age, t.id AS team_id, t.name AS team_name"
	// TeamJoin is the outer join from members to their team.
	TeamJoin = "LEFT JOIN teams AS t ON t.id = m.team_id"
	// DefaultOrder keeps results in insertion order.
	DefaultOrder = "m.id ASC"
)

// RawQuery renders the member/team search for cond as one SQL statement with
// positional "?" placeholders and the matching args.
func RawQuery(cond *model.MemberSearchCondition) (string, []interface{}) {
	var sb strings.Builder
	var args []interface{}

	sb.WriteString("SELECT ")
	sb.WriteString(MemberTeamColumns)
	sb.WriteString(" FROM members AS m ")
	sb.WriteString(TeamJoin)
	sb.WriteString(" WHERE 1 = 1")

	if cond != nil {
		if HasText(cond.Username) {
			sb.WriteString(" AND m.username = ?")
			args = append(args, *cond.Username)
		}
		if HasText(cond.TeamName) {
			sb.WriteString(" AND t.name = ?")
			args = append(args, *cond.TeamName)
		}
		if cond.AgeGoe != nil {
			sb.WriteString(" AND m.age >= ?")
			args = append(args, *cond.AgeGoe)
		}
		if cond.AgeLoe != nil {
			sb.WriteString(" AND m.age <= ?")
			args = append(args, *cond.AgeLoe)
		}
	}

	sb.WriteString(" ORDER BY ")
	sb.WriteString(DefaultOrder)
	return sb.String(), args
}
