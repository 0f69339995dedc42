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
	"unicode"

	"github.com/tomoncle/membersearch/model"
	"github.com/tomoncle/membersearch/types"
)

// Column references of the member/team join. Members are aliased m and
// teams t.
const (
	ColumnUsername = "m.username"
	ColumnAge      = "m.age"
	ColumnTeamName = "t.name"
)

// HasText reports whether s is set and holds a non-whitespace character.
func HasText(s *string) bool {
	return s != nil && strings.IndexFunc(*s, func(r rune) bool { return !isWhitespace(r) }) >= 0
}

// isWhitespace treats Unicode space, line and paragraph separators as blank,
// except the no-break spaces U+00A0, U+2007 and U+202F, plus the ASCII
// controls \t \n \v \f \r and the separators U+001C to U+001F.
func isWhitespace(r rune) bool {
	switch r {
	case '\u00a0', '\u2007', '\u202f':
		return false
	case '\t', '\n', '\v', '\f', '\r', '\x1c', '\x1d', '\x1e', '\x1f':
		return true
	}
	return unicode.In(r, unicode.Zs, unicode.Zl, unicode.Zp)
}

// UsernameEq matches the member username exactly. It returns nil for blank input.
func UsernameEq(username *string) *types.QueryFilter {
	if !HasText(username) {
		return nil
	}
	return types.NewQueryFilter(ColumnUsername+" = ?", *username)
}

// TeamNameEq matches the team name exactly. It returns nil for blank input.
func TeamNameEq(teamName *string) *types.QueryFilter {
	if !HasText(teamName) {
		return nil
	}
	return types.NewQueryFilter(ColumnTeamName+" = ?", *teamName)
}

// AgeGoe matches members at least age years old.
func AgeGoe(age *int) *types.QueryFilter {
	if age == nil {
		return nil
	}
	return types.NewQueryFilter(ColumnAge+" >= ?", *age)
}

// AgeLoe matches members at most age years old.
func AgeLoe(age *int) *types.QueryFilter {
	if age == nil {
		return nil
	}
	return types.NewQueryFilter(ColumnAge+" <= ?", *age)
}

// Conditions returns one entry per condition field in the order username,
// team name, minimum age, maximum age. Absent fields are nil entries.
func Conditions(cond *model.MemberSearchCondition) []*types.QueryFilter {
	if cond == nil {
		cond = &model.MemberSearchCondition{}
	}
	return []*types.QueryFilter{
		UsernameEq(cond.Username),
		TeamNameEq(cond.TeamName),
		AgeGoe(cond.AgeGoe),
		AgeLoe(cond.AgeLoe),
	}
}

// Compose folds the present predicates of cond into one. It returns nil
// when cond constrains nothing.
func Compose(cond *model.MemberSearchCondition) *types.QueryFilter {
	return types.And(Conditions(cond)...)
}

// HasTeamPredicate reports whether cond filters on the team side of the join.
func HasTeamPredicate(cond *model.MemberSearchCondition) bool {
	return cond != nil && HasText(cond.TeamName)
}
