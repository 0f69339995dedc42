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
	"github.com/tomoncle/membersearch/types"
)

// Builder accumulates a single conjunction. The zero value is empty and
// ready to use.
type Builder struct {
	parts []string
	args  []interface{}
}

// And adds f to the conjunction. Empty filters are ignored.
func (b *Builder) And(f *types.QueryFilter) *Builder {
	if f.IsEmpty() {
		return b
	}
	b.parts = append(b.parts, "("+f.Schema+")")
	b.args = append(b.args, f.Args...)
	return b
}

// HasValue reports whether any predicate has been added.
func (b *Builder) HasValue() bool {
	return len(b.parts) > 0
}

// Filter returns the accumulated conjunction, or nil when nothing was added.
func (b *Builder) Filter() *types.QueryFilter {
	if !b.HasValue() {
		return nil
	}
	return types.NewQueryFilter(strings.Join(b.parts, " AND "), append([]interface{}(nil), b.args...)...)
}

// ByBuilder fills a Builder from cond one field at a time.
func ByBuilder(cond *model.MemberSearchCondition) *Builder {
	b := &Builder{}
	if cond == nil {
		return b
	}
	if HasText(cond.Username) {
		b.And(types.NewQueryFilter(ColumnUsername+" = ?", *cond.Username))
	}
	if cond.AgeGoe != nil {
		b.And(types.NewQueryFilter(ColumnAge+" >= ?", *cond.AgeGoe))
	}
	if cond.AgeLoe != nil {
		b.And(types.NewQueryFilter(ColumnAge+" <= ?", *cond.AgeLoe))
	}
	if HasText(cond.TeamName) {
		b.And(types.NewQueryFilter(ColumnTeamName+" = ?", *cond.TeamName))
	}
	return b
}
