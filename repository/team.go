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
	"github.com/tomoncle/membersearch/model"
	"github.com/tomoncle/membersearch/types"
	"github.com/uptrace/bun"
)

type teamRepositoryImpl struct {
	*baseRepositoryImpl[model.Team]
}

// NewTeamRepository returns the team repository backed by db.
func NewTeamRepository(db *bun.DB) TeamRepository {
	return &teamRepositoryImpl{baseRepositoryImpl: newBaseRepository[model.Team](db)}
}

func (r *teamRepositoryImpl) FindByName(ctx context.Context, name string) (types.Optional[model.Team], error) {
	team := new(model.Team)
	err := r.db.NewSelect().
		Model(team).
		Where("t.name = ?", name).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Empty[model.Team](), nil
	}
	if err != nil {
		return types.Empty[model.Team](), database.NewPersistenceError("find team by name", err)
	}
	return types.Of(team), nil
}
