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

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tomoncle/membersearch"
	"github.com/tomoncle/membersearch/model"
	"github.com/tomoncle/membersearch/types"
)

const (
	strategyWhere   = "where"
	strategyBuilder = "builder"
	strategyRaw     = "raw"
)

func (a *app) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print one member with its team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid member id %q", args[0])
			}
			db, closeDB, err := a.openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			found, err := membersearch.NewMemberServiceWithDB(db).FindByID(contextOrBackground(cmd), id)
			if err != nil {
				return err
			}
			member, ok := found.Get()
			if !ok {
				return fmt.Errorf("member %d not found", id)
			}
			return a.printJSON(member)
		},
	}
}

type searchFlags struct {
	username string
	teamName string
	ageGoe   int
	ageLoe   int
	page     int
	size     int
	strategy string
}

func (f *searchFlags) condition(cmd *cobra.Command) *model.MemberSearchCondition {
	cond := model.MemberSearchCondition{}
	if cmd.Flags().Changed("username") {
		cond = cond.WithUsername(f.username)
	}
	if cmd.Flags().Changed("team") {
		cond = cond.WithTeamName(f.teamName)
	}
	if cmd.Flags().Changed("age-goe") {
		cond = cond.WithAgeGoe(f.ageGoe)
	}
	if cmd.Flags().Changed("age-loe") {
		cond = cond.WithAgeLoe(f.ageLoe)
	}
	return &cond
}

func (a *app) newSearchCmd() *cobra.Command {
	f := &searchFlags{}
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search members with their teams",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := a.openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			ctx := contextOrBackground(cmd)
			svc := membersearch.NewMemberServiceWithDB(db)
			cond := f.condition(cmd)

			if cmd.Flags().Changed("page") || cmd.Flags().Changed("size") {
				page, err := svc.SearchPage(ctx, cond, types.NewDefaultPageRequest(f.page, f.size))
				if err != nil {
					return err
				}
				return a.printJSON(page)
			}

			var dtos []*model.MemberTeamDto
			switch f.strategy {
			case strategyWhere:
				dtos, err = svc.Search(ctx, cond)
			case strategyBuilder:
				dtos, err = svc.SearchByBuilder(ctx, cond)
			case strategyRaw:
				dtos, err = svc.SearchByRawQuery(ctx, cond)
			default:
				return fmt.Errorf("unknown strategy %q, expected %s, %s or %s", f.strategy, strategyWhere, strategyBuilder, strategyRaw)
			}
			if err != nil {
				return err
			}
			return a.printJSON(dtos)
		},
	}
	cmd.Flags().StringVar(&f.username, "username", "", "exact username")
	cmd.Flags().StringVar(&f.teamName, "team", "", "exact team name")
	cmd.Flags().IntVar(&f.ageGoe, "age-goe", 0, "minimum age")
	cmd.Flags().IntVar(&f.ageLoe, "age-loe", 0, "maximum age")
	cmd.Flags().IntVar(&f.page, "page", 0, "zero-based page index")
	cmd.Flags().IntVar(&f.size, "size", 10, "page size")
	cmd.Flags().StringVar(&f.strategy, "strategy", strategyWhere, "predicate strategy: where, builder or raw")
	return cmd
}
