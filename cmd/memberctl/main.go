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

// Command memberctl migrates, seeds, queries and serves the member store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tomoncle/membersearch/config"
	"github.com/tomoncle/membersearch/database"
	"github.com/tomoncle/membersearch/utils"
	"github.com/uptrace/bun"
)

type app struct {
	configPath string
	cfg        *config.Config
	out        io.Writer
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}
	root := &cobra.Command{
		Use:           "memberctl",
		Short:         "Member search tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			utils.ConfigureLogLevel(cfg.Log.Level)
			utils.ConfigureConsoleLogFormat(cfg.Log.Format)
			return nil
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (yaml, json or toml)")

	root.AddCommand(
		a.newMigrateCmd(),
		a.newSeedCmd(),
		a.newGetCmd(),
		a.newSearchCmd(),
		a.newServeCmd(),
	)
	return root
}

// openDB connects with the loaded configuration. Startup migrations follow
// the migrate.enable_migrate_on_startup setting.
func (a *app) openDB() (*bun.DB, func(), error) {
	return a.openDBWithMigrations(a.cfg.Database.DataMigrateConfig.EnableMigrateOnStartup)
}

func (a *app) openDBWithMigrations(runMigrations bool) (*bun.DB, func(), error) {
	db, err := database.InitDatabaseWithOptions(&a.cfg.Database, runMigrations)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = database.CloseDB() }, nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) newMigrateCmd() *cobra.Command {
	var status bool
	var rollback string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := a.openDBWithMigrations(false)
			if err != nil {
				return err
			}
			defer closeDB()

			ctx := contextOrBackground(cmd)
			mm := database.NewMigrationManager(db, database.GetLogger(), a.cfg.Database.MigrateOptions())
			switch {
			case rollback != "":
				if err := mm.RollbackMigration(ctx, rollback); err != nil {
					return err
				}
			case !status:
				if err := mm.RunMigrations(ctx); err != nil {
					return err
				}
			}
			applied, err := mm.GetAppliedMigrations(ctx)
			if err != nil {
				return fmt.Errorf("failed to list migrations: %w", err)
			}
			return a.printJSON(applied)
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "only list applied migrations")
	cmd.Flags().StringVar(&rollback, "rollback", "", "roll back the given migration version")
	return cmd
}

func (a *app) newSeedCmd() *cobra.Command {
	var env string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Execute the SQL seed files",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, closeDB, err := a.openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			ctx := contextOrBackground(cmd)
			if env == "" {
				return database.InitData(ctx)
			}
			return database.InitDataWithSQL(ctx, env)
		},
	}
	cmd.Flags().StringVar(&env, "env", "", "seed environment (defaults to init.environment)")
	return cmd
}

func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
