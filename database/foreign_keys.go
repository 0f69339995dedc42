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

package database

import (
	"fmt"
	"strings"
)

var validReferentialActions = []string{"CASCADE", "RESTRICT", "SET NULL", "NO ACTION"}

// ForeignKeyConstraint describes a foreign key relationship between tables.
type ForeignKeyConstraint struct {
	Table           string
	Column          string
	ReferenceTable  string
	ReferenceColumn string
	OnDelete        string // CASCADE, RESTRICT, SET NULL, NO ACTION
	OnUpdate        string // CASCADE, RESTRICT, SET NULL, NO ACTION
	ConstraintName  string
}

// GenerateConstraintName returns the explicit name or a derived name.
func (fk ForeignKeyConstraint) GenerateConstraintName() string {
	if fk.ConstraintName != "" {
		return fk.ConstraintName
	}
	return fmt.Sprintf("fk_%s_%s", fk.Table, fk.Column)
}

// GenerateClause returns the table-level FOREIGN KEY clause body used when
// the owning table is created, e.g. "(team_id) REFERENCES teams (id) ON DELETE SET NULL".
func (fk ForeignKeyConstraint) GenerateClause() string {
	clause := fmt.Sprintf("(%s) REFERENCES %s (%s)", fk.Column, fk.ReferenceTable, fk.ReferenceColumn)
	if fk.OnDelete != "" {
		clause += " ON DELETE " + strings.ToUpper(fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		clause += " ON UPDATE " + strings.ToUpper(fk.OnUpdate)
	}
	return clause
}

// TeamForeignKey is the members.team_id -> teams.id constraint. The delete
// action is left to configuration; an empty action uses the dialect default.
func TeamForeignKey(onDelete string) ForeignKeyConstraint {
	return ForeignKeyConstraint{
		Table:           "members",
		Column:          "team_id",
		ReferenceTable:  "teams",
		ReferenceColumn: "id",
		OnDelete:        onDelete,
		ConstraintName:  "fk_members_team_id",
	}
}

// ForeignKeyManager holds and validates the configured foreign key constraints.
type ForeignKeyManager struct {
	constraints []ForeignKeyConstraint
	logger      Logger
}

// NewForeignKeyManager creates a manager over the given constraints.
func NewForeignKeyManager(logger Logger, constraints ...ForeignKeyConstraint) *ForeignKeyManager {
	return &ForeignKeyManager{
		constraints: constraints,
		logger:      logger,
	}
}

// NewForeignKeyManagerFromConfig builds the constraint set for cfg: the team
// constraint first, then every entry of the optional YAML file. A missing or
// unreadable file is logged and skipped.
func NewForeignKeyManagerFromConfig(logger Logger, cfg DataMigrateConfig) *ForeignKeyManager {
	constraints := []ForeignKeyConstraint{TeamForeignKey(cfg.TeamOnDelete)}
	if cfg.ForeignKeyFile != "" {
		extra, err := LoadForeignKeyFile(cfg.ForeignKeyFile)
		if err != nil {
			if logger != nil {
				logger.Debug("Failed to load foreign key constraints from config", "error", err.Error(), "config_path", cfg.ForeignKeyFile)
			}
		} else {
			constraints = append(constraints, extra...)
		}
	}
	return NewForeignKeyManager(logger, constraints...)
}

// GetConstraintsByTable returns the constraints defined for a table.
func (fkm *ForeignKeyManager) GetConstraintsByTable(tableName string) []ForeignKeyConstraint {
	var result []ForeignKeyConstraint
	for _, constraint := range fkm.constraints {
		if strings.EqualFold(constraint.Table, tableName) {
			result = append(result, constraint)
		}
	}
	return result
}

// ClausesFor returns the FOREIGN KEY clause bodies to attach when creating tableName.
func (fkm *ForeignKeyManager) ClausesFor(tableName string) []string {
	var clauses []string
	for _, constraint := range fkm.GetConstraintsByTable(tableName) {
		clauses = append(clauses, constraint.GenerateClause())
	}
	return clauses
}

// ListAllConstraints returns all configured constraints.
func (fkm *ForeignKeyManager) ListAllConstraints() []ForeignKeyConstraint {
	return fkm.constraints
}

// ValidateConstraints checks the configured constraints for common issues.
func (fkm *ForeignKeyManager) ValidateConstraints() []error {
	var errs []error

	for _, constraint := range fkm.constraints {
		if constraint.Table == "" {
			errs = append(errs, fmt.Errorf("table name cannot be empty"))
		}
		if constraint.Column == "" {
			errs = append(errs, fmt.Errorf("column name cannot be empty: %s", constraint.Table))
		}
		if constraint.ReferenceTable == "" {
			errs = append(errs, fmt.Errorf("reference table name cannot be empty: %s.%s", constraint.Table, constraint.Column))
		}
		if constraint.ReferenceColumn == "" {
			errs = append(errs, fmt.Errorf("reference column name cannot be empty: %s.%s -> %s", constraint.Table, constraint.Column, constraint.ReferenceTable))
		}
		if constraint.OnDelete != "" && !isReferentialAction(constraint.OnDelete) {
			errs = append(errs, fmt.Errorf("invalid delete policy: %s, constraint: %s", constraint.OnDelete, constraint.GenerateConstraintName()))
		}
		if constraint.OnUpdate != "" && !isReferentialAction(constraint.OnUpdate) {
			errs = append(errs, fmt.Errorf("invalid update policy: %s, constraint: %s", constraint.OnUpdate, constraint.GenerateConstraintName()))
		}
	}

	return errs
}

func isReferentialAction(action string) bool {
	for _, valid := range validReferentialActions {
		if strings.EqualFold(strings.TrimSpace(action), valid) {
			return true
		}
	}
	return false
}
