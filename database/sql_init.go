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
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/uptrace/bun"
)

const (
	defaultSQLRootPath = "configs/sql"
	commonSQLSet       = "common"
	// unorderedFile sorts files without a numeric prefix last.
	unorderedFile = 999
)

var fileOrderPattern = regexp.MustCompile(`^(\d+)_`)

// SQLInitManager seeds the member store from SQL files. Files under
// <root>/common run first, then <root>/environments/<env>; each set is
// ordered by the numeric filename prefix.
type SQLInitManager struct {
	db          bun.IDB
	environment string
	sqlRootPath string
	logger      Logger
}

// SQLFileInfo is one discovered seed file.
type SQLFileInfo struct {
	Path        string
	Name        string
	Order       int
	Environment string
	ModTime     time.Time
}

// ExecutionResult is the outcome of one seed file.
type ExecutionResult struct {
	File         string
	Statements   int
	RowsAffected int64
	Duration     time.Duration
	Error        error
}

func NewSQLInitManager(db bun.IDB, environment string) *SQLInitManager {
	return &SQLInitManager{
		db:          db,
		environment: environment,
		sqlRootPath: defaultSQLRootPath,
		logger:      GetLogger(),
	}
}

func (s *SQLInitManager) SetSQLRootPath(path string) {
	s.sqlRootPath = path
}

// ExecuteInitialization runs every seed file, each in its own transaction,
// and stops at the first file that fails. Files applied before it stay.
// A failing statement is reported as a PersistenceError.
func (s *SQLInitManager) ExecuteInitialization(ctx context.Context) error {
	files, err := s.GetSQLFiles()
	if err != nil {
		return fmt.Errorf("failed to get SQL files: %w", err)
	}
	s.logger.Info("Seeding member store", "environment", s.environment, "sql_path", s.sqlRootPath, "files", len(files))

	var rows int64
	for _, file := range files {
		result := s.executeFile(ctx, file)
		if result.Error != nil {
			s.logger.Error("Seed file failed", "file", result.File, "error", result.Error.Error())
			return fmt.Errorf("seed file %s: %w", file.Name, NewPersistenceError("seed", result.Error))
		}
		rows += result.RowsAffected
		s.logger.Debug("Seed file applied", "file", result.File, "statements", result.Statements,
			"rows_affected", result.RowsAffected, "duration", result.Duration.String())
	}
	s.logger.Info("Seeding completed", "environment", s.environment, "files", len(files), "rows_affected", rows)
	return nil
}

// GetSQLFiles lists the common set followed by the environment set. A
// missing directory contributes no files.
func (s *SQLInitManager) GetSQLFiles() ([]SQLFileInfo, error) {
	sets := []struct{ dir, name string }{
		{filepath.Join(s.sqlRootPath, commonSQLSet), commonSQLSet},
		{filepath.Join(s.sqlRootPath, "environments", s.environment), s.environment},
	}
	var files []SQLFileInfo
	for _, set := range sets {
		found, err := s.getFilesFromDir(set.dir, set.name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s SQL files: %w", set.name, err)
		}
		files = append(files, found...)
	}
	return files, nil
}

func (s *SQLInitManager) getFilesFromDir(dir, environment string) ([]SQLFileInfo, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var files []SQLFileInfo
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".sql") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		files = append(files, SQLFileInfo{
			Path:        filepath.Join(dir, e.Name()),
			Name:        e.Name(),
			Order:       s.parseFileOrder(e.Name()),
			Environment: environment,
			ModTime:     info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].Order != files[j].Order {
			return files[i].Order < files[j].Order
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}

func (s *SQLInitManager) parseFileOrder(filename string) int {
	m := fileOrderPattern.FindStringSubmatch(filename)
	if m == nil {
		return unorderedFile
	}
	order, err := strconv.Atoi(m[1])
	if err != nil {
		return unorderedFile
	}
	return order
}

func (s *SQLInitManager) executeFile(ctx context.Context, file SQLFileInfo) (result ExecutionResult) {
	start := time.Now()
	result.File = file.Path
	defer func() { result.Duration = time.Since(start) }()

	content, err := os.ReadFile(file.Path)
	if err != nil {
		result.Error = fmt.Errorf("failed to read file: %w", err)
		return result
	}
	rendered, err := s.replaceEnvVariables(string(content))
	if err != nil {
		result.Error = err
		return result
	}
	statements := s.splitSQLStatements(rendered)
	result.Statements = len(statements)
	if len(statements) == 0 {
		return result
	}

	result.Error = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, stmt := range statements {
			res, err := tx.ExecContext(ctx, stmt)
			if err != nil {
				return fmt.Errorf("statement %q: %w", stmt, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				result.RowsAffected += n
			}
		}
		return nil
	})
	if result.Error != nil {
		result.RowsAffected = 0
	}
	return result
}

// replaceEnvVariables renders content as a text/template over the process
// environment plus ENVIRONMENT and TIMESTAMP.
func (s *SQLInitManager) replaceEnvVariables(content string) (string, error) {
	tmpl, err := template.New("sql").Parse(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	vars["ENVIRONMENT"] = s.environment
	vars["TIMESTAMP"] = time.Now().Format(time.DateTime)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// splitSQLStatements joins lines up to each trailing semicolon. Blank and
// "--" comment lines are dropped; a final statement may omit the semicolon.
func (s *SQLInitManager) splitSQLStatements(content string) []string {
	var (
		statements []string
		parts      []string
	)
	flush := func() {
		if len(parts) > 0 {
			statements = append(statements, strings.Join(parts, " "))
			parts = parts[:0]
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		parts = append(parts, line)
		if strings.HasSuffix(line, ";") {
			flush()
		}
	}
	flush()
	return statements
}
