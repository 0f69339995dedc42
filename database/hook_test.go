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

package database_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/membersearch/database"
	"github.com/tomoncle/membersearch/database/dbtest"
	"github.com/tomoncle/membersearch/model"
)

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) SetLevel(database.LogLevel) {}
func (l *recordingLogger) Debug(msg string, fields ...interface{}) {}
func (l *recordingLogger) Info(msg string, fields ...interface{}) {}
func (l *recordingLogger) Error(msg string, fields ...interface{}) {}
func (l *recordingLogger) Warn(msg string, fields ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func TestMetricsHook(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	hook, err := database.NewMetricsHook(reg)
	require.NoError(t, err)
	_, err = database.NewMetricsHook(reg)
	require.NoError(t, err, "second hook reuses the registered collectors")

	db := dbtest.NewSQLite(t)
	db.AddQueryHook(hook)

	_, err = db.NewSelect().Model((*model.Member)(nil)).Count(ctx)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "SELECT * FROM missing_table")
	require.Error(t, err)

	n, err := testutil.GatherAndCount(reg, "membersearch_db_queries_total")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 2)
	n, err = testutil.GatherAndCount(reg, "membersearch_db_query_duration_seconds")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)
}

func TestSlowQueryHook(t *testing.T) {
	ctx := context.Background()
	logger := &recordingLogger{}
	db := dbtest.NewSQLite(t)
	db.AddQueryHook(&database.SlowQueryHook{SlowTime: -time.Nanosecond, Logger: logger})

	_, err := db.NewSelect().Model((*model.Team)(nil)).Count(ctx)
	require.NoError(t, err)

	logger.mu.Lock()
	defer logger.mu.Unlock()
	require.NotEmpty(t, logger.warns)
	assert.Contains(t, logger.warns[0], "slow query")
}
