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
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
)

var slowQueryLabel = color.New(color.FgYellow, color.Bold).SprintFunc()

// SlowQueryHook warns through the logger about queries slower than SlowTime.
type SlowQueryHook struct {
	SlowTime time.Duration
	Logger   Logger
}

var _ bun.QueryHook = (*SlowQueryHook)(nil)

func (h *SlowQueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *SlowQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if event.Err != nil || h.Logger == nil {
		return
	}
	duration := time.Since(event.StartTime)
	if duration > h.SlowTime {
		h.Logger.Warn(slowQueryLabel("Database slow query detected"),
			"duration", duration.Round(time.Microsecond),
			"slow_threshold", h.SlowTime,
			"operation", event.Operation(),
			"query", event.Query,
		)
	}
}

// MetricsHook records per-operation query counts and latencies.
type MetricsHook struct {
	queries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ bun.QueryHook = (*MetricsHook)(nil)

// NewMetricsHook registers the query collectors on reg. Collectors already
// registered by an earlier hook are reused.
func NewMetricsHook(reg prometheus.Registerer) (*MetricsHook, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	queries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "membersearch",
		Subsystem: "db",
		Name:      "queries_total",
		Help:      "Number of executed queries by operation and outcome.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "membersearch",
		Subsystem: "db",
		Name:      "query_duration_seconds",
		Help:      "Query latency by operation.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	var err error
	if queries, err = registerOrReuse(reg, queries); err != nil {
		return nil, err
	}
	if duration, err = registerOrReuse(reg, duration); err != nil {
		return nil, err
	}
	return &MetricsHook{queries: queries, duration: duration}, nil
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (h *MetricsHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *MetricsHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	operation := strings.ToLower(event.Operation())
	outcome := "ok"
	switch {
	case event.Err == nil, errors.Is(event.Err, sql.ErrNoRows):
	default:
		outcome = "error"
	}
	h.queries.WithLabelValues(operation, outcome).Inc()
	h.duration.WithLabelValues(operation).Observe(time.Since(event.StartTime).Seconds())
}
