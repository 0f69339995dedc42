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

// Package api serves member searches over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tomoncle/membersearch"
	"github.com/tomoncle/membersearch/database"
	"github.com/tomoncle/membersearch/utils"
)

var log = utils.NewLogger("API")

// HealthFunc reports the database health for /healthz.
type HealthFunc func(ctx context.Context) *database.HealthStatus

// Options configures NewRouter. Nil fields fall back to the global database
// health check and the default Prometheus gatherer.
type Options struct {
	Health  HealthFunc
	Metrics http.Handler
}

// Handler holds the services behind the routes.
type Handler struct {
	members membersearch.MemberService
	teams   membersearch.TeamService
}

func NewHandler(members membersearch.MemberService, teams membersearch.TeamService) *Handler {
	return &Handler{members: members, teams: teams}
}

// NewRouter mounts the member routes, /healthz and /metrics.
func NewRouter(h *Handler, opts Options) http.Handler {
	if opts.Health == nil {
		opts.Health = database.GetHealthStatus
	}
	if opts.Metrics == nil {
		opts.Metrics = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthHandler(opts.Health))
	r.Method(http.MethodGet, "/metrics", opts.Metrics)

	r.Get("/v1/members", h.searchMembers)
	r.Get("/v2/members", h.searchMembersPage)
	r.Route("/members", func(r chi.Router) {
		r.Post("/", h.createMember)
		r.Get("/{id}", h.getMember)
	})
	return r
}

func healthHandler(health HealthFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := health(r.Context())
		code := http.StatusOK
		if !status.Healthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.WithField("method", r.Method).
			WithField("path", r.URL.Path).
			WithField("status", ww.Status()).
			WithField("duration", time.Since(start)).
			WithField("request_id", middleware.GetReqID(r.Context())).
			Debug("request served")
	})
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{
		Code:      code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
