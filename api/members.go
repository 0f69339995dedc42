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

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tomoncle/membersearch/database"
	"github.com/tomoncle/membersearch/model"
	"github.com/tomoncle/membersearch/types"
)

// pageResponse is the JSON shape of a page of search results.
type pageResponse struct {
	Content    []*model.MemberTeamDto `json:"content"`
	Page       int                    `json:"page"`
	Size       int                    `json:"size"`
	Total      int                    `json:"total"`
	TotalPages int                    `json:"totalPages"`
}

type createMemberRequest struct {
	Username string `json:"username"`
	Age      int    `json:"age"`
	TeamID   *int64 `json:"teamId"`
}

func optionalString(q url.Values, key string) *string {
	if !q.Has(key) {
		return nil
	}
	v := q.Get(key)
	return &v
}

func optionalInt(q url.Values, key string) (*int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer", key)
	}
	return &v, nil
}

// parseCondition reads username, teamName, ageGoe and ageLoe.
func parseCondition(q url.Values) (*model.MemberSearchCondition, error) {
	cond := &model.MemberSearchCondition{
		Username: optionalString(q, "username"),
		TeamName: optionalString(q, "teamName"),
	}
	var err error
	if cond.AgeGoe, err = optionalInt(q, "ageGoe"); err != nil {
		return nil, err
	}
	if cond.AgeLoe, err = optionalInt(q, "ageLoe"); err != nil {
		return nil, err
	}
	return cond, nil
}

func parsePage(q url.Values) (*types.PageRequest, error) {
	page, err := optionalInt(q, "page")
	if err != nil {
		return nil, err
	}
	size, err := optionalInt(q, "size")
	if err != nil {
		return nil, err
	}
	p, s := 0, 0
	if page != nil {
		p = *page
	}
	if size != nil {
		s = *size
	}
	return types.NewDefaultPageRequest(p, s), nil
}

func (h *Handler) searchMembers(w http.ResponseWriter, r *http.Request) {
	cond, err := parseCondition(r.URL.Query())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}
	dtos, err := h.members.Search(r.Context(), cond)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) searchMembersPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cond, err := parseCondition(q)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}
	page, err := parsePage(q)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}
	result, err := h.members.SearchPage(r.Context(), cond, page)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{
		Content:    result.Items,
		Page:       result.Page,
		Size:       result.PageSize,
		Total:      result.Total,
		TotalPages: result.TotalPages(),
	})
}

func (h *Handler) getMember(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_argument", "id must be an integer")
		return
	}
	found, err := h.members.FindByID(r.Context(), id)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	member, ok := found.Get()
	if !ok {
		writeError(w, r, http.StatusNotFound, "not_found", fmt.Sprintf("member %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *Handler) createMember(w http.ResponseWriter, r *http.Request) {
	var req createMemberRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_argument", "username is required")
		return
	}

	var team *model.Team
	if req.TeamID != nil {
		found, err := h.teams.Get(r.Context(), *req.TeamID)
		if err != nil {
			h.internalError(w, r, err)
			return
		}
		var ok bool
		if team, ok = found.Get(); !ok {
			writeError(w, r, http.StatusBadRequest, "invalid_argument", fmt.Sprintf("team %d not found", *req.TeamID))
			return
		}
	}

	member := model.NewMember(req.Username, req.Age, team)
	if err := h.members.Register(r.Context(), member); err != nil {
		if database.IsPersistenceKind(err, database.DuplicateKeyErr) {
			writeError(w, r, http.StatusConflict, "conflict", err.Error())
			return
		}
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	writeError(w, r, http.StatusInternalServerError, "internal", "internal error")
}
