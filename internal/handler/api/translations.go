// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/olegiv/oloc-go/internal/handler"
	"github.com/olegiv/oloc-go/internal/middleware"
	"github.com/olegiv/oloc-go/internal/model"
	"github.com/olegiv/oloc-go/internal/service"
)

// Paging bounds for list endpoints.
const (
	defaultLimit = 50
	maxLimit     = 200
)

// SubmitTranslationRequest is the body of POST /translations.
type SubmitTranslationRequest struct {
	KeyID  int64           `json:"key_id"`
	Locale string          `json:"locale"`
	Label  string          `json:"label"`
	Rules  []model.RuleRef `json:"rules,omitempty"`
}

// UpdateTranslationRequest is the body of PUT /translations/{id}.
type UpdateTranslationRequest struct {
	Label string `json:"label"`
}

// VoteRequest is the body of POST /translations/{id}/votes.
type VoteRequest struct {
	Score *int `json:"score"`
}

// PermissionsResponse reports what the acting translator may do.
type PermissionsResponse struct {
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
}

// actor returns the acting translator. Routes behind RequireTranslator
// always have one.
func actor(r *http.Request) int64 {
	id, _ := middleware.GetTranslatorID(r)
	return id
}

// translationID parses {id}, writing a 400 on failure.
func translationID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := handler.ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid translation ID", nil)
		return 0, false
	}
	return id, true
}

// keyID parses {keyID}, writing a 400 on failure.
func keyID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := handler.ParseInt64Param(r, "keyID")
	if err != nil {
		WriteBadRequest(w, "Invalid key ID", nil)
		return 0, false
	}
	return id, true
}

// SubmitTranslation handles POST /api/v1/translations
func (h *Handler) SubmitTranslation(w http.ResponseWriter, r *http.Request) {
	var req SubmitTranslationRequest
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	validationErrors := make(map[string]string)
	if req.KeyID <= 0 {
		validationErrors["key_id"] = "Key ID is required"
	}
	if strings.TrimSpace(req.Locale) == "" {
		validationErrors["locale"] = "Locale is required"
	}
	if len(validationErrors) > 0 {
		WriteValidationError(w, validationErrors)
		return
	}

	tr, err := h.consensus.SubmitTranslation(r.Context(), service.SubmitParams{
		KeyID:        req.KeyID,
		Locale:       req.Locale,
		TranslatorID: actor(r),
		Label:        req.Label,
		Rules:        req.Rules,
	})
	if err != nil {
		h.writeServiceError(w, r, err, "submit translation")
		return
	}
	WriteCreated(w, tr)
}

// UpdateTranslation handles PUT /api/v1/translations/{id}
func (h *Handler) UpdateTranslation(w http.ResponseWriter, r *http.Request) {
	id, ok := translationID(w, r)
	if !ok {
		return
	}
	var req UpdateTranslationRequest
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	tr, err := h.consensus.UpdateTranslation(r.Context(), id, actor(r), req.Label)
	if err != nil {
		h.writeServiceError(w, r, err, "update translation")
		return
	}
	WriteSuccess(w, tr, nil)
}

// DeleteTranslation handles DELETE /api/v1/translations/{id}
func (h *Handler) DeleteTranslation(w http.ResponseWriter, r *http.Request) {
	id, ok := translationID(w, r)
	if !ok {
		return
	}
	if err := h.consensus.DeleteTranslation(r.Context(), id, actor(r)); err != nil {
		h.writeServiceError(w, r, err, "delete translation")
		return
	}
	WriteNoContent(w)
}

// Permissions handles GET /api/v1/translations/{id}/permissions
func (h *Handler) Permissions(w http.ResponseWriter, r *http.Request) {
	id, ok := translationID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	canEdit, err := h.consensus.CanEdit(ctx, id, actor(r))
	if err != nil {
		h.writeServiceError(w, r, err, "check permissions")
		return
	}
	canDelete, err := h.consensus.CanDelete(ctx, id, actor(r))
	if err != nil {
		h.writeServiceError(w, r, err, "check permissions")
		return
	}
	WriteSuccess(w, PermissionsResponse{CanEdit: canEdit, CanDelete: canDelete}, nil)
}

// CastVote handles POST /api/v1/translations/{id}/votes
func (h *Handler) CastVote(w http.ResponseWriter, r *http.Request) {
	id, ok := translationID(w, r)
	if !ok {
		return
	}
	var req VoteRequest
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}
	if req.Score == nil {
		WriteValidationError(w, map[string]string{"score": "Score is required"})
		return
	}

	res, err := h.consensus.CastVote(r.Context(), id, actor(r), *req.Score)
	if err != nil {
		h.writeServiceError(w, r, err, "cast vote")
		return
	}
	WriteSuccess(w, res, nil)
}

// ResetVotes handles POST /api/v1/translations/{id}/votes/reset
func (h *Handler) ResetVotes(w http.ResponseWriter, r *http.Request) {
	id, ok := translationID(w, r)
	if !ok {
		return
	}
	res, err := h.consensus.ResetVotes(r.Context(), id, actor(r))
	if err != nil {
		h.writeServiceError(w, r, err, "reset votes")
		return
	}
	WriteSuccess(w, res, nil)
}

// MarkSynced handles POST /api/v1/translations/{id}/synced
func (h *Handler) MarkSynced(w http.ResponseWriter, r *http.Request) {
	id, ok := translationID(w, r)
	if !ok {
		return
	}
	if err := h.consensus.MarkSynced(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err, "mark translation synced")
		return
	}
	WriteNoContent(w)
}

// ListTranslations handles GET /api/v1/keys/{keyID}/translations
//
// Query: locale, status, translator_id, q, window, order, limit, offset.
func (h *Handler) ListTranslations(w http.ResponseWriter, r *http.Request) {
	key, ok := keyID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	limit := min(max(handler.QueryInt(r, "limit", defaultLimit), 1), maxLimit)
	offset := max(handler.QueryInt(r, "offset", 0), 0)

	list, err := h.consensus.ListTranslations(r.Context(), service.Filter{
		KeyID:        key,
		Locale:       q.Get("locale"),
		Status:       q.Get("status"),
		TranslatorID: int64(handler.QueryInt(r, "translator_id", 0)),
		Query:        q.Get("q"),
		Window:       q.Get("window"),
		OrderBy:      q.Get("order"),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		h.writeServiceError(w, r, err, "list translations")
		return
	}
	if list == nil {
		list = []model.Translation{}
	}
	WriteSuccess(w, list, &Meta{Total: int64(len(list)), Limit: limit, Offset: offset})
}

// BestTranslation handles GET /api/v1/keys/{keyID}/best?locale=..&tokens=..
//
// tokens is a JSON object of token values, e.g. {"count":21}. Numbers keep
// their literal form so "1.50" and "1.5" select different plural forms.
// Responds with null data when no accepted translation matches.
func (h *Handler) BestTranslation(w http.ResponseWriter, r *http.Request) {
	key, ok := keyID(w, r)
	if !ok {
		return
	}
	locale := r.URL.Query().Get("locale")
	if locale == "" {
		WriteValidationError(w, map[string]string{"locale": "Locale is required"})
		return
	}
	values, err := parseTokens(r.URL.Query().Get("tokens"))
	if err != nil {
		WriteBadRequest(w, "Invalid tokens parameter", map[string]string{"tokens": err.Error()})
		return
	}

	tr, err := h.consensus.BestTranslation(r.Context(), key, locale, values)
	if err != nil {
		h.writeServiceError(w, r, err, "select translation")
		return
	}
	WriteJSON(w, http.StatusOK, struct {
		Data *model.Translation `json:"data"`
	}{tr})
}

// DefaultTranslation handles GET /api/v1/keys/{keyID}/default?locale=..
func (h *Handler) DefaultTranslation(w http.ResponseWriter, r *http.Request) {
	key, ok := keyID(w, r)
	if !ok {
		return
	}
	tr, err := h.consensus.DefaultTranslation(r.Context(), key, r.URL.Query().Get("locale"), actor(r))
	if err != nil {
		h.writeServiceError(w, r, err, "load default translation")
		return
	}
	WriteSuccess(w, tr, nil)
}

func parseTokens(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var values map[string]any
	if err := dec.Decode(&values); err != nil {
		return nil, err
	}
	return values, nil
}
