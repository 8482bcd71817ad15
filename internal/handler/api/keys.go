// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/oloc-go/internal/handler"
	"github.com/olegiv/oloc-go/internal/model"
	"github.com/olegiv/oloc-go/internal/transfer"
)

// CommentRequest is the body of POST /keys/{keyID}/comments/{locale}.
type CommentRequest struct {
	Message string `json:"message"`
}

// ImportRequest is the body of POST /keys/{keyID}/sync.
type ImportRequest struct {
	Translations     []transfer.Record `json:"translations"`
	DryRun           bool              `json:"dry_run"`
	HonorAttribution bool              `json:"honor_attribution"`
}

// ImportResponse summarises an import.
type ImportResponse struct {
	Created  int                      `json:"created"`
	Rejected int                      `json:"rejected"`
	Results  []*transfer.ImportResult `json:"results"`
}

// EventResponse is an event log entry.
type EventResponse struct {
	ID           int64     `json:"id"`
	Level        string    `json:"level"`
	Category     string    `json:"category"`
	Message      string    `json:"message"`
	TranslatorID *int64    `json:"translator_id,omitempty"`
	Metadata     string    `json:"metadata,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func eventToResponse(e model.Event) EventResponse {
	resp := EventResponse{
		ID:        e.ID,
		Level:     e.Level,
		Category:  e.Category,
		Message:   e.Message,
		Metadata:  e.Metadata,
		CreatedAt: e.CreatedAt,
	}
	if e.TranslatorID.Valid {
		id := e.TranslatorID.Int64
		resp.TranslatorID = &id
	}
	return resp
}

// LockState handles GET /api/v1/keys/{keyID}/locks/{locale}
func (h *Handler) LockState(w http.ResponseWriter, r *http.Request) {
	key, ok := keyID(w, r)
	if !ok {
		return
	}
	lock, err := h.consensus.LockState(r.Context(), key, chi.URLParam(r, "locale"))
	if err != nil {
		h.writeServiceError(w, r, err, "load lock state")
		return
	}
	WriteSuccess(w, lock, nil)
}

// LockKey handles POST /api/v1/keys/{keyID}/locks/{locale}
func (h *Handler) LockKey(w http.ResponseWriter, r *http.Request) {
	h.toggleLock(w, r, true)
}

// UnlockKey handles DELETE /api/v1/keys/{keyID}/locks/{locale}
func (h *Handler) UnlockKey(w http.ResponseWriter, r *http.Request) {
	h.toggleLock(w, r, false)
}

func (h *Handler) toggleLock(w http.ResponseWriter, r *http.Request, locked bool) {
	key, ok := keyID(w, r)
	if !ok {
		return
	}
	locale := chi.URLParam(r, "locale")

	var (
		lock *model.KeyLock
		err  error
	)
	if locked {
		lock, err = h.consensus.LockKey(r.Context(), key, locale, actor(r))
	} else {
		lock, err = h.consensus.UnlockKey(r.Context(), key, locale, actor(r))
	}
	if err != nil {
		h.writeServiceError(w, r, err, "change lock")
		return
	}
	WriteSuccess(w, lock, nil)
}

// AddComment handles POST /api/v1/keys/{keyID}/comments/{locale}
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	key, ok := keyID(w, r)
	if !ok {
		return
	}
	var req CommentRequest
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	comment, err := h.consensus.AddComment(r.Context(), key, chi.URLParam(r, "locale"), actor(r), req.Message)
	if err != nil {
		h.writeServiceError(w, r, err, "add comment")
		return
	}
	WriteCreated(w, comment)
}

// DeleteComment handles DELETE /api/v1/comments/{id}
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := handler.ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid comment ID", nil)
		return
	}
	if err := h.consensus.DeleteComment(r.Context(), id, actor(r)); err != nil {
		h.writeServiceError(w, r, err, "delete comment")
		return
	}
	WriteNoContent(w)
}

// exportOptions reads ?comparable, ?include_translator and ?locales=ru,de.
func exportOptions(r *http.Request) transfer.ExportOptions {
	opts := transfer.ExportOptions{
		Comparable:        handler.QueryBool(r, "comparable"),
		IncludeTranslator: handler.QueryBool(r, "include_translator"),
	}
	for _, l := range strings.Split(r.URL.Query().Get("locales"), ",") {
		if l = strings.TrimSpace(l); l != "" {
			opts.Locales = append(opts.Locales, l)
		}
	}
	return opts
}

// ExportKey handles GET /api/v1/keys/{keyID}/sync
func (h *Handler) ExportKey(w http.ResponseWriter, r *http.Request) {
	key, ok := keyID(w, r)
	if !ok {
		return
	}
	rec, err := h.consensus.ExportKey(r.Context(), key, exportOptions(r))
	if err != nil {
		h.writeServiceError(w, r, err, "export key")
		return
	}
	WriteSuccess(w, rec, nil)
}

// ExportTranslation handles GET /api/v1/translations/{id}/sync
func (h *Handler) ExportTranslation(w http.ResponseWriter, r *http.Request) {
	id, ok := translationID(w, r)
	if !ok {
		return
	}
	rec, err := h.consensus.ExportTranslation(r.Context(), id, exportOptions(r))
	if err != nil {
		h.writeServiceError(w, r, err, "export translation")
		return
	}
	WriteSuccess(w, rec, nil)
}

// ImportKey handles POST /api/v1/keys/{keyID}/sync
func (h *Handler) ImportKey(w http.ResponseWriter, r *http.Request) {
	key, ok := keyID(w, r)
	if !ok {
		return
	}
	var req ImportRequest
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}
	if len(req.Translations) == 0 {
		WriteValidationError(w, map[string]string{"translations": "At least one record is required"})
		return
	}

	results, err := h.consensus.ImportKey(r.Context(), key, actor(r), req.Translations, transfer.ImportOptions{
		DryRun:           req.DryRun,
		HonorAttribution: req.HonorAttribution,
	})
	if err != nil {
		h.writeServiceError(w, r, err, "import translations")
		return
	}

	resp := ImportResponse{Results: results}
	for _, res := range results {
		switch {
		case res.Rejected():
			resp.Rejected++
		case res.Created:
			resp.Created++
		}
	}
	WriteSuccess(w, resp, nil)
}

// ListEvents handles GET /api/v1/events?limit=..&offset=..
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit := min(max(handler.QueryInt(r, "limit", defaultLimit), 1), maxLimit)
	offset := max(handler.QueryInt(r, "offset", 0), 0)

	events, total, err := h.consensus.Events().List(r.Context(), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err, "list events")
		return
	}
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventToResponse(e))
	}
	WriteSuccess(w, out, &Meta{Total: total, Limit: limit, Offset: offset})
}
