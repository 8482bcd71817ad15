// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the REST API over the consensus facade.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/oloc-go/internal/middleware"
	"github.com/olegiv/oloc-go/internal/service"
	"github.com/olegiv/oloc-go/internal/transfer"
)

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	consensus *service.Consensus
	logger    *slog.Logger
	version   string
}

// NewHandler creates a new API handler.
func NewHandler(c *service.Consensus, logger *slog.Logger, version string) *Handler {
	return &Handler{
		consensus: c,
		logger:    logger,
		version:   version,
	}
}

// Options configures the API router.
type Options struct {
	// TranslatorRPS and TranslatorBurst limit mutations per acting
	// translator. Zero disables the limit.
	TranslatorRPS   float64
	TranslatorBurst int
}

// Routes returns the API routes, to be mounted under /api/v1.
func (h *Handler) Routes(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Translator)

	r.Get("/status", h.Status)
	r.Get("/events", h.ListEvents)

	// Mutations act on behalf of a translator.
	acting := chi.Chain(middleware.RequireTranslator)
	if opts.TranslatorRPS > 0 {
		acting = append(acting, middleware.TranslatorRateLimit(opts.TranslatorRPS, max(opts.TranslatorBurst, 1)))
	}

	r.With(acting...).Post("/translations", h.SubmitTranslation)
	r.Route("/translations/{id}", func(r chi.Router) {
		r.Get("/sync", h.ExportTranslation)

		r.Group(func(r chi.Router) {
			r.Use(acting...)
			r.Put("/", h.UpdateTranslation)
			r.Delete("/", h.DeleteTranslation)
			r.Get("/permissions", h.Permissions)
			r.Post("/votes", h.CastVote)
			r.Post("/votes/reset", h.ResetVotes)
			r.Post("/synced", h.MarkSynced)
		})
	})

	r.Route("/keys/{keyID}", func(r chi.Router) {
		r.Get("/translations", h.ListTranslations)
		r.Get("/best", h.BestTranslation)
		r.Get("/locks/{locale}", h.LockState)
		r.Get("/sync", h.ExportKey)

		r.Group(func(r chi.Router) {
			r.Use(acting...)
			r.Get("/default", h.DefaultTranslation)
			r.Post("/locks/{locale}", h.LockKey)
			r.Delete("/locks/{locale}", h.UnlockKey)
			r.Post("/comments/{locale}", h.AddComment)
			r.Post("/sync", h.ImportKey)
		})
	})

	r.With(acting...).Delete("/comments/{id}", h.DeleteComment)

	return r
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data,omitempty"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains pagination and other metadata.
type Meta struct {
	Total  int64 `json:"total,omitempty"`
	Limit  int   `json:"limit,omitempty"`
	Offset int   `json:"offset,omitempty"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteNoContent writes a 204 No Content response.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, details)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteForbidden writes a 403 Forbidden response.
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message, nil)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message, nil)
}

// WriteValidationError writes a 422 Unprocessable Entity response with field errors.
func WriteValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	WriteError(w, http.StatusUnprocessableEntity, "validation_error", "Validation failed", fieldErrors)
}

// writeServiceError maps a facade error to its HTTP form. Unexpected
// errors are logged and reported as internal errors.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteValidationError(w, map[string]string{verr.Field: verr.Message})
	case errors.Is(err, service.ErrNotFound):
		WriteNotFound(w, "Not found")
	case errors.Is(err, service.ErrLocked):
		WriteError(w, http.StatusForbidden, "locked", "Translation key is locked", nil)
	case errors.Is(err, service.ErrForbidden):
		WriteForbidden(w, "Not allowed")
	case errors.Is(err, service.ErrDuplicate):
		WriteError(w, http.StatusConflict, "conflict", "Identical translation already exists", nil)
	case errors.Is(err, transfer.ErrBrokenRules):
		WriteError(w, http.StatusUnprocessableEntity, "broken_rules", "Translation rules no longer resolve", nil)
	default:
		h.logger.Error("api request failed", "action", action, "path", r.URL.Path, "error", err)
		WriteInternalError(w, "Failed to "+action)
	}
}

// StatusResponse contains API status information.
type StatusResponse struct {
	Status             string `json:"status"`
	Version            string `json:"version"`
	AcceptThreshold    int    `json:"accept_threshold"`
	ViolationThreshold int    `json:"violation_threshold"`
}

// Status returns the API status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	t := h.consensus.Thresholds()
	WriteSuccess(w, StatusResponse{
		Status:             "ok",
		Version:            h.version,
		AcceptThreshold:    t.Accept,
		ViolationThreshold: t.Violation,
	}, nil)
}
