// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// MaxBodySize caps JSON request bodies.
const MaxBodySize = 1 << 20

// ErrInvalidID is returned for a missing or non-positive id parameter.
var ErrInvalidID = errors.New("invalid id")

// ParseIDParam parses the "id" URL parameter.
func ParseIDParam(r *http.Request) (int64, error) {
	return ParseInt64Param(r, "id")
}

// ParseInt64Param parses a positive int64 URL parameter.
func ParseInt64Param(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

// QueryInt returns the integer query parameter name, or def when it is
// absent or malformed.
func QueryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}

// QueryBool reports whether the query parameter name is set to a true
// value ("1", "true", "yes").
func QueryBool(r *http.Request, name string) bool {
	switch strings.ToLower(r.URL.Query().Get(name)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// DecodeJSON decodes a bounded JSON request body into v. Unknown fields
// and trailing data are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decoding request body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("decoding request body: unexpected trailing data")
	}
	return nil
}
