// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestParseIDParam(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    int64
		wantErr bool
	}{
		{"valid", "42", 42, false},
		{"zero", "0", 0, true},
		{"negative", "-3", 0, true},
		{"text", "abc", 0, true},
		{"empty", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", tt.value)
			got, err := ParseIDParam(r)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseIDParam() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseIDParam() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestQueryHelpers(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=20&bad=x&comparable=1&flag=no", nil)

	if got := QueryInt(r, "limit", 5); got != 20 {
		t.Errorf("QueryInt(limit) = %d, want 20", got)
	}
	if got := QueryInt(r, "bad", 5); got != 5 {
		t.Errorf("QueryInt(bad) = %d, want default 5", got)
	}
	if !QueryBool(r, "comparable") {
		t.Error("QueryBool(comparable) = false, want true")
	}
	if QueryBool(r, "flag") || QueryBool(r, "missing") {
		t.Error("QueryBool should be false for no and missing values")
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Score int `json:"score"`
	}
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"score": 1}`, false},
		{"unknown field", `{"score": 1, "extra": true}`, true},
		{"trailing data", `{"score": 1} {"score": 2}`, true},
		{"malformed", `{"score":`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			err := DecodeJSON(httptest.NewRecorder(), r, &p)
			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && p.Score != 1 {
				t.Errorf("Score = %d, want 1", p.Score)
			}
		})
	}
}
