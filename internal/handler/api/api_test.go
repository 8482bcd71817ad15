// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/oloc-go/internal/cache"
	"github.com/olegiv/oloc-go/internal/middleware"
	"github.com/olegiv/oloc-go/internal/model"
	"github.com/olegiv/oloc-go/internal/service"
	"github.com/olegiv/oloc-go/internal/store"
	"github.com/olegiv/oloc-go/internal/testutil"
)

type apiFixture struct {
	server *httptest.Server
	ru     model.Language
	key    model.TranslationKey
	anna   model.Translator
	bob    model.Translator
	mod    model.Translator
	one    model.Rule
	many   model.Rule
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	mc := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Hour})
	t.Cleanup(func() { _ = mc.Close() })

	logger := testutil.TestLoggerSilent()
	c := service.NewConsensus(store.NewStore(db), mc, nil, logger, service.DefaultOptions())
	h := NewHandler(c, logger, "test")

	srv := httptest.NewServer(h.Routes(Options{}))
	t.Cleanup(srv.Close)

	ru := testutil.CreateLanguage(t, db, "ru")
	return &apiFixture{
		server: srv,
		ru:     ru,
		key:    testutil.CreateKey(t, db, "{count} messages"),
		anna:   testutil.CreateTranslator(t, db, "anna", 1, false),
		bob:    testutil.CreateTranslator(t, db, "bob", 1, false),
		mod:    testutil.CreateTranslator(t, db, "mod", 1, true),
		one:    testutil.CreateRule(t, db, ru.ID, model.RuleKindNumber, "one"),
		many:   testutil.CreateRule(t, db, ru.ID, model.RuleKindNumber, "many"),
	}
}

// do sends a request as the given translator (0 = anonymous) and decodes
// the response body into out when it is non-nil.
func (f *apiFixture) do(t *testing.T, method, path string, translatorID int64, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if translatorID != 0 {
		req.Header.Set(middleware.HeaderTranslatorID, strconv.FormatInt(translatorID, 10))
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (f *apiFixture) submit(t *testing.T, translatorID int64, label string, rules []model.RuleRef) model.Translation {
	t.Helper()
	var resp struct {
		Data model.Translation `json:"data"`
	}
	code := f.do(t, http.MethodPost, "/translations", translatorID, SubmitTranslationRequest{
		KeyID: f.key.ID, Locale: "ru", Label: label, Rules: rules,
	}, &resp)
	require.Equal(t, http.StatusCreated, code)
	return resp.Data
}

func TestStatus(t *testing.T) {
	f := newAPIFixture(t)

	var resp struct {
		Data StatusResponse `json:"data"`
	}
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/status", 0, nil, &resp))
	assert.Equal(t, "ok", resp.Data.Status)
	assert.Equal(t, "test", resp.Data.Version)
	assert.Equal(t, 1, resp.Data.AcceptThreshold)
	assert.Equal(t, -10, resp.Data.ViolationThreshold)
}

func TestMutationsRequireTranslator(t *testing.T) {
	f := newAPIFixture(t)

	var errResp ErrorResponse
	code := f.do(t, http.MethodPost, "/translations", 0, SubmitTranslationRequest{
		KeyID: f.key.ID, Locale: "ru", Label: "x",
	}, &errResp)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthorized", errResp.Error.Code)
}

func TestSubmitTranslation_Errors(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name     string
		body     any
		wantCode int
		wantErr  string
	}{
		{"malformed", "not an object", http.StatusBadRequest, "bad_request"},
		{"missing fields", SubmitTranslationRequest{Label: "x"}, http.StatusUnprocessableEntity, "validation_error"},
		{"blank label", SubmitTranslationRequest{KeyID: f.key.ID, Locale: "ru", Label: "  "}, http.StatusUnprocessableEntity, "validation_error"},
		{"unknown key", SubmitTranslationRequest{KeyID: 9999, Locale: "ru", Label: "x"}, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errResp ErrorResponse
			code := f.do(t, http.MethodPost, "/translations", f.anna.ID, tt.body, &errResp)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantErr, errResp.Error.Code)
		})
	}
}

func TestVoting(t *testing.T) {
	f := newAPIFixture(t)
	tr := f.submit(t, f.anna.ID, "{count} сообщений", nil)
	path := "/translations/" + strconv.FormatInt(tr.ID, 10)

	var res struct {
		Data service.VoteResult `json:"data"`
	}
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, path+"/votes", f.bob.ID, VoteRequest{Score: score(2)}, &res))
	assert.Equal(t, 2, res.Data.Rank)
	assert.Equal(t, model.StatusAccepted, res.Data.Status)

	var errResp ErrorResponse
	assert.Equal(t, http.StatusUnprocessableEntity, f.do(t, http.MethodPost, path+"/votes", f.bob.ID, map[string]any{}, &errResp))
	assert.Equal(t, "score", firstKey(errResp.Error.Details))

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, path+"/votes/reset", f.mod.ID, nil, &res))
	assert.Equal(t, 1, res.Data.Rank)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/translations/9999/votes", f.bob.ID, VoteRequest{Score: score(1)}, &errResp))
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/translations/abc/votes", f.bob.ID, VoteRequest{Score: score(1)}, &errResp))
}

func TestUpdateAndDelete(t *testing.T) {
	f := newAPIFixture(t)
	tr := f.submit(t, f.anna.ID, "черновик", nil)
	path := "/translations/" + strconv.FormatInt(tr.ID, 10)

	var errResp ErrorResponse
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPut, path, f.bob.ID, UpdateTranslationRequest{Label: "чужой"}, &errResp))
	assert.Equal(t, "forbidden", errResp.Error.Code)

	var perms struct {
		Data PermissionsResponse `json:"data"`
	}
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, path+"/permissions", f.bob.ID, nil, &perms))
	assert.False(t, perms.Data.CanEdit)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, path+"/permissions", f.anna.ID, nil, &perms))
	assert.True(t, perms.Data.CanEdit)
	assert.True(t, perms.Data.CanDelete)

	var updated struct {
		Data model.Translation `json:"data"`
	}
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, path, f.anna.ID, UpdateTranslationRequest{Label: "готово"}, &updated))
	assert.Equal(t, "готово", updated.Data.Label)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, path, f.mod.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, path, f.mod.ID, nil, &errResp))
}

func TestLocks(t *testing.T) {
	f := newAPIFixture(t)
	path := "/keys/" + strconv.FormatInt(f.key.ID, 10) + "/locks/ru"

	var errResp ErrorResponse
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, path, f.anna.ID, nil, &errResp))

	var lock struct {
		Data model.KeyLock `json:"data"`
	}
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, path, f.mod.ID, nil, &lock))
	assert.True(t, lock.Data.Locked)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, path, 0, nil, &lock))
	assert.True(t, lock.Data.Locked)

	code := f.do(t, http.MethodPost, "/translations", f.anna.ID, SubmitTranslationRequest{
		KeyID: f.key.ID, Locale: "ru", Label: "после блокировки",
	}, &errResp)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "locked", errResp.Error.Code)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, path, f.mod.ID, nil, &lock))
	assert.False(t, lock.Data.Locked)

	assert.Equal(t, http.StatusUnprocessableEntity,
		f.do(t, http.MethodGet, "/keys/"+strconv.FormatInt(f.key.ID, 10)+"/locks/xx", 0, nil, &errResp))
}

func TestBestTranslation(t *testing.T) {
	f := newAPIFixture(t)
	one := f.submit(t, f.anna.ID, "{count} сообщение", []model.RuleRef{{Token: "count", RuleIDs: []int64{f.one.ID}}})
	many := f.submit(t, f.anna.ID, "{count} сообщений", []model.RuleRef{{Token: "count", RuleIDs: []int64{f.many.ID}}})
	for _, tr := range []model.Translation{one, many} {
		require.Equal(t, http.StatusOK, f.do(t, http.MethodPost,
			"/translations/"+strconv.FormatInt(tr.ID, 10)+"/votes", f.bob.ID, VoteRequest{Score: score(1)}, nil))
	}

	best := func(tokens string) *model.Translation {
		t.Helper()
		var resp struct {
			Data *model.Translation `json:"data"`
		}
		path := "/keys/" + strconv.FormatInt(f.key.ID, 10) + "/best?locale=ru&tokens=" + url.QueryEscape(tokens)
		require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, path, 0, nil, &resp))
		return resp.Data
	}

	if got := best(`{"count": 21}`); assert.NotNil(t, got) {
		assert.Equal(t, one.ID, got.ID)
	}
	if got := best(`{"count": 5}`); assert.NotNil(t, got) {
		assert.Equal(t, many.ID, got.ID)
	}
	assert.Nil(t, best(`{"count": 3}`), "few has no candidate")

	var errResp ErrorResponse
	path := "/keys/" + strconv.FormatInt(f.key.ID, 10) + "/best?locale=ru&tokens=" + url.QueryEscape("{broken")
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, path, 0, nil, &errResp))
}

func TestListTranslations(t *testing.T) {
	f := newAPIFixture(t)
	f.submit(t, f.anna.ID, "первый", nil)
	f.submit(t, f.bob.ID, "второй", nil)

	var resp struct {
		Data []model.Translation `json:"data"`
		Meta Meta                `json:"meta"`
	}
	base := "/keys/" + strconv.FormatInt(f.key.ID, 10) + "/translations?locale=ru"
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, base, 0, nil, &resp))
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, defaultLimit, resp.Meta.Limit)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, base+"&translator_id="+strconv.FormatInt(f.bob.ID, 10), 0, nil, &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "второй", resp.Data[0].Label)

	var errResp ErrorResponse
	assert.Equal(t, http.StatusUnprocessableEntity, f.do(t, http.MethodGet, base+"&status=bogus", 0, nil, &errResp))
}

func TestComments(t *testing.T) {
	f := newAPIFixture(t)

	var created struct {
		Data model.Comment `json:"data"`
	}
	path := "/keys/" + strconv.FormatInt(f.key.ID, 10) + "/comments/ru"
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, path, f.anna.ID, CommentRequest{Message: "Какой падеж?"}, &created))
	assert.Equal(t, f.anna.ID, created.Data.TranslatorID)

	var errResp ErrorResponse
	commentPath := "/comments/" + strconv.FormatInt(created.Data.ID, 10)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodDelete, commentPath, f.bob.ID, nil, &errResp))
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, commentPath, f.anna.ID, nil, nil))
}

func TestSyncRoundTrip(t *testing.T) {
	f := newAPIFixture(t)
	f.submit(t, f.anna.ID, "{count} сообщение", []model.RuleRef{{Token: "count", RuleIDs: []int64{f.one.ID}}})

	var exported struct {
		Data struct {
			Translations []json.RawMessage `json:"translations"`
		} `json:"data"`
	}
	syncPath := "/keys/" + strconv.FormatInt(f.key.ID, 10) + "/sync"
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, syncPath+"?comparable=1", 0, nil, &exported))
	require.Len(t, exported.Data.Translations, 1)

	recs := make([]any, 0, len(exported.Data.Translations))
	for _, raw := range exported.Data.Translations {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(raw, &rec))
		recs = append(recs, rec)
	}
	req := map[string]any{"translations": recs}

	var imported struct {
		Data ImportResponse `json:"data"`
	}
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, syncPath, f.bob.ID, req, &imported))
	assert.Equal(t, 0, imported.Data.Created, "identical candidate already exists")
	assert.Equal(t, 0, imported.Data.Rejected)

	var errResp ErrorResponse
	assert.Equal(t, http.StatusUnprocessableEntity,
		f.do(t, http.MethodPost, syncPath, f.bob.ID, ImportRequest{}, &errResp))
}

func TestListEvents(t *testing.T) {
	f := newAPIFixture(t)
	path := "/keys/" + strconv.FormatInt(f.key.ID, 10) + "/locks/ru"
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, path, f.mod.ID, nil, nil))

	var resp struct {
		Data []EventResponse `json:"data"`
		Meta Meta            `json:"meta"`
	}
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/events", 0, nil, &resp))
	require.NotEmpty(t, resp.Data)
	assert.Equal(t, model.EventCategoryLock, resp.Data[0].Category)
	if assert.NotNil(t, resp.Data[0].TranslatorID) {
		assert.Equal(t, f.mod.ID, *resp.Data[0].TranslatorID)
	}
}

func firstKey(m map[string]string) string {
	for k := range m {
		return k
	}
	return ""
}

func score(n int) *int { return &n }
