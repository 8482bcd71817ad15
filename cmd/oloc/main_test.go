// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/oloc-go/internal/cache"
	"github.com/olegiv/oloc-go/internal/config"
	"github.com/olegiv/oloc-go/internal/handler"
	"github.com/olegiv/oloc-go/internal/service"
	"github.com/olegiv/oloc-go/internal/store"
	"github.com/olegiv/oloc-go/internal/testutil"
)

const seedTOML = `
[[languages]]
locale = "ru"
english_name = "Russian"
native_name = "Русский"

[[translators]]
name = "anna"
voting_power = 1

[[keys]]
key = "greeting"
label = "Hello"
locale = "en"
`

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.ExecuteContext(context.Background()), out.String())
	return out.String()
}

func TestVersionCmd(t *testing.T) {
	out := execute(t, "version")
	assert.Contains(t, out, "oloc ")
	assert.Contains(t, out, "commit:")
}

func TestSeedImportExport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "oloc.db")
	t.Setenv("OLOC_DB_PATH", dbPath)
	t.Setenv("OLOC_LOG_LEVEL", "error")

	seedPath := filepath.Join(dir, "seed.toml")
	require.NoError(t, os.WriteFile(seedPath, []byte(seedTOML), 0o600))
	execute(t, "migrate")
	execute(t, "seed", "--file", seedPath)

	db, err := store.NewDB(dbPath)
	require.NoError(t, err)
	q := store.New(db)
	key, err := q.GetTranslationKeyByKey(context.Background(), "greeting")
	require.NoError(t, err)
	translators, err := q.ListTranslators(context.Background())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	var annaID int64
	for _, tr := range translators {
		if tr.Name == "anna" {
			annaID = tr.ID
		}
	}
	require.NotZero(t, annaID)

	in := filepath.Join(dir, "in.json")
	doc := `{"version":"1.0","key":"greeting","translations":[` +
		`{"locale":"ru","label":"Привет","rules":[]},` +
		`{"locale":"xx","label":"?","rules":[]}]}`
	require.NoError(t, os.WriteFile(in, []byte(doc), 0o600))

	keyArg := strconv.FormatInt(key.ID, 10)
	importArgs := []string{"import", "--key", keyArg, "--translator", strconv.FormatInt(annaID, 10), "--in", in}

	out := execute(t, importArgs...)
	assert.Contains(t, out, "1 created, 0 unchanged, 1 rejected")

	out = execute(t, importArgs...)
	assert.Contains(t, out, "0 created, 1 unchanged, 1 rejected")

	exported := filepath.Join(dir, "out.json")
	execute(t, "export", "--key", keyArg, "--comparable", "--out", exported)

	raw, err := os.ReadFile(exported)
	require.NoError(t, err)
	var got struct {
		Key          string `json:"key"`
		Translations []struct {
			Locale string `json:"locale"`
			Label  string `json:"label"`
		} `json:"translations"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "greeting", got.Key)
	require.Len(t, got.Translations, 1)
	assert.Equal(t, "ru", got.Translations[0].Locale)
	assert.Equal(t, "Привет", got.Translations[0].Label)
}

func TestRouter(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	cfg := &config.Config{Env: "production", AcceptThreshold: 1, ViolationThreshold: -10}
	a := &app{cfg: cfg, logger: testutil.TestLoggerSilent(), db: db, store: store.NewStore(db)}

	c := cache.NewMemoryCache(cache.MemoryCacheOptions{})
	defer func() { _ = c.Close() }()
	consensus := service.NewConsensus(a.store, c, nil, a.logger, a.consensusOptions())
	health := handler.NewHealthHandler(db, c, cache.BackendMemory, "test")

	srv := httptest.NewServer(a.router(consensus, health, "test"))
	defer srv.Close()

	tests := []struct {
		path   string
		status int
	}{
		{"/health", http.StatusOK},
		{"/health/live", http.StatusOK},
		{"/health/ready", http.StatusOK},
		{"/api/v1/status", http.StatusOK},
		{"/nowhere", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
			assert.NotEmpty(t, resp.Header.Get("Strict-Transport-Security"))
		})
	}
}
