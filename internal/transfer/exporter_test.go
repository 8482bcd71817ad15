// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package transfer

import (
	"bytes"
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/oloc-go/internal/model"
	"github.com/olegiv/oloc-go/internal/store"
	"github.com/olegiv/oloc-go/internal/testutil"
)

type exportFixture struct {
	db    *sql.DB
	key   model.TranslationKey
	ru    model.Translation
	de    model.Translation
	many  model.Rule
	anna  model.Translator
	ruLng model.Language
}

func newExportFixture(t *testing.T) (*exportFixture, func()) {
	t.Helper()
	db, cleanup := testutil.TestDB(t)

	ru := testutil.CreateLanguage(t, db, "ru")
	de := testutil.CreateLanguage(t, db, "de")
	key := testutil.CreateKey(t, db, "{count} messages")
	anna := testutil.CreateTranslator(t, db, "anna", 1, false)
	many := testutil.CreateRule(t, db, ru.ID, model.RuleKindNumber, "many")

	f := &exportFixture{db: db, key: key, many: many, anna: anna, ruLng: ru}
	f.ru = testutil.CreateTranslation(t, db, key.ID, ru.ID, anna.ID, "{count} сообщений",
		[]model.RuleRef{{Token: "count", RuleIDs: []int64{many.ID}}})
	f.de = testutil.CreateTranslation(t, db, key.ID, de.ID, anna.ID, "{count} Nachrichten", nil)
	return f, cleanup
}

func goldenJSON(t *testing.T, v any) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, v))
	return buf.Bytes()
}

func TestExporter_ExportKeyGolden(t *testing.T) {
	f, cleanup := newExportFixture(t)
	defer cleanup()

	e := NewExporter(store.New(f.db), testutil.TestLoggerSilent())
	doc, err := e.ExportKey(context.Background(), f.key, ExportOptions{})
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "key_export", goldenJSON(t, doc))
}

func TestExporter_ComparableGolden(t *testing.T) {
	f, cleanup := newExportFixture(t)
	defer cleanup()

	e := NewExporter(store.New(f.db), nil)
	rec, err := e.Export(context.Background(), f.ru, ExportOptions{Comparable: true})
	require.NoError(t, err)
	assert.Nil(t, rec.ID)
	assert.Nil(t, rec.Rank)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "comparable_record", goldenJSON(t, rec))
}

func TestExporter_Attribution(t *testing.T) {
	f, cleanup := newExportFixture(t)
	defer cleanup()
	ctx := context.Background()

	q := store.New(f.db)
	remote := int64(77)
	linked, err := q.CreateTranslator(ctx, store.CreateTranslatorParams{Name: "linked", VotingPower: 1, RemoteID: &remote, CreatedAt: time.Now()})
	require.NoError(t, err)
	tr := testutil.CreateTranslation(t, f.db, f.key.ID, f.ruLng.ID, linked.ID, "{count} письма", nil)

	e := NewExporter(q, nil)

	rec, err := e.Export(ctx, tr, ExportOptions{})
	require.NoError(t, err)
	require.NotNil(t, rec.TranslatorID)
	assert.Equal(t, remote, *rec.TranslatorID)
	assert.Nil(t, rec.Translator)

	rec, err = e.Export(ctx, tr, ExportOptions{IncludeTranslator: true})
	require.NoError(t, err)
	require.NotNil(t, rec.Translator)
	assert.Equal(t, TranslatorRecord{ID: linked.ID, Name: "linked"}, *rec.Translator)
	assert.Nil(t, rec.TranslatorID)

	// unlinked translators are not identified
	rec, err = e.Export(ctx, f.ru, ExportOptions{})
	require.NoError(t, err)
	assert.Nil(t, rec.TranslatorID)
	assert.Nil(t, rec.Translator)
}

func TestExporter_BrokenRules(t *testing.T) {
	f, cleanup := newExportFixture(t)
	defer cleanup()
	ctx := context.Background()

	q := store.New(f.db)
	require.NoError(t, q.DeleteRule(ctx, f.many.ID))

	e := NewExporter(q, testutil.TestLoggerSilent())
	_, err := e.Export(ctx, f.ru, ExportOptions{})
	assert.ErrorIs(t, err, ErrBrokenRules)

	doc, err := e.ExportKey(ctx, f.key, ExportOptions{})
	require.NoError(t, err)
	require.Len(t, doc.Translations, 1)
	assert.Equal(t, "de", doc.Translations[0].Locale)
}

func TestExporter_LocaleFilter(t *testing.T) {
	f, cleanup := newExportFixture(t)
	defer cleanup()

	e := NewExporter(store.New(f.db), nil)
	doc, err := e.ExportKey(context.Background(), f.key, ExportOptions{Locales: []string{"de"}})
	require.NoError(t, err)
	require.Len(t, doc.Translations, 1)
	assert.Equal(t, "{count} Nachrichten", doc.Translations[0].Label)
	assert.Equal(t, []RuleEntry{}, doc.Translations[0].Rules)
}

func TestSameCandidate(t *testing.T) {
	a := Record{Locale: "ru", Label: "x", Rules: []RuleEntry{{"n": {{Type: "number", Key: "one"}}}}}
	id := int64(3)
	b := a
	b.ID = &id

	assert.True(t, SameCandidate(a, b))

	c := Record{Locale: "ru", Label: "x", Rules: []RuleEntry{{"n": {{Type: "number", Key: "few"}}}}}
	assert.False(t, SameCandidate(a, c))
	assert.False(t, SameCandidate(a, Record{Locale: "ru", Label: "x"}))
	assert.True(t, SameCandidate(Record{Locale: "de", Label: "y"}, Record{Locale: "de", Label: "y", Rules: []RuleEntry{}}))
}

func TestReadKeyRecord(t *testing.T) {
	doc, err := ReadKeyRecordFile("testdata/golden/key_export.golden")
	require.NoError(t, err)
	assert.Equal(t, ExportVersion, doc.Version)
	require.Len(t, doc.Translations, 2)
	assert.Equal(t, []string{"count"}, doc.Translations[0].Rules[0].Tokens())

	_, err = ReadKeyRecord(bytes.NewBufferString("{not json"))
	assert.Error(t, err)
}
