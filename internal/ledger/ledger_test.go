// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/oloc-go/internal/ledger"
	"github.com/olegiv/oloc-go/internal/store"
	"github.com/olegiv/oloc-go/internal/testutil"
)

func TestLedger_CastReplaces(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	ctx := context.Background()

	lang := testutil.CreateLanguage(t, db, "fr")
	key := testutil.CreateKey(t, db, "Hello")
	anna := testutil.CreateTranslator(t, db, "anna", 1, false)
	bob := testutil.CreateTranslator(t, db, "bob", 1, false)
	tr := testutil.CreateTranslation(t, db, key.ID, lang.ID, anna.ID, "Bonjour", nil)

	l := ledger.New(store.New(db))
	_, err := l.Cast(ctx, tr.ID, bob.ID, 1)
	require.NoError(t, err)
	_, err = l.Cast(ctx, tr.ID, bob.ID, -1)
	require.NoError(t, err)
	_, err = l.Cast(ctx, tr.ID, anna.ID, 1)
	require.NoError(t, err)

	votes, err := l.Votes(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	assert.Equal(t, bob.ID, votes[0].TranslatorID)
	assert.Equal(t, -1, votes[0].Score)
}

func TestLedger_ResetInTx(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	ctx := context.Background()

	lang := testutil.CreateLanguage(t, db, "fr")
	key := testutil.CreateKey(t, db, "Hello")
	a := testutil.CreateTranslator(t, db, "a", 1, false)
	b := testutil.CreateTranslator(t, db, "b", 1, false)
	c := testutil.CreateTranslator(t, db, "c", 1, true)
	tr := testutil.CreateTranslation(t, db, key.ID, lang.ID, a.ID, "Salut", nil)

	l := ledger.New(store.New(db))
	_, err := l.Cast(ctx, tr.ID, a.ID, 5)
	require.NoError(t, err)
	_, err = l.Cast(ctx, tr.ID, b.ID, -3)
	require.NoError(t, err)

	s := store.NewStore(db)
	err = s.InTx(ctx, func(q *store.Queries) error {
		v, removed, err := ledger.New(q).Reset(ctx, tr.ID, c.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(2), removed)
		assert.Equal(t, ledger.ResetScore, v.Score)
		return nil
	})
	require.NoError(t, err)

	votes, err := l.Votes(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, c.ID, votes[0].TranslatorID)
	assert.Equal(t, 1, votes[0].Score)
}
