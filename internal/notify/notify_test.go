// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/oloc-go/internal/store"
	"github.com/olegiv/oloc-go/internal/testutil"
	"github.com/olegiv/oloc-go/internal/webhook"
)

type captureForwarder struct {
	events []*webhook.Event
	err    error
}

func (c *captureForwarder) Dispatch(_ context.Context, e *webhook.Event) error {
	c.events = append(c.events, e)
	return c.err
}

func TestDistributor(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	ctx := context.Background()

	lang := testutil.CreateLanguage(t, db, "ru")
	key := testutil.CreateKey(t, db, "Inbox")
	anna := testutil.CreateTranslator(t, db, "anna", 1, false)
	bob := testutil.CreateTranslator(t, db, "bob", 1, false)
	carol := testutil.CreateTranslator(t, db, "carol", 1, false)
	dave := testutil.CreateTranslator(t, db, "dave", 1, false)

	tr := testutil.CreateTranslation(t, db, key.ID, lang.ID, anna.ID, "Входящие", nil)
	testutil.CreateTranslation(t, db, key.ID, lang.ID, bob.ID, "Почта", nil)
	testutil.CreateTranslation(t, db, key.ID, lang.ID, anna.ID, "Ящик", nil)

	q := store.New(db)
	_, err := q.CreateComment(ctx, store.CreateCommentParams{
		TranslationKeyID: key.ID, LanguageID: lang.ID, TranslatorID: carol.ID, Message: "?", CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	fwd := &captureForwarder{}
	d := NewDistributor(q, fwd, testutil.TestLoggerSilent())

	tests := []struct {
		name string
		ev   Event
		want []int64
	}{
		{"translation created", Event{Type: webhook.EventTranslationCreated, ActorID: bob.ID, KeyID: key.ID, LanguageID: lang.ID}, []int64{anna.ID}},
		{"key locked", Event{Type: webhook.EventKeyLocked, ActorID: dave.ID, KeyID: key.ID, LanguageID: lang.ID}, []int64{anna.ID, bob.ID}},
		{"comment", Event{Type: webhook.EventCommentCreated, ActorID: anna.ID, KeyID: key.ID, LanguageID: lang.ID}, []int64{bob.ID, carol.ID}},
		{"vote", Event{Type: webhook.EventVoteCast, ActorID: bob.ID, OwnerID: anna.ID}, []int64{anna.ID}},
		{"own vote", Event{Type: webhook.EventVoteCast, ActorID: anna.ID, OwnerID: anna.ID}, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.Recipients(ctx, tt.ev)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, got)
		})
	}

	d.Distribute(ctx, Event{
		Type:       webhook.EventVoteCast,
		ActorID:    bob.ID,
		OwnerID:    anna.ID,
		KeyID:      key.ID,
		LanguageID: lang.ID,
		ObjectType: ObjectTranslation,
		ObjectID:   tr.ID,
		Data:       webhook.VoteEventData{TranslationID: tr.ID, TranslatorID: bob.ID, Score: 1},
	})

	notes, err := q.ListNotifications(ctx, anna.ID, 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, webhook.EventVoteCast, notes[0].Action)
	assert.Equal(t, bob.ID, notes[0].ActorID)
	assert.Equal(t, tr.ID, notes[0].ObjectID)

	require.Len(t, fwd.events, 1)
	assert.Equal(t, webhook.EventVoteCast, fwd.events[0].Type)
	assert.NotEmpty(t, fwd.events[0].ID)
}

func TestDistributor_ForwardFailureIsSwallowed(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	fwd := &captureForwarder{err: errors.New("endpoint down")}
	d := NewDistributor(store.New(db), fwd, testutil.TestLoggerSilent())

	assert.NotPanics(t, func() {
		d.Distribute(context.Background(), Event{Type: webhook.EventKeyUnlocked, KeyID: 1, LanguageID: 1})
	})
	assert.Len(t, fwd.events, 1)

	assert.NotPanics(t, func() {
		NewDistributor(store.New(db), nil, nil).Distribute(context.Background(), Event{Type: webhook.EventKeyUnlocked})
	})
}
