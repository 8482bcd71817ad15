// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"

	"github.com/olegiv/oloc-go/internal/model"
	"github.com/olegiv/oloc-go/internal/notify"
	"github.com/olegiv/oloc-go/internal/store"
	"github.com/olegiv/oloc-go/internal/util"
	"github.com/olegiv/oloc-go/internal/webhook"
)

// LockState returns the lock of a key in a language, materialising it
// unlocked on first access.
func (c *Consensus) LockState(ctx context.Context, keyID int64, locale string) (*model.KeyLock, error) {
	key, err := c.key(ctx, keyID)
	if err != nil {
		return nil, err
	}
	lang, err := c.language(ctx, locale)
	if err != nil {
		return nil, err
	}
	lock, err := c.locks.For(ctx, key, lang)
	if err != nil {
		return nil, err
	}
	return &lock, nil
}

// LockKey closes a key in a language to edits by non-managers.
func (c *Consensus) LockKey(ctx context.Context, keyID int64, locale string, translatorID int64) (*model.KeyLock, error) {
	return c.toggleLock(ctx, keyID, locale, translatorID, true)
}

// UnlockKey reopens a key in a language.
func (c *Consensus) UnlockKey(ctx context.Context, keyID int64, locale string, translatorID int64) (*model.KeyLock, error) {
	return c.toggleLock(ctx, keyID, locale, translatorID, false)
}

func (c *Consensus) toggleLock(ctx context.Context, keyID int64, locale string, translatorID int64, locked bool) (*model.KeyLock, error) {
	key, err := c.key(ctx, keyID)
	if err != nil {
		return nil, err
	}
	lang, err := c.language(ctx, locale)
	if err != nil {
		return nil, err
	}
	if _, err := c.translator(ctx, translatorID); err != nil {
		return nil, err
	}
	manager, err := c.translators.IsManager(ctx, translatorID)
	if err != nil {
		return nil, err
	}
	if !manager {
		return nil, ErrForbidden
	}

	var (
		lock      model.KeyLock
		eventType = webhook.EventKeyUnlocked
		message   = "Key unlocked"
	)
	if locked {
		lock, err = c.locks.Lock(ctx, key, lang, translatorID)
		eventType, message = webhook.EventKeyLocked, "Key locked"
	} else {
		lock, err = c.locks.Unlock(ctx, key, lang, translatorID)
	}
	if err != nil {
		return nil, err
	}

	_ = c.events.LogLockEvent(ctx, message, translatorID, map[string]any{
		"key":    key.Key,
		"locale": lang.Locale,
	})
	c.notifier.Distribute(ctx, notify.Event{
		Type:       eventType,
		ActorID:    translatorID,
		KeyID:      key.ID,
		LanguageID: lang.ID,
		ObjectType: notify.ObjectKeyLock,
		ObjectID:   lock.ID,
		Data: webhook.KeyLockEventData{
			ID:               lock.ID,
			TranslationKeyID: key.ID,
			Locale:           lang.Locale,
			TranslatorID:     translatorID,
			Locked:           lock.Locked,
		},
	})
	return &lock, nil
}

// AddComment posts a discussion entry on a key in a language.
func (c *Consensus) AddComment(ctx context.Context, keyID int64, locale string, translatorID int64, message string) (*model.Comment, error) {
	key, err := c.key(ctx, keyID)
	if err != nil {
		return nil, err
	}
	lang, err := c.language(ctx, locale)
	if err != nil {
		return nil, err
	}
	if _, err := c.translator(ctx, translatorID); err != nil {
		return nil, err
	}
	if err := c.authorize(ctx, key, lang, translatorID, 0); err != nil {
		return nil, err
	}
	message = util.SanitizeLabel(message)
	if util.IsBlank(message) {
		return nil, invalid("message", "must not be blank")
	}

	var comment model.Comment
	err = c.store.InTx(ctx, func(q *store.Queries) error {
		created, err := q.CreateComment(ctx, store.CreateCommentParams{
			TranslationKeyID: key.ID,
			LanguageID:       lang.ID,
			TranslatorID:     translatorID,
			Message:          message,
			CreatedAt:        c.now(),
		})
		if err != nil {
			return fmt.Errorf("creating comment: %w", err)
		}
		comment = created
		return c.translators.With(q).RecordComment(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	c.notifier.Distribute(ctx, notify.Event{
		Type:       webhook.EventCommentCreated,
		ActorID:    translatorID,
		KeyID:      key.ID,
		LanguageID: lang.ID,
		ObjectType: notify.ObjectComment,
		ObjectID:   comment.ID,
		Data: webhook.CommentEventData{
			ID:               comment.ID,
			TranslationKeyID: key.ID,
			Locale:           lang.Locale,
			TranslatorID:     translatorID,
			Message:          comment.Message,
		},
	})
	return &comment, nil
}

// DeleteComment removes a comment. The author or a manager may do so while
// the key is open; only managers while it is locked.
func (c *Consensus) DeleteComment(ctx context.Context, commentID, editorID int64) error {
	comment, err := c.store.GetComment(ctx, commentID)
	if err != nil {
		return notFound(err)
	}
	key, err := c.key(ctx, comment.TranslationKeyID)
	if err != nil {
		return err
	}
	lang, err := c.languages.Get(ctx, comment.LanguageID)
	if err != nil {
		return notFound(err)
	}
	if err := c.authorize(ctx, key, lang, editorID, comment.TranslatorID); err != nil {
		return err
	}
	return c.store.DeleteComment(ctx, comment.ID)
}
