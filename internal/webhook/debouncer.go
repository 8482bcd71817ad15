// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DebounceConfig holds debouncer configuration.
type DebounceConfig struct {
	// Interval is the debounce window duration.
	Interval time.Duration
	// MaxWait bounds how long a busy entity can keep deferring its event.
	MaxWait time.Duration
}

// DefaultDebounceConfig returns default debounce configuration.
func DefaultDebounceConfig() DebounceConfig {
	return DebounceConfig{
		Interval: 1 * time.Second,
		MaxWait:  5 * time.Second,
	}
}

// Sender posts one event.
type Sender interface {
	Dispatch(ctx context.Context, event *Event) error
}

type pendingEvent struct {
	event     *Event
	timer     *time.Timer
	firstSeen time.Time
}

// Debouncer coalesces rapid-fire events into single deliveries, so a burst
// of votes on one translation sends only the last state.
type Debouncer struct {
	next    Sender
	config  DebounceConfig
	pending map[string]*pendingEvent
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// NewDebouncer creates a new event debouncer in front of next.
func NewDebouncer(next Sender, logger *slog.Logger, config DebounceConfig) *Debouncer {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Debouncer{
		next:    next,
		config:  config,
		pending: make(map[string]*pendingEvent),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
	}
}

// eventKey is the event type plus the entity id when the payload has one.
// Payloads without an entity are keyed by the event id and never coalesce.
func eventKey(event *Event) string {
	switch data := event.Data.(type) {
	case Entity:
		return fmt.Sprintf("%s:%d", event.Type, data.EntityID())
	case map[string]any:
		switch id := data["id"].(type) {
		case int64:
			return fmt.Sprintf("%s:%d", event.Type, id)
		case float64:
			return fmt.Sprintf("%s:%d", event.Type, int64(id))
		}
	}
	return event.Type + "#" + event.ID
}

// Dispatch queues an event for debounced delivery. A pending event for the
// same entity is replaced and its timer reset.
func (d *Debouncer) Dispatch(_ context.Context, event *Event) error {
	key := eventKey(event)
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.pending[key]; ok {
		existing.event = event
		if now.Sub(existing.firstSeen) >= d.config.MaxWait {
			d.dispatchLocked(key)
			return nil
		}
		existing.timer.Reset(d.config.Interval)
		return nil
	}

	pe := &pendingEvent{event: event, firstSeen: now}
	pe.timer = time.AfterFunc(d.config.Interval, func() {
		d.mu.Lock()
		d.dispatchLocked(key)
		d.mu.Unlock()
	})
	d.pending[key] = pe
	return nil
}

// dispatchLocked dispatches a pending event. Must be called with lock held.
func (d *Debouncer) dispatchLocked(key string) {
	pe, ok := d.pending[key]
	if !ok {
		return
	}
	pe.timer.Stop()
	delete(d.pending, key)

	d.wg.Add(1)
	go func(event *Event) {
		defer d.wg.Done()
		if err := d.next.Dispatch(d.ctx, event); err != nil {
			d.logger.Error("failed to dispatch debounced event", "error", err, "event_type", event.Type)
		}
	}(pe.event)
}

// Flush immediately dispatches all pending events.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key := range d.pending {
		d.dispatchLocked(key)
	}
}

// Stop flushes all pending events and waits for them to be handed off.
func (d *Debouncer) Stop() {
	d.Flush()
	d.wg.Wait()
	d.cancel()
}

// PendingCount returns the number of pending events.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
