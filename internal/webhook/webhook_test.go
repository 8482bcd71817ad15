// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/olegiv/oloc-go/internal/store"
	"github.com/olegiv/oloc-go/internal/testutil"
)

func TestGenerateSignature(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		secret  string
	}{
		{"empty payload", []byte{}, "secret"},
		{"simple payload", []byte(`{"type":"vote.cast"}`), "mysecret"},
		{"empty secret", []byte(`test`), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GenerateSignature(tt.payload, tt.secret)
			if len(result) != 64 {
				t.Errorf("GenerateSignature() returned signature with length %d, expected 64", len(result))
			}
			if result2 := GenerateSignature(tt.payload, tt.secret); result != result2 {
				t.Errorf("GenerateSignature() not consistent: %s != %s", result, result2)
			}
		})
	}

	// known HMAC-SHA256 of an empty message under "secret"
	const want = "f9e66e179b6747ae54108f82f8ade8b3c25d76fd30afde6c395822c530196169"
	if got := GenerateSignature([]byte{}, "secret"); got != want {
		t.Errorf("GenerateSignature(empty, secret) = %s, want %s", got, want)
	}
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"label":"Входящие","locale":"ru"}`)
	secret := "ключ"
	signature := GenerateSignature(payload, secret)

	if !VerifySignature(payload, signature, secret) {
		t.Error("VerifySignature() = false for a valid signature")
	}
	if VerifySignature(payload, signature, "wrong-secret") {
		t.Error("VerifySignature() should return false with wrong secret")
	}
	for _, bad := range []string{"", "not-hex", "abc123", "0000000000000000000000000000000000000000000000000000000000000000"} {
		if VerifySignature(payload, bad, secret) {
			t.Errorf("VerifySignature(%q) = true", bad)
		}
	}
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		name     string
		attempt  int64
		expected time.Duration
	}{
		{"attempt 0", 0, 1 * time.Minute},
		{"attempt 1", 1, 1 * time.Minute},
		{"attempt 2", 2, 2 * time.Minute},
		{"attempt 3", 3, 4 * time.Minute},
		{"attempt 5", 5, 16 * time.Minute},
		{"attempt 10", 10, 512 * time.Minute},
		{"attempt 15", 15, 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := calculateBackoff(tt.attempt, InitialBackoff); result != tt.expected {
				t.Errorf("calculateBackoff(%d) = %v, want %v", tt.attempt, result, tt.expected)
			}
		})
	}

	if got := calculateBackoff(3, 10*time.Millisecond); got != 40*time.Millisecond {
		t.Errorf("calculateBackoff(3, 10ms) = %v, want 40ms", got)
	}
	for attempt := int64(1); attempt <= 100; attempt++ {
		if result := calculateBackoff(attempt, InitialBackoff); result > MaxBackoff {
			t.Errorf("calculateBackoff(%d) = %v, exceeds MaxBackoff %v", attempt, result, MaxBackoff)
		}
	}
}

func TestEventKey(t *testing.T) {
	tests := []struct {
		name     string
		event    *Event
		expected string
	}{
		{"translation", NewEvent(EventTranslationCreated, TranslationEventData{ID: 123}), "translation.created:123"},
		{"vote coalesces per translation", NewEvent(EventVoteCast, VoteEventData{TranslationID: 7, TranslatorID: 3}), "vote.cast:7"},
		{"lock", NewEvent(EventKeyLocked, KeyLockEventData{ID: 9}), "key.locked:9"},
		{"comment", NewEvent(EventCommentCreated, CommentEventData{ID: 4}), "comment.created:4"},
		{"map with int64 id", NewEvent("custom", map[string]any{"id": int64(999)}), "custom:999"},
		{"map with float64 id", NewEvent("custom", map[string]any{"id": float64(888)}), "custom:888"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := eventKey(tt.event); result != tt.expected {
				t.Errorf("eventKey() = %q, want %q", result, tt.expected)
			}
		})
	}

	a := NewEvent(EventTest, TestEventData{Message: "a"})
	b := NewEvent(EventTest, TestEventData{Message: "b"})
	if eventKey(a) == eventKey(b) {
		t.Error("events without an entity must not share a key")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Workers != 3 || cfg.Rate != 10 || cfg.Backoff != InitialBackoff {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
}

type recordingSender struct {
	mu     sync.Mutex
	events []*Event
}

func (r *recordingSender) Dispatch(_ context.Context, e *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestDebouncer_Coalesces(t *testing.T) {
	sender := &recordingSender{}
	d := NewDebouncer(sender, testutil.TestLoggerSilent(), DebounceConfig{Interval: time.Hour, MaxWait: time.Hour})
	ctx := context.Background()

	for rank := 1; rank <= 3; rank++ {
		_ = d.Dispatch(ctx, NewEvent(EventVoteCast, VoteEventData{TranslationID: 1, Rank: rank}))
	}
	_ = d.Dispatch(ctx, NewEvent(EventVoteCast, VoteEventData{TranslationID: 2, Rank: 1}))

	if got := d.PendingCount(); got != 2 {
		t.Fatalf("PendingCount() = %d, want 2", got)
	}

	d.Stop()
	if got := sender.count(); got != 2 {
		t.Fatalf("dispatched %d events, want 2", got)
	}
	for _, e := range sender.events {
		data := e.Data.(VoteEventData)
		if data.TranslationID == 1 && data.Rank != 3 {
			t.Errorf("coalesced event carries rank %d, want the latest (3)", data.Rank)
		}
	}
}

func TestDebouncer_MaxWait(t *testing.T) {
	sender := &recordingSender{}
	d := NewDebouncer(sender, nil, DebounceConfig{Interval: time.Hour, MaxWait: 0})
	defer d.Stop()

	ctx := context.Background()
	_ = d.Dispatch(ctx, NewEvent(EventKeyLocked, KeyLockEventData{ID: 1}))
	_ = d.Dispatch(ctx, NewEvent(EventKeyLocked, KeyLockEventData{ID: 1}))

	if got := d.PendingCount(); got != 0 {
		t.Errorf("PendingCount() = %d, want 0 after max wait", got)
	}
}

func newTestDispatcher(t *testing.T, urls []string) (*Dispatcher, *store.Queries, func()) {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	q := store.New(db)
	d := NewDispatcher(q, testutil.TestLoggerSilent(), Config{
		URLs:         urls,
		Secret:       "s3cret",
		Workers:      1,
		Rate:         1000,
		Backoff:      10 * time.Millisecond,
		AllowPrivate: true,
	})
	return d, q, cleanup
}

func waitForStatus(t *testing.T, q *store.Queries, id int64, status string) store.WebhookDelivery {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		d, err := q.GetWebhookDelivery(context.Background(), id)
		if err != nil {
			t.Fatalf("GetWebhookDelivery: %v", err)
		}
		if d.Status == status {
			return d
		}
		if time.Now().After(deadline) {
			t.Fatalf("delivery %d status = %s, want %s", id, d.Status, status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDispatcher_DeliversSigned(t *testing.T) {
	type received struct {
		signature, delivery, event string
		body                       []byte
	}
	got := make(chan received, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- received{r.Header.Get(HeaderSignature), r.Header.Get(HeaderDelivery), r.Header.Get(HeaderEvent), body}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d, q, cleanup := newTestDispatcher(t, []string{srv.URL})
	defer cleanup()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	defer d.Stop()

	if err := d.DispatchEvent(ctx, EventVoteCast, VoteEventData{TranslationID: 5, Score: 1, Rank: 1}); err != nil {
		t.Fatalf("DispatchEvent: %v", err)
	}

	var r received
	select {
	case r = <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("webhook was not delivered")
	}

	if !VerifySignature(r.body, r.signature, "s3cret") {
		t.Error("signature header does not verify")
	}
	if r.event != EventVoteCast {
		t.Errorf("event header = %q", r.event)
	}
	var e Event
	if err := json.Unmarshal(r.body, &e); err != nil || e.Type != EventVoteCast {
		t.Errorf("payload = %s (%v)", r.body, err)
	}

	row, err := q.GetWebhookDeliveryByUUID(ctx, r.delivery)
	if err != nil {
		t.Fatalf("delivery header %q does not name a delivery: %v", r.delivery, err)
	}
	row = waitForStatus(t, q, row.ID, store.DeliveryDelivered)
	if row.Attempts != 1 || row.ResponseCode.Int64 != http.StatusNoContent {
		t.Errorf("delivery = %+v", row)
	}
}

func TestDispatcher_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d, q, cleanup := newTestDispatcher(t, []string{srv.URL})
	defer cleanup()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	defer d.Stop()

	if err := d.DispatchEvent(ctx, EventKeyLocked, KeyLockEventData{ID: 1, Locked: true}); err != nil {
		t.Fatalf("DispatchEvent: %v", err)
	}

	row := waitForStatus(t, q, 1, store.DeliveryDelivered)
	if row.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", row.Attempts)
	}
}

func TestDispatcher_ClientErrorIsFinal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	d, q, cleanup := newTestDispatcher(t, []string{srv.URL, srv.URL + "/second"})
	defer cleanup()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	defer d.Stop()

	if err := d.DispatchEvent(ctx, EventTest, TestEventData{Message: "ping"}); err != nil {
		t.Fatalf("DispatchEvent: %v", err)
	}

	for id := int64(1); id <= 2; id++ {
		row := waitForStatus(t, q, id, store.DeliveryDead)
		if row.Attempts != 1 || !row.ErrorMessage.Valid {
			t.Errorf("delivery %d = %+v", id, row)
		}
	}
}

func TestDispatcher_DisabledOrStopped(t *testing.T) {
	d, q, cleanup := newTestDispatcher(t, nil)
	defer cleanup()
	ctx := context.Background()

	if d.Enabled() {
		t.Error("dispatcher without URLs reports enabled")
	}
	if err := d.DispatchEvent(ctx, EventTest, nil); err != nil {
		t.Fatalf("DispatchEvent: %v", err)
	}

	stopped := NewDispatcher(q, testutil.TestLoggerSilent(), Config{URLs: []string{"http://127.0.0.1:1"}, AllowPrivate: true})
	if err := stopped.DispatchEvent(ctx, EventTest, nil); err != nil {
		t.Fatalf("DispatchEvent: %v", err)
	}

	pending, err := q.ListWebhookDeliveriesByStatus(ctx, store.DeliveryPending, 10)
	if err != nil {
		t.Fatalf("ListWebhookDeliveriesByStatus: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("created %d deliveries, want 0", len(pending))
	}
}

func TestDispatcher_SkipsPrivateEndpoints(t *testing.T) {
	d := NewDispatcher(nil, testutil.TestLoggerSilent(), Config{
		URLs: []string{"http://127.0.0.1/hook", "http://localhost/hook", "ftp://203.0.113.1/hook"},
	})
	if d.Enabled() {
		t.Errorf("dispatcher kept private endpoints: %v", d.cfg.URLs)
	}

	allowed := NewDispatcher(nil, testutil.TestLoggerSilent(), Config{
		URLs:         []string{"http://127.0.0.1/hook"},
		AllowPrivate: true,
	})
	if !allowed.Enabled() {
		t.Error("AllowPrivate should keep local endpoints")
	}
}

func TestDispatcher_RecoversUnfinished(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d, q, cleanup := newTestDispatcher(t, []string{srv.URL})
	defer cleanup()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	row, err := q.CreateWebhookDelivery(ctx, store.CreateWebhookDeliveryParams{
		UUID: "left-over", URL: srv.URL, Event: EventTest, Payload: `{}`, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateWebhookDelivery: %v", err)
	}

	d.Start(ctx)
	defer d.Stop()

	waitForStatus(t, q, row.ID, store.DeliveryDelivered)
	if calls.Load() != 1 {
		t.Errorf("server called %d times, want 1", calls.Load())
	}
}
