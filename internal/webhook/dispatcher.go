// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/olegiv/oloc-go/internal/store"
)

// Dispatcher handles webhook event dispatching and queuing.
type Dispatcher struct {
	queries *store.Queries
	logger  *slog.Logger
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	queue   chan *QueuedDelivery
	wg      sync.WaitGroup
	done    chan struct{}
	mu      sync.RWMutex
	running bool
}

// QueuedDelivery represents a delivery queued for processing.
type QueuedDelivery struct {
	DeliveryID int64
	UUID       string
	Event      string
	Payload    []byte
	URL        string
}

// Config holds dispatcher configuration.
type Config struct {
	URLs      []string      // Endpoints every event is posted to
	Secret    string        // HMAC-SHA256 signing secret
	Workers   int           // Number of concurrent delivery workers
	Rate      float64       // Deliveries per second across all workers
	QueueSize int           // Capacity of the in-memory queue
	Backoff   time.Duration // Delay before the first retry
	// AllowPrivate disables the private address check at dial time.
	AllowPrivate bool
}

// DefaultConfig returns default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		Workers:   3,
		Rate:      10,
		QueueSize: 100,
		Backoff:   InitialBackoff,
	}
}

// NewDispatcher creates a new webhook dispatcher.
func NewDispatcher(queries *store.Queries, logger *slog.Logger, cfg Config) *Dispatcher {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Rate <= 0 {
		cfg.Rate = def.Rate
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = def.Backoff
	}
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.AllowPrivate {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		urls := make([]string, 0, len(cfg.URLs))
		for _, u := range cfg.URLs {
			if err := checkEndpoint(ctx, net.DefaultResolver, u); err != nil {
				logger.Warn("skipping webhook endpoint", "url", u, "error", err)
				continue
			}
			urls = append(urls, u)
		}
		cfg.URLs = urls
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second}
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext:         safeDialContext(dialer, net.DefaultResolver),
	}
	if cfg.AllowPrivate {
		transport.DialContext = dialer.DialContext
	}

	return &Dispatcher{
		queries: queries,
		logger:  logger,
		cfg:     cfg,
		client:  &http.Client{Timeout: RequestTimeout, Transport: transport},
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Workers),
		queue:   make(chan *QueuedDelivery, cfg.QueueSize),
		done:    make(chan struct{}),
	}
}

// Enabled reports whether any endpoint is configured.
func (d *Dispatcher) Enabled() bool {
	return len(d.cfg.URLs) > 0
}

// Start starts the dispatcher workers and requeues deliveries left
// unfinished by a previous run.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	d.logger.Info("starting webhook dispatcher", "workers", d.cfg.Workers, "endpoints", len(d.cfg.URLs))

	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}

	d.recover(ctx)
}

// Stop stops the dispatcher and waits for workers to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	d.logger.Info("stopping webhook dispatcher")
	close(d.done)
	d.wg.Wait()
	d.logger.Info("webhook dispatcher stopped")
}

func (d *Dispatcher) isRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// worker processes queued deliveries.
func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	d.logger.Debug("webhook worker started", "worker_id", id)

	for {
		select {
		case <-d.done:
			d.logger.Debug("webhook worker stopping", "worker_id", id)
			return
		case <-ctx.Done():
			d.logger.Debug("webhook worker context cancelled", "worker_id", id)
			return
		case delivery := <-d.queue:
			if err := d.limiter.Wait(ctx); err != nil {
				return
			}
			d.processDelivery(ctx, delivery)
		}
	}
}

// recover requeues pending and retrying deliveries.
func (d *Dispatcher) recover(ctx context.Context) {
	for _, status := range []string{store.DeliveryPending, store.DeliveryRetrying} {
		items, err := d.queries.ListWebhookDeliveriesByStatus(ctx, status, d.cfg.QueueSize)
		if err != nil {
			d.logger.Error("failed to list unfinished deliveries", "error", err, "status", status)
			continue
		}
		for _, item := range items {
			d.enqueue(&QueuedDelivery{
				DeliveryID: item.ID,
				UUID:       item.UUID,
				Event:      item.Event,
				Payload:    []byte(item.Payload),
				URL:        item.URL,
			})
		}
	}
}

func (d *Dispatcher) enqueue(qd *QueuedDelivery) {
	if !d.isRunning() {
		return
	}
	select {
	case d.queue <- qd:
		d.logger.Debug("delivery queued", "delivery_id", qd.DeliveryID)
	default:
		d.logger.Warn("delivery queue full, delivery will be retried on restart", "delivery_id", qd.DeliveryID)
	}
}

// Dispatch creates one delivery per configured endpoint and queues them.
func (d *Dispatcher) Dispatch(ctx context.Context, event *Event) error {
	if !d.Enabled() {
		return nil
	}
	if !d.isRunning() {
		d.logger.Warn("dispatcher not running, cannot dispatch event", "event_type", event.Type)
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling %s event: %w", event.Type, err)
	}

	now := time.Now()
	for _, url := range d.cfg.URLs {
		delivery, err := d.queries.CreateWebhookDelivery(ctx, store.CreateWebhookDeliveryParams{
			UUID:      uuid.NewString(),
			URL:       url,
			Event:     event.Type,
			Payload:   string(payload),
			CreatedAt: now,
		})
		if err != nil {
			d.logger.Error("failed to create delivery record", "error", err, "url", url, "event_type", event.Type)
			continue
		}

		d.logger.Info("webhook delivery created",
			"delivery_id", delivery.ID,
			"url", url,
			"event_type", event.Type)

		d.enqueue(&QueuedDelivery{
			DeliveryID: delivery.ID,
			UUID:       delivery.UUID,
			Event:      event.Type,
			Payload:    payload,
			URL:        url,
		})
	}
	return nil
}

// DispatchEvent is a convenience method to dispatch an event with the given type and data.
func (d *Dispatcher) DispatchEvent(ctx context.Context, eventType string, data any) error {
	return d.Dispatch(ctx, NewEvent(eventType, data))
}

// GenerateSignature generates an HMAC-SHA256 signature for the payload.
func GenerateSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature verifies an HMAC-SHA256 signature.
func VerifySignature(payload []byte, signature, secret string) bool {
	expectedSig := GenerateSignature(payload, secret)
	return hmac.Equal([]byte(signature), []byte(expectedSig))
}
