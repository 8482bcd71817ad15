// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/olegiv/oloc-go/internal/store"
)

// Delivery configuration constants
const (
	MaxAttempts    = 5                // Maximum number of delivery attempts
	InitialBackoff = 1 * time.Minute  // Initial backoff delay
	MaxBackoff     = 24 * time.Hour   // Maximum backoff delay
	RequestTimeout = 30 * time.Second // HTTP request timeout
	MaxResponseLen = 10 * 1024        // Maximum response body read (10KB)
	UserAgent      = "oLoc/1.0"       // User-Agent header value
)

// Request headers
const (
	HeaderSignature = "X-Oloc-Signature"
	HeaderDelivery  = "X-Oloc-Delivery"
	HeaderEvent     = "X-Oloc-Event"
)

// DeliveryResult represents the result of a delivery attempt.
type DeliveryResult struct {
	Success     bool
	StatusCode  int
	Error       error
	ShouldRetry bool
}

// processDelivery attempts to deliver a webhook payload via HTTP POST.
func (d *Dispatcher) processDelivery(ctx context.Context, delivery *QueuedDelivery) {
	record, err := d.queries.GetWebhookDelivery(ctx, delivery.DeliveryID)
	if err != nil {
		d.logger.Error("failed to get delivery record", "error", err, "delivery_id", delivery.DeliveryID)
		return
	}

	if record.Status == store.DeliveryDelivered || record.Status == store.DeliveryDead {
		d.logger.Debug("delivery already processed",
			"delivery_id", delivery.DeliveryID,
			"status", record.Status)
		return
	}

	result := d.attemptDelivery(ctx, delivery)
	attempts := record.Attempts + 1

	update := store.UpdateWebhookDeliveryParams{
		ID:           delivery.DeliveryID,
		ResponseCode: result.StatusCode,
		UpdatedAt:    time.Now(),
	}
	if result.Error != nil {
		update.ErrorMessage = result.Error.Error()
	}

	switch {
	case result.Success:
		update.Status = store.DeliveryDelivered
	case !result.ShouldRetry || attempts >= MaxAttempts:
		update.Status = store.DeliveryDead
	default:
		update.Status = store.DeliveryRetrying
	}

	if err := d.queries.UpdateWebhookDelivery(ctx, update); err != nil {
		d.logger.Error("failed to update delivery", "error", err, "delivery_id", delivery.DeliveryID)
		return
	}

	switch update.Status {
	case store.DeliveryDelivered:
		d.logger.Info("webhook delivered successfully",
			"delivery_id", delivery.DeliveryID,
			"url", delivery.URL,
			"status_code", result.StatusCode)
	case store.DeliveryDead:
		d.logger.Warn("webhook delivery marked as dead",
			"delivery_id", delivery.DeliveryID,
			"url", delivery.URL,
			"attempts", attempts,
			"reason", update.ErrorMessage)
	default:
		backoff := calculateBackoff(attempts, d.cfg.Backoff)
		d.logger.Info("webhook delivery scheduled for retry",
			"delivery_id", delivery.DeliveryID,
			"attempt", attempts,
			"backoff", backoff.String())
		time.AfterFunc(backoff, func() { d.enqueue(delivery) })
	}
}

// attemptDelivery performs the actual HTTP POST request.
func (d *Dispatcher) attemptDelivery(ctx context.Context, delivery *QueuedDelivery) DeliveryResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, delivery.URL, bytes.NewReader(delivery.Payload))
	if err != nil {
		return DeliveryResult{
			Error:       fmt.Errorf("failed to create request: %w", err),
			ShouldRetry: false,
		}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set(HeaderSignature, GenerateSignature(delivery.Payload, d.cfg.Secret))
	req.Header.Set(HeaderEvent, delivery.Event)
	req.Header.Set(HeaderDelivery, delivery.UUID)

	resp, err := d.client.Do(req)
	if err != nil {
		return DeliveryResult{
			Error:       fmt.Errorf("request failed: %w", err),
			ShouldRetry: true,
		}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseLen))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return DeliveryResult{Success: true, StatusCode: resp.StatusCode}
	}

	httpErr := fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		// Client errors are final except 408 and 429
		return DeliveryResult{
			StatusCode:  resp.StatusCode,
			Error:       httpErr,
			ShouldRetry: resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests,
		}
	}

	return DeliveryResult{StatusCode: resp.StatusCode, Error: httpErr, ShouldRetry: true}
}

// calculateBackoff returns initial * 2^(attempt-1), capped at MaxBackoff.
func calculateBackoff(attempt int64, initial time.Duration) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	if initial <= 0 {
		initial = InitialBackoff
	}

	backoff := time.Duration(float64(initial) * math.Pow(2, float64(attempt-1)))
	if backoff > MaxBackoff {
		backoff = MaxBackoff
	}
	return backoff
}
