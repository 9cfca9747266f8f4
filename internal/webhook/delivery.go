// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/olegiv/institute-cms/internal/model"
	"github.com/olegiv/institute-cms/internal/store"
	"github.com/olegiv/institute-cms/internal/util"
)

// Delivery configuration constants
const (
	MaxAttempts    = 5                // Maximum number of delivery attempts
	InitialBackoff = 1 * time.Minute  // Initial backoff delay
	MaxBackoff     = 24 * time.Hour   // Maximum backoff delay
	RequestTimeout = 30 * time.Second // HTTP request timeout
	MaxResponseLen = 10 * 1024        // Maximum response body to store (10KB)
	maxRedirects   = 3
)

// Delivery request headers.
const (
	HeaderSignature  = "X-Webhook-Signature"
	HeaderEvent      = "X-Webhook-Event"
	HeaderDeliveryID = "X-Webhook-Delivery-ID"
)

// DeliveryResult represents the result of a delivery attempt.
type DeliveryResult struct {
	Success      bool
	StatusCode   int
	ResponseBody string
	Error        error
	ShouldRetry  bool
}

// newHTTPClient returns a client whose dialer refuses private addresses,
// so DNS rebinding and redirects cannot reach internal hosts.
func newHTTPClient(allowPrivate bool) *http.Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext:         dialer.DialContext,
	}
	if !allowPrivate {
		transport.DialContext = util.GuardedDialContext(dialer, nil)
	}
	return &http.Client{
		Timeout:   RequestTimeout,
		Transport: transport,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errors.New("too many redirects")
			}
			return nil
		},
	}
}

// processDelivery attempts one delivery and records the outcome.
func (d *Dispatcher) processDelivery(ctx context.Context, delivery queuedDelivery) {
	record, err := d.queries.GetWebhookDelivery(ctx, delivery.DeliveryID)
	if err != nil {
		d.logger.Error("failed to get delivery record",
			"category", model.EventCategoryWebhook,
			"error", err,
			"delivery_id", delivery.DeliveryID)
		return
	}

	if record.Status == store.DeliveryDelivered || record.Status == store.DeliveryDead {
		d.logger.Debug("delivery already processed",
			"delivery_id", delivery.DeliveryID,
			"status", record.Status)
		return
	}

	result := d.attemptDelivery(ctx, delivery)
	now := d.cfg.Now().UTC()

	if result.Success {
		err = d.queries.UpdateDeliverySuccess(ctx, delivery.DeliveryID, result.StatusCode, result.ResponseBody, now)
		if err != nil {
			d.logger.Error("failed to update delivery success",
				"category", model.EventCategoryWebhook,
				"error", err,
				"delivery_id", delivery.DeliveryID)
			return
		}
		d.logger.Info("webhook delivered",
			"delivery_id", delivery.DeliveryID,
			"event", delivery.Event,
			"status_code", result.StatusCode)
		return
	}

	errMsg := ""
	if result.Error != nil {
		errMsg = result.Error.Error()
	}
	attempts := record.Attempts + 1

	if !result.ShouldRetry || attempts >= MaxAttempts {
		err = d.queries.UpdateDeliveryDead(ctx, delivery.DeliveryID, result.StatusCode, errMsg, now)
		if err != nil {
			d.logger.Error("failed to update delivery as dead",
				"category", model.EventCategoryWebhook,
				"error", err,
				"delivery_id", delivery.DeliveryID)
			return
		}
		d.logger.Warn("webhook delivery marked as dead",
			"category", model.EventCategoryWebhook,
			"delivery_id", delivery.DeliveryID,
			"endpoint", delivery.URL,
			"event", delivery.Event,
			"attempts", attempts,
			"reason", errMsg)
		return
	}

	backoff := calculateBackoff(attempts)
	nextRetry := now.Add(backoff)
	err = d.queries.UpdateDeliveryRetry(ctx, store.UpdateDeliveryRetryParams{
		ID:           delivery.DeliveryID,
		ResponseCode: result.StatusCode,
		ResponseBody: result.ResponseBody,
		ErrorMessage: errMsg,
		NextRetryAt:  nextRetry,
		UpdatedAt:    now,
	})
	if err != nil {
		d.logger.Error("failed to schedule delivery retry",
			"category", model.EventCategoryWebhook,
			"error", err,
			"delivery_id", delivery.DeliveryID)
		return
	}
	d.logger.Info("webhook delivery scheduled for retry",
		"delivery_id", delivery.DeliveryID,
		"attempt", attempts,
		"next_retry_at", nextRetry.Format(time.RFC3339),
		"backoff", backoff.String())
}

// attemptDelivery performs the HTTP POST.
func (d *Dispatcher) attemptDelivery(ctx context.Context, delivery queuedDelivery) DeliveryResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, delivery.URL, bytes.NewReader(delivery.Payload))
	if err != nil {
		return DeliveryResult{
			Error:       fmt.Errorf("failed to create request: %w", err),
			ShouldRetry: false,
		}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", d.cfg.UserAgent)
	req.Header.Set(HeaderEvent, delivery.Event)
	req.Header.Set(HeaderDeliveryID, strconv.FormatInt(delivery.DeliveryID, 10))
	if d.cfg.Secret != "" {
		req.Header.Set(HeaderSignature, "sha256="+GenerateSignature(delivery.Payload, d.cfg.Secret))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return DeliveryResult{
			Error:       fmt.Errorf("request failed: %w", err),
			ShouldRetry: true,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseLen))
	responseBody := string(body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return DeliveryResult{
			Success:      true,
			StatusCode:   resp.StatusCode,
			ResponseBody: responseBody,
		}
	}

	// 4xx is final except 408 Request Timeout and 429 Too Many Requests.
	shouldRetry := resp.StatusCode >= 500 ||
		resp.StatusCode == http.StatusRequestTimeout ||
		resp.StatusCode == http.StatusTooManyRequests
	return DeliveryResult{
		StatusCode:   resp.StatusCode,
		ResponseBody: responseBody,
		Error:        fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		ShouldRetry:  shouldRetry,
	}
}

// calculateBackoff calculates the exponential backoff duration for a given attempt.
// Attempt 1 = 1 min, Attempt 2 = 2 min, Attempt 3 = 4 min, Attempt 4 = 8 min, etc.
func calculateBackoff(attempt int64) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	backoff := time.Duration(float64(InitialBackoff) * math.Pow(2, float64(attempt-1)))
	if backoff > MaxBackoff {
		backoff = MaxBackoff
	}
	return backoff
}
