// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/olegiv/institute-cms/internal/content"
	"github.com/olegiv/institute-cms/internal/hook"
	"github.com/olegiv/institute-cms/internal/model"
	"github.com/olegiv/institute-cms/internal/store"
	"github.com/olegiv/institute-cms/internal/util"
)

// Sink accepts events for delivery. Both Dispatcher and Debouncer are sinks.
type Sink interface {
	Dispatch(ctx context.Context, event *Event) error
}

// Dispatcher persists one delivery per endpoint for every event and hands
// them to a pool of workers.
type Dispatcher struct {
	queries *store.Queries
	logger  *slog.Logger
	cfg     Config
	client  *http.Client
	queue   chan queuedDelivery
	wg      sync.WaitGroup
	done    chan struct{}
	mu      sync.RWMutex
	running bool
}

type queuedDelivery struct {
	DeliveryID int64
	Event      string
	Payload    []byte
	URL        string
}

// Config holds dispatcher configuration.
type Config struct {
	Endpoints []string
	Secret    string
	Workers   int // Number of concurrent delivery workers
	QueueSize int
	UserAgent string
	// AllowPrivateTargets skips SSRF checks; only tests set it.
	AllowPrivateTargets bool
	// Now overrides the clock.
	Now func() time.Time
}

// DefaultUserAgent is sent when Config.UserAgent is empty.
const DefaultUserAgent = "institute-cms/1.0"

// DefaultConfig returns default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		Workers:   3,
		QueueSize: 100,
		UserAgent: DefaultUserAgent,
	}
}

// NewDispatcher creates a dispatcher for the configured endpoints. Every
// endpoint must be a public http(s) URL unless AllowPrivateTargets is set.
func NewDispatcher(queries *store.Queries, logger *slog.Logger, cfg Config) (*Dispatcher, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.AllowPrivateTargets {
		for _, u := range cfg.Endpoints {
			if err := util.ValidateEndpointURL(u); err != nil {
				return nil, fmt.Errorf("webhook endpoint %q: %w", u, err)
			}
		}
	}

	return &Dispatcher{
		queries: queries,
		logger:  logger.With("service", "webhook"),
		cfg:     cfg,
		client:  newHTTPClient(cfg.AllowPrivateTargets),
		queue:   make(chan queuedDelivery, cfg.QueueSize),
		done:    make(chan struct{}),
	}, nil
}

// Enabled reports whether any endpoint is configured.
func (d *Dispatcher) Enabled() bool {
	return len(d.cfg.Endpoints) > 0
}

// Start starts the dispatcher workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	d.logger.Info("starting webhook dispatcher",
		"workers", d.cfg.Workers,
		"endpoints", len(d.cfg.Endpoints))

	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Stop stops the dispatcher and waits for workers to finish. Queued but
// unprocessed deliveries stay pending and are picked up by ProcessRetries.
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

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	d.logger.Debug("webhook worker started", "worker_id", id)

	for {
		select {
		case <-d.done:
			return
		case <-ctx.Done():
			return
		case qd := <-d.queue:
			d.processDelivery(ctx, qd)
		}
	}
}

// Dispatch records a pending delivery for every endpoint and queues them.
// When the dispatcher is stopped or the queue is full the rows stay
// pending for the retry sweep.
func (d *Dispatcher) Dispatch(ctx context.Context, event *Event) error {
	if !d.Enabled() {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal webhook event %s: %w", event.Type, err)
	}

	d.mu.RLock()
	running := d.running
	d.mu.RUnlock()

	now := d.cfg.Now().UTC()
	for _, endpoint := range d.cfg.Endpoints {
		delivery, err := d.queries.CreateWebhookDelivery(ctx, store.CreateWebhookDeliveryParams{
			Endpoint:  endpoint,
			Event:     event.Type,
			Payload:   string(payload),
			CreatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("create webhook delivery: %w", err)
		}

		d.logger.Debug("webhook delivery created",
			"delivery_id", delivery.ID,
			"endpoint", endpoint,
			"event", event.Type)

		if !running {
			continue
		}
		select {
		case d.queue <- queuedDelivery{DeliveryID: delivery.ID, Event: event.Type, Payload: payload, URL: endpoint}:
		default:
			d.logger.Warn("delivery queue full, delivery will be retried later",
				"category", model.EventCategoryWebhook,
				"delivery_id", delivery.ID)
		}
	}
	return nil
}

// StaleAfter is how long a pending delivery may wait for a worker before
// the retry sweep takes it over.
const StaleAfter = 5 * time.Minute

// RetryBatchSize bounds one retry sweep.
const RetryBatchSize = 50

// ProcessRetries delivers failed deliveries whose backoff has elapsed and
// pending ones that never reached a worker. It returns how many were
// attempted.
func (d *Dispatcher) ProcessRetries(ctx context.Context) (int, error) {
	now := d.cfg.Now().UTC()
	due, err := d.queries.ListDueDeliveries(ctx, now, now.Add(-StaleAfter), RetryBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list due webhook deliveries: %w", err)
	}
	for _, rec := range due {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		d.processDelivery(ctx, queuedDelivery{
			DeliveryID: rec.ID,
			Event:      rec.Event,
			Payload:    []byte(rec.Payload),
			URL:        rec.Endpoint,
		})
	}
	return len(due), nil
}

// Subscribe forwards every content change to sink.
func Subscribe(reg *hook.Registry, sink Sink) {
	reg.Subscribe(hook.ContentChanged, "queue-webhooks", "webhook", 30, func(ctx context.Context, data any) error {
		change, ok := data.(content.Change)
		if !ok {
			return nil
		}
		return sink.Dispatch(ctx, NewEvent(change))
	})
}
