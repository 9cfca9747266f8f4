// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/olegiv/institute-cms/internal/content"
	"github.com/olegiv/institute-cms/internal/model"
)

// DebounceConfig holds debouncer configuration.
type DebounceConfig struct {
	// Interval is the debounce window duration.
	// Events within this window will be coalesced into a single event.
	Interval time.Duration
	// MaxWait is the maximum time to wait before dispatching.
	// Even if events keep coming, dispatch after this time.
	MaxWait time.Duration
}

// DefaultDebounceConfig returns default debounce configuration.
func DefaultDebounceConfig() DebounceConfig {
	return DebounceConfig{
		Interval: 1 * time.Second,
		MaxWait:  5 * time.Second,
	}
}

type pendingEvent struct {
	event     *Event
	timer     *time.Timer
	firstSeen time.Time
}

// Debouncer coalesces repeated events for the same row and type, so an
// editor saving a blog five times in a second sends one blog.updated.
// Deletes are sent at once and cancel pending events for the row.
type Debouncer struct {
	sink    Sink
	config  DebounceConfig
	pending map[string]*pendingEvent
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// NewDebouncer wraps dispatcher with a debounce window.
func NewDebouncer(dispatcher *Dispatcher, config DebounceConfig) *Debouncer {
	return newDebouncer(dispatcher, dispatcher.logger, config)
}

func newDebouncer(sink Sink, logger *slog.Logger, config DebounceConfig) *Debouncer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Debouncer{
		sink:    sink,
		config:  config,
		pending: make(map[string]*pendingEvent),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
	}
}

// Dispatch queues an event for debounced delivery. A pending event for the
// same key is replaced by the newer one and its timer restarts, unless it
// has already waited MaxWait.
func (d *Debouncer) Dispatch(_ context.Context, event *Event) error {
	key := event.key()
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if event.Data.Action == string(content.ActionDeleted) {
		// Pending events for a deleted row are dropped.
		for k, pe := range d.pending {
			if pe.event.Data.ID == event.Data.ID && pe.event.Data.Entity == event.Data.Entity {
				pe.timer.Stop()
				delete(d.pending, k)
			}
		}
		d.send(event)
		return nil
	}

	if existing, ok := d.pending[key]; ok {
		existing.event = mergeEvents(existing.event, event)
		if now.Sub(existing.firstSeen) >= d.config.MaxWait {
			d.dispatchLocked(key)
			return nil
		}
		existing.timer.Reset(d.config.Interval)
		d.logger.Debug("debounced event updated",
			"key", key,
			"event", event.Type,
			"wait_time", now.Sub(existing.firstSeen))
		return nil
	}

	pe := &pendingEvent{
		event:     event,
		firstSeen: now,
	}
	pe.timer = time.AfterFunc(d.config.Interval, func() {
		d.mu.Lock()
		d.dispatchLocked(key)
		d.mu.Unlock()
	})
	d.pending[key] = pe
	d.logger.Debug("debounced event queued", "key", key, "event", event.Type)
	return nil
}

// mergeEvents returns next carrying the earliest slug the row was renamed
// from inside the window, so consumers see one hop from the original slug.
func mergeEvents(prev, next *Event) *Event {
	from := prev.Data.PreviousSlug
	if from == "" {
		return next
	}
	merged := *next
	merged.Data.PreviousSlug = from
	if from == merged.Data.Slug {
		merged.Data.PreviousSlug = ""
	}
	return &merged
}

// dispatchLocked sends a pending event. Must be called with lock held.
func (d *Debouncer) dispatchLocked(key string) {
	pe, ok := d.pending[key]
	if !ok {
		return
	}
	pe.timer.Stop()
	delete(d.pending, key)
	d.send(pe.event)
}

func (d *Debouncer) send(event *Event) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.sink.Dispatch(d.ctx, event); err != nil {
			d.logger.Error("failed to dispatch debounced event",
				"category", model.EventCategoryWebhook,
				"error", err,
				"event", event.Type)
		}
	}()
}

// Flush immediately dispatches all pending events.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key := range d.pending {
		d.dispatchLocked(key)
	}
}

// Stop flushes pending events and waits for them to be dispatched.
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
