// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/olegiv/institute-cms/internal/model"
	"github.com/olegiv/institute-cms/internal/store"
)

// Job names.
const (
	JobNoticeGoLive   = "notice-go-live"
	JobWebhookRetry   = "webhook-retry"
	JobRetentionPurge = "retention-purge"
)

// NoticeAnnouncer announces notices whose publish time falls in (after, until].
type NoticeAnnouncer interface {
	PublishDueNotices(ctx context.Context, after, until time.Time) (int, error)
}

// NoticeGoLiveJob announces scheduled notices once their time arrives.
// The first run covers the window since since; a failed run leaves the
// window open so the next run retries it.
func NoticeGoLiveJob(svc NoticeAnnouncer, since time.Time, now func() time.Time, logger *slog.Logger) Job {
	var mu sync.Mutex
	last := since.UTC()
	return Job{
		Name:        JobNoticeGoLive,
		Description: "Announce notices whose scheduled publish time has passed",
		Schedule:    "@every 1m",
		Run: func(ctx context.Context) error {
			mu.Lock()
			defer mu.Unlock()

			until := now().UTC().Truncate(time.Second)
			if !until.After(last) {
				return nil
			}
			n, err := svc.PublishDueNotices(ctx, last, until)
			if err != nil {
				return fmt.Errorf("publish due notices: %w", err)
			}
			last = until
			if n > 0 {
				logger.InfoContext(ctx, "scheduled notices went live",
					"category", model.EventCategoryScheduler,
					"count", n)
			}
			return nil
		},
	}
}

// RetryProcessor re-attempts due webhook deliveries.
type RetryProcessor interface {
	ProcessRetries(ctx context.Context) (int, error)
}

// WebhookRetryJob sweeps failed and stale webhook deliveries.
func WebhookRetryJob(p RetryProcessor, logger *slog.Logger) Job {
	return Job{
		Name:        JobWebhookRetry,
		Description: "Retry failed webhook deliveries whose backoff elapsed",
		Schedule:    "@every 1m",
		Run: func(ctx context.Context) error {
			n, err := p.ProcessRetries(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.DebugContext(ctx, "webhook retries processed", "count", n)
			}
			return nil
		},
	}
}

// Retention configures RetentionJob.
type Retention struct {
	EventLog   time.Duration
	Deliveries time.Duration
}

// EventPurger deletes event log rows older than a retention window.
type EventPurger interface {
	DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error)
}

// RetentionJob deletes event log rows and finished webhook deliveries older
// than their retention. A zero duration keeps rows forever.
func RetentionJob(events EventPurger, queries *store.Queries, r Retention, now func() time.Time, logger *slog.Logger) Job {
	return Job{
		Name:        JobRetentionPurge,
		Description: "Delete old event log rows and finished webhook deliveries",
		Schedule:    "@daily",
		Run: func(ctx context.Context) error {
			t := now().UTC()
			var errs []error
			if r.EventLog > 0 {
				n, err := events.DeleteOldEvents(ctx, r.EventLog)
				if err != nil {
					errs = append(errs, fmt.Errorf("purge event log: %w", err))
				} else if n > 0 {
					logger.InfoContext(ctx, "event log purged", "category", model.EventCategoryScheduler, "deleted", n)
				}
			}
			if r.Deliveries > 0 {
				n, err := queries.DeleteDeliveriesBefore(ctx, t.Add(-r.Deliveries))
				if err != nil {
					errs = append(errs, fmt.Errorf("purge webhook deliveries: %w", err))
				} else if n > 0 {
					logger.InfoContext(ctx, "webhook deliveries purged", "category", model.EventCategoryScheduler, "deleted", n)
				}
			}
			return errors.Join(errs...)
		},
	}
}
