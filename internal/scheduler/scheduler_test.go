// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/institute-cms/internal/content"
	"github.com/olegiv/institute-cms/internal/model"
	"github.com/olegiv/institute-cms/internal/service"
	"github.com/olegiv/institute-cms/internal/store"
	"github.com/olegiv/institute-cms/internal/testutil"
)

var testStart = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func TestAdd_Validation(t *testing.T) {
	s := New(testutil.TestLoggerSilent())
	defer s.Stop()

	noop := func(context.Context) error { return nil }
	require.NoError(t, s.Add(Job{Name: "a", Schedule: "@every 1h", Run: noop}))

	tests := []struct {
		name string
		job  Job
	}{
		{"duplicate", Job{Name: "a", Schedule: "@every 1h", Run: noop}},
		{"bad schedule", Job{Name: "b", Schedule: "not cron", Run: noop}},
		{"no name", Job{Schedule: "@every 1h", Run: noop}},
		{"no func", Job{Name: "c", Schedule: "@every 1h"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Add(tt.job); err == nil {
				t.Errorf("Add(%s) succeeded, want error", tt.name)
			}
		})
	}
	assert.Len(t, s.List(), 1)
}

func TestTriggerNow(t *testing.T) {
	s := New(testutil.TestLoggerSilent())
	defer s.Stop()

	calls := 0
	boom := errors.New("boom")
	require.NoError(t, s.Add(Job{Name: "count", Schedule: "@every 1h", Run: func(context.Context) error {
		calls++
		if calls == 1 {
			return boom
		}
		return nil
	}}))

	require.ErrorIs(t, s.TriggerNow(context.Background(), "count"), boom)
	assert.Equal(t, "boom", s.List()[0].LastError)

	require.NoError(t, s.TriggerNow(context.Background(), "count"))
	assert.Empty(t, s.List()[0].LastError)
	assert.Equal(t, 2, calls)

	assert.ErrorIs(t, s.TriggerNow(context.Background(), "missing"), ErrJobNotFound)
}

func TestStartStop(t *testing.T) {
	s := New(testutil.TestLoggerSilent())
	require.NoError(t, s.Add(Job{Name: "tick", Schedule: "@every 1h", Run: func(context.Context) error { return nil }}))
	s.Start()
	s.Start()

	jobs := s.List()
	require.Len(t, jobs, 1)
	assert.False(t, jobs[0].NextRun.IsZero())

	s.Stop()
	s.Stop()
}

type fakeAnnouncer struct {
	mu      sync.Mutex
	windows [][2]time.Time
	err     error
}

func (f *fakeAnnouncer) PublishDueNotices(_ context.Context, after, until time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows = append(f.windows, [2]time.Time{after, until})
	return 0, f.err
}

func TestNoticeGoLiveJob_Windows(t *testing.T) {
	clock := testutil.NewClock(testStart)
	ann := &fakeAnnouncer{}
	job := NoticeGoLiveJob(ann, testStart, clock.Now, testutil.TestLoggerSilent())
	ctx := context.Background()

	// Clock has not moved: nothing to announce.
	require.NoError(t, job.Run(ctx))
	assert.Empty(t, ann.windows)

	clock.Advance(time.Minute)
	require.NoError(t, job.Run(ctx))

	// A failed run keeps the window open.
	ann.err = errors.New("db down")
	clock.Advance(time.Minute)
	require.Error(t, job.Run(ctx))

	ann.err = nil
	clock.Advance(time.Minute)
	require.NoError(t, job.Run(ctx))

	require.Len(t, ann.windows, 3)
	assert.Equal(t, [2]time.Time{testStart, testStart.Add(time.Minute)}, ann.windows[0])
	assert.Equal(t, [2]time.Time{testStart.Add(time.Minute), testStart.Add(3 * time.Minute)}, ann.windows[2])
}

type recorder struct {
	mu      sync.Mutex
	changes []content.Change
}

func (r *recorder) Publish(_ context.Context, c content.Change) {
	r.mu.Lock()
	r.changes = append(r.changes, c)
	r.mu.Unlock()
}

func TestNoticeGoLiveJob_AnnouncesScheduledNotice(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	clock := testutil.NewClock(testStart)
	rec := &recorder{}
	svc := content.NewService(db, testutil.TestLoggerSilent(), content.WithPublisher(rec), content.WithClock(clock.Now))
	_, admin := testutil.CreateUser(t, db, "Ada Admin", model.RoleAdmin)
	ctx := context.Background()

	at := testStart.Add(10 * time.Minute)
	notice, err := svc.CreateNotice(ctx, admin, content.NoticeInput{
		Title:       "Exam Schedule",
		Content:     "Exams start Monday.",
		IsPublished: true,
		PublishedAt: &at,
	})
	require.NoError(t, err)

	job := NoticeGoLiveJob(svc, testStart, clock.Now, testutil.TestLoggerSilent())
	clock.Advance(5 * time.Minute)
	require.NoError(t, job.Run(ctx))
	clock.Advance(10 * time.Minute)
	require.NoError(t, job.Run(ctx))
	clock.Advance(10 * time.Minute)
	require.NoError(t, job.Run(ctx))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	var live []content.Change
	for _, c := range rec.changes {
		if c.Action == content.ActionWentLive {
			live = append(live, c)
		}
	}
	require.Len(t, live, 1, "announced exactly once")
	assert.Equal(t, notice.ID, live[0].ID)
	assert.Equal(t, "notice.went_live", live[0].EventName())
	assert.Contains(t, live[0].Paths, "/notices/exam-schedule")
}

type fakeRetrier struct{ n int }

func (f *fakeRetrier) ProcessRetries(context.Context) (int, error) { f.n++; return 2, nil }

func TestWebhookRetryJob(t *testing.T) {
	r := &fakeRetrier{}
	job := WebhookRetryJob(r, testutil.TestLoggerSilent())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, r.n)
	assert.Equal(t, JobWebhookRetry, job.Name)
}

func TestRetentionJob(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	q := store.New(db)
	ctx := context.Background()

	now := time.Now().UTC()
	for _, at := range []time.Time{now.Add(-100 * 24 * time.Hour), now.Add(-time.Hour)} {
		_, err := q.CreateLogEntry(ctx, store.CreateLogEntryParams{
			Level: model.EventLevelInfo, Category: model.EventCategorySystem, Message: "m", Metadata: "{}", CreatedAt: at,
		})
		require.NoError(t, err)
	}
	d, err := q.CreateWebhookDelivery(ctx, store.CreateWebhookDeliveryParams{
		Endpoint: "https://example.com/hook", Event: "blog.created", Payload: "{}", CreatedAt: testStart.Add(-40 * 24 * time.Hour),
	})
	require.NoError(t, err)
	require.NoError(t, q.UpdateDeliverySuccess(ctx, d.ID, 200, "ok", testStart.Add(-40*24*time.Hour)))

	events := service.NewEventService(db, testutil.TestLoggerSilent())
	job := RetentionJob(events, q, Retention{EventLog: 90 * 24 * time.Hour, Deliveries: 30 * 24 * time.Hour},
		func() time.Time { return testStart }, testutil.TestLoggerSilent())
	require.NoError(t, job.Run(ctx))

	logs, err := q.ListLogEntries(ctx, store.LogFilter{})
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	deliveries, err := q.ListRecentDeliveries(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, deliveries)
}
