// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/institute-cms/internal/content"
	"github.com/olegiv/institute-cms/internal/hook"
	"github.com/olegiv/institute-cms/internal/model"
	"github.com/olegiv/institute-cms/internal/store"
	"github.com/olegiv/institute-cms/internal/testutil"
	"github.com/olegiv/institute-cms/internal/util"
)

func TestGenerateSignature(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		secret  string
	}{
		{"empty payload", []byte{}, "secret"},
		{"simple payload", []byte(`{"event":"test"}`), "mysecret"},
		{"event payload", []byte(`{"type":"blog.created","data":{"id":"abc","slug":"hello"}}`), "webhook-secret-key"},
		{"empty secret", []byte(`test`), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GenerateSignature(tt.payload, tt.secret)
			if len(result) != 64 {
				t.Errorf("GenerateSignature() returned signature with length %d, expected 64", len(result))
			}
			if again := GenerateSignature(tt.payload, tt.secret); result != again {
				t.Errorf("GenerateSignature() not consistent: %s != %s", result, again)
			}
		})
	}
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"title":"Тест","content":"日本語"}`)
	secret := "unicode-secret-ключ"
	signature := GenerateSignature(payload, secret)

	if !VerifySignature(payload, signature, secret) {
		t.Error("VerifySignature() = false for a matching signature")
	}
	if VerifySignature(payload, signature, "wrong-secret") {
		t.Error("VerifySignature() should return false with wrong secret")
	}

	for _, bad := range []string{"", "not-a-valid-hex-string", "abc123", strings.Repeat("0", 64)} {
		if VerifySignature(payload, bad, secret) {
			t.Errorf("VerifySignature(%q) = true, want false", bad)
		}
	}
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		attempt  int64
		expected time.Duration
	}{
		{0, 1 * time.Minute},
		{1, 1 * time.Minute},
		{2, 2 * time.Minute},
		{3, 4 * time.Minute},
		{4, 8 * time.Minute},
		{10, 512 * time.Minute},
		{15, 24 * time.Hour},
		{20, 24 * time.Hour},
	}

	for _, tt := range tests {
		if got := calculateBackoff(tt.attempt); got != tt.expected {
			t.Errorf("calculateBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
		}
	}
}

func TestNewEvent(t *testing.T) {
	at := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	ev := NewEvent(content.Change{
		Entity:       model.EntityNotice,
		Action:       content.ActionToggled,
		Field:        "pinned",
		ID:           "n1",
		Slug:         "exam-schedule",
		PreviousSlug: "",
		Visible:      true,
		At:           at,
	})

	assert.Equal(t, "notice.toggled", ev.Type)
	assert.Equal(t, at, ev.Timestamp)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "pinned", ev.Data.Field)
	assert.Equal(t, "notice.toggled:n1", ev.key())

	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"notice.toggled"`)
	assert.NotContains(t, string(raw), "previous_slug")
}

func TestNewDispatcher_RejectsPrivateEndpoint(t *testing.T) {
	_, err := NewDispatcher(nil, testutil.TestLoggerSilent(), Config{
		Endpoints: []string{"http://127.0.0.1:9000/hook"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrBlockedAddress)
}

type receiver struct {
	mu      sync.Mutex
	status  int
	bodies  [][]byte
	headers []http.Header
}

func (r *receiver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.bodies = append(r.bodies, body)
	r.headers = append(r.headers, req.Header.Clone())
	status := r.status
	r.mu.Unlock()
	w.WriteHeader(status)
	_, _ = w.Write([]byte("ok"))
}

func (r *receiver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bodies)
}

type dispatchFixture struct {
	queries *store.Queries
	clock   *testutil.Clock
	d       *Dispatcher
	recv    *receiver
}

func newDispatchFixture(t *testing.T, status int) *dispatchFixture {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	recv := &receiver{status: status}
	srv := httptest.NewServer(recv)
	t.Cleanup(srv.Close)

	clock := testutil.NewClock(time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC))
	queries := store.New(db)
	d, err := NewDispatcher(queries, testutil.TestLoggerSilent(), Config{
		Endpoints:           []string{srv.URL + "/hook"},
		Secret:              "s3cret",
		Workers:             1,
		AllowPrivateTargets: true,
		Now:                 clock.Now,
	})
	require.NoError(t, err)
	return &dispatchFixture{queries: queries, clock: clock, d: d, recv: recv}
}

func blogEvent(id string) *Event {
	return NewEvent(content.Change{
		Entity: model.EntityBlog,
		Action: content.ActionCreated,
		ID:     id,
		Slug:   "hello",
		At:     time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
	})
}

func TestDispatcher_DeliversSignedEvent(t *testing.T) {
	f := newDispatchFixture(t, http.StatusOK)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.d.Start(ctx)
	defer f.d.Stop()

	require.NoError(t, f.d.Dispatch(ctx, blogEvent("b1")))

	require.Eventually(t, func() bool {
		rows, err := f.queries.ListRecentDeliveries(ctx, 10)
		return err == nil && len(rows) == 1 && rows[0].Status == store.DeliveryDelivered
	}, 5*time.Second, 20*time.Millisecond)

	f.recv.mu.Lock()
	defer f.recv.mu.Unlock()
	require.Len(t, f.recv.bodies, 1)
	h := f.recv.headers[0]
	assert.Equal(t, "blog.created", h.Get(HeaderEvent))
	assert.Equal(t, "application/json", h.Get("Content-Type"))
	assert.Equal(t, "sha256="+GenerateSignature(f.recv.bodies[0], "s3cret"), h.Get(HeaderSignature))
}

func TestDispatcher_RetryThenDead(t *testing.T) {
	f := newDispatchFixture(t, http.StatusServiceUnavailable)
	ctx := context.Background()

	// Not started: the delivery waits for the retry sweep.
	require.NoError(t, f.d.Dispatch(ctx, blogEvent("b1")))
	n, err := f.d.ProcessRetries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "fresh pending delivery is not stale yet")

	f.clock.Advance(StaleAfter + time.Second)
	for attempt := int64(1); attempt <= MaxAttempts; attempt++ {
		n, err = f.d.ProcessRetries(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, n, "attempt %d", attempt)

		rows, err := f.queries.ListRecentDeliveries(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, attempt, rows[0].Attempts)
		assert.EqualValues(t, http.StatusServiceUnavailable, rows[0].ResponseCode)
		if attempt < MaxAttempts {
			assert.Equal(t, store.DeliveryFailed, rows[0].Status)
			require.NotNil(t, rows[0].NextRetryAt)
			assert.Equal(t, f.clock.Now().Add(calculateBackoff(attempt)), rows[0].NextRetryAt.UTC())
		} else {
			assert.Equal(t, store.DeliveryDead, rows[0].Status)
		}
		f.clock.Advance(MaxBackoff)
	}

	n, err = f.d.ProcessRetries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, MaxAttempts, f.recv.count())
}

func TestDispatcher_ClientErrorIsFinal(t *testing.T) {
	f := newDispatchFixture(t, http.StatusGone)
	ctx := context.Background()

	require.NoError(t, f.d.Dispatch(ctx, blogEvent("b1")))
	f.clock.Advance(StaleAfter + time.Second)
	_, err := f.d.ProcessRetries(ctx)
	require.NoError(t, err)

	rows, err := f.queries.ListRecentDeliveries(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, store.DeliveryDead, rows[0].Status)
	assert.Contains(t, rows[0].ErrorMessage, "410")
}

func TestDispatcher_NoEndpoints(t *testing.T) {
	d, err := NewDispatcher(nil, testutil.TestLoggerSilent(), DefaultConfig())
	require.NoError(t, err)
	assert.False(t, d.Enabled())
	assert.NoError(t, d.Dispatch(context.Background(), blogEvent("b1")))
}

func TestSubscribe_ForwardsContentChanges(t *testing.T) {
	reg := hook.NewRegistry(testutil.TestLoggerSilent())
	sink := &recordingSink{}
	Subscribe(reg, sink)

	change := content.Change{Entity: model.EntityEvent, Action: content.ActionDeleted, ID: "e1"}
	require.NoError(t, reg.Notify(context.Background(), hook.ContentChanged, change))
	require.NoError(t, reg.Notify(context.Background(), hook.ContentChanged, "not a change"))

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, "event.deleted", events[0].Type)
}

type recordingSink struct {
	mu     sync.Mutex
	events []*Event
	calls  atomic.Int32
}

func (s *recordingSink) Dispatch(_ context.Context, e *Event) error {
	s.calls.Add(1)
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) all() []*Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Event(nil), s.events...)
}

func TestDefaultDebounceConfig(t *testing.T) {
	cfg := DefaultDebounceConfig()
	if cfg.Interval != time.Second {
		t.Errorf("Interval = %v, want 1s", cfg.Interval)
	}
	if cfg.MaxWait != 5*time.Second {
		t.Errorf("MaxWait = %v, want 5s", cfg.MaxWait)
	}
}

func TestDebouncer_CoalescesSameRow(t *testing.T) {
	sink := &recordingSink{}
	deb := newDebouncer(sink, testutil.TestLoggerSilent(), DebounceConfig{Interval: 50 * time.Millisecond, MaxWait: time.Minute})
	ctx := context.Background()

	for _, slug := range []string{"a", "b", "c"} {
		ev := blogEvent("b1")
		ev.Data.Slug = slug
		require.NoError(t, deb.Dispatch(ctx, ev))
	}
	require.NoError(t, deb.Dispatch(ctx, blogEvent("b2")))
	assert.Equal(t, 2, deb.PendingCount())

	require.Eventually(t, func() bool { return sink.calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	deb.Stop()

	slugs := map[string]string{}
	for _, e := range sink.all() {
		slugs[e.Data.ID] = e.Data.Slug
	}
	assert.Equal(t, "c", slugs["b1"], "latest data wins")
	assert.Equal(t, 0, deb.PendingCount())
}

func TestDebouncer_RenameChainKeepsOriginalSlug(t *testing.T) {
	sink := &recordingSink{}
	deb := newDebouncer(sink, testutil.TestLoggerSilent(), DebounceConfig{Interval: time.Hour, MaxWait: time.Hour})
	ctx := context.Background()

	rename := func(from, to string) *Event {
		return NewEvent(content.Change{
			Entity: model.EntityBlog, Action: content.ActionUpdated,
			ID: "b1", Slug: to, PreviousSlug: from,
		})
	}
	require.NoError(t, deb.Dispatch(ctx, rename("alpha", "beta")))
	require.NoError(t, deb.Dispatch(ctx, rename("beta", "gamma")))
	require.NoError(t, deb.Dispatch(ctx, rename("", "gamma")))
	deb.Stop()

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, "gamma", events[0].Data.Slug)
	assert.Equal(t, "alpha", events[0].Data.PreviousSlug)
}

func TestDebouncer_RenameBackClearsPreviousSlug(t *testing.T) {
	sink := &recordingSink{}
	deb := newDebouncer(sink, testutil.TestLoggerSilent(), DebounceConfig{Interval: time.Hour, MaxWait: time.Hour})
	ctx := context.Background()

	for _, hop := range [][2]string{{"alpha", "beta"}, {"beta", "alpha"}} {
		require.NoError(t, deb.Dispatch(ctx, NewEvent(content.Change{
			Entity: model.EntityBlog, Action: content.ActionUpdated,
			ID: "b1", Slug: hop[1], PreviousSlug: hop[0],
		})))
	}
	deb.Stop()

	events := sink.all()
	require.Len(t, events, 1)
	assert.Empty(t, events[0].Data.PreviousSlug)
}

func TestDebouncer_TogglesOfDifferentFieldsAreKept(t *testing.T) {
	sink := &recordingSink{}
	deb := newDebouncer(sink, testutil.TestLoggerSilent(), DebounceConfig{Interval: time.Hour, MaxWait: time.Hour})
	ctx := context.Background()

	for _, field := range []string{"pinned", "published", "pinned"} {
		require.NoError(t, deb.Dispatch(ctx, NewEvent(content.Change{
			Entity: model.EntityNotice, Action: content.ActionToggled,
			ID: "n1", Slug: "exam", Field: field,
		})))
	}
	assert.Equal(t, 2, deb.PendingCount())
	deb.Stop()

	fields := map[string]bool{}
	for _, e := range sink.all() {
		assert.Equal(t, "notice.toggled", e.Type)
		fields[e.Data.Field] = true
	}
	assert.Equal(t, map[string]bool{"pinned": true, "published": true}, fields)
}

func TestDebouncer_DeleteDropsPending(t *testing.T) {
	sink := &recordingSink{}
	deb := newDebouncer(sink, testutil.TestLoggerSilent(), DebounceConfig{Interval: time.Hour, MaxWait: time.Hour})
	ctx := context.Background()

	require.NoError(t, deb.Dispatch(ctx, blogEvent("b1")))
	del := NewEvent(content.Change{Entity: model.EntityBlog, Action: content.ActionDeleted, ID: "b1"})
	require.NoError(t, deb.Dispatch(ctx, del))
	deb.Stop()

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, "blog.deleted", events[0].Type)
}

func TestDebouncer_StopFlushes(t *testing.T) {
	sink := &recordingSink{}
	deb := newDebouncer(sink, testutil.TestLoggerSilent(), DebounceConfig{Interval: time.Hour, MaxWait: time.Hour})

	require.NoError(t, deb.Dispatch(context.Background(), blogEvent("b1")))
	deb.Stop()
	assert.Len(t, sink.all(), 1)
}
