// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the background jobs: announcing notices whose
// scheduled publish time arrived, retrying webhook deliveries and purging
// old log rows.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/institute-cms/internal/model"
)

// ErrJobNotFound is returned by TriggerNow for an unknown job name.
var ErrJobNotFound = errors.New("scheduler: job not found")

// Job is a named unit of scheduled work.
type Job struct {
	Name        string
	Description string
	Schedule    string // cron expression or descriptor such as "@every 1m"
	Run         func(ctx context.Context) error
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Schedule    string    `json:"schedule"`
	LastRun     time.Time `json:"last_run"`
	NextRun     time.Time `json:"next_run"`
	LastError   string    `json:"last_error,omitempty"`
}

type registeredJob struct {
	Job
	entryID cron.EntryID
	runMu   sync.Mutex // serialises runs of this job

	mu        sync.Mutex
	lastError string
}

func (rj *registeredJob) setError(err error) {
	rj.mu.Lock()
	defer rj.mu.Unlock()
	if err != nil {
		rj.lastError = err.Error()
	} else {
		rj.lastError = ""
	}
}

// Scheduler wraps a cron instance running in UTC.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.RWMutex
	jobs    map[string]*registeredJob
	started bool
}

// New creates a new scheduler instance.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("service", "scheduler")
	ctx, cancel := context.WithCancel(context.Background())
	cl := cronLogger{logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*registeredJob),
	}
}

// Add registers job. Names must be unique.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("scheduler: job needs a name and a run function")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.Name]; ok {
		return fmt.Errorf("scheduler: job %q already registered", job.Name)
	}
	rj := &registeredJob{Job: job}
	id, err := s.cron.AddFunc(job.Schedule, func() { s.run(s.ctx, rj) })
	if err != nil {
		return fmt.Errorf("scheduler: invalid schedule %q for %s: %w", job.Schedule, job.Name, err)
	}
	rj.entryID = id
	s.jobs[job.Name] = rj

	s.logger.Debug("registered scheduled job", "name", job.Name, "schedule", job.Schedule)
	return nil
}

func (s *Scheduler) run(ctx context.Context, rj *registeredJob) error {
	rj.runMu.Lock()
	defer rj.runMu.Unlock()

	start := time.Now()
	err := rj.Run(ctx)
	rj.setError(err)
	if err != nil {
		s.logger.ErrorContext(ctx, "scheduled job failed",
			"category", model.EventCategoryScheduler,
			"job", rj.Name,
			"error", err)
		return err
	}
	s.logger.Debug("scheduled job finished", "job", rj.Name, "duration", time.Since(start))
	return nil
}

// Start begins running jobs on their schedules.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.jobs))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()

	s.cancel()
	if !started {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// TriggerNow runs the named job immediately and returns its error.
func (s *Scheduler) TriggerNow(ctx context.Context, name string) error {
	s.mu.RLock()
	rj, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	s.logger.Info("manually triggering job", "job", name)
	return s.run(ctx, rj)
}

// List returns all registered jobs sorted by name.
func (s *Scheduler) List() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]JobInfo, 0, len(s.jobs))
	for _, rj := range s.jobs {
		entry := s.cron.Entry(rj.entryID)
		rj.mu.Lock()
		lastErr := rj.lastError
		rj.mu.Unlock()
		result = append(result, JobInfo{
			Name:        rj.Name,
			Description: rj.Description,
			Schedule:    rj.Schedule,
			LastRun:     entry.Prev,
			NextRun:     entry.Next,
			LastError:   lastErr,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// cronLogger routes cron's own logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	args := append([]any{"category", model.EventCategoryScheduler, "error", err}, keysAndValues...)
	l.logger.Error("cron: "+msg, args...)
}
