// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package hook is an in-process publish/subscribe registry. Content
// mutations are announced on ContentChanged and consumed by the page cache,
// the search index, webhooks and the event log.
package hook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Hook names.
const (
	// ContentChanged carries a content.Change after every successful mutation
	// and when a scheduled notice goes live.
	ContentChanged = "content.changed"
)

// Func handles a hook call. Call threads the returned value to the next
// handler; Notify ignores it.
type Func func(ctx context.Context, data any) (any, error)

// Handler wraps a Func with metadata.
type Handler struct {
	Name     string // Name of the handler for debugging
	Owner    string // Component that registered the handler
	Priority int    // Lower priority runs first (default: 0)
	Fn       Func
}

// Registry manages hook registration and execution.
type Registry struct {
	hooks  map[string][]Handler
	logger *slog.Logger
	mu     sync.RWMutex
}

// NewRegistry creates a new hook registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		hooks:  make(map[string][]Handler),
		logger: logger,
	}
}

// Register adds a handler for the given hook name.
func (r *Registry) Register(hookName string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Copy so slices handed out by handlers() are never mutated.
	handlers := make([]Handler, 0, len(r.hooks[hookName])+1)
	handlers = append(handlers, r.hooks[hookName]...)
	handlers = append(handlers, handler)
	sort.SliceStable(handlers, func(i, j int) bool {
		return handlers[i].Priority < handlers[j].Priority
	})
	r.hooks[hookName] = handlers

	r.logger.Debug("hook registered",
		"hook", hookName,
		"handler", handler.Name,
		"owner", handler.Owner,
		"priority", handler.Priority,
	)
}

// Subscribe registers a notification handler that does not return data.
func (r *Registry) Subscribe(hookName, handlerName, owner string, priority int, fn func(ctx context.Context, data any) error) {
	r.Register(hookName, Handler{
		Name:     handlerName,
		Owner:    owner,
		Priority: priority,
		Fn: func(ctx context.Context, data any) (any, error) {
			return data, fn(ctx, data)
		},
	})
}

func (r *Registry) handlers(hookName string) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hooks[hookName]
}

// Call executes handlers in priority order, passing each handler's result
// to the next. The first error stops the chain.
func (r *Registry) Call(ctx context.Context, hookName string, data any) (any, error) {
	handlers := r.handlers(hookName)
	if len(handlers) == 0 {
		return data, nil
	}

	current := data
	for _, h := range handlers {
		result, err := h.Fn(ctx, current)
		if err != nil {
			r.logger.Error("hook handler error",
				"hook", hookName,
				"handler", h.Name,
				"owner", h.Owner,
				"error", err,
			)
			return nil, fmt.Errorf("hook %s handler %s: %w", hookName, h.Name, err)
		}
		current = result
	}
	return current, nil
}

// Notify delivers data to every handler. A failing or panicking handler is
// logged and does not prevent the others from running. The returned error
// joins all handler errors.
func (r *Registry) Notify(ctx context.Context, hookName string, data any) error {
	var errs []error
	for _, h := range r.handlers(hookName) {
		if err := r.notifyOne(ctx, hookName, h, data); err != nil {
			r.logger.Warn("hook subscriber failed",
				"hook", hookName,
				"handler", h.Name,
				"owner", h.Owner,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%s: %w", h.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) notifyOne(ctx context.Context, hookName string, h Handler, data any) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in hook %s: %v", hookName, rec)
		}
	}()
	_, err = h.Fn(ctx, data)
	return err
}

// HasHandlers returns true if there are handlers registered for the hook.
func (r *Registry) HasHandlers(hookName string) bool {
	return len(r.handlers(hookName)) > 0
}

// HandlerCount returns the number of handlers registered for a hook.
func (r *Registry) HandlerCount(hookName string) int {
	return len(r.handlers(hookName))
}

// Unregister removes all handlers for a hook registered by owner.
func (r *Registry) Unregister(hookName, owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := make([]Handler, 0, len(r.hooks[hookName]))
	for _, h := range r.hooks[hookName] {
		if h.Owner != owner {
			kept = append(kept, h)
		}
	}
	r.hooks[hookName] = kept

	r.logger.Debug("hooks unregistered", "hook", hookName, "owner", owner, "remaining", len(kept))
}
