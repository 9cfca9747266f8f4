// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the JSON HTTP handlers: sign-in, the admin
// content endpoints, the public pages, search and health checks.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/olegiv/institute-cms/internal/content"
	"github.com/olegiv/institute-cms/internal/middleware"
)

// MaxBodyBytes limits request bodies.
const MaxBodyBytes = 1 << 20

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a {"error": message} response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	middleware.WriteError(w, statusCode, message)
}

// statusFor maps a content error to an HTTP status. Unauthorized is 401
// for anonymous callers and 403 once signed in.
func statusFor(r *http.Request, err error) int {
	switch content.KindOf(err) {
	case content.KindUnauthorized:
		if middleware.GetPrincipal(r) == nil {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case content.KindNotFound:
		return http.StatusNotFound
	case content.KindConflict:
		return http.StatusConflict
	case content.KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeResult writes the uniform mutation result for entity and err.
func writeResult[T any](w http.ResponseWriter, r *http.Request, okStatus int, entity T, err error) {
	res := content.NewResult(entity, err)
	if err != nil {
		writeJSON(w, statusFor(r, err), res)
		return
	}
	writeJSON(w, okStatus, res)
}

// writeQueryError writes the error of a read operation.
func writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, statusFor(r, err), content.MessageOf(err))
}

// decodeJSON reads a JSON request body into dst. On failure it writes a
// 400 response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "Request body is required")
		default:
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
		}
		return false
	}
	if dec.More() {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// parseListOptions reads category, sort, from, to, limit and offset from
// the query string. Invalid numbers and dates are ignored.
func parseListOptions(r *http.Request, scope content.Scope) content.ListOptions {
	q := r.URL.Query()
	opts := content.ListOptions{
		Scope:    scope,
		Category: strings.TrimSpace(q.Get("category")),
		Sort:     strings.TrimSpace(q.Get("sort")),
		Limit:    queryInt(q.Get("limit")),
		Offset:   queryInt(q.Get("offset")),
	}
	opts.From = queryTime(q.Get("from"), false)
	opts.To = queryTime(q.Get("to"), true)
	return opts
}

func queryInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// queryTime accepts RFC 3339 timestamps and plain dates. A plain date is
// midnight UTC, or the last instant of that day when endOfDay is set so an
// inclusive upper bound covers the whole day.
func queryTime(s string, endOfDay bool) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t
}
