// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"errors"
	"strings"

	"github.com/olegiv/institute-cms/internal/auth"
	"github.com/olegiv/institute-cms/internal/model"
)

// Sentinel errors matched with errors.Is.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation error")
	ErrInternal     = errors.New("internal error")
)

// Kind classifies an Error.
type Kind int

// Error kinds.
const (
	KindInternal Kind = iota
	KindUnauthorized
	KindNotFound
	KindConflict
	KindValidation
)

func (k Kind) sentinel() error {
	switch k {
	case KindUnauthorized:
		return ErrUnauthorized
	case KindNotFound:
		return ErrNotFound
	case KindConflict:
		return ErrConflict
	case KindValidation:
		return ErrValidation
	default:
		return ErrInternal
	}
}

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is returned by every Service operation. Message is safe to show
// to the caller verbatim; infrastructure causes are logged, not carried.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
}

func (e *Error) Error() string { return e.Message }

// Unwrap exposes the kind's sentinel.
func (e *Error) Unwrap() error { return e.Kind.sentinel() }

// KindOf returns the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Something went wrong"
}

func unauthorized(d auth.Decision) *Error {
	reason := d.Reason
	if reason == "" {
		reason = auth.ReasonUnauthorized
	}
	return &Error{Kind: KindUnauthorized, Message: reason}
}

func notFound(entity model.Entity) *Error {
	return &Error{Kind: KindNotFound, Message: entity.Label() + " not found"}
}

func conflict(entity model.Entity) *Error {
	return &Error{Kind: KindConflict, Message: article(entity) + " " + strings.ToLower(entity.Label()) + " with this title already exists"}
}

func internal(verb string, entity model.Entity) *Error {
	return &Error{Kind: KindInternal, Message: "Failed to " + verb + " " + strings.ToLower(entity.Label())}
}

func validation(fields ...FieldError) *Error {
	msg := "Invalid input"
	if len(fields) > 0 {
		msg = fields[0].Message
	}
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

func article(entity model.Entity) string {
	if entity == model.EntityEvent {
		return "An"
	}
	return "A"
}
