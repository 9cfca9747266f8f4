// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import "errors"

// Result is the uniform mutation outcome handed to callers: either
// {success, entity} or {error}, never both.
type Result[T any] struct {
	Success bool         `json:"success,omitempty"`
	Entity  *T           `json:"entity,omitempty"`
	Error   string       `json:"error,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// NewResult builds a Result from an operation's return values.
func NewResult[T any](entity T, err error) Result[T] {
	if err != nil {
		r := Result[T]{Error: MessageOf(err)}
		var e *Error
		if errors.As(err, &e) {
			r.Fields = e.Fields
		}
		return r
	}
	return Result[T]{Success: true, Entity: &entity}
}

// DeleteResult is the outcome of a delete, which returns no entity.
type DeleteResult struct {
	Success bool   `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewDeleteResult builds a DeleteResult from a delete's error.
func NewDeleteResult(err error) DeleteResult {
	if err != nil {
		return DeleteResult{Error: MessageOf(err)}
	}
	return DeleteResult{Success: true}
}
