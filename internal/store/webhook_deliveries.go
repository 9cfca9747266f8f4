// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

// Webhook delivery states.
const (
	DeliveryPending   = "pending"
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
	DeliveryDead      = "dead"
)

const deliveryColumns = `id, endpoint, event, payload, status, attempts, response_code, response_body,
	error_message, next_retry_at, delivered_at, created_at, updated_at`

func scanDelivery(row rowScanner) (WebhookDelivery, error) {
	var d WebhookDelivery
	err := row.Scan(&d.ID, &d.Endpoint, &d.Event, &d.Payload, &d.Status, &d.Attempts, &d.ResponseCode,
		&d.ResponseBody, &d.ErrorMessage, &d.NextRetryAt, &d.DeliveredAt, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

// CreateWebhookDeliveryParams holds the columns of a new delivery.
type CreateWebhookDeliveryParams struct {
	Endpoint  string
	Event     string
	Payload   string
	CreatedAt time.Time
}

// CreateWebhookDelivery records a pending delivery.
func (q *Queries) CreateWebhookDelivery(ctx context.Context, arg CreateWebhookDeliveryParams) (WebhookDelivery, error) {
	now := arg.CreatedAt.UTC()
	row := q.db.QueryRowContext(ctx, `INSERT INTO webhook_deliveries (
		endpoint, event, payload, status, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?)
	RETURNING `+deliveryColumns,
		arg.Endpoint, arg.Event, arg.Payload, DeliveryPending, now, now)
	return scanDelivery(row)
}

// GetWebhookDelivery returns a delivery by id.
func (q *Queries) GetWebhookDelivery(ctx context.Context, id int64) (WebhookDelivery, error) {
	return scanDelivery(q.db.QueryRowContext(ctx,
		`SELECT `+deliveryColumns+` FROM webhook_deliveries WHERE id = ?`, id))
}

// UpdateDeliverySuccess marks a delivery as delivered.
func (q *Queries) UpdateDeliverySuccess(ctx context.Context, id int64, code int, body string, at time.Time) error {
	_, err := q.db.ExecContext(ctx, `UPDATE webhook_deliveries SET
		status = ?, attempts = attempts + 1, response_code = ?, response_body = ?,
		error_message = '', next_retry_at = NULL, delivered_at = ?, updated_at = ?
	WHERE id = ?`,
		DeliveryDelivered, code, body, at.UTC(), at.UTC(), id)
	return err
}

// UpdateDeliveryRetryParams records a failed attempt that will be retried.
type UpdateDeliveryRetryParams struct {
	ID           int64
	ResponseCode int
	ResponseBody string
	ErrorMessage string
	NextRetryAt  time.Time
	UpdatedAt    time.Time
}

// UpdateDeliveryRetry counts a failed attempt and schedules the next one.
func (q *Queries) UpdateDeliveryRetry(ctx context.Context, arg UpdateDeliveryRetryParams) error {
	_, err := q.db.ExecContext(ctx, `UPDATE webhook_deliveries SET
		status = ?, attempts = attempts + 1, response_code = ?, response_body = ?,
		error_message = ?, next_retry_at = ?, updated_at = ?
	WHERE id = ?`,
		DeliveryFailed, arg.ResponseCode, arg.ResponseBody, arg.ErrorMessage,
		arg.NextRetryAt.UTC(), arg.UpdatedAt.UTC(), arg.ID)
	return err
}

// UpdateDeliveryDead counts a final failed attempt and stops retrying.
func (q *Queries) UpdateDeliveryDead(ctx context.Context, id int64, code int, errMsg string, at time.Time) error {
	_, err := q.db.ExecContext(ctx, `UPDATE webhook_deliveries SET
		status = ?, attempts = attempts + 1, response_code = ?, error_message = ?,
		next_retry_at = NULL, updated_at = ?
	WHERE id = ?`,
		DeliveryDead, code, errMsg, at.UTC(), id)
	return err
}

// ListDueDeliveries returns failed deliveries whose retry time has passed,
// plus pending ones older than staleBefore that never got a worker.
func (q *Queries) ListDueDeliveries(ctx context.Context, now, staleBefore time.Time, limit int) ([]WebhookDelivery, error) {
	b := psql.Select(deliveryColumns).
		From("webhook_deliveries").
		Where("(status = ? AND next_retry_at <= ?) OR (status = ? AND created_at < ?)",
			DeliveryFailed, now.UTC(), DeliveryPending, staleBefore.UTC()).
		OrderBy("id ASC").
		Limit(uint64(limit))
	return queryRows(ctx, q.db, b, scanDelivery)
}

// ListRecentDeliveries returns the newest deliveries first.
func (q *Queries) ListRecentDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	b := psql.Select(deliveryColumns).From("webhook_deliveries").OrderBy("id DESC").Limit(uint64(limit))
	return queryRows(ctx, q.db, b, scanDelivery)
}

// DeleteDeliveriesBefore removes finished deliveries older than cutoff.
func (q *Queries) DeleteDeliveriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM webhook_deliveries WHERE status IN (?, ?) AND updated_at < ?`,
		DeliveryDelivered, DeliveryDead, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
