/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

func (db *DB) InsertNotification(ctx context.Context, n *Notification) (int64, error) {
	result, err := db.conn.ExecContext(ctx, `
		INSERT INTO notifications
			(alert_id, device_id, owner_id, kind, command_id, message, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.AlertID,
		n.DeviceID,
		nullString(n.OwnerID),
		n.Kind,
		nullString(n.CommandID),
		n.Message,
		utc(n.CreatedAt),
		nullTime(n.ResolvedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("%w notification: %w", ErrFailedToInsert, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return id, nil
}

// ResolveNotifications marks every open notification of kind for deviceID as resolved.
func (db *DB) ResolveNotifications(ctx context.Context, deviceID string, kind NotificationKind, at time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx, `
		UPDATE notifications
		SET resolved_at = ?
		WHERE device_id = ? AND kind = ? AND resolved_at IS NULL`,
		utc(at), deviceID, kind)
	if err != nil {
		return 0, fmt.Errorf("%w notifications: %w", ErrFailedToUpdate, err)
	}

	return result.RowsAffected()
}

func (db *DB) ListNotifications(ctx context.Context, deviceID string, openOnly bool) ([]Notification, error) {
	query := `
		SELECT id, alert_id, device_id, owner_id, kind, command_id, message, created_at, resolved_at
		FROM notifications
		WHERE device_id = ?`
	if openOnly {
		query += ` AND resolved_at IS NULL`
	}

	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := db.conn.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, fmt.Errorf("%w notifications: %w", ErrFailedToQuery, err)
	}
	defer CloseRows(&SQLRows{rows})

	var out []Notification

	for rows.Next() {
		var (
			n                Notification
			owner, commandID sql.NullString
			resolvedAt       sql.NullTime
		)

		if err := rows.Scan(&n.ID, &n.AlertID, &n.DeviceID, &owner, &n.Kind, &commandID,
			&n.Message, &n.CreatedAt, &resolvedAt); err != nil {
			return nil, fmt.Errorf("%w notification: %w", ErrFailedToScan, err)
		}

		n.OwnerID = owner.String
		n.CommandID = commandID.String
		n.ResolvedAt = timePtr(resolvedAt)

		out = append(out, n)
	}

	return out, rows.Err()
}
