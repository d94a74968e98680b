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
	"encoding/json"
	"fmt"
	"time"

	"github.com/carverauto/fieldradar/pkg/models"
)

func (db *DB) AppendAudit(ctx context.Context, entry *models.AuditEntry) error {
	var details sql.NullString

	if len(entry.Details) > 0 {
		data, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal audit details: %w", err)
		}

		details = sql.NullString{String: string(data), Valid: true}
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO audit_log
			(id, device_id, kind, event, command_id, schedule_id, reason, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.DeviceID,
		entry.Kind,
		entry.Event,
		nullString(entry.CommandID),
		nullString(entry.ScheduleID),
		nullString(entry.Reason),
		details,
		utc(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("%w audit entry: %w", ErrFailedToInsert, err)
	}

	return nil
}

// QueryAudit returns the entries for deviceID created at or after since, oldest first.
func (db *DB) QueryAudit(ctx context.Context, deviceID string, since time.Time) ([]models.AuditEntry, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, device_id, kind, event, command_id, schedule_id, reason, details, created_at
		FROM audit_log
		WHERE device_id = ? AND created_at >= ?
		ORDER BY created_at ASC`,
		deviceID, utc(since))
	if err != nil {
		return nil, fmt.Errorf("%w audit log: %w", ErrFailedToQuery, err)
	}
	defer CloseRows(&SQLRows{rows})

	var entries []models.AuditEntry

	for rows.Next() {
		var (
			e                             models.AuditEntry
			commandID, scheduleID, reason sql.NullString
			details                       sql.NullString
		)

		if err := rows.Scan(&e.ID, &e.DeviceID, &e.Kind, &e.Event,
			&commandID, &scheduleID, &reason, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w audit entry: %w", ErrFailedToScan, err)
		}

		e.CommandID = commandID.String
		e.ScheduleID = scheduleID.String
		e.Reason = reason.String

		if details.Valid {
			if err := json.Unmarshal([]byte(details.String), &e.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit details: %w", err)
			}
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}
