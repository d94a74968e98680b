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
	"errors"
	"fmt"

	"github.com/carverauto/fieldradar/pkg/models"
)

const scheduleColumns = `id, device_id, node, action, params, recurrence, enabled,
	next_execution_at, last_executed_at, flagged, last_error`

func (db *DB) UpsertSchedule(ctx context.Context, def *models.ScheduleDefinition) error {
	node, err := json.Marshal(def.Node)
	if err != nil {
		return fmt.Errorf("failed to marshal node: %w", err)
	}

	recurrence, err := json.Marshal(def.Recurrence)
	if err != nil {
		return fmt.Errorf("failed to marshal recurrence: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO schedules (`+scheduleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			device_id = excluded.device_id,
			node = excluded.node,
			action = excluded.action,
			params = excluded.params,
			recurrence = excluded.recurrence,
			enabled = excluded.enabled,
			next_execution_at = excluded.next_execution_at,
			last_executed_at = excluded.last_executed_at,
			flagged = excluded.flagged,
			last_error = excluded.last_error`,
		def.ID,
		def.DeviceID,
		string(node),
		def.Action,
		nullString(string(def.Params)),
		string(recurrence),
		def.Enabled,
		nullTime(def.NextExecutionAt),
		nullTime(def.LastExecutedAt),
		def.Flagged,
		nullString(def.LastError),
	)
	if err != nil {
		return fmt.Errorf("%w schedule %s: %w", ErrFailedToInsert, def.ID, err)
	}

	return nil
}

func (db *DB) GetSchedule(ctx context.Context, id string) (*models.ScheduleDefinition, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id)

	def, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: schedule %s", ErrNotFound, id)
	}

	if err != nil {
		return nil, err
	}

	return def, nil
}

func (db *DB) ListSchedules(ctx context.Context, enabledOnly bool) ([]models.ScheduleDefinition, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules`
	if enabledOnly {
		query += ` WHERE enabled = 1`
	}

	query += ` ORDER BY id`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w schedules: %w", ErrFailedToQuery, err)
	}
	defer CloseRows(&SQLRows{rows})

	var defs []models.ScheduleDefinition

	for rows.Next() {
		def, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}

		defs = append(defs, *def)
	}

	return defs, rows.Err()
}

func scanSchedule(row Row) (*models.ScheduleDefinition, error) {
	var (
		def                models.ScheduleDefinition
		node, recurrence   string
		params, lastError  sql.NullString
		nextExec, lastExec sql.NullTime
	)

	if err := row.Scan(&def.ID, &def.DeviceID, &node, &def.Action, &params, &recurrence,
		&def.Enabled, &nextExec, &lastExec, &def.Flagged, &lastError); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("%w schedule: %w", ErrFailedToScan, err)
	}

	if err := json.Unmarshal([]byte(node), &def.Node); err != nil {
		return nil, fmt.Errorf("failed to unmarshal node: %w", err)
	}

	if err := json.Unmarshal([]byte(recurrence), &def.Recurrence); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recurrence: %w", err)
	}

	if params.Valid {
		def.Params = json.RawMessage(params.String)
	}

	def.NextExecutionAt = timePtr(nextExec)
	def.LastExecutedAt = timePtr(lastExec)
	def.LastError = lastError.String

	return &def, nil
}
