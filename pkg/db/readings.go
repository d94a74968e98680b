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

	"github.com/carverauto/fieldradar/pkg/models"
)

// AppendReading stores an accepted sensor reading.
func (db *DB) AppendReading(ctx context.Context, reading *models.SensorReading) error {
	payload, err := json.Marshal(reading.Values)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO sensor_readings (device_id, payload, source_timestamp, boot_relative, received_at)
		VALUES (?, ?, ?, ?, ?)`,
		reading.DeviceID,
		string(payload),
		nullTime(&reading.SourceTimestamp),
		reading.BootRelative,
		utc(reading.ReceivedAt),
	)
	if err != nil {
		return fmt.Errorf("%w reading: %w", ErrFailedToInsert, err)
	}

	return nil
}

// RecentReadings returns up to limit readings for deviceID, newest first.
func (db *DB) RecentReadings(ctx context.Context, deviceID string, limit int) ([]models.SensorReading, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT device_id, payload, source_timestamp, boot_relative, received_at
		FROM sensor_readings
		WHERE device_id = ?
		ORDER BY received_at DESC, id DESC
		LIMIT ?`,
		deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w readings: %w", ErrFailedToQuery, err)
	}
	defer CloseRows(&SQLRows{rows})

	var readings []models.SensorReading

	for rows.Next() {
		var (
			r       models.SensorReading
			payload string
			source  sql.NullTime
		)

		if err := rows.Scan(&r.DeviceID, &payload, &source, &r.BootRelative, &r.ReceivedAt); err != nil {
			return nil, fmt.Errorf("%w reading: %w", ErrFailedToScan, err)
		}

		if err := json.Unmarshal([]byte(payload), &r.Values); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reading: %w", err)
		}

		r.SourceTimestamp = source.Time

		readings = append(readings, r)
	}

	return readings, rows.Err()
}
