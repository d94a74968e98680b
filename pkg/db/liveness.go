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

	"github.com/carverauto/fieldradar/pkg/models"
)

func (db *DB) SaveLiveness(ctx context.Context, state *models.LivenessState) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO liveness (device_id, last_heartbeat_at, last_value, online, last_transition_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			last_heartbeat_at = excluded.last_heartbeat_at,
			last_value = excluded.last_value,
			online = excluded.online,
			last_transition_at = excluded.last_transition_at`,
		state.DeviceID,
		nullTime(&state.LastHeartbeatAt),
		state.LastValue,
		state.Online,
		nullTime(&state.LastTransitionAt),
	)
	if err != nil {
		return fmt.Errorf("%w liveness %s: %w", ErrFailedToUpdate, state.DeviceID, err)
	}

	return nil
}

func (db *DB) ListLiveness(ctx context.Context) ([]models.LivenessState, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT device_id, last_heartbeat_at, last_value, online, last_transition_at
		FROM liveness`)
	if err != nil {
		return nil, fmt.Errorf("%w liveness: %w", ErrFailedToQuery, err)
	}
	defer CloseRows(&SQLRows{rows})

	var states []models.LivenessState

	for rows.Next() {
		var (
			s                     models.LivenessState
			heartbeat, transition sql.NullTime
		)

		if err := rows.Scan(&s.DeviceID, &heartbeat, &s.LastValue, &s.Online, &transition); err != nil {
			return nil, fmt.Errorf("%w liveness: %w", ErrFailedToScan, err)
		}

		s.LastHeartbeatAt = heartbeat.Time
		s.LastTransitionAt = transition.Time

		states = append(states, s)
	}

	return states, rows.Err()
}
