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
	"fmt"
	"time"
)

// CleanOldData prunes audit entries, sensor readings and resolved notifications older
// than the retention period. Schedules and liveness rows are never pruned.
func (db *DB) CleanOldData(retentionPeriod time.Duration) (err error) {
	cutoff := utc(time.Now().Add(-retentionPeriod))

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			rollbackOnError(tx, err)
			return
		}

		err = tx.Commit()
	}()

	if _, err = tx.Exec("DELETE FROM audit_log WHERE created_at < ?", cutoff); err != nil {
		return fmt.Errorf("%w audit log: %w", ErrFailedToClean, err)
	}

	if _, err = tx.Exec("DELETE FROM sensor_readings WHERE received_at < ?", cutoff); err != nil {
		return fmt.Errorf("%w sensor readings: %w", ErrFailedToClean, err)
	}

	if _, err = tx.Exec(
		"DELETE FROM notifications WHERE resolved_at IS NOT NULL AND resolved_at < ?",
		cutoff,
	); err != nil {
		return fmt.Errorf("%w notifications: %w", ErrFailedToClean, err)
	}

	return nil
}
