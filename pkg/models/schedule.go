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

package models

import (
	"encoding/json"
	"time"
)

// RecurrenceKind selects how a schedule repeats.
type RecurrenceKind string

const (
	RecurrenceOnce    RecurrenceKind = "once"
	RecurrenceDaily   RecurrenceKind = "daily"
	RecurrenceWeekly  RecurrenceKind = "weekly"
	RecurrenceMonthly RecurrenceKind = "monthly"
)

// Recurrence describes when a schedule fires. At is used by once; TimeOfDay ("HH:MM")
// by the recurring kinds, plus Weekday for weekly and DayOfMonth for monthly.
type Recurrence struct {
	Kind       RecurrenceKind `json:"kind"`
	At         *time.Time     `json:"at,omitempty"`
	TimeOfDay  string         `json:"time_of_day,omitempty"`
	Weekday    time.Weekday   `json:"weekday,omitempty"`
	DayOfMonth int            `json:"day_of_month,omitempty"`
	Timezone   string         `json:"timezone,omitempty"`
}

// ScheduleDefinition is an operator-defined recurring or one-shot command.
type ScheduleDefinition struct {
	ID              string          `json:"id"`
	DeviceID        string          `json:"device_id"`
	Node            NodeIdentity    `json:"node"`
	Action          string          `json:"action"`
	Params          json.RawMessage `json:"params,omitempty"`
	Recurrence      Recurrence      `json:"recurrence"`
	Enabled         bool            `json:"enabled"`
	NextExecutionAt *time.Time      `json:"next_execution_at,omitempty"`
	LastExecutedAt  *time.Time      `json:"last_executed_at,omitempty"`
	Flagged         bool            `json:"flagged,omitempty"`
	LastError       string          `json:"last_error,omitempty"`
}
