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

import "time"

// NotificationKind identifies which NotificationSink call produced a row.
type NotificationKind string

const (
	NotificationOffline       NotificationKind = "offline"
	NotificationCommandFailed NotificationKind = "command_failed"
	NotificationRecovered     NotificationKind = "recovered"
)

// Notification is a persisted operator notification. Offline notifications stay open
// until the device recovers.
type Notification struct {
	ID         int64            `json:"id"`
	AlertID    string           `json:"alert_id"`
	DeviceID   string           `json:"device_id"`
	OwnerID    string           `json:"owner_id"`
	Kind       NotificationKind `json:"kind"`
	CommandID  string           `json:"command_id,omitempty"`
	Message    string           `json:"message"`
	CreatedAt  time.Time        `json:"created_at"`
	ResolvedAt *time.Time       `json:"resolved_at,omitempty"`
}
