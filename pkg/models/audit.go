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

import "time"

// AuditKind groups audit entries by the component that produced them.
type AuditKind string

const (
	AuditCommand  AuditKind = "command"
	AuditLiveness AuditKind = "liveness"
	AuditSchedule AuditKind = "schedule"
	AuditSensor   AuditKind = "sensor"
)

// Audit events.
const (
	EventSent         = "sent"
	EventAcknowledged = "acknowledged"
	EventCompleted    = "completed"
	EventFailed       = "failed"
	EventTimedOut     = "timed_out"
	EventOffline      = "offline"
	EventOnline       = "online"
	EventExecuted     = "executed"
	EventDisabled     = "disabled"
	EventAccepted     = "accepted"
)

// AuditEntry is an append-only record in the durable audit store.
type AuditEntry struct {
	ID         string         `json:"id" dynamodbav:"id"`
	DeviceID   string         `json:"device_id" dynamodbav:"device_id"`
	Kind       AuditKind      `json:"kind" dynamodbav:"kind"`
	Event      string         `json:"event" dynamodbav:"event"`
	CommandID  string         `json:"command_id,omitempty" dynamodbav:"command_id,omitempty"`
	ScheduleID string         `json:"schedule_id,omitempty" dynamodbav:"schedule_id,omitempty"`
	Reason     string         `json:"reason,omitempty" dynamodbav:"reason,omitempty"`
	Details    map[string]any `json:"details,omitempty" dynamodbav:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at" dynamodbav:"created_at"`
}
