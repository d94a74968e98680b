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

// Package models pkg/models/metrics.go
package models

import "time"

// MetricPoint is one command round trip observed for a device.
type MetricPoint struct {
	Timestamp time.Time `json:"timestamp"`
	LatencyMs int64     `json:"latency_ms"`
	CommandID string    `json:"command_id"`
}

// Counter names.
const (
	CounterCommandSent      = "command.sent"
	CounterCommandCompleted = "command.completed"
	CounterCommandFailed    = "command.failed"
	CounterCommandTimedOut  = "command.timed_out"
	CounterCommandRejected  = "command.rejected"
	CounterSensorAccepted   = "sensor.accepted"
	CounterSensorRejected   = "sensor.rejected." // suffixed with the rejection reason
	CounterLivenessOffline  = "liveness.offline"
	CounterLivenessOnline   = "liveness.online"
)
