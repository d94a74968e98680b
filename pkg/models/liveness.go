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

// LivenessState is the online/offline view of a single device derived from heartbeat recency.
type LivenessState struct {
	DeviceID         string    `json:"device_id"`
	LastHeartbeatAt  time.Time `json:"last_heartbeat_at"`
	LastValue        float64   `json:"last_value"`
	Online           bool      `json:"online"`
	LastTransitionAt time.Time `json:"last_transition_at"`
}

// Evaluate reports whether the device is online at now given the threshold.
// A heartbeat stamped in the future is not evidence of liveness.
func (l *LivenessState) Evaluate(now time.Time, threshold time.Duration) bool {
	if l.LastHeartbeatAt.IsZero() {
		return false
	}

	age := now.Sub(l.LastHeartbeatAt)

	return age >= 0 && age < threshold
}
