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

package api

import (
	"encoding/json"
	"time"

	"github.com/carverauto/fieldradar/pkg/config"
	"github.com/carverauto/fieldradar/pkg/models"
)

// CommandRequest is the body of POST /api/devices/{id}/commands. A non-zero Wait
// holds the response until the command settles or Wait elapses.
type CommandRequest struct {
	Channel     models.Channel  `json:"channel"`
	Slot        string          `json:"slot"`
	Action      string          `json:"action"`
	Params      json.RawMessage `json:"params,omitempty"`
	RequestedBy string          `json:"requested_by"`
	Wait        config.Duration `json:"wait,omitempty"`
}

type CommandResponse struct {
	CommandID   string                `json:"command_id"`
	Path        string                `json:"path"`
	RequestedAt time.Time             `json:"requested_at"`
	Warning     string                `json:"warning,omitempty"`
	Record      *models.CommandRecord `json:"record,omitempty"`
	Error       string                `json:"error,omitempty"`
}

type HeartbeatRequest struct {
	Value float64 `json:"value"`
}

type ReadingResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
	Age      string `json:"age,omitempty"`
}

type MetricsResponse struct {
	DeviceID string               `json:"device_id"`
	Points   []models.MetricPoint `json:"points"`
	Counters map[string]int64     `json:"counters"`
}

type errorResponse struct {
	Error string `json:"error"`
}
