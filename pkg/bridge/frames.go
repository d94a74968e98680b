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

package bridge

import (
	"encoding/json"
	"errors"
)

// Frame types.
const (
	FrameUpdate    = "update"
	FrameHeartbeat = "heartbeat"
	FrameReading   = "reading"
	FrameEvent     = "event"
	FrameReady     = "ready"
	FrameError     = "error"
)

var (
	ErrForeignPath     = errors.New("path belongs to another device")
	ErrFieldNotAllowed = errors.New("field not writable by devices")
	ErrUnknownFrame    = errors.New("unknown frame type")
	ErrBadFrame        = errors.New("malformed frame")
	ErrStaleCommand    = errors.New("command is no longer outstanding")
)

// Frame is the JSON message exchanged with devices in both directions. Update frames
// carry the id of the command they answer in CommandID.
type Frame struct {
	Type      string          `json:"type"`
	Path      string          `json:"path,omitempty"`
	CommandID string          `json:"command_id,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
	Fields    map[string]any  `json:"fields,omitempty"`
	Seq       uint64          `json:"seq,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// deviceFields are the command record fields a device may write.
var deviceFields = map[string]bool{
	"status":       true,
	"actual_state": true,
	"error":        true,
	"executed_at":  true,
}
