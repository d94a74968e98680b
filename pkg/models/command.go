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
	"fmt"
	"strings"
	"time"
)

// Channel identifies the physical node on a device that executes a command.
type Channel string

const (
	ChannelRelay  Channel = "relay"
	ChannelMotor  Channel = "motor"
	ChannelSensor Channel = "sensor"
)

// Control Channel path roots.
const (
	CommandsRoot   = "commands"
	StateRoot      = "state"
	HeartbeatsRoot = "heartbeats"
	ReadingsRoot   = "readings"
)

// Relay actions.
const (
	ActionOn  = "on"
	ActionOff = "off"
)

// slotCatalog lists the slots each channel exposes and the actions each slot accepts.
var slotCatalog = map[Channel]map[string][]string{
	ChannelRelay: {
		"1": {ActionOn, ActionOff},
		"2": {ActionOn, ActionOff},
		"3": {ActionOn, ActionOff},
		"4": {ActionOn, ActionOff},
	},
	ChannelMotor: {
		"motor": {"forward", "reverse", "stop"},
		"gps":   {"locate"},
	},
	ChannelSensor: {
		"scan": {"scan"},
	},
}

// NodeIdentity addresses a single CommandNode: (device, channel, slot).
type NodeIdentity struct {
	DeviceID string  `json:"device_id"`
	Channel  Channel `json:"channel"`
	Slot     string  `json:"slot"`
}

// Path returns the Control Channel path of the node's command record.
func (n NodeIdentity) Path() string {
	return strings.Join([]string{CommandsRoot, n.DeviceID, string(n.Channel), n.Slot}, "/")
}

// StatePath returns the path of the node's last-known-good state.
func (n NodeIdentity) StatePath() string {
	return strings.Join([]string{StateRoot, n.DeviceID, string(n.Channel), n.Slot}, "/")
}

func (n NodeIdentity) String() string {
	return fmt.Sprintf("%s/%s/%s", n.DeviceID, n.Channel, n.Slot)
}

// IsRelay reports whether the node drives a relay, whose completed
// commands are mirrored as device state.
func (n NodeIdentity) IsRelay() bool {
	return n.Channel == ChannelRelay
}

// Recognized reports whether channel and slot exist in the catalog.
func (n NodeIdentity) Recognized() bool {
	slots, ok := slotCatalog[n.Channel]
	if !ok {
		return false
	}

	_, ok = slots[n.Slot]

	return ok
}

// Supports reports whether the node accepts the given action.
func (n NodeIdentity) Supports(action string) bool {
	for _, a := range slotCatalog[n.Channel][n.Slot] {
		if a == action {
			return true
		}
	}

	return false
}

// NodeFromPath parses "commands/{device}/{channel}/{slot}" (or the state root equivalent).
func NodeFromPath(path string) (NodeIdentity, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 || (parts[0] != CommandsRoot && parts[0] != StateRoot) {
		return NodeIdentity{}, false
	}

	return NodeIdentity{DeviceID: parts[1], Channel: Channel(parts[2]), Slot: parts[3]}, true
}

// CommandState is the lifecycle state of an issued command.
type CommandState string

const (
	CommandPending      CommandState = "pending"
	CommandSent         CommandState = "sent"
	CommandAcknowledged CommandState = "acknowledged"
	CommandCompleted    CommandState = "completed"
	CommandFailed       CommandState = "failed"
	CommandTimedOut     CommandState = "timed_out"
)

// IsTerminal reports whether no further transition is legal out of s.
func (s CommandState) IsTerminal() bool {
	return s == CommandCompleted || s == CommandFailed || s == CommandTimedOut
}

// IsOutstanding reports whether the command still awaits a device response.
func (s CommandState) IsOutstanding() bool {
	return s == CommandSent || s == CommandAcknowledged
}

// StatusTimeout is written to the device-facing status field when a command times out.
const StatusTimeout = "timeout"

// CommandRecord is the document stored at a node's command path. State is owned by
// this service; Status, ActualState, Error and ExecutedAt are written by the device.
type CommandRecord struct {
	ID             string          `json:"id"`
	Node           NodeIdentity    `json:"node"`
	Action         string          `json:"action"`
	Params         json.RawMessage `json:"params,omitempty"`
	State          CommandState    `json:"state"`
	Status         string          `json:"status,omitempty"`
	RequestedAt    time.Time       `json:"requested_at"`
	SentAt         time.Time       `json:"sent_at"`
	AcknowledgedAt *time.Time      `json:"acknowledged_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	ExecutedAt     *time.Time      `json:"executed_at,omitempty"`
	ActualState    *bool           `json:"actual_state,omitempty"`
	Error          string          `json:"error,omitempty"`
	RequestedBy    string          `json:"requested_by"`
	ScheduleID     string          `json:"schedule_id,omitempty"`
}

// RequestedBy value used for commands spawned by recurring schedules.
const RequestedByScheduler = "scheduler"

// DeviceStateSnapshot is the last-known-good state of a relay, written only when a
// command targeting it reaches completed.
type DeviceStateSnapshot struct {
	Value     bool      `json:"value"`
	CommandID string    `json:"command_id"`
	UpdatedAt time.Time `json:"updated_at"`
}
