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

package command

import (
	"fmt"
	"strings"

	"github.com/carverauto/fieldradar/pkg/models"
)

// transitions lists the legal edges of the command lifecycle. Terminal states have none.
var transitions = map[models.CommandState][]models.CommandState{
	models.CommandPending: {models.CommandSent},
	models.CommandSent: {
		models.CommandAcknowledged,
		models.CommandCompleted,
		models.CommandFailed,
		models.CommandTimedOut,
	},
	models.CommandAcknowledged: {
		models.CommandCompleted,
		models.CommandFailed,
		models.CommandTimedOut,
	},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to models.CommandState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}

	return false
}

// Transition validates from -> to.
func Transition(from, to models.CommandState) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}

	return nil
}

// StateForStatus maps a device-written status to the state it drives the command towards.
func StateForStatus(status string) (models.CommandState, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "received", "executing", "in_progress", "acknowledged", "ack":
		return models.CommandAcknowledged, true
	case "completed", "success", "done", "ok":
		return models.CommandCompleted, true
	case "failed", "error":
		return models.CommandFailed, true
	default:
		return "", false
	}
}
