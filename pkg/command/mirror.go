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
	"context"
	"encoding/json"
	"fmt"

	"github.com/carverauto/fieldradar/pkg/channel"
	"github.com/carverauto/fieldradar/pkg/models"
)

// StateMirror maintains the last-known-good state of relays under the state root.
type StateMirror struct {
	store channel.Store
}

func NewStateMirror(store channel.Store) *StateMirror {
	return &StateMirror{store: store}
}

// Write records the outcome of a completed relay command. Any other record is refused.
func (m *StateMirror) Write(ctx context.Context, rec *models.CommandRecord) error {
	if rec.State != models.CommandCompleted || !rec.Node.IsRelay() {
		return fmt.Errorf("%w: %s is %s", errMirrorGuard, rec.ID, rec.State)
	}

	value := rec.Action == models.ActionOn
	if rec.ActualState != nil {
		value = *rec.ActualState
	}

	updated := rec.RequestedAt
	if rec.CompletedAt != nil {
		updated = *rec.CompletedAt
	}

	snap := models.DeviceStateSnapshot{
		Value:     value,
		CommandID: rec.ID,
		UpdatedAt: updated,
	}

	return m.store.Set(ctx, rec.Node.StatePath(), &snap)
}

// Read returns the mirrored state of node, or channel.ErrNotFound.
func (m *StateMirror) Read(ctx context.Context, node models.NodeIdentity) (*models.DeviceStateSnapshot, error) {
	doc, err := m.store.Get(ctx, node.StatePath())
	if err != nil {
		return nil, err
	}

	var snap models.DeviceStateSnapshot
	if err := json.Unmarshal(doc, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode state %s: %w", node.StatePath(), err)
	}

	return &snap, nil
}
