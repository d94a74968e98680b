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

// Package channel is the live Control Channel shared with field devices: a tree of JSON
// documents addressed by slash-separated paths, with push notification on every write.
package channel

import (
	"context"
	"encoding/json"
)

//go:generate mockgen -destination=mock_channel.go -package=channel github.com/carverauto/fieldradar/pkg/channel Store

// Event is delivered to watchers after a write. Value is the full document after the write.
type Event struct {
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value"`
	Seq   uint64          `json:"seq"`
}

// TransactFunc receives the current document (nil if absent) and returns the next one.
// Returning a nil value leaves the document untouched. It must not call back into the Store.
type TransactFunc func(current json.RawMessage) (any, error)

// Store is the Control Channel client.
type Store interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
	Set(ctx context.Context, path string, value any) error
	// Update merges fields into the top level of the document at path, creating it if needed.
	Update(ctx context.Context, path string, fields map[string]any) error
	// Transact applies fn atomically to a single document.
	Transact(ctx context.Context, path string, fn TransactFunc) error
	// List returns every document at or below prefix, keyed by path.
	List(ctx context.Context, prefix string) (map[string]json.RawMessage, error)
	// Watch streams events for writes at or below prefix, in write order, until ctx ends.
	Watch(ctx context.Context, prefix string) (<-chan Event, error)
}
