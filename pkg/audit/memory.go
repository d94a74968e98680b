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

package audit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/carverauto/fieldradar/pkg/models"
)

// MemoryStore is an in-process Store used by tests and the "memory" backend.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []models.AuditEntry
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, entry *models.AuditEntry) error {
	prepare(entry)

	s.mu.Lock()
	s.entries = append(s.entries, *entry)
	s.mu.Unlock()

	return nil
}

func (s *MemoryStore) Query(_ context.Context, deviceID string, since time.Time) ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.AuditEntry

	for i := range s.entries {
		e := s.entries[i]
		if e.DeviceID == deviceID && !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	return out, nil
}

// Events returns every entry of kind for deviceID in append order.
func (s *MemoryStore) Events(deviceID string, kind models.AuditKind) []models.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.AuditEntry

	for i := range s.entries {
		if s.entries[i].DeviceID == deviceID && s.entries[i].Kind == kind {
			out = append(out, s.entries[i])
		}
	}

	return out
}
