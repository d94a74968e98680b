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
	"time"

	"github.com/carverauto/fieldradar/pkg/db"
	"github.com/carverauto/fieldradar/pkg/models"
)

// SQLStore keeps the audit log in the SQLite database.
type SQLStore struct {
	db db.Service
}

var _ Store = (*SQLStore)(nil)

func NewSQLStore(database db.Service) *SQLStore {
	return &SQLStore{db: database}
}

func (s *SQLStore) Append(ctx context.Context, entry *models.AuditEntry) error {
	prepare(entry)

	return s.db.AppendAudit(ctx, entry)
}

func (s *SQLStore) Query(ctx context.Context, deviceID string, since time.Time) ([]models.AuditEntry, error) {
	return s.db.QueryAudit(ctx, deviceID, since)
}
