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

// Package audit provides the durable, append-only record of command outcomes,
// liveness transitions, schedule executions and accepted sensor readings.
package audit

import (
	"context"
	"time"

	"github.com/carverauto/fieldradar/pkg/models"
)

//go:generate mockgen -destination=mock_audit.go -package=audit github.com/carverauto/fieldradar/pkg/audit Store

// Store is the Audit Store client.
type Store interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
	// Query returns entries for deviceID created at or after since, oldest first.
	Query(ctx context.Context, deviceID string, since time.Time) ([]models.AuditEntry, error)
}
