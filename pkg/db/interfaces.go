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

// Package db pkg/db/interfaces.go
package db

import (
	"context"
	"time"

	"github.com/carverauto/fieldradar/pkg/models"
)

//go:generate mockgen -destination=mock_db.go -package=db github.com/carverauto/fieldradar/pkg/db Row,Result,Rows,Transaction,Service

// Row represents a database row.
type Row interface {
	Scan(dest ...interface{}) error
}

// Result represents the result of a database operation.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

// Rows represents multiple database rows.
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
}

// Transaction represents operations that can be performed within a database transaction.
type Transaction interface {
	Exec(query string, args ...interface{}) (Result, error)
	Query(query string, args ...interface{}) (Rows, error)
	QueryRow(query string, args ...interface{}) Row
	Commit() error
	Rollback() error
}

// Service represents all database operations.
type Service interface {
	// Core database operations.

	Begin() (Transaction, error)
	Close() error
	Exec(query string, args ...interface{}) (Result, error)
	Query(query string, args ...interface{}) (Rows, error)
	QueryRow(query string, args ...interface{}) Row

	// Audit log operations.

	AppendAudit(ctx context.Context, entry *models.AuditEntry) error
	QueryAudit(ctx context.Context, deviceID string, since time.Time) ([]models.AuditEntry, error)

	// Schedule operations.

	UpsertSchedule(ctx context.Context, def *models.ScheduleDefinition) error
	GetSchedule(ctx context.Context, id string) (*models.ScheduleDefinition, error)
	ListSchedules(ctx context.Context, enabledOnly bool) ([]models.ScheduleDefinition, error)

	// Liveness operations.

	SaveLiveness(ctx context.Context, state *models.LivenessState) error
	ListLiveness(ctx context.Context) ([]models.LivenessState, error)

	// Sensor reading operations.

	AppendReading(ctx context.Context, reading *models.SensorReading) error
	RecentReadings(ctx context.Context, deviceID string, limit int) ([]models.SensorReading, error)

	// Notification operations.

	InsertNotification(ctx context.Context, n *Notification) (int64, error)
	ResolveNotifications(ctx context.Context, deviceID string, kind NotificationKind, at time.Time) (int64, error)
	ListNotifications(ctx context.Context, deviceID string, openOnly bool) ([]Notification, error)

	// Maintenance operations.

	CleanOldData(retentionPeriod time.Duration) error
}
