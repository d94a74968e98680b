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

// Package api pkg/core/api/interfaces.go
package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/carverauto/fieldradar/pkg/command"
	"github.com/carverauto/fieldradar/pkg/db"
	"github.com/carverauto/fieldradar/pkg/models"
	"github.com/carverauto/fieldradar/pkg/sensor"
)

//go:generate mockgen -destination=mock_api.go -package=api github.com/carverauto/fieldradar/pkg/core/api Core

// Core is the orchestration surface the HTTP API exposes.
type Core interface {
	Dispatch(
		ctx context.Context, node models.NodeIdentity, action string, params json.RawMessage, requestedBy string,
	) (*command.Handle, error)
	Await(ctx context.Context, h *command.Handle, wait time.Duration) (*models.CommandRecord, error)
	DeviceState(ctx context.Context, node models.NodeIdentity) (*models.DeviceStateSnapshot, error)

	CurrentLiveness(deviceID string) models.LivenessState
	Devices() []models.LivenessState
	RecordHeartbeat(ctx context.Context, deviceID string, value float64) error

	IngestSensorReading(ctx context.Context, reading *models.SensorReading) (sensor.Decision, error)

	EnqueueSchedule(ctx context.Context, def *models.ScheduleDefinition) (*models.ScheduleDefinition, error)
	DisableSchedule(ctx context.Context, id string) error

	AuditTrail(ctx context.Context, deviceID string, since time.Time) ([]models.AuditEntry, error)
	Notifications(ctx context.Context, deviceID string, openOnly bool) ([]db.Notification, error)
	DeviceMetrics(deviceID string) []models.MetricPoint
	Counters() map[string]int64
}
