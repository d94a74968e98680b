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

// Package notifications turns command failures and liveness transitions into operator
// notifications: a persisted row first, then best-effort webhook delivery.
package notifications

import (
	"context"
	"time"

	"github.com/carverauto/fieldradar/pkg/db"
)

//go:generate mockgen -destination=mock_notifications.go -package=notifications github.com/carverauto/fieldradar/pkg/notifications Sink,Store

// Sink receives notification events. Callers treat it as fire-and-forget: an error is
// logged and never rolls back the state transition that produced it.
type Sink interface {
	OfflineAlert(ctx context.Context, deviceID string, minutesOffline int) error
	CommandFailed(ctx context.Context, deviceID, commandID, reason string) error
	Recovered(ctx context.Context, deviceID string) error
}

// Store is the persistence used by Service.
type Store interface {
	InsertNotification(ctx context.Context, n *db.Notification) (int64, error)
	ResolveNotifications(ctx context.Context, deviceID string, kind db.NotificationKind, at time.Time) (int64, error)
}
