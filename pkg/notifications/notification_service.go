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

package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/fieldradar/pkg/alerts"
	"github.com/carverauto/fieldradar/pkg/db"
	"github.com/carverauto/fieldradar/pkg/logger"
	"github.com/carverauto/fieldradar/pkg/registry"
)

const deliveryTimeout = 30 * time.Second

// Service implements Sink.
type Service struct {
	store    Store
	registry registry.Registry
	alerters []alerts.AlertService
	log      logger.Logger
	now      func() time.Time
	wg       sync.WaitGroup
}

var _ Sink = (*Service)(nil)

// NewService creates a new notification service. registry may be nil, in which case
// notifications carry no owner.
func NewService(store Store, reg registry.Registry, alerters []alerts.AlertService, log logger.Logger) *Service {
	return &Service{
		store:    store,
		registry: reg,
		alerters: alerters,
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) OfflineAlert(ctx context.Context, deviceID string, minutesOffline int) error {
	return s.create(ctx, &db.Notification{
		DeviceID: deviceID,
		Kind:     db.NotificationOffline,
		Message:  fmt.Sprintf("Device %s has not sent a heartbeat for %d minutes", deviceID, minutesOffline),
	}, &alerts.WebhookAlert{
		Level:    alerts.Error,
		Title:    "Device Offline",
		DeviceID: deviceID,
		Details:  map[string]any{"minutes_offline": minutesOffline},
	})
}

func (s *Service) CommandFailed(ctx context.Context, deviceID, commandID, reason string) error {
	return s.create(ctx, &db.Notification{
		DeviceID:  deviceID,
		Kind:      db.NotificationCommandFailed,
		CommandID: commandID,
		Message:   fmt.Sprintf("Command %s on device %s failed: %s", commandID, deviceID, reason),
	}, &alerts.WebhookAlert{
		Level:    alerts.Warning,
		Title:    "Command Failed",
		DeviceID: deviceID,
		Details:  map[string]any{"command_id": commandID, "reason": reason},
	})
}

// Recovered resolves every open offline notification for the device, then records the recovery.
func (s *Service) Recovered(ctx context.Context, deviceID string) error {
	now := s.now()

	resolved, err := s.store.ResolveNotifications(ctx, deviceID, db.NotificationOffline, now)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	return s.create(ctx, &db.Notification{
		DeviceID:   deviceID,
		Kind:       db.NotificationRecovered,
		Message:    fmt.Sprintf("Device %s is back online", deviceID),
		ResolvedAt: &now,
	}, &alerts.WebhookAlert{
		Level:    alerts.Info,
		Title:    "Device Recovered",
		DeviceID: deviceID,
		Details:  map[string]any{"resolved_alerts": resolved},
	})
}

// Wait blocks until background deliveries started so far have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) create(ctx context.Context, n *db.Notification, alert *alerts.WebhookAlert) error {
	if n.DeviceID == "" {
		return fmt.Errorf("%w: missing device", ErrInvalidRequest)
	}

	n.AlertID = uuid.NewString()
	n.CreatedAt = s.now()
	n.OwnerID = s.ownerOf(ctx, n.DeviceID)

	id, err := s.store.InsertNotification(ctx, n)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	n.ID = id

	alert.Message = n.Message
	alert.Timestamp = n.CreatedAt.UTC().Format(time.RFC3339)
	alert.Details["alert_id"] = n.AlertID

	if n.OwnerID != "" {
		alert.Details["owner_id"] = n.OwnerID
	}

	// Send notifications to alerters in background
	s.wg.Add(1)

	go s.deliver(alert)

	return nil
}

func (s *Service) ownerOf(ctx context.Context, deviceID string) string {
	if s.registry == nil {
		return ""
	}

	owner, err := s.registry.OwnerOf(ctx, deviceID)
	if err != nil {
		s.log.Warnf("Failed to resolve owner for %s: %v", deviceID, err)
		return ""
	}

	return owner
}

func (s *Service) deliver(alert *alerts.WebhookAlert) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	for _, alerter := range s.alerters {
		if !alerter.IsEnabled() {
			continue
		}

		// each alerter gets its own copy; Alert may fill in fields
		a := *alert
		if err := alerter.Alert(ctx, &a); err != nil {
			s.log.Warnf("Error sending %q alert for %s: %v", alert.Title, alert.DeviceID, err)
		}
	}
}
