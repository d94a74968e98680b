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

package core

import (
	"context"
	"fmt"
	"time"

	"github.com/carverauto/fieldradar/pkg/models"
	"github.com/carverauto/fieldradar/pkg/sensor"
)

// IngestSensorReading runs a reading through the deduplicator. Accepted readings are
// appended to the durable log and audited; rejected ones are only counted. A reading
// that cannot be stored is returned as an error and may be resubmitted.
func (s *Server) IngestSensorReading(ctx context.Context, reading *models.SensorReading) (sensor.Decision, error) {
	decision := s.dedup.Accept(reading)
	if !decision.Accepted {
		s.log.Debugf("Rejected reading from %s: %s", reading.DeviceID, decision.Reason)
		return decision, nil
	}

	if err := s.db.AppendReading(ctx, reading); err != nil {
		s.dedup.Revert(reading)
		return decision, fmt.Errorf("failed to store reading from %s: %w", reading.DeviceID, err)
	}

	entry := &models.AuditEntry{
		DeviceID: reading.DeviceID,
		Kind:     models.AuditSensor,
		Event:    models.EventAccepted,
		Details: map[string]any{
			"effective_at":  reading.EffectiveTime().UTC().Format(time.RFC3339),
			"boot_relative": reading.BootRelative,
		},
	}

	if err := s.audit.Append(ctx, entry); err != nil {
		s.log.Errorf("Failed to audit reading from %s: %v", reading.DeviceID, err)
	}

	return decision, nil
}

// followReadings ingests every write under the readings root until ctx ends.
func (s *Server) followReadings(ctx context.Context) error {
	events, err := s.store.Watch(ctx, models.ReadingsRoot)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}

			reading, err := sensor.ParseEvent(ev, s.now())
			if err != nil {
				s.log.Warnf("Ignoring reading at %s: %v", ev.Path, err)
				continue
			}

			if _, err := s.IngestSensorReading(ctx, &reading); err != nil {
				s.log.Errorf("%v", err)
			}
		}
	}
}

// seedDeduplicator primes the near-duplicate window with each device's last stored
// reading so a restart does not re-accept the reading it just stored.
func (s *Server) seedDeduplicator(ctx context.Context) {
	seen := make(map[string]bool)

	var ids []string

	for _, st := range s.liveness.Devices() {
		seen[st.DeviceID] = true
		ids = append(ids, st.DeviceID)
	}

	for _, d := range s.config.KnownDevices {
		if !seen[d.ID] {
			seen[d.ID] = true
			ids = append(ids, d.ID)
		}
	}

	for _, id := range ids {
		readings, err := s.db.RecentReadings(ctx, id, 1)
		if err != nil {
			s.log.Warnf("Failed to load last reading for %s: %v", id, err)
			continue
		}

		if len(readings) > 0 {
			s.dedup.Seed(readings[0])
		}
	}
}
