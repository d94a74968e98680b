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
	"sort"
	"time"

	"github.com/carverauto/fieldradar/pkg/audit"
	"github.com/carverauto/fieldradar/pkg/channel"
	"github.com/carverauto/fieldradar/pkg/logger"
	"github.com/carverauto/fieldradar/pkg/metrics"
	"github.com/carverauto/fieldradar/pkg/models"
	"github.com/carverauto/fieldradar/pkg/monitoring"
	"github.com/carverauto/fieldradar/pkg/notifications"
)

const DefaultSweepInterval = time.Minute

// Sweeper times out commands that devices never answered.
type Sweeper struct {
	store   channel.Store
	audit   audit.Store
	sink    notifications.Sink
	metrics metrics.MetricCollector
	log     logger.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewSweeper(opts Options) *Sweeper {
	opts.setDefaults()

	return &Sweeper{
		store:   opts.Store,
		audit:   opts.Audit,
		sink:    opts.Sink,
		metrics: opts.Metrics,
		log:     opts.Logger.WithField("component", "timeout_sweeper"),
		timeout: opts.Timeout,
		now:     opts.Clock,
	}
}

// Run sweeps every interval until ctx ends.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	mon := monitoring.NewMonitor(monitoring.MonitorConfig{
		Name:     "command-timeouts",
		Interval: interval,
	}, s.log)

	mon.StartMonitoring(ctx, s.Sweep)
}

// Sweep expires every outstanding command older than the timeout.
// Per-record failures are logged and do not stop the sweep.
func (s *Sweeper) Sweep(ctx context.Context) error {
	docs, err := s.store.List(ctx, models.CommandsRoot)
	if err != nil {
		return fmt.Errorf("failed to list commands: %w", err)
	}

	paths := make([]string, 0, len(docs))

	for path, doc := range docs {
		if s.expired(doc, s.now()) != nil {
			paths = append(paths, path)
		}
	}

	sort.Strings(paths)

	for _, path := range paths {
		if err := s.expire(ctx, path); err != nil {
			s.log.Errorf("Failed to time out command at %s: %v", path, err)
		}
	}

	return nil
}

// expired returns the record in doc when it is outstanding and older than the timeout.
func (s *Sweeper) expired(doc json.RawMessage, now time.Time) *models.CommandRecord {
	rec := outstanding(doc)
	if rec == nil || now.Sub(rec.RequestedAt) <= s.timeout {
		return nil
	}

	return rec
}

func (s *Sweeper) expire(ctx context.Context, path string) error {
	now := s.now()

	var timedOut *models.CommandRecord

	err := s.store.Transact(ctx, path, func(current json.RawMessage) (any, error) {
		rec := s.expired(current, now)
		if rec == nil {
			return nil, nil
		}

		if err := Transition(rec.State, models.CommandTimedOut); err != nil {
			return nil, err
		}

		rec.State = models.CommandTimedOut
		rec.Status = models.StatusTimeout
		rec.Error = fmt.Sprintf("no response within %s", s.timeout)
		rec.CompletedAt = &now
		timedOut = rec

		return rec, nil
	})
	if err != nil || timedOut == nil {
		return err
	}

	elapsed := now.Sub(timedOut.RequestedAt)

	log := s.log.WithField("command_id", timedOut.ID)
	log.Warnf("Command %s on %s timed out after %s", timedOut.Action, timedOut.Node, elapsed)

	entry := &models.AuditEntry{
		DeviceID:   timedOut.Node.DeviceID,
		Kind:       models.AuditCommand,
		Event:      models.EventTimedOut,
		CommandID:  timedOut.ID,
		ScheduleID: timedOut.ScheduleID,
		Reason:     models.StatusTimeout,
		Details: map[string]any{
			"node":            timedOut.Node.String(),
			"action":          timedOut.Action,
			"elapsed_seconds": int64(elapsed.Seconds()),
		},
	}

	if err := s.audit.Append(ctx, entry); err != nil {
		log.Errorf("Failed to audit timeout: %v", err)
	}

	s.metrics.Inc(models.CounterCommandTimedOut)

	if err := s.sink.CommandFailed(ctx, timedOut.Node.DeviceID, timedOut.ID, models.StatusTimeout); err != nil {
		log.Errorf("Failed to notify timeout: %v", err)
	}

	return nil
}
