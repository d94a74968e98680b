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
	"sort"
	"time"

	"github.com/carverauto/fieldradar/pkg/audit"
	"github.com/carverauto/fieldradar/pkg/channel"
	"github.com/carverauto/fieldradar/pkg/logger"
	"github.com/carverauto/fieldradar/pkg/metrics"
	"github.com/carverauto/fieldradar/pkg/models"
	"github.com/carverauto/fieldradar/pkg/notifications"
)

// Watcher applies device-written status updates to command records.
type Watcher struct {
	store   channel.Store
	audit   audit.Store
	sink    notifications.Sink
	metrics metrics.MetricCollector
	mirror  *StateMirror
	log     logger.Logger
	now     func() time.Time
}

func NewWatcher(opts Options) *Watcher {
	opts.setDefaults()

	return &Watcher{
		store:   opts.Store,
		audit:   opts.Audit,
		sink:    opts.Sink,
		metrics: opts.Metrics,
		mirror:  NewStateMirror(opts.Store),
		log:     opts.Logger.WithField("component", "ack_watcher"),
		now:     opts.Clock,
	}
}

// Run subscribes to every command node and blocks until ctx ends. Records that changed
// while nobody was watching are caught up once the subscription is open.
func (w *Watcher) Run(ctx context.Context) error {
	events, err := w.store.Watch(ctx, models.CommandsRoot)
	if err != nil {
		return err
	}

	docs, err := w.store.List(ctx, models.CommandsRoot)
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(docs))
	for path := range docs {
		paths = append(paths, path)
	}

	sort.Strings(paths)

	for _, path := range paths {
		w.Handle(ctx, channel.Event{Path: path, Value: docs[path]})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}

			w.Handle(ctx, ev)
		}
	}
}

// Handle processes one change on a command path. Redelivered and stale events are no-ops:
// the decision is made against the stored record, not the event payload.
func (w *Watcher) Handle(ctx context.Context, ev channel.Event) {
	if _, ok := models.NodeFromPath(ev.Path); !ok {
		return
	}

	var (
		from     models.CommandState
		resolved *models.CommandRecord
	)

	err := w.store.Transact(ctx, ev.Path, func(current json.RawMessage) (any, error) {
		if len(current) == 0 {
			return nil, nil
		}

		var rec models.CommandRecord
		if err := json.Unmarshal(current, &rec); err != nil {
			return nil, err
		}

		target, ok := StateForStatus(rec.Status)
		if !ok || rec.State == target || !CanTransition(rec.State, target) {
			return nil, nil
		}

		now := w.now()

		switch target {
		case models.CommandAcknowledged:
			rec.AcknowledgedAt = &now
		case models.CommandFailed:
			if rec.Error == "" {
				rec.Error = "device reported failure"
			}

			rec.CompletedAt = &now
		case models.CommandCompleted:
			rec.CompletedAt = &now
		case models.CommandPending, models.CommandSent, models.CommandTimedOut:
		}

		from = rec.State
		rec.State = target
		resolved = &rec

		return &rec, nil
	})
	if err != nil {
		w.log.Warnf("Ignoring unreadable command record at %s: %v", ev.Path, err)
		return
	}

	if resolved != nil {
		w.applied(ctx, from, resolved)
	}
}

// applied runs the side effects of a committed transition: audit first, then
// metrics, the state mirror and notifications.
func (w *Watcher) applied(ctx context.Context, from models.CommandState, rec *models.CommandRecord) {
	log := w.log.WithField("command_id", rec.ID)
	log.Infof("Command on %s moved %s -> %s", rec.Node, from, rec.State)

	entry := &models.AuditEntry{
		DeviceID:   rec.Node.DeviceID,
		Kind:       models.AuditCommand,
		CommandID:  rec.ID,
		ScheduleID: rec.ScheduleID,
		Reason:     rec.Error,
		Details: map[string]any{
			"node":   rec.Node.String(),
			"action": rec.Action,
			"status": rec.Status,
		},
	}

	switch rec.State {
	case models.CommandAcknowledged:
		entry.Event = models.EventAcknowledged
	case models.CommandCompleted:
		entry.Event = models.EventCompleted
	case models.CommandFailed:
		entry.Event = models.EventFailed
	case models.CommandPending, models.CommandSent, models.CommandTimedOut:
		return
	}

	if rec.ActualState != nil {
		entry.Details["actual_state"] = *rec.ActualState
	}

	if rec.CompletedAt != nil {
		latency := rec.CompletedAt.Sub(rec.SentAt)
		entry.Details["latency_ms"] = latency.Milliseconds()

		if err := w.metrics.AddMetric(rec.Node.DeviceID, *rec.CompletedAt, latency.Milliseconds(), rec.ID); err != nil {
			log.Warnf("Failed to record latency: %v", err)
		}
	}

	if err := w.audit.Append(ctx, entry); err != nil {
		log.Errorf("Failed to audit %s: %v", entry.Event, err)
	}

	switch rec.State {
	case models.CommandCompleted:
		w.metrics.Inc(models.CounterCommandCompleted)

		if rec.Node.IsRelay() {
			if err := w.mirror.Write(ctx, rec); err != nil {
				log.Errorf("Failed to mirror state of %s: %v", rec.Node, err)
			}
		}
	case models.CommandFailed:
		w.metrics.Inc(models.CounterCommandFailed)

		if err := w.sink.CommandFailed(ctx, rec.Node.DeviceID, rec.ID, rec.Error); err != nil {
			log.Errorf("Failed to notify command failure: %v", err)
		}
	case models.CommandPending, models.CommandSent, models.CommandAcknowledged, models.CommandTimedOut:
	}
}
