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

// Package command issues commands to device nodes over the Control Channel and
// drives each command to exactly one terminal state.
package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/fieldradar/pkg/audit"
	"github.com/carverauto/fieldradar/pkg/channel"
	"github.com/carverauto/fieldradar/pkg/logger"
	"github.com/carverauto/fieldradar/pkg/metrics"
	"github.com/carverauto/fieldradar/pkg/models"
	"github.com/carverauto/fieldradar/pkg/registry"
)

// Handle identifies a command that was written to the Control Channel.
// Warning is set when the device looked offline at dispatch time; the command was still sent.
type Handle struct {
	ID          string
	Node        models.NodeIdentity
	RequestedAt time.Time
	Warning     error
}

// Request describes a command to issue.
type Request struct {
	Node        models.NodeIdentity
	Action      string
	Params      json.RawMessage
	RequestedBy string
	ScheduleID  string
}

// Dispatcher writes new command records, one outstanding command per node.
type Dispatcher struct {
	store    channel.Store
	audit    audit.Store
	registry registry.Registry
	liveness LivenessReader
	metrics  metrics.MetricCollector
	log      logger.Logger
	timeout  time.Duration
	now      func() time.Time
	newID    func() string
}

func NewDispatcher(opts Options) *Dispatcher {
	opts.setDefaults()

	return &Dispatcher{
		store:    opts.Store,
		audit:    opts.Audit,
		registry: opts.Registry,
		liveness: opts.Liveness,
		metrics:  opts.Metrics,
		log:      opts.Logger.WithField("component", "dispatcher"),
		timeout:  opts.Timeout,
		now:      opts.Clock,
		newID:    uuid.NewString,
	}
}

// Dispatch issues an operator command.
func (d *Dispatcher) Dispatch(
	ctx context.Context, node models.NodeIdentity, action string, params json.RawMessage, requestedBy string,
) (*Handle, error) {
	return d.Submit(ctx, &Request{Node: node, Action: action, Params: params, RequestedBy: requestedBy})
}

// DispatchScheduled issues a command on behalf of a schedule.
func (d *Dispatcher) DispatchScheduled(ctx context.Context, def *models.ScheduleDefinition) (*Handle, error) {
	return d.Submit(ctx, &Request{
		Node:        def.Node,
		Action:      def.Action,
		Params:      def.Params,
		RequestedBy: models.RequestedByScheduler,
		ScheduleID:  def.ID,
	})
}

// Submit validates req and writes the command record. On error nothing was written.
func (d *Dispatcher) Submit(ctx context.Context, req *Request) (*Handle, error) {
	if err := d.validate(ctx, req); err != nil {
		d.metrics.Inc(models.CounterCommandRejected)

		return nil, &DispatchError{Node: req.Node, Err: err}
	}

	var warning error

	if d.liveness != nil && !d.liveness.CurrentLiveness(req.Node.DeviceID).Online {
		warning = fmt.Errorf("%w: %s", ErrDeviceOffline, req.Node.DeviceID)
	}

	now := d.now()
	rec := models.CommandRecord{
		ID:          d.newID(),
		Node:        req.Node,
		Action:      req.Action,
		Params:      req.Params,
		State:       models.CommandPending,
		RequestedAt: now,
		RequestedBy: req.RequestedBy,
		ScheduleID:  req.ScheduleID,
	}

	err := d.store.Transact(ctx, req.Node.Path(), func(current json.RawMessage) (any, error) {
		if busy := outstanding(current); busy != nil {
			return nil, fmt.Errorf("%w: command %s is %s", ErrNodeBusy, busy.ID, busy.State)
		}

		if err := Transition(rec.State, models.CommandSent); err != nil {
			return nil, err
		}

		rec.State = models.CommandSent
		rec.SentAt = now

		return &rec, nil
	})
	if err != nil {
		d.metrics.Inc(models.CounterCommandRejected)

		return nil, &DispatchError{Node: req.Node, Err: err}
	}

	d.metrics.Inc(models.CounterCommandSent)

	d.log.WithField("command_id", rec.ID).Infof("Sent %s to %s", rec.Action, rec.Node)

	entry := &models.AuditEntry{
		DeviceID:   rec.Node.DeviceID,
		Kind:       models.AuditCommand,
		Event:      models.EventSent,
		CommandID:  rec.ID,
		ScheduleID: rec.ScheduleID,
		Details: map[string]any{
			"node":         rec.Node.String(),
			"action":       rec.Action,
			"requested_by": rec.RequestedBy,
		},
	}

	if err := d.audit.Append(ctx, entry); err != nil {
		d.log.Errorf("Failed to audit sent command %s: %v", rec.ID, err)
	}

	return &Handle{ID: rec.ID, Node: rec.Node, RequestedAt: rec.RequestedAt, Warning: warning}, nil
}

func (d *Dispatcher) validate(ctx context.Context, req *Request) error {
	if !req.Node.Recognized() {
		return fmt.Errorf("%w: %s", ErrUnknownNode, req.Node)
	}

	if !req.Node.Supports(req.Action) {
		return fmt.Errorf("%w: %q on %s", ErrUnsupportedAction, req.Action, req.Node)
	}

	if d.registry == nil {
		return nil
	}

	known, err := d.registry.IsKnown(ctx, req.Node.DeviceID)
	if err != nil {
		return err
	}

	if !known {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, req.Node.DeviceID)
	}

	return nil
}

// outstanding returns the record in doc if it still awaits a device response.
func outstanding(doc json.RawMessage) *models.CommandRecord {
	if len(doc) == 0 {
		return nil
	}

	var rec models.CommandRecord
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil
	}

	if !rec.State.IsOutstanding() {
		return nil
	}

	return &rec
}

// Await blocks until the command reaches a terminal state, ctx ends, or wait elapses.
// A failed or timed-out command is returned together with an error wrapping
// ErrCommandFailed or ErrCommandTimedOut.
func (d *Dispatcher) Await(ctx context.Context, h *Handle, wait time.Duration) (*models.CommandRecord, error) {
	if wait <= 0 {
		wait = d.timeout
	}

	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	// Subscribe before reading so a transition between the two is not missed.
	events, err := d.store.Watch(ctx, h.Node.Path())
	if err != nil {
		return nil, err
	}

	doc, err := d.store.Get(ctx, h.Node.Path())
	if err != nil && !errors.Is(err, channel.ErrNotFound) {
		return nil, err
	}

	last, done, err := d.settle(doc, h)
	if done {
		return last, err
	}

	for {
		select {
		case <-ctx.Done():
			return last, fmt.Errorf("%w %s: %w", ErrAwaitTimeout, h.ID, ctx.Err())
		case ev, ok := <-events:
			if !ok {
				return last, fmt.Errorf("%w %s: %w", ErrAwaitTimeout, h.ID, ctx.Err())
			}

			rec, done, err := d.settle(ev.Value, h)
			if done {
				return rec, err
			}

			if rec != nil {
				last = rec
			}
		}
	}
}

// settle reports whether doc holds a final answer for h.
func (*Dispatcher) settle(doc json.RawMessage, h *Handle) (*models.CommandRecord, bool, error) {
	if len(doc) == 0 {
		return nil, false, nil
	}

	var rec models.CommandRecord
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, false, nil
	}

	if rec.ID != h.ID {
		if rec.RequestedAt.After(h.RequestedAt) {
			return nil, true, fmt.Errorf("%w: %s replaced by %s", ErrSuperseded, h.ID, rec.ID)
		}

		return nil, false, nil
	}

	switch rec.State {
	case models.CommandCompleted:
		return &rec, true, nil
	case models.CommandFailed:
		return &rec, true, fmt.Errorf("%w: %s: %s", ErrCommandFailed, rec.ID, rec.Error)
	case models.CommandTimedOut:
		return &rec, true, fmt.Errorf("%w: %s", ErrCommandTimedOut, rec.ID)
	case models.CommandPending, models.CommandSent, models.CommandAcknowledged:
	}

	return &rec, false, nil
}
