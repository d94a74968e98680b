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

// Package schedule computes execution instants for recurring schedules and fires due
// schedules through the command dispatcher.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/fieldradar/pkg/audit"
	"github.com/carverauto/fieldradar/pkg/command"
	"github.com/carverauto/fieldradar/pkg/logger"
	"github.com/carverauto/fieldradar/pkg/models"
	"github.com/carverauto/fieldradar/pkg/monitoring"
)

const DefaultPeriod = time.Minute

// Dispatcher is the part of command.Dispatcher the runner needs.
type Dispatcher interface {
	DispatchScheduled(ctx context.Context, def *models.ScheduleDefinition) (*command.Handle, error)
	Await(ctx context.Context, h *command.Handle, wait time.Duration) (*models.CommandRecord, error)
}

// Options configures a Runner.
type Options struct {
	Store      Store
	Dispatcher Dispatcher
	Audit      audit.Store
	Logger     logger.Logger
	// Wait bounds how long a fired schedule waits for its command to finish.
	Wait  time.Duration
	Clock func() time.Time
}

// Runner evaluates schedules on a period. Each due schedule runs in its own goroutine;
// a schedule already in flight is not fired again.
type Runner struct {
	store      Store
	dispatcher Dispatcher
	audit      audit.Store
	log        logger.Logger
	wait       time.Duration
	now        func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
	wg       sync.WaitGroup
}

func NewRunner(opts Options) *Runner {
	if opts.Wait <= 0 {
		opts.Wait = command.DefaultTimeout
	}

	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}

	return &Runner{
		store:      opts.Store,
		dispatcher: opts.Dispatcher,
		audit:      opts.Audit,
		log:        opts.Logger.WithField("component", "scheduler"),
		wait:       opts.Wait,
		now:        opts.Clock,
		inFlight:   make(map[string]struct{}),
	}
}

// Run evaluates schedules every period until ctx ends, then waits for fired schedules.
func (r *Runner) Run(ctx context.Context, period time.Duration) {
	if period <= 0 {
		period = DefaultPeriod
	}

	mon := monitoring.NewMonitor(monitoring.MonitorConfig{
		Name:     "schedules",
		Interval: period,
	}, r.log)

	mon.StartMonitoring(ctx, r.RunOnce)

	r.Wait()
}

// RunOnce fires every due schedule and returns without waiting for them.
func (r *Runner) RunOnce(ctx context.Context) error {
	defs, err := r.store.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to list schedules: %w", err)
	}

	now := r.now()

	for i := range defs {
		def := defs[i]

		if !Due(&def, now) || !r.claim(def.ID) {
			continue
		}

		r.wg.Add(1)

		go func() {
			defer r.wg.Done()
			defer r.release(def.ID)

			r.execute(ctx, &def)
		}()
	}

	return nil
}

// Wait blocks until every fired schedule has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) claim(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, busy := r.inFlight[id]; busy {
		return false
	}

	r.inFlight[id] = struct{}{}

	return true
}

func (r *Runner) release(id string) {
	r.mu.Lock()
	delete(r.inFlight, id)
	r.mu.Unlock()
}

func (r *Runner) execute(ctx context.Context, def *models.ScheduleDefinition) {
	log := r.log.WithField("schedule_id", def.ID)

	if _, err := Advance(*def, r.now()); err != nil {
		r.flag(ctx, def, err)
		return
	}

	handle, err := r.dispatcher.DispatchScheduled(ctx, def)
	if err != nil {
		// The slot stays due and is retried next cycle.
		log.Warnf("Failed to dispatch scheduled %s on %s: %v", def.Action, def.Node, err)
		return
	}

	if handle.Warning != nil {
		log.Warnf("Dispatched to %s anyway: %v", def.Node, handle.Warning)
	}

	// The command is on its way to the device, so the slot must be consumed even if
	// ctx ends while waiting. Otherwise the same slot fires again after a restart.
	persistCtx := context.WithoutCancel(ctx)

	outcome := "unknown"

	rec, err := r.dispatcher.Await(ctx, handle, r.wait)
	if rec != nil {
		outcome = string(rec.State)
	}

	if err != nil {
		log.Warnf("Scheduled command %s did not complete: %v", handle.ID, err)
	}

	now := r.now()

	next, err := Advance(*def, now)
	if err != nil {
		r.flag(persistCtx, def, err)
		return
	}

	next.LastExecutedAt = &now

	// A Disable issued while the command was running wins.
	current, err := r.store.Get(persistCtx, def.ID)
	if err != nil {
		log.Warnf("Failed to reload schedule before advancing: %v", err)
	} else if !current.Enabled {
		next.Enabled = false
	}

	if err := r.store.Persist(persistCtx, &next); err != nil {
		log.Errorf("Failed to persist schedule after execution: %v", err)
		return
	}

	details := map[string]any{"outcome": outcome}
	if next.NextExecutionAt != nil {
		details["next_execution_at"] = next.NextExecutionAt.Format(time.RFC3339)
	}

	r.record(persistCtx, def, models.EventExecuted, handle.ID, "", details)
}

// flag disables a schedule whose recurrence cannot be computed.
func (r *Runner) flag(ctx context.Context, def *models.ScheduleDefinition, cause error) {
	r.log.WithField("schedule_id", def.ID).Errorf("Disabling schedule: %v", cause)

	def.Enabled = false
	def.Flagged = true
	def.LastError = cause.Error()
	def.NextExecutionAt = nil

	if err := r.store.Persist(ctx, def); err != nil {
		r.log.Errorf("Failed to persist flagged schedule %s: %v", def.ID, err)
		return
	}

	r.record(ctx, def, models.EventDisabled, "", "computation_error", map[string]any{"error": cause.Error()})
}

// Enqueue validates def, fills in its id and first execution time, and stores it enabled.
func (r *Runner) Enqueue(ctx context.Context, def *models.ScheduleDefinition) (*models.ScheduleDefinition, error) {
	if def.Node.DeviceID == "" || !def.Node.Recognized() || !def.Node.Supports(def.Action) {
		return nil, fmt.Errorf("%w: %q on %s", ErrInvalidSchedule, def.Action, def.Node)
	}

	out := *def

	if out.ID == "" {
		out.ID = uuid.NewString()
	}

	out.DeviceID = out.Node.DeviceID
	out.Enabled = true
	out.Flagged = false
	out.LastError = ""

	if out.NextExecutionAt == nil {
		next, err := Next(out.Recurrence, r.now())
		if err != nil {
			return nil, errors.Join(ErrInvalidSchedule, err)
		}

		next = next.UTC()
		out.NextExecutionAt = &next
	} else if _, err := Next(out.Recurrence, r.now()); err != nil {
		return nil, errors.Join(ErrInvalidSchedule, err)
	}

	if err := r.store.Persist(ctx, &out); err != nil {
		return nil, err
	}

	r.log.WithField("schedule_id", out.ID).Infof("Enqueued %s schedule for %s", out.Recurrence.Kind, out.Node)

	return &out, nil
}

// Disable stops a schedule from firing. It takes effect on the next evaluation.
func (r *Runner) Disable(ctx context.Context, id string) error {
	def, err := r.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if !def.Enabled {
		return nil
	}

	def.Enabled = false

	if err := r.store.Persist(ctx, def); err != nil {
		return err
	}

	r.record(ctx, def, models.EventDisabled, "", "operator", nil)

	return nil
}

func (r *Runner) record(
	ctx context.Context, def *models.ScheduleDefinition, event, commandID, reason string, details map[string]any,
) {
	entry := &models.AuditEntry{
		DeviceID:   def.DeviceID,
		Kind:       models.AuditSchedule,
		Event:      event,
		CommandID:  commandID,
		ScheduleID: def.ID,
		Reason:     reason,
		Details:    details,
	}

	if err := r.audit.Append(ctx, entry); err != nil {
		r.log.Errorf("Failed to audit schedule %s %s: %v", def.ID, event, err)
	}
}
