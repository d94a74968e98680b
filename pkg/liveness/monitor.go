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

package liveness

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/carverauto/fieldradar/pkg/audit"
	"github.com/carverauto/fieldradar/pkg/channel"
	"github.com/carverauto/fieldradar/pkg/config"
	"github.com/carverauto/fieldradar/pkg/logger"
	"github.com/carverauto/fieldradar/pkg/metrics"
	"github.com/carverauto/fieldradar/pkg/models"
	"github.com/carverauto/fieldradar/pkg/monitoring"
	"github.com/carverauto/fieldradar/pkg/notifications"
)

const (
	DefaultOfflineThreshold = 10 * time.Minute
	DefaultSweepPeriod      = 2 * time.Minute
)

// Options configures a Monitor.
type Options struct {
	Repository Repository
	Audit      audit.Store
	Sink       notifications.Sink
	Metrics    metrics.MetricCollector
	Logger     logger.Logger
	Threshold  time.Duration
	Clock      func() time.Time
}

type device struct {
	mu    sync.Mutex
	state models.LivenessState
}

// Monitor owns the liveness record of every device. Transitions are persisted,
// then audited, then notified, once per transition.
type Monitor struct {
	repo      Repository
	audit     audit.Store
	sink      notifications.Sink
	metrics   metrics.MetricCollector
	log       logger.Logger
	threshold time.Duration
	now       func() time.Time

	mu      sync.RWMutex
	devices map[string]*device
}

func NewMonitor(opts Options) *Monitor {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultOfflineThreshold
	}

	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}

	if opts.Metrics == nil {
		opts.Metrics = metrics.NewManager(config.MetricsConfig{})
	}

	return &Monitor{
		repo:      opts.Repository,
		audit:     opts.Audit,
		sink:      opts.Sink,
		metrics:   opts.Metrics,
		log:       opts.Logger.WithField("component", "liveness"),
		threshold: opts.Threshold,
		now:       opts.Clock,
		devices:   make(map[string]*device),
	}
}

func (m *Monitor) device(deviceID string) *device {
	m.mu.RLock()
	d, ok := m.devices[deviceID]
	m.mu.RUnlock()

	if ok {
		return d
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if d, ok = m.devices[deviceID]; !ok {
		d = &device{state: models.LivenessState{DeviceID: deviceID}}
		m.devices[deviceID] = d
	}

	return d
}

// Load restores persisted states. Call before the first heartbeat or sweep.
func (m *Monitor) Load(ctx context.Context) error {
	states, err := m.repo.ListLiveness(ctx)
	if err != nil {
		return fmt.Errorf("failed to load liveness: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range states {
		m.devices[states[i].DeviceID] = &device{state: states[i]}
	}

	m.log.Infof("Restored liveness for %d devices", len(states))

	return nil
}

// CurrentLiveness returns the state of deviceID with Online evaluated at the current time.
// Unknown devices are offline.
func (m *Monitor) CurrentLiveness(deviceID string) models.LivenessState {
	m.mu.RLock()
	d, ok := m.devices[deviceID]
	m.mu.RUnlock()

	if !ok {
		return models.LivenessState{DeviceID: deviceID}
	}

	d.mu.Lock()
	state := d.state
	d.mu.Unlock()

	state.Online = state.Evaluate(m.now(), m.threshold)

	return state
}

// Devices returns the liveness of every known device, ordered by id.
func (m *Monitor) Devices() []models.LivenessState {
	ids := m.deviceIDs()
	out := make([]models.LivenessState, 0, len(ids))

	for _, id := range ids {
		out = append(out, m.CurrentLiveness(id))
	}

	return out
}

func (m *Monitor) deviceIDs() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.devices))

	for id := range m.devices {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	sort.Strings(ids)

	return ids
}

// RecordHeartbeat handles a heartbeat write. The device counts as seen when value is strictly
// greater than the previous one. While offline, any different value counts, which covers a
// boot counter that restarted.
func (m *Monitor) RecordHeartbeat(ctx context.Context, deviceID string, value float64) error {
	d := m.device(deviceID)

	d.mu.Lock()
	defer d.mu.Unlock()

	prev := d.state
	now := m.now()

	if !prev.LastHeartbeatAt.IsZero() {
		changed := value > prev.LastValue || (!prev.Online && value != prev.LastValue)
		if !changed {
			m.log.Debugf("Heartbeat %v from %s did not advance past %v", value, deviceID, prev.LastValue)
			return nil
		}
	}

	next := prev
	next.LastHeartbeatAt = now
	next.LastValue = value
	next.Online = true

	if !prev.Online {
		next.LastTransitionAt = now
	}

	if err := m.repo.SaveLiveness(ctx, &next); err != nil {
		return fmt.Errorf("failed to persist heartbeat for %s: %w", deviceID, err)
	}

	d.state = next

	if !prev.Online {
		m.cameOnline(ctx, &prev, &next)
	}

	return nil
}

// Sweep re-evaluates every device against the offline threshold. Failures for one device are
// logged and do not stop the sweep.
func (m *Monitor) Sweep(ctx context.Context) error {
	now := m.now()

	for _, id := range m.deviceIDs() {
		if err := m.evaluate(ctx, id, now); err != nil {
			m.log.Errorf("Failed to evaluate liveness of %s: %v", id, err)
		}
	}

	return nil
}

func (m *Monitor) evaluate(ctx context.Context, deviceID string, now time.Time) error {
	d := m.device(deviceID)

	d.mu.Lock()
	defer d.mu.Unlock()

	prev := d.state
	if prev.LastHeartbeatAt.IsZero() {
		return nil
	}

	age := now.Sub(prev.LastHeartbeatAt)
	if age < 0 {
		m.log.Warnf("Last heartbeat of %s is %s in the future, check clocks", deviceID, -age)
		return nil
	}

	online := prev.Evaluate(now, m.threshold)
	if online == prev.Online {
		return nil
	}

	next := prev
	next.Online = online
	next.LastTransitionAt = now

	if err := m.repo.SaveLiveness(ctx, &next); err != nil {
		return err
	}

	d.state = next

	if online {
		m.cameOnline(ctx, &prev, &next)
		return nil
	}

	m.wentOffline(ctx, &next, age)

	return nil
}

func (m *Monitor) wentOffline(ctx context.Context, state *models.LivenessState, age time.Duration) {
	minutes := int(age.Minutes())

	log := m.log.WithField("device_id", state.DeviceID)
	log.Warnf("Device offline, last heartbeat %d minutes ago", minutes)

	m.record(ctx, state, models.EventOffline, map[string]any{"minutes_offline": minutes})
	m.metrics.Inc(models.CounterLivenessOffline)

	if err := m.sink.OfflineAlert(ctx, state.DeviceID, minutes); err != nil {
		log.Errorf("Failed to send offline alert: %v", err)
	}
}

func (m *Monitor) cameOnline(ctx context.Context, prev, state *models.LivenessState) {
	log := m.log.WithField("device_id", state.DeviceID)
	log.Infof("Device online")

	details := map[string]any{"value": state.LastValue}
	if !prev.LastTransitionAt.IsZero() {
		details["offline_seconds"] = int64(state.LastTransitionAt.Sub(prev.LastTransitionAt).Seconds())
	}

	m.record(ctx, state, models.EventOnline, details)
	m.metrics.Inc(models.CounterLivenessOnline)

	// A device seen for the first time has no offline alert to resolve.
	if prev.LastHeartbeatAt.IsZero() {
		return
	}

	if err := m.sink.Recovered(ctx, state.DeviceID); err != nil {
		log.Errorf("Failed to send recovery: %v", err)
	}
}

func (m *Monitor) record(ctx context.Context, state *models.LivenessState, event string, details map[string]any) {
	entry := &models.AuditEntry{
		DeviceID: state.DeviceID,
		Kind:     models.AuditLiveness,
		Event:    event,
		Details:  details,
	}

	if err := m.audit.Append(ctx, entry); err != nil {
		m.log.Errorf("Failed to audit %s for %s: %v", event, state.DeviceID, err)
	}
}

// Run sweeps every period until ctx ends.
func (m *Monitor) Run(ctx context.Context, period time.Duration) {
	if period <= 0 {
		period = DefaultSweepPeriod
	}

	mon := monitoring.NewMonitor(monitoring.MonitorConfig{
		Name:     "heartbeat-sweep",
		Interval: period,
	}, m.log)

	mon.StartMonitoring(ctx, m.Sweep)
}

// Follow feeds heartbeat writes under the heartbeats root into RecordHeartbeat until ctx ends.
func (m *Monitor) Follow(ctx context.Context, store channel.Store) error {
	events, err := store.Watch(ctx, models.HeartbeatsRoot)
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

			deviceID, value, err := parseHeartbeat(ev)
			if err != nil {
				m.log.Warnf("Ignoring heartbeat at %s: %v", ev.Path, err)
				continue
			}

			if err := m.RecordHeartbeat(ctx, deviceID, value); err != nil {
				m.log.Errorf("Failed to record heartbeat: %v", err)
			}
		}
	}
}

// parseHeartbeat accepts "heartbeats/{id}" holding either a bare number or {"value": n}.
func parseHeartbeat(ev channel.Event) (string, float64, error) {
	rest, ok := strings.CutPrefix(ev.Path, models.HeartbeatsRoot+"/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return "", 0, fmt.Errorf("%w: %s", errBadHeartbeat, ev.Path)
	}

	var value float64
	if err := json.Unmarshal(ev.Value, &value); err == nil {
		return rest, value, nil
	}

	var doc struct {
		Value *float64 `json:"value"`
	}

	if err := json.Unmarshal(ev.Value, &doc); err != nil || doc.Value == nil {
		return "", 0, fmt.Errorf("%w: %s", errBadHeartbeat, string(ev.Value))
	}

	return rest, *doc.Value, nil
}
