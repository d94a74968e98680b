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

package sensor

import (
	"sync"
	"time"

	"github.com/carverauto/fieldradar/pkg/config"
	"github.com/carverauto/fieldradar/pkg/logger"
	"github.com/carverauto/fieldradar/pkg/metrics"
	"github.com/carverauto/fieldradar/pkg/models"
)

const (
	DefaultStalenessWindow = time.Hour
	DefaultDedupWindow     = 5 * time.Minute
)

// Reason explains why a reading was rejected.
type Reason string

const (
	ReasonAllNull       Reason = "all_values_null"
	ReasonStale         Reason = "stale"
	ReasonNearDuplicate Reason = "near_duplicate"
)

// Decision is the outcome of Accept. Age is set for stale readings.
type Decision struct {
	Accepted bool          `json:"accepted"`
	Reason   Reason        `json:"reason,omitempty"`
	Age      time.Duration `json:"age,omitempty"`
}

// Options configures a Deduplicator.
type Options struct {
	StalenessWindow time.Duration
	DedupWindow     time.Duration
	Metrics         metrics.MetricCollector
	Logger          logger.Logger
}

// Deduplicator filters readings per device against the last accepted one.
type Deduplicator struct {
	staleness time.Duration
	window    time.Duration
	metrics   metrics.MetricCollector
	log       logger.Logger

	mu   sync.Mutex
	last map[string]reference
}

// reference is the last accepted reading of a device and the one it replaced.
type reference struct {
	reading  models.SensorReading
	previous *models.SensorReading
}

func NewDeduplicator(opts Options) *Deduplicator {
	if opts.StalenessWindow <= 0 {
		opts.StalenessWindow = DefaultStalenessWindow
	}

	if opts.DedupWindow <= 0 {
		opts.DedupWindow = DefaultDedupWindow
	}

	if opts.Metrics == nil {
		opts.Metrics = metrics.NewManager(config.MetricsConfig{})
	}

	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}

	return &Deduplicator{
		staleness: opts.StalenessWindow,
		window:    opts.DedupWindow,
		metrics:   opts.Metrics,
		log:       opts.Logger.WithField("component", "sensor_dedup"),
		last:      make(map[string]reference),
	}
}

// Seed sets the last accepted reading of a device, e.g. from the durable log at startup.
func (d *Deduplicator) Seed(r models.SensorReading) {
	d.mu.Lock()
	d.last[r.DeviceID] = reference{reading: r}
	d.mu.Unlock()
}

// Revert undoes the acceptance of r when it could not be stored, restoring the previous
// reference so a resubmission of r is not rejected as its own duplicate. It is a no-op
// if another reading has been accepted for the device since.
func (d *Deduplicator) Revert(r *models.SensorReading) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ref, ok := d.last[r.DeviceID]
	if !ok || !sameReading(&ref.reading, r) {
		return
	}

	if ref.previous == nil {
		delete(d.last, r.DeviceID)
		return
	}

	d.last[r.DeviceID] = reference{reading: *ref.previous}
}

// Accept decides whether r is kept. An accepted reading becomes the new reference for its device.
func (d *Deduplicator) Accept(r *models.SensorReading) Decision {
	decision := d.decide(r)

	if decision.Accepted {
		d.metrics.Inc(models.CounterSensorAccepted)
	} else {
		d.metrics.Inc(models.CounterSensorRejected + string(decision.Reason))
		d.log.Debugf("Rejected reading from %s: %s", r.DeviceID, decision.Reason)
	}

	return decision
}

func (d *Deduplicator) decide(r *models.SensorReading) Decision {
	if r.Values.Empty() {
		return Decision{Reason: ReasonAllNull}
	}

	// Boot-relative clocks cannot be compared to wall time. A source timestamp ahead of
	// the receive time is accepted.
	if !r.BootRelative && !r.SourceTimestamp.IsZero() {
		if age := r.ReceivedAt.Sub(r.SourceTimestamp); age >= d.staleness {
			return Decision{Reason: ReasonStale, Age: age}
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	cur, ok := d.last[r.DeviceID]
	if ok && cur.reading.Values.Equal(&r.Values) {
		delta := r.EffectiveTime().Sub(cur.reading.EffectiveTime())
		if delta < 0 {
			delta = -delta
		}

		if delta < d.window {
			return Decision{Reason: ReasonNearDuplicate}
		}
	}

	next := reference{reading: *r}
	if ok {
		prev := cur.reading
		next.previous = &prev
	}

	d.last[r.DeviceID] = next

	return Decision{Accepted: true}
}

func sameReading(a, b *models.SensorReading) bool {
	return a.BootRelative == b.BootRelative &&
		a.SourceTimestamp.Equal(b.SourceTimestamp) &&
		a.ReceivedAt.Equal(b.ReceivedAt) &&
		a.Values.Equal(&b.Values)
}
