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

package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/carverauto/fieldradar/pkg/config"
	"github.com/carverauto/fieldradar/pkg/models"
)

const defaultRetention = 100

type deviceMetrics struct {
	mu       sync.RWMutex
	buffer   MetricStore
	lastSeen atomic.Int64
}

// Manager holds per-device latency buffers and process-wide counters.
type Manager struct {
	devices       sync.Map // deviceID -> *deviceMetrics
	counters      sync.Map // name -> *atomic.Int64
	config        config.MetricsConfig
	activeDevices int64
}

func NewManager(cfg config.MetricsConfig) *Manager {
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}

	return &Manager{config: cfg}
}

func (m *Manager) AddMetric(deviceID string, timestamp time.Time, latencyMs int64, commandID string) error {
	if !m.config.Enabled {
		return nil
	}

	v, loaded := m.devices.LoadOrStore(deviceID, &deviceMetrics{
		buffer: NewBuffer(m.config.Retention),
	})

	if !loaded {
		atomic.AddInt64(&m.activeDevices, 1)
	}

	dm := v.(*deviceMetrics)

	dm.mu.Lock()
	defer dm.mu.Unlock()

	dm.buffer.Add(timestamp, latencyMs, commandID)
	dm.lastSeen.Store(time.Now().UnixNano())

	return nil
}

func (m *Manager) GetMetrics(deviceID string) []models.MetricPoint {
	v, ok := m.devices.Load(deviceID)
	if !ok {
		return nil
	}

	dm := v.(*deviceMetrics)

	dm.mu.RLock()
	defer dm.mu.RUnlock()

	return dm.buffer.GetPoints()
}

// Inc increments the named counter. Counters are kept even when latency metrics are disabled.
func (m *Manager) Inc(name string) {
	v, _ := m.counters.LoadOrStore(name, new(atomic.Int64))
	v.(*atomic.Int64).Add(1)
}

// Counter returns the current value of a single counter.
func (m *Manager) Counter(name string) int64 {
	v, ok := m.counters.Load(name)
	if !ok {
		return 0
	}

	return v.(*atomic.Int64).Load()
}

func (m *Manager) Counters() map[string]int64 {
	out := make(map[string]int64)

	m.counters.Range(func(key, value any) bool {
		out[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})

	return out
}

func (m *Manager) CleanupStaleDevices(staleDuration time.Duration) {
	cutoff := time.Now().Add(-staleDuration).UnixNano()

	m.devices.Range(func(key, value any) bool {
		if value.(*deviceMetrics).lastSeen.Load() < cutoff {
			m.devices.Delete(key)
			atomic.AddInt64(&m.activeDevices, -1)
		}

		return true
	})
}

func (m *Manager) GetActiveDevices() int64 {
	return atomic.LoadInt64(&m.activeDevices)
}
