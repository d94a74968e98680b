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

// Package monitoring pkg/monitoring/monitor.go
package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/carverauto/fieldradar/pkg/logger"
)

// MonitorConfig holds configuration for a periodic job.
type MonitorConfig struct {
	Name     string
	Interval time.Duration
	// SkipInitial suppresses the immediate check on start.
	SkipInitial bool
}

// Monitor runs a check function on a fixed period until stopped.
type Monitor struct {
	config MonitorConfig
	log    logger.Logger
	done   chan struct{}
	once   sync.Once
}

// NewMonitor creates a new periodic job.
func NewMonitor(cfg MonitorConfig, log logger.Logger) *Monitor {
	return &Monitor{
		config: cfg,
		log:    log.WithField("job", cfg.Name),
		done:   make(chan struct{}),
	}
}

// StartMonitoring blocks, calling check every Interval until ctx ends or Stop is called.
// Errors returned by check are logged; the loop keeps running.
func (m *Monitor) StartMonitoring(ctx context.Context, check func(context.Context) error) {
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	if !m.config.SkipInitial {
		if err := check(ctx); err != nil {
			m.log.Warnf("Initial check failed: %v", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case <-ticker.C:
			if err := check(ctx); err != nil {
				m.log.Warnf("Check failed: %v", err)
			}
		}
	}
}

// Stop stops the monitoring. Safe to call more than once.
func (m *Monitor) Stop(_ context.Context) {
	m.once.Do(func() { close(m.done) })
}
