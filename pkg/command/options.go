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
	"time"

	"github.com/carverauto/fieldradar/pkg/audit"
	"github.com/carverauto/fieldradar/pkg/channel"
	"github.com/carverauto/fieldradar/pkg/config"
	"github.com/carverauto/fieldradar/pkg/logger"
	"github.com/carverauto/fieldradar/pkg/metrics"
	"github.com/carverauto/fieldradar/pkg/models"
	"github.com/carverauto/fieldradar/pkg/notifications"
	"github.com/carverauto/fieldradar/pkg/registry"
)

const DefaultTimeout = 30 * time.Second

// LivenessReader is the read side of the heartbeat monitor.
type LivenessReader interface {
	CurrentLiveness(deviceID string) models.LivenessState
}

// Options wires the dispatcher, watcher and sweeper to their collaborators.
// Registry and Liveness are optional.
type Options struct {
	Store    channel.Store
	Audit    audit.Store
	Registry registry.Registry
	Liveness LivenessReader
	Sink     notifications.Sink
	Metrics  metrics.MetricCollector
	Logger   logger.Logger
	Timeout  time.Duration
	Clock    func() time.Time
}

func (o *Options) setDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}

	if o.Clock == nil {
		o.Clock = time.Now
	}

	if o.Logger == nil {
		o.Logger = logger.Discard()
	}

	if o.Metrics == nil {
		o.Metrics = metrics.NewManager(config.MetricsConfig{})
	}
}
