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
	"time"

	"github.com/carverauto/fieldradar/pkg/models"
)

//go:generate mockgen -destination=mock_metrics.go -package=metrics github.com/carverauto/fieldradar/pkg/metrics MetricStore,MetricCollector

type MetricStore interface {
	Add(timestamp time.Time, latencyMs int64, commandID string)
	GetPoints() []models.MetricPoint
	GetLastPoint() *models.MetricPoint
}

// MetricCollector records command latencies per device and named event counters.
type MetricCollector interface {
	AddMetric(deviceID string, timestamp time.Time, latencyMs int64, commandID string) error
	GetMetrics(deviceID string) []models.MetricPoint
	Inc(name string)
	Counters() map[string]int64
	CleanupStaleDevices(staleDuration time.Duration)
}
