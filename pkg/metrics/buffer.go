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
	"sync/atomic"
	"time"

	"github.com/carverauto/fieldradar/pkg/models"
)

type metricPoint struct {
	timestamp int64
	latency   int64
	commandID string
}

// LockFreeRingBuffer keeps the most recent size points. Writers never block.
type LockFreeRingBuffer struct {
	points []metricPoint
	pos    int64 // Atomic position counter
	size   int64
}

// NewBuffer creates the default MetricStore.
func NewBuffer(size int) MetricStore {
	return NewLockFreeBuffer(size)
}

// NewLockFreeBuffer creates a new LockFreeRingBuffer with the specified size.
func NewLockFreeBuffer(size int) *LockFreeRingBuffer {
	if size <= 0 {
		size = 1
	}

	return &LockFreeRingBuffer{
		points: make([]metricPoint, size),
		size:   int64(size),
	}
}

// Add adds a new metric point to the buffer, overwriting the oldest when full.
func (b *LockFreeRingBuffer) Add(timestamp time.Time, latencyMs int64, commandID string) {
	pos := atomic.AddInt64(&b.pos, 1) - 1
	idx := pos % b.size

	b.points[idx] = metricPoint{
		timestamp: timestamp.UnixNano(),
		latency:   latencyMs,
		commandID: commandID,
	}
}

// GetPoints returns the recorded points, oldest first.
func (b *LockFreeRingBuffer) GetPoints() []models.MetricPoint {
	pos := atomic.LoadInt64(&b.pos)

	count := pos
	if count > b.size {
		count = b.size
	}

	points := make([]models.MetricPoint, 0, count)

	for i := count; i > 0; i-- {
		p := b.points[(pos-i)%b.size]

		points = append(points, models.MetricPoint{
			Timestamp: time.Unix(0, p.timestamp),
			LatencyMs: p.latency,
			CommandID: p.commandID,
		})
	}

	return points
}

func (b *LockFreeRingBuffer) GetLastPoint() *models.MetricPoint {
	pos := atomic.LoadInt64(&b.pos)
	if pos == 0 {
		return nil
	}

	p := b.points[(pos-1)%b.size]

	return &models.MetricPoint{
		Timestamp: time.Unix(0, p.timestamp),
		LatencyMs: p.latency,
		CommandID: p.commandID,
	}
}
