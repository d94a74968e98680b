/*-
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
	"testing"
	"time"
)

func BenchmarkLockFreeRingBuffer(b *testing.B) {
	buffer := NewLockFreeBuffer(1000)
	now := time.Now()

	b.Run("Add", func(b *testing.B) {
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			buffer.Add(now, int64(i), "cmd")
		}
	})

	b.Run("GetPoints", func(b *testing.B) {
		for i := 0; i < 1000; i++ {
			buffer.Add(now, int64(i), "cmd")
		}

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			_ = buffer.GetPoints()
		}
	})
}

func BenchmarkManagerInc(b *testing.B) {
	m := NewManager(testConfig)

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc("command.completed")
		}
	})
}
