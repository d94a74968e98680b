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

package schedule

import "errors"

var (
	// ErrScheduleComputation marks a recurrence that cannot produce a next execution time.
	// Such schedules are disabled and flagged instead of retried.
	ErrScheduleComputation = errors.New("schedule computation failed")
	ErrInvalidSchedule     = errors.New("invalid schedule")
)
