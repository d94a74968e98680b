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

import (
	"fmt"
	"time"

	"github.com/carverauto/fieldradar/pkg/models"
)

// Due reports whether def should fire at now.
func Due(def *models.ScheduleDefinition, now time.Time) bool {
	return def.Enabled && def.NextExecutionAt != nil && !def.NextExecutionAt.After(now)
}

// Next returns the first execution instant of rec strictly after now. For once it returns
// the configured instant as is.
func Next(rec models.Recurrence, now time.Time) (time.Time, error) {
	if rec.Kind == models.RecurrenceOnce {
		if rec.At == nil {
			return time.Time{}, fmt.Errorf("%w: once without an instant", ErrScheduleComputation)
		}

		return *rec.At, nil
	}

	loc, err := location(rec.Timezone)
	if err != nil {
		return time.Time{}, err
	}

	hour, minute, err := parseTimeOfDay(rec.TimeOfDay)
	if err != nil {
		return time.Time{}, err
	}

	local := now.In(loc)
	y, m, d := local.Date()

	switch rec.Kind {
	case models.RecurrenceDaily:
		next := time.Date(y, m, d, hour, minute, 0, 0, loc)
		if !next.After(now) {
			next = time.Date(y, m, d+1, hour, minute, 0, 0, loc)
		}

		return next, nil

	case models.RecurrenceWeekly:
		if rec.Weekday < time.Sunday || rec.Weekday > time.Saturday {
			return time.Time{}, fmt.Errorf("%w: weekday %d", ErrScheduleComputation, rec.Weekday)
		}

		days := (int(rec.Weekday) - int(local.Weekday()) + 7) % 7

		next := time.Date(y, m, d+days, hour, minute, 0, 0, loc)
		if !next.After(now) {
			next = time.Date(y, m, d+days+7, hour, minute, 0, 0, loc)
		}

		return next, nil

	case models.RecurrenceMonthly:
		if rec.DayOfMonth < 1 || rec.DayOfMonth > 31 {
			return time.Time{}, fmt.Errorf("%w: day of month %d", ErrScheduleComputation, rec.DayOfMonth)
		}

		for i := 0; i <= 12; i++ {
			first := time.Date(y, m+time.Month(i), 1, 0, 0, 0, 0, loc)
			day := min(rec.DayOfMonth, daysIn(first))

			next := time.Date(first.Year(), first.Month(), day, hour, minute, 0, 0, loc)
			if next.After(now) {
				return next, nil
			}
		}

		return time.Time{}, fmt.Errorf("%w: no monthly slot within a year", ErrScheduleComputation)

	case models.RecurrenceOnce:
	}

	return time.Time{}, fmt.Errorf("%w: unknown recurrence %q", ErrScheduleComputation, rec.Kind)
}

// Advance returns def moved past an execution at now. A once schedule is disabled;
// a recurring one gets a next execution strictly after now.
func Advance(def models.ScheduleDefinition, now time.Time) (models.ScheduleDefinition, error) {
	if def.Recurrence.Kind == models.RecurrenceOnce {
		def.Enabled = false
		def.NextExecutionAt = nil

		return def, nil
	}

	next, err := Next(def.Recurrence, now)
	if err != nil {
		return def, err
	}

	next = next.UTC()
	def.NextExecutionAt = &next

	return def, nil
}

func daysIn(first time.Time) int {
	return time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, first.Location()).Day()
}

func location(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %w", ErrScheduleComputation, name, err)
	}

	return loc, nil
}

func parseTimeOfDay(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: time of day %q", ErrScheduleComputation, s)
	}

	return t.Hour(), t.Minute(), nil
}
