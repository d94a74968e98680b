package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/fieldradar/pkg/models"
)

func at(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

func TestNext(t *testing.T) {
	daily := models.Recurrence{Kind: models.RecurrenceDaily, TimeOfDay: "08:00"}
	weekly := models.Recurrence{Kind: models.RecurrenceWeekly, TimeOfDay: "09:30", Weekday: time.Monday}
	monthly := models.Recurrence{Kind: models.RecurrenceMonthly, TimeOfDay: "00:00", DayOfMonth: 31}

	tests := []struct {
		name string
		rec  models.Recurrence
		now  time.Time
		want time.Time
	}{
		{name: "daily before slot", rec: daily, now: at(2025, 4, 10, 7, 59), want: at(2025, 4, 10, 8, 0)},
		{name: "daily after slot", rec: daily, now: at(2025, 4, 10, 8, 1), want: at(2025, 4, 11, 8, 0)},
		{name: "daily at slot", rec: daily, now: at(2025, 4, 10, 8, 0), want: at(2025, 4, 11, 8, 0)},
		{name: "daily year end", rec: daily, now: at(2025, 12, 31, 9, 0), want: at(2026, 1, 1, 8, 0)},
		// 2025-04-09 is a Wednesday.
		{name: "weekly later in week", rec: weekly, now: at(2025, 4, 9, 12, 0), want: at(2025, 4, 14, 9, 30)},
		{name: "weekly same day before", rec: weekly, now: at(2025, 4, 14, 9, 0), want: at(2025, 4, 14, 9, 30)},
		{name: "weekly same day after", rec: weekly, now: at(2025, 4, 14, 9, 30), want: at(2025, 4, 21, 9, 30)},
		{name: "monthly clamps february", rec: monthly, now: at(2025, 1, 31, 0, 0), want: at(2025, 2, 28, 0, 0)},
		{name: "monthly clamps leap february", rec: monthly, now: at(2024, 1, 31, 0, 0), want: at(2024, 2, 29, 0, 0)},
		{name: "monthly after clamp", rec: monthly, now: at(2025, 2, 28, 0, 0), want: at(2025, 3, 31, 0, 0)},
		{name: "monthly clamps thirty", rec: monthly, now: at(2025, 4, 1, 0, 0), want: at(2025, 4, 30, 0, 0)},
		{name: "monthly wraps year", rec: monthly, now: at(2025, 12, 31, 0, 1), want: at(2026, 1, 31, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.rec, tt.now)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
			assert.True(t, got.After(tt.now))
		})
	}
}

func TestNextInTimezone(t *testing.T) {
	if _, err := time.LoadLocation("Asia/Tokyo"); err != nil {
		t.Skip("tzdata not available")
	}

	rec := models.Recurrence{Kind: models.RecurrenceDaily, TimeOfDay: "06:00", Timezone: "Asia/Tokyo"}

	// 20:00 UTC is 05:00 the next day in Tokyo.
	got, err := Next(rec, at(2025, 4, 10, 20, 0))
	require.NoError(t, err)
	assert.True(t, at(2025, 4, 10, 21, 0).Equal(got), got.String())
}

func TestNextErrors(t *testing.T) {
	tests := []struct {
		name string
		rec  models.Recurrence
	}{
		{name: "once without instant", rec: models.Recurrence{Kind: models.RecurrenceOnce}},
		{name: "bad time", rec: models.Recurrence{Kind: models.RecurrenceDaily, TimeOfDay: "25:00"}},
		{name: "missing time", rec: models.Recurrence{Kind: models.RecurrenceDaily}},
		{name: "bad weekday", rec: models.Recurrence{Kind: models.RecurrenceWeekly, TimeOfDay: "08:00", Weekday: 9}},
		{name: "bad day", rec: models.Recurrence{Kind: models.RecurrenceMonthly, TimeOfDay: "08:00", DayOfMonth: 0}},
		{name: "unknown kind", rec: models.Recurrence{Kind: "hourly", TimeOfDay: "08:00"}},
		{name: "bad timezone", rec: models.Recurrence{Kind: models.RecurrenceDaily, TimeOfDay: "08:00", Timezone: "Mars/Base"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Next(tt.rec, at(2025, 1, 1, 0, 0))
			assert.ErrorIs(t, err, ErrScheduleComputation)
		})
	}
}

func TestDue(t *testing.T) {
	now := at(2025, 4, 10, 8, 0)
	past, future := now.Add(-time.Minute), now.Add(time.Minute)

	assert.True(t, Due(&models.ScheduleDefinition{Enabled: true, NextExecutionAt: &now}, now))
	assert.True(t, Due(&models.ScheduleDefinition{Enabled: true, NextExecutionAt: &past}, now))
	assert.False(t, Due(&models.ScheduleDefinition{Enabled: true, NextExecutionAt: &future}, now))
	assert.False(t, Due(&models.ScheduleDefinition{Enabled: false, NextExecutionAt: &past}, now))
	assert.False(t, Due(&models.ScheduleDefinition{Enabled: true}, now))
}

func TestAdvance(t *testing.T) {
	now := at(2025, 4, 10, 8, 0)

	once := models.ScheduleDefinition{
		Enabled:         true,
		NextExecutionAt: &now,
		Recurrence:      models.Recurrence{Kind: models.RecurrenceOnce, At: &now},
	}

	got, err := Advance(once, now)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	assert.Nil(t, got.NextExecutionAt)

	daily := models.ScheduleDefinition{
		Enabled:         true,
		NextExecutionAt: &now,
		Recurrence:      models.Recurrence{Kind: models.RecurrenceDaily, TimeOfDay: "08:00"},
	}

	got, err = Advance(daily, now.Add(30*time.Second))
	require.NoError(t, err)
	assert.True(t, got.Enabled)
	require.NotNil(t, got.NextExecutionAt)
	assert.True(t, at(2025, 4, 11, 8, 0).Equal(*got.NextExecutionAt))
	assert.True(t, now.Equal(*daily.NextExecutionAt))

	// A schedule that was down for days catches up once, then resumes from now.
	got, err = Advance(daily, at(2025, 4, 14, 12, 0))
	require.NoError(t, err)
	assert.True(t, at(2025, 4, 15, 8, 0).Equal(*got.NextExecutionAt))
}
