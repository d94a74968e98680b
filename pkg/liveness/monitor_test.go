package liveness

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/fieldradar/pkg/audit"
	"github.com/carverauto/fieldradar/pkg/channel"
	"github.com/carverauto/fieldradar/pkg/db"
	"github.com/carverauto/fieldradar/pkg/models"
	"github.com/carverauto/fieldradar/pkg/notifications"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type fixture struct {
	monitor *Monitor
	sink    *notifications.MockSink
	audit   *audit.MemoryStore
	clock   *fakeClock
	db      *db.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	database, err := db.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	f := &fixture{
		sink:  notifications.NewMockSink(gomock.NewController(t)),
		audit: audit.NewMemoryStore(),
		clock: &fakeClock{now: t0},
		db:    database,
	}

	f.monitor = NewMonitor(Options{
		Repository: database,
		Audit:      f.audit,
		Sink:       f.sink,
		Clock:      f.clock.Now,
	})

	return f
}

func TestIncreasingHeartbeatsKeepDeviceOnline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.monitor.RecordHeartbeat(ctx, "dev-1", 100))

	f.clock.Set(t0.Add(5 * time.Minute))
	require.NoError(t, f.monitor.RecordHeartbeat(ctx, "dev-1", 101))

	state := f.monitor.CurrentLiveness("dev-1")
	assert.True(t, state.Online)
	assert.Equal(t, 101.0, state.LastValue)
	assert.True(t, t0.Add(5*time.Minute).Equal(state.LastHeartbeatAt))
	assert.True(t, t0.Equal(state.LastTransitionAt))

	events := f.audit.Events("dev-1", models.AuditLiveness)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventOnline, events[0].Event)
}

func TestOfflineTransitionEdge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.monitor.RecordHeartbeat(ctx, "dev-1", 1))

	f.clock.Set(t0.Add(DefaultOfflineThreshold - time.Second))
	require.NoError(t, f.monitor.Sweep(ctx))
	assert.True(t, f.monitor.CurrentLiveness("dev-1").Online)

	f.sink.EXPECT().OfflineAlert(gomock.Any(), "dev-1", 10).Return(nil).Times(1)

	f.clock.Set(t0.Add(DefaultOfflineThreshold + time.Second))
	require.NoError(t, f.monitor.Sweep(ctx))
	assert.False(t, f.monitor.CurrentLiveness("dev-1").Online)

	f.clock.Set(t0.Add(DefaultOfflineThreshold + 3*time.Minute))
	require.NoError(t, f.monitor.Sweep(ctx))

	events := f.audit.Events("dev-1", models.AuditLiveness)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventOffline, events[1].Event)

	persisted, err := f.db.ListLiveness(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.False(t, persisted[0].Online)
}

func TestRecoveryAfterOffline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.monitor.RecordHeartbeat(ctx, "dev-1", 7))

	f.sink.EXPECT().OfflineAlert(gomock.Any(), "dev-1", gomock.Any()).Return(nil)

	f.clock.Set(t0.Add(time.Hour))
	require.NoError(t, f.monitor.Sweep(ctx))

	// The boot counter restarted while the device was down.
	f.sink.EXPECT().Recovered(gomock.Any(), "dev-1").Return(nil).Times(1)

	f.clock.Set(t0.Add(2 * time.Hour))
	require.NoError(t, f.monitor.RecordHeartbeat(ctx, "dev-1", 1))

	state := f.monitor.CurrentLiveness("dev-1")
	assert.True(t, state.Online)
	assert.True(t, t0.Add(2*time.Hour).Equal(state.LastTransitionAt))

	require.NoError(t, f.monitor.RecordHeartbeat(ctx, "dev-1", 2))

	events := f.audit.Events("dev-1", models.AuditLiveness)
	require.Len(t, events, 3)
	assert.Equal(t, models.EventOnline, events[2].Event)
	assert.EqualValues(t, 3600, events[2].Details["offline_seconds"])
}

func TestRepeatedHeartbeatIsNotASignal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.monitor.RecordHeartbeat(ctx, "dev-1", 50))

	f.clock.Set(t0.Add(4 * time.Minute))
	require.NoError(t, f.monitor.RecordHeartbeat(ctx, "dev-1", 50))
	require.NoError(t, f.monitor.RecordHeartbeat(ctx, "dev-1", 49))

	assert.True(t, t0.Equal(f.monitor.CurrentLiveness("dev-1").LastHeartbeatAt))
}

func TestFutureHeartbeatIsIgnoredBySweep(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)

	repo.EXPECT().ListLiveness(gomock.Any()).Return([]models.LivenessState{
		{DeviceID: "dev-1", LastHeartbeatAt: t0.Add(time.Hour), Online: false},
	}, nil)

	m := NewMonitor(Options{
		Repository: repo,
		Audit:      audit.NewMemoryStore(),
		Sink:       notifications.NewMockSink(ctrl),
		Clock:      func() time.Time { return t0 },
	})

	require.NoError(t, m.Load(context.Background()))
	require.NoError(t, m.Sweep(context.Background()))

	assert.False(t, m.CurrentLiveness("dev-1").Online)
}

func TestPersistFailureDefersNotification(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	sink := notifications.NewMockSink(ctrl)
	clock := &fakeClock{now: t0}

	m := NewMonitor(Options{
		Repository: repo,
		Audit:      audit.NewMemoryStore(),
		Sink:       sink,
		Clock:      clock.Now,
	})

	repo.EXPECT().SaveLiveness(gomock.Any(), gomock.Any()).Return(nil)
	require.NoError(t, m.RecordHeartbeat(context.Background(), "dev-1", 1))

	clock.Set(t0.Add(20 * time.Minute))

	failed := repo.EXPECT().SaveLiveness(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
	require.NoError(t, m.Sweep(context.Background()))

	repo.EXPECT().SaveLiveness(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, s *models.LivenessState) error {
			assert.False(t, s.Online)
			return nil
		}).After(failed)
	sink.EXPECT().OfflineAlert(gomock.Any(), "dev-1", 20).Return(nil).Times(1)

	require.NoError(t, m.Sweep(context.Background()))
}

func TestLoadRestoresState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.db.SaveLiveness(ctx, &models.LivenessState{
		DeviceID:         "dev-2",
		LastHeartbeatAt:  t0.Add(-time.Minute),
		LastValue:        9,
		Online:           true,
		LastTransitionAt: t0.Add(-time.Hour),
	}))

	require.NoError(t, f.monitor.Load(ctx))

	state := f.monitor.CurrentLiveness("dev-2")
	assert.True(t, state.Online)
	assert.Equal(t, 9.0, state.LastValue)

	devices := f.monitor.Devices()
	require.Len(t, devices, 1)
	assert.Equal(t, "dev-2", devices[0].DeviceID)

	assert.False(t, f.monitor.CurrentLiveness("dev-unknown").Online)
}

func TestFollowRecordsChannelHeartbeats(t *testing.T) {
	f := newFixture(t)
	store := channel.NewMemoryStore()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		assert.NoError(t, f.monitor.Follow(ctx, store))
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})

	value := 0.0

	assert.Eventually(t, func() bool {
		value++
		_ = store.Set(context.Background(), "heartbeats/dev-3", map[string]any{"value": value})

		return f.monitor.CurrentLiveness("dev-3").Online
	}, time.Second, 10*time.Millisecond)
}

func TestParseHeartbeat(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		value   string
		device  string
		want    float64
		wantErr bool
	}{
		{name: "bare number", path: "heartbeats/dev-1", value: `1718000000`, device: "dev-1", want: 1718000000},
		{name: "object", path: "heartbeats/dev-2", value: `{"value": 3}`, device: "dev-2", want: 3},
		{name: "nested path", path: "heartbeats/dev-1/extra", value: `1`, wantErr: true},
		{name: "no value", path: "heartbeats/dev-1", value: `{"uptime": 3}`, wantErr: true},
		{name: "string", path: "heartbeats/dev-1", value: `"now"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device, value, err := parseHeartbeat(channel.Event{Path: tt.path, Value: json.RawMessage(tt.value)})
			if tt.wantErr {
				assert.ErrorIs(t, err, errBadHeartbeat)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.device, device)
			assert.Equal(t, tt.want, value)
		})
	}
}
