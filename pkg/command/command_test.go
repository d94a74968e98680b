package command

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/fieldradar/pkg/audit"
	"github.com/carverauto/fieldradar/pkg/channel"
	"github.com/carverauto/fieldradar/pkg/config"
	"github.com/carverauto/fieldradar/pkg/metrics"
	"github.com/carverauto/fieldradar/pkg/models"
	"github.com/carverauto/fieldradar/pkg/notifications"
)

var t0 = time.Date(2025, 3, 14, 7, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeLiveness map[string]bool

func (f fakeLiveness) CurrentLiveness(deviceID string) models.LivenessState {
	return models.LivenessState{DeviceID: deviceID, Online: f[deviceID]}
}

type harness struct {
	store   *channel.MemoryStore
	audit   *audit.MemoryStore
	sink    *notifications.MockSink
	metrics *metrics.Manager
	clock   *fakeClock
	opts    Options
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	ctrl := gomock.NewController(t)

	h := &harness{
		store:   channel.NewMemoryStore(),
		audit:   audit.NewMemoryStore(),
		sink:    notifications.NewMockSink(ctrl),
		metrics: metrics.NewManager(config.MetricsConfig{Enabled: true}),
		clock:   &fakeClock{now: t0},
	}

	h.opts = Options{
		Store:   h.store,
		Audit:   h.audit,
		Sink:    h.sink,
		Metrics: h.metrics,
		Timeout: 30 * time.Second,
		Clock:   h.clock.Now,
	}

	return h
}

func relay(slot string) models.NodeIdentity {
	return models.NodeIdentity{DeviceID: "dev-1", Channel: models.ChannelRelay, Slot: slot}
}

func (h *harness) record(t *testing.T, node models.NodeIdentity) models.CommandRecord {
	t.Helper()

	doc, err := h.store.Get(context.Background(), node.Path())
	require.NoError(t, err)

	var rec models.CommandRecord
	require.NoError(t, json.Unmarshal(doc, &rec))

	return rec
}

// respond simulates the device writing its status back.
func (h *harness) respond(t *testing.T, node models.NodeIdentity, fields map[string]any) {
	t.Helper()

	require.NoError(t, h.store.Update(context.Background(), node.Path(), fields))
}

func TestTransitions(t *testing.T) {
	legal := [][2]models.CommandState{
		{models.CommandPending, models.CommandSent},
		{models.CommandSent, models.CommandAcknowledged},
		{models.CommandSent, models.CommandCompleted},
		{models.CommandSent, models.CommandTimedOut},
		{models.CommandAcknowledged, models.CommandFailed},
		{models.CommandAcknowledged, models.CommandTimedOut},
	}

	for _, edge := range legal {
		assert.NoError(t, Transition(edge[0], edge[1]), "%s -> %s", edge[0], edge[1])
	}

	illegal := [][2]models.CommandState{
		{models.CommandPending, models.CommandCompleted},
		{models.CommandAcknowledged, models.CommandSent},
		{models.CommandCompleted, models.CommandFailed},
		{models.CommandTimedOut, models.CommandCompleted},
		{models.CommandFailed, models.CommandAcknowledged},
		{models.CommandSent, models.CommandSent},
	}

	for _, edge := range illegal {
		assert.ErrorIs(t, Transition(edge[0], edge[1]), ErrIllegalTransition, "%s -> %s", edge[0], edge[1])
	}
}

func TestStateForStatus(t *testing.T) {
	tests := map[string]models.CommandState{
		"received":  models.CommandAcknowledged,
		"executing": models.CommandAcknowledged,
		"completed": models.CommandCompleted,
		"SUCCESS":   models.CommandCompleted,
		"failed":    models.CommandFailed,
		"error":     models.CommandFailed,
	}

	for status, want := range tests {
		got, ok := StateForStatus(status)
		assert.True(t, ok, status)
		assert.Equal(t, want, got, status)
	}

	for _, status := range []string{"", "timeout", "sent", "bogus"} {
		_, ok := StateForStatus(status)
		assert.False(t, ok, status)
	}
}

func TestDispatchWritesSentRecord(t *testing.T) {
	h := newHarness(t)
	d := NewDispatcher(h.opts)

	handle, err := d.Dispatch(context.Background(), relay("1"), models.ActionOn, nil, "user-7")
	require.NoError(t, err)
	require.NoError(t, handle.Warning)

	rec := h.record(t, relay("1"))
	assert.Equal(t, handle.ID, rec.ID)
	assert.Equal(t, models.CommandSent, rec.State)
	assert.True(t, t0.Equal(rec.SentAt))
	assert.Equal(t, "user-7", rec.RequestedBy)

	events := h.audit.Events("dev-1", models.AuditCommand)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventSent, events[0].Event)
	assert.Equal(t, handle.ID, events[0].CommandID)

	assert.Equal(t, int64(1), h.metrics.Counter(models.CounterCommandSent))
}

func TestDispatchRejections(t *testing.T) {
	tests := []struct {
		name   string
		node   models.NodeIdentity
		action string
		want   error
	}{
		{name: "unknown slot", node: relay("9"), action: models.ActionOn, want: ErrUnknownNode},
		{
			name:   "unknown channel",
			node:   models.NodeIdentity{DeviceID: "dev-1", Channel: "valve", Slot: "1"},
			action: "open",
			want:   ErrUnknownNode,
		},
		{name: "unsupported action", node: relay("1"), action: "forward", want: ErrUnsupportedAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			_, err := NewDispatcher(h.opts).Dispatch(context.Background(), tt.node, tt.action, nil, "user-7")
			require.ErrorIs(t, err, ErrDispatch)
			require.ErrorIs(t, err, tt.want)

			var de *DispatchError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.node, de.Node)

			_, err = h.store.Get(context.Background(), tt.node.Path())
			assert.ErrorIs(t, err, channel.ErrNotFound)
			assert.Empty(t, h.audit.Events("dev-1", models.AuditCommand))
		})
	}
}

func TestDispatchNodeBusy(t *testing.T) {
	h := newHarness(t)
	d := NewDispatcher(h.opts)
	ctx := context.Background()

	first, err := d.Dispatch(ctx, relay("1"), models.ActionOn, nil, "user-7")
	require.NoError(t, err)

	_, err = d.Dispatch(ctx, relay("1"), models.ActionOff, nil, "user-7")
	require.ErrorIs(t, err, ErrNodeBusy)

	rec := h.record(t, relay("1"))
	assert.Equal(t, first.ID, rec.ID)
	assert.Equal(t, models.ActionOn, rec.Action)

	// Other nodes on the same device are independent.
	_, err = d.Dispatch(ctx, relay("2"), models.ActionOn, nil, "user-7")
	require.NoError(t, err)

	// Once terminal, the slot accepts a new command.
	h.respond(t, relay("1"), map[string]any{"status": "completed", "actual_state": true})
	NewWatcher(h.opts).Handle(ctx, channel.Event{Path: relay("1").Path()})

	second, err := d.Dispatch(ctx, relay("1"), models.ActionOff, nil, "user-7")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	rec = h.record(t, relay("1"))
	assert.Equal(t, models.CommandSent, rec.State)
	assert.Empty(t, rec.Status)
	assert.Equal(t, int64(1), h.metrics.Counter(models.CounterCommandRejected))
}

func TestDispatchOfflineDeviceWarns(t *testing.T) {
	h := newHarness(t)
	h.opts.Liveness = fakeLiveness{"dev-1": false}

	handle, err := NewDispatcher(h.opts).Dispatch(context.Background(), relay("1"), models.ActionOn, nil, "user-7")
	require.NoError(t, err)
	require.ErrorIs(t, handle.Warning, ErrDeviceOffline)

	assert.Equal(t, models.CommandSent, h.record(t, relay("1")).State)
}

func TestDispatchScheduled(t *testing.T) {
	h := newHarness(t)

	def := &models.ScheduleDefinition{ID: "sched-1", Node: relay("3"), Action: models.ActionOff}

	handle, err := NewDispatcher(h.opts).DispatchScheduled(context.Background(), def)
	require.NoError(t, err)

	rec := h.record(t, relay("3"))
	assert.Equal(t, handle.ID, rec.ID)
	assert.Equal(t, "sched-1", rec.ScheduleID)
	assert.Equal(t, models.RequestedByScheduler, rec.RequestedBy)
}

func TestCompletedRelayIsMirrored(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	handle, err := NewDispatcher(h.opts).Dispatch(ctx, relay("1"), models.ActionOn, nil, "user-7")
	require.NoError(t, err)

	h.clock.Advance(2 * time.Second)
	h.respond(t, relay("1"), map[string]any{"status": "completed", "actual_state": true})

	// No sink expectations: a completed command notifies nobody.
	NewWatcher(h.opts).Handle(ctx, channel.Event{Path: relay("1").Path()})

	rec := h.record(t, relay("1"))
	assert.Equal(t, models.CommandCompleted, rec.State)
	require.NotNil(t, rec.CompletedAt)
	assert.Equal(t, 2*time.Second, rec.CompletedAt.Sub(rec.SentAt))

	snap, err := NewStateMirror(h.store).Read(ctx, relay("1"))
	require.NoError(t, err)
	assert.True(t, snap.Value)
	assert.Equal(t, handle.ID, snap.CommandID)

	points := h.metrics.GetMetrics("dev-1")
	require.Len(t, points, 1)
	assert.Equal(t, int64(2000), points[0].LatencyMs)

	events := h.audit.Events("dev-1", models.AuditCommand)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventCompleted, events[1].Event)
}

func TestRedeliveredFailureNotifiesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	handle, err := NewDispatcher(h.opts).Dispatch(ctx, relay("2"), models.ActionOn, nil, "user-7")
	require.NoError(t, err)

	h.sink.EXPECT().CommandFailed(gomock.Any(), "dev-1", handle.ID, "relay stuck").Return(nil).Times(1)

	h.respond(t, relay("2"), map[string]any{"status": "failed", "error": "relay stuck"})

	w := NewWatcher(h.opts)
	ev := channel.Event{Path: relay("2").Path()}

	w.Handle(ctx, ev)
	w.Handle(ctx, ev)
	w.Handle(ctx, ev)

	assert.Equal(t, models.CommandFailed, h.record(t, relay("2")).State)
	assert.Len(t, h.audit.Events("dev-1", models.AuditCommand), 2)
	assert.Equal(t, int64(1), h.metrics.Counter(models.CounterCommandFailed))

	_, err = NewStateMirror(h.store).Read(ctx, relay("2"))
	assert.ErrorIs(t, err, channel.ErrNotFound)
}

func TestAcknowledgeThenComplete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w := NewWatcher(h.opts)

	_, err := NewDispatcher(h.opts).Dispatch(ctx, relay("4"), models.ActionOff, nil, "user-7")
	require.NoError(t, err)

	h.respond(t, relay("4"), map[string]any{"status": "received"})
	w.Handle(ctx, channel.Event{Path: relay("4").Path()})

	rec := h.record(t, relay("4"))
	assert.Equal(t, models.CommandAcknowledged, rec.State)
	assert.NotNil(t, rec.AcknowledgedAt)

	h.respond(t, relay("4"), map[string]any{"status": "completed"})
	w.Handle(ctx, channel.Event{Path: relay("4").Path()})

	assert.Equal(t, models.CommandCompleted, h.record(t, relay("4")).State)

	// Without an actual state the action decides the mirrored value.
	snap, err := NewStateMirror(h.store).Read(ctx, relay("4"))
	require.NoError(t, err)
	assert.False(t, snap.Value)
}

func TestTimeoutAfterSweep(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	handle, err := NewDispatcher(h.opts).Dispatch(ctx, relay("1"), models.ActionOn, nil, "user-7")
	require.NoError(t, err)

	s := NewSweeper(h.opts)

	h.clock.Advance(30 * time.Second)
	require.NoError(t, s.Sweep(ctx))
	assert.Equal(t, models.CommandSent, h.record(t, relay("1")).State)

	h.sink.EXPECT().CommandFailed(gomock.Any(), "dev-1", handle.ID, models.StatusTimeout).Return(nil).Times(1)

	h.clock.Advance(time.Second)
	require.NoError(t, s.Sweep(ctx))
	require.NoError(t, s.Sweep(ctx))

	rec := h.record(t, relay("1"))
	assert.Equal(t, models.CommandTimedOut, rec.State)
	assert.Equal(t, models.StatusTimeout, rec.Status)

	events := h.audit.Events("dev-1", models.AuditCommand)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventTimedOut, events[1].Event)
	assert.Equal(t, models.StatusTimeout, events[1].Reason)
	assert.EqualValues(t, 31, events[1].Details["elapsed_seconds"])

	// A late answer does not resurrect the command or touch the mirror.
	h.respond(t, relay("1"), map[string]any{"status": "completed", "actual_state": true})
	NewWatcher(h.opts).Handle(ctx, channel.Event{Path: relay("1").Path()})

	assert.Equal(t, models.CommandTimedOut, h.record(t, relay("1")).State)

	_, err = NewStateMirror(h.store).Read(ctx, relay("1"))
	assert.ErrorIs(t, err, channel.ErrNotFound)
}

func TestEveryCommandConverges(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	d := NewDispatcher(h.opts)
	w := NewWatcher(h.opts)

	for _, slot := range []string{"1", "2", "3", "4"} {
		_, err := d.Dispatch(ctx, relay(slot), models.ActionOn, nil, "user-7")
		require.NoError(t, err)
	}

	h.sink.EXPECT().CommandFailed(gomock.Any(), "dev-1", gomock.Any(), gomock.Any()).Return(nil).Times(3)

	h.respond(t, relay("1"), map[string]any{"status": "completed"})
	h.respond(t, relay("2"), map[string]any{"status": "failed"})
	h.respond(t, relay("3"), map[string]any{"status": "executing"})

	for _, slot := range []string{"1", "2", "3", "4"} {
		w.Handle(ctx, channel.Event{Path: relay(slot).Path()})
	}

	h.clock.Advance(h.opts.Timeout + DefaultSweepInterval)
	require.NoError(t, NewSweeper(h.opts).Sweep(ctx))

	want := map[string]models.CommandState{
		"1": models.CommandCompleted,
		"2": models.CommandFailed,
		"3": models.CommandTimedOut,
		"4": models.CommandTimedOut,
	}

	for slot, state := range want {
		assert.Equal(t, state, h.record(t, relay(slot)).State, slot)
	}
}

func TestWatcherRunCatchesUpAndFollows(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	d := NewDispatcher(h.opts)

	_, err := d.Dispatch(ctx, relay("1"), models.ActionOn, nil, "user-7")
	require.NoError(t, err)

	// Answered before the watcher started.
	h.respond(t, relay("1"), map[string]any{"status": "completed", "actual_state": true})

	done := make(chan struct{})

	go func() {
		defer close(done)

		assert.NoError(t, NewWatcher(h.opts).Run(ctx))
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})

	assert.Eventually(t, func() bool {
		return h.record(t, relay("1")).State == models.CommandCompleted
	}, time.Second, 5*time.Millisecond)

	handle, err := d.Dispatch(ctx, relay("2"), models.ActionOn, nil, "user-7")
	require.NoError(t, err)

	h.respond(t, relay("2"), map[string]any{"status": "completed", "actual_state": true})

	rec, err := d.Await(ctx, handle, time.Second)
	require.NoError(t, err)
	assert.Equal(t, models.CommandCompleted, rec.State)
	assert.Equal(t, handle.ID, rec.ID)
}

func TestAwait(t *testing.T) {
	t.Run("gives up after wait", func(t *testing.T) {
		h := newHarness(t)
		d := NewDispatcher(h.opts)

		handle, err := d.Dispatch(context.Background(), relay("1"), models.ActionOn, nil, "user-7")
		require.NoError(t, err)

		rec, err := d.Await(context.Background(), handle, 20*time.Millisecond)
		require.ErrorIs(t, err, ErrAwaitTimeout)
		require.NotNil(t, rec)
		assert.Equal(t, models.CommandSent, rec.State)
	})

	t.Run("reports timeout", func(t *testing.T) {
		h := newHarness(t)
		d := NewDispatcher(h.opts)
		ctx := context.Background()

		handle, err := d.Dispatch(ctx, relay("1"), models.ActionOn, nil, "user-7")
		require.NoError(t, err)

		h.sink.EXPECT().CommandFailed(gomock.Any(), "dev-1", handle.ID, models.StatusTimeout).Return(nil)
		h.clock.Advance(time.Minute)
		require.NoError(t, NewSweeper(h.opts).Sweep(ctx))

		rec, err := d.Await(ctx, handle, time.Second)
		require.ErrorIs(t, err, ErrCommandTimedOut)
		assert.Equal(t, models.CommandTimedOut, rec.State)
	})

	t.Run("reports failure", func(t *testing.T) {
		h := newHarness(t)
		d := NewDispatcher(h.opts)
		ctx := context.Background()

		handle, err := d.Dispatch(ctx, relay("1"), models.ActionOn, nil, "user-7")
		require.NoError(t, err)

		h.sink.EXPECT().CommandFailed(gomock.Any(), "dev-1", handle.ID, "no power").Return(nil)
		h.respond(t, relay("1"), map[string]any{"status": "failed", "error": "no power"})
		NewWatcher(h.opts).Handle(ctx, channel.Event{Path: relay("1").Path()})

		_, err = d.Await(ctx, handle, time.Second)
		require.ErrorIs(t, err, ErrCommandFailed)
		assert.Contains(t, err.Error(), "no power")
	})
}

func TestStateMirrorRefusesIncompleteCommands(t *testing.T) {
	m := NewStateMirror(channel.NewMemoryStore())

	err := m.Write(context.Background(), &models.CommandRecord{ID: "c1", Node: relay("1"), State: models.CommandFailed})
	require.ErrorIs(t, err, errMirrorGuard)

	motor := models.NodeIdentity{DeviceID: "dev-1", Channel: models.ChannelMotor, Slot: "motor"}
	err = m.Write(context.Background(), &models.CommandRecord{ID: "c2", Node: motor, State: models.CommandCompleted})
	require.ErrorIs(t, err, errMirrorGuard)
}
