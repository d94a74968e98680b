package bridge

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/fieldradar/pkg/channel"
	"github.com/carverauto/fieldradar/pkg/logger"
)

func connect(t *testing.T, store channel.Store, deviceID string) *websocket.Conn {
	t.Helper()

	r := mux.NewRouter()
	r.Handle("/ws/devices/{id}", New(store, logger.Discard()))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/devices/" + deviceID

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	_ = resp.Body.Close()

	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var f Frame
	require.NoError(t, conn.ReadJSON(&f))

	return f
}

// untilReady drains the connect snapshot and returns the paths it carried.
func untilReady(t *testing.T, conn *websocket.Conn) []string {
	t.Helper()

	var paths []string

	for {
		f := readFrame(t, conn)
		if f.Type == FrameReady {
			return paths
		}

		require.Equal(t, FrameEvent, f.Type)

		paths = append(paths, f.Path)
	}
}

func TestSnapshotOnConnect(t *testing.T) {
	ctx := context.Background()
	store := channel.NewMemoryStore()

	require.NoError(t, store.Set(ctx, "state/dev-1/relay/2", map[string]any{"value": true}))
	require.NoError(t, store.Set(ctx, "commands/dev-1/relay/2", map[string]any{"state": "completed"}))
	require.NoError(t, store.Set(ctx, "commands/dev-2/relay/1", map[string]any{"state": "sent"}))

	conn := connect(t, store, "dev-1")

	assert.Equal(t, []string{"state/dev-1/relay/2", "commands/dev-1/relay/2"}, untilReady(t, conn))
}

func TestCommandRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := channel.NewMemoryStore()
	conn := connect(t, store, "dev-1")

	untilReady(t, conn)

	require.NoError(t, store.Set(ctx, "commands/dev-1/relay/1", map[string]any{"id": "cmd-1", "state": "sent"}))
	require.NoError(t, store.Set(ctx, "commands/dev-2/relay/1", map[string]any{"id": "cmd-2", "state": "sent"}))

	f := readFrame(t, conn)
	assert.Equal(t, FrameEvent, f.Type)
	assert.Equal(t, "commands/dev-1/relay/1", f.Path)

	require.NoError(t, conn.WriteJSON(Frame{
		Type:      FrameUpdate,
		Path:      "commands/dev-1/relay/1",
		CommandID: "cmd-1",
		Fields:    map[string]any{"status": "completed", "actual_state": true},
	}))

	// The device sees its own write come back through the watch.
	f = readFrame(t, conn)
	require.Equal(t, "commands/dev-1/relay/1", f.Path)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(f.Value, &doc))
	assert.Equal(t, "completed", doc["status"])
	assert.Equal(t, "sent", doc["state"])
	assert.Equal(t, true, doc["actual_state"])
}

func TestRejectedFrames(t *testing.T) {
	ctx := context.Background()
	store := channel.NewMemoryStore()

	require.NoError(t, store.Set(ctx, "commands/dev-2/relay/1", map[string]any{"state": "sent"}))

	conn := connect(t, store, "dev-1")
	untilReady(t, conn)

	tests := []struct {
		name  string
		frame Frame
		want  error
	}{
		{
			name:  "foreign device",
			frame: Frame{Type: FrameUpdate, Path: "commands/dev-2/relay/1", Fields: map[string]any{"status": "completed"}},
			want:  ErrForeignPath,
		},
		{
			name:  "state field",
			frame: Frame{Type: FrameUpdate, Path: "commands/dev-1/relay/1", Fields: map[string]any{"state": "completed"}},
			want:  ErrFieldNotAllowed,
		},
		{
			name:  "state path",
			frame: Frame{Type: FrameUpdate, Path: "state/dev-1/relay/1", Fields: map[string]any{"status": "completed"}},
			want:  ErrBadFrame,
		},
		{
			name:  "no fields",
			frame: Frame{Type: FrameUpdate, Path: "commands/dev-1/relay/1"},
			want:  ErrBadFrame,
		},
		{
			name:  "missing command id",
			frame: Frame{Type: FrameUpdate, Path: "commands/dev-1/relay/1", Fields: map[string]any{"status": "completed"}},
			want:  ErrBadFrame,
		},
		{
			name:  "no command at path",
			frame: Frame{Type: FrameUpdate, Path: "commands/dev-1/relay/1", CommandID: "cmd-1", Fields: map[string]any{"status": "completed"}},
			want:  ErrStaleCommand,
		},
		{
			name:  "heartbeat text",
			frame: Frame{Type: FrameHeartbeat, Value: json.RawMessage(`"abc"`)},
			want:  ErrBadFrame,
		},
		{
			name:  "unknown type",
			frame: Frame{Type: "reboot"},
			want:  ErrUnknownFrame,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, conn.WriteJSON(tt.frame))

			f := readFrame(t, conn)
			assert.Equal(t, FrameError, f.Type)
			assert.Contains(t, f.Error, tt.want.Error())
		})
	}

	doc, err := store.Get(ctx, "commands/dev-2/relay/1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"sent"}`, string(doc))

	_, err = store.Get(ctx, "commands/dev-1/relay/1")
	assert.ErrorIs(t, err, channel.ErrNotFound)
}

func TestLateReplyIsRefused(t *testing.T) {
	ctx := context.Background()
	store := channel.NewMemoryStore()
	path := "commands/dev-1/relay/1"

	// cmd-a timed out and cmd-b now occupies the slot.
	require.NoError(t, store.Set(ctx, path, map[string]any{"id": "cmd-b", "state": "sent"}))

	conn := connect(t, store, "dev-1")
	untilReady(t, conn)

	late := Frame{
		Type:      FrameUpdate,
		Path:      path,
		CommandID: "cmd-a",
		Fields:    map[string]any{"status": "completed", "actual_state": true},
	}

	require.NoError(t, conn.WriteJSON(late))

	f := readFrame(t, conn)
	require.Equal(t, FrameError, f.Type)
	assert.Equal(t, "cmd-a", f.CommandID)
	assert.Contains(t, f.Error, ErrStaleCommand.Error())

	doc, err := store.Get(ctx, path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"cmd-b","state":"sent"}`, string(doc))

	// A reply to a command that already reached a terminal state is refused too.
	require.NoError(t, store.Set(ctx, path, map[string]any{"id": "cmd-b", "state": "timed_out", "status": "timeout"}))
	require.Equal(t, path, readFrame(t, conn).Path)

	late.CommandID = "cmd-b"
	require.NoError(t, conn.WriteJSON(late))

	f = readFrame(t, conn)
	require.Equal(t, FrameError, f.Type)
	assert.Contains(t, f.Error, ErrStaleCommand.Error())

	doc, err = store.Get(ctx, path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"cmd-b","state":"timed_out","status":"timeout"}`, string(doc))
}

func TestHeartbeatAndReadingFrames(t *testing.T) {
	ctx := context.Background()
	store := channel.NewMemoryStore()
	conn := connect(t, store, "dev-1")

	untilReady(t, conn)

	require.NoError(t, conn.WriteJSON(Frame{Type: FrameHeartbeat, Value: json.RawMessage(`42`)}))
	require.NoError(t, conn.WriteJSON(Frame{Type: FrameReading, Value: json.RawMessage(`{"n":12,"timestamp":1741935600}`)}))

	assert.Eventually(t, func() bool {
		doc, err := store.Get(ctx, "heartbeats/dev-1")
		return err == nil && string(doc) == `{"value":42}`
	}, 2*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		doc, err := store.Get(ctx, "readings/dev-1")
		return err == nil && strings.Contains(string(doc), `"n":12`)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCloseDisconnectsDevices(t *testing.T) {
	b := New(channel.NewMemoryStore(), logger.Discard())

	r := mux.NewRouter()
	r.Handle("/ws/devices/{id}", b)

	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/devices/dev-1", nil)
	require.NoError(t, err)

	_ = resp.Body.Close()

	defer func() { _ = conn.Close() }()

	untilReady(t, conn)

	b.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}
