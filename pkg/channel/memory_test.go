package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func next(t *testing.T, ch <-chan Event) Event {
	t.Helper()

	select {
	case ev, ok := <-ch:
		require.True(t, ok, "watch channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	return Event{}
}

func TestClean(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/commands/dev-1/relay/1/", "commands/dev-1/relay/1"},
		{"commands//dev-1", "commands/dev-1"},
		{"", ""},
		{"/", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Clean(tt.in), tt.in)
	}

	assert.True(t, Under("commands/dev-1/relay/1", "commands/dev-1"))
	assert.False(t, Under("commands/dev-10/relay/1", "commands/dev-1"))
	assert.True(t, Under("anything", ""))
}

func TestMemoryStoreSetGetUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "state/dev-1")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "/state/dev-1/", map[string]any{"value": true, "command_id": "c1"}))
	require.NoError(t, s.Update(ctx, "state/dev-1", map[string]any{"value": false}))

	raw, err := s.Get(ctx, "state/dev-1")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, false, doc["value"])
	assert.Equal(t, "c1", doc["command_id"])

	require.NoError(t, s.Set(ctx, "scalar", 5))
	assert.ErrorIs(t, s.Update(ctx, "scalar", map[string]any{"a": 1}), ErrNotObject)
	assert.ErrorIs(t, s.Set(ctx, "/", 1), ErrInvalidPath)
}

func TestMemoryStoreTransact(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	t.Run("nil result leaves document", func(t *testing.T) {
		require.NoError(t, s.Transact(ctx, "counter", func(current json.RawMessage) (any, error) {
			assert.Nil(t, current)
			return nil, nil
		}))

		_, err := s.Get(ctx, "counter")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("error aborts", func(t *testing.T) {
		boom := errors.New("boom")
		err := s.Transact(ctx, "counter", func(json.RawMessage) (any, error) { return 1, boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("concurrent increments are atomic", func(t *testing.T) {
		var wg sync.WaitGroup

		for i := 0; i < 50; i++ {
			wg.Add(1)

			go func() {
				defer wg.Done()

				_ = s.Transact(ctx, "counter", func(current json.RawMessage) (any, error) {
					var n int
					if current != nil {
						_ = json.Unmarshal(current, &n)
					}

					return n + 1, nil
				})
			}()
		}

		wg.Wait()

		raw, err := s.Get(ctx, "counter")
		require.NoError(t, err)
		assert.JSONEq(t, "50", string(raw))
	})
}

func TestMemoryStoreList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, "commands/dev-1/relay/1", 1))
	require.NoError(t, s.Set(ctx, "commands/dev-1/relay/2", 2))
	require.NoError(t, s.Set(ctx, "commands/dev-10/relay/1", 3))
	require.NoError(t, s.Set(ctx, "state/dev-1/relay/1", 4))

	docs, err := s.List(ctx, "commands/dev-1")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = s.List(ctx, "commands")
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}

func TestMemoryStoreWatchOrderAndPrefix(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewMemoryStore()

	events, err := s.Watch(ctx, "commands/dev-1")
	require.NoError(t, err)

	// Nobody reads yet; writers must not block.
	for i := 0; i < 100; i++ {
		require.NoError(t, s.Set(ctx, fmt.Sprintf("commands/dev-1/relay/%d", i%4+1), i))
	}

	require.NoError(t, s.Set(ctx, "commands/dev-2/relay/1", "other"))

	var last uint64

	for i := 0; i < 100; i++ {
		ev := next(t, events)
		assert.Greater(t, ev.Seq, last)
		assert.JSONEq(t, fmt.Sprint(i), string(ev.Value))

		last = ev.Seq
	}

	select {
	case ev := <-events:
		t.Fatalf("unexpected event %s", ev.Path)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestMemoryStoreWatchClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewMemoryStore()

	events, err := s.Watch(ctx, "")
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed")
	}

	s.Close()

	_, err = s.Watch(context.Background(), "")
	assert.ErrorIs(t, err, ErrClosed)
}
