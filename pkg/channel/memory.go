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

package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Control Channel. Writers never block on slow watchers:
// each watcher has its own unbounded queue drained by a pump goroutine.
type MemoryStore struct {
	mu       sync.Mutex
	docs     map[string]json.RawMessage
	watchers map[uint64]*watcher
	nextID   uint64
	seq      uint64
	closed   bool
}

type watcher struct {
	prefix string
	mu     sync.Mutex
	queue  []Event
	signal chan struct{}
	out    chan Event
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:     make(map[string]json.RawMessage),
		watchers: make(map[uint64]*watcher),
	}
}

func (s *MemoryStore) Get(_ context.Context, path string) (json.RawMessage, error) {
	path = Clean(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	return clone(doc), nil
}

func (s *MemoryStore) Set(_ context.Context, path string, value any) error {
	path = Clean(path)
	if path == "" {
		return ErrInvalidPath
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeLocked(path, data)
}

func (s *MemoryStore) Update(_ context.Context, path string, fields map[string]any) error {
	path = Clean(path)
	if path == "" {
		return ErrInvalidPath
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := make(map[string]json.RawMessage)

	if current, ok := s.docs[path]; ok {
		if err := json.Unmarshal(current, &doc); err != nil {
			return fmt.Errorf("%w: %s", ErrNotObject, path)
		}
	}

	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode field %s: %w", k, err)
		}

		doc[k] = raw
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	return s.writeLocked(path, data)
}

func (s *MemoryStore) Transact(_ context.Context, path string, fn TransactFunc) error {
	path = Clean(path)
	if path == "" {
		return ErrInvalidPath
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(clone(s.docs[path]))
	if err != nil {
		return err
	}

	if next == nil {
		return nil
	}

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	return s.writeLocked(path, data)
}

func (s *MemoryStore) List(_ context.Context, prefix string) (map[string]json.RawMessage, error) {
	prefix = Clean(prefix)

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]json.RawMessage)

	for path, doc := range s.docs {
		if Under(path, prefix) {
			out[path] = clone(doc)
		}
	}

	return out, nil
}

func (s *MemoryStore) Watch(ctx context.Context, prefix string) (<-chan Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	w := &watcher{
		prefix: Clean(prefix),
		signal: make(chan struct{}, 1),
		out:    make(chan Event),
	}

	id := s.nextID
	s.nextID++
	s.watchers[id] = w

	go func() {
		w.pump(ctx)

		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}()

	return w.out, nil
}

// Close stops accepting new watchers. Existing watchers end with their contexts.
func (s *MemoryStore) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *MemoryStore) writeLocked(path string, data json.RawMessage) error {
	if s.closed {
		return ErrClosed
	}

	s.docs[path] = data
	s.seq++

	ev := Event{Path: path, Value: data, Seq: s.seq}

	for _, w := range s.watchers {
		if Under(path, w.prefix) {
			w.push(Event{Path: ev.Path, Value: clone(data), Seq: ev.Seq})
		}
	}

	return nil
}

func (w *watcher) push(ev Event) {
	w.mu.Lock()
	w.queue = append(w.queue, ev)
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *watcher) pump(ctx context.Context) {
	defer close(w.out)

	for {
		w.mu.Lock()
		batch := w.queue
		w.queue = nil
		w.mu.Unlock()

		for _, ev := range batch {
			select {
			case w.out <- ev:
			case <-ctx.Done():
				return
			}
		}

		if len(batch) > 0 {
			continue
		}

		select {
		case <-w.signal:
		case <-ctx.Done():
			return
		}
	}
}

func clone(doc json.RawMessage) json.RawMessage {
	if doc == nil {
		return nil
	}

	out := make(json.RawMessage, len(doc))
	copy(out, doc)

	return out
}
