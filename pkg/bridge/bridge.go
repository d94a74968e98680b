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

// Package bridge connects field devices to the Control Channel over websockets.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/carverauto/fieldradar/pkg/channel"
	"github.com/carverauto/fieldradar/pkg/logger"
	"github.com/carverauto/fieldradar/pkg/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxFrame   = 64 * 1024
)

// Bridge serves /ws/devices/{id}. Each connection sees writes under its own commands and
// state paths and may write its command status, heartbeat and readings.
type Bridge struct {
	store     channel.Store
	log       logger.Logger
	upgrader  websocket.Upgrader
	done      chan struct{}
	closeOnce sync.Once
}

func New(store channel.Store, log logger.Logger) *Bridge {
	return &Bridge{
		store: store,
		log:   log.WithField("component", "device_bridge"),
		done:  make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Close ends every open device connection. Hijacked connections are not covered by
// http.Server.Shutdown.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]
	if deviceID == "" || strings.Contains(deviceID, "/") {
		http.Error(w, "device id required", http.StatusBadRequest)
		return
	}

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warnf("Websocket upgrade failed for %s: %v", deviceID, err)
		return
	}

	b.serve(r.Context(), conn, deviceID)
}

func (b *Bridge) serve(ctx context.Context, conn *websocket.Conn, deviceID string) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	defer func() { _ = conn.Close() }()

	go func() {
		select {
		case <-b.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	log := b.log.WithField("device_id", deviceID)

	commands, err := b.store.Watch(ctx, channel.Join(models.CommandsRoot, deviceID))
	if err != nil {
		log.Errorf("Failed to watch commands: %v", err)
		return
	}

	state, err := b.store.Watch(ctx, channel.Join(models.StateRoot, deviceID))
	if err != nil {
		log.Errorf("Failed to watch state: %v", err)
		return
	}

	snapshot, err := b.snapshot(ctx, deviceID)
	if err != nil {
		log.Errorf("Failed to read snapshot: %v", err)
		return
	}

	replies := make(chan Frame, 16)
	done := make(chan struct{})

	// The writer owns the connection: when it stops, closing the connection unblocks the reader.
	go func() {
		defer close(done)
		defer func() { _ = conn.Close() }()
		defer cancel()

		b.writeLoop(ctx, conn, snapshot, commands, state, replies)
	}()

	log.Infof("Device connected")

	b.readLoop(ctx, conn, deviceID, replies)

	cancel()
	<-done

	log.Infof("Device disconnected")
}

// snapshot returns the device's current documents so a reconnecting device can
// restore its relays before live events start.
func (b *Bridge) snapshot(ctx context.Context, deviceID string) ([]Frame, error) {
	var frames []Frame

	for _, root := range []string{models.StateRoot, models.CommandsRoot} {
		docs, err := b.store.List(ctx, channel.Join(root, deviceID))
		if err != nil {
			return nil, err
		}

		paths := make([]string, 0, len(docs))
		for path := range docs {
			paths = append(paths, path)
		}

		sort.Strings(paths)

		for _, path := range paths {
			frames = append(frames, Frame{Type: FrameEvent, Path: path, Value: docs[path]})
		}
	}

	return append(frames, Frame{Type: FrameReady}), nil
}

func (b *Bridge) writeLoop(
	ctx context.Context, conn *websocket.Conn, snapshot []Frame, commands, state <-chan channel.Event, replies <-chan Frame,
) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	write := func(f Frame) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

		if err := conn.WriteJSON(f); err != nil {
			b.log.Debugf("Write failed: %v", err)
			return false
		}

		return true
	}

	for _, f := range snapshot {
		if !write(f) {
			return
		}
	}

	for {
		var f Frame

		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))

			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}

			continue
		case ev, ok := <-commands:
			if !ok {
				return
			}

			f = Frame{Type: FrameEvent, Path: ev.Path, Value: ev.Value, Seq: ev.Seq}
		case ev, ok := <-state:
			if !ok {
				return
			}

			f = Frame{Type: FrameEvent, Path: ev.Path, Value: ev.Value, Seq: ev.Seq}
		case f = <-replies:
		}

		if !write(f) {
			return
		}
	}
}

func (b *Bridge) readLoop(ctx context.Context, conn *websocket.Conn, deviceID string, replies chan<- Frame) {
	conn.SetReadLimit(maxFrame)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.log.Warnf("Connection from %s closed: %v", deviceID, err)
			}

			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if err := b.handle(ctx, deviceID, &f); err != nil {
			b.log.Warnf("Rejected %s frame from %s: %v", f.Type, deviceID, err)

			select {
			case replies <- Frame{Type: FrameError, Path: f.Path, CommandID: f.CommandID, Error: err.Error()}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (b *Bridge) handle(ctx context.Context, deviceID string, f *Frame) error {
	switch f.Type {
	case FrameUpdate:
		node, ok := models.NodeFromPath(f.Path)
		if !ok || !strings.HasPrefix(channel.Clean(f.Path), models.CommandsRoot+"/") {
			return fmt.Errorf("%w: %q", ErrBadFrame, f.Path)
		}

		if node.DeviceID != deviceID {
			return fmt.Errorf("%w: %s", ErrForeignPath, f.Path)
		}

		if len(f.Fields) == 0 {
			return fmt.Errorf("%w: no fields", ErrBadFrame)
		}

		for name := range f.Fields {
			if !deviceFields[name] {
				return fmt.Errorf("%w: %s", ErrFieldNotAllowed, name)
			}
		}

		if f.CommandID == "" {
			return fmt.Errorf("%w: missing command_id", ErrBadFrame)
		}

		return b.reply(ctx, node, f.CommandID, f.Fields)

	case FrameHeartbeat:
		var value float64
		if err := json.Unmarshal(f.Value, &value); err != nil {
			return fmt.Errorf("%w: heartbeat value: %w", ErrBadFrame, err)
		}

		return b.store.Set(ctx, channel.Join(models.HeartbeatsRoot, deviceID), map[string]any{"value": value})

	case FrameReading:
		var doc map[string]any
		if err := json.Unmarshal(f.Value, &doc); err != nil {
			return fmt.Errorf("%w: reading: %w", ErrBadFrame, err)
		}

		return b.store.Set(ctx, channel.Join(models.ReadingsRoot, deviceID), doc)
	}

	return fmt.Errorf("%w: %q", ErrUnknownFrame, f.Type)
}

// reply merges a device's answer into the command record, but only while the record at
// the path is still the outstanding command the device is answering. A late answer to a
// command that timed out or was replaced is refused.
func (b *Bridge) reply(ctx context.Context, node models.NodeIdentity, commandID string, fields map[string]any) error {
	return b.store.Transact(ctx, node.Path(), func(current json.RawMessage) (any, error) {
		if len(current) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrStaleCommand, commandID)
		}

		var rec models.CommandRecord
		if err := json.Unmarshal(current, &rec); err != nil {
			return nil, fmt.Errorf("%w: %w", channel.ErrNotObject, err)
		}

		if rec.ID != commandID || !rec.State.IsOutstanding() {
			return nil, fmt.Errorf("%w: %s", ErrStaleCommand, commandID)
		}

		doc := make(map[string]json.RawMessage)
		if err := json.Unmarshal(current, &doc); err != nil {
			return nil, fmt.Errorf("%w: %w", channel.ErrNotObject, err)
		}

		for name, v := range fields {
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("%w: field %s: %w", ErrBadFrame, name, err)
			}

			doc[name] = raw
		}

		return doc, nil
	})
}
