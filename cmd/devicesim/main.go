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

// cmd/devicesim/main.go simulates a field device over the device bridge: it executes
// relay commands, sends heartbeats and pushes soil readings.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/carverauto/fieldradar/pkg/bridge"
	"github.com/carverauto/fieldradar/pkg/logger"
	"github.com/carverauto/fieldradar/pkg/models"
)

type device struct {
	id     string
	conn   *websocket.Conn
	log    logger.Logger
	failP  float64
	mu     sync.Mutex
	relays map[string]bool
	beat   float64
}

func main() {
	server := flag.String("server", "ws://localhost:8090", "Orchestrator base URL")
	id := flag.String("id", "dev-1", "Device ID")
	heartbeat := flag.Duration("heartbeat", 30*time.Second, "Heartbeat interval")
	reading := flag.Duration("reading", time.Minute, "Sensor reading interval")
	failP := flag.Float64("fail", 0, "Probability of reporting a command as failed")
	flag.Parse()

	lg := logger.New("info").WithField("device_id", *id)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	url := strings.TrimSuffix(*server, "/") + "/ws/devices/" + *id

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		lg.Errorf("Failed to connect to %s: %v", url, err)
		os.Exit(1)
	}

	_ = resp.Body.Close()

	d := &device{id: *id, conn: conn, log: lg, failP: *failP, relays: make(map[string]bool)}

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	go d.tick(ctx, *heartbeat, d.sendHeartbeat)
	go d.tick(ctx, *reading, d.sendReading)

	if err := d.receive(ctx); err != nil && ctx.Err() == nil {
		lg.Errorf("Connection lost: %v", err)
		os.Exit(1)
	}
}

func (d *device) send(f bridge.Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.conn.WriteJSON(f)
}

func (d *device) tick(ctx context.Context, every time.Duration, fn func() error) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		if err := fn(); err != nil {
			d.log.Warnf("Send failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (d *device) sendHeartbeat() error {
	d.mu.Lock()
	d.beat++
	value := d.beat
	d.mu.Unlock()

	return d.send(bridge.Frame{Type: bridge.FrameHeartbeat, Value: json.RawMessage(fmt.Sprintf("%g", value))})
}

func (d *device) sendReading() error {
	doc, err := json.Marshal(map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"values": map[string]any{
			"moisture":    20 + rand.Float64()*20,
			"temperature": 12 + rand.Float64()*10,
			"ph":          6 + rand.Float64(),
			"N":           rand.Intn(40),
			"P":           rand.Intn(30),
			"K":           rand.Intn(50),
		},
	})
	if err != nil {
		return err
	}

	return d.send(bridge.Frame{Type: bridge.FrameReading, Value: doc})
}

func (d *device) receive(ctx context.Context) error {
	for {
		var f bridge.Frame
		if err := d.conn.ReadJSON(&f); err != nil {
			return err
		}

		switch f.Type {
		case bridge.FrameReady:
			d.log.Infof("Connected, relays restored: %v", d.relayStates())
		case bridge.FrameError:
			d.log.Warnf("Orchestrator rejected frame for %s: %s", f.Path, f.Error)
		case bridge.FrameEvent:
			d.handleEvent(ctx, f)
		}
	}
}

func (d *device) handleEvent(ctx context.Context, f bridge.Frame) {
	node, ok := models.NodeFromPath(f.Path)
	if !ok {
		return
	}

	if strings.HasPrefix(f.Path, models.StateRoot+"/") {
		var snap models.DeviceStateSnapshot
		if err := json.Unmarshal(f.Value, &snap); err == nil {
			d.setRelay(node.Slot, snap.Value)
		}

		return
	}

	var rec models.CommandRecord
	if err := json.Unmarshal(f.Value, &rec); err != nil || rec.State != models.CommandSent || rec.Status != "" {
		return
	}

	go d.execute(ctx, node, &rec)
}

func (d *device) execute(ctx context.Context, node models.NodeIdentity, rec *models.CommandRecord) {
	path := node.Path()

	if err := d.send(bridge.Frame{Type: bridge.FrameUpdate, Path: path, CommandID: rec.ID, Fields: map[string]any{"status": "executing"}}); err != nil {
		d.log.Warnf("Failed to acknowledge %s: %v", rec.ID, err)
		return
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(time.Duration(200+rand.Intn(800)) * time.Millisecond):
	}

	fields := map[string]any{"executed_at": time.Now().UTC()}

	switch {
	case rand.Float64() < d.failP:
		fields["status"] = "failed"
		fields["error"] = "simulated actuator fault"
	case node.IsRelay():
		on := rec.Action == models.ActionOn
		d.setRelay(node.Slot, on)

		fields["status"] = "completed"
		fields["actual_state"] = on
	default:
		fields["status"] = "completed"
	}

	if err := d.send(bridge.Frame{Type: bridge.FrameUpdate, Path: path, CommandID: rec.ID, Fields: fields}); err != nil {
		d.log.Warnf("Failed to report %s: %v", rec.ID, err)
		return
	}

	d.log.Infof("Executed %s %s: %v", path, rec.Action, fields["status"])
}

func (d *device) setRelay(slot string, on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.relays[slot] = on
}

func (d *device) relayStates() map[string]bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]bool, len(d.relays))
	for k, v := range d.relays {
		out[k] = v
	}

	return out
}
