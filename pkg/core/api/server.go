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

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/carverauto/fieldradar/pkg/channel"
	"github.com/carverauto/fieldradar/pkg/command"
	"github.com/carverauto/fieldradar/pkg/db"
	httpx "github.com/carverauto/fieldradar/pkg/http"
	"github.com/carverauto/fieldradar/pkg/logger"
	"github.com/carverauto/fieldradar/pkg/models"
	"github.com/carverauto/fieldradar/pkg/schedule"
	"github.com/carverauto/fieldradar/pkg/sensor"
)

const (
	maxBody           = 1 << 20
	readHeaderTimeout = 5 * time.Second
)

var errBadRequest = errors.New("bad request")

type APIServer struct {
	core    Core
	log     logger.Logger
	router  *mux.Router
	devices http.Handler
	origins []string
	now     func() time.Time
	srv     *http.Server
}

type Option func(*APIServer)

// WithDeviceBridge mounts h at /ws/devices/{id}.
func WithDeviceBridge(h http.Handler) Option {
	return func(s *APIServer) { s.devices = h }
}

func WithCORSOrigins(origins []string) Option {
	return func(s *APIServer) { s.origins = origins }
}

func NewAPIServer(core Core, log logger.Logger, opts ...Option) *APIServer {
	s := &APIServer{
		core:   core,
		log:    log.WithField("component", "api"),
		router: mux.NewRouter(),
		now:    time.Now,
	}

	for _, o := range opts {
		o(s)
	}

	s.setupRoutes()

	return s
}

func (s *APIServer) setupRoutes() {
	s.router.Use(httpx.CommonMiddleware(s.origins, s.log))

	s.router.HandleFunc("/api/devices", s.getDevices).Methods(http.MethodGet)
	s.router.HandleFunc("/api/devices/{id}/commands", s.postCommand).Methods(http.MethodPost)
	s.router.HandleFunc("/api/devices/{id}/liveness", s.getLiveness).Methods(http.MethodGet)
	s.router.HandleFunc("/api/devices/{id}/heartbeat", s.postHeartbeat).Methods(http.MethodPost)
	s.router.HandleFunc("/api/devices/{id}/readings", s.postReading).Methods(http.MethodPost)
	s.router.HandleFunc("/api/devices/{id}/audit", s.getAudit).Methods(http.MethodGet)
	s.router.HandleFunc("/api/devices/{id}/state/{channel}/{slot}", s.getState).Methods(http.MethodGet)
	s.router.HandleFunc("/api/devices/{id}/metrics", s.getMetrics).Methods(http.MethodGet)
	s.router.HandleFunc("/api/devices/{id}/notifications", s.getNotifications).Methods(http.MethodGet)

	s.router.HandleFunc("/api/schedules", s.postSchedule).Methods(http.MethodPost)
	s.router.HandleFunc("/api/schedules/{id}", s.deleteSchedule).Methods(http.MethodDelete)

	s.router.HandleFunc("/api/status", s.getStatus).Methods(http.MethodGet)

	if s.devices != nil {
		s.router.Handle("/ws/devices/{id}", s.devices)
	}
}

// Handler returns the routed handler, for embedding or tests.
func (s *APIServer) Handler() http.Handler {
	return s.router
}

// Start serves on addr until Shutdown is called.
func (s *APIServer) Start(addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	s.log.Infof("API listening on %s", addr)

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *APIServer) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}

	return s.srv.Shutdown(ctx)
}

func (s *APIServer) getDevices(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.core.Devices())
}

func (s *APIServer) postCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	node := models.NodeIdentity{DeviceID: mux.Vars(r)["id"], Channel: req.Channel, Slot: req.Slot}

	h, err := s.core.Dispatch(r.Context(), node, req.Action, req.Params, req.RequestedBy)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := CommandResponse{CommandID: h.ID, Path: h.Node.Path(), RequestedAt: h.RequestedAt}
	if h.Warning != nil {
		resp.Warning = h.Warning.Error()
	}

	if req.Wait <= 0 {
		s.writeJSON(w, http.StatusAccepted, resp)
		return
	}

	rec, err := s.core.Await(r.Context(), h, time.Duration(req.Wait))
	resp.Record = rec

	if err != nil {
		resp.Error = err.Error()
		s.writeJSON(w, statusFor(err), resp)

		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *APIServer) getLiveness(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.core.CurrentLiveness(mux.Vars(r)["id"]))
}

func (s *APIServer) postHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req HeartbeatRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	deviceID := mux.Vars(r)["id"]

	if err := s.core.RecordHeartbeat(r.Context(), deviceID, req.Value); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, s.core.CurrentLiveness(deviceID))
}

// postReading accepts the same document a device writes under readings/{id}.
func (s *APIServer) postReading(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	ev := channel.Event{Path: channel.Join(models.ReadingsRoot, mux.Vars(r)["id"]), Value: body}

	reading, err := sensor.ParseEvent(ev, s.now())
	if err != nil {
		s.writeError(w, err)
		return
	}

	decision, err := s.core.IngestSensorReading(r.Context(), &reading)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := ReadingResponse{Accepted: decision.Accepted, Reason: string(decision.Reason)}
	if decision.Age > 0 {
		resp.Age = decision.Age.String()
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *APIServer) getAudit(w http.ResponseWriter, r *http.Request) {
	var since time.Time

	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: since: %w", errBadRequest, err))
			return
		}

		since = t
	}

	entries, err := s.core.AuditTrail(r.Context(), mux.Vars(r)["id"], since)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if entries == nil {
		entries = []models.AuditEntry{}
	}

	s.writeJSON(w, http.StatusOK, entries)
}

// getNotifications lists a device's notifications; ?open=true limits it to unresolved ones.
func (s *APIServer) getNotifications(w http.ResponseWriter, r *http.Request) {
	openOnly := r.URL.Query().Get("open") == "true"

	list, err := s.core.Notifications(r.Context(), mux.Vars(r)["id"], openOnly)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if list == nil {
		list = []db.Notification{}
	}

	s.writeJSON(w, http.StatusOK, list)
}

func (s *APIServer) getState(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	node := models.NodeIdentity{DeviceID: vars["id"], Channel: models.Channel(vars["channel"]), Slot: vars["slot"]}

	snap, err := s.core.DeviceState(r.Context(), node)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, snap)
}

func (s *APIServer) getMetrics(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	points := s.core.DeviceMetrics(deviceID)
	if points == nil {
		points = []models.MetricPoint{}
	}

	s.writeJSON(w, http.StatusOK, MetricsResponse{DeviceID: deviceID, Points: points, Counters: s.core.Counters()})
}

func (s *APIServer) getStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"devices":  len(s.core.Devices()),
		"counters": s.core.Counters(),
	})
}

func (s *APIServer) postSchedule(w http.ResponseWriter, r *http.Request) {
	var def models.ScheduleDefinition
	if err := decode(r, &def); err != nil {
		s.writeError(w, err)
		return
	}

	saved, err := s.core.EnqueueSchedule(r.Context(), &def)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, saved)
}

func (s *APIServer) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := s.core.DisableSchedule(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}

	return nil
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, command.ErrNodeBusy):
		return http.StatusConflict
	case errors.Is(err, command.ErrUnknownDevice),
		errors.Is(err, channel.ErrNotFound),
		errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, command.ErrUnknownNode),
		errors.Is(err, command.ErrUnsupportedAction),
		errors.Is(err, schedule.ErrInvalidSchedule),
		errors.Is(err, sensor.ErrMalformedReading):
		return http.StatusBadRequest
	case errors.Is(err, command.ErrAwaitTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, command.ErrCommandFailed),
		errors.Is(err, command.ErrCommandTimedOut),
		errors.Is(err, command.ErrSuperseded):
		return http.StatusBadGateway
	case errors.Is(err, command.ErrDispatch):
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}

func (s *APIServer) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.log.Errorf("Request failed: %v", err)
	}

	s.writeJSON(w, code, errorResponse{Error: err.Error()})
}

func (s *APIServer) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warnf("Failed to encode response: %v", err)
	}
}
