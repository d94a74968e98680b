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

package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/fieldradar/pkg/alerts"
	"github.com/carverauto/fieldradar/pkg/audit"
	"github.com/carverauto/fieldradar/pkg/bridge"
	"github.com/carverauto/fieldradar/pkg/channel"
	"github.com/carverauto/fieldradar/pkg/command"
	"github.com/carverauto/fieldradar/pkg/core/api"
	"github.com/carverauto/fieldradar/pkg/db"
	"github.com/carverauto/fieldradar/pkg/liveness"
	"github.com/carverauto/fieldradar/pkg/logger"
	"github.com/carverauto/fieldradar/pkg/metrics"
	"github.com/carverauto/fieldradar/pkg/models"
	"github.com/carverauto/fieldradar/pkg/monitoring"
	"github.com/carverauto/fieldradar/pkg/notifications"
	"github.com/carverauto/fieldradar/pkg/registry"
	"github.com/carverauto/fieldradar/pkg/schedule"
	"github.com/carverauto/fieldradar/pkg/sensor"
)

const (
	defaultRetention     = 30 * 24 * time.Hour
	defaultCleanupPeriod = time.Hour
)

// NewServer opens the database, audit backend and registry named by cfg and wires the
// orchestrator. cfg must already be validated.
func NewServer(ctx context.Context, cfg *Config, log logger.Logger) (*Server, error) {
	database, err := db.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	auditStore, err := newAuditStore(ctx, cfg, database)
	if err != nil {
		_ = database.Close()

		return nil, err
	}

	connect, err := registry.Connector(cfg.Registry.Driver, cfg.Registry.DSN, log)
	if err != nil {
		_ = database.Close()

		return nil, err
	}

	reg, err := registry.New(connect, log)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to open device registry: %w", err)
	}

	return newServer(cfg, log, database, auditStore, reg), nil
}

func newAuditStore(ctx context.Context, cfg *Config, database db.Service) (audit.Store, error) {
	switch cfg.Audit.Backend {
	case auditBackendDynamo:
		store, err := audit.NewDynamoStore(ctx, cfg.Audit.DynamoDB.Table, cfg.Audit.DynamoDB.Region)
		if err != nil {
			return nil, fmt.Errorf("failed to create dynamodb audit store: %w", err)
		}

		return store, nil
	case auditBackendMemory:
		return audit.NewMemoryStore(), nil
	}

	return audit.NewSQLStore(database), nil
}

func newAlerters(cfg *Config, log logger.Logger) []alerts.AlertService {
	var out []alerts.AlertService

	for _, wh := range cfg.Webhooks {
		if !wh.Enabled {
			continue
		}

		out = append(out, alerts.NewWebhookAlerter(wh, cfg.AlertRate, log))
	}

	return out
}

func newServer(cfg *Config, log logger.Logger, database db.Service, auditStore audit.Store, reg registry.Registry) *Server {
	m := metrics.NewManager(cfg.Metrics)
	store := channel.NewMemoryStore()
	notifier := notifications.NewService(database, reg, newAlerters(cfg, log), log)

	mon := liveness.NewMonitor(liveness.Options{
		Repository: database,
		Audit:      auditStore,
		Sink:       notifier,
		Metrics:    m,
		Logger:     log,
		Threshold:  cfg.OfflineThreshold.Or(liveness.DefaultOfflineThreshold),
	})

	timeout := cfg.CommandTimeout.Or(command.DefaultTimeout)

	opts := command.Options{
		Store:    store,
		Audit:    auditStore,
		Registry: reg,
		Liveness: mon,
		Sink:     notifier,
		Metrics:  m,
		Logger:   log,
		Timeout:  timeout,
	}

	dispatcher := command.NewDispatcher(opts)

	s := &Server{
		config:     cfg,
		log:        log.WithField("component", "core"),
		now:        time.Now,
		db:         database,
		store:      store,
		audit:      auditStore,
		registry:   reg,
		notifier:   notifier,
		metrics:    m,
		dispatcher: dispatcher,
		watcher:    command.NewWatcher(opts),
		sweeper:    command.NewSweeper(opts),
		mirror:     command.NewStateMirror(store),
		liveness:   mon,
		dedup: sensor.NewDeduplicator(sensor.Options{
			StalenessWindow: cfg.StalenessWindow.Or(sensor.DefaultStalenessWindow),
			DedupWindow:     cfg.DedupWindow.Or(sensor.DefaultDedupWindow),
			Metrics:         m,
			Logger:          log,
		}),
		schedules: schedule.NewRunner(schedule.Options{
			Store:      schedule.NewDBStore(database),
			Dispatcher: dispatcher,
			Audit:      auditStore,
			Logger:     log,
			Wait:       timeout,
		}),
		bridge: bridge.New(store, log),
	}

	s.apiServer = api.NewAPIServer(s, log,
		api.WithDeviceBridge(s.bridge),
		api.WithCORSOrigins(cfg.CORSOrigins))

	return s
}

// Start restores persisted state and launches the background loops. It does not block.
func (s *Server) Start(ctx context.Context) error {
	if err := s.liveness.Load(ctx); err != nil {
		return fmt.Errorf("failed to load liveness: %w", err)
	}

	if err := s.registerKnownDevices(ctx); err != nil {
		return err
	}

	s.seedDeduplicator(ctx)

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.watcher.Run(ctx) })
	g.Go(func() error { return s.liveness.Follow(ctx, s.store) })
	g.Go(func() error { return s.followReadings(ctx) })

	g.Go(func() error {
		s.sweeper.Run(ctx, s.config.TimeoutSweepPeriod.Or(command.DefaultSweepInterval))
		return nil
	})

	g.Go(func() error {
		s.liveness.Run(ctx, s.config.HeartbeatSweepPeriod.Or(liveness.DefaultSweepPeriod))
		return nil
	})

	g.Go(func() error {
		s.schedules.Run(ctx, s.config.SchedulePeriod.Or(schedule.DefaultPeriod))
		return nil
	})

	g.Go(func() error {
		s.runCleanup(ctx)
		return nil
	})

	if s.config.ListenAddr != "" {
		g.Go(func() error { return s.apiServer.Start(s.config.ListenAddr) })
	}

	s.group = g

	s.log.Infof("Orchestrator started")

	return nil
}

// Stop shuts down the API, stops the loops, waits for in-flight notifications and closes storage.
func (s *Server) Stop(ctx context.Context) error {
	var errs []error

	if err := s.apiServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("api shutdown: %w", err))
	}

	s.bridge.Close()

	if s.cancel != nil {
		s.cancel()
	}

	if s.group != nil {
		if err := s.group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, err)
		}
	}

	s.notifier.Wait()
	s.store.Close()

	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database close: %w", err))
	}

	return errors.Join(errs...)
}

func (s *Server) registerKnownDevices(ctx context.Context) error {
	for _, d := range s.config.KnownDevices {
		if err := s.registry.Register(ctx, d.ID, d.Owner); err != nil {
			return fmt.Errorf("failed to register device %s: %w", d.ID, err)
		}
	}

	return nil
}

// runCleanup prunes audit entries, readings and resolved notifications older than the retention.
func (s *Server) runCleanup(ctx context.Context) {
	retention := s.config.Retention.Or(defaultRetention)

	mon := monitoring.NewMonitor(monitoring.MonitorConfig{
		Name:        "retention",
		Interval:    s.config.CleanupPeriod.Or(defaultCleanupPeriod),
		SkipInitial: true,
	}, s.log)

	mon.StartMonitoring(ctx, func(context.Context) error {
		if err := s.db.CleanOldData(retention); err != nil {
			return err
		}

		s.metrics.CleanupStaleDevices(retention)
		s.log.Debugf("Tracking command latency for %d devices", s.metrics.GetActiveDevices())

		return nil
	})
}

func (s *Server) GetMetricsManager() metrics.MetricCollector {
	return s.metrics
}

func (s *Server) Dispatch(
	ctx context.Context, node models.NodeIdentity, action string, params json.RawMessage, requestedBy string,
) (*command.Handle, error) {
	return s.dispatcher.Dispatch(ctx, node, action, params, requestedBy)
}

func (s *Server) Await(ctx context.Context, h *command.Handle, wait time.Duration) (*models.CommandRecord, error) {
	return s.dispatcher.Await(ctx, h, wait)
}

// DeviceState returns the last-known-good state of a relay.
func (s *Server) DeviceState(ctx context.Context, node models.NodeIdentity) (*models.DeviceStateSnapshot, error) {
	return s.mirror.Read(ctx, node)
}

func (s *Server) CurrentLiveness(deviceID string) models.LivenessState {
	return s.liveness.CurrentLiveness(deviceID)
}

func (s *Server) Devices() []models.LivenessState {
	return s.liveness.Devices()
}

func (s *Server) RecordHeartbeat(ctx context.Context, deviceID string, value float64) error {
	return s.liveness.RecordHeartbeat(ctx, deviceID, value)
}

func (s *Server) EnqueueSchedule(ctx context.Context, def *models.ScheduleDefinition) (*models.ScheduleDefinition, error) {
	return s.schedules.Enqueue(ctx, def)
}

func (s *Server) DisableSchedule(ctx context.Context, id string) error {
	return s.schedules.Disable(ctx, id)
}

func (s *Server) AuditTrail(ctx context.Context, deviceID string, since time.Time) ([]models.AuditEntry, error) {
	return s.audit.Query(ctx, deviceID, since)
}

func (s *Server) Notifications(ctx context.Context, deviceID string, openOnly bool) ([]db.Notification, error) {
	return s.db.ListNotifications(ctx, deviceID, openOnly)
}

func (s *Server) DeviceMetrics(deviceID string) []models.MetricPoint {
	return s.metrics.GetMetrics(deviceID)
}

func (s *Server) Counters() map[string]int64 {
	return s.metrics.Counters()
}
