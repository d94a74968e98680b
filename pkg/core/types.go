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
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/fieldradar/pkg/audit"
	"github.com/carverauto/fieldradar/pkg/bridge"
	"github.com/carverauto/fieldradar/pkg/channel"
	"github.com/carverauto/fieldradar/pkg/command"
	"github.com/carverauto/fieldradar/pkg/core/api"
	"github.com/carverauto/fieldradar/pkg/db"
	"github.com/carverauto/fieldradar/pkg/liveness"
	"github.com/carverauto/fieldradar/pkg/logger"
	"github.com/carverauto/fieldradar/pkg/metrics"
	"github.com/carverauto/fieldradar/pkg/notifications"
	"github.com/carverauto/fieldradar/pkg/registry"
	"github.com/carverauto/fieldradar/pkg/schedule"
	"github.com/carverauto/fieldradar/pkg/sensor"
)

// Server wires the Control Channel, the command pipeline, liveness, schedules and
// sensor ingestion into one process.
type Server struct {
	config *Config
	log    logger.Logger
	now    func() time.Time

	db       db.Service
	store    *channel.MemoryStore
	audit    audit.Store
	registry registry.Registry
	notifier *notifications.Service
	metrics  *metrics.Manager

	dispatcher *command.Dispatcher
	watcher    *command.Watcher
	sweeper    *command.Sweeper
	mirror     *command.StateMirror
	liveness   *liveness.Monitor
	dedup      *sensor.Deduplicator
	schedules  *schedule.Runner

	bridge    *bridge.Bridge
	apiServer *api.APIServer

	cancel context.CancelFunc
	group  *errgroup.Group
}
