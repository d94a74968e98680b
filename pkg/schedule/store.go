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

package schedule

import (
	"context"

	"github.com/carverauto/fieldradar/pkg/db"
	"github.com/carverauto/fieldradar/pkg/models"
)

//go:generate mockgen -destination=mock_schedule.go -package=schedule github.com/carverauto/fieldradar/pkg/schedule Store,Dispatcher

// Store holds schedule definitions.
type Store interface {
	ListEnabled(ctx context.Context) ([]models.ScheduleDefinition, error)
	Get(ctx context.Context, id string) (*models.ScheduleDefinition, error)
	Persist(ctx context.Context, def *models.ScheduleDefinition) error
}

// DBStore keeps schedules in the durable database.
type DBStore struct {
	db db.Service
}

func NewDBStore(database db.Service) *DBStore {
	return &DBStore{db: database}
}

func (s *DBStore) ListEnabled(ctx context.Context) ([]models.ScheduleDefinition, error) {
	return s.db.ListSchedules(ctx, true)
}

func (s *DBStore) Get(ctx context.Context, id string) (*models.ScheduleDefinition, error) {
	return s.db.GetSchedule(ctx, id)
}

func (s *DBStore) Persist(ctx context.Context, def *models.ScheduleDefinition) error {
	return s.db.UpsertSchedule(ctx, def)
}
