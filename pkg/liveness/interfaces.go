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

// Package liveness derives per-device online/offline state from heartbeat recency.
package liveness

import (
	"context"

	"github.com/carverauto/fieldradar/pkg/models"
)

//go:generate mockgen -destination=mock_liveness.go -package=liveness github.com/carverauto/fieldradar/pkg/liveness Repository

// Repository persists liveness states across restarts.
type Repository interface {
	SaveLiveness(ctx context.Context, state *models.LivenessState) error
	ListLiveness(ctx context.Context) ([]models.LivenessState, error)
}
