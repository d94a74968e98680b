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

// Package core pkg/core/interfaces.go
package core

import (
	"github.com/carverauto/fieldradar/pkg/core/api"
	"github.com/carverauto/fieldradar/pkg/lifecycle"
	"github.com/carverauto/fieldradar/pkg/metrics"
)

// CoreService is the orchestrator: the API surface plus its lifecycle.
type CoreService interface {
	api.Core
	lifecycle.Service
	GetMetricsManager() metrics.MetricCollector
}

var _ CoreService = (*Server)(nil)
