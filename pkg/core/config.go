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
	"errors"
	"fmt"
	"path/filepath"

	"github.com/carverauto/fieldradar/pkg/config"
	"github.com/carverauto/fieldradar/pkg/models"
)

const (
	defaultListenAddr  = ":8090"
	defaultGRPCAddr    = ":50052"
	defaultAlertRate   = 1.0
	auditBackendSQL    = "sqlite"
	auditBackendDynamo = "dynamodb"
	auditBackendMemory = "memory"
)

var (
	errDBPathRequired    = errors.New("db_path is required")
	errUnknownAudit      = errors.New("unknown audit backend")
	errDynamoTable       = errors.New("audit.dynamodb.table is required")
	errWebhookURL        = errors.New("enabled webhook requires a url")
	errKnownDeviceID     = errors.New("known device requires an id")
	errNegativeAlertRate = errors.New("alert_rate must not be negative")
)

// KnownDevice is registered with its owner at startup.
type KnownDevice struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
}

// Config is the orchestrator configuration file.
type Config struct {
	ListenAddr string `json:"listen_addr"`
	GrpcAddr   string `json:"grpc_addr"`
	DBPath     string `json:"db_path"`
	LogLevel   string `json:"log_level"`

	CommandTimeout       config.Duration `json:"command_timeout"`
	TimeoutSweepPeriod   config.Duration `json:"timeout_sweep_period"`
	OfflineThreshold     config.Duration `json:"offline_threshold"`
	HeartbeatSweepPeriod config.Duration `json:"heartbeat_sweep_period"`
	StalenessWindow      config.Duration `json:"staleness_window"`
	DedupWindow          config.Duration `json:"dedup_window"`
	SchedulePeriod       config.Duration `json:"schedule_period"`
	Retention            config.Duration `json:"retention"`
	CleanupPeriod        config.Duration `json:"cleanup_period"`

	Audit        config.AuditConfig     `json:"audit"`
	Registry     config.RegistryConfig  `json:"registry"`
	Webhooks     []config.WebhookConfig `json:"webhooks,omitempty"`
	AlertRate    float64                `json:"alert_rate"` // webhook requests per second
	Metrics      config.MetricsConfig   `json:"metrics"`
	CORSOrigins  []string               `json:"cors_origins,omitempty"`
	KnownDevices []KnownDevice          `json:"known_devices,omitempty"`
	Security     *models.SecurityConfig `json:"security,omitempty"`
}

var _ config.Validator = (*Config)(nil)

// Validate checks required fields and fills in defaults.
func (c *Config) Validate() error {
	var errs []error

	if c.DBPath == "" {
		errs = append(errs, errDBPathRequired)
	}

	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}

	if c.GrpcAddr == "" {
		c.GrpcAddr = defaultGRPCAddr
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	switch c.Audit.Backend {
	case "":
		c.Audit.Backend = auditBackendSQL
	case auditBackendSQL, auditBackendMemory:
	case auditBackendDynamo:
		if c.Audit.DynamoDB.Table == "" {
			errs = append(errs, errDynamoTable)
		}
	default:
		errs = append(errs, fmt.Errorf("%w: %s", errUnknownAudit, c.Audit.Backend))
	}

	if c.Registry.Driver == "" {
		c.Registry.Driver = "sqlite"
	}

	if c.Registry.DSN == "" && c.Registry.Driver == "sqlite" && c.DBPath != "" {
		c.Registry.DSN = filepath.Join(filepath.Dir(c.DBPath), "registry.db")
	}

	for i := range c.Webhooks {
		if c.Webhooks[i].Enabled && c.Webhooks[i].URL == "" {
			errs = append(errs, fmt.Errorf("%w: webhooks[%d]", errWebhookURL, i))
		}
	}

	switch {
	case c.AlertRate < 0:
		errs = append(errs, errNegativeAlertRate)
	case c.AlertRate == 0:
		c.AlertRate = defaultAlertRate
	}

	for i, d := range c.KnownDevices {
		if d.ID == "" {
			errs = append(errs, fmt.Errorf("%w: known_devices[%d]", errKnownDeviceID, i))
		}
	}

	return errors.Join(errs...)
}
