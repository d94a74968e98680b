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

package config

import (
	"encoding/json"
	"fmt"
	"time"
)

type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidDuration, err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Or returns d, or def when d is unset.
func (d Duration) Or(def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}

	return time.Duration(d)
}

// WebhookConfig represents a webhook notification configuration.
type WebhookConfig struct {
	Enabled  bool     `json:"enabled"`
	URL      string   `json:"url"`
	Cooldown Duration `json:"cooldown"`
	Template string   `json:"template"`
	Discord  bool     `json:"discord,omitempty"` // Use the built-in Discord embed template
	Headers  []Header `json:"headers,omitempty"` // Optional custom headers
}

// Header represents a custom HTTP header.
type Header struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// DynamoDBConfig selects the table used by the DynamoDB audit backend.
type DynamoDBConfig struct {
	Table  string `json:"table"`
	Region string `json:"region,omitempty"`
}

// AuditConfig selects the audit store backend.
type AuditConfig struct {
	Backend  string         `json:"backend"` // sqlite, dynamodb or memory
	DynamoDB DynamoDBConfig `json:"dynamodb,omitempty"`
}

// RegistryConfig configures the device registry database.
type RegistryConfig struct {
	Driver string `json:"driver"` // sqlite or postgres
	DSN    string `json:"dsn"`
}

// MetricsConfig controls per-device command latency buffers.
type MetricsConfig struct {
	Enabled   bool `json:"enabled"`
	Retention int  `json:"retention"`
}
