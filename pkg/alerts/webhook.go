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

package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"text/template"
	"time"

	"golang.org/x/time/rate"

	"github.com/carverauto/fieldradar/pkg/config"
	"github.com/carverauto/fieldradar/pkg/logger"
)

var (
	errWebhookDisabled   = errors.New("webhook alerter is disabled")
	errWebhookCooldown   = errors.New("alert is within cooldown period")
	errInvalidJSON       = errors.New("invalid JSON generated")
	errWebhookStatus     = errors.New("webhook returned non-2xx status")
	errTemplateParse     = errors.New("template parsing failed")
	errTemplateExecution = errors.New("template execution failed")
)

type AlertLevel string

const (
	Info    AlertLevel = "info"
	Warning AlertLevel = "warning"
	Error   AlertLevel = "error"
)

type WebhookAlert struct {
	Level     AlertLevel     `json:"level"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Timestamp string         `json:"timestamp"`
	DeviceID  string         `json:"device_id"`
	Details   map[string]any `json:"details,omitempty"`
}

type WebhookAlerter struct {
	config         config.WebhookConfig
	client         *http.Client
	limiter        *rate.Limiter
	log            logger.Logger
	lastAlertTimes map[string]time.Time
	mu             sync.Mutex
	bufferPool     *sync.Pool
}

// NewWebhookAlerter builds an alerter. ratePerSecond <= 0 disables rate limiting.
func NewWebhookAlerter(cfg config.WebhookConfig, ratePerSecond float64, log logger.Logger) *WebhookAlerter {
	if cfg.Discord && cfg.Template == "" {
		cfg.Template = DiscordTemplate
	}

	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}

	return &WebhookAlerter{
		config: cfg,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter:        rate.NewLimiter(limit, 1),
		log:            log,
		lastAlertTimes: make(map[string]time.Time),
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return new(bytes.Buffer)
			},
		},
	}
}

func (w *WebhookAlerter) IsEnabled() bool {
	return w.config.Enabled
}

func (w *WebhookAlerter) getTemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"json": func(v interface{}) (string, error) {
			data, err := json.Marshal(v)
			if err != nil {
				return "", fmt.Errorf("JSON marshaling failed: %w", err)
			}

			return string(data), nil
		},
	}
}

func (w *WebhookAlerter) Alert(ctx context.Context, alert *WebhookAlert) error {
	if !w.IsEnabled() {
		w.log.Debugf("Webhook alerter disabled, skipping alert: %s", alert.Title)
		return errWebhookDisabled
	}

	if err := w.checkCooldown(alert.DeviceID + ":" + alert.Title); err != nil {
		return err
	}

	if alert.Timestamp == "" {
		alert.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	payload, err := w.preparePayload(alert)
	if err != nil {
		return fmt.Errorf("failed to prepare payload: %w", err)
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	return w.sendRequest(ctx, payload)
}

func (w *WebhookAlerter) checkCooldown(key string) error {
	cooldown := time.Duration(w.config.Cooldown)
	if cooldown <= 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	lastAlertTime, exists := w.lastAlertTimes[key]
	if exists && time.Since(lastAlertTime) < cooldown {
		w.log.Debugf("Alert '%s' is within cooldown period, skipping", key)
		return errWebhookCooldown
	}

	w.lastAlertTimes[key] = time.Now()

	return nil
}

func (w *WebhookAlerter) preparePayload(alert *WebhookAlert) ([]byte, error) {
	if w.config.Template == "" {
		data, err := json.Marshal(alert)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal alert: %w", err)
		}

		return data, nil
	}

	return w.executeTemplate(alert)
}

func (w *WebhookAlerter) executeTemplate(alert *WebhookAlert) ([]byte, error) {
	tmpl, err := template.New("webhook").
		Funcs(w.getTemplateFuncs()).
		Parse(w.config.Template)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errTemplateParse, err)
	}

	buf := w.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer w.bufferPool.Put(buf)

	if err := tmpl.Execute(buf, map[string]interface{}{
		"alert": alert,
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", errTemplateExecution, err)
	}

	if !json.Valid(buf.Bytes()) {
		return nil, errInvalidJSON
	}

	return append([]byte(nil), buf.Bytes()...), nil
}

func (w *WebhookAlerter) sendRequest(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	w.setHeaders(req)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			w.log.Warnf("failed to close response body: %v", err)
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return fmt.Errorf("%w: status=%d body=%s", errWebhookStatus, resp.StatusCode, string(body))
	}

	return nil
}

func (w *WebhookAlerter) setHeaders(req *http.Request) {
	hasContentType := false

	for _, header := range w.config.Headers {
		if strings.EqualFold(header.Key, "content-type") {
			hasContentType = true
		}

		req.Header.Set(header.Key, header.Value)
	}

	if !hasContentType {
		req.Header.Set("Content-Type", "application/json")
	}
}
