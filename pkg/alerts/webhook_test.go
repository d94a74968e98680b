package alerts

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carverauto/fieldradar/pkg/config"
	"github.com/carverauto/fieldradar/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookAlerter(t *testing.T) {
	var (
		hits int32
		body []byte
		auth string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)

		body, _ = io.ReadAll(r.Body)
		auth = r.Header.Get("Authorization")

		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	alerter := NewWebhookAlerter(config.WebhookConfig{
		Enabled:  true,
		URL:      srv.URL,
		Cooldown: config.Duration(time.Minute),
		Headers:  []config.Header{{Key: "Authorization", Value: "Bearer token"}},
	}, 0, logger.Discard())

	alert := &WebhookAlert{Level: Error, Title: "Device Offline", Message: "dev-1 offline for 10 minutes", DeviceID: "dev-1"}
	require.NoError(t, alerter.Alert(context.Background(), alert))

	var got WebhookAlert
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "dev-1", got.DeviceID)
	assert.NotEmpty(t, got.Timestamp)
	assert.Equal(t, "Bearer token", auth)

	// Same device and title inside cooldown.
	err := alerter.Alert(context.Background(), &WebhookAlert{Title: "Device Offline", DeviceID: "dev-1"})
	require.ErrorIs(t, err, errWebhookCooldown)

	// Another device is not held back by dev-1's cooldown.
	require.NoError(t, alerter.Alert(context.Background(), &WebhookAlert{Title: "Device Offline", DeviceID: "dev-2"}))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestWebhookAlerterDisabled(t *testing.T) {
	alerter := NewWebhookAlerter(config.WebhookConfig{Enabled: false}, 0, logger.Discard())

	assert.False(t, alerter.IsEnabled())
	assert.ErrorIs(t, alerter.Alert(context.Background(), &WebhookAlert{Title: "x"}), errWebhookDisabled)
}

func TestWebhookAlerterStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	alerter := NewWebhookAlerter(config.WebhookConfig{Enabled: true, URL: srv.URL}, 0, logger.Discard())

	err := alerter.Alert(context.Background(), &WebhookAlert{Title: "x", DeviceID: "dev-1"})
	assert.ErrorIs(t, err, errWebhookStatus)
}

func TestDiscordTemplate(t *testing.T) {
	var body []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	alerter := NewWebhookAlerter(config.WebhookConfig{Enabled: true, URL: srv.URL, Discord: true}, 0, logger.Discard())

	require.NoError(t, alerter.Alert(context.Background(), &WebhookAlert{
		Level:    Warning,
		Title:    "Command Failed",
		Message:  "relay 1 did not respond",
		DeviceID: "dev-1",
		Details:  map[string]any{"command_id": "c1"},
	}))

	var payload struct {
		Embeds []struct {
			Title  string `json:"title"`
			Color  int    `json:"color"`
			Fields []struct {
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"fields"`
		} `json:"embeds"`
	}

	require.NoError(t, json.Unmarshal(body, &payload))
	require.Len(t, payload.Embeds, 1)
	assert.Equal(t, "Command Failed", payload.Embeds[0].Title)
	assert.Equal(t, 16776960, payload.Embeds[0].Color)
	require.Len(t, payload.Embeds[0].Fields, 2)
	assert.Equal(t, "c1", payload.Embeds[0].Fields[1].Value)
}

func TestWebhookAlerterRateLimitHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	alerter := NewWebhookAlerter(config.WebhookConfig{Enabled: true, URL: srv.URL}, 0.001, logger.Discard())

	require.NoError(t, alerter.Alert(context.Background(), &WebhookAlert{Title: "a", DeviceID: "dev-1"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.Error(t, alerter.Alert(ctx, &WebhookAlert{Title: "b", DeviceID: "dev-1"}))
}
