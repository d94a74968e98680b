package core

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/fieldradar/pkg/config"
)

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{DBPath: "/var/lib/fieldradar/fieldradar.db"}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, defaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, defaultGRPCAddr, cfg.GrpcAddr)
	assert.Equal(t, "sqlite", cfg.Audit.Backend)
	assert.Equal(t, "sqlite", cfg.Registry.Driver)
	assert.Equal(t, filepath.Join("/var/lib/fieldradar", "registry.db"), cfg.Registry.DSN)
	assert.InDelta(t, defaultAlertRate, cfg.AlertRate, 0)
}

func TestConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{name: "no db path", cfg: Config{}, want: errDBPathRequired},
		{
			name: "unknown audit backend",
			cfg:  Config{DBPath: "x.db", Audit: config.AuditConfig{Backend: "kafka"}},
			want: errUnknownAudit,
		},
		{
			name: "dynamodb without table",
			cfg:  Config{DBPath: "x.db", Audit: config.AuditConfig{Backend: "dynamodb"}},
			want: errDynamoTable,
		},
		{
			name: "webhook without url",
			cfg:  Config{DBPath: "x.db", Webhooks: []config.WebhookConfig{{Enabled: true}}},
			want: errWebhookURL,
		},
		{name: "negative alert rate", cfg: Config{DBPath: "x.db", AlertRate: -1}, want: errNegativeAlertRate},
		{name: "known device without id", cfg: Config{DBPath: "x.db", KnownDevices: []KnownDevice{{Owner: "alice"}}}, want: errKnownDeviceID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.cfg.Validate(), tt.want)
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fieldradar.json")
	require.NoError(t, writeFile(path, `{
		"db_path": "/tmp/fieldradar.db",
		"command_timeout": "45s",
		"offline_threshold": "15m",
		"known_devices": [{"id": "dev-1", "owner": "alice"}]
	}`))

	var cfg Config
	require.NoError(t, config.LoadAndValidate(path, &cfg))

	assert.Equal(t, "45s", cfg.CommandTimeout.Or(0).String())
	assert.Equal(t, "15m0s", cfg.OfflineThreshold.Or(0).String())
	assert.Equal(t, []KnownDevice{{ID: "dev-1", Owner: "alice"}}, cfg.KnownDevices)
}
