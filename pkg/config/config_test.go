package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Timeout   Duration `json:"timeout"`
	Name      string   `json:"name"`
	validated bool
}

var errNameRequired = errors.New("name required")

func (c *testConfig) Validate() error {
	c.validated = true

	if c.Name == "" {
		return errNameRequired
	}

	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestDurationUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "string", input: `"30s"`, want: 30 * time.Second},
		{name: "minutes", input: `"10m"`, want: 10 * time.Minute},
		{name: "nanoseconds", input: `1000000000`, want: time.Second},
		{name: "bad string", input: `"soon"`, wantErr: true},
		{name: "bool", input: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration

			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				assert.ErrorIs(t, err, errInvalidDuration)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, time.Duration(d))
		})
	}
}

func TestDurationOr(t *testing.T) {
	assert.Equal(t, time.Minute, Duration(0).Or(time.Minute))
	assert.Equal(t, time.Second, Duration(time.Second).Or(time.Minute))
}

func TestLoadAndValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		path := writeFile(t, `{"timeout": "45s", "name": "field"}`)

		var cfg testConfig
		require.NoError(t, LoadAndValidate(path, &cfg))
		assert.True(t, cfg.validated)
		assert.Equal(t, 45*time.Second, time.Duration(cfg.Timeout))
	})

	t.Run("validation error", func(t *testing.T) {
		path := writeFile(t, `{"timeout": "45s"}`)

		var cfg testConfig
		assert.ErrorIs(t, LoadAndValidate(path, &cfg), errNameRequired)
	})

	t.Run("missing file", func(t *testing.T) {
		var cfg testConfig
		assert.Error(t, LoadAndValidate(filepath.Join(t.TempDir(), "nope.json"), &cfg))
	})

	t.Run("malformed json", func(t *testing.T) {
		path := writeFile(t, `{"timeout":`)

		var cfg testConfig
		assert.ErrorIs(t, LoadAndValidate(path, &cfg), ErrMalformedConfig)
	})

	t.Run("unknown key", func(t *testing.T) {
		path := writeFile(t, `{"name": "field", "timout": "45s"}`)

		var cfg testConfig
		err := LoadAndValidate(path, &cfg)
		require.ErrorIs(t, err, ErrMalformedConfig)
		assert.Contains(t, err.Error(), "timout")
		assert.False(t, cfg.validated)
	})

	t.Run("type error reports line", func(t *testing.T) {
		path := writeFile(t, "{\n  \"timeout\": \"1s\",\n  \"name\": 5\n}")

		var cfg testConfig
		err := LoadAndValidate(path, &cfg)
		require.ErrorIs(t, err, ErrMalformedConfig)
		assert.Contains(t, err.Error(), "line 3")
	})
}

func TestLoadFileExpandsEnvironment(t *testing.T) {
	t.Setenv("FIELDRADAR_TEST_NAME", "north-field")

	path := writeFile(t, `{"name": "${FIELDRADAR_TEST_NAME}", "timeout": "1m"}`)

	var cfg testConfig
	require.NoError(t, LoadAndValidate(path, &cfg))
	assert.Equal(t, "north-field", cfg.Name)

	t.Run("bare dollar is kept", func(t *testing.T) {
		path := writeFile(t, `{"name": "pa$$word"}`)

		var cfg testConfig
		require.NoError(t, LoadAndValidate(path, &cfg))
		assert.Equal(t, "pa$$word", cfg.Name)
	})

	t.Run("unset variable", func(t *testing.T) {
		path := writeFile(t, `{"name": "${FIELDRADAR_TEST_UNSET_VARIABLE}"}`)

		var cfg testConfig
		err := LoadAndValidate(path, &cfg)
		require.ErrorIs(t, err, errUnsetVariable)
		assert.Contains(t, err.Error(), "FIELDRADAR_TEST_UNSET_VARIABLE")
	})
}
