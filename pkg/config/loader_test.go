package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/contractd/pkg/logging"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		check   func(t *testing.T, cfg *Config)
		wantErr error
	}{
		{
			name: "yaml overrides defaults",
			file: "contractd.yaml",
			content: `
contracts:
  dir: ./spec/contracts
matching:
  arrayMode: ordered
  headerUnquote: false
mqtt:
  port: 11883
  qos: 1
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "./spec/contracts", cfg.Contracts.Dir)
				assert.Equal(t, "**/*.{yml,yaml}", cfg.Contracts.Include, "untouched keys keep defaults")
				assert.Equal(t, "stubs", cfg.Stubs.Dir)
				assert.Equal(t, "ordered", cfg.Matching.ArrayMode)
				require.NotNil(t, cfg.Matching.HeaderUnquote)
				assert.False(t, *cfg.Matching.HeaderUnquote)
				assert.Equal(t, 11883, cfg.MQTT.Port)
				assert.Equal(t, byte(1), cfg.MQTT.QoS)
			},
		},
		{
			name:    "json",
			file:    "contractd.json",
			content: `{"stubs":{"dir":"out"},"logging":{"level":"debug"}}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "out", cfg.Stubs.Dir)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "contracts", cfg.Contracts.Dir)
			},
		},
		{
			name:    "empty yaml is the default",
			file:    "contractd.yml",
			content: "\n",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, Default(), cfg)
			},
		},
		{
			name:    "unknown yaml key",
			file:    "contractd.yaml",
			content: "contract:\n  dir: x\n",
			wantErr: ErrInvalidYAML,
		},
		{
			name:    "malformed json",
			file:    "contractd.json",
			content: `{"stubs":`,
			wantErr: ErrInvalidJSON,
		},
		{
			name:    "unknown json key",
			file:    "contractd.json",
			content: `{"stub":{}}`,
			wantErr: ErrInvalidConfig,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFromFile(writeConfig(t, tt.file, tt.content))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrFileNotFound)
	_, err = LoadFromFile(t.TempDir())
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvContracts, "/srv/contracts")
	t.Setenv(EnvStubsDir, "/srv/stubs")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvMQTTPort, "2883")
	t.Setenv(EnvArrayMode, "unordered")

	cfg := Default()
	require.NoError(t, ApplyEnv(cfg))
	assert.Equal(t, "/srv/contracts", cfg.Contracts.Dir)
	assert.Equal(t, "/srv/stubs", cfg.Stubs.Dir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 2883, cfg.MQTT.Port)
	assert.Equal(t, "unordered", cfg.Matching.ArrayMode)

	t.Setenv(EnvMQTTPort, "high")
	assert.ErrorIs(t, ApplyEnv(Default()), ErrInvalidConfig)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "contractd.yaml", "matching:\n  arrayMode: ordered\n")
	t.Setenv(EnvArrayMode, "unordered")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "unordered", cfg.Matching.ArrayMode, "environment wins over the file")

	t.Setenv(EnvArrayMode, "sideways")
	_, err = Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, Find(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "contractd.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "contractd.yml"), []byte(""), 0o644))
	assert.Equal(t, filepath.Join(dir, "contractd.yml"), Find(dir))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		valid  bool
	}{
		{name: "defaults", mutate: func(*Config) {}, valid: true},
		{name: "no contracts dir", mutate: func(c *Config) { c.Contracts.Dir = "" }},
		{name: "bad array mode", mutate: func(c *Config) { c.Matching.ArrayMode = "sorted" }},
		{name: "bad null policy", mutate: func(c *Config) { c.Matching.NullPolicy = "never" }},
		{name: "bad port", mutate: func(c *Config) { c.MQTT.Port = 70000 }},
		{name: "bad qos", mutate: func(c *Config) { c.MQTT.QoS = 3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestEngineOptions(t *testing.T) {
	cfg := Default()
	opts, err := cfg.EngineOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	off := false
	cfg.Matching.HeaderUnquote = &off
	opts, err = cfg.EngineOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 3)

	cfg.Matching.NullPolicy = "never"
	_, err = cfg.EngineOptions()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoggingConfig(t *testing.T) {
	cfg := Default()
	cfg.Logging = LoggingConfig{Level: "DEBUG", Format: "json", File: "contractd.log"}
	lc := cfg.LoggingConfig()
	assert.Equal(t, logging.LevelDebug, lc.Level)
	assert.Equal(t, logging.FormatJSON, lc.Format)
	assert.Equal(t, "contractd.log", lc.File)
}

func TestSaveToFile_RoundTrip(t *testing.T) {
	for _, name := range []string{"contractd.yaml", "contractd.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			cfg := Default()
			cfg.Contracts.Dir = "api/contracts"
			cfg.MQTT.Host = "127.0.0.1"

			require.NoError(t, SaveToFile(path, cfg))
			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
	assert.Error(t, SaveToFile(filepath.Join(t.TempDir(), "x.yaml"), nil))
}
