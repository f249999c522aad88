package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/getmockd/contractd/internal/jsonpaths"
	"github.com/getmockd/contractd/internal/matching"
	"github.com/getmockd/contractd/pkg/logging"
)

// Common errors for configuration loading/saving.
var (
	ErrFileNotFound     = errors.New("configuration file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidJSON      = errors.New("invalid JSON syntax")
	ErrInvalidYAML      = errors.New("invalid YAML syntax")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// DefaultFileNames are looked up, in order, when no path is given.
var DefaultFileNames = []string{"contractd.yaml", "contractd.yml", "contractd.json"}

// Environment variable names
const (
	EnvContracts = "CONTRACTD_CONTRACTS"
	EnvStubsDir  = "CONTRACTD_STUBS_DIR"
	EnvLogLevel  = "CONTRACTD_LOG_LEVEL"
	EnvLogFormat = "CONTRACTD_LOG_FORMAT"
	EnvMQTTPort  = "CONTRACTD_MQTT_PORT"
	EnvArrayMode = "CONTRACTD_ARRAY_MODE"
)

// Load resolves the configuration: defaults, then the file at path (or
// the first DefaultFileNames entry in the working directory when path is
// empty), then the environment. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = Find(".")
	}
	if path != "" {
		loaded, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Find returns the first default config file present in dir, or "".
func Find(dir string) string {
	for _, name := range DefaultFileNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// LoadFromFile reads a configuration from a JSON or YAML file on top of
// Default(). The format is detected from the extension (.yaml, .yml for
// YAML, otherwise JSON).
func LoadFromFile(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		return ParseYAML(data)
	}
	return ParseJSON(data)
}

// ParseYAML parses a YAML configuration on top of Default().
func ParseYAML(data []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return cfg, nil
}

// ParseJSON parses a JSON configuration on top of Default().
func ParseJSON(data []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	if !json.Valid(data) {
		return nil, ErrInvalidJSON
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with the CONTRACTD_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv(EnvContracts); v != "" {
		cfg.Contracts.Dir = v
	}
	if v := os.Getenv(EnvStubsDir); v != "" {
		cfg.Stubs.Dir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv(EnvMQTTPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a port", ErrInvalidConfig, EnvMQTTPort, v)
		}
		cfg.MQTT.Port = port
	}
	if v := os.Getenv(EnvArrayMode); v != "" {
		cfg.Matching.ArrayMode = v
	}
	return nil
}

// Validate checks values that cannot be expressed by the types alone.
func (c *Config) Validate() error {
	var problems []string
	if c.Contracts.Dir == "" {
		problems = append(problems, "contracts.dir is required")
	}
	if _, err := jsonpaths.ParseArrayMode(c.Matching.ArrayMode); err != nil {
		problems = append(problems, "matching.arrayMode: "+err.Error())
	}
	if _, err := jsonpaths.ParseNullPolicy(c.Matching.NullPolicy); err != nil {
		problems = append(problems, "matching.nullPolicy: "+err.Error())
	}
	if c.MQTT.Port < 0 || c.MQTT.Port > 65535 {
		problems = append(problems, fmt.Sprintf("mqtt.port %d is out of range", c.MQTT.Port))
	}
	if c.MQTT.QoS > 2 {
		problems = append(problems, fmt.Sprintf("mqtt.qos %d is not 0, 1 or 2", c.MQTT.QoS))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// EngineOptions translates the matching section into engine options.
func (c *Config) EngineOptions() ([]matching.Option, error) {
	arrays, err := jsonpaths.ParseArrayMode(c.Matching.ArrayMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	nulls, err := jsonpaths.ParseNullPolicy(c.Matching.NullPolicy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	opts := []matching.Option{matching.WithArrayMode(arrays), matching.WithNullPolicy(nulls)}
	if c.Matching.HeaderUnquote != nil {
		opts = append(opts, matching.WithHeaderUnquote(*c.Matching.HeaderUnquote))
	}
	return opts, nil
}

// LoggingConfig converts the logging section.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(c.Logging.Level)
	cfg.Format = logging.ParseFormat(c.Logging.Format)
	cfg.File = c.Logging.File
	return cfg
}

// SaveToFile writes cfg using an atomic rename. The format follows the
// extension, like LoadFromFile.
func SaveToFile(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config cannot be nil")
	}

	var data []byte
	var err error
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
