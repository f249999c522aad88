package config

import (
	"github.com/getmockd/contractd/pkg/contract"
	"github.com/getmockd/contractd/pkg/mqtt"
)

// Config is the contractd configuration.
type Config struct {
	Contracts ContractsConfig `json:"contracts" yaml:"contracts"`
	Stubs     StubsConfig     `json:"stubs" yaml:"stubs"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
	Matching  MatchingConfig  `json:"matching" yaml:"matching"`
	MQTT      mqtt.Config     `json:"mqtt" yaml:"mqtt"`
}

// ContractsConfig locates contract files.
type ContractsConfig struct {
	Dir     string `json:"dir" yaml:"dir"`
	Include string `json:"include,omitempty" yaml:"include,omitempty"`
}

// StubsConfig controls stub generation.
type StubsConfig struct {
	Dir    string `json:"dir" yaml:"dir"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
	File   string `json:"file,omitempty" yaml:"file,omitempty"`
}

// MatchingConfig tunes the matching engine.
type MatchingConfig struct {
	// ArrayMode is auto, unordered or ordered.
	ArrayMode string `json:"arrayMode,omitempty" yaml:"arrayMode,omitempty"`
	// NullPolicy is null-or-absent or null-only.
	NullPolicy string `json:"nullPolicy,omitempty" yaml:"nullPolicy,omitempty"`
	// HeaderUnquote strips one layer of JSON quotes from byte header values.
	HeaderUnquote *bool `json:"headerUnquote,omitempty" yaml:"headerUnquote,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Contracts: ContractsConfig{Dir: "contracts", Include: contract.DefaultPattern},
		Stubs:     StubsConfig{Dir: "stubs", Format: "wiremock"},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Matching:  MatchingConfig{ArrayMode: "auto", NullPolicy: "null-or-absent"},
		MQTT:      mqtt.Config{Port: mqtt.DefaultPort},
	}
}
