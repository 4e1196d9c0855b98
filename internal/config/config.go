// Package config provides the configuration schema, loader, and file watcher
// for the agripos voice server.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure, typically loaded from a YAML
// file using [Load] or [LoadFromReader].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Speech  SpeechConfig  `yaml:"speech"`
	Voice   VoiceConfig   `yaml:"voice"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address for the metrics/health endpoints
	// (e.g., ":8081"). Empty disables the HTTP server.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// BackendConfig locates the shop backend that owns the catalog, partners,
// aliases, and orders.
type BackendConfig struct {
	// BaseURL is the backend REST API root (e.g., "http://localhost:5000").
	BaseURL string `yaml:"base_url"`

	// PostgresDSN, when set, makes alias syncs read straight from the shop
	// database instead of the REST endpoint. Used on-premise where the POS
	// terminal shares a network with the database.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// SpeechConfig locates the speech gateway — the process owning the device
// microphone and speaker.
type SpeechConfig struct {
	// GatewayURL is the WebSocket capture endpoint
	// (e.g., "ws://localhost:7700/listen"). Empty disables the voice
	// feature entirely; the POS still runs without it.
	GatewayURL string `yaml:"gateway_url"`

	// SynthURL is the HTTP synthesis root (e.g., "http://localhost:7700").
	SynthURL string `yaml:"synth_url"`

	// Language is the BCP-47 recognition and synthesis locale.
	// Default: "vi-VN".
	Language string `yaml:"language"`
}

// VoiceConfig carries the pipeline tuning knobs. The fuzzy-match values are
// inherited tuning with no documented derivation — exposed here precisely so
// nobody has to patch code to adjust them.
type VoiceConfig struct {
	// MatchThreshold is the resolver's maximum accepted score (edit cost as
	// a fraction of the phrase length). Default: 0.3.
	MatchThreshold float64 `yaml:"match_threshold"`

	// MatchDistance is the resolver's alignment window in characters.
	// Default: 100.
	MatchDistance int `yaml:"match_distance"`

	// DisplayHoldMs keeps the confirmation overlay visible after a final
	// transcript, in milliseconds. Default: 1500.
	DisplayHoldMs int `yaml:"display_hold_ms"`

	// ErrorHoldMs keeps the error overlay visible, in milliseconds.
	// Default: 2000.
	ErrorHoldMs int `yaml:"error_hold_ms"`

	// PartnerPhoneticThreshold is the partner matcher's minimum score for
	// phonetic candidates. Default: 0.6.
	PartnerPhoneticThreshold float64 `yaml:"partner_phonetic_threshold"`

	// PartnerFuzzyThreshold is the partner matcher's minimum score without
	// a phonetic candidate. Default: 0.8.
	PartnerFuzzyThreshold float64 `yaml:"partner_fuzzy_threshold"`

	// AliasDBPath is the SQLite file persisting the alias cache snapshot.
	// Empty keeps the cache memory-only.
	AliasDBPath string `yaml:"alias_db_path"`
}

// Load reads the YAML configuration file at path and returns a validated
// [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Backend.BaseURL == "" && cfg.Backend.PostgresDSN == "" {
		errs = append(errs, errors.New("backend.base_url is required (or backend.postgres_dsn for direct-database alias syncs)"))
	}
	if cfg.Speech.GatewayURL != "" && cfg.Speech.SynthURL == "" {
		errs = append(errs, errors.New("speech.synth_url is required when speech.gateway_url is set"))
	}

	if t := cfg.Voice.MatchThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("voice.match_threshold %.2f is out of range [0, 1]", t))
	}
	if cfg.Voice.MatchDistance < 0 {
		errs = append(errs, fmt.Errorf("voice.match_distance %d must not be negative", cfg.Voice.MatchDistance))
	}
	if t := cfg.Voice.PartnerPhoneticThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("voice.partner_phonetic_threshold %.2f is out of range [0, 1]", t))
	}
	if t := cfg.Voice.PartnerFuzzyThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("voice.partner_fuzzy_threshold %.2f is out of range [0, 1]", t))
	}
	if cfg.Voice.DisplayHoldMs < 0 {
		errs = append(errs, fmt.Errorf("voice.display_hold_ms %d must not be negative", cfg.Voice.DisplayHoldMs))
	}
	if cfg.Voice.ErrorHoldMs < 0 {
		errs = append(errs, fmt.Errorf("voice.error_hold_ms %d must not be negative", cfg.Voice.ErrorHoldMs))
	}

	return errors.Join(errs...)
}
