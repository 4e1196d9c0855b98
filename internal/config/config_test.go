package config_test

import (
	"strings"
	"testing"

	"github.com/quangvo/agripos/internal/config"
)

const sampleYAML = `
server:
  listen_addr: ":8081"
  log_level: info

backend:
  base_url: "http://localhost:5000"

speech:
  gateway_url: "ws://localhost:7700/listen"
  synth_url: "http://localhost:7700"
  language: "vi-VN"

voice:
  match_threshold: 0.3
  match_distance: 100
  display_hold_ms: 1500
  error_hold_ms: 2000
  partner_phonetic_threshold: 0.6
  partner_fuzzy_threshold: 0.8
  alias_db_path: "aliases.db"
`

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":8081" {
		t.Errorf("server.listen_addr: got %q, want %q", cfg.Server.ListenAddr, ":8081")
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("server.log_level: got %q, want %q", cfg.Server.LogLevel, config.LogInfo)
	}
	if cfg.Backend.BaseURL != "http://localhost:5000" {
		t.Errorf("backend.base_url: got %q", cfg.Backend.BaseURL)
	}
	if cfg.Speech.Language != "vi-VN" {
		t.Errorf("speech.language: got %q", cfg.Speech.Language)
	}
	if cfg.Voice.MatchThreshold != 0.3 {
		t.Errorf("voice.match_threshold: got %v", cfg.Voice.MatchThreshold)
	}
	if cfg.Voice.DisplayHoldMs != 1500 {
		t.Errorf("voice.display_hold_ms: got %d", cfg.Voice.DisplayHoldMs)
	}
	if cfg.Voice.AliasDBPath != "aliases.db" {
		t.Errorf("voice.alias_db_path: got %q", cfg.Voice.AliasDBPath)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()

	yaml := `
backend:
  base_url: "http://localhost:5000"
  basse_url_typo: "oops"
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestLoadFromReader_MalformedYAML(t *testing.T) {
	t.Parallel()

	if _, err := config.LoadFromReader(strings.NewReader("backend: [")); err == nil {
		t.Fatal("expected error for malformed yaml, got nil")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *config.Config {
		return &config.Config{
			Backend: config.BackendConfig{BaseURL: "http://localhost:5000"},
			Speech: config.SpeechConfig{
				GatewayURL: "ws://localhost:7700/listen",
				SynthURL:   "http://localhost:7700",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string // substring; "" = expect valid
	}{
		{"minimal valid", func(c *config.Config) {}, ""},
		{
			"postgres dsn alone is enough",
			func(c *config.Config) {
				c.Backend.BaseURL = ""
				c.Backend.PostgresDSN = "postgres://localhost/shop"
			},
			"",
		},
		{
			"no backend at all",
			func(c *config.Config) { c.Backend.BaseURL = "" },
			"backend.base_url",
		},
		{
			"gateway without synth",
			func(c *config.Config) { c.Speech.SynthURL = "" },
			"speech.synth_url",
		},
		{
			"bad log level",
			func(c *config.Config) { c.Server.LogLevel = "bananas" },
			"server.log_level",
		},
		{
			"match threshold above one",
			func(c *config.Config) { c.Voice.MatchThreshold = 1.5 },
			"voice.match_threshold",
		},
		{
			"negative match distance",
			func(c *config.Config) { c.Voice.MatchDistance = -1 },
			"voice.match_distance",
		},
		{
			"negative display hold",
			func(c *config.Config) { c.Voice.DisplayHoldMs = -100 },
			"voice.display_hold_ms",
		},
		{
			"partner threshold out of range",
			func(c *config.Config) { c.Voice.PartnerFuzzyThreshold = 2 },
			"voice.partner_fuzzy_threshold",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(cfg)
			err := config.Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Server: config.ServerConfig{LogLevel: "loud"},
		Voice:  config.VoiceConfig{MatchThreshold: 2, MatchDistance: -5},
	}
	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	for _, want := range []string{"server.log_level", "backend.base_url", "voice.match_threshold", "voice.match_distance"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error %q does not mention %q", err, want)
		}
	}
}
