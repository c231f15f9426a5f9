package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaults_AreValid(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
	if !cfg.Rumble.Enabled || !cfg.TruthSocial.Enabled {
		t.Error("both platforms enabled by default")
	}
}

func TestLoad_MissingFileIsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoad_AppliesDefaultsAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"general":{"sweepIntervalHours":48},"discord":{"token":"abc"}}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.General.SweepIntervalHours != 48 {
		t.Errorf("sweepIntervalHours = %d", cfg.General.SweepIntervalHours)
	}
	// Untouched sections keep their defaults.
	if cfg.Fetch.TimeoutSeconds != 15 {
		t.Errorf("fetch.timeoutSeconds = %d", cfg.Fetch.TimeoutSeconds)
	}
	if cfg.Discord.Token != "abc" {
		t.Errorf("token = %q", cfg.Discord.Token)
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("EMBEDBOT_TEST_TOKEN", "secret-token")

	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"discord":{"token":"${EMBEDBOT_TEST_TOKEN}"}}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Discord.Token != "secret-token" {
		t.Errorf("token = %q", cfg.Discord.Token)
	}
	if !cfg.TokenResolved() {
		t.Error("token should be resolved")
	}
}

func TestExpandEnvVars_DefaultValue(t *testing.T) {
	got := ExpandEnvVars("${EMBEDBOT_UNSET_VAR:-fallback}")
	if got != "fallback" {
		t.Errorf("got %q", got)
	}
	// No default and unset: placeholder preserved.
	got = ExpandEnvVars("${EMBEDBOT_UNSET_VAR}")
	if got != "${EMBEDBOT_UNSET_VAR}" {
		t.Errorf("got %q", got)
	}
}

func TestTokenResolved_UnexpandedPlaceholder(t *testing.T) {
	cfg := Defaults()
	if cfg.TokenResolved() {
		t.Error("placeholder token must not count as resolved")
	}
}

func TestValidate_Failures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad log level", func(c *Config) { c.General.LogLevel = "verbose" }, "logLevel"},
		{"zero sweep", func(c *Config) { c.General.SweepIntervalHours = 0 }, "sweepIntervalHours"},
		{"zero fetch timeout", func(c *Config) { c.Fetch.TimeoutSeconds = 0 }, "fetch.timeoutSeconds"},
		{"no platforms", func(c *Config) { c.Rumble.Enabled = false; c.TruthSocial.Enabled = false }, "at least one platform"},
		{"metrics without addr", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Addr = "" }, "metrics.addr"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := Defaults()
			c.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), c.want) {
				t.Errorf("err = %v, want mention of %q", err, c.want)
			}
		})
	}
}

func TestGetSetByPath(t *testing.T) {
	cfg := Defaults()

	if err := SetByPath(cfg, "rumble.timeoutSeconds", "45"); err != nil {
		t.Fatalf("SetByPath: %v", err)
	}
	if cfg.Rumble.TimeoutSeconds != 45 {
		t.Errorf("timeoutSeconds = %d", cfg.Rumble.TimeoutSeconds)
	}

	val, err := GetByPath(cfg, "rumble.timeoutSeconds")
	if err != nil {
		t.Fatalf("GetByPath: %v", err)
	}
	if val.(float64) != 45 {
		t.Errorf("val = %v", val)
	}

	if err := SetByPath(cfg, "rumble.enabled", "false"); err != nil {
		t.Fatalf("SetByPath bool: %v", err)
	}
	if cfg.Rumble.Enabled {
		t.Error("enabled should be false")
	}

	if _, err := GetByPath(cfg, "no.such.key"); err == nil {
		t.Error("expected error for unknown path")
	}
	if err := SetByPath(cfg, "no.such.key", "x"); err == nil {
		t.Error("expected error for unknown path")
	}
}

func TestSanitize_MasksToken(t *testing.T) {
	cfg := Defaults()
	cfg.Discord.Token = "super-secret-token-value"

	out := Sanitize(cfg)
	if out.Discord.Token == cfg.Discord.Token {
		t.Error("token not masked")
	}
	if strings.Contains(out.Discord.Token, "secret") {
		t.Errorf("masked token leaks content: %q", out.Discord.Token)
	}
	// Original is untouched.
	if cfg.Discord.Token != "super-secret-token-value" {
		t.Error("Sanitize mutated the input")
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Defaults()
	cfg.Discord.Token = "tok"
	cfg.General.SweepIntervalHours = 12

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.General.SweepIntervalHours != 12 || loaded.Discord.Token != "tok" {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}
