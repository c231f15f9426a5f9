package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for embedbot.
type Config struct {
	General     GeneralConfig     `json:"general"`
	Discord     DiscordConfig     `json:"discord"`
	Fetch       FetchConfig       `json:"fetch"`
	Rumble      RumbleConfig      `json:"rumble"`
	TruthSocial TruthSocialConfig `json:"truthsocial"`
	Metrics     MetricsConfig     `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel           string `json:"logLevel"`
	CacheDir           string `json:"cacheDir"`           // avatar cache directory
	SweepIntervalHours int    `json:"sweepIntervalHours"` // avatar cache sweep cadence
	BusBufferSize      int    `json:"busBufferSize"`
}

type DiscordConfig struct {
	Token   string `json:"token"`             // resolved through ${DISCORD_TOKEN} by default
	GuildID string `json:"guildId,omitempty"` // optional: restrict to a specific guild
}

type FetchConfig struct {
	TimeoutSeconds int   `json:"timeoutSeconds"`
	MaxBodyBytes   int64 `json:"maxBodyBytes"`
}

type RumbleConfig struct {
	Enabled        bool   `json:"enabled"`
	YtdlpPath      string `json:"ytdlpPath,omitempty"` // defaults to "yt-dlp" on PATH
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

type TruthSocialConfig struct {
	Enabled       bool   `json:"enabled"`
	SelectorsFile string `json:"selectorsFile,omitempty"` // optional YAML selector overrides
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"` // listen address for /metrics
}

// Defaults returns the configuration used when no file exists yet.
func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:           "info",
			CacheDir:           filepath.Join(DefaultConfigDir(), "avatar_cache"),
			SweepIntervalHours: 24,
			BusBufferSize:      100,
		},
		Discord: DiscordConfig{
			Token: "${DISCORD_TOKEN}",
		},
		Fetch: FetchConfig{
			TimeoutSeconds: 15,
			MaxBodyBytes:   2 << 20,
		},
		Rumble: RumbleConfig{
			Enabled:        true,
			TimeoutSeconds: 30,
		},
		TruthSocial: TruthSocialConfig{
			Enabled: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9120",
		},
	}
}

// DefaultConfigDir returns the default config directory (~/.embedbot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".embedbot"
	}
	return filepath.Join(home, ".embedbot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.CacheDir = ExpandPath(cfg.General.CacheDir)
	cfg.TruthSocial.SelectorsFile = ExpandPath(cfg.TruthSocial.SelectorsFile)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset
// or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}
	if cfg.General.SweepIntervalHours < 1 {
		errs = append(errs, "general.sweepIntervalHours must be >= 1")
	}
	if cfg.General.BusBufferSize < 1 {
		errs = append(errs, "general.busBufferSize must be >= 1")
	}
	if cfg.Fetch.TimeoutSeconds < 1 {
		errs = append(errs, "fetch.timeoutSeconds must be >= 1")
	}
	if cfg.Fetch.MaxBodyBytes < 1024 {
		errs = append(errs, "fetch.maxBodyBytes must be >= 1024")
	}
	if cfg.Rumble.TimeoutSeconds < 1 {
		errs = append(errs, "rumble.timeoutSeconds must be >= 1")
	}
	if !cfg.Rumble.Enabled && !cfg.TruthSocial.Enabled {
		errs = append(errs, "at least one platform must be enabled")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		errs = append(errs, "metrics.addr is required when metrics are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// TokenResolved reports whether the Discord token carries a usable value
// after env expansion. An unexpanded ${VAR} placeholder means the variable
// was never set.
func (c *Config) TokenResolved() bool {
	t := strings.TrimSpace(c.Discord.Token)
	return t != "" && !strings.HasPrefix(t, "${")
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
