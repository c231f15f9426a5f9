package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"embedbot/internal/avatar"
	"embedbot/internal/bus"
	"embedbot/internal/channel"
	"embedbot/internal/config"
	"embedbot/internal/dispatch"
	"embedbot/internal/domain"
	"embedbot/internal/fetch"
	"embedbot/internal/metrics"
	"embedbot/internal/platform"
	"embedbot/internal/repost"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "embedbot",
		Short: "embedbot: seamless link embedding for Discord",
		Long:  "embedbot watches Discord for Rumble and Truth Social links, reposts a rich preview card under the original author's name, and removes the bare link.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.embedbot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(runCmd())
	root.AddCommand(configCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config and cache directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.General.CacheDir, 0o755); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath, "cache_dir", cfg.General.CacheDir)
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and start embedding links",
		Long:  "Starts the gateway connection, the dispatcher, and the avatar cache sweeper. Press Ctrl+C to stop.",
		RunE:  runRun,
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
		cfg.Discord.Token = config.ExpandEnvVars(cfg.Discord.Token)
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.General.LogLevel)}))

	// The gateway token is the one required secret.
	if !cfg.TokenResolved() {
		return fmt.Errorf("discord token missing: set DISCORD_TOKEN or discord.token in %s", cfgPath)
	}

	// Graceful shutdown on signals.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	messageBus := bus.New(cfg.General.BusBufferSize, logger)
	defer messageBus.Close()

	fetchClient := fetch.New(fetch.Config{
		Timeout:      time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
	})

	avatars, err := avatar.New(avatar.Config{
		Dir:    cfg.General.CacheDir,
		Client: fetchClient,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("avatar cache: %w", err)
	}

	discordCh := channel.NewDiscord(channel.DiscordConfig{
		Token:   cfg.Discord.Token,
		GuildID: cfg.Discord.GuildID,
		Logger:  logger,
	})

	adapters := buildAdapters(cfg, fetchClient)
	if len(adapters) == 0 {
		return fmt.Errorf("no platform adapters enabled")
	}

	reposter := repost.New(repost.Config{
		Gateway: discordCh,
		Avatars: avatars,
		Logger:  logger,
	})

	dispatcher := dispatch.New(dispatch.Config{
		Adapters: adapters,
		Reposter: reposter,
		Gateway:  discordCh,
		Logger:   logger,
	})

	go dispatcher.Run(ctx, messageBus.Subscribe())
	go avatars.RunSweeper(ctx, time.Duration(cfg.General.SweepIntervalHours)*time.Hour)

	if cfg.Metrics.Enabled {
		go serveMetrics(ctx, cfg.Metrics.Addr)
	}

	logger.Info("embedbot started", "version", version, "platforms", len(adapters))

	// Blocks until shutdown; a failed login surfaces here and is fatal.
	if err := discordCh.Start(ctx, messageBus); err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	return nil
}

// buildAdapters assembles the platform registry. Order matters: first match
// wins in the dispatcher.
func buildAdapters(cfg *config.Config, fetchClient *fetch.Client) []domain.Adapter {
	var rumble *platform.Rumble
	if cfg.Rumble.Enabled {
		rumble = platform.NewRumble(platform.RumbleConfig{
			Binary:  cfg.Rumble.YtdlpPath,
			Timeout: time.Duration(cfg.Rumble.TimeoutSeconds) * time.Second,
			Logger:  logger,
		})
	}

	var truth *platform.Truth
	if cfg.TruthSocial.Enabled {
		selectors := platform.DefaultSelectors()
		if cfg.TruthSocial.SelectorsFile != "" {
			loaded, err := platform.LoadSelectors(cfg.TruthSocial.SelectorsFile)
			if err != nil {
				logger.Warn("selector overrides not loaded, using built-ins", "file", cfg.TruthSocial.SelectorsFile, "err", err)
			} else {
				selectors = loaded
			}
		}
		truth = platform.NewTruth(platform.TruthConfig{
			Fetcher:   fetchClient,
			Selectors: selectors,
			Logger:    logger,
		})
	}

	return platform.Adapters(rumble, truth)
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Default)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server starting", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server error", "err", err)
	}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. rumble.timeoutSeconds)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. truthsocial.enabled false)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sanitized := config.Sanitize(cfg)
			data, _ := json.MarshalIndent(sanitized, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("embedbot " + version)
		},
	}
}
