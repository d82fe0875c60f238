// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Mokrovi/backServ/internal/config"
	"github.com/Mokrovi/backServ/internal/daemon"
	"github.com/Mokrovi/backServ/internal/health"
	xglog "github.com/Mokrovi/backServ/internal/log"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

// maskURL removes user info from a URL string for safe logging.
func maskURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	return parsedURL.String()
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		case "videos":
			os.Exit(runVideosCLI(os.Args[2:]))
		case "notifications":
			os.Exit(runNotificationsCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Configure logger with safe defaults until config is loaded
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: "backserv",
		Version: version,
	})

	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Explicit --config wins; otherwise ${BACKSERV_DATA}/config.yaml is used
	// when it exists so that `config set-debug` survives restarts.
	explicitConfigPath := strings.TrimSpace(*configPath)
	effectiveConfigPath := explicitConfigPath
	if effectiveConfigPath == "" {
		effectiveConfigPath = resolveDefaultConfigPath()
	}

	loader := config.NewLoader(effectiveConfigPath, version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: "backserv",
		Version: cfg.Version,
	})

	switch {
	case explicitConfigPath != "":
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file").
			Str("path", explicitConfigPath).
			Msg("loaded configuration from file")
	case effectiveConfigPath != "":
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file(auto)").
			Str("path", effectiveConfigPath).
			Msg("loaded configuration from file")
	default:
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "startup.check_failed").
			Msg("Startup checks failed. Please verify configuration and permissions.")
	}

	bindHost := strings.TrimSpace(config.ParseString("BACKSERV_BIND_INTERFACE", ""))
	if bindHost != "" {
		listen, err := config.BindListenAddr(cfg.API.ListenAddr, bindHost)
		if err != nil {
			logger.Fatal().
				Err(err).
				Msg("invalid BACKSERV_BIND_INTERFACE for API listen")
		}
		cfg.API.ListenAddr = listen
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.API.ListenAddr).
		Msg("starting backserv")

	logger.Info().Msgf("→ Player: %s (debug: %v)", cfg.Player.Command, cfg.Player.Debug)
	logger.Info().Msgf("→ Media roots: %s", strings.Join(cfg.Media.SearchRoots(), ", "))
	logger.Info().Msgf("→ Remote view: %s", cfg.Remote.StreamURL("<requester>"))
	if cfg.Relay.Enabled() {
		logger.Info().Msgf("→ Signal relay: %s (channel %s)", cfg.Relay.RedisAddr, cfg.Relay.Channel)
	}
	logger.Info().Msgf("→ Data dir: %s", cfg.DataDir)

	// Hot reload watches the file the daemon was started with, or the auto
	// path that `config set-debug` creates.
	reloadPath := effectiveConfigPath
	if reloadPath == "" {
		reloadPath = filepath.Join(cfg.DataDir, "config.yaml")
	}
	holder := config.NewConfigHolder(cfg, config.NewLoader(reloadPath, version), reloadPath)

	rt, err := daemon.Bootstrap(ctx, cfg, holder)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "bootstrap.failed").
			Msg("failed to wire daemon")
	}

	runErr := rt.Run(ctx)
	if err := rt.Close(); err != nil {
		logger.Warn().Err(err).Msg("resources closed with errors")
	}
	if runErr != nil {
		logger.Fatal().
			Err(runErr).
			Str("event", "manager.failed").
			Msg("daemon app failed")
	}

	logger.Info().Msg("server exiting")
}
