// SPDX-License-Identifier: MIT

// Command daemon runs one gate's control plane: the MQTT reader gateway,
// the decision engine, the TTL janitor, and the HTTP control-plane API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nordlock/sentrygate/internal/api"
	"github.com/nordlock/sentrygate/internal/api/middleware"
	"github.com/nordlock/sentrygate/internal/audit"
	"github.com/nordlock/sentrygate/internal/config"
	"github.com/nordlock/sentrygate/internal/control"
	"github.com/nordlock/sentrygate/internal/daemon"
	"github.com/nordlock/sentrygate/internal/decision"
	"github.com/nordlock/sentrygate/internal/eventbus"
	"github.com/nordlock/sentrygate/internal/health"
	"github.com/nordlock/sentrygate/internal/janitor"
	gatelog "github.com/nordlock/sentrygate/internal/log"
	"github.com/nordlock/sentrygate/internal/reader"
	"github.com/nordlock/sentrygate/internal/store"
	"github.com/nordlock/sentrygate/internal/tls"
)

var (
	version = "v0.1.0"
	commit  = "none"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (JSON)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("sentrygate %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	// Bootstrap logger with safe defaults until config is loaded.
	gatelog.Configure(gatelog.Config{Level: "info", Service: "sentrygate", Version: version})
	logger := gatelog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	effectiveConfigPath := strings.TrimSpace(*configPath)
	loader := config.NewLoader(effectiveConfigPath)
	cfg, err := loader.LoadValidated()
	if err != nil {
		logger.Fatal().Err(err).Str("event", "config.load_failed").Msg("failed to load configuration")
	}

	gatelog.Configure(gatelog.Config{Level: cfg.LogLevel, Service: "sentrygate", Version: version})
	logger = gatelog.WithComponent("daemon")

	if effectiveConfigPath != "" {
		logger.Info().Str("event", "config.loaded").Str("source", "file").Str("path", effectiveConfigPath).Msg("loaded configuration")
	} else {
		logger.Info().Str("event", "config.loaded").Str("source", "env+defaults").Msg("loaded configuration")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		logger.Fatal().Err(err).Str("event", "startup.datadir_failed").Str("data_dir", cfg.DataDir).Msg("failed to create data directory")
	}

	if cfg.TLSAutoGenerate {
		certPath, keyPath, err := tls.EnsureCertificates(tls.Config{
			CertPath: cfg.TLSCertFile,
			KeyPath:  cfg.TLSKeyFile,
			Logger:   logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Str("event", "tls.ensure_failed").Msg("failed to ensure TLS certificates")
		}
		cfg.TLSCertFile, cfg.TLSKeyFile = certPath, keyPath
	}

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Fatal().Err(err).Str("event", "startup.checks_failed").Msg("pre-flight startup checks failed")
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("gate_client_id", cfg.MQTT.ClientID).
		Str("addr", cfg.APIListenAddr).
		Msg("starting sentrygate")
	if cfg.Auth.Enabled {
		logger.Info().Msg("control-plane auth: enabled")
	} else {
		logger.Warn().Str("security", "weak").Msg("control-plane auth: disabled, set auth.enabled + auth.token to secure the API")
	}

	cfgHolder := config.NewHolder(cfg, loader, effectiveConfigPath)
	if err := cfgHolder.StartWatcher(ctx); err != nil {
		logger.Warn().Err(err).Msg("config file watcher failed to start, hot reload via file edits disabled")
	}

	rawStore, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "store.open_failed").Str("path", cfg.DBPath).Msg("failed to open tag-state store")
	}
	tagStore := store.NewCachedStore(rawStore, lookupCache(cfg, logger))

	alarmDBPath := filepath.Join(cfg.DataDir, "alarms.db")
	alarmLog, err := audit.OpenAlarmLog(alarmDBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "audit.open_failed").Str("path", alarmDBPath).Msg("failed to open alarm log")
	}

	auditLogger := audit.NewLogger()
	bus := eventbus.New()

	engine := decision.New(decisionConfig(cfg), tagStore, alarmLog)

	gw := reader.New(cfg.MQTT, cfg.Gate, nil)
	gw.OnDetection(detectionHandler(ctx, engine, bus, gw, cfgHolder))
	gw.OnStatus(statusHandler(bus))
	gw.OnResponse(responseHandler(bus))

	watchConfigReloads(ctx, cfgHolder, engine)

	if err := gw.Start(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial MQTT connect failed, gateway will keep retrying in the background")
	}

	jan := janitor.New(tagStore, engine, janitorInterval(cfgHolder))
	janCtx, stopJanitor := context.WithCancel(ctx)
	go jan.Run(janCtx)

	statusCtx, stopStatus := context.WithCancel(ctx)
	go eventbus.RunStatusBroadcaster(statusCtx, bus, statusProvider(gw, tagStore))

	ctrl := control.New(tagStore, gw, cfgHolder)

	trustedIPs, err := middleware.ParseCIDRs(nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse trusted proxy CIDRs")
	}

	healthMgr := buildHealthManager(version, tagStore, gw, jan)

	deps := api.Deps{
		Control:    ctrl,
		CfgHolder:  cfgHolder,
		Store:      tagStore,
		AlarmLog:   alarmLog,
		Bus:        bus,
		Gateway:    gw,
		Janitor:    jan,
		Audit:      auditLogger,
		Health:     healthMgr,
		Version:    version,
		StartedAt:  time.Now(),
		TrustedIPs: trustedIPs,
	}

	handler := api.NewRouter(deps)

	mgrDeps := daemon.Deps{
		Logger:         logger,
		APIHandler:     handler,
		APIListenAddr:  cfg.APIListenAddr,
		MetricsHandler: promhttp.Handler(),
		MetricsAddr:    cfg.MetricsAddr,
		TLSCertFile:    cfg.TLSCertFile,
		TLSKeyFile:     cfg.TLSKeyFile,
	}

	mgr, err := daemon.NewManager(mgrDeps)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "manager.creation_failed").Msg("failed to create daemon manager")
	}

	mgr.RegisterShutdownHook("config-watcher", func(_ context.Context) error {
		cfgHolder.Stop()
		return nil
	})
	mgr.RegisterShutdownHook("status-broadcaster", func(_ context.Context) error {
		stopStatus()
		return nil
	})
	mgr.RegisterShutdownHook("janitor", func(_ context.Context) error {
		stopJanitor()
		return nil
	})
	mgr.RegisterShutdownHook("reader-gateway", func(_ context.Context) error {
		gw.Stop()
		return nil
	})
	mgr.RegisterShutdownHook("alarm-log", func(_ context.Context) error {
		return alarmLog.Close()
	})
	mgr.RegisterShutdownHook("tag-store", func(_ context.Context) error {
		return tagStore.Close()
	})

	if err := mgr.Start(ctx); err != nil {
		logger.Fatal().Err(err).Str("event", "manager.failed").Msg("daemon manager failed")
	}

	logger.Info().Msg("server exiting")
}

func decisionConfig(cfg config.AppConfig) decision.Config {
	return decision.Config{
		PassWhenInCart: cfg.Decision.PassWhenInCart,
		DebounceMS:     cfg.Decision.DebounceMS,
		AlarmCooldown:  cfg.Decision.AlarmCooldownMS,
	}
}
