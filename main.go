package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/scipunch/xmonitor/agent"
	"github.com/scipunch/xmonitor/config"
	"github.com/scipunch/xmonitor/fetcher"
	"github.com/scipunch/xmonitor/filter"
	"github.com/scipunch/xmonitor/metrics"
	"github.com/scipunch/xmonitor/monitor"
	"github.com/scipunch/xmonitor/notifier"
	"github.com/scipunch/xmonitor/state"
)

func main() {
	if os.Getenv("DEBUG") != "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	var (
		cfgPath     string
		once        bool
		force       bool
		clean       bool
		interval    int
		metricsAddr string
	)
	flag.StringVar(&cfgPath, "config", config.DefaultPath(), "path to a TOML config")
	flag.BoolVar(&once, "once", false, "run a single scan cycle and exit")
	flag.BoolVar(&force, "force", false, "summarize the latest posts even if they were already processed")
	flag.BoolVar(&clean, "clean", false, "remove all stored cursors and exit")
	flag.IntVar(&interval, "interval", 0, "seconds between scan cycles (overrides config and SCAN_INTERVAL)")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	flag.Parse()

	// Read config and create if default is missing
	conf, err := config.Read(cfgPath)
	if errors.Is(err, os.ErrNotExist) && cfgPath == config.DefaultPath() {
		if err := config.Write(cfgPath, conf); err != nil {
			log.Fatalf("failed to write default config with %s", err)
		}
	} else if err != nil {
		log.Fatalf("failed to read config with %s", err)
	}

	config.LoadEnv()
	if err := conf.ApplyEnv(); err != nil {
		log.Fatalf("invalid environment: %s", err)
	}
	if interval > 0 {
		conf.Interval = interval
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := state.Open(ctx, conf.DatabasePath)
	if err != nil {
		log.Fatalf("failed to initialize state database with %v", err)
	}
	defer store.Close()

	if clean {
		if err := store.Clear(ctx); err != nil {
			log.Fatalf("failed to clear cursors: %v", err)
		}
		slog.Info("cursors cleared successfully")
		return
	}

	if err := conf.Validate(); err != nil {
		log.Fatalf("invalid configuration:\n%s", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		slog.Warn("failed to get state stats", "error", err)
	} else {
		slog.Info("state initialized", "accounts", stats.Accounts, "last_update", stats.LastUpdate)
	}
	if cursors, err := store.Cursors(ctx); err != nil {
		slog.Warn("failed to list cursors", "error", err)
	} else {
		for _, c := range cursors {
			slog.Debug("stored cursor", "account", c.Account, "last_id", c.LastID, "updated_at", c.UpdatedAt)
		}
	}

	// Telegram user credentials are only needed to read channels
	var tgCreds config.TelegramCredentials
	for _, a := range conf.EnabledAccounts() {
		if a.T == config.TelegramChannel {
			tgCreds, err = config.LoadOrPromptTelegramCredentials(config.CredentialsPath(cfgPath))
			if err != nil {
				log.Fatalf("failed to load telegram credentials: %s", err)
			}
			break
		}
	}

	filterPipeline, err := filter.NewFilterPipeline(conf.Filters)
	if err != nil {
		log.Fatalf("failed to initialize filters: %s", err)
	}
	if len(conf.Filters) > 0 {
		slog.Info("initialized filters", "count", len(conf.Filters))
	}

	a, err := agent.InitAgent(ctx, conf)
	if err != nil {
		log.Fatalf("failed to initialize agent: %s", err)
	}
	slog.Info("initialized agent", "provider", conf.Provider, "model", conf.Model)

	fetchers, err := fetcher.GetFetchers(conf, path.Dir(cfgPath), tgCreds)
	if err != nil {
		log.Fatalf("failed to initialize fetchers with %s", err)
	}

	collector := metrics.New()
	if metricsAddr != "" {
		go func() {
			if err := collector.Serve(ctx, metricsAddr); err != nil {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
	}

	n, err := notifier.NewBotAPI(conf.BotToken, conf.ChatID, "", nil)
	if err != nil {
		log.Fatalf("failed to initialize notifier: %s", err)
	}

	mon, err := monitor.New(monitor.Options{
		Accounts: conf.EnabledAccounts(),
		Fetchers: fetchers,
		Filters:  filterPipeline,
		Agent:    a,
		Notifier: n,
		Store:    store,
		Recorder: collector,
		MaxPosts: conf.MaxPosts,
		Force:    force,
	})
	if err != nil {
		log.Fatalf("failed to initialize monitor: %s", err)
	}

	if once {
		report := mon.RunCycle(ctx)
		if err := report.Err(); err != nil {
			slog.Error("some accounts failed", "errors", err)
		}
		return
	}

	err = mon.Run(ctx, time.Duration(conf.Interval)*time.Second)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("monitor stopped: %s", err)
	}
	slog.Info("interrupted by user, exiting gracefully")
}
