package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"crewcal/internal/calendar"
	"crewcal/internal/config"
	"crewcal/internal/dates"
	"crewcal/internal/i18n"
	"crewcal/internal/ics"
	appLog "crewcal/internal/log"
	"crewcal/internal/refresh"
	"crewcal/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	locale     string
	view       string
	once       bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.locale != "" {
		conf.Locale = flags.locale
	}
	if flags.view != "" {
		conf.DefaultView = flags.view
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	loc, err := conf.Location()
	if err != nil {
		appLog.Error("invalid timezone", err)
		os.Exit(1)
	}
	clock := dates.SystemClock(loc)

	appLog.Info("crewcal starting",
		"listen", conf.Listen,
		"timezone", loc.String(),
		"locale", conf.Locale,
		"feeds", len(conf.Feeds),
		"refresh", conf.RefreshCron,
		"once", flags.once,
	)

	refresher := refresh.New(conf, ics.NewFetcher(conf.CacheDir, nil), clock)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if flags.once {
		if err := refresher.Refresh(ctx); err != nil {
			appLog.Error("refresh had failures", err)
		}
		mode, err := calendar.ParseMode(conf.DefaultView)
		if err != nil {
			appLog.Error("invalid view", err)
			os.Exit(1)
		}
		nav := calendar.NewNavigator(calendar.Options{Mode: mode, Clock: clock})
		printGrid(os.Stdout, nav, refresher.Events(), conf.Locale)
		return
	}

	if err := refresh.ValidateSchedule(conf.RefreshCron); err != nil {
		appLog.Error("invalid refresh schedule", err)
		os.Exit(1)
	}

	runErr := make(chan error, 1)
	go func() {
		err := refresher.Run(ctx)
		if err != nil {
			appLog.Error("refresh scheduler failed", err)
			cancel()
		}
		runErr <- err
	}()

	srv := web.NewServer(conf, refresher, i18n.Default(), clock)
	if err := srv.Serve(ctx); err != nil {
		appLog.Error("http server failed", err)
		os.Exit(1)
	}
	if err := <-runErr; err != nil {
		os.Exit(1)
	}
	appLog.Info("crewcal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/crewcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.locale, "locale", "", "Display locale, e.g. en or es (overrides config if set)")
	flag.StringVar(&cfg.view, "view", "", "View printed by -once: week or month")
	flag.BoolVar(&cfg.once, "once", false, "Refresh feeds once, print the calendar and exit")

	flag.Parse()

	return cfg
}
