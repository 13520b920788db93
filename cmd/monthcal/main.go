package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"monthcal/internal/config"
	"monthcal/internal/dates"
	"monthcal/internal/ics"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
	"monthcal/internal/monthview"
	"monthcal/internal/palette"
	"monthcal/internal/refresh"
	"monthcal/internal/store"
	"monthcal/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	once       bool
}

func main() {
	appLog.Info("monthcal starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"horizon_months", conf.HorizonMonths,
		"grid_width", conf.Grid.Width,
		"grid_height", conf.Grid.Height,
		"ics_count", len(conf.ICS),
		"once", flags.once,
	)

	loc := conf.Location()
	month := dates.MonthOf(dates.FromTime(time.Now().In(loc)))

	view, err := monthview.New(store.New(), month, conf.Grid.Bounds(), conf.Grid.Metrics)
	if err != nil {
		appLog.Error("failed to create month view", err)
		os.Exit(1)
	}
	locked := monthview.NewLocked(view)

	refresher := refresh.New(ics.NewFetcher(conf.CacheDir, nil), locked, refresh.Options{
		Sources:       buildSources(conf.ICS),
		Location:      loc,
		HorizonMonths: conf.HorizonMonths,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := refresher.Run(ctx); err != nil {
		appLog.Error("initial refresh finished with errors", err)
	}
	if flags.once {
		_ = locked.Do(func(v *monthview.View) error {
			l := v.Layout()
			appLog.Info("layout computed", "month", l.Month.String(), "weeks", l.Weeks, "events", len(v.Events()))
			return nil
		})
		return
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := refresher.Schedule(ctx, c, conf.RefreshCron); err != nil {
		appLog.Error("failed to schedule refresh", err)
		os.Exit(1)
	}
	c.Start()

	srv := &http.Server{
		Addr:              conf.Listen,
		Handler:           web.NewServer(ctx, conf, locked, refresher).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTP server failed", err)
			stop()
		}
	}()

	<-ctx.Done()
	appLog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP shutdown failed", err)
	}
	<-c.Stop().Done()

	appLog.Info("monthcal exiting")
}

// buildSources turns the configured calendars into feed sources. Calendars
// without an explicit color take the next palette color.
func buildSources(cfgs []config.ICSConfig) []ics.Source {
	p := palette.New(palette.Base)
	sources := make([]ics.Source, 0, len(cfgs))
	for _, c := range cfgs {
		var color model.Color
		if c.Color != "" {
			parsed, err := palette.ParseHex(c.Color)
			if err != nil {
				appLog.Error("invalid calendar color; using palette", err, "id", c.CalendarID())
				color = p.Next()
			} else {
				color = parsed
			}
		} else {
			color = p.Next()
		}
		sources = append(sources, ics.Source{ID: c.CalendarID(), URL: c.URL, Color: color})
	}
	return sources
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/monthcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one refresh, log the computed layout and exit")

	flag.Parse()

	return cfg
}
