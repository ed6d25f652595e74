package main

import (
	"context"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli"

	"icalfeed/internal/config"
	"icalfeed/internal/feed"
	"icalfeed/internal/ics"
	appLog "icalfeed/internal/log"
	"icalfeed/internal/store"
	"icalfeed/internal/web"
)

var serveCmd = cli.Command{
	Name:  "serve",
	Usage: "Run the poller and the HTTP API",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "listen",
			Usage: "HTTP listen address (overrides config if set)",
		},
		&cli.StringFlag{
			Name:  "url",
			Usage: "Calendar URL (overrides config if set)",
		},
	},
	Action: serve,
}

func serve(c *cli.Context) error {
	configPath := c.GlobalString("config")
	conf, err := config.Load(configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", configPath)
		return err
	}
	if v := c.String("listen"); v != "" {
		conf.Listen = v
	}
	if v := c.String("url"); v != "" {
		conf.URL = v
	}
	if !c.GlobalBool("debug") {
		appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	}

	loc, err := conf.Location()
	if err != nil {
		return err
	}
	schedule, err := feed.ParseSchedule(conf.Refresh)
	if err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.Refresh)
		return err
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"url", appLog.RedactURL(conf.URL),
		"refresh", conf.Refresh,
		"hours_spread", conf.HoursSpread,
		"timezone", loc.String(),
		"include_all_day", conf.IncludeAllDay,
		"db_path", conf.DBPath,
	)

	db, err := store.Open(conf.DBPath)
	if err != nil {
		appLog.Error("failed to open store", err, "db_path", conf.DBPath)
		return err
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := feed.NewMetrics(reg)
	if err != nil {
		return err
	}

	cache := feed.NewCache()
	fetcher := ics.NewFetcher(&http.Client{Timeout: 30 * time.Second}, db)
	poller := feed.NewPoller(cache, fetcher, ics.Source{ID: "default", URL: conf.URL}, feed.Options{
		Schedule:     schedule,
		InvalidRetry: conf.InvalidRetry,
		Filter:       feed.Filter{Spread: conf.Spread(), IncludeAllDay: conf.IncludeAllDay},
		Parser:       ics.NewParser(ics.WithLocation(loc)),
		Store:        db,
		Metrics:      metrics,
	})
	server := web.NewServer(conf, cache, poller, web.Options{ConfigPath: configPath, Gatherer: reg})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = poller.Run(ctx)
	}()

	err = server.ListenAndServe(ctx)
	stop()
	wg.Wait()
	if err != nil {
		appLog.Error("HTTP server stopped", err)
		return err
	}
	appLog.Info("icalfeed exiting")
	return nil
}
