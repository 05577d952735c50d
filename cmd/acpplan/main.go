// Command acpplan writes an ACP observing plan for a list of artificial
// satellites. Each target is pointed once and exposed through every filter,
// with positions computed at the simulated time of each exposure.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gosnold/satellite-observation-tools/internal/config"
	"github.com/gosnold/satellite-observation-tools/internal/metrics"
	"github.com/gosnold/satellite-observation-tools/internal/plan"
	"github.com/gosnold/satellite-observation-tools/internal/schedule"
	"github.com/gosnold/satellite-observation-tools/internal/site"
	"github.com/gosnold/satellite-observation-tools/internal/tle"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// Until the configured level is known, log at info.
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(args, logger)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return 2
	}
	level.Set(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := loadSite(cfg, logger)
	if err != nil {
		logger.Error("invalid site", "site", cfg.Site, "error", err)
		return 2
	}

	loader := tle.NewLoader(tle.LoaderConfig{
		Match:        cfg.Match,
		CacheDir:     cfg.CacheDir,
		MaxFiles:     cfg.CacheMaxFiles,
		FetchTimeout: cfg.FetchTimeout,
	}, logger)
	cats, err := loader.LoadAll(ctx, cfg.Catalogs)
	if err != nil {
		logger.Error("catalog loading failed", "error", err)
		return 1
	}
	catalogs := make([]schedule.Catalog, 0, len(cats))
	for _, c := range cats {
		metrics.SetCatalogEntries(c.Name(), c.Len())
		catalogs = append(catalogs, c)
	}

	w, err := plan.Create(cfg.PlanPath, plan.Header{
		Site:       s.Name,
		LocalStart: cfg.StartText,
		Exposure:   cfg.Overheads.Exposure,
	})
	if err != nil {
		logger.Error("cannot open plan", "error", err)
		return 1
	}

	clock := schedule.NewClock(cfg.Start, s.UTCOffset)
	sched := schedule.New(schedule.Config{
		Site:      s,
		Overheads: cfg.Overheads,
		Catalogs:  catalogs,
		Sink:      w,
	}, clock, logger)

	res := sched.Run(cfg.Targets, cfg.Filters)

	status := 0
	if err := w.Close(); err != nil {
		logger.Error("writing plan failed", "path", cfg.PlanPath, "error", err)
		status = 1
	} else if res.SinkErr == nil {
		logger.Info("plan written", "path", cfg.PlanPath, "entries", w.Entries())
	}
	if res.SinkErr != nil {
		status = 1
	}

	if cfg.ReportPath != "" {
		rep := plan.NewReport(s, cfg.StartText, cfg.Overheads, res)
		for _, c := range cats {
			rep.AddCatalog(c.Name(), c.Source(), c.Len(), c.LoadedAt())
		}
		if err := rep.WriteFile(cfg.ReportPath); err != nil {
			logger.Error("writing report failed", "path", cfg.ReportPath, "error", err)
			status = 1
		} else {
			logger.Info("report written", "path", cfg.ReportPath)
		}
	}

	if cfg.Pushgateway != "" {
		pushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		host, _ := os.Hostname()
		if err := metrics.Push(pushCtx, cfg.Pushgateway, host); err != nil {
			// The plan is already on disk; a missing push is not fatal.
			logger.Warn("metrics push failed", "error", err)
		}
	}

	return status
}

func loadSite(cfg *config.Config, logger *slog.Logger) (site.Site, error) {
	table := site.DefaultTable()
	if cfg.SitesFile != "" {
		if err := table.LoadFile(cfg.SitesFile); err != nil {
			return site.Site{}, fmt.Errorf("loading sites: %w", err)
		}
	}
	s, err := table.Lookup(cfg.Site)
	if err != nil {
		return site.Site{}, err
	}
	logger.Info("observation site",
		"site", s.Name,
		"latitude", s.Latitude,
		"longitude", s.Longitude,
		"elevation_m", s.Elevation,
		"utc_offset_h", s.UTCOffset,
	)
	return s, nil
}
