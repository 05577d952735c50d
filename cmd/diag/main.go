// Command diag prints where one catalog object is as seen from a site: its
// apparent place at a given instant and the windows during which it stands
// above a minimum elevation. It reads catalogs the same way acpplan does, so
// a target that acpplan skips can be checked here.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gosnold/satellite-observation-tools/internal/config"
	"github.com/gosnold/satellite-observation-tools/internal/passes"
	"github.com/gosnold/satellite-observation-tools/internal/plan"
	"github.com/gosnold/satellite-observation-tools/internal/propagation"
	"github.com/gosnold/satellite-observation-tools/internal/schedule"
	"github.com/gosnold/satellite-observation-tools/internal/site"
	"github.com/gosnold/satellite-observation-tools/internal/tle"
	"github.com/gosnold/satellite-observation-tools/internal/transform"
	"github.com/spf13/pflag"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	fs := pflag.NewFlagSet("diag", pflag.ContinueOnError)
	siteName := fs.String("site", "Nerpio", "observing site name")
	sitesFile := fs.String("sites-file", "", "TOML file with additional [[site]] tables")
	catalogs := fs.StringArray("catalog", []string{"NORAD=3ledebless.txt", "classified=classfd.tle"}, "element set catalog as name=path-or-url, repeatable")
	match := fs.String("match", "substring", "target name matching: substring or exact")
	target := fs.String("target", "", "target name")
	at := fs.String("at", "", "local time at the site (default: now)")
	hours := fs.Float64("hours", 12, "visibility search window (h)")
	minEl := fs.Float64("min-elevation", 10, "minimum elevation (deg)")
	maxPasses := fs.Int("max-passes", 5, "maximum windows to list")
	cacheDir := fs.String("cache-dir", "/tmp/acpplan/tle", "cache directory for remote catalogs")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if *target == "" {
		fmt.Fprintln(os.Stderr, "diag: --target is required")
		os.Exit(2)
	}

	table := site.DefaultTable()
	if *sitesFile != "" {
		if err := table.LoadFile(*sitesFile); err != nil {
			fmt.Println("ERROR loading sites:", err)
			os.Exit(1)
		}
	}
	s, err := table.Lookup(*siteName)
	if err != nil {
		fmt.Println("ERROR:", err)
		os.Exit(1)
	}

	when := time.Now().UTC().Truncate(time.Second)
	if *at != "" {
		local, err := config.ParseStart(*at)
		if err != nil {
			fmt.Println("ERROR parsing --at:", err)
			os.Exit(2)
		}
		when = schedule.NewClock(local, s.UTCOffset).Now()
	}

	sources, err := config.ParseCatalogs(*catalogs)
	if err != nil {
		fmt.Println("ERROR:", err)
		os.Exit(2)
	}
	mode, err := tle.ParseMatchMode(*match)
	if err != nil {
		fmt.Println("ERROR:", err)
		os.Exit(2)
	}

	ctx := context.Background()
	loader := tle.NewLoader(tle.LoaderConfig{
		Match:        mode,
		CacheDir:     *cacheDir,
		MaxFiles:     5,
		FetchTimeout: 30 * time.Second,
	}, logger)
	cats, err := loader.LoadAll(ctx, sources)
	if err != nil {
		fmt.Println("ERROR loading catalogs:", err)
		os.Exit(1)
	}

	var (
		entry tle.Entry
		from  string
	)
	for _, c := range cats {
		e, err := c.Lookup(*target)
		if err == nil {
			entry, from = e, c.Name()
			break
		}
		fmt.Printf("%s: not in %s (%d objects)\n", *target, c.Name(), c.Len())
	}
	if from == "" {
		os.Exit(1)
	}
	fmt.Printf("%s: NORAD %d from %s, epoch %s (%.1f days before)\n",
		entry.Name, entry.NORADID, from, entry.Epoch.Format(time.RFC3339), when.Sub(entry.Epoch).Hours()/24)

	prop, err := propagation.NewFromEntry(entry)
	if err != nil {
		fmt.Println("ERROR:", err)
		os.Exit(1)
	}
	teme, err := prop.Propagate(when)
	if err != nil {
		fmt.Println("ERROR:", err)
		os.Exit(1)
	}

	obs := transform.Observe(teme, s.Observer(), when)
	sub := transform.SubPoint(transform.TEMEToECEF(teme, when))
	loc := s.Location()

	fmt.Printf("\nat %s (%s local) from %s:\n", when.Format(time.RFC3339), when.In(loc).Format("2006/01/02 15:04:05"), s.Name)
	fmt.Printf("  plan line:       %s\t%s\t%s\n", plan.ObjectName(*target), plan.FormatNumber(obs.RAHours), plan.FormatNumber(obs.DecDeg))
	fmt.Printf("  apparent RA/Dec: %.6fh %+.5f°\n", obs.RAHours, obs.DecDeg)
	fmt.Printf("  az/el:           %.2f° %+.2f°  range %.0f km\n", obs.AzimuthDeg, obs.ElevationDeg, obs.RangeKm)
	fmt.Printf("  sub-point:       %+.4f° %+.4f°  alt %.0f km\n", sub.LatDeg, sub.LonDeg, sub.AltM/1000)
	if obs.ElevationDeg < 0 {
		fmt.Println("  BELOW HORIZON")
	}

	window := time.Duration(*hours * float64(time.Hour))
	res := passes.Predict(ctx, passes.Request{
		Site:         s,
		Entries:      []tle.Entry{entry},
		Start:        when,
		Window:       window,
		MinElevation: *minEl,
		MaxPasses:    *maxPasses,
	})[0]
	if res.Err != nil {
		fmt.Println("ERROR predicting passes:", res.Err)
		os.Exit(1)
	}

	fmt.Printf("\nabove %.0f° in the next %v: %d window(s)\n", *minEl, window, len(res.Passes))
	for i, p := range res.Passes {
		rise, set := p.Rise.In(loc).Format("01/02 15:04:05"), p.Set.In(loc).Format("01/02 15:04:05")
		if p.OpenStart {
			rise = "(up)"
		}
		if p.OpenEnd {
			set = "(still up)"
		}
		fmt.Printf("  %d: %s -> %s  max el %.1f° at %s az %.0f°\n",
			i+1, rise, set, p.MaxElevationDeg, p.Culmination.In(loc).Format("15:04:05"), p.CulminationAzimuthDeg)
	}
}
