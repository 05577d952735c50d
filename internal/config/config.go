// Package config assembles the planner's run configuration from defaults, an
// optional config file, ACPPLAN_* environment variables and command-line
// flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gosnold/satellite-observation-tools/internal/schedule"
	"github.com/gosnold/satellite-observation-tools/internal/tle"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. ACPPLAN_SITE.
const EnvPrefix = "ACPPLAN"

// StartLayouts are the accepted forms of the local start time, tried in order.
var StartLayouts = []string{
	"2006/1/2 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Config is a validated run configuration.
type Config struct {
	Site      string
	SitesFile string

	// Start holds the site-local wall time in its fields; the Location is
	// meaningless. StartText is the value as the operator wrote it.
	Start     time.Time
	StartText string

	Catalogs  []tle.Source
	Match     tle.MatchMode
	Targets   []string
	Filters   []string
	Overheads schedule.Overheads

	PlanPath   string
	ReportPath string

	CacheDir      string
	CacheMaxFiles int
	FetchTimeout  time.Duration

	Pushgateway string
	LogLevel    slog.Level
}

// flagKeys binds each flag to its configuration key.
var flagKeys = map[string]string{
	"config":      "config",
	"site":        "site",
	"sites-file":  "sites_file",
	"start":       "start",
	"catalog":     "catalogs",
	"target":      "targets",
	"filter":      "filters",
	"exposure":    "exposure",
	"pointing":    "pointing",
	"repointing":  "repointing",
	"reading":     "reading",
	"match":       "match",
	"plan":        "plan",
	"report":      "report",
	"cache-dir":   "cache_dir",
	"pushgateway": "pushgateway",
	"log-level":   "log_level",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site", "Nerpio")
	v.SetDefault("catalogs", []string{"NORAD=3ledebless.txt", "classified=classfd.tle"})
	v.SetDefault("filters", []string{"R", "V", "B"})
	v.SetDefault("exposure", 60)
	v.SetDefault("pointing", 120)
	v.SetDefault("repointing", 60)
	v.SetDefault("reading", 60)
	v.SetDefault("match", "substring")
	v.SetDefault("plan", "auto_plan.txt")
	v.SetDefault("cache_dir", "/tmp/acpplan/tle")
	v.SetDefault("cache_max_files", 5)
	v.SetDefault("fetch_timeout", "30s")
	v.SetDefault("log_level", "info")
}

// NewFlagSet returns the command-line flags understood by Load.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "config file (TOML, YAML or JSON)")
	fs.String("site", "Nerpio", "observing site name")
	fs.String("sites-file", "", "TOML file with additional [[site]] tables")
	fs.String("start", "", `local start time, e.g. "2015/8/24 02:30:00"`)
	fs.StringArray("catalog", nil, "element set catalog as name=path-or-url, repeatable, tried in order")
	fs.StringArray("target", nil, "target name, repeatable, scheduled in order")
	fs.StringSlice("filter", []string{"R", "V", "B"}, "filters, comma separated")
	fs.Int("exposure", 60, "exposure time (s)")
	fs.Int("pointing", 120, "initial pointing overhead (s)")
	fs.Int("repointing", 60, "re-pointing overhead per exposure (s)")
	fs.Int("reading", 60, "CCD readout time (s)")
	fs.String("match", "substring", "target name matching: substring or exact")
	fs.String("plan", "auto_plan.txt", "plan output path")
	fs.String("report", "", "YAML report output path (optional)")
	fs.String("cache-dir", "/tmp/acpplan/tle", "cache directory for remote catalogs")
	fs.String("pushgateway", "", "Prometheus Pushgateway URL (optional)")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	return fs
}

// Load parses args and builds the configuration. logger receives warnings
// about lenient fallbacks. A help request returns pflag.ErrHelp.
func Load(args []string, logger *slog.Logger) (*Config, error) {
	fs := NewFlagSet("acpplan")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return FromFlags(fs, logger)
}

// FromFlags builds the configuration from an already parsed flag set.
func FromFlags(fs *pflag.FlagSet, logger *slog.Logger) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag --%s: %w", name, err)
			}
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		logger.Debug("config file loaded", "path", path)
	}

	return build(v, logger)
}

func build(v *viper.Viper, logger *slog.Logger) (*Config, error) {
	cfg := &Config{
		Site:        strings.TrimSpace(v.GetString("site")),
		SitesFile:   v.GetString("sites_file"),
		PlanPath:    v.GetString("plan"),
		ReportPath:  v.GetString("report"),
		CacheDir:    v.GetString("cache_dir"),
		Pushgateway: v.GetString("pushgateway"),
	}
	var errs []error

	if cfg.Site == "" {
		errs = append(errs, errors.New("site: must not be empty"))
	}

	cfg.StartText = strings.TrimSpace(v.GetString("start"))
	if cfg.StartText == "" {
		errs = append(errs, errors.New("start: local start time is required"))
	} else if t, err := ParseStart(cfg.StartText); err != nil {
		errs = append(errs, fmt.Errorf("start: %w", err))
	} else {
		cfg.Start = t
	}

	catalogs, err := ParseCatalogs(stringList(v, "catalogs"))
	if err != nil {
		errs = append(errs, fmt.Errorf("catalogs: %w", err))
	}
	cfg.Catalogs = catalogs

	if cfg.Match, err = tle.ParseMatchMode(v.GetString("match")); err != nil {
		errs = append(errs, fmt.Errorf("match: %w", err))
	}

	cfg.Targets = stringList(v, "targets")
	if len(cfg.Targets) == 0 {
		errs = append(errs, errors.New("targets: at least one target is required"))
	}
	cfg.Filters = stringList(v, "filters")
	if len(cfg.Filters) == 0 {
		errs = append(errs, errors.New("filters: at least one filter is required"))
	}

	overheads := map[string]*int{
		"exposure":   &cfg.Overheads.Exposure,
		"pointing":   &cfg.Overheads.Pointing,
		"repointing": &cfg.Overheads.Repointing,
		"reading":    &cfg.Overheads.Reading,
	}
	for _, key := range []string{"exposure", "pointing", "repointing", "reading"} {
		n, err := cast.ToIntE(v.Get(key))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		*overheads[key] = n
	}
	if err := cfg.Overheads.Validate(); err != nil {
		errs = append(errs, err)
	}

	if cfg.CacheMaxFiles, err = cast.ToIntE(v.Get("cache_max_files")); err != nil {
		errs = append(errs, fmt.Errorf("cache_max_files: %w", err))
	}
	if cfg.FetchTimeout, err = parseSeconds(v.Get("fetch_timeout")); err != nil {
		errs = append(errs, fmt.Errorf("fetch_timeout: %w", err))
	}
	if cfg.PlanPath == "" {
		errs = append(errs, errors.New("plan: output path must not be empty"))
	}

	cfg.LogLevel = parseLogLevel(v.GetString("log_level"), logger)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseStart parses a local start time in one of StartLayouts.
func ParseStart(s string) (time.Time, error) {
	for _, layout := range StartLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q, want e.g. %q", s, "2015/8/24 02:30:00")
}

// ParseCatalogs turns "name=source" values into sources. A value without a
// name uses the file's base name without extension.
func ParseCatalogs(values []string) ([]tle.Source, error) {
	if len(values) == 0 {
		return nil, errors.New("at least one catalog is required")
	}
	seen := make(map[string]bool, len(values))
	sources := make([]tle.Source, 0, len(values))
	for _, val := range values {
		name, loc, ok := strings.Cut(val, "=")
		if !ok {
			loc = val
			name = strings.TrimSuffix(filepath.Base(loc), filepath.Ext(loc))
		}
		name, loc = strings.TrimSpace(name), strings.TrimSpace(loc)
		if name == "" || loc == "" {
			return nil, fmt.Errorf("invalid catalog %q, want name=path-or-url", val)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate catalog name %q", name)
		}
		seen[name] = true
		sources = append(sources, tle.Source{Name: name, Location: loc})
	}
	return sources, nil
}

// stringList reads a list key. Strings from the environment are split on
// commas; satellite names contain spaces, so whitespace never separates items.
func stringList(v *viper.Viper, key string) []string {
	var items []string
	switch raw := v.Get(key).(type) {
	case nil:
		return nil
	case string:
		items = strings.Split(raw, ",")
	default:
		items = cast.ToStringSlice(raw)
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

// parseSeconds accepts a Go duration ("45s", "2m") or a bare number of seconds.
func parseSeconds(raw any) (time.Duration, error) {
	var d time.Duration
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		if n, err := strconv.Atoi(s); err == nil {
			d = time.Duration(n) * time.Second
		} else if d, err = time.ParseDuration(s); err != nil {
			return 0, err
		}
	} else {
		n, err := cast.ToIntE(raw)
		if err != nil {
			return 0, err
		}
		d = time.Duration(n) * time.Second
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %v", d)
	}
	return d, nil
}

// parseLogLevel falls back to info on unknown values.
func parseLogLevel(s string, logger *slog.Logger) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		logger.Warn("invalid log_level value, using default", "value", s, "default", "info")
		return slog.LevelInfo
	}
	return level
}
