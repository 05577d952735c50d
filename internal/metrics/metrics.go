// Package metrics records what a planning run did. The planner is a batch job,
// so metrics are pushed to a Pushgateway at the end of the run instead of
// being scraped.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// JobName is the Pushgateway job label for planner runs.
const JobName = "acpplan"

var (
	entriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acpplan_entries_total",
			Help: "Total number of schedule entries emitted.",
		},
		[]string{"filter"},
	)

	catalogMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acpplan_catalog_misses_total",
			Help: "Total number of target lookups that found nothing in a catalog.",
		},
		[]string{"catalog"},
	)

	targetFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acpplan_target_failures_total",
			Help: "Total number of targets abandoned, by failure kind.",
		},
		[]string{"kind"},
	)

	catalogEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "acpplan_catalog_entries",
			Help: "Number of element sets loaded per catalog.",
		},
		[]string{"catalog"},
	)

	computeDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "acpplan_position_compute_duration_seconds",
			Help:    "Wall time to propagate and reduce one apparent position.",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		},
	)

	scheduleEndTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "acpplan_schedule_end_timestamp_seconds",
			Help: "Simulated UTC time at which the last scheduled observation finishes.",
		},
	)

	scheduleSpanSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "acpplan_schedule_span_seconds",
			Help: "Simulated time covered by the plan, from start to end.",
		},
	)
)

func init() {
	prometheus.MustRegister(entriesTotal)
	prometheus.MustRegister(catalogMissesTotal)
	prometheus.MustRegister(targetFailuresTotal)
	prometheus.MustRegister(catalogEntries)
	prometheus.MustRegister(computeDurationSeconds)
	prometheus.MustRegister(scheduleEndTimestamp)
	prometheus.MustRegister(scheduleSpanSeconds)
}

// RecordEntry counts one emitted schedule entry.
func RecordEntry(filter string) {
	entriesTotal.WithLabelValues(filter).Inc()
}

// RecordCatalogMiss counts one failed lookup in a catalog.
func RecordCatalogMiss(catalog string) {
	catalogMissesTotal.WithLabelValues(catalog).Inc()
}

// RecordTargetFailure counts one abandoned target.
func RecordTargetFailure(kind string) {
	targetFailuresTotal.WithLabelValues(kind).Inc()
}

// SetCatalogEntries records the size of a loaded catalog.
func SetCatalogEntries(catalog string, n int) {
	catalogEntries.WithLabelValues(catalog).Set(float64(n))
}

// ObserveCompute records the wall time of one position computation.
func ObserveCompute(d time.Duration) {
	computeDurationSeconds.Observe(d.Seconds())
}

// SetScheduleWindow records the simulated start and end of the plan.
func SetScheduleWindow(start, end time.Time) {
	scheduleEndTimestamp.Set(float64(end.Unix()))
	scheduleSpanSeconds.Set(end.Sub(start).Seconds())
}

// Push sends all registered metrics to the Pushgateway at url, replacing the
// previous push for the same job and instance.
func Push(ctx context.Context, url, instance string) error {
	p := push.New(url, JobName).Gatherer(prometheus.DefaultGatherer)
	if instance != "" {
		p = p.Grouping("instance", instance)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	return nil
}
