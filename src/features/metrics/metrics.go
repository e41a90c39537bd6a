package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/arendse/melodium/src/music"
)

// Sync run outcomes used as metric label values.
const (
	OutcomeCompleted = "completed"
	OutcomePartial   = "partial"
	OutcomeFailed    = "failed"
)

// CatalogCounts is the read slice needed for the catalog size gauges.
type CatalogCounts interface {
	GetAlbumsCount(ctx context.Context) (int, error)
	GetTracksCount(ctx context.Context) (int, error)
	GetArtistsCount(ctx context.Context) (int, error)
}

// Metrics holds the Prometheus collectors for the server. Each instance
// carries its own registry so the exposition endpoint only serves what
// is registered here.
type Metrics struct {
	registry *prometheus.Registry

	syncRuns     *prometheus.CounterVec
	trackChanges *prometheus.CounterVec
	trackErrors  prometheus.Counter
}

// New creates and registers all collectors. The catalog size gauges
// read from counts on every scrape.
func New(counts CatalogCounts) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		syncRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "melodium_sync_runs_total", Help: "Sync runs by mode and outcome"},
			[]string{"mode", "outcome"},
		),
		trackChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "melodium_sync_track_changes_total", Help: "Track reconciliation results by action"},
			[]string{"action"},
		),
		trackErrors: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "melodium_sync_track_errors_total", Help: "Tracks skipped by sync runs"},
		),
	}
	m.registry.MustRegister(m.syncRuns, m.trackChanges, m.trackErrors)
	m.registry.MustRegister(collectors.NewGoCollector())

	if counts != nil {
		m.registry.MustRegister(
			catalogGauge("melodium_catalog_albums", "Albums in the catalog", counts.GetAlbumsCount),
			catalogGauge("melodium_catalog_tracks", "Tracks in the catalog", counts.GetTracksCount),
			catalogGauge("melodium_catalog_artists", "Artists in the catalog", counts.GetArtistsCount),
		)
	}
	return m
}

// ObserveSyncRun records the outcome of one sync run.
func (m *Metrics) ObserveSyncRun(mode, outcome string, stats music.SyncStats) {
	m.syncRuns.WithLabelValues(mode, outcome).Inc()
	m.trackChanges.WithLabelValues("added").Add(float64(stats.TracksAdded))
	m.trackChanges.WithLabelValues("updated").Add(float64(stats.TracksUpdated))
	m.trackChanges.WithLabelValues("moved").Add(float64(stats.TracksMoved))
	m.trackChanges.WithLabelValues("removed").Add(float64(stats.TracksRemoved))
	m.trackChanges.WithLabelValues("unchanged").Add(float64(stats.TracksUnchanged))
	m.trackErrors.Add(float64(len(stats.TrackErrors)))
}

func catalogGauge(name, help string, count func(ctx context.Context) (int, error)) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Name: name, Help: help},
		func() float64 {
			n, err := count(context.Background())
			if err != nil {
				return 0
			}
			return float64(n)
		},
	)
}
