package syncing

import (
	"context"
	"errors"
	"fmt"

	"github.com/arendse/melodium/src/features/config"
	"github.com/arendse/melodium/src/features/jobs"
	"github.com/arendse/melodium/src/features/metrics"
	"github.com/arendse/melodium/src/music"
)

// syncTask runs a library sync as a background job. The mode in the job
// metadata selects the pipeline: local, spotify, or both.
type syncTask struct {
	configManager *config.Manager
	catalog       Catalog
	scanner       music.DirectoryScanner
	fetcher       CatalogFetcher
	metrics       *metrics.Metrics
}

func (t *syncTask) MetadataKeys() []string {
	return []string{"mode"}
}

func (t *syncTask) Cleanup(job *jobs.Job) error {
	return nil
}

func (t *syncTask) Execute(ctx context.Context, job *jobs.Job, progressUpdater func(int, string)) (map[string]any, error) {
	mode, _ := job.Metadata["mode"].(string)
	sourceID := metadataInt64(job.Metadata["source_id"])

	var stats music.SyncStats
	var sourceErrs []error

	switch mode {
	case ModeLocal:
		progressUpdater(10, "Scanning local sources")
		localStats, err := t.syncLocal(ctx, sourceID)
		stats.Merge(localStats)
		if err != nil {
			t.observe(mode, metrics.OutcomeFailed, stats)
			return statsMetadata(stats), err
		}
	case ModeSpotify:
		source, err := t.catalog.GetSpotifySource(ctx, sourceID)
		if err != nil {
			t.observe(mode, metrics.OutcomeFailed, stats)
			return nil, err
		}
		progressUpdater(10, "Fetching Spotify catalog")
		spotifyStats, err := t.syncSpotify(ctx, source)
		stats.Merge(spotifyStats)
		if err != nil {
			t.observe(mode, metrics.OutcomeFailed, stats)
			return statsMetadata(stats), err
		}
	case ModeAll:
		progressUpdater(5, "Scanning local sources")
		localStats, err := t.syncLocal(ctx, 0)
		stats.Merge(localStats)
		if err != nil {
			t.observe(mode, metrics.OutcomeFailed, stats)
			return statsMetadata(stats), err
		}

		sources, err := t.catalog.GetSpotifySources(ctx)
		if err != nil {
			t.observe(mode, metrics.OutcomeFailed, stats)
			return statsMetadata(stats), err
		}
		for i, source := range sources {
			if !source.Enabled {
				continue
			}
			progressUpdater(40+(55*i)/max(len(sources), 1), fmt.Sprintf("Syncing Spotify source %d", source.ID))
			spotifyStats, err := t.syncSpotify(ctx, source)
			stats.Merge(spotifyStats)
			if err != nil {
				// One account failing must not stop the others.
				job.Logger.Error("Spotify source sync failed", "source", source.ID, "error", err)
				sourceErrs = append(sourceErrs, fmt.Errorf("source %d: %w", source.ID, err))
			}
		}
	default:
		return nil, fmt.Errorf("unknown sync mode %q", mode)
	}

	progressUpdater(100, "Sync finished")
	result := statsMetadata(stats)

	if len(sourceErrs) > 0 {
		t.observe(mode, metrics.OutcomeFailed, stats)
		return result, errors.Join(sourceErrs...)
	}
	if len(stats.TrackErrors) > 0 {
		for _, trackErr := range stats.TrackErrors {
			job.Logger.Warn("Track skipped", "error", trackErr)
		}
		t.observe(mode, metrics.OutcomePartial, stats)
		return result, fmt.Errorf("%s %d tracks could not be reconciled", jobs.PartialFailurePrefix, len(stats.TrackErrors))
	}
	t.observe(mode, metrics.OutcomeCompleted, stats)
	return result, nil
}

// syncLocal runs the local pipeline, for one source or for all enabled
// sources when id is zero.
func (t *syncTask) syncLocal(ctx context.Context, id int64) (music.SyncStats, error) {
	if id == 0 {
		return t.catalog.SyncLocalSources(ctx, t.scanner)
	}
	return t.catalog.SyncLocalSource(ctx, t.scanner, id)
}

// syncSpotify fetches the source's followed catalog and reconciles it.
// Refreshed credentials are carried into the reconciliation so they are
// persisted in the same transaction.
func (t *syncTask) syncSpotify(ctx context.Context, source *music.SpotifySource) (music.SyncStats, error) {
	workers := t.configManager.Get().Sync.WorkerCount()
	result, err := t.fetcher.FetchCatalog(ctx, source, workers)
	if err != nil {
		return music.SyncStats{}, err
	}
	if result.CredentialsChanged {
		source.AccessToken = result.Credentials.AccessToken
		source.RefreshToken = result.Credentials.RefreshToken
		source.ExpiryDate = result.Credentials.ExpiryDate
	}
	return t.catalog.SyncSpotifySource(ctx, source, result.CredentialsChanged, result.Artists, result.Albums)
}

func (t *syncTask) observe(mode, outcome string, stats music.SyncStats) {
	if t.metrics != nil {
		t.metrics.ObserveSyncRun(mode, outcome, stats)
	}
}

func statsMetadata(stats music.SyncStats) map[string]any {
	return map[string]any{
		"tracks_added":     stats.TracksAdded,
		"tracks_updated":   stats.TracksUpdated,
		"tracks_moved":     stats.TracksMoved,
		"tracks_removed":   stats.TracksRemoved,
		"tracks_unchanged": stats.TracksUnchanged,
		"track_errors":     len(stats.TrackErrors),
	}
}

// metadataInt64 reads a numeric metadata value whatever Go type it was
// stored as.
func metadataInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
