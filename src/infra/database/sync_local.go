package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arendse/melodium/src/music"
)

// isTrackError reports whether a reconciliation failure is scoped to one
// track. Such failures are recorded and skipped; anything else aborts the
// transaction.
func isTrackError(err error) bool {
	return errors.Is(err, music.ErrMultipleAlbumsSameName) ||
		errors.Is(err, music.ErrMultipleArtistsSameName) ||
		errors.Is(err, music.ErrHashCollision)
}

// SyncLocalSources reconciles every enabled local source against the
// catalog in a single transaction. Files are matched by path first and by
// content hash second, so moved and retagged files keep their identity.
// Files that disappeared get their file path cleared but stay in the
// catalog.
func (d *SqliteLibrary) SyncLocalSources(ctx context.Context, scanner music.DirectoryScanner) (music.SyncStats, error) {
	var stats music.SyncStats

	sources, err := d.GetLocalSources(ctx)
	if err != nil {
		return stats, err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, err
	}
	defer tx.Rollback()
	s := &syncTx{tx: tx}

	for _, source := range sources {
		if !source.Enabled {
			continue
		}
		slog.Info("Syncing local source", "id", source.ID, "directory", source.Directory)
		if err := s.syncLocalSource(ctx, scanner, source, &stats); err != nil {
			return stats, fmt.Errorf("failed to sync local source %d: %w", source.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return stats, err
	}
	return stats, nil
}

// SyncLocalSource reconciles a single local source in its own
// transaction. An explicit request syncs the source even when disabled.
func (d *SqliteLibrary) SyncLocalSource(ctx context.Context, scanner music.DirectoryScanner, id int64) (music.SyncStats, error) {
	var stats music.SyncStats

	source, err := d.GetLocalSource(ctx, id)
	if err != nil {
		return stats, err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, err
	}
	defer tx.Rollback()
	s := &syncTx{tx: tx}

	slog.Info("Syncing local source", "id", source.ID, "directory", source.Directory)
	if err := s.syncLocalSource(ctx, scanner, source, &stats); err != nil {
		return stats, fmt.Errorf("failed to sync local source %d: %w", source.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return stats, err
	}
	return stats, nil
}

func (s *syncTx) syncLocalSource(ctx context.Context, scanner music.DirectoryScanner, source *music.LocalSource, stats *music.SyncStats) error {
	results, err := scanner.Scan(ctx, source.Directory)
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	for item := range results {
		if item.Err != nil {
			if errors.Is(item.Err, music.ErrScanWalk) {
				return item.Err
			}
			slog.Warn("Skipping file", "path", item.Path, "error", item.Err)
			stats.TrackErrors = append(stats.TrackErrors, item.Err)
			continue
		}
		seen[item.Track.FilePath] = true

		if err := s.syncScannedTrack(ctx, source.ID, item.Track, stats); err != nil {
			if isTrackError(err) {
				slog.Warn("Skipping track", "path", item.Path, "error", err)
				stats.TrackErrors = append(stats.TrackErrors, err)
				continue
			}
			return err
		}
	}

	return s.removeMissingTracks(ctx, source.ID, seen, stats)
}

// syncScannedTrack folds one scanned file into the catalog. Album and
// track artist sets are reconciled on every scan, so an artist-only
// retag lands even when nothing else changed.
func (s *syncTx) syncScannedTrack(ctx context.Context, sourceID int64, scanned *music.ScannedTrack, stats *music.SyncStats) error {
	albumID, err := s.selectOrInsertAlbum(ctx, scanned.Album)
	if err != nil {
		return err
	}
	trackArtistIDs, err := s.selectOrInsertArtists(ctx, scanned.TrackArtists)
	if err != nil {
		return err
	}
	albumArtistIDs, err := s.selectOrInsertArtists(ctx, scanned.AlbumArtists)
	if err != nil {
		return err
	}
	if err := s.syncAlbumArtists(ctx, albumID, albumArtistIDs); err != nil {
		return err
	}

	desired := &music.Track{
		AlbumID:     albumID,
		DiscNumber:  scanned.DiscNumber,
		DiscTotal:   scanned.DiscTotal,
		TrackNumber: scanned.TrackNumber,
		TrackTotal:  scanned.TrackTotal,
		Title:       music.StringPtr(scanned.Title),
	}

	var track music.Track
	var disc, discTotal, trackNumber, trackTotal sql.NullInt64
	var dbTitle sql.NullString
	var hash int64
	err = s.tx.QueryRowContext(ctx, `
		SELECT t.id, t.album_id, t.disc_number, t.disc_total, t.track_number, t.track_total, t.title, lt.hash
		FROM local_tracks lt
		JOIN tracks t ON t.id = lt.track_id
		WHERE lt.local_source_id = ? AND lt.file_path = ?
	`, sourceID, scanned.FilePath).Scan(&track.ID, &track.AlbumID, &disc, &discTotal, &trackNumber, &trackTotal, &dbTitle, &hash)

	var trackID int64
	switch {
	case err == nil:
		track.DiscNumber = intPtrFromNull(disc)
		track.DiscTotal = intPtrFromNull(discTotal)
		track.TrackNumber = intPtrFromNull(trackNumber)
		track.TrackTotal = intPtrFromNull(trackTotal)
		track.Title = stringPtrFromNull(dbTitle)

		hashChanged := uint32(hash) != scanned.Hash
		metadataChanged := !track.MetadataMatches(desired)

		switch {
		case hashChanged && metadataChanged:
			// Different audio and different tags at the same path: the
			// file was replaced. Detach the old track and add a new one.
			if _, err := s.tx.ExecContext(ctx,
				`UPDATE local_tracks SET file_path = NULL WHERE track_id = ? AND local_source_id = ?`,
				track.ID, sourceID); err != nil {
				return err
			}
			trackID, err = s.addLocalTrack(ctx, sourceID, desired, scanned)
			if err != nil {
				return err
			}
			stats.TracksAdded++
		case hashChanged:
			if _, err := s.tx.ExecContext(ctx,
				`UPDATE local_tracks SET hash = ? WHERE track_id = ? AND local_source_id = ?`,
				int64(scanned.Hash), track.ID, sourceID); err != nil {
				return err
			}
			trackID = track.ID
			stats.TracksUpdated++
		case metadataChanged:
			track.SetMetadata(desired)
			if err := s.updateTrack(ctx, &track); err != nil {
				return err
			}
			trackID = track.ID
			stats.TracksUpdated++
		default:
			trackID = track.ID
			stats.TracksUnchanged++
		}

	case err == sql.ErrNoRows:
		// No file at this path yet. The hash decides whether this is new
		// content or a moved file.
		trackIDs, err := s.trackIDsByHash(ctx, sourceID, scanned.Hash)
		if err != nil {
			return err
		}
		switch len(trackIDs) {
		case 0:
			trackID, err = s.addLocalTrack(ctx, sourceID, desired, scanned)
			if err != nil {
				return err
			}
			stats.TracksAdded++
		case 1:
			trackID = trackIDs[0]
			if err := s.moveLocalTrack(ctx, sourceID, trackID, desired, scanned); err != nil {
				return err
			}
			stats.TracksMoved++
		default:
			return fmt.Errorf("%w: %s", music.ErrHashCollision, scanned.FilePath)
		}

	default:
		return err
	}

	if err := s.syncTrackArtists(ctx, trackID, trackArtistIDs); err != nil {
		return err
	}
	return s.ensureLocalMembership(ctx, sourceID, albumID, trackArtistIDs, albumArtistIDs)
}

func (s *syncTx) selectOrInsertArtists(ctx context.Context, names []string) ([]int64, error) {
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		id, err := s.selectOrInsertArtist(ctx, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *syncTx) trackIDsByHash(ctx context.Context, sourceID int64, hash uint32) ([]int64, error) {
	rows, err := s.tx.QueryContext(ctx,
		`SELECT track_id FROM local_tracks WHERE local_source_id = ? AND hash = ? ORDER BY track_id`,
		sourceID, int64(hash))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// addLocalTrack inserts a new canonical track plus its local mapping row.
func (s *syncTx) addLocalTrack(ctx context.Context, sourceID int64, desired *music.Track, scanned *music.ScannedTrack) (int64, error) {
	trackID, err := s.insertTrack(ctx, desired)
	if err != nil {
		return 0, err
	}
	if _, err := s.tx.ExecContext(ctx,
		`INSERT INTO local_tracks (track_id, local_source_id, file_path, hash) VALUES (?, ?, ?, ?)`,
		trackID, sourceID, scanned.FilePath, int64(scanned.Hash)); err != nil {
		return 0, err
	}
	return trackID, nil
}

// moveLocalTrack points an existing track at the file's new path and
// refreshes its metadata.
func (s *syncTx) moveLocalTrack(ctx context.Context, sourceID, trackID int64, desired *music.Track, scanned *music.ScannedTrack) error {
	if _, err := s.tx.ExecContext(ctx,
		`UPDATE local_tracks SET file_path = ? WHERE track_id = ? AND local_source_id = ?`,
		scanned.FilePath, trackID, sourceID); err != nil {
		return err
	}
	track := music.Track{ID: trackID}
	track.SetMetadata(desired)
	return s.updateTrack(ctx, &track)
}

func (s *syncTx) ensureLocalMembership(ctx context.Context, sourceID, albumID int64, trackArtistIDs, albumArtistIDs []int64) error {
	if _, err := s.tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO local_albums (album_id, local_source_id) VALUES (?, ?)`,
		albumID, sourceID); err != nil {
		return err
	}
	for _, artistID := range append(append([]int64{}, trackArtistIDs...), albumArtistIDs...) {
		if _, err := s.tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO local_artists (artist_id, local_source_id) VALUES (?, ?)`,
			artistID, sourceID); err != nil {
			return err
		}
	}
	return nil
}

// removeMissingTracks clears the file path of every track of the source
// whose file was not seen by the scan.
func (s *syncTx) removeMissingTracks(ctx context.Context, sourceID int64, seen map[string]bool, stats *music.SyncStats) error {
	rows, err := s.tx.QueryContext(ctx,
		`SELECT track_id, file_path FROM local_tracks WHERE local_source_id = ? AND file_path IS NOT NULL`,
		sourceID)
	if err != nil {
		return err
	}
	var missing []int64
	for rows.Next() {
		var trackID int64
		var path string
		if err := rows.Scan(&trackID, &path); err != nil {
			rows.Close()
			return err
		}
		if !seen[path] {
			missing = append(missing, trackID)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, trackID := range missing {
		if _, err := s.tx.ExecContext(ctx,
			`UPDATE local_tracks SET file_path = NULL WHERE track_id = ? AND local_source_id = ?`,
			trackID, sourceID); err != nil {
			return err
		}
		stats.TracksRemoved++
	}
	return nil
}
