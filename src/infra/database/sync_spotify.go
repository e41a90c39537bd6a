package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/arendse/melodium/src/music"
)

// syncedIDs accumulates the canonical ids the source's latest fetch
// contained. Association rows outside these sets are reclaimed afterwards.
type syncedIDs struct {
	albums  map[int64]bool
	tracks  map[int64]bool
	artists map[int64]bool
}

func newSyncedIDs() *syncedIDs {
	return &syncedIDs{
		albums:  make(map[int64]bool),
		tracks:  make(map[int64]bool),
		artists: make(map[int64]bool),
	}
}

// SyncSpotifySource reconciles one spotify source against a fetched
// catalog in a single transaction. When the fetch refreshed the source's
// credentials they are persisted in the same transaction. Entities the
// fetch no longer contains lose their association rows; mappings and
// canonical rows survive.
func (d *SqliteLibrary) SyncSpotifySource(ctx context.Context, source *music.SpotifySource, credentialsChanged bool, artists []music.FetchedArtist, albums []music.FetchedAlbum) (music.SyncStats, error) {
	var stats music.SyncStats

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, err
	}
	defer tx.Rollback()
	s := &syncTx{tx: tx}

	if credentialsChanged {
		if _, err := tx.ExecContext(ctx,
			`UPDATE spotify_sources SET refresh_token = ?, access_token = ?, expiry_date = ? WHERE id = ?`,
			source.RefreshToken, source.AccessToken, source.ExpiryDate.Format(time.RFC3339), source.ID); err != nil {
			return stats, fmt.Errorf("failed to persist refreshed credentials: %w", err)
		}
	}

	synced := newSyncedIDs()
	for _, artist := range artists {
		if _, err := s.syncSpotifyArtist(ctx, source.ID, artist, synced); err != nil {
			return stats, fmt.Errorf("failed to sync artist %s: %w", artist.SpotifyID, err)
		}
	}
	for _, album := range albums {
		if err := s.syncSpotifyAlbum(ctx, source.ID, album, synced, &stats); err != nil {
			return stats, fmt.Errorf("failed to sync album %s: %w", album.SpotifyID, err)
		}
	}

	if err := s.deleteStaleAssociations(ctx, source.ID, synced); err != nil {
		return stats, err
	}

	if err := tx.Commit(); err != nil {
		return stats, err
	}
	return stats, nil
}

// syncSpotifyArtist resolves a fetched artist to a canonical one: by
// mapping first, then by name among unmapped rows, inserting as a last
// resort.
func (s *syncTx) syncSpotifyArtist(ctx context.Context, sourceID int64, artist music.FetchedArtist, synced *syncedIDs) (int64, error) {
	var artistID int64
	err := s.tx.QueryRowContext(ctx,
		`SELECT artist_id FROM spotify_artists WHERE spotify_id = ?`, artist.SpotifyID).Scan(&artistID)
	switch {
	case err == nil:
		if _, err := s.tx.ExecContext(ctx,
			`UPDATE artists SET name = ? WHERE id = ? AND name <> ?`,
			artist.Name, artistID, artist.Name); err != nil {
			return 0, err
		}
	case err == sql.ErrNoRows:
		artistID, err = s.resolveUnmappedArtist(ctx, artist.Name)
		if err != nil {
			return 0, err
		}
		if _, err := s.tx.ExecContext(ctx,
			`INSERT INTO spotify_artists (artist_id, spotify_id) VALUES (?, ?)`,
			artistID, artist.SpotifyID); err != nil {
			return 0, err
		}
	default:
		return 0, err
	}

	if _, err := s.tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO spotify_artist_sources (artist_id, spotify_source_id) VALUES (?, ?)`,
		artistID, sourceID); err != nil {
		return 0, err
	}
	synced.artists[artistID] = true
	return artistID, nil
}

// resolveUnmappedArtist picks the first same-name artist without a spotify
// mapping, or inserts a new one when they are all taken.
func (s *syncTx) resolveUnmappedArtist(ctx context.Context, name string) (int64, error) {
	ids, err := s.idsByName(ctx, "artists", name)
	if err != nil {
		return 0, err
	}
	if len(ids) > 1 {
		slog.Warn("Multiple artists with the same name, linking the first unmapped one", "name", name)
	}

	var artistID int64
	err = s.tx.QueryRowContext(ctx, `
		SELECT a.id FROM artists a
		LEFT JOIN spotify_artists sa ON sa.artist_id = a.id
		WHERE a.name = ? AND sa.artist_id IS NULL
		ORDER BY a.id LIMIT 1
	`, name).Scan(&artistID)
	if err == sql.ErrNoRows {
		return s.insertArtist(ctx, name)
	}
	if err != nil {
		return 0, err
	}
	return artistID, nil
}

func (s *syncTx) syncSpotifyAlbum(ctx context.Context, sourceID int64, album music.FetchedAlbum, synced *syncedIDs, stats *music.SyncStats) error {
	var albumID int64
	err := s.tx.QueryRowContext(ctx,
		`SELECT album_id FROM spotify_albums WHERE spotify_id = ?`, album.SpotifyID).Scan(&albumID)
	switch {
	case err == nil:
		if _, err := s.tx.ExecContext(ctx,
			`UPDATE albums SET name = ? WHERE id = ? AND name <> ?`,
			album.Name, albumID, album.Name); err != nil {
			return err
		}
	case err == sql.ErrNoRows:
		albumID, err = s.resolveUnmappedAlbum(ctx, album.Name)
		if err != nil {
			return err
		}
		if _, err := s.tx.ExecContext(ctx,
			`INSERT INTO spotify_albums (album_id, spotify_id) VALUES (?, ?)`,
			albumID, album.SpotifyID); err != nil {
			return err
		}
	default:
		return err
	}

	albumArtistIDs := make([]int64, 0, len(album.Artists))
	for _, artist := range album.Artists {
		artistID, err := s.syncSpotifyArtist(ctx, sourceID, artist, synced)
		if err != nil {
			return err
		}
		albumArtistIDs = append(albumArtistIDs, artistID)
	}
	if err := s.syncAlbumArtists(ctx, albumID, albumArtistIDs); err != nil {
		return err
	}

	if _, err := s.tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO spotify_album_sources (album_id, spotify_source_id) VALUES (?, ?)`,
		albumID, sourceID); err != nil {
		return err
	}
	synced.albums[albumID] = true

	for _, track := range album.Tracks {
		if err := s.syncSpotifyTrack(ctx, sourceID, albumID, track, synced, stats); err != nil {
			return fmt.Errorf("failed to sync track %s: %w", track.SpotifyID, err)
		}
	}
	return nil
}

// resolveUnmappedAlbum picks the first same-name album without a spotify
// mapping, or inserts a new one when they are all taken.
func (s *syncTx) resolveUnmappedAlbum(ctx context.Context, name string) (int64, error) {
	ids, err := s.idsByName(ctx, "albums", name)
	if err != nil {
		return 0, err
	}
	if len(ids) > 1 {
		slog.Warn("Multiple albums with the same name, linking the first unmapped one", "name", name)
	}

	var albumID int64
	err = s.tx.QueryRowContext(ctx, `
		SELECT a.id FROM albums a
		LEFT JOIN spotify_albums sa ON sa.album_id = a.id
		WHERE a.name = ? AND sa.album_id IS NULL
		ORDER BY a.id LIMIT 1
	`, name).Scan(&albumID)
	if err == sql.ErrNoRows {
		return s.insertAlbum(ctx, name)
	}
	if err != nil {
		return 0, err
	}
	return albumID, nil
}

func (s *syncTx) syncSpotifyTrack(ctx context.Context, sourceID, albumID int64, track music.FetchedTrack, synced *syncedIDs, stats *music.SyncStats) error {
	desired := &music.Track{
		AlbumID:     albumID,
		DiscNumber:  music.IntPtr(track.DiscNumber),
		TrackNumber: music.IntPtr(track.TrackNumber),
		Title:       music.StringPtr(track.Title),
	}

	var trackID int64
	err := s.tx.QueryRowContext(ctx,
		`SELECT track_id FROM spotify_tracks WHERE spotify_id = ?`, track.SpotifyID).Scan(&trackID)
	switch {
	case err == nil:
		changed, err := s.updateTrackIfChanged(ctx, trackID, desired)
		if err != nil {
			return err
		}
		if changed {
			stats.TracksUpdated++
		} else {
			stats.TracksUnchanged++
		}
	case err == sql.ErrNoRows:
		trackID, err = s.resolveUnmappedTrack(ctx, albumID, track.Title, track.DiscNumber, track.TrackNumber)
		if err != nil {
			return err
		}
		if trackID == 0 {
			trackID, err = s.insertTrack(ctx, desired)
			if err != nil {
				return err
			}
		} else if _, err := s.updateTrackIfChanged(ctx, trackID, desired); err != nil {
			return err
		}
		if _, err := s.tx.ExecContext(ctx,
			`INSERT INTO spotify_tracks (track_id, spotify_id) VALUES (?, ?)`,
			trackID, track.SpotifyID); err != nil {
			return err
		}
		stats.TracksAdded++
	default:
		return err
	}

	trackArtistIDs := make([]int64, 0, len(track.Artists))
	for _, artist := range track.Artists {
		artistID, err := s.syncSpotifyArtist(ctx, sourceID, artist, synced)
		if err != nil {
			return err
		}
		trackArtistIDs = append(trackArtistIDs, artistID)
	}
	if err := s.syncTrackArtists(ctx, trackID, trackArtistIDs); err != nil {
		return err
	}

	if _, err := s.tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO spotify_track_sources (track_id, spotify_source_id) VALUES (?, ?)`,
		trackID, sourceID); err != nil {
		return err
	}
	synced.tracks[trackID] = true
	return nil
}

// resolveUnmappedTrack finds an existing track of the album with the same
// title at the same disc and track position that has no spotify mapping
// yet. Returns 0 when there is none; several candidates are
// ErrMultipleTracksSameTitle.
func (s *syncTx) resolveUnmappedTrack(ctx context.Context, albumID int64, title string, discNumber, trackNumber int) (int64, error) {
	rows, err := s.tx.QueryContext(ctx, `
		SELECT t.id FROM tracks t
		LEFT JOIN spotify_tracks st ON st.track_id = t.id
		WHERE t.album_id = ? AND t.title = ? AND t.disc_number = ? AND t.track_number = ? AND st.track_id IS NULL
		ORDER BY t.id
	`, albumID, title, discNumber, trackNumber)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	switch len(ids) {
	case 0:
		return 0, nil
	case 1:
		return ids[0], nil
	default:
		return 0, fmt.Errorf("%w: %q", music.ErrMultipleTracksSameTitle, title)
	}
}

// updateTrackIfChanged rewrites the track's metadata when it differs from
// desired. Disc and track totals come from local files only, so the
// stored ones are kept.
func (s *syncTx) updateTrackIfChanged(ctx context.Context, trackID int64, desired *music.Track) (bool, error) {
	var track music.Track
	var disc, discTotal, number, numberTotal sql.NullInt64
	var dbTitle sql.NullString
	err := s.tx.QueryRowContext(ctx,
		`SELECT id, album_id, disc_number, disc_total, track_number, track_total, title FROM tracks WHERE id = ?`, trackID).
		Scan(&track.ID, &track.AlbumID, &disc, &discTotal, &number, &numberTotal, &dbTitle)
	if err != nil {
		return false, err
	}
	track.DiscNumber = intPtrFromNull(disc)
	track.DiscTotal = intPtrFromNull(discTotal)
	track.TrackNumber = intPtrFromNull(number)
	track.TrackTotal = intPtrFromNull(numberTotal)
	track.Title = stringPtrFromNull(dbTitle)

	desired.DiscTotal = track.DiscTotal
	desired.TrackTotal = track.TrackTotal
	if track.MetadataMatches(desired) {
		return false, nil
	}
	track.SetMetadata(desired)
	return true, s.updateTrack(ctx, &track)
}

// deleteStaleAssociations removes the source's association rows for
// entities its latest fetch no longer contained.
func (s *syncTx) deleteStaleAssociations(ctx context.Context, sourceID int64, synced *syncedIDs) error {
	if err := s.deleteStale(ctx, sourceID, "spotify_album_sources", "album_id", synced.albums); err != nil {
		return err
	}
	if err := s.deleteStale(ctx, sourceID, "spotify_track_sources", "track_id", synced.tracks); err != nil {
		return err
	}
	return s.deleteStale(ctx, sourceID, "spotify_artist_sources", "artist_id", synced.artists)
}

func (s *syncTx) deleteStale(ctx context.Context, sourceID int64, table, column string, keep map[int64]bool) error {
	rows, err := s.tx.QueryContext(ctx,
		`SELECT `+column+` FROM `+table+` WHERE spotify_source_id = ?`, sourceID)
	if err != nil {
		return err
	}
	var stale []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		if !keep[id] {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range stale {
		if _, err := s.tx.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE `+column+` = ? AND spotify_source_id = ?`, id, sourceID); err != nil {
			return err
		}
	}
	return nil
}
