package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arendse/melodium/src/music"
)

// syncTx wraps one reconciliation transaction. All sync writes go through
// it so a failed unit rolls back as a whole.
type syncTx struct {
	tx *sql.Tx
}

// selectOrInsertAlbum resolves an album by name, inserting it when absent.
// More than one album with the name is ErrMultipleAlbumsSameName; the
// caller skips the track.
func (s *syncTx) selectOrInsertAlbum(ctx context.Context, name string) (int64, error) {
	ids, err := s.idsByName(ctx, "albums", name)
	if err != nil {
		return 0, err
	}
	switch len(ids) {
	case 0:
		return s.insertAlbum(ctx, name)
	case 1:
		return ids[0], nil
	default:
		return 0, fmt.Errorf("%w: %q", music.ErrMultipleAlbumsSameName, name)
	}
}

// selectOrInsertArtist resolves an artist by name, inserting it when
// absent.
func (s *syncTx) selectOrInsertArtist(ctx context.Context, name string) (int64, error) {
	ids, err := s.idsByName(ctx, "artists", name)
	if err != nil {
		return 0, err
	}
	switch len(ids) {
	case 0:
		return s.insertArtist(ctx, name)
	case 1:
		return ids[0], nil
	default:
		return 0, fmt.Errorf("%w: %q", music.ErrMultipleArtistsSameName, name)
	}
}

func (s *syncTx) idsByName(ctx context.Context, table, name string) ([]int64, error) {
	rows, err := s.tx.QueryContext(ctx, `SELECT id FROM `+table+` WHERE name = ? ORDER BY id`, name)
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

func (s *syncTx) insertAlbum(ctx context.Context, name string) (int64, error) {
	res, err := s.tx.ExecContext(ctx, `INSERT INTO albums (name) VALUES (?)`, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *syncTx) insertArtist(ctx context.Context, name string) (int64, error) {
	res, err := s.tx.ExecContext(ctx, `INSERT INTO artists (name) VALUES (?)`, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *syncTx) insertTrack(ctx context.Context, track *music.Track) (int64, error) {
	res, err := s.tx.ExecContext(ctx,
		`INSERT INTO tracks (album_id, disc_number, disc_total, track_number, track_total, title) VALUES (?, ?, ?, ?, ?, ?)`,
		track.AlbumID, nullInt(track.DiscNumber), nullInt(track.DiscTotal),
		nullInt(track.TrackNumber), nullInt(track.TrackTotal), nullString(track.Title))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *syncTx) updateTrack(ctx context.Context, track *music.Track) error {
	_, err := s.tx.ExecContext(ctx,
		`UPDATE tracks SET album_id = ?, disc_number = ?, disc_total = ?, track_number = ?, track_total = ?, title = ? WHERE id = ?`,
		track.AlbumID, nullInt(track.DiscNumber), nullInt(track.DiscTotal),
		nullInt(track.TrackNumber), nullInt(track.TrackTotal), nullString(track.Title), track.ID)
	return err
}

// syncAlbumArtists makes the album's artist set equal to artistIDs:
// association rows outside the set are deleted, missing ones inserted.
func (s *syncTx) syncAlbumArtists(ctx context.Context, albumID int64, artistIDs []int64) error {
	return s.syncArtistSet(ctx, "album_artists", "album_id", albumID, artistIDs)
}

// syncTrackArtists makes the track's artist set equal to artistIDs.
func (s *syncTx) syncTrackArtists(ctx context.Context, trackID int64, artistIDs []int64) error {
	return s.syncArtistSet(ctx, "track_artists", "track_id", trackID, artistIDs)
}

func (s *syncTx) syncArtistSet(ctx context.Context, table, ownerColumn string, ownerID int64, artistIDs []int64) error {
	rows, err := s.tx.QueryContext(ctx,
		`SELECT artist_id FROM `+table+` WHERE `+ownerColumn+` = ?`, ownerID)
	if err != nil {
		return err
	}
	current := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		current[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	desired := make(map[int64]bool, len(artistIDs))
	for _, id := range artistIDs {
		desired[id] = true
	}

	for id := range current {
		if !desired[id] {
			if _, err := s.tx.ExecContext(ctx,
				`DELETE FROM `+table+` WHERE `+ownerColumn+` = ? AND artist_id = ?`, ownerID, id); err != nil {
				return err
			}
		}
	}
	for id := range desired {
		if !current[id] {
			if _, err := s.tx.ExecContext(ctx,
				`INSERT INTO `+table+` (`+ownerColumn+`, artist_id) VALUES (?, ?)`, ownerID, id); err != nil {
				return err
			}
		}
	}
	return nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func intPtrFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func stringPtrFromNull(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
