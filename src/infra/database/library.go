package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arendse/melodium/src/music"
)

const trackViewColumns = `
	t.id, t.album_id, t.disc_number, t.disc_total, t.track_number, t.track_total, t.title, a.name,
	(SELECT lt.file_path FROM local_tracks lt WHERE lt.track_id = t.id AND lt.file_path IS NOT NULL ORDER BY lt.local_source_id LIMIT 1),
	(SELECT lt.local_source_id FROM local_tracks lt WHERE lt.track_id = t.id AND lt.file_path IS NOT NULL ORDER BY lt.local_source_id LIMIT 1),
	(SELECT st.spotify_id FROM spotify_tracks st WHERE st.track_id = t.id)`

// GetAlbumsPaginated returns a page of albums, optionally filtered by a
// name search.
func (d *SqliteLibrary) GetAlbumsPaginated(ctx context.Context, search string, limit, offset int) ([]*music.AlbumView, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name FROM albums
		WHERE ? = '' OR name LIKE '%' || ? || '%'
		ORDER BY name, id LIMIT ? OFFSET ?
	`, search, search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var albums []*music.AlbumView
	for rows.Next() {
		var album music.AlbumView
		if err := rows.Scan(&album.ID, &album.Name); err != nil {
			return nil, err
		}
		albums = append(albums, &album)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, album := range albums {
		album.Artists, err = d.albumArtistNames(ctx, album.ID)
		if err != nil {
			return nil, err
		}
	}
	return albums, nil
}

// GetAlbumsCount returns the number of albums in the catalog.
func (d *SqliteLibrary) GetAlbumsCount(ctx context.Context) (int, error) {
	return d.count(ctx, `SELECT COUNT(*) FROM albums`)
}

// GetAlbum returns one album by id.
func (d *SqliteLibrary) GetAlbum(ctx context.Context, id int64) (*music.AlbumView, error) {
	var album music.AlbumView
	err := d.db.QueryRowContext(ctx, `SELECT id, name FROM albums WHERE id = ?`, id).
		Scan(&album.ID, &album.Name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("album %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	album.Artists, err = d.albumArtistNames(ctx, album.ID)
	if err != nil {
		return nil, err
	}
	return &album, nil
}

// GetAlbumTracks returns the tracks of an album in disc and track order.
func (d *SqliteLibrary) GetAlbumTracks(ctx context.Context, albumID int64) ([]*music.TrackView, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+trackViewColumns+`
		FROM tracks t JOIN albums a ON a.id = t.album_id
		WHERE t.album_id = ?
		ORDER BY t.disc_number, t.track_number, t.id
	`, albumID)
	if err != nil {
		return nil, err
	}
	return d.collectTrackViews(ctx, rows)
}

// GetTracksPaginated returns a page of tracks, optionally filtered by a
// title or album name search.
func (d *SqliteLibrary) GetTracksPaginated(ctx context.Context, search string, limit, offset int) ([]*music.TrackView, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+trackViewColumns+`
		FROM tracks t JOIN albums a ON a.id = t.album_id
		WHERE ? = '' OR t.title LIKE '%' || ? || '%' OR a.name LIKE '%' || ? || '%'
		ORDER BY a.name, t.disc_number, t.track_number, t.id
		LIMIT ? OFFSET ?
	`, search, search, search, limit, offset)
	if err != nil {
		return nil, err
	}
	return d.collectTrackViews(ctx, rows)
}

// GetTracksCount returns the number of tracks in the catalog.
func (d *SqliteLibrary) GetTracksCount(ctx context.Context) (int, error) {
	return d.count(ctx, `SELECT COUNT(*) FROM tracks`)
}

// GetTrack returns one track by id.
func (d *SqliteLibrary) GetTrack(ctx context.Context, id int64) (*music.TrackView, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+trackViewColumns+`
		FROM tracks t JOIN albums a ON a.id = t.album_id
		WHERE t.id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	tracks, err := d.collectTrackViews(ctx, rows)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("track %d not found", id)
	}
	return tracks[0], nil
}

// GetArtistsPaginated returns a page of artists, optionally filtered by a
// name search.
func (d *SqliteLibrary) GetArtistsPaginated(ctx context.Context, search string, limit, offset int) ([]*music.Artist, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name FROM artists
		WHERE ? = '' OR name LIKE '%' || ? || '%'
		ORDER BY name, id LIMIT ? OFFSET ?
	`, search, search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artists []*music.Artist
	for rows.Next() {
		var artist music.Artist
		if err := rows.Scan(&artist.ID, &artist.Name); err != nil {
			return nil, err
		}
		artists = append(artists, &artist)
	}
	return artists, rows.Err()
}

// GetArtistsCount returns the number of artists in the catalog.
func (d *SqliteLibrary) GetArtistsCount(ctx context.Context) (int, error) {
	return d.count(ctx, `SELECT COUNT(*) FROM artists`)
}

// GetArtist returns one artist by id.
func (d *SqliteLibrary) GetArtist(ctx context.Context, id int64) (*music.Artist, error) {
	var artist music.Artist
	err := d.db.QueryRowContext(ctx, `SELECT id, name FROM artists WHERE id = ?`, id).
		Scan(&artist.ID, &artist.Name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("artist %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &artist, nil
}

// GetArtistAlbums returns the albums credited to an artist.
func (d *SqliteLibrary) GetArtistAlbums(ctx context.Context, artistID int64) ([]*music.AlbumView, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT a.id, a.name FROM albums a
		JOIN album_artists aa ON aa.album_id = a.id
		WHERE aa.artist_id = ?
		ORDER BY a.name, a.id
	`, artistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var albums []*music.AlbumView
	for rows.Next() {
		var album music.AlbumView
		if err := rows.Scan(&album.ID, &album.Name); err != nil {
			return nil, err
		}
		albums = append(albums, &album)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, album := range albums {
		album.Artists, err = d.albumArtistNames(ctx, album.ID)
		if err != nil {
			return nil, err
		}
	}
	return albums, nil
}

func (d *SqliteLibrary) collectTrackViews(ctx context.Context, rows *sql.Rows) ([]*music.TrackView, error) {
	defer rows.Close()

	var tracks []*music.TrackView
	for rows.Next() {
		var track music.TrackView
		var disc, discTotal, number, numberTotal, localSourceID sql.NullInt64
		var title, filePath, spotifyID sql.NullString
		if err := rows.Scan(&track.ID, &track.AlbumID, &disc, &discTotal, &number, &numberTotal, &title,
			&track.AlbumName, &filePath, &localSourceID, &spotifyID); err != nil {
			return nil, err
		}
		track.DiscNumber = intPtrFromNull(disc)
		track.DiscTotal = intPtrFromNull(discTotal)
		track.TrackNumber = intPtrFromNull(number)
		track.TrackTotal = intPtrFromNull(numberTotal)
		track.Title = stringPtrFromNull(title)
		track.FilePath = stringPtrFromNull(filePath)
		if localSourceID.Valid {
			id := localSourceID.Int64
			track.LocalSourceID = &id
		}
		track.SpotifyID = stringPtrFromNull(spotifyID)
		tracks = append(tracks, &track)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, track := range tracks {
		names, err := d.trackArtistNames(ctx, track.ID)
		if err != nil {
			return nil, err
		}
		track.Artists = names
	}
	return tracks, nil
}

func (d *SqliteLibrary) albumArtistNames(ctx context.Context, albumID int64) ([]string, error) {
	return d.artistNames(ctx, `
		SELECT ar.name FROM artists ar
		JOIN album_artists aa ON aa.artist_id = ar.id
		WHERE aa.album_id = ? ORDER BY ar.name
	`, albumID)
}

func (d *SqliteLibrary) trackArtistNames(ctx context.Context, trackID int64) ([]string, error) {
	return d.artistNames(ctx, `
		SELECT ar.name FROM artists ar
		JOIN track_artists ta ON ta.artist_id = ar.id
		WHERE ta.track_id = ? ORDER BY ar.name
	`, trackID)
}

func (d *SqliteLibrary) artistNames(ctx context.Context, query string, id int64) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (d *SqliteLibrary) count(ctx context.Context, query string) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
