package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/arendse/melodium/src/music"
)

// GetLocalSources returns all local sources.
func (d *SqliteLibrary) GetLocalSources(ctx context.Context) ([]*music.LocalSource, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, enabled, directory FROM local_sources ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*music.LocalSource
	for rows.Next() {
		var source music.LocalSource
		if err := rows.Scan(&source.ID, &source.Enabled, &source.Directory); err != nil {
			return nil, err
		}
		sources = append(sources, &source)
	}
	return sources, rows.Err()
}

// GetLocalSource returns one local source by id.
func (d *SqliteLibrary) GetLocalSource(ctx context.Context, id int64) (*music.LocalSource, error) {
	var source music.LocalSource
	err := d.db.QueryRowContext(ctx, `SELECT id, enabled, directory FROM local_sources WHERE id = ?`, id).
		Scan(&source.ID, &source.Enabled, &source.Directory)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("local source %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &source, nil
}

// AddLocalSource adds a local source and returns its id.
func (d *SqliteLibrary) AddLocalSource(ctx context.Context, source *music.LocalSource) (int64, error) {
	if err := source.Validate(); err != nil {
		return 0, err
	}
	res, err := d.db.ExecContext(ctx, `INSERT INTO local_sources (enabled, directory) VALUES (?, ?)`,
		source.Enabled, source.Directory)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	slog.Info("Local source added", "id", id, "directory", source.Directory)
	return id, nil
}

// SetLocalSourceEnabled flips the enabled flag of a local source.
func (d *SqliteLibrary) SetLocalSourceEnabled(ctx context.Context, id int64, enabled bool) error {
	res, err := d.db.ExecContext(ctx, `UPDATE local_sources SET enabled = ? WHERE id = ?`, enabled, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res, "local source", id)
}

// DeleteLocalSource deletes a local source row. The canonical entities it
// contributed stay in the catalog.
func (d *SqliteLibrary) DeleteLocalSource(ctx context.Context, id int64) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM local_tracks WHERE local_source_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM local_albums WHERE local_source_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM local_artists WHERE local_source_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM local_sources WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := requireRowAffected(res, "local source", id); err != nil {
		return err
	}
	return tx.Commit()
}

// GetSpotifySources returns all spotify sources.
func (d *SqliteLibrary) GetSpotifySources(ctx context.Context) ([]*music.SpotifySource, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, enabled, refresh_token, access_token, expiry_date FROM spotify_sources ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*music.SpotifySource
	for rows.Next() {
		source, err := scanSpotifySource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

// GetSpotifySource returns one spotify source by id.
func (d *SqliteLibrary) GetSpotifySource(ctx context.Context, id int64) (*music.SpotifySource, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, enabled, refresh_token, access_token, expiry_date FROM spotify_sources WHERE id = ?`, id)
	source, err := scanSpotifySource(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("spotify source %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return source, nil
}

// AddSpotifySource adds a spotify source and returns its id.
func (d *SqliteLibrary) AddSpotifySource(ctx context.Context, source *music.SpotifySource) (int64, error) {
	res, err := d.db.ExecContext(ctx,
		`INSERT INTO spotify_sources (enabled, refresh_token, access_token, expiry_date) VALUES (?, ?, ?, ?)`,
		source.Enabled, source.RefreshToken, source.AccessToken, source.ExpiryDate.Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	slog.Info("Spotify source added", "id", id)
	return id, nil
}

// SetSpotifySourceEnabled flips the enabled flag of a spotify source.
func (d *SqliteLibrary) SetSpotifySourceEnabled(ctx context.Context, id int64, enabled bool) error {
	res, err := d.db.ExecContext(ctx, `UPDATE spotify_sources SET enabled = ? WHERE id = ?`, enabled, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res, "spotify source", id)
}

// UpdateSpotifyCredentials rewrites the token columns of a spotify source.
func (d *SqliteLibrary) UpdateSpotifyCredentials(ctx context.Context, source *music.SpotifySource) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE spotify_sources SET refresh_token = ?, access_token = ?, expiry_date = ? WHERE id = ?`,
		source.RefreshToken, source.AccessToken, source.ExpiryDate.Format(time.RFC3339), source.ID)
	if err != nil {
		return err
	}
	return requireRowAffected(res, "spotify source", source.ID)
}

// DeleteSpotifySource deletes a spotify source and its association rows.
// Mappings and canonical entities survive.
func (d *SqliteLibrary) DeleteSpotifySource(ctx context.Context, id int64) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"spotify_album_sources", "spotify_track_sources", "spotify_artist_sources"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE spotify_source_id = ?`, id); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM spotify_sources WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := requireRowAffected(res, "spotify source", id); err != nil {
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpotifySource(row rowScanner) (*music.SpotifySource, error) {
	var source music.SpotifySource
	var expiry string
	if err := row.Scan(&source.ID, &source.Enabled, &source.RefreshToken, &source.AccessToken, &expiry); err != nil {
		return nil, err
	}
	parsed, err := time.Parse(time.RFC3339, expiry)
	if err != nil {
		return nil, fmt.Errorf("invalid expiry date on spotify source %d: %w", source.ID, err)
	}
	source.ExpiryDate = parsed
	return &source, nil
}

func requireRowAffected(res sql.Result, kind string, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%s %d not found", kind, id)
	}
	return nil
}
