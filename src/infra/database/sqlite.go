package database

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// SqliteLibrary is a SQLite implementation of the catalog: the canonical
// entities, the per-source mapping rows and the reconciliation that keeps
// them in sync.
type SqliteLibrary struct {
	db *sql.DB
}

// NewSqliteLibrary creates a new SqliteLibrary.
func NewSqliteLibrary(path string) (*SqliteLibrary, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &SqliteLibrary{db: db}, nil
}

// Close closes the underlying database handle.
func (d *SqliteLibrary) Close() error {
	return d.db.Close()
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS albums (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tracks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			album_id INTEGER NOT NULL,
			disc_number INTEGER,
			disc_total INTEGER,
			track_number INTEGER,
			track_total INTEGER,
			title TEXT,
			FOREIGN KEY (album_id) REFERENCES albums(id)
		);

		CREATE TABLE IF NOT EXISTS artists (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS album_artists (
			album_id INTEGER NOT NULL,
			artist_id INTEGER NOT NULL,
			PRIMARY KEY (album_id, artist_id),
			FOREIGN KEY (album_id) REFERENCES albums(id),
			FOREIGN KEY (artist_id) REFERENCES artists(id)
		);

		CREATE TABLE IF NOT EXISTS track_artists (
			track_id INTEGER NOT NULL,
			artist_id INTEGER NOT NULL,
			PRIMARY KEY (track_id, artist_id),
			FOREIGN KEY (track_id) REFERENCES tracks(id),
			FOREIGN KEY (artist_id) REFERENCES artists(id)
		);

		CREATE TABLE IF NOT EXISTS local_sources (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			directory TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS spotify_sources (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			refresh_token TEXT NOT NULL,
			access_token TEXT NOT NULL,
			expiry_date TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS local_albums (
			album_id INTEGER NOT NULL,
			local_source_id INTEGER NOT NULL,
			PRIMARY KEY (album_id, local_source_id),
			FOREIGN KEY (album_id) REFERENCES albums(id),
			FOREIGN KEY (local_source_id) REFERENCES local_sources(id)
		);

		CREATE TABLE IF NOT EXISTS local_tracks (
			track_id INTEGER NOT NULL,
			local_source_id INTEGER NOT NULL,
			file_path TEXT,
			hash INTEGER NOT NULL,
			PRIMARY KEY (track_id, local_source_id),
			UNIQUE (local_source_id, file_path),
			FOREIGN KEY (track_id) REFERENCES tracks(id),
			FOREIGN KEY (local_source_id) REFERENCES local_sources(id)
		);

		CREATE TABLE IF NOT EXISTS local_artists (
			artist_id INTEGER NOT NULL,
			local_source_id INTEGER NOT NULL,
			PRIMARY KEY (artist_id, local_source_id),
			FOREIGN KEY (artist_id) REFERENCES artists(id),
			FOREIGN KEY (local_source_id) REFERENCES local_sources(id)
		);

		CREATE TABLE IF NOT EXISTS spotify_albums (
			album_id INTEGER PRIMARY KEY,
			spotify_id TEXT NOT NULL UNIQUE,
			FOREIGN KEY (album_id) REFERENCES albums(id)
		);

		CREATE TABLE IF NOT EXISTS spotify_tracks (
			track_id INTEGER PRIMARY KEY,
			spotify_id TEXT NOT NULL UNIQUE,
			FOREIGN KEY (track_id) REFERENCES tracks(id)
		);

		CREATE TABLE IF NOT EXISTS spotify_artists (
			artist_id INTEGER PRIMARY KEY,
			spotify_id TEXT NOT NULL UNIQUE,
			FOREIGN KEY (artist_id) REFERENCES artists(id)
		);

		CREATE TABLE IF NOT EXISTS spotify_album_sources (
			album_id INTEGER NOT NULL,
			spotify_source_id INTEGER NOT NULL,
			PRIMARY KEY (album_id, spotify_source_id),
			FOREIGN KEY (album_id) REFERENCES albums(id),
			FOREIGN KEY (spotify_source_id) REFERENCES spotify_sources(id)
		);

		CREATE TABLE IF NOT EXISTS spotify_track_sources (
			track_id INTEGER NOT NULL,
			spotify_source_id INTEGER NOT NULL,
			PRIMARY KEY (track_id, spotify_source_id),
			FOREIGN KEY (track_id) REFERENCES tracks(id),
			FOREIGN KEY (spotify_source_id) REFERENCES spotify_sources(id)
		);

		CREATE TABLE IF NOT EXISTS spotify_artist_sources (
			artist_id INTEGER NOT NULL,
			spotify_source_id INTEGER NOT NULL,
			PRIMARY KEY (artist_id, spotify_source_id),
			FOREIGN KEY (artist_id) REFERENCES artists(id),
			FOREIGN KEY (spotify_source_id) REFERENCES spotify_sources(id)
		);

		CREATE INDEX IF NOT EXISTS idx_albums_name ON albums(name);
		CREATE INDEX IF NOT EXISTS idx_artists_name ON artists(name);
		CREATE INDEX IF NOT EXISTS idx_tracks_album ON tracks(album_id);
		CREATE INDEX IF NOT EXISTS idx_track_artists_artist ON track_artists(artist_id);
		CREATE INDEX IF NOT EXISTS idx_album_artists_artist ON album_artists(artist_id);
		CREATE INDEX IF NOT EXISTS idx_local_tracks_hash ON local_tracks(local_source_id, hash);
	`)
	return err
}
