package music

import (
	"context"
	"errors"
)

// Per-track reconciliation failures. These skip the offending track and
// let the rest of the sync proceed.
var (
	ErrMultipleAlbumsSameName  = errors.New("multiple albums with the same name")
	ErrMultipleArtistsSameName = errors.New("multiple artists with the same name")
	ErrHashCollision           = errors.New("multiple local tracks with the same hash")
)

// ErrMultipleTracksSameTitle means an album holds several unmapped tracks
// with the same title and position, so a remote track cannot be matched
// to one of them. It aborts the remote sync transaction.
var ErrMultipleTracksSameTitle = errors.New("multiple tracks with the same album and title")

// ErrScanWalk marks a directory walk that failed partway. Unlike per-file
// errors it aborts the local sync transaction.
var ErrScanWalk = errors.New("directory walk failed")

// ScannedTrack is one audio file as seen by the tag scanner: the tag
// fields plus a hash of the audio payload with the tag regions stripped,
// so retagging a file does not change its identity. FilePath is relative
// to the scanned source directory, with forward slashes.
type ScannedTrack struct {
	FilePath     string
	Hash         uint32
	Album        string
	Title        string
	TrackArtists []string
	AlbumArtists []string
	DiscNumber   *int
	DiscTotal    *int
	TrackNumber  *int
	TrackTotal   *int
}

// ScanItem is one walked file: either a scanned track or a per-file
// error. Walk failures carry ErrScanWalk.
type ScanItem struct {
	Path  string
	Track *ScannedTrack
	Err   error
}

// DirectoryScanner streams the audio files of a source directory.
type DirectoryScanner interface {
	Scan(ctx context.Context, directory string) (<-chan ScanItem, error)
}

// FetchedArtist is an artist as returned by the remote catalog.
type FetchedArtist struct {
	SpotifyID string
	Name      string
}

// FetchedTrack is a track inside a fetched album listing.
type FetchedTrack struct {
	SpotifyID   string
	Title       string
	DiscNumber  int
	TrackNumber int
	Artists     []FetchedArtist
}

// FetchedAlbum is a full album as returned by the remote catalog,
// including its track listing.
type FetchedAlbum struct {
	SpotifyID string
	Name      string
	Artists   []FetchedArtist
	Tracks    []FetchedTrack
}

// SyncStats summarizes one reconciliation run. TrackErrors holds the
// non-fatal per-track failures; a run with only those still commits.
type SyncStats struct {
	TracksAdded     int
	TracksUpdated   int
	TracksMoved     int
	TracksRemoved   int
	TracksUnchanged int
	TrackErrors     []error
}

// Merge folds other into s.
func (s *SyncStats) Merge(other SyncStats) {
	s.TracksAdded += other.TracksAdded
	s.TracksUpdated += other.TracksUpdated
	s.TracksMoved += other.TracksMoved
	s.TracksRemoved += other.TracksRemoved
	s.TracksUnchanged += other.TracksUnchanged
	s.TrackErrors = append(s.TrackErrors, other.TrackErrors...)
}
