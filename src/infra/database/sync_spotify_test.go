package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arendse/melodium/src/music"
)

func addTestSpotifySource(t *testing.T, lib *SqliteLibrary) *music.SpotifySource {
	t.Helper()
	source := &music.SpotifySource{
		Enabled:      true,
		RefreshToken: "refresh",
		AccessToken:  "access",
		ExpiryDate:   time.Now().UTC().Add(time.Hour).Truncate(time.Second),
	}
	id, err := lib.AddSpotifySource(context.Background(), source)
	if err != nil {
		t.Fatalf("failed to add spotify source: %v", err)
	}
	source.ID = id
	return source
}

func fetchedArtist(spotifyID, name string) music.FetchedArtist {
	return music.FetchedArtist{SpotifyID: spotifyID, Name: name}
}

func fetchedTrack(spotifyID, title string, disc, number int, artists ...music.FetchedArtist) music.FetchedTrack {
	return music.FetchedTrack{SpotifyID: spotifyID, Title: title, DiscNumber: disc, TrackNumber: number, Artists: artists}
}

func fetchedAlbum(spotifyID, name string, artists []music.FetchedArtist, tracks ...music.FetchedTrack) music.FetchedAlbum {
	return music.FetchedAlbum{SpotifyID: spotifyID, Name: name, Artists: artists, Tracks: tracks}
}

func countRows(t *testing.T, lib *SqliteLibrary, query string, args ...any) int {
	t.Helper()
	var count int
	if err := lib.db.QueryRow(query, args...).Scan(&count); err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return count
}

func TestSyncSpotifySourceAddsCatalog(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)
	source := addTestSpotifySource(t, lib)

	neil := fetchedArtist("ar1", "Neil Young")
	artists := []music.FetchedArtist{neil}
	albums := []music.FetchedAlbum{
		fetchedAlbum("al1", "Harvest", []music.FetchedArtist{neil},
			fetchedTrack("tr1", "Out on the Weekend", 1, 1, neil),
			fetchedTrack("tr2", "Harvest", 1, 2, neil),
		),
	}

	stats, err := lib.SyncSpotifySource(ctx, source, false, artists, albums)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if stats.TracksAdded != 2 {
		t.Errorf("expected 2 tracks added, got %+v", stats)
	}

	if count, _ := lib.GetAlbumsCount(ctx); count != 1 {
		t.Errorf("expected 1 album, got %d", count)
	}
	if count, _ := lib.GetTracksCount(ctx); count != 2 {
		t.Errorf("expected 2 tracks, got %d", count)
	}
	if n := countRows(t, lib, `SELECT COUNT(*) FROM spotify_tracks`); n != 2 {
		t.Errorf("expected 2 track mappings, got %d", n)
	}
	if n := countRows(t, lib, `SELECT COUNT(*) FROM spotify_album_sources WHERE spotify_source_id = ?`, source.ID); n != 1 {
		t.Errorf("expected 1 album association, got %d", n)
	}

	tracks, err := lib.GetTracksPaginated(ctx, "Weekend", 10, 0)
	if err != nil {
		t.Fatalf("failed to list tracks: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("expected 1 matching track, got %d", len(tracks))
	}
	if tracks[0].SpotifyID == nil || *tracks[0].SpotifyID != "tr1" {
		t.Errorf("unexpected spotify id: %v", tracks[0].SpotifyID)
	}
	if tracks[0].FilePath != nil {
		t.Errorf("a remote only track must have no file path, got %v", *tracks[0].FilePath)
	}
}

func TestSyncSpotifyAdoptsLocalTrack(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)
	addTestLocalSource(t, lib, "/music", true)
	source := addTestSpotifySource(t, lib)

	scanner := &fakeScanner{items: map[string][]music.ScanItem{
		"/music": {scannedItem("01.mp3", 11, "Harvest", "Out on the Weekend", []string{"Neil Young"}, 2, 5)},
	}}
	if _, err := lib.SyncLocalSources(ctx, scanner); err != nil {
		t.Fatalf("local sync failed: %v", err)
	}

	neil := fetchedArtist("ar1", "Neil Young")
	albums := []music.FetchedAlbum{
		fetchedAlbum("al1", "Harvest", []music.FetchedArtist{neil},
			fetchedTrack("tr1", "Out on the Weekend", 2, 5, neil),
		),
	}
	if _, err := lib.SyncSpotifySource(ctx, source, false, []music.FetchedArtist{neil}, albums); err != nil {
		t.Fatalf("spotify sync failed: %v", err)
	}

	// Same album, same disc and track position: the canonical track is
	// shared, not duplicated.
	if count, _ := lib.GetTracksCount(ctx); count != 1 {
		t.Errorf("expected the local track to be adopted, got %d tracks", count)
	}
	if count, _ := lib.GetAlbumsCount(ctx); count != 1 {
		t.Errorf("expected a single album, got %d", count)
	}

	tracks, err := lib.GetTracksPaginated(ctx, "", 10, 0)
	if err != nil {
		t.Fatalf("failed to list tracks: %v", err)
	}
	track := tracks[0]
	if track.FilePath == nil {
		t.Error("the adopted track must keep its file path")
	}
	if track.SpotifyID == nil || *track.SpotifyID != "tr1" {
		t.Errorf("the adopted track must gain the mapping, got %v", track.SpotifyID)
	}
}

func TestSyncSpotifyTrackPositionDistinguishesDiscAndNumber(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)
	addTestLocalSource(t, lib, "/music", true)
	source := addTestSpotifySource(t, lib)

	scanner := &fakeScanner{items: map[string][]music.ScanItem{
		"/music": {scannedItem("01.mp3", 11, "Harvest", "Words", []string{"Neil Young"}, 1, 2)},
	}}
	if _, err := lib.SyncLocalSources(ctx, scanner); err != nil {
		t.Fatalf("local sync failed: %v", err)
	}

	// Disc 2 track 1 is a different position than disc 1 track 2 and
	// must not adopt the local row.
	neil := fetchedArtist("ar1", "Neil Young")
	albums := []music.FetchedAlbum{
		fetchedAlbum("al1", "Harvest", []music.FetchedArtist{neil},
			fetchedTrack("tr1", "Words", 2, 1, neil),
		),
	}
	if _, err := lib.SyncSpotifySource(ctx, source, false, []music.FetchedArtist{neil}, albums); err != nil {
		t.Fatalf("spotify sync failed: %v", err)
	}

	if count, _ := lib.GetTracksCount(ctx); count != 2 {
		t.Errorf("a mismatched position must create a new track, got %d", count)
	}
}

func TestSyncSpotifyDifferentTitleSamePositionAddsTrack(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)
	addTestLocalSource(t, lib, "/music", true)
	source := addTestSpotifySource(t, lib)

	scanner := &fakeScanner{items: map[string][]music.ScanItem{
		"/music": {scannedItem("01.mp3", 11, "Harvest", "Words", []string{"Neil Young"}, 1, 2)},
	}}
	if _, err := lib.SyncLocalSources(ctx, scanner); err != nil {
		t.Fatalf("local sync failed: %v", err)
	}

	// Same position, different title: not the same recording.
	neil := fetchedArtist("ar1", "Neil Young")
	albums := []music.FetchedAlbum{
		fetchedAlbum("al1", "Harvest", []music.FetchedArtist{neil},
			fetchedTrack("tr1", "Alabama", 1, 2, neil),
		),
	}
	if _, err := lib.SyncSpotifySource(ctx, source, false, []music.FetchedArtist{neil}, albums); err != nil {
		t.Fatalf("spotify sync failed: %v", err)
	}

	if count, _ := lib.GetTracksCount(ctx); count != 2 {
		t.Errorf("a mismatched title must create a new track, got %d", count)
	}
	tracks, err := lib.GetTracksPaginated(ctx, "Words", 10, 0)
	if err != nil {
		t.Fatalf("failed to list tracks: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("expected the local track to keep its title, got %d matches", len(tracks))
	}
	if tracks[0].SpotifyID != nil {
		t.Errorf("the local track must not gain the mapping, got %v", *tracks[0].SpotifyID)
	}
}

func TestSyncSpotifyAmbiguousUnmappedTracksFail(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)
	source := addTestSpotifySource(t, lib)

	// Two identical unmapped tracks on the same album.
	if _, err := lib.db.Exec(`INSERT INTO albums (name) VALUES ('Harvest')`); err != nil {
		t.Fatalf("failed to seed album: %v", err)
	}
	if _, err := lib.db.Exec(
		`INSERT INTO tracks (album_id, disc_number, track_number, title) VALUES (1, 1, 2, 'Words'), (1, 1, 2, 'Words')`); err != nil {
		t.Fatalf("failed to seed tracks: %v", err)
	}

	neil := fetchedArtist("ar1", "Neil Young")
	albums := []music.FetchedAlbum{
		fetchedAlbum("al1", "Harvest", []music.FetchedArtist{neil},
			fetchedTrack("tr1", "Words", 1, 2, neil),
		),
	}
	_, err := lib.SyncSpotifySource(ctx, source, false, []music.FetchedArtist{neil}, albums)
	if !errors.Is(err, music.ErrMultipleTracksSameTitle) {
		t.Fatalf("expected an ambiguous track error, got %v", err)
	}
	if n := countRows(t, lib, `SELECT COUNT(*) FROM spotify_tracks`); n != 0 {
		t.Errorf("a failed sync must not leave mappings, got %d", n)
	}
}

func TestSyncSpotifyRenamesMappedEntities(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)
	source := addTestSpotifySource(t, lib)

	artist := fetchedArtist("ar1", "CSN")
	albums := []music.FetchedAlbum{
		fetchedAlbum("al1", "Deja Vu", []music.FetchedArtist{artist},
			fetchedTrack("tr1", "Carry On", 1, 1, artist),
		),
	}
	if _, err := lib.SyncSpotifySource(ctx, source, false, []music.FetchedArtist{artist}, albums); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}

	renamed := fetchedArtist("ar1", "CSNY")
	albums = []music.FetchedAlbum{
		fetchedAlbum("al1", "Déjà Vu", []music.FetchedArtist{renamed},
			fetchedTrack("tr1", "Carry On (Remastered)", 1, 1, renamed),
		),
	}
	stats, err := lib.SyncSpotifySource(ctx, source, false, []music.FetchedArtist{renamed}, albums)
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if stats.TracksUpdated != 1 || stats.TracksAdded != 0 {
		t.Errorf("expected 1 track updated, got %+v", stats)
	}

	if count, _ := lib.GetArtistsCount(ctx); count != 1 {
		t.Errorf("a rename must not create artists, got %d", count)
	}
	album, err := lib.GetAlbumsPaginated(ctx, "", 10, 0)
	if err != nil {
		t.Fatalf("failed to list albums: %v", err)
	}
	if album[0].Name != "Déjà Vu" {
		t.Errorf("expected the renamed album, got %s", album[0].Name)
	}
	if album[0].Artists[0] != "CSNY" {
		t.Errorf("expected the renamed artist, got %v", album[0].Artists)
	}
}

func TestSyncSpotifyUnchangedRun(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)
	source := addTestSpotifySource(t, lib)

	artist := fetchedArtist("ar1", "Artist")
	albums := []music.FetchedAlbum{
		fetchedAlbum("al1", "Album", []music.FetchedArtist{artist},
			fetchedTrack("tr1", "Song", 1, 1, artist),
		),
	}
	if _, err := lib.SyncSpotifySource(ctx, source, false, []music.FetchedArtist{artist}, albums); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}
	stats, err := lib.SyncSpotifySource(ctx, source, false, []music.FetchedArtist{artist}, albums)
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if stats.TracksUnchanged != 1 || stats.TracksAdded != 0 || stats.TracksUpdated != 0 {
		t.Errorf("expected an unchanged run, got %+v", stats)
	}
}

func TestSyncSpotifyReclaimsStaleAssociations(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)
	source := addTestSpotifySource(t, lib)

	artist := fetchedArtist("ar1", "Artist")
	albums := []music.FetchedAlbum{
		fetchedAlbum("al1", "Kept", []music.FetchedArtist{artist},
			fetchedTrack("tr1", "Kept Song", 1, 1, artist),
		),
		fetchedAlbum("al2", "Unsaved", []music.FetchedArtist{artist},
			fetchedTrack("tr2", "Unsaved Song", 1, 1, artist),
		),
	}
	if _, err := lib.SyncSpotifySource(ctx, source, false, []music.FetchedArtist{artist}, albums); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}

	// The second fetch no longer contains the unsaved album.
	albums = albums[:1]
	if _, err := lib.SyncSpotifySource(ctx, source, false, []music.FetchedArtist{artist}, albums); err != nil {
		t.Fatalf("second sync failed: %v", err)
	}

	if n := countRows(t, lib, `SELECT COUNT(*) FROM spotify_album_sources WHERE spotify_source_id = ?`, source.ID); n != 1 {
		t.Errorf("expected 1 album association left, got %d", n)
	}
	if n := countRows(t, lib, `SELECT COUNT(*) FROM spotify_track_sources WHERE spotify_source_id = ?`, source.ID); n != 1 {
		t.Errorf("expected 1 track association left, got %d", n)
	}
	// The mappings and the canonical rows survive the unfollow.
	if n := countRows(t, lib, `SELECT COUNT(*) FROM spotify_albums`); n != 2 {
		t.Errorf("mappings must survive, got %d", n)
	}
	if count, _ := lib.GetTracksCount(ctx); count != 2 {
		t.Errorf("canonical tracks must survive, got %d", count)
	}
}

func TestSyncSpotifyPersistsRefreshedCredentials(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)
	source := addTestSpotifySource(t, lib)

	source.RefreshToken = "fresh-refresh"
	source.AccessToken = "fresh-access"
	source.ExpiryDate = time.Now().UTC().Add(2 * time.Hour).Truncate(time.Second)

	if _, err := lib.SyncSpotifySource(ctx, source, true, nil, nil); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	stored, err := lib.GetSpotifySource(ctx, source.ID)
	if err != nil {
		t.Fatalf("failed to read source: %v", err)
	}
	if stored.AccessToken != "fresh-access" || stored.RefreshToken != "fresh-refresh" {
		t.Errorf("expected refreshed tokens, got %+v", stored)
	}
	if !stored.ExpiryDate.Equal(source.ExpiryDate) {
		t.Errorf("expected expiry %v, got %v", source.ExpiryDate, stored.ExpiryDate)
	}
}

func TestSyncSpotifyLeavesCredentialsWhenUnchanged(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)
	source := addTestSpotifySource(t, lib)

	stale := *source
	stale.AccessToken = "should-not-land"
	if _, err := lib.SyncSpotifySource(ctx, &stale, false, nil, nil); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	stored, err := lib.GetSpotifySource(ctx, source.ID)
	if err != nil {
		t.Fatalf("failed to read source: %v", err)
	}
	if stored.AccessToken != "access" {
		t.Errorf("credentials must stay untouched, got %q", stored.AccessToken)
	}
}
