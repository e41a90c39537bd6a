package database

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/arendse/melodium/src/music"
)

func TestLocalSourceLifecycle(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)

	id, err := lib.AddLocalSource(ctx, &music.LocalSource{Enabled: true, Directory: "/music"})
	if err != nil {
		t.Fatalf("failed to add source: %v", err)
	}

	source, err := lib.GetLocalSource(ctx, id)
	if err != nil {
		t.Fatalf("failed to get source: %v", err)
	}
	if !source.Enabled || source.Directory != "/music" {
		t.Errorf("unexpected source: %+v", source)
	}

	if err := lib.SetLocalSourceEnabled(ctx, id, false); err != nil {
		t.Fatalf("failed to disable source: %v", err)
	}
	source, _ = lib.GetLocalSource(ctx, id)
	if source.Enabled {
		t.Error("expected the source to be disabled")
	}

	sources, err := lib.GetLocalSources(ctx)
	if err != nil {
		t.Fatalf("failed to list sources: %v", err)
	}
	if len(sources) != 1 {
		t.Errorf("expected 1 source, got %d", len(sources))
	}

	if err := lib.DeleteLocalSource(ctx, id); err != nil {
		t.Fatalf("failed to delete source: %v", err)
	}
	if _, err := lib.GetLocalSource(ctx, id); err == nil {
		t.Error("expected a not found error after deletion")
	}
}

func TestAddLocalSourceRejectsEmptyDirectory(t *testing.T) {
	lib := newTestLibrary(t)
	_, err := lib.AddLocalSource(context.Background(), &music.LocalSource{Enabled: true, Directory: "  "})
	if err == nil {
		t.Fatal("expected a validation error")
	}
}

func TestSetLocalSourceEnabledUnknownID(t *testing.T) {
	lib := newTestLibrary(t)
	err := lib.SetLocalSourceEnabled(context.Background(), 99, true)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected a not found error, got %v", err)
	}
}

func TestDeleteLocalSourceDropsMappingRows(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)
	sourceID := addTestLocalSource(t, lib, "/music", true)

	scanner := &fakeScanner{items: map[string][]music.ScanItem{
		"/music": {scannedItem("01.mp3", 11, "Album", "Title", []string{"Artist"}, 1, 1)},
	}}
	if _, err := lib.SyncLocalSources(ctx, scanner); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	if err := lib.DeleteLocalSource(ctx, sourceID); err != nil {
		t.Fatalf("failed to delete source: %v", err)
	}

	for _, table := range []string{"local_tracks", "local_albums", "local_artists"} {
		if n := countRows(t, lib, `SELECT COUNT(*) FROM `+table); n != 0 {
			t.Errorf("expected %s to be empty, got %d rows", table, n)
		}
	}
	// The canonical catalog outlives the source.
	if count, _ := lib.GetTracksCount(ctx); count != 1 {
		t.Errorf("expected the track to survive, got %d", count)
	}
}

func TestSpotifySourceCredentialsRoundTrip(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)

	expiry := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	id, err := lib.AddSpotifySource(ctx, &music.SpotifySource{
		Enabled:      true,
		RefreshToken: "refresh",
		AccessToken:  "access",
		ExpiryDate:   expiry,
	})
	if err != nil {
		t.Fatalf("failed to add source: %v", err)
	}

	source, err := lib.GetSpotifySource(ctx, id)
	if err != nil {
		t.Fatalf("failed to get source: %v", err)
	}
	if source.RefreshToken != "refresh" || source.AccessToken != "access" {
		t.Errorf("unexpected tokens: %+v", source)
	}
	if !source.ExpiryDate.Equal(expiry) {
		t.Errorf("expected expiry %v, got %v", expiry, source.ExpiryDate)
	}

	source.AccessToken = "rotated"
	source.ExpiryDate = expiry.Add(time.Hour)
	if err := lib.UpdateSpotifyCredentials(ctx, source); err != nil {
		t.Fatalf("failed to update credentials: %v", err)
	}
	stored, _ := lib.GetSpotifySource(ctx, id)
	if stored.AccessToken != "rotated" || !stored.ExpiryDate.Equal(expiry.Add(time.Hour)) {
		t.Errorf("unexpected stored credentials: %+v", stored)
	}
}

func TestDeleteSpotifySourceKeepsMappings(t *testing.T) {
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
		t.Fatalf("sync failed: %v", err)
	}

	if err := lib.DeleteSpotifySource(ctx, source.ID); err != nil {
		t.Fatalf("failed to delete source: %v", err)
	}

	for _, table := range []string{"spotify_album_sources", "spotify_track_sources", "spotify_artist_sources"} {
		if n := countRows(t, lib, `SELECT COUNT(*) FROM `+table); n != 0 {
			t.Errorf("expected %s to be empty, got %d rows", table, n)
		}
	}
	// Mappings and canonical rows are not tied to the source.
	if n := countRows(t, lib, `SELECT COUNT(*) FROM spotify_tracks`); n != 1 {
		t.Errorf("expected the mapping to survive, got %d rows", n)
	}
	if count, _ := lib.GetTracksCount(ctx); count != 1 {
		t.Errorf("expected the track to survive, got %d", count)
	}
}
