package scanning

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/arendse/melodium/src/music"
)

func collectItems(t *testing.T, items <-chan music.ScanItem) map[string]music.ScanItem {
	t.Helper()
	got := make(map[string]music.ScanItem)
	for item := range items {
		got[filepath.Base(item.Path)] = item
	}
	return got
}

func TestScanReadsTaggedFiles(t *testing.T) {
	dir := t.TempDir()

	good := buildTaggedFile(t, "Harvest", "Heart of Gold", "Neil Young", "5/10", "1", []byte("payload one"))
	if err := os.WriteFile(filepath.Join(dir, "heart_of_gold.mp3"), good, 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "disc2")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	other := buildTaggedFile(t, "Harvest", "Words", "Neil Young", "10", "2", []byte("payload two"))
	if err := os.WriteFile(filepath.Join(sub, "words.mp3"), other, 0644); err != nil {
		t.Fatal(err)
	}
	// Non-audio files are skipped entirely.
	if err := os.WriteFile(filepath.Join(dir, "cover.jpg"), []byte("jpeg"), 0644); err != nil {
		t.Fatal(err)
	}

	scanner := NewScanner()
	items, err := scanner.Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got := collectItems(t, items)

	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d: %v", len(got), got)
	}
	first := got["heart_of_gold.mp3"]
	if first.Err != nil {
		t.Fatalf("expected no item error, got %v", first.Err)
	}
	if first.Track.Album != "Harvest" || first.Track.Title != "Heart of Gold" {
		t.Errorf("unexpected track: %+v", first.Track)
	}
	if first.Track.TrackNumber == nil || *first.Track.TrackNumber != 5 {
		t.Errorf("expected track number 5, got %v", first.Track.TrackNumber)
	}
	if first.Track.FilePath != "heart_of_gold.mp3" {
		t.Errorf("expected path relative to the source directory, got %q", first.Track.FilePath)
	}
	if first.Track.Hash == 0 {
		t.Error("expected a non-zero payload hash")
	}
	second := got["words.mp3"]
	if second.Err != nil || second.Track.DiscNumber == nil || *second.Track.DiscNumber != 2 {
		t.Errorf("unexpected subdirectory item: %+v err=%v", second.Track, second.Err)
	}
	if second.Track.FilePath != "disc2/words.mp3" {
		t.Errorf("expected forward-slash relative path, got %q", second.Track.FilePath)
	}
}

func TestScanSkipsUntaggedFiles(t *testing.T) {
	dir := t.TempDir()

	// No tag blocks at all: not an error, just not a track.
	if err := os.WriteFile(filepath.Join(dir, "untagged.mp3"), []byte("just bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	good := buildTaggedFile(t, "Harvest", "Words", "Neil Young", "", "", []byte("payload"))
	if err := os.WriteFile(filepath.Join(dir, "words.mp3"), good, 0644); err != nil {
		t.Fatal(err)
	}

	scanner := NewScanner()
	items, err := scanner.Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got := collectItems(t, items)

	if len(got) != 1 {
		t.Fatalf("expected only the tagged file, got %d items: %v", len(got), got)
	}
	if item := got["words.mp3"]; item.Err != nil || item.Track == nil {
		t.Fatalf("unexpected item for the tagged file: %+v", item)
	}
}

func TestScanReportsPerFileErrors(t *testing.T) {
	dir := t.TempDir()

	// Tagged but missing the album field.
	missing := buildTaggedFile(t, "", "Lonely Title", "Somebody", "", "", []byte("payload"))
	if err := os.WriteFile(filepath.Join(dir, "no_album.mp3"), missing, 0644); err != nil {
		t.Fatal(err)
	}

	scanner := NewScanner()
	items, err := scanner.Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got := collectItems(t, items)

	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	if item := got["no_album.mp3"]; item.Err == nil {
		t.Error("expected an error item for the file without an album tag")
	}
}

func TestScanRejectsMissingDirectory(t *testing.T) {
	scanner := NewScanner()
	if _, err := scanner.Scan(context.Background(), "/does/not/exist"); err == nil {
		t.Fatal("expected an error for a missing directory")
	}
}

func TestScanStopsOnContextCancel(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.mp3", "b.mp3", "c.mp3"} {
		data := buildTaggedFile(t, "Album", "Title "+name, "Artist", "1", "", []byte(name))
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	scanner := NewScanner()
	items, err := scanner.Scan(ctx, dir)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	<-items
	cancel()
	for range items {
	}
}
