package scanning

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/arendse/melodium/src/music"
)

// Scanner walks local source directories and reads audio file tags. It
// implements music.DirectoryScanner.
type Scanner struct{}

// NewScanner creates a new Scanner.
func NewScanner() *Scanner {
	return &Scanner{}
}

// Scan walks the directory tree and streams one item per .mp3 file. The
// channel is closed when the walk finishes or ctx is cancelled. The
// returned error only covers failures to start the walk; per-file errors
// travel on the channel.
func (s *Scanner) Scan(ctx context.Context, directory string) (<-chan music.ScanItem, error) {
	info, err := os.Stat(directory)
	if err != nil {
		return nil, fmt.Errorf("failed to open scan directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan path is not a directory: %s", directory)
	}

	results := make(chan music.ScanItem)
	go func() {
		defer close(results)
		err := filepath.WalkDir(directory, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() {
				return nil
			}
			if strings.ToLower(filepath.Ext(path)) != ".mp3" {
				return nil
			}

			track, scanErr := s.scanFile(directory, path)
			if track == nil && scanErr == nil {
				return nil
			}
			item := music.ScanItem{Path: path, Track: track, Err: scanErr}
			select {
			case results <- item:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			slog.Error("Directory walk failed", "directory", directory, "error", err)
			select {
			case results <- music.ScanItem{Path: directory, Err: fmt.Errorf("%w: %v", music.ErrScanWalk, err)}:
			case <-ctx.Done():
			}
		}
	}()
	return results, nil
}

// scanFile reads the tags of a single file and hashes its audio payload.
// Files without any tag block are skipped, returning a nil track. The
// stored path is relative to the source directory with forward slashes,
// so a relocated source directory keeps its track identities.
func (s *Scanner) scanFile(directory, path string) (*music.ScannedTrack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	track, err := readTags(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags from %s: %w", filepath.Base(path), err)
	}
	if track == nil {
		return nil, nil
	}
	if track.Album == "" || track.Title == "" {
		return nil, fmt.Errorf("file %s has no usable album or title tag", filepath.Base(path))
	}

	rel, err := filepath.Rel(directory, path)
	if err != nil {
		return nil, fmt.Errorf("failed to relativize path %s: %w", path, err)
	}
	track.FilePath = filepath.ToSlash(rel)
	track.Hash = hashAudioPayload(data)
	return track, nil
}

// parseArtists splits a tag artist string on common delimiters.
func parseArtists(artistString string) []string {
	if strings.TrimSpace(artistString) == "" {
		return nil
	}

	split := strings.FieldsFunc(artistString, func(r rune) bool {
		return r == ';' || r == '/'
	})
	artists := make([]string, 0, len(split))
	for _, name := range split {
		name = strings.TrimSpace(name)
		if name != "" {
			artists = append(artists, name)
		}
	}
	return artists
}
