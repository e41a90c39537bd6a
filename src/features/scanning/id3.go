package scanning

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"strconv"
	"strings"

	"github.com/arendse/melodium/src/music"
	"github.com/bogem/id3v2/v2"
	"github.com/dhowden/tag"
)

const id3v2HeaderSize = 10

// readTags extracts the tag fields of an mp3 file. Files with a leading
// ID3v2 tag are parsed frame by frame; otherwise the trailing ID3v1
// block is read. A file with neither tag yields a nil track.
func readTags(data []byte) (*music.ScannedTrack, error) {
	if hasID3v2Header(data) {
		return readID3v2Tags(data)
	}
	if id3v1TagSize(data) == 0 {
		return nil, nil
	}
	return readID3v1Tags(data)
}

func readID3v2Tags(data []byte) (*music.ScannedTrack, error) {
	t, err := id3v2.ParseReader(bytes.NewReader(data), id3v2.Options{Parse: true})
	if err != nil {
		return nil, fmt.Errorf("failed to parse id3v2 tag: %w", err)
	}

	track := &music.ScannedTrack{
		Album:        strings.TrimSpace(t.Album()),
		Title:        strings.TrimSpace(t.Title()),
		TrackArtists: parseArtists(t.Artist()),
		AlbumArtists: parseArtists(t.GetTextFrame("TPE2").Text),
	}
	// An album without a TPE2 frame belongs to its track artists.
	if len(track.AlbumArtists) == 0 {
		track.AlbumArtists = track.TrackArtists
	}
	track.TrackNumber, track.TrackTotal = parsePositionFrame(t.GetTextFrame("TRCK").Text)
	track.DiscNumber, track.DiscTotal = parsePositionFrame(t.GetTextFrame("TPOS").Text)
	return track, nil
}

// readID3v1Tags reads the fields the v1 block actually carries: title,
// album, artist and track number. Disc and totals stay unset.
func readID3v1Tags(data []byte) (*music.ScannedTrack, error) {
	m, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read id3v1 tag: %w", err)
	}

	track := &music.ScannedTrack{
		Album:        strings.TrimSpace(m.Album()),
		Title:        strings.TrimSpace(m.Title()),
		TrackArtists: parseArtists(m.Artist()),
	}
	track.AlbumArtists = track.TrackArtists
	if number, _ := m.Track(); number > 0 {
		track.TrackNumber = music.IntPtr(number)
	}
	return track, nil
}

// parsePositionFrame parses "3" and "3/12" style position frames into a
// number and an optional total.
func parsePositionFrame(text string) (*int, *int) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	var totalText string
	if idx := strings.IndexByte(text, '/'); idx >= 0 {
		totalText = text[idx+1:]
		text = text[:idx]
	}
	number, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || number <= 0 {
		return nil, nil
	}
	total, err := strconv.Atoi(strings.TrimSpace(totalText))
	if err != nil || total <= 0 {
		return music.IntPtr(number), nil
	}
	return music.IntPtr(number), music.IntPtr(total)
}

// hashAudioPayload computes the CRC32 of the audio bytes with the leading
// ID3v2 tag and trailing ID3v1 block stripped, so the hash survives
// retagging.
func hashAudioPayload(data []byte) uint32 {
	start := id3v2TagSize(data)
	if start > len(data) {
		start = len(data)
	}
	end := len(data) - id3v1TagSize(data)
	if end < start {
		end = start
	}
	return crc32.ChecksumIEEE(data[start:end])
}

func hasID3v2Header(data []byte) bool {
	return len(data) >= id3v2HeaderSize && bytes.Equal(data[:3], []byte("ID3"))
}

// id3v2TagSize returns the byte length of the leading ID3v2 tag, or 0.
// The size field is a 28-bit syncsafe integer; a set footer flag adds
// another 10 bytes after the frames.
func id3v2TagSize(data []byte) int {
	if !hasID3v2Header(data) {
		return 0
	}
	size := 0
	for _, b := range data[6:10] {
		if b&0x80 != 0 {
			return 0 // not syncsafe, treat as absent
		}
		size = size<<7 | int(b)
	}
	total := id3v2HeaderSize + size
	if data[5]&0x10 != 0 {
		total += 10
	}
	return total
}

// id3v1TagSize returns the byte length of the trailing ID3v1 block, or 0.
// An extended tag ("TAG+") spans 355 bytes, a plain one 128.
func id3v1TagSize(data []byte) int {
	if len(data) >= 355 && bytes.Equal(data[len(data)-355:len(data)-351], []byte("TAG+")) {
		return 355
	}
	if len(data) >= 128 && bytes.Equal(data[len(data)-128:len(data)-125], []byte("TAG")) {
		return 128
	}
	return 0
}
