package scanning

import (
	"bytes"
	"hash/crc32"
	"testing"

	"github.com/bogem/id3v2/v2"
)

func buildTaggedFile(t *testing.T, album, title, artist, trackNum, discNum string, payload []byte) []byte {
	t.Helper()
	tag := id3v2.NewEmptyTag()
	tag.SetAlbum(album)
	tag.SetTitle(title)
	tag.SetArtist(artist)
	if trackNum != "" {
		tag.AddTextFrame("TRCK", id3v2.EncodingUTF8, trackNum)
	}
	if discNum != "" {
		tag.AddTextFrame("TPOS", id3v2.EncodingUTF8, discNum)
	}

	var buf bytes.Buffer
	if _, err := tag.WriteTo(&buf); err != nil {
		t.Fatalf("failed to write id3v2 tag: %v", err)
	}
	return append(buf.Bytes(), payload...)
}

func buildID3v1Block(title, artist, album string, trackNum byte) []byte {
	block := make([]byte, 128)
	copy(block[0:3], "TAG")
	copy(block[3:33], title)
	copy(block[33:63], artist)
	copy(block[63:93], album)
	copy(block[93:97], "1992")
	// ID3v1.1 track number lives in the last comment byte.
	block[125] = 0
	block[126] = trackNum
	return block
}

func TestReadID3v2Tags(t *testing.T) {
	payload := []byte("not really mpeg audio")
	data := buildTaggedFile(t, "Harvest", "Out on the Weekend", "Neil Young", "1/10", "1", payload)

	track, err := readTags(data)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if track.Album != "Harvest" {
		t.Errorf("expected album Harvest, got %q", track.Album)
	}
	if track.Title != "Out on the Weekend" {
		t.Errorf("expected title, got %q", track.Title)
	}
	if len(track.TrackArtists) != 1 || track.TrackArtists[0] != "Neil Young" {
		t.Errorf("unexpected track artists: %v", track.TrackArtists)
	}
	if len(track.AlbumArtists) != 1 || track.AlbumArtists[0] != "Neil Young" {
		t.Errorf("expected album artists to fall back to the track artists, got %v", track.AlbumArtists)
	}
	if track.TrackNumber == nil || *track.TrackNumber != 1 {
		t.Errorf("expected track number 1, got %v", track.TrackNumber)
	}
	if track.TrackTotal == nil || *track.TrackTotal != 10 {
		t.Errorf("expected track total 10, got %v", track.TrackTotal)
	}
	if track.DiscNumber == nil || *track.DiscNumber != 1 {
		t.Errorf("expected disc number 1, got %v", track.DiscNumber)
	}
	if track.DiscTotal != nil {
		t.Errorf("expected no disc total, got %d", *track.DiscTotal)
	}
}

func TestReadID3v2AlbumArtistFrame(t *testing.T) {
	tag := id3v2.NewEmptyTag()
	tag.SetAlbum("Deja Vu")
	tag.SetTitle("Helpless")
	tag.SetArtist("Neil Young")
	tag.AddTextFrame("TPE2", id3v2.EncodingUTF8, "CSNY")

	var buf bytes.Buffer
	if _, err := tag.WriteTo(&buf); err != nil {
		t.Fatalf("failed to write id3v2 tag: %v", err)
	}

	track, err := readTags(append(buf.Bytes(), []byte("payload")...))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(track.TrackArtists) != 1 || track.TrackArtists[0] != "Neil Young" {
		t.Errorf("unexpected track artists: %v", track.TrackArtists)
	}
	if len(track.AlbumArtists) != 1 || track.AlbumArtists[0] != "CSNY" {
		t.Errorf("expected album artists [CSNY], got %v", track.AlbumArtists)
	}
}

func TestReadID3v1Tags(t *testing.T) {
	data := append([]byte("audio payload"), buildID3v1Block("Old Man", "Neil Young", "Harvest", 4)...)

	track, err := readTags(data)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if track.Album != "Harvest" || track.Title != "Old Man" {
		t.Errorf("unexpected tags: album=%q title=%q", track.Album, track.Title)
	}
	if track.TrackNumber == nil || *track.TrackNumber != 4 {
		t.Errorf("expected track number 4, got %v", track.TrackNumber)
	}
	if len(track.AlbumArtists) != 1 || track.AlbumArtists[0] != "Neil Young" {
		t.Errorf("expected the artist as album artist, got %v", track.AlbumArtists)
	}
	if track.DiscNumber != nil || track.DiscTotal != nil || track.TrackTotal != nil {
		t.Errorf("expected disc fields and totals to stay unset: %+v", track)
	}
}

func TestReadTagsUntaggedFile(t *testing.T) {
	track, err := readTags([]byte("just bytes, no tag blocks"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if track != nil {
		t.Fatalf("expected no track for an untagged file, got %+v", track)
	}
}

func TestHashIgnoresID3v2Tag(t *testing.T) {
	payload := []byte("the same audio payload bytes")
	bare := crc32.ChecksumIEEE(payload)

	tagged := buildTaggedFile(t, "Album A", "Title A", "Artist", "1", "", payload)
	if got := hashAudioPayload(tagged); got != bare {
		t.Errorf("expected hash %d for tagged file, got %d", bare, got)
	}

	// A different tag over the same payload must not change the hash.
	retagged := buildTaggedFile(t, "Album B", "Another Title", "Someone Else", "9/12", "2", payload)
	if got := hashAudioPayload(retagged); got != bare {
		t.Errorf("expected hash %d after retagging, got %d", bare, got)
	}
}

func TestHashIgnoresID3v1Block(t *testing.T) {
	payload := []byte("the same audio payload bytes")
	bare := crc32.ChecksumIEEE(payload)

	data := append(append([]byte{}, payload...), buildID3v1Block("T", "A", "B", 1)...)
	if got := hashAudioPayload(data); got != bare {
		t.Errorf("expected hash %d with trailing id3v1, got %d", bare, got)
	}
}

func TestHashIgnoresExtendedID3v1Block(t *testing.T) {
	payload := []byte("extended tag payload")
	bare := crc32.ChecksumIEEE(payload)

	extended := make([]byte, 355)
	copy(extended[0:4], "TAG+")
	copy(extended[355-128:], buildID3v1Block("T", "A", "B", 1))
	data := append(append([]byte{}, payload...), extended...)

	if got := hashAudioPayload(data); got != bare {
		t.Errorf("expected hash %d with extended id3v1, got %d", bare, got)
	}
}

func TestID3v2TagSizeFooter(t *testing.T) {
	// Header advertising 100 syncsafe bytes plus the footer flag.
	data := make([]byte, 200)
	copy(data[0:3], "ID3")
	data[5] = 0x10
	data[9] = 100
	if got := id3v2TagSize(data); got != 10+100+10 {
		t.Errorf("expected tag size 120, got %d", got)
	}
}

func TestID3v2TagSizeRejectsNonSyncsafe(t *testing.T) {
	data := make([]byte, 20)
	copy(data[0:3], "ID3")
	data[6] = 0x80
	if got := id3v2TagSize(data); got != 0 {
		t.Errorf("expected non-syncsafe size to be treated as absent, got %d", got)
	}
}

func TestParsePositionFrame(t *testing.T) {
	cases := []struct {
		in        string
		want      *int
		wantTotal *int
	}{
		{"3", intp(3), nil},
		{"3/12", intp(3), intp(12)},
		{" 7 ", intp(7), nil},
		{"1/0", intp(1), nil},
		{"1/x", intp(1), nil},
		{"", nil, nil},
		{"0", nil, nil},
		{"abc", nil, nil},
	}
	for _, tc := range cases {
		got, gotTotal := parsePositionFrame(tc.in)
		if !intPtrMatch(got, tc.want) {
			t.Errorf("parsePositionFrame(%q): expected number %v, got %v", tc.in, fmtIntPtr(tc.want), fmtIntPtr(got))
		}
		if !intPtrMatch(gotTotal, tc.wantTotal) {
			t.Errorf("parsePositionFrame(%q): expected total %v, got %v", tc.in, fmtIntPtr(tc.wantTotal), fmtIntPtr(gotTotal))
		}
	}
}

func intPtrMatch(got, want *int) bool {
	if got == nil || want == nil {
		return got == want
	}
	return *got == *want
}

func fmtIntPtr(v *int) any {
	if v == nil {
		return "nil"
	}
	return *v
}

func TestParseArtists(t *testing.T) {
	got := parseArtists("CSNY / Neil Young; Crazy Horse")
	want := []string{"CSNY", "Neil Young", "Crazy Horse"}
	if len(got) != len(want) {
		t.Fatalf("expected %d artists, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("artist %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	if parseArtists("  ") != nil {
		t.Error("expected nil for blank artist string")
	}
}

func intp(v int) *int { return &v }
