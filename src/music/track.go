package music

// Track is a canonical track in the catalog. Tag-derived fields are
// pointers because files and remote listings may omit them.
type Track struct {
	ID          int64
	AlbumID     int64
	DiscNumber  *int
	DiscTotal   *int
	TrackNumber *int
	TrackTotal  *int
	Title       *string
}

// MetadataMatches reports whether the track already carries the album
// and tag fields of desired. IDs are not compared.
func (t *Track) MetadataMatches(desired *Track) bool {
	return t.AlbumID == desired.AlbumID &&
		intPtrEqual(t.DiscNumber, desired.DiscNumber) &&
		intPtrEqual(t.DiscTotal, desired.DiscTotal) &&
		intPtrEqual(t.TrackNumber, desired.TrackNumber) &&
		intPtrEqual(t.TrackTotal, desired.TrackTotal) &&
		stringPtrEqual(t.Title, desired.Title)
}

// SetMetadata overwrites the tag-derived fields of the track with those
// of desired, keeping the track's own ID.
func (t *Track) SetMetadata(desired *Track) {
	t.AlbumID = desired.AlbumID
	t.DiscNumber = desired.DiscNumber
	t.DiscTotal = desired.DiscTotal
	t.TrackNumber = desired.TrackNumber
	t.TrackTotal = desired.TrackTotal
	t.Title = desired.Title
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// IntPtr returns a pointer to v. Convenience for literals.
func IntPtr(v int) *int { return &v }

// StringPtr returns a pointer to v.
func StringPtr(v string) *string { return &v }
