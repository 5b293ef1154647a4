package audio

import "time"

// Requester identifies the user who queued a track.
type Requester struct {
	// ID is the platform-specific user ID.
	ID string

	// Name is the display name shown in "Requested by" footers.
	Name string
}

// TrackInfo is the node-provided metadata of a track.
type TrackInfo struct {
	Identifier string
	Title      string
	Author     string
	URI        string
	ArtworkURL string
	SourceName string
	Length     time.Duration
	IsStream   bool
	IsSeekable bool
}

// Track is one playable item. ID is the node's opaque encoding of the track
// and is all a node needs to play it back.
type Track struct {
	ID        string
	Info      TrackInfo
	Requester Requester
}

// String returns the track title.
func (t Track) String() string {
	return t.Info.Title
}

// WithRequester returns a copy of t attributed to r.
func (t Track) WithRequester(r Requester) Track {
	t.Requester = r
	return t
}

// SearchResult is the outcome of [Node.Search].
type SearchResult struct {
	// Tracks holds the candidates in relevance order, or every playlist entry.
	Tracks []Track

	// Playlist is the playlist name when the query resolved to a playlist.
	Playlist string
}

// IsPlaylist reports whether the result is a playlist rather than a list of
// search candidates.
func (r SearchResult) IsPlaylist() bool {
	return r.Playlist != ""
}

// Empty reports whether the result carries no tracks.
func (r SearchResult) Empty() bool {
	return len(r.Tracks) == 0
}

// WithRequester attributes every track in r to req.
func (r SearchResult) WithRequester(req Requester) SearchResult {
	tracks := make([]Track, len(r.Tracks))
	for i, t := range r.Tracks {
		tracks[i] = t.WithRequester(req)
	}
	r.Tracks = tracks
	return r
}
