package lavalink

import (
	"fmt"
	"time"

	"github.com/disgoorg/disgolink/v3/lavalink"

	"github.com/MrWong99/cadence/pkg/audio"
)

// endAdvances reports whether a track end should move the queue on. Replaced
// tracks were superseded by a play call, cleanup ends belong to a destroyed
// player and load failures are already reported as exceptions.
func endAdvances(r lavalink.TrackEndReason) bool {
	switch r {
	case lavalink.TrackEndReasonFinished, lavalink.TrackEndReasonStopped:
		return true
	default:
		return false
	}
}

func toDuration(d time.Duration) lavalink.Duration {
	return lavalink.Duration(d.Milliseconds())
}

func fromDuration(d lavalink.Duration) time.Duration {
	return time.Duration(d) * time.Millisecond
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ref(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// toTrack converts a server track. The encoded form becomes the track ID.
// The server does not report seekability; only streams cannot seek.
func toTrack(t lavalink.Track) audio.Track {
	return audio.Track{
		ID: t.Encoded,
		Info: audio.TrackInfo{
			Identifier: t.Info.Identifier,
			Title:      t.Info.Title,
			Author:     t.Info.Author,
			URI:        deref(t.Info.URI),
			ArtworkURL: deref(t.Info.ArtworkURL),
			SourceName: t.Info.SourceName,
			Length:     fromDuration(t.Info.Length),
			IsStream:   t.Info.IsStream,
			IsSeekable: !t.Info.IsStream,
		},
	}
}

func fromTrack(t audio.Track) lavalink.Track {
	return lavalink.Track{
		Encoded: t.ID,
		Info: lavalink.TrackInfo{
			Identifier: t.Info.Identifier,
			Title:      t.Info.Title,
			Author:     t.Info.Author,
			URI:        ref(t.Info.URI),
			ArtworkURL: ref(t.Info.ArtworkURL),
			SourceName: t.Info.SourceName,
			Length:     toDuration(t.Info.Length),
			IsStream:   t.Info.IsStream,
		},
	}
}

func toTracks(ts []lavalink.Track) []audio.Track {
	out := make([]audio.Track, len(ts))
	for i, t := range ts {
		out[i] = toTrack(t)
	}
	return out
}

// fromLoadResult converts a load result. Empty results are not errors;
// exceptions wrap errLoadFailed.
func fromLoadResult(r *lavalink.LoadResult) (audio.SearchResult, error) {
	if r == nil {
		return audio.SearchResult{}, nil
	}
	switch data := r.Data.(type) {
	case lavalink.Track:
		return audio.SearchResult{Tracks: []audio.Track{toTrack(data)}}, nil
	case lavalink.Playlist:
		return audio.SearchResult{Tracks: toTracks(data.Tracks), Playlist: data.Info.Name}, nil
	case lavalink.Search:
		return audio.SearchResult{Tracks: toTracks(data)}, nil
	case lavalink.Exception:
		return audio.SearchResult{}, fmt.Errorf("%w: %s", errLoadFailed, data.Message)
	default:
		return audio.SearchResult{}, nil
	}
}

// setBands writes gains into a fixed array of 15 bands, whatever float type
// the server library uses for them.
func setBands[E ~[audio.BandCount]F, F ~float32 | ~float64](eq *E, gains [audio.BandCount]float64) {
	for i, g := range gains {
		(*eq)[i] = F(g)
	}
}
