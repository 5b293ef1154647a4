// Package audio defines the interfaces and types for talking to an external
// audio node (for example a Lavalink server) from within Cadence.
//
// The two primary abstractions are:
//
//   - [Node]: resolves search queries into tracks, hands out per-guild
//     [Player] handles and delivers playback events.
//   - [Player]: controls playback for one guild: voice connection, play,
//     stop, pause, volume, equalizer, seek and teardown.
//
// Implementations of these interfaces are provided by node-specific adapter
// packages (e.g., internal/lavalink). The interfaces are intentionally narrow
// to keep the playback controller decoupled from node details.
//
// This package lives under pkg/ because external code (third-party node
// adapters) is expected to implement [Node] and [Player].
package audio

import (
	"context"
	"errors"
	"time"
)

// ErrNodeUnavailable is returned (wrapped) by adapters when no audio node can
// serve a request, e.g. because every node is disconnected or its circuit
// breaker is open.
var ErrNodeUnavailable = errors.New("audio: node unavailable")

// EventType classifies playback events emitted by a [Node].
type EventType int

const (
	// EventTrackEnd is emitted when the current track finished or was stopped.
	EventTrackEnd EventType = iota

	// EventTrackError is emitted when playback of the current track failed
	// or got stuck.
	EventTrackError
)

// String returns the human-readable name of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackEnd:
		return "TRACK_END"
	case EventTrackError:
		return "TRACK_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event describes a playback change for one guild. Handlers registered via
// [Node.OnEvent] receive values of this type.
type Event struct {
	// Type indicates whether the track ended or failed.
	Type EventType

	// GuildID identifies the player the event belongs to.
	GuildID string

	// Track is the track the event refers to. May be the zero value when the
	// node did not report one.
	Track Track

	// Reason is the node-specific end reason or error message.
	Reason string
}

// Node is a connection to one or more external audio servers.
//
// Implementations must be safe for concurrent use.
type Node interface {
	// Player returns the playback handle for guildID, creating it lazily.
	// Repeated calls for the same guild return handles that control the
	// same underlying player.
	Player(guildID string) Player

	// Search resolves query into an ordered list of candidates or a playlist.
	// An empty result is not an error.
	Search(ctx context.Context, query string) (SearchResult, error)

	// OnEvent registers fn as the receiver of playback events. Only one
	// handler may be registered at a time; subsequent calls replace it.
	// fn is invoked on an internal goroutine and may block.
	OnEvent(fn func(Event))

	// Ready reports whether at least one audio server is connected.
	Ready() bool
}

// Player controls playback for a single guild.
//
// Implementations must be safe for concurrent use.
type Player interface {
	// Connect joins the voice channel identified by channelID.
	Connect(ctx context.Context, channelID string) error

	// Play starts playback of t, replacing the current track.
	Play(ctx context.Context, t Track) error

	// Stop ends the current track. The node emits [EventTrackEnd] afterwards.
	Stop(ctx context.Context) error

	// SetPaused pauses or resumes playback.
	SetPaused(ctx context.Context, paused bool) error

	// SetVolume sets the playback volume (0-1000, 100 is unity gain).
	SetVolume(ctx context.Context, volume int) error

	// SetEqualizer applies the band gains of eq.
	SetEqualizer(ctx context.Context, eq Equalizer) error

	// Seek moves the playback position of the current track.
	Seek(ctx context.Context, position time.Duration) error

	// Position returns the playback position of the current track.
	Position() time.Duration

	// ChannelID returns the voice channel the player is connected to, or
	// the empty string when disconnected.
	ChannelID() string

	// Destroy stops playback and leaves the voice channel.
	Destroy(ctx context.Context) error
}
