package player

import (
	"time"

	"github.com/MrWong99/cadence/pkg/audio"
)

// Snapshot is a consistent, read-only copy of a controller's state for
// rendering.
type Snapshot struct {
	GuildID    string
	State      State
	Started    bool
	Paused     bool
	Volume     int
	Equalizer  audio.Equalizer
	Tracks     []audio.Track
	Cursor     int
	Current    audio.Track
	HasCurrent bool
	// CurrentQueued is set while the queue entry numbered Cursor is the
	// playing track. Removing that entry moves the cursor onto another one.
	CurrentQueued   bool
	Upcoming        audio.Track
	HasUpcoming     bool
	Position        time.Duration
	VoiceChannelID  string
	StatusChannelID string
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	s := Snapshot{
		GuildID:         c.guildID,
		State:           c.state,
		Started:         c.started,
		Paused:          c.paused,
		Volume:          c.volume,
		Equalizer:       c.equalizer,
		Tracks:          c.queue.Tracks(),
		Cursor:          c.queue.Cursor(),
		StatusChannelID: c.statusChannel,
	}
	if c.current != nil {
		s.Current, s.HasCurrent = *c.current, true
		queued, ok := c.queue.Current()
		s.CurrentQueued = ok && queued == *c.current
	}
	s.Upcoming, s.HasUpcoming = c.queue.Upcoming()
	c.mu.Unlock()

	if s.State != StateDestroyed {
		s.Position = c.player.Position()
		s.VoiceChannelID = c.player.ChannelID()
	}
	return s
}

// GuildID returns the guild the session belongs to.
func (c *Controller) GuildID() string {
	return c.guildID
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Started reports whether Start connected the session.
func (c *Controller) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// Destroyed reports whether the session ended. It never blocks on the
// controller lock.
func (c *Controller) Destroyed() bool {
	return c.destroyed.Load()
}

// Playing reports whether a track is loaded, paused or not.
func (c *Controller) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil && (c.state == StatePlaying || c.state == StatePaused)
}

// Paused reports whether playback is paused.
func (c *Controller) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Volume returns the last volume set.
func (c *Controller) Volume() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// Equalizer returns the active equalizer preset.
func (c *Controller) Equalizer() audio.Equalizer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.equalizer
}

// Cursor returns the index of the next track to play.
func (c *Controller) Cursor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Cursor()
}

// Tracks returns a copy of the queue.
func (c *Controller) Tracks() []audio.Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Tracks()
}

// Position returns the playback position of the current track.
func (c *Controller) Position() time.Duration {
	if c.destroyed.Load() {
		return 0
	}
	return c.player.Position()
}

// VoiceChannelID returns the voice channel the node reports being connected
// to.
func (c *Controller) VoiceChannelID() string {
	if c.destroyed.Load() {
		return ""
	}
	return c.player.ChannelID()
}
