// Package player owns per-guild playback sessions: the track queue with its
// play cursor, volume and equalizer state, the "now playing" announcement
// and the menus bound to the session.
//
// A [Controller] advances through its [Queue] whenever the audio node
// reports that a track ended; queue exhaustion destroys the session. The
// [Manager] looks controllers up by guild and routes node events to them.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrWong99/cadence/internal/menu"
	"github.com/MrWong99/cadence/internal/observe"
	"github.com/MrWong99/cadence/pkg/audio"
	"github.com/MrWong99/cadence/pkg/stopwatch"
)

// DefaultVolume is the volume of a new session.
const DefaultVolume = 40

// Volume bounds accepted by audio nodes.
const (
	MinVolume = 0
	MaxVolume = 1000
)

var (
	// ErrDestroyed is returned by operations on a destroyed controller.
	ErrDestroyed = errors.New("player: session destroyed")

	// ErrNotStarted is returned by playback operations before Start.
	ErrNotStarted = errors.New("player: session not started")
)

// ClampVolume limits v to [MinVolume, MaxVolume]. Callers clamp before
// handing a volume to [Controller.SetVolume].
func ClampVolume(v int) int {
	return min(max(v, MinVolume), MaxVolume)
}

// State is the lifecycle state of a [Controller].
type State int

const (
	StateIdle State = iota
	StateConnecting
	StatePlaying
	StatePaused
	StateDestroyed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Config holds the collaborators and settings of a [Controller].
type Config struct {
	// GuildID identifies the session.
	GuildID string

	// Player is the audio node handle for the guild.
	Player audio.Player

	// Renderer posts and deletes "now playing" announcements.
	Renderer menu.Renderer

	// Metrics is optional.
	Metrics *observe.Metrics

	// Volume is the initial volume. Default: [DefaultVolume].
	Volume int

	// Colour is the embed colour of announcements.
	Colour int

	// OnDestroy is called once, with the controller lock held, after the
	// session was destroyed. It must not call back into the controller.
	OnDestroy func(*Controller)
}

// Controller is the playback session of one guild. All methods are safe for
// concurrent use.
type Controller struct {
	guildID   string
	player    audio.Player
	renderer  menu.Renderer
	metrics   *observe.Metrics
	colour    int
	onDestroy func(*Controller)
	menus     *MenuRegistry
	destroyed atomic.Bool

	mu            sync.Mutex
	queue         Queue
	state         State
	started       bool
	paused        bool
	volume        int
	equalizer     audio.Equalizer
	statusChannel string
	current       *audio.Track
	nowPlaying    menu.Message
}

// NewController creates an idle controller.
func NewController(cfg Config) *Controller {
	if cfg.Volume == 0 {
		cfg.Volume = DefaultVolume
	}
	return &Controller{
		guildID:   cfg.GuildID,
		player:    cfg.Player,
		renderer:  cfg.Renderer,
		metrics:   cfg.Metrics,
		colour:    cfg.Colour,
		onDestroy: cfg.OnDestroy,
		menus:     NewMenuRegistry(),
		volume:    cfg.Volume,
		equalizer: audio.EqualizerFlat,
	}
}

// Start records statusChannelID for announcements, joins voiceChannelID and
// plays the first queued track. Start does not guard against being called
// twice; callers check [Controller.Started] first.
func (c *Controller) Start(ctx context.Context, statusChannelID, voiceChannelID string) error {
	c.mu.Lock()
	if c.state == StateDestroyed {
		c.mu.Unlock()
		return ErrDestroyed
	}
	c.statusChannel = statusChannelID
	c.state = StateConnecting
	volume := c.volume
	c.mu.Unlock()

	if err := c.player.Connect(ctx, voiceChannelID); err != nil {
		c.mu.Lock()
		if c.state == StateConnecting {
			c.state = StateIdle
		}
		c.mu.Unlock()
		return fmt.Errorf("player: connect %s: %w", c.guildID, err)
	}
	if err := c.player.SetVolume(ctx, volume); err != nil {
		slog.Warn("player: failed to apply initial volume", "guild_id", c.guildID, "err", err)
	}

	c.mu.Lock()
	c.started = true
	c.mu.Unlock()

	slog.Info("player: session started", "guild_id", c.guildID, "voice_channel_id", voiceChannelID)
	return c.Advance(ctx)
}

// Connect joins voiceChannelID without starting playback. A later Start
// may join a different channel.
func (c *Controller) Connect(ctx context.Context, voiceChannelID string) error {
	if c.destroyed.Load() {
		return ErrDestroyed
	}
	if err := c.player.Connect(ctx, voiceChannelID); err != nil {
		return fmt.Errorf("player: connect %s: %w", c.guildID, err)
	}
	slog.Info("player: connected", "guild_id", c.guildID, "voice_channel_id", voiceChannelID)
	return nil
}

// Advance plays the track at the cursor and moves the cursor forward. When
// the queue is exhausted the session is destroyed; that is the normal end of
// a session and not an error. Advancing a destroyed session is a no-op.
//
// Calls are serialized: two Advance calls in quick succession (a skip racing
// a natural track end) each move the cursor by exactly one.
func (c *Controller) Advance(ctx context.Context) error {
	ctx, span := observe.StartSpan(observe.WithGuild(ctx, c.guildID), "player.Advance")
	defer span.End()
	sw := stopwatch.Start()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateDestroyed {
		return nil
	}

	c.deleteNowPlayingLocked(ctx)

	track, ok := c.queue.Next()
	if !ok {
		slog.Info("player: queue exhausted", "guild_id", c.guildID)
		return c.destroyLocked(ctx)
	}
	c.current = &track
	c.announceLocked(ctx, track)

	if err := c.player.Play(ctx, track); err != nil {
		c.metrics.RecordNodeError(ctx, "player", "play")
		return fmt.Errorf("player: play %q: %w", track, err)
	}
	if c.paused {
		c.state = StatePaused
	} else {
		c.state = StatePlaying
	}

	c.metrics.RecordTrackPlayed(ctx, c.guildID, sw.Stop())
	observe.Logger(ctx).Debug("player: now playing", "track", track.String(), "cursor", c.queue.Cursor())
	return nil
}

// Previous rewinds the cursor by two and stops the current track; the node's
// track-end event then advances onto the track before the one that was
// playing. With fewer than two tracks played the session ends instead.
func (c *Controller) Previous(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateDestroyed {
		c.mu.Unlock()
		return ErrDestroyed
	}
	c.queue.Rewind(2)
	c.mu.Unlock()

	return c.stopTrack(ctx)
}

// Skip stops the current track; the node's track-end event advances to the
// next one.
func (c *Controller) Skip(ctx context.Context) error {
	if c.destroyed.Load() {
		return ErrDestroyed
	}
	return c.stopTrack(ctx)
}

// stopTrack runs without the lock held: a node may deliver the resulting
// track-end event synchronously.
func (c *Controller) stopTrack(ctx context.Context) error {
	if err := c.player.Stop(ctx); err != nil {
		c.metrics.RecordNodeError(ctx, "player", "stop")
		return fmt.Errorf("player: stop: %w", err)
	}
	return nil
}

// Destroy ends the session: it deletes the announcement, stops every bound
// menu and leaves the voice channel. Destroying twice is a no-op.
func (c *Controller) Destroy(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyLocked(ctx)
}

func (c *Controller) destroyLocked(ctx context.Context) error {
	if c.state == StateDestroyed {
		return nil
	}
	c.state = StateDestroyed
	c.destroyed.Store(true)
	c.current = nil

	c.deleteNowPlayingLocked(ctx)
	c.menus.StopAll()

	var err error
	if derr := c.player.Destroy(ctx); derr != nil {
		c.metrics.RecordNodeError(ctx, "player", "destroy")
		err = fmt.Errorf("player: destroy %s: %w", c.guildID, derr)
	}
	slog.Info("player: session destroyed", "guild_id", c.guildID)

	if c.onDestroy != nil {
		c.onDestroy(c)
	}
	return err
}

// SetVolume forwards v to the node and records it. v is stored as given;
// callers clamp with [ClampVolume].
func (c *Controller) SetVolume(ctx context.Context, v int) error {
	if c.destroyed.Load() {
		return ErrDestroyed
	}
	if err := c.player.SetVolume(ctx, v); err != nil {
		c.metrics.RecordNodeError(ctx, "player", "volume")
		return fmt.Errorf("player: set volume: %w", err)
	}
	c.mu.Lock()
	c.volume = v
	c.mu.Unlock()
	return nil
}

// SetEqualizer applies eq and records it.
func (c *Controller) SetEqualizer(ctx context.Context, eq audio.Equalizer) error {
	if !eq.Valid() {
		return fmt.Errorf("%w: %q", audio.ErrInvalidEqualizer, eq)
	}
	if c.destroyed.Load() {
		return ErrDestroyed
	}
	if err := c.player.SetEqualizer(ctx, eq); err != nil {
		c.metrics.RecordNodeError(ctx, "player", "equalizer")
		return fmt.Errorf("player: set equalizer: %w", err)
	}
	c.mu.Lock()
	c.equalizer = eq
	c.mu.Unlock()
	return nil
}

// SetPaused pauses or resumes playback.
func (c *Controller) SetPaused(ctx context.Context, paused bool) error {
	if c.destroyed.Load() {
		return ErrDestroyed
	}
	if err := c.player.SetPaused(ctx, paused); err != nil {
		c.metrics.RecordNodeError(ctx, "player", "pause")
		return fmt.Errorf("player: set paused: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = paused
	switch {
	case c.state == StatePlaying && paused:
		c.state = StatePaused
	case c.state == StatePaused && !paused:
		c.state = StatePlaying
	}
	return nil
}

// Seek moves the playback position of the current track, clamped to the
// track bounds.
func (c *Controller) Seek(ctx context.Context, position time.Duration) error {
	c.mu.Lock()
	if c.state == StateDestroyed {
		c.mu.Unlock()
		return ErrDestroyed
	}
	if c.current == nil {
		c.mu.Unlock()
		return ErrNotStarted
	}
	length := c.current.Info.Length
	c.mu.Unlock()

	position = max(position, 0)
	if length > 0 {
		position = min(position, length)
	}
	if err := c.player.Seek(ctx, position); err != nil {
		c.metrics.RecordNodeError(ctx, "player", "seek")
		return fmt.Errorf("player: seek: %w", err)
	}
	return nil
}

// SeekBy moves the playback position by delta relative to the current one.
func (c *Controller) SeekBy(ctx context.Context, delta time.Duration) error {
	return c.Seek(ctx, c.player.Position()+delta)
}

// Enqueue appends tracks and returns the new queue length. A batch that
// does not fit is rejected whole.
func (c *Controller) Enqueue(tracks ...audio.Track) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDestroyed {
		return 0, ErrDestroyed
	}
	if err := c.queue.Append(tracks...); err != nil {
		return c.queue.Len(), err
	}
	return c.queue.Len(), nil
}

// RemoveTitle removes every queued track titled title.
func (c *Controller) RemoveTitle(title string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.RemoveFunc(func(t audio.Track) bool { return t.String() == title })
}

// RemoveAt removes the track at the one-based queue position.
func (c *Controller) RemoveAt(position int) (audio.Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.RemoveAt(position - 1)
}

// Clear empties the queue. The current track keeps playing; the session
// ends when it does unless new tracks were queued.
func (c *Controller) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Clear()
}

// AttachMenu binds m to the session: it is stopped when the session is
// destroyed and leaves the registry when it stops. Attaching to a destroyed
// session stops m right away.
func (c *Controller) AttachMenu(m Stoppable) {
	if c.destroyed.Load() {
		m.Stop()
		return
	}
	h := c.menus.Add(m)
	m.OnStop(func() { c.menus.Remove(h) })
	if c.destroyed.Load() {
		m.Stop()
	}
}

// MenuCount returns the number of menus bound to the session.
func (c *Controller) MenuCount() int {
	return c.menus.Len()
}

func (c *Controller) announceLocked(ctx context.Context, t audio.Track) {
	if c.statusChannel == "" {
		return
	}
	msg, err := c.renderer.Send(ctx, c.statusChannel, NowPlayingView(t, c.colour))
	if err != nil {
		slog.Warn("player: failed to announce track", "guild_id", c.guildID, "err", err)
		return
	}
	c.nowPlaying = msg
}

func (c *Controller) deleteNowPlayingLocked(ctx context.Context) {
	if c.nowPlaying.ID == "" {
		return
	}
	msg := c.nowPlaying
	c.nowPlaying = menu.Message{}
	if err := c.renderer.Delete(ctx, msg); err != nil && !errors.Is(err, menu.ErrMessageGone) {
		slog.Warn("player: failed to delete announcement", "guild_id", c.guildID, "message_id", msg.ID, "err", err)
	}
}

// NowPlayingView renders the announcement for t.
func NowPlayingView(t audio.Track, colour int) menu.View {
	v := menu.View{
		Title:       "Now Playing:",
		Description: t.String(),
		URL:         t.Info.URI,
		Color:       colour,
		Thumbnail:   t.Info.ArtworkURL,
	}
	if t.Requester.Name != "" {
		v.Footer = "Requested by " + t.Requester.Name
	}
	return v
}
