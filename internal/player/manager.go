package player

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/cadence/internal/menu"
	"github.com/MrWong99/cadence/internal/observe"
	"github.com/MrWong99/cadence/pkg/audio"
)

// ManagerConfig holds all dependencies for a [Manager].
type ManagerConfig struct {
	Node     audio.Node
	Renderer menu.Renderer

	// Metrics is optional.
	Metrics *observe.Metrics

	// Volume is the initial volume of new sessions. Default: [DefaultVolume].
	Volume int

	// Colour is the embed colour of announcements.
	Colour int
}

// Manager hands out one [Controller] per guild and routes audio node events
// to them. Destroyed controllers are dropped and replaced on next use.
// All exported methods are safe for concurrent use.
type Manager struct {
	node     audio.Node
	renderer menu.Renderer
	metrics  *observe.Metrics

	mu          sync.Mutex
	volume      int
	colour      int
	controllers map[string]*Controller
}

// NewManager creates a Manager and subscribes it to the node's events.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Volume == 0 {
		cfg.Volume = DefaultVolume
	}
	m := &Manager{
		node:        cfg.Node,
		renderer:    cfg.Renderer,
		metrics:     cfg.Metrics,
		volume:      cfg.Volume,
		colour:      cfg.Colour,
		controllers: make(map[string]*Controller),
	}
	cfg.Node.OnEvent(m.HandleEvent)
	return m
}

// Get returns the live controller of guildID, creating an idle one when
// there is none.
func (m *Manager) Get(guildID string) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.controllers[guildID]; ok && !c.Destroyed() {
		return c
	}
	c := NewController(Config{
		GuildID:   guildID,
		Player:    m.node.Player(guildID),
		Renderer:  m.renderer,
		Metrics:   m.metrics,
		Volume:    m.volume,
		Colour:    m.colour,
		OnDestroy: m.forget,
	})
	m.controllers[guildID] = c
	m.metrics.AddActivePlayers(context.Background(), 1)
	return c
}

// Lookup returns the live controller of guildID without creating one.
func (m *Manager) Lookup(guildID string) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.controllers[guildID]
	if !ok || c.Destroyed() {
		return nil, false
	}
	return c, true
}

// Len returns the number of live controllers.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.controllers)
}

// Node returns the audio node the manager plays through.
func (m *Manager) Node() audio.Node {
	return m.node
}

// SetDefaults changes the volume and colour applied to sessions created
// from now on.
func (m *Manager) SetDefaults(volume, colour int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if volume > 0 {
		m.volume = volume
	}
	m.colour = colour
}

// HandleEvent advances the session the event belongs to. Events for guilds
// without a live session are ignored.
func (m *Manager) HandleEvent(ev audio.Event) {
	c, ok := m.Lookup(ev.GuildID)
	if !ok {
		return
	}
	if ev.Type == audio.EventTrackError {
		slog.Warn("player: track failed", "guild_id", ev.GuildID, "track", ev.Track.String(), "reason", ev.Reason)
	}
	if err := c.Advance(context.Background()); err != nil {
		slog.Error("player: advance failed", "guild_id", ev.GuildID, "event", ev.Type.String(), "err", err)
	}
}

// Shutdown destroys every live session concurrently.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	controllers := make([]*Controller, 0, len(m.controllers))
	for _, c := range m.controllers {
		controllers = append(controllers, c)
	}
	m.mu.Unlock()

	var g errgroup.Group
	for _, c := range controllers {
		g.Go(func() error { return c.Destroy(ctx) })
	}
	return g.Wait()
}

// forget runs with c's lock held and must not call back into c.
func (m *Manager) forget(c *Controller) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.controllers[c.GuildID()]; ok && cur == c {
		delete(m.controllers, c.GuildID())
		m.metrics.AddActivePlayers(context.Background(), -1)
	}
}
