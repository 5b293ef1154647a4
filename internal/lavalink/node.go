// Package lavalink adapts a disgolink v3 client to the [audio.Node] and
// [audio.Player] interfaces.
//
// Every configured Lavalink server becomes one entry of a
// [resilience.FallbackGroup], so searches fail over to the next server while
// one is down. Players stay on the server disgolink placed them on. Voice
// connections are opened through the Discord gateway and the resulting voice
// state and server updates must be forwarded with [Node.OnVoiceStateUpdate]
// and [Node.OnVoiceServerUpdate].
package lavalink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"

	"github.com/MrWong99/cadence/internal/observe"
	"github.com/MrWong99/cadence/internal/resilience"
	"github.com/MrWong99/cadence/pkg/audio"
)

// errNodeDown marks a server whose websocket is not connected.
var errNodeDown = errors.New("lavalink: node not connected")

// errLoadFailed marks a load the server answered with an exception. It says
// nothing about the server's health.
var errLoadFailed = errors.New("lavalink: load failed")

// VoiceJoiner opens and closes gateway voice connections without handling
// the audio itself. *discordgo.Session implements it.
type VoiceJoiner interface {
	ChannelVoiceJoinManual(guildID, channelID string, mute, deaf bool) error
}

// ServerConfig addresses one Lavalink server.
type ServerConfig struct {
	Name     string
	Address  string
	Password string
	Secure   bool
}

// Config configures a [Node].
type Config struct {
	// UserID is the bot's own Discord user ID.
	UserID string

	// Servers are tried in order for searches. At least one must connect.
	Servers []ServerConfig

	// Voice joins and leaves voice channels.
	Voice VoiceJoiner

	// Breaker tunes the breaker in front of each server.
	Breaker resilience.CircuitBreakerConfig

	// Retry tunes the background reconnects of servers that failed to
	// connect in New.
	Retry resilience.RetryConfig

	// Metrics records node errors. May be nil.
	Metrics *observe.Metrics
}

// Node is an [audio.Node] backed by one or more Lavalink servers.
type Node struct {
	client  disgolink.Client
	voice   VoiceJoiner
	servers *resilience.FallbackGroup[disgolink.Node]
	metrics *observe.Metrics

	mu      sync.RWMutex
	handler func(audio.Event)

	cancel  context.CancelFunc
	retries sync.WaitGroup
}

// New creates the disgolink client and connects every server in cfg.
// Servers that fail to connect are logged and retried in the background;
// New fails only when none connects.
func New(ctx context.Context, cfg Config) (*Node, error) {
	userID, err := snowflake.Parse(cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("lavalink: parse user id %q: %w", cfg.UserID, err)
	}
	if cfg.Voice == nil {
		return nil, errors.New("lavalink: voice joiner is required")
	}

	breaker := cfg.Breaker
	breaker.IsFailure = isNodeFailure
	n := &Node{
		voice:   cfg.Voice,
		metrics: cfg.Metrics,
		servers: resilience.NewFallbackGroup[disgolink.Node](resilience.FallbackConfig{CircuitBreaker: breaker}),
	}
	n.client = disgolink.New(userID,
		disgolink.WithListenerFunc(n.onTrackEnd),
		disgolink.WithListenerFunc(n.onTrackException),
		disgolink.WithListenerFunc(n.onTrackStuck),
	)

	var (
		errs   []error
		failed []ServerConfig
	)
	for _, sc := range cfg.Servers {
		if err := n.connect(ctx, sc); err != nil {
			errs = append(errs, fmt.Errorf("node %s: %w", sc.Name, err))
			failed = append(failed, sc)
		}
	}
	if len(n.servers.Names()) == 0 {
		n.client.Close()
		return nil, fmt.Errorf("lavalink: no node connected: %w: %w", audio.ErrNodeUnavailable, errors.Join(errs...))
	}

	retryCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	n.cancel = cancel
	for _, sc := range failed {
		retry := cfg.Retry
		retry.Name = "lavalink node " + sc.Name
		n.retries.Add(1)
		go func() {
			defer n.retries.Done()
			err := resilience.Retry(retryCtx, retry, func(ctx context.Context) error {
				return n.connect(ctx, sc)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("lavalink: node stays disconnected", "node", sc.Name, "err", err)
			}
		}()
	}
	return n, nil
}

// connect adds sc to the client and to the search fallback group.
func (n *Node) connect(ctx context.Context, sc ServerConfig) error {
	node, err := n.client.AddNode(ctx, disgolink.NodeConfig{
		Name:     sc.Name,
		Address:  sc.Address,
		Password: sc.Password,
		Secure:   sc.Secure,
	})
	if err != nil {
		slog.Warn("lavalink: failed to connect node", "node", sc.Name, "address", sc.Address, "err", err)
		n.metrics.RecordNodeError(ctx, sc.Name, "connect")
		return err
	}
	n.servers.Add(sc.Name, node)
	slog.Info("lavalink: node connected", "node", sc.Name, "address", sc.Address)
	return nil
}

func isNodeFailure(err error) bool {
	return !errors.Is(err, errLoadFailed) && !errors.Is(err, context.Canceled)
}

// Player implements [audio.Node].
func (n *Node) Player(guildID string) audio.Player {
	return &player{node: n, guildID: guildID}
}

// Search implements [audio.Node].
func (n *Node) Search(ctx context.Context, query string) (audio.SearchResult, error) {
	ctx, span := observe.StartSpan(ctx, "lavalink.Search")
	defer span.End()

	res, err := resilience.ExecuteWithResult(ctx, n.servers,
		func(ctx context.Context, name string, node disgolink.Node) (audio.SearchResult, error) {
			if node.Status() != disgolink.StatusConnected {
				return audio.SearchResult{}, errNodeDown
			}
			loaded, err := node.LoadTracks(ctx, query)
			if err != nil {
				n.metrics.RecordNodeError(ctx, name, "load")
				return audio.SearchResult{}, err
			}
			return fromLoadResult(loaded)
		})
	switch {
	case err == nil:
		return res, nil
	case errors.Is(err, errLoadFailed):
		return audio.SearchResult{}, fmt.Errorf("lavalink: search %q: %w", query, err)
	case errors.Is(err, resilience.ErrAllFailed):
		return audio.SearchResult{}, fmt.Errorf("lavalink: search %q: %w: %w", query, audio.ErrNodeUnavailable, err)
	default:
		return audio.SearchResult{}, fmt.Errorf("lavalink: search %q: %w", query, err)
	}
}

// OnEvent implements [audio.Node].
func (n *Node) OnEvent(fn func(audio.Event)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handler = fn
}

// Ready implements [audio.Node].
func (n *Node) Ready() bool {
	for _, name := range n.servers.Names() {
		if node, ok := n.servers.Get(name); ok && node.Status() == disgolink.StatusConnected {
			return true
		}
	}
	return false
}

// Check reports an error when no server is connected. It is shaped for
// readiness checks.
func (n *Node) Check(context.Context) error {
	if !n.Ready() {
		return audio.ErrNodeUnavailable
	}
	return nil
}

// BreakerStates reports the breaker state of every server.
func (n *Node) BreakerStates() map[string]resilience.State {
	return n.servers.States()
}

// Close stops pending reconnects and disconnects from every server.
func (n *Node) Close() {
	if n.cancel != nil {
		n.cancel()
	}
	n.retries.Wait()
	n.client.Close()
}

// OnVoiceStateUpdate forwards the bot's own voice state changes to disgolink.
// It has the signature of a discordgo event handler.
func (n *Node) OnVoiceStateUpdate(s *discordgo.Session, e *discordgo.VoiceStateUpdate) {
	if s.State == nil || s.State.User == nil || e.UserID != s.State.User.ID {
		return
	}
	guildID, err := snowflake.Parse(e.GuildID)
	if err != nil {
		slog.Warn("lavalink: bad guild id in voice state update", "guild_id", e.GuildID, "err", err)
		return
	}
	var channelID *snowflake.ID
	if e.ChannelID != "" {
		id, err := snowflake.Parse(e.ChannelID)
		if err != nil {
			slog.Warn("lavalink: bad channel id in voice state update", "channel_id", e.ChannelID, "err", err)
			return
		}
		channelID = &id
	}
	n.client.OnVoiceStateUpdate(context.Background(), guildID, channelID, e.SessionID)
}

// OnVoiceServerUpdate forwards voice server changes to disgolink. It has the
// signature of a discordgo event handler.
func (n *Node) OnVoiceServerUpdate(_ *discordgo.Session, e *discordgo.VoiceServerUpdate) {
	guildID, err := snowflake.Parse(e.GuildID)
	if err != nil {
		slog.Warn("lavalink: bad guild id in voice server update", "guild_id", e.GuildID, "err", err)
		return
	}
	n.client.OnVoiceServerUpdate(context.Background(), guildID, e.Token, e.Endpoint)
}

func (n *Node) emit(ev audio.Event) {
	n.mu.RLock()
	h := n.handler
	n.mu.RUnlock()
	if h == nil {
		return
	}
	// Listeners run on the node's websocket reader; never block it.
	go h(ev)
}

func (n *Node) onTrackEnd(p disgolink.Player, e lavalink.TrackEndEvent) {
	if !endAdvances(e.Reason) {
		slog.Debug("lavalink: track end ignored", "guild_id", p.GuildID().String(), "reason", string(e.Reason))
		return
	}
	n.emit(audio.Event{
		Type:    audio.EventTrackEnd,
		GuildID: p.GuildID().String(),
		Track:   toTrack(e.Track),
		Reason:  string(e.Reason),
	})
}

func (n *Node) onTrackException(p disgolink.Player, e lavalink.TrackExceptionEvent) {
	slog.Warn("lavalink: track exception", "guild_id", p.GuildID().String(), "track", e.Track.Info.Title, "message", e.Exception.Message)
	n.metrics.RecordNodeError(context.Background(), p.Node().Config().Name, "play")
	n.emit(audio.Event{
		Type:    audio.EventTrackError,
		GuildID: p.GuildID().String(),
		Track:   toTrack(e.Track),
		Reason:  e.Exception.Message,
	})
}

func (n *Node) onTrackStuck(p disgolink.Player, e lavalink.TrackStuckEvent) {
	slog.Warn("lavalink: track stuck", "guild_id", p.GuildID().String(), "track", e.Track.Info.Title)
	n.emit(audio.Event{
		Type:    audio.EventTrackError,
		GuildID: p.GuildID().String(),
		Track:   toTrack(e.Track),
		Reason:  "stuck",
	})
}

// Compile-time interface assertion.
var _ audio.Node = (*Node)(nil)
