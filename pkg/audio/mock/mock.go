// Package mock provides in-memory mock implementations of the [audio.Node]
// and [audio.Player] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so that
// tests can assert on call counts and arguments, and they expose exported fields
// that the test can set to control return values.
//
// Typical usage:
//
//	node := mock.NewNode()
//	node.EndOnStop = true // Stop emits a synchronous EventTrackEnd
//	node.OnEvent(manager.HandleEvent)
//	p := node.Player("guild-1").(*mock.Player)
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/cadence/pkg/audio"
)

// ─── Node ─────────────────────────────────────────────────────────────────────

// Node is a mock implementation of [audio.Node].
// Set the exported Result fields before use; inspect the Call* fields after.
type Node struct {
	mu sync.Mutex

	// SearchResult is returned by [Node.Search].
	SearchResult audio.SearchResult

	// SearchResults, when set, overrides SearchResult per query.
	SearchResults map[string]audio.SearchResult

	// SearchError is returned by [Node.Search].
	SearchError error

	// NotReady inverts the value returned by [Node.Ready].
	NotReady bool

	// EndOnStop makes [Player.Stop] emit an [audio.EventTrackEnd] for the
	// player's guild synchronously, the way a real node reports a stopped
	// track.
	EndOnStop bool

	// SearchCalls records the query of every [Node.Search] call.
	SearchCalls []string

	players map[string]*Player
	handler func(audio.Event)
}

// NewNode returns an empty, ready mock node.
func NewNode() *Node {
	return &Node{players: make(map[string]*Player)}
}

// Player implements [audio.Node]. It returns the same *Player for a guild on
// every call.
func (n *Node) Player(guildID string) audio.Player {
	return n.MockPlayer(guildID)
}

// MockPlayer returns the concrete mock player for guildID.
func (n *Node) MockPlayer(guildID string) *Player {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.players == nil {
		n.players = make(map[string]*Player)
	}
	p, ok := n.players[guildID]
	if !ok {
		p = &Player{node: n, guildID: guildID}
		n.players[guildID] = p
	}
	return p
}

// Search implements [audio.Node].
func (n *Node) Search(_ context.Context, query string) (audio.SearchResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.SearchCalls = append(n.SearchCalls, query)
	if n.SearchError != nil {
		return audio.SearchResult{}, n.SearchError
	}
	if r, ok := n.SearchResults[query]; ok {
		return r, nil
	}
	return n.SearchResult, nil
}

// OnEvent implements [audio.Node].
func (n *Node) OnEvent(fn func(audio.Event)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handler = fn
}

// Ready implements [audio.Node].
func (n *Node) Ready() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return !n.NotReady
}

// SetReady changes the value returned by [Node.Ready] while the node is in use.
func (n *Node) SetReady(ready bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.NotReady = !ready
}

// Emit delivers ev to the registered handler on the calling goroutine.
func (n *Node) Emit(ev audio.Event) {
	n.mu.Lock()
	h := n.handler
	n.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

// SearchCallCount returns how many times Search was called.
func (n *Node) SearchCallCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.SearchCalls)
}

// ─── Player ───────────────────────────────────────────────────────────────────

// Player is a mock implementation of [audio.Player].
type Player struct {
	mu sync.Mutex

	node    *Node
	guildID string

	// ConnectError is returned by [Player.Connect].
	ConnectError error

	// PlayError is returned by [Player.Play].
	PlayError error

	// DestroyError is returned by [Player.Destroy].
	DestroyError error

	// PositionResult is returned by [Player.Position].
	PositionResult time.Duration

	// ConnectCalls records the channel of every Connect call.
	ConnectCalls []string

	// Played records every track passed to Play, in order.
	Played []audio.Track

	// SeekCalls records every Seek position.
	SeekCalls []time.Duration

	// CallCountStop records how many times Stop was called.
	CallCountStop int

	// CallCountDestroy records how many times Destroy was called.
	CallCountDestroy int

	// Paused, Volume and Equalizer hold the last values set.
	Paused    bool
	Volume    int
	Equalizer audio.Equalizer

	channelID string
}

// Connect implements [audio.Player].
func (p *Player) Connect(_ context.Context, channelID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ConnectCalls = append(p.ConnectCalls, channelID)
	if p.ConnectError != nil {
		return p.ConnectError
	}
	p.channelID = channelID
	return nil
}

// Play implements [audio.Player].
func (p *Player) Play(_ context.Context, t audio.Track) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.PlayError != nil {
		return p.PlayError
	}
	p.Played = append(p.Played, t)
	return nil
}

// Stop implements [audio.Player]. When the owning node has EndOnStop set, an
// [audio.EventTrackEnd] is emitted before Stop returns.
func (p *Player) Stop(_ context.Context) error {
	p.mu.Lock()
	p.CallCountStop++
	p.mu.Unlock()

	if p.node != nil {
		p.node.mu.Lock()
		emit := p.node.EndOnStop
		p.node.mu.Unlock()
		if emit {
			p.node.Emit(audio.Event{Type: audio.EventTrackEnd, GuildID: p.guildID, Reason: "stopped"})
		}
	}
	return nil
}

// SetPaused implements [audio.Player].
func (p *Player) SetPaused(_ context.Context, paused bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Paused = paused
	return nil
}

// SetVolume implements [audio.Player].
func (p *Player) SetVolume(_ context.Context, volume int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Volume = volume
	return nil
}

// SetEqualizer implements [audio.Player].
func (p *Player) SetEqualizer(_ context.Context, eq audio.Equalizer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Equalizer = eq
	return nil
}

// Seek implements [audio.Player].
func (p *Player) Seek(_ context.Context, position time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SeekCalls = append(p.SeekCalls, position)
	p.PositionResult = position
	return nil
}

// Position implements [audio.Player].
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.PositionResult
}

// ChannelID implements [audio.Player].
func (p *Player) ChannelID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channelID
}

// Destroy implements [audio.Player].
func (p *Player) Destroy(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CallCountDestroy++
	p.channelID = ""
	return p.DestroyError
}

// PlayedTitles returns the titles of every played track, in order.
func (p *Player) PlayedTitles() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	titles := make([]string, len(p.Played))
	for i, t := range p.Played {
		titles[i] = t.Info.Title
	}
	return titles
}

// DestroyCount returns how many times Destroy was called.
func (p *Player) DestroyCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CallCountDestroy
}

// StopCount returns how many times Stop was called.
func (p *Player) StopCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CallCountStop
}

// Compile-time interface assertions.
var (
	_ audio.Node   = (*Node)(nil)
	_ audio.Player = (*Player)(nil)
)

// Track is a test helper building a track with the given title.
func Track(title string) audio.Track {
	return audio.Track{
		ID:   "enc:" + title,
		Info: audio.TrackInfo{Identifier: title, Title: title, Length: 3 * time.Minute, IsSeekable: true},
	}
}
