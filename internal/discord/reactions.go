package discord

import (
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/cadence/internal/menu"
)

// ReactionHub fans reactions added to messages out to the menus subscribed
// to them. Reactions by the bot itself are ignored.
type ReactionHub struct {
	mu     sync.RWMutex
	self   string
	nextID int
	subs   map[string]map[int]func(menu.Input)
}

// NewReactionHub creates an empty hub.
func NewReactionHub() *ReactionHub {
	return &ReactionHub{subs: make(map[string]map[int]func(menu.Input))}
}

// SetSelf records the bot's own user ID.
func (h *ReactionHub) SetSelf(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.self = userID
}

// Subscribe implements [menu.Inputs].
func (h *ReactionHub) Subscribe(messageID string, fn func(menu.Input)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	if h.subs[messageID] == nil {
		h.subs[messageID] = make(map[int]func(menu.Input))
	}
	h.subs[messageID][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[messageID], id)
			if len(h.subs[messageID]) == 0 {
				delete(h.subs, messageID)
			}
		})
	}
}

// OnReactionAdd is the discordgo handler feeding the hub.
func (h *ReactionHub) OnReactionAdd(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.MessageReaction == nil {
		return
	}
	h.Deliver(r.MessageID, r.Emoji.Name, r.UserID)
}

// Deliver hands one reaction to the subscribers of messageID.
func (h *ReactionHub) Deliver(messageID, symbol, userID string) {
	h.mu.RLock()
	if userID == "" || userID == h.self {
		h.mu.RUnlock()
		return
	}
	fns := make([]func(menu.Input), 0, len(h.subs[messageID]))
	for _, fn := range h.subs[messageID] {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	in := menu.Input{MessageID: messageID, Symbol: symbol, ActorID: userID}
	for _, fn := range fns {
		fn(in)
	}
}

// Subscriptions returns the number of messages with at least one subscriber.
func (h *ReactionHub) Subscriptions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Compile-time interface assertion.
var _ menu.Inputs = (*ReactionHub)(nil)
