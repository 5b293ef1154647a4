// Package mock provides in-memory implementations of [menu.Renderer] and
// [menu.Inputs] for use in unit tests.
//
// Messages live in memory and are numbered in creation order ("msg-1",
// "msg-2", ...). Inputs are delivered synchronously to subscribers by
// [Inputs.Press].
package mock

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/cadence/internal/menu"
)

// ─── Renderer ─────────────────────────────────────────────────────────────────

// Message is the recorded state of one rendered message.
type Message struct {
	ChannelID string
	Views     []menu.View // every rendered version, oldest first
	Controls  []string
	Deleted   bool
}

// Last returns the most recent view of the message.
func (m Message) Last() menu.View {
	if len(m.Views) == 0 {
		return menu.View{}
	}
	return m.Views[len(m.Views)-1]
}

// Renderer is a mock implementation of [menu.Renderer].
type Renderer struct {
	mu sync.Mutex

	// SendError is returned by [Renderer.Send].
	SendError error

	// EditError is returned by [Renderer.Edit].
	EditError error

	// DeleteError is returned by [Renderer.Delete].
	DeleteError error

	// CallCountDelete records how many times Delete was called.
	CallCountDelete int

	// CallCountClearControls records how many times ClearControls was called.
	CallCountClearControls int

	// RemovedInputs records every RemoveInput call as "symbol/actor".
	RemovedInputs []string

	messages map[string]*Message
	order    []string
	next     int
}

// NewRenderer returns an empty renderer.
func NewRenderer() *Renderer {
	return &Renderer{messages: make(map[string]*Message)}
}

// Send implements [menu.Renderer].
func (r *Renderer) Send(_ context.Context, channelID string, v menu.View) (menu.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SendError != nil {
		return menu.Message{}, r.SendError
	}
	if r.messages == nil {
		r.messages = make(map[string]*Message)
	}
	r.next++
	id := fmt.Sprintf("msg-%d", r.next)
	r.messages[id] = &Message{ChannelID: channelID, Views: []menu.View{v}}
	r.order = append(r.order, id)
	return menu.Message{ChannelID: channelID, ID: id}, nil
}

// Edit implements [menu.Renderer].
func (r *Renderer) Edit(_ context.Context, msg menu.Message, v menu.View) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.EditError != nil {
		return r.EditError
	}
	m, err := r.lookup(msg)
	if err != nil {
		return err
	}
	m.Views = append(m.Views, v)
	return nil
}

// Delete implements [menu.Renderer].
func (r *Renderer) Delete(_ context.Context, msg menu.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CallCountDelete++
	if r.DeleteError != nil {
		return r.DeleteError
	}
	m, err := r.lookup(msg)
	if err != nil {
		return err
	}
	m.Deleted = true
	return nil
}

// AddControls implements [menu.Renderer].
func (r *Renderer) AddControls(_ context.Context, msg menu.Message, symbols []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, err := r.lookup(msg)
	if err != nil {
		return err
	}
	m.Controls = append(m.Controls, symbols...)
	return nil
}

// ClearControls implements [menu.Renderer].
func (r *Renderer) ClearControls(_ context.Context, msg menu.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CallCountClearControls++
	m, err := r.lookup(msg)
	if err != nil {
		return err
	}
	m.Controls = nil
	return nil
}

// RemoveInput implements [menu.Renderer].
func (r *Renderer) RemoveInput(_ context.Context, _ menu.Message, symbol, actorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.RemovedInputs = append(r.RemovedInputs, symbol+"/"+actorID)
	return nil
}

// lookup must be called with r.mu held.
func (r *Renderer) lookup(msg menu.Message) (*Message, error) {
	m, ok := r.messages[msg.ID]
	if !ok || m.Deleted {
		return nil, fmt.Errorf("mock: message %q: %w", msg.ID, menu.ErrMessageGone)
	}
	return m, nil
}

// Message returns a copy of the recorded message with the given ID.
func (r *Renderer) Message(id string) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return Message{}, false
	}
	cp := *m
	cp.Views = slices.Clone(m.Views)
	cp.Controls = slices.Clone(m.Controls)
	return cp, true
}

// Messages returns the IDs of all messages ever sent, oldest first.
func (r *Renderer) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}

// Live returns the IDs of sent messages that were not deleted.
func (r *Renderer) Live() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, id := range r.order {
		if !r.messages[id].Deleted {
			ids = append(ids, id)
		}
	}
	return ids
}

// DeleteCount returns how many times Delete was called.
func (r *Renderer) DeleteCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.CallCountDelete
}

// ClearControlsCount returns how many times ClearControls was called.
func (r *Renderer) ClearControlsCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.CallCountClearControls
}

// Vanish deletes a message behind the renderer's back, the way a user
// deleting it by hand would.
func (r *Renderer) Vanish(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.messages[id]; ok {
		m.Deleted = true
	}
}

// ─── Inputs ───────────────────────────────────────────────────────────────────

// Inputs is a mock implementation of [menu.Inputs].
type Inputs struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]func(menu.Input)
}

// NewInputs returns an empty input hub.
func NewInputs() *Inputs {
	return &Inputs{subs: make(map[string]map[int]func(menu.Input))}
}

// Subscribe implements [menu.Inputs].
func (h *Inputs) Subscribe(messageID string, fn func(menu.Input)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[string]map[int]func(menu.Input))
	}
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

// Press delivers an input on messageID to every current subscriber.
func (h *Inputs) Press(messageID, symbol, actorID string) {
	h.mu.Lock()
	fns := make([]func(menu.Input), 0, len(h.subs[messageID]))
	for _, fn := range h.subs[messageID] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	in := menu.Input{MessageID: messageID, Symbol: symbol, ActorID: actorID}
	for _, fn := range fns {
		fn(in)
	}
}

// Subscribers returns the number of live subscriptions on messageID.
func (h *Inputs) Subscribers(messageID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[messageID])
}

// Compile-time interface assertions.
var (
	_ menu.Renderer = (*Renderer)(nil)
	_ menu.Inputs   = (*Inputs)(nil)
)
