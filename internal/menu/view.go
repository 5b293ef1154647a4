package menu

import (
	"context"
	"errors"
)

// ErrMessageGone is returned (wrapped) by a [Renderer] when the target
// message was deleted, became inaccessible or never resolved. Menus treat it
// as an expected race and never escalate it.
var ErrMessageGone = errors.New("menu: message is gone")

// View is a platform-agnostic render payload.
type View struct {
	Title       string
	Description string
	URL         string
	Color       int
	Thumbnail   string
	Fields      []Field
	Footer      string
}

// Field is one name/value pair of a [View].
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// AddField appends a field to v and returns v for chaining.
func (v *View) AddField(name, value string, inline bool) *View {
	v.Fields = append(v.Fields, Field{Name: name, Value: value, Inline: inline})
	return v
}

// Message identifies a rendered menu message.
type Message struct {
	ChannelID string
	ID        string
}

// Renderer turns views into platform messages.
//
// Implementations must be safe for concurrent use and should wrap
// [ErrMessageGone] when the message no longer exists or cannot be accessed.
type Renderer interface {
	// Send posts v to channelID and returns the created message.
	Send(ctx context.Context, channelID string, v View) (Message, error)

	// Edit replaces the content of msg with v.
	Edit(ctx context.Context, msg Message, v View) error

	// Delete removes msg.
	Delete(ctx context.Context, msg Message) error

	// AddControls attaches symbols as clickable controls to msg, in order.
	AddControls(ctx context.Context, msg Message, symbols []string) error

	// ClearControls removes every control attached to msg.
	ClearControls(ctx context.Context, msg Message) error

	// RemoveInput resets a single actor's use of symbol on msg, so the
	// control can be used again.
	RemoveInput(ctx context.Context, msg Message, symbol, actorID string) error
}

// Input is one use of a control by an actor.
type Input struct {
	MessageID string
	Symbol    string
	ActorID   string
}

// Inputs delivers control usage for individual messages.
type Inputs interface {
	// Subscribe calls fn for every input on messageID until the returned
	// cancel function is called. fn must not block for long.
	Subscribe(messageID string, fn func(Input)) (cancel func())
}
