package menu

import (
	"context"
	"sync"
	"time"
)

// DefaultConfirmTimeout is the timeout of a [Confirm] without explicit one.
const DefaultConfirmTimeout = 120 * time.Second

// Confirmation control symbols.
const (
	SymbolAccept = "✅"
	SymbolDeny   = "❌"
)

// Answer is the outcome of a [Confirm] prompt.
type Answer int

const (
	// AnswerNone means the prompt timed out or was stopped without a choice.
	AnswerNone Answer = iota
	AnswerAccepted
	AnswerDenied
)

// String returns the answer name.
func (a Answer) String() string {
	switch a {
	case AnswerAccepted:
		return "accepted"
	case AnswerDenied:
		return "denied"
	default:
		return "none"
	}
}

// ConfirmOptions tune a [Confirm] prompt.
type ConfirmOptions struct {
	// Timeout defaults to [DefaultConfirmTimeout].
	Timeout time.Duration

	// KeepMessage leaves the prompt in place after it resolves.
	KeepMessage bool
}

// Confirm is an accept/deny prompt.
type Confirm struct {
	*Menu

	prompt View

	mu     sync.Mutex
	answer Answer
}

// NewConfirm creates a prompt rendering prompt.
func NewConfirm(host Host, prompt View, opts ConfirmOptions) *Confirm {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultConfirmTimeout
	}
	c := &Confirm{prompt: prompt}
	c.Menu = New(host, ContentFunc(func(context.Context) (View, error) { return c.prompt, nil }),
		Options{
			Kind:               "confirm",
			Timeout:            opts.Timeout,
			DeleteMessageAfter: !opts.KeepMessage,
		},
		Button{Symbol: SymbolAccept, Handler: c.resolve(AnswerAccepted)},
		Button{Symbol: SymbolDeny, Handler: c.resolve(AnswerDenied)},
	)
	return c
}

// Prompt shows the prompt in channelID to actorID and blocks until it is
// answered, times out or ctx is done.
func (c *Confirm) Prompt(ctx context.Context, channelID, actorID string) (Answer, error) {
	if err := c.Start(ctx, channelID, actorID); err != nil {
		return AnswerNone, err
	}
	if err := c.Wait(ctx); err != nil {
		c.Stop()
		return AnswerNone, err
	}
	return c.Answer(), nil
}

// Answer returns the resolved answer, [AnswerNone] until one was given.
func (c *Confirm) Answer() Answer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answer
}

func (c *Confirm) resolve(a Answer) Handler {
	return func(context.Context, Input) error {
		c.mu.Lock()
		if c.answer == AnswerNone {
			c.answer = a
		}
		c.mu.Unlock()
		c.Stop()
		return nil
	}
}
