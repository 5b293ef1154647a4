// Package menu implements reaction-driven interactive menus: a rendered
// message with a fixed set of symbolic controls whose inputs are dispatched
// to handlers, one at a time, until the menu stops.
//
// A [Menu] is started with [Menu.Start], which renders the initial [View]
// through the [Content] hook, attaches the controls and installs an input
// subscription scoped to the rendered message. Only inputs from authorized
// actors that match a registered symbol are dispatched. A menu stops on an
// explicit [Menu.Stop], when its inactivity timeout elapses, or when its
// owner stops it; cleanup (message deletion or control removal) happens
// exactly once.
//
// [Pages] and [Confirm] are ready-made specializations for paginated lists
// and accept/deny prompts.
package menu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrWong99/cadence/internal/observe"
)

// DefaultTimeout is the inactivity timeout used when [Options.Timeout] is zero.
const DefaultTimeout = 180 * time.Second

// inputBuffer is the number of undispatched inputs a menu holds before
// dropping new ones.
const inputBuffer = 64

// cleanupTimeout bounds the message deletion or control removal on stop.
const cleanupTimeout = 10 * time.Second

var (
	// ErrAlreadyStarted is returned when Start is called twice on one menu.
	ErrAlreadyStarted = errors.New("menu: already started")

	// ErrStopped is returned when Start is called on a menu that was
	// stopped before it ever started.
	ErrStopped = errors.New("menu: stopped")
)

// Content renders the current state of a menu.
type Content interface {
	Render(ctx context.Context) (View, error)
}

// ContentFunc adapts a function to [Content].
type ContentFunc func(ctx context.Context) (View, error)

// Render calls f.
func (f ContentFunc) Render(ctx context.Context) (View, error) { return f(ctx) }

// Handler reacts to one dispatched input. Handlers of one menu never run
// concurrently. Errors are logged and do not stop the menu.
type Handler func(ctx context.Context, in Input) error

// Button binds a control symbol to its handler.
type Button struct {
	Symbol  string
	Handler Handler
}

// Host bundles the collaborators every menu needs.
type Host struct {
	Renderer Renderer
	Inputs   Inputs

	// Metrics is optional.
	Metrics *observe.Metrics
}

// Options tune a single menu.
type Options struct {
	// Kind labels the menu in logs and metrics (e.g., "player").
	Kind string

	// Timeout is the inactivity timeout, reset after every dispatched
	// input. Default: [DefaultTimeout].
	Timeout time.Duration

	// DeleteMessageAfter deletes the rendered message on stop.
	DeleteMessageAfter bool

	// ClearControlsAfter removes the attached controls on stop. Ignored
	// when DeleteMessageAfter is set.
	ClearControlsAfter bool

	// Authorize decides which actors may use the menu. Default: only the
	// actor that started it.
	Authorize func(actorID string) bool
}

// Menu is a running (or not yet started) interactive menu. Create one with
// [New]; the zero value is not usable.
type Menu struct {
	host    Host
	content Content
	opts    Options
	buttons []Button
	index   map[string]Handler

	mu        sync.Mutex
	msg       Message
	actorID   string
	started   bool
	stopHooks []func()

	stopped  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
	queue    chan Input
}

// New creates a menu rendering content with the given buttons. Buttons are
// attached in the order given; a later button with the same symbol replaces
// the handler of an earlier one.
func New(host Host, content Content, opts Options, buttons ...Button) *Menu {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Kind == "" {
		opts.Kind = "menu"
	}
	m := &Menu{
		host:    host,
		content: content,
		opts:    opts,
		index:   make(map[string]Handler, len(buttons)),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
		queue:   make(chan Input, inputBuffer),
	}
	for _, b := range buttons {
		key := canonical(b.Symbol)
		if _, dup := m.index[key]; !dup {
			m.buttons = append(m.buttons, b)
		}
		m.index[key] = b.Handler
	}
	return m
}

// Start renders the initial view in channelID and begins accepting inputs
// from actorID. It returns once the message exists; inputs are handled on
// a goroutine owned by the menu until it stops.
func (m *Menu) Start(ctx context.Context, channelID, actorID string) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	if m.stopped.Load() {
		m.mu.Unlock()
		return ErrStopped
	}
	m.started = true
	m.actorID = actorID
	m.mu.Unlock()

	view, err := m.content.Render(ctx)
	if err == nil {
		var msg Message
		msg, err = m.host.Renderer.Send(ctx, channelID, view)
		if err == nil {
			m.mu.Lock()
			m.msg = msg
			m.mu.Unlock()
		}
	}
	if err != nil {
		m.Stop()
		close(m.done)
		return fmt.Errorf("menu: start %s: %w", m.opts.Kind, err)
	}

	m.host.Metrics.AddActiveMenus(ctx, 1)
	cancel := m.host.Inputs.Subscribe(m.msg.ID, m.deliver)
	go m.run(context.WithoutCancel(ctx), cancel)

	if len(m.buttons) == 0 {
		m.Stop()
	}
	return nil
}

// Stop stops the menu. It is safe to call any number of times from any
// goroutine, including handlers; only the first call has an effect. Stop
// hooks run before it returns, while message cleanup happens asynchronously
// on the menu goroutine (see [Menu.Wait]).
func (m *Menu) Stop() {
	m.stopOnce.Do(func() {
		m.stopped.Store(true)
		close(m.stopCh)

		m.mu.Lock()
		hooks := m.stopHooks
		m.stopHooks = nil
		started := m.started
		m.mu.Unlock()

		for _, h := range hooks {
			h()
		}
		if !started {
			close(m.done)
		}
	})
}

// OnStop registers fn to run synchronously when the menu stops. If the menu
// is already stopped, fn runs immediately.
func (m *Menu) OnStop(fn func()) {
	m.mu.Lock()
	if !m.stopped.Load() {
		m.stopHooks = append(m.stopHooks, fn)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	fn()
}

// Stopped reports whether the menu has been stopped.
func (m *Menu) Stopped() bool {
	return m.stopped.Load()
}

// Done is closed once the menu stopped and finished its cleanup.
func (m *Menu) Done() <-chan struct{} {
	return m.done
}

// Wait blocks until the menu finished its cleanup or ctx is done.
func (m *Menu) Wait(ctx context.Context) error {
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Message returns the rendered message. It is the zero value before Start.
func (m *Menu) Message() Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.msg
}

// Actor returns the actor that started the menu.
func (m *Menu) Actor() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.actorID
}

// Kind returns the menu's label.
func (m *Menu) Kind() string {
	return m.opts.Kind
}

// Refresh re-renders the content into the existing message. It is a no-op
// on a stopped or unstarted menu.
func (m *Menu) Refresh(ctx context.Context) error {
	view, err := m.content.Render(ctx)
	if err != nil {
		return fmt.Errorf("menu: render %s: %w", m.opts.Kind, err)
	}
	return m.Show(ctx, view)
}

// Show replaces the message content with v without consulting the content
// hook.
func (m *Menu) Show(ctx context.Context, v View) error {
	msg := m.Message()
	if m.Stopped() || msg.ID == "" {
		return nil
	}
	if err := m.host.Renderer.Edit(ctx, msg, v); err != nil {
		if errors.Is(err, ErrMessageGone) {
			m.Stop()
			return nil
		}
		return fmt.Errorf("menu: edit %s: %w", m.opts.Kind, err)
	}
	return nil
}

// deliver filters and enqueues an input. It runs on the input source's
// goroutine and never blocks.
func (m *Menu) deliver(in Input) {
	if m.stopped.Load() {
		return
	}
	if _, ok := m.index[canonical(in.Symbol)]; !ok {
		return
	}
	if !m.authorized(in.ActorID) {
		return
	}
	select {
	case m.queue <- in:
	default:
		slog.Warn("menu: input dropped, queue full", "kind", m.opts.Kind, "symbol", in.Symbol)
	}
}

func (m *Menu) authorized(actorID string) bool {
	if m.opts.Authorize != nil {
		return m.opts.Authorize(actorID)
	}
	return actorID == m.Actor()
}

// run is the menu goroutine: it attaches controls, dispatches inputs in
// arrival order and performs cleanup once.
func (m *Menu) run(ctx context.Context, unsubscribe func()) {
	ctx, cancel := context.WithCancel(ctx)
	defer close(m.done)

	attached := make(chan struct{})
	go func() {
		defer close(attached)
		m.attachControls(ctx)
	}()

	timer := time.NewTimer(m.opts.Timeout)
	m.loop(ctx, timer)
	timer.Stop()

	unsubscribe()
	cancel()
	<-attached

	cctx, ccancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer ccancel()
	m.cleanup(cctx)
	m.host.Metrics.AddActiveMenus(cctx, -1)
}

func (m *Menu) loop(ctx context.Context, timer *time.Timer) {
	for {
		select {
		case <-m.stopCh:
			return
		case <-timer.C:
			slog.Debug("menu: timed out", "kind", m.opts.Kind, "message_id", m.Message().ID)
			m.Stop()
			return
		case in := <-m.queue:
			if m.stopped.Load() {
				return
			}
			m.dispatch(ctx, in)
			timer.Reset(m.opts.Timeout)
		}
	}
}

func (m *Menu) attachControls(ctx context.Context) {
	if len(m.buttons) == 0 {
		return
	}
	symbols := make([]string, len(m.buttons))
	for i, b := range m.buttons {
		symbols[i] = b.Symbol
	}
	if err := m.host.Renderer.AddControls(ctx, m.Message(), symbols); err != nil && ctx.Err() == nil {
		if errors.Is(err, ErrMessageGone) {
			m.Stop()
			return
		}
		slog.Warn("menu: failed to attach controls", "kind", m.opts.Kind, "err", err)
	}
}

func (m *Menu) dispatch(ctx context.Context, in Input) {
	msg := m.Message()
	if err := m.host.Renderer.RemoveInput(ctx, msg, in.Symbol, in.ActorID); err != nil && !errors.Is(err, ErrMessageGone) {
		slog.Debug("menu: failed to reset input", "kind", m.opts.Kind, "symbol", in.Symbol, "err", err)
	}

	m.host.Metrics.RecordMenuInput(ctx, m.opts.Kind, in.Symbol)
	if err := m.index[canonical(in.Symbol)](ctx, in); err != nil {
		slog.Warn("menu: button handler failed",
			"kind", m.opts.Kind,
			"symbol", in.Symbol,
			"actor_id", in.ActorID,
			"err", err,
		)
	}
}

func (m *Menu) cleanup(ctx context.Context) {
	msg := m.Message()
	var err error
	switch {
	case m.opts.DeleteMessageAfter:
		err = m.host.Renderer.Delete(ctx, msg)
	case m.opts.ClearControlsAfter:
		err = m.host.Renderer.ClearControls(ctx, msg)
	default:
		return
	}
	if err != nil && !errors.Is(err, ErrMessageGone) {
		slog.Warn("menu: cleanup failed", "kind", m.opts.Kind, "message_id", msg.ID, "err", err)
	}
}

// canonical drops emoji variation selectors, which platforms add or strip
// from reported reactions at will.
func canonical(symbol string) string {
	return strings.ReplaceAll(symbol, "\ufe0f", "")
}
