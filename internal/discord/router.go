package discord

import (
	"context"
	"log/slog"
	"runtime/debug"
	"slices"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/cadence/internal/observe"
)

// HandlerFunc is the signature for slash command handlers.
type HandlerFunc func(s *discordgo.Session, i *discordgo.InteractionCreate)

// AutocompleteFunc is the signature for autocomplete handlers.
type AutocompleteFunc func(s *discordgo.Session, i *discordgo.InteractionCreate)

// Interaction results reported to [observe.Metrics.RecordInteraction].
const (
	resultOK      = "ok"
	resultUnknown = "unknown"
	resultPanic   = "panic"
)

const msgInternalError = "Something went wrong while running that command."

// CommandRouter dispatches Discord interactions to registered handlers by
// key. A key is the command name, optionally followed by the subcommand group
// and subcommand: "volume", "queue/show" or "admin/nodes/list".
type CommandRouter struct {
	metrics *observe.Metrics

	mu           sync.RWMutex
	handlers     map[string]HandlerFunc
	autocomplete map[string]AutocompleteFunc
	definitions  []*discordgo.ApplicationCommand
}

// RouterOption configures a [CommandRouter].
type RouterOption func(*CommandRouter)

// WithRouterMetrics records every dispatched interaction on m.
func WithRouterMetrics(m *observe.Metrics) RouterOption {
	return func(r *CommandRouter) { r.metrics = m }
}

// NewCommandRouter creates an empty router.
func NewCommandRouter(opts ...RouterOption) *CommandRouter {
	r := &CommandRouter{
		handlers:     make(map[string]HandlerFunc),
		autocomplete: make(map[string]AutocompleteFunc),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// RegisterCommand routes key to handler and adds cmd to the definitions sent
// to Discord. Registering a definition with a name that is already known
// replaces the earlier one in place.
func (r *CommandRouter) RegisterCommand(key string, cmd *discordgo.ApplicationCommand, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[key] = handler
	if cmd == nil {
		return
	}
	idx := slices.IndexFunc(r.definitions, func(c *discordgo.ApplicationCommand) bool { return c.Name == cmd.Name })
	if idx >= 0 {
		r.definitions[idx] = cmd
		return
	}
	r.definitions = append(r.definitions, cmd)
}

// RegisterHandler routes key to handler without a definition. Subcommands
// use it; their parent command carries the definition.
func (r *CommandRouter) RegisterHandler(key string, handler HandlerFunc) {
	r.RegisterCommand(key, nil, handler)
}

// RegisterAutocomplete registers an autocomplete handler.
func (r *CommandRouter) RegisterAutocomplete(key string, handler AutocompleteFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.autocomplete[key] = handler
}

// ApplicationCommands returns the top-level definitions in registration
// order.
func (r *CommandRouter) ApplicationCommands() []*discordgo.ApplicationCommand {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.definitions)
}

// Keys returns every routed key, sorted.
func (r *CommandRouter) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Handle dispatches an interaction to the appropriate handler. A panicking
// handler is logged and answered with a generic error instead of taking the
// gateway goroutine down.
func (r *CommandRouter) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	r.serve(s, s, i)
}

// serve routes i to its handler, which receives s. Router-level replies go
// through resp.
func (r *CommandRouter) serve(resp Responder, s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		key := interactionKey(i.ApplicationCommandData())
		r.mu.RLock()
		h, ok := r.handlers[key]
		r.mu.RUnlock()
		if !ok {
			slog.Warn("discord: unknown command", "key", key)
			r.record("command", key, resultUnknown)
			RespondEphemeral(resp, i, "Unknown command.")
			return
		}
		r.dispatch("command", key, resp, s, i, h)

	case discordgo.InteractionApplicationCommandAutocomplete:
		key := interactionKey(i.ApplicationCommandData())
		r.mu.RLock()
		h, ok := r.autocomplete[key]
		r.mu.RUnlock()
		if !ok {
			slog.Debug("discord: no autocomplete handler", "key", key)
			r.record("autocomplete", key, resultUnknown)
			RespondChoices(resp, i, nil)
			return
		}
		r.dispatch("autocomplete", key, resp, s, i, h)

	default:
		slog.Debug("discord: unhandled interaction type", "type", i.Type)
	}
}

func (r *CommandRouter) dispatch(kind, key string, resp Responder, s *discordgo.Session, i *discordgo.InteractionCreate, h func(*discordgo.Session, *discordgo.InteractionCreate)) {
	defer func() {
		v := recover()
		if v == nil {
			r.record(kind, key, resultOK)
			return
		}
		slog.Error("discord: handler panicked", "kind", kind, "key", key, "panic", v, "stack", string(debug.Stack()))
		r.record(kind, key, resultPanic)
		if kind == "command" {
			RespondEphemeral(resp, i, msgInternalError)
		}
	}()
	h(s, i)
}

func (r *CommandRouter) record(kind, key, result string) {
	r.metrics.RecordInteraction(context.Background(), kind, key, result)
}

// interactionKey builds a router key from the command name and the chain of
// subcommand groups and subcommands in its options.
func interactionKey(data discordgo.ApplicationCommandInteractionData) string {
	parts := []string{data.Name}
	opts := data.Options
	for len(opts) > 0 {
		o := opts[0]
		if o.Type != discordgo.ApplicationCommandOptionSubCommand && o.Type != discordgo.ApplicationCommandOptionSubCommandGroup {
			break
		}
		parts = append(parts, o.Name)
		opts = o.Options
	}
	return strings.Join(parts, "/")
}
