// Package discord provides the Discord layer for Cadence. It owns the
// discordgo.Session lifecycle, routes slash command interactions to
// registered handlers, renders menus as embeds and turns message reactions
// into menu inputs.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/cadence/internal/observe"
)

// Config holds Discord bot configuration.
type Config struct {
	// Token is the Discord bot token without the "Bot " prefix.
	Token string `yaml:"token"`

	// GuildID restricts command registration to one guild. Empty registers
	// commands globally.
	GuildID string `yaml:"guild_id"`

	// Metrics records routed interactions. Nil disables recording.
	Metrics *observe.Metrics `yaml:"-"`
}

// Intents are the gateway intents the bot needs: guilds and voice states for
// the state cache, guild messages and reactions for menus.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsGuildVoiceStates

// Bot owns the Discord gateway connection and routes interactions
// to registered command handlers.
type Bot struct {
	mu        sync.RWMutex
	session   *discordgo.Session
	router    *CommandRouter
	reactions *ReactionHub
	renderer  *EmbedRenderer
	directory *StateDirectory
	guildID   string
	commands  []*discordgo.ApplicationCommand
	closeOnce sync.Once
}

// New creates a Bot, connects to Discord and registers the interaction and
// reaction handlers. Extra handlers (for example voice update forwarding)
// are added to the session before it opens.
func New(_ context.Context, cfg Config, handlers ...any) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	session.Identify.Intents = Intents

	b := &Bot{
		session:   session,
		router:    NewCommandRouter(WithRouterMetrics(cfg.Metrics)),
		reactions: NewReactionHub(),
		renderer:  NewEmbedRenderer(session),
		directory: NewStateDirectory(session.State),
		guildID:   cfg.GuildID,
	}

	session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		b.router.Handle(s, i)
	})
	session.AddHandler(b.reactions.OnReactionAdd)
	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.reactions.SetSelf(r.User.ID)
		slog.Info("discord: gateway ready", "user", r.User.Username, "guilds", len(r.Guilds))
	})
	for _, h := range handlers {
		session.AddHandler(h)
	}

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("discord: open session: %w", err)
	}
	if session.State.User != nil {
		b.reactions.SetSelf(session.State.User.ID)
	}
	return b, nil
}

// GuildID returns the guild commands are registered in.
func (b *Bot) GuildID() string {
	return b.guildID
}

// UserID returns the bot's own user ID.
func (b *Bot) UserID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.session.State.User == nil {
		return ""
	}
	return b.session.State.User.ID
}

// Session returns the underlying discordgo session.
func (b *Bot) Session() *discordgo.Session {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.session
}

// Router returns the command router for registering handlers.
func (b *Bot) Router() *CommandRouter {
	return b.router
}

// Reactions returns the reaction input hub used by menus.
func (b *Bot) Reactions() *ReactionHub {
	return b.reactions
}

// Renderer returns the embed renderer used by menus.
func (b *Bot) Renderer() *EmbedRenderer {
	return b.renderer
}

// Directory resolves guild, channel and voice state information from the
// gateway cache.
func (b *Bot) Directory() *StateDirectory {
	return b.directory
}

// Check reports whether the gateway connection is up. It is shaped for
// readiness checks.
func (b *Bot) Check(context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.session.DataReady {
		return errors.New("discord: gateway not ready")
	}
	return nil
}

// Run registers slash commands with the Discord API and blocks until
// ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	appID := b.UserID()

	cmds := b.router.ApplicationCommands()
	if len(cmds) > 0 {
		registered, err := b.session.ApplicationCommandBulkOverwrite(appID, b.guildID, cmds)
		if err != nil {
			return fmt.Errorf("discord: register commands: %w", err)
		}
		b.mu.Lock()
		b.commands = registered
		b.mu.Unlock()
		slog.Info("discord: commands registered", "count", len(registered), "guild_id", b.guildID)
	}

	<-ctx.Done()
	return ctx.Err()
}

// Close unregisters commands and disconnects from Discord.
func (b *Bot) Close() error {
	var closeErr error
	b.closeOnce.Do(func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if b.session.State.User != nil {
			appID := b.session.State.User.ID
			for _, cmd := range b.commands {
				if err := b.session.ApplicationCommandDelete(appID, b.guildID, cmd.ID); err != nil {
					slog.Warn("discord: failed to delete command", "name", cmd.Name, "err", err)
				}
			}
		}

		if err := b.session.Close(); err != nil {
			closeErr = fmt.Errorf("discord: close session: %w", err)
		}
		slog.Info("discord: bot closed")
	})
	return closeErr
}
