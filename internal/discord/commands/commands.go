// Package commands implements the music slash commands. Every command runs
// through the same access check and maps collaborator failures to a short
// user-facing reply.
package commands

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/cadence/internal/discord"
	"github.com/MrWong99/cadence/internal/music"
	"github.com/MrWong99/cadence/internal/observe"
	"github.com/MrWong99/cadence/internal/player"
	"github.com/MrWong99/cadence/internal/resilience"
	"github.com/MrWong99/cadence/internal/search"
	"github.com/MrWong99/cadence/pkg/audio"
)

// DefaultTimeout bounds a single command that does not wait on a prompt.
const DefaultTimeout = 15 * time.Second

// Replies shared by several commands.
const (
	msgGuildOnly      = "Music commands can only be used in a server."
	msgNotReady       = "Music commands aren't ready yet. Try again in a bit."
	msgNotInVoice     = "You must be in a voice channel to use this command."
	msgNotSameVoice   = "You must be in the same voice channel as me to use this command."
	msgNotPlaying     = "I am not currently playing anything."
	msgNoMatches      = "Could not find any songs with that query."
	msgQueueFull      = "Sorry, only `100` songs can be in the queue at a time."
	msgUnavailable    = "Music is not available right now. Try again later."
	msgRateLimited    = "You are searching too fast. Slow down a little."
	msgNotConnected   = "I am not connected to a voice channel."
	msgEmptyQueue     = "Nothing in the queue!"
	msgInternalFailed = "Something went wrong. Please try again."
)

// Denial is a command rejected before it changed anything. Its text is the
// reply shown to the user.
type Denial string

func (d Denial) Error() string { return string(d) }

// VoiceDirectory locates users in voice and names channels.
// [discord.StateDirectory] implements it.
type VoiceDirectory interface {
	UserVoiceChannel(guildID, userID string) string
	ChannelName(channelID string) string
}

// JoinChecker reports whether the bot may join a voice channel.
// [discord.PermissionChecker] implements it.
type JoinChecker interface {
	CanJoin(channelID string) error
}

// Config holds the dependencies of [MusicCommands].
type Config struct {
	Players  *player.Manager
	Resolver *search.Resolver
	Voice    VoiceDirectory

	// Menus is used for every menu a command opens.
	Menus music.Deps

	// Permissions is optional. Without it joins are attempted unchecked.
	Permissions JoinChecker

	// ConfirmTimeout bounds the /queue clear prompt.
	// Default: menu.DefaultConfirmTimeout.
	ConfirmTimeout time.Duration

	// Timeout bounds every other command. Default: [DefaultTimeout].
	Timeout time.Duration
}

// Request is the invocation context of a command.
type Request struct {
	GuildID   string
	ChannelID string
	User      audio.Requester
}

// MusicCommands owns the music slash commands.
type MusicCommands struct {
	players  *player.Manager
	resolver *search.Resolver
	voice    VoiceDirectory
	perms    JoinChecker
	timeout  time.Duration

	mu             sync.RWMutex
	menus          music.Deps
	confirmTimeout time.Duration

	// starts serializes the started check and Start per guild.
	starts sync.Map
}

// New creates the music commands.
func New(cfg Config) *MusicCommands {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &MusicCommands{
		players:        cfg.Players,
		resolver:       cfg.Resolver,
		voice:          cfg.Voice,
		perms:          cfg.Permissions,
		timeout:        cfg.Timeout,
		menus:          cfg.Menus,
		confirmTimeout: cfg.ConfirmTimeout,
	}
}

// SetStyle changes the look of menus opened from now on.
func (mc *MusicCommands) SetStyle(style music.Style, confirmTimeout time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.menus.Style = style
	mc.confirmTimeout = confirmTimeout
}

func (mc *MusicCommands) deps() music.Deps {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.menus
}

func (mc *MusicCommands) startLock(guildID string) *sync.Mutex {
	v, _ := mc.starts.LoadOrStore(guildID, new(sync.Mutex))
	return v.(*sync.Mutex)
}

// access applies the checks every music command shares and returns the
// live session of the guild, or nil when there is none. With playing set the
// session must have a current track.
func (mc *MusicCommands) access(req Request, playing bool) (*player.Controller, error) {
	if req.GuildID == "" {
		return nil, Denial(msgGuildOnly)
	}
	if !mc.players.Node().Ready() {
		return nil, Denial(msgNotReady)
	}
	ctrl, _ := mc.players.Lookup(req.GuildID)
	if ctrl != nil {
		if botChannel := ctrl.VoiceChannelID(); botChannel != "" {
			userChannel := mc.voice.UserVoiceChannel(req.GuildID, req.User.ID)
			switch {
			case userChannel == "":
				return nil, Denial(msgNotInVoice)
			case userChannel != botChannel:
				return nil, Denial(msgNotSameVoice)
			}
		}
	}
	if playing && (ctrl == nil || !ctrl.Playing()) {
		return nil, Denial(msgNotPlaying)
	}
	return ctrl, nil
}

// userMessage turns a command error into its reply.
func userMessage(err error) string {
	var d Denial
	switch {
	case errors.As(err, &d):
		return string(d)
	case errors.Is(err, audio.ErrNodeUnavailable), errors.Is(err, resilience.ErrCircuitOpen):
		return msgUnavailable
	case errors.Is(err, search.ErrRateLimited):
		return msgRateLimited
	case errors.Is(err, search.ErrNoMatches):
		return msgNoMatches
	case errors.Is(err, player.ErrQueueFull):
		return msgQueueFull
	case errors.Is(err, player.ErrDestroyed), errors.Is(err, player.ErrNotStarted):
		return msgNotPlaying
	default:
		return msgInternalFailed
	}
}

// expected reports whether err is a normal outcome that needs no log entry.
func expected(err error) bool {
	var d Denial
	return errors.As(err, &d) ||
		errors.Is(err, search.ErrNoMatches) ||
		errors.Is(err, search.ErrRateLimited) ||
		errors.Is(err, player.ErrQueueFull)
}

// requestFrom extracts the invocation context of a guild interaction.
func requestFrom(i *discordgo.InteractionCreate) (Request, bool) {
	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		return Request{}, false
	}
	u := i.Member.User
	name := i.Member.Nick
	if name == "" {
		name = u.GlobalName
	}
	if name == "" {
		name = u.Username
	}
	return Request{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		User:      audio.Requester{ID: u.ID, Name: name},
	}, true
}

// operation computes the reply of one command.
type operation func(ctx context.Context, req Request, opts options) (string, error)

// command describes how a reply is delivered.
type command struct {
	run operation

	// deferred acknowledges first and follows up with the reply, for
	// commands that may outlast the interaction deadline.
	deferred bool

	// ephemeral shows successful replies to the invoking user only.
	ephemeral bool

	// timeout overrides the default command timeout.
	timeout func() time.Duration
}

func (mc *MusicCommands) handler(name string, c command) discord.HandlerFunc {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		mc.dispatch(s, i, name, c)
	}
}

func (mc *MusicCommands) dispatch(s discord.Responder, i *discordgo.InteractionCreate, name string, c command) {
	req, ok := requestFrom(i)
	if !ok {
		discord.RespondEphemeral(s, i, msgGuildOnly)
		return
	}
	timeout := mc.timeout
	if c.timeout != nil {
		timeout = c.timeout()
	}
	ctx, cancel := context.WithTimeout(observe.WithGuild(context.Background(), req.GuildID), timeout)
	defer cancel()
	ctx, span := observe.StartSpan(ctx, "commands."+name)
	defer span.End()

	if c.deferred {
		discord.DeferReply(s, i)
	}
	reply, err := c.run(ctx, req, optionsOf(i.ApplicationCommandData()))
	if err != nil {
		if !expected(err) {
			observe.Logger(ctx).Warn("commands: command failed", "command", name, "user_id", req.User.ID, "err", err)
		}
		reply = userMessage(err)
	}

	switch {
	case c.deferred:
		discord.FollowUp(s, i, reply)
	case err != nil || c.ephemeral:
		discord.RespondEphemeral(s, i, reply)
	default:
		discord.Respond(s, i, reply)
	}
}

// options indexes the options of a command or of its invoked subcommand.
type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionsOf(data discordgo.ApplicationCommandInteractionData) options {
	opts := data.Options
	if len(opts) > 0 && (opts[0].Type == discordgo.ApplicationCommandOptionSubCommand ||
		opts[0].Type == discordgo.ApplicationCommandOptionSubCommandGroup) {
		opts = opts[0].Options
	}
	out := make(options, len(opts))
	for _, o := range opts {
		out[o.Name] = o
	}
	return out
}

func (o options) str(name string) string {
	opt, ok := o[name]
	if !ok {
		return ""
	}
	s, _ := opt.Value.(string)
	return s
}

func (o options) integer(name string) (int, bool) {
	opt, ok := o[name]
	if !ok {
		return 0, false
	}
	switch v := opt.Value.(type) {
	case float64:
		return int(v), true
	case int64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}
