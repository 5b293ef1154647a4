// Package app wires all cadence subsystems into a running bot.
//
// The App struct owns the full lifecycle: New connects to Discord and the
// Lavalink nodes and registers the music commands, Run serves the health and
// metrics endpoints until the context ends, and Shutdown tears everything
// down in order.
//
// For testing, inject doubles via functional options ([WithSurface],
// [WithNode]). When an option is not provided, New creates the real
// implementation from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/MrWong99/cadence/internal/config"
	"github.com/MrWong99/cadence/internal/discord"
	"github.com/MrWong99/cadence/internal/discord/commands"
	"github.com/MrWong99/cadence/internal/health"
	"github.com/MrWong99/cadence/internal/lavalink"
	"github.com/MrWong99/cadence/internal/menu"
	"github.com/MrWong99/cadence/internal/music"
	"github.com/MrWong99/cadence/internal/observe"
	"github.com/MrWong99/cadence/internal/player"
	"github.com/MrWong99/cadence/internal/resilience"
	"github.com/MrWong99/cadence/internal/search"
	"github.com/MrWong99/cadence/pkg/audio"
)

// httpShutdownTimeout bounds how long in-flight health requests may take once
// Run is cancelled.
const httpShutdownTimeout = 5 * time.Second

// Directory resolves names and voice states for menus and commands.
// [discord.StateDirectory] implements it.
type Directory interface {
	music.Directory
	commands.VoiceDirectory
}

// Surface is the chat platform side of the bot: where commands arrive, where
// menus are drawn and where their inputs come from.
type Surface struct {
	Router    *discord.CommandRouter
	Renderer  menu.Renderer
	Inputs    menu.Inputs
	Directory Directory

	// Permissions is optional.
	Permissions commands.JoinChecker
}

// App owns all subsystem lifetimes of the bot.
type App struct {
	cfg     *config.Config
	metrics *observe.Metrics
	scrape  http.Handler

	// Subsystems, initialised in New and torn down in Shutdown.
	bot      *discord.Bot
	lavalink *lavalink.Node
	surface  *Surface
	node     audio.Node
	players  *player.Manager
	resolver *search.Resolver
	commands *commands.MusicCommands
	server   *http.Server

	mu   sync.Mutex
	addr net.Addr

	// closers are called in reverse order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithSurface injects the chat platform instead of connecting to Discord.
func WithSurface(s *Surface) Option {
	return func(a *App) { a.surface = s }
}

// WithNode injects an audio node instead of connecting to Lavalink.
func WithNode(n audio.Node) Option {
	return func(a *App) { a.node = n }
}

// WithMetrics overrides the metrics instruments. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithMetricsHandler sets the /metrics handler, typically
// [observe.Provider.Handler]. Default: [observe.MetricsHandler].
func WithMetricsHandler(h http.Handler) Option {
	return func(a *App) { a.scrape = h }
}

// New creates an App by wiring all subsystems together. Without options it
// opens the Discord gateway and connects every configured Lavalink node, so
// it fails when neither Discord nor any node is reachable.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.scrape == nil {
		a.scrape = observe.MetricsHandler()
	}

	if err := a.initDiscord(ctx); err != nil {
		a.closeAll(context.Background())
		return nil, fmt.Errorf("app: init discord: %w", err)
	}
	if err := a.initNode(ctx); err != nil {
		a.closeAll(context.Background())
		return nil, fmt.Errorf("app: init lavalink: %w", err)
	}
	if err := a.initMusic(); err != nil {
		a.closeAll(context.Background())
		return nil, fmt.Errorf("app: init music: %w", err)
	}
	a.initHTTP()

	return a, nil
}

// initDiscord opens the gateway unless a surface was injected.
func (a *App) initDiscord(ctx context.Context) error {
	if a.surface != nil {
		return nil
	}
	bot, err := discord.New(ctx, discord.Config{
		Token:   a.cfg.Discord.Token,
		GuildID: a.cfg.Discord.GuildID,
		Metrics: a.metrics,
	})
	if err != nil {
		return err
	}
	a.bot = bot
	a.closers = append(a.closers, bot.Close)
	a.surface = &Surface{
		Router:      bot.Router(),
		Renderer:    bot.Renderer(),
		Inputs:      bot.Reactions(),
		Directory:   bot.Directory(),
		Permissions: discord.NewPermissionChecker(bot.Directory(), bot.UserID),
	}
	return nil
}

// initNode connects the Lavalink nodes unless a node was injected. The nodes
// need the bot's user ID, so the gateway must be open first.
func (a *App) initNode(ctx context.Context) error {
	if a.node != nil {
		return nil
	}
	if a.bot == nil {
		return errors.New("an injected surface needs an injected audio node")
	}

	servers := make([]lavalink.ServerConfig, 0, len(a.cfg.Lavalink.Nodes))
	for _, n := range a.cfg.Lavalink.Nodes {
		servers = append(servers, lavalink.ServerConfig{
			Name:     n.Name,
			Address:  n.Address,
			Password: n.Password,
			Secure:   n.Secure,
		})
	}
	node, err := lavalink.New(ctx, lavalink.Config{
		UserID:  a.bot.UserID(),
		Servers: servers,
		Voice:   a.bot.Session(),
		Breaker: resilience.CircuitBreakerConfig{
			MaxFailures:  a.cfg.Lavalink.Breaker.MaxFailures,
			ResetTimeout: a.cfg.Lavalink.Breaker.ResetTimeout,
			OnStateChange: func(name string, from, to resilience.State) {
				slog.Warn("lavalink: breaker state changed", "node", name, "from", from.String(), "to", to.String())
			},
		},
		Metrics: a.metrics,
	})
	if err != nil {
		return err
	}
	a.lavalink = node
	a.node = node
	a.closers = append(a.closers, func() error {
		node.Close()
		return nil
	})

	// Lavalink opens voice connections itself and needs the gateway's voice
	// credentials.
	session := a.bot.Session()
	session.AddHandler(func(s *discordgo.Session, e *discordgo.VoiceStateUpdate) {
		node.OnVoiceStateUpdate(s, e)
	})
	session.AddHandler(func(s *discordgo.Session, e *discordgo.VoiceServerUpdate) {
		node.OnVoiceServerUpdate(s, e)
	})
	return nil
}

// initMusic builds the session manager, the resolver and the commands.
func (a *App) initMusic() error {
	host := menu.Host{
		Renderer: a.surface.Renderer,
		Inputs:   a.surface.Inputs,
		Metrics:  a.metrics,
	}
	a.players = player.NewManager(player.ManagerConfig{
		Node:     a.node,
		Renderer: a.surface.Renderer,
		Metrics:  a.metrics,
		Volume:   a.cfg.Music.DefaultVolume,
		Colour:   a.cfg.Discord.EmbedColour,
	})

	resolver, err := search.New(search.Config{
		Node:      a.node,
		Prefix:    a.cfg.Lavalink.SearchPrefix,
		CacheSize: a.cfg.Music.SearchCacheSize,
		CacheTTL:  a.cfg.Music.SearchCacheTTL,
		Rate:      rate.Limit(a.cfg.Music.SearchRate),
		Burst:     a.cfg.Music.SearchBurst,
		Metrics:   a.metrics,
	})
	if err != nil {
		return err
	}
	a.resolver = resolver

	a.commands = commands.New(commands.Config{
		Players:  a.players,
		Resolver: resolver,
		Voice:    a.surface.Directory,
		Menus: music.Deps{
			Host:      host,
			Style:     StyleFrom(a.cfg),
			Directory: a.surface.Directory,
		},
		Permissions:    a.surface.Permissions,
		ConfirmTimeout: a.cfg.Music.ConfirmTimeout,
	})
	a.commands.Register(a.surface.Router)
	return nil
}

// initHTTP builds the health and metrics server.
func (a *App) initHTTP() {
	checkers := []health.Checker{
		{Name: "lavalink", Check: func(context.Context) error {
			if !a.node.Ready() {
				return audio.ErrNodeUnavailable
			}
			return nil
		}},
	}
	if a.bot != nil {
		checkers = append(checkers, health.Checker{Name: "discord", Check: a.bot.Check})
	}
	details := []health.Detail{
		{Name: "players", Value: func() any { return a.players.Len() }},
	}
	if a.lavalink != nil {
		checkers = append(checkers, health.Checker{Name: "breakers", Optional: true, Check: a.openBreakers})
		details = append(details, health.Detail{Name: "breakers", Value: func() any {
			states := make(map[string]string)
			for name, s := range a.lavalink.BreakerStates() {
				states[name] = s.String()
			}
			return states
		}})
	}

	mux := http.NewServeMux()
	health.New(checkers...).WithDetails(details...).Register(mux)
	mux.Handle("GET /metrics", a.scrape)

	a.server = &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           observe.Middleware(a.metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// openBreakers fails while the breaker of any Lavalink server is open.
func (a *App) openBreakers(context.Context) error {
	var open []string
	for name, s := range a.lavalink.BreakerStates() {
		if s == resilience.StateOpen {
			open = append(open, name)
		}
	}
	if len(open) == 0 {
		return nil
	}
	slices.Sort(open)
	return fmt.Errorf("circuit open: %s", strings.Join(open, ", "))
}

// StyleFrom derives the menu style from cfg.
func StyleFrom(cfg *config.Config) music.Style {
	return music.Style{
		Colour:        cfg.Discord.EmbedColour,
		RedLine:       cfg.Discord.Emoji.RedLine,
		WhiteLine:     cfg.Discord.Emoji.WhiteLine,
		BlueButton:    cfg.Discord.Emoji.BlueButton,
		MenuTimeout:   cfg.Music.MenuTimeout,
		QueuePageSize: cfg.Music.QueuePageSize,
	}
}

// Players returns the session manager.
func (a *App) Players() *player.Manager {
	return a.players
}

// Addr returns the address the HTTP server listens on, or nil before Run
// has bound it.
func (a *App) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addr
}

// Reload applies the hot-reloadable parts of cfg. Sessions that already run
// keep their volume and colour; new sessions and menus use the new values.
func (a *App) Reload(cfg *config.Config, diff config.ConfigDiff) {
	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()

	if diff.MusicChanged || diff.StyleChanged {
		a.players.SetDefaults(cfg.Music.DefaultVolume, cfg.Discord.EmbedColour)
		a.commands.SetStyle(StyleFrom(cfg), cfg.Music.ConfirmTimeout)
		slog.Info("app: music settings applied",
			"default_volume", cfg.Music.DefaultVolume,
			"menu_timeout", cfg.Music.MenuTimeout,
		)
	}
	for _, key := range diff.RestartRequired {
		slog.Warn("app: setting changed but needs a restart", "key", key)
	}
}

// Run registers the slash commands and serves the health and metrics
// endpoints. It blocks until ctx is cancelled and then returns ctx.Err(),
// or returns early when a subsystem fails.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("app: listen on %s: %w", a.server.Addr, err)
	}
	a.mu.Lock()
	a.addr = ln.Addr()
	a.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), httpShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	if a.bot != nil {
		g.Go(func() error { return a.bot.Run(gctx) })
	}

	slog.Info("app running", "listen_addr", ln.Addr().String(), "commands", len(a.surface.Router.ApplicationCommands()))
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}

// Shutdown destroys every playback session and then closes the nodes and the
// gateway. It respects the context deadline: if ctx expires before all
// closers finish, remaining closers are skipped and the context error is
// returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "players", a.players.Len(), "closers", len(a.closers))

		if err := a.players.Shutdown(ctx); err != nil {
			slog.Warn("destroying sessions failed", "err", err)
		}
		shutdownErr = a.closeAll(ctx)

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// closeAll runs the closers in reverse order.
func (a *App) closeAll(ctx context.Context) error {
	closers := slices.Clone(a.closers)
	slices.Reverse(closers)
	a.closers = nil

	for i, closer := range closers {
		select {
		case <-ctx.Done():
			slog.Warn("shutdown deadline exceeded", "remaining", len(closers)-i)
			return ctx.Err()
		default:
		}
		if err := closer(); err != nil {
			slog.Warn("closer error", "index", i, "err", err)
		}
	}
	return nil
}
