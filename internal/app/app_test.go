package app_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/MrWong99/cadence/internal/app"
	"github.com/MrWong99/cadence/internal/config"
	"github.com/MrWong99/cadence/internal/discord"
	menumock "github.com/MrWong99/cadence/internal/menu/mock"
	audiomock "github.com/MrWong99/cadence/pkg/audio/mock"
)

type fakeDirectory struct{}

func (fakeDirectory) GuildName(string) string                { return "Test Guild" }
func (fakeDirectory) ChannelName(string) string              { return "Lobby" }
func (fakeDirectory) UserVoiceChannel(string, string) string { return "voice-1" }

// testConfig returns a defaulted config listening on a random port.
func testConfig() *config.Config {
	cfg := &config.Config{
		Server:  config.ServerConfig{ListenAddr: "127.0.0.1:0"},
		Discord: config.DiscordConfig{Token: "test-token"},
		Lavalink: config.LavalinkConfig{
			Nodes: []config.NodeConfig{{Name: "main", Address: "localhost:2333"}},
		},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

type fixture struct {
	app    *app.App
	router *discord.CommandRouter
	node   *audiomock.Node
}

func newApp(t *testing.T, cfg *config.Config) fixture {
	t.Helper()
	f := fixture{router: discord.NewCommandRouter(), node: audiomock.NewNode()}
	a, err := app.New(context.Background(), cfg,
		app.WithSurface(&app.Surface{
			Router:    f.router,
			Renderer:  menumock.NewRenderer(),
			Inputs:    menumock.NewInputs(),
			Directory: fakeDirectory{},
		}),
		app.WithNode(f.node),
	)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	f.app = a
	return f
}

func TestNew_RegistersCommands(t *testing.T) {
	t.Parallel()
	f := newApp(t, testConfig())

	cmds := f.router.ApplicationCommands()
	if len(cmds) != 13 {
		t.Fatalf("registered %d commands, want 13", len(cmds))
	}
	names := make(map[string]bool, len(cmds))
	for _, c := range cmds {
		names[c.Name] = true
	}
	for _, want := range []string{"play", "queue", "player", "volume", "disconnect"} {
		if !names[want] {
			t.Errorf("command %q not registered", want)
		}
	}
}

func TestNew_SurfaceWithoutNode(t *testing.T) {
	t.Parallel()
	_, err := app.New(context.Background(), testConfig(),
		app.WithSurface(&app.Surface{
			Router:    discord.NewCommandRouter(),
			Renderer:  menumock.NewRenderer(),
			Inputs:    menumock.NewInputs(),
			Directory: fakeDirectory{},
		}),
	)
	if err == nil {
		t.Fatal("expected error when the node cannot be created")
	}
}

func TestNew_UsesConfiguredVolume(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.Music.DefaultVolume = 120
	f := newApp(t, cfg)

	if got := f.app.Players().Get("guild-1").Volume(); got != 120 {
		t.Errorf("volume = %d, want 120", got)
	}
}

func TestReload_AppliesMusicDefaults(t *testing.T) {
	t.Parallel()
	old := testConfig()
	f := newApp(t, old)

	running := f.app.Players().Get("guild-1")

	updated := testConfig()
	updated.Music.DefaultVolume = 80
	f.app.Reload(updated, config.Diff(old, updated))

	if got := f.app.Players().Get("guild-2").Volume(); got != 80 {
		t.Errorf("new session volume = %d, want 80", got)
	}
	if got := running.Volume(); got != old.Music.DefaultVolume {
		t.Errorf("running session volume changed to %d", got)
	}
}

func TestStyleFrom(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.Discord.EmbedColour = 0x123456
	cfg.Music.QueuePageSize = 7

	s := app.StyleFrom(cfg)
	if s.Colour != 0x123456 || s.QueuePageSize != 7 || s.MenuTimeout != cfg.Music.MenuTimeout {
		t.Errorf("style = %+v", s)
	}
	if s.RedLine != cfg.Discord.Emoji.RedLine {
		t.Errorf("red line = %q, want %q", s.RedLine, cfg.Discord.Emoji.RedLine)
	}
}

func waitForAddr(t *testing.T, a *app.App) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if addr := a.Addr(); addr != nil {
			return addr.String()
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("server did not start listening")
	return ""
}

func TestApp_RunServesHealthEndpoints(t *testing.T) {
	t.Parallel()
	f := newApp(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- f.app.Run(ctx)
	}()
	base := "http://" + waitForAddr(t, f.app)

	for _, tc := range []struct {
		path string
		want int
	}{
		{"/healthz", http.StatusOK},
		{"/readyz", http.StatusOK},
		{"/metrics", http.StatusOK},
	} {
		resp, err := http.Get(base + tc.path)
		if err != nil {
			t.Fatalf("GET %s: %v", tc.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Errorf("GET %s: status = %d, want %d", tc.path, resp.StatusCode, tc.want)
		}
	}

	f.node.SetReady(false)
	resp, err := http.Get(base + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("readyz with node down: status = %d, want 503", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run() returned unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return within 5s after context cancellation")
	}
}

func TestApp_Shutdown(t *testing.T) {
	t.Parallel()
	f := newApp(t, testConfig())

	ctrl := f.app.Players().Get("guild-1")
	if _, err := ctrl.Enqueue(audiomock.Track("Song A")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := ctrl.Start(context.Background(), "text-1", "voice-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.app.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	if !ctrl.Destroyed() {
		t.Error("session should be destroyed on shutdown")
	}
	if got := f.node.MockPlayer("guild-1").DestroyCount(); got != 1 {
		t.Errorf("player destroy count = %d, want 1", got)
	}

	// A second call is a no-op.
	if err := f.app.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown() error: %v", err)
	}
}
