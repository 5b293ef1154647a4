package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/cadence/internal/config"
)

const minimalYAML = `
discord:
  token: test-token
lavalink:
  nodes:
    - address: localhost:2333
      password: youshallnotpass
`

func TestLoadFromReader_Defaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != config.DefaultListenAddr {
		t.Errorf("listen_addr: got %q, want %q", cfg.Server.ListenAddr, config.DefaultListenAddr)
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log_level: got %q, want %q", cfg.Server.LogLevel, config.LogInfo)
	}
	if cfg.Lavalink.SearchPrefix != "ytsearch" {
		t.Errorf("search_prefix: got %q", cfg.Lavalink.SearchPrefix)
	}
	if got := cfg.Lavalink.Nodes[0].Name; got != "localhost:2333" {
		t.Errorf("node name should default to the address, got %q", got)
	}
	if cfg.Lavalink.Breaker.MaxFailures != 5 || cfg.Lavalink.Breaker.ResetTimeout != 30*time.Second {
		t.Errorf("breaker: got %+v", cfg.Lavalink.Breaker)
	}

	m := cfg.Music
	if m.DefaultVolume != 40 || m.QueuePageSize != 5 || m.MenuTimeout != 180*time.Second || m.ConfirmTimeout != 120*time.Second {
		t.Errorf("music defaults: got %+v", m)
	}
	if m.SearchCacheSize != 256 || m.SearchCacheTTL != 10*time.Minute || m.SearchRate != 1 || m.SearchBurst != 3 {
		t.Errorf("search defaults: got %+v", m)
	}
	if cfg.Discord.Emoji.RedLine == "" || cfg.Discord.Emoji.WhiteLine == "" || cfg.Discord.Emoji.BlueButton == "" {
		t.Errorf("emoji defaults missing: %+v", cfg.Discord.Emoji)
	}
}

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":9090"
  log_level: debug
discord:
  token: test-token
  guild_id: "1234"
  embed_colour: 0x3498db
  emoji:
    red_line: "="
    white_line: "-"
    blue_button: "o"
lavalink:
  search_prefix: scsearch
  breaker:
    max_failures: 2
    reset_timeout: 5s
  nodes:
    - name: eu
      address: eu.example.com:443
      password: secret
      secure: true
    - name: us
      address: us.example.com:2333
      password: secret
music:
  default_volume: 100
  menu_timeout: 60s
  confirm_timeout: 30s
  queue_page_size: 10
  search_cache_size: 64
  search_cache_ttl: 1m
  search_rate: 0.5
  search_burst: 2
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Discord.EmbedColour != 0x3498db || cfg.Discord.Emoji.RedLine != "=" {
		t.Errorf("discord: got %+v", cfg.Discord)
	}
	if len(cfg.Lavalink.Nodes) != 2 || !cfg.Lavalink.Nodes[0].Secure || cfg.Lavalink.Nodes[1].Name != "us" {
		t.Errorf("nodes: got %+v", cfg.Lavalink.Nodes)
	}
	if cfg.Lavalink.Breaker.ResetTimeout != 5*time.Second {
		t.Errorf("reset_timeout: got %v", cfg.Lavalink.Breaker.ResetTimeout)
	}
	if cfg.Music.MenuTimeout != time.Minute || cfg.Music.SearchRate != 0.5 || cfg.Music.QueuePageSize != 10 {
		t.Errorf("music: got %+v", cfg.Music)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()
	yaml := minimalYAML + `
npcs:
  - name: Greymantle
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
		want []string
	}{
		{
			name: "missing token and nodes",
			yaml: `server: {log_level: info}`,
			want: []string{"discord.token is required", "lavalink.nodes must list at least one node"},
		},
		{
			name: "bad log level",
			yaml: minimalYAML + "server: {log_level: bananas}\n",
			want: []string{"server.log_level \"bananas\" is invalid"},
		},
		{
			name: "node without address",
			yaml: `
discord: {token: t}
lavalink:
  nodes:
    - name: a
`,
			want: []string{"lavalink.nodes[0].address is required"},
		},
		{
			name: "duplicate node names",
			yaml: `
discord: {token: t}
lavalink:
  nodes:
    - {name: a, address: "x:1"}
    - {name: a, address: "y:1"}
`,
			want: []string{"duplicate"},
		},
		{
			name: "volume out of range",
			yaml: minimalYAML + "music: {default_volume: 5000}\n",
			want: []string{"music.default_volume 5000 is out of range"},
		},
		{
			name: "negative page size",
			yaml: minimalYAML + "music: {queue_page_size: -1}\n",
			want: []string{"music.queue_page_size must be positive"},
		},
		{
			name: "negative timeout",
			yaml: minimalYAML + "music: {menu_timeout: -5s}\n",
			want: []string{"music.menu_timeout must be positive"},
		},
		{
			name: "colour out of range",
			yaml: `
discord: {token: t, embed_colour: 0x1000000}
lavalink:
  nodes:
    - {address: "x:1"}
`,
			want: []string{"discord.embed_colour"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			for _, want := range tt.want {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error should contain %q, got: %v", want, err)
				}
			}
		})
	}
}

func TestLogLevel_IsValid(t *testing.T) {
	t.Parallel()
	for _, l := range []config.LogLevel{config.LogDebug, config.LogInfo, config.LogWarn, config.LogError} {
		if !l.IsValid() {
			t.Errorf("%q should be valid", l)
		}
	}
	if config.LogLevel("trace").IsValid() {
		t.Error("trace should be invalid")
	}
}
