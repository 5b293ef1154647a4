// Package config provides the configuration schema, loader, validation and
// hot-reload watcher of the cadence music bot.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Defaults applied by [ApplyDefaults] to unset fields.
const (
	DefaultListenAddr     = ":8080"
	DefaultSearchPrefix   = "ytsearch"
	DefaultEmbedColour    = 0xe74c3c
	DefaultVolume         = 40
	DefaultMenuTimeout    = 180 * time.Second
	DefaultConfirmTimeout = 120 * time.Second
	DefaultQueuePageSize  = 5
	DefaultSearchCache    = 256
	DefaultSearchCacheTTL = 10 * time.Minute
	DefaultSearchRate     = 1.0
	DefaultSearchBurst    = 3
	DefaultMaxFailures    = 5
	DefaultResetTimeout   = 30 * time.Second
)

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Discord  DiscordConfig  `yaml:"discord"`
	Lavalink LavalinkConfig `yaml:"lavalink"`
	Music    MusicConfig    `yaml:"music"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address of the health and metrics server
	// (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// DiscordConfig holds the bot credentials and presentation settings.
type DiscordConfig struct {
	// Token is the bot token. Usually supplied through CADENCE_DISCORD_TOKEN.
	Token string `yaml:"token"`

	// GuildID registers commands in one guild only. Empty registers them
	// globally.
	GuildID string `yaml:"guild_id"`

	// EmbedColour is the colour of every embed, as 0xRRGGBB.
	EmbedColour int `yaml:"embed_colour"`

	Emoji EmojiConfig `yaml:"emoji"`
}

// EmojiConfig names the emoji used to draw progress and volume bars.
type EmojiConfig struct {
	RedLine    string `yaml:"red_line"`
	WhiteLine  string `yaml:"white_line"`
	BlueButton string `yaml:"blue_button"`
}

// LavalinkConfig lists the audio nodes.
type LavalinkConfig struct {
	Nodes []NodeConfig `yaml:"nodes"`

	// SearchPrefix is prepended to queries that are not links.
	SearchPrefix string `yaml:"search_prefix"`

	Breaker BreakerConfig `yaml:"breaker"`
}

// NodeConfig describes how to reach one Lavalink server.
type NodeConfig struct {
	Name     string `yaml:"name"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	Secure   bool   `yaml:"secure"`
}

// BreakerConfig tunes the circuit breaker guarding each node.
type BreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// MusicConfig holds the playback and menu tunables. All of them can be
// changed without a restart.
type MusicConfig struct {
	DefaultVolume   int           `yaml:"default_volume"`
	MenuTimeout     time.Duration `yaml:"menu_timeout"`
	ConfirmTimeout  time.Duration `yaml:"confirm_timeout"`
	QueuePageSize   int           `yaml:"queue_page_size"`
	SearchCacheSize int           `yaml:"search_cache_size"`
	SearchCacheTTL  time.Duration `yaml:"search_cache_ttl"`

	// SearchRate is the sustained number of searches per second and user.
	SearchRate  float64 `yaml:"search_rate"`
	SearchBurst int     `yaml:"search_burst"`
}

// ApplyDefaults fills every unset field with its default.
func ApplyDefaults(cfg *Config) {
	setDefault(&cfg.Server.ListenAddr, DefaultListenAddr)
	setDefault(&cfg.Server.LogLevel, LogInfo)

	setDefault(&cfg.Discord.EmbedColour, DefaultEmbedColour)
	setDefault(&cfg.Discord.Emoji.RedLine, "🟥")
	setDefault(&cfg.Discord.Emoji.WhiteLine, "⬜")
	setDefault(&cfg.Discord.Emoji.BlueButton, "🔘")

	setDefault(&cfg.Lavalink.SearchPrefix, DefaultSearchPrefix)
	setDefault(&cfg.Lavalink.Breaker.MaxFailures, DefaultMaxFailures)
	setDefault(&cfg.Lavalink.Breaker.ResetTimeout, DefaultResetTimeout)
	for i := range cfg.Lavalink.Nodes {
		if cfg.Lavalink.Nodes[i].Name == "" {
			cfg.Lavalink.Nodes[i].Name = cfg.Lavalink.Nodes[i].Address
		}
	}

	setDefault(&cfg.Music.DefaultVolume, DefaultVolume)
	setDefault(&cfg.Music.MenuTimeout, DefaultMenuTimeout)
	setDefault(&cfg.Music.ConfirmTimeout, DefaultConfirmTimeout)
	setDefault(&cfg.Music.QueuePageSize, DefaultQueuePageSize)
	setDefault(&cfg.Music.SearchCacheSize, DefaultSearchCache)
	setDefault(&cfg.Music.SearchCacheTTL, DefaultSearchCacheTTL)
	setDefault(&cfg.Music.SearchRate, DefaultSearchRate)
	setDefault(&cfg.Music.SearchBurst, DefaultSearchBurst)
}

func setDefault[T comparable](field *T, def T) {
	var zero T
	if *field == zero {
		*field = def
	}
}
