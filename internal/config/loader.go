package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/MrWong99/cadence/internal/player"
)

// EnvPrefix prefixes every environment variable that overrides the file.
const EnvPrefix = "CADENCE_"

// envOverlay lists the settings that may come from the environment. Secrets
// usually do.
type envOverlay struct {
	Token            string   `env:"DISCORD_TOKEN"`
	GuildID          string   `env:"DISCORD_GUILD_ID"`
	LavalinkPassword string   `env:"LAVALINK_PASSWORD"`
	LogLevel         LogLevel `env:"LOG_LEVEL"`
	ListenAddr       string   `env:"LISTEN_ADDR"`
}

// LoadDotEnv loads environment variables from the given .env files, or from
// ./.env without arguments. Missing files are not an error; variables that
// are already set are kept.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("config: load %q: %w", f, err)
		}
		slog.Debug("config: loaded environment file", "path", f)
	}
	return nil
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, overlays the environment,
// applies defaults and validates the result.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with the CADENCE_* environment variables that are
// set. CADENCE_LAVALINK_PASSWORD applies to every node without a password.
func ApplyEnv(cfg *Config) error {
	var o envOverlay
	if err := env.ParseWithOptions(&o, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("config: parse environment: %w", err)
	}
	if o.Token != "" {
		cfg.Discord.Token = o.Token
	}
	if o.GuildID != "" {
		cfg.Discord.GuildID = o.GuildID
	}
	if o.LogLevel != "" {
		cfg.Server.LogLevel = o.LogLevel
	}
	if o.ListenAddr != "" {
		cfg.Server.ListenAddr = o.ListenAddr
	}
	if o.LavalinkPassword != "" {
		for i := range cfg.Lavalink.Nodes {
			if cfg.Lavalink.Nodes[i].Password == "" {
				cfg.Lavalink.Nodes[i].Password = o.LavalinkPassword
			}
		}
	}
	return nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Discord
	if cfg.Discord.Token == "" {
		errs = append(errs, fmt.Errorf("discord.token is required (or set %sDISCORD_TOKEN)", EnvPrefix))
	}
	if cfg.Discord.EmbedColour < 0 || cfg.Discord.EmbedColour > 0xffffff {
		errs = append(errs, fmt.Errorf("discord.embed_colour %#x is out of range [0, 0xffffff]", cfg.Discord.EmbedColour))
	}

	// Lavalink
	if len(cfg.Lavalink.Nodes) == 0 {
		errs = append(errs, errors.New("lavalink.nodes must list at least one node"))
	}
	names := make(map[string]int, len(cfg.Lavalink.Nodes))
	for i, n := range cfg.Lavalink.Nodes {
		prefix := fmt.Sprintf("lavalink.nodes[%d]", i)
		if n.Address == "" {
			errs = append(errs, fmt.Errorf("%s.address is required", prefix))
		}
		if n.Password == "" {
			slog.Warn("lavalink node has no password", "node", n.Name)
		}
		if n.Name != "" {
			if prev, ok := names[n.Name]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of lavalink.nodes[%d]", prefix, n.Name, prev))
			}
			names[n.Name] = i
		}
	}
	if cfg.Lavalink.Breaker.MaxFailures < 0 {
		errs = append(errs, fmt.Errorf("lavalink.breaker.max_failures %d must not be negative", cfg.Lavalink.Breaker.MaxFailures))
	}
	if cfg.Lavalink.Breaker.ResetTimeout < 0 {
		errs = append(errs, fmt.Errorf("lavalink.breaker.reset_timeout %s must not be negative", cfg.Lavalink.Breaker.ResetTimeout))
	}

	// Music
	m := cfg.Music
	if m.DefaultVolume < player.MinVolume || m.DefaultVolume > player.MaxVolume {
		errs = append(errs, fmt.Errorf("music.default_volume %d is out of range [%d, %d]", m.DefaultVolume, player.MinVolume, player.MaxVolume))
	}
	for _, d := range []struct {
		name  string
		value float64
	}{
		{"music.menu_timeout", m.MenuTimeout.Seconds()},
		{"music.confirm_timeout", m.ConfirmTimeout.Seconds()},
		{"music.search_cache_ttl", m.SearchCacheTTL.Seconds()},
		{"music.queue_page_size", float64(m.QueuePageSize)},
		{"music.search_cache_size", float64(m.SearchCacheSize)},
		{"music.search_rate", m.SearchRate},
		{"music.search_burst", float64(m.SearchBurst)},
	} {
		if d.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", d.name))
		}
	}

	return errors.Join(errs...)
}
