package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are applied; the rest are
// reported so the operator can be told to restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// MusicChanged is set when any music tunable changed.
	MusicChanged bool

	// StyleChanged is set when the embed colour or an emoji changed.
	StyleChanged bool

	// RestartRequired names the changed settings that only take effect
	// after a restart.
	RestartRequired []string
}

// Changed reports whether anything differs.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.MusicChanged || d.StyleChanged || len(d.RestartRequired) > 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Music != new.Music {
		d.MusicChanged = true
	}
	om, nm := old.Music, new.Music
	if om.SearchCacheSize != nm.SearchCacheSize || om.SearchCacheTTL != nm.SearchCacheTTL ||
		om.SearchRate != nm.SearchRate || om.SearchBurst != nm.SearchBurst {
		d.RestartRequired = append(d.RestartRequired, "music.search_*")
	}

	if old.Discord.EmbedColour != new.Discord.EmbedColour || old.Discord.Emoji != new.Discord.Emoji {
		d.StyleChanged = true
	}

	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = append(d.RestartRequired, "server.listen_addr")
	}
	if old.Discord.Token != new.Discord.Token {
		d.RestartRequired = append(d.RestartRequired, "discord.token")
	}
	if old.Discord.GuildID != new.Discord.GuildID {
		d.RestartRequired = append(d.RestartRequired, "discord.guild_id")
	}
	if !slices.Equal(old.Lavalink.Nodes, new.Lavalink.Nodes) {
		d.RestartRequired = append(d.RestartRequired, "lavalink.nodes")
	}
	if old.Lavalink.SearchPrefix != new.Lavalink.SearchPrefix {
		d.RestartRequired = append(d.RestartRequired, "lavalink.search_prefix")
	}
	if old.Lavalink.Breaker != new.Lavalink.Breaker {
		d.RestartRequired = append(d.RestartRequired, "lavalink.breaker")
	}

	return d
}
