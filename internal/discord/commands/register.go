package commands

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/cadence/internal/discord"
	"github.com/MrWong99/cadence/internal/player"
)

var (
	noDMs      = false
	minSeconds = 1.0
	minOne     = 1.0
)

// Register registers every music command with the router.
func (mc *MusicCommands) Register(router *discord.CommandRouter) {
	ops := mc.commands()
	for _, def := range mc.Definitions() {
		if def.Name == "queue" {
			router.RegisterCommand("queue", def, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
				discord.RespondEphemeral(s, i, "Please use a subcommand: `/queue show`, `/queue add`, `/queue remove`, `/queue clear`.")
			})
			continue
		}
		router.RegisterCommand(def.Name, def, mc.handler(def.Name, ops[def.Name]))
	}
	for _, sub := range []string{"show", "add", "remove", "clear"} {
		key := "queue/" + sub
		router.RegisterHandler(key, mc.handler(key, ops[key]))
	}
	router.RegisterAutocomplete("equalizer", mc.autocompleteEqualizer)
}

// commands maps router keys to their operations.
func (mc *MusicCommands) commands() map[string]command {
	return map[string]command{
		"connect":      {run: mc.connect},
		"play":         {run: mc.play, deferred: true},
		"player":       {run: mc.openPlayer, ephemeral: true},
		"resume":       {run: mc.resume},
		"pause":        {run: mc.pause},
		"skip":         {run: mc.skip},
		"previous":     {run: mc.previous},
		"volume":       {run: mc.volume},
		"equalizer":    {run: mc.equalizer},
		"fastforward":  {run: mc.seek(true)},
		"rewind":       {run: mc.seek(false)},
		"disconnect":   {run: mc.disconnect},
		"queue/show":   {run: mc.queueShow, ephemeral: true},
		"queue/add":    {run: mc.play, deferred: true},
		"queue/remove": {run: mc.queueRemove, deferred: true},
		"queue/clear": {run: mc.queueClear, deferred: true, timeout: func() time.Duration {
			return mc.confirmTimeoutValue() + mc.timeout
		}},
	}
}

func subcommand(name, description string, opts ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:        name,
		Description: description,
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Options:     opts,
	}
}

func queryOption(description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:        "query",
		Description: description,
		Type:        discordgo.ApplicationCommandOptionString,
		Required:    required,
	}
}

func secondsOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:        "seconds",
		Description: description,
		Type:        discordgo.ApplicationCommandOptionInteger,
		Required:    true,
		MinValue:    &minSeconds,
	}
}

// Definitions returns the music commands for registration with Discord.
func (mc *MusicCommands) Definitions() []*discordgo.ApplicationCommand {
	cmd := func(name, description string, opts ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommand {
		return &discordgo.ApplicationCommand{
			Name:         name,
			Description:  description,
			DMPermission: &noDMs,
			Options:      opts,
		}
	}
	return []*discordgo.ApplicationCommand{
		cmd("connect", "Connect to a voice channel",
			&discordgo.ApplicationCommandOption{
				Name:         "channel",
				Description:  "The voice channel to join. Defaults to yours.",
				Type:         discordgo.ApplicationCommandOptionChannel,
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice},
			}),
		cmd("play", "Add a song or playlist to the queue", queryOption("Search terms or a link", true)),
		cmd("player", "Open the player menu"),
		cmd("queue", "View and edit the song queue",
			subcommand("show", "Show the song queue",
				&discordgo.ApplicationCommandOption{
					Name:        "limit",
					Description: "Only list the first songs of the queue",
					Type:        discordgo.ApplicationCommandOptionInteger,
					MinValue:    &minOne,
					MaxValue:    player.MaxQueueLength,
				}),
			subcommand("add", "Add a song or playlist to the queue", queryOption("Search terms or a link", true)),
			subcommand("remove", "Remove songs from the queue",
				queryOption("Remove every song with this name", false),
				&discordgo.ApplicationCommandOption{
					Name:        "position",
					Description: "Remove the song at this queue position",
					Type:        discordgo.ApplicationCommandOptionInteger,
					MinValue:    &minOne,
					MaxValue:    player.MaxQueueLength,
				}),
			subcommand("clear", "Remove every song from the queue"),
		),
		cmd("resume", "Resume the player"),
		cmd("pause", "Pause the player"),
		cmd("skip", "Skip the current song"),
		cmd("previous", "Play the previous song"),
		cmd("volume", "Set the volume or open the volume mixer",
			&discordgo.ApplicationCommandOption{
				Name:        "value",
				Description: "The new volume, from 0 to 1000",
				Type:        discordgo.ApplicationCommandOptionInteger,
			}),
		cmd("equalizer", "Change the equalizer",
			&discordgo.ApplicationCommandOption{
				Name:         "name",
				Description:  "The equalizer preset",
				Type:         discordgo.ApplicationCommandOptionString,
				Required:     true,
				Autocomplete: true,
			}),
		cmd("fastforward", "Skip ahead in the current song", secondsOption("How many seconds to skip ahead")),
		cmd("rewind", "Go back in the current song", secondsOption("How many seconds to go back")),
		cmd("disconnect", "Stop playing and leave the voice channel"),
	}
}
