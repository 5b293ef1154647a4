package discord

import "github.com/bwmarrin/discordgo"

// StateDirectory answers name and voice state lookups from the gateway's
// state cache. Missing entries resolve to the empty string.
type StateDirectory struct {
	state *discordgo.State
}

// NewStateDirectory creates a directory on state.
func NewStateDirectory(state *discordgo.State) *StateDirectory {
	return &StateDirectory{state: state}
}

// GuildName returns the name of guildID.
func (d *StateDirectory) GuildName(guildID string) string {
	g, err := d.state.Guild(guildID)
	if err != nil {
		return ""
	}
	return g.Name
}

// ChannelName returns the name of channelID.
func (d *StateDirectory) ChannelName(channelID string) string {
	c, err := d.state.Channel(channelID)
	if err != nil {
		return ""
	}
	return c.Name
}

// UserVoiceChannel returns the voice channel userID is in within guildID.
func (d *StateDirectory) UserVoiceChannel(guildID, userID string) string {
	vs, err := d.state.VoiceState(guildID, userID)
	if err != nil || vs == nil {
		return ""
	}
	return vs.ChannelID
}

// VoicePermissions returns the permission bits userID has in channelID.
func (d *StateDirectory) VoicePermissions(userID, channelID string) (int64, error) {
	return d.state.UserChannelPermissions(userID, channelID)
}
