package discord

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// ErrMissingPermissions is returned by [PermissionChecker.CanJoin] when the
// bot lacks a voice permission.
var ErrMissingPermissions = errors.New("discord: missing permissions")

// voicePermissions are required in a channel before the bot joins it.
const voicePermissions = discordgo.PermissionViewChannel |
	discordgo.PermissionVoiceConnect |
	discordgo.PermissionVoiceSpeak

// PermissionSource resolves permission bits. [StateDirectory] implements it.
type PermissionSource interface {
	VoicePermissions(userID, channelID string) (int64, error)
}

// PermissionChecker validates that the bot may join and speak in a voice
// channel before it tries to connect.
type PermissionChecker struct {
	source PermissionSource
	self   func() string
}

// NewPermissionChecker creates a PermissionChecker. self returns the bot's
// user ID.
func NewPermissionChecker(source PermissionSource, self func() string) *PermissionChecker {
	return &PermissionChecker{source: source, self: self}
}

// CanJoin reports whether the bot has every permission needed to play in
// channelID. Missing permissions are named in an error wrapping
// [ErrMissingPermissions].
func (p *PermissionChecker) CanJoin(channelID string) error {
	perms, err := p.source.VoicePermissions(p.self(), channelID)
	if err != nil {
		return fmt.Errorf("discord: resolve permissions in %s: %w", channelID, err)
	}
	if missing := MissingVoicePermissions(perms); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingPermissions, strings.Join(missing, ", "))
	}
	return nil
}

// MissingVoicePermissions names the voice permissions absent from perms.
// Administrators have all of them.
func MissingVoicePermissions(perms int64) []string {
	if perms&discordgo.PermissionAdministrator != 0 || perms&voicePermissions == voicePermissions {
		return nil
	}
	var missing []string
	for _, p := range []struct {
		bit  int64
		name string
	}{
		{discordgo.PermissionViewChannel, "View Channel"},
		{discordgo.PermissionVoiceConnect, "Connect"},
		{discordgo.PermissionVoiceSpeak, "Speak"},
	} {
		if perms&p.bit == 0 {
			missing = append(missing, p.name)
		}
	}
	return missing
}
