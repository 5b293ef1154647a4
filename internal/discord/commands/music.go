package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrWong99/cadence/internal/discord"
	"github.com/MrWong99/cadence/internal/menu"
	"github.com/MrWong99/cadence/internal/music"
	"github.com/MrWong99/cadence/internal/player"
	"github.com/MrWong99/cadence/pkg/audio"
)

func (mc *MusicCommands) channelName(channelID string) string {
	if name := mc.voice.ChannelName(channelID); name != "" {
		return name
	}
	return channelID
}

// canJoin turns missing voice permissions into a denial.
func (mc *MusicCommands) canJoin(channelID string) error {
	if mc.perms == nil {
		return nil
	}
	err := mc.perms.CanJoin(channelID)
	if errors.Is(err, discord.ErrMissingPermissions) {
		missing := strings.TrimPrefix(err.Error(), discord.ErrMissingPermissions.Error()+": ")
		return Denial(fmt.Sprintf("I need the %s permissions in **`%s`** to join it.", missing, mc.channelName(channelID)))
	}
	return err
}

func (mc *MusicCommands) connect(ctx context.Context, req Request, opts options) (string, error) {
	if _, err := mc.access(req, false); err != nil {
		return "", err
	}
	channelID := opts.str("channel")
	if channelID == "" {
		channelID = mc.voice.UserVoiceChannel(req.GuildID, req.User.ID)
	}
	if channelID == "" {
		return "", Denial("Couldn't find a channel to join. Please specify a valid channel or join one.")
	}
	if err := mc.canJoin(channelID); err != nil {
		return "", err
	}
	if err := mc.players.Get(req.GuildID).Connect(ctx, channelID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Connected to **`%s`**.", mc.channelName(channelID)), nil
}

func (mc *MusicCommands) play(ctx context.Context, req Request, opts options) (string, error) {
	if _, err := mc.access(req, false); err != nil {
		return "", err
	}
	ctrl := mc.players.Get(req.GuildID)
	if len(ctrl.Tracks()) >= player.MaxQueueLength {
		return "", Denial(msgQueueFull)
	}

	var voiceChannel string
	if !ctrl.Started() {
		voiceChannel = ctrl.VoiceChannelID()
		if voiceChannel == "" {
			voiceChannel = mc.voice.UserVoiceChannel(req.GuildID, req.User.ID)
		}
		if voiceChannel == "" {
			return "", Denial(msgNotInVoice)
		}
		if err := mc.canJoin(voiceChannel); err != nil {
			return "", err
		}
	}

	res, err := mc.resolver.Resolve(ctx, req.User, opts.str("query"))
	if err != nil {
		return "", err
	}
	tracks := res.Tracks
	if !res.IsPlaylist() {
		tracks = tracks[:1]
	}
	length, err := ctrl.Enqueue(tracks...)
	if err != nil {
		return "", err
	}

	var reply string
	if res.IsPlaylist() {
		reply = fmt.Sprintf("Added playlist `%s` with `%d` songs to the queue. Queue length: `%d`", res.Playlist, len(tracks), length)
	} else {
		reply = fmt.Sprintf("Added `%s` to the queue. Queue length: `%d`", tracks[0], length)
	}

	if voiceChannel != "" {
		mu := mc.startLock(req.GuildID)
		mu.Lock()
		defer mu.Unlock()
		if !ctrl.Started() {
			if err := ctrl.Start(ctx, req.ChannelID, voiceChannel); err != nil {
				return "", err
			}
		}
	}
	return reply, nil
}

func (mc *MusicCommands) openPlayer(ctx context.Context, req Request, _ options) (string, error) {
	ctrl, err := mc.access(req, true)
	if err != nil {
		return "", err
	}
	if err := music.NewPlayerMenu(mc.deps(), ctrl).Open(ctx, req.ChannelID, req.User.ID); err != nil {
		return "", err
	}
	return "Opened the player.", nil
}

func (mc *MusicCommands) queueShow(ctx context.Context, req Request, opts options) (string, error) {
	ctrl, err := mc.access(req, false)
	if err != nil {
		return "", err
	}
	if ctrl == nil || len(ctrl.Tracks()) == 0 {
		return msgEmptyQueue, nil
	}
	limit, _ := opts.integer("limit")
	if err := music.NewQueueMenu(mc.deps(), ctrl, limit).Start(ctx, req.ChannelID, req.User.ID); err != nil {
		return "", err
	}
	return "Opened the queue.", nil
}

func (mc *MusicCommands) queueRemove(ctx context.Context, req Request, opts options) (string, error) {
	ctrl, err := mc.access(req, false)
	if err != nil {
		return "", err
	}
	if ctrl == nil {
		return "", Denial(msgEmptyQueue)
	}

	if pos, ok := opts.integer("position"); ok {
		t, err := ctrl.RemoveAt(pos)
		if errors.Is(err, player.ErrOutOfRange) {
			return "", Denial(fmt.Sprintf("There is no song at position `%d`.", pos))
		}
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Removed `%s` from the queue. Queue length: `%d`", t, len(ctrl.Tracks())), nil
	}

	query := opts.str("query")
	if query == "" {
		return "", Denial("Tell me which song to remove, by name or by position.")
	}
	t, err := mc.resolver.First(ctx, req.User, query)
	if err != nil {
		return "", err
	}
	ctrl.RemoveTitle(t.String())
	return fmt.Sprintf("Removed all songs with the name `%s` from the queue. Queue length: `%d`", t, len(ctrl.Tracks())), nil
}

func (mc *MusicCommands) confirmTimeoutValue() time.Duration {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	if mc.confirmTimeout <= 0 {
		return menu.DefaultConfirmTimeout
	}
	return mc.confirmTimeout
}

func (mc *MusicCommands) queueClear(ctx context.Context, req Request, _ options) (string, error) {
	ctrl, err := mc.access(req, false)
	if err != nil {
		return "", err
	}
	if ctrl == nil || len(ctrl.Tracks()) == 0 {
		return msgEmptyQueue, nil
	}

	deps := mc.deps()
	prompt := menu.View{
		Title:       "Clear the queue?",
		Description: fmt.Sprintf("This removes all `%d` songs from the queue.", len(ctrl.Tracks())),
		Color:       deps.Style.Colour,
	}
	confirm := menu.NewConfirm(deps.Host, prompt, menu.ConfirmOptions{Timeout: mc.confirmTimeoutValue()})
	answer, err := confirm.Prompt(ctx, req.ChannelID, req.User.ID)
	if err != nil {
		return "", err
	}
	if answer != menu.AnswerAccepted {
		return "Kept the queue.", nil
	}
	return fmt.Sprintf("Cleared `%d` songs from the queue.", ctrl.Clear()), nil
}

func (mc *MusicCommands) resume(ctx context.Context, req Request, _ options) (string, error) {
	ctrl, err := mc.access(req, true)
	if err != nil {
		return "", err
	}
	if !ctrl.Paused() {
		return "I am already playing!", nil
	}
	if err := ctrl.SetPaused(ctx, false); err != nil {
		return "", err
	}
	return "Resuming...", nil
}

func (mc *MusicCommands) pause(ctx context.Context, req Request, _ options) (string, error) {
	ctrl, err := mc.access(req, true)
	if err != nil {
		return "", err
	}
	if ctrl.Paused() {
		return "I am already paused!", nil
	}
	if err := ctrl.SetPaused(ctx, true); err != nil {
		return "", err
	}
	return "Paused the player.", nil
}

func (mc *MusicCommands) skip(ctx context.Context, req Request, _ options) (string, error) {
	ctrl, err := mc.access(req, true)
	if err != nil {
		return "", err
	}
	if err := ctrl.Skip(ctx); err != nil {
		return "", err
	}
	return "Skipped the current song.", nil
}

func (mc *MusicCommands) previous(ctx context.Context, req Request, _ options) (string, error) {
	ctrl, err := mc.access(req, true)
	if err != nil {
		return "", err
	}
	if err := ctrl.Previous(ctx); err != nil {
		return "", err
	}
	return "Going back to the previous song.", nil
}

func (mc *MusicCommands) volume(ctx context.Context, req Request, opts options) (string, error) {
	if _, err := mc.access(req, false); err != nil {
		return "", err
	}
	ctrl := mc.players.Get(req.GuildID)
	v, ok := opts.integer("value")
	if !ok {
		if err := music.NewVolumeMenu(mc.deps(), ctrl).Open(ctx, req.ChannelID, req.User.ID); err != nil {
			return "", err
		}
		return "Opened the volume mixer.", nil
	}
	v = player.ClampVolume(v)
	if err := ctrl.SetVolume(ctx, v); err != nil {
		return "", err
	}
	return fmt.Sprintf("Set the volume to `%d`.", v), nil
}

func (mc *MusicCommands) equalizer(ctx context.Context, req Request, opts options) (string, error) {
	ctrl, err := mc.access(req, true)
	if err != nil {
		return "", err
	}
	name := opts.str("name")
	eq, err := audio.ParseEqualizer(name)
	if err != nil {
		return "", Denial(invalidEqualizer(name))
	}
	if err := ctrl.SetEqualizer(ctx, eq); err != nil {
		return "", err
	}
	return fmt.Sprintf("Set the equalizer to `%s`.", eq), nil
}

func (mc *MusicCommands) seek(forward bool) operation {
	return func(ctx context.Context, req Request, opts options) (string, error) {
		ctrl, err := mc.access(req, true)
		if err != nil {
			return "", err
		}
		seconds, _ := opts.integer("seconds")
		delta := time.Duration(seconds) * time.Second
		if !forward {
			delta = -delta
		}
		if err := ctrl.SeekBy(ctx, delta); err != nil {
			return "", err
		}
		verb := "Fast forwarded"
		if !forward {
			verb = "Rewinded"
		}
		return fmt.Sprintf("%s `%d` seconds. Current position: `%s`", verb, seconds, preciseDuration(ctrl.Position())), nil
	}
}

func (mc *MusicCommands) disconnect(ctx context.Context, req Request, _ options) (string, error) {
	ctrl, err := mc.access(req, false)
	if err != nil {
		return "", err
	}
	if ctrl == nil || ctrl.VoiceChannelID() == "" {
		return "", Denial(msgNotConnected)
	}
	name := mc.channelName(ctrl.VoiceChannelID())
	if err := ctrl.Destroy(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("Disconnected from **`%s`**.", name), nil
}

// preciseDuration spells out d to the second, e.g. "1 minute and 5 seconds".
func preciseDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d <= 0 {
		return "0 seconds"
	}
	units := []struct {
		size time.Duration
		name string
	}{
		{time.Hour, "hour"},
		{time.Minute, "minute"},
		{time.Second, "second"},
	}
	var parts []string
	for _, u := range units {
		n := d / u.size
		d -= n * u.size
		if n == 0 {
			continue
		}
		part := fmt.Sprintf("%d %s", n, u.name)
		if n != 1 {
			part += "s"
		}
		parts = append(parts, part)
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}
