package lavalink

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"

	"github.com/MrWong99/cadence/pkg/audio"
)

// player is the [audio.Player] of one guild. It holds no state of its own;
// every call goes to the disgolink player of the guild.
type player struct {
	node    *Node
	guildID string
}

func (p *player) id() (snowflake.ID, error) {
	id, err := snowflake.Parse(p.guildID)
	if err != nil {
		return 0, fmt.Errorf("lavalink: parse guild id %q: %w", p.guildID, err)
	}
	return id, nil
}

// live returns the disgolink player, creating it on the best server.
func (p *player) live() (disgolink.Player, error) {
	id, err := p.id()
	if err != nil {
		return nil, err
	}
	if p.node.client.BestNode() == nil {
		return nil, fmt.Errorf("lavalink: guild %s: %w", p.guildID, audio.ErrNodeUnavailable)
	}
	return p.node.client.Player(id), nil
}

// existing returns the disgolink player if one exists.
func (p *player) existing() disgolink.Player {
	id, err := p.id()
	if err != nil {
		return nil
	}
	return p.node.client.ExistingPlayer(id)
}

func (p *player) update(ctx context.Context, op string, opts ...lavalink.PlayerUpdateOpt) error {
	lp, err := p.live()
	if err != nil {
		return err
	}
	if err := lp.Update(ctx, opts...); err != nil {
		p.node.metrics.RecordNodeError(ctx, lp.Node().Config().Name, op)
		return fmt.Errorf("lavalink: %s guild %s: %w", op, p.guildID, err)
	}
	return nil
}

// Connect implements [audio.Player].
func (p *player) Connect(_ context.Context, channelID string) error {
	if err := p.node.voice.ChannelVoiceJoinManual(p.guildID, channelID, false, true); err != nil {
		return fmt.Errorf("lavalink: join voice channel %s: %w", channelID, err)
	}
	return nil
}

// Play implements [audio.Player].
func (p *player) Play(ctx context.Context, t audio.Track) error {
	return p.update(ctx, "play", lavalink.WithTrack(fromTrack(t)))
}

// Stop implements [audio.Player].
func (p *player) Stop(ctx context.Context) error {
	return p.update(ctx, "stop", lavalink.WithNullTrack())
}

// SetPaused implements [audio.Player].
func (p *player) SetPaused(ctx context.Context, paused bool) error {
	return p.update(ctx, "pause", lavalink.WithPaused(paused))
}

// SetVolume implements [audio.Player].
func (p *player) SetVolume(ctx context.Context, volume int) error {
	return p.update(ctx, "volume", lavalink.WithVolume(volume))
}

// SetEqualizer implements [audio.Player].
func (p *player) SetEqualizer(ctx context.Context, eq audio.Equalizer) error {
	lp, err := p.live()
	if err != nil {
		return err
	}
	filters := lp.Filters()
	var bands lavalink.Equalizer
	setBands(&bands, eq.Bands())
	filters.Equalizer = &bands
	return p.update(ctx, "equalizer", lavalink.WithFilters(filters))
}

// Seek implements [audio.Player].
func (p *player) Seek(ctx context.Context, position time.Duration) error {
	return p.update(ctx, "seek", lavalink.WithPosition(toDuration(position)))
}

// Position implements [audio.Player].
func (p *player) Position() time.Duration {
	lp := p.existing()
	if lp == nil {
		return 0
	}
	return fromDuration(lp.Position())
}

// ChannelID implements [audio.Player].
func (p *player) ChannelID() string {
	lp := p.existing()
	if lp == nil || lp.ChannelID() == nil {
		return ""
	}
	return lp.ChannelID().String()
}

// Destroy implements [audio.Player]. The voice channel is left even when the
// server could not be told.
func (p *player) Destroy(ctx context.Context) error {
	var err error
	if lp := p.existing(); lp != nil {
		if derr := lp.Destroy(ctx); derr != nil {
			p.node.metrics.RecordNodeError(ctx, lp.Node().Config().Name, "destroy")
			err = fmt.Errorf("lavalink: destroy guild %s: %w", p.guildID, derr)
		}
	}
	if lerr := p.node.voice.ChannelVoiceJoinManual(p.guildID, "", false, true); lerr != nil && err == nil {
		err = fmt.Errorf("lavalink: leave voice guild %s: %w", p.guildID, lerr)
	}
	return err
}

// Compile-time interface assertion.
var _ audio.Player = (*player)(nil)
