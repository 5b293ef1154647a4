package music

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/MrWong99/cadence/internal/menu"
	"github.com/MrWong99/cadence/internal/player"
)

// Player menu control symbols.
const (
	SymbolPrevious = "⏮️"
	SymbolSkip     = "⏭️"
	SymbolPause    = "⏯️"
	SymbolVolume   = "🔈"
	SymbolInfo     = "ℹ️"
	SymbolRefresh  = "🔁"
	SymbolStop     = "⏹️"
)

// screen is what a menu currently shows.
type screen int

const (
	screenStatus screen = iota
	screenInfo
)

// PlayerMenu shows the session status and offers transport controls.
type PlayerMenu struct {
	*menu.Menu

	deps Deps
	ctrl *player.Controller

	mu     sync.Mutex
	screen screen
}

// NewPlayerMenu creates a player menu for ctrl.
func NewPlayerMenu(deps Deps, ctrl *player.Controller) *PlayerMenu {
	p := &PlayerMenu{deps: deps, ctrl: ctrl}
	p.Menu = menu.New(deps.Host, menu.ContentFunc(p.render), menu.Options{
		Kind:               "player",
		Timeout:            deps.Style.MenuTimeout,
		DeleteMessageAfter: true,
	},
		menu.Button{Symbol: SymbolPrevious, Handler: p.previous},
		menu.Button{Symbol: SymbolSkip, Handler: p.skip},
		menu.Button{Symbol: SymbolPause, Handler: p.togglePause},
		menu.Button{Symbol: SymbolVolume, Handler: p.openVolume},
		menu.Button{Symbol: SymbolInfo, Handler: p.toggleInfo},
		menu.Button{Symbol: SymbolRefresh, Handler: p.refresh},
		menu.Button{Symbol: SymbolStop, Handler: p.stop},
	)
	return p
}

// Open binds the menu to its session and renders it in channelID for
// actorID.
func (p *PlayerMenu) Open(ctx context.Context, channelID, actorID string) error {
	p.ctrl.AttachMenu(p)
	return p.Start(ctx, channelID, actorID)
}

func (p *PlayerMenu) render(context.Context) (menu.View, error) {
	p.mu.Lock()
	s := p.screen
	p.mu.Unlock()

	if s == screenInfo {
		return p.infoView(), nil
	}
	return p.statusView(), nil
}

func (p *PlayerMenu) statusView() menu.View {
	snap := p.ctrl.Snapshot()
	v := menu.View{
		Title: "Music Controller | " + p.deps.guildName(snap.GuildID),
		Color: p.deps.Style.Colour,
	}

	status := "Nothing playing"
	switch {
	case snap.HasCurrent && snap.Paused:
		status = "Paused"
	case snap.HasCurrent:
		status = "Playing"
	}
	v.AddField("Status", status, true)
	v.AddField("Connected To", p.deps.channelName(snap.VoiceChannelID), true)
	v.AddField("Volume", fmt.Sprint(snap.Volume), true)
	v.AddField("Equalizer", snap.Equalizer.String(), true)

	if !snap.HasCurrent {
		v.Description = "Nothing is playing right now."
		return v
	}

	cur := snap.Current
	v.Description = fmt.Sprintf("Now Playing:\n**`%s`**\n\n%s", cur, progressBar(snap.Position, cur.Info.Length, p.deps.Style))
	v.URL = cur.Info.URI
	v.Thumbnail = cur.Info.ArtworkURL

	length := "Live"
	if !cur.Info.IsStream {
		length = formatDuration(cur.Info.Length)
	}
	v.AddField("Duration", length, true)
	v.AddField("Elapsed", formatDuration(snap.Position), true)
	if cur.Requester.Name != "" {
		v.AddField("Requested By", cur.Requester.Name, true)
	}
	if cur.Info.URI != "" {
		v.AddField("Link", fmt.Sprintf("[Click Me!](%s)", cur.Info.URI), true)
	}

	upcoming := "Nothing"
	if snap.HasUpcoming {
		upcoming = snap.Upcoming.String()
	}
	v.AddField("Coming Up", upcoming, false)
	v.Footer = fmt.Sprintf("Queue position %d/%d", snap.Cursor, len(snap.Tracks))
	return v
}

func (p *PlayerMenu) infoView() menu.View {
	lines := []string{
		SymbolPrevious + " Play the previous song",
		SymbolSkip + " Skip to the next song",
		SymbolPause + " Pause or resume",
		SymbolVolume + " Open the volume menu",
		SymbolInfo + " Toggle this help",
		SymbolRefresh + " Refresh the player",
		SymbolStop + " Close the menu",
	}
	return menu.View{
		Title:       "Music Controller | Help",
		Description: strings.Join(lines, "\n"),
		Color:       p.deps.Style.Colour,
	}
}

func (p *PlayerMenu) previous(ctx context.Context, _ menu.Input) error {
	if err := p.ctrl.Previous(ctx); err != nil {
		return err
	}
	return p.Refresh(ctx)
}

func (p *PlayerMenu) skip(ctx context.Context, _ menu.Input) error {
	if err := p.ctrl.Skip(ctx); err != nil {
		return err
	}
	return p.Refresh(ctx)
}

func (p *PlayerMenu) togglePause(ctx context.Context, _ menu.Input) error {
	if err := p.ctrl.SetPaused(ctx, !p.ctrl.Paused()); err != nil {
		return err
	}
	return p.Refresh(ctx)
}

func (p *PlayerMenu) openVolume(ctx context.Context, in menu.Input) error {
	vm := NewVolumeMenu(p.deps, p.ctrl)
	err := vm.Open(ctx, p.Message().ChannelID, in.ActorID)
	p.Stop()
	return err
}

func (p *PlayerMenu) toggleInfo(ctx context.Context, _ menu.Input) error {
	p.mu.Lock()
	if p.screen == screenInfo {
		p.screen = screenStatus
	} else {
		p.screen = screenInfo
	}
	p.mu.Unlock()
	return p.Refresh(ctx)
}

func (p *PlayerMenu) refresh(ctx context.Context, _ menu.Input) error {
	p.mu.Lock()
	p.screen = screenStatus
	p.mu.Unlock()
	return p.Refresh(ctx)
}

func (p *PlayerMenu) stop(context.Context, menu.Input) error {
	p.Stop()
	return nil
}
