package music

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/MrWong99/cadence/internal/menu"
	"github.com/MrWong99/cadence/internal/player"
)

// Volume menu control symbols.
const (
	SymbolDown100 = "⏮️"
	SymbolDown10  = "⏪"
	SymbolDown1   = "⬅️"
	SymbolUp1     = "➡️"
	SymbolUp10    = "⏩"
	SymbolUp100   = "⏭️"
)

// VolumeMenu adjusts the session volume in steps of 1, 10 and 100.
type VolumeMenu struct {
	*menu.Menu

	deps Deps
	ctrl *player.Controller

	mu     sync.Mutex
	screen screen
}

// NewVolumeMenu creates a volume menu for ctrl.
func NewVolumeMenu(deps Deps, ctrl *player.Controller) *VolumeMenu {
	v := &VolumeMenu{deps: deps, ctrl: ctrl}
	v.Menu = menu.New(deps.Host, menu.ContentFunc(v.render), menu.Options{
		Kind:               "volume",
		Timeout:            deps.Style.MenuTimeout,
		DeleteMessageAfter: true,
	},
		menu.Button{Symbol: SymbolDown100, Handler: v.adjust(-100)},
		menu.Button{Symbol: SymbolDown10, Handler: v.adjust(-10)},
		menu.Button{Symbol: SymbolDown1, Handler: v.adjust(-1)},
		menu.Button{Symbol: SymbolUp1, Handler: v.adjust(1)},
		menu.Button{Symbol: SymbolUp10, Handler: v.adjust(10)},
		menu.Button{Symbol: SymbolUp100, Handler: v.adjust(100)},
		menu.Button{Symbol: SymbolInfo, Handler: v.toggleInfo},
		menu.Button{Symbol: SymbolRefresh, Handler: v.refresh},
		menu.Button{Symbol: SymbolStop, Handler: v.stop},
	)
	return v
}

// Open binds the menu to its session and renders it in channelID for
// actorID.
func (v *VolumeMenu) Open(ctx context.Context, channelID, actorID string) error {
	v.ctrl.AttachMenu(v)
	return v.Start(ctx, channelID, actorID)
}

func (v *VolumeMenu) render(context.Context) (menu.View, error) {
	v.mu.Lock()
	s := v.screen
	v.mu.Unlock()

	if s == screenInfo {
		lines := []string{
			SymbolDown100 + " Volume -100",
			SymbolDown10 + " Volume -10",
			SymbolDown1 + " Volume -1",
			SymbolUp1 + " Volume +1",
			SymbolUp10 + " Volume +10",
			SymbolUp100 + " Volume +100",
			SymbolInfo + " Toggle this help",
			SymbolRefresh + " Refresh the menu",
			SymbolStop + " Close the menu",
		}
		return menu.View{
			Title:       "Volume Control | Help",
			Description: strings.Join(lines, "\n"),
			Color:       v.deps.Style.Colour,
		}, nil
	}

	volume := v.ctrl.Volume()
	return menu.View{
		Title:       "Volume Control | " + v.deps.guildName(v.ctrl.GuildID()),
		Description: volumeBar(volume, v.deps.Style),
		Color:       v.deps.Style.Colour,
		Footer:      fmt.Sprintf("Current Volume: %d", volume),
	}, nil
}

func (v *VolumeMenu) adjust(delta int) menu.Handler {
	return func(ctx context.Context, _ menu.Input) error {
		if err := v.ctrl.SetVolume(ctx, player.ClampVolume(v.ctrl.Volume()+delta)); err != nil {
			return err
		}
		return v.Refresh(ctx)
	}
}

func (v *VolumeMenu) toggleInfo(ctx context.Context, _ menu.Input) error {
	v.mu.Lock()
	if v.screen == screenInfo {
		v.screen = screenStatus
	} else {
		v.screen = screenInfo
	}
	v.mu.Unlock()
	return v.Refresh(ctx)
}

func (v *VolumeMenu) refresh(ctx context.Context, _ menu.Input) error {
	v.mu.Lock()
	v.screen = screenStatus
	v.mu.Unlock()
	return v.Refresh(ctx)
}

func (v *VolumeMenu) stop(context.Context, menu.Input) error {
	v.Stop()
	return nil
}
