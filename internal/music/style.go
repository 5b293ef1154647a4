// Package music implements the interactive menus of a playback session: the
// player controller, the volume mixer and the paginated queue listing. Every
// menu reads state from a [player.Controller] and acts only through its
// methods.
package music

import (
	"fmt"
	"strings"
	"time"

	"github.com/MrWong99/cadence/internal/menu"
)

// Style configures how menus look.
type Style struct {
	// Colour is the embed colour.
	Colour int

	// RedLine, WhiteLine and BlueButton are the progress and volume bar
	// segments.
	RedLine    string
	WhiteLine  string
	BlueButton string

	// MenuTimeout is the inactivity timeout of player and volume menus.
	MenuTimeout time.Duration

	// QueuePageSize is the number of tracks per queue page. Default: 5.
	QueuePageSize int
}

// DefaultStyle returns the style used when nothing is configured.
func DefaultStyle() Style {
	return Style{
		Colour:        0xe74c3c,
		RedLine:       "🟥",
		WhiteLine:     "⬜",
		BlueButton:    "🔘",
		MenuTimeout:   menu.DefaultTimeout,
		QueuePageSize: 5,
	}
}

// Directory resolves platform IDs into display names.
type Directory interface {
	GuildName(guildID string) string
	ChannelName(channelID string) string
}

// Deps bundles what every music menu needs.
type Deps struct {
	Host      menu.Host
	Style     Style
	Directory Directory
}

func (d Deps) guildName(id string) string {
	if d.Directory == nil {
		return id
	}
	if name := d.Directory.GuildName(id); name != "" {
		return name
	}
	return id
}

func (d Deps) channelName(id string) string {
	if id == "" {
		return "Not connected"
	}
	if d.Directory == nil {
		return id
	}
	if name := d.Directory.ChannelName(id); name != "" {
		return name
	}
	return id
}

// barSegments is the width of progress and volume bars.
const barSegments = 20

// progressBar renders position within length as a bar with a knob.
func progressBar(position, length time.Duration, s Style) string {
	n := 0
	if length > 0 {
		n = int(float64(position) / float64(length) * barSegments)
	}
	n = min(max(n, 0), barSegments-1)
	return "\\|| " + strings.Repeat(s.RedLine, n) + "⚫" + strings.Repeat(s.WhiteLine, barSegments-1-n) + " ||"
}

// volumeBar renders a volume of 0-1000 as a bar where every segment is 50.
func volumeBar(volume int, s Style) string {
	n := min(max(volume/50, 0), barSegments)
	return strings.Repeat("🟦", max(n-1, 0)) + s.BlueButton + strings.Repeat(s.WhiteLine, barSegments-n)
}

// formatDuration renders d as "Xh Ym Zs", omitting leading zero units.
func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
