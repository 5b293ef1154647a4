package music

import (
	"fmt"
	"strings"

	"github.com/MrWong99/cadence/internal/menu"
	"github.com/MrWong99/cadence/internal/player"
	"github.com/MrWong99/cadence/pkg/audio"
)

// currentMarker brackets the queue entry that is playing.
const currentMarker = "**`current song`**"

// NewQueueSource pages the queue of ctrl as it is now. limit > 0 lists
// only the first limit tracks.
func NewQueueSource(style Style, ctrl *player.Controller, limit int) *menu.ListSource[audio.Track] {
	snap := ctrl.Snapshot()
	tracks := snap.Tracks
	if limit > 0 && limit < len(tracks) {
		tracks = tracks[:limit]
	}
	perPage := style.QueuePageSize
	if perPage <= 0 {
		perPage = 5
	}

	// The entry numbered like the cursor is the one that is playing, unless
	// it was removed from the queue.
	current := -1
	if snap.CurrentQueued {
		current = snap.Cursor
	}

	format := func(entries []menu.Entry[audio.Track], page, pages int) menu.View {
		lines := make([]string, 0, len(entries))
		for _, e := range entries {
			line := fmt.Sprintf("`%d. %s`", e.Number, e.Item)
			if e.Number == current {
				line = currentMarker + "\n" + line + "\n" + currentMarker
			}
			lines = append(lines, line)
		}
		return menu.View{
			Title:       "Song Queue",
			Description: strings.Join(lines, "\n"),
			Color:       style.Colour,
			Footer:      fmt.Sprintf("Page %d/%d", page+1, pages),
		}
	}
	empty := menu.View{Title: "Song Queue", Description: "Nothing in the queue!", Color: style.Colour}
	return menu.NewListSource(tracks, perPage, format, empty)
}

// NewQueueMenu creates a paginated listing of ctrl's queue.
func NewQueueMenu(deps Deps, ctrl *player.Controller, limit int) *menu.Pages {
	return menu.NewPages(deps.Host, NewQueueSource(deps.Style, ctrl, limit), menu.Options{
		Kind:               "queue",
		Timeout:            deps.Style.MenuTimeout,
		ClearControlsAfter: true,
	})
}
