package player

import (
	"errors"
	"fmt"
	"slices"

	"github.com/MrWong99/cadence/pkg/audio"
)

// MaxQueueLength is the maximum number of tracks a queue holds.
const MaxQueueLength = 100

var (
	// ErrQueueFull is returned when an append would exceed [MaxQueueLength].
	ErrQueueFull = errors.New("player: queue full")

	// ErrOutOfRange is returned for queue positions that do not exist.
	ErrOutOfRange = errors.New("player: position out of range")
)

// Queue is an ordered list of tracks plus the cursor of the next track to
// play. Invariants: len ≤ MaxQueueLength and 0 ≤ cursor ≤ len.
//
// A Queue is not safe for concurrent use; the owning [Controller]
// serializes access.
type Queue struct {
	tracks []audio.Track
	cursor int
}

// Append adds tracks to the end of the queue. The whole batch is rejected
// when it does not fit.
func (q *Queue) Append(tracks ...audio.Track) error {
	if len(q.tracks)+len(tracks) > MaxQueueLength {
		return fmt.Errorf("%w: %d queued, %d more would exceed the limit of %d",
			ErrQueueFull, len(q.tracks), len(tracks), MaxQueueLength)
	}
	q.tracks = append(q.tracks, tracks...)
	return nil
}

// Next returns the track at the cursor and advances the cursor by one. It
// reports false, leaving the cursor in place, when the queue is exhausted.
func (q *Queue) Next() (audio.Track, bool) {
	if q.cursor >= len(q.tracks) {
		return audio.Track{}, false
	}
	t := q.tracks[q.cursor]
	q.cursor++
	return t, true
}

// Rewind moves the cursor back by n. Rewinding before the first track
// exhausts the queue instead, so the next [Queue.Next] reports false.
func (q *Queue) Rewind(n int) {
	if q.cursor-n < 0 {
		q.cursor = len(q.tracks)
		return
	}
	q.cursor -= n
}

// RemoveAt removes the track at the zero-based index i. Removing a track
// before the cursor shifts the cursor so the next track stays the same.
func (q *Queue) RemoveAt(i int) (audio.Track, error) {
	if i < 0 || i >= len(q.tracks) {
		return audio.Track{}, fmt.Errorf("%w: %d of %d", ErrOutOfRange, i+1, len(q.tracks))
	}
	t := q.tracks[i]
	q.tracks = slices.Delete(q.tracks, i, i+1)
	if i < q.cursor {
		q.cursor--
	}
	return t, nil
}

// RemoveFunc removes every track for which match returns true and reports
// how many were removed. The relative order of the remaining tracks and the
// identity of the next track are preserved.
func (q *Queue) RemoveFunc(match func(audio.Track) bool) int {
	kept := q.tracks[:0]
	removed := 0
	cursor := q.cursor
	for i, t := range q.tracks {
		if match(t) {
			removed++
			if i < q.cursor {
				cursor--
			}
			continue
		}
		kept = append(kept, t)
	}
	clear(q.tracks[len(kept):])
	q.tracks = kept
	q.cursor = cursor
	return removed
}

// Clear empties the queue and resets the cursor.
func (q *Queue) Clear() int {
	n := len(q.tracks)
	q.tracks = nil
	q.cursor = 0
	return n
}

// Len returns the number of queued tracks.
func (q *Queue) Len() int {
	return len(q.tracks)
}

// Cursor returns the index of the next track to play.
func (q *Queue) Cursor() int {
	return q.cursor
}

// Tracks returns a copy of the queued tracks.
func (q *Queue) Tracks() []audio.Track {
	return slices.Clone(q.tracks)
}

// Current returns the track most recently returned by [Queue.Next], if it is
// still queued.
func (q *Queue) Current() (audio.Track, bool) {
	i := q.cursor - 1
	if i < 0 || i >= len(q.tracks) {
		return audio.Track{}, false
	}
	return q.tracks[i], true
}

// Upcoming returns the track the next [Queue.Next] would return.
func (q *Queue) Upcoming() (audio.Track, bool) {
	if q.cursor >= len(q.tracks) {
		return audio.Track{}, false
	}
	return q.tracks[q.cursor], true
}
