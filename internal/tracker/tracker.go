// Package tracker holds the cross-cycle memory of the poller: which
// commentary rows have been seen, how far the over watermark has advanced and
// which over was last notified.
//
// A Tracker is owned by a single goroutine and is not safe for concurrent use.
package tracker

import (
	"math"
	"strconv"
	"strings"

	"github.com/lolwierd/cric-commentary/internal/classify"
	"github.com/lolwierd/cric-commentary/internal/extract"
)

// NoPosition is returned by ParsePosition for text that is not an over
// number. It sorts below every real over.
const NoPosition = -1.0

const (
	DefaultKeyPrefix  = 50
	DefaultMaxKeys    = 1000
	DefaultRetainKeys = 500
)

// Key identifies a commentary row across polls. Only a prefix of the text is
// used because the site rewrites the tail of a line while it is still live.
type Key struct {
	Position string `json:"position"`
	Prefix   string `json:"prefix"`
}

// Event is an admitted commentary row.
type Event struct {
	Position     float64         `json:"position"`
	PositionText string          `json:"over"`
	Text         string          `json:"commentary"`
	Result       classify.Result `json:"result"`
	Score        string          `json:"score"`
}

// Options tunes the key prefix length and the coarse memory cap.
type Options struct {
	KeyPrefix  int
	MaxKeys    int
	RetainKeys int
}

// Tracker decides which rows are new and which over deserves a notification.
type Tracker struct {
	opts         Options
	seen         map[Key]struct{}
	high         float64
	lastNotified float64
	notified     bool
}

// New returns an empty tracker. Zero option fields take the defaults.
func New(opts Options) *Tracker {
	if opts.KeyPrefix <= 0 {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	if opts.MaxKeys <= 0 {
		opts.MaxKeys = DefaultMaxKeys
	}
	if opts.RetainKeys <= 0 || opts.RetainKeys > opts.MaxKeys {
		opts.RetainKeys = min(DefaultRetainKeys, opts.MaxKeys)
	}
	return &Tracker{
		opts: opts,
		seen: make(map[Key]struct{}),
		high: NoPosition,
	}
}

// ParsePosition converts over text such as "49.2" to a number, returning
// NoPosition when it cannot.
func ParsePosition(text string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return NoPosition
	}
	return f
}

// KeyFor builds the identity key of a row.
func (t *Tracker) KeyFor(position, text string) Key {
	return Key{Position: position, Prefix: prefix(text, t.opts.KeyPrefix)}
}

func prefix(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Seen reports whether a row with this identity was admitted before.
func (t *Tracker) Seen(position, text string) bool {
	_, ok := t.seen[t.KeyFor(position, text)]
	return ok
}

// Admit filters one cycle's rows and returns those that are new and not
// behind the watermark, in source order. Each admitted row carries score.
func (t *Tracker) Admit(rows []extract.Row, score string) []Event {
	var events []Event
	for _, row := range rows {
		key := t.KeyFor(row.Position, row.Text)
		if _, ok := t.seen[key]; ok {
			continue
		}

		result := classify.Classify(row.Text)
		if !result.Notable() || row.Position == "N/A" {
			continue
		}
		pos := ParsePosition(row.Position)
		if pos == NoPosition || pos < t.high {
			continue
		}
		if pos > t.high {
			t.high = pos
		}

		t.seen[key] = struct{}{}
		events = append(events, Event{
			Position:     pos,
			PositionText: row.Position,
			Text:         row.Text,
			Result:       result,
			Score:        score,
		})
	}
	return events
}

// Latest returns the event at the highest position. Ties keep the first.
func Latest(events []Event) (Event, bool) {
	if len(events) == 0 {
		return Event{}, false
	}
	best := events[0]
	for _, ev := range events[1:] {
		if ev.Position > best.Position {
			best = ev
		}
	}
	return best, true
}

// NextNotification picks the latest of this cycle's events and returns it if
// its over differs from the last one notified. The over is recorded as
// notified when true is returned.
func (t *Tracker) NextNotification(events []Event) (Event, bool) {
	latest, ok := Latest(events)
	if !ok {
		return Event{}, false
	}
	if t.notified && t.lastNotified == latest.Position {
		return Event{}, false
	}
	t.lastNotified = latest.Position
	t.notified = true
	return latest, true
}

// Compact drops keys once the set grows past MaxKeys, keeping an arbitrary
// RetainKeys of them. Which keys survive follows map iteration order, so an
// evicted row may be admitted again later. It returns the number evicted.
func (t *Tracker) Compact() int {
	if len(t.seen) <= t.opts.MaxKeys {
		return 0
	}
	evicted := 0
	for k := range t.seen {
		if len(t.seen) <= t.opts.RetainKeys {
			break
		}
		delete(t.seen, k)
		evicted++
	}
	return evicted
}

// Len is the number of remembered keys.
func (t *Tracker) Len() int {
	return len(t.seen)
}

// HighWatermark returns the highest admitted over, or NoPosition.
func (t *Tracker) HighWatermark() float64 {
	return t.high
}

// LastNotified returns the last notified over, if any.
func (t *Tracker) LastNotified() (float64, bool) {
	return t.lastNotified, t.notified
}
