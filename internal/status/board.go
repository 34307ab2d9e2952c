// Package status exposes what the poller last saw over HTTP.
package status

import (
	"sync"
	"time"

	"github.com/lolwierd/cric-commentary/internal/tracker"
)

// Status is a point-in-time copy of the poller's progress.
type Status struct {
	Source         string         `json:"source"`
	Team           string         `json:"team"`
	Score          string         `json:"score"`
	LastEvent      *tracker.Event `json:"last_event,omitempty"`
	LastNotified   *tracker.Event `json:"last_notified,omitempty"`
	LastMessage    string         `json:"last_message,omitempty"`
	LastCycleAt    time.Time      `json:"last_cycle_at"`
	LastFetchError string         `json:"last_fetch_error,omitempty"`
	Cycles         int64          `json:"cycles"`
	Admitted       int64          `json:"admitted"`
	Notifications  int64          `json:"notifications"`
}

// Board holds the latest Status. Writers are the poll goroutine; readers are
// HTTP handlers and only ever get copies.
type Board struct {
	mu     sync.RWMutex
	status Status
}

func NewBoard(source, team string) *Board {
	return &Board{status: Status{Source: source, Team: team}}
}

// RecordCycle stores the outcome of a completed cycle.
func (b *Board) RecordCycle(at time.Time, score string, events []tracker.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.status.Cycles++
	b.status.LastCycleAt = at
	b.status.Score = score
	b.status.LastFetchError = ""
	b.status.Admitted += int64(len(events))
	if latest, ok := tracker.Latest(events); ok {
		b.status.LastEvent = &latest
	}
}

// RecordFetchError notes a cycle skipped because the page could not be fetched.
func (b *Board) RecordFetchError(at time.Time, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.status.Cycles++
	b.status.LastCycleAt = at
	b.status.LastFetchError = err.Error()
}

// RecordNotification stores the event and message most recently handed to
// the dispatcher.
func (b *Board) RecordNotification(ev tracker.Event, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.status.Notifications++
	b.status.LastNotified = &ev
	b.status.LastMessage = message
}

// Snapshot returns a copy safe to hand to another goroutine.
func (b *Board) Snapshot() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := b.status
	if s.LastEvent != nil {
		ev := *s.LastEvent
		s.LastEvent = &ev
	}
	if s.LastNotified != nil {
		ev := *s.LastNotified
		s.LastNotified = &ev
	}
	return s
}

// LastMessage returns the last notification text, if there was one.
func (b *Board) LastMessage() (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status.LastMessage, b.status.LastMessage != ""
}
