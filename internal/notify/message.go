package notify

import (
	"fmt"

	"github.com/lolwierd/cric-commentary/internal/tracker"
)

// FormatMessage renders the one-line alert for an event.
func FormatMessage(ev tracker.Event) string {
	return fmt.Sprintf("Over: %s | Result: %s | Score: %s", ev.PositionText, ev.Result, ev.Score)
}
