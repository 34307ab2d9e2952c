package tracker

// Snapshot is the serialisable form of a Tracker's memory.
type Snapshot struct {
	Keys          []Key    `json:"keys"`
	HighWatermark float64  `json:"high_watermark"`
	LastNotified  *float64 `json:"last_notified,omitempty"`
}

// Snapshot copies the tracker state.
func (t *Tracker) Snapshot() Snapshot {
	s := Snapshot{
		Keys:          make([]Key, 0, len(t.seen)),
		HighWatermark: t.high,
	}
	for k := range t.seen {
		s.Keys = append(s.Keys, k)
	}
	if t.notified {
		v := t.lastNotified
		s.LastNotified = &v
	}
	return s
}

// Restore replaces the tracker state with s. Options are left untouched; an
// oversized key set is trimmed by the next Compact.
func (t *Tracker) Restore(s Snapshot) {
	t.seen = make(map[Key]struct{}, len(s.Keys))
	for _, k := range s.Keys {
		t.seen[k] = struct{}{}
	}
	t.high = s.HighWatermark
	if t.high < NoPosition {
		t.high = NoPosition
	}
	t.notified = s.LastNotified != nil
	t.lastNotified = 0
	if s.LastNotified != nil {
		t.lastNotified = *s.LastNotified
	}
}
