package detector

import (
	"log/slog"
	"time"
)

// Source tags where in the recognizer output a keyword was detected. The tag
// travels with the emitted event so detection latency and accuracy can be
// compared per source without touching the pipeline.
type Source string

const (
	// SourcePartial marks a hit on an in-progress transcript.
	SourcePartial Source = "partial"

	// SourceFinal marks a hit on a committed transcript.
	SourceFinal Source = "final"

	// SourceTail marks a hit on a zero-padded trailing window.
	SourceTail Source = "tail"
)

// Deduper suppresses repeat detections of the same keyword within a cooldown
// window. It holds a single last-match slot, not a per-keyword map:
// alternating keywords each bypass the cooldown because every emission
// replaces the slot. This mirrors the behaviour the surrounding application
// was built against.
//
// Owned by one detector run; not safe for concurrent use.
type Deduper struct {
	cooldown time.Duration
	now      func() time.Time

	lastKeyword string
	lastAt      time.Time
	hasLast     bool
}

// NewDeduper creates a Deduper with the given cooldown. now is the clock;
// pass nil for time.Now.
func NewDeduper(cooldown time.Duration, now func() time.Time) *Deduper {
	if now == nil {
		now = time.Now
	}
	return &Deduper{cooldown: cooldown, now: now}
}

// TryEmit invokes onMatch with keyword unless the same keyword was emitted
// within the cooldown. Duplicates are suppressed but logged. Returns whether
// the event was emitted.
func (d *Deduper) TryEmit(keyword string, source Source, onMatch func(string)) bool {
	now := d.now()
	isDup := d.hasLast && d.lastKeyword == keyword && now.Sub(d.lastAt) < d.cooldown

	slog.Debug("keyword matched",
		"keyword", keyword,
		"source", string(source),
		"duplicate", isDup,
	)
	if isDup {
		return false
	}

	onMatch(keyword)
	d.lastKeyword = keyword
	d.lastAt = now
	d.hasLast = true
	return true
}
