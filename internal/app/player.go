package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sayboard/sayboard/internal/soundbank"
	"github.com/sayboard/sayboard/pkg/transport"
)

// player serialises clip playback: one clip plays at a time, and a trigger
// arriving mid-playback replaces whatever was queued, so a burst of
// detections plays the current clip, then the newest one.
type player struct {
	trans transport.Transport

	mu      sync.Mutex
	playing bool
	pending *queuedClip

	// onDone is called after each playback finishes. Test hook.
	onDone func(keyword string, err error)
}

type queuedClip struct {
	keyword string
	clip    soundbank.Clip
}

func newPlayer(trans transport.Transport) *player {
	return &player{trans: trans}
}

// Trigger plays clip asynchronously. If a clip is already playing, the new
// one is queued for when it finishes, replacing any previously queued clip.
func (p *player) Trigger(ctx context.Context, keyword string, clip soundbank.Clip) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing {
		if p.pending != nil {
			slog.Debug("playback queue replaced",
				"dropped", p.pending.keyword,
				"queued", keyword,
			)
		}
		p.pending = &queuedClip{keyword: keyword, clip: clip}
		return
	}

	p.playing = true
	go p.playLoop(ctx, queuedClip{keyword: keyword, clip: clip})
}

// playLoop plays next, then drains any clip queued during playback, and
// clears the playing flag when nothing is left.
func (p *player) playLoop(ctx context.Context, next queuedClip) {
	for {
		err := p.trans.Play(ctx, next.clip.Format, next.clip.Samples)
		if err != nil && ctx.Err() == nil {
			slog.Error("playback failed", "keyword", next.keyword, "err", err)
		}
		if p.onDone != nil {
			p.onDone(next.keyword, err)
		}

		p.mu.Lock()
		if p.pending == nil || ctx.Err() != nil {
			p.playing = false
			p.pending = nil
			p.mu.Unlock()
			return
		}
		next = *p.pending
		p.pending = nil
		p.mu.Unlock()
	}
}
