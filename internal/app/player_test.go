package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sayboard/sayboard/internal/soundbank"
	"github.com/sayboard/sayboard/pkg/audio"
	"github.com/sayboard/sayboard/pkg/transport"
)

// blockingTransport blocks every Play call until released, recording the
// order clips were played in.
type blockingTransport struct {
	mu      sync.Mutex
	playing []audio.Format
	release chan struct{}
	started chan struct{}
}

func newBlockingTransport() *blockingTransport {
	return &blockingTransport{
		release: make(chan struct{}),
		started: make(chan struct{}, 16),
	}
}

func (t *blockingTransport) Capture(ctx context.Context, want audio.Format, fn func([]int16)) (transport.Stream, error) {
	panic("not used")
}

func (t *blockingTransport) Play(ctx context.Context, format audio.Format, clip []float32) error {
	t.mu.Lock()
	t.playing = append(t.playing, format)
	t.mu.Unlock()
	t.started <- struct{}{}
	select {
	case <-t.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *blockingTransport) played() []audio.Format {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]audio.Format, len(t.playing))
	copy(out, t.playing)
	return out
}

func clipWithRate(rate int) soundbank.Clip {
	return soundbank.Clip{
		Format:  audio.Format{SampleRate: rate, Channels: 1},
		Samples: make([]float32, 16),
	}
}

func TestPlayerQueueReplacement(t *testing.T) {
	trans := newBlockingTransport()
	p := newPlayer(trans)

	done := make(chan string, 8)
	p.onDone = func(keyword string, err error) { done <- keyword }

	ctx := context.Background()
	// First trigger starts playing; the next two queue, with the last one
	// replacing the first queued clip.
	p.Trigger(ctx, "first", clipWithRate(1000))
	<-trans.started
	p.Trigger(ctx, "dropped", clipWithRate(2000))
	p.Trigger(ctx, "second", clipWithRate(3000))

	close(trans.release)

	if got := <-done; got != "first" {
		t.Fatalf("first playback = %q, want first", got)
	}
	if got := <-done; got != "second" {
		t.Fatalf("second playback = %q, want second", got)
	}

	played := trans.played()
	if len(played) != 2 {
		t.Fatalf("played %d clips, want 2", len(played))
	}
	if played[0].SampleRate != 1000 || played[1].SampleRate != 3000 {
		t.Errorf("played rates = %d, %d; want 1000, 3000 (queued 2000 replaced)",
			played[0].SampleRate, played[1].SampleRate)
	}
}

func TestPlayerIdleAfterPlayback(t *testing.T) {
	trans := newBlockingTransport()
	close(trans.release)
	p := newPlayer(trans)

	done := make(chan string, 2)
	p.onDone = func(keyword string, err error) { done <- keyword }

	p.Trigger(context.Background(), "a", clipWithRate(1000))
	<-done

	// Playback finished; the next trigger starts immediately instead of
	// queueing behind a stale playing flag.
	deadline := time.After(time.Second)
	for {
		p.mu.Lock()
		idle := !p.playing
		p.mu.Unlock()
		if idle {
			break
		}
		select {
		case <-deadline:
			t.Fatal("player still marked playing after clip finished")
		case <-time.After(time.Millisecond):
		}
	}

	p.Trigger(context.Background(), "b", clipWithRate(2000))
	if got := <-done; got != "b" {
		t.Fatalf("second playback = %q, want b", got)
	}
}

func TestPlayerCancelledContextDropsQueue(t *testing.T) {
	trans := newBlockingTransport()
	p := newPlayer(trans)

	done := make(chan string, 4)
	p.onDone = func(keyword string, err error) { done <- keyword }

	ctx, cancel := context.WithCancel(context.Background())
	p.Trigger(ctx, "a", clipWithRate(1000))
	<-trans.started
	p.Trigger(ctx, "b", clipWithRate(2000))

	cancel()
	<-done

	// The queued clip is dropped once the context is gone.
	select {
	case kw := <-done:
		t.Fatalf("queued clip %q played after cancellation", kw)
	case <-time.After(50 * time.Millisecond):
	}
}
