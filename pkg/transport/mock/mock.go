// Package mock provides test doubles for the transport package interfaces.
//
// Use Transport to script a capture format and feed frames into the capture
// callback from tests, and to inspect clips passed to Play.
package mock

import (
	"context"
	"sync"

	"github.com/sayboard/sayboard/pkg/audio"
	"github.com/sayboard/sayboard/pkg/transport"
)

// PlayCall records a single invocation of Transport.Play.
type PlayCall struct {
	Format audio.Format
	Clip   []float32
}

// Transport is a mock implementation of transport.Transport.
type Transport struct {
	mu sync.Mutex

	// CaptureFormat is the format reported by the capture stream. The zero
	// value defaults to 16kHz mono.
	CaptureFormat audio.Format

	// CaptureErr, if non-nil, is returned from Capture.
	CaptureErr error

	// PlayErr, if non-nil, is returned from Play.
	PlayErr error

	// PlayCalls records every Play invocation.
	PlayCalls []PlayCall

	fn func(samples []int16)
}

// Capture stores the callback and returns a stream reporting CaptureFormat.
func (t *Transport) Capture(ctx context.Context, want audio.Format, fn func(samples []int16)) (transport.Stream, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.CaptureErr != nil {
		return nil, t.CaptureErr
	}
	format := t.CaptureFormat
	if format.SampleRate == 0 {
		format = audio.Format{SampleRate: 16000, Channels: 1}
	}
	t.fn = fn
	return &stream{format: format}, nil
}

// Play records the call and returns PlayErr.
func (t *Transport) Play(ctx context.Context, format audio.Format, clip []float32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.PlayCalls = append(t.PlayCalls, PlayCall{Format: format, Clip: clip})
	return t.PlayErr
}

// Deliver invokes the registered capture callback with samples, as the real
// transport would from its audio thread. No-op before Capture is called.
func (t *Transport) Deliver(samples []int16) {
	t.mu.Lock()
	fn := t.fn
	t.mu.Unlock()
	if fn != nil {
		fn(samples)
	}
}

// Played returns a snapshot of recorded Play calls. Thread-safe.
func (t *Transport) Played() []PlayCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]PlayCall, len(t.PlayCalls))
	copy(out, t.PlayCalls)
	return out
}

type stream struct {
	format audio.Format
	closed bool
}

func (s *stream) Format() audio.Format { return s.format }

func (s *stream) Close() error {
	s.closed = true
	return nil
}
