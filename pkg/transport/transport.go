// Package transport defines the Transport interface for live audio I/O
// backends.
//
// A transport delivers raw interleaved signed 16-bit PCM from a capture
// device via a push callback and plays interleaved 32-bit float PCM to an
// output device. The capture side may deliver at a different rate or channel
// count than requested (hardware and sound servers negotiate their own
// native format); callers read the negotiated format from the stream and
// convert themselves.
//
// Implementations must be safe for concurrent use; a single Stream is owned
// by one caller.
package transport

import (
	"context"

	"github.com/sayboard/sayboard/pkg/audio"
)

// Stream is an open capture stream. Closing it tears down the device
// connection; the callback receives no frames after Close returns.
type Stream interface {
	// Format reports the negotiated capture format, which may differ from
	// the requested one.
	Format() audio.Format

	Close() error
}

// Transport is the abstraction over a live audio backend.
type Transport interface {
	// Capture opens a capture stream, requesting the given format. The
	// callback is invoked from the transport's own goroutine or audio
	// thread whenever a hardware buffer is ready; it must not block on
	// CPU-heavy work. Connection failure is returned immediately and is
	// fatal to the caller's run.
	Capture(ctx context.Context, want audio.Format, fn func(samples []int16)) (Stream, error)

	// Play plays one interleaved float32 PCM clip at the given format,
	// blocking until the clip finishes or ctx is cancelled.
	Play(ctx context.Context, format audio.Format, clip []float32) error
}
