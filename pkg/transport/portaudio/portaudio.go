// Package portaudio implements the transport.Transport interface on top of
// the PortAudio library.
//
// Capture opens the default input device at its native sample rate and the
// requested channel count, so the detector's converter stage always sees the
// true device format rather than a resampled approximation. Playback opens the
// default output device per clip.
package portaudio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	portaudiolib "github.com/gordonklaus/portaudio"

	"github.com/sayboard/sayboard/pkg/audio"
	"github.com/sayboard/sayboard/pkg/transport"
)

// Compile-time interface assertion.
var _ transport.Transport = (*Transport)(nil)

// framesPerBuffer is the PortAudio callback granularity. 10ms at 48kHz.
const framesPerBuffer = 480

var (
	initOnce sync.Once
	initErr  error
)

// Transport is a transport.Transport backed by PortAudio default devices.
type Transport struct{}

// New initialises PortAudio (once per process) and returns a Transport.
func New() (*Transport, error) {
	initOnce.Do(func() {
		initErr = portaudiolib.Initialize()
	})
	if initErr != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", initErr)
	}
	return &Transport{}, nil
}

// Terminate releases the PortAudio runtime. Call once at process shutdown,
// after every stream is closed.
func Terminate() error {
	return portaudiolib.Terminate()
}

// Capture opens the default input device. The requested sample rate is
// ignored in favour of the device's native rate; the requested channel count
// is honoured when the device supports it.
func (t *Transport) Capture(ctx context.Context, want audio.Format, fn func(samples []int16)) (transport.Stream, error) {
	dev, err := portaudiolib.DefaultInputDevice()
	if err != nil {
		return nil, fmt.Errorf("portaudio: default input device: %w", err)
	}

	channels := want.Channels
	if channels <= 0 || channels > dev.MaxInputChannels {
		channels = dev.MaxInputChannels
	}
	rate := int(dev.DefaultSampleRate)

	stream, err := portaudiolib.OpenDefaultStream(channels, 0, float64(rate), framesPerBuffer,
		func(in []int16) {
			fn(in)
		})
	if err != nil {
		return nil, fmt.Errorf("portaudio: open capture stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("portaudio: start capture stream: %w", err)
	}

	slog.Info("portaudio capture started",
		"device", dev.Name,
		"sample_rate", rate,
		"channels", channels,
		"requested_rate", want.SampleRate,
	)
	return &captureStream{
		stream: stream,
		format: audio.Format{SampleRate: rate, Channels: channels},
	}, nil
}

// Play streams one float32 clip to the default output device, blocking until
// the clip ends or ctx is cancelled.
func (t *Transport) Play(ctx context.Context, format audio.Format, clip []float32) error {
	if len(clip) == 0 {
		return nil
	}

	var (
		pos  int
		done = make(chan struct{})
		once sync.Once
	)
	stream, err := portaudiolib.OpenDefaultStream(0, format.Channels, float64(format.SampleRate), framesPerBuffer,
		func(out []float32) {
			n := copy(out, clip[pos:])
			pos += n
			for i := n; i < len(out); i++ {
				out[i] = 0
			}
			if pos >= len(clip) {
				once.Do(func() { close(done) })
			}
		})
	if err != nil {
		return fmt.Errorf("portaudio: open playback stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("portaudio: start playback stream: %w", err)
	}

	select {
	case <-done:
	case <-ctx.Done():
		stream.Stop()
		return ctx.Err()
	}
	return stream.Stop()
}

type captureStream struct {
	stream *portaudiolib.Stream
	format audio.Format

	closeOnce sync.Once
	closeErr  error
}

func (s *captureStream) Format() audio.Format { return s.format }

func (s *captureStream) Close() error {
	s.closeOnce.Do(func() {
		if err := s.stream.Stop(); err != nil {
			s.closeErr = err
		}
		if err := s.stream.Close(); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
	})
	return s.closeErr
}
