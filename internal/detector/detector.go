// Package detector implements the streaming keyword-detection pipeline: it
// drains raw PCM pushed by the audio transport, converts it to mono at the
// recognizer rate, carves it into overlapping analysis windows, conditions
// each window, and interprets the recognizer's partial/final output into
// deduplicated keyword events.
package detector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sayboard/sayboard/internal/observe"
	"github.com/sayboard/sayboard/pkg/audio"
	"github.com/sayboard/sayboard/pkg/keyword"
	"github.com/sayboard/sayboard/pkg/recognizer"
	"github.com/sayboard/sayboard/pkg/transport"
)

// Default window geometry and timing, chosen for 16kHz speech recognition:
// 1.5s windows with 0.5s overlap catch words spoken across a boundary, and
// a 0.5s tail floor skips bursts too short to carry a word.
const (
	DefaultTargetRate     = 16000
	DefaultChunkSamples   = 24000
	DefaultOverlapSamples = 8000
	DefaultMinTailSamples = 8000
	DefaultCooldown       = 3 * time.Second
	DefaultTickInterval   = 100 * time.Millisecond
)

// Config describes one detector run.
type Config struct {
	// ModelPath is the recognizer model directory.
	ModelPath string

	// Keywords to detect. Normalized (lowercased, deduplicated) on Run.
	Keywords []string

	// TargetRate is the recognizer sample rate in Hz.
	TargetRate int

	// ChunkSamples is the analysis window length in samples.
	ChunkSamples int

	// OverlapSamples is the trailing region shared between consecutive
	// windows. Must be smaller than ChunkSamples.
	OverlapSamples int

	// MinTailSamples is the smallest leftover worth decoding as a
	// zero-padded tail window.
	MinTailSamples int

	// Cooldown suppresses repeat detections of one keyword.
	Cooldown time.Duration

	// TickInterval is the processing cadence. Each tick drains the capture
	// buffer wholesale and runs the pipeline off the audio callback's
	// critical path.
	TickInterval time.Duration

	// CaptureChannels is the channel count requested from the transport.
	// The transport may deliver something else; the converter handles it.
	CaptureChannels int
}

// DefaultConfig returns a Config with the reference window geometry.
func DefaultConfig(modelPath string, keywords []string) Config {
	return Config{
		ModelPath:       modelPath,
		Keywords:        keywords,
		TargetRate:      DefaultTargetRate,
		ChunkSamples:    DefaultChunkSamples,
		OverlapSamples:  DefaultOverlapSamples,
		MinTailSamples:  DefaultMinTailSamples,
		Cooldown:        DefaultCooldown,
		TickInterval:    DefaultTickInterval,
		CaptureChannels: 2,
	}
}

// Detector owns one capture-and-detect run. Create one per keyword set;
// independent detectors share nothing and may run in parallel.
type Detector struct {
	engine  recognizer.Engine
	trans   transport.Transport
	cfg     Config
	stats   *Stats
	metrics *observe.Metrics
}

// Option configures a Detector.
type Option func(*Detector)

// WithMetrics injects a Metrics instance instead of the process default.
func WithMetrics(m *observe.Metrics) Option {
	return func(d *Detector) { d.metrics = m }
}

// New creates a Detector. Nothing is opened until Run.
func New(engine recognizer.Engine, trans transport.Transport, cfg Config, opts ...Option) *Detector {
	d := &Detector{
		engine: engine,
		trans:  trans,
		cfg:    cfg,
		stats:  NewStats(0),
	}
	for _, o := range opts {
		o(d)
	}
	if d.metrics == nil {
		d.metrics = observe.DefaultMetrics()
	}
	return d
}

// Stats exposes the run's detection statistics for diagnostics.
func (d *Detector) Stats() *Stats { return d.stats }

// Run opens the recognizer session and the capture stream, then processes
// audio until ctx is cancelled. Construction failures (model, transport) are
// returned immediately; per-window recognizer failures are recovered
// internally and never end the run.
//
// onMatch is invoked from the processing goroutine for every deduplicated
// keyword event; it should hand off long work instead of blocking the tick.
func (d *Detector) Run(ctx context.Context, onMatch func(string)) error {
	keywords := keyword.Normalize(d.cfg.Keywords)
	if len(keywords) == 0 {
		return fmt.Errorf("detector: no keywords configured")
	}

	chunker, err := NewChunker(d.cfg.ChunkSamples, d.cfg.OverlapSamples, d.cfg.MinTailSamples)
	if err != nil {
		return err
	}

	session, err := d.engine.NewSession(recognizer.Config{
		ModelPath:  d.cfg.ModelPath,
		SampleRate: d.cfg.TargetRate,
		Grammar:    keywords,
	})
	if err != nil {
		return fmt.Errorf("detector: open recognizer session: %w", err)
	}
	defer session.Close()

	var buf audio.CaptureBuffer
	stream, err := d.trans.Capture(ctx, audio.Format{
		SampleRate: d.cfg.TargetRate,
		Channels:   d.cfg.CaptureChannels,
	}, buf.Push)
	if err != nil {
		return fmt.Errorf("detector: open capture stream: %w", err)
	}
	defer stream.Close()

	native := stream.Format()
	slog.Info("detector started",
		"keywords", keywords,
		"native_rate", native.SampleRate,
		"native_channels", native.Channels,
		"target_rate", d.cfg.TargetRate,
		"chunk_samples", d.cfg.ChunkSamples,
		"overlap_samples", d.cfg.OverlapSamples,
	)

	pipeline := NewPipeline(PipelineConfig{
		Session:    session,
		Keywords:   keywords,
		SampleRate: d.cfg.TargetRate,
		Cooldown:   d.cfg.Cooldown,
		OnMatch:    onMatch,
		Stats:      d.stats,
		Metrics:    d.metrics,
	})

	if d.metrics.ActiveDetectors != nil {
		d.metrics.ActiveDetectors.Add(ctx, 1)
		defer d.metrics.ActiveDetectors.Add(context.WithoutCancel(ctx), -1)
	}

	ticker := time.NewTicker(d.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("detector stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			d.tick(ctx, &buf, native, chunker, pipeline)
		}
	}
}

// tick drains the capture buffer wholesale and runs every ready window (plus
// an optional tail) through the pipeline. An empty drain returns immediately
// since ticks may outpace audio delivery.
func (d *Detector) tick(ctx context.Context, buf *audio.CaptureBuffer, native audio.Format, chunker *Chunker, pipeline *Pipeline) {
	raw := buf.Drain()
	if len(raw) == 0 {
		return
	}

	mono := audio.DownmixResample(raw, native.Channels, native.SampleRate, d.cfg.TargetRate)
	chunker.Feed(mono)

	for chunk := range chunker.Chunks() {
		pipeline.ProcessChunk(ctx, chunk, SourceFinal)
	}
	if tail, ok := chunker.Tail(); ok {
		pipeline.ProcessChunk(ctx, tail, SourceTail)
	}
}
