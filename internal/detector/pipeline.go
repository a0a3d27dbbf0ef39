package detector

import (
	"context"
	"log/slog"
	"time"

	"github.com/sayboard/sayboard/internal/observe"
	"github.com/sayboard/sayboard/pkg/audio"
	"github.com/sayboard/sayboard/pkg/keyword"
	"github.com/sayboard/sayboard/pkg/recognizer"
)

// rmsLogEvery throttles the per-chunk RMS diagnostic line.
const rmsLogEvery = 30

// Pipeline interprets recognizer output for one detector run: it conditions
// each analysis window, feeds it to the recognizer session, and turns the
// resulting decoding state into deduplicated keyword events.
//
// Matching strategy depends on where the text came from. Finalized (and
// tail) transcripts get exact plus fuzzy matching; partial transcripts are
// matched exactly only, because in-progress text mutates rapidly and fuzzy
// matching it produces false positives. Tail windows are only inspected when
// the recognizer finalizes on them; their padding makes partials unreliable.
//
// Owned by the detector's processing goroutine; not safe for concurrent use.
type Pipeline struct {
	session    recognizer.Session
	keywords   []string
	sampleRate int
	dedup      *Deduper
	stats      *Stats
	metrics    *observe.Metrics
	onMatch    func(string)

	chunkCount uint64
}

// PipelineConfig wires a Pipeline.
type PipelineConfig struct {
	// Session is the recognizer session, owned by the pipeline's caller.
	Session recognizer.Session

	// Keywords is the normalized (lowercase, deduplicated) keyword set.
	Keywords []string

	// SampleRate of every window, in Hz.
	SampleRate int

	// Cooldown is the dedup window for repeat detections of one keyword.
	Cooldown time.Duration

	// OnMatch receives each deduplicated keyword event.
	OnMatch func(string)

	// Stats receives per-run counters. Nil disables stats.
	Stats *Stats

	// Metrics receives OTel instruments. Nil means observe.DefaultMetrics.
	Metrics *observe.Metrics

	// Now overrides the dedup clock in tests. Nil means time.Now.
	Now func() time.Time
}

// NewPipeline creates a Pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	stats := cfg.Stats
	if stats == nil {
		stats = NewStats(0)
	}
	return &Pipeline{
		session:    cfg.Session,
		keywords:   cfg.Keywords,
		sampleRate: cfg.SampleRate,
		dedup:      NewDeduper(cfg.Cooldown, cfg.Now),
		stats:      stats,
		metrics:    metrics,
		onMatch:    cfg.OnMatch,
	}
}

// ProcessChunk conditions one window and interprets the recognizer's
// decoding state for it. source tags the resulting events; pass
// [SourceFinal] for full windows and [SourceTail] for zero-padded tails.
//
// Recognizer failures are recovered locally by resetting the session; they
// are never returned to the caller.
func (p *Pipeline) ProcessChunk(ctx context.Context, chunk []int16, source Source) {
	if source != SourceTail {
		start := time.Now()
		defer func() {
			elapsed := time.Since(start)
			p.stats.RecordChunk(elapsed)
			if p.metrics.ChunkDuration != nil {
				p.metrics.ChunkDuration.Record(ctx, elapsed.Seconds())
			}
		}()
	}

	processed := audio.HighpassFilter(chunk, p.sampleRate)
	audio.Normalize(processed)

	if source == SourceTail {
		p.stats.RecordTail()
	} else {
		p.chunkCount++
		if p.chunkCount%rmsLogEvery == 0 {
			slog.Debug("chunk processed",
				"chunk", p.chunkCount,
				"samples", len(processed),
				"rms", int(audio.RMS(processed)),
			)
		}
	}

	state, err := p.session.AcceptWaveform(processed)
	if err != nil || state == recognizer.Failed {
		slog.Debug("recognizer failed on window, resetting", "err", err)
		p.session.Reset()
		p.stats.RecordFailure()
		if p.metrics.RecognizerFailures != nil {
			p.metrics.RecognizerFailures.Add(ctx, 1)
		}
		return
	}

	switch {
	case state == recognizer.Finalized:
		text := p.session.FinalText()
		if text == "" || text == recognizer.UnknownToken {
			return
		}
		slog.Debug("final transcript", "text", text, "source", string(source))
		if kw, ok := keyword.Match(text, p.keywords); ok {
			p.emit(ctx, kw, source)
		}

	case source != SourceTail:
		// Partial guesses on tail windows are skipped: the zero padding
		// makes them unreliable, and the same samples will be decoded
		// again once they grow into a full window.
		partial := p.session.Partial()
		if partial == "" || partial == recognizer.UnknownToken {
			break
		}
		if kw, ok := keyword.MatchExact(partial, p.keywords); ok {
			p.emit(ctx, kw, SourcePartial)
		}
	}
}

// emit routes a matched keyword through dedup and records the outcome.
func (p *Pipeline) emit(ctx context.Context, kw string, source Source) {
	if p.dedup.TryEmit(kw, source, p.onMatch) {
		p.stats.RecordDetection(source)
		p.metrics.RecordDetection(ctx, kw, string(source))
		return
	}
	p.stats.RecordSuppressed()
	if p.metrics.DedupSuppressed != nil {
		p.metrics.DedupSuppressed.Add(ctx, 1)
	}
}
