package accuracy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/go-audio/wav"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/sayboard/sayboard/pkg/audio"
	"github.com/sayboard/sayboard/pkg/keyword"
	"github.com/sayboard/sayboard/pkg/recognizer"
)

// Benchmark window geometry, matching the live detector's defaults.
const (
	chunkSamples   = 24000
	overlapSamples = 8000
)

// Strategy is one dedup policy under evaluation. CooldownChunks is the
// number of chunks after a hit during which repeat hits of the same keyword
// are discarded; zero disables dedup entirely.
type Strategy struct {
	Name           string
	CooldownChunks int
}

// Variant is one recognition configuration under evaluation.
type Variant struct {
	Name string

	// Preprocess applies the highpass filter and RMS normalization to each
	// chunk before decoding.
	Preprocess bool

	// Fuzzy extends exact matching with Jaro-Winkler similarity.
	Fuzzy bool

	// Phonetic extends exact matching with Double Metaphone similarity.
	Phonetic bool
}

// DefaultStrategies is the dedup grid: no dedup plus chunk-gap cooldowns of
// one to three windows.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "no-dedup", CooldownChunks: 0},
		{Name: "gap-1", CooldownChunks: 1},
		{Name: "gap-2", CooldownChunks: 2},
		{Name: "gap-3", CooldownChunks: 3},
	}
}

// DefaultVariants is the recognition grid: raw decoding versus conditioned
// input with fuzzy or phonetic matching.
func DefaultVariants() []Variant {
	return []Variant{
		{Name: "base"},
		{Name: "preprocess+fuzzy", Preprocess: true, Fuzzy: true},
		{Name: "preprocess+phonetic", Preprocess: true, Phonetic: true},
	}
}

// Result scores one (sample, strategy, variant) grid cell across all rounds.
type Result struct {
	Sample   string
	Keyword  string
	Strategy string
	Variant  string

	Expected int
	Counts   []int // detection count per round

	Mean   float64
	StdDev float64

	// Accuracy is 100 when the mean count equals the expected count and
	// falls off linearly with the relative error, floored at zero.
	Accuracy float64
}

// Runner executes the benchmark grid against a recognizer engine.
type Runner struct {
	Engine     recognizer.Engine
	Strategies []Strategy
	Variants   []Variant

	// Parallelism bounds concurrent variant runs. Zero means one per
	// grid cell.
	Parallelism int
}

// Run evaluates every manifest sample against the full strategy × variant
// grid. Each (sample, variant, round) triple opens its own recognizer
// session; all strategies are scored from that session's per-chunk hits so
// the grid compares dedup policies on identical recognizer output.
func (r *Runner) Run(ctx context.Context, m *Manifest) ([]Result, error) {
	strategies := r.Strategies
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	variants := r.Variants
	if len(variants) == 0 {
		variants = DefaultVariants()
	}

	g, ctx := errgroup.WithContext(ctx)
	if r.Parallelism > 0 {
		g.SetLimit(r.Parallelism)
	}

	var mu sync.Mutex
	// counts[sample][variant][strategy] = per-round detection counts
	counts := make(map[int]map[int]map[int][]int)

	for si := range m.Samples {
		sample := m.Samples[si]
		pcm, err := readMonoWAV(sample.File, m.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("accuracy: sample %q: %w", sample.File, err)
		}
		chunks := chunkOffline(pcm)

		for vi := range variants {
			variant := variants[vi]
			for round := 0; round < m.Rounds; round++ {
				g.Go(func() error {
					hits, err := r.decodeRun(ctx, m, sample, chunks, variant)
					if err != nil {
						return err
					}
					mu.Lock()
					defer mu.Unlock()
					for sti, strategy := range strategies {
						n := applyStrategy(hits, strategy.CooldownChunks)
						if counts[si] == nil {
							counts[si] = make(map[int]map[int][]int)
						}
						if counts[si][vi] == nil {
							counts[si][vi] = make(map[int][]int)
						}
						counts[si][vi][sti] = append(counts[si][vi][sti], n)
					}
					return nil
				})
			}
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var results []Result
	for si, sample := range m.Samples {
		for vi, variant := range variants {
			for sti, strategy := range strategies {
				results = append(results, score(sample, strategy, variant, counts[si][vi][sti]))
			}
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Sample != results[j].Sample {
			return results[i].Sample < results[j].Sample
		}
		if results[i].Variant != results[j].Variant {
			return results[i].Variant < results[j].Variant
		}
		return results[i].Strategy < results[j].Strategy
	})
	return results, nil
}

// decodeRun pushes every chunk of one sample through a fresh recognizer
// session and returns the indices of chunks whose final text contained the
// keyword. The session is reset after every chunk so each window decodes
// independently.
func (r *Runner) decodeRun(ctx context.Context, m *Manifest, sample Sample, chunks [][]int16, variant Variant) ([]int, error) {
	kw := keyword.Normalize([]string{sample.Keyword})

	session, err := r.Engine.NewSession(recognizer.Config{
		ModelPath:  m.ModelPath,
		SampleRate: m.SampleRate,
		Grammar:    kw,
	})
	if err != nil {
		return nil, fmt.Errorf("accuracy: open session: %w", err)
	}
	defer session.Close()

	var hits []int
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		window := chunk
		if variant.Preprocess {
			window = audio.HighpassFilter(chunk, m.SampleRate)
			audio.Normalize(window)
		}

		state, err := session.AcceptWaveform(window)
		if err != nil || state == recognizer.Failed {
			slog.Debug("benchmark chunk failed", "sample", sample.File, "chunk", i, "err", err)
			session.Reset()
			continue
		}

		text := session.FinalText()
		session.Reset()
		if text == "" || text == recognizer.UnknownToken {
			continue
		}

		matched := false
		switch {
		case variant.Fuzzy:
			_, matched = keyword.Match(text, kw)
		case variant.Phonetic:
			_, matched = keyword.MatchExact(text, kw)
			if !matched {
				_, matched = keyword.MatchPhonetic(text, kw)
			}
		default:
			_, matched = keyword.MatchExact(text, kw)
		}
		if matched {
			hits = append(hits, i)
		}
	}
	return hits, nil
}

// applyStrategy counts hits surviving a chunk-gap cooldown: after a counted
// hit, hits within the next cooldown chunks are discarded.
func applyStrategy(hits []int, cooldown int) int {
	if cooldown <= 0 {
		return len(hits)
	}
	count := 0
	last := -cooldown - 1
	for _, h := range hits {
		if h-last <= cooldown {
			continue
		}
		count++
		last = h
	}
	return count
}

func score(sample Sample, strategy Strategy, variant Variant, counts []int) Result {
	vals := make([]float64, len(counts))
	for i, c := range counts {
		vals[i] = float64(c)
	}
	mean := stat.Mean(vals, nil)
	stddev := 0.0
	if len(vals) > 1 {
		stddev = stat.StdDev(vals, nil)
	}

	accuracy := 0.0
	if sample.Expected > 0 {
		rel := (mean - float64(sample.Expected)) / float64(sample.Expected)
		if rel < 0 {
			rel = -rel
		}
		accuracy = max(0, 100*(1-rel))
	}

	return Result{
		Sample:   sample.File,
		Keyword:  sample.Keyword,
		Strategy: strategy.Name,
		Variant:  variant.Name,
		Expected: sample.Expected,
		Counts:   counts,
		Mean:     mean,
		StdDev:   stddev,
		Accuracy: accuracy,
	}
}

// chunkOffline carves pcm into the detector's window geometry: full windows
// advancing by chunk minus overlap, plus one zero-padded window for any
// leftover shorter than a full window.
func chunkOffline(pcm []int16) [][]int16 {
	advance := chunkSamples - overlapSamples
	var chunks [][]int16
	pos := 0
	for pos+chunkSamples <= len(pcm) {
		window := make([]int16, chunkSamples)
		copy(window, pcm[pos:pos+chunkSamples])
		chunks = append(chunks, window)
		pos += advance
	}
	if pos < len(pcm) {
		window := make([]int16, chunkSamples)
		copy(window, pcm[pos:])
		chunks = append(chunks, window)
	}
	return chunks
}

// readMonoWAV decodes a WAV file into int16 samples, requiring mono audio at
// the given rate.
func readMonoWAV(path string, wantRate int) ([]int16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("not a valid WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode WAV: %w", err)
	}
	if buf.Format.NumChannels != 1 {
		return nil, fmt.Errorf("got %d channels, want mono", buf.Format.NumChannels)
	}
	if buf.Format.SampleRate != wantRate {
		return nil, fmt.Errorf("got %dHz, want %dHz", buf.Format.SampleRate, wantRate)
	}

	out := make([]int16, len(buf.Data))
	for i, s := range buf.Data {
		out[i] = int16(s)
	}
	return out, nil
}
