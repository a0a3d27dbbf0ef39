// Package soundbank decodes the configured sound files once at startup and
// serves them by trigger keyword. WAV and MP3 files are supported; anything
// missing or undecodable fails the load so a bad mapping is caught before
// detection starts.
package soundbank

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/sayboard/sayboard/internal/config"
	"github.com/sayboard/sayboard/pkg/audio"
)

// Clip is a fully decoded sound: interleaved float32 PCM in [-1, 1] plus its
// source format.
type Clip struct {
	Format  audio.Format
	Samples []float32
}

// Duration returns the clip length in seconds.
func (c Clip) Duration() float64 {
	if c.Format.SampleRate == 0 || c.Format.Channels == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.Format.SampleRate*c.Format.Channels)
}

// Bank holds the decoded clips for one mapping set.
type Bank struct {
	clips    map[string]Clip
	keywords []string
}

// Load decodes every mapped sound file. The first undecodable or missing
// file aborts the load with an error naming the file.
func Load(mappings []config.Mapping) (*Bank, error) {
	b := &Bank{
		clips:    make(map[string]Clip, len(mappings)),
		keywords: make([]string, 0, len(mappings)),
	}
	for _, m := range mappings {
		clip, err := LoadClip(m.Sound)
		if err != nil {
			return nil, fmt.Errorf("soundbank: keyword %q: %w", m.Keyword, err)
		}
		b.clips[m.Keyword] = clip
		b.keywords = append(b.keywords, m.Keyword)
		slog.Debug("sound loaded",
			"keyword", m.Keyword,
			"file", m.Sound,
			"duration_secs", clip.Duration(),
			"sample_rate", clip.Format.SampleRate,
			"channels", clip.Format.Channels,
		)
	}
	return b, nil
}

// Clip returns the decoded sound for keyword.
func (b *Bank) Clip(keyword string) (Clip, bool) {
	c, ok := b.clips[keyword]
	return c, ok
}

// Keywords returns the bank's trigger keywords in mapping order.
func (b *Bank) Keywords() []string {
	out := make([]string, len(b.keywords))
	copy(out, b.keywords)
	return out
}

// LoadClip decodes a single WAV or MP3 file.
func LoadClip(path string) (Clip, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		return loadWAV(path)
	case ".mp3":
		return loadMP3(path)
	default:
		return Clip{}, fmt.Errorf("unsupported audio file extension %q", ext)
	}
}

func loadWAV(path string) (Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return Clip{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Clip{}, fmt.Errorf("%s: not a valid WAV file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Clip{}, fmt.Errorf("%s: decode WAV: %w", path, err)
	}

	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(dec.BitDepth)
	}
	if depth <= 0 || depth > 32 {
		return Clip{}, fmt.Errorf("%s: unsupported bit depth %d", path, depth)
	}
	scale := float32(int64(1) << (depth - 1))

	samples := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = float32(s) / scale
	}
	return Clip{
		Format: audio.Format{
			SampleRate: buf.Format.SampleRate,
			Channels:   buf.Format.NumChannels,
		},
		Samples: samples,
	}, nil
}

func loadMP3(path string) (Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return Clip{}, err
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return Clip{}, fmt.Errorf("%s: decode MP3: %w", path, err)
	}

	// The decoder always emits 16-bit little-endian stereo.
	raw, err := io.ReadAll(dec)
	if err != nil {
		return Clip{}, fmt.Errorf("%s: read MP3 data: %w", path, err)
	}

	pcm := audio.BytesToSamples(raw)
	samples := make([]float32, len(pcm))
	for i, s := range pcm {
		samples[i] = float32(s) / 32768.0
	}
	return Clip{
		Format: audio.Format{
			SampleRate: dec.SampleRate(),
			Channels:   2,
		},
		Samples: samples,
	}, nil
}
