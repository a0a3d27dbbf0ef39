package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Audio defaults applied by [Validate] when the config leaves them zero:
// 1.5s windows with 0.5s overlap at 16kHz, a 0.5s tail floor, a 3s repeat
// cooldown, and a 100ms processing tick.
const (
	DefaultTargetRate   = 16000
	DefaultChunkSecs    = 1.5
	DefaultOverlapSecs  = 0.5
	DefaultMinTailSecs  = 0.5
	DefaultCooldownSecs = 3.0
	DefaultTickMillis   = 100
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values, filling in
// defaults for zero-valued audio settings and case-folding keywords.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel == "" {
		cfg.LogLevel = LogInfo
	}
	if !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	// Audio defaults
	a := &cfg.Audio
	if a.CaptureChannels == 0 {
		a.CaptureChannels = 2
	}
	if a.TargetRate == 0 {
		a.TargetRate = DefaultTargetRate
	}
	if a.ChunkSecs == 0 {
		a.ChunkSecs = DefaultChunkSecs
	}
	if a.OverlapSecs == 0 {
		a.OverlapSecs = DefaultOverlapSecs
	}
	if a.MinTailSecs == 0 {
		a.MinTailSecs = DefaultMinTailSecs
	}
	if a.CooldownSecs == 0 {
		a.CooldownSecs = DefaultCooldownSecs
	}
	if a.TickMillis == 0 {
		a.TickMillis = DefaultTickMillis
	}

	if a.CaptureChannels < 0 {
		errs = append(errs, fmt.Errorf("audio.capture_channels %d must be positive", a.CaptureChannels))
	}
	if a.TargetRate < 0 {
		errs = append(errs, fmt.Errorf("audio.target_rate %d must be positive", a.TargetRate))
	}
	if a.ChunkSecs < 0 {
		errs = append(errs, fmt.Errorf("audio.chunk_secs %.2f must be positive", a.ChunkSecs))
	}
	if a.OverlapSecs < 0 || a.OverlapSecs >= a.ChunkSecs {
		errs = append(errs, fmt.Errorf("audio.overlap_secs %.2f is out of range [0, chunk_secs)", a.OverlapSecs))
	}
	if a.MinTailSecs < 0 || a.MinTailSecs > a.ChunkSecs {
		errs = append(errs, fmt.Errorf("audio.min_tail_secs %.2f is out of range [0, chunk_secs]", a.MinTailSecs))
	}
	if a.CooldownSecs < 0 {
		errs = append(errs, fmt.Errorf("audio.cooldown_secs %.2f must not be negative", a.CooldownSecs))
	}
	if a.TickMillis < 0 {
		errs = append(errs, fmt.Errorf("audio.tick_millis %d must be positive", a.TickMillis))
	}
	if a.OverlapSecs > 0 && a.OverlapSecs >= a.ChunkSecs/2 {
		slog.Warn("audio.overlap_secs is at least half of chunk_secs; most audio will be decoded twice",
			"overlap_secs", a.OverlapSecs,
			"chunk_secs", a.ChunkSecs,
		)
	}

	if cfg.Recognizer.ModelPath == "" {
		errs = append(errs, errors.New("recognizer.model_path is required"))
	}

	if len(cfg.Mappings) == 0 {
		errs = append(errs, errors.New("at least one mapping is required"))
	}

	// Keyword duplicate detection, case-insensitive.
	keywordsSeen := make(map[string]int, len(cfg.Mappings))
	for i := range cfg.Mappings {
		m := &cfg.Mappings[i]
		prefix := fmt.Sprintf("mappings[%d]", i)
		m.Keyword = strings.ToLower(strings.TrimSpace(m.Keyword))
		if m.Keyword == "" {
			errs = append(errs, fmt.Errorf("%s.keyword is required", prefix))
		} else {
			if prev, ok := keywordsSeen[m.Keyword]; ok {
				errs = append(errs, fmt.Errorf("%s.keyword %q is a duplicate of mappings[%d]", prefix, m.Keyword, prev))
			}
			keywordsSeen[m.Keyword] = i
		}
		if m.Sound == "" {
			errs = append(errs, fmt.Errorf("%s.sound is required", prefix))
		}
	}

	return errors.Join(errs...)
}

// Keywords returns the keyword of every mapping, in config order.
func (c *Config) Keywords() []string {
	out := make([]string, len(c.Mappings))
	for i, m := range c.Mappings {
		out[i] = m.Keyword
	}
	return out
}

// SlogLevel converts the configured level to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
