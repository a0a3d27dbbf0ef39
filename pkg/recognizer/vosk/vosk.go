// Package vosk implements the recognizer.Engine interface on top of the Vosk
// offline speech recognition toolkit (via the official cgo binding).
//
// The engine loads one acoustic model and hands out grammar-restricted
// recognizer sessions. Vosk result payloads are JSON; this package decodes
// them into plain transcript strings.
package vosk

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	vosklib "github.com/alphacep/vosk-api/go"

	"github.com/sayboard/sayboard/pkg/audio"
	"github.com/sayboard/sayboard/pkg/recognizer"
)

// Compile-time interface assertions.
var (
	_ recognizer.Engine  = (*Engine)(nil)
	_ recognizer.Session = (*session)(nil)
)

var logLevelOnce sync.Once

// Engine is a recognizer.Engine backed by a single loaded Vosk model.
// Safe for concurrent use; sessions share the model read-only.
type Engine struct {
	mu     sync.Mutex
	models map[string]*vosklib.VoskModel
}

// NewEngine returns an Engine. Models are loaded lazily on first session per
// model path and cached for subsequent sessions (the accuracy harness opens
// many sessions against one model).
func NewEngine() *Engine {
	logLevelOnce.Do(func() {
		// Vosk logs to stderr by default; keep only errors.
		vosklib.SetLogLevel(-1)
	})
	return &Engine{models: make(map[string]*vosklib.VoskModel)}
}

// NewSession opens a grammar-restricted recognition session.
func (e *Engine) NewSession(cfg recognizer.Config) (recognizer.Session, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("vosk: sample rate %d is invalid", cfg.SampleRate)
	}
	if len(cfg.Grammar) == 0 {
		return nil, fmt.Errorf("vosk: empty grammar")
	}

	model, err := e.model(cfg.ModelPath)
	if err != nil {
		return nil, err
	}

	grammar := append(append([]string{}, cfg.Grammar...), recognizer.UnknownToken)
	grammarJSON, err := json.Marshal(grammar)
	if err != nil {
		return nil, fmt.Errorf("vosk: marshal grammar: %w", err)
	}

	rec, err := vosklib.NewRecognizerGrm(model, float64(cfg.SampleRate), string(grammarJSON))
	if err != nil {
		return nil, fmt.Errorf("vosk: create recognizer: %w", err)
	}

	slog.Debug("vosk session opened",
		"model", cfg.ModelPath,
		"sample_rate", cfg.SampleRate,
		"grammar_words", len(cfg.Grammar),
	)
	return &session{rec: rec}, nil
}

// model returns the cached model for path, loading it on first use.
func (e *Engine) model(path string) (*vosklib.VoskModel, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if m, ok := e.models[path]; ok {
		return m, nil
	}
	m, err := vosklib.NewModel(path)
	if err != nil {
		return nil, fmt.Errorf("vosk: load model %q: %w", path, err)
	}
	e.models[path] = m
	return m, nil
}

type session struct {
	rec    *vosklib.VoskRecognizer
	closed bool
}

func (s *session) AcceptWaveform(samples []int16) (recognizer.State, error) {
	if s.closed {
		return recognizer.Failed, fmt.Errorf("vosk: session closed")
	}
	switch s.rec.AcceptWaveform(audio.SamplesToBytes(samples)) {
	case 1:
		return recognizer.Finalized, nil
	case 0:
		return recognizer.Running, nil
	default:
		return recognizer.Failed, nil
	}
}

func (s *session) Partial() string {
	var res struct {
		Partial string `json:"partial"`
	}
	if err := json.Unmarshal([]byte(s.rec.PartialResult()), &res); err != nil {
		slog.Warn("vosk: malformed partial result", "err", err)
		return ""
	}
	return res.Partial
}

func (s *session) FinalText() string {
	var res struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(s.rec.FinalResult()), &res); err != nil {
		slog.Warn("vosk: malformed final result", "err", err)
		return ""
	}
	return res.Text
}

func (s *session) Reset() {
	if !s.closed {
		s.rec.Reset()
	}
}

func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.rec.Free()
	return nil
}
