// Package app wires the sayboard subsystems into a running application.
//
// The App struct owns the full lifecycle: New loads the sound bank and
// connects the recognizer and transport backends, Run executes the detection
// loop until the context ends, and Shutdown tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithEngine, WithTransport, etc.). When an option is not provided, New
// creates the real backend.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/sayboard/sayboard/internal/config"
	"github.com/sayboard/sayboard/internal/detector"
	"github.com/sayboard/sayboard/internal/observe"
	"github.com/sayboard/sayboard/internal/soundbank"
	"github.com/sayboard/sayboard/pkg/recognizer"
	"github.com/sayboard/sayboard/pkg/recognizer/vosk"
	"github.com/sayboard/sayboard/pkg/transport"
	"github.com/sayboard/sayboard/pkg/transport/portaudio"
)

// App owns all subsystem lifetimes and orchestrates the detect-and-play loop.
type App struct {
	cfg *config.Config

	engine  recognizer.Engine
	trans   transport.Transport
	bank    *soundbank.Bank
	metrics *observe.Metrics
	player  *player

	// level adjusts the process log level on config reload. Optional.
	level *slog.LevelVar

	// reload receives validated configs from the file watcher.
	reload  chan *config.Config
	watcher *config.Watcher

	// closers are called in reverse order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithEngine injects a recognizer engine instead of the Vosk backend.
func WithEngine(e recognizer.Engine) Option {
	return func(a *App) { a.engine = e }
}

// WithTransport injects an audio transport instead of the PortAudio backend.
func WithTransport(t transport.Transport) Option {
	return func(a *App) { a.trans = t }
}

// WithBank injects a pre-loaded sound bank instead of decoding the mapped
// files from disk.
func WithBank(b *soundbank.Bank) Option {
	return func(a *App) { a.bank = b }
}

// WithMetrics injects a Metrics instance instead of the process default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLogLevelVar hands the app the level var backing the process logger, so
// log_level changes in a watched config file take effect live.
func WithLogLevelVar(v *slog.LevelVar) Option {
	return func(a *App) { a.level = v }
}

// WithConfigWatch polls the config file at path and applies safe changes
// (mappings, log level) without restarting the process. Mapping changes
// restart the detection run, since the recognizer grammar is fixed per
// session.
func WithConfigWatch(path string) Option {
	return func(a *App) {
		a.reload = make(chan *config.Config, 1)
		w, err := config.NewWatcher(path, func(_, new *config.Config) {
			select {
			case a.reload <- new:
			default:
				// A reload is already queued; the watcher's Current()
				// keeps the newest config, so drop this notification.
			}
		})
		if err != nil {
			// The initial load already succeeded before New was called,
			// so this is rare; run without hot reload.
			slog.Warn("config watch disabled", "path", path, "err", err)
			a.reload = nil
			return
		}
		a.watcher = w
	}
}

// New creates an App by wiring all subsystems together: sound bank,
// recognizer engine, and audio transport. cfg must already be validated.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if a.bank == nil {
		bank, err := soundbank.Load(cfg.Mappings)
		if err != nil {
			a.Shutdown()
			return nil, fmt.Errorf("app: load sound bank: %w", err)
		}
		a.bank = bank
	}

	if a.engine == nil {
		a.engine = vosk.NewEngine()
	}

	if a.trans == nil {
		trans, err := portaudio.New()
		if err != nil {
			a.Shutdown()
			return nil, fmt.Errorf("app: init audio transport: %w", err)
		}
		a.trans = trans
		a.closers = append(a.closers, portaudio.Terminate)
	}

	a.player = newPlayer(a.trans)
	if a.watcher != nil {
		a.closers = append(a.closers, func() error {
			a.watcher.Stop()
			return nil
		})
	}
	return a, nil
}

// Run executes detection runs until ctx is cancelled. A run ends early only
// when a watched config file changes its mappings; the next run starts with
// the new keyword set and sound bank.
func (a *App) Run(ctx context.Context) error {
	for {
		restart, err := a.runOnce(ctx)
		if !restart {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

// runOnce runs one detection session. It returns restart=true when a config
// reload asks for a fresh session with new keywords.
func (a *App) runOnce(ctx context.Context) (restart bool, err error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	det := detector.New(a.engine, a.trans, a.detectorConfig(), detector.WithMetrics(a.metrics))

	// Playback uses the outer context so a mid-clip config reload does not
	// cut the sound off.
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return det.Run(gctx, func(keyword string) {
			a.onMatch(ctx, keyword)
		})
	})

	var reload <-chan *config.Config
	if a.reload != nil {
		reload = a.reload
	}

	select {
	case newCfg := <-reload:
		cancel()
		_ = g.Wait()
		if applyErr := a.applyConfig(newCfg); applyErr != nil {
			slog.Error("config reload rejected, keeping previous setup", "err", applyErr)
		}
		return true, nil
	case <-gctx.Done():
		err = g.Wait()
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			err = ctx.Err()
		}
		return false, err
	}
}

// applyConfig applies a hot-reloaded config: the sound bank is rebuilt from
// the new mappings and the log level is adjusted. Audio geometry and model
// path changes are logged but ignored until restart.
func (a *App) applyConfig(newCfg *config.Config) error {
	d := config.Diff(a.cfg, newCfg)

	if d.LogLevelChanged && a.level != nil {
		a.level.Set(newCfg.SlogLevel())
		slog.Info("log level changed", "level", newCfg.LogLevel)
	}

	if d.MappingsChanged {
		bank, err := soundbank.Load(newCfg.Mappings)
		if err != nil {
			return fmt.Errorf("reload sound bank: %w", err)
		}
		a.bank = bank
		for _, c := range d.MappingChanges {
			slog.Info("mapping changed",
				"keyword", c.Keyword,
				"added", c.Added,
				"removed", c.Removed,
				"sound_changed", c.SoundChanged,
			)
		}
	}

	if a.cfg.Recognizer.ModelPath != newCfg.Recognizer.ModelPath {
		slog.Warn("recognizer.model_path changed; restart to apply")
		newCfg.Recognizer.ModelPath = a.cfg.Recognizer.ModelPath
	}
	if a.cfg.Audio != newCfg.Audio {
		slog.Warn("audio settings changed; restart to apply")
		newCfg.Audio = a.cfg.Audio
	}

	a.cfg = newCfg
	return nil
}

// onMatch looks up the matched keyword's clip and hands it to the player.
func (a *App) onMatch(ctx context.Context, keyword string) {
	clip, ok := a.bank.Clip(keyword)
	if !ok {
		// Keywords and bank come from the same mappings; a miss means a
		// reload raced a detection.
		slog.Warn("no sound mapped for detected keyword", "keyword", keyword)
		return
	}

	slog.Info("keyword triggered playback",
		"keyword", keyword,
		"duration_secs", clip.Duration(),
	)
	if a.metrics.Playbacks != nil {
		a.metrics.Playbacks.Add(ctx, 1, metric.WithAttributes(
			attribute.String("keyword", keyword),
		))
	}
	a.player.Trigger(ctx, keyword, clip)
}

// detectorConfig converts the validated config's second-based audio settings
// into the detector's sample-based geometry.
func (a *App) detectorConfig() detector.Config {
	au := a.cfg.Audio
	rate := au.TargetRate
	return detector.Config{
		ModelPath:       a.cfg.Recognizer.ModelPath,
		Keywords:        a.cfg.Keywords(),
		TargetRate:      rate,
		ChunkSamples:    int(au.ChunkSecs * float64(rate)),
		OverlapSamples:  int(au.OverlapSecs * float64(rate)),
		MinTailSamples:  int(au.MinTailSecs * float64(rate)),
		Cooldown:        time.Duration(au.CooldownSecs * float64(time.Second)),
		TickInterval:    time.Duration(au.TickMillis) * time.Millisecond,
		CaptureChannels: au.CaptureChannels,
	}
}

// Shutdown releases all resources. Safe to call more than once.
func (a *App) Shutdown() {
	a.stopOnce.Do(func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i](); err != nil {
				slog.Error("shutdown step failed", "err", err)
			}
		}
	})
}
