package app_test

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/sayboard/sayboard/internal/app"
	"github.com/sayboard/sayboard/internal/config"
	"github.com/sayboard/sayboard/internal/observe"
	"github.com/sayboard/sayboard/pkg/recognizer"
	recmock "github.com/sayboard/sayboard/pkg/recognizer/mock"
	trmock "github.com/sayboard/sayboard/pkg/transport/mock"
)

// writeTone writes a short 16-bit mono WAV and returns its path.
func writeTone(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, 16000, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 16000},
		SourceBitDepth: 16,
		Data:           make([]int, 800),
	}
	for i := range buf.Data {
		buf.Data[i] = int(8000 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func testAppConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Recognizer: config.RecognizerConfig{ModelPath: "testdata/model"},
		Mappings: []config.Mapping{
			{Keyword: "lucas", Sound: writeTone(t, t.TempDir())},
		},
	}
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	cfg.Audio.TickMillis = 2
	cfg.Audio.CaptureChannels = 1
	return cfg
}

func testAppMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	m, err := observe.NewMetrics(sdkmetric.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

// speech fills one full analysis window with a 440Hz tone.
func speech(n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(4000 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	return out
}

func TestAppDetectsAndPlays(t *testing.T) {
	sess := &recmock.Session{
		Script: []recmock.Step{
			{State: recognizer.Finalized, Final: "lucas"},
		},
	}
	trans := &trmock.Transport{}

	a, err := app.New(context.Background(), testAppConfig(t),
		app.WithEngine(&recmock.Engine{Session: sess}),
		app.WithTransport(trans),
		app.WithMetrics(testAppMetrics(t)),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	// Feed windows until the scripted detection triggers a playback.
	deliver := time.NewTicker(5 * time.Millisecond)
	defer deliver.Stop()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deliver.C:
			trans.Deliver(speech(24000))
			if played := trans.Played(); len(played) > 0 {
				if len(played[0].Clip) != 800 {
					t.Errorf("played clip has %d samples, want 800", len(played[0].Clip))
				}
				if played[0].Format.SampleRate != 16000 {
					t.Errorf("played rate = %d, want 16000", played[0].Format.SampleRate)
				}
				cancel()
				if err := <-done; err != nil {
					t.Fatalf("Run = %v, want nil after cancellation", err)
				}
				return
			}
		case <-deadline:
			cancel()
			<-done
			t.Fatal("no playback before deadline")
		}
	}
}

func TestAppNewBadBank(t *testing.T) {
	cfg := &config.Config{
		Recognizer: config.RecognizerConfig{ModelPath: "testdata/model"},
		Mappings: []config.Mapping{
			{Keyword: "lucas", Sound: filepath.Join(t.TempDir(), "absent.wav")},
		},
	}
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	_, err := app.New(context.Background(), cfg,
		app.WithEngine(&recmock.Engine{}),
		app.WithTransport(&trmock.Transport{}),
		app.WithMetrics(testAppMetrics(t)),
	)
	if err == nil {
		t.Fatal("expected error for missing sound file, got nil")
	}
}
