// Package config provides the configuration schema and loader for the
// sayboard keyword soundboard.
package config

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for sayboard.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	// LogLevel controls verbosity. Defaults to info.
	LogLevel LogLevel `yaml:"log_level"`

	Audio      AudioConfig      `yaml:"audio"`
	Recognizer RecognizerConfig `yaml:"recognizer"`

	// Mappings associates trigger keywords with the sound files played when
	// they are heard. Keywords are case-folded on load.
	Mappings []Mapping `yaml:"mappings"`
}

// AudioConfig holds capture and detection timing settings. Zero values are
// replaced with defaults by [Validate].
type AudioConfig struct {
	// CaptureDevice names the input device to open. Empty means the system
	// default input.
	CaptureDevice string `yaml:"capture_device"`

	// CaptureChannels is the channel count requested from the capture
	// device. The device may deliver its native layout instead.
	CaptureChannels int `yaml:"capture_channels"`

	// TargetRate is the recognizer sample rate in Hz.
	TargetRate int `yaml:"target_rate"`

	// ChunkSecs is the analysis window length in seconds.
	ChunkSecs float64 `yaml:"chunk_secs"`

	// OverlapSecs is the window region re-analysed with the next window,
	// so words spoken across a boundary are still caught. Must be smaller
	// than ChunkSecs.
	OverlapSecs float64 `yaml:"overlap_secs"`

	// MinTailSecs is the smallest leftover worth decoding as a padded
	// tail window.
	MinTailSecs float64 `yaml:"min_tail_secs"`

	// CooldownSecs suppresses repeat detections of one keyword.
	CooldownSecs float64 `yaml:"cooldown_secs"`

	// TickMillis is the processing cadence in milliseconds.
	TickMillis int `yaml:"tick_millis"`
}

// RecognizerConfig holds speech recognition settings.
type RecognizerConfig struct {
	// ModelPath is the recognizer model directory.
	ModelPath string `yaml:"model_path"`
}

// Mapping binds a spoken keyword to the sound file it triggers.
type Mapping struct {
	// Keyword is the spoken trigger word. Matched case-insensitively.
	Keyword string `yaml:"keyword"`

	// Sound is the path to the WAV or MP3 file to play.
	Sound string `yaml:"sound"`
}
