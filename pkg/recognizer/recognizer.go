// Package recognizer defines the Engine interface for grammar-restricted
// speech recognition backends.
//
// A recognizer session accepts fixed-size mono PCM windows and reports a
// decoding state per window: still running (a partial guess is available),
// finalized (an utterance was committed), or failed (internal decoder error,
// recoverable by Reset). The detector owns exactly one session per run and
// calls it from a single goroutine; implementations do not need to be safe
// for concurrent use within a session.
//
// Engines must be safe for concurrent use: independent sessions may be
// created and driven in parallel (one per detector run).
package recognizer

// State is the decoding state reported after each accepted window.
type State int

const (
	// Running means the utterance is still open; Partial returns the
	// decoder's current best guess.
	Running State = iota

	// Finalized means the decoder committed an utterance; FinalText returns
	// the transcript.
	Finalized

	// Failed means the decoder hit an internal error for this window. The
	// session must be Reset before further audio is accepted.
	Failed
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Finalized:
		return "finalized"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Config describes a new recognition session.
type Config struct {
	// ModelPath is the directory of the trained acoustic model.
	ModelPath string

	// SampleRate is the PCM rate of every window fed to the session, in Hz.
	SampleRate int

	// Grammar restricts the decoder's vocabulary to these words plus the
	// out-of-vocabulary placeholder. A restricted grammar is dramatically
	// faster and more accurate for keyword spotting than open dictation.
	Grammar []string
}

// Session is one open recognition stream. Sessions are not goroutine-safe;
// the owning detector drives them from a single loop.
type Session interface {
	// AcceptWaveform feeds one fixed-size PCM window and returns the
	// decoding state. The window length must match the chunk size the
	// detector was configured with.
	AcceptWaveform(samples []int16) (State, error)

	// Partial returns the in-progress transcript while the state is Running.
	Partial() string

	// FinalText returns the committed transcript after a Finalized state.
	FinalText() string

	// Reset discards all decoder state, closing any open utterance.
	Reset()

	// Close releases the session. Calling Close twice is safe.
	Close() error
}

// Engine creates recognition sessions. Construction failures (missing or
// corrupt model) are fatal to the caller's run; there is no retry.
type Engine interface {
	NewSession(cfg Config) (Session, error)
}

// UnknownToken is the out-of-vocabulary placeholder every grammar carries.
// A transcript equal to this token is treated as silence.
const UnknownToken = "[unk]"
