// Package mock provides test doubles for the recognizer package interfaces.
//
// Use Engine to verify that the caller opens sessions with the expected
// Config. Use Session to script per-window decoding outcomes and inspect the
// windows that were fed.
//
// Example:
//
//	sess := &mock.Session{
//	    Script: []mock.Step{
//	        {State: recognizer.Running, Partial: "lu"},
//	        {State: recognizer.Finalized, Final: "lucas"},
//	    },
//	}
//	eng := &mock.Engine{Session: sess}
package mock

import (
	"sync"

	"github.com/sayboard/sayboard/pkg/recognizer"
)

// Engine is a mock implementation of recognizer.Engine.
type Engine struct {
	mu sync.Mutex

	// Session is returned by NewSession. If nil, NewSession returns a new
	// empty Session.
	Session recognizer.Session

	// NewSessionErr, if non-nil, is returned as the error from NewSession.
	NewSessionErr error

	// NewSessionCalls records every Config passed to NewSession.
	NewSessionCalls []recognizer.Config
}

// NewSession records the call and returns Session, NewSessionErr.
func (e *Engine) NewSession(cfg recognizer.Config) (recognizer.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.NewSessionCalls = append(e.NewSessionCalls, cfg)
	if e.NewSessionErr != nil {
		return nil, e.NewSessionErr
	}
	if e.Session != nil {
		return e.Session, nil
	}
	return &Session{}, nil
}

// Step scripts the outcome of one AcceptWaveform call.
type Step struct {
	// State is the decoding state to report.
	State recognizer.State

	// Partial is the text returned by Partial while this step is current.
	Partial string

	// Final is the text returned by FinalText while this step is current.
	Final string

	// Err, if non-nil, is returned from AcceptWaveform alongside State.
	Err error
}

// Session is a scripted recognizer.Session. Each AcceptWaveform call consumes
// the next Step; when the script is exhausted, Running with empty text is
// reported.
type Session struct {
	// Script is the per-window sequence of outcomes.
	Script []Step

	// Windows records a copy of every window fed to AcceptWaveform.
	Windows [][]int16

	// Resets counts Reset calls.
	Resets int

	// Closed reports whether Close was called.
	Closed bool

	step int
	cur  Step
}

// AcceptWaveform consumes the next scripted step.
func (s *Session) AcceptWaveform(samples []int16) (recognizer.State, error) {
	window := make([]int16, len(samples))
	copy(window, samples)
	s.Windows = append(s.Windows, window)

	if s.step < len(s.Script) {
		s.cur = s.Script[s.step]
		s.step++
	} else {
		s.cur = Step{State: recognizer.Running}
	}
	return s.cur.State, s.cur.Err
}

// Partial returns the current step's partial text.
func (s *Session) Partial() string { return s.cur.Partial }

// FinalText returns the current step's final text.
func (s *Session) FinalText() string { return s.cur.Final }

// Reset increments the reset counter and clears the current step's text.
func (s *Session) Reset() {
	s.Resets++
	s.cur = Step{}
}

// Close marks the session closed.
func (s *Session) Close() error {
	s.Closed = true
	return nil
}
