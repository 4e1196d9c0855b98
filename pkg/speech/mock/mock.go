// Package mock provides test doubles for the speech package interfaces.
//
// Use Recognizer to verify the caller starts captures with the expected
// Config, and Capture to feed scripted transcripts and events. Use
// Synthesizer to inspect what was spoken and when playback was cancelled.
//
// Example:
//
//	cap := mock.NewCapture()
//	r := &mock.Recognizer{Capture: cap}
//	// ... start the session under test ...
//	cap.FinalsCh <- speech.Transcript{Text: "5 chai rio", IsFinal: true}
//	cap.EventsCh <- speech.Event{Kind: speech.EventEnd}
//	cap.CloseChannels()
package mock

import (
	"context"
	"sync"

	"github.com/quangvo/agripos/pkg/speech"
)

// StartCall records a single invocation of Recognizer.Start.
type StartCall struct {
	Cfg speech.Config
}

// Recognizer is a mock implementation of speech.Recognizer.
type Recognizer struct {
	mu sync.Mutex

	// Capture is returned by Start. If nil, Start returns a fresh
	// NewCapture().
	Capture speech.Capture

	// StartErr, if non-nil, is returned as the error from Start.
	StartErr error

	// StartCalls records every call to Start.
	StartCalls []StartCall
}

// Start records the call and returns Capture, StartErr.
func (r *Recognizer) Start(_ context.Context, cfg speech.Config) (speech.Capture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StartCalls = append(r.StartCalls, StartCall{Cfg: cfg})
	if r.StartErr != nil {
		return nil, r.StartErr
	}
	if r.Capture != nil {
		return r.Capture, nil
	}
	return NewCapture(), nil
}

// StartCallCount returns the number of Start calls. Thread-safe.
func (r *Recognizer) StartCallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.StartCalls)
}

// Compile-time interface check.
var _ speech.Recognizer = (*Recognizer)(nil)

// Capture is a mock implementation of speech.Capture. Tests own the three
// channels: send scripted values, then call CloseChannels.
type Capture struct {
	mu sync.Mutex

	InterimsCh chan speech.Transcript
	FinalsCh   chan speech.Transcript
	EventsCh   chan speech.Event

	// StopErr, if non-nil, is returned by Stop.
	StopErr error

	// StopCallCount is the number of times Stop was called.
	StopCallCount int

	closeOnce sync.Once
}

// NewCapture returns a Capture with buffered channels ready for scripting.
func NewCapture() *Capture {
	return &Capture{
		InterimsCh: make(chan speech.Transcript, 16),
		FinalsCh:   make(chan speech.Transcript, 16),
		EventsCh:   make(chan speech.Event, 4),
	}
}

// Interims returns InterimsCh.
func (c *Capture) Interims() <-chan speech.Transcript { return c.InterimsCh }

// Finals returns FinalsCh.
func (c *Capture) Finals() <-chan speech.Transcript { return c.FinalsCh }

// Events returns EventsCh.
func (c *Capture) Events() <-chan speech.Event { return c.EventsCh }

// Stop records the call and returns StopErr.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.StopCallCount++
	return c.StopErr
}

// StopCalls returns the number of Stop calls. Thread-safe.
func (c *Capture) StopCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.StopCallCount
}

// CloseChannels closes all three channels, ending the capture from the
// consumer's perspective. Safe to call more than once.
func (c *Capture) CloseChannels() {
	c.closeOnce.Do(func() {
		close(c.InterimsCh)
		close(c.FinalsCh)
		close(c.EventsCh)
	})
}

// Compile-time interface check.
var _ speech.Capture = (*Capture)(nil)

// SpeakCall records a single invocation of Synthesizer.Speak.
type SpeakCall struct {
	Text   string
	Locale string
}

// Synthesizer is a mock implementation of speech.Synthesizer.
type Synthesizer struct {
	mu sync.Mutex

	// SpeakErr, if non-nil, is returned by every Speak call.
	SpeakErr error

	// SpeakCalls records every call to Speak in order.
	SpeakCalls []SpeakCall

	// CancelCallCount is the number of times Cancel was called.
	CancelCallCount int
}

// Speak records the call and returns SpeakErr.
func (s *Synthesizer) Speak(_ context.Context, text string, locale string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SpeakCalls = append(s.SpeakCalls, SpeakCall{Text: text, Locale: locale})
	return s.SpeakErr
}

// Cancel records the call.
func (s *Synthesizer) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CancelCallCount++
}

// Spoken returns a copy of all spoken texts in order. Thread-safe.
func (s *Synthesizer) Spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.SpeakCalls))
	for i, c := range s.SpeakCalls {
		out[i] = c.Text
	}
	return out
}

// Compile-time interface check.
var _ speech.Synthesizer = (*Synthesizer)(nil)
