// Package speech defines the platform capability interfaces the voice
// pipeline consumes: a Recognizer that captures one spoken utterance and
// streams transcripts back, and a Synthesizer that speaks confirmation
// text with cancel-in-progress semantics.
//
// The capabilities themselves are external collaborators. This package only
// fixes their contract so the session controller can be tested against the
// mock subpackage and deployed against the streamstt/httpsynth clients.
//
// Implementations must be safe for concurrent use.
package speech

import "context"

// Config describes one capture request.
type Config struct {
	// Language is the BCP-47 recognition locale (e.g., "vi-VN").
	Language string

	// InterimResults requests provisional transcripts while the user is
	// still speaking. They drive live UI feedback only.
	InterimResults bool

	// Continuous keeps the capture open across multiple utterances. The POS
	// always runs non-continuous: the platform ends the capture after one
	// utterance or on silence.
	Continuous bool
}

// Transcript is one recognition result, interim or final.
type Transcript struct {
	// Text is the transcribed speech.
	Text string

	// IsFinal marks the terminal, non-revisable result of the capture.
	IsFinal bool

	// Confidence is the recognizer's score in [0,1]; zero when unreported.
	Confidence float64
}

// EventKind discriminates capture lifecycle events.
type EventKind string

const (
	// EventError reports a platform capture failure (permission denied,
	// network, no-speech). The capture is over.
	EventError EventKind = "error"

	// EventEnd reports end of input. If no final transcript was delivered
	// before it, the capture produced nothing.
	EventEnd EventKind = "end"
)

// Event is a capture lifecycle notification.
type Event struct {
	Kind EventKind

	// Code is the platform error code for EventError (e.g., "not-allowed",
	// "no-speech", "network").
	Code string
}

// Capture is one open recognition session. The channels are closed when the
// capture ends, after the terminating Event has been delivered.
type Capture interface {
	// Interims emits provisional transcripts when Config.InterimResults is
	// set. Never authoritative.
	Interims() <-chan Transcript

	// Finals emits the authoritative transcript. Non-continuous captures
	// deliver at most one.
	Finals() <-chan Transcript

	// Events emits the terminating error or end notification.
	Events() <-chan Event

	// Stop requests cooperative termination. Stopping is advisory: the
	// platform may still deliver buffered results before closing the
	// channels. Stop is idempotent.
	Stop() error
}

// Recognizer is the abstraction over the platform speech-to-text capability.
type Recognizer interface {
	// Start opens a capture. Returns an error if the platform cannot begin
	// listening (the session controller surfaces this as a recognition
	// error, not a crash).
	Start(ctx context.Context, cfg Config) (Capture, error)
}

// Synthesizer is the abstraction over the platform speech-synthesis
// capability.
type Synthesizer interface {
	// Speak utters text in the given locale. Implementations cancel any
	// utterance currently playing before starting the new one — spoken
	// feedback is never queued.
	Speak(ctx context.Context, text string, locale string) error

	// Cancel aborts the in-progress utterance, if any.
	Cancel()
}
