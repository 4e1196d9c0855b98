// Package session owns the lifecycle of one speech-capture session.
//
// The controller is an explicit state machine — Idle → Listening →
// Finalizing → Idle, with a transient Error state that always returns to
// Idle — driven by the capture's transcript and event channels rather than
// nested callbacks, so every allowed transition is testable against the
// speech mock package.
//
// Only one session may be listening at a time. The UI toggles the
// microphone instead of queueing start requests, so a Start while already
// listening is a caller error.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/quangvo/agripos/internal/voice"
	"github.com/quangvo/agripos/pkg/catalog"
	"github.com/quangvo/agripos/pkg/speech"
)

// State names the controller's FSM states.
type State string

const (
	// StateIdle means no capture is open.
	StateIdle State = "idle"

	// StateListening means a capture is open and interims may arrive.
	StateListening State = "listening"

	// StateFinalizing means a final transcript was processed and the
	// confirmation overlay is being held for the user to read.
	StateFinalizing State = "finalizing"

	// StateError means a recognition error is being displayed before the
	// controller returns to idle.
	StateError State = "error"
)

const (
	// defaultDisplayHold keeps the confirmation overlay visible after a
	// final transcript before the session returns to idle.
	defaultDisplayHold = 1500 * time.Millisecond

	// defaultErrorHold keeps the error overlay visible a little longer.
	defaultErrorHold = 2 * time.Second
)

// ErrAlreadyListening is returned by Start while a session is active.
var ErrAlreadyListening = errors.New("session: already listening")

// Callbacks receive UI-facing notifications from the controller. All fields
// are optional; nil callbacks are skipped. They are invoked from the
// controller's event goroutine, never concurrently with each other.
type Callbacks struct {
	// OnTranscript is called with interim text for live display, and once
	// more with the final text.
	OnTranscript func(text string, final bool)

	// OnResult delivers the pipeline output exactly once per finalized
	// session. The host mutates the cart and speaks the confirmation.
	OnResult func(voice.Result)

	// OnError is called with the platform error code for display.
	OnError func(code string)

	// OnState is called after every state transition.
	OnState func(State)
}

// Controller coordinates one recognition session at a time.
// All exported methods are safe for concurrent use.
type Controller struct {
	recognizer speech.Recognizer
	pipeline   *voice.Pipeline
	products   func() []catalog.Product
	callbacks  Callbacks

	language    string
	displayHold time.Duration
	errorHold   time.Duration

	mu      sync.Mutex
	state   State
	capture speech.Capture
	stopped bool
	wg      sync.WaitGroup
}

// Option is a functional option for configuring a [Controller].
type Option func(*Controller)

// WithLanguage sets the recognition locale. Default: "vi-VN".
func WithLanguage(lang string) Option {
	return func(c *Controller) {
		c.language = lang
	}
}

// WithDisplayHold sets how long the confirmation overlay stays up after a
// final transcript. Default: 1.5s.
func WithDisplayHold(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.displayHold = d
		}
	}
}

// WithErrorHold sets how long an error overlay stays up. Default: 2s.
func WithErrorHold(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.errorHold = d
		}
	}
}

// New creates an idle Controller. products supplies the live product list at
// finalization time; it must not be nil.
func New(recognizer speech.Recognizer, pipeline *voice.Pipeline, products func() []catalog.Product, cb Callbacks, opts ...Option) *Controller {
	c := &Controller{
		recognizer:  recognizer,
		pipeline:    pipeline,
		products:    products,
		callbacks:   cb,
		language:    "vi-VN",
		displayHold: defaultDisplayHold,
		errorHold:   defaultErrorHold,
		state:       StateIdle,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns the current FSM state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start opens a capture and transitions Idle → Listening. It returns
// [ErrAlreadyListening] if a session is active, or the recognizer's error
// if the platform cannot begin listening.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrAlreadyListening
	}
	c.state = StateListening
	c.stopped = false
	c.mu.Unlock()
	c.notifyState(StateListening)

	cpt, err := c.recognizer.Start(ctx, speech.Config{
		Language:       c.language,
		InterimResults: true,
		Continuous:     false,
	})
	if err != nil {
		c.setState(StateIdle)
		return fmt.Errorf("session: start capture: %w", err)
	}

	c.mu.Lock()
	c.capture = cpt
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run(ctx, cpt)
	return nil
}

// Stop requests termination of the active session. Accumulated interim text
// is discarded and the pipeline is not invoked. Stop on an idle controller
// is a no-op.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.state != StateListening || c.capture == nil {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	cpt := c.capture
	c.mu.Unlock()

	if err := cpt.Stop(); err != nil {
		slog.Warn("session: capture stop", "err", err)
	}
	c.setState(StateIdle)
}

// Wait blocks until the event goroutine of the current or last session has
// exited. Intended for tests and shutdown.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// run consumes the capture's channels until the session terminates.
func (c *Controller) run(ctx context.Context, cpt speech.Capture) {
	defer c.wg.Done()
	defer func() {
		c.mu.Lock()
		c.capture = nil
		c.mu.Unlock()
	}()

	interims := cpt.Interims()
	finals := cpt.Finals()
	events := cpt.Events()

	for {
		select {
		case <-ctx.Done():
			_ = cpt.Stop()
			c.setState(StateIdle)
			return

		case t, ok := <-interims:
			if !ok {
				interims = nil
				if finals == nil && events == nil {
					c.setState(StateIdle)
					return
				}
				continue
			}
			if c.isStopped() {
				continue // discard; the user cancelled
			}
			c.notifyTranscript(t.Text, false)

		case t, ok := <-finals:
			if !ok {
				finals = nil
				if interims == nil && events == nil {
					c.setState(StateIdle)
					return
				}
				continue
			}
			if c.isStopped() {
				continue
			}
			c.finalize(ctx, t.Text)
			_ = cpt.Stop()
			return

		case ev, ok := <-events:
			if !ok {
				events = nil
				if interims == nil && finals == nil {
					// All channels closed without a terminal event:
					// treat as end-of-input.
					c.setState(StateIdle)
					return
				}
				continue
			}
			switch ev.Kind {
			case speech.EventError:
				if c.isStopped() {
					c.setState(StateIdle)
					return
				}
				slog.Warn("session: recognition error", "code", ev.Code)
				c.setState(StateError)
				if c.callbacks.OnError != nil {
					c.callbacks.OnError(ev.Code)
				}
				c.hold(ctx, c.errorHold)
				c.setState(StateIdle)
				return
			case speech.EventEnd:
				// End of input with no final transcript: the session is a
				// no-op. No retry — flaky recognition is surfaced to the
				// user, who taps the mic again.
				c.setState(StateIdle)
				return
			}
		}
	}
}

// finalize runs the pipeline on the final transcript, forwards the result,
// and holds the display before returning to idle.
func (c *Controller) finalize(ctx context.Context, text string) {
	c.setState(StateFinalizing)
	c.notifyTranscript(text, true)

	result := c.pipeline.Process(text, c.products())
	slog.Info("session: transcript finalized",
		"text", text,
		"kind", result.Intent.Kind,
		"success", result.Success,
	)
	if c.callbacks.OnResult != nil {
		c.callbacks.OnResult(result)
	}

	c.hold(ctx, c.displayHold)
	c.setState(StateIdle)
}

// hold sleeps for the display-hold period, returning early on context
// cancellation.
func (c *Controller) hold(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func (c *Controller) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.notifyState(s)
}

func (c *Controller) notifyState(s State) {
	if c.callbacks.OnState != nil {
		c.callbacks.OnState(s)
	}
}

func (c *Controller) notifyTranscript(text string, final bool) {
	if c.callbacks.OnTranscript != nil {
		c.callbacks.OnTranscript(text, final)
	}
}
