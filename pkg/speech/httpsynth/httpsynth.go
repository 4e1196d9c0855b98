// Package httpsynth implements speech.Synthesizer against the speech
// gateway's one-shot synthesis endpoint.
//
// Synthesis is batch: one POST per utterance, the gateway plays the audio on
// the device speaker. Because spoken confirmations must never overlap,
// Speak cancels whatever utterance is still in flight before dispatching the
// new one, mirroring the platform capability's cancel-then-speak semantics.
package httpsynth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/quangvo/agripos/pkg/speech"
)

// Compile-time interface check.
var _ speech.Synthesizer = (*Synthesizer)(nil)

const (
	defaultTimeout = 15 * time.Second
	speakEndpoint  = "/speak"
	cancelEndpoint = "/cancel"
)

// Option is a functional option for configuring the Synthesizer.
type Option func(*Synthesizer)

// WithTimeout sets the per-request timeout. Default is 15 seconds.
func WithTimeout(d time.Duration) Option {
	return func(s *Synthesizer) {
		s.httpc.Timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Synthesizer) {
		s.httpc = c
	}
}

// Synthesizer implements speech.Synthesizer over the gateway REST API.
// Safe for concurrent use; concurrent Speak calls serialise on the
// cancel-then-speak step.
type Synthesizer struct {
	baseURL string
	httpc   *http.Client

	mu      sync.Mutex
	pending context.CancelFunc // cancels the in-flight Speak request
}

// New creates a Synthesizer for the gateway at baseURL
// (e.g., "http://localhost:7700"). baseURL must not be empty.
func New(baseURL string, opts ...Option) (*Synthesizer, error) {
	if baseURL == "" {
		return nil, errors.New("httpsynth: baseURL must not be empty")
	}
	s := &Synthesizer{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// speakRequest is the POST /speak payload.
type speakRequest struct {
	Text   string  `json:"text"`
	Locale string  `json:"locale"`
	Rate   float64 `json:"rate"`
	Pitch  float64 `json:"pitch"`
}

// Speak implements speech.Synthesizer. Any utterance still playing is
// cancelled first; utterances are never queued.
func (s *Synthesizer) Speak(ctx context.Context, text string, locale string) error {
	s.Cancel()

	reqCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.pending = cancel
	s.mu.Unlock()

	body, err := json.Marshal(speakRequest{Text: text, Locale: locale, Rate: 1.0, Pitch: 1.0})
	if err != nil {
		return fmt.Errorf("httpsynth: marshal speak request: %w", err)
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, s.baseURL+speakEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("httpsynth: build speak request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpc.Do(req)
	if err != nil {
		if reqCtx.Err() != nil {
			// Cancelled by a newer utterance; not a failure.
			return nil
		}
		return fmt.Errorf("httpsynth: speak: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("httpsynth: speak: gateway returned %s: %s", resp.Status, snippet)
	}
	return nil
}

// Cancel implements speech.Synthesizer. It aborts the in-flight Speak
// request, if any, and tells the gateway to stop playback.
func (s *Synthesizer) Cancel() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if pending != nil {
		pending()
	}

	// Best-effort playback stop; an unreachable gateway has nothing playing.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+cancelEndpoint, nil)
	if err != nil {
		return
	}
	if resp, err := s.httpc.Do(req); err == nil {
		resp.Body.Close()
	}
}
