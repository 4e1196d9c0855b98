// Package streamstt implements speech.Recognizer against a speech-gateway
// WebSocket API.
//
// The gateway is the process that owns the device microphone (a companion
// service wrapping the platform recognizer). Starting a capture dials the
// gateway's /listen endpoint with the recognition configuration as query
// parameters; the gateway then streams JSON frames back:
//
//	{"type":"interim","text":"...","confidence":0.42}
//	{"type":"final","text":"...","confidence":0.87}
//	{"type":"error","code":"no-speech"}
//	{"type":"end"}
//
// Non-continuous captures close after one final (or an error/end), which is
// the only mode the POS uses.
package streamstt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/quangvo/agripos/pkg/speech"
)

const (
	defaultLanguage = "vi-VN"

	// readTimeout bounds one frame read so a dead gateway surfaces as an
	// error event instead of a capture that never ends.
	readTimeout = 60 * time.Second
)

// Option is a functional option for configuring the Recognizer.
type Option func(*Recognizer)

// WithLanguage sets the default recognition locale used when the capture
// Config leaves Language empty. Default: "vi-VN".
func WithLanguage(lang string) Option {
	return func(r *Recognizer) {
		r.language = lang
	}
}

// Recognizer implements speech.Recognizer backed by a speech gateway.
type Recognizer struct {
	endpoint string
	language string
}

// Compile-time interface check.
var _ speech.Recognizer = (*Recognizer)(nil)

// New creates a Recognizer for the gateway at endpoint
// (e.g., "ws://localhost:7700/listen"). endpoint must not be empty.
func New(endpoint string, opts ...Option) (*Recognizer, error) {
	if endpoint == "" {
		return nil, errors.New("streamstt: endpoint must not be empty")
	}
	r := &Recognizer{
		endpoint: endpoint,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Start implements speech.Recognizer. It dials the gateway and begins the
// frame read loop.
func (r *Recognizer) Start(ctx context.Context, cfg speech.Config) (speech.Capture, error) {
	wsURL, err := r.buildURL(cfg)
	if err != nil {
		return nil, fmt.Errorf("streamstt: build URL: %w", err)
	}

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("streamstt: dial gateway: %w", err)
	}

	c := &capture{
		conn:     conn,
		interims: make(chan speech.Transcript, 16),
		finals:   make(chan speech.Transcript, 4),
		events:   make(chan speech.Event, 4),
		done:     make(chan struct{}),
	}
	c.wg.Add(1)
	go c.readLoop(ctx)
	return c, nil
}

// buildURL constructs the gateway /listen URL for the given config.
func (r *Recognizer) buildURL(cfg speech.Config) (string, error) {
	u, err := url.Parse(r.endpoint)
	if err != nil {
		return "", err
	}
	lang := cfg.Language
	if lang == "" {
		lang = r.language
	}

	q := u.Query()
	q.Set("language", lang)
	q.Set("interim_results", fmt.Sprintf("%t", cfg.InterimResults))
	q.Set("continuous", fmt.Sprintf("%t", cfg.Continuous))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// frame is the gateway's JSON wire format.
type frame struct {
	Type       string  `json:"type"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Code       string  `json:"code"`
}

// capture is one live gateway capture. It implements speech.Capture.
type capture struct {
	conn     *websocket.Conn
	interims chan speech.Transcript
	finals   chan speech.Transcript
	events   chan speech.Event

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func (c *capture) Interims() <-chan speech.Transcript { return c.interims }
func (c *capture) Finals() <-chan speech.Transcript   { return c.finals }
func (c *capture) Events() <-chan speech.Event        { return c.events }

// Stop sends a stop frame to the gateway and tears the capture down. The
// gateway may still flush buffered frames first; the consumer decides
// whether to honor them.
func (c *capture) Stop() error {
	c.once.Do(func() {
		_ = c.conn.Write(context.Background(), websocket.MessageText, []byte(`{"type":"stop"}`))
		close(c.done)
		c.conn.Close(websocket.StatusNormalClosure, "capture stopped")
		c.wg.Wait()
	})
	return nil
}

// readLoop receives frames until the gateway ends the capture, routing each
// to its channel. All channels are closed on exit, after the terminating
// event (if any) has been delivered.
func (c *capture) readLoop(ctx context.Context) {
	defer c.wg.Done()
	defer func() {
		close(c.interims)
		close(c.finals)
		close(c.events)
	}()

	for {
		select {
		case <-c.done:
			return
		default:
		}

		readCtx, cancel := context.WithTimeout(ctx, readTimeout)
		_, data, err := c.conn.Read(readCtx)
		cancel()
		if err != nil {
			select {
			case <-c.done:
				// Stop was requested; the closed connection is expected.
			default:
				c.events <- speech.Event{Kind: speech.EventError, Code: "network"}
			}
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.events <- speech.Event{Kind: speech.EventError, Code: "bad-frame"}
			return
		}

		switch f.Type {
		case "interim":
			select {
			case c.interims <- speech.Transcript{Text: f.Text, Confidence: f.Confidence}:
			default:
				// Interims are best-effort display data; drop when the
				// consumer lags.
			}
		case "final":
			c.finals <- speech.Transcript{Text: f.Text, IsFinal: true, Confidence: f.Confidence}
		case "error":
			c.events <- speech.Event{Kind: speech.EventError, Code: f.Code}
			return
		case "end":
			c.events <- speech.Event{Kind: speech.EventEnd}
			return
		}
	}
}
