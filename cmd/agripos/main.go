// Command agripos is the voice-driven sales terminal for the agricultural
// supply shop. It connects the speech gateway to the command interpretation
// pipeline and the shop backend, and serves health, metrics, and voice
// control endpoints.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/quangvo/agripos/internal/config"
	"github.com/quangvo/agripos/internal/health"
	"github.com/quangvo/agripos/internal/observe"
	"github.com/quangvo/agripos/internal/pos"
	"github.com/quangvo/agripos/internal/pos/partnermatch"
	"github.com/quangvo/agripos/internal/voice"
	"github.com/quangvo/agripos/internal/voice/aliascache"
	"github.com/quangvo/agripos/internal/voice/resolve"
	"github.com/quangvo/agripos/internal/voice/session"
	"github.com/quangvo/agripos/pkg/catalog"
	"github.com/quangvo/agripos/pkg/speech"
	"github.com/quangvo/agripos/pkg/speech/httpsynth"
	"github.com/quangvo/agripos/pkg/speech/streamstt"
)

// version is overridden at build time via -ldflags.
var version = "dev"

const (
	// catalogRefreshInterval is how often the product and partner lists are
	// re-fetched from the backend.
	catalogRefreshInterval = time.Minute

	// aliasSyncInterval is how often the alias cache re-syncs in the
	// background. Aliases change rarely; a sync failure keeps the last good
	// data.
	aliasSyncInterval = 5 * time.Minute
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "agripos: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "agripos: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("agripos starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ───────────────────────────────────────────────────────────────
	shutdownMetrics, err := observe.InitProvider(ctx, "agripos", version)
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to create metric instruments", "err", err)
		return 1
	}

	// ── Backend client ────────────────────────────────────────────────────────
	var backend *catalog.Client
	if cfg.Backend.BaseURL != "" {
		backend, err = catalog.NewClient(cfg.Backend.BaseURL)
		if err != nil {
			slog.Error("failed to create backend client", "err", err)
			return 1
		}
	}

	// ── Alias cache ───────────────────────────────────────────────────────────
	var (
		aliasSource aliascache.Source
		pgPool      *pgxpool.Pool
	)
	if cfg.Backend.PostgresDSN != "" {
		pgPool, err = pgxpool.New(ctx, cfg.Backend.PostgresDSN)
		if err != nil {
			slog.Error("failed to connect to shop database", "err", err)
			return 1
		}
		defer pgPool.Close()
		aliasSource = aliascache.NewPostgresSource(pgPool)
		slog.Info("alias syncs use direct database access")
	} else {
		aliasSource = backend
	}

	var cacheOpts []aliascache.Option
	var snapshot *aliascache.SQLiteStore
	if cfg.Voice.AliasDBPath != "" {
		snapshot, err = aliascache.OpenSQLite(cfg.Voice.AliasDBPath)
		if err != nil {
			slog.Error("failed to open alias snapshot store", "err", err, "path", cfg.Voice.AliasDBPath)
			return 1
		}
		defer snapshot.Close()
		cacheOpts = append(cacheOpts, aliascache.WithSnapshotStore(snapshot))
	}

	aliases := aliascache.New(aliasSource, cacheOpts...)
	if err := aliases.Restore(ctx); err != nil {
		slog.Warn("alias snapshot restore failed, starting empty", "err", err)
	}
	syncAliases(ctx, aliases, metrics)

	// ── Catalog snapshot ──────────────────────────────────────────────────────
	shop := newShopState(backend)
	if err := shop.refresh(ctx); err != nil {
		// The terminal still works with the empty catalog; products appear
		// after the first successful refresh.
		slog.Warn("initial catalog refresh failed", "err", err)
	}

	// ── Pipeline and host ─────────────────────────────────────────────────────
	pipeline := voice.NewPipeline(resolve.Config{
		Threshold: cfg.Voice.MatchThreshold,
		Distance:  cfg.Voice.MatchDistance,
	}, aliases)

	var matchOpts []partnermatch.Option
	if cfg.Voice.PartnerPhoneticThreshold > 0 {
		matchOpts = append(matchOpts, partnermatch.WithPhoneticThreshold(cfg.Voice.PartnerPhoneticThreshold))
	}
	if cfg.Voice.PartnerFuzzyThreshold > 0 {
		matchOpts = append(matchOpts, partnermatch.WithFuzzyThreshold(cfg.Voice.PartnerFuzzyThreshold))
	}
	matcher := partnermatch.New(matchOpts...)

	language := cfg.Speech.Language
	if language == "" {
		language = "vi-VN"
	}

	var synth speech.Synthesizer
	if cfg.Speech.SynthURL != "" {
		synth, err = httpsynth.New(cfg.Speech.SynthURL)
		if err != nil {
			slog.Error("failed to create synthesizer client", "err", err)
			return 1
		}
	}

	cart := pos.NewCart()
	var orders pos.OrderSubmitter
	if backend != nil {
		orders = backend
	}
	handler := pos.NewHandler(cart, shop.Partners, matcher, synth, orders, pos.WithLocale(language))

	// ── Session controller ────────────────────────────────────────────────────
	var controller *session.Controller
	if cfg.Speech.GatewayURL != "" {
		recognizer, err := streamstt.New(cfg.Speech.GatewayURL, streamstt.WithLanguage(language))
		if err != nil {
			slog.Error("failed to create speech gateway client", "err", err)
			return 1
		}
		controller = session.New(recognizer, pipeline, shop.Products, session.Callbacks{
			OnTranscript: func(text string, final bool) {
				slog.Debug("transcript", "text", text, "final", final)
			},
			OnResult: func(r voice.Result) {
				metrics.RecordSession(ctx, "final")
				metrics.RecordIntent(ctx, string(r.Intent.Kind), r.Success, r.Intent.ProductPhrase != "")
				handler.HandleResult(ctx, r)
			},
			OnError: func(code string) {
				metrics.RecordSession(ctx, "error")
				slog.Warn("recognition error", "code", code)
			},
		},
			session.WithLanguage(language),
			session.WithDisplayHold(time.Duration(cfg.Voice.DisplayHoldMs)*time.Millisecond),
			session.WithErrorHold(time.Duration(cfg.Voice.ErrorHoldMs)*time.Millisecond),
		)
	} else {
		slog.Info("voice capture disabled — no speech gateway configured; typed commands via /interpret still work")
	}

	// ── Config watcher ────────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(_, next *config.Config) {
		pipeline.SetResolver(resolve.Config{
			Threshold: next.Voice.MatchThreshold,
			Distance:  next.Voice.MatchDistance,
		})
		slog.Info("voice match tuning reloaded",
			"threshold", next.Voice.MatchThreshold,
			"distance", next.Voice.MatchDistance,
		)
	})
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── HTTP server and background loops ──────────────────────────────────────
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(catalogRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := shop.refresh(ctx); err != nil {
					slog.Warn("catalog refresh failed", "err", err)
				}
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(aliasSyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				syncAliases(ctx, aliases, metrics)
			}
		}
	})

	if cfg.Server.ListenAddr != "" {
		srv := &http.Server{
			Addr:    cfg.Server.ListenAddr,
			Handler: newMux(ctx, cfg, backend, pgPool, pipeline, handler, shop, cart, controller, metrics),
		}
		g.Go(func() error {
			slog.Info("http server listening", "addr", cfg.Server.ListenAddr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	slog.Info("terminal ready — press Ctrl+C to shut down")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	if controller != nil {
		controller.Stop()
		controller.Wait()
	}
	slog.Info("goodbye")
	return 0
}

// syncAliases runs one alias cache sync and records the outcome. Failures
// are tolerated; the cache keeps its last good data.
func syncAliases(ctx context.Context, aliases *aliascache.Cache, metrics *observe.Metrics) {
	before := int64(len(aliases.Aliases()))
	if err := aliases.Sync(ctx); err != nil {
		metrics.RecordAliasSync(ctx, false, 0)
		slog.Warn("alias sync failed", "err", err)
		return
	}
	after := int64(len(aliases.Aliases()))
	metrics.RecordAliasSync(ctx, true, after-before)
}

// ── HTTP surface ──────────────────────────────────────────────────────────────

// newMux assembles the terminal's HTTP endpoints: health and readiness,
// Prometheus metrics, voice session control, and a typed-command fallback.
func newMux(appCtx context.Context, cfg *config.Config, backend *catalog.Client, pgPool *pgxpool.Pool, pipeline *voice.Pipeline, handler *pos.Handler, shop *shopState, cart *pos.Cart, controller *session.Controller, metrics *observe.Metrics) http.Handler {
	mux := http.NewServeMux()

	var checkers []health.Checker
	if backend != nil {
		checkers = append(checkers, health.Checker{
			Name: "backend",
			Check: func(ctx context.Context) error {
				_, err := backend.Products(ctx)
				return err
			},
		})
	}
	if pgPool != nil {
		checkers = append(checkers, health.Checker{
			Name:  "database",
			Check: pgPool.Ping,
		})
	}
	health.New(checkers...).Register(mux)

	mux.Handle("/metrics", promhttp.Handler())

	// Voice session control: the thin UI toggles the microphone here.
	mux.HandleFunc("POST /voice/start", func(w http.ResponseWriter, _ *http.Request) {
		if controller == nil {
			http.Error(w, "voice capture is not configured", http.StatusNotImplemented)
			return
		}
		// The capture outlives the request, so it runs on the app context.
		if err := controller.Start(appCtx); err != nil {
			if errors.Is(err, session.ErrAlreadyListening) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	mux.HandleFunc("POST /voice/stop", func(w http.ResponseWriter, _ *http.Request) {
		if controller == nil {
			http.Error(w, "voice capture is not configured", http.StatusNotImplemented)
			return
		}
		controller.Stop()
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /voice/state", func(w http.ResponseWriter, _ *http.Request) {
		state := session.StateIdle
		if controller != nil {
			state = controller.State()
		}
		resp := stateResponse{
			State: string(state),
			Cart:  cart.Lines(),
			Total: cart.Total(),
		}
		if p := handler.SelectedPartner(); p != nil {
			resp.Partner = p.Name
		}
		writeJSON(w, http.StatusOK, resp)
	})

	// Typed-command fallback: runs the same pipeline on text, for terminals
	// without a speech gateway and for debugging recognition issues.
	mux.HandleFunc("POST /interpret", func(w http.ResponseWriter, r *http.Request) {
		var req interpretRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
			http.Error(w, "body must be a JSON object with a non-empty \"text\" field", http.StatusBadRequest)
			return
		}

		start := time.Now()
		result := pipeline.Process(req.Text, shop.Products())
		metrics.PipelineDuration.Record(r.Context(), time.Since(start).Seconds())
		metrics.RecordIntent(r.Context(), string(result.Intent.Kind), result.Success, result.Intent.ProductPhrase != "")

		handler.HandleResult(r.Context(), result)
		writeJSON(w, http.StatusOK, result)
	})

	return mux
}

type interpretRequest struct {
	Text string `json:"text"`
}

type stateResponse struct {
	State   string     `json:"state"`
	Partner string     `json:"partner,omitempty"`
	Cart    []pos.Line `json:"cart"`
	Total   float64    `json:"total"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ── Catalog snapshot ──────────────────────────────────────────────────────────

// shopState holds the last fetched product and partner lists. The pipeline
// and partner matcher read from it; a background loop refreshes it.
type shopState struct {
	backend *catalog.Client

	mu       sync.RWMutex
	products []catalog.Product
	partners []catalog.Partner
}

func newShopState(backend *catalog.Client) *shopState {
	return &shopState{backend: backend}
}

// refresh re-fetches both lists. Partial failures keep the previous data for
// the list that failed.
func (s *shopState) refresh(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	var errs []error

	products, err := s.backend.Products(ctx)
	if err != nil {
		errs = append(errs, err)
	} else {
		s.mu.Lock()
		s.products = products
		s.mu.Unlock()
	}

	partners, err := s.backend.Partners(ctx)
	if err != nil {
		errs = append(errs, err)
	} else {
		s.mu.Lock()
		s.partners = partners
		s.mu.Unlock()
	}

	return errors.Join(errs...)
}

// Products returns the last fetched product list.
func (s *shopState) Products() []catalog.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.products
}

// Partners returns the last fetched partner list.
func (s *shopState) Partners() []catalog.Partner {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.partners
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
