package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/verdant/internal/analysis"
	"github.com/sells-group/verdant/internal/geo"
	"github.com/sells-group/verdant/internal/model"
	"github.com/sells-group/verdant/internal/progress"
	"github.com/sells-group/verdant/pkg/geocode"
)

// maxRequestBody caps analysis request bodies (boundaries can be large).
const maxRequestBody = 10 << 20

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for asynchronous analyses",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initAnalysis(cfg, "serve")
		if err != nil {
			return err
		}
		svc := env.Service(cfg)

		handler := buildMux(svc, env.Geocoder, cfg.Server.AllowedOrigins)
		port := resolvePort(servePort, cfg.Server.Port)

		err = startServer(ctx, handler, port)

		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.Server.ShutdownTimeoutS)*time.Second)
		defer cancel()
		if sErr := svc.Shutdown(shutdownCtx); sErr != nil {
			zap.L().Warn("sessions did not stop in time", zap.Error(sErr))
		}
		return err
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// resolvePort prefers the flag over the configured port.
func resolvePort(flag, configured int) int {
	if flag != 0 {
		return flag
	}
	return configured
}

// startServer serves handler until ctx is done, then shuts down gracefully.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// analysisRequest is the body of POST /api/analyses. Either boundary or city
// must be set; a city without a boundary is resolved by the geocoder.
type analysisRequest struct {
	Boundary  json.RawMessage  `json:"boundary"`
	City      *model.City      `json:"city"`
	YearRange *model.YearRange `json:"yearRange"`
}

// buildMux wires the analysis API.
func buildMux(svc *analysis.Service, gc geocode.Client, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/analyses", func(r chi.Router) {
		r.Post("/", handleStart(svc, gc))
		r.Get("/{id}/events", handleEvents(svc))
		r.Delete("/{id}", func(w http.ResponseWriter, req *http.Request) {
			id := chi.URLParam(req, "id")
			if !svc.Cancel(id) {
				writeError(w, http.StatusNotFound, "unknown_session", "session not found")
				return
			}
			writeJSON(w, http.StatusAccepted, map[string]string{"sessionId": id, "status": "canceling"})
		})
	})

	return r
}

func handleStart(svc *analysis.Service, gc geocode.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "could not read body")
			return
		}
		var req analysisRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
			return
		}

		areq := analysis.Request{City: req.City, YearRange: req.YearRange}
		switch {
		case len(req.Boundary) > 0 && string(req.Boundary) != "null":
			b, err := geo.ParseGeoJSON(req.Boundary)
			if err != nil {
				writeError(w, http.StatusBadRequest, model.ErrorCode(err), err.Error())
				return
			}
			areq.Boundary = b
		case req.City != nil && req.City.Query != "" && gc != nil:
			b, city, err := resolveCity(r.Context(), gc, req.City.Query)
			if err != nil {
				status := http.StatusBadGateway
				if eris.Is(err, model.ErrInvalidBoundary) {
					status = http.StatusBadRequest
				}
				writeError(w, status, model.ErrorCode(err), err.Error())
				return
			}
			areq.Boundary, areq.City = b, city
		default:
			writeError(w, http.StatusBadRequest, model.CodeInvalidBoundary, "boundary or city.query is required")
			return
		}

		id, err := svc.Start(areq)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, model.ErrorCode(err), err.Error())
			return
		}
		zap.L().Info("analysis accepted", zap.String("session", id))
		writeJSON(w, http.StatusAccepted, map[string]string{"sessionId": id})
	}
}

// handleEvents streams a session's progress as server-sent events. The
// stream ends after the terminal event; a client disconnect only drops the
// subscription.
func handleEvents(svc *analysis.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !svc.Exists(id) {
			writeError(w, http.StatusNotFound, "unknown_session", "session not found")
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, model.CodeInternal, "streaming unsupported")
			return
		}

		sub := svc.Subscribe(id)
		defer sub.Close()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				zap.L().Debug("event stream client disconnected", zap.String("session", id))
				return
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				if err := writeEvent(w, ev); err != nil {
					zap.L().Debug("event stream write failed", zap.String("session", id), zap.Error(err))
					return
				}
				flusher.Flush()
				if ev.Type.Terminal() {
					return
				}
			}
		}
	}
}

func writeEvent(w io.Writer, ev progress.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "marshal event")
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"code": code, "error": msg})
}
