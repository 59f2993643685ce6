package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/foodtrend/internal/config"
	"github.com/sells-group/foodtrend/internal/insight"
	"github.com/sells-group/foodtrend/internal/monitoring"
	"github.com/sells-group/foodtrend/internal/pipeline"
	"github.com/sells-group/foodtrend/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only prediction API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(newAPI(cfg, env.Store, env.Pipeline)),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// api serves predictions and insights from the store.
type api struct {
	cfg      *config.Config
	store    store.Store
	pipeline *pipeline.Pipeline
	now      func() time.Time
}

func newAPI(c *config.Config, st store.Store, p *pipeline.Pipeline) *api {
	return &api{cfg: c, store: st, pipeline: p, now: time.Now}
}

func buildRouter(a *api) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	origins := a.cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", a.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/predictions", a.listPredictions)
		r.Get("/predictions/{food}", a.predictFood)
		r.Get("/categories", a.categories)
		r.Get("/report", a.report)
		r.Get("/status", a.status)
	})
	return r
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "store unavailable", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) listPredictions(w http.ResponseWriter, r *http.Request) {
	limit := a.cfg.Report.PredictionsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	preds, err := a.store.ListPredictions(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list predictions", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"predictions": preds,
		"count":       len(preds),
	})
}

func (a *api) predictFood(w http.ResponseWriter, r *http.Request) {
	food := strings.TrimSpace(chi.URLParam(r, "food"))
	if food == "" {
		respondError(w, http.StatusBadRequest, "food is required", nil)
		return
	}

	daysBack := 0
	if v := r.URL.Query().Get("days_back"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "days_back must be a positive integer", nil)
			return
		}
		daysBack = n
	}

	pred, err := predictItem(r.Context(), a.pipeline, food, daysBack)
	switch {
	case errors.Is(err, pipeline.ErrNoScaler):
		respondError(w, http.StatusServiceUnavailable, "no model available, run the pipeline first", err)
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "prediction failed", err)
		return
	}
	respondJSON(w, http.StatusOK, pred)
}

func (a *api) categories(w http.ResponseWriter, r *http.Request) {
	trends, err := categoryTrends(r.Context(), a.store, a.cfg)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to build categories", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"categories": trends})
}

func (a *api) report(w http.ResponseWriter, r *http.Request) {
	opts := insight.ReportOptionsFromConfig(a.cfg.Report, a.cfg.Thresholds)
	rep, err := buildReport(r.Context(), a.store, a.cfg, opts, a.now().UTC())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to build report", err)
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

func (a *api) status(w http.ResponseWriter, r *http.Request) {
	snap, err := monitoring.NewCollector(a.store).Collect(r.Context(), a.cfg.Monitoring.LookbackHours)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to collect status", err)
		return
	}
	respondJSON(w, http.StatusOK, statusResponse{
		Snapshot: snap,
		Alerts:   monitoring.NewAlerter(a.cfg.Monitoring).Evaluate(snap),
	})
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, code int, msg string, err error) {
	if err != nil {
		zap.L().Error("api: "+msg, zap.Int("code", code), zap.Error(err))
	}
	respondJSON(w, code, map[string]string{"error": msg})
}

// requestLogger logs each request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
