package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
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

	"github.com/sells-group/listing-pipeline/internal/jobs"
	"github.com/sells-group/listing-pipeline/internal/model"
	"github.com/sells-group/listing-pipeline/internal/monitoring"
	"github.com/sells-group/listing-pipeline/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the observability HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pool, err := store.NewPool(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer pool.Close()
		st := store.NewPostgresWithPool(pool)

		collector := monitoring.NewCollector(st)
		alerter := monitoring.NewAlerter(cfg.Monitor)
		checker := monitoring.NewChecker(collector, alerter, cfg.Monitor)
		go checker.Run(ctx)

		router := newRouter(st, collector)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(st store.Store, collector *monitoring.Collector) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		snap, err := collector.Collect(r.Context(), cfg.Monitor.LookbackWindowHours)
		if err != nil {
			zap.L().Error("stats collection failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "collection failed"})
			return
		}
		writeJSON(w, http.StatusOK, snap)
	})

	r.Get("/regions/{slug}/stats", func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		stats, err := regionStats(r.Context(), st, slug)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown region"})
				return
			}
			zap.L().Error("region stats failed", zap.String("region", slug), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "collection failed"})
			return
		}
		writeJSON(w, http.StatusOK, stats)
	})

	return r
}

// regionStatsResponse is the per-region observability payload.
type regionStatsResponse struct {
	Region      string                    `json:"region"`
	Funnel      map[model.Status]int      `json:"funnel"`
	Enriched24h int                       `json:"enriched_24h"`
	Enriched7d  int                       `json:"enriched_7d"`
	Coverage    map[string]float64        `json:"translation_coverage"`
	Research    *store.ResearchCounters   `json:"research"`
	Queues      map[string]map[string]int `json:"queues"`
	BatchActive bool                      `json:"batch_active"`
}

func regionStats(ctx context.Context, st store.Store, slug string) (*regionStatsResponse, error) {
	region, err := st.GetRegion(ctx, slug)
	if err != nil {
		return nil, err
	}

	resp := &regionStatsResponse{Region: region.Slug}
	now := time.Now().UTC()

	counts, err := st.CountByStatus(ctx, slug)
	if err != nil {
		return nil, err
	}
	resp.Funnel = make(map[model.Status]int, len(model.AllStatuses))
	for _, s := range model.AllStatuses {
		resp.Funnel[s] = counts[s]
	}

	if resp.Enriched24h, err = st.CountEnrichedSince(ctx, slug, now.Add(-24*time.Hour)); err != nil {
		return nil, err
	}
	if resp.Enriched7d, err = st.CountEnrichedSince(ctx, slug, now.Add(-7*24*time.Hour)); err != nil {
		return nil, err
	}
	if resp.Coverage, err = st.TranslationCoverage(ctx, slug); err != nil {
		return nil, err
	}
	if resp.Research, err = st.ResearchCounters(ctx, slug, time.Hour); err != nil {
		return nil, err
	}
	if resp.Queues, err = st.QueueStateCounts(ctx); err != nil {
		return nil, err
	}
	states := resp.Queues[jobs.QueueControl]
	resp.BatchActive = states["available"]+states["running"]+states["scheduled"]+states["retryable"] > 0

	return resp, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
