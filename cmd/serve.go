package main

import (
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

	"github.com/Outaos/data-steward/internal/population"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the population query API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func newRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/api/population", handlePopulation)

	return r
}

type populationRequest struct {
	Lat     float64  `json:"lat"`
	Lon     float64  `json:"lon"`
	RadiusM float64  `json:"radius_m"`
	Tiles   []string `json:"tiles"`
}

type populationResponse struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	RadiusM    float64 `json:"radius_m"`
	Population float64 `json:"population"`
}

func handlePopulation(w http.ResponseWriter, r *http.Request) {
	var req populationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Tiles) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tiles is required"})
		return
	}
	if req.RadiusM <= 0 {
		req.RadiusM = cfg.Population.DefaultRadiusM
	}

	total, err := population.Aggregate(r.Context(), populationConfig(), req.Tiles, req.Lat, req.Lon, req.RadiusM)
	if err != nil {
		var noOverlap *population.NoOverlapError
		if errors.As(err, &noOverlap) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		zap.L().Error("population query failed",
			zap.Float64("lat", req.Lat),
			zap.Float64("lon", req.Lon),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "aggregation failed"})
		return
	}

	writeJSON(w, http.StatusOK, populationResponse{
		Lat:        req.Lat,
		Lon:        req.Lon,
		RadiusM:    req.RadiusM,
		Population: total,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
