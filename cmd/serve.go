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

	"github.com/nexusai/qa-gate/internal/model"
	"github.com/nexusai/qa-gate/internal/textnorm"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the QA gate HTTP API",
	Long: `Expose the evaluator and the store over HTTP.

Endpoints:
  GET  /health                  liveness probe
  POST /qa/check                evaluate a product record (?save=true persists)
  GET  /products/{id}/result    latest stored verdict for a product
  GET  /duplicates              listings sharing a concept key (?concept_key= or ?title=)`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := initGate(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           newRouter(env),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("http server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		zap.L().Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return eris.Wrap(srv.Shutdown(shutdownCtx), "serve: shutdown")
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return eris.Wrap(err, "serve: listen")
	}
}

func newRouter(env *gateEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", handleHealth)
	r.Post("/qa/check", handleCheck(env))
	r.Get("/products/{id}/result", handleLatestResult(env))
	r.Get("/duplicates", handleDuplicates(env))

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleCheck(env *gateEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var product model.ProductRecord
		if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
			writeError(w, http.StatusBadRequest, "invalid product record")
			return
		}

		result, err := env.Evaluator.Evaluate(r.Context(), &product)
		if err != nil {
			zap.L().Error("evaluation failed", zap.String("product_id", product.ID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "evaluation failed")
			return
		}

		if r.URL.Query().Get("save") == "true" {
			if product.ID == "" {
				writeError(w, http.StatusBadRequest, "save requires a record with an id")
				return
			}
			product.ConceptKey = result.ConceptKey
			if _, err := env.Store.UpsertProducts(r.Context(), []model.ProductRecord{product}); err != nil {
				zap.L().Error("upsert failed", zap.String("product_id", product.ID), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "save failed")
				return
			}
			if err := env.Store.SaveResult(r.Context(), product.ID, result); err != nil {
				zap.L().Error("save failed", zap.String("product_id", product.ID), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "save failed")
				return
			}
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func handleLatestResult(env *gateEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		result, err := env.Store.LatestResult(r.Context(), id)
		if err != nil {
			zap.L().Error("result lookup failed", zap.String("product_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "lookup failed")
			return
		}
		if result == nil {
			writeError(w, http.StatusNotFound, "no result for product")
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func handleDuplicates(env *gateEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		key := strings.TrimSpace(q.Get("concept_key"))
		if key == "" {
			if title := q.Get("title"); title != "" {
				key = textnorm.ConceptKey(title, env.Vocab)
			}
		}
		if key == "" {
			writeError(w, http.StatusBadRequest, "concept_key or title is required")
			return
		}

		limit := cfg.Sweep.DuplicateLimit
		if raw := q.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = n
		}

		dups, err := env.Store.FindDuplicates(r.Context(), key, q.Get("exclude"), limit)
		if err != nil {
			zap.L().Error("duplicate lookup failed", zap.String("concept_key", key), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "lookup failed")
			return
		}
		if dups == nil {
			dups = []model.DuplicateSummary{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"concept_key": key,
			"duplicates":  dups,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("response encode failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
