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

	"github.com/relaycrm/triage/internal/model"
	"github.com/relaycrm/triage/internal/pipeline"
	"github.com/relaycrm/triage/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for webhooks, rules, and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env, err := initEnv(ctx)
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
			Handler:           newAPIRouter(env),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
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

// newAPIRouter builds the HTTP surface: the content webhook, tenant
// configuration sections, rule CRUD, and result queries.
func newAPIRouter(env *appEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/webhook/content", handleWebhook(env))

	r.Route("/tenants/{tenant}", func(r chi.Router) {
		r.Get("/config", handleGetConfig(env))
		r.Put("/config/{section}", handlePutConfigSection(env))
		r.Delete("/config/{section}", handleResetConfigSection(env))

		r.Get("/rules", handleListRules(env))
		r.Post("/rules", handleCreateRule(env))

		r.Get("/results", handleListResults(env))
		r.Get("/stats", handleStats(env))
		r.Get("/suggestions", handleListSuggestions(env))
	})

	r.Route("/rules/{id}", func(r chi.Router) {
		r.Get("/", handleGetRule(env))
		r.Put("/", handleUpdateRule(env))
		r.Delete("/", handleDeleteRule(env))
	})

	return r
}

// webhookRequest is the inbound contract from the ingestion
// collaborator.
type webhookRequest struct {
	TenantID string            `json:"tenant_id"`
	SkipAI   bool              `json:"skip_ai,omitempty"`
	Item     model.ContentItem `json:"item"`
}

// handleWebhook accepts a content item and processes it asynchronously.
// The response acknowledges admission, not completion.
func handleWebhook(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req webhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.TenantID == "" || req.Item.ID == "" {
			writeError(w, http.StatusBadRequest, "tenant_id and item.id are required")
			return
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			result := env.pipe.Process(ctx, req.Item, req.TenantID, pipeline.Options{ForceSkipAI: req.SkipAI})
			if err := env.store.InsertResult(ctx, result); err != nil {
				zap.L().Error("webhook: persist result failed",
					zap.String("item_id", req.Item.ID), zap.Error(err))
				return
			}
			zap.L().Info("webhook: item processed",
				zap.String("item_id", req.Item.ID),
				zap.String("stage", string(result.Stage)),
				zap.String("category", result.Category),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":  "accepted",
			"item_id": req.Item.ID,
		})
	}
}

func handleGetConfig(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant := chi.URLParam(r, "tenant")
		writeJSON(w, http.StatusOK, env.loader.Load(r.Context(), tenant))
	}
}

func handlePutConfigSection(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant := chi.URLParam(r, "tenant")
		section := chi.URLParam(r, "section")

		data, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable body")
			return
		}
		if err := env.loader.SetSection(r.Context(), tenant, section, data); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		// Provider rows may have changed meaning; drop the cached router too.
		env.registry.Invalidate(tenant)
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated", "section": section})
	}
}

func handleResetConfigSection(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant := chi.URLParam(r, "tenant")
		section := chi.URLParam(r, "section")
		if err := env.loader.ResetSection(r.Context(), tenant, section); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset", "section": section})
	}
}

func handleListRules(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant := chi.URLParam(r, "tenant")
		stage := model.Stage(r.URL.Query().Get("stage"))
		rules, err := env.store.ListRules(r.Context(), tenant, stage)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, rules)
	}
}

func handleCreateRule(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant := chi.URLParam(r, "tenant")
		var rule model.PipelineRule
		if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
			writeError(w, http.StatusBadRequest, "invalid rule body")
			return
		}
		rule.TenantID = tenant
		if err := env.store.CreateRule(r.Context(), &rule); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, rule)
	}
}

func handleGetRule(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rule, err := env.store.GetRule(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, rule)
	}
}

func handleUpdateRule(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rule model.PipelineRule
		if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
			writeError(w, http.StatusBadRequest, "invalid rule body")
			return
		}
		rule.ID = chi.URLParam(r, "id")
		if err := env.store.UpdateRule(r.Context(), &rule); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, rule)
	}
}

func handleDeleteRule(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := env.store.DeleteRule(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleListResults(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.ResultFilter{
			TenantID: chi.URLParam(r, "tenant"),
			Category: r.URL.Query().Get("category"),
		}
		results, err := env.store.ListResults(r.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, results)
	}
}

func handleStats(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		since := time.Now().Add(-24 * time.Hour)
		if s := r.URL.Query().Get("since"); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid since duration")
				return
			}
			since = time.Now().Add(-d)
		}
		stats, err := env.store.Stats(r.Context(), chi.URLParam(r, "tenant"), since)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func handleListSuggestions(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.SuggestionFilter{
			TenantID: chi.URLParam(r, "tenant"),
			Status:   model.SuggestionStatus(r.URL.Query().Get("status")),
		}
		suggestions, err := env.store.ListSuggestions(r.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, suggestions)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
