// syncd is the HTTP trigger surface for the sync engine: connect and
// disconnect a user's vendor account, run a sync cycle, and run a CSV
// backfill, all behind a small JSON API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dylannguyen2/annas-app-sub001/pkg/bootstrap"
	"github.com/dylannguyen2/annas-app-sub001/pkg/importer"
	sentryutil "github.com/dylannguyen2/annas-app-sub001/pkg/infrastructure/sentry"
	"github.com/dylannguyen2/annas-app-sub001/pkg/integrations/garmin"
	"github.com/dylannguyen2/annas-app-sub001/pkg/reconcile"
	"github.com/dylannguyen2/annas-app-sub001/pkg/syncer"
)

type server struct {
	svc    *bootstrap.Service
	client *garmin.Client
	logger *slog.Logger
}

func main() {
	ctx := context.Background()

	svc, err := bootstrap.NewService(ctx)
	if err != nil {
		slog.Error("Failed to initialize service", "error", err)
		os.Exit(1)
	}

	logger := bootstrap.NewLogger("syncd", false)
	if err := sentryutil.Init(sentryutil.Config{
		DSN:         os.Getenv("SENTRY_DSN"),
		Environment: os.Getenv("ENVIRONMENT"),
		ServerName:  "syncd",
	}, logger); err != nil {
		logger.Warn("Sentry init failed", "error", err)
	}
	defer sentryutil.Flush(2 * time.Second)

	var opts []garmin.Option
	if svc.Config.GarminBaseURL != "" {
		opts = append(opts, garmin.WithBaseURL(svc.Config.GarminBaseURL))
	}

	s := &server{
		svc:    svc,
		client: garmin.NewClient(opts...),
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Route("/v1/users/{userID}", func(r chi.Router) {
		r.Post("/connect", s.handleConnect)
		r.Delete("/connection", s.handleDisconnect)
		r.Post("/sync", s.handleSync)
		r.Post("/import", s.handleImport)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logger.Info("syncd listening", "port", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// handleConnect performs an interactive vendor login and stores the resulting
// token pair encrypted. The password is never persisted or logged.
func (s *server) handleConnect(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("username and password required"))
		return
	}

	_, pair, err := s.client.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, garmin.ErrAuthentication) {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		s.logger.Error("vendor login failed", "user_id", userID, "error", err)
		writeError(w, http.StatusBadGateway, fmt.Errorf("vendor login failed"))
		return
	}

	if err := s.svc.Vault.Store(r.Context(), s.svc.DB, userID, pair); err != nil {
		s.logger.Error("failed to store credentials", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("failed to store credentials"))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "connected"})
}

func (s *server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := s.svc.DB.DeleteCredential(r.Context(), userID); err != nil {
		s.logger.Error("failed to delete credentials", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("failed to disconnect"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

func (s *server) handleSync(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	sy := &syncer.Syncer{
		Vault:      s.svc.Vault,
		Store:      s.svc.DB,
		Client:     s.client,
		Reconciler: reconcile.New(s.svc.DB),
		Publisher:  s.svc.Pub,
		Notifier:   s.svc.Notifier,
		Logger:     s.logger,
	}

	summary, err := sy.Run(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, syncer.ErrNotConnected):
			writeError(w, http.StatusNotFound, err)
		case errors.Is(err, syncer.ErrReconnectRequired), errors.Is(err, syncer.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, err)
		default:
			s.logger.Error("sync failed", "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, fmt.Errorf("sync failed"))
		}
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// handleImport accepts either a raw CSV body or a JSON pointer to an object
// in the import bucket.
func (s *server) handleImport(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	imp := importer.New(reconcile.New(s.svc.DB), s.logger)

	if r.Header.Get("Content-Type") == "text/csv" {
		summary, err := imp.Import(r.Context(), userID, r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
		return
	}

	var req struct {
		Bucket string `json:"bucket,omitempty"`
		Object string `json:"object"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Object == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("expected text/csv body or JSON {object}"))
		return
	}
	bucket := req.Bucket
	if bucket == "" {
		bucket = s.svc.Config.GCSImportBucket
	}
	if bucket == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("no import bucket configured"))
		return
	}

	data, err := s.svc.Store.Read(r.Context(), bucket, req.Object)
	if err != nil {
		s.logger.Error("failed to read export object", "bucket", bucket, "object", req.Object, "error", err)
		writeError(w, http.StatusBadGateway, fmt.Errorf("failed to read export object"))
		return
	}

	summary, err := imp.Import(r.Context(), userID, bytes.NewReader(data))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
