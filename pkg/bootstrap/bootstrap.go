// Package bootstrap initializes logging and the shared dependency set every
// entrypoint (functions and binaries) starts from.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"

	shared "github.com/dylannguyen2/annas-app-sub001/pkg"
	"github.com/dylannguyen2/annas-app-sub001/pkg/infrastructure/database"
	"github.com/dylannguyen2/annas-app-sub001/pkg/infrastructure/notifications"
	infrapubsub "github.com/dylannguyen2/annas-app-sub001/pkg/infrastructure/pubsub"
	infrastorage "github.com/dylannguyen2/annas-app-sub001/pkg/infrastructure/storage"
	"github.com/dylannguyen2/annas-app-sub001/pkg/vault"
)

// Config holds standard configuration for all services
type Config struct {
	ProjectID       string
	EnablePublish   bool
	EnablePush      bool
	GCSImportBucket string
	GarminBaseURL   string
	VaultKeyHex     string
}

// Service holds initialized dependencies
type Service struct {
	DB       shared.RecordStore
	Store    shared.BlobStore
	Pub      shared.Publisher
	Notifier shared.NotificationService
	Vault    *vault.Vault
	Config   *Config
}

// LoadConfig reads configuration from environment variables
func LoadConfig() *Config {
	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" {
		projectID = shared.ProjectID // Fallback
	}

	return &Config{
		ProjectID:       projectID,
		EnablePublish:   os.Getenv("ENABLE_PUBLISH") == "true",
		EnablePush:      os.Getenv("ENABLE_PUSH") == "true",
		GCSImportBucket: os.Getenv("GCS_IMPORT_BUCKET"),
		GarminBaseURL:   os.Getenv("GARMIN_BASE_URL"),
		VaultKeyHex:     os.Getenv("VAULT_KEY"),
	}
}

// GetSlogHandlerOptions returns standard handler options for GCP
func GetSlogHandlerOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Map standard keys to Cloud Logging keys
			if a.Key == slog.MessageKey {
				return slog.Attr{Key: "message", Value: a.Value}
			}
			if a.Key == slog.LevelKey {
				return slog.Attr{Key: "severity", Value: a.Value}
			}
			return a
		},
	}
}

// ComponentHandler wraps a slog.Handler to prepend [component] to the message
type ComponentHandler struct {
	slog.Handler
	component string
}

// WithGroup implements slog.Handler
func (h *ComponentHandler) WithGroup(name string) slog.Handler {
	return &ComponentHandler{
		Handler:   h.Handler.WithGroup(name),
		component: h.component,
	}
}

// WithAttrs implements slog.Handler
func (h *ComponentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newComp := h.component
	for _, a := range attrs {
		if a.Key == "component" {
			newComp = a.Value.String()
		}
	}
	return &ComponentHandler{
		Handler:   h.Handler.WithAttrs(attrs),
		component: newComp,
	}
}

// Handle implements slog.Handler
func (h *ComponentHandler) Handle(ctx context.Context, r slog.Record) error {
	comp := h.component

	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			comp = a.Value.String()
			return false
		}
		return true
	})

	if comp != "" {
		newMsg := fmt.Sprintf("[%s] %s", comp, r.Message)
		newRecord := slog.NewRecord(r.Time, r.Level, newMsg, r.PC)
		// Keep the component attribute in the structured payload; only the
		// message line gets the prefix.
		r.Attrs(func(a slog.Attr) bool {
			newRecord.AddAttrs(a)
			return true
		})
		r = newRecord
	}

	return h.Handler.Handle(ctx, r)
}

// InitLogger configures structured logging with Cloud Logging compatible keys
func InitLogger() {
	opts := GetSlogHandlerOptions(slog.LevelInfo)
	handler := slog.NewJSONHandler(os.Stdout, opts)
	logger := slog.New(&ComponentHandler{Handler: handler})
	slog.SetDefault(logger)
}

// NewLogger creates a configured logger instance
func NewLogger(serviceName string, isDev bool) *slog.Logger {
	logLevelStr := os.Getenv("LOG_LEVEL")
	var level slog.Level
	switch strings.ToLower(logLevelStr) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := GetSlogHandlerOptions(level)
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(&ComponentHandler{Handler: handler}).With("service", serviceName)
}

// NewService initializes all standard dependencies. A missing or malformed
// VAULT_KEY is a configuration error and fails startup; syncing without a
// working vault would silently strand every user.
func NewService(ctx context.Context) (*Service, error) {
	InitLogger()
	cfg := LoadConfig()

	slog.Info("Initializing service", "project_id", cfg.ProjectID)

	v, err := vault.NewFromHex(cfg.VaultKeyHex)
	if err != nil {
		slog.Error("Vault init failed", "error", err)
		return nil, fmt.Errorf("vault init: %w", err)
	}

	// Firestore
	fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		slog.Error("Firestore init failed", "error", err)
		return nil, fmt.Errorf("firestore init: %w", err)
	}

	// Pub/Sub
	var pubAdapter shared.Publisher
	if cfg.EnablePublish {
		psClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			slog.Error("PubSub init failed", "error", err)
			return nil, fmt.Errorf("pubsub init: %w", err)
		}
		pubAdapter = &infrapubsub.PubSubAdapter{Client: psClient}
		slog.Info("Pub/Sub: REAL (ENABLE_PUBLISH=true)")
	} else {
		pubAdapter = &infrapubsub.LogPublisher{}
		slog.Info("Pub/Sub: MOCK (LogPublisher)")
	}

	// Storage
	gcsClient, err := storage.NewClient(ctx)
	if err != nil {
		slog.Error("Storage init failed", "error", err)
		return nil, fmt.Errorf("storage init: %w", err)
	}

	// Push notifications are optional; a sync cycle must not depend on FCM
	// being configured.
	var notifier shared.NotificationService
	if cfg.EnablePush {
		app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID})
		if err != nil {
			slog.Warn("Firebase init failed, push notifications disabled", "error", err)
		} else {
			notifier, err = notifications.NewFCMAdapter(ctx, app, fsClient)
			if err != nil {
				slog.Warn("FCM init failed, push notifications disabled", "error", err)
				notifier = nil
			}
		}
	}

	return &Service{
		DB:       database.NewFirestoreAdapter(fsClient),
		Pub:      pubAdapter,
		Store:    &infrastorage.StorageAdapter{Client: gcsClient},
		Notifier: notifier,
		Vault:    v,
		Config:   cfg,
	}, nil
}
