// Package framework wraps cloud function handlers with execution logging,
// request-scoped logging and error capture.
package framework

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/google/uuid"

	"github.com/dylannguyen2/annas-app-sub001/pkg/bootstrap"
	"github.com/dylannguyen2/annas-app-sub001/pkg/domain"
	sentryutil "github.com/dylannguyen2/annas-app-sub001/pkg/infrastructure/sentry"
)

// PubSubMessage is the envelope a Pub/Sub-triggered CloudEvent carries.
type PubSubMessage struct {
	Message struct {
		Data       []byte            `json:"data"`
		Attributes map[string]string `json:"attributes"`
	} `json:"message"`
}

// FrameworkContext contains dependencies injected by the framework.
type FrameworkContext struct {
	Service     *bootstrap.Service
	Logger      *slog.Logger
	ExecutionID string
}

// HandlerFunc is the signature for a cloud function handler. The returned
// outputs land on the execution record.
type HandlerFunc func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (map[string]interface{}, error)

// DecodeEventData unmarshals the event payload into v. Pub/Sub envelopes are
// unwrapped; anything else is treated as direct JSON data.
func DecodeEventData(e event.Event, v interface{}) error {
	var msg PubSubMessage
	if err := e.DataAs(&msg); err == nil && len(msg.Message.Data) > 0 {
		return json.Unmarshal(msg.Message.Data, v)
	}
	return e.DataAs(v)
}

// WrapCloudEvent wraps a handler with automatic execution logging. Every
// invocation writes a sync_executions record: STARTED on entry, then SUCCESS
// or FAILURE with the handler's outputs. Handler errors are captured to
// Sentry and returned so the platform retries per its own policy.
func WrapCloudEvent(serviceName string, svc *bootstrap.Service, handler HandlerFunc) func(context.Context, event.Event) error {
	return func(ctx context.Context, e event.Event) error {
		userID := extractUserID(e)
		triggerType := "pubsub"
		if e.Type() == "google.cloud.functions.http" {
			triggerType = "http"
		}

		logger := bootstrap.NewLogger(serviceName, false)
		if userID != "" {
			logger = logger.With("user_id", userID)
		}

		execID := uuid.NewString()
		logger = logger.With("execution_id", execID)

		record := &domain.SyncExecution{
			ExecutionID: execID,
			Service:     serviceName,
			OwnerID:     userID,
			TriggerType: triggerType,
			Status:      domain.ExecutionStarted,
			StartedAt:   time.Now().UTC(),
		}
		if err := svc.DB.SetExecution(ctx, record); err != nil {
			// Execution logging must never take the function down with it.
			logger.Error("Failed to log execution start", "error", err)
		}

		logger.Info("Function started")

		outputs, handlerErr := handler(ctx, e, &FrameworkContext{
			Service:     svc,
			Logger:      logger,
			ExecutionID: execID,
		})

		finished := time.Now().UTC()
		if handlerErr != nil {
			logger.Error("Function failed", "error", handlerErr)
			sentryutil.CaptureException(handlerErr, map[string]interface{}{
				"service":      serviceName,
				"execution_id": execID,
				"user_id":      userID,
			}, logger)
			if logErr := svc.DB.UpdateExecution(ctx, execID, map[string]interface{}{
				"status":      domain.ExecutionFailure,
				"error":       handlerErr.Error(),
				"outputs":     outputs,
				"finished_at": finished,
			}); logErr != nil {
				logger.Warn("Failed to log execution failure", "error", logErr)
			}
			return handlerErr
		}

		logger.Info("Function completed successfully")
		if logErr := svc.DB.UpdateExecution(ctx, execID, map[string]interface{}{
			"status":      domain.ExecutionSuccess,
			"outputs":     outputs,
			"finished_at": finished,
		}); logErr != nil {
			logger.Warn("Failed to log execution success", "error", logErr)
		}

		return nil
	}
}

// extractUserID pulls the user id out of the event payload, whichever of the
// two key spellings the producer used.
func extractUserID(e event.Event) string {
	var payload map[string]interface{}
	if err := DecodeEventData(e, &payload); err != nil {
		return ""
	}
	if uid, ok := payload["user_id"].(string); ok {
		return uid
	}
	if uid, ok := payload["userId"].(string); ok {
		return uid
	}
	return ""
}
