// Package activitysync is the cloud function that runs one sync cycle for
// one user in response to a sync-requested event.
package activitysync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/dylannguyen2/annas-app-sub001/pkg/bootstrap"
	"github.com/dylannguyen2/annas-app-sub001/pkg/framework"
	"github.com/dylannguyen2/annas-app-sub001/pkg/integrations/garmin"
	"github.com/dylannguyen2/annas-app-sub001/pkg/reconcile"
	"github.com/dylannguyen2/annas-app-sub001/pkg/syncer"
)

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error
)

func init() {
	functions.CloudEvent("SyncActivity", SyncActivity)
}

func initService(ctx context.Context) (*bootstrap.Service, error) {
	if svc != nil {
		return svc, nil
	}
	svcOnce.Do(func() {
		baseSvc, err := bootstrap.NewService(ctx)
		if err != nil {
			slog.Error("Failed to initialize service", "error", err)
			svcErr = err
			return
		}
		svc = baseSvc
	})
	return svc, svcErr
}

// SyncActivity is the entry point
func SyncActivity(ctx context.Context, e event.Event) error {
	svc, err := initService(ctx)
	if err != nil {
		return fmt.Errorf("service init failed: %v", err)
	}
	return framework.WrapCloudEvent("activity-sync", svc, syncHandler(nil))(ctx, e)
}

type syncRequest struct {
	UserID string `json:"user_id"`
}

// syncHandler contains the business logic. A vendor client can be injected
// for testing; nil builds one from config.
func syncHandler(client *garmin.Client) framework.HandlerFunc {
	return func(ctx context.Context, e event.Event, fwCtx *framework.FrameworkContext) (map[string]interface{}, error) {
		var req syncRequest
		if err := framework.DecodeEventData(e, &req); err != nil {
			return nil, fmt.Errorf("decode sync request: %v", err)
		}
		if req.UserID == "" {
			return nil, fmt.Errorf("sync request missing user_id")
		}

		if client == nil {
			var opts []garmin.Option
			if fwCtx.Service.Config.GarminBaseURL != "" {
				opts = append(opts, garmin.WithBaseURL(fwCtx.Service.Config.GarminBaseURL))
			}
			client = garmin.NewClient(opts...)
		}

		s := &syncer.Syncer{
			Vault:      fwCtx.Service.Vault,
			Store:      fwCtx.Service.DB,
			Client:     client,
			Reconciler: reconcile.New(fwCtx.Service.DB),
			Publisher:  fwCtx.Service.Pub,
			Notifier:   fwCtx.Service.Notifier,
			Logger:     fwCtx.Logger,
		}

		summary, err := s.Run(ctx, req.UserID)
		if err != nil {
			return nil, err
		}

		return map[string]interface{}{
			"activities_processed": summary.ActivitiesProcessed,
			"samples_processed":    summary.SamplesProcessed,
			"tokens_rotated":       summary.TokensRotated,
			"stream_errors":        len(summary.StreamErrors),
		}, nil
	}
}
