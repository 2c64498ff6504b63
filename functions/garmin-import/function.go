// Package garminimport is the cloud function that backfills one user's
// history from a CSV export previously uploaded to the import bucket.
package garminimport

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/dylannguyen2/annas-app-sub001/pkg/bootstrap"
	"github.com/dylannguyen2/annas-app-sub001/pkg/framework"
	"github.com/dylannguyen2/annas-app-sub001/pkg/importer"
	"github.com/dylannguyen2/annas-app-sub001/pkg/reconcile"
)

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error
)

func init() {
	functions.CloudEvent("ImportGarminExport", ImportGarminExport)
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

// ImportGarminExport is the entry point
func ImportGarminExport(ctx context.Context, e event.Event) error {
	svc, err := initService(ctx)
	if err != nil {
		return fmt.Errorf("service init failed: %v", err)
	}
	return framework.WrapCloudEvent("garmin-import", svc, importHandler)(ctx, e)
}

type importRequest struct {
	UserID string `json:"user_id"`
	Bucket string `json:"bucket,omitempty"`
	Object string `json:"object"`
}

func importHandler(ctx context.Context, e event.Event, fwCtx *framework.FrameworkContext) (map[string]interface{}, error) {
	var req importRequest
	if err := framework.DecodeEventData(e, &req); err != nil {
		return nil, fmt.Errorf("decode import request: %v", err)
	}
	if req.UserID == "" || req.Object == "" {
		return nil, fmt.Errorf("import request missing user_id or object")
	}

	bucket := req.Bucket
	if bucket == "" {
		bucket = fwCtx.Service.Config.GCSImportBucket
	}
	if bucket == "" {
		return nil, fmt.Errorf("no import bucket configured")
	}

	data, err := fwCtx.Service.Store.Read(ctx, bucket, req.Object)
	if err != nil {
		return nil, fmt.Errorf("read export %s/%s: %w", bucket, req.Object, err)
	}

	imp := importer.New(reconcile.New(fwCtx.Service.DB), fwCtx.Logger)
	summary, err := imp.Import(ctx, req.UserID, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"total":      summary.Total,
		"imported":   summary.Imported,
		"skipped":    summary.Skipped,
		"row_errors": len(summary.Errors),
	}, nil
}
