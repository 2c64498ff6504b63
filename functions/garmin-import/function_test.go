package garminimport

import (
	"context"
	"encoding/json"
	"testing"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dylannguyen2/annas-app-sub001/pkg/bootstrap"
	"github.com/dylannguyen2/annas-app-sub001/pkg/framework"
	"github.com/dylannguyen2/annas-app-sub001/pkg/testing/mocks"
)

const exportCSV = `Activity Type,Date,Favorite,Title,Distance,Calories,Time
Running,2026-08-20 06:30:15,false,"Park run",3.1,250,"25:03"
`

func pubsubEvent(t *testing.T, payload interface{}) event.Event {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	var msg framework.PubSubMessage
	msg.Message.Data = data

	e := event.New()
	e.SetID("test-event")
	e.SetType("google.cloud.pubsub.topic.v1.messagePublished")
	e.SetSource("//pubsub.googleapis.com/test")
	require.NoError(t, e.SetData(cloudevents.ApplicationJSON, msg))
	return e
}

func TestImportHandler(t *testing.T) {
	store := mocks.NewMemStore()
	var readBucket, readObject string
	blobs := &mocks.MockBlobStore{
		ReadFunc: func(ctx context.Context, bucket, object string) ([]byte, error) {
			readBucket, readObject = bucket, object
			return []byte(exportCSV), nil
		},
	}

	svc := &bootstrap.Service{
		DB:     store,
		Store:  blobs,
		Config: &bootstrap.Config{GCSImportBucket: "imports"},
	}
	fwCtx := &framework.FrameworkContext{Service: svc, Logger: bootstrap.NewLogger("garmin-import-test", true)}

	e := pubsubEvent(t, map[string]string{"user_id": "user-9", "object": "user-9/export.csv"})
	outputs, err := importHandler(context.Background(), e, fwCtx)
	require.NoError(t, err)

	assert.Equal(t, "imports", readBucket)
	assert.Equal(t, "user-9/export.csv", readObject)
	assert.Equal(t, 1, outputs["total"])
	assert.Equal(t, 1, outputs["imported"])
	assert.Equal(t, 0, outputs["skipped"])
	assert.Len(t, store.Activities, 1)
}

func TestImportHandlerRequiresObject(t *testing.T) {
	svc := &bootstrap.Service{Config: &bootstrap.Config{GCSImportBucket: "imports"}}
	fwCtx := &framework.FrameworkContext{Service: svc, Logger: bootstrap.NewLogger("garmin-import-test", true)}

	_, err := importHandler(context.Background(), pubsubEvent(t, map[string]string{"user_id": "user-9"}), fwCtx)
	require.Error(t, err)
}
