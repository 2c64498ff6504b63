package activitysync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dylannguyen2/annas-app-sub001/pkg/bootstrap"
	"github.com/dylannguyen2/annas-app-sub001/pkg/domain"
	"github.com/dylannguyen2/annas-app-sub001/pkg/framework"
	"github.com/dylannguyen2/annas-app-sub001/pkg/integrations/garmin"
	"github.com/dylannguyen2/annas-app-sub001/pkg/testing/mocks"
	"github.com/dylannguyen2/annas-app-sub001/pkg/vault"
)

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

func vendorStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/activitylist-service/activities/search/activities", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{
				"activityId":     float64(7001),
				"activityName":   "Lunch Walk",
				"beginTimestamp": float64(1756100000000),
				"activityType":   map[string]any{"typeKey": "walking"},
			},
		})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"totalSteps": 4200})
	})
	return httptest.NewServer(mux)
}

func TestSyncHandler(t *testing.T) {
	ts := vendorStub(t)
	defer ts.Close()

	key := make([]byte, vault.KeySize)
	copy(key, []byte("abcdefghijklmnopqrstuvwxyz012345"))
	v, err := vault.New(key)
	require.NoError(t, err)

	store := mocks.NewMemStore()
	require.NoError(t, v.Store(context.Background(), store, "user-7", domain.TokenPair{
		OAuth1Token: "t1",
		OAuth2Token: "t2",
	}))

	svc := &bootstrap.Service{
		DB:     store,
		Pub:    &mocks.MockPublisher{},
		Vault:  v,
		Config: &bootstrap.Config{},
	}
	fwCtx := &framework.FrameworkContext{Service: svc, Logger: bootstrap.NewLogger("activity-sync-test", true)}

	handler := syncHandler(garmin.NewClient(garmin.WithBaseURL(ts.URL)))
	outputs, err := handler(context.Background(), pubsubEvent(t, map[string]string{"user_id": "user-7"}), fwCtx)
	require.NoError(t, err)

	assert.Equal(t, 1, outputs["activities_processed"])
	assert.Equal(t, 1, outputs["samples_processed"])
	require.Len(t, store.Activities, 1)
	act := store.Activities["user-7/7001"]
	require.NotNil(t, act)
	assert.Equal(t, "walking", act.Type)
}

func TestSyncHandlerRejectsMissingUserID(t *testing.T) {
	svc := &bootstrap.Service{Config: &bootstrap.Config{}}
	fwCtx := &framework.FrameworkContext{Service: svc, Logger: bootstrap.NewLogger("activity-sync-test", true)}

	handler := syncHandler(garmin.NewClient())
	_, err := handler(context.Background(), pubsubEvent(t, map[string]string{}), fwCtx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user_id")
}
