package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shared "github.com/dylannguyen2/annas-app-sub001/pkg"
	"github.com/dylannguyen2/annas-app-sub001/pkg/domain"
	"github.com/dylannguyen2/annas-app-sub001/pkg/integrations/garmin"
	"github.com/dylannguyen2/annas-app-sub001/pkg/reconcile"
	"github.com/dylannguyen2/annas-app-sub001/pkg/testing/mocks"
	"github.com/dylannguyen2/annas-app-sub001/pkg/vault"
)

const testOwner = "user-42"

func testVault(t *testing.T) *vault.Vault {
	t.Helper()
	key := make([]byte, vault.KeySize)
	copy(key, []byte("0123456789abcdef0123456789abcdef"))
	v, err := vault.New(key)
	require.NoError(t, err)
	return v
}

// vendorServer fakes the vendor API. Field overrides let tests break single
// streams or rotate tokens without re-declaring the whole handler.
type vendorServer struct {
	activities []map[string]any

	failHeartRate bool
	rejectAll     bool
	rotateOAuth2  string

	mu       sync.Mutex
	requests []string
}

func (vs *vendorServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vs.mu.Lock()
		vs.requests = append(vs.requests, r.URL.Path)
		vs.mu.Unlock()

		if vs.rejectAll {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if vs.rotateOAuth2 != "" {
			w.Header().Set("X-Rotated-Oauth2-Token", vs.rotateOAuth2)
		}

		switch r.URL.Path {
		case "/activitylist-service/activities/search/activities":
			json.NewEncoder(w).Encode(vs.activities)
		case "/wellness-service/wellness/dailySleepData":
			json.NewEncoder(w).Encode(map[string]any{
				"dailySleepDTO": map[string]any{
					"sleepTimeSeconds": 27000,
					"deepSleepSeconds": 6200,
				},
			})
		case "/usersummary-service/usersummary/daily":
			json.NewEncoder(w).Encode(map[string]any{
				"totalSteps":        8214,
				"totalKilocalories": 2105.0,
			})
		case "/wellness-service/wellness/dailyHeartRate":
			if vs.failHeartRate {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"restingHeartRate": 47,
				"minHeartRate":     42,
				"maxHeartRate":     152,
			})
		default:
			http.NotFound(w, r)
		}
	})
}

func sampleActivities() []map[string]any {
	return []map[string]any{
		{
			"activityId":     float64(1001),
			"activityName":   "Morning Run",
			"beginTimestamp": float64(1756000000000),
			"activityType":   map[string]any{"typeKey": "running"},
			"duration":       float64(3010),
			"distance":       float64(10012.5),
		},
		{
			"activityId":     float64(1002),
			"activityName":   "Evening Ride",
			"beginTimestamp": float64(1756040000000),
			"activityType":   map[string]any{"typeKey": "cycling"},
			"duration":       float64(5400),
		},
	}
}

// newSyncer builds a Syncer over a MemStore seeded with encrypted credentials
// for testOwner, pointed at the fake vendor.
func newSyncer(t *testing.T, ts *httptest.Server, store shared.RecordStore) (*Syncer, *vault.Vault) {
	t.Helper()
	v := testVault(t)
	require.NoError(t, v.Store(context.Background(), store, testOwner, domain.TokenPair{
		OAuth1Token: "stored-oauth1",
		OAuth2Token: "stored-oauth2",
	}))

	return &Syncer{
		Vault:      v,
		Store:      store,
		Client:     garmin.NewClient(garmin.WithBaseURL(ts.URL)),
		Reconciler: reconcile.New(store),
	}, v
}

func TestRunFullCycle(t *testing.T) {
	vs := &vendorServer{activities: sampleActivities()}
	ts := httptest.NewServer(vs.handler())
	defer ts.Close()

	store := mocks.NewMemStore()
	s, _ := newSyncer(t, ts, store)

	var published []event.Event
	s.Publisher = &mocks.MockPublisher{
		PublishCloudEventFunc: func(ctx context.Context, topic string, e event.Event) (string, error) {
			assert.Equal(t, shared.TopicSyncCompleted, topic)
			published = append(published, e)
			return "msg-1", nil
		},
	}

	summary, err := s.Run(context.Background(), testOwner)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.ActivitiesProcessed)
	assert.Equal(t, 1, summary.SamplesProcessed)
	assert.False(t, summary.TokensRotated)
	assert.Empty(t, summary.StreamErrors)

	require.Len(t, store.Activities, 2)
	run := store.Activities[testOwner+"/1001"]
	require.NotNil(t, run)
	assert.Equal(t, "Morning Run", run.Name)
	assert.Equal(t, "running", run.Type)

	sample := store.Samples[testOwner+"/"+summaryDate(s)]
	require.NotNil(t, sample)
	require.NotNil(t, sample.Steps)
	assert.Equal(t, 8214, *sample.Steps)
	require.NotNil(t, sample.SleepDurationSeconds)
	assert.Equal(t, 27000, *sample.SleepDurationSeconds)
	require.NotNil(t, sample.RestingHeartRate)
	assert.Equal(t, 47, *sample.RestingHeartRate)

	cred := store.Credentials[testOwner]
	require.NotNil(t, cred)
	assert.NotNil(t, cred.LastSyncAt)

	require.Len(t, published, 1)
	assert.Equal(t, "sync.completed", published[0].Type())
}

func summaryDate(s *Syncer) string {
	return s.now().UTC().Format("2006-01-02")
}

func TestRunHeartRateFailureDoesNotAbortCycle(t *testing.T) {
	vs := &vendorServer{activities: sampleActivities(), failHeartRate: true}
	ts := httptest.NewServer(vs.handler())
	defer ts.Close()

	store := mocks.NewMemStore()
	s, _ := newSyncer(t, ts, store)

	summary, err := s.Run(context.Background(), testOwner)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.ActivitiesProcessed)
	assert.Equal(t, 1, summary.SamplesProcessed)
	require.Len(t, summary.StreamErrors, 1)
	assert.Equal(t, "heart_rate", summary.StreamErrors[0].Stream)

	// Steps and sleep still landed; the heart-rate fields stayed empty.
	sample := store.Samples[testOwner+"/"+summaryDate(s)]
	require.NotNil(t, sample)
	require.NotNil(t, sample.Steps)
	assert.Equal(t, 8214, *sample.Steps)
	require.NotNil(t, sample.SleepDurationSeconds)
	assert.Nil(t, sample.RestingHeartRate)
}

func TestRunPersistsRotatedTokensDespiteStreamFailure(t *testing.T) {
	vs := &vendorServer{
		activities:    sampleActivities(),
		failHeartRate: true,
		rotateOAuth2:  "rotated-oauth2",
	}
	ts := httptest.NewServer(vs.handler())
	defer ts.Close()

	store := mocks.NewMemStore()
	s, v := newSyncer(t, ts, store)

	summary, err := s.Run(context.Background(), testOwner)
	require.NoError(t, err)
	assert.True(t, summary.TokensRotated)
	assert.NotEmpty(t, summary.StreamErrors)

	pair, err := v.Load(context.Background(), store, testOwner)
	require.NoError(t, err)
	assert.Equal(t, "stored-oauth1", pair.OAuth1Token)
	assert.Equal(t, "rotated-oauth2", pair.OAuth2Token)
}

func TestRunNotConnected(t *testing.T) {
	vs := &vendorServer{}
	ts := httptest.NewServer(vs.handler())
	defer ts.Close()

	store := mocks.NewMemStore()
	s := &Syncer{
		Vault:      testVault(t),
		Store:      store,
		Client:     garmin.NewClient(garmin.WithBaseURL(ts.URL)),
		Reconciler: reconcile.New(store),
	}

	_, err := s.Run(context.Background(), "stranger")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Empty(t, vs.requests, "no vendor call should happen without credentials")
}

func TestRunCorruptedCredentialRequiresReconnect(t *testing.T) {
	vs := &vendorServer{}
	ts := httptest.NewServer(vs.handler())
	defer ts.Close()

	store := mocks.NewMemStore()
	s, _ := newSyncer(t, ts, store)

	cred := store.Credentials[testOwner]
	cred.EncryptedOAuth2 = "deadbeef:deadbeef:deadbeef"

	var notified bool
	s.Notifier = &mocks.MockNotificationService{
		SendPushNotificationFunc: func(ctx context.Context, userID string, title, body string, tokens []string, data map[string]string) error {
			notified = true
			assert.Equal(t, testOwner, userID)
			return nil
		},
	}

	_, err := s.Run(context.Background(), testOwner)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReconnectRequired)
	assert.True(t, notified, "user should be told to reconnect")
}

func TestRunVendorRejectionIsFatal(t *testing.T) {
	vs := &vendorServer{rejectAll: true}
	ts := httptest.NewServer(vs.handler())
	defer ts.Close()

	store := mocks.NewMemStore()
	s, _ := newSyncer(t, ts, store)

	var notified bool
	s.Notifier = &mocks.MockNotificationService{
		SendPushNotificationFunc: func(ctx context.Context, userID string, title, body string, tokens []string, data map[string]string) error {
			notified = true
			return nil
		},
	}

	_, err := s.Run(context.Background(), testOwner)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.True(t, notified)
	assert.Empty(t, store.Activities, "nothing should be written after a fatal auth failure")
}

func TestRunActivityListFailureDegradesToDailyStreams(t *testing.T) {
	// The activity list 500s on every call but the session is valid, so the
	// daily streams still run and the cycle completes.
	mux := http.NewServeMux()
	mux.HandleFunc("/activitylist-service/activities/search/activities", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"totalSteps": 100})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	store := mocks.NewMemStore()
	s, _ := newSyncer(t, ts, store)

	summary, err := s.Run(context.Background(), testOwner)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.ActivitiesProcessed)
	assert.Equal(t, 1, summary.SamplesProcessed)
	require.NotEmpty(t, summary.StreamErrors)
	assert.Equal(t, "activities", summary.StreamErrors[0].Stream)
}

func TestRunReconcileErrorsAreIsolated(t *testing.T) {
	vs := &vendorServer{activities: sampleActivities()}
	ts := httptest.NewServer(vs.handler())
	defer ts.Close()

	mem := mocks.NewMemStore()
	var failed bool
	store := &mocks.MockRecordStore{
		GetCredentialFunc: mem.GetCredential,
		SetCredentialFunc: mem.SetCredential,
		GetActivityFunc:   mem.GetActivity,
		InsertActivityFunc: func(ctx context.Context, act *domain.Activity) error {
			if !failed {
				failed = true
				return errors.New("write quota exceeded")
			}
			return mem.InsertActivity(ctx, act)
		},
		GetHealthSampleFunc:    mem.GetHealthSample,
		InsertHealthSampleFunc: mem.InsertHealthSample,
	}

	s, _ := newSyncer(t, ts, store)

	summary, err := s.Run(context.Background(), testOwner)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ActivitiesProcessed)
	require.Len(t, summary.StreamErrors, 1)
	assert.Equal(t, "activities", summary.StreamErrors[0].Stream)
	assert.Contains(t, summary.StreamErrors[0].Err, "write quota exceeded")
	assert.Len(t, mem.Activities, 1)
}
