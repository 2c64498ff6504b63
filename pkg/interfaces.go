package shared

import (
	"context"
	"errors"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/dylannguyen2/annas-app-sub001/pkg/domain"
)

// ErrNotFound is returned by RecordStore lookups when no record matches.
var ErrNotFound = errors.New("record not found")

// --- Persistence Interfaces ---

// RecordStore is the generic keyed record store the sync core writes through.
// The core never implements storage itself; adapters (Firestore in production,
// mocks in tests) provide find/insert/update per logical table.
type RecordStore interface {
	// Vendor credentials (one per user, token blobs encrypted by the vault)
	GetCredential(ctx context.Context, ownerID string) (*domain.Credential, error)
	SetCredential(ctx context.Context, cred *domain.Credential) error
	DeleteCredential(ctx context.Context, ownerID string) error

	// Activities, keyed by (owner_id, external_activity_id)
	GetActivity(ctx context.Context, ownerID, externalID string) (*domain.Activity, error)
	InsertActivity(ctx context.Context, act *domain.Activity) error
	UpdateActivity(ctx context.Context, act *domain.Activity) error

	// Health samples, keyed by (owner_id, date)
	GetHealthSample(ctx context.Context, ownerID, date string) (*domain.HealthSample, error)
	InsertHealthSample(ctx context.Context, sample *domain.HealthSample) error
	UpdateHealthSample(ctx context.Context, sample *domain.HealthSample) error

	// Execution records written by the functions wrapper
	SetExecution(ctx context.Context, record *domain.SyncExecution) error
	UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error
}

// --- Messaging Interfaces ---

type Publisher interface {
	PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error)
}

// --- Storage Interfaces ---

type BlobStore interface {
	Write(ctx context.Context, bucket, object string, data []byte) error
	Read(ctx context.Context, bucket, object string) ([]byte, error)
}

// --- Notification Interfaces ---

type NotificationService interface {
	SendPushNotification(ctx context.Context, userID string, title, body string, tokens []string, data map[string]string) error
}
