// Package database adapts the typed Firestore storage client to the
// RecordStore interface the sync core depends on.
package database

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	shared "github.com/dylannguyen2/annas-app-sub001/pkg"
	"github.com/dylannguyen2/annas-app-sub001/pkg/domain"
	storage "github.com/dylannguyen2/annas-app-sub001/pkg/storage/firestore"
)

// FirestoreAdapter implements shared.RecordStore over Firestore. Lookup
// misses are translated from gRPC NotFound to shared.ErrNotFound so callers
// never import grpc themselves.
type FirestoreAdapter struct {
	Client  *firestore.Client
	storage *storage.Client
}

func NewFirestoreAdapter(client *firestore.Client) *FirestoreAdapter {
	return &FirestoreAdapter{
		Client:  client,
		storage: storage.NewClient(client),
	}
}

func mapErr(err error) error {
	if status.Code(err) == codes.NotFound {
		return shared.ErrNotFound
	}
	return err
}

// --- Credentials ---

func (a *FirestoreAdapter) GetCredential(ctx context.Context, ownerID string) (*domain.Credential, error) {
	cred, err := a.storage.Credentials().Doc(ownerID).Get(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	return cred, nil
}

func (a *FirestoreAdapter) SetCredential(ctx context.Context, cred *domain.Credential) error {
	return a.storage.Credentials().Doc(cred.OwnerID).Set(ctx, cred)
}

func (a *FirestoreAdapter) DeleteCredential(ctx context.Context, ownerID string) error {
	return a.storage.Credentials().Doc(ownerID).Delete(ctx)
}

// --- Activities ---

func (a *FirestoreAdapter) GetActivity(ctx context.Context, ownerID, externalID string) (*domain.Activity, error) {
	act, err := a.storage.UserActivities(ownerID).Doc(externalID).Get(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	return act, nil
}

func (a *FirestoreAdapter) InsertActivity(ctx context.Context, act *domain.Activity) error {
	return a.storage.UserActivities(act.OwnerID).Doc(act.ExternalActivityID).Set(ctx, act)
}

func (a *FirestoreAdapter) UpdateActivity(ctx context.Context, act *domain.Activity) error {
	return a.storage.UserActivities(act.OwnerID).Doc(act.ExternalActivityID).Set(ctx, act)
}

// --- Health samples ---

func (a *FirestoreAdapter) GetHealthSample(ctx context.Context, ownerID, date string) (*domain.HealthSample, error) {
	sample, err := a.storage.UserHealthSamples(ownerID).Doc(date).Get(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	return sample, nil
}

func (a *FirestoreAdapter) InsertHealthSample(ctx context.Context, sample *domain.HealthSample) error {
	return a.storage.UserHealthSamples(sample.OwnerID).Doc(sample.Date).Set(ctx, sample)
}

func (a *FirestoreAdapter) UpdateHealthSample(ctx context.Context, sample *domain.HealthSample) error {
	return a.storage.UserHealthSamples(sample.OwnerID).Doc(sample.Date).Set(ctx, sample)
}

// --- Executions ---

func (a *FirestoreAdapter) SetExecution(ctx context.Context, record *domain.SyncExecution) error {
	return a.storage.Executions().Doc(record.ExecutionID).Set(ctx, record)
}

func (a *FirestoreAdapter) UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error {
	return a.storage.Executions().Doc(id).Update(ctx, data)
}
