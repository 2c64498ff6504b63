package firestore

import (
	"cloud.google.com/go/firestore"

	shared "github.com/dylannguyen2/annas-app-sub001/pkg"
	"github.com/dylannguyen2/annas-app-sub001/pkg/domain"
)

// Client exposes the typed collections the sync engine persists to.
//
// Layout:
//
//	vendor_credentials/{owner_id}
//	users/{owner_id}/activities/{external_activity_id}
//	users/{owner_id}/health_samples/{date}
//	sync_executions/{execution_id}
type Client struct {
	fs *firestore.Client
}

func NewClient(client *firestore.Client) *Client {
	return &Client{fs: client}
}

func (c *Client) Close() error {
	return c.fs.Close()
}

func (c *Client) Credentials() *Collection[domain.Credential] {
	return &Collection[domain.Credential]{
		Ref:           c.fs.Collection(shared.CollectionVendorCredentials),
		ToFirestore:   CredentialToFirestore,
		FromFirestore: FirestoreToCredential,
	}
}

func (c *Client) UserActivities(ownerID string) *Collection[domain.Activity] {
	return &Collection[domain.Activity]{
		Ref:           c.fs.Collection(shared.CollectionUsers).Doc(ownerID).Collection(shared.CollectionActivities),
		ToFirestore:   ActivityToFirestore,
		FromFirestore: FirestoreToActivity,
	}
}

func (c *Client) UserHealthSamples(ownerID string) *Collection[domain.HealthSample] {
	return &Collection[domain.HealthSample]{
		Ref:           c.fs.Collection(shared.CollectionUsers).Doc(ownerID).Collection(shared.CollectionHealthSamples),
		ToFirestore:   HealthSampleToFirestore,
		FromFirestore: FirestoreToHealthSample,
	}
}

func (c *Client) Executions() *Collection[domain.SyncExecution] {
	return &Collection[domain.SyncExecution]{
		Ref:           c.fs.Collection(shared.CollectionExecutions),
		ToFirestore:   ExecutionToFirestore,
		FromFirestore: FirestoreToExecution,
	}
}
