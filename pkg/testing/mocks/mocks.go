package mocks

import (
	"context"
	"sync"

	"github.com/cloudevents/sdk-go/v2/event"

	shared "github.com/dylannguyen2/annas-app-sub001/pkg"
	"github.com/dylannguyen2/annas-app-sub001/pkg/domain"
)

// --- Mock RecordStore ---

type MockRecordStore struct {
	GetCredentialFunc    func(ctx context.Context, ownerID string) (*domain.Credential, error)
	SetCredentialFunc    func(ctx context.Context, cred *domain.Credential) error
	DeleteCredentialFunc func(ctx context.Context, ownerID string) error

	GetActivityFunc    func(ctx context.Context, ownerID, externalID string) (*domain.Activity, error)
	InsertActivityFunc func(ctx context.Context, act *domain.Activity) error
	UpdateActivityFunc func(ctx context.Context, act *domain.Activity) error

	GetHealthSampleFunc    func(ctx context.Context, ownerID, date string) (*domain.HealthSample, error)
	InsertHealthSampleFunc func(ctx context.Context, sample *domain.HealthSample) error
	UpdateHealthSampleFunc func(ctx context.Context, sample *domain.HealthSample) error

	SetExecutionFunc    func(ctx context.Context, record *domain.SyncExecution) error
	UpdateExecutionFunc func(ctx context.Context, id string, data map[string]interface{}) error
}

func (m *MockRecordStore) GetCredential(ctx context.Context, ownerID string) (*domain.Credential, error) {
	if m.GetCredentialFunc != nil {
		return m.GetCredentialFunc(ctx, ownerID)
	}
	return nil, shared.ErrNotFound
}

func (m *MockRecordStore) SetCredential(ctx context.Context, cred *domain.Credential) error {
	if m.SetCredentialFunc != nil {
		return m.SetCredentialFunc(ctx, cred)
	}
	return nil
}

func (m *MockRecordStore) DeleteCredential(ctx context.Context, ownerID string) error {
	if m.DeleteCredentialFunc != nil {
		return m.DeleteCredentialFunc(ctx, ownerID)
	}
	return nil
}

func (m *MockRecordStore) GetActivity(ctx context.Context, ownerID, externalID string) (*domain.Activity, error) {
	if m.GetActivityFunc != nil {
		return m.GetActivityFunc(ctx, ownerID, externalID)
	}
	return nil, shared.ErrNotFound
}

func (m *MockRecordStore) InsertActivity(ctx context.Context, act *domain.Activity) error {
	if m.InsertActivityFunc != nil {
		return m.InsertActivityFunc(ctx, act)
	}
	return nil
}

func (m *MockRecordStore) UpdateActivity(ctx context.Context, act *domain.Activity) error {
	if m.UpdateActivityFunc != nil {
		return m.UpdateActivityFunc(ctx, act)
	}
	return nil
}

func (m *MockRecordStore) GetHealthSample(ctx context.Context, ownerID, date string) (*domain.HealthSample, error) {
	if m.GetHealthSampleFunc != nil {
		return m.GetHealthSampleFunc(ctx, ownerID, date)
	}
	return nil, shared.ErrNotFound
}

func (m *MockRecordStore) InsertHealthSample(ctx context.Context, sample *domain.HealthSample) error {
	if m.InsertHealthSampleFunc != nil {
		return m.InsertHealthSampleFunc(ctx, sample)
	}
	return nil
}

func (m *MockRecordStore) UpdateHealthSample(ctx context.Context, sample *domain.HealthSample) error {
	if m.UpdateHealthSampleFunc != nil {
		return m.UpdateHealthSampleFunc(ctx, sample)
	}
	return nil
}

func (m *MockRecordStore) SetExecution(ctx context.Context, record *domain.SyncExecution) error {
	if m.SetExecutionFunc != nil {
		return m.SetExecutionFunc(ctx, record)
	}
	return nil
}

func (m *MockRecordStore) UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error {
	if m.UpdateExecutionFunc != nil {
		return m.UpdateExecutionFunc(ctx, id, data)
	}
	return nil
}

// --- In-memory RecordStore ---

// MemStore is a stateful RecordStore for tests that care about what was
// persisted (idempotence, insert-vs-update contracts).
type MemStore struct {
	mu          sync.Mutex
	Credentials map[string]*domain.Credential
	Activities  map[string]*domain.Activity     // key ownerID + "/" + externalID
	Samples     map[string]*domain.HealthSample // key ownerID + "/" + date
	Executions  map[string]*domain.SyncExecution
}

func NewMemStore() *MemStore {
	return &MemStore{
		Credentials: make(map[string]*domain.Credential),
		Activities:  make(map[string]*domain.Activity),
		Samples:     make(map[string]*domain.HealthSample),
		Executions:  make(map[string]*domain.SyncExecution),
	}
}

func (s *MemStore) GetCredential(ctx context.Context, ownerID string) (*domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.Credentials[ownerID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *cred
	return &cp, nil
}

func (s *MemStore) SetCredential(ctx context.Context, cred *domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cred
	s.Credentials[cred.OwnerID] = &cp
	return nil
}

func (s *MemStore) DeleteCredential(ctx context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Credentials, ownerID)
	return nil
}

func (s *MemStore) GetActivity(ctx context.Context, ownerID, externalID string) (*domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	act, ok := s.Activities[ownerID+"/"+externalID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *act
	return &cp, nil
}

func (s *MemStore) InsertActivity(ctx context.Context, act *domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *act
	s.Activities[act.OwnerID+"/"+act.ExternalActivityID] = &cp
	return nil
}

func (s *MemStore) UpdateActivity(ctx context.Context, act *domain.Activity) error {
	return s.InsertActivity(ctx, act)
}

func (s *MemStore) GetHealthSample(ctx context.Context, ownerID, date string) (*domain.HealthSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sample, ok := s.Samples[ownerID+"/"+date]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *sample
	return &cp, nil
}

func (s *MemStore) InsertHealthSample(ctx context.Context, sample *domain.HealthSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sample
	s.Samples[sample.OwnerID+"/"+sample.Date] = &cp
	return nil
}

func (s *MemStore) UpdateHealthSample(ctx context.Context, sample *domain.HealthSample) error {
	return s.InsertHealthSample(ctx, sample)
}

func (s *MemStore) SetExecution(ctx context.Context, record *domain.SyncExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *record
	s.Executions[record.ExecutionID] = &cp
	return nil
}

func (s *MemStore) UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error {
	return nil
}

// --- Mock Publisher ---

type MockPublisher struct {
	PublishCloudEventFunc func(ctx context.Context, topic string, e event.Event) (string, error)
}

func (m *MockPublisher) PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error) {
	if m.PublishCloudEventFunc != nil {
		return m.PublishCloudEventFunc(ctx, topic, e)
	}
	return "msg-id", nil
}

// --- Mock Storage ---

type MockBlobStore struct {
	WriteFunc func(ctx context.Context, bucket, object string, data []byte) error
	ReadFunc  func(ctx context.Context, bucket, object string) ([]byte, error)
}

func (m *MockBlobStore) Write(ctx context.Context, bucket, object string, data []byte) error {
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, bucket, object, data)
	}
	return nil
}

func (m *MockBlobStore) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx, bucket, object)
	}
	return []byte("mock-data"), nil
}

// --- Mock Notifications ---

type MockNotificationService struct {
	SendPushNotificationFunc func(ctx context.Context, userID string, title, body string, tokens []string, data map[string]string) error
}

func (m *MockNotificationService) SendPushNotification(ctx context.Context, userID string, title, body string, tokens []string, data map[string]string) error {
	if m.SendPushNotificationFunc != nil {
		return m.SendPushNotificationFunc(ctx, userID, title, body, tokens, data)
	}
	return nil
}
