// Package syncer drives one full sync cycle for one user: authenticate,
// fetch, normalize, reconcile, persist rotated credentials, publish. It owns
// the cycle's state machine and its partial-failure policy; the heavy lifting
// lives in the packages it composes.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	shared "github.com/dylannguyen2/annas-app-sub001/pkg"
	"github.com/dylannguyen2/annas-app-sub001/pkg/domain"
	"github.com/dylannguyen2/annas-app-sub001/pkg/infrastructure/pubsub"
	sentryutil "github.com/dylannguyen2/annas-app-sub001/pkg/infrastructure/sentry"
	"github.com/dylannguyen2/annas-app-sub001/pkg/integrations/garmin"
	"github.com/dylannguyen2/annas-app-sub001/pkg/reconcile"
	"github.com/dylannguyen2/annas-app-sub001/pkg/vault"
)

// State is the orchestrator's position in a sync cycle. Failed is reachable
// only from Authenticating; once a session is established the cycle runs to
// Done and degrades per stream instead of aborting.
type State int

const (
	StateIdle State = iota
	StateAuthenticating
	StateFetching
	StateNormalizing
	StateReconciling
	StatePersistingCredentials
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAuthenticating:
		return "authenticating"
	case StateFetching:
		return "fetching"
	case StateNormalizing:
		return "normalizing"
	case StateReconciling:
		return "reconciling"
	case StatePersistingCredentials:
		return "persisting_credentials"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Fatal authentication outcomes. Everything past authentication is reported
// through Summary.StreamErrors instead.
var (
	// ErrNotConnected means the user has no stored vendor credential.
	ErrNotConnected = errors.New("syncer: user not connected to vendor")
	// ErrReconnectRequired means the stored credential exists but cannot be
	// decrypted; the user must re-authenticate from scratch.
	ErrReconnectRequired = errors.New("syncer: stored credentials unusable, reconnect required")
	// ErrInvalidCredentials means the vendor rejected the stored token pair.
	ErrInvalidCredentials = errors.New("syncer: vendor rejected stored credentials")
)

// StreamError records a non-fatal failure of one data stream or one record
// write during a cycle.
type StreamError struct {
	Stream string `json:"stream"`
	Err    string `json:"error"`
}

// Summary is the outcome of one completed cycle.
type Summary struct {
	ActivitiesProcessed int           `json:"activities_processed"`
	SamplesProcessed    int           `json:"samples_processed"`
	TokensRotated       bool          `json:"tokens_rotated"`
	StreamErrors        []StreamError `json:"stream_errors,omitempty"`
}

const defaultPageSize = 50

// Syncer wires a cycle's collaborators together. Construct with a literal;
// Vault, Store, Client and Reconciler are required, Publisher and Notifier
// degrade to no-ops when nil.
type Syncer struct {
	Vault      *vault.Vault
	Store      shared.RecordStore
	Client     *garmin.Client
	Reconciler *reconcile.Reconciler
	Publisher  shared.Publisher
	Notifier   shared.NotificationService
	Logger     *slog.Logger

	// PageSize bounds one activity-list request. Zero means default.
	PageSize int
	// Now is replaceable in tests. Zero means time.Now.
	Now func() time.Time
}

func (s *Syncer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Syncer) pageSize() int {
	if s.PageSize > 0 {
		return s.PageSize
	}
	return defaultPageSize
}

func (s *Syncer) logger(ownerID string) *slog.Logger {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	return l.With("component", "syncer", "user_id", ownerID)
}

// Run executes one sync cycle for one user. Authentication failures are fatal
// and return an error wrapping one of the sentinel errors above; after that
// point the cycle always reaches Done and reports stream failures in the
// Summary. Callers own per-user mutual exclusion; Run itself is safe to call
// concurrently for different users.
func (s *Syncer) Run(ctx context.Context, ownerID string) (*Summary, error) {
	logger := s.logger(ownerID)
	state := StateIdle
	step := func(next State) {
		logger.Debug("sync state transition", "from", state.String(), "to", next.String())
		state = next
	}

	summary := &Summary{}

	step(StateAuthenticating)
	session, firstPage, err := s.authenticate(ctx, ownerID, summary, logger)
	if err != nil {
		step(StateFailed)
		return nil, err
	}

	targetDay := s.now().UTC().Format("2006-01-02")

	step(StateFetching)
	rawActivities := s.fetchActivities(ctx, session, firstPage, summary, logger)
	sleep, steps, heartRate := s.fetchDaily(ctx, session, targetDay, summary)

	step(StateNormalizing)
	activities := make([]domain.Activity, 0, len(rawActivities))
	for _, raw := range rawActivities {
		activities = append(activities, garmin.NormalizeActivity(ownerID, raw))
	}
	var sample *domain.HealthSample
	if sleep != nil || steps != nil || heartRate != nil {
		day := garmin.NormalizeDaily(ownerID, targetDay, sleep, steps, heartRate)
		sample = &day
	}

	step(StateReconciling)
	for i := range activities {
		act := &activities[i]
		if _, err := s.Reconciler.UpsertActivity(ctx, act); err != nil {
			summary.StreamErrors = append(summary.StreamErrors, StreamError{
				Stream: "activities",
				Err:    fmt.Sprintf("activity %s: %v", act.ExternalActivityID, err),
			})
			continue
		}
		summary.ActivitiesProcessed++
	}
	if sample != nil {
		if _, err := s.Reconciler.UpsertHealthSample(ctx, sample); err != nil {
			summary.StreamErrors = append(summary.StreamErrors, StreamError{
				Stream: "daily",
				Err:    fmt.Sprintf("sample %s: %v", sample.Date, err),
			})
		} else {
			summary.SamplesProcessed++
		}
	}

	// Rotated tokens are persisted regardless of how the streams fared;
	// skipping this write would strand the user on dead credentials.
	step(StatePersistingCredentials)
	summary.TokensRotated = session.Rotated()
	if summary.TokensRotated {
		if err := s.Vault.Store(ctx, s.Store, ownerID, session.CurrentTokens()); err != nil {
			logger.Error("failed to persist rotated tokens", "error", err)
			sentryutil.CaptureException(err, map[string]interface{}{"user_id": ownerID}, logger)
			summary.StreamErrors = append(summary.StreamErrors, StreamError{
				Stream: "credentials",
				Err:    err.Error(),
			})
		}
	}
	s.stampLastSync(ctx, ownerID, logger)

	step(StateDone)
	s.publishCompleted(ctx, ownerID, summary, logger)
	logger.Info("sync cycle complete",
		"activities", summary.ActivitiesProcessed,
		"samples", summary.SamplesProcessed,
		"rotated", summary.TokensRotated,
		"stream_errors", len(summary.StreamErrors))
	return summary, nil
}

// authenticate loads and decrypts the stored pair, resumes a session, and
// proves it against the vendor with the first activity-list page. A vendor
// rejection here is the "stale stored tokens" case and is fatal.
func (s *Syncer) authenticate(ctx context.Context, ownerID string, summary *Summary, logger *slog.Logger) (*garmin.Session, []map[string]any, error) {
	pair, err := s.Vault.Load(ctx, s.Store, ownerID)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrNotFound):
			return nil, nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
		case errors.Is(err, vault.ErrDecryption):
			return nil, nil, s.authFailed(ctx, ownerID, fmt.Errorf("%w: %v", ErrReconnectRequired, err), logger)
		default:
			return nil, nil, fmt.Errorf("load credentials: %w", err)
		}
	}

	session, err := s.Client.Resume(pair)
	if err != nil {
		return nil, nil, s.authFailed(ctx, ownerID, fmt.Errorf("%w: %v", ErrReconnectRequired, err), logger)
	}

	firstPage, err := session.FetchActivities(ctx, 0, s.pageSize())
	if err != nil {
		if errors.Is(err, garmin.ErrAuthentication) {
			return nil, nil, s.authFailed(ctx, ownerID, fmt.Errorf("%w: %v", ErrInvalidCredentials, err), logger)
		}
		// The vendor answered but the activity list is unavailable; the
		// session itself is fine, so the cycle proceeds without it.
		logger.Warn("activity list unavailable", "error", err)
		summary.StreamErrors = append(summary.StreamErrors, StreamError{Stream: "activities", Err: err.Error()})
		return session, nil, nil
	}
	return session, firstPage, nil
}

// authFailed reports a fatal authentication outcome: the user is told to
// reconnect and the error is captured before being returned.
func (s *Syncer) authFailed(ctx context.Context, ownerID string, err error, logger *slog.Logger) error {
	logger.Error("sync authentication failed", "error", err)
	sentryutil.CaptureException(err, map[string]interface{}{"user_id": ownerID}, logger)
	if s.Notifier != nil {
		notifyErr := s.Notifier.SendPushNotification(ctx, ownerID,
			"Reconnect your watch",
			"We could not sign in to your fitness account. Please reconnect it.",
			nil,
			map[string]string{"action": "reconnect_vendor"})
		if notifyErr != nil {
			logger.Warn("failed to send reconnect notification", "error", notifyErr)
		}
	}
	return err
}

// fetchActivities pages through the activity list starting from the page the
// authentication probe already fetched. A page failure ends pagination with a
// stream error; what was fetched so far is still processed.
func (s *Syncer) fetchActivities(ctx context.Context, session *garmin.Session, firstPage []map[string]any, summary *Summary, logger *slog.Logger) []map[string]any {
	all := firstPage
	limit := s.pageSize()
	for len(all) > 0 && len(all)%limit == 0 {
		page, err := session.FetchActivities(ctx, len(all), limit)
		if err != nil {
			logger.Warn("activity pagination aborted", "offset", len(all), "error", err)
			summary.StreamErrors = append(summary.StreamErrors, StreamError{Stream: "activities", Err: err.Error()})
			break
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
	}
	return all
}

// fetchDaily issues the three wellness stream requests for one calendar day
// concurrently. Each stream fails independently; a nil return means that
// stream contributed nothing to the day's sample.
func (s *Syncer) fetchDaily(ctx context.Context, session *garmin.Session, date string, summary *Summary) (sleep, steps, heartRate map[string]any) {
	type result struct {
		stream  string
		payload map[string]any
		err     error
	}

	fetches := []struct {
		stream string
		call   func(context.Context, string) (map[string]any, error)
	}{
		{"sleep", session.FetchSleep},
		{"steps", session.FetchSteps},
		{"heart_rate", session.FetchHeartRate},
	}

	results := make([]result, len(fetches))
	var wg sync.WaitGroup
	for i, f := range fetches {
		wg.Add(1)
		go func(i int, stream string, call func(context.Context, string) (map[string]any, error)) {
			defer wg.Done()
			payload, err := call(ctx, date)
			results[i] = result{stream: stream, payload: payload, err: err}
		}(i, f.stream, f.call)
	}
	wg.Wait()

	for _, r := range results {
		if r.err != nil {
			summary.StreamErrors = append(summary.StreamErrors, StreamError{Stream: r.stream, Err: r.err.Error()})
			continue
		}
		switch r.stream {
		case "sleep":
			sleep = r.payload
		case "steps":
			steps = r.payload
		case "heart_rate":
			heartRate = r.payload
		}
	}
	return sleep, steps, heartRate
}

// stampLastSync records the cycle's wall-clock time on the credential row.
func (s *Syncer) stampLastSync(ctx context.Context, ownerID string, logger *slog.Logger) {
	cred, err := s.Store.GetCredential(ctx, ownerID)
	if err != nil {
		logger.Warn("failed to load credential for last-sync stamp", "error", err)
		return
	}
	now := s.now().UTC()
	cred.LastSyncAt = &now
	if err := s.Store.SetCredential(ctx, cred); err != nil {
		logger.Warn("failed to stamp last sync time", "error", err)
	}
}

func (s *Syncer) publishCompleted(ctx context.Context, ownerID string, summary *Summary, logger *slog.Logger) {
	if s.Publisher == nil {
		return
	}
	e, err := pubsub.NewCloudEvent("syncer", "sync.completed", map[string]any{
		"user_id":              ownerID,
		"activities_processed": summary.ActivitiesProcessed,
		"samples_processed":    summary.SamplesProcessed,
		"tokens_rotated":       summary.TokensRotated,
		"stream_errors":        len(summary.StreamErrors),
	})
	if err != nil {
		logger.Warn("failed to build completion event", "error", err)
		return
	}
	if _, err := s.Publisher.PublishCloudEvent(ctx, shared.TopicSyncCompleted, e); err != nil {
		logger.Warn("failed to publish completion event", "error", err)
	}
}
