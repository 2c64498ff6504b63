// Package garmin talks to the wearable vendor's REST surface. It owns session
// construction and token rotation tracking; everything downstream sees only
// raw JSON payloads and opaque token pairs.
package garmin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/dylannguyen2/annas-app-sub001/pkg/domain"
	httputil "github.com/dylannguyen2/annas-app-sub001/pkg/infrastructure/http"
)

const defaultBaseURL = "https://connectapi.garmin.com"

// Rotated tokens arrive as response headers on any authenticated call.
const (
	headerRotatedOAuth1 = "X-Rotated-Oauth1-Token"
	headerRotatedOAuth2 = "X-Rotated-Oauth2-Token"
)

// ErrAuthentication indicates the vendor rejected the credentials or the
// stored token pair is stale. Fatal to a sync cycle; the user must reconnect.
var ErrAuthentication = errors.New("garmin: authentication failed")

// Client is an API client for the vendor. One Client may serve many users;
// per-user state lives in Session values, never in the Client itself.
type Client struct {
	baseURL string
	client  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the vendor endpoint (tests, staging).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient injects an HTTP client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session is one user's authenticated connection for one sync cycle. It is
// constructed per invocation and parameterized by that user's token pair;
// nothing here is shared across users.
type Session struct {
	client *Client

	mu      sync.Mutex
	oauth1  string
	oauth2  oauth2.Token
	rotated bool
}

// Login performs interactive authentication. Nothing is persisted here; the
// caller owns storing the returned pair through the vault.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, domain.TokenPair, error) {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, domain.TokenPair{}, fmt.Errorf("marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, domain.TokenPair{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domain.TokenPair{}, fmt.Errorf("execute login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, domain.TokenPair{}, fmt.Errorf("%w: login rejected (status %d)", ErrAuthentication, resp.StatusCode)
	}
	if err := httputil.ParseErrorResponse(resp); err != nil {
		return nil, domain.TokenPair{}, fmt.Errorf("login: %w", err)
	}

	var result struct {
		OAuth1Token string `json:"oauth1_token"`
		OAuth2Token string `json:"oauth2_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, domain.TokenPair{}, fmt.Errorf("decode login response: %w", err)
	}
	if result.OAuth1Token == "" || result.OAuth2Token == "" {
		return nil, domain.TokenPair{}, fmt.Errorf("%w: login response missing tokens", ErrAuthentication)
	}

	pair := domain.TokenPair{OAuth1Token: result.OAuth1Token, OAuth2Token: result.OAuth2Token}
	return c.newSession(pair, result.ExpiresIn), pair, nil
}

// Resume reconstructs a session from a previously stored token pair. No
// network round-trip happens here; a stale pair surfaces as
// ErrAuthentication on the first fetch.
func (c *Client) Resume(pair domain.TokenPair) (*Session, error) {
	if pair.OAuth1Token == "" || pair.OAuth2Token == "" {
		return nil, fmt.Errorf("%w: incomplete token pair", ErrAuthentication)
	}
	return c.newSession(pair, 0), nil
}

func (c *Client) newSession(pair domain.TokenPair, expiresIn int) *Session {
	tok := oauth2.Token{AccessToken: pair.OAuth2Token, TokenType: "Bearer"}
	if expiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(expiresIn) * time.Second)
	}
	return &Session{
		client: c,
		oauth1: pair.OAuth1Token,
		oauth2: tok,
	}
}

// CurrentTokens returns the pair as of the last call. The vendor may rotate
// tokens on any call, so callers must read this after every batch and persist
// it, or the next sync fails with a stale-credential error.
func (s *Session) CurrentTokens() domain.TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.TokenPair{OAuth1Token: s.oauth1, OAuth2Token: s.oauth2.AccessToken}
}

// Rotated reports whether the vendor replaced either token since the session
// was built.
func (s *Session) Rotated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotated
}

// absorbRotation picks up silently rotated tokens from response headers.
func (s *Session) absorbRotation(resp *http.Response) {
	t1 := resp.Header.Get(headerRotatedOAuth1)
	t2 := resp.Header.Get(headerRotatedOAuth2)
	if t1 == "" && t2 == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t1 != "" && t1 != s.oauth1 {
		s.oauth1 = t1
		s.rotated = true
	}
	if t2 != "" && t2 != s.oauth2.AccessToken {
		s.oauth2 = oauth2.Token{AccessToken: t2, TokenType: "Bearer"}
		s.rotated = true
	}
}

// do performs one authenticated GET. No retries: retry policy belongs to the
// orchestrator.
func (s *Session) do(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.client.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.mu.Lock()
	s.oauth2.SetAuthHeader(req)
	s.mu.Unlock()

	resp, err := s.client.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	s.absorbRotation(resp)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: session no longer valid (status %d)", ErrAuthentication, resp.StatusCode)
	}
	if err := httputil.ParseErrorResponse(resp); err != nil {
		return nil, err
	}

	return io.ReadAll(resp.Body)
}

// FetchActivities returns one page of the user's activity list as raw vendor
// payloads. The shape is deliberately untyped; the normalizer extracts fields
// defensively.
func (s *Session) FetchActivities(ctx context.Context, offset, limit int) ([]map[string]any, error) {
	path := fmt.Sprintf("/activitylist-service/activities/search/activities?start=%d&limit=%d", offset, limit)
	body, err := s.do(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("fetch activities: %w", err)
	}

	var raw []map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode activities: %w", err)
	}
	return raw, nil
}

// FetchSleep returns the raw sleep payload for a calendar day (YYYY-MM-DD).
func (s *Session) FetchSleep(ctx context.Context, date string) (map[string]any, error) {
	return s.fetchDaily(ctx, "/wellness-service/wellness/dailySleepData?date="+date, "sleep")
}

// FetchSteps returns the raw daily summary payload for a calendar day.
func (s *Session) FetchSteps(ctx context.Context, date string) (map[string]any, error) {
	return s.fetchDaily(ctx, "/usersummary-service/usersummary/daily?calendarDate="+date, "steps")
}

// FetchHeartRate returns the raw daily heart-rate payload for a calendar day.
func (s *Session) FetchHeartRate(ctx context.Context, date string) (map[string]any, error) {
	return s.fetchDaily(ctx, "/wellness-service/wellness/dailyHeartRate?date="+date, "heart rate")
}

func (s *Session) fetchDaily(ctx context.Context, path, stream string) (map[string]any, error) {
	body, err := s.do(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", stream, err)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", stream, err)
	}
	return raw, nil
}
