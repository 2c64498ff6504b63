package domain

import (
	"fmt"
	"time"
)

// DeriveActivityID builds the deterministic synthetic identity for records
// the vendor never assigned an id to, so repeated imports of the same file
// stay idempotent. Two distinct activities starting in the same millisecond
// collide; accepted limitation.
func DeriveActivityID(start time.Time) string {
	return fmt.Sprintf("derived-%d", start.UnixMilli())
}

// TokenPair is the two-part credential issued by the vendor: a long-lived
// exchange token and a short-lived session token. Both are opaque to every
// component except the vault, which encrypts them at rest.
type TokenPair struct {
	OAuth1Token string `json:"oauth1_token"`
	OAuth2Token string `json:"oauth2_token"`
}

// Credential is the persisted, encrypted form of a user's vendor tokens.
// One row per user; deleted only on explicit disconnect.
type Credential struct {
	OwnerID         string     `json:"owner_id"`
	EncryptedOAuth1 string     `json:"encrypted_oauth1"`
	EncryptedOAuth2 string     `json:"encrypted_oauth2"`
	LastSyncAt      *time.Time `json:"last_sync_at,omitempty"`
}

// Activity is the canonical activity record both ingestion paths converge to.
// Optional metrics are pointers; nil means the source did not supply the field.
type Activity struct {
	OwnerID            string    `json:"owner_id"`
	ExternalActivityID string    `json:"external_activity_id"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	StartTime          time.Time `json:"start_time"`

	TotalDurationSeconds   *int `json:"total_duration_seconds,omitempty"`
	MovingDurationSeconds  *int `json:"moving_duration_seconds,omitempty"`
	ElapsedDurationSeconds *int `json:"elapsed_duration_seconds,omitempty"`

	DistanceMeters *float64 `json:"distance_meters,omitempty"`
	Calories       *float64 `json:"calories,omitempty"`

	AvgHeartRate *int `json:"avg_heart_rate,omitempty"`
	MaxHeartRate *int `json:"max_heart_rate,omitempty"`

	AvgSpeedMetersPerSecond *float64 `json:"avg_speed_mps,omitempty"`
	MaxSpeedMetersPerSecond *float64 `json:"max_speed_mps,omitempty"`

	ElevationGainMeters *float64 `json:"elevation_gain_meters,omitempty"`
	ElevationLossMeters *float64 `json:"elevation_loss_meters,omitempty"`

	Steps      *int     `json:"steps,omitempty"`
	AvgCadence *float64 `json:"avg_cadence,omitempty"`
	MaxCadence *float64 `json:"max_cadence,omitempty"`
	AvgPower   *float64 `json:"avg_power,omitempty"`
	MaxPower   *float64 `json:"max_power,omitempty"`
	TotalSets  *int     `json:"total_sets,omitempty"`
	TotalReps  *int     `json:"total_reps,omitempty"`

	LocationName *string `json:"location_name,omitempty"`
	Favorite     bool    `json:"favorite"`

	// SourceRaw retains the untouched vendor payload (or CSV row) as JSON so
	// fields we don't map yet survive schema drift.
	SourceRaw string `json:"source_raw,omitempty"`
}

// HealthSample is one calendar day of wellness data. A sync for a day fully
// replaces that day's row.
type HealthSample struct {
	OwnerID string `json:"owner_id"`
	Date    string `json:"date"` // YYYY-MM-DD

	Steps *int `json:"steps,omitempty"`

	SleepDurationSeconds *int       `json:"sleep_duration_seconds,omitempty"`
	DeepSleepSeconds     *int       `json:"deep_sleep_seconds,omitempty"`
	LightSleepSeconds    *int       `json:"light_sleep_seconds,omitempty"`
	RemSleepSeconds      *int       `json:"rem_sleep_seconds,omitempty"`
	AwakeSeconds         *int       `json:"awake_seconds,omitempty"`
	SleepStart           *time.Time `json:"sleep_start,omitempty"`
	SleepEnd             *time.Time `json:"sleep_end,omitempty"`

	RestingHeartRate *int `json:"resting_heart_rate,omitempty"`
	MinHeartRate     *int `json:"min_heart_rate,omitempty"`
	MaxHeartRate     *int `json:"max_heart_rate,omitempty"`
	AvgHeartRate     *int `json:"avg_heart_rate,omitempty"`

	TotalCalories *float64 `json:"total_calories,omitempty"`

	SourceRaw string `json:"source_raw,omitempty"`
}

// SyncExecution records one invocation of a sync or import entrypoint, for
// operational visibility. Mirrors what the functions wrapper writes.
type SyncExecution struct {
	ExecutionID string         `json:"execution_id"`
	Service     string         `json:"service"`
	OwnerID     string         `json:"owner_id,omitempty"`
	TriggerType string         `json:"trigger_type"`
	Status      string         `json:"status"`
	Error       string         `json:"error,omitempty"`
	Outputs     map[string]any `json:"outputs,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  *time.Time     `json:"finished_at,omitempty"`
}

// Execution statuses.
const (
	ExecutionStarted = "STARTED"
	ExecutionSuccess = "SUCCESS"
	ExecutionFailure = "FAILURE"
)
