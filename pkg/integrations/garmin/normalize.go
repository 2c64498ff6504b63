package garmin

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/dylannguyen2/annas-app-sub001/pkg/domain"
)

// Normalization is a pure mapping from raw vendor JSON to canonical records.
// Every field access is independently nullable and nothing here ever returns
// an error: one bad vendor field must never discard an entire record.

// --- extraction helpers over untyped vendor payloads ---

// JSON numbers decode as float64; vendor payloads also carry numeric strings
// in a few places, so accept both.
func f64(m map[string]any, key string) *float64 {
	if m == nil {
		return nil
	}
	switch v := m[key].(type) {
	case float64:
		return &v
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return &f
		}
	}
	return nil
}

func i64(m map[string]any, key string) *int {
	f := f64(m, key)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

func str(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func boolean(m map[string]any, key string) bool {
	if m == nil {
		return false
	}
	b, _ := m[key].(bool)
	return b
}

func nested(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	sub, _ := m[key].(map[string]any)
	return sub
}

// durationSeconds truncates a float seconds value to whole seconds.
func durationSeconds(m map[string]any, key string) *int {
	f := f64(m, key)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

// epochMillis reads a millisecond epoch timestamp into UTC time.
func epochMillis(m map[string]any, key string) *time.Time {
	f := f64(m, key)
	if f == nil {
		return nil
	}
	t := time.UnixMilli(int64(*f)).UTC()
	return &t
}

func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// NormalizeActivity maps one raw activity payload to the canonical shape.
// The untouched payload is retained in SourceRaw for forward compatibility.
func NormalizeActivity(ownerID string, raw map[string]any) domain.Activity {
	act := domain.Activity{
		OwnerID:   ownerID,
		Name:      str(raw, "activityName"),
		Favorite:  boolean(raw, "favorite"),
		SourceRaw: compactJSON(raw),
	}

	if id := f64(raw, "activityId"); id != nil {
		act.ExternalActivityID = strconv.FormatInt(int64(*id), 10)
	}

	if t := epochMillis(raw, "beginTimestamp"); t != nil {
		act.StartTime = *t
	}
	if act.ExternalActivityID == "" && !act.StartTime.IsZero() {
		// The vendor assigns ids on the live path; this fallback mirrors the
		// batch importer's derived identity so a malformed payload still
		// reconciles idempotently.
		act.ExternalActivityID = domain.DeriveActivityID(act.StartTime)
	}

	act.Type = str(nested(raw, "activityType"), "typeKey")

	act.TotalDurationSeconds = durationSeconds(raw, "duration")
	act.MovingDurationSeconds = durationSeconds(raw, "movingDuration")
	act.ElapsedDurationSeconds = durationSeconds(raw, "elapsedDuration")

	act.DistanceMeters = f64(raw, "distance")
	act.Calories = f64(raw, "calories")

	act.AvgHeartRate = i64(raw, "averageHR")
	act.MaxHeartRate = i64(raw, "maxHR")

	act.AvgSpeedMetersPerSecond = f64(raw, "averageSpeed")
	act.MaxSpeedMetersPerSecond = f64(raw, "maxSpeed")

	act.ElevationGainMeters = f64(raw, "elevationGain")
	act.ElevationLossMeters = f64(raw, "elevationLoss")

	act.Steps = i64(raw, "steps")
	act.AvgCadence = f64(raw, "averageBikingCadenceInRevPerMinute")
	if act.AvgCadence == nil {
		act.AvgCadence = f64(raw, "averageRunningCadenceInStepsPerMinute")
	}
	act.MaxCadence = f64(raw, "maxBikingCadenceInRevPerMinute")
	if act.MaxCadence == nil {
		act.MaxCadence = f64(raw, "maxRunningCadenceInStepsPerMinute")
	}

	act.AvgPower = f64(raw, "avgPower")
	act.MaxPower = f64(raw, "maxPower")
	act.TotalSets = i64(raw, "totalSets")
	act.TotalReps = i64(raw, "totalReps")

	if loc := str(raw, "locationName"); loc != "" {
		act.LocationName = &loc
	}

	return act
}

// NormalizeDaily merges the three daily stream payloads into one canonical
// sample. Any of the payloads may be nil when its fetch failed; the fields it
// would have supplied stay nil and the rest of the day survives.
func NormalizeDaily(ownerID, date string, sleep, steps, heartRate map[string]any) domain.HealthSample {
	sample := domain.HealthSample{
		OwnerID: ownerID,
		Date:    date,
	}

	// Sleep stages are read in seconds directly from the payload, never
	// derived from each other.
	if daily := nested(sleep, "dailySleepDTO"); daily != nil {
		sleep = daily
	}
	sample.SleepDurationSeconds = durationSeconds(sleep, "sleepTimeSeconds")
	sample.DeepSleepSeconds = durationSeconds(sleep, "deepSleepSeconds")
	sample.LightSleepSeconds = durationSeconds(sleep, "lightSleepSeconds")
	sample.RemSleepSeconds = durationSeconds(sleep, "remSleepSeconds")
	sample.AwakeSeconds = durationSeconds(sleep, "awakeSleepSeconds")
	sample.SleepStart = epochMillis(sleep, "sleepStartTimestampGMT")
	sample.SleepEnd = epochMillis(sleep, "sleepEndTimestampGMT")

	sample.Steps = i64(steps, "totalSteps")
	sample.TotalCalories = f64(steps, "totalKilocalories")

	sample.RestingHeartRate = i64(heartRate, "restingHeartRate")
	sample.MinHeartRate = i64(heartRate, "minHeartRate")
	sample.MaxHeartRate = i64(heartRate, "maxHeartRate")
	// Left nil unless the vendor supplies it explicitly; never estimated
	// from min/max.
	sample.AvgHeartRate = i64(heartRate, "averageHeartRate")

	sample.SourceRaw = compactJSON(map[string]any{
		"sleep":      sleep,
		"steps":      steps,
		"heart_rate": heartRate,
	})

	return sample
}
