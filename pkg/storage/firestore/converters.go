package firestore

import (
	"time"

	"github.com/dylannguyen2/annas-app-sub001/pkg/domain"
)

// --- read helpers (Firestore hands back int64/float64/time.Time) ---

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getBool(m map[string]interface{}, key string) bool {
	if v, ok := m[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func getTime(m map[string]interface{}, key string) time.Time {
	if v, ok := m[key]; ok {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	return time.Time{}
}

func getTimePtr(m map[string]interface{}, key string) *time.Time {
	if v, ok := m[key]; ok {
		if t, ok := v.(time.Time); ok {
			return &t
		}
	}
	return nil
}

func getIntPtr(m map[string]interface{}, key string) *int {
	switch v := m[key].(type) {
	case int64:
		n := int(v)
		return &n
	case float64:
		n := int(v)
		return &n
	}
	return nil
}

func getFloatPtr(m map[string]interface{}, key string) *float64 {
	switch v := m[key].(type) {
	case float64:
		f := v
		return &f
	case int64:
		f := float64(v)
		return &f
	}
	return nil
}

func getStringPtr(m map[string]interface{}, key string) *string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return &s
		}
	}
	return nil
}

// --- write helpers (nil pointers are omitted, not stored as nulls) ---

func putInt(m map[string]interface{}, key string, v *int) {
	if v != nil {
		m[key] = *v
	}
}

func putFloat(m map[string]interface{}, key string, v *float64) {
	if v != nil {
		m[key] = *v
	}
}

func putString(m map[string]interface{}, key string, v *string) {
	if v != nil && *v != "" {
		m[key] = *v
	}
}

func putTime(m map[string]interface{}, key string, v *time.Time) {
	if v != nil {
		m[key] = *v
	}
}

// --- Credential ---

func CredentialToFirestore(c *domain.Credential) map[string]interface{} {
	m := map[string]interface{}{
		"owner_id":         c.OwnerID,
		"encrypted_oauth1": c.EncryptedOAuth1,
		"encrypted_oauth2": c.EncryptedOAuth2,
	}
	putTime(m, "last_sync_at", c.LastSyncAt)
	return m
}

func FirestoreToCredential(m map[string]interface{}) *domain.Credential {
	return &domain.Credential{
		OwnerID:         getString(m, "owner_id"),
		EncryptedOAuth1: getString(m, "encrypted_oauth1"),
		EncryptedOAuth2: getString(m, "encrypted_oauth2"),
		LastSyncAt:      getTimePtr(m, "last_sync_at"),
	}
}

// --- Activity ---

func ActivityToFirestore(a *domain.Activity) map[string]interface{} {
	m := map[string]interface{}{
		"owner_id":             a.OwnerID,
		"external_activity_id": a.ExternalActivityID,
		"name":                 a.Name,
		"type":                 a.Type,
		"start_time":           a.StartTime,
		"favorite":             a.Favorite,
	}

	putInt(m, "total_duration_seconds", a.TotalDurationSeconds)
	putInt(m, "moving_duration_seconds", a.MovingDurationSeconds)
	putInt(m, "elapsed_duration_seconds", a.ElapsedDurationSeconds)

	putFloat(m, "distance_meters", a.DistanceMeters)
	putFloat(m, "calories", a.Calories)

	putInt(m, "avg_heart_rate", a.AvgHeartRate)
	putInt(m, "max_heart_rate", a.MaxHeartRate)

	putFloat(m, "avg_speed_mps", a.AvgSpeedMetersPerSecond)
	putFloat(m, "max_speed_mps", a.MaxSpeedMetersPerSecond)

	putFloat(m, "elevation_gain_meters", a.ElevationGainMeters)
	putFloat(m, "elevation_loss_meters", a.ElevationLossMeters)

	putInt(m, "steps", a.Steps)
	putFloat(m, "avg_cadence", a.AvgCadence)
	putFloat(m, "max_cadence", a.MaxCadence)
	putFloat(m, "avg_power", a.AvgPower)
	putFloat(m, "max_power", a.MaxPower)
	putInt(m, "total_sets", a.TotalSets)
	putInt(m, "total_reps", a.TotalReps)

	putString(m, "location_name", a.LocationName)
	if a.SourceRaw != "" {
		m["source_raw"] = a.SourceRaw
	}
	return m
}

func FirestoreToActivity(m map[string]interface{}) *domain.Activity {
	return &domain.Activity{
		OwnerID:            getString(m, "owner_id"),
		ExternalActivityID: getString(m, "external_activity_id"),
		Name:               getString(m, "name"),
		Type:               getString(m, "type"),
		StartTime:          getTime(m, "start_time"),

		TotalDurationSeconds:   getIntPtr(m, "total_duration_seconds"),
		MovingDurationSeconds:  getIntPtr(m, "moving_duration_seconds"),
		ElapsedDurationSeconds: getIntPtr(m, "elapsed_duration_seconds"),

		DistanceMeters: getFloatPtr(m, "distance_meters"),
		Calories:       getFloatPtr(m, "calories"),

		AvgHeartRate: getIntPtr(m, "avg_heart_rate"),
		MaxHeartRate: getIntPtr(m, "max_heart_rate"),

		AvgSpeedMetersPerSecond: getFloatPtr(m, "avg_speed_mps"),
		MaxSpeedMetersPerSecond: getFloatPtr(m, "max_speed_mps"),

		ElevationGainMeters: getFloatPtr(m, "elevation_gain_meters"),
		ElevationLossMeters: getFloatPtr(m, "elevation_loss_meters"),

		Steps:      getIntPtr(m, "steps"),
		AvgCadence: getFloatPtr(m, "avg_cadence"),
		MaxCadence: getFloatPtr(m, "max_cadence"),
		AvgPower:   getFloatPtr(m, "avg_power"),
		MaxPower:   getFloatPtr(m, "max_power"),
		TotalSets:  getIntPtr(m, "total_sets"),
		TotalReps:  getIntPtr(m, "total_reps"),

		LocationName: getStringPtr(m, "location_name"),
		Favorite:     getBool(m, "favorite"),
		SourceRaw:    getString(m, "source_raw"),
	}
}

// --- HealthSample ---

func HealthSampleToFirestore(s *domain.HealthSample) map[string]interface{} {
	m := map[string]interface{}{
		"owner_id": s.OwnerID,
		"date":     s.Date,
	}

	putInt(m, "steps", s.Steps)

	putInt(m, "sleep_duration_seconds", s.SleepDurationSeconds)
	putInt(m, "deep_sleep_seconds", s.DeepSleepSeconds)
	putInt(m, "light_sleep_seconds", s.LightSleepSeconds)
	putInt(m, "rem_sleep_seconds", s.RemSleepSeconds)
	putInt(m, "awake_seconds", s.AwakeSeconds)
	putTime(m, "sleep_start", s.SleepStart)
	putTime(m, "sleep_end", s.SleepEnd)

	putInt(m, "resting_heart_rate", s.RestingHeartRate)
	putInt(m, "min_heart_rate", s.MinHeartRate)
	putInt(m, "max_heart_rate", s.MaxHeartRate)
	putInt(m, "avg_heart_rate", s.AvgHeartRate)

	putFloat(m, "total_calories", s.TotalCalories)
	if s.SourceRaw != "" {
		m["source_raw"] = s.SourceRaw
	}
	return m
}

func FirestoreToHealthSample(m map[string]interface{}) *domain.HealthSample {
	return &domain.HealthSample{
		OwnerID: getString(m, "owner_id"),
		Date:    getString(m, "date"),

		Steps: getIntPtr(m, "steps"),

		SleepDurationSeconds: getIntPtr(m, "sleep_duration_seconds"),
		DeepSleepSeconds:     getIntPtr(m, "deep_sleep_seconds"),
		LightSleepSeconds:    getIntPtr(m, "light_sleep_seconds"),
		RemSleepSeconds:      getIntPtr(m, "rem_sleep_seconds"),
		AwakeSeconds:         getIntPtr(m, "awake_seconds"),
		SleepStart:           getTimePtr(m, "sleep_start"),
		SleepEnd:             getTimePtr(m, "sleep_end"),

		RestingHeartRate: getIntPtr(m, "resting_heart_rate"),
		MinHeartRate:     getIntPtr(m, "min_heart_rate"),
		MaxHeartRate:     getIntPtr(m, "max_heart_rate"),
		AvgHeartRate:     getIntPtr(m, "avg_heart_rate"),

		TotalCalories: getFloatPtr(m, "total_calories"),
		SourceRaw:     getString(m, "source_raw"),
	}
}

// --- SyncExecution ---

func ExecutionToFirestore(e *domain.SyncExecution) map[string]interface{} {
	m := map[string]interface{}{
		"execution_id": e.ExecutionID,
		"service":      e.Service,
		"trigger_type": e.TriggerType,
		"status":       e.Status,
		"started_at":   e.StartedAt,
	}
	if e.OwnerID != "" {
		m["owner_id"] = e.OwnerID
	}
	if e.Error != "" {
		m["error"] = e.Error
	}
	if len(e.Outputs) > 0 {
		m["outputs"] = e.Outputs
	}
	putTime(m, "finished_at", e.FinishedAt)
	return m
}

func FirestoreToExecution(m map[string]interface{}) *domain.SyncExecution {
	e := &domain.SyncExecution{
		ExecutionID: getString(m, "execution_id"),
		Service:     getString(m, "service"),
		OwnerID:     getString(m, "owner_id"),
		TriggerType: getString(m, "trigger_type"),
		Status:      getString(m, "status"),
		Error:       getString(m, "error"),
		StartedAt:   getTime(m, "started_at"),
		FinishedAt:  getTimePtr(m, "finished_at"),
	}
	if v, ok := m["outputs"].(map[string]interface{}); ok {
		e.Outputs = v
	}
	return e
}
