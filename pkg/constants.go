package shared

const (
	ProjectID = "annas-app-project" // Can be overridden by env var in main if needed

	TopicSyncCompleted   = "topic-sync-completed"
	TopicImportCompleted = "topic-import-completed"

	CollectionUsers             = "users"
	CollectionVendorCredentials = "vendor_credentials"
	CollectionActivities        = "activities"
	CollectionHealthSamples     = "health_samples"
	CollectionExecutions        = "sync_executions"
)
