package model

// VersionInfo reports the build, the schema state and which optional
// subsystems (scheduler, notifications) are switched on.
type VersionInfo struct {
	AppVersion       string          `json:"app_version"`
	DbVersion        string          `json:"db_version"`
	LatestDbVersion  string          `json:"latest_db_version"`
	Features         map[string]bool `json:"features"`
	MigrationNeeded  bool            `json:"migration_needed"`
	MigrationMessage *string         `json:"migration_message,omitempty"`
}
