package model

import "time"

// Event log levels.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// ValidEventLevels contains the accepted event levels.
var ValidEventLevels = map[string]bool{
	EventLevelInfo: true, EventLevelWarning: true, EventLevelError: true,
}

// EventLog is a persisted, user-visible log line.
type EventLog struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// EventFilters narrows an event log listing.
type EventFilters struct {
	Levels    []string
	StartDate *time.Time
	EndDate   *time.Time
	Message   string
	SortDir   string
	Limit     int
}
