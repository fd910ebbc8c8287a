package request

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/calm3366/bond-portfolio/internal/model"
)

// CreateEventRequest is the body of POST /api/events.
type CreateEventRequest struct {
	Level   string `json:"level" validate:"omitempty,oneof=info warning error"`
	Message string `json:"message" validate:"required,max=2000"`
}

// ParseEventFilters extracts and validates event log filters from query parameters.
//
// Validation rules:
//   - levels: comma-separated, each one of info, warning, error
//   - start_date/end_date: YYYY-MM-DD or RFC3339
//   - sort_dir: "asc" or "desc" (defaults to "desc")
//   - limit: between 1 and 1000 (defaults to 100)
func ParseEventFilters(levelsParam, startDateParam, endDateParam, messageParam, sortDirParam, limitParam string) (model.EventFilters, error) {
	filters := model.EventFilters{
		Message: strings.TrimSpace(messageParam),
		SortDir: "desc",
		Limit:   100,
	}

	if levelsParam != "" {
		for _, level := range strings.Split(levelsParam, ",") {
			level = strings.TrimSpace(strings.ToLower(level))
			if !model.ValidEventLevels[level] {
				return filters, fmt.Errorf("invalid event level: %s", level)
			}
			filters.Levels = append(filters.Levels, level)
		}
	}

	if startDateParam != "" {
		startTime, err := parseFilterTime(startDateParam)
		if err != nil {
			return filters, fmt.Errorf("invalid start_date format: %w", err)
		}
		filters.StartDate = &startTime
	}

	if endDateParam != "" {
		endTime, err := parseFilterTime(endDateParam)
		if err != nil {
			return filters, fmt.Errorf("invalid end_date format: %w", err)
		}
		filters.EndDate = &endTime
	}

	if filters.StartDate != nil && filters.EndDate != nil && filters.StartDate.After(*filters.EndDate) {
		return filters, fmt.Errorf("start_date must not be after end_date")
	}

	if sortDirParam != "" {
		sortDir := strings.ToLower(sortDirParam)
		if sortDir != "asc" && sortDir != "desc" {
			return filters, fmt.Errorf("invalid sort_dir: must be 'asc' or 'desc'")
		}
		filters.SortDir = sortDir
	}

	if limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil {
			return filters, fmt.Errorf("invalid limit: must be a number")
		}
		if limit < 1 || limit > 1000 {
			return filters, fmt.Errorf("invalid limit: must be between 1 and 1000")
		}
		filters.Limit = limit
	}

	return filters, nil
}

// parseFilterTime accepts YYYY-MM-DD, RFC3339, and RFC3339 with milliseconds.
func parseFilterTime(str string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05.000Z07:00"} {
		if t, err := time.Parse(layout, str); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a date or datetime", str)
}
