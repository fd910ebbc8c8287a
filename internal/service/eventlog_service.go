package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/calm3366/bond-portfolio/internal/model"
	"github.com/calm3366/bond-portfolio/internal/repository"
)

// EventLogService handles the user-visible event log.
type EventLogService struct {
	eventRepo *repository.EventLogRepository
}

// NewEventLogService creates a new EventLogService with the provided repository.
func NewEventLogService(eventRepo *repository.EventLogRepository) *EventLogService {
	return &EventLogService{
		eventRepo: eventRepo,
	}
}

// List returns events matching the filters, newest first unless SortDir is "asc".
func (s *EventLogService) List(ctx context.Context, filters model.EventFilters) ([]model.EventLog, error) {
	return s.eventRepo.List(ctx, filters)
}

// Create records a new event. An empty level defaults to info.
func (s *EventLogService) Create(ctx context.Context, level, message string) (*model.EventLog, error) {
	event := &model.EventLog{
		Level:   strings.ToLower(strings.TrimSpace(level)),
		Message: message,
	}
	if err := s.eventRepo.Insert(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return event, nil
}

// Clear removes every event and returns how many were deleted.
func (s *EventLogService) Clear(ctx context.Context) (int64, error) {
	return s.eventRepo.DeleteAll(ctx)
}
