package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/calm3366/bond-portfolio/internal/model"
)

// EventLogRepository provides data access methods for the event_log table.
type EventLogRepository struct {
	db *sql.DB
}

// NewEventLogRepository creates a new EventLogRepository with the provided database connection.
func NewEventLogRepository(db *sql.DB) *EventLogRepository {
	return &EventLogRepository{db: db}
}

// Insert appends an event. Empty ID and zero timestamp are filled in.
func (r *EventLogRepository) Insert(ctx context.Context, e *model.EventLog) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Level == "" {
		e.Level = model.EventLevelInfo
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (id, timestamp, level, message) VALUES (?, ?, ?, ?)`,
		e.ID, timestampArg(e.Timestamp), e.Level, e.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// List returns events matching the filters.
func (r *EventLogRepository) List(ctx context.Context, f model.EventFilters) ([]model.EventLog, error) {
	var where []string
	var args []any

	if len(f.Levels) > 0 {
		placeholders := make([]string, len(f.Levels))
		for i, level := range f.Levels {
			placeholders[i] = "?"
			args = append(args, level)
		}
		where = append(where, "level IN ("+strings.Join(placeholders, ",")+")")
	}
	if f.StartDate != nil {
		where = append(where, "timestamp >= ?")
		args = append(args, timestampArg(*f.StartDate))
	}
	if f.EndDate != nil {
		where = append(where, "timestamp <= ?")
		args = append(args, timestampArg(*f.EndDate))
	}
	if f.Message != "" {
		where = append(where, "message LIKE ?")
		args = append(args, "%"+f.Message+"%")
	}

	query := `SELECT id, timestamp, level, message FROM event_log`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if f.SortDir == "asc" {
		query += " ORDER BY timestamp ASC, rowid ASC"
	} else {
		query += " ORDER BY timestamp DESC, rowid DESC"
	}
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query event_log table: %w", err)
	}
	defer rows.Close()

	events := []model.EventLog{}
	for rows.Next() {
		var e model.EventLog
		var ts string
		if err := rows.Scan(&e.ID, &ts, &e.Level, &e.Message); err != nil {
			return nil, fmt.Errorf("failed to scan event_log results: %w", err)
		}
		if e.Timestamp, err = ParseTime(ts); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event_log table: %w", err)
	}
	return events, nil
}

// DeleteAll clears the event log and returns the number of removed rows.
func (r *EventLogRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM event_log`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear event log: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
