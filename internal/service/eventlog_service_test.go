package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/calm3366/bond-portfolio/internal/model"
	"github.com/calm3366/bond-portfolio/internal/testutil"
)

func TestEventLogService(t *testing.T) {
	t.Run("creates and lists newest first", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestEventLogService(t, db)
		base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
		testutil.CreateEvent(t, db, model.EventLevelInfo, "first", base)
		testutil.CreateEvent(t, db, model.EventLevelError, "second", base.Add(time.Hour))

		created, err := svc.Create(context.Background(), " WARNING ", "third")
		if err != nil {
			t.Fatalf("Create() returned unexpected error: %v", err)
		}
		if created.Level != model.EventLevelWarning {
			t.Errorf("Expected level normalised to warning, got %q", created.Level)
		}

		events, err := svc.List(context.Background(), model.EventFilters{Limit: 10})
		if err != nil {
			t.Fatalf("List() returned unexpected error: %v", err)
		}
		if len(events) != 3 || events[0].Message != "third" || events[2].Message != "first" {
			t.Errorf("Expected third, second, first; got %+v", events)
		}
	})

	t.Run("filters by level and message", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestEventLogService(t, db)
		now := time.Now().UTC()
		testutil.CreateEvent(t, db, model.EventLevelInfo, "bond RU000A1 added", now)
		testutil.CreateEvent(t, db, model.EventLevelWarning, "bond RU000A1 is stale", now)
		testutil.CreateEvent(t, db, model.EventLevelWarning, "refresh finished", now)

		events, err := svc.List(context.Background(), model.EventFilters{
			Levels:  []string{model.EventLevelWarning},
			Message: "RU000A1",
		})
		if err != nil {
			t.Fatalf("List() returned unexpected error: %v", err)
		}
		if len(events) != 1 || events[0].Message != "bond RU000A1 is stale" {
			t.Errorf("Expected only the stale event, got %+v", events)
		}
	})

	t.Run("clear removes everything", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestEventLogService(t, db)
		testutil.CreateEvent(t, db, model.EventLevelInfo, "a", time.Now())
		testutil.CreateEvent(t, db, model.EventLevelInfo, "b", time.Now())

		n, err := svc.Clear(context.Background())
		if err != nil {
			t.Fatalf("Clear() returned unexpected error: %v", err)
		}
		if n != 2 {
			t.Errorf("Expected 2 removed, got %d", n)
		}
		events, _ := svc.List(context.Background(), model.EventFilters{})
		if len(events) != 0 {
			t.Errorf("Expected empty log, got %d events", len(events))
		}
	})
}

func TestSystemService(t *testing.T) {
	t.Run("reports healthy database", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSystemService(t, db)

		if err := svc.CheckHealth(); err != nil {
			t.Errorf("CheckHealth() returned unexpected error: %v", err)
		}
	})

	t.Run("reports migrated schema", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSystemService(t, db)

		info, err := svc.CheckVersion()
		if err != nil {
			t.Fatalf("CheckVersion() returned unexpected error: %v", err)
		}
		if info.DbVersion != "1" {
			t.Errorf("Expected schema version 1, got %q", info.DbVersion)
		}
		if info.MigrationNeeded {
			t.Errorf("Expected no pending migration, got %v", info.MigrationMessage)
		}
		if info.AppVersion == "" {
			t.Error("Expected app version")
		}
	})

	t.Run("reports unhealthy closed database", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSystemService(t, db)
		db.Close()

		if err := svc.CheckHealth(); err == nil {
			t.Error("Expected error for closed database")
		}
	})
}
