package tasks_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/partnerdesk/partnerbot/internal/bot/conversation"
	"github.com/partnerdesk/partnerbot/internal/bot/tasks"
	"github.com/partnerdesk/partnerbot/internal/database"
	"github.com/partnerdesk/partnerbot/internal/logger"
)

type fakeSubmitter struct {
	requests []conversation.SubmitRequest
	entityID int64
	err      error
}

func (f *fakeSubmitter) Submit(_ context.Context, req conversation.SubmitRequest) (int64, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return 0, f.err
	}
	return f.entityID, nil
}

func newTask(t *testing.T, submitter *fakeSubmitter) (tasks.ScheduledTaskFunc, database.Store) {
	t.Helper()

	db, err := database.NewDB(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })
	store := database.NewStore(db, nil)

	deps := tasks.TaskDeps{
		Logger:    logger.NewLogger("error", false),
		Store:     store,
		Submitter: submitter,
	}
	task := tasks.RegisterAllTasks(deps)["consultation_resubmit"]
	if task == nil {
		t.Fatal("consultation_resubmit task not registered")
	}
	return task, store
}

func TestResubmitPendingRequests(t *testing.T) {
	t.Parallel()

	submitter := &fakeSubmitter{entityID: 555}
	task, store := newTask(t, submitter)
	ctx := context.Background()

	if _, err := store.UpsertAttribution(ctx, 10, "REF"); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertConsultation(ctx, 10, "Ann Lee", "+15551234567", sql.NullString{}); err != nil {
		t.Fatal(err)
	}

	if err := task(ctx); err != nil {
		t.Fatalf("task failed: %v", err)
	}

	if len(submitter.requests) != 1 {
		t.Fatalf("submit called %d times, want 1", len(submitter.requests))
	}
	if submitter.requests[0].PartnerCode != "REF" {
		t.Errorf("unexpected submit request: %+v", submitter.requests[0])
	}

	rec, err := store.GetByUser(ctx, 10)
	if err != nil || rec == nil {
		t.Fatalf("record lookup failed: %v", err)
	}
	if !rec.Submitted() || rec.CRMEntityID.String != "555" {
		t.Errorf("record should now carry the CRM entity id, got %+v", rec)
	}

	// A second run finds nothing pending.
	if err := task(ctx); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if len(submitter.requests) != 1 {
		t.Errorf("submitted record must not be retried, submit count = %d", len(submitter.requests))
	}
}

func TestResubmitKeepsPendingOnFailure(t *testing.T) {
	t.Parallel()

	submitter := &fakeSubmitter{err: errors.New("crm down")}
	task, store := newTask(t, submitter)
	ctx := context.Background()

	if _, err := store.UpsertAttribution(ctx, 11, "REF"); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertConsultation(ctx, 11, "Ann", "+15551234567", sql.NullString{}); err != nil {
		t.Fatal(err)
	}

	if err := task(ctx); err == nil {
		t.Fatal("expected the submission failure to surface")
	}

	rec, err := store.GetByUser(ctx, 11)
	if err != nil || rec == nil {
		t.Fatalf("record lookup failed: %v", err)
	}
	if rec.Submitted() {
		t.Error("failed resubmission must leave the record pending")
	}
}
