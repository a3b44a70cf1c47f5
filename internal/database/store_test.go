package database_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/partnerdesk/partnerbot/internal/database"
)

func newTestStore(t *testing.T) database.Store {
	t.Helper()

	db, err := database.NewDB(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	return database.NewStore(db, nil)
}

func TestUpsertAttributionFirstWriteWins(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	inserted, err := store.UpsertAttribution(ctx, 100, "CODE_A")
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if !inserted {
		t.Fatal("first upsert should report inserted")
	}

	inserted, err = store.UpsertAttribution(ctx, 100, "CODE_B")
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if inserted {
		t.Error("second upsert should be a no-op")
	}

	req, err := store.GetByUser(ctx, 100)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if req == nil {
		t.Fatal("expected a record")
	}
	if req.PartnerCode != "CODE_A" {
		t.Errorf("partner code = %q, want first-captured %q", req.PartnerCode, "CODE_A")
	}
}

func TestUpsertConsultation(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.UpsertAttribution(ctx, 200, "REF42"); err != nil {
		t.Fatalf("attribution failed: %v", err)
	}

	// Submission failed: record retained without a CRM entity id.
	err := store.UpsertConsultation(ctx, 200, "Ann Lee", "+15551234567", sql.NullString{})
	if err != nil {
		t.Fatalf("consultation upsert failed: %v", err)
	}

	req, err := store.GetByUser(ctx, 200)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !req.HasConsultation() {
		t.Fatal("consultation fields should be set")
	}
	if req.Submitted() {
		t.Error("record should not be marked submitted")
	}
	if req.Name.String != "Ann Lee" || req.Phone.String != "+15551234567" {
		t.Errorf("unexpected consultation fields: %q %q", req.Name.String, req.Phone.String)
	}
	if req.PartnerCode != "REF42" {
		t.Errorf("partner code must survive consultation update, got %q", req.PartnerCode)
	}

	// Retry succeeded later.
	if err := store.MarkSubmitted(ctx, 200, "777"); err != nil {
		t.Fatalf("mark submitted failed: %v", err)
	}
	req, _ = store.GetByUser(ctx, 200)
	if !req.Submitted() || req.CRMEntityID.String != "777" {
		t.Errorf("crm_entity_id = %+v, want 777", req.CRMEntityID)
	}

	// A second mark must not overwrite the recorded entity id.
	if err := store.MarkSubmitted(ctx, 200, "888"); err != nil {
		t.Fatalf("second mark submitted failed: %v", err)
	}
	req, _ = store.GetByUser(ctx, 200)
	if req.CRMEntityID.String != "777" {
		t.Errorf("crm_entity_id overwritten to %q", req.CRMEntityID.String)
	}
}

func TestUpsertConsultationWithoutAttribution(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	err := store.UpsertConsultation(context.Background(), 300, "Ann", "+15551234567", sql.NullString{})
	if err == nil {
		t.Fatal("expected error for consultation without attribution")
	}
}

func TestGetByUserNotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	req, err := store.GetByUser(context.Background(), 999)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req != nil {
		t.Errorf("expected nil for missing user, got %+v", req)
	}
}

func TestListPendingSubmissions(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	// One pending, one submitted, one attribution-only.
	if _, err := store.UpsertAttribution(ctx, 1, "A"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.UpsertAttribution(ctx, 2, "B"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.UpsertAttribution(ctx, 3, "C"); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertConsultation(ctx, 1, "Pending User", "+15551230001", sql.NullString{}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertConsultation(ctx, 2, "Done User", "+15551230002", sql.NullString{String: "55", Valid: true}); err != nil {
		t.Fatal(err)
	}

	pending, err := store.ListPendingSubmissions(ctx, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending count = %d, want 1", len(pending))
	}
	if pending[0].UserID != 1 {
		t.Errorf("pending user = %d, want 1", pending[0].UserID)
	}
}

func TestConcurrentStartsKeepOneRecord(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	codes := []string{"FIRST", "SECOND"}
	insertedCount := make([]bool, len(codes))

	var wg sync.WaitGroup
	for i, code := range codes {
		wg.Add(1)
		go func(i int, code string) {
			defer wg.Done()
			inserted, err := store.UpsertAttribution(ctx, 500, code)
			if err != nil {
				t.Errorf("concurrent upsert failed: %v", err)
				return
			}
			insertedCount[i] = inserted
		}(i, code)
	}
	wg.Wait()

	wins := 0
	for _, ok := range insertedCount {
		if ok {
			wins++
		}
	}
	if wins != 1 {
		t.Errorf("exactly one concurrent start must insert, got %d", wins)
	}

	req, err := store.GetByUser(ctx, 500)
	if err != nil || req == nil {
		t.Fatalf("get failed: %v, req=%v", err, req)
	}
	if req.PartnerCode != "FIRST" && req.PartnerCode != "SECOND" {
		t.Errorf("stored code %q is neither submitted value", req.PartnerCode)
	}
}
