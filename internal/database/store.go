package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNoAttribution is returned when a consultation update targets a user
// without an attribution record.
var ErrNoAttribution = errors.New("no attribution record for user")

// Store defines the interface for request persistence.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// UpsertAttribution records the partner code for a user if no record
	// exists yet. The first captured code wins; a later call for the same
	// user is a no-op and reports inserted=false.
	UpsertAttribution(ctx context.Context, userID int64, partnerCode string) (inserted bool, err error)

	// UpsertConsultation sets the consultation fields on the user's record,
	// replacing any prior name/phone/crm_entity_id.
	UpsertConsultation(ctx context.Context, userID int64, name, phone string, crmEntityID sql.NullString) error

	// MarkSubmitted sets crm_entity_id on a record that does not have one yet.
	MarkSubmitted(ctx context.Context, userID int64, crmEntityID string) error

	// GetByUser retrieves the record for a user. Returns nil, nil if not found.
	GetByUser(ctx context.Context, userID int64) (*Request, error)

	// ListPendingSubmissions retrieves records whose consultation fields are
	// set but which never reached the CRM.
	ListPendingSubmissions(ctx context.Context, limit int) ([]*Request, error)
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertAttribution inserts an attribution row unless one already exists.
// The unique index on user_id makes concurrent first writes race safely:
// exactly one insert succeeds, every other call observes the conflict.
func (s *sqlxStore) UpsertAttribution(ctx context.Context, userID int64, partnerCode string) (bool, error) {
	if userID == 0 {
		return false, fmt.Errorf("user_id cannot be zero")
	}
	if partnerCode == "" {
		return false, fmt.Errorf("partner_code cannot be empty")
	}

	now := time.Now().UTC()
	query := `
        INSERT INTO requests (user_id, partner_code, created_at, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(user_id) DO NOTHING;
    `

	result, err := s.db.ExecContext(ctx, query, userID, partnerCode, now, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving attribution", "user_id", userID, "error", err)
		return false, fmt.Errorf("failed to save attribution for user %d: %w", userID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not get affected row count for attribution",
			"user_id", userID, "error", err)
		return false, nil
	}

	inserted := affected == 1
	if inserted {
		s.logger.DebugContext(ctx, "Attribution recorded",
			"user_id", userID, "partner_code", partnerCode)
	} else {
		s.logger.DebugContext(ctx, "Attribution already exists, keeping first code", "user_id", userID)
	}
	return inserted, nil
}

// UpsertConsultation replaces the consultation fields of an existing record.
// The partner code is left untouched.
func (s *sqlxStore) UpsertConsultation(ctx context.Context, userID int64, name, phone string, crmEntityID sql.NullString) error {
	if userID == 0 {
		return fmt.Errorf("user_id cannot be zero")
	}
	if name == "" || phone == "" {
		return fmt.Errorf("consultation requires name and phone")
	}

	query := `
        UPDATE requests
        SET name = ?, phone = ?, crm_entity_id = ?, updated_at = ?
        WHERE user_id = ?;
    `

	result, err := s.db.ExecContext(ctx, query, name, phone, crmEntityID, time.Now().UTC(), userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving consultation", "user_id", userID, "error", err)
		return fmt.Errorf("failed to save consultation for user %d: %w", userID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		s.logger.WarnContext(ctx, "Consultation update hit no attribution record", "user_id", userID)
		return fmt.Errorf("user %d: %w", userID, ErrNoAttribution)
	}

	s.logger.DebugContext(ctx, "Consultation saved",
		"user_id", userID, "submitted", crmEntityID.Valid)
	return nil
}

// MarkSubmitted records the CRM entity id for a pending consultation.
// Records that already carry an entity id are left alone.
func (s *sqlxStore) MarkSubmitted(ctx context.Context, userID int64, crmEntityID string) error {
	if userID == 0 {
		return fmt.Errorf("user_id cannot be zero")
	}
	if crmEntityID == "" {
		return fmt.Errorf("crm_entity_id cannot be empty")
	}

	query := `
        UPDATE requests
        SET crm_entity_id = ?, updated_at = ?
        WHERE user_id = ? AND crm_entity_id IS NULL;
    `

	if _, err := s.db.ExecContext(ctx, query, crmEntityID, time.Now().UTC(), userID); err != nil {
		s.logger.ErrorContext(ctx, "Error marking request submitted", "user_id", userID, "error", err)
		return fmt.Errorf("failed to mark request submitted for user %d: %w", userID, err)
	}

	s.logger.DebugContext(ctx, "Request marked submitted", "user_id", userID, "crm_entity_id", crmEntityID)
	return nil
}

// GetByUser retrieves the record for a user. Returns nil, nil if not found.
func (s *sqlxStore) GetByUser(ctx context.Context, userID int64) (*Request, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user_id cannot be zero")
	}

	var request Request
	query := `
        SELECT id, created_at, updated_at, user_id, partner_code, name, phone, crm_entity_id
        FROM requests
        WHERE user_id = ?;
    `

	err := s.db.GetContext(ctx, &request, query, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No request found", "user_id", userID)
		return nil, nil

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting request by user", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get request for user %d: %w", userID, err)
	}

	return &request, nil
}

// ListPendingSubmissions retrieves consultation requests that never reached
// the CRM, oldest first.
func (s *sqlxStore) ListPendingSubmissions(ctx context.Context, limit int) ([]*Request, error) {
	if limit <= 0 {
		limit = 20
	}

	var requests []*Request
	query := `
        SELECT id, created_at, updated_at, user_id, partner_code, name, phone, crm_entity_id
        FROM requests
        WHERE name IS NOT NULL AND phone IS NOT NULL AND crm_entity_id IS NULL
        ORDER BY updated_at ASC
        LIMIT ?;
    `

	if err := s.db.SelectContext(ctx, &requests, query, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error listing pending submissions", "error", err)
		return nil, fmt.Errorf("failed to list pending submissions: %w", err)
	}

	s.logger.DebugContext(ctx, "Fetched pending submissions", "count", len(requests))
	return requests, nil
}
