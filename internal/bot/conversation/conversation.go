// Package conversation implements the per-user dialog state machine behind
// the bot: partner attribution on first contact, document browsing, and the
// consent-gated consultation flow. State is ephemeral; when a user has no
// in-memory session the machine rehydrates from the request store, so a
// returning user is never asked for their partner code again.
package conversation

import (
	"context"
	"database/sql"
	"log/slog"
	"strconv"
	"strings"

	"github.com/partnerdesk/partnerbot/internal/database"
	"github.com/partnerdesk/partnerbot/internal/documents"
	"github.com/partnerdesk/partnerbot/internal/validate"
)

// State names a position in the dialog.
type State int

const (
	StateAwaitingStart State = iota
	StateMenuReady
	StateAwaitingConsent
	StateAwaitingName
	StateAwaitingPhone
)

// Session is the in-memory dialog state for one user. PartnerCode mirrors
// the stored attribution; Name holds the candidate collected mid-flow.
type Session struct {
	State       State
	PartnerCode string
	Name        string
}

// SessionStore keeps sessions keyed by user. Implementations must be safe
// for concurrent use.
type SessionStore interface {
	Get(userID int64) (Session, bool)
	Put(userID int64, s Session)
	Delete(userID int64)
}

// SubmitRequest is a completed consultation headed for the CRM.
type SubmitRequest struct {
	Title       string
	Name        string
	Phone       string
	PartnerCode string
}

// Submitter sends a consultation to the CRM and returns the created entity id.
type Submitter interface {
	Submit(ctx context.Context, req SubmitRequest) (int64, error)
}

// OutcomeKind names what happened in response to one event.
type OutcomeKind int

const (
	// OutUsage asks the user to start with a partner code.
	OutUsage OutcomeKind = iota
	// OutWelcome greets a newly attributed user.
	OutWelcome
	// OutAlreadyRegistered greets a returning user; their original code stands.
	OutAlreadyRegistered
	// OutCancelled confirms an aborted sub-flow.
	OutCancelled
	// OutDocsUnavailable reports an empty document catalog.
	OutDocsUnavailable
	// OutDocsList carries the catalog for rendering.
	OutDocsList
	// OutDocMissing reports an unknown document id.
	OutDocMissing
	// OutDocument carries one selected document.
	OutDocument
	// OutAskConsent asks for data-processing consent.
	OutAskConsent
	// OutConsentDeclined confirms a declined consent.
	OutConsentDeclined
	// OutAskName asks for the user's name.
	OutAskName
	// OutNameInvalid re-prompts after a bad name.
	OutNameInvalid
	// OutAskPhone asks for the user's phone.
	OutAskPhone
	// OutPhoneInvalid re-prompts after a bad phone.
	OutPhoneInvalid
	// OutSubmitted reports a recorded and CRM-submitted consultation.
	OutSubmitted
	// OutSubmitDeferred reports a recorded consultation whose CRM submission
	// failed and will be retried later.
	OutSubmitDeferred
	// OutUnknown is the fallback for input the current state cannot use.
	OutUnknown
	// OutError reports a storage failure; the accompanying error is non-nil.
	OutError
)

// Outcome is the machine's typed answer to one event. Handlers translate it
// into configured messages and keyboards.
type Outcome struct {
	Kind        OutcomeKind
	PartnerCode string
	Name        string
	Phone       string
	EntityID    int64
	Document    documents.Descriptor
	Documents   []documents.Descriptor
}

// Machine drives the dialog. It owns no storage itself; sessions, durable
// records, CRM submission, and the document catalog are all injected.
type Machine struct {
	sessions  SessionStore
	store     database.Store
	submitter Submitter
	docs      *documents.Catalog
	log       *slog.Logger
}

// NewMachine creates a dialog machine over the given collaborators.
func NewMachine(sessions SessionStore, store database.Store, submitter Submitter, docs *documents.Catalog, log *slog.Logger) *Machine {
	return &Machine{
		sessions:  sessions,
		store:     store,
		submitter: submitter,
		docs:      docs,
		log:       log.With("component", "conversation"),
	}
}

// Start handles the start event with an optional attribution code. The first
// code a user ever sends wins; later starts never overwrite it.
func (m *Machine) Start(ctx context.Context, userID int64, code string) (Outcome, error) {
	sess, err := m.session(ctx, userID)
	if err != nil {
		return Outcome{Kind: OutError}, err
	}

	code = strings.TrimSpace(code)
	if code == "" {
		if sess.State == StateAwaitingStart {
			return Outcome{Kind: OutUsage}, nil
		}
		return Outcome{Kind: OutAlreadyRegistered, PartnerCode: sess.PartnerCode}, nil
	}

	inserted, err := m.store.UpsertAttribution(ctx, userID, code)
	if err != nil {
		return Outcome{Kind: OutError}, err
	}
	if !inserted {
		stored := code
		if rec, err := m.store.GetByUser(ctx, userID); err != nil {
			return Outcome{Kind: OutError}, err
		} else if rec != nil {
			stored = rec.PartnerCode
		}
		m.toMenu(userID, stored)
		return Outcome{Kind: OutAlreadyRegistered, PartnerCode: stored}, nil
	}

	m.log.InfoContext(ctx, "User attributed", "user_id", userID, "partner_code", code)
	m.toMenu(userID, code)
	return Outcome{Kind: OutWelcome, PartnerCode: code}, nil
}

// Cancel aborts any in-progress sub-flow. Collected-but-unsubmitted fields
// are dropped; the stored attribution and any persisted consultation stay.
func (m *Machine) Cancel(ctx context.Context, userID int64) (Outcome, error) {
	sess, err := m.session(ctx, userID)
	if err != nil {
		return Outcome{Kind: OutError}, err
	}

	if sess.State != StateAwaitingStart {
		m.toMenu(userID, sess.PartnerCode)
	}
	return Outcome{Kind: OutCancelled}, nil
}

// Documents lists the catalog. Browsing is stateless request/response and
// never moves the dialog.
func (m *Machine) Documents(ctx context.Context, userID int64) (Outcome, error) {
	if _, err := m.session(ctx, userID); err != nil {
		return Outcome{Kind: OutError}, err
	}

	if m.docs.Empty() {
		return Outcome{Kind: OutDocsUnavailable}, nil
	}
	return Outcome{Kind: OutDocsList, Documents: m.docs.All()}, nil
}

// Document returns one document by id.
func (m *Machine) Document(ctx context.Context, userID int64, docID string) (Outcome, error) {
	if _, err := m.session(ctx, userID); err != nil {
		return Outcome{Kind: OutError}, err
	}

	doc, ok := m.docs.Get(docID)
	if !ok {
		return Outcome{Kind: OutDocMissing}, nil
	}
	return Outcome{Kind: OutDocument, Document: doc}, nil
}

// Consultation opens the consultation sub-flow by asking for consent.
func (m *Machine) Consultation(ctx context.Context, userID int64) (Outcome, error) {
	sess, err := m.session(ctx, userID)
	if err != nil {
		return Outcome{Kind: OutError}, err
	}

	if sess.State == StateAwaitingStart {
		return Outcome{Kind: OutUsage}, nil
	}

	sess.State = StateAwaitingConsent
	sess.Name = ""
	m.sessions.Put(userID, sess)
	return Outcome{Kind: OutAskConsent}, nil
}

// Consent records the consent decision. No submission path exists that
// bypasses an affirmative answer here.
func (m *Machine) Consent(ctx context.Context, userID int64, yes bool) (Outcome, error) {
	sess, err := m.session(ctx, userID)
	if err != nil {
		return Outcome{Kind: OutError}, err
	}

	if sess.State != StateAwaitingConsent {
		return Outcome{Kind: OutUnknown}, nil
	}

	if !yes {
		m.toMenu(userID, sess.PartnerCode)
		return Outcome{Kind: OutConsentDeclined}, nil
	}

	sess.State = StateAwaitingName
	m.sessions.Put(userID, sess)
	return Outcome{Kind: OutAskName}, nil
}

// Input dispatches free-text input on the current state.
func (m *Machine) Input(ctx context.Context, userID int64, text string) (Outcome, error) {
	sess, err := m.session(ctx, userID)
	if err != nil {
		return Outcome{Kind: OutError}, err
	}

	switch sess.State {
	case StateAwaitingName:
		return m.inputName(userID, sess, text)
	case StateAwaitingPhone:
		return m.inputPhone(ctx, userID, sess, text)
	case StateAwaitingStart:
		return Outcome{Kind: OutUsage}, nil
	default:
		return Outcome{Kind: OutUnknown}, nil
	}
}

func (m *Machine) inputName(userID int64, sess Session, text string) (Outcome, error) {
	name := strings.TrimSpace(text)
	if !validate.ValidName(name) {
		return Outcome{Kind: OutNameInvalid}, nil
	}

	sess.Name = name
	sess.State = StateAwaitingPhone
	m.sessions.Put(userID, sess)
	return Outcome{Kind: OutAskPhone, Name: name}, nil
}

func (m *Machine) inputPhone(ctx context.Context, userID int64, sess Session, text string) (Outcome, error) {
	phone := validate.NormalizePhone(text)
	if !validate.ValidPhone(phone) {
		return Outcome{Kind: OutPhoneInvalid}, nil
	}

	entityID, submitErr := m.submitter.Submit(ctx, SubmitRequest{
		Title:       "Консультация: " + sess.Name,
		Name:        sess.Name,
		Phone:       phone,
		PartnerCode: sess.PartnerCode,
	})

	var crmEntityID sql.NullString
	if submitErr == nil {
		crmEntityID = sql.NullString{String: strconv.FormatInt(entityID, 10), Valid: true}
	} else {
		m.log.WarnContext(ctx, "CRM submission failed, keeping request for retry",
			"user_id", userID, "error", submitErr)
	}

	// The collected name and phone are persisted regardless of the CRM
	// outcome; a failed submission is retried later without re-collection.
	if err := m.store.UpsertConsultation(ctx, userID, sess.Name, phone, crmEntityID); err != nil {
		return Outcome{Kind: OutError}, err
	}

	name := sess.Name
	m.toMenu(userID, sess.PartnerCode)

	if submitErr != nil {
		return Outcome{Kind: OutSubmitDeferred, Name: name, Phone: phone}, nil
	}
	m.log.InfoContext(ctx, "Consultation submitted",
		"user_id", userID, "entity_id", entityID)
	return Outcome{Kind: OutSubmitted, Name: name, Phone: phone, EntityID: entityID}, nil
}

// session returns the user's session, rehydrating from the request store
// when no in-memory state exists.
func (m *Machine) session(ctx context.Context, userID int64) (Session, error) {
	if sess, ok := m.sessions.Get(userID); ok {
		return sess, nil
	}

	rec, err := m.store.GetByUser(ctx, userID)
	if err != nil {
		return Session{}, err
	}

	sess := Session{State: StateAwaitingStart}
	if rec != nil {
		sess = Session{State: StateMenuReady, PartnerCode: rec.PartnerCode}
		m.log.DebugContext(ctx, "Session rehydrated from store", "user_id", userID)
	}
	m.sessions.Put(userID, sess)
	return sess, nil
}

func (m *Machine) toMenu(userID int64, partnerCode string) {
	m.sessions.Put(userID, Session{State: StateMenuReady, PartnerCode: partnerCode})
}
