package database

import (
	"database/sql"
	"time"
)

// Request represents the single attribution/consultation record kept per
// user. PartnerCode is captured at first contact and never overwritten;
// Name, Phone, and CRMEntityID are filled in once the user completes the
// consultation flow. CRMEntityID stays NULL while a submission is pending.
type Request struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	UserID      int64          `db:"user_id"`
	PartnerCode string         `db:"partner_code"`
	Name        sql.NullString `db:"name"`
	Phone       sql.NullString `db:"phone"`
	CRMEntityID sql.NullString `db:"crm_entity_id"`
}

// Submitted reports whether the consultation request already reached the CRM.
func (r *Request) Submitted() bool {
	return r.CRMEntityID.Valid && r.CRMEntityID.String != ""
}

// HasConsultation reports whether the consultation fields were collected.
func (r *Request) HasConsultation() bool {
	return r.Name.Valid && r.Phone.Valid
}
