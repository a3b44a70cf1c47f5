package bitrix

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// PartnerKind identifies which CRM entity represents a partner.
type PartnerKind string

const (
	PartnerContact PartnerKind = "contact"
	PartnerCompany PartnerKind = "company"
)

// PartnerRef is a resolved CRM partner identity.
type PartnerRef struct {
	Kind PartnerKind
	ID   int64
}

// BindingValue formats the reference the way Bitrix multi-entity fields
// expect: C_<id> for contacts, CO_<id> for companies.
func (r PartnerRef) BindingValue() string {
	if r.Kind == PartnerCompany {
		return fmt.Sprintf("CO_%d", r.ID)
	}
	return fmt.Sprintf("C_%d", r.ID)
}

// ResolvePartner finds the CRM entity carrying the given partner code.
// Contacts are searched first, companies second; the first match wins.
// Absence in both is nil, nil rather than an error.
func (c *Client) ResolvePartner(ctx context.Context, code string) (*PartnerRef, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}

	id, err := c.firstListID(ctx, "crm.contact.list", c.fields.ContactCode, code)
	if err != nil {
		return nil, err
	}
	if id > 0 {
		c.log.DebugContext(ctx, "Partner resolved as contact", "partner_code", code, "contact_id", id)
		return &PartnerRef{Kind: PartnerContact, ID: id}, nil
	}

	id, err = c.firstListID(ctx, "crm.company.list", c.fields.CompanyCode, code)
	if err != nil {
		return nil, err
	}
	if id > 0 {
		c.log.DebugContext(ctx, "Partner resolved as company", "partner_code", code, "company_id", id)
		return &PartnerRef{Kind: PartnerCompany, ID: id}, nil
	}

	c.log.DebugContext(ctx, "Partner not found", "partner_code", code)
	return nil, nil
}

// firstListID runs a crm.*.list call filtered on one field and returns the
// ID of the first row, or 0 when the result is empty.
func (c *Client) firstListID(ctx context.Context, method, field, value string) (int64, error) {
	raw, err := c.call(ctx, method, map[string]any{
		"filter": map[string]any{field: value},
		"select": []string{"ID"},
	})
	if err != nil {
		return 0, err
	}

	var rows []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return 0, &CallError{Method: method, Message: "unexpected list response shape"}
	}
	if len(rows) == 0 {
		return 0, nil
	}

	id, ok := rowID(rows[0])
	if !ok {
		return 0, &CallError{Method: method, Message: "list row without usable ID"}
	}
	return id, nil
}

// rowID reads the ID of a list row; Bitrix serializes it as a string.
func rowID(row map[string]json.RawMessage) (int64, bool) {
	raw, ok := row["ID"]
	if !ok {
		return 0, false
	}

	if s := stringField(raw); s != "" {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil && id > 0 {
			return id, true
		}
		return 0, false
	}

	return entityID(raw)
}
