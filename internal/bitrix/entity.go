package bitrix

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// NewEntity carries the data for a consultation record headed to the CRM.
type NewEntity struct {
	Title       string
	Name        string
	Phone       string
	PartnerCode string
}

// CreateEntity creates a CRM record of the requested kind. Leads and deals
// have different partner linkage mechanics and keep separate code paths.
func (c *Client) CreateEntity(ctx context.Context, kind EntityKind, e NewEntity) (int64, error) {
	switch kind {
	case EntityDeal:
		return c.CreateDeal(ctx, e)
	case EntityLead:
		return c.CreateLead(ctx, e)
	default:
		return 0, fmt.Errorf("unknown entity kind %q", kind)
	}
}

// CreateLead creates a lead carrying the client's name and phone directly.
// The partner is linked through the lead's multi-entity reference field
// using the resolved partner; a missing partner is logged, not fatal.
func (c *Client) CreateLead(ctx context.Context, e NewEntity) (int64, error) {
	partner, err := c.ResolvePartner(ctx, e.PartnerCode)
	if err != nil {
		c.log.WarnContext(ctx, "Partner lookup failed, creating lead without binding",
			"partner_code", e.PartnerCode, "error", err)
		partner = nil
	} else if partner == nil {
		c.log.WarnContext(ctx, "No partner matches code", "partner_code", e.PartnerCode)
	}

	fields := map[string]any{
		"TITLE":     e.Title,
		"NAME":      e.Name,
		"SOURCE_ID": "TELEGRAM_BOT",
		"STATUS_ID": "NEW",
	}
	if e.Phone != "" {
		fields["PHONE"] = []map[string]string{{"VALUE": e.Phone, "VALUE_TYPE": "WORK"}}
	}
	if partner != nil {
		fields[c.fields.LeadPartnerRef] = partner.BindingValue()
	}

	raw, err := c.call(ctx, "crm.lead.add", map[string]any{"fields": fields})
	if err != nil {
		return 0, err
	}
	id, ok := entityID(raw)
	if !ok {
		return 0, &CallError{Method: "crm.lead.add", Message: fmt.Sprintf("unexpected create response: %s", raw)}
	}

	c.log.InfoContext(ctx, "Lead created", "lead_id", id, "partner_code", e.PartnerCode)
	return id, nil
}

// CreateDeal creates a deal linked to a client contact. The contact is
// looked up by exact name+phone and created when absent; the raw partner
// code goes into the deal's partner-code field.
func (c *Client) CreateDeal(ctx context.Context, e NewEntity) (int64, error) {
	contactID, err := c.findContact(ctx, e.Name, e.Phone)
	if err != nil {
		return 0, err
	}
	if contactID == 0 {
		contactID, err = c.createContact(ctx, e.Name, e.Phone)
		if err != nil {
			return 0, err
		}
		c.log.InfoContext(ctx, "Client contact created", "contact_id", contactID)
	}

	fields := map[string]any{
		"TITLE":                  e.Title,
		"SOURCE_ID":              "TELEGRAM_BOT",
		"STAGE_ID":               "NEW",
		"CONTACT_ID":             contactID,
		c.fields.DealPartnerCode: e.PartnerCode,
	}

	raw, err := c.call(ctx, "crm.deal.add", map[string]any{"fields": fields})
	if err != nil {
		return 0, err
	}
	id, ok := entityID(raw)
	if !ok {
		return 0, &CallError{Method: "crm.deal.add", Message: fmt.Sprintf("unexpected create response: %s", raw)}
	}

	c.log.InfoContext(ctx, "Deal created", "deal_id", id, "contact_id", contactID, "partner_code", e.PartnerCode)
	return id, nil
}

func (c *Client) findContact(ctx context.Context, name, phone string) (int64, error) {
	raw, err := c.call(ctx, "crm.contact.list", map[string]any{
		"filter": map[string]any{"NAME": name, "PHONE": phone},
		"select": []string{"ID"},
	})
	if err != nil {
		return 0, err
	}

	var rows []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return 0, &CallError{Method: "crm.contact.list", Message: "unexpected list response shape"}
	}
	if len(rows) == 0 {
		return 0, nil
	}
	id, ok := rowID(rows[0])
	if !ok {
		return 0, &CallError{Method: "crm.contact.list", Message: "list row without usable ID"}
	}
	return id, nil
}

func (c *Client) createContact(ctx context.Context, name, phone string) (int64, error) {
	fields := map[string]any{
		"NAME":      name,
		"SOURCE_ID": "TELEGRAM_BOT",
	}
	if phone != "" {
		fields["PHONE"] = []map[string]string{{"VALUE": phone, "VALUE_TYPE": "WORK"}}
	}

	raw, err := c.call(ctx, "crm.contact.add", map[string]any{"fields": fields})
	if err != nil {
		return 0, err
	}
	id, ok := entityID(raw)
	if !ok {
		return 0, &CallError{Method: "crm.contact.add", Message: fmt.Sprintf("unexpected create response: %s", raw)}
	}
	return id, nil
}

// EntityUTMTerm reads the UTM term field of a deal or lead.
// An unset field is "", not an error.
func (c *Client) EntityUTMTerm(ctx context.Context, kind EntityKind, id int64) (string, error) {
	fields, err := c.entityFields(ctx, kind, id)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(stringField(fields["UTM_TERM"])), nil
}

// BindResult is the outcome of an idempotent partner bind.
type BindResult int

const (
	// BindApplied means the reference field was empty and has been set.
	BindApplied BindResult = iota
	// BindAlreadyBound means the field already held a value; nothing was written.
	BindAlreadyBound
)

// BindPartner sets the entity's partner reference field to ref, but only if
// the field is currently unset. Repeat deliveries report BindAlreadyBound
// without touching the stored value.
func (c *Client) BindPartner(ctx context.Context, kind EntityKind, id int64, ref PartnerRef) (BindResult, error) {
	field := c.refField(kind)

	fields, err := c.entityFields(ctx, kind, id)
	if err != nil {
		return 0, err
	}
	if hasValue(fields[field]) {
		c.log.DebugContext(ctx, "Partner reference already set, skipping bind",
			"entity_type", kind, "entity_id", id)
		return BindAlreadyBound, nil
	}

	method := "crm.deal.update"
	if kind == EntityLead {
		method = "crm.lead.update"
	}

	raw, err := c.call(ctx, method, map[string]any{
		"ID":     id,
		"fields": map[string]any{field: ref.BindingValue()},
	})
	if err != nil {
		return 0, err
	}
	if !updateOK(raw) {
		return 0, &CallError{Method: method, Message: fmt.Sprintf("unexpected update response: %s", raw)}
	}

	c.log.InfoContext(ctx, "Partner bound",
		"entity_type", kind, "entity_id", id, "binding", ref.BindingValue())
	return BindApplied, nil
}

func (c *Client) refField(kind EntityKind) string {
	if kind == EntityLead {
		return c.fields.LeadPartnerRef
	}
	return c.fields.DealPartnerRef
}

func (c *Client) entityFields(ctx context.Context, kind EntityKind, id int64) (map[string]json.RawMessage, error) {
	method := "crm.deal.get"
	if kind == EntityLead {
		method = "crm.lead.get"
	}

	raw, err := c.call(ctx, method, map[string]any{"ID": id})
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &CallError{Method: method, Message: "unexpected entity response shape"}
	}
	return fields, nil
}
