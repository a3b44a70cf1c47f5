package bitrix_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/partnerdesk/partnerbot/internal/bitrix"
)

var testFields = bitrix.Fields{
	ContactCode:     "UF_CONTACT_CODE",
	CompanyCode:     "UF_COMPANY_CODE",
	DealPartnerRef:  "UF_DEAL_REF",
	LeadPartnerRef:  "UF_LEAD_REF",
	DealPartnerCode: "UF_DEAL_CODE",
}

// fakeCRM routes crm.*.json calls to per-method handlers and records the
// decoded request bodies.
type fakeCRM struct {
	t        *testing.T
	handlers map[string]func(body map[string]any) any
	calls    []crmCall
}

type crmCall struct {
	method string
	body   map[string]any
}

func newFakeCRM(t *testing.T) *fakeCRM {
	return &fakeCRM{t: t, handlers: map[string]func(map[string]any) any{}}
}

func (f *fakeCRM) on(method string, handler func(body map[string]any) any) {
	f.handlers[method] = handler
}

func (f *fakeCRM) count(method string) int {
	n := 0
	for _, c := range f.calls {
		if c.method == method {
			n++
		}
	}
	return n
}

func (f *fakeCRM) last(method string) map[string]any {
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].method == method {
			return f.calls[i].body
		}
	}
	return nil
}

func (f *fakeCRM) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path
	method = method[1 : len(method)-len(".json")]

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		f.t.Errorf("request body for %s is not JSON: %v", method, err)
	}
	f.calls = append(f.calls, crmCall{method: method, body: body})

	handler, ok := f.handlers[method]
	if !ok {
		f.t.Errorf("unexpected CRM call: %s", method)
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(handler(body)); err != nil {
		f.t.Errorf("encoding response for %s: %v", method, err)
	}
}

func newTestClient(t *testing.T, crm *fakeCRM) *bitrix.Client {
	t.Helper()

	srv := httptest.NewServer(crm)
	t.Cleanup(srv.Close)

	client, err := bitrix.NewClient(bitrix.Config{
		WebhookURL: srv.URL,
		Timeout:    2 * time.Second,
		Fields:     testFields,
	}, nil)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func entityFields(body map[string]any) map[string]any {
	fields, _ := body["fields"].(map[string]any)
	return fields
}

func TestCreateLeadSuccessShapes(t *testing.T) {
	t.Parallel()

	// The CRM answers create calls with either a wrapped or a bare integer.
	responses := map[string]any{
		"wrapped result": map[string]any{"result": 42},
		"bare integer":   42,
	}

	for name, response := range responses {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			crm := newFakeCRM(t)
			crm.on("crm.contact.list", func(map[string]any) any {
				return map[string]any{"result": []map[string]any{{"ID": "9"}}}
			})
			crm.on("crm.lead.add", func(map[string]any) any { return response })

			client := newTestClient(t, crm)
			id, err := client.CreateLead(context.Background(), bitrix.NewEntity{
				Title: "Консультация: Ann Lee", Name: "Ann Lee", Phone: "+15551234567", PartnerCode: "ABC123",
			})
			if err != nil {
				t.Fatalf("create lead failed: %v", err)
			}
			if id != 42 {
				t.Errorf("lead id = %d, want 42", id)
			}

			fields := entityFields(crm.last("crm.lead.add"))
			if fields["NAME"] != "Ann Lee" {
				t.Errorf("lead NAME = %v, want Ann Lee", fields["NAME"])
			}
			if fields["UF_LEAD_REF"] != "C_9" {
				t.Errorf("lead partner ref = %v, want C_9", fields["UF_LEAD_REF"])
			}
			if crm.count("crm.contact.add") != 0 {
				t.Error("lead mode must not create client contacts")
			}
		})
	}
}

func TestCreateLeadWithoutPartnerMatch(t *testing.T) {
	t.Parallel()

	crm := newFakeCRM(t)
	crm.on("crm.contact.list", func(map[string]any) any { return map[string]any{"result": []any{}} })
	crm.on("crm.company.list", func(map[string]any) any { return map[string]any{"result": []any{}} })
	crm.on("crm.lead.add", func(map[string]any) any { return map[string]any{"result": 7} })

	client := newTestClient(t, crm)
	id, err := client.CreateLead(context.Background(), bitrix.NewEntity{
		Title: "Консультация: Ann", Name: "Ann", Phone: "+15551234567", PartnerCode: "NOPE",
	})
	if err != nil {
		t.Fatalf("lead creation must survive a partner miss: %v", err)
	}
	if id != 7 {
		t.Errorf("lead id = %d, want 7", id)
	}

	fields := entityFields(crm.last("crm.lead.add"))
	if _, bound := fields["UF_LEAD_REF"]; bound {
		t.Error("unresolved partner must leave the reference field unset")
	}
}

func TestCreateDealLinksClientContact(t *testing.T) {
	t.Parallel()

	t.Run("existing contact reused", func(t *testing.T) {
		t.Parallel()

		crm := newFakeCRM(t)
		crm.on("crm.contact.list", func(map[string]any) any {
			return map[string]any{"result": []map[string]any{{"ID": "33"}}}
		})
		crm.on("crm.deal.add", func(map[string]any) any { return map[string]any{"result": 101} })

		client := newTestClient(t, crm)
		id, err := client.CreateDeal(context.Background(), bitrix.NewEntity{
			Title: "Консультация: Ann Lee", Name: "Ann Lee", Phone: "+15551234567", PartnerCode: "ABC123",
		})
		if err != nil {
			t.Fatalf("create deal failed: %v", err)
		}
		if id != 101 {
			t.Errorf("deal id = %d, want 101", id)
		}

		fields := entityFields(crm.last("crm.deal.add"))
		if fields["CONTACT_ID"] != float64(33) {
			t.Errorf("deal CONTACT_ID = %v, want 33", fields["CONTACT_ID"])
		}
		if fields["UF_DEAL_CODE"] != "ABC123" {
			t.Errorf("deal partner code = %v, want raw code ABC123", fields["UF_DEAL_CODE"])
		}
		if crm.count("crm.contact.add") != 0 {
			t.Error("existing contact must be reused, not recreated")
		}
	})

	t.Run("missing contact created", func(t *testing.T) {
		t.Parallel()

		crm := newFakeCRM(t)
		crm.on("crm.contact.list", func(map[string]any) any { return map[string]any{"result": []any{}} })
		crm.on("crm.contact.add", func(map[string]any) any { return map[string]any{"result": 44} })
		crm.on("crm.deal.add", func(map[string]any) any { return map[string]any{"result": 102} })

		client := newTestClient(t, crm)
		if _, err := client.CreateDeal(context.Background(), bitrix.NewEntity{
			Title: "Консультация: Ann", Name: "Ann", Phone: "+15551234567", PartnerCode: "X",
		}); err != nil {
			t.Fatalf("create deal failed: %v", err)
		}

		if crm.count("crm.contact.add") != 1 {
			t.Fatal("missing contact must be created")
		}
		fields := entityFields(crm.last("crm.deal.add"))
		if fields["CONTACT_ID"] != float64(44) {
			t.Errorf("deal CONTACT_ID = %v, want freshly created 44", fields["CONTACT_ID"])
		}
	})
}

func TestCreateLeadErrorResponse(t *testing.T) {
	t.Parallel()

	crm := newFakeCRM(t)
	crm.on("crm.contact.list", func(map[string]any) any { return map[string]any{"result": []any{}} })
	crm.on("crm.company.list", func(map[string]any) any { return map[string]any{"result": []any{}} })
	crm.on("crm.lead.add", func(map[string]any) any {
		return map[string]any{"error": "QUERY_LIMIT", "error_description": "Field TITLE is required"}
	})

	client := newTestClient(t, crm)
	_, err := client.CreateLead(context.Background(), bitrix.NewEntity{Name: "Ann", PartnerCode: "X"})
	if err == nil {
		t.Fatal("expected error from CRM error response")
	}
	if bitrix.IsRetryable(err) {
		t.Error("a well-formed CRM error must not be retryable")
	}
	var callErr *bitrix.CallError
	if !errors.As(err, &callErr) || callErr.Message != "Field TITLE is required" {
		t.Errorf("error should carry the CRM message, got %v", err)
	}
}

func TestCallTimeoutIsRetryable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	client, err := bitrix.NewClient(bitrix.Config{
		WebhookURL: srv.URL,
		Timeout:    50 * time.Millisecond,
		Fields:     testFields,
	}, nil)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	_, err = client.ResolvePartner(context.Background(), "ABC123")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !bitrix.IsRetryable(err) {
		t.Errorf("timeout must surface as retryable, got %v", err)
	}
}

func TestResolvePartnerCompanyFallback(t *testing.T) {
	t.Parallel()

	crm := newFakeCRM(t)
	crm.on("crm.contact.list", func(map[string]any) any { return map[string]any{"result": []any{}} })
	crm.on("crm.company.list", func(body map[string]any) any {
		filter, _ := body["filter"].(map[string]any)
		if filter["UF_COMPANY_CODE"] != "ABC123" {
			t.Errorf("company lookup filter = %v", filter)
		}
		return map[string]any{"result": []map[string]any{{"ID": "15"}}}
	})

	client := newTestClient(t, crm)
	ref, err := client.ResolvePartner(context.Background(), "ABC123")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if ref == nil {
		t.Fatal("company-only code must resolve, not report NotFound")
	}
	if ref.Kind != bitrix.PartnerCompany || ref.ID != 15 {
		t.Errorf("resolved %+v, want company 15", ref)
	}
	if ref.BindingValue() != "CO_15" {
		t.Errorf("binding value = %q, want CO_15", ref.BindingValue())
	}
}

func TestResolvePartnerNotFound(t *testing.T) {
	t.Parallel()

	crm := newFakeCRM(t)
	crm.on("crm.contact.list", func(map[string]any) any { return map[string]any{"result": []any{}} })
	crm.on("crm.company.list", func(map[string]any) any { return map[string]any{"result": []any{}} })

	client := newTestClient(t, crm)
	ref, err := client.ResolvePartner(context.Background(), "MISSING")
	if err != nil {
		t.Fatalf("a miss must not be an error: %v", err)
	}
	if ref != nil {
		t.Errorf("expected nil ref, got %+v", ref)
	}
}

func TestBindPartnerIdempotent(t *testing.T) {
	t.Parallel()

	boundValue := ""
	crm := newFakeCRM(t)
	crm.on("crm.lead.get", func(map[string]any) any {
		return map[string]any{"result": map[string]any{"ID": "42", "UF_LEAD_REF": boundValue}}
	})
	crm.on("crm.lead.update", func(body map[string]any) any {
		boundValue = entityFields(body)["UF_LEAD_REF"].(string)
		return map[string]any{"result": true}
	})

	client := newTestClient(t, crm)
	ref := bitrix.PartnerRef{Kind: bitrix.PartnerContact, ID: 9}

	result, err := client.BindPartner(context.Background(), bitrix.EntityLead, 42, ref)
	if err != nil {
		t.Fatalf("first bind failed: %v", err)
	}
	if result != bitrix.BindApplied {
		t.Errorf("first bind = %v, want BindApplied", result)
	}
	if boundValue != "C_9" {
		t.Errorf("bound value = %q, want C_9", boundValue)
	}

	result, err = client.BindPartner(context.Background(), bitrix.EntityLead, 42, ref)
	if err != nil {
		t.Fatalf("repeat bind failed: %v", err)
	}
	if result != bitrix.BindAlreadyBound {
		t.Errorf("repeat bind = %v, want BindAlreadyBound", result)
	}
	if boundValue != "C_9" {
		t.Errorf("repeat bind changed the value to %q", boundValue)
	}
	if crm.count("crm.lead.update") != 1 {
		t.Errorf("update called %d times, want 1", crm.count("crm.lead.update"))
	}
}
