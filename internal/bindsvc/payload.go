package bindsvc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/partnerdesk/partnerbot/internal/bitrix"
)

// bindRequest is the canonical form of one inbound CRM event. Both payload
// encodings parse into it; everything past the boundary sees only this.
type bindRequest struct {
	Kind bitrix.EntityKind
	ID   int64
}

var idPrefixPattern = regexp.MustCompile(`(?i)^(DEAL_|LEAD_)`)

// parseBindRequest reads the document_id triple out of a JSON or
// form-encoded body. The triple is [module, entity class, entity id], e.g.
// ["crm", "CCrmDocumentLead", "LEAD_42"].
func parseBindRequest(r *http.Request) (bindRequest, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "application/json") {
		return parseJSONBody(r)
	}
	return parseFormBody(r)
}

func parseJSONBody(r *http.Request) (bindRequest, error) {
	var body struct {
		DocumentID []string `json:"document_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return bindRequest{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	if len(body.DocumentID) < 3 {
		return bindRequest{}, fmt.Errorf("document_id must carry module, class, and id")
	}
	return fromDocumentID(body.DocumentID[1], body.DocumentID[2])
}

func parseFormBody(r *http.Request) (bindRequest, error) {
	if err := r.ParseForm(); err != nil {
		return bindRequest{}, fmt.Errorf("invalid form body: %w", err)
	}

	class := r.PostForm.Get("document_id[1]")
	rawID := r.PostForm.Get("document_id[2]")
	if class == "" || rawID == "" {
		return bindRequest{}, fmt.Errorf("document_id[1] and document_id[2] are required")
	}
	return fromDocumentID(class, rawID)
}

// fromDocumentID maps a CRM document class and prefixed id to the canonical
// request. Class names like CCrmDocumentDeal carry the entity kind.
func fromDocumentID(class, rawID string) (bindRequest, error) {
	var kind bitrix.EntityKind
	switch upper := strings.ToUpper(class); {
	case strings.Contains(upper, "DEAL"):
		kind = bitrix.EntityDeal
	case strings.Contains(upper, "LEAD"):
		kind = bitrix.EntityLead
	default:
		return bindRequest{}, fmt.Errorf("unrecognized entity class %q", class)
	}

	id, err := strconv.ParseInt(idPrefixPattern.ReplaceAllString(strings.TrimSpace(rawID), ""), 10, 64)
	if err != nil || id <= 0 {
		return bindRequest{}, fmt.Errorf("invalid entity id %q", rawID)
	}

	return bindRequest{Kind: kind, ID: id}, nil
}
