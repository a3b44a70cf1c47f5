package bot

import (
	"context"

	"github.com/partnerdesk/partnerbot/internal/bitrix"
	"github.com/partnerdesk/partnerbot/internal/bot/conversation"
)

// CRMSubmitter adapts the Bitrix client to the conversation flow's
// Submitter interface. The configured entity kind decides whether a
// consultation becomes a deal or a lead.
type CRMSubmitter struct {
	client *bitrix.Client
	kind   bitrix.EntityKind
}

// NewCRMSubmitter creates a submitter creating entities of the given kind.
func NewCRMSubmitter(client *bitrix.Client, kind bitrix.EntityKind) *CRMSubmitter {
	return &CRMSubmitter{client: client, kind: kind}
}

func (s *CRMSubmitter) Submit(ctx context.Context, req conversation.SubmitRequest) (int64, error) {
	return s.client.CreateEntity(ctx, s.kind, bitrix.NewEntity{
		Title:       req.Title,
		Name:        req.Name,
		Phone:       req.Phone,
		PartnerCode: req.PartnerCode,
	})
}
