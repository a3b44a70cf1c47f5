package tasks

import (
	"context"
	"strconv"

	"github.com/partnerdesk/partnerbot/internal/bot/conversation"
)

// resubmitBatchSize caps how many pending requests one run picks up.
const resubmitBatchSize = 50

// newResubmitTask creates the scheduled task that retries CRM submission
// for consultation requests persisted without a CRM entity id. Submission
// is at-least-once; the CRM-side effects are idempotent.
func newResubmitTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "consultation_resubmit")

	return func(ctx context.Context) error {
		pending, err := deps.Store.ListPendingSubmissions(ctx, resubmitBatchSize)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}

		log.InfoContext(ctx, "Retrying pending CRM submissions", "count", len(pending))

		var firstErr error
		for _, req := range pending {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			entityID, err := deps.Submitter.Submit(ctx, conversation.SubmitRequest{
				Title:       "Консультация: " + req.Name.String,
				Name:        req.Name.String,
				Phone:       req.Phone.String,
				PartnerCode: req.PartnerCode,
			})
			if err != nil {
				log.WarnContext(ctx, "Resubmission failed", "user_id", req.UserID, "error", err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}

			if err := deps.Store.MarkSubmitted(ctx, req.UserID, strconv.FormatInt(entityID, 10)); err != nil {
				log.ErrorContext(ctx, "Failed to record CRM entity id", "user_id", req.UserID, "error", err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}

			log.InfoContext(ctx, "Pending request submitted", "user_id", req.UserID, "entity_id", entityID)
		}

		return firstErr
	}
}
