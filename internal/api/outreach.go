package api

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
)

// Outreach stubs echo batch payloads back in dry-run mode. They are
// integration placeholders: no email or DM ever leaves this process, and
// they share no state with the lifecycle engine. Field names follow the
// wire contract of the dashboard client (camelCase).

type outreachBatchRequest struct {
	BatchID string          `json:"batchId"`
	Emails  json.RawMessage `json:"emails"`
}

func parseOutreachBatch(c *fiber.Ctx) (string, int, error) {
	var req outreachBatchRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return "", 0, problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}
	if req.BatchID == "" {
		return "", 0, problemResponse(c, fiber.StatusBadRequest,
			"missing_batch_id", "Bad Request", "batchId is required")
	}
	var emails []json.RawMessage
	if req.Emails == nil || json.Unmarshal(req.Emails, &emails) != nil {
		return "", 0, problemResponse(c, fiber.StatusBadRequest,
			"invalid_emails", "Bad Request", "emails must be an array")
	}
	return req.BatchID, len(emails), nil
}

// OutreachDrafts handles POST /api/v1/outreach/drafts.
func (h *Handlers) OutreachDrafts(c *fiber.Ctx) error {
	batchID, count, err := parseOutreachBatch(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"ok":             true,
		"mode":           "DRY_RUN",
		"batchId":        batchID,
		"draftsPrepared": count,
	})
}

// OutreachSend handles POST /api/v1/outreach/send.
func (h *Handlers) OutreachSend(c *fiber.Ctx) error {
	batchID, count, err := parseOutreachBatch(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"ok":      true,
		"mode":    "DRY_RUN",
		"batchId": batchID,
		"count":   count,
	})
}

// OutreachBatch handles GET and POST /api/v1/outreach/batch, returning the
// fixed-shape placeholder batch with its approval block pending.
func (h *Handlers) OutreachBatch(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"batchId": "signalcrypt-demo-batch",
		"mode":    "DRY_RUN",
		"targets": []fiber.Map{
			{"name": "Example Co", "contact": "hello@example.com"},
			{"name": "Acme Research", "contact": "team@acme.test"},
		},
		"templates": []fiber.Map{
			{"id": "intro", "subject": "Quick question about {{company}}", "body": "Short, specific, no attachments."},
			{"id": "follow-up", "subject": "Following up", "body": "One nudge, then stop."},
		},
		"schedule": fiber.Map{
			"start":     "next-business-day",
			"spacing":   "48h",
			"maxPerDay": 5,
		},
		"approval": fiber.Map{
			"status":     "PENDING",
			"approvedBy": nil,
		},
	})
}
