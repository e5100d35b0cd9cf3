package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/OrgPilot/app/models"
	"github.com/ManuelReschke/OrgPilot/app/repository"
	"github.com/ManuelReschke/OrgPilot/internal/pkg/webhook"
)

const (
	defaultEventListLimit = 20
	maxEventListLimit     = 100
	ingestTimeout         = 15 * time.Second
)

// EventProcessor drains pending webhook events.
type EventProcessor interface {
	ProcessPendingEvents(ctx context.Context) (webhook.Result, error)
}

// WebhookController serves ingestion, listing and the manual processing trigger.
type WebhookController struct {
	ingestor  *webhook.Ingestor
	events    repository.WebhookEventRepository
	processor EventProcessor
	validate  *validator.Validate
}

func NewWebhookController(ingestor *webhook.Ingestor, events repository.WebhookEventRepository, processor EventProcessor) *WebhookController {
	return &WebhookController{
		ingestor:  ingestor,
		events:    events,
		processor: processor,
		validate:  validator.New(),
	}
}

// HandleIngest stores a signed delivery as a pending event and answers
// immediately. Business logic runs later in the processor.
func (wc *WebhookController) HandleIngest(c *fiber.Ctx) error {
	if !wc.ingestor.Configured() {
		log.Error("[WebhookIngest] WEBHOOK_SECRET is not set")
		return jsonError(c, fiber.StatusInternalServerError, "webhook_not_configured", "Webhook not configured")
	}

	rawBody := append([]byte(nil), c.BodyRaw()...)
	ctx, cancel := context.WithTimeout(c.UserContext(), ingestTimeout)
	defer cancel()

	outcome, err := wc.ingestor.Ingest(ctx, webhook.IngestInput{
		DeliveryID: strings.TrimSpace(c.Get("X-GitHub-Delivery")),
		EventType:  strings.TrimSpace(c.Get("X-GitHub-Event")),
		Signature:  strings.TrimSpace(c.Get("X-Hub-Signature-256")),
		Body:       rawBody,
	})
	switch {
	case errors.Is(err, webhook.ErrInvalidSignature):
		return jsonError(c, fiber.StatusUnauthorized, "invalid_signature", "Invalid signature")
	case errors.Is(err, webhook.ErrInvalidPayload):
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
	case errors.Is(err, webhook.ErrSecretNotConfigured):
		return jsonError(c, fiber.StatusInternalServerError, "webhook_not_configured", "Webhook not configured")
	case err != nil:
		log.Errorf("[WebhookIngest] %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "webhook_persist_failed", "Failed to store webhook event")
	}

	if outcome == webhook.OutcomeDuplicate {
		return c.JSON(fiber.Map{"ok": true, "duplicate": true, "message": "Duplicate delivery ignored"})
	}
	return c.JSON(fiber.Map{"ok": true, "message": "Event queued for processing"})
}

type listEventsQuery struct {
	Status    string `query:"status"`
	EventType string `query:"eventType"`
	Action    string `query:"action"`
	Limit     int    `query:"limit" validate:"gte=0"`
	Offset    int    `query:"offset" validate:"gte=0"`
}

// HandleList returns stored events for operators, newest first.
func (wc *WebhookController) HandleList(c *fiber.Ctx) error {
	var q listEventsQuery
	if err := c.QueryParser(&q); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_query", err.Error())
	}
	if q.EventType == "" {
		q.EventType = c.Query("event_type")
	}
	q.Status = noFilter(q.Status)
	q.EventType = noFilter(q.EventType)
	q.Action = noFilter(q.Action)
	if q.Status != "" && !models.IsValidWebhookStatus(q.Status) {
		return jsonError(c, fiber.StatusBadRequest, "invalid_query", "Unknown status: "+q.Status)
	}
	if err := wc.validate.Struct(q); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_query", err.Error())
	}
	if q.Limit == 0 {
		q.Limit = defaultEventListLimit
	}
	if q.Limit > maxEventListLimit {
		q.Limit = maxEventListLimit
	}

	events, total, err := wc.events.List(c.UserContext(), repository.WebhookEventFilter{
		Status:    q.Status,
		EventType: q.EventType,
		Action:    q.Action,
		Limit:     q.Limit,
		Offset:    q.Offset,
	})
	if err != nil {
		log.Errorf("[WebhookIngest] list events: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load webhook events")
	}
	if events == nil {
		events = []models.WebhookEvent{}
	}

	return c.JSON(fiber.Map{
		"events": events,
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
	})
}

// noFilter maps the "all" selector to an empty filter value.
func noFilter(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "all") {
		return ""
	}
	return v
}

// HandleProcess runs one processing batch synchronously.
func (wc *WebhookController) HandleProcess(c *fiber.Ctx) error {
	result, err := wc.processor.ProcessPendingEvents(c.UserContext())
	if err != nil {
		log.Errorf("[WebhookProcessor] manual run: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "processing_failed", "Failed to process webhook events")
	}
	return c.JSON(result)
}
