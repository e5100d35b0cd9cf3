package webhook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ManuelReschke/OrgPilot/app/models"
	"github.com/ManuelReschke/OrgPilot/app/repository"
)

var (
	ErrSecretNotConfigured = errors.New("webhook secret not configured")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrInvalidPayload      = errors.New("invalid JSON payload")
)

// Ingest outcomes, also used as metric labels.
const (
	OutcomeStored    = "stored"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
)

// IngestInput is one inbound delivery as read off the wire.
type IngestInput struct {
	DeliveryID string
	EventType  string
	Signature  string
	Body       []byte
}

// Ingestor verifies and stores deliveries. It never runs handlers.
type Ingestor struct {
	repo    repository.WebhookEventRepository
	secret  string
	metrics Metrics
}

// NewIngestor creates an ingestor. An empty secret makes every call fail with
// ErrSecretNotConfigured.
func NewIngestor(repo repository.WebhookEventRepository, secret string, metrics Metrics) *Ingestor {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Ingestor{repo: repo, secret: strings.TrimSpace(secret), metrics: metrics}
}

// Configured reports whether a shared secret is set.
func (i *Ingestor) Configured() bool {
	return i.secret != ""
}

// Ingest stores the delivery as a pending event. It returns OutcomeStored for a
// new row and OutcomeDuplicate when the delivery id is already known.
func (i *Ingestor) Ingest(ctx context.Context, in IngestInput) (string, error) {
	if !i.Configured() {
		return "", ErrSecretNotConfigured
	}
	if !VerifySignature(in.Body, in.Signature, i.secret) {
		log.Warnf("[WebhookIngest] Invalid signature for delivery %q", in.DeliveryID)
		i.metrics.RecordReceived(in.EventType, OutcomeRejected)
		return "", ErrInvalidSignature
	}
	if !json.Valid(in.Body) {
		i.metrics.RecordReceived(in.EventType, OutcomeRejected)
		return "", ErrInvalidPayload
	}

	deliveryID := strings.TrimSpace(in.DeliveryID)
	if deliveryID == "" {
		deliveryID = BodyDeliveryID(in.Body)
	}

	var envelope struct {
		Action string `json:"action"`
	}
	// Non-object bodies are stored without an action.
	_ = json.Unmarshal(in.Body, &envelope)

	log.Infof("[WebhookIngest] Received %s for delivery %s", DispatchKey{in.EventType, envelope.Action}, deliveryID)

	if _, err := i.repo.GetByDeliveryID(ctx, deliveryID); err == nil {
		i.metrics.RecordReceived(in.EventType, OutcomeDuplicate)
		return OutcomeDuplicate, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("lookup delivery %s: %w", deliveryID, err)
	}

	event := &models.WebhookEvent{
		DeliveryID: deliveryID,
		EventType:  in.EventType,
		Payload:    datatypes.JSON(in.Body),
	}
	if envelope.Action != "" {
		event.Action = &envelope.Action
	}

	created, err := i.repo.CreateIfNotExists(ctx, event)
	if err != nil {
		return "", fmt.Errorf("store delivery %s: %w", deliveryID, err)
	}
	if !created {
		i.metrics.RecordReceived(in.EventType, OutcomeDuplicate)
		return OutcomeDuplicate, nil
	}
	i.metrics.RecordReceived(in.EventType, OutcomeStored)
	return OutcomeStored, nil
}

// BodyDeliveryID derives an idempotency key for deliveries sent without a
// delivery header.
func BodyDeliveryID(body []byte) string {
	sum := sha256.Sum256(body)
	return "hash:" + hex.EncodeToString(sum[:])
}
