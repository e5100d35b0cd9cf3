package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/OrgPilot/app/models"
)

// webhookEventRepository implements the WebhookEventRepository interface
type webhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a new webhook event repository instance
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

// GetByDeliveryID retrieves an event by its sender-assigned delivery id
func (r *webhookEventRepository) GetByDeliveryID(ctx context.Context, deliveryID string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	err := r.db.WithContext(ctx).Where("delivery_id = ?", deliveryID).First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// CreateIfNotExists inserts a pending event unless the delivery id is already
// stored. It reports whether a new row was written.
func (r *webhookEventRepository) CreateIfNotExists(ctx context.Context, event *models.WebhookEvent) (bool, error) {
	event.Status = models.WebhookStatusPending
	event.ErrorMessage = nil
	event.ProcessedAt = nil

	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "delivery_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// FindPending returns every pending event, oldest first
func (r *webhookEventRepository) FindPending(ctx context.Context) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("status = ?", models.WebhookStatusPending).
		Order("created_at ASC").
		Order("id ASC").
		Find(&events).Error
	return events, err
}

// MarkProcessed resolves a pending event as processed. It reports false when the
// event was no longer pending.
func (r *webhookEventRepository) MarkProcessed(ctx context.Context, id uint, at time.Time) (bool, error) {
	return r.resolve(ctx, id, map[string]interface{}{
		"status":       models.WebhookStatusProcessed,
		"processed_at": at,
	})
}

// MarkFailed resolves a pending event as failed and keeps the error for operators
func (r *webhookEventRepository) MarkFailed(ctx context.Context, id uint, errorMessage string, at time.Time) (bool, error) {
	return r.resolve(ctx, id, map[string]interface{}{
		"status":        models.WebhookStatusFailed,
		"error_message": errorMessage,
		"processed_at":  at,
	})
}

// resolve applies a terminal transition. Rows already resolved by a concurrent
// run are left alone.
func (r *webhookEventRepository) resolve(ctx context.Context, id uint, updates map[string]interface{}) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("id = ? AND status = ?", id, models.WebhookStatusPending).
		Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// List returns a filtered page of events, newest first, plus the total match count
func (r *webhookEventRepository) List(ctx context.Context, filter WebhookEventFilter) ([]models.WebhookEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.WebhookEvent{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []models.WebhookEvent
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&events).Error
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}
