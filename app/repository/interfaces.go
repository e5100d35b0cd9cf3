package repository

import (
	"context"
	"time"

	"github.com/ManuelReschke/OrgPilot/app/models"
	"gorm.io/gorm"
)

// WebhookEventRepository defines the interface for the webhook event store
type WebhookEventRepository interface {
	GetByDeliveryID(ctx context.Context, deliveryID string) (*models.WebhookEvent, error)
	CreateIfNotExists(ctx context.Context, event *models.WebhookEvent) (bool, error)
	FindPending(ctx context.Context) ([]models.WebhookEvent, error)
	MarkProcessed(ctx context.Context, id uint, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uint, errorMessage string, at time.Time) (bool, error)
	List(ctx context.Context, filter WebhookEventFilter) ([]models.WebhookEvent, int64, error)
}

// InvitationRepository defines the interface for invitation-related database operations
type InvitationRepository interface {
	Create(ctx context.Context, invitation *models.Invitation) error
	GetByID(ctx context.Context, id uint) (*models.Invitation, error)
	GetByGitHubInvitationID(ctx context.Context, githubInvitationID int64) (*models.Invitation, error)
	List(ctx context.Context, status string) ([]models.Invitation, error)
	FindPending(ctx context.Context) ([]models.Invitation, error)
	GitHubInvitationIDs(ctx context.Context) (map[int64]struct{}, error)
	AcceptByGitHubInvitationID(ctx context.Context, githubInvitationID int64, member AcceptedMember, at time.Time) (int64, error)
	AcceptByEmail(ctx context.Context, email string, member AcceptedMember, at time.Time) (int64, error)
	MarkAccepted(ctx context.Context, id uint, at time.Time) (int64, error)
	MarkFailed(ctx context.Context, id uint) (int64, error)
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
}

// WebhookEventFilter narrows the operator event listing. Empty strings match everything.
type WebhookEventFilter struct {
	Status    string
	EventType string
	Action    string
	Limit     int
	Offset    int
}

// AcceptedMember identifies the upstream account that accepted an invitation
type AcceptedMember struct {
	Login  string
	UserID int64
}

// Repositories struct holds all repository instances
type Repositories struct {
	WebhookEvent WebhookEventRepository
	Invitation   InvitationRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		WebhookEvent: NewWebhookEventRepository(db),
		Invitation:   NewInvitationRepository(db),
	}
}
