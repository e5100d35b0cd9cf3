package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/OrgPilot/app/models"
)

// invitationRepository implements the InvitationRepository interface
type invitationRepository struct {
	db *gorm.DB
}

// NewInvitationRepository creates a new invitation repository instance
func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &invitationRepository{db: db}
}

// Create stores a new invitation row
func (r *invitationRepository) Create(ctx context.Context, invitation *models.Invitation) error {
	return r.db.WithContext(ctx).Create(invitation).Error
}

// GetByID retrieves an invitation by its local id
func (r *invitationRepository) GetByID(ctx context.Context, id uint) (*models.Invitation, error) {
	var invitation models.Invitation
	if err := r.db.WithContext(ctx).First(&invitation, id).Error; err != nil {
		return nil, err
	}
	return &invitation, nil
}

// GetByGitHubInvitationID retrieves an invitation by its upstream invitation id
func (r *invitationRepository) GetByGitHubInvitationID(ctx context.Context, githubInvitationID int64) (*models.Invitation, error) {
	var invitation models.Invitation
	err := r.db.WithContext(ctx).Where("github_invitation_id = ?", githubInvitationID).First(&invitation).Error
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

// List returns invitations newest first, optionally restricted to one status
func (r *invitationRepository) List(ctx context.Context, status string) ([]models.Invitation, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var invitations []models.Invitation
	err := query.Find(&invitations).Error
	return invitations, err
}

// FindPending returns every pending invitation
func (r *invitationRepository) FindPending(ctx context.Context) ([]models.Invitation, error) {
	return r.List(ctx, models.InvitationStatusPending)
}

// GitHubInvitationIDs returns the set of upstream ids already tracked locally
func (r *invitationRepository) GitHubInvitationIDs(ctx context.Context) (map[int64]struct{}, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&models.Invitation{}).
		Where("github_invitation_id IS NOT NULL").
		Pluck("github_invitation_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// AcceptByGitHubInvitationID moves the pending invitation with the given upstream
// id to accepted. Returns the number of rows changed; zero means no pending match.
func (r *invitationRepository) AcceptByGitHubInvitationID(ctx context.Context, githubInvitationID int64, member AcceptedMember, at time.Time) (int64, error) {
	return r.accept(ctx, "github_invitation_id = ?", githubInvitationID, member, at)
}

// AcceptByEmail moves pending invitations for the given email to accepted.
func (r *invitationRepository) AcceptByEmail(ctx context.Context, email string, member AcceptedMember, at time.Time) (int64, error) {
	return r.accept(ctx, "email = ?", email, member, at)
}

// accept is the single conditional update behind both match strategies. The
// status guard keeps a replayed membership event from touching accepted rows.
func (r *invitationRepository) accept(ctx context.Context, cond string, value interface{}, member AcceptedMember, at time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.Invitation{}).
		Where(cond, value).
		Where("status = ?", models.InvitationStatusPending).
		Updates(map[string]interface{}{
			"github_username": member.Login,
			"github_user_id":  member.UserID,
			"status":          models.InvitationStatusAccepted,
			"accepted_at":     at,
		})
	return tx.RowsAffected, tx.Error
}

// MarkAccepted accepts a single pending invitation without member details
func (r *invitationRepository) MarkAccepted(ctx context.Context, id uint, at time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.Invitation{}).
		Where("id = ? AND status = ?", id, models.InvitationStatusPending).
		Updates(map[string]interface{}{
			"status":      models.InvitationStatusAccepted,
			"accepted_at": at,
		})
	return tx.RowsAffected, tx.Error
}

// MarkFailed moves a single pending invitation to failed
func (r *invitationRepository) MarkFailed(ctx context.Context, id uint) (int64, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.Invitation{}).
		Where("id = ? AND status = ?", id, models.InvitationStatusPending).
		Update("status", models.InvitationStatusFailed)
	return tx.RowsAffected, tx.Error
}

// MarkExpired moves every pending invitation whose expiry lies before now to expired
func (r *invitationRepository) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.Invitation{}).
		Where("status = ? AND expires_at < ?", models.InvitationStatusPending, now).
		Update("status", models.InvitationStatusExpired)
	return tx.RowsAffected, tx.Error
}
