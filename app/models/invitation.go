package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	InvitationStatusPending  = "pending"
	InvitationStatusAccepted = "accepted"
	InvitationStatusExpired  = "expired"
	InvitationStatusFailed   = "failed"
)

const (
	InvitationRoleDirectMember = "direct_member"
	InvitationRoleAdmin        = "admin"
	InvitationRoleBillingMgr   = "billing_manager"
)

// InvitationTTL mirrors how long the upstream platform keeps an invitation open.
const InvitationTTL = 7 * 24 * time.Hour

// Invitation tracks an organization invitation from creation until the invitee
// shows up as a member (or the invitation lapses).
type Invitation struct {
	ID                 uint                       `gorm:"primaryKey" json:"id"`
	Email              string                     `gorm:"type:varchar(200);not null;index" json:"email"`
	GitHubUsername     *string                    `gorm:"column:github_username;type:varchar(100);default:null" json:"github_username"`
	GitHubUserID       *int64                     `gorm:"column:github_user_id;default:null" json:"github_user_id"`
	Status             string                     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	GitHubInvitationID *int64                     `gorm:"column:github_invitation_id;default:null;index" json:"github_invitation_id"`
	Role               string                     `gorm:"type:varchar(50);not null;default:'direct_member'" json:"role"`
	TeamIDs            datatypes.JSONSlice[int64] `gorm:"column:team_ids;type:json;default:null" json:"team_ids"`
	InviterLogin       *string                    `gorm:"type:varchar(100);default:null" json:"inviter_login"`
	InviterID          *int64                     `gorm:"default:null" json:"inviter_id"`
	InvitedAt          time.Time                  `gorm:"type:timestamp;not null" json:"invited_at"`
	ExpiresAt          time.Time                  `gorm:"type:timestamp;not null;index" json:"expires_at"`
	AcceptedAt         *time.Time                 `gorm:"type:timestamp;default:null" json:"accepted_at"`
	CreatedAt          time.Time                  `gorm:"autoCreateTime" json:"created_at"`
}

// IsValidInvitationStatus reports whether s is one of the known invitation states.
func IsValidInvitationStatus(s string) bool {
	switch s {
	case InvitationStatusPending, InvitationStatusAccepted, InvitationStatusExpired, InvitationStatusFailed:
		return true
	default:
		return false
	}
}
