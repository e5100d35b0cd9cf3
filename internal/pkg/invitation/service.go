// Package invitation keeps the local invitation records in step with the
// organization: it matches accepted memberships, backfills externally created
// invitations and reconciles the local table against upstream state.
package invitation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	gh "github.com/google/go-github/v66/github"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/ManuelReschke/OrgPilot/app/models"
	"github.com/ManuelReschke/OrgPilot/app/repository"
)

var (
	ErrInvalidEmail    = errors.New("valid email address is required")
	ErrInvalidRole     = errors.New("role must be one of admin, direct_member, billing_manager")
	ErrAlreadyInvited  = errors.New("user already has a pending invitation or is a member")
	ErrUpstreamMissing = errors.New("no upstream client configured")
)

// Upstream is the subset of the GitHub API the invitation service calls.
type Upstream interface {
	CreateInvitation(ctx context.Context, email, role string, teamIDs []int64) (*gh.Invitation, error)
	ListPendingInvitations(ctx context.Context) ([]*gh.Invitation, error)
	ListFailedInvitations(ctx context.Context) ([]*gh.Invitation, error)
}

// Service owns invitation lifecycle transitions.
type Service struct {
	repo     repository.InvitationRepository
	upstream Upstream
	validate *validator.Validate
	now      func() time.Time
}

// NewService creates an invitation service. upstream may be nil when only the
// webhook-driven operations are needed.
func NewService(repo repository.InvitationRepository, upstream Upstream) *Service {
	return &Service{
		repo:     repo,
		upstream: upstream,
		validate: validator.New(),
		now:      time.Now,
	}
}

// AcceptedMember is a membership-added observation, optionally carrying the
// invitation it resolved.
type AcceptedMember struct {
	Login           string
	UserID          int64
	InvitationID    int64
	InvitationEmail string
}

// MatchResult reports how an accepted member was reconciled.
type MatchResult struct {
	Matched   bool
	MatchedBy string
}

const (
	MatchedByInvitationID = "invitation_id"
	MatchedByEmail        = "email"
)

// MatchAcceptedMember accepts the pending invitation belonging to member. The
// upstream invitation id is tried first, then the invitation email. Finding no
// pending invitation is a normal outcome, not an error.
func (s *Service) MatchAcceptedMember(ctx context.Context, member AcceptedMember) (MatchResult, error) {
	accepted := repository.AcceptedMember{Login: member.Login, UserID: member.UserID}
	now := s.now()

	if member.InvitationID != 0 {
		n, err := s.repo.AcceptByGitHubInvitationID(ctx, member.InvitationID, accepted, now)
		if err != nil {
			return MatchResult{}, fmt.Errorf("accept invitation %d: %w", member.InvitationID, err)
		}
		if n > 0 {
			log.Infof("[Invitations] Matched invitation by ID: %d -> %s", member.InvitationID, member.Login)
			return MatchResult{Matched: true, MatchedBy: MatchedByInvitationID}, nil
		}
	}

	if email := strings.TrimSpace(member.InvitationEmail); email != "" {
		n, err := s.repo.AcceptByEmail(ctx, email, accepted, now)
		if err != nil {
			return MatchResult{}, fmt.Errorf("accept invitation for %s: %w", email, err)
		}
		if n > 0 {
			log.Infof("[Invitations] Matched invitation by email: %s -> %s", email, member.Login)
			return MatchResult{Matched: true, MatchedBy: MatchedByEmail}, nil
		}
	}

	log.Infof("[Invitations] No matching pending invitation found for %s", member.Login)
	return MatchResult{}, nil
}

// InvitedMember is an upstream invitation observed through a webhook.
type InvitedMember struct {
	InvitationID int64
	Email        string
	Role         string
	InviterLogin string
	InviterID    int64
	CreatedAt    time.Time
}

// TrackInvitedMember stores an invitation created outside this application.
// Already tracked invitations are left untouched. Reports whether a row was added.
func (s *Service) TrackInvitedMember(ctx context.Context, in InvitedMember) (bool, error) {
	email := strings.TrimSpace(in.Email)
	if in.InvitationID == 0 || email == "" {
		return false, nil
	}

	_, err := s.repo.GetByGitHubInvitationID(ctx, in.InvitationID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("lookup invitation %d: %w", in.InvitationID, err)
	}

	inv := s.newRecord(email, models.InvitationStatusPending, in.InvitationID, in.Role, in.InviterLogin, in.InviterID, in.CreatedAt)
	if err := s.repo.Create(ctx, inv); err != nil {
		return false, fmt.Errorf("store invitation %d: %w", in.InvitationID, err)
	}
	log.Infof("[Invitations] Stored external invitation: %s", email)
	return true, nil
}

// InviteInput is an operator request to invite someone.
type InviteInput struct {
	Email        string  `json:"email" validate:"required,email"`
	Role         string  `json:"role" validate:"omitempty,oneof=admin direct_member billing_manager"`
	TeamIDs      []int64 `json:"team_ids"`
	InviterLogin string  `json:"-"`
	InviterID    int64   `json:"-"`
}

// Invite creates the invitation upstream and tracks it locally as pending.
func (s *Service) Invite(ctx context.Context, in InviteInput) (*models.Invitation, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Var(in.Email, "required,email"); err != nil {
		return nil, ErrInvalidEmail
	}
	if in.Role == "" {
		in.Role = models.InvitationRoleDirectMember
	}
	if err := s.validate.Var(in.Role, "oneof=admin direct_member billing_manager"); err != nil {
		return nil, ErrInvalidRole
	}
	if s.upstream == nil {
		return nil, ErrUpstreamMissing
	}

	created, err := s.upstream.CreateInvitation(ctx, in.Email, in.Role, in.TeamIDs)
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "already a member") || strings.Contains(msg, "pending invitation") {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyInvited, msg)
		}
		return nil, err
	}

	invitedAt := created.GetCreatedAt().Time
	inv := s.newRecord(in.Email, models.InvitationStatusPending, created.GetID(), in.Role, in.InviterLogin, in.InviterID, invitedAt)
	if len(in.TeamIDs) > 0 {
		inv.TeamIDs = in.TeamIDs
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("store invitation: %w", err)
	}
	return inv, nil
}

// List returns invitations, newest first. Pending invitations past their
// expiry are moved to expired before reading.
func (s *Service) List(ctx context.Context, status string) ([]models.Invitation, error) {
	if _, err := s.repo.MarkExpired(ctx, s.now()); err != nil {
		return nil, fmt.Errorf("expire invitations: %w", err)
	}
	if status == "all" {
		status = ""
	}
	return s.repo.List(ctx, status)
}

// SyncResult summarizes one reconciliation pass.
type SyncResult struct {
	PendingInGitHub  int `json:"pendingInGitHub"`
	FailedInGitHub   int `json:"failedInGitHub"`
	MarkedAsAccepted int `json:"markedAsAccepted"`
	MarkedAsFailed   int `json:"markedAsFailed"`
	NewFromGitHub    int `json:"newFromGitHub"`
}

// Sync reconciles local pending invitations against the upstream pending and
// failed sets, and imports upstream invitations that are not tracked yet.
func (s *Service) Sync(ctx context.Context) (*SyncResult, error) {
	if s.upstream == nil {
		return nil, ErrUpstreamMissing
	}

	var pending, failed []*gh.Invitation
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if pending, err = s.upstream.ListPendingInvitations(gctx); err != nil {
			return fmt.Errorf("list pending invitations: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if failed, err = s.upstream.ListFailedInvitations(gctx); err != nil {
			return fmt.Errorf("list failed invitations: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pendingIDs := idSet(pending)
	failedIDs := idSet(failed)

	local, err := s.repo.FindPending(ctx)
	if err != nil {
		return nil, err
	}
	tracked, err := s.repo.GitHubInvitationIDs(ctx)
	if err != nil {
		return nil, err
	}

	res := &SyncResult{PendingInGitHub: len(pending), FailedInGitHub: len(failed)}
	now := s.now()

	for _, inv := range local {
		if inv.GitHubInvitationID == nil {
			continue
		}
		id := *inv.GitHubInvitationID
		if _, ok := pendingIDs[id]; ok {
			continue
		}
		if _, ok := failedIDs[id]; ok {
			n, err := s.repo.MarkFailed(ctx, inv.ID)
			if err != nil {
				return nil, err
			}
			res.MarkedAsFailed += int(n)
			continue
		}
		n, err := s.repo.MarkAccepted(ctx, inv.ID, now)
		if err != nil {
			return nil, err
		}
		res.MarkedAsAccepted += int(n)
	}

	imports := []struct {
		list   []*gh.Invitation
		status string
	}{
		{pending, models.InvitationStatusPending},
		{failed, models.InvitationStatusFailed},
	}
	for _, batch := range imports {
		for _, up := range batch.list {
			if _, ok := tracked[up.GetID()]; ok {
				continue
			}
			inv := s.newRecord(up.GetEmail(), batch.status, up.GetID(), up.GetRole(),
				up.GetInviter().GetLogin(), up.GetInviter().GetID(), up.GetCreatedAt().Time)
			if err := s.repo.Create(ctx, inv); err != nil {
				return nil, fmt.Errorf("import invitation %d: %w", up.GetID(), err)
			}
			tracked[up.GetID()] = struct{}{}
			res.NewFromGitHub++
		}
	}

	log.Infof("[Invitations] Sync done: accepted=%d failed=%d imported=%d",
		res.MarkedAsAccepted, res.MarkedAsFailed, res.NewFromGitHub)
	return res, nil
}

func (s *Service) newRecord(email, status string, githubID int64, role, inviterLogin string, inviterID int64, invitedAt time.Time) *models.Invitation {
	if invitedAt.IsZero() {
		invitedAt = s.now()
	}
	if role == "" {
		role = models.InvitationRoleDirectMember
	}
	inv := &models.Invitation{
		Email:     email,
		Status:    status,
		Role:      role,
		InvitedAt: invitedAt,
		ExpiresAt: invitedAt.Add(models.InvitationTTL),
	}
	if githubID != 0 {
		inv.GitHubInvitationID = &githubID
	}
	if inviterLogin != "" {
		inv.InviterLogin = &inviterLogin
	}
	if inviterID != 0 {
		inv.InviterID = &inviterID
	}
	return inv
}

func idSet(list []*gh.Invitation) map[int64]struct{} {
	set := make(map[int64]struct{}, len(list))
	for _, inv := range list {
		set[inv.GetID()] = struct{}{}
	}
	return set
}
