package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/OrgPilot/app/models"
	"github.com/ManuelReschke/OrgPilot/internal/pkg/costcenter"
	"github.com/ManuelReschke/OrgPilot/internal/pkg/invitation"
)

var errMissingMember = errors.New("payload has no membership.user")

// InvitationService is what the organization handlers need from the
// invitation package.
type InvitationService interface {
	MatchAcceptedMember(ctx context.Context, member invitation.AcceptedMember) (invitation.MatchResult, error)
	TrackInvitedMember(ctx context.Context, in invitation.InvitedMember) (bool, error)
}

// CostCenterAssigner enrolls a user into the default cost center.
type CostCenterAssigner interface {
	AssignDefault(ctx context.Context, username string) costcenter.Result
}

// OrganizationHandlers implements the organization membership actions.
type OrganizationHandlers struct {
	Invitations InvitationService
	CostCenters CostCenterAssigner
}

// Register wires the organization actions into p.
func (h *OrganizationHandlers) Register(p *Processor) {
	p.Handle(DispatchKey{EventTypeOrganization, ActionMemberAdded}, h.memberAdded)
	p.Handle(DispatchKey{EventTypeOrganization, ActionMemberInvited}, h.memberInvited)
	p.Handle(DispatchKey{EventTypeOrganization, ActionMemberRemoved}, h.memberRemoved)
}

func decodeOrganization(event *models.WebhookEvent) (*OrganizationPayload, error) {
	var payload OrganizationPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &payload, nil
}

func (h *OrganizationHandlers) memberAdded(ctx context.Context, event *models.WebhookEvent) error {
	payload, err := decodeOrganization(event)
	if err != nil {
		return err
	}
	if payload.Membership == nil || payload.Membership.User == nil || payload.Membership.User.Login == "" {
		return errMissingMember
	}
	user := payload.Membership.User

	member := invitation.AcceptedMember{Login: user.Login, UserID: user.ID}
	if ref := payload.Invitation; ref != nil {
		member.InvitationID = ref.ID
		member.InvitationEmail = ref.Email
	}

	match, err := h.Invitations.MatchAcceptedMember(ctx, member)
	if err != nil {
		return err
	}
	if !match.Matched || h.CostCenters == nil {
		return nil
	}

	res := h.CostCenters.AssignDefault(ctx, user.Login)
	if res.Success() {
		log.Infof("[WebhookProcessor] Added %s to cost center %s", user.Login, res.CostCenterID)
	} else {
		log.Infof("[WebhookProcessor] Cost center assignment %s for %s: %s", res.Outcome, user.Login, res.Message)
	}
	return nil
}

func (h *OrganizationHandlers) memberInvited(ctx context.Context, event *models.WebhookEvent) error {
	payload, err := decodeOrganization(event)
	if err != nil {
		return err
	}
	ref := payload.Invitation
	if ref == nil {
		return nil
	}

	in := invitation.InvitedMember{
		InvitationID: ref.ID,
		Email:        ref.Email,
		Role:         ref.Role,
	}
	if ref.Inviter != nil {
		in.InviterLogin = ref.Inviter.Login
		in.InviterID = ref.Inviter.ID
	}
	if t, err := time.Parse(time.RFC3339, ref.CreatedAt); err == nil {
		in.CreatedAt = t.UTC()
	}
	_, err = h.Invitations.TrackInvitedMember(ctx, in)
	return err
}

func (h *OrganizationHandlers) memberRemoved(_ context.Context, event *models.WebhookEvent) error {
	payload, err := decodeOrganization(event)
	if err != nil {
		return err
	}
	login := ""
	if payload.Membership != nil && payload.Membership.User != nil {
		login = payload.Membership.User.Login
	}
	log.Infof("[WebhookProcessor] Member removed: %s", login)
	return nil
}
