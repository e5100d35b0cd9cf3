package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/OrgPilot/app/models"
	"github.com/ManuelReschke/OrgPilot/internal/pkg/github"
	"github.com/ManuelReschke/OrgPilot/internal/pkg/invitation"
)

// InvitationManager is the invitation service surface the API exposes.
type InvitationManager interface {
	Invite(ctx context.Context, in invitation.InviteInput) (*models.Invitation, error)
	List(ctx context.Context, status string) ([]models.Invitation, error)
	Sync(ctx context.Context) (*invitation.SyncResult, error)
}

type InvitationController struct {
	invitations InvitationManager
}

func NewInvitationController(invitations InvitationManager) *InvitationController {
	return &InvitationController{invitations: invitations}
}

func (ic *InvitationController) HandleList(c *fiber.Ctx) error {
	status := c.Query("status")
	if status != "" && status != "all" && !models.IsValidInvitationStatus(status) {
		return jsonError(c, fiber.StatusBadRequest, "invalid_query", "Unknown invitation status")
	}

	list, err := ic.invitations.List(c.UserContext(), status)
	if err != nil {
		log.Errorf("[Invitations] list: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load invitations")
	}
	if list == nil {
		list = []models.Invitation{}
	}
	return c.JSON(fiber.Map{"invitations": list, "total": len(list)})
}

func (ic *InvitationController) HandleInvite(c *fiber.Ctx) error {
	var in invitation.InviteInput
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
	}

	inv, err := ic.invitations.Invite(c.UserContext(), in)
	switch {
	case errors.Is(err, invitation.ErrInvalidEmail), errors.Is(err, invitation.ErrInvalidRole):
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, invitation.ErrAlreadyInvited):
		return jsonError(c, fiber.StatusConflict, "already_invited", invitation.ErrAlreadyInvited.Error())
	case errors.Is(err, invitation.ErrUpstreamMissing), errors.Is(err, github.ErrNotConfigured):
		return jsonError(c, fiber.StatusServiceUnavailable, "upstream_not_configured", err.Error())
	case err != nil:
		log.Errorf("[Invitations] invite: %v", err)
		return jsonError(c, fiber.StatusBadGateway, "upstream_error", "Failed to create invitation")
	}
	return c.Status(fiber.StatusCreated).JSON(inv)
}

func (ic *InvitationController) HandleSync(c *fiber.Ctx) error {
	res, err := ic.invitations.Sync(c.UserContext())
	if errors.Is(err, invitation.ErrUpstreamMissing) || errors.Is(err, github.ErrNotConfigured) {
		return jsonError(c, fiber.StatusServiceUnavailable, "upstream_not_configured", err.Error())
	}
	if err != nil {
		log.Errorf("[Invitations] sync: %v", err)
		return jsonError(c, fiber.StatusBadGateway, "sync_failed", "Failed to sync invitations")
	}
	return c.JSON(fiber.Map{"success": true, "stats": res})
}
