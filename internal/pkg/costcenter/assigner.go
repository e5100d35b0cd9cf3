// Package costcenter enrolls newly accepted organization members into the
// default billing cost center.
package costcenter

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/OrgPilot/internal/pkg/github"
)

// Outcome of a single assignment attempt.
type Outcome string

const (
	OutcomeAssigned Outcome = "assigned"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// ResourceAssigner is the upstream call used to add users to a cost center.
type ResourceAssigner interface {
	AddUsersToCostCenter(ctx context.Context, costCenterID string, users ...string) (*github.CostCenterResourceResponse, error)
}

// Result describes what happened to one assignment.
type Result struct {
	Outcome      Outcome `json:"outcome"`
	Message      string  `json:"message"`
	CostCenterID string  `json:"cost_center_id,omitempty"`
}

// Success reports whether the user was added.
func (r Result) Success() bool {
	return r.Outcome == OutcomeAssigned
}

// Assigner adds users to the configured default cost center.
type Assigner struct {
	client          ResourceAssigner
	defaultCenterID string
	metrics         Metrics
}

// Metrics records assignment outcomes.
type Metrics interface {
	RecordCostCenterAssignment(outcome string)
}

// NewAssigner creates an assigner. An empty defaultCenterID turns every call
// into a skipped no-op.
func NewAssigner(client ResourceAssigner, defaultCenterID string, metrics Metrics) *Assigner {
	return &Assigner{
		client:          client,
		defaultCenterID: strings.TrimSpace(defaultCenterID),
		metrics:         metrics,
	}
}

// AssignDefault adds username to the default cost center. It never returns an
// error and never panics: upstream failures come back as an OutcomeFailed result.
func (a *Assigner) AssignDefault(ctx context.Context, username string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[CostCenter] Panic while adding user %s to cost center %s: %v", username, a.defaultCenterID, r)
			res = Result{
				Outcome:      OutcomeFailed,
				Message:      fmt.Sprintf("Failed to add to cost center: %v", r),
				CostCenterID: a.defaultCenterID,
			}
		}
		if a.metrics != nil {
			a.metrics.RecordCostCenterAssignment(string(res.Outcome))
		}
	}()
	return a.assign(ctx, username)
}

func (a *Assigner) assign(ctx context.Context, username string) Result {
	if a.defaultCenterID == "" {
		return Result{
			Outcome: OutcomeSkipped,
			Message: "DEFAULT_COST_CENTER_ID not configured, skipping cost center assignment",
		}
	}
	if a.client == nil {
		return Result{
			Outcome:      OutcomeSkipped,
			Message:      "no upstream client configured, skipping cost center assignment",
			CostCenterID: a.defaultCenterID,
		}
	}

	resp, err := a.client.AddUsersToCostCenter(ctx, a.defaultCenterID, username)
	if err != nil {
		log.Errorf("[CostCenter] Failed to add user %s to cost center %s: %v", username, a.defaultCenterID, err)
		return Result{
			Outcome:      OutcomeFailed,
			Message:      "Failed to add to cost center: " + err.Error(),
			CostCenterID: a.defaultCenterID,
		}
	}

	msg := "User added to cost center"
	if resp != nil && resp.Message != "" {
		msg = resp.Message
	}
	return Result{
		Outcome:      OutcomeAssigned,
		Message:      msg,
		CostCenterID: a.defaultCenterID,
	}
}
