// Package github wraps the upstream GitHub REST API calls the dashboard depends on.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v66/github"
	"golang.org/x/time/rate"
)

const (
	apiVersionHeader = "X-GitHub-Api-Version"
	apiVersion       = "2022-11-28"
	perPage          = 100
)

// ErrNotConfigured is returned when a call needs an organization or enterprise
// name that was not configured.
var ErrNotConfigured = errors.New("github client is not configured")

// Config holds the credentials and scope of the system client.
type Config struct {
	Token      string
	Org        string
	Enterprise string
	// BaseURL overrides https://api.github.com/, e.g. for GHES.
	BaseURL string
	// RequestsPerSecond throttles outgoing calls; zero means 5/s.
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Client is a rate-limited GitHub API client.
type Client struct {
	gh         *gh.Client
	org        string
	enterprise string
	limiter    *rate.Limiter
}

// CostCenterResourceResponse is the upstream reply to a resource assignment.
type CostCenterResourceResponse struct {
	Message             string                 `json:"message"`
	ReassignedResources []ResourceReassignment `json:"reassigned_resources,omitempty"`
}

// ResourceReassignment reports a resource moved away from a previous cost center.
type ResourceReassignment struct {
	ResourceType       string `json:"resource_type"`
	Name               string `json:"name"`
	PreviousCostCenter string `json:"previous_cost_center"`
}

type costCenterResourceRequest struct {
	Users []string `json:"users"`
}

// NewClient creates a client from cfg.
func NewClient(cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := gh.NewClient(&http.Client{Timeout: timeout})
	if token := strings.TrimSpace(cfg.Token); token != "" {
		client = client.WithAuthToken(token)
	}
	client.UserAgent = "orgpilot/1.0"

	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid github base url: %w", err)
		}
		client.BaseURL = u
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}

	return &Client{
		gh:         client,
		org:        strings.TrimSpace(cfg.Org),
		enterprise: strings.TrimSpace(cfg.Enterprise),
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

// AddUsersToCostCenter enrolls users into an enterprise billing cost center.
func (c *Client) AddUsersToCostCenter(ctx context.Context, costCenterID string, users ...string) (*CostCenterResourceResponse, error) {
	if c.enterprise == "" {
		return nil, fmt.Errorf("%w: enterprise name missing", ErrNotConfigured)
	}
	if strings.TrimSpace(costCenterID) == "" {
		return nil, errors.New("cost center id is required")
	}
	if len(users) == 0 {
		return nil, errors.New("at least one user is required")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("enterprises/%s/settings/billing/cost-centers/%s/resource",
		url.PathEscape(c.enterprise), url.PathEscape(costCenterID))
	req, err := c.gh.NewRequest(http.MethodPost, path, &costCenterResourceRequest{Users: users})
	if err != nil {
		return nil, err
	}
	req.Header.Set(apiVersionHeader, apiVersion)

	var out CostCenterResourceResponse
	if _, err := c.gh.Do(ctx, req, &out); err != nil {
		return nil, fmt.Errorf("add users to cost center %s: %w", costCenterID, err)
	}
	return &out, nil
}

// CreateInvitation invites an email address into the configured organization.
func (c *Client) CreateInvitation(ctx context.Context, email, role string, teamIDs []int64) (*gh.Invitation, error) {
	if c.org == "" {
		return nil, fmt.Errorf("%w: organization name missing", ErrNotConfigured)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	opts := &gh.CreateOrgInvitationOptions{
		Email:  gh.String(email),
		Role:   gh.String(role),
		TeamID: teamIDs,
	}
	inv, _, err := c.gh.Organizations.CreateOrgInvitation(ctx, c.org, opts)
	if err != nil {
		return nil, fmt.Errorf("create invitation for %s: %w", email, err)
	}
	return inv, nil
}

// ListPendingInvitations returns every pending invitation of the organization.
func (c *Client) ListPendingInvitations(ctx context.Context) ([]*gh.Invitation, error) {
	return c.paginate(ctx, c.gh.Organizations.ListPendingOrgInvitations)
}

// ListFailedInvitations returns every failed invitation of the organization.
func (c *Client) ListFailedInvitations(ctx context.Context) ([]*gh.Invitation, error) {
	return c.paginate(ctx, c.gh.Organizations.ListFailedOrgInvitations)
}

type listInvitationsFunc func(ctx context.Context, org string, opts *gh.ListOptions) ([]*gh.Invitation, *gh.Response, error)

func (c *Client) paginate(ctx context.Context, list listInvitationsFunc) ([]*gh.Invitation, error) {
	if c.org == "" {
		return nil, fmt.Errorf("%w: organization name missing", ErrNotConfigured)
	}
	opts := &gh.ListOptions{PerPage: perPage}
	var all []*gh.Invitation
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		page, resp, err := list(ctx, c.org, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if resp == nil || resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}
