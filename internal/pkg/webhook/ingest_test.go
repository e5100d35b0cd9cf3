package webhook

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/OrgPilot/app/models"
	"github.com/ManuelReschke/OrgPilot/app/repository"
	"github.com/ManuelReschke/OrgPilot/internal/pkg/testutil"
)

const testSecret = "topsecret"

type recordingMetrics struct {
	mu        sync.Mutex
	received  []string
	processed []string
	runs      int
}

func (m *recordingMetrics) RecordReceived(eventType, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = append(m.received, eventType+":"+outcome)
}

func (m *recordingMetrics) RecordProcessed(eventType, action, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed = append(m.processed, eventType+"."+action+":"+status)
}

func (m *recordingMetrics) ObserveRun(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
}

func signedInput(deliveryID string, body string) IngestInput {
	return IngestInput{
		DeliveryID: deliveryID,
		EventType:  EventTypeOrganization,
		Signature:  Sign([]byte(body), testSecret),
		Body:       []byte(body),
	}
}

func TestIngest_StoresPendingOnce(t *testing.T) {
	repos := repository.NewRepositories(testutil.NewTestDB(t))
	metrics := &recordingMetrics{}
	ing := NewIngestor(repos.WebhookEvent, testSecret, metrics)
	ctx := context.Background()

	body := `{"action":"member_added","membership":{"user":{"login":"alice","id":42}},"invitation":{"id":7}}`
	outcome, err := ing.Ingest(ctx, signedInput("d1", body))
	require.NoError(t, err)
	assert.Equal(t, OutcomeStored, outcome)

	outcome, err = ing.Ingest(ctx, signedInput("d1", body))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	events, total, err := repos.WebhookEvent.List(ctx, repository.WebhookEventFilter{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, models.WebhookStatusPending, events[0].Status)
	assert.Equal(t, ActionMemberAdded, events[0].ActionName())
	assert.JSONEq(t, body, string(events[0].Payload))
	assert.Equal(t, []string{"organization:stored", "organization:duplicate"}, metrics.received)
}

func TestIngest_DoesNotTouchInvitations(t *testing.T) {
	repos := repository.NewRepositories(testutil.NewTestDB(t))
	ing := NewIngestor(repos.WebhookEvent, testSecret, nil)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repos.Invitation.Create(ctx, &models.Invitation{
		Email:              "a@co.com",
		Status:             models.InvitationStatusPending,
		Role:               models.InvitationRoleDirectMember,
		GitHubInvitationID: testutil.Ptr(int64(7)),
		InvitedAt:          now,
		ExpiresAt:          now.Add(models.InvitationTTL),
	}))

	body := `{"action":"member_added","membership":{"user":{"login":"alice","id":42}},"invitation":{"id":7,"email":"a@co.com"}}`
	_, err := ing.Ingest(ctx, signedInput("d1", body))
	require.NoError(t, err)

	inv, err := repos.Invitation.GetByGitHubInvitationID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusPending, inv.Status)
	assert.Nil(t, inv.GitHubUsername)
}

func TestIngest_Rejections(t *testing.T) {
	repos := repository.NewRepositories(testutil.NewTestDB(t))
	ctx := context.Background()

	_, err := NewIngestor(repos.WebhookEvent, "", nil).Ingest(ctx, signedInput("d1", `{}`))
	assert.ErrorIs(t, err, ErrSecretNotConfigured)

	ing := NewIngestor(repos.WebhookEvent, testSecret, nil)

	in := signedInput("d2", `{"action":"member_added"}`)
	in.Body = []byte(`{"action":"member_addeD"}`)
	_, err = ing.Ingest(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = ing.Ingest(ctx, signedInput("d3", `{not json`))
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, total, err := repos.WebhookEvent.List(ctx, repository.WebhookEventFilter{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestIngest_MissingDeliveryIDFallsBackToBodyHash(t *testing.T) {
	repos := repository.NewRepositories(testutil.NewTestDB(t))
	ing := NewIngestor(repos.WebhookEvent, testSecret, nil)
	ctx := context.Background()

	body := `{"action":"member_removed"}`
	outcome, err := ing.Ingest(ctx, signedInput("", body))
	require.NoError(t, err)
	assert.Equal(t, OutcomeStored, outcome)

	outcome, err = ing.Ingest(ctx, signedInput("  ", body))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	stored, err := repos.WebhookEvent.GetByDeliveryID(ctx, BodyDeliveryID([]byte(body)))
	require.NoError(t, err)
	assert.Equal(t, ActionMemberRemoved, stored.ActionName())
}
