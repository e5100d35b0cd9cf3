package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ManuelReschke/OrgPilot/app/models"
	"github.com/ManuelReschke/OrgPilot/internal/pkg/testutil"
)

func newEvent(deliveryID, action string) *models.WebhookEvent {
	return &models.WebhookEvent{
		DeliveryID: deliveryID,
		EventType:  "organization",
		Action:     testutil.Ptr(action),
		Payload:    datatypes.JSON(`{"action":"` + action + `"}`),
	}
}

func TestWebhookEventRepository_CreateIfNotExists(t *testing.T) {
	repo := NewWebhookEventRepository(testutil.NewTestDB(t))
	ctx := context.Background()

	created, err := repo.CreateIfNotExists(ctx, newEvent("d1", "member_added"))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateIfNotExists(ctx, newEvent("d1", "member_added"))
	require.NoError(t, err)
	assert.False(t, created, "second insert with the same delivery id must be dropped")

	stored, err := repo.GetByDeliveryID(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, models.WebhookStatusPending, stored.Status)
	assert.Nil(t, stored.ProcessedAt)
	assert.Nil(t, stored.ErrorMessage)
	assert.Equal(t, "member_added", stored.ActionName())

	_, total, err := repo.List(ctx, WebhookEventFilter{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestWebhookEventRepository_GetByDeliveryIDNotFound(t *testing.T) {
	repo := NewWebhookEventRepository(testutil.NewTestDB(t))

	_, err := repo.GetByDeliveryID(context.Background(), "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestWebhookEventRepository_FindPendingOldestFirst(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewWebhookEventRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"c", "a", "b"} {
		e := newEvent(id, "member_added")
		_, err := repo.CreateIfNotExists(ctx, e)
		require.NoError(t, err)
		// created_at order: a < b < c
		offset := map[string]time.Duration{"a": 0, "b": time.Minute, "c": 2 * time.Minute}[id]
		require.NoError(t, db.Model(&models.WebhookEvent{}).Where("id = ?", e.ID).
			Update("created_at", base.Add(offset)).Error, "event %d", i)
	}

	resolved := newEvent("done", "member_added")
	_, err := repo.CreateIfNotExists(ctx, resolved)
	require.NoError(t, err)
	ok, err := repo.MarkProcessed(ctx, resolved.ID, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	pending, err := repo.FindPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, "a", pending[0].DeliveryID)
	assert.Equal(t, "b", pending[1].DeliveryID)
	assert.Equal(t, "c", pending[2].DeliveryID)
}

func TestWebhookEventRepository_TerminalTransitionsAreOneWay(t *testing.T) {
	repo := NewWebhookEventRepository(testutil.NewTestDB(t))
	ctx := context.Background()

	e := newEvent("d1", "member_added")
	_, err := repo.CreateIfNotExists(ctx, e)
	require.NoError(t, err)

	at := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	ok, err := repo.MarkFailed(ctx, e.ID, "boom", at)
	require.NoError(t, err)
	assert.True(t, ok)
	// a late run must not flip the failed row back to processed
	ok, err = repo.MarkProcessed(ctx, e.ID, at.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok, "resolved rows report no transition")

	stored, err := repo.GetByDeliveryID(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, models.WebhookStatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, "boom", *stored.ErrorMessage)
	require.NotNil(t, stored.ProcessedAt)
	assert.True(t, stored.ProcessedAt.Equal(at))
}

func TestWebhookEventRepository_ListFiltersAndPaginates(t *testing.T) {
	repo := NewWebhookEventRepository(testutil.NewTestDB(t))
	ctx := context.Background()

	for _, tc := range []struct{ id, action string }{
		{"d1", "member_added"},
		{"d2", "member_invited"},
		{"d3", "member_added"},
		{"d4", "member_removed"},
	} {
		_, err := repo.CreateIfNotExists(ctx, newEvent(tc.id, tc.action))
		require.NoError(t, err)
	}
	other := newEvent("d5", "created")
	other.EventType = "repository"
	_, err := repo.CreateIfNotExists(ctx, other)
	require.NoError(t, err)

	events, total, err := repo.List(ctx, WebhookEventFilter{Action: "member_added", Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, events, 1)

	events, total, err = repo.List(ctx, WebhookEventFilter{EventType: "organization", Limit: 10, Offset: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, events, 2)

	_, total, err = repo.List(ctx, WebhookEventFilter{Status: models.WebhookStatusProcessed, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
}
