package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, mux *http.ServeMux, cfg Config) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL
	cfg.RequestsPerSecond = 1000
	client, err := NewClient(cfg)
	require.NoError(t, err)
	return client
}

func TestAddUsersToCostCenter(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/enterprises/acme/settings/billing/cost-centers/cc-1/resource", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "2022-11-28", r.Header.Get("X-GitHub-Api-Version"))
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))

		var body costCenterResourceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"alice"}, body.Users)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"Resources successfully added to the cost center."}`))
	})

	client := newTestClient(t, mux, Config{Token: "secret-token", Enterprise: "acme"})
	resp, err := client.AddUsersToCostCenter(context.Background(), "cc-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "Resources successfully added to the cost center.", resp.Message)
}

func TestAddUsersToCostCenter_UpstreamError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/enterprises/acme/settings/billing/cost-centers/cc-1/resource", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"Must be an enterprise admin"}`))
	})

	client := newTestClient(t, mux, Config{Enterprise: "acme"})
	_, err := client.AddUsersToCostCenter(context.Background(), "cc-1", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cc-1")
}

func TestAddUsersToCostCenter_RequiresEnterprise(t *testing.T) {
	client := newTestClient(t, http.NewServeMux(), Config{})
	_, err := client.AddUsersToCostCenter(context.Background(), "cc-1", "alice")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestListPendingInvitations_FollowsPagination(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/orgs/acme/invitations", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			_, _ = w.Write([]byte(`[{"id":3,"email":"c@co.com"}]`))
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/orgs/acme/invitations?page=2&per_page=100>; rel="next"`, srvURL))
		_, _ = w.Write([]byte(`[{"id":1,"email":"a@co.com"},{"id":2,"email":"b@co.com"}]`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	client, err := NewClient(Config{Org: "acme", BaseURL: srv.URL, RequestsPerSecond: 1000})
	require.NoError(t, err)

	invitations, err := client.ListPendingInvitations(context.Background())
	require.NoError(t, err)
	require.Len(t, invitations, 3)
	assert.EqualValues(t, 3, invitations[2].GetID())
	assert.Equal(t, "c@co.com", invitations[2].GetEmail())
}

func TestCreateInvitation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/orgs/acme/invitations", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "new@co.com", body["email"])
		assert.Equal(t, "direct_member", body["role"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":77,"email":"new@co.com","role":"direct_member"}`))
	})

	client := newTestClient(t, mux, Config{Org: "acme"})
	inv, err := client.CreateInvitation(context.Background(), "new@co.com", "direct_member", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 77, inv.GetID())
}
