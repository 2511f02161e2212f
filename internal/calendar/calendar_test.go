package calendar

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/p-blackswan/pm-agent/internal/errors"
	"github.com/p-blackswan/pm-agent/pkg/tokenstore"
)

func testAccount(t *testing.T) ServiceAccount {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return ServiceAccount{Email: "bot@project.iam.gserviceaccount.com", PrivateKey: key}
}

func setupTestClient(t *testing.T, events []map[string]any) (*Client, *atomic.Int32, *httptest.Server) {
	t.Helper()
	var tokenCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:jwt-bearer", r.Form.Get("grant_type"))
		assert.NotEmpty(t, r.Form.Get("assertion"))
		json.NewEncoder(w).Encode(map[string]any{"access_token": "at-123", "expires_in": 3600})
	})
	mux.HandleFunc("/calendars/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-123", r.Header.Get("Authorization"))
		assert.Equal(t, "true", r.URL.Query().Get("singleEvents"))
		json.NewEncoder(w).Encode(map[string]any{"items": events})
	})
	server := httptest.NewServer(mux)

	client := NewClient(testAccount(t), "primary", tokenstore.NewMemoryStore(), zerolog.Nop(),
		WithAPIBase(server.URL),
		WithTokenEndpoint(server.URL+"/token"),
		WithHTTPClient(server.Client()),
	)
	return client, &tokenCalls, server
}

func TestRecentMeetings_MapsEvents(t *testing.T) {
	events := []map[string]any{
		{
			"id":          "ev1",
			"summary":     "Sprint Planning",
			"description": "Planned the sprint.",
			"start":       map[string]string{"dateTime": "2026-08-28T09:00:00Z"},
			"end":         map[string]string{"dateTime": "2026-08-28T10:00:00Z"},
			"attendees": []map[string]string{
				{"email": "dana@example.com"},
				{"email": "kim@example.com"},
			},
			"attachments": []map[string]string{
				{"title": "Meeting transcript", "fileUrl": "https://drive.example.com/t1"},
			},
		},
	}
	client, _, server := setupTestClient(t, events)
	defer server.Close()

	meetings, err := client.RecentMeetings(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, meetings, 1)

	m := meetings[0]
	assert.Equal(t, "Sprint Planning", m.Title)
	assert.Equal(t, "Planned the sprint.", m.Notes)
	assert.Equal(t, time.Hour, m.Duration)
	assert.Equal(t, []string{"dana@example.com", "kim@example.com"}, m.Attendees)
	assert.Equal(t, "https://drive.example.com/t1", m.Transcript)
}

func TestAccessToken_CachedAcrossCalls(t *testing.T) {
	client, tokenCalls, server := setupTestClient(t, nil)
	defer server.Close()

	_, err := client.RecentMeetings(context.Background(), 7)
	require.NoError(t, err)
	_, err = client.RecentMeetings(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, int32(1), tokenCalls.Load())
}

func TestSearchMeetings_KeywordFilter(t *testing.T) {
	events := []map[string]any{
		{"id": "ev1", "summary": "Roadmap sync", "description": ""},
		{"id": "ev2", "summary": "Standup", "description": "Discussed the roadmap briefly"},
		{"id": "ev3", "summary": "1:1", "description": "career chat"},
	}
	client, _, server := setupTestClient(t, events)
	defer server.Close()

	meetings, err := client.SearchMeetings(context.Background(), "ROADMAP", 30)
	require.NoError(t, err)
	require.Len(t, meetings, 2)
	assert.Equal(t, "ev1", meetings[0].ID)
	assert.Equal(t, "ev2", meetings[1].ID)
}

func TestSearchMeetings_NoMatches(t *testing.T) {
	events := []map[string]any{
		{"id": "ev1", "summary": "Standup"},
	}
	client, _, server := setupTestClient(t, events)
	defer server.Close()

	meetings, err := client.SearchMeetings(context.Background(), "retrospective", 30)
	require.NoError(t, err)
	assert.Empty(t, meetings)
}

func TestAccessToken_ErrorSurfacesAsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(testAccount(t), "primary", tokenstore.NewMemoryStore(), zerolog.Nop(),
		WithAPIBase(server.URL),
		WithTokenEndpoint(server.URL+"/token"),
		WithHTTPClient(server.Client()),
	)

	_, err := client.RecentMeetings(context.Background(), 7)
	require.Error(t, err)

	var apiErr *perrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.True(t, strings.Contains(apiErr.Message, "invalid_grant"))
}

func TestParseServiceAccount_BadKey(t *testing.T) {
	_, err := ParseServiceAccount("bot@example.com", "not a pem key")
	require.Error(t, err)
}
