package jira

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/p-blackswan/pm-agent/internal/errors"
	"github.com/p-blackswan/pm-agent/internal/models"
)

type noopAuth struct{}

func (n *noopAuth) Apply(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer test-token")
	return nil
}

func setupTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	client := NewClient(server.URL, "PROJ", &noopAuth{}, zerolog.Nop())
	client.SetHTTPClient(server.Client())
	return client, server
}

func decodeFields(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var payload struct {
		Fields map[string]any `json:"fields"`
	}
	require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
	return payload.Fields
}

func TestClient_CreateEpic(t *testing.T) {
	client, server := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/api/2/issue", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		fields := decodeFields(t, r)
		assert.Equal(t, "Payment integration", fields["summary"])
		assert.Equal(t, map[string]any{"name": "Epic"}, fields["issuetype"])
		assert.Equal(t, map[string]any{"name": "High"}, fields["priority"])
		assert.Equal(t, "Payment integration", fields[defaultEpicNameField])
		assert.Equal(t, []any{"payments"}, fields["labels"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(createIssueResponse{ID: "10001", Key: "PROJ-1"})
	})
	defer server.Close()

	epic, err := client.CreateEpic(context.Background(), "Payment integration", "Integrate the gateway", "High", []string{"payments"})
	require.NoError(t, err)
	assert.Equal(t, "PROJ-1", epic.Key)
	assert.Equal(t, "To Do", epic.Status)
	assert.Equal(t, server.URL+"/browse/PROJ-1", epic.URL)
}

func TestClient_CreateEpic_DefaultsPriority(t *testing.T) {
	client, server := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fields := decodeFields(t, r)
		assert.Equal(t, map[string]any{"name": "Medium"}, fields["priority"])
		json.NewEncoder(w).Encode(createIssueResponse{Key: "PROJ-2"})
	})
	defer server.Close()

	_, err := client.CreateEpic(context.Background(), "Epic", "Description", "", nil)
	require.NoError(t, err)
}

func TestClient_CreateUserStory_AppendsCriteriaAndPoints(t *testing.T) {
	client, server := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fields := decodeFields(t, r)
		assert.Equal(t, map[string]any{"name": "Story"}, fields["issuetype"])
		assert.Equal(t, float64(5), fields[defaultStoryPointsField])

		desc, ok := fields["description"].(string)
		require.True(t, ok)
		assert.Contains(t, desc, "Acceptance Criteria:")
		assert.Contains(t, desc, "1. Receipts are emailed (Must)")
		assert.Contains(t, desc, "2. Receipts are downloadable (Should)")

		json.NewEncoder(w).Encode(createIssueResponse{ID: "10002", Key: "PROJ-3"})
	})
	defer server.Close()

	draft := models.StoryDraft{
		Title:       "As a user I want receipts",
		Description: "As a user, I want receipts so that I can expense purchases.",
		AcceptanceCriteria: []models.AcceptanceCriterion{
			{Text: "Receipts are emailed", Priority: "Must"},
			{Text: "Receipts are downloadable", Priority: "Should"},
		},
		StoryPoints: 5,
		Priority:    "High",
	}
	story, err := client.CreateUserStory(context.Background(), draft)
	require.NoError(t, err)
	assert.Equal(t, "PROJ-3", story.Key)
	assert.Equal(t, 5, story.StoryPoints)
}

func TestClient_LinkStoryToEpic(t *testing.T) {
	client, server := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/2/issueLink", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, map[string]any{"key": "PROJ-3"}, payload["inwardIssue"])
		assert.Equal(t, map[string]any{"key": "PROJ-1"}, payload["outwardIssue"])

		w.WriteHeader(http.StatusCreated)
	})
	defer server.Close()

	require.NoError(t, client.LinkStoryToEpic(context.Background(), "PROJ-3", "PROJ-1"))
}

func TestClient_GetEpic(t *testing.T) {
	client, server := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/2/issue/PROJ-1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"id":  "10001",
			"key": "PROJ-1",
			"fields": map[string]any{
				"summary":     "Payment integration",
				"description": "Integrate the gateway",
				"status":      map[string]string{"name": "In Progress"},
				"priority":    map[string]string{"name": "High"},
				"labels":      []string{"payments"},
			},
		})
	})
	defer server.Close()

	epic, err := client.GetEpic(context.Background(), "PROJ-1")
	require.NoError(t, err)
	assert.Equal(t, "Payment integration", epic.Title)
	assert.Equal(t, "In Progress", epic.Status)
	assert.Equal(t, []string{"payments"}, epic.Labels)
}

func TestClient_GetEpicStories(t *testing.T) {
	client, server := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/2/search", r.URL.Path)
		jql := r.URL.Query().Get("jql")
		assert.Contains(t, jql, `project = PROJ`)
		assert.Contains(t, jql, `"Epic Link" = PROJ-1`)

		json.NewEncoder(w).Encode(map[string]any{
			"total": 2,
			"issues": []map[string]any{
				{"id": "1", "key": "PROJ-2", "fields": map[string]any{"summary": "First story"}},
				{"id": "2", "key": "PROJ-3", "fields": map[string]any{"summary": "Second story"}},
			},
		})
	})
	defer server.Close()

	stories, err := client.GetEpicStories(context.Background(), "PROJ-1")
	require.NoError(t, err)
	require.Len(t, stories, 2)
	assert.Equal(t, "PROJ-1", stories[0].EpicKey)
	assert.Equal(t, "First story", stories[0].Title)
}

func TestClient_APIErrorOnFailure(t *testing.T) {
	client, server := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "field 'priority' is required", http.StatusBadRequest)
	})
	defer server.Close()

	_, err := client.CreateEpic(context.Background(), "Epic", "Description", "High", nil)
	require.Error(t, err)

	var apiErr *perrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "jira", apiErr.Service)
}

func TestClient_Myself(t *testing.T) {
	client, server := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/2/myself", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"accountId": "abc"})
	})
	defer server.Close()

	require.NoError(t, client.Myself(context.Background()))
}

func TestBasicAuth(t *testing.T) {
	auth := &BasicAuth{Email: "pm@example.com", APIToken: "token123"}
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	require.NoError(t, auth.Apply(req))
	assert.Contains(t, req.Header.Get("Authorization"), "Basic ")
}

func TestTokenAuth(t *testing.T) {
	auth := &TokenAuth{AccessToken: "at-123"}
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	require.NoError(t, auth.Apply(req))
	assert.Equal(t, "Bearer at-123", req.Header.Get("Authorization"))
}

func TestTokenAuth_Empty(t *testing.T) {
	auth := &TokenAuth{}
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	assert.Error(t, auth.Apply(req))
}
