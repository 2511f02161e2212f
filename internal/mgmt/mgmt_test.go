package mgmt

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/pm-agent/internal/health"
	"github.com/p-blackswan/pm-agent/internal/store"
	"github.com/p-blackswan/pm-agent/internal/tasks"
)

type fakeConversations struct {
	active int
	steps  map[string]int
}

func (f *fakeConversations) Len() int              { return f.active }
func (f *fakeConversations) Steps() map[string]int { return f.steps }

func setupServer(t *testing.T, authMode, apiKey string) (*fiber.App, *tasks.Runner) {
	t.Helper()

	runner := tasks.NewRunner(tasks.Config{Workers: 1}, zerolog.Nop())
	runner.Start(context.Background())
	t.Cleanup(runner.Stop)

	checker := health.NewChecker(zerolog.Nop())
	checker.Register("jira", func(ctx context.Context) health.Status { return health.StatusOK })

	conversations := &fakeConversations{active: 2, steps: map[string]int{"awaiting_choice": 2}}
	handlers := NewHandlers(runner, checker, conversations, "1.0.0", zerolog.Nop())

	srv := NewServer(ServerConfig{
		AuthConfig: AuthConfig{Mode: authMode, APIKey: apiKey},
	}, handlers, nil, zerolog.Nop())

	return srv.App(), runner
}

func get(t *testing.T, app *fiber.App, path, key string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestAuthNoneMode(t *testing.T) {
	app, _ := setupServer(t, "none", "")
	resp := get(t, app, "/api/v1/conversations", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthMissingKey(t *testing.T) {
	app, _ := setupServer(t, "api-key", "secret")
	resp := get(t, app, "/api/v1/conversations", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var problem ProblemDetail
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
	assert.Equal(t, "missing_auth", problem.Type)
}

func TestAuthWrongKey(t *testing.T) {
	app, _ := setupServer(t, "api-key", "secret")
	resp := get(t, app, "/api/v1/conversations", "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var problem ProblemDetail
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
	assert.Equal(t, "invalid_api_key", problem.Type)
}

func TestProbesSkipAuth(t *testing.T) {
	app, _ := setupServer(t, "api-key", "secret")

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp := get(t, app, path, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode, "path: %s", path)
	}
}

func TestListTasks(t *testing.T) {
	app, runner := setupServer(t, "none", "")

	require.NoError(t, runner.Submit("epic_creation", "U1", "C1", func(ctx context.Context) error {
		return nil
	}))
	require.Eventually(t, func() bool {
		return runner.Summary().ByStatus[string(tasks.StatusCompleted)] == 1
	}, 2*time.Second, 10*time.Millisecond)

	resp := get(t, app, "/api/v1/tasks", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body TaskListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Tasks, 1)
	assert.Equal(t, "epic_creation", body.Tasks[0].Kind)
	assert.Equal(t, 1, body.Total)
}

func TestGetTaskNotFound(t *testing.T) {
	app, _ := setupServer(t, "none", "")
	resp := get(t, app, "/api/v1/tasks/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTasksSummary(t *testing.T) {
	app, _ := setupServer(t, "none", "")
	resp := get(t, app, "/api/v1/tasks/summary", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body tasks.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Zero(t, body.Total)
}

func TestListConversations(t *testing.T) {
	app, _ := setupServer(t, "none", "")
	resp := get(t, app, "/api/v1/conversations", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body ConversationsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2, body.Active)
	assert.Equal(t, 2, body.Steps["awaiting_choice"])
}

func TestHealthDetail(t *testing.T) {
	app, _ := setupServer(t, "none", "")
	resp := get(t, app, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body HealthDetailResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.Backends["jira"])
	assert.Equal(t, "1.0.0", body.Version)
}

func TestAuditWithoutStore(t *testing.T) {
	app, _ := setupServer(t, "none", "")
	resp := get(t, app, "/api/v1/audit", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAuditWithStore(t *testing.T) {
	runner := tasks.NewRunner(tasks.Config{Workers: 1}, zerolog.Nop())
	runner.Start(context.Background())
	t.Cleanup(runner.Stop)

	checker := health.NewChecker(zerolog.Nop())
	handlers := NewHandlers(runner, checker, &fakeConversations{}, "1.0.0", zerolog.Nop())

	db, err := store.New(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Audit(context.Background(), "epic_created", "U1", "PROJ-1"))
	handlers.SetStore(db)

	srv := NewServer(ServerConfig{AuthConfig: AuthConfig{Mode: "none"}}, handlers, nil, zerolog.Nop())
	resp := get(t, srv.App(), "/api/v1/audit", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body AuditResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Entries, 1)
	assert.Equal(t, "epic_created", body.Entries[0].Event)
	assert.Equal(t, "PROJ-1", body.Entries[0].Detail)
}
