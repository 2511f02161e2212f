package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getMetricsBody(t *testing.T, m *Metrics) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNewRegistersAll(t *testing.T) {
	m := New()

	require.NotNil(t, m.MessagesTotal)
	require.NotNil(t, m.ConversationsGauge)
	require.NotNil(t, m.WorkflowsTotal)
	require.NotNil(t, m.TasksTotal)
	require.NotNil(t, m.TaskDurationSeconds)
	require.NotNil(t, m.SweptTotal)
}

func TestMessageHandled(t *testing.T) {
	m := New()

	m.MessageHandled("awaiting_choice")
	m.MessageHandled("awaiting_choice")
	m.MessageHandled("epic_details")

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `pm_agent_messages_total{step="awaiting_choice"} 2`)
	assert.Contains(t, body, `pm_agent_messages_total{step="epic_details"} 1`)
}

func TestConversationsActive(t *testing.T) {
	m := New()

	m.ConversationsActive(4)

	body := getMetricsBody(t, m)
	assert.Contains(t, body, "pm_agent_conversations_active 4")
}

func TestWorkflowLifecycle(t *testing.T) {
	m := New()

	m.WorkflowStarted("epic_creation")
	m.WorkflowStarted("meeting_processing")
	m.WorkflowFinished("epic_creation", true)
	m.WorkflowFinished("meeting_processing", false)

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `pm_agent_workflows_total{kind="epic_creation",status="success"} 1`)
	assert.Contains(t, body, `pm_agent_workflows_total{kind="meeting_processing",status="failure"} 1`)
	assert.Contains(t, body, "pm_agent_workflows_inflight 0")
}

func TestTaskLifecycle(t *testing.T) {
	m := New()

	m.TaskSubmitted()
	m.TaskSubmitted()
	m.TaskFinished("epic_creation", "completed", 1.5)

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `pm_agent_tasks_total{status="completed"} 1`)
	assert.Contains(t, body, "pm_agent_tasks_inflight 1")
	assert.Contains(t, body, `pm_agent_task_duration_seconds_count{kind="epic_creation"} 1`)
}

func TestSwept(t *testing.T) {
	m := New()

	m.Swept("proposals", 3)

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `pm_agent_cleanup_swept_total{kind="proposals"} 3`)
}
