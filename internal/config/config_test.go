package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Success(t *testing.T) {
	t.Setenv("PM_SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("PM_SLACK_APP_TOKEN", "xapp-test")
	t.Setenv("PM_JIRA_BASE_URL", "https://test.atlassian.net")
	t.Setenv("PM_JIRA_API_TOKEN", "token")
	t.Setenv("PM_JIRA_PROJECT_KEY", "ENG")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "xoxb-test", cfg.SlackBotToken)
	assert.Equal(t, "https://test.atlassian.net", cfg.JiraBaseURL)
	assert.Equal(t, "ENG", cfg.JiraProjectKey)
	assert.Equal(t, "development", cfg.Environment)
}

func TestLoad_AllOptional(t *testing.T) {
	os.Clearenv()
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8090", cfg.MgmtListenAddr)
	assert.Equal(t, "api-key", cfg.MgmtAuthMode)
	assert.Equal(t, "gpt-4", cfg.AIModel)
	assert.Equal(t, 4, cfg.TaskWorkers)
	assert.Equal(t, 5*time.Minute, cfg.TaskTimeout)
	assert.Equal(t, 24*time.Hour, cfg.ProposalTTL)
}

func TestConfig_EnabledFlags(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.SlackEnabled())
	assert.False(t, cfg.AIEnabled())
	assert.False(t, cfg.JiraEnabled())
	assert.False(t, cfg.ConfluenceEnabled())
	assert.False(t, cfg.CalendarEnabled())
	assert.False(t, cfg.PersistenceEnabled())

	cfg.SlackBotToken = "xoxb-test"
	cfg.SlackAppToken = "xapp-test"
	assert.True(t, cfg.SlackEnabled())

	cfg.AIAPIKey = "sk-test"
	assert.True(t, cfg.AIEnabled())

	cfg.JiraBaseURL = "https://test.atlassian.net"
	cfg.JiraAPIToken = "token"
	assert.True(t, cfg.JiraEnabled())

	cfg.ConfluenceBaseURL = "https://test.atlassian.net/wiki"
	cfg.ConfluenceAPIToken = "token"
	assert.True(t, cfg.ConfluenceEnabled())

	cfg.CalendarServiceEmail = "agent@project.iam.gserviceaccount.com"
	cfg.CalendarPrivateKeyPath = "/tmp/key.pem"
	assert.True(t, cfg.CalendarEnabled())

	cfg.DatabasePath = "/tmp/agent.db"
	assert.True(t, cfg.PersistenceEnabled())
}

func TestParseBehavior(t *testing.T) {
	t.Setenv("EPIC_FIELD", "customfield_20001")

	raw := []byte(`
epic:
  default_priority: High
  labels:
    - generated
meetings:
  days_back: 14
  space_key: ENG
jira:
  epic_name_field: ${EPIC_FIELD}
`)

	b, err := ParseBehavior(raw)
	require.NoError(t, err)
	assert.Equal(t, "High", b.Epic.DefaultPriority)
	assert.Equal(t, []string{"generated"}, b.Epic.Labels)
	assert.Equal(t, 14, b.Meetings.DaysBack)
	assert.Equal(t, "ENG", b.Meetings.SpaceKey)
	assert.Equal(t, "customfield_20001", b.Jira.EpicNameField)
	assert.Empty(t, b.Jira.StoryPointsField)
}

func TestBehaviorDefaults(t *testing.T) {
	b, err := ParseBehavior([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, "Medium", b.Epic.DefaultPriority)
	assert.Equal(t, 30, b.Meetings.DaysBack)

	d := DefaultBehavior()
	assert.Equal(t, *b, *d)
}

func TestParseBehaviorInvalidYAML(t *testing.T) {
	_, err := ParseBehavior([]byte("epic: ["))
	require.Error(t, err)
}

func TestLoadBehaviorMissingFile(t *testing.T) {
	_, err := LoadBehavior("/nonexistent/behavior.yaml")
	require.Error(t, err)
}
