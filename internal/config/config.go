// Package config loads the agent configuration from PM_-prefixed
// environment variables, with an optional YAML behavior file for the
// knobs that change per Jira/Confluence instance.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Slack (Socket Mode)
	SlackBotToken string `envconfig:"SLACK_BOT_TOKEN"`
	SlackAppToken string `envconfig:"SLACK_APP_TOKEN"` // xapp- token

	// AI text generation
	AIAPIKey    string `envconfig:"AI_API_KEY"`
	AIBaseURL   string `envconfig:"AI_BASE_URL"`
	AIModel     string `envconfig:"AI_MODEL" default:"gpt-4"`
	AIMaxTokens int    `envconfig:"AI_MAX_TOKENS" default:"2000"`

	// Jira (optional; epics fail gracefully without it)
	JiraBaseURL    string `envconfig:"JIRA_BASE_URL"`
	JiraProjectKey string `envconfig:"JIRA_PROJECT_KEY" default:"PROJ"`
	JiraAPIEmail   string `envconfig:"JIRA_API_EMAIL"`
	JiraAPIToken   string `envconfig:"JIRA_API_TOKEN"`
	// Bearer token for OAuth-fronted instances; takes precedence over the
	// email/token pair when set.
	JiraAccessToken string `envconfig:"JIRA_ACCESS_TOKEN"`

	// Confluence (optional)
	ConfluenceBaseURL  string `envconfig:"CONFLUENCE_BASE_URL"`
	ConfluenceAPIEmail string `envconfig:"CONFLUENCE_API_EMAIL"`
	ConfluenceAPIToken string `envconfig:"CONFLUENCE_API_TOKEN"`
	ConfluenceSpaceKey string `envconfig:"CONFLUENCE_SPACE_KEY"`

	// Google Calendar (optional, service account)
	CalendarServiceEmail   string `envconfig:"CALENDAR_SERVICE_EMAIL"`
	CalendarPrivateKeyPath string `envconfig:"CALENDAR_PRIVATE_KEY_PATH"` // PEM file
	CalendarID             string `envconfig:"CALENDAR_ID" default:"primary"`

	// Background tasks
	TaskWorkers   int           `envconfig:"TASK_WORKERS" default:"4"`
	TaskQueueSize int           `envconfig:"TASK_QUEUE_SIZE" default:"100"`
	TaskTimeout   time.Duration `envconfig:"TASK_TIMEOUT" default:"5m"`

	// Persistence (empty path disables SQLite)
	DatabasePath string `envconfig:"DB_PATH"`

	// Cleanup
	CleanupInterval     time.Duration `envconfig:"CLEANUP_INTERVAL" default:"10m"`
	ConversationIdleTTL time.Duration `envconfig:"CONVERSATION_IDLE_TTL" default:"24h"`
	ProposalTTL         time.Duration `envconfig:"PROPOSAL_TTL" default:"24h"`
	RecordRetention     time.Duration `envconfig:"RECORD_RETENTION" default:"720h"`

	// Ops API
	MgmtListenAddr  string `envconfig:"MGMT_LISTEN_ADDR" default:":8090"`
	MgmtAuthMode    string `envconfig:"MGMT_AUTH_MODE" default:"api-key"`
	MgmtAPIKey      string `envconfig:"MGMT_API_KEY"`
	MgmtCORSOrigins string `envconfig:"MGMT_CORS_ORIGINS"`

	// Optional YAML behavior file
	BehaviorFile string `envconfig:"BEHAVIOR_FILE"`
}

// SlackEnabled returns true if Slack tokens are configured.
func (c *Config) SlackEnabled() bool {
	return c.SlackBotToken != "" && c.SlackAppToken != ""
}

// AIEnabled returns true if the text generation API key is configured.
func (c *Config) AIEnabled() bool {
	return c.AIAPIKey != ""
}

// JiraEnabled returns true if Jira credentials are configured.
func (c *Config) JiraEnabled() bool {
	return c.JiraBaseURL != "" && (c.JiraAPIToken != "" || c.JiraAccessToken != "")
}

// ConfluenceEnabled returns true if Confluence credentials are configured.
func (c *Config) ConfluenceEnabled() bool {
	return c.ConfluenceBaseURL != "" && c.ConfluenceAPIToken != ""
}

// CalendarEnabled returns true if the service account is configured.
func (c *Config) CalendarEnabled() bool {
	return c.CalendarServiceEmail != "" && c.CalendarPrivateKeyPath != ""
}

// PersistenceEnabled returns true if a SQLite path is configured.
func (c *Config) PersistenceEnabled() bool {
	return c.DatabasePath != ""
}

// Load reads configuration from PM_-prefixed environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("PM", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}
