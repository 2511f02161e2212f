package mgmt

import "github.com/p-blackswan/pm-agent/internal/tasks"

// ProblemDetail is an RFC 7807 error body.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// TaskResponse wraps a single task record.
type TaskResponse struct {
	Task tasks.Record `json:"task"`
}

// TaskListResponse wraps a task listing.
type TaskListResponse struct {
	Tasks []tasks.Record `json:"tasks"`
	Total int            `json:"total"`
}

// ConversationsResponse summarizes active conversations by step.
type ConversationsResponse struct {
	Active int            `json:"active"`
	Steps  map[string]int `json:"steps"`
}

// AuditEntryResponse is one audit trail row.
type AuditEntryResponse struct {
	ID        int64  `json:"id"`
	Event     string `json:"event"`
	UserID    string `json:"user_id"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// AuditResponse wraps the audit trail listing.
type AuditResponse struct {
	Entries []AuditEntryResponse `json:"entries"`
}

// HealthDetailResponse reports per-backend health.
type HealthDetailResponse struct {
	Status   string            `json:"status"`
	Backends map[string]string `json:"backends"`
	Uptime   string            `json:"uptime"`
	Version  string            `json:"version"`
}
