package mgmt

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/pm-agent/internal/health"
	"github.com/p-blackswan/pm-agent/internal/store"
	"github.com/p-blackswan/pm-agent/internal/tasks"
)

// Conversations is the slice of the conversation store the ops API reads.
type Conversations interface {
	Len() int
	Steps() map[string]int
}

// Handlers holds dependencies for the ops API handlers.
type Handlers struct {
	runner        *tasks.Runner
	checker       *health.Checker
	conversations Conversations
	records       *store.Store // optional
	version       string
	startTime     time.Time
	logger        zerolog.Logger
}

// NewHandlers creates a Handlers instance.
func NewHandlers(runner *tasks.Runner, checker *health.Checker, conversations Conversations, version string, logger zerolog.Logger) *Handlers {
	return &Handlers{
		runner:        runner,
		checker:       checker,
		conversations: conversations,
		version:       version,
		startTime:     time.Now(),
		logger:        logger.With().Str("component", "mgmt.handlers").Logger(),
	}
}

// SetStore sets the optional SQLite store backing the audit endpoint.
func (h *Handlers) SetStore(s *store.Store) {
	h.records = s
}

// ListTasks handles GET /api/v1/tasks.
func (h *Handlers) ListTasks(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	recs := h.runner.List(limit)
	if recs == nil {
		recs = []tasks.Record{}
	}
	return c.JSON(TaskListResponse{
		Tasks: recs,
		Total: h.runner.Summary().Total,
	})
}

// GetTask handles GET /api/v1/tasks/:id.
func (h *Handlers) GetTask(c *fiber.Ctx) error {
	id := c.Params("id")
	rec, ok := h.runner.Get(id)
	if !ok {
		return problemResponse(c, fiber.StatusNotFound,
			"task_not_found", "Not Found",
			"Task not found: "+id)
	}
	return c.JSON(TaskResponse{Task: rec})
}

// TasksSummary handles GET /api/v1/tasks/summary.
func (h *Handlers) TasksSummary(c *fiber.Ctx) error {
	return c.JSON(h.runner.Summary())
}

// ListConversations handles GET /api/v1/conversations.
func (h *Handlers) ListConversations(c *fiber.Ctx) error {
	return c.JSON(ConversationsResponse{
		Active: h.conversations.Len(),
		Steps:  h.conversations.Steps(),
	})
}

// ListAudit handles GET /api/v1/audit.
func (h *Handlers) ListAudit(c *fiber.Ctx) error {
	if h.records == nil {
		return problemResponse(c, fiber.StatusNotFound,
			"audit_disabled", "Not Found",
			"Persistence is not configured")
	}

	entries, err := h.records.RecentAudit(c.QueryInt("limit", 50))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to read audit trail")
		return problemResponse(c, fiber.StatusInternalServerError,
			"audit_read_failed", "Internal Server Error",
			"Failed to read the audit trail")
	}

	resp := AuditResponse{Entries: make([]AuditEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, AuditEntryResponse{
			ID:        e.ID,
			Event:     e.Event,
			UserID:    e.UserID,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt,
		})
	}
	return c.JSON(resp)
}

// HealthDetail handles GET /api/v1/health.
func (h *Handlers) HealthDetail(c *fiber.Ctx) error {
	results := h.checker.RunAll(c.Context())

	backends := make(map[string]string, len(results))
	overall := "ok"
	for name, status := range results {
		backends[name] = string(status)
		if status == health.StatusDown {
			overall = "degraded"
		}
	}

	return c.JSON(HealthDetailResponse{
		Status:   overall,
		Backends: backends,
		Uptime:   time.Since(h.startTime).Round(time.Second).String(),
		Version:  h.version,
	})
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	if !h.checker.IsReady(c.Context()) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not_ready",
		})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}
