// Package tasks runs workflow executions on a supervised worker pool so
// that chat handlers never block on Jira, Confluence or AI round trips.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/pm-agent/internal/store"
)

// Errors returned by Submit.
var (
	ErrQueueFull  = errors.New("task queue is full")
	ErrNotRunning = errors.New("task runner is not running")
)

// Status is the lifecycle state of a background task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Record is an immutable snapshot of a task, safe to hand to the ops API.
type Record struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	UserID     string     `json:"user_id"`
	ChannelID  string     `json:"channel_id"`
	Status     Status     `json:"status"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

type task struct {
	mu  sync.RWMutex
	rec Record
	run func(ctx context.Context) error
}

func (t *task) snapshot() Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rec
}

// Observer receives task lifecycle events, implemented by the metrics package.
type Observer interface {
	TaskSubmitted()
	TaskFinished(kind, status string, seconds float64)
}

// Config holds sizing for the runner.
type Config struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
	// MaxRecords caps how many finished-or-pending records the runner keeps
	// in memory for the ops API. Oldest records are evicted first; the
	// SQLite mirror keeps the full history.
	MaxRecords int
}

// Runner executes submitted work on a fixed pool of workers. Each task is
// bounded by a timeout and survives a panicking workflow.
type Runner struct {
	tasks    sync.Map // id → *task
	order    []*task
	listMu   sync.RWMutex
	queue    chan *task
	workers  int
	timeout  time.Duration
	maxRecs  int
	observer Observer
	records  *store.Store // optional SQLite mirror
	logger   zerolog.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	running  atomic.Bool
}

// NewRunner creates a runner with the given sizing. Zero values fall back
// to sensible defaults.
func NewRunner(cfg Config, logger zerolog.Logger) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 5 * time.Minute
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = 1000
	}

	return &Runner{
		queue:   make(chan *task, cfg.QueueSize),
		workers: cfg.Workers,
		timeout: cfg.TaskTimeout,
		maxRecs: cfg.MaxRecords,
		logger:  logger.With().Str("component", "tasks").Logger(),
	}
}

// SetObserver sets the lifecycle observer.
func (r *Runner) SetObserver(o Observer) {
	r.observer = o
}

// SetStore sets the optional SQLite mirror for task records.
func (r *Runner) SetStore(s *store.Store) {
	r.records = s
}

// Start launches the worker goroutines.
func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	ctx, r.cancel = context.WithCancel(ctx)

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker(ctx, i)
	}

	r.logger.Info().Int("workers", r.workers).Msg("task runner started")
}

// Stop shuts the runner down and waits for in-flight tasks to finish.
func (r *Runner) Stop() {
	if !r.running.Swap(false) {
		return
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.logger.Info().Msg("task runner stopped")
}

// Submit enqueues run for background execution. It returns ErrQueueFull
// when the queue has no room, so callers can tell the user to retry.
func (r *Runner) Submit(kind, userID, channelID string, run func(ctx context.Context) error) error {
	if !r.running.Load() {
		return ErrNotRunning
	}

	t := &task{
		rec: Record{
			ID:        uuid.New().String(),
			Kind:      kind,
			UserID:    userID,
			ChannelID: channelID,
			Status:    StatusPending,
			CreatedAt: time.Now().UTC(),
		},
		run: run,
	}

	r.tasks.Store(t.rec.ID, t)
	r.listMu.Lock()
	r.order = append(r.order, t)
	for len(r.order) > r.maxRecs {
		evicted := r.order[0]
		r.order[0] = nil
		r.order = r.order[1:]
		r.tasks.Delete(evicted.snapshot().ID)
	}
	r.listMu.Unlock()

	r.mirror(t.snapshot())

	select {
	case r.queue <- t:
	default:
		now := time.Now().UTC()
		t.mu.Lock()
		t.rec.Status = StatusFailed
		t.rec.Error = ErrQueueFull.Error()
		t.rec.FinishedAt = &now
		t.mu.Unlock()
		r.mirror(t.snapshot())
		return ErrQueueFull
	}

	if r.observer != nil {
		r.observer.TaskSubmitted()
	}
	r.logger.Info().
		Str("task_id", t.rec.ID).
		Str("kind", kind).
		Str("user_id", userID).
		Msg("task enqueued")
	return nil
}

// Get returns a snapshot of the task with the given ID.
func (r *Runner) Get(id string) (Record, bool) {
	val, ok := r.tasks.Load(id)
	if !ok {
		return Record{}, false
	}
	return val.(*task).snapshot(), true
}

// List returns snapshots of known tasks, newest first.
func (r *Runner) List(limit int) []Record {
	r.listMu.RLock()
	defer r.listMu.RUnlock()

	if limit <= 0 || limit > len(r.order) {
		limit = len(r.order)
	}

	out := make([]Record, 0, limit)
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.order[i].snapshot())
	}
	return out
}

// Stats summarizes task counts by status and kind.
type Stats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	ByKind   map[string]int `json:"by_kind"`
}

// Summary returns aggregate counts over all known tasks.
func (r *Runner) Summary() Stats {
	r.listMu.RLock()
	defer r.listMu.RUnlock()

	s := Stats{
		Total:    len(r.order),
		ByStatus: make(map[string]int),
		ByKind:   make(map[string]int),
	}
	for _, t := range r.order {
		rec := t.snapshot()
		s.ByStatus[string(rec.Status)]++
		s.ByKind[rec.Kind]++
	}
	return s
}

func (r *Runner) worker(ctx context.Context, id int) {
	defer r.wg.Done()
	log := r.logger.With().Int("worker", id).Logger()
	log.Debug().Msg("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("worker stopping")
			return
		case t, ok := <-r.queue:
			if !ok {
				return
			}
			r.execute(ctx, t, log)
		}
	}
}

func (r *Runner) execute(ctx context.Context, t *task, log zerolog.Logger) {
	now := time.Now().UTC()
	t.mu.Lock()
	t.rec.Status = StatusRunning
	t.rec.StartedAt = &now
	t.mu.Unlock()
	r.mirror(t.snapshot())

	log.Info().
		Str("task_id", t.rec.ID).
		Str("kind", t.rec.Kind).
		Msg("executing task")

	taskCtx, cancel := context.WithTimeout(ctx, r.timeout)
	err := r.runGuarded(taskCtx, t)
	cancel()

	finished := time.Now().UTC()
	t.mu.Lock()
	t.rec.FinishedAt = &finished
	if err != nil {
		t.rec.Status = StatusFailed
		t.rec.Error = err.Error()
	} else {
		t.rec.Status = StatusCompleted
	}
	rec := t.rec
	t.mu.Unlock()
	r.mirror(rec)

	if r.observer != nil {
		r.observer.TaskFinished(rec.Kind, string(rec.Status), finished.Sub(now).Seconds())
	}

	if err != nil {
		log.Error().Err(err).
			Str("task_id", rec.ID).
			Str("kind", rec.Kind).
			Msg("task failed")
		return
	}
	log.Info().
		Str("task_id", rec.ID).
		Str("kind", rec.Kind).
		Dur("duration", finished.Sub(now)).
		Msg("task completed")
}

// runGuarded invokes the task function and converts a panic into an error
// so a single bad workflow cannot take down the worker pool.
func (r *Runner) runGuarded(ctx context.Context, t *task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task panicked: %v", rec)
		}
	}()
	return t.run(ctx)
}

func (r *Runner) mirror(rec Record) {
	if r.records == nil {
		return
	}
	sr := &store.TaskRecord{
		ID:        rec.ID,
		Kind:      rec.Kind,
		UserID:    rec.UserID,
		ChannelID: rec.ChannelID,
		Status:    string(rec.Status),
		Error:     rec.Error,
		CreatedAt: rec.CreatedAt.UnixMilli(),
	}
	if rec.StartedAt != nil {
		sr.StartedAt = rec.StartedAt.UnixMilli()
	}
	if rec.FinishedAt != nil {
		sr.FinishedAt = rec.FinishedAt.UnixMilli()
	}
	if err := r.records.SaveTask(sr); err != nil {
		r.logger.Warn().Err(err).Str("task_id", rec.ID).Msg("failed to persist task record")
	}
}
