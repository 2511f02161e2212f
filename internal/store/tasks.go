package store

import (
	"database/sql"
	"fmt"
	"time"
)

// TaskRecord mirrors a background task in the database.
type TaskRecord struct {
	ID         string
	Kind       string
	UserID     string
	ChannelID  string
	Status     string // pending, running, completed, failed
	Error      string
	CreatedAt  int64 // unix ms
	UpdatedAt  int64 // unix ms
	StartedAt  int64 // unix ms, 0 = not started
	FinishedAt int64 // unix ms, 0 = not finished
}

// SaveTask inserts or updates a task record.
func (s *Store) SaveTask(t *TaskRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	if t.CreatedAt == 0 {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	query := `
	INSERT OR REPLACE INTO task_records (
		id, kind, user_id, channel_id, status, error,
		created_at, updated_at, started_at, finished_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		t.ID, t.Kind, t.UserID, t.ChannelID, t.Status,
		sql.NullString{String: t.Error, Valid: t.Error != ""},
		t.CreatedAt, t.UpdatedAt,
		sql.NullInt64{Int64: t.StartedAt, Valid: t.StartedAt != 0},
		sql.NullInt64{Int64: t.FinishedAt, Valid: t.FinishedAt != 0},
	)

	if err != nil {
		return fmt.Errorf("failed to save task record: %w", err)
	}
	return nil
}

// GetTask retrieves a task record by ID. Returns nil, nil when absent.
func (s *Store) GetTask(id string) (*TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
	SELECT id, kind, user_id, channel_id, status, error,
	       created_at, updated_at, started_at, finished_at
	FROM task_records WHERE id = ?
	`

	t, err := scanTask(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task record: %w", err)
	}
	return t, nil
}

// RecentTasks returns the newest task records, most recent first.
func (s *Store) RecentTasks(limit int) ([]*TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	query := `
	SELECT id, kind, user_id, channel_id, status, error,
	       created_at, updated_at, started_at, finished_at
	FROM task_records
	ORDER BY created_at DESC
	LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list task records: %w", err)
	}
	defer rows.Close()

	var tasks []*TaskRecord
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task record: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task records: %w", err)
	}
	return tasks, nil
}

// FailStuckTasks marks records left in pending or running state as failed.
// Called on startup, since in-memory tasks do not survive a restart.
func (s *Store) FailStuckTasks() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	query := `
	UPDATE task_records
	SET status = 'failed', error = 'interrupted by restart', finished_at = ?, updated_at = ?
	WHERE status IN ('pending', 'running')
	`

	result, err := s.db.Exec(query, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to fail stuck tasks: %w", err)
	}
	return result.RowsAffected()
}

// PruneTasks deletes finished task records older than the given age.
func (s *Store) PruneTasks(olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan).UnixMilli()
	query := `
	DELETE FROM task_records
	WHERE status IN ('completed', 'failed') AND created_at < ?
	`

	result, err := s.db.Exec(query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune task records: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*TaskRecord, error) {
	t := &TaskRecord{}
	var errMsg sql.NullString
	var startedAt, finishedAt sql.NullInt64

	err := row.Scan(
		&t.ID, &t.Kind, &t.UserID, &t.ChannelID, &t.Status, &errMsg,
		&t.CreatedAt, &t.UpdatedAt, &startedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}

	if errMsg.Valid {
		t.Error = errMsg.String
	}
	if startedAt.Valid {
		t.StartedAt = startedAt.Int64
	}
	if finishedAt.Valid {
		t.FinishedAt = finishedAt.Int64
	}
	return t, nil
}
