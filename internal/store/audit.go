package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AuditEntry is one row of the workflow audit trail.
type AuditEntry struct {
	ID        int64
	Event     string
	UserID    string
	Detail    string
	CreatedAt int64 // unix ms
}

// Audit appends an entry to the audit trail.
func (s *Store) Audit(ctx context.Context, event, userID, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `INSERT INTO audit_log (event, user_id, detail, created_at) VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		event, userID,
		sql.NullString{String: detail, Valid: detail != ""},
		time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// RecentAudit returns the newest audit entries, most recent first.
func (s *Store) RecentAudit(limit int) ([]*AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	query := `
	SELECT id, event, user_id, detail, created_at
	FROM audit_log
	ORDER BY id DESC
	LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		e := &AuditEntry{}
		var detail sql.NullString
		if err := rows.Scan(&e.ID, &e.Event, &e.UserID, &detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if detail.Valid {
			e.Detail = detail.String
		}
		entries = append(entries, e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}
	return entries, nil
}

// PruneAudit deletes audit entries older than the given age.
func (s *Store) PruneAudit(olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan).UnixMilli()
	result, err := s.db.Exec(`DELETE FROM audit_log WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit entries: %w", err)
	}
	return result.RowsAffected()
}
