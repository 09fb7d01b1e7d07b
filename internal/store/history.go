package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// QueryRecord is one logged advice exchange.
type QueryRecord struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	SessionID string    `json:"session_id"`
	Category  string    `json:"category"`
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordQuery appends one advice exchange to the history log. Implements
// advisor.HistoryRecorder.
func (s *Store) RecordQuery(ctx context.Context, username, sessionID, category, query, response string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO query_history (username, session_id, category, query, response, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(username), strings.TrimSpace(sessionID), category, query, response, time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("record query: %w", err)
	}
	return nil
}

// ListHistory returns the newest history records for a user, most recent
// first.
func (s *Store) ListHistory(ctx context.Context, username string, limit int) ([]QueryRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, username, session_id, category, query, response, created_at
		FROM query_history
		WHERE username = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		strings.TrimSpace(username), limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close() // nolint:errcheck // read-only cursor

	var records []QueryRecord
	for rows.Next() {
		var (
			rec       QueryRecord
			createdAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.Username, &rec.SessionID, &rec.Category, &rec.Query, &rec.Response, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		rec.CreatedAt = time.Unix(createdAt, 0).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return records, nil
}
