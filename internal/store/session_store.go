package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jjenkins/althingi/internal/model"
)

const sessionColumns = `id, session_number, start_date, end_date, is_active, updated_at`

func scanSession(row scanner) (*model.Session, error) {
	var s model.Session
	err := row.Scan(&s.ID, &s.Number, &s.StartDate, &s.EndDate, &s.IsActive, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindSessionByNumber retrieves a session by its number
func (t *txStore) FindSessionByNumber(ctx context.Context, number int) (*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE session_number = $1`

	s, err := scanSession(t.q.QueryRowContext(ctx, query, number))
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %d: %w", number, err)
	}
	return s, nil
}

// FindActiveSession retrieves the active session
func (t *txStore) FindActiveSession(ctx context.Context) (*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE is_active`

	s, err := scanSession(t.q.QueryRowContext(ctx, query))
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	return s, nil
}

// InsertSession inserts a session and sets its ID
func (t *txStore) InsertSession(ctx context.Context, s *model.Session) error {
	query := `
		INSERT INTO sessions (session_number, start_date, end_date, is_active, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	s.UpdatedAt = time.Now()
	err := t.q.QueryRowContext(ctx, query,
		s.Number,
		s.StartDate,
		s.EndDate,
		s.IsActive,
		s.UpdatedAt,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to insert session %d: %w", s.Number, err)
	}
	return nil
}

// UpdateSession updates a session by ID
func (t *txStore) UpdateSession(ctx context.Context, s *model.Session) error {
	query := `
		UPDATE sessions
		SET start_date = $2, end_date = $3, is_active = $4, updated_at = $5
		WHERE id = $1
	`

	s.UpdatedAt = time.Now()
	_, err := t.q.ExecContext(ctx, query, s.ID, s.StartDate, s.EndDate, s.IsActive, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update session %d: %w", s.Number, err)
	}
	return nil
}

// DeactivateOtherSessions clears the active flag of every session but keepID
func (t *txStore) DeactivateOtherSessions(ctx context.Context, keepID int64) error {
	query := `UPDATE sessions SET is_active = FALSE, updated_at = NOW() WHERE is_active AND id <> $1`

	if _, err := t.q.ExecContext(ctx, query, keepID); err != nil {
		return fmt.Errorf("failed to deactivate sessions: %w", err)
	}
	return nil
}

// ListSessions retrieves all sessions, newest first
func (s *Store) ListSessions(ctx context.Context) ([]model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY session_number DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}
