package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jjenkins/althingi/internal/model"
)

// FindSpeech retrieves a speech by its natural key
func (t *txStore) FindSpeech(ctx context.Context, legislatorID, sessionID int64, date, start time.Time) (*model.Speech, error) {
	query := `
		SELECT id, legislator_id, session_id, bill_id, speech_date, start_time, end_time,
		       duration, speech_type, title, audio_url, xml_url, html_url, updated_at
		FROM speeches
		WHERE legislator_id = $1 AND session_id = $2 AND speech_date = $3 AND start_time = $4
	`

	var s model.Speech
	err := t.q.QueryRowContext(ctx, query, legislatorID, sessionID, date, start).Scan(
		&s.ID,
		&s.LegislatorID,
		&s.SessionID,
		&s.BillID,
		&s.Date,
		&s.StartTime,
		&s.EndTime,
		&s.Duration,
		&s.SpeechType,
		&s.Title,
		&s.AudioURL,
		&s.XMLURL,
		&s.HTMLURL,
		&s.UpdatedAt,
	)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get speech of legislator %d at %s: %w", legislatorID, start.Format(time.RFC3339), err)
	}
	return &s, nil
}

// InsertSpeech inserts a speech and sets its ID
func (t *txStore) InsertSpeech(ctx context.Context, s *model.Speech) error {
	query := `
		INSERT INTO speeches (legislator_id, session_id, bill_id, speech_date, start_time, end_time,
		                      duration, speech_type, title, audio_url, xml_url, html_url, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	s.UpdatedAt = time.Now()
	err := t.q.QueryRowContext(ctx, query,
		s.LegislatorID,
		s.SessionID,
		s.BillID,
		s.Date,
		s.StartTime,
		s.EndTime,
		s.Duration,
		s.SpeechType,
		s.Title,
		s.AudioURL,
		s.XMLURL,
		s.HTMLURL,
		s.UpdatedAt,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to insert speech of legislator %d: %w", s.LegislatorID, err)
	}
	return nil
}

// UpdateSpeech updates a speech by ID
func (t *txStore) UpdateSpeech(ctx context.Context, s *model.Speech) error {
	query := `
		UPDATE speeches
		SET bill_id = $2, end_time = $3, duration = $4, speech_type = $5, title = $6,
		    audio_url = $7, xml_url = $8, html_url = $9, updated_at = $10
		WHERE id = $1
	`

	s.UpdatedAt = time.Now()
	_, err := t.q.ExecContext(ctx, query,
		s.ID,
		s.BillID,
		s.EndTime,
		s.Duration,
		s.SpeechType,
		s.Title,
		s.AudioURL,
		s.XMLURL,
		s.HTMLURL,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update speech %d: %w", s.ID, err)
	}
	return nil
}
