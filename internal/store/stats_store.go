package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jjenkins/althingi/internal/model"
)

// BillStatusCounts counts bills per status. A sessionID of 0 counts every
// session.
func (s *Store) BillStatusCounts(ctx context.Context, sessionID int64) (map[model.BillStatus]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM bills
		WHERE ($1::bigint = 0 OR session_id = $1)
		GROUP BY status
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to count bill statuses: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.BillStatus]int)
	for rows.Next() {
		var status model.BillStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// PartyVoteRows returns one row per vote cast by a legislator with a party,
// attributed to the legislator's current party
func (s *Store) PartyVoteRows(ctx context.Context, sessionID int64) ([]model.PartyVoteRow, error) {
	query := `
		SELECT v.bill_id, p.id, p.name, v.choice
		FROM votes v
		INNER JOIN legislators l ON l.id = v.legislator_id
		INNER JOIN parties p ON p.id = l.party_id
		WHERE ($1::bigint = 0 OR v.session_id = $1)
		ORDER BY p.name, v.bill_id
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get party votes: %w", err)
	}
	defer rows.Close()

	var result []model.PartyVoteRow
	for rows.Next() {
		var r model.PartyVoteRow
		if err := rows.Scan(&r.BillID, &r.PartyID, &r.PartyName, &r.Choice); err != nil {
			return nil, fmt.Errorf("failed to scan party vote: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// PassedBillDates returns the decision date of every passed bill, falling
// back to the introduced date
func (s *Store) PassedBillDates(ctx context.Context, sessionID int64) ([]time.Time, error) {
	query := `
		SELECT COALESCE(vote_date, introduced_date::timestamptz)
		FROM bills
		WHERE status = $2
		  AND ($1::bigint = 0 OR session_id = $1)
		  AND COALESCE(vote_date, introduced_date::timestamptz) IS NOT NULL
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID, model.StatusPassed)
	if err != nil {
		return nil, fmt.Errorf("failed to get passed bill dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan date: %w", err)
		}
		dates = append(dates, d.UTC())
	}
	return dates, rows.Err()
}

// SpeakerTotals sums speaking time per legislator
func (s *Store) SpeakerTotals(ctx context.Context, sessionID int64) ([]model.SpeakerTotal, error) {
	query := `
		SELECT l.id, TRIM(l.first_name || ' ' || l.last_name), l.slug,
		       COALESCE(p.name, ''), COALESCE(SUM(sp.duration), 0), COUNT(sp.id)
		FROM speeches sp
		INNER JOIN legislators l ON l.id = sp.legislator_id
		LEFT JOIN parties p ON p.id = l.party_id
		WHERE ($1::bigint = 0 OR sp.session_id = $1)
		GROUP BY l.id, l.first_name, l.last_name, l.slug, p.name
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get speaker totals: %w", err)
	}
	defer rows.Close()

	var totals []model.SpeakerTotal
	for rows.Next() {
		var t model.SpeakerTotal
		if err := rows.Scan(&t.LegislatorID, &t.Name, &t.Slug, &t.PartyName, &t.Seconds, &t.Speeches); err != nil {
			return nil, fmt.Errorf("failed to scan speaker total: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}
