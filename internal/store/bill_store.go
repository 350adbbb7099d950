package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jjenkins/althingi/internal/model"
	"github.com/lib/pq"
)

const billColumns = `
	id, session_id, source_id, title, slug, description, bill_type, status,
	introduced_date, vote_date, voting_id, primary_sponsor_id, url, updated_at`

func scanBill(row scanner) (*model.Bill, error) {
	var b model.Bill
	err := row.Scan(
		&b.ID,
		&b.SessionID,
		&b.SourceID,
		&b.Title,
		&b.Slug,
		&b.Description,
		&b.BillType,
		&b.Status,
		&b.IntroducedDate,
		&b.VoteDate,
		&b.VotingID,
		&b.PrimarySponsorID,
		&b.URL,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// FindBill retrieves a bill by session and bill number
func (t *txStore) FindBill(ctx context.Context, sessionID int64, sourceID int) (*model.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE session_id = $1 AND source_id = $2`

	b, err := scanBill(t.q.QueryRowContext(ctx, query, sessionID, sourceID))
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill %d: %w", sourceID, err)
	}
	return b, nil
}

// BillSlugTaken reports whether another bill of the session uses slug
func (t *txStore) BillSlugTaken(ctx context.Context, sessionID int64, slug string, excludeID int64) (bool, error) {
	var taken bool
	err := t.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM bills WHERE session_id = $1 AND slug = $2 AND id <> $3)`,
		sessionID, slug, excludeID,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("failed to check bill slug %s: %w", slug, err)
	}
	return taken, nil
}

// InsertBill inserts a bill and sets its ID
func (t *txStore) InsertBill(ctx context.Context, b *model.Bill) error {
	query := `
		INSERT INTO bills (session_id, source_id, title, slug, description, bill_type, status,
		                   introduced_date, vote_date, voting_id, primary_sponsor_id, url, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	b.UpdatedAt = time.Now()
	err := t.q.QueryRowContext(ctx, query,
		b.SessionID,
		b.SourceID,
		b.Title,
		b.Slug,
		b.Description,
		b.BillType,
		b.Status,
		b.IntroducedDate,
		b.VoteDate,
		b.VotingID,
		b.PrimarySponsorID,
		b.URL,
		b.UpdatedAt,
	).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("failed to insert bill %d: %w", b.SourceID, err)
	}
	return nil
}

// UpdateBill updates a bill by ID
func (t *txStore) UpdateBill(ctx context.Context, b *model.Bill) error {
	query := `
		UPDATE bills
		SET title = $2, slug = $3, description = $4, bill_type = $5, status = $6,
		    introduced_date = $7, vote_date = $8, voting_id = $9, primary_sponsor_id = $10,
		    url = $11, updated_at = $12
		WHERE id = $1
	`

	b.UpdatedAt = time.Now()
	_, err := t.q.ExecContext(ctx, query,
		b.ID,
		b.Title,
		b.Slug,
		b.Description,
		b.BillType,
		b.Status,
		b.IntroducedDate,
		b.VoteDate,
		b.VotingID,
		b.PrimarySponsorID,
		b.URL,
		b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update bill %d: %w", b.SourceID, err)
	}
	return nil
}

// ListBills retrieves the bills of a session, or all bills when sessionID
// is 0, ordered by bill number
func (t *txStore) ListBills(ctx context.Context, sessionID int64) ([]model.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE ($1::bigint = 0 OR session_id = $1) ORDER BY session_id, source_id`

	rows, err := t.q.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	var bills []model.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, *b)
	}
	return bills, rows.Err()
}

// BillCosponsorIDs retrieves the legislator ids cosponsoring a bill
func (t *txStore) BillCosponsorIDs(ctx context.Context, billID int64) ([]int64, error) {
	rows, err := t.q.QueryContext(ctx,
		`SELECT legislator_id FROM bill_cosponsors WHERE bill_id = $1 ORDER BY legislator_id`,
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get cosponsors of bill %d: %w", billID, err)
	}
	ids, err := toInt64s(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan cosponsor id: %w", err)
	}
	return ids, nil
}

// SetBillCosponsors replaces the cosponsor set of a bill
func (t *txStore) SetBillCosponsors(ctx context.Context, billID int64, legislatorIDs []int64) error {
	if legislatorIDs == nil {
		legislatorIDs = []int64{}
	}
	if _, err := t.q.ExecContext(ctx,
		`DELETE FROM bill_cosponsors WHERE bill_id = $1 AND NOT (legislator_id = ANY($2::bigint[]))`,
		billID, pq.Array(legislatorIDs),
	); err != nil {
		return fmt.Errorf("failed to clear cosponsors of bill %d: %w", billID, err)
	}

	query := `
		INSERT INTO bill_cosponsors (bill_id, legislator_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT (bill_id, legislator_id) DO NOTHING
	`
	if _, err := t.q.ExecContext(ctx, query, billID, pq.Array(legislatorIDs)); err != nil {
		return fmt.Errorf("failed to set cosponsors of bill %d: %w", billID, err)
	}
	return nil
}
