package store

import (
	"context"
	"fmt"

	"github.com/jjenkins/althingi/internal/model"
)

// CountVotes returns the number of stored votes of a bill
func (t *txStore) CountVotes(ctx context.Context, billID int64) (int, error) {
	var count int
	err := t.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM votes WHERE bill_id = $1`, billID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes of bill %d: %w", billID, err)
	}
	return count, nil
}

// ReplaceVotes deletes the stored votes of a bill and inserts votes
func (t *txStore) ReplaceVotes(ctx context.Context, billID int64, votes []model.Vote) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM votes WHERE bill_id = $1`, billID); err != nil {
		return fmt.Errorf("failed to clear votes of bill %d: %w", billID, err)
	}

	query := `
		INSERT INTO votes (bill_id, legislator_id, session_id, voting_id, choice, vote_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	for i := range votes {
		v := &votes[i]
		v.BillID = billID
		err := t.q.QueryRowContext(ctx, query,
			v.BillID,
			v.LegislatorID,
			v.SessionID,
			v.VotingID,
			v.Choice,
			v.VoteDate,
		).Scan(&v.ID)
		if err != nil {
			return fmt.Errorf("failed to insert vote of legislator %d on bill %d: %w", v.LegislatorID, billID, err)
		}
	}
	return nil
}
