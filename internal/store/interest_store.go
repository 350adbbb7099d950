package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jjenkins/althingi/internal/model"
)

// FindInterest retrieves the interest registration of a legislator
func (t *txStore) FindInterest(ctx context.Context, legislatorID int64) (*model.Interest, error) {
	query := `
		SELECT id, legislator_id, board_positions, paid_work, business_activities,
		       financial_support, gifts, trips, debt_forgiveness, real_estate,
		       company_ownership, former_employer_agreements, future_employer_agreements,
		       other_positions, source_url, updated_at
		FROM interests
		WHERE legislator_id = $1
	`

	var i model.Interest
	err := t.q.QueryRowContext(ctx, query, legislatorID).Scan(
		&i.ID,
		&i.LegislatorID,
		&i.BoardPositions,
		&i.PaidWork,
		&i.BusinessActivities,
		&i.FinancialSupport,
		&i.Gifts,
		&i.Trips,
		&i.DebtForgiveness,
		&i.RealEstate,
		&i.CompanyOwnership,
		&i.FormerEmployerAgreements,
		&i.FutureEmployerAgreements,
		&i.OtherPositions,
		&i.SourceURL,
		&i.UpdatedAt,
	)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get interests of legislator %d: %w", legislatorID, err)
	}
	return &i, nil
}

// InsertInterest inserts an interest registration and sets its ID
func (t *txStore) InsertInterest(ctx context.Context, i *model.Interest) error {
	query := `
		INSERT INTO interests (legislator_id, board_positions, paid_work, business_activities,
		                       financial_support, gifts, trips, debt_forgiveness, real_estate,
		                       company_ownership, former_employer_agreements,
		                       future_employer_agreements, other_positions, source_url, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`

	i.UpdatedAt = time.Now()
	args := append([]any{i.LegislatorID}, interestArgs(i)...)
	if err := t.q.QueryRowContext(ctx, query, args...).Scan(&i.ID); err != nil {
		return fmt.Errorf("failed to insert interests of legislator %d: %w", i.LegislatorID, err)
	}
	return nil
}

// UpdateInterest updates an interest registration by ID
func (t *txStore) UpdateInterest(ctx context.Context, i *model.Interest) error {
	query := `
		UPDATE interests
		SET board_positions = $2, paid_work = $3, business_activities = $4,
		    financial_support = $5, gifts = $6, trips = $7, debt_forgiveness = $8,
		    real_estate = $9, company_ownership = $10, former_employer_agreements = $11,
		    future_employer_agreements = $12, other_positions = $13, source_url = $14,
		    updated_at = $15
		WHERE id = $1
	`

	i.UpdatedAt = time.Now()
	args := append([]any{i.ID}, interestArgs(i)...)
	if _, err := t.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update interests of legislator %d: %w", i.LegislatorID, err)
	}
	return nil
}

// interestArgs returns the answers in form order followed by source URL
// and update time
func interestArgs(i *model.Interest) []any {
	values := i.Values()
	args := make([]any, 0, len(values)+2)
	for _, v := range values {
		args = append(args, v)
	}
	return append(args, i.SourceURL, i.UpdatedAt)
}
