package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jjenkins/althingi/internal/model"
)

const partyColumns = `id, source_id, name, abbreviation, description, color, founding_date, updated_at`

func scanParty(row scanner) (*model.Party, error) {
	var p model.Party
	err := row.Scan(
		&p.ID,
		&p.SourceID,
		&p.Name,
		&p.Abbreviation,
		&p.Description,
		&p.Color,
		&p.FoundingDate,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindPartyBySourceID retrieves a party by its Althingi id
func (t *txStore) FindPartyBySourceID(ctx context.Context, sourceID int) (*model.Party, error) {
	query := `SELECT ` + partyColumns + ` FROM parties WHERE source_id = $1`

	p, err := scanParty(t.q.QueryRowContext(ctx, query, sourceID))
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get party %d: %w", sourceID, err)
	}
	return p, nil
}

// InsertParty inserts a party and sets its ID
func (t *txStore) InsertParty(ctx context.Context, p *model.Party) error {
	query := `
		INSERT INTO parties (source_id, name, abbreviation, description, color, founding_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	p.UpdatedAt = time.Now()
	err := t.q.QueryRowContext(ctx, query,
		p.SourceID,
		p.Name,
		p.Abbreviation,
		p.Description,
		p.Color,
		p.FoundingDate,
		p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to insert party %d: %w", p.SourceID, err)
	}
	return nil
}

// UpdateParty updates a party by ID
func (t *txStore) UpdateParty(ctx context.Context, p *model.Party) error {
	query := `
		UPDATE parties
		SET name = $2, abbreviation = $3, description = $4, color = $5,
		    founding_date = $6, updated_at = $7
		WHERE id = $1
	`

	p.UpdatedAt = time.Now()
	_, err := t.q.ExecContext(ctx, query,
		p.ID,
		p.Name,
		p.Abbreviation,
		p.Description,
		p.Color,
		p.FoundingDate,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update party %d: %w", p.SourceID, err)
	}
	return nil
}

// ListParties retrieves all parties ordered by name
func (s *Store) ListParties(ctx context.Context) ([]model.Party, error) {
	query := `SELECT ` + partyColumns + ` FROM parties ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list parties: %w", err)
	}
	defer rows.Close()

	var parties []model.Party
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan party: %w", err)
		}
		parties = append(parties, *p)
	}
	return parties, rows.Err()
}
