package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jjenkins/althingi/internal/model"
)

const legislatorColumns = `
	l.id, l.source_id, l.first_name, l.last_name, l.slug, l.party_id, l.constituency,
	l.email, l.website, l.facebook_url, l.twitter_url, l.image_url, l.bio, l.birth_date,
	l.active, l.first_elected, l.current_position_started, l.speech_count,
	l.total_speaking_time, l.bills_sponsored, l.bills_cosponsored, l.updated_at`

func scanLegislator(row scanner) (*model.Legislator, error) {
	var l model.Legislator
	err := row.Scan(
		&l.ID,
		&l.SourceID,
		&l.FirstName,
		&l.LastName,
		&l.Slug,
		&l.PartyID,
		&l.Constituency,
		&l.Email,
		&l.Website,
		&l.FacebookURL,
		&l.TwitterURL,
		&l.ImageURL,
		&l.Bio,
		&l.BirthDate,
		&l.Active,
		&l.FirstElected,
		&l.CurrentPositionStarted,
		&l.SpeechCount,
		&l.TotalSpeakingTime,
		&l.BillsSponsored,
		&l.BillsCosponsored,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// FindLegislatorBySourceID retrieves a legislator by its Althingi id
func (t *txStore) FindLegislatorBySourceID(ctx context.Context, sourceID int) (*model.Legislator, error) {
	query := `SELECT ` + legislatorColumns + ` FROM legislators l WHERE l.source_id = $1`

	l, err := scanLegislator(t.q.QueryRowContext(ctx, query, sourceID))
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get legislator %d: %w", sourceID, err)
	}
	return l, nil
}

// LegislatorSlugTaken reports whether another legislator uses slug
func (t *txStore) LegislatorSlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var taken bool
	err := t.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM legislators WHERE slug = $1 AND id <> $2)`,
		slug, excludeID,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("failed to check legislator slug %s: %w", slug, err)
	}
	return taken, nil
}

// InsertLegislator inserts a legislator and sets its ID
func (t *txStore) InsertLegislator(ctx context.Context, l *model.Legislator) error {
	query := `
		INSERT INTO legislators (source_id, first_name, last_name, slug, party_id, constituency,
		                         email, website, facebook_url, twitter_url, image_url, bio,
		                         birth_date, active, first_elected, current_position_started,
		                         updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id
	`

	l.UpdatedAt = time.Now()
	err := t.q.QueryRowContext(ctx, query,
		l.SourceID,
		l.FirstName,
		l.LastName,
		l.Slug,
		l.PartyID,
		l.Constituency,
		l.Email,
		l.Website,
		l.FacebookURL,
		l.TwitterURL,
		l.ImageURL,
		l.Bio,
		l.BirthDate,
		l.Active,
		l.FirstElected,
		l.CurrentPositionStarted,
		l.UpdatedAt,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("failed to insert legislator %d: %w", l.SourceID, err)
	}
	return nil
}

// UpdateLegislator updates a legislator by ID. Counters are maintained by
// RefreshBillCounts and RefreshSpeechStats.
func (t *txStore) UpdateLegislator(ctx context.Context, l *model.Legislator) error {
	query := `
		UPDATE legislators
		SET first_name = $2, last_name = $3, slug = $4, party_id = $5, constituency = $6,
		    email = $7, website = $8, facebook_url = $9, twitter_url = $10, image_url = $11,
		    bio = $12, birth_date = $13, active = $14, first_elected = $15,
		    current_position_started = $16, updated_at = $17
		WHERE id = $1
	`

	l.UpdatedAt = time.Now()
	_, err := t.q.ExecContext(ctx, query,
		l.ID,
		l.FirstName,
		l.LastName,
		l.Slug,
		l.PartyID,
		l.Constituency,
		l.Email,
		l.Website,
		l.FacebookURL,
		l.TwitterURL,
		l.ImageURL,
		l.Bio,
		l.BirthDate,
		l.Active,
		l.FirstElected,
		l.CurrentPositionStarted,
		l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update legislator %d: %w", l.SourceID, err)
	}
	return nil
}

// ListLegislators retrieves the members of a session, or all legislators
// when sessionID is 0
func (t *txStore) ListLegislators(ctx context.Context, sessionID int64) ([]model.Legislator, error) {
	query := `SELECT ` + legislatorColumns + ` FROM legislators l ORDER BY l.last_name, l.first_name`
	args := []any{}
	if sessionID != 0 {
		query = `
			SELECT ` + legislatorColumns + `
			FROM legislators l
			INNER JOIN session_members m ON m.legislator_id = l.id
			WHERE m.session_id = $1
			ORDER BY l.last_name, l.first_name
		`
		args = append(args, sessionID)
	}

	rows, err := t.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list legislators: %w", err)
	}
	defer rows.Close()

	var legislators []model.Legislator
	for rows.Next() {
		l, err := scanLegislator(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan legislator: %w", err)
		}
		legislators = append(legislators, *l)
	}
	return legislators, rows.Err()
}

// SessionMemberIDs retrieves the legislator ids of a session's members
func (t *txStore) SessionMemberIDs(ctx context.Context, sessionID int64) ([]int64, error) {
	rows, err := t.q.QueryContext(ctx,
		`SELECT legislator_id FROM session_members WHERE session_id = $1 ORDER BY legislator_id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get members of session %d: %w", sessionID, err)
	}
	ids, err := toInt64s(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan member id: %w", err)
	}
	return ids, nil
}

// AddSessionMember records membership of a legislator in a session
func (t *txStore) AddSessionMember(ctx context.Context, sessionID, legislatorID int64) error {
	query := `
		INSERT INTO session_members (session_id, legislator_id)
		VALUES ($1, $2)
		ON CONFLICT (session_id, legislator_id) DO NOTHING
	`

	if _, err := t.q.ExecContext(ctx, query, sessionID, legislatorID); err != nil {
		return fmt.Errorf("failed to add legislator %d to session %d: %w", legislatorID, sessionID, err)
	}
	return nil
}

// RemoveSessionMember removes membership of a legislator in a session
func (t *txStore) RemoveSessionMember(ctx context.Context, sessionID, legislatorID int64) error {
	query := `DELETE FROM session_members WHERE session_id = $1 AND legislator_id = $2`

	if _, err := t.q.ExecContext(ctx, query, sessionID, legislatorID); err != nil {
		return fmt.Errorf("failed to remove legislator %d from session %d: %w", legislatorID, sessionID, err)
	}
	return nil
}

// RefreshBillCounts recomputes the sponsored and cosponsored bill counts
func (t *txStore) RefreshBillCounts(ctx context.Context, legislatorID int64) error {
	query := `
		UPDATE legislators
		SET bills_sponsored = (SELECT COUNT(*) FROM bills WHERE primary_sponsor_id = $1),
		    bills_cosponsored = (SELECT COUNT(*) FROM bill_cosponsors WHERE legislator_id = $1)
		WHERE id = $1
	`

	if _, err := t.q.ExecContext(ctx, query, legislatorID); err != nil {
		return fmt.Errorf("failed to refresh bill counts of legislator %d: %w", legislatorID, err)
	}
	return nil
}

// RefreshSpeechStats recomputes speech count and total speaking time
func (t *txStore) RefreshSpeechStats(ctx context.Context, legislatorID int64) error {
	query := `
		UPDATE legislators
		SET speech_count = (SELECT COUNT(*) FROM speeches WHERE legislator_id = $1),
		    total_speaking_time = (SELECT COALESCE(SUM(duration), 0) FROM speeches WHERE legislator_id = $1)
		WHERE id = $1
	`

	if _, err := t.q.ExecContext(ctx, query, legislatorID); err != nil {
		return fmt.Errorf("failed to refresh speech stats of legislator %d: %w", legislatorID, err)
	}
	return nil
}
