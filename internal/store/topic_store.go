package store

import (
	"context"
	"fmt"

	"github.com/jjenkins/althingi/internal/model"
	"github.com/lib/pq"
)

func scanTopic(row scanner) (*model.Topic, error) {
	var t model.Topic
	if err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Description, pq.Array(&t.Keywords)); err != nil {
		return nil, err
	}
	return &t, nil
}

func keywords(k []string) []string {
	if k == nil {
		return []string{}
	}
	return k
}

// FindTopicByName retrieves a topic by its name
func (t *txStore) FindTopicByName(ctx context.Context, name string) (*model.Topic, error) {
	query := `SELECT id, name, slug, description, keywords FROM topics WHERE name = $1`

	topic, err := scanTopic(t.q.QueryRowContext(ctx, query, name))
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get topic %s: %w", name, err)
	}
	return topic, nil
}

// TopicSlugTaken reports whether another topic uses slug
func (t *txStore) TopicSlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var taken bool
	err := t.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM topics WHERE slug = $1 AND id <> $2)`,
		slug, excludeID,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("failed to check topic slug %s: %w", slug, err)
	}
	return taken, nil
}

// InsertTopic inserts a topic and sets its ID
func (t *txStore) InsertTopic(ctx context.Context, topic *model.Topic) error {
	query := `
		INSERT INTO topics (name, slug, description, keywords)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := t.q.QueryRowContext(ctx, query,
		topic.Name,
		topic.Slug,
		topic.Description,
		pq.Array(keywords(topic.Keywords)),
	).Scan(&topic.ID)
	if err != nil {
		return fmt.Errorf("failed to insert topic %s: %w", topic.Name, err)
	}
	return nil
}

// UpdateTopic updates a topic by ID
func (t *txStore) UpdateTopic(ctx context.Context, topic *model.Topic) error {
	query := `UPDATE topics SET name = $2, slug = $3, description = $4, keywords = $5 WHERE id = $1`

	_, err := t.q.ExecContext(ctx, query,
		topic.ID,
		topic.Name,
		topic.Slug,
		topic.Description,
		pq.Array(keywords(topic.Keywords)),
	)
	if err != nil {
		return fmt.Errorf("failed to update topic %s: %w", topic.Name, err)
	}
	return nil
}

// ListTopics retrieves all topics ordered by name
func (t *txStore) ListTopics(ctx context.Context) ([]model.Topic, error) {
	rows, err := t.q.QueryContext(ctx, `SELECT id, name, slug, description, keywords FROM topics ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer rows.Close()

	var topics []model.Topic
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		topics = append(topics, *topic)
	}
	return topics, rows.Err()
}

// AddBillTopic links a topic to a bill and reports whether the link is new
func (t *txStore) AddBillTopic(ctx context.Context, billID, topicID int64) (bool, error) {
	query := `
		INSERT INTO bill_topics (bill_id, topic_id)
		VALUES ($1, $2)
		ON CONFLICT (bill_id, topic_id) DO NOTHING
	`

	res, err := t.q.ExecContext(ctx, query, billID, topicID)
	if err != nil {
		return false, fmt.Errorf("failed to link topic %d to bill %d: %w", topicID, billID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to link topic %d to bill %d: %w", topicID, billID, err)
	}
	return n > 0, nil
}

// ClearBillTopics removes topic links of a session's bills, or of all bills
// when sessionID is 0
func (t *txStore) ClearBillTopics(ctx context.Context, sessionID int64) error {
	query := `DELETE FROM bill_topics`
	args := []any{}
	if sessionID != 0 {
		query = `DELETE FROM bill_topics WHERE bill_id IN (SELECT id FROM bills WHERE session_id = $1)`
		args = append(args, sessionID)
	}

	if _, err := t.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to clear bill topics: %w", err)
	}
	return nil
}
