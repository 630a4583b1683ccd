package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

var _ TopicRepository = (*TopicRepositoryImpl)(nil)

// TopicRepositoryImpl handles database operations for topics
type TopicRepositoryImpl struct {
	db *DB
}

func NewTopicRepository(db *DB) *TopicRepositoryImpl {
	return &TopicRepositoryImpl{db: db}
}

const topicColumns = `id, name, keywords, profiles, sources, shared, owner_user_id,
	       last_collected_at, created_at, updated_at`

func (r *TopicRepositoryImpl) scanTopic(row interface{ Scan(...interface{}) error }) (*Topic, error) {
	var topic Topic
	var ownerID sql.NullString
	err := row.Scan(
		&topic.ID, &topic.Name, &topic.Keywords, &topic.Profiles, &topic.Sources,
		&topic.Shared, &ownerID, &topic.LastCollectedAt,
		&topic.CreatedAt, &topic.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if ownerID.Valid {
		topic.OwnerUserID = &ownerID.String
	}
	return &topic, nil
}

func (r *TopicRepositoryImpl) GetTopic(topicID string) (*Topic, error) {
	topic, err := r.scanTopic(r.db.QueryRow(`
		SELECT `+topicColumns+`
		FROM topics
		WHERE id = $1
	`, topicID))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}

	return topic, nil
}

func (r *TopicRepositoryImpl) GetAllTopics() ([]Topic, error) {
	rows, err := r.db.Query(`
		SELECT ` + topicColumns + `
		FROM topics
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get topics: %w", err)
	}
	defer rows.Close()

	return r.collectTopics(rows)
}

func (r *TopicRepositoryImpl) GetTopicsByIDs(topicIDs []string) ([]Topic, error) {
	if len(topicIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(`
		SELECT `+topicColumns+`
		FROM topics
		WHERE id = ANY($1)
		ORDER BY created_at
	`, pq.Array(topicIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to get topics by ids: %w", err)
	}
	defer rows.Close()

	return r.collectTopics(rows)
}

func (r *TopicRepositoryImpl) collectTopics(rows *sql.Rows) ([]Topic, error) {
	var topics []Topic
	for rows.Next() {
		topic, err := r.scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan topic row: %w", err)
		}
		topics = append(topics, *topic)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating topic rows: %w", err)
	}

	return topics, nil
}

func (r *TopicRepositoryImpl) GetTopicCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM topics").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get topic count: %w", err)
	}
	return count, nil
}

// UpdateLastCollected is the single commit path for a topic's collection
// timestamp; nothing else mutates topics from this service.
func (r *TopicRepositoryImpl) UpdateLastCollected(topicID string, at time.Time) error {
	_, err := r.db.Exec(`
		UPDATE topics
		SET last_collected_at = $2, updated_at = NOW()
		WHERE id = $1
	`, topicID, at)

	if err != nil {
		return fmt.Errorf("failed to update last collected time: %w", err)
	}

	return nil
}
