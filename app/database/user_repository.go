package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

var _ UserRepository = (*UserRepositoryImpl)(nil)

// UserRepositoryImpl handles database operations for digest recipients
type UserRepositoryImpl struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepositoryImpl {
	return &UserRepositoryImpl{db: db}
}

const userColumns = `id, COALESCE(email, ''), guest, digest_enabled,
	       digest_frequency_days, last_digest_sent_at, created_at`

func (r *UserRepositoryImpl) GetEligibleUsers() ([]User, error) {
	rows, err := r.db.Query(`
		SELECT ` + userColumns + `
		FROM users
		WHERE digest_enabled = true
		  AND email IS NOT NULL
		  AND guest = false
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get eligible users: %w", err)
	}
	defer rows.Close()

	return r.collectUsers(rows)
}

func (r *UserRepositoryImpl) GetUsersByIDs(userIDs []string) ([]User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(`
		SELECT `+userColumns+`
		FROM users
		WHERE id = ANY($1)
		ORDER BY created_at
	`, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to get users by ids: %w", err)
	}
	defer rows.Close()

	return r.collectUsers(rows)
}

func (r *UserRepositoryImpl) collectUsers(rows *sql.Rows) ([]User, error) {
	var users []User
	for rows.Next() {
		var user User
		err := rows.Scan(
			&user.ID, &user.Email, &user.Guest, &user.DigestEnabled,
			&user.DigestFrequencyDays, &user.LastDigestSentAt, &user.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return users, nil
}

func (r *UserRepositoryImpl) GetUserCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM users WHERE guest = false").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get user count: %w", err)
	}
	return count, nil
}

func (r *UserRepositoryImpl) GetSubscribedTopicIDs(userID string) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT topic_id
		FROM user_topics
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriptions: %w", err)
	}
	defer rows.Close()

	var topicIDs []string
	for rows.Next() {
		var topicID string
		if err := rows.Scan(&topicID); err != nil {
			return nil, fmt.Errorf("failed to scan subscription row: %w", err)
		}
		topicIDs = append(topicIDs, topicID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscription rows: %w", err)
	}

	return topicIDs, nil
}

// MarkDigestSent advances last_digest_sent_at only while it still predates
// the window start, so a duplicate trigger within the same eligibility
// window is a no-op.
func (r *UserRepositoryImpl) MarkDigestSent(userID string, sentAt, windowStart time.Time) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE users
		SET last_digest_sent_at = $2
		WHERE id = $1
		  AND (last_digest_sent_at IS NULL OR last_digest_sent_at <= $3)
	`, userID, sentAt, windowStart)

	if err != nil {
		return false, fmt.Errorf("failed to mark digest sent: %w", err)
	}

	updated, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}

	return updated > 0, nil
}
