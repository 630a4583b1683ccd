package database

import (
	"fmt"
	"time"

	"github.com/lib/pq"
)

var _ PostRepository = (*PostRepositoryImpl)(nil)

// PostRepositoryImpl handles database operations for collected posts
type PostRepositoryImpl struct {
	db *DB
}

func NewPostRepository(db *DB) *PostRepositoryImpl {
	return &PostRepositoryImpl{db: db}
}

// InsertIgnore relies on the unique index on (topic_id, source, fingerprint):
// concurrent collectors racing on the same item produce exactly one row.
func (r *PostRepositoryImpl) InsertIgnore(topicID string, post NewPost) (bool, error) {
	result, err := r.db.Exec(`
		INSERT INTO posts (
			topic_id, source, fingerprint, title, body, url, image_url, published_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (topic_id, source, fingerprint) DO NOTHING
	`, topicID, post.Source, post.Fingerprint, post.Title, post.Body,
		post.URL, post.ImageURL, post.PublishedAt)

	if err != nil {
		return false, fmt.Errorf("failed to insert post: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}

	return inserted > 0, nil
}

func (r *PostRepositoryImpl) GetPostsInWindow(topicIDs []string, from, to time.Time, limit int) ([]Post, error) {
	if len(topicIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(`
		SELECT id, topic_id, source, fingerprint, title, body, url, image_url,
		       published_at, collected_at, body_extracted_at, extraction_status, extraction_error
		FROM posts
		WHERE topic_id = ANY($1)
		  AND published_at > $2
		  AND published_at <= $3
		ORDER BY published_at DESC
		LIMIT $4
	`, pq.Array(topicIDs), from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts in window: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var post Post
		err := rows.Scan(
			&post.ID, &post.TopicID, &post.Source, &post.Fingerprint,
			&post.Title, &post.Body, &post.URL, &post.ImageURL,
			&post.PublishedAt, &post.CollectedAt, &post.BodyExtractedAt,
			&post.ExtractionStatus, &post.ExtractionError,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return posts, nil
}

func (r *PostRepositoryImpl) GetPostCount(topicID string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM posts WHERE topic_id = $1", topicID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get post count: %w", err)
	}
	return count, nil
}

func (r *PostRepositoryImpl) GetPostsForExtraction(limit int) ([]PostForExtraction, error) {
	rows, err := r.db.Query(`
		SELECT id, url
		FROM posts
		WHERE extraction_status = 'pending'
		  AND url <> ''
		ORDER BY collected_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts for extraction: %w", err)
	}
	defer rows.Close()

	var posts []PostForExtraction
	for rows.Next() {
		var post PostForExtraction
		if err := rows.Scan(&post.ID, &post.URL); err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return posts, nil
}

func (r *PostRepositoryImpl) UpdateExtractedBody(postID string, body string, extractedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE posts
		SET body = $2, body_extracted_at = $3, extraction_status = 'success', extraction_error = ''
		WHERE id = $1
	`, postID, body, extractedAt)

	if err != nil {
		return fmt.Errorf("failed to update extracted body: %w", err)
	}

	return nil
}

func (r *PostRepositoryImpl) UpdateExtractionStatus(postID string, status string, extractedAt *time.Time, errMsg string) error {
	_, err := r.db.Exec(`
		UPDATE posts
		SET extraction_status = $2, body_extracted_at = $3, extraction_error = $4
		WHERE id = $1
	`, postID, status, extractedAt, errMsg)

	if err != nil {
		return fmt.Errorf("failed to update extraction status: %w", err)
	}

	return nil
}
