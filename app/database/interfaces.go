package database

import (
	"time"
)

// NewPost is the insert payload produced by the collection orchestrator.
type NewPost struct {
	Source      string
	Fingerprint string
	Title       string
	Body        string
	URL         string
	ImageURL    string
	PublishedAt time.Time
}

type PostForExtraction struct {
	ID  string
	URL string
}

type TopicRepository interface {
	GetTopic(topicID string) (*Topic, error)
	GetAllTopics() ([]Topic, error)
	GetTopicsByIDs(topicIDs []string) ([]Topic, error)
	GetTopicCount() (int, error)

	UpdateLastCollected(topicID string, at time.Time) error
}

type PostRepository interface {
	// InsertIgnore stores the post unless a post with the same
	// (topic, source, fingerprint) already exists. Returns whether
	// a row was actually inserted.
	InsertIgnore(topicID string, post NewPost) (bool, error)

	GetPostsInWindow(topicIDs []string, from, to time.Time, limit int) ([]Post, error)
	GetPostCount(topicID string) (int, error)

	GetPostsForExtraction(limit int) ([]PostForExtraction, error)
	UpdateExtractedBody(postID string, body string, extractedAt time.Time) error
	UpdateExtractionStatus(postID string, status string, extractedAt *time.Time, errMsg string) error
}

type UserRepository interface {
	// GetEligibleUsers returns registered users with digest enabled and an
	// email address; frequency gating happens in the eligibility engine.
	GetEligibleUsers() ([]User, error)
	GetUsersByIDs(userIDs []string) ([]User, error)
	GetUserCount() (int, error)

	GetSubscribedTopicIDs(userID string) ([]string, error)

	// MarkDigestSent records a confirmed delivery. The update applies only
	// while last_digest_sent_at still predates windowStart, which makes the
	// transition idempotent against duplicate trigger invocations.
	MarkDigestSent(userID string, sentAt, windowStart time.Time) (bool, error)
}
