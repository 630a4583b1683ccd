package database

import (
	"time"
)

type Topic struct {
	ID              string // Database UUID
	Name            string
	Keywords        string // comma separated
	Profiles        string // comma separated profile handles
	Sources         string // comma separated enabled source kinds, empty = default set
	Shared          bool
	OwnerUserID     *string
	LastCollectedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Post struct {
	ID               string
	TopicID          string
	Source           string
	Fingerprint      string
	Title            string
	Body             string
	URL              string
	ImageURL         string
	PublishedAt      time.Time
	CollectedAt      time.Time
	BodyExtractedAt  *time.Time
	ExtractionStatus string // pending, success, failed, skipped
	ExtractionError  string
}

type User struct {
	ID                  string
	Email               string // empty when NULL in storage
	Guest               bool
	DigestEnabled       bool
	DigestFrequencyDays int
	LastDigestSentAt    *time.Time
	CreatedAt           time.Time
}
