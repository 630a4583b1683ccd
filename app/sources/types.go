package sources

import (
	"context"
	"fmt"
	"time"
)

// RawItem is an ephemeral content item produced by a source adapter.
// It is normalized and fingerprinted by the collector before persistence.
type RawItem struct {
	Source      string
	Title       string
	Body        string
	URL         string
	ImageURL    string
	Author      string
	PublishedAt *time.Time // nil when the source did not report one
}

// Query carries the topic attributes an adapter needs for a fetch.
type Query struct {
	TopicName string
	Keywords  []string
	Profiles  []string
}

// Adapter fetches items for a topic from one source kind, walking an
// ordered fallback chain of strategies. The partial flag reports that the
// adapter ran out of budget before the chain completed.
type Adapter interface {
	Kind() string
	Fetch(ctx context.Context, query Query) (items []RawItem, partial bool, err error)
}

// Strategy is one step of a fallback chain: a single way to reach a source.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, query Query) ([]RawItem, error)
}

// httpStatusError preserves the response code for retry classification.
type httpStatusError struct {
	StatusCode int
	Status     string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s", e.StatusCode, e.Status)
}
