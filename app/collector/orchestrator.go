package collector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/shaybz/topic-radar/app/database"
	"github.com/shaybz/topic-radar/app/sources"
)

// CollectionResult summarizes one topic collection run.
type CollectionResult struct {
	TopicID          string
	TopicName        string
	Skipped          bool
	PostsAdded       int
	Duplicates       int
	SourcesAttempted int
	SourcesFailed    int
	Partial          bool
	Degraded         bool
}

// PassReport aggregates a collection pass over many topics. Degraded is
// set when more than half of the attempted topics failed outright or
// came back degraded.
type PassReport struct {
	TopicsProcessed int
	TopicsSkipped   int
	TopicsFailed    int
	TopicsDegraded  int
	PostsAdded      int
	Duplicates      int
	Degraded        bool
	Duration        time.Duration
}

// SourceRegistry is the slice of the source registry the orchestrator
// needs.
type SourceRegistry interface {
	Adapter(kind string) (sources.Adapter, error)
	IsEnabled(kind string) bool
	EnabledKinds() []string
}

// Orchestrator runs topic collections: cooldown gating, per-source
// fan-out under a shared deadline, fingerprint dedup on insert, and the
// degraded verdict when most sources failed.
type Orchestrator struct {
	registry         SourceRegistry
	topicRepo        database.TopicRepository
	postRepo         database.PostRepository
	gate             *CooldownGate
	deadline         time.Duration
	topicConcurrency int64
}

func NewOrchestrator(registry SourceRegistry, topicRepo database.TopicRepository, postRepo database.PostRepository, gate *CooldownGate, deadline time.Duration, topicConcurrency int) *Orchestrator {
	if topicConcurrency < 1 {
		topicConcurrency = 1
	}
	return &Orchestrator{
		registry:         registry,
		topicRepo:        topicRepo,
		postRepo:         postRepo,
		gate:             gate,
		deadline:         deadline,
		topicConcurrency: int64(topicConcurrency),
	}
}

// Collect runs a single topic. Cooldown applies unless force is set;
// a skipped run returns a result with Skipped=true and no error.
func (o *Orchestrator) Collect(ctx context.Context, topic database.Topic, force bool) (*CollectionResult, error) {
	result := &CollectionResult{TopicID: topic.ID, TopicName: topic.Name}

	if !o.gate.MayCollect(topic.LastCollectedAt, time.Now().UTC(), force) {
		result.Skipped = true
		slog.Debug("Topic on cooldown, skipping", "topic", topic.Name,
			"remaining", o.gate.RemainingCooldown(topic.LastCollectedAt, time.Now().UTC()))
		return result, nil
	}

	kinds := o.topicSourceKinds(topic)
	if len(kinds) == 0 {
		return nil, fmt.Errorf("topic %q has no enabled sources", topic.Name)
	}

	query := sources.Query{
		TopicName: topic.Name,
		Keywords:  splitList(topic.Keywords),
		Profiles:  splitList(topic.Profiles),
	}

	collectCtx, cancel := context.WithTimeout(ctx, o.deadline)
	defer cancel()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(collectCtx)

	for _, kind := range kinds {
		adapter, err := o.registry.Adapter(kind)
		if err != nil {
			slog.Warn("Skipping unknown source", "topic", topic.Name, "source", kind)
			continue
		}

		result.SourcesAttempted++

		g.Go(func() error {
			items, partial, err := adapter.Fetch(gctx, query)

			mu.Lock()
			defer mu.Unlock()

			if partial {
				result.Partial = true
			}
			if err != nil {
				result.SourcesFailed++
				result.Partial = true
				slog.Warn("Source collection failed", "topic", topic.Name,
					"source", adapter.Kind(), "error", err)
				return nil
			}

			for _, item := range items {
				inserted, err := o.storeItem(topic.ID, item)
				if err != nil {
					return fmt.Errorf("failed to store item: %w", err)
				}
				if inserted {
					result.PostsAdded++
				} else {
					result.Duplicates++
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Degraded = result.SourcesFailed*2 > result.SourcesAttempted

	if err := o.topicRepo.UpdateLastCollected(topic.ID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to update collection timestamp: %w", err)
	}

	slog.Info("Topic collected", "topic", topic.Name,
		"new", result.PostsAdded, "duplicates", result.Duplicates,
		"sources", result.SourcesAttempted, "failed", result.SourcesFailed,
		"degraded", result.Degraded)

	return result, nil
}

// RunPass collects a batch of topics with bounded concurrency and
// reports the aggregate outcome.
func (o *Orchestrator) RunPass(ctx context.Context, topics []database.Topic, force bool) (*PassReport, error) {
	start := time.Now()
	report := &PassReport{}

	sem := semaphore.NewWeighted(o.topicConcurrency)
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, topic := range topics {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}

		g.Go(func() error {
			defer sem.Release(1)

			result, err := o.Collect(gctx, topic, force)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				report.TopicsFailed++
				slog.Error("Topic collection failed", "topic", topic.Name, "error", err)
				return nil
			}

			if result.Skipped {
				report.TopicsSkipped++
				return nil
			}

			report.TopicsProcessed++
			report.PostsAdded += result.PostsAdded
			report.Duplicates += result.Duplicates
			if result.Degraded {
				report.TopicsDegraded++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	attempted := report.TopicsProcessed + report.TopicsFailed
	report.Degraded = (report.TopicsFailed+report.TopicsDegraded)*2 > attempted
	report.Duration = time.Since(start)
	return report, nil
}

func (o *Orchestrator) storeItem(topicID string, item sources.RawItem) (bool, error) {
	publishedAt := time.Now().UTC()
	if item.PublishedAt != nil {
		publishedAt = item.PublishedAt.UTC()
	}

	post := database.NewPost{
		Source:      item.Source,
		Fingerprint: Fingerprint(item.Source, item.Title, item.Body, item.URL),
		Title:       item.Title,
		Body:        item.Body,
		URL:         item.URL,
		ImageURL:    item.ImageURL,
		PublishedAt: publishedAt,
	}

	return o.postRepo.InsertIgnore(topicID, post)
}

// topicSourceKinds resolves the topic's source list against the registry,
// falling back to the registry's enabled set.
func (o *Orchestrator) topicSourceKinds(topic database.Topic) []string {
	requested := splitList(topic.Sources)
	if len(requested) == 0 {
		return o.registry.EnabledKinds()
	}

	kinds := make([]string, 0, len(requested))
	for _, kind := range requested {
		if o.registry.IsEnabled(kind) {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
