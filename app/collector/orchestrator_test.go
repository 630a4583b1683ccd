package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shaybz/topic-radar/app/database"
	"github.com/shaybz/topic-radar/app/sources"
)

type fakeAdapter struct {
	kind  string
	items []sources.RawItem
	err   error
}

func (a *fakeAdapter) Kind() string {
	return a.kind
}

func (a *fakeAdapter) Fetch(ctx context.Context, query sources.Query) ([]sources.RawItem, bool, error) {
	if a.err != nil {
		return nil, false, a.err
	}
	items := make([]sources.RawItem, len(a.items))
	copy(items, a.items)
	for i := range items {
		items[i].Source = a.kind
	}
	return items, false, nil
}

type hangingAdapter struct {
	kind string
}

func (a *hangingAdapter) Kind() string {
	return a.kind
}

func (a *hangingAdapter) Fetch(ctx context.Context, query sources.Query) ([]sources.RawItem, bool, error) {
	<-ctx.Done()
	return nil, false, ctx.Err()
}

type fakeRegistry struct {
	adapters map[string]sources.Adapter
}

func (r *fakeRegistry) Adapter(kind string) (sources.Adapter, error) {
	adapter, ok := r.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", kind)
	}
	return adapter, nil
}

func (r *fakeRegistry) IsEnabled(kind string) bool {
	_, ok := r.adapters[kind]
	return ok
}

func (r *fakeRegistry) EnabledKinds() []string {
	kinds := make([]string, 0, len(r.adapters))
	for _, kind := range []string{"news", "reddit", "youtube"} {
		if _, ok := r.adapters[kind]; ok {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

type fakeTopicRepo struct {
	database.TopicRepository
	mu            sync.Mutex
	lastCollected map[string]time.Time
}

func (r *fakeTopicRepo) UpdateLastCollected(topicID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastCollected == nil {
		r.lastCollected = make(map[string]time.Time)
	}
	r.lastCollected[topicID] = at
	return nil
}

type fakePostRepo struct {
	database.PostRepository
	mu    sync.Mutex
	seen  map[string]bool
	posts []database.NewPost
}

func (r *fakePostRepo) InsertIgnore(topicID string, post database.NewPost) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen == nil {
		r.seen = make(map[string]bool)
	}
	key := topicID + "|" + post.Source + "|" + post.Fingerprint
	if r.seen[key] {
		return false, nil
	}
	r.seen[key] = true
	r.posts = append(r.posts, post)
	return true, nil
}

func newTestOrchestrator(registry SourceRegistry, topicRepo database.TopicRepository, postRepo database.PostRepository) *Orchestrator {
	gate := NewCooldownGate(30 * time.Minute)
	return NewOrchestrator(registry, topicRepo, postRepo, gate, 10*time.Second, 2)
}

func TestOrchestrator_Collect(t *testing.T) {
	registry := &fakeRegistry{adapters: map[string]sources.Adapter{
		"news": &fakeAdapter{kind: "news", items: []sources.RawItem{
			{Title: "Go 1.25 released", URL: "https://example.com/go"},
			{Title: "Go modules deep dive", URL: "https://example.com/modules"},
		}},
		"reddit": &fakeAdapter{kind: "reddit", items: []sources.RawItem{
			{Title: "Go 1.25 released", URL: "https://example.com/go"},
		}},
	}}

	topicRepo := &fakeTopicRepo{}
	postRepo := &fakePostRepo{}
	orchestrator := newTestOrchestrator(registry, topicRepo, postRepo)

	topic := database.Topic{ID: "topic-1", Name: "Go"}
	result, err := orchestrator.Collect(context.Background(), topic, false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if result.PostsAdded != 3 {
		t.Errorf("Expected 3 posts added, got %d", result.PostsAdded)
	}
	if result.SourcesAttempted != 2 {
		t.Errorf("Expected 2 sources attempted, got %d", result.SourcesAttempted)
	}
	if result.Degraded {
		t.Errorf("Expected healthy run not to be degraded")
	}
	if _, ok := topicRepo.lastCollected["topic-1"]; !ok {
		t.Errorf("Expected last collected timestamp to be updated")
	}
}

func TestOrchestrator_CollectDeduplicates(t *testing.T) {
	registry := &fakeRegistry{adapters: map[string]sources.Adapter{
		"news": &fakeAdapter{kind: "news", items: []sources.RawItem{
			{Title: "Go 1.25 released", URL: "https://example.com/go"},
			{Title: "GO 1.25 RELEASED", URL: "https://example.com/go"},
		}},
	}}

	orchestrator := newTestOrchestrator(registry, &fakeTopicRepo{}, &fakePostRepo{})

	topic := database.Topic{ID: "topic-1", Name: "Go", Sources: "news"}
	result, err := orchestrator.Collect(context.Background(), topic, false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if result.PostsAdded != 1 {
		t.Errorf("Expected 1 post added, got %d", result.PostsAdded)
	}
	if result.Duplicates != 1 {
		t.Errorf("Expected 1 duplicate, got %d", result.Duplicates)
	}
}

func TestOrchestrator_CollectRepeatIsIdempotent(t *testing.T) {
	registry := &fakeRegistry{adapters: map[string]sources.Adapter{
		"news": &fakeAdapter{kind: "news", items: []sources.RawItem{
			{Title: "Go 1.25 released", URL: "https://example.com/go"},
		}},
	}}

	postRepo := &fakePostRepo{}
	orchestrator := newTestOrchestrator(registry, &fakeTopicRepo{}, postRepo)

	topic := database.Topic{ID: "topic-1", Name: "Go", Sources: "news"}

	first, err := orchestrator.Collect(context.Background(), topic, false)
	if err != nil {
		t.Fatalf("Expected no error on first run, got %v", err)
	}
	second, err := orchestrator.Collect(context.Background(), topic, true)
	if err != nil {
		t.Fatalf("Expected no error on second run, got %v", err)
	}

	if first.PostsAdded != 1 || second.PostsAdded != 0 {
		t.Errorf("Expected second run to add nothing, got %d then %d", first.PostsAdded, second.PostsAdded)
	}
	if second.Duplicates != 1 {
		t.Errorf("Expected second run to count 1 duplicate, got %d", second.Duplicates)
	}
	if len(postRepo.posts) != 1 {
		t.Errorf("Expected 1 stored post, got %d", len(postRepo.posts))
	}
}

func TestOrchestrator_CollectDegraded(t *testing.T) {
	registry := &fakeRegistry{adapters: map[string]sources.Adapter{
		"news":    &fakeAdapter{kind: "news", items: []sources.RawItem{{Title: "Go news", URL: "https://example.com/a"}}},
		"reddit":  &fakeAdapter{kind: "reddit", err: errors.New("blocked")},
		"youtube": &fakeAdapter{kind: "youtube", err: errors.New("blocked")},
	}}

	orchestrator := newTestOrchestrator(registry, &fakeTopicRepo{}, &fakePostRepo{})

	topic := database.Topic{ID: "topic-1", Name: "Go"}
	result, err := orchestrator.Collect(context.Background(), topic, false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if result.SourcesFailed != 2 {
		t.Errorf("Expected 2 failed sources, got %d", result.SourcesFailed)
	}
	if !result.Degraded {
		t.Errorf("Expected degraded verdict when 2 of 3 sources failed")
	}
	if result.PostsAdded != 1 {
		t.Errorf("Expected surviving source's post to be stored, got %d", result.PostsAdded)
	}
}

func TestOrchestrator_CollectHonorsCooldown(t *testing.T) {
	registry := &fakeRegistry{adapters: map[string]sources.Adapter{
		"news": &fakeAdapter{kind: "news", items: []sources.RawItem{{Title: "Go", URL: "https://example.com/a"}}},
	}}

	topicRepo := &fakeTopicRepo{}
	orchestrator := newTestOrchestrator(registry, topicRepo, &fakePostRepo{})

	recent := time.Now().UTC().Add(-time.Minute)
	topic := database.Topic{ID: "topic-1", Name: "Go", Sources: "news", LastCollectedAt: &recent}

	result, err := orchestrator.Collect(context.Background(), topic, false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !result.Skipped {
		t.Errorf("Expected topic on cooldown to be skipped")
	}
	if len(topicRepo.lastCollected) != 0 {
		t.Errorf("Expected skipped topic not to update last collected")
	}

	forced, err := orchestrator.Collect(context.Background(), topic, true)
	if err != nil {
		t.Fatalf("Expected no error on forced run, got %v", err)
	}
	if forced.Skipped {
		t.Errorf("Expected force to bypass cooldown")
	}
}

func TestOrchestrator_RunPass(t *testing.T) {
	registry := &fakeRegistry{adapters: map[string]sources.Adapter{
		"news": &fakeAdapter{kind: "news", items: []sources.RawItem{{Title: "Go", URL: "https://example.com/a"}}},
	}}

	orchestrator := newTestOrchestrator(registry, &fakeTopicRepo{}, &fakePostRepo{})

	recent := time.Now().UTC().Add(-time.Minute)
	topics := []database.Topic{
		{ID: "topic-1", Name: "Go", Sources: "news"},
		{ID: "topic-2", Name: "Rust", Sources: "news"},
		{ID: "topic-3", Name: "Zig", Sources: "news", LastCollectedAt: &recent},
	}

	report, err := orchestrator.RunPass(context.Background(), topics, false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if report.TopicsProcessed != 2 {
		t.Errorf("Expected 2 topics processed, got %d", report.TopicsProcessed)
	}
	if report.TopicsSkipped != 1 {
		t.Errorf("Expected 1 topic skipped, got %d", report.TopicsSkipped)
	}
	if report.PostsAdded != 2 {
		t.Errorf("Expected 2 posts added, got %d", report.PostsAdded)
	}
}

func TestOrchestrator_CollectSourceTimeout(t *testing.T) {
	registry := &fakeRegistry{adapters: map[string]sources.Adapter{
		"news":    &fakeAdapter{kind: "news", items: []sources.RawItem{{Title: "Go news", URL: "https://example.com/a"}}},
		"reddit":  &fakeAdapter{kind: "reddit", items: []sources.RawItem{{Title: "Go thread", URL: "https://example.com/b"}}},
		"youtube": &hangingAdapter{kind: "youtube"},
	}}

	gate := NewCooldownGate(30 * time.Minute)
	orchestrator := NewOrchestrator(registry, &fakeTopicRepo{}, &fakePostRepo{}, gate, 200*time.Millisecond, 2)

	topic := database.Topic{ID: "topic-1", Name: "Go"}
	start := time.Now()
	result, err := orchestrator.Collect(context.Background(), topic, false)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if elapsed > 2*time.Second {
		t.Errorf("Expected run to finish at the deadline, took %v", elapsed)
	}
	if result.PostsAdded != 2 {
		t.Errorf("Expected posts from the responsive sources, got %d", result.PostsAdded)
	}
	if result.SourcesFailed != 1 {
		t.Errorf("Expected 1 failed source, got %d", result.SourcesFailed)
	}
	if !result.Partial {
		t.Errorf("Expected result marked partial when a source timed out")
	}
	if result.Degraded {
		t.Errorf("Expected 1 of 3 failed sources not to be degraded")
	}
}

func TestOrchestrator_CollectConcurrentSameItem(t *testing.T) {
	registry := &fakeRegistry{adapters: map[string]sources.Adapter{
		"news": &fakeAdapter{kind: "news", items: []sources.RawItem{
			{Title: "Go 1.25 released", URL: "https://example.com/go"},
		}},
	}}

	postRepo := &fakePostRepo{}
	orchestrator := newTestOrchestrator(registry, &fakeTopicRepo{}, postRepo)

	topic := database.Topic{ID: "topic-1", Name: "Go", Sources: "news"}

	var wg sync.WaitGroup
	results := make([]*CollectionResult, 2)
	errs := make([]error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = orchestrator.Collect(context.Background(), topic, true)
		}()
	}
	wg.Wait()

	added := 0
	duplicates := 0
	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			t.Fatalf("Expected no error from run %d, got %v", i, errs[i])
		}
		added += results[i].PostsAdded
		duplicates += results[i].Duplicates
	}

	if added != 1 {
		t.Errorf("Expected the identical item stored exactly once, got %d inserts", added)
	}
	if duplicates != 1 {
		t.Errorf("Expected 1 duplicate across concurrent runs, got %d", duplicates)
	}
	if len(postRepo.posts) != 1 {
		t.Errorf("Expected 1 stored post, got %d", len(postRepo.posts))
	}
}

func TestOrchestrator_RunPassDegraded(t *testing.T) {
	registry := &fakeRegistry{adapters: map[string]sources.Adapter{
		"news": &fakeAdapter{kind: "news", items: []sources.RawItem{{Title: "Go", URL: "https://example.com/a"}}},
	}}

	orchestrator := newTestOrchestrator(registry, &fakeTopicRepo{}, &fakePostRepo{})

	// Topics whose only configured source is unknown fail outright.
	topics := []database.Topic{
		{ID: "topic-1", Name: "Go", Sources: "news"},
		{ID: "topic-2", Name: "Rust", Sources: "gone"},
		{ID: "topic-3", Name: "Zig", Sources: "gone"},
	}

	report, err := orchestrator.RunPass(context.Background(), topics, false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if report.TopicsFailed != 2 {
		t.Errorf("Expected 2 failed topics, got %d", report.TopicsFailed)
	}
	if report.TopicsProcessed != 1 {
		t.Errorf("Expected 1 processed topic, got %d", report.TopicsProcessed)
	}
	if !report.Degraded {
		t.Errorf("Expected pass with 2 of 3 topics failed to be degraded")
	}
}
