package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shaybz/topic-radar/app/database"
	"github.com/shaybz/topic-radar/app/sources"
	"github.com/shaybz/topic-radar/app/tasks"
)

type stubTopicRepo struct {
	database.TopicRepository
	topics []database.Topic
}

func (r *stubTopicRepo) GetTopicCount() (int, error) {
	return len(r.topics), nil
}

func (r *stubTopicRepo) GetAllTopics() ([]database.Topic, error) {
	return r.topics, nil
}

func (r *stubTopicRepo) GetTopicsByIDs(topicIDs []string) ([]database.Topic, error) {
	var result []database.Topic
	for _, topic := range r.topics {
		for _, id := range topicIDs {
			if topic.ID == id {
				result = append(result, topic)
			}
		}
	}
	return result, nil
}

type stubPostRepo struct {
	database.PostRepository
}

func (r *stubPostRepo) GetPostCount(topicID string) (int, error) {
	return 3, nil
}

type stubUserRepo struct {
	database.UserRepository
}

func (r *stubUserRepo) GetUserCount() (int, error) {
	return 2, nil
}

func (r *stubUserRepo) GetUsersByIDs(userIDs []string) ([]database.User, error) {
	users := make([]database.User, len(userIDs))
	for i, id := range userIDs {
		users[i] = database.User{ID: id}
	}
	return users, nil
}

type stubRegistry struct{}

func (r *stubRegistry) Adapter(kind string) (sources.Adapter, error) { return nil, nil }
func (r *stubRegistry) IsEnabled(kind string) bool                   { return true }
func (r *stubRegistry) EnabledKinds() []string                       { return []string{"news"} }

type stubScheduler struct {
	enqueued []tasks.TaskInterface
	err      error
}

func (s *stubScheduler) Start() {}
func (s *stubScheduler) Stop()  {}

func (s *stubScheduler) EnqueueTask(task tasks.TaskInterface) error {
	if s.err != nil {
		return s.err
	}
	s.enqueued = append(s.enqueued, task)
	return nil
}

func newTestServer(scheduler *stubScheduler) http.Handler {
	topicRepo := &stubTopicRepo{topics: []database.Topic{
		{ID: "topic-1", Name: "Go"},
		{ID: "topic-2", Name: "Rust"},
	}}
	handler := NewHandler(topicRepo, &stubPostRepo{}, &stubUserRepo{}, &stubRegistry{}, nil, nil, scheduler)
	return NewServer(handler, "test-key")
}

func TestServer_HealthEndpoint(t *testing.T) {
	server := newTestServer(&stubScheduler{})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "\"topics\":2") {
		t.Errorf("Expected topic count in health response, got %s", w.Body.String())
	}
}

func TestServer_AuthRequired(t *testing.T) {
	server := newTestServer(&stubScheduler{})

	req := httptest.NewRequest("GET", "/api/topics", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without API key, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/topics", nil)
	req.Header.Set("X-API-Key", "wrong-key")
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong API key, got %d", w.Code)
	}
}

func TestServer_ListTopics(t *testing.T) {
	server := newTestServer(&stubScheduler{})

	req := httptest.NewRequest("GET", "/api/topics", nil)
	req.Header.Set("X-API-Key", "test-key")
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "\"total\":2") {
		t.Errorf("Expected 2 topics in response, got %s", w.Body.String())
	}
}

func TestServer_BearerTokenAccepted(t *testing.T) {
	server := newTestServer(&stubScheduler{})

	req := httptest.NewRequest("GET", "/api/topics", nil)
	req.Header.Set("Authorization", "Bearer test-key")
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with bearer token, got %d", w.Code)
	}
}

func TestServer_TriggerCollection(t *testing.T) {
	scheduler := &stubScheduler{}
	server := newTestServer(scheduler)

	body := strings.NewReader(`{"topic_ids": ["topic-1"], "force": true}`)
	req := httptest.NewRequest("POST", "/api/collect", body)
	req.Header.Set("X-API-Key", "test-key")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", w.Code, w.Body.String())
	}
	if len(scheduler.enqueued) != 1 {
		t.Errorf("Expected 1 task enqueued, got %d", len(scheduler.enqueued))
	}
}

func TestServer_TriggerCollectionAllTopics(t *testing.T) {
	scheduler := &stubScheduler{}
	server := newTestServer(scheduler)

	req := httptest.NewRequest("POST", "/api/collect", nil)
	req.Header.Set("X-API-Key", "test-key")
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", w.Code, w.Body.String())
	}
	if len(scheduler.enqueued) != 1 {
		t.Errorf("Expected 1 collection pass enqueued, got %d", len(scheduler.enqueued))
	}
	if scheduler.enqueued[0].GetType() != tasks.TaskTypeCollectPass {
		t.Errorf("Expected collection pass task, got %s", scheduler.enqueued[0].GetType())
	}
}

func TestServer_TriggerCollectionUnknownTopic(t *testing.T) {
	server := newTestServer(&stubScheduler{})

	body := strings.NewReader(`{"topic_ids": ["missing"]}`)
	req := httptest.NewRequest("POST", "/api/collect", body)
	req.Header.Set("X-API-Key", "test-key")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown topic, got %d", w.Code)
	}
}

func TestServer_TriggerDigest(t *testing.T) {
	scheduler := &stubScheduler{}
	server := newTestServer(scheduler)

	body := strings.NewReader(`{"test_email": "qa@example.com", "force": true}`)
	req := httptest.NewRequest("POST", "/api/digest", body)
	req.Header.Set("X-API-Key", "test-key")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", w.Code, w.Body.String())
	}
	if len(scheduler.enqueued) != 1 {
		t.Errorf("Expected 1 digest task enqueued, got %d", len(scheduler.enqueued))
	}
	if scheduler.enqueued[0].GetType() != tasks.TaskTypeDigestPass {
		t.Errorf("Expected digest pass task, got %s", scheduler.enqueued[0].GetType())
	}
}
