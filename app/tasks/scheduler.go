package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shaybz/topic-radar/app/cfg"
	"github.com/shaybz/topic-radar/app/collector"
	"github.com/shaybz/topic-radar/app/database"
	"github.com/shaybz/topic-radar/app/digest"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	orchestrator     *collector.Orchestrator
	assembler        *digest.Assembler
	gate             *collector.CooldownGate
	topicRepo        database.TopicRepository
	postRepo         database.PostRepository
	httpClient       *http.Client
	contentExtractor *collector.ContentExtractor
	userAgent        string
	interval         time.Duration
	digestInterval   time.Duration
	workerCount      int
	batchSize        int
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup
	taskQueue        chan TaskInterface
}

func NewScheduler(orchestrator *collector.Orchestrator, assembler *digest.Assembler,
	gate *collector.CooldownGate, topicRepo database.TopicRepository, postRepo database.PostRepository,
	httpClient *http.Client, contentExtractor *collector.ContentExtractor) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		orchestrator:     orchestrator,
		assembler:        assembler,
		gate:             gate,
		topicRepo:        topicRepo,
		postRepo:         postRepo,
		httpClient:       httpClient,
		contentExtractor: contentExtractor,
		userAgent:        cfg.UserAgent,
		interval:         time.Duration(cfg.SchedulerInterval) * time.Second,
		digestInterval:   time.Duration(cfg.DigestInterval) * time.Second,
		workerCount:      cfg.WorkerCount,
		batchSize:        cfg.ExtractionBatchSize,
		ctx:              ctx,
		cancel:           cancel,
		taskQueue:        make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueCollectionTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueCollectionTasks()
			}
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.digestInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueDigestTask()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueCollectionTasks() {
	topics, err := s.topicRepo.GetAllTopics()
	if err != nil {
		slog.Error("Failed to load topics for scheduling", "error", err)
		return
	}

	if len(topics) == 0 {
		slog.Debug("No topics configured")
		return
	}

	now := time.Now().UTC()
	due := make([]database.Topic, 0, len(topics))

	for _, topic := range topics {
		if !s.gate.MayCollect(topic.LastCollectedAt, now, false) {
			slog.Debug("Topic on cooldown, not scheduling", "topic", topic.Name,
				"remaining", s.gate.RemainingCooldown(topic.LastCollectedAt, now))
			continue
		}
		due = append(due, topic)
	}

	if len(due) > 0 {
		collectTask := NewCollectPassTask(s.orchestrator, due, false)
		if err := s.EnqueueTask(collectTask); err != nil {
			slog.Warn("Failed to enqueue CollectPassTask", "topics", len(due), "error", err)
		} else {
			slog.Debug("Collection pass scheduled", "topics", len(due))
		}
	}

	extractTask := NewExtractContentTask(s.httpClient, s.contentExtractor, s.postRepo, s.batchSize, s.userAgent)
	if err := s.EnqueueTask(extractTask); err != nil {
		slog.Warn("Failed to enqueue ExtractContentTask", "error", err)
	}
}

func (s *Scheduler) enqueueDigestTask() {
	digestTask := NewDigestPassTask(s.assembler, digest.Options{})
	if err := s.EnqueueTask(digestTask); err != nil {
		slog.Warn("Failed to enqueue DigestPassTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "subject", task.GetSubject(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
