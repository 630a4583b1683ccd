package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shaybz/topic-radar/app/collector"
	"github.com/shaybz/topic-radar/app/database"
	"github.com/shaybz/topic-radar/app/digest"
	"github.com/shaybz/topic-radar/app/tasks"
)

func NewHandler(topicRepo database.TopicRepository, postRepo database.PostRepository,
	userRepo database.UserRepository, registry collector.SourceRegistry,
	orchestrator *collector.Orchestrator, assembler *digest.Assembler,
	scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		topicRepo:    topicRepo,
		postRepo:     postRepo,
		userRepo:     userRepo,
		registry:     registry,
		orchestrator: orchestrator,
		assembler:    assembler,
		scheduler:    scheduler,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if topicCount, err := h.topicRepo.GetTopicCount(); err == nil {
		health["topics"] = topicCount
	} else {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database unavailable"})
		return
	}

	health["sources"] = h.registry.EnabledKinds()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if topicCount, err := h.topicRepo.GetTopicCount(); err == nil {
		stats["topics"] = topicCount
	}
	if userCount, err := h.userRepo.GetUserCount(); err == nil {
		stats["users"] = userCount
	}
	stats["enabled_sources"] = h.registry.EnabledKinds()

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListTopics(c *gin.Context) {
	allTopics, err := h.topicRepo.GetAllTopics()
	if err != nil {
		slog.Error("Database error", "operation", "list_topics", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	topics := make([]map[string]interface{}, 0, len(allTopics))
	for _, topic := range allTopics {
		topicInfo := map[string]interface{}{
			"id":                topic.ID,
			"name":              topic.Name,
			"keywords":          topic.Keywords,
			"sources":           topic.Sources,
			"shared":            topic.Shared,
			"last_collected_at": topic.LastCollectedAt,
		}

		if postCount, err := h.postRepo.GetPostCount(topic.ID); err == nil {
			topicInfo["post_count"] = postCount
		}

		topics = append(topics, topicInfo)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"topics": topics,
		"total":  len(topics),
	})
}

// APITriggerCollection enqueues a collection pass over the requested
// topics (or all topics) and returns immediately.
func (h *Handler) APITriggerCollection(c *gin.Context) {
	var req CollectRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	var topics []database.Topic
	var err error
	if len(req.TopicIDs) > 0 {
		topics, err = h.topicRepo.GetTopicsByIDs(req.TopicIDs)
	} else {
		topics, err = h.topicRepo.GetAllTopics()
	}
	if err != nil {
		slog.Error("Database error", "operation", "trigger_collection", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if len(req.TopicIDs) > 0 && len(topics) != len(req.TopicIDs) {
		c.JSON(http.StatusNotFound, gin.H{"error": "One or more topics not found"})
		return
	}
	if len(topics) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No topics configured"})
		return
	}

	task := tasks.NewCollectPassTask(h.orchestrator, topics, req.Force)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Warn("Failed to enqueue collection pass", "topics", len(topics), "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Task queue is full"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Collection scheduled",
		"topics":  len(topics),
		"force":   req.Force,
	})
}

// APITriggerDigest enqueues a digest pass for the requested users (or
// all eligible users).
func (h *Handler) APITriggerDigest(c *gin.Context) {
	var req DigestRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if len(req.UserIDs) > 0 {
		users, err := h.userRepo.GetUsersByIDs(req.UserIDs)
		if err != nil {
			slog.Error("Database error", "operation", "trigger_digest", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		if len(users) != len(req.UserIDs) {
			c.JSON(http.StatusNotFound, gin.H{"error": "One or more users not found"})
			return
		}
	}

	task := tasks.NewDigestPassTask(h.assembler, digest.Options{
		UserIDs:   req.UserIDs,
		Force:     req.Force,
		TestEmail: req.TestEmail,
	})
	if err := h.scheduler.EnqueueTask(task); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Task queue is full"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":    "Digest pass scheduled",
		"force":      req.Force,
		"test_email": req.TestEmail != "",
	})
}
