package api

import (
	"github.com/shaybz/topic-radar/app/collector"
	"github.com/shaybz/topic-radar/app/database"
	"github.com/shaybz/topic-radar/app/digest"
	"github.com/shaybz/topic-radar/app/tasks"
)

type Handler struct {
	topicRepo    database.TopicRepository
	postRepo     database.PostRepository
	userRepo     database.UserRepository
	registry     collector.SourceRegistry
	orchestrator *collector.Orchestrator
	assembler    *digest.Assembler
	scheduler    tasks.TaskSchedulerInterface
}

type CollectRequest struct {
	TopicIDs []string `json:"topic_ids"`
	Force    bool     `json:"force"`
}

type DigestRequest struct {
	UserIDs   []string `json:"user_ids"`
	Force     bool     `json:"force"`
	TestEmail string   `json:"test_email"`
}
