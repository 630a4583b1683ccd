package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaybz/topic-radar/app/collector"
	"github.com/shaybz/topic-radar/app/database"
)

type CollectPassTask struct {
	Task
	orchestrator *collector.Orchestrator
	topics       []database.Topic
	force        bool
}

func NewCollectPassTask(orchestrator *collector.Orchestrator, topics []database.Topic, force bool) *CollectPassTask {
	subject := fmt.Sprintf("%d topics", len(topics))
	if len(topics) == 1 {
		subject = topics[0].Name
	}

	return &CollectPassTask{
		Task:         NewTask(TaskTypeCollectPass, subject),
		orchestrator: orchestrator,
		topics:       topics,
		force:        force,
	}
}

func (t *CollectPassTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	report, err := t.orchestrator.RunPass(ctx, t.topics, t.force)
	if err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"subject", t.GetSubject(),
		"duration", t.GetDuration(),
		"processed", report.TopicsProcessed,
		"skipped", report.TopicsSkipped,
		"failed", report.TopicsFailed,
		"new", report.PostsAdded,
		"duplicates", report.Duplicates,
		"degraded", report.Degraded)

	return nil
}
