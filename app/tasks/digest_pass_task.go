package tasks

import (
	"context"
	"log/slog"

	"github.com/shaybz/topic-radar/app/digest"
)

type DigestPassTask struct {
	Task
	assembler *digest.Assembler
	opts      digest.Options
}

func NewDigestPassTask(assembler *digest.Assembler, opts digest.Options) *DigestPassTask {
	return &DigestPassTask{
		Task:      NewTask(TaskTypeDigestPass, "digest pass"),
		assembler: assembler,
		opts:      opts,
	}
}

func (t *DigestPassTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	report, err := t.assembler.RunPass(ctx, t.opts)
	if err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"considered", report.UsersConsidered,
		"sent", report.DigestsSent,
		"failures", report.Failures,
		"degraded", report.Degraded)

	return nil
}
