package tasks

import (
	"testing"
)

func TestTask_RetryBookkeeping(t *testing.T) {
	task := NewTask(TaskTypeCollectPass, "Go")

	if task.GetRetryCount() != 0 {
		t.Errorf("Expected new task to have 0 retries, got %d", task.GetRetryCount())
	}
	if !task.CanRetry() {
		t.Errorf("Expected new task to be retryable")
	}

	for i := 0; i < DefaultMaxRetries; i++ {
		task.IncrementRetryCount()
	}

	if task.CanRetry() {
		t.Errorf("Expected task at max retries to be exhausted")
	}
	if task.GetRetryCount() != DefaultMaxRetries {
		t.Errorf("Expected %d retries, got %d", DefaultMaxRetries, task.GetRetryCount())
	}
}

func TestNewTask_UniqueIDs(t *testing.T) {
	a := NewTask(TaskTypeCollectPass, "Go")
	b := NewTask(TaskTypeCollectPass, "Go")

	if a.GetID() == b.GetID() {
		t.Errorf("Expected distinct task IDs, got %q twice", a.GetID())
	}
	if a.GetSubject() != "Go" {
		t.Errorf("Expected subject 'Go', got %q", a.GetSubject())
	}
}
