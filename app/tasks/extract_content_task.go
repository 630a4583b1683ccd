package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shaybz/topic-radar/app/collector"
	"github.com/shaybz/topic-radar/app/database"
)

const extractionFetchTimeout = 30 * time.Second

type ExtractContentTask struct {
	Task
	httpClient       *http.Client
	contentExtractor *collector.ContentExtractor
	postRepo         database.PostRepository
	batchSize        int
	userAgent        string
}

func NewExtractContentTask(httpClient *http.Client, contentExtractor *collector.ContentExtractor, postRepo database.PostRepository, batchSize int, userAgent string) *ExtractContentTask {
	return &ExtractContentTask{
		Task:             NewTask(TaskTypeExtractContent, "pending posts"),
		httpClient:       httpClient,
		contentExtractor: contentExtractor,
		postRepo:         postRepo,
		batchSize:        batchSize,
		userAgent:        userAgent,
	}
}

func (t *ExtractContentTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	posts, err := t.postRepo.GetPostsForExtraction(t.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get posts for content extraction: %w", err)
	}

	if len(posts) == 0 {
		slog.Debug("No posts need content extraction")
		return nil
	}

	successCount := 0
	errorCount := 0

	for _, post := range posts {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := t.extractContentForPost(ctx, post)
		if err != nil {
			slog.Error("Failed to extract content for post", "post_id", post.ID, "url", post.URL, "error", err)
			errorCount++

			now := time.Now().UTC()
			err = t.postRepo.UpdateExtractionStatus(post.ID, "failed", &now, err.Error())
			if err != nil {
				slog.Error("Failed to update content extraction status", "post_id", post.ID, "error", err)
			}
		} else {
			successCount++
		}
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"success", successCount,
		"errors", errorCount)

	return nil
}

func (t *ExtractContentTask) extractContentForPost(ctx context.Context, post database.PostForExtraction) error {
	if post.URL == "" {
		return fmt.Errorf("post has no URL")
	}

	data, err := t.fetchArticleContent(ctx, post.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch article content: %w", err)
	}

	extractedBody, err := t.contentExtractor.Run(data)
	if err != nil {
		return fmt.Errorf("failed to extract content: %w", err)
	}

	err = t.postRepo.UpdateExtractedBody(post.ID, extractedBody, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store extracted body: %w", err)
	}

	slog.Debug("Content extracted successfully", "post_id", post.ID, "url", post.URL, "content_length", len(extractedBody))
	return nil
}

func (t *ExtractContentTask) fetchArticleContent(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, extractionFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return nil, fmt.Errorf("content type is not HTML: %s", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
