package digest

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"github.com/shaybz/topic-radar/app/database"
)

const digestPostLimit = 50

// Summarizer produces a short intro paragraph for a digest. A failed or
// unavailable summarizer never blocks delivery; the assembler falls back
// to a plain headline count.
type Summarizer interface {
	Summarize(ctx context.Context, posts []database.Post) (string, error)
}

// EmailSender delivers a rendered digest.
type EmailSender interface {
	Send(ctx context.Context, toEmail, toName, subject, htmlBody string) error
}

// Options control one digest pass.
type Options struct {
	UserIDs   []string // empty = all eligible users
	Force     bool     // bypass the frequency check
	TestEmail string   // reroute delivery, suppress MarkSent
}

// Report aggregates a digest pass.
type Report struct {
	UsersConsidered int
	DigestsSent     int
	UsersSkipped    int
	Failures        int
	Degraded        bool
}

// Assembler builds and delivers digests: per-user eligibility, content
// window selection over subscribed topics, rendering, delivery, and the
// idempotent sent-marker update.
type Assembler struct {
	userRepo    database.UserRepository
	topicRepo   database.TopicRepository
	postRepo    database.PostRepository
	eligibility *Eligibility
	summarizer  Summarizer
	sender      EmailSender
}

func NewAssembler(userRepo database.UserRepository, topicRepo database.TopicRepository, postRepo database.PostRepository, eligibility *Eligibility, summarizer Summarizer, sender EmailSender) *Assembler {
	return &Assembler{
		userRepo:    userRepo,
		topicRepo:   topicRepo,
		postRepo:    postRepo,
		eligibility: eligibility,
		summarizer:  summarizer,
		sender:      sender,
	}
}

// RunPass evaluates the candidate users and delivers digests to the
// eligible ones. The pass is degraded when more than half of the
// attempted deliveries failed.
func (a *Assembler) RunPass(ctx context.Context, opts Options) (*Report, error) {
	users, err := a.candidateUsers(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load digest candidates: %w", err)
	}

	report := &Report{}
	now := time.Now().UTC()

	for _, user := range users {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		report.UsersConsidered++

		if !a.eligibility.IsEligible(user, now, opts.Force) {
			report.UsersSkipped++
			continue
		}

		sent, err := a.deliverDigest(ctx, user, now, opts)
		if err != nil {
			report.Failures++
			slog.Error("Digest delivery failed", "user", user.ID, "error", err)
			continue
		}
		if sent {
			report.DigestsSent++
		} else {
			report.UsersSkipped++
		}
	}

	attempted := report.DigestsSent + report.Failures
	report.Degraded = attempted > 0 && report.Failures*2 > attempted

	slog.Info("Digest pass completed",
		"considered", report.UsersConsidered,
		"sent", report.DigestsSent,
		"skipped", report.UsersSkipped,
		"failures", report.Failures,
		"degraded", report.Degraded)

	return report, nil
}

func (a *Assembler) candidateUsers(opts Options) ([]database.User, error) {
	if len(opts.UserIDs) > 0 {
		return a.userRepo.GetUsersByIDs(opts.UserIDs)
	}
	return a.userRepo.GetEligibleUsers()
}

// deliverDigest returns (false, nil) when the user has nothing to
// deliver: no subscriptions or an empty content window. Nothing is
// marked sent in that case, so the posts stay pending for the next pass.
func (a *Assembler) deliverDigest(ctx context.Context, user database.User, now time.Time, opts Options) (bool, error) {
	topicIDs, err := a.userRepo.GetSubscribedTopicIDs(user.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	if len(topicIDs) == 0 {
		return false, nil
	}

	from, to := a.eligibility.ContentWindow(user, now)
	posts, err := a.postRepo.GetPostsInWindow(topicIDs, from, to, digestPostLimit)
	if err != nil {
		return false, fmt.Errorf("failed to load posts: %w", err)
	}
	if len(posts) == 0 {
		slog.Debug("No new posts for digest, skipping", "user", user.ID)
		return false, nil
	}

	topics, err := a.topicRepo.GetTopicsByIDs(topicIDs)
	if err != nil {
		return false, fmt.Errorf("failed to load topics: %w", err)
	}

	intro := a.summarize(ctx, posts)
	htmlBody, err := renderDigest(topics, posts, intro, from, to)
	if err != nil {
		return false, fmt.Errorf("failed to render digest: %w", err)
	}

	toEmail := user.Email
	if opts.TestEmail != "" {
		toEmail = opts.TestEmail
	}

	subject := fmt.Sprintf("Your topic digest: %d new posts", len(posts))
	if err := a.sender.Send(ctx, toEmail, "", subject, htmlBody); err != nil {
		return false, fmt.Errorf("failed to send digest: %w", err)
	}

	// Test deliveries never advance the sent marker.
	if opts.TestEmail != "" {
		return true, nil
	}

	marked, err := a.userRepo.MarkDigestSent(user.ID, time.Now().UTC(), from)
	if err != nil {
		return false, fmt.Errorf("failed to mark digest sent: %w", err)
	}
	if !marked {
		slog.Warn("Digest already marked sent by a concurrent pass", "user", user.ID)
	}

	return true, nil
}

func (a *Assembler) summarize(ctx context.Context, posts []database.Post) string {
	if a.summarizer == nil {
		return ""
	}

	intro, err := a.summarizer.Summarize(ctx, posts)
	if err != nil {
		slog.Warn("Summarizer unavailable, using fallback intro", "error", err)
		return ""
	}
	return intro
}

type digestSection struct {
	TopicName string
	Posts     []database.Post
}

var digestTemplate = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222; max-width: 640px; margin: 0 auto;">
<h1 style="font-size: 20px;">Topic digest</h1>
<p style="color: #666; font-size: 13px;">{{.From.Format "Jan 2"}} &ndash; {{.To.Format "Jan 2, 2006"}}</p>
{{if .Intro}}<p>{{.Intro}}</p>{{end}}
{{range .Sections}}
<h2 style="font-size: 16px; border-bottom: 1px solid #ddd; padding-bottom: 4px;">{{.TopicName}}</h2>
{{range .Posts}}
<div style="margin-bottom: 12px;">
<a href="{{.URL}}" style="font-weight: bold;">{{.Title}}</a>
<span style="color: #999; font-size: 12px;">[{{.Source}}]</span>
{{if .Body}}<div style="font-size: 13px; color: #444;">{{.Body}}</div>{{end}}
</div>
{{end}}
{{end}}
</body>
</html>`))

func renderDigest(topics []database.Topic, posts []database.Post, intro string, from, to time.Time) (string, error) {
	names := make(map[string]string, len(topics))
	for _, topic := range topics {
		names[topic.ID] = topic.Name
	}

	grouped := make(map[string][]database.Post)
	var order []string
	for _, post := range posts {
		if _, ok := grouped[post.TopicID]; !ok {
			order = append(order, post.TopicID)
		}
		grouped[post.TopicID] = append(grouped[post.TopicID], post)
	}

	sections := make([]digestSection, 0, len(order))
	for _, topicID := range order {
		name := names[topicID]
		if name == "" {
			name = "Other"
		}
		sections = append(sections, digestSection{TopicName: name, Posts: grouped[topicID]})
	}

	var buf strings.Builder
	err := digestTemplate.Execute(&buf, struct {
		Intro    string
		From     time.Time
		To       time.Time
		Sections []digestSection
	}{Intro: intro, From: from, To: to, Sections: sections})
	if err != nil {
		return "", err
	}

	return buf.String(), nil
}
