// Package digest runs the scheduled newsletter job: once a week it mails every
// subscriber the most-visited posts of the trailing seven days.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/syn-press/syn-api/internal/mailer"
	"github.com/syn-press/syn-api/internal/query"
	"github.com/syn-press/syn-api/internal/repository"
)

// digestSize is how many posts a digest edition carries at most.
const digestSize = 5

// Job composes and sends the trending digest on a cron schedule.
type Job struct {
	posts       repository.PostRepository
	subscribers repository.SubscriberRepository
	mail        mailer.Mailer
	siteURL     string
	logger      *slog.Logger

	cron *cron.Cron
}

func New(
	posts repository.PostRepository,
	subscribers repository.SubscriberRepository,
	mail mailer.Mailer,
	siteURL string,
	logger *slog.Logger,
) *Job {
	return &Job{
		posts:       posts,
		subscribers: subscribers,
		mail:        mail,
		siteURL:     strings.TrimRight(siteURL, "/"),
		logger:      logger,
	}
}

// Start schedules the job. An empty schedule disables it.
func (j *Job) Start(schedule string) error {
	if schedule == "" {
		j.logger.Info("digest job disabled")
		return nil
	}

	j.cron = cron.New()
	if _, err := j.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := j.Run(ctx); err != nil {
			j.logger.Error("digest run failed", slog.String("error", err.Error()))
		}
	}); err != nil {
		return fmt.Errorf("scheduling digest job %q: %w", schedule, err)
	}
	j.cron.Start()

	j.logger.Info("digest job scheduled", slog.String("schedule", schedule))
	return nil
}

// Stop halts the scheduler and waits for an in-flight run to finish.
func (j *Job) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
	}
}

// Run composes and sends one digest edition. Exported so a run can also be
// triggered manually. A week with no new posts sends nothing.
func (j *Job) Run(ctx context.Context) error {
	filter := repository.PostFilter{CreatedAfter: time.Now().Add(-query.TrendingWindow)}

	posts, err := j.posts.List(ctx, filter, repository.SortPopular, repository.Page{Limit: digestSize})
	if err != nil {
		return fmt.Errorf("loading trending posts: %w", err)
	}
	if len(posts) == 0 {
		j.logger.Info("digest skipped, no posts this week")
		return nil
	}

	subs, err := j.subscribers.ListSubscribers(ctx)
	if err != nil {
		return fmt.Errorf("loading subscribers: %w", err)
	}
	if len(subs) == 0 {
		j.logger.Info("digest skipped, no subscribers")
		return nil
	}

	var b strings.Builder
	b.WriteString("This week's most-read stories:\n\n")
	for i, p := range posts {
		fmt.Fprintf(&b, "%d. %s\n   %s/%s\n", i+1, p.Title, j.siteURL, p.Slug)
		if p.Description != "" {
			fmt.Fprintf(&b, "   %s\n", p.Description)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Read more at %s\n", j.siteURL)
	body := b.String()

	// one message per recipient so addresses are never disclosed to each other
	failed := 0
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := j.mail.Send(ctx, mailer.Message{
			To:      []string{sub.Email},
			Subject: "Your weekly digest",
			Text:    body,
		}); err != nil {
			failed++
			j.logger.Warn("digest delivery failed",
				slog.String("email", sub.Email),
				slog.String("error", err.Error()),
			)
		}
	}

	j.logger.Info("digest sent",
		slog.Int("posts", len(posts)),
		slog.Int("recipients", len(subs)-failed),
		slog.Int("failed", failed),
	)
	return nil
}
