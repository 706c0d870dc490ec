package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"postqueue/internal/metrics"
	"postqueue/internal/models"
	"postqueue/internal/notify"
	"postqueue/internal/service"
)

// nowFunc is swapped in tests.
var nowFunc = time.Now

// DrainOutcome summarizes one drain invocation for the completion event.
type DrainOutcome struct {
	Eligible  int `json:"eligible"`
	Published int `json:"published"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Drain finds PENDING posts scheduled for ON_CONNECT and publishes each in
// turn. Records are processed sequentially in listing order (newest first);
// one record's failure never aborts the rest. A store failure on the initial
// query fails only this invocation; the next online transition retries.
func (q *Queue) Drain(ctx context.Context, trigger string, notifier notify.Notifier) (DrainOutcome, error) {
	metrics.DrainsRun.WithLabelValues(trigger).Inc()

	pending, err := q.pr.ListAll(ctx, models.PostStatusPending)
	if err != nil {
		return DrainOutcome{}, fmt.Errorf("drain query failed: %w", err)
	}
	metrics.PendingBacklog.Set(float64(len(pending)))

	eligible := lo.Filter(pending, func(post *models.Post, _ int) bool {
		return post.ScheduleMode == models.ScheduleOnConnect
	})
	if len(eligible) == 0 {
		return DrainOutcome{}, nil
	}

	outcome := DrainOutcome{Eligible: len(eligible)}
	notifier.Notify(notify.Event{
		Kind:    notify.KindInfo,
		Message: fmt.Sprintf("%d post(s) processing...", len(eligible)),
	})

	for _, post := range eligible {
		q.publishOne(ctx, post, notifier, &outcome)
	}

	notifier.Notify(notify.Event{
		Kind:    notify.KindSuccess,
		Message: "All post processing completed",
	})

	return outcome, nil
}

// ProcessScheduled publishes AT_TIME posts that have come due. Shares the
// claim with Drain, so the sweep and the per-post task cannot double-publish.
func (q *Queue) ProcessScheduled(ctx context.Context, notifier notify.Notifier) (DrainOutcome, error) {
	metrics.DrainsRun.WithLabelValues("scheduled").Inc()

	due, err := q.pr.ListEligibleScheduled(ctx, nowFunc())
	if err != nil {
		return DrainOutcome{}, fmt.Errorf("scheduled query failed: %w", err)
	}
	if len(due) == 0 {
		return DrainOutcome{}, nil
	}

	outcome := DrainOutcome{Eligible: len(due)}
	for _, post := range due {
		q.publishOne(ctx, post, notifier, &outcome)
	}
	return outcome, nil
}

func (q *Queue) publishOne(ctx context.Context, post *models.Post, notifier notify.Notifier, outcome *DrainOutcome) {
	result := q.pub.Publish(ctx, post)

	switch {
	case result.Skipped:
		// Another drain owns the record; stay quiet.
		outcome.Skipped++
	case result.Err != nil:
		slog.Info("post publish failed", "post_id", post.ID, "error", result.Err)
		outcome.Failed++
		notifier.Notify(notify.Event{
			Kind:    notify.KindError,
			Message: service.DescribeFailure(post.ID, result.Err),
		})
	default:
		outcome.Published++
		notifier.Notify(notify.Event{
			Kind:    notify.KindSuccess,
			Message: fmt.Sprintf("Post %d published", post.ID),
		})
	}
}
