package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"postqueue/internal/errdefs"
	"postqueue/internal/models"
	"postqueue/internal/notify"
)

// Worker is the background reconciliation context: it runs the same drain
// logic as the foreground server, against the same store, and reports back
// over the notifier bridge instead of a return value.
type Worker struct {
	q        *Queue
	notifier notify.Notifier
}

func NewWorker(q *Queue, notifier notify.Notifier) *Worker {
	return &Worker{q: q, notifier: notifier}
}

// HandleSyncTask drains pending ON_CONNECT posts and announces the result,
// counts included, so the foreground can show what the background context did.
// Errors are returned so asynq retries the sync later; a drain that simply
// found nothing is a success.
func (w *Worker) HandleSyncTask(ctx context.Context, task *asynq.Task) error {
	outcome, err := w.q.Drain(ctx, "background", w.notifier)
	if err != nil {
		slog.Info("background sync failed", "error", err)
		return err
	}

	if outcome.Eligible > 0 {
		slog.Info("background sync complete", "published", outcome.Published, "failed", outcome.Failed)
		w.notifier.Notify(notify.Event{
			Kind:    notify.KindSuccess,
			Message: "Background sync complete",
			Counts: &notify.SyncCounts{
				Processed: outcome.Published,
				Failed:    outcome.Failed,
			},
		})
	}
	return nil
}

// HandleSchedulePostTask fires when one AT_TIME post comes due. Eligibility is
// re-checked at fire time: the post may have been deleted, published by the
// sweep, or already claimed.
func (w *Worker) HandleSchedulePostTask(ctx context.Context, task *asynq.Task) error {
	var payload SchedulePostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	post, err := w.q.pr.GetByID(ctx, payload.PostID)
	if err != nil {
		if errors.Is(err, errdefs.ErrNotFound) {
			slog.Info("scheduled post gone before publish", "post_id", payload.PostID)
			return nil
		}
		return err
	}

	if post.Status != models.PostStatusPending || post.ScheduleMode != models.ScheduleAtTime {
		return nil
	}
	if post.ScheduledAt != nil && post.ScheduledAt.After(nowFunc()) {
		// Fired early; let the sweep pick it up at the right time.
		return nil
	}

	var outcome DrainOutcome
	w.q.publishOne(ctx, post, w.notifier, &outcome)
	return nil
}
