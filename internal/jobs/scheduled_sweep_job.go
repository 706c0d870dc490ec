package job

import (
	"context"
	"log/slog"

	"postqueue/internal/netmon"
	"postqueue/internal/notify"
	"postqueue/internal/queue"
)

// ScheduledSweepJob is the safety net for AT_TIME posts whose wake-up task was
// lost (Redis flush, worker downtime). It runs from cron every minute and
// publishes whatever has come due.
type ScheduledSweepJob struct {
	q        *queue.Queue
	monitor  *netmon.Monitor
	notifier notify.Notifier
}

func NewScheduledSweepJob(q *queue.Queue, monitor *netmon.Monitor, notifier notify.Notifier) *ScheduledSweepJob {
	return &ScheduledSweepJob{q: q, monitor: monitor, notifier: notifier}
}

func (j *ScheduledSweepJob) Run() {
	if !j.monitor.Online() {
		return
	}

	ctx := context.Background()
	outcome, err := j.q.ProcessScheduled(ctx, j.notifier)
	if err != nil {
		slog.Info("scheduled sweep failed", "error", err)
		return
	}
	if outcome.Eligible > 0 {
		slog.Info("scheduled sweep done",
			"published", outcome.Published,
			"failed", outcome.Failed,
			"skipped", outcome.Skipped,
		)
	}
}
