package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PostsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "postqueue_posts_published_total",
		Help: "Posts that reached POSTED.",
	})

	PostsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postqueue_posts_failed_total",
		Help: "Posts that reached FAILED, by pipeline stage.",
	}, []string{"stage"})

	DrainsRun = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postqueue_drains_total",
		Help: "Drain invocations, by trigger.",
	}, []string{"trigger"})

	PendingBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "postqueue_pending_backlog",
		Help: "PENDING posts seen by the most recent drain.",
	})
)
