package queue

import (
	"postqueue/internal/repository"
	"postqueue/internal/service"
)

// Queue owns drain orchestration. The server and the sync worker each build
// their own instance; the two share nothing but the store and the Redis
// event channel.
type Queue struct {
	pr  repository.PostRepository
	pub service.PublisherService
}

func NewQueue(pr repository.PostRepository, pub service.PublisherService) *Queue {
	return &Queue{
		pr:  pr,
		pub: pub,
	}
}

const (
	// TaskTypeSyncPosts is the background reconciliation tag: "wake me up and
	// drain whatever is pending", the service-worker sync analog.
	TaskTypeSyncPosts = "sync:posts"

	// TaskTypeSchedulePost fires when an AT_TIME post comes due.
	TaskTypeSchedulePost = "schedule:post"
)

type SchedulePostPayload struct {
	PostID int64 `json:"post_id"`
}
