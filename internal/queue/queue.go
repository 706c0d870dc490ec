package queue

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/hibiken/asynq"
)

// RegisterSync asks the background worker to run a drain opportunistically.
// Rapid registrations coalesce into one queued task; the worker may run it
// late or, if Redis is unavailable, not at all. The foreground monitor path
// stays the primary delivery mechanism.
func RegisterSync(asynqClient *asynq.Client) error {
	task := asynq.NewTask(TaskTypeSyncPosts, nil)

	_, err := asynqClient.Enqueue(task,
		asynq.TaskID(TaskTypeSyncPosts),
		asynq.Retention(time.Minute),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return err
	}

	log.Println("Background sync registered")
	return nil
}

// SchedulePost queues the wake-up for an AT_TIME post. The cron sweep backs
// this up in case the task is lost before it fires.
func SchedulePost(asynqClient *asynq.Client, payload SchedulePostPayload, delay time.Duration) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeSchedulePost, taskPayload)

	_, err = asynqClient.Enqueue(task, asynq.ProcessIn(delay))
	if err != nil {
		return err
	}

	log.Printf("Task scheduled: %+v", payload)
	return nil
}
