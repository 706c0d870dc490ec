package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// EventsChannel carries sync events from the background worker process to any
// listening foreground server. The worker publishes and keeps going whether or
// not a server is subscribed, mirroring a page that may not be open.
const EventsChannel = "postqueue:events"

// Bridge publishes events over Redis pub/sub. It is the worker-side Notifier.
type Bridge struct {
	client *redis.Client
}

func NewBridge(client *redis.Client) *Bridge {
	return &Bridge{client: client}
}

func (b *Bridge) Notify(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if err := b.client.Publish(context.Background(), EventsChannel, payload).Err(); err != nil {
		slog.Info("failed to publish event", "error", err)
	}
}

// Relay subscribes to the events channel and forwards each event to dst until
// ctx is cancelled. Run it in its own goroutine on the server side.
func Relay(ctx context.Context, client *redis.Client, dst Notifier) {
	sub := client.Subscribe(ctx, EventsChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.Info("discarding malformed event", "error", err)
				continue
			}
			dst.Notify(event)
		}
	}
}
