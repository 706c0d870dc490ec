package notify

// Kind is the severity of a user-facing event.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// SyncCounts carries the aggregate result of a background sync back to the
// foreground.
type SyncCounts struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// Event is the single channel through which every terminal outcome reaches
// the user: enqueue, delete, per-record publish and batch completion.
type Event struct {
	Kind    Kind        `json:"kind"`
	Message string      `json:"message"`
	Counts  *SyncCounts `json:"counts,omitempty"`
}

// Notifier delivers events. Delivery is fire-and-forget; a Notifier must not
// block the caller.
type Notifier interface {
	Notify(event Event)
}
