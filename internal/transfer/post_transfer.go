package transfer

// PostCreation carries the raw form fields of an enqueue request. Validation
// happens in the service, before anything touches the store.
type PostCreation struct {
	Caption      string
	ScheduleMode string
	ScheduledAt  string
	MediaData    []byte
}
