package models

import (
	"fmt"
	"strings"
	"time"
)

// Post is one row in the durable queue. MediaData holds the inline payload until
// the upload step replaces it with MediaURL; after that MediaData is cleared.
type Post struct {
	ID           int64        `db:"id" json:"id"`
	MediaData    []byte       `db:"media_data" json:"-"`
	MediaType    string       `db:"media_type" json:"media_type"`
	MediaURL     string       `db:"media_url" json:"media_url"`
	Caption      string       `db:"caption" json:"caption"`
	ScheduleMode ScheduleMode `db:"schedule_mode" json:"schedule_mode"`
	ScheduledAt  *time.Time   `db:"scheduled_at" json:"scheduled_at,omitempty"`
	Status       PostStatus   `db:"status" json:"status"`
	IsDeleted    bool         `db:"is_deleted" json:"-"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
	DeletedAt    *time.Time   `db:"deleted_at" json:"-"`
}

// Uploaded reports whether the media already lives in the object store.
func (p *Post) Uploaded() bool {
	return p.MediaURL != ""
}

type PostStatus string

const (
	PostStatusPending    PostStatus = "PENDING"
	PostStatusProcessing PostStatus = "PROCESSING"
	PostStatusUploading  PostStatus = "UPLOADING"
	PostStatusPosted     PostStatus = "POSTED"
	PostStatusFailed     PostStatus = "FAILED"
)

// ParseStatus canonicalizes a stored status string. Earlier snapshots of the
// schema drifted between cases, so the store validates on every read.
func ParseStatus(s string) (PostStatus, error) {
	switch st := PostStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case PostStatusPending, PostStatusProcessing, PostStatusUploading, PostStatusPosted, PostStatusFailed:
		return st, nil
	default:
		return "", fmt.Errorf("unknown post status %q", s)
	}
}

// Terminal statuses are never left automatically.
func (s PostStatus) Terminal() bool {
	return s == PostStatusPosted || s == PostStatusFailed
}

// CanTransitionTo enforces the lifecycle:
// PENDING -> PROCESSING -> UPLOADING -> POSTED, any non-terminal -> FAILED.
func (s PostStatus) CanTransitionTo(next PostStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == PostStatusFailed {
		return true
	}
	switch s {
	case PostStatusPending:
		return next == PostStatusProcessing
	case PostStatusProcessing:
		return next == PostStatusUploading
	case PostStatusUploading:
		return next == PostStatusPosted
	}
	return false
}

type ScheduleMode string

const (
	// ScheduleOnConnect publishes as soon as the device is online.
	ScheduleOnConnect ScheduleMode = "ON_CONNECT"
	// ScheduleAtTime publishes no earlier than ScheduledAt.
	ScheduleAtTime ScheduleMode = "AT_TIME"
)

func ParseScheduleMode(s string) (ScheduleMode, error) {
	switch m := ScheduleMode(strings.ToUpper(strings.TrimSpace(s))); m {
	case ScheduleOnConnect, ScheduleAtTime:
		return m, nil
	default:
		return "", fmt.Errorf("unknown schedule mode %q", s)
	}
}

const (
	// CaptionMaxRunes counts Unicode code points, not bytes.
	CaptionMaxRunes = 2200
	MaxHashtags     = 30

	// MaxMediaBytes caps the inline payload held in the queue before upload.
	MaxMediaBytes = 8 << 20

	// Scheduling window bounds, both exclusive.
	MinScheduleLead  = 15 * time.Minute
	MaxScheduleAhead = 75 * 24 * time.Hour
)
