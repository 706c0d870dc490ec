package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"postqueue/internal/errdefs"
	"postqueue/internal/metrics"
	"postqueue/internal/models"
	"postqueue/internal/repository"
)

// PublishResult is the structured outcome the orchestrator consumes; the
// pipeline never lets one record's error escape as a thrown failure.
type PublishResult struct {
	PostID       int64
	RemotePostID string
	Skipped      bool
	Err          error
}

func (r PublishResult) Success() bool {
	return r.Err == nil && !r.Skipped
}

// PublisherService drives one queued post through the remote pipeline:
// claim -> upload -> container create -> publish. Each step's status write is
// awaited before the next network call, so a crash mid-pipeline leaves the
// record at its last completed step instead of reverting to PENDING.
type PublisherService interface {
	Publish(ctx context.Context, post *models.Post) PublishResult
}

type publisherService struct {
	pr repository.PostRepository
	st StorageService
	ig InstagramService
}

func NewPublisherService(pr repository.PostRepository, st StorageService, ig InstagramService) PublisherService {
	return &publisherService{pr: pr, st: st, ig: ig}
}

func (s *publisherService) Publish(ctx context.Context, post *models.Post) PublishResult {
	result := PublishResult{PostID: post.ID}

	// Atomic PENDING -> PROCESSING. Losing the race means another drain
	// (foreground or background process) owns this record; that is not a
	// failure and produces no FAILED write.
	claimed, err := s.pr.ClaimPending(ctx, post.ID)
	if err != nil {
		result.Err = err
		return result
	}
	if !claimed {
		slog.Info("post already claimed by another drain", "post_id", post.ID)
		result.Skipped = true
		result.Err = errdefs.ErrAlreadyClaimed
		return result
	}

	remoteID, err := s.run(ctx, post)
	if err != nil {
		s.markFailed(ctx, post.ID, err)
		result.Err = err
		return result
	}

	result.RemotePostID = remoteID
	return result
}

func (s *publisherService) run(ctx context.Context, post *models.Post) (string, error) {
	mediaURL := post.MediaURL
	var uploadedURL string

	// Upload only when the record still carries the inline payload; a record
	// recovered at UPLOADING or later already has its remote reference.
	if !post.Uploaded() {
		url, err := s.st.UploadMedia(ctx, post.ID, post.MediaData)
		if err != nil {
			metrics.PostsFailed.WithLabelValues("upload").Inc()
			return "", err
		}
		mediaURL = url
		uploadedURL = url
	}

	if err := s.advance(ctx, post.ID, models.PostStatusProcessing, models.PostStatusUploading, uploadedURL); err != nil {
		return "", err
	}

	containerID, err := s.ig.CreateContainer(ctx, mediaURL, post.Caption)
	if err != nil {
		metrics.PostsFailed.WithLabelValues("container").Inc()
		return "", err
	}

	remoteID, err := s.ig.PublishContainer(ctx, containerID)
	if err != nil {
		metrics.PostsFailed.WithLabelValues("publish").Inc()
		return "", err
	}

	if err := s.advance(ctx, post.ID, models.PostStatusUploading, models.PostStatusPosted, ""); err != nil {
		return "", err
	}

	metrics.PostsPublished.Inc()
	return remoteID, nil
}

// advance writes the next lifecycle status. The transition table is the
// authority; a write that would leave the graph is loud in the logs before it
// lands.
func (s *publisherService) advance(ctx context.Context, postID int64, from, to models.PostStatus, mediaURL string) error {
	if !from.CanTransitionTo(to) {
		slog.Warn("status write outside the lifecycle graph",
			"post_id", postID,
			"from", from,
			"to", to,
		)
	}
	return s.pr.UpdateStatus(ctx, postID, to, mediaURL)
}

// markFailed is best-effort: if the FAILED write itself fails, both errors are
// logged and the original pipeline error stays the reported one.
func (s *publisherService) markFailed(ctx context.Context, postID int64, cause error) {
	if err := s.pr.UpdateStatus(ctx, postID, models.PostStatusFailed, ""); err != nil {
		slog.Error("failed to mark post FAILED",
			"post_id", postID,
			"cause", cause,
			"status_write_error", err,
		)
	}
}

// DescribeFailure renders a pipeline error for user notification.
func DescribeFailure(postID int64, err error) string {
	var ue *errdefs.UploadError
	var re *errdefs.RemoteAPIError
	switch {
	case errors.As(err, &ue):
		return fmt.Sprintf("Post %d failed: media upload error", postID)
	case errors.As(err, &re):
		return fmt.Sprintf("Post %d failed: instagram %s error", postID, re.Step)
	default:
		return fmt.Sprintf("Post %d failed: %v", postID, err)
	}
}
