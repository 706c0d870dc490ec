package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/h2non/filetype"

	"postqueue/internal/errdefs"
	"postqueue/internal/models"
	"postqueue/internal/repository"
	"postqueue/internal/transfer"
)

// PostService is the UI-facing surface of the queue: validated enqueue,
// listing and soft delete. Validation failures never reach the store.
type PostService interface {
	Enqueue(ctx context.Context, pc *transfer.PostCreation) (*models.Post, error)
	List(ctx context.Context, status models.PostStatus) ([]*models.Post, error)
	Get(ctx context.Context, id int64) (*models.Post, error)
	Remove(ctx context.Context, id int64) error
}

type postService struct {
	pr  repository.PostRepository
	now func() time.Time
}

func NewPostService(pr repository.PostRepository) PostService {
	return &postService{pr: pr, now: time.Now}
}

func (s *postService) Enqueue(ctx context.Context, pc *transfer.PostCreation) (*models.Post, error) {
	if pc == nil {
		return nil, errdefs.Validation("request", "post creation data is nil")
	}

	if err := validateCaption(pc.Caption); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	mediaType, err := validateMedia(pc.MediaData)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	mode, scheduledAt, err := s.validateSchedule(pc.ScheduleMode, pc.ScheduledAt)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	post := &models.Post{
		MediaData:    pc.MediaData,
		MediaType:    mediaType,
		Caption:      pc.Caption,
		ScheduleMode: mode,
		ScheduledAt:  scheduledAt,
	}

	id, err := s.pr.Create(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}

	post.ID = id
	post.Status = models.PostStatusPending
	return post, nil
}

func validateCaption(caption string) error {
	if utf8.RuneCountInString(caption) > models.CaptionMaxRunes {
		return errdefs.Validation("caption", fmt.Sprintf("longer than %d characters", models.CaptionMaxRunes))
	}
	if countHashtags(caption) > models.MaxHashtags {
		return errdefs.Validation("caption", fmt.Sprintf("more than %d hashtags", models.MaxHashtags))
	}
	return nil
}

func countHashtags(caption string) int {
	count := 0
	for _, field := range strings.Fields(caption) {
		if strings.HasPrefix(field, "#") && len(field) > 1 {
			count++
		}
	}
	return count
}

func validateMedia(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errdefs.Validation("media", "no media provided")
	}
	if len(data) > models.MaxMediaBytes {
		return "", errdefs.Validation("media", fmt.Sprintf("larger than %d bytes", models.MaxMediaBytes))
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return "", errdefs.Validation("media", "unsupported file type")
	}
	switch kind.Extension {
	case "jpg", "jpeg", "png":
		return kind.MIME.Value, nil
	default:
		return "", errdefs.Validation("media", fmt.Sprintf("file type %s is not allowed", kind.Extension))
	}
}

// validateSchedule enforces the exclusive (now+15m, now+75d) window for
// AT_TIME posts; boundary values are rejected.
func (s *postService) validateSchedule(rawMode, rawAt string) (models.ScheduleMode, *time.Time, error) {
	mode, err := models.ParseScheduleMode(rawMode)
	if err != nil {
		return "", nil, errdefs.Validation("schedule_mode", err.Error())
	}

	if mode == models.ScheduleOnConnect {
		if rawAt != "" {
			return "", nil, errdefs.Validation("scheduled_at", "must be empty for ON_CONNECT posts")
		}
		return mode, nil, nil
	}

	if rawAt == "" {
		return "", nil, errdefs.Validation("scheduled_at", "required for AT_TIME posts")
	}

	scheduledAt, err := time.Parse(time.RFC3339, rawAt)
	if err != nil {
		return "", nil, errdefs.Validation("scheduled_at", fmt.Sprintf("invalid time format: %v", err))
	}

	now := s.now()
	if !scheduledAt.After(now.Add(models.MinScheduleLead)) {
		return "", nil, errdefs.Validation("scheduled_at", "must be more than 15 minutes from now")
	}
	if !scheduledAt.Before(now.Add(models.MaxScheduleAhead)) {
		return "", nil, errdefs.Validation("scheduled_at", "must be less than 75 days from now")
	}

	return mode, &scheduledAt, nil
}

func (s *postService) List(ctx context.Context, status models.PostStatus) ([]*models.Post, error) {
	posts, err := s.pr.ListAll(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	return posts, nil
}

func (s *postService) Get(ctx context.Context, id int64) (*models.Post, error) {
	if id == 0 {
		return nil, errdefs.Validation("id", "post id is not valid")
	}
	return s.pr.GetByID(ctx, id)
}

func (s *postService) Remove(ctx context.Context, id int64) error {
	if id == 0 {
		return errdefs.Validation("id", "post id is not valid")
	}
	return s.pr.SoftDelete(ctx, id)
}
