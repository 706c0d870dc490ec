package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"postqueue/internal/errdefs"
	"postqueue/internal/models"
)

// fakePostRepository mirrors the SQL store's semantics in memory: forced
// PENDING on insert, soft-delete visibility, conditional claim.
type fakePostRepository struct {
	mu     sync.Mutex
	nextID int64
	posts  map[int64]*models.Post

	// statusLog records every status write in order, claim included.
	statusLog []models.PostStatus
}

func newFakePostRepository() *fakePostRepository {
	return &fakePostRepository{nextID: 1, posts: make(map[int64]*models.Post)}
}

func (r *fakePostRepository) Create(ctx context.Context, post *models.Post) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *post
	stored.ID = r.nextID
	stored.Status = models.PostStatusPending
	stored.IsDeleted = false
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.posts[stored.ID] = &stored
	r.nextID++
	return stored.ID, nil
}

func (r *fakePostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[id]
	if !ok || post.IsDeleted {
		return nil, errdefs.ErrNotFound
	}
	copied := *post
	return &copied, nil
}

func (r *fakePostRepository) ListAll(ctx context.Context, status models.PostStatus) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var posts []*models.Post
	for _, post := range r.posts {
		if post.IsDeleted {
			continue
		}
		if status != "" && post.Status != status {
			continue
		}
		copied := *post
		posts = append(posts, &copied)
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts, nil
}

func (r *fakePostRepository) ListEligibleScheduled(ctx context.Context, now time.Time) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var posts []*models.Post
	for _, post := range r.posts {
		if post.IsDeleted || post.Status != models.PostStatusPending ||
			post.ScheduleMode != models.ScheduleAtTime || post.ScheduledAt == nil ||
			post.ScheduledAt.After(now) {
			continue
		}
		copied := *post
		posts = append(posts, &copied)
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].ScheduledAt.Before(*posts[j].ScheduledAt)
	})
	return posts, nil
}

func (r *fakePostRepository) UpdateStatus(ctx context.Context, id int64, status models.PostStatus, mediaURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[id]
	if !ok || post.IsDeleted {
		return errdefs.ErrNotFound
	}
	post.Status = status
	if mediaURL != "" {
		post.MediaURL = mediaURL
		post.MediaData = nil
	}
	post.UpdatedAt = time.Now()
	r.statusLog = append(r.statusLog, status)
	return nil
}

func (r *fakePostRepository) ClaimPending(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[id]
	if !ok || post.IsDeleted || post.Status != models.PostStatusPending {
		return false, nil
	}
	post.Status = models.PostStatusProcessing
	post.UpdatedAt = time.Now()
	r.statusLog = append(r.statusLog, models.PostStatusProcessing)
	return true, nil
}

func (r *fakePostRepository) SoftDelete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[id]
	if !ok || post.IsDeleted {
		return errdefs.ErrNotFound
	}
	now := time.Now()
	post.IsDeleted = true
	post.DeletedAt = &now
	post.UpdatedAt = now
	return nil
}

// fakeStorage records uploads and can be told to fail.
type fakeStorage struct {
	mu      sync.Mutex
	uploads int
	url     string
	err     error
}

func (s *fakeStorage) UploadMedia(ctx context.Context, postID int64, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.uploads++
	return s.url, nil
}

// fakeInstagram counts Graph API calls and can fail either step.
type fakeInstagram struct {
	mu           sync.Mutex
	containers   int
	publishes    int
	containerID  string
	remotePostID string
	containerErr error
	publishErr   error
}

func (f *fakeInstagram) CreateContainer(ctx context.Context, mediaURL, caption string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.containerErr != nil {
		return "", f.containerErr
	}
	f.containers++
	return f.containerID, nil
}

func (f *fakeInstagram) PublishContainer(ctx context.Context, containerID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return "", f.publishErr
	}
	f.publishes++
	return f.remotePostID, nil
}

func (f *fakeInstagram) AuthURL(state string) string                     { return "" }
func (f *fakeInstagram) Callback(ctx context.Context, code string) error { return nil }
func (f *fakeInstagram) RefreshToken(ctx context.Context) error          { return nil }

// pngPayload is a minimal PNG header, enough for filetype sniffing.
func pngPayload() []byte {
	return []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
}
