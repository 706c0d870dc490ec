package queue

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postqueue/internal/errdefs"
	"postqueue/internal/models"
	"postqueue/internal/notify"
	"postqueue/internal/service"
)

type memRepo struct {
	mu     sync.Mutex
	nextID int64
	posts  map[int64]*models.Post

	listErr error
}

func newMemRepo() *memRepo {
	return &memRepo{nextID: 1, posts: make(map[int64]*models.Post)}
}

func (r *memRepo) add(mode models.ScheduleMode, scheduledAt *time.Time) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.posts[id] = &models.Post{
		ID:           id,
		MediaData:    []byte{1},
		Caption:      "queued",
		ScheduleMode: mode,
		ScheduledAt:  scheduledAt,
		Status:       models.PostStatusPending,
		CreatedAt:    time.Now().Add(time.Duration(id) * time.Millisecond),
	}
	return id
}

func (r *memRepo) Create(ctx context.Context, post *models.Post) (int64, error) {
	return r.add(post.ScheduleMode, post.ScheduledAt), nil
}

func (r *memRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok || post.IsDeleted {
		return nil, errdefs.ErrNotFound
	}
	copied := *post
	return &copied, nil
}

func (r *memRepo) ListAll(ctx context.Context, status models.PostStatus) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var posts []*models.Post
	for _, post := range r.posts {
		if post.IsDeleted || (status != "" && post.Status != status) {
			continue
		}
		copied := *post
		posts = append(posts, &copied)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	return posts, nil
}

func (r *memRepo) ListEligibleScheduled(ctx context.Context, now time.Time) ([]*models.Post, error) {
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
	sort.Slice(posts, func(i, j int) bool { return posts[i].ScheduledAt.Before(*posts[j].ScheduledAt) })
	return posts, nil
}

func (r *memRepo) UpdateStatus(ctx context.Context, id int64, status models.PostStatus, mediaURL string) error {
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
	return nil
}

func (r *memRepo) ClaimPending(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok || post.IsDeleted || post.Status != models.PostStatusPending {
		return false, nil
	}
	post.Status = models.PostStatusProcessing
	return true, nil
}

func (r *memRepo) SoftDelete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok || post.IsDeleted {
		return errdefs.ErrNotFound
	}
	post.IsDeleted = true
	return nil
}

// countingPublisher wraps real claim semantics against the repo and counts
// completed remote publishes.
type countingPublisher struct {
	repo *memRepo

	mu        sync.Mutex
	published int
	failWith  error
}

func (p *countingPublisher) Publish(ctx context.Context, post *models.Post) service.PublishResult {
	result := service.PublishResult{PostID: post.ID}

	claimed, err := p.repo.ClaimPending(ctx, post.ID)
	if err != nil {
		result.Err = err
		return result
	}
	if !claimed {
		result.Skipped = true
		result.Err = errdefs.ErrAlreadyClaimed
		return result
	}

	if p.failWith != nil {
		p.repo.UpdateStatus(ctx, post.ID, models.PostStatusFailed, "")
		result.Err = p.failWith
		return result
	}

	p.repo.UpdateStatus(ctx, post.ID, models.PostStatusPosted, "")
	p.mu.Lock()
	p.published++
	p.mu.Unlock()
	result.RemotePostID = "remote"
	return result
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(event notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) kinds() []notify.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]notify.Kind, len(n.events))
	for i, e := range n.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func TestDrain_PublishesEligibleInOrder(t *testing.T) {
	repo := newMemRepo()
	repo.add(models.ScheduleOnConnect, nil)
	at := time.Now().Add(time.Hour)
	repo.add(models.ScheduleAtTime, &at) // excluded from online drain

	pub := &countingPublisher{repo: repo}
	notifier := &recordingNotifier{}
	q := NewQueue(repo, pub)

	outcome, err := q.Drain(context.Background(), "online", notifier)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Eligible)
	assert.Equal(t, 1, outcome.Published)
	assert.Equal(t, 1, pub.published)

	// info "processing", success per record, success batch complete.
	assert.Equal(t, []notify.Kind{notify.KindInfo, notify.KindSuccess, notify.KindSuccess}, notifier.kinds())
}

func TestDrain_EmptyQueueIsSilent(t *testing.T) {
	repo := newMemRepo()
	pub := &countingPublisher{repo: repo}
	notifier := &recordingNotifier{}
	q := NewQueue(repo, pub)

	outcome, err := q.Drain(context.Background(), "online", notifier)
	require.NoError(t, err)
	assert.Zero(t, outcome.Eligible)
	assert.Empty(t, notifier.events, "no notifications when nothing is eligible")
}

func TestDrain_FailureDoesNotAbortBatch(t *testing.T) {
	repo := newMemRepo()
	repo.add(models.ScheduleOnConnect, nil)
	repo.add(models.ScheduleOnConnect, nil)

	pub := &countingPublisher{repo: repo, failWith: errdefs.RemoteAPI("container", assert.AnError)}
	notifier := &recordingNotifier{}
	q := NewQueue(repo, pub)

	outcome, err := q.Drain(context.Background(), "online", notifier)
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Eligible)
	assert.Equal(t, 2, outcome.Failed)

	// Both records were attempted and both failures surfaced, plus the
	// leading info and trailing completion events.
	assert.Equal(t, []notify.Kind{notify.KindInfo, notify.KindError, notify.KindError, notify.KindSuccess}, notifier.kinds())
}

func TestDrain_StoreFailureFailsInvocationOnly(t *testing.T) {
	repo := newMemRepo()
	repo.listErr = errdefs.Storage("list", assert.AnError)

	pub := &countingPublisher{repo: repo}
	notifier := &recordingNotifier{}
	q := NewQueue(repo, pub)

	_, err := q.Drain(context.Background(), "online", notifier)
	require.Error(t, err)
	assert.Empty(t, notifier.events)

	// The next invocation succeeds once the store recovers.
	repo.listErr = nil
	_, err = q.Drain(context.Background(), "online", notifier)
	require.NoError(t, err)
}

func TestDrain_ConcurrentDrainsPublishOnce(t *testing.T) {
	repo := newMemRepo()
	repo.add(models.ScheduleOnConnect, nil)

	pub := &countingPublisher{repo: repo}
	q := NewQueue(repo, pub)

	// Two online transitions within milliseconds of each other.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Drain(context.Background(), "online", &recordingNotifier{})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, pub.published, "exactly one remote publish across concurrent drains")
}

func TestProcessScheduled_PublishesDuePostsOnly(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	repo := newMemRepo()
	due := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	dueID := repo.add(models.ScheduleAtTime, &due)
	futureID := repo.add(models.ScheduleAtTime, &future)

	pub := &countingPublisher{repo: repo}
	q := NewQueue(repo, pub)

	outcome, err := q.ProcessScheduled(context.Background(), &recordingNotifier{})
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Eligible)
	assert.Equal(t, 1, outcome.Published)

	duePost, err := repo.GetByID(context.Background(), dueID)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPosted, duePost.Status)

	futurePost, err := repo.GetByID(context.Background(), futureID)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPending, futurePost.Status)
}
