package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"postqueue/internal/errdefs"
	"postqueue/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	ListAll(ctx context.Context, status models.PostStatus) ([]*models.Post, error)
	ListEligibleScheduled(ctx context.Context, now time.Time) ([]*models.Post, error)
	UpdateStatus(ctx context.Context, id int64, status models.PostStatus, mediaURL string) error
	ClaimPending(ctx context.Context, id int64) (bool, error)
	SoftDelete(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, media_data, media_type, media_url, caption, schedule_mode, scheduled_at, status, is_deleted, created_at, updated_at, deleted_at`

// Create persists a new post. Caller-supplied status, id and timestamps are
// ignored: every record enters the queue as PENDING.
func (r *postRepository) Create(ctx context.Context, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (media_data, media_type, media_url, caption, schedule_mode, scheduled_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		post.MediaData, post.MediaType, "", post.Caption,
		string(post.ScheduleMode), post.ScheduledAt, string(models.PostStatusPending),
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, errdefs.Storage("insert", err)
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1 AND is_deleted = FALSE`
	row := r.db.QueryRowContext(ctx, query, id)

	post, err := scanPost(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errdefs.ErrNotFound
		}
		slog.Info(err.Error())
		return nil, errdefs.Storage("get", err)
	}

	return post, nil
}

// ListAll returns non-deleted posts, newest first. An empty status returns
// every status.
func (r *postRepository) ListAll(ctx context.Context, status models.PostStatus) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE is_deleted = FALSE`
	args := []any{}
	if status != "" {
		query += ` AND status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, errdefs.Storage("list", err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

// ListEligibleScheduled returns PENDING AT_TIME posts whose scheduled time has
// passed, earliest first.
func (r *postRepository) ListEligibleScheduled(ctx context.Context, now time.Time) ([]*models.Post, error) {
	query := `
		SELECT ` + postColumns + ` FROM posts
		WHERE is_deleted = FALSE
		  AND status = $1
		  AND schedule_mode = $2
		  AND scheduled_at IS NOT NULL
		  AND scheduled_at <= $3
		ORDER BY scheduled_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, string(models.PostStatusPending), string(models.ScheduleAtTime), now)
	if err != nil {
		slog.Info(err.Error())
		return nil, errdefs.Storage("list_scheduled", err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

// UpdateStatus applies a new status and, when mediaURL is non-empty, replaces
// the inline media with the remote reference and clears the stored bytes.
// The store does not validate the transition; callers own the state machine.
func (r *postRepository) UpdateStatus(ctx context.Context, id int64, status models.PostStatus, mediaURL string) error {
	var res sql.Result
	var err error

	if mediaURL != "" {
		query := `
			UPDATE posts
			SET status = $1, media_url = $2, media_data = NULL, updated_at = $3
			WHERE id = $4 AND is_deleted = FALSE
		`
		res, err = r.db.ExecContext(ctx, query, string(status), mediaURL, time.Now(), id)
	} else {
		query := `
			UPDATE posts
			SET status = $1, updated_at = $2
			WHERE id = $3 AND is_deleted = FALSE
		`
		res, err = r.db.ExecContext(ctx, query, string(status), time.Now(), id)
	}
	if err != nil {
		slog.Info(err.Error())
		return errdefs.Storage("update_status", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errdefs.Storage("update_status", err)
	}
	if n == 0 {
		return errdefs.ErrNotFound
	}
	return nil
}

// ClaimPending is the compare-and-swap that keeps two concurrent drains from
// double-publishing a record: the transition to PROCESSING succeeds only while
// the row is still PENDING.
func (r *postRepository) ClaimPending(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE posts
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4 AND is_deleted = FALSE
	`
	res, err := r.db.ExecContext(ctx, query, string(models.PostStatusProcessing), time.Now(), id, string(models.PostStatusPending))
	if err != nil {
		slog.Info(err.Error())
		return false, errdefs.Storage("claim", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errdefs.Storage("claim", err)
	}
	return n == 1, nil
}

func (r *postRepository) SoftDelete(ctx context.Context, id int64) error {
	query := `
		UPDATE posts
		SET is_deleted = TRUE, deleted_at = $1, updated_at = $1
		WHERE id = $2 AND is_deleted = FALSE
	`
	res, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return errdefs.Storage("delete", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errdefs.Storage("delete", err)
	}
	if n == 0 {
		return errdefs.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var post models.Post
	var rawStatus, rawMode string
	err := row.Scan(
		&post.ID, &post.MediaData, &post.MediaType, &post.MediaURL, &post.Caption,
		&rawMode, &post.ScheduledAt, &rawStatus, &post.IsDeleted,
		&post.CreatedAt, &post.UpdatedAt, &post.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	post.Status, err = models.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	post.ScheduleMode, err = models.ParseScheduleMode(rawMode)
	if err != nil {
		return nil, err
	}

	return &post, nil
}

func collectPosts(rows *sql.Rows) ([]*models.Post, error) {
	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, errdefs.Storage("scan", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, errdefs.Storage("scan", err)
	}
	return posts, nil
}
