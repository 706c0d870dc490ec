package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postqueue/internal/errdefs"
	"postqueue/internal/models"
	"postqueue/internal/notify"
	"postqueue/internal/transfer"
)

type stubPostService struct {
	post *models.Post
	err  error
}

func (s *stubPostService) Enqueue(ctx context.Context, pc *transfer.PostCreation) (*models.Post, error) {
	return s.post, s.err
}

func (s *stubPostService) List(ctx context.Context, status models.PostStatus) ([]*models.Post, error) {
	return nil, nil
}

func (s *stubPostService) Get(ctx context.Context, id int64) (*models.Post, error) {
	return s.post, nil
}

func (s *stubPostService) Remove(ctx context.Context, id int64) error { return nil }

type nopNotifier struct{}

func (nopNotifier) Notify(notify.Event) {}

func newCreateRequest(t *testing.T, scheduleMode string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	fw, err := w.CreateFormFile("file", "photo.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0})
	require.NoError(t, err)

	require.NoError(t, w.WriteField("caption", "queued from the road"))
	require.NoError(t, w.WriteField("schedule_mode", scheduleMode))
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/posts/create", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestCreatePost_OnConnectWhileOnlineTriggersSync(t *testing.T) {
	stub := &stubPostService{post: &models.Post{
		ID:           1,
		ScheduleMode: models.ScheduleOnConnect,
		Status:       models.PostStatusPending,
	}}

	syncs := 0
	h := NewPostHandler(stub, nil, nopNotifier{}, func() { syncs++ })

	app := fiber.New()
	app.Post("/posts/create", h.CreatePost)

	resp, err := app.Test(newCreateRequest(t, "ON_CONNECT"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, syncs, "an ON_CONNECT post saved online must drain immediately")
}

func TestCreatePost_RejectedEnqueueDoesNotTriggerSync(t *testing.T) {
	stub := &stubPostService{err: errdefs.Validation("caption", "longer than 2200 characters")}

	syncs := 0
	h := NewPostHandler(stub, nil, nopNotifier{}, func() { syncs++ })

	app := fiber.New()
	app.Post("/posts/create", h.CreatePost)

	resp, err := app.Test(newCreateRequest(t, "ON_CONNECT"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, syncs)
}

func TestCreatePost_NilSyncTriggerIsSafe(t *testing.T) {
	stub := &stubPostService{post: &models.Post{
		ID:           2,
		ScheduleMode: models.ScheduleOnConnect,
		Status:       models.PostStatusPending,
	}}

	h := NewPostHandler(stub, nil, nopNotifier{}, nil)

	app := fiber.New()
	app.Post("/posts/create", h.CreatePost)

	resp, err := app.Test(newCreateRequest(t, "ON_CONNECT"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
