package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"postqueue/internal/errdefs"
	"postqueue/internal/models"
	"postqueue/internal/notify"
	"postqueue/internal/queue"
	"postqueue/internal/service"
	"postqueue/internal/transfer"
)

type PostHandler struct {
	s           service.PostService
	AsynqClient *asynq.Client
	notifier    notify.Notifier

	// syncNow fires after an ON_CONNECT enqueue so a post saved while the
	// device is already online publishes right away instead of waiting for
	// the next connectivity edge.
	syncNow func()
}

func NewPostHandler(s service.PostService, asynqClient *asynq.Client, notifier notify.Notifier, syncNow func()) *PostHandler {
	return &PostHandler{s: s, AsynqClient: asynqClient, notifier: notifier, syncNow: syncNow}
}

// CreatePost enqueues a post. The record is durable once this returns 200;
// publication happens later, driven by connectivity or the schedule.
func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse form",
		})
	}

	files := form.File["file"]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file selected",
		})
	}

	fileContent, err := files[0].Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to read file",
		})
	}
	defer fileContent.Close()

	mediaData, err := io.ReadAll(fileContent)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to read file",
		})
	}

	post, err := h.s.Enqueue(c.Context(), &transfer.PostCreation{
		Caption:      c.FormValue("caption"),
		ScheduleMode: c.FormValue("schedule_mode"),
		ScheduledAt:  c.FormValue("scheduled_at"),
		MediaData:    mediaData,
	})
	if err != nil {
		h.notifier.Notify(notify.Event{Kind: notify.KindError, Message: "Failed to save post"})
		if errdefs.IsValidation(err) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	h.notifier.Notify(notify.Event{
		Kind:    notify.KindSuccess,
		Message: fmt.Sprintf("Post %d saved", post.ID),
	})

	// AT_TIME posts get a wake-up task; ON_CONNECT posts drain immediately
	// when the device is online, otherwise on the next online transition.
	if post.ScheduleMode == models.ScheduleAtTime && post.ScheduledAt != nil {
		delay := time.Until(*post.ScheduledAt)
		if delay < 0 {
			delay = 0
		}
		if err := queue.SchedulePost(h.AsynqClient, queue.SchedulePostPayload{PostID: post.ID}, delay); err != nil {
			slog.Info("failed to schedule wake-up task", "post_id", post.ID, "error", err)
		}
	} else if h.syncNow != nil {
		h.syncNow()
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"id":      post.ID,
		"message": "Post queued successfully",
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	postID := c.QueryInt("id", 0)
	if postID != 0 {
		post, err := h.s.Get(c.Context(), int64(postID))
		if err != nil {
			if errors.Is(err, errdefs.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Post not found",
				})
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to get post",
			})
		}
		return c.Status(fiber.StatusOK).JSON(post)
	}

	var status models.PostStatus
	if raw := c.Query("status"); raw != "" {
		parsed, err := models.ParseStatus(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		status = parsed
	}

	posts, err := h.s.List(c.Context(), status)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	postID := c.QueryInt("id", 0)

	err := h.s.Remove(c.Context(), int64(postID))
	if err != nil {
		h.notifier.Notify(notify.Event{Kind: notify.KindError, Message: "Failed to delete post"})
		if errors.Is(err, errdefs.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Post not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove post",
		})
	}

	h.notifier.Notify(notify.Event{
		Kind:    notify.KindSuccess,
		Message: fmt.Sprintf("Post %d deleted", postID),
	})
	return c.SendStatus(fiber.StatusOK)
}
