package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	config "postqueue/configs"
	"postqueue/internal/service"
)

type PlatformHandler struct {
	ig  service.InstagramService
	cfg config.Config
}

func NewPlatformHandler(ig service.InstagramService, cfg config.Config) *PlatformHandler {
	return &PlatformHandler{ig: ig, cfg: cfg}
}

// ConnectInstagram starts the OAuth dance for the publishing account.
func (h *PlatformHandler) ConnectInstagram(c *fiber.Ctx) error {
	return c.Redirect(h.ig.AuthURL("instagram"), fiber.StatusTemporaryRedirect)
}

func (h *PlatformHandler) CallbackHandler(c *fiber.Ctx) error {
	code := c.Query("code")

	if err := h.ig.Callback(c.Context(), code); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Unable to connect Instagram account",
		})
	}

	return c.Redirect(h.cfg.FrontendURL, fiber.StatusTemporaryRedirect)
}
