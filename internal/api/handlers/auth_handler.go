package handlers

import (
	"crypto/subtle"
	"time"

	"github.com/gofiber/fiber/v2"

	config "postqueue/configs"
	"postqueue/pkg/utils"
)

type AuthHandler struct {
	cfg config.Config
}

func NewAuthHandler(cfg config.Config) *AuthHandler {
	return &AuthHandler{cfg: cfg}
}

const sessionDuration = 30 * 24 * time.Hour

// Login trades the device's login secret for a session cookie. The queue is
// single-user, so there is no account lookup.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body struct {
		Secret string `json:"secret"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	if h.cfg.LoginSecret == "" ||
		subtle.ConstantTimeCompare([]byte(body.Secret), []byte(h.cfg.LoginSecret)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid login secret",
		})
	}

	token, err := utils.GenerateToken(h.cfg.SecretKey, "1", sessionDuration)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to create session",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		MaxAge:   int(sessionDuration.Seconds()),
	})

	return c.SendStatus(fiber.StatusOK)
}
