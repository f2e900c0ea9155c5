package handlers

import (
	"bytes"
	"time"

	"github.com/bsvchal/strp/internal/view"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"go.uber.org/zap"
)

// sessionViewKey stores the ID of the view mounted for a session.
const sessionViewKey = "view_id"

type LeaderboardHandlers struct {
	views    *view.Registry
	sessions *session.Store
	refresh  time.Duration
	logger   *zap.Logger
}

func NewLeaderboardHandlers(views *view.Registry, sessions *session.Store, refresh time.Duration, logger *zap.Logger) *LeaderboardHandlers {
	return &LeaderboardHandlers{
		views:    views,
		sessions: sessions,
		refresh:  refresh,
		logger:   logger,
	}
}

// GetLeaderboardPage handles GET /leaderboard
func (h *LeaderboardHandlers) GetLeaderboardPage(c *fiber.Ctx) error {
	v, err := h.sessionView(c)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := view.RenderPage(&buf, v.State(), h.refresh); err != nil {
		h.logger.Error("Failed to render leaderboard page", zap.String("view_id", v.ID()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to render leaderboard",
		})
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Type("html", "utf-8")
	return c.Status(fiber.StatusOK).Send(buf.Bytes())
}

// GetLeaderboardState handles GET /leaderboard/state
func (h *LeaderboardHandlers) GetLeaderboardState(c *fiber.Ctx) error {
	v, err := h.sessionView(c)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Status(fiber.StatusOK).JSON(v.State())
}

// DeleteLeaderboard handles DELETE /leaderboard
func (h *LeaderboardHandlers) DeleteLeaderboard(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c)
	if err != nil {
		h.logger.Error("Failed to load session", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load session",
		})
	}

	if sess.Fresh() {
		return c.SendStatus(fiber.StatusNoContent)
	}

	h.views.Release(sess.ID())
	if err := sess.Destroy(); err != nil {
		h.logger.Error("Failed to destroy session", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to end session",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// sessionView returns the view mounted for the caller's session, mounting
// one on the first visit.
func (h *LeaderboardHandlers) sessionView(c *fiber.Ctx) (*view.View, error) {
	sess, err := h.sessions.Get(c)
	if err != nil {
		h.logger.Error("Failed to load session", zap.Error(err))
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Failed to load session")
	}

	v, err := h.views.Acquire(sess.ID())
	if err != nil {
		h.logger.Warn("Leaderboard view unavailable", zap.Error(err))
		return nil, fiber.NewError(fiber.StatusServiceUnavailable, "Leaderboard is shutting down")
	}

	sess.Set(sessionViewKey, v.ID())
	if err := sess.Save(); err != nil {
		h.logger.Error("Failed to save session", zap.Error(err))
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Failed to save session")
	}

	return v, nil
}
