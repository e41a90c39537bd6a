package syncing

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Handler handles HTTP requests for library syncing
type Handler struct {
	service *Service
}

// NewHandler creates a new sync handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// SyncAll triggers a full sync over every enabled source
func (h *Handler) SyncAll(c *fiber.Ctx) error {
	slog.Debug("SyncAll handler called")
	return sendStatus(c, h.service.SyncAll())
}

// SyncLocal triggers a sync of all enabled local sources
func (h *Handler) SyncLocal(c *fiber.Ctx) error {
	slog.Debug("SyncLocal handler called")
	return sendStatus(c, h.service.SyncLocal())
}

// SyncLocalSource triggers a sync of one local source
func (h *Handler) SyncLocalSource(c *fiber.Ctx) error {
	id, err := parseSourceID(c)
	if err != nil {
		return err
	}
	slog.Debug("SyncLocalSource handler called", "id", id)
	return sendStatus(c, h.service.SyncLocalSource(id))
}

// SyncSpotifySource triggers a sync of one Spotify source
func (h *Handler) SyncSpotifySource(c *fiber.Ctx) error {
	id, err := parseSourceID(c)
	if err != nil {
		return err
	}
	slog.Debug("SyncSpotifySource handler called", "id", id)
	return sendStatus(c, h.service.SyncSpotifySource(id))
}

// GetStatus reports the coordinator status without starting a sync
func (h *Handler) GetStatus(c *fiber.Ctx) error {
	return c.JSON(h.service.GetStatus())
}

func sendStatus(c *fiber.Ctx, status Status) error {
	code := fiber.StatusAccepted
	if status.State == StateFailed {
		code = fiber.StatusInternalServerError
	}
	return c.Status(code).JSON(status)
}

func parseSourceID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid source id"})
	}
	return id, nil
}
