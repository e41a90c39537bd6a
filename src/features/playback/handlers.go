package playback

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Handler handles playback requests
type Handler struct {
	service *Service
}

// NewHandler creates a new playback handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// StreamTrack serves a track's local audio file
func (h *Handler) StreamTrack(c *fiber.Ctx) error {
	trackID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid track id"})
	}
	slog.Debug("StreamTrack handler called", "trackID", trackID)

	reader, err := h.service.OpenTrackFile(c.Context(), trackID)
	if err != nil {
		slog.Error("Failed to open track for streaming", "trackID", trackID, "error", err)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set("Content-Type", "audio/mpeg")
	c.Set("Accept-Ranges", "bytes")
	c.Set("Cache-Control", "no-cache")
	return c.SendStream(reader)
}

// PlayTrack starts playback on a Spotify Connect device
func (h *Handler) PlayTrack(c *fiber.Ctx) error {
	trackID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid track id"})
	}
	deviceID := c.Query("device_id")
	slog.Debug("PlayTrack handler called", "trackID", trackID, "deviceID", deviceID)

	if err := h.service.PlayOnSpotify(c.Context(), trackID, deviceID); err != nil {
		slog.Error("Failed to start playback", "trackID", trackID, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
