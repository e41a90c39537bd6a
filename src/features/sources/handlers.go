package sources

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/arendse/melodium/src/music"
)

// Handler handles HTTP requests for source management
type Handler struct {
	service *Service
}

// NewHandler creates a new sources handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type localSourceResponse struct {
	ID        int64  `json:"id"`
	Enabled   bool   `json:"enabled"`
	Directory string `json:"directory"`
}

type spotifySourceResponse struct {
	ID         int64     `json:"id"`
	Enabled    bool      `json:"enabled"`
	ExpiryDate time.Time `json:"expiry_date"`
}

func toLocalResponse(s *music.LocalSource) localSourceResponse {
	return localSourceResponse{ID: s.ID, Enabled: s.Enabled, Directory: s.Directory}
}

// Tokens never leave the server.
func toSpotifyResponse(s *music.SpotifySource) spotifySourceResponse {
	return spotifySourceResponse{ID: s.ID, Enabled: s.Enabled, ExpiryDate: s.ExpiryDate}
}

// ListSources returns all sources, local and Spotify
func (h *Handler) ListSources(c *fiber.Ctx) error {
	locals, err := h.service.GetLocalSources(c.Context())
	if err != nil {
		return internalError(c, err)
	}
	spotifies, err := h.service.GetSpotifySources(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	localOut := make([]localSourceResponse, 0, len(locals))
	for _, s := range locals {
		localOut = append(localOut, toLocalResponse(s))
	}
	spotifyOut := make([]spotifySourceResponse, 0, len(spotifies))
	for _, s := range spotifies {
		spotifyOut = append(spotifyOut, toSpotifyResponse(s))
	}
	return c.JSON(fiber.Map{"local": localOut, "spotify": spotifyOut})
}

type addLocalRequest struct {
	Directory string `json:"directory"`
	Enabled   *bool  `json:"enabled"`
}

// AddLocalSource registers a new local directory source
func (h *Handler) AddLocalSource(c *fiber.Ctx) error {
	var req addLocalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	source, err := h.service.AddLocalSource(c.Context(), req.Directory, enabled)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(toLocalResponse(source))
}

type setEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// SetLocalSourceEnabled toggles a local source
func (h *Handler) SetLocalSourceEnabled(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req setEnabledRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.service.SetLocalSourceEnabled(c.Context(), id, req.Enabled); err != nil {
		return notFoundOrError(c, err)
	}
	return c.JSON(fiber.Map{"id": id, "enabled": req.Enabled})
}

// DeleteLocalSource removes a local source
func (h *Handler) DeleteLocalSource(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteLocalSource(c.Context(), id); err != nil {
		return notFoundOrError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetSpotifySourceEnabled toggles a Spotify source
func (h *Handler) SetSpotifySourceEnabled(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req setEnabledRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.service.SetSpotifySourceEnabled(c.Context(), id, req.Enabled); err != nil {
		return notFoundOrError(c, err)
	}
	return c.JSON(fiber.Map{"id": id, "enabled": req.Enabled})
}

// DeleteSpotifySource removes a Spotify source
func (h *Handler) DeleteSpotifySource(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteSpotifySource(c.Context(), id); err != nil {
		return notFoundOrError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ConnectSpotify starts the account link flow by redirecting the browser
// to Spotify's authorization page
func (h *Handler) ConnectSpotify(c *fiber.Ctx) error {
	url, err := h.service.ConnectURL()
	if err != nil {
		return internalError(c, err)
	}
	return c.Redirect(url, fiber.StatusTemporaryRedirect)
}

// SpotifyCallback completes the account link flow
func (h *Handler) SpotifyCallback(c *fiber.Ctx) error {
	if errParam := c.Query("error"); errParam != "" {
		slog.Warn("Spotify authorization denied", "error", errParam)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": errParam})
	}
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing code or state"})
	}

	source, err := h.service.CompleteConnect(c.Context(), state, code)
	if err != nil {
		slog.Error("Failed to link Spotify account", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(toSpotifyResponse(source))
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid source id"})
	}
	return id, nil
}

func internalError(c *fiber.Ctx, err error) error {
	slog.Error("Sources handler error", "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

func notFoundOrError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
}
