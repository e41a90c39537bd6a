package library

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/arendse/melodium/src/music"
)

// Handler is the handler for the library feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new handler for the library feature.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Pagination represents pagination information
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// NewPagination creates a new Pagination instance with calculated values
func NewPagination(page, limit, totalCount int) Pagination {
	return Pagination{
		Page:       page,
		Limit:      limit,
		TotalCount: totalCount,
		TotalPages: (totalCount + limit - 1) / limit,
	}
}

type artistResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type albumResponse struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Artists []string `json:"artists"`
}

type trackResponse struct {
	ID          int64    `json:"id"`
	AlbumID     int64    `json:"album_id"`
	Album       string   `json:"album"`
	Title       *string  `json:"title"`
	DiscNumber  *int     `json:"disc_number"`
	TrackNumber *int     `json:"track_number"`
	Artists     []string `json:"artists"`
	FilePath    *string  `json:"file_path"`
	SpotifyID   *string  `json:"spotify_id"`
}

func toAlbumResponse(a *music.AlbumView) albumResponse {
	return albumResponse{ID: a.ID, Name: a.Name, Artists: a.Artists}
}

func toTrackResponse(t *music.TrackView) trackResponse {
	return trackResponse{
		ID:          t.ID,
		AlbumID:     t.AlbumID,
		Album:       t.AlbumName,
		Title:       t.Title,
		DiscNumber:  t.DiscNumber,
		TrackNumber: t.TrackNumber,
		Artists:     t.Artists,
		FilePath:    t.FilePath,
		SpotifyID:   t.SpotifyID,
	}
}

// pageParams reads page, limit and search query parameters.
func pageParams(c *fiber.Ctx) (page, limit, offset int, search string) {
	page = c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit = c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return page, limit, (page - 1) * limit, c.Query("search")
}

// GetAlbums is the handler for listing albums.
func (h *Handler) GetAlbums(c *fiber.Ctx) error {
	page, limit, offset, search := pageParams(c)
	slog.Debug("GetAlbums handler called", "page", page, "limit", limit, "search", search)

	albums, err := h.service.GetAlbumsPaginated(c.Context(), search, limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	total, err := h.service.GetAlbumsCount(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	items := make([]albumResponse, 0, len(albums))
	for _, album := range albums {
		items = append(items, toAlbumResponse(album))
	}
	return c.JSON(fiber.Map{"albums": items, "pagination": NewPagination(page, limit, total)})
}

// GetAlbum is the handler for a single album with its track listing.
func (h *Handler) GetAlbum(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	album, err := h.service.GetAlbum(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	tracks, err := h.service.GetAlbumTracks(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	trackItems := make([]trackResponse, 0, len(tracks))
	for _, track := range tracks {
		trackItems = append(trackItems, toTrackResponse(track))
	}
	return c.JSON(fiber.Map{"album": toAlbumResponse(album), "tracks": trackItems})
}

// GetTracks is the handler for listing tracks.
func (h *Handler) GetTracks(c *fiber.Ctx) error {
	page, limit, offset, search := pageParams(c)
	slog.Debug("GetTracks handler called", "page", page, "limit", limit, "search", search)

	tracks, err := h.service.GetTracksPaginated(c.Context(), search, limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	total, err := h.service.GetTracksCount(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	items := make([]trackResponse, 0, len(tracks))
	for _, track := range tracks {
		items = append(items, toTrackResponse(track))
	}
	return c.JSON(fiber.Map{"tracks": items, "pagination": NewPagination(page, limit, total)})
}

// GetTrack is the handler for a single track.
func (h *Handler) GetTrack(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	track, err := h.service.GetTrack(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(toTrackResponse(track))
}

// GetArtists is the handler for listing artists.
func (h *Handler) GetArtists(c *fiber.Ctx) error {
	page, limit, offset, search := pageParams(c)
	slog.Debug("GetArtists handler called", "page", page, "limit", limit, "search", search)

	artists, err := h.service.GetArtistsPaginated(c.Context(), search, limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	total, err := h.service.GetArtistsCount(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	items := make([]artistResponse, 0, len(artists))
	for _, artist := range artists {
		items = append(items, artistResponse{ID: artist.ID, Name: artist.Name})
	}
	return c.JSON(fiber.Map{"artists": items, "pagination": NewPagination(page, limit, total)})
}

// GetArtist is the handler for a single artist with their albums.
func (h *Handler) GetArtist(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	artist, err := h.service.GetArtist(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	albums, err := h.service.GetArtistAlbums(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	albumItems := make([]albumResponse, 0, len(albums))
	for _, album := range albums {
		albumItems = append(albumItems, toAlbumResponse(album))
	}
	return c.JSON(fiber.Map{
		"artist": artistResponse{ID: artist.ID, Name: artist.Name},
		"albums": albumItems,
	})
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}
	return id, nil
}
