package library

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramHandler handles Telegram commands for the library feature
type TelegramHandler struct {
	service *Service
}

// NewTelegramHandler creates a new Telegram handler for the library feature
func NewTelegramHandler(service *Service) *TelegramHandler {
	return &TelegramHandler{service: service}
}

// HandleCommand processes library-related Telegram commands
func (h *TelegramHandler) HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error {
	switch command {
	case "stats":
		return h.handleStats(bot, chatID)
	case "search":
		return h.handleSearch(bot, chatID, args)
	default:
		bot.Send(tgbotapi.NewMessage(chatID, "❌ Unknown library command. Use /stats or /search <name>"))
		return nil
	}
}

// GetCommands returns the available commands for this handler
func (h *TelegramHandler) GetCommands() map[string]string {
	return map[string]string{
		"stats":  "Show library statistics",
		"search": "Search tracks by title or album (/search <name>)",
	}
}

// HandleCallback handles callback queries for this feature (library has no callbacks)
func (h *TelegramHandler) HandleCallback(bot *tgbotapi.BotAPI, callback *tgbotapi.CallbackQuery) bool {
	return false // Library feature doesn't handle any callbacks
}

// handleStats shows library statistics
func (h *TelegramHandler) handleStats(bot *tgbotapi.BotAPI, chatID int64) error {
	ctx := context.Background()

	tracksCount, err := h.service.GetTracksCount(ctx)
	if err != nil {
		msg := tgbotapi.NewMessage(chatID, "❌ Failed to get tracks count")
		msg.ParseMode = tgbotapi.ModeMarkdown
		bot.Send(msg)
		return err
	}

	artistsCount, err := h.service.GetArtistsCount(ctx)
	if err != nil {
		msg := tgbotapi.NewMessage(chatID, "❌ Failed to get artists count")
		msg.ParseMode = tgbotapi.ModeMarkdown
		bot.Send(msg)
		return err
	}

	albumsCount, err := h.service.GetAlbumsCount(ctx)
	if err != nil {
		msg := tgbotapi.NewMessage(chatID, "❌ Failed to get albums count")
		msg.ParseMode = tgbotapi.ModeMarkdown
		bot.Send(msg)
		return err
	}

	message := fmt.Sprintf("📊 *Library Statistics*\n\n"+
		"🎵 Tracks: `%d`\n---\n"+
		"👤 Artists: `%d`\n---\n"+
		"💿 Albums: `%d`", tracksCount, artistsCount, albumsCount)

	msg := tgbotapi.NewMessage(chatID, message)
	msg.ParseMode = tgbotapi.ModeMarkdown
	bot.Send(msg)
	return nil
}

// handleSearch looks up tracks by title or album name
func (h *TelegramHandler) handleSearch(bot *tgbotapi.BotAPI, chatID int64, args string) error {
	query := strings.TrimSpace(args)
	if query == "" {
		bot.Send(tgbotapi.NewMessage(chatID, "❌ Usage: /search <name>"))
		return nil
	}

	tracks, err := h.service.GetTracksPaginated(context.Background(), query, 10, 0)
	if err != nil {
		msg := tgbotapi.NewMessage(chatID, "❌ Search failed")
		msg.ParseMode = tgbotapi.ModeMarkdown
		bot.Send(msg)
		return err
	}
	if len(tracks) == 0 {
		bot.Send(tgbotapi.NewMessage(chatID, fmt.Sprintf("🔍 No tracks matching *%s*", query)))
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔍 *Tracks matching* `%s`\n", query)
	for _, track := range tracks {
		title := "(untitled)"
		if track.Title != nil {
			title = *track.Title
		}
		availability := "spotify"
		if track.FilePath != nil {
			availability = "local"
		}
		fmt.Fprintf(&b, "\n🎵 %s - %s (%s)", title, track.AlbumName, availability)
	}

	msg := tgbotapi.NewMessage(chatID, b.String())
	msg.ParseMode = tgbotapi.ModeMarkdown
	bot.Send(msg)
	return nil
}
