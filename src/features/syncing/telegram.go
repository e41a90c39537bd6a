package syncing

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramHandler handles Telegram commands for the syncing feature
type TelegramHandler struct {
	service *Service
}

// NewTelegramHandler creates a new Telegram handler for the syncing feature
func NewTelegramHandler(service *Service) *TelegramHandler {
	return &TelegramHandler{service: service}
}

// HandleCommand processes sync-related Telegram commands
func (h *TelegramHandler) HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error {
	switch command {
	case "sync":
		return h.handleSync(bot, chatID)
	case "syncstatus":
		return h.handleStatus(bot, chatID)
	default:
		msg := tgbotapi.NewMessage(chatID, "❌ Unknown command. Use /sync or /syncstatus")
		msg.ParseMode = tgbotapi.ModeMarkdown
		bot.Send(msg)
		return nil
	}
}

// GetCommands returns the available commands for this handler
func (h *TelegramHandler) GetCommands() map[string]string {
	return map[string]string{
		"sync":       "Sync all enabled sources",
		"syncstatus": "Show the current sync status",
	}
}

// HandleCallback handles callback queries for this feature (syncing has no callbacks)
func (h *TelegramHandler) HandleCallback(bot *tgbotapi.BotAPI, callback *tgbotapi.CallbackQuery) bool {
	return false
}

func (h *TelegramHandler) handleSync(bot *tgbotapi.BotAPI, chatID int64) error {
	status := h.service.SyncAll()
	var text string
	switch status.State {
	case StateBusy:
		text = "🔄 *Library sync running*"
		if status.Message != "" {
			text += fmt.Sprintf("\n%s", status.Message)
		}
	case StateFailed:
		text = fmt.Sprintf("❌ *Failed to start sync*\n%s", status.Message)
	default:
		text = fmt.Sprintf("🔄 Sync state: %s", status.State)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := bot.Send(msg)
	return err
}

func (h *TelegramHandler) handleStatus(bot *tgbotapi.BotAPI, chatID int64) error {
	status := h.service.GetStatus()
	var text string
	switch status.State {
	case StateIdle:
		text = "💤 *Idle* - no sync running"
	case StateBusy:
		text = fmt.Sprintf("🔄 *Syncing* - %d%%", status.Progress)
		if status.Message != "" {
			text += fmt.Sprintf("\n%s", status.Message)
		}
	case StateCompleted:
		text = "✅ *Last sync completed*"
		if status.Message != "" {
			text += fmt.Sprintf("\n%s", status.Message)
		}
	case StateFailed:
		text = fmt.Sprintf("❌ *Last sync failed*\n%s", status.Message)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := bot.Send(msg)
	return err
}
