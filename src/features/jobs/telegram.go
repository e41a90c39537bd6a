package jobs

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramHandler handles Telegram commands for the jobs feature
type TelegramHandler struct {
	service *Service
}

// NewTelegramHandler creates a new Telegram handler for the jobs feature
func NewTelegramHandler(service *Service) *TelegramHandler {
	return &TelegramHandler{service: service}
}

// HandleCommand processes jobs-related Telegram commands
func (h *TelegramHandler) HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error {
	switch command {
	case "jobs":
		return h.handleJobs(bot, chatID)
	case "canceljob":
		return h.handleCancel(bot, chatID, args)
	default:
		msg := tgbotapi.NewMessage(chatID, "❌ Unknown jobs command. Use /jobs or /canceljob <id>")
		msg.ParseMode = tgbotapi.ModeMarkdown
		bot.Send(msg)
		return nil
	}
}

// GetCommands returns the available commands for this handler
func (h *TelegramHandler) GetCommands() map[string]string {
	return map[string]string{
		"jobs":      "List sync jobs and their progress",
		"canceljob": "Cancel a running job by id",
	}
}

// HandleCallback handles callback queries for this feature (jobs has no callbacks)
func (h *TelegramHandler) HandleCallback(bot *tgbotapi.BotAPI, callback *tgbotapi.CallbackQuery) bool {
	return false
}

// handleJobs lists the known jobs with their sync mode and progress.
func (h *TelegramHandler) handleJobs(bot *tgbotapi.BotAPI, chatID int64) error {
	jobs := h.service.GetJobs()

	if len(jobs) == 0 {
		msg := tgbotapi.NewMessage(chatID, "📋 *No jobs*")
		msg.ParseMode = tgbotapi.ModeMarkdown
		bot.Send(msg)
		return nil
	}

	var b strings.Builder
	b.WriteString("📋 *Jobs*\n\n")
	for _, job := range jobs {
		b.WriteString(fmt.Sprintf("%s `%s` %s", jobStatusEmoji(job.Status), job.ID, job.Name))
		if mode, ok := job.Metadata["mode"].(string); ok {
			b.WriteString(fmt.Sprintf(" (%s)", mode))
		}
		if job.Status == JobStatusRunning {
			b.WriteString(fmt.Sprintf(" - %d%%", job.Progress))
		}
		if job.Status == JobStatusFailed && job.Error != "" {
			b.WriteString(fmt.Sprintf("\n  _%s_", job.Error))
		} else if job.Message != "" {
			b.WriteString(fmt.Sprintf("\n  %s", job.Message))
		}
		b.WriteString("\n")
	}

	msg := tgbotapi.NewMessage(chatID, b.String())
	msg.ParseMode = tgbotapi.ModeMarkdown
	bot.Send(msg)
	return nil
}

// handleCancel cancels the job named by args.
func (h *TelegramHandler) handleCancel(bot *tgbotapi.BotAPI, chatID int64, args string) error {
	jobID := strings.TrimSpace(args)
	if jobID == "" {
		msg := tgbotapi.NewMessage(chatID, "Usage: /canceljob <id>")
		bot.Send(msg)
		return nil
	}

	var text string
	if err := h.service.CancelJob(jobID); err != nil {
		text = fmt.Sprintf("❌ *Cannot cancel* `%s`\n%s", jobID, err)
	} else {
		text = fmt.Sprintf("🚫 *Cancelled* `%s`", jobID)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	bot.Send(msg)
	return nil
}

func jobStatusEmoji(status JobStatus) string {
	switch status {
	case JobStatusPending:
		return "⏳"
	case JobStatusRunning:
		return "🔄"
	case JobStatusCompleted:
		return "✅"
	case JobStatusFailed:
		return "❌"
	case JobStatusCancelled:
		return "🚫"
	default:
		return "❓"
	}
}
