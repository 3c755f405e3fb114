// Package telegram pushes operational alerts to an admin chat.
package telegram

import (
	"fmt"
	"log"
	"strconv"

	"pairgo/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// AlertService sends new-report notifications to the configured admin chat.
type AlertService struct {
	bot         *tgbotapi.BotAPI
	adminChatID int64
}

// NewAlertService authorizes the bot and resolves the admin chat id.
func NewAlertService(token, adminChat string) (*AlertService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	chatID, err := strconv.ParseInt(adminChat, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid admin chat id %q: %w", adminChat, err)
	}

	log.Printf("Telegram alerts enabled (bot %s)", bot.Self.UserName)
	return &AlertService{bot: bot, adminChatID: chatID}, nil
}

// NotifyReport posts a summary of the report to the admin chat.
func (a *AlertService) NotifyReport(report *models.Report) error {
	text := fmt.Sprintf("🚨 New report\nReporter: %s\nReported: %s\nReason: %s",
		report.ReporterID, report.ReportedID, report.Reason)
	if report.MatchID != "" {
		text += "\nMatch: " + report.MatchID
	}

	msg := tgbotapi.NewMessage(a.adminChatID, text)
	_, err := a.bot.Send(msg)
	return err
}
