// Package notify отправляет итоги прогона в Telegram.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/based-on-what/Zortify/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// DefaultTopEntries сколько самых длинных плейлистов попадает в сообщение
const DefaultTopEntries = 5

// Sender отправляет сообщения Telegram
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier отправляет итоги прогона в чат
type TelegramNotifier struct {
	sender Sender
	chatID int64
	top    int
	logger *zap.Logger
}

// NewTelegramNotifier создает уведомитель по токену бота
func NewTelegramNotifier(botToken string, chatID int64, logger *zap.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	bot.Debug = false
	logger.Info("Telegram notifier created", zap.String("username", bot.Self.UserName))

	return NewTelegramNotifierWithSender(bot, chatID, logger), nil
}

// NewTelegramNotifierWithSender создает уведомитель поверх готового отправителя
func NewTelegramNotifierWithSender(sender Sender, chatID int64, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		sender: sender,
		chatID: chatID,
		top:    DefaultTopEntries,
		logger: logger,
	}
}

// Notify отправляет итог прогона
func (n *TelegramNotifier) Notify(ctx context.Context, summary model.RunSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, FormatSummary(summary, n.top))
	msg.ParseMode = "HTML"
	msg.DisableWebPagePreview = true

	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("failed to send run summary: %w", err)
	}

	n.logger.Info("Run summary sent to Telegram",
		zap.String("run_id", summary.RunID),
		zap.Int64("chat_id", n.chatID))
	return nil
}

// FormatSummary форматирует итог прогона в HTML для Telegram
func FormatSummary(summary model.RunSummary, top int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>Zortify</b> run <code>%s</code> finished in %s\n",
		html.EscapeString(summary.RunID), summary.Elapsed.Round(time.Second))
	fmt.Fprintf(&b, "Playlists: %d listed, %d already stored, %d processed, %d stalled, %d failed\n",
		summary.Listed, summary.Skipped, summary.Processed, summary.Stalled, summary.Failed)

	// Saved идёт в порядке файла, который может быть и по возрастанию
	longest := longestFirst(summary.Saved)
	if top > len(longest) {
		top = len(longest)
	}
	if top > 0 {
		b.WriteString("\n<b>Longest playlists</b>\n")
		for i, e := range longest[:top] {
			fmt.Fprintf(&b, "%d. %s: %s (%d tracks)\n",
				i+1, html.EscapeString(e.Name), e.Result.Duration, e.Result.TracksProcessed)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func longestFirst(entries []model.Entry) []model.Entry {
	results := make(model.Results, len(entries))
	for _, e := range entries {
		results[e.Name] = e.Result
	}
	return results.Sorted(model.SortDescending)
}
