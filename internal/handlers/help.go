package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ResidentHub/internal/telegram"
)

const helpText = `📚 <b>Scanner help</b>

• /pass &lt;code&gt; - Show who a pass belongs to and what they ordered
• /attend &lt;code&gt; - Admit the pass holder
• /start - Show your Telegram id

<i>Pass codes look like r-12 or g-7. Scanning a pass twice is safe; the first entry time is kept.</i>`

// HelpHandler handles the /help command
type HelpHandler struct {
	logger *logrus.Logger
}

func NewHelpHandler(logger *logrus.Logger) *HelpHandler {
	return &HelpHandler{logger: logger}
}

func (h *HelpHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	msg := tgbotapi.NewMessage(message.Chat.ID, helpText)
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send help message: %w", err)
	}

	h.logger.WithField("chat_id", message.Chat.ID).Debug("Sent help message")
	return nil
}
