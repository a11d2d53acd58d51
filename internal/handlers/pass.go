package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ResidentHub/internal/metrics"
	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/service"
	"github.com/Kerhoff/ResidentHub/internal/telegram"
)

// PassScanner resolves and admits passes
type PassScanner interface {
	LookupPass(ctx context.Context, code string) (*models.Pass, error)
	MarkAttendance(ctx context.Context, code string) (*models.AttendanceResult, error)
}

func sendHTML(bot telegram.Sender, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func passSummary(p *models.Pass) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b>", html.EscapeString(p.HolderName))
	if p.Flat != "" {
		fmt.Fprintf(&sb, " · %s", html.EscapeString(p.Flat))
	}
	if p.Kind == models.PassKindGuest {
		sb.WriteString(" · guest")
	}
	fmt.Fprintf(&sb, "\n%s, %s at %s\n",
		html.EscapeString(p.EventTitle), p.EventDate.Format("02 Jan 2006 15:04"), html.EscapeString(p.Venue))

	for _, item := range p.Items {
		fmt.Fprintf(&sb, "• %s × %d\n", html.EscapeString(item.Name), item.Plates)
	}
	fmt.Fprintf(&sb, "Plates: %d · Amount: %d", p.TotalPlates, p.TotalAmount)
	if p.Paid {
		sb.WriteString(" · paid ✅")
	} else {
		sb.WriteString(" · <b>unpaid</b> ⚠️")
	}
	return sb.String()
}

// ---------------------------------------------------------------------------
// PassHandler – /pass <code>
// ---------------------------------------------------------------------------

// PassHandler shows a pass without admitting the holder
type PassHandler struct {
	scanner PassScanner
	logger  *logrus.Logger
}

// NewPassHandler creates a new PassHandler.
func NewPassHandler(scanner PassScanner, logger *logrus.Logger) *PassHandler {
	return &PassHandler{scanner: scanner, logger: logger}
}

// Handle processes the /pass command.
func (h *PassHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	if len(args) != 1 {
		return sendHTML(bot, message.Chat.ID, "Usage: <code>/pass &lt;code&gt;</code>")
	}

	pass, err := h.scanner.LookupPass(ctx, args[0])
	if errors.Is(err, service.ErrNotFound) {
		return sendHTML(bot, message.Chat.ID, fmt.Sprintf("❓ No pass found for <code>%s</code>", html.EscapeString(args[0])))
	}
	if err != nil {
		return fmt.Errorf("lookup pass: %w", err)
	}

	text := "🎟 " + passSummary(pass)
	if pass.Attended && pass.AttendedAt != nil {
		text += fmt.Sprintf("\n\nAlready admitted at %s", pass.AttendedAt.Format("15:04"))
	}
	return sendHTML(bot, message.Chat.ID, text)
}

// ---------------------------------------------------------------------------
// AttendHandler – /attend <code>
// ---------------------------------------------------------------------------

// AttendHandler admits a pass holder at the gate
type AttendHandler struct {
	scanner PassScanner
	logger  *logrus.Logger
}

// NewAttendHandler creates a new AttendHandler.
func NewAttendHandler(scanner PassScanner, logger *logrus.Logger) *AttendHandler {
	return &AttendHandler{scanner: scanner, logger: logger}
}

// Handle processes the /attend command.
func (h *AttendHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	if len(args) != 1 {
		return sendHTML(bot, message.Chat.ID, "Usage: <code>/attend &lt;code&gt;</code>")
	}
	code := args[0]

	pass, err := h.scanner.LookupPass(ctx, code)
	if errors.Is(err, service.ErrNotFound) {
		metrics.PassScansTotal.WithLabelValues("telegram", "unknown").Inc()
		return sendHTML(bot, message.Chat.ID, fmt.Sprintf("⛔ Unknown pass <code>%s</code>. Do not admit.", html.EscapeString(code)))
	}
	if err != nil {
		return fmt.Errorf("lookup pass: %w", err)
	}

	res, err := h.scanner.MarkAttendance(ctx, code)
	if err != nil {
		return fmt.Errorf("mark attendance: %w", err)
	}

	outcome, header := "admitted", "✅ Admitted"
	if res.AlreadyAttended {
		outcome = "repeat"
		header = fmt.Sprintf("⚠️ Already admitted at %s", res.AttendedAt.Format("15:04"))
	}
	metrics.PassScansTotal.WithLabelValues("telegram", outcome).Inc()

	h.logger.WithFields(logrus.Fields{
		"pass_code": res.Code,
		"user_id":   message.From.ID,
		"outcome":   outcome,
	}).Info("Pass scanned from Telegram")

	return sendHTML(bot, message.Chat.ID, header+"\n\n"+passSummary(pass))
}
