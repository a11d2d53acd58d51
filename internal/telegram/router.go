package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Sender is the part of the bot API handlers reply through
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// CommandHandler defines the interface for command handlers
type CommandHandler interface {
	Handle(ctx context.Context, bot Sender, message *tgbotapi.Message, args []string) error
}

type route struct {
	handler    CommandHandler
	restricted bool
}

// Router dispatches commands. Restricted commands only run for the user ids
// on the scanner allow-list.
type Router struct {
	logger   *logrus.Logger
	routes   map[string]route
	scanners map[int64]struct{}
}

// NewRouter creates a new message router
func NewRouter(logger *logrus.Logger, scanners []int64) *Router {
	allowed := make(map[int64]struct{}, len(scanners))
	for _, id := range scanners {
		allowed[id] = struct{}{}
	}
	return &Router{
		logger:   logger,
		routes:   make(map[string]route),
		scanners: allowed,
	}
}

// RegisterCommand registers a command anyone may run
func (r *Router) RegisterCommand(command string, handler CommandHandler) {
	r.routes[command] = route{handler: handler}
	r.logger.Debugf("Registered command: %s", command)
}

// RegisterScannerCommand registers a command limited to gate scanners
func (r *Router) RegisterScannerCommand(command string, handler CommandHandler) {
	r.routes[command] = route{handler: handler, restricted: true}
	r.logger.Debugf("Registered scanner command: %s", command)
}

// IsScanner reports whether userID is on the allow-list
func (r *Router) IsScanner(userID int64) bool {
	_, ok := r.scanners[userID]
	return ok
}

// HandleMessage handles incoming messages
func (r *Router) HandleMessage(ctx context.Context, bot Sender, message *tgbotapi.Message) {
	if message.From == nil || message.Text == "" || !message.IsCommand() {
		return
	}

	command := message.Command()
	args := strings.Fields(message.CommandArguments())
	log := r.logger.WithFields(logrus.Fields{
		"command": command,
		"chat_id": message.Chat.ID,
		"user_id": message.From.ID,
	})
	log.Info("Received command")

	rt, exists := r.routes[command]
	if !exists {
		log.Warn("Unknown command")
		r.reply(bot, message.Chat.ID, "❓ Unknown command. Use /help to see available commands.")
		return
	}
	if rt.restricted && !r.IsScanner(message.From.ID) {
		log.Warn("Scanner command from user outside the allow-list")
		r.reply(bot, message.Chat.ID, "⛔ You are not allowed to scan passes.")
		return
	}

	if err := rt.handler.Handle(ctx, bot, message, args); err != nil {
		log.WithError(err).Error("Command handler failed")
		r.reply(bot, message.Chat.ID, "❌ An error occurred while processing your command. Please try again.")
	}
}

func (r *Router) reply(bot Sender, chatID int64, text string) {
	if _, err := bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.logger.WithError(err).Error("Failed to send message")
	}
}
