package bot

import (
	"context"
	"fmt"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"apodwall/internal/app"
	"apodwall/internal/domain"
)

const (
	maxCaption     = 1024
	maxHistoryRows = 10
)

// Handler holds dependencies for the Telegram bot handlers.
type Handler struct {
	bot *tgbot.Bot
	app *app.App
	log logrus.FieldLogger
}

// NewHandler creates a new bot handler instance.
func NewHandler(token string, a *app.App, logger logrus.FieldLogger) (*Handler, error) {
	log := logger.WithField("component", "bot_handler")

	h := &Handler{
		app: a,
		log: log,
	}

	// Unmatched messages go to defaultHandler, where bare dates are treated like /date.
	b, err := tgbot.New(token, tgbot.WithDefaultHandler(h.defaultHandler))
	if err != nil {
		log.WithError(err).Error("Failed to create Telegram bot instance")
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	h.bot = b

	h.registerHandlers()

	log.Info("Telegram bot handler initialized")
	return h, nil
}

// registerHandlers sets up the command handlers.
func (h *Handler) registerHandlers() {
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypeExact, h.startHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/today", tgbot.MatchTypeExact, h.todayHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/history", tgbot.MatchTypeExact, h.historyHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/clear", tgbot.MatchTypeExact, h.clearHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/date", tgbot.MatchTypePrefix, h.dateHandler)
	h.log.Info("Registered command handlers")
}

// Start begins polling for updates from Telegram.
// This function blocks until the context is cancelled.
func (h *Handler) Start(ctx context.Context) {
	h.log.Info("Starting Telegram bot polling...")
	h.bot.Start(ctx)
	h.log.Info("Telegram bot polling stopped.")
}

func (h *Handler) commandLog(update *models.Update, command string) logrus.FieldLogger {
	var userID int64
	if update.Message.From != nil {
		userID = update.Message.From.ID
	}
	return h.log.WithFields(logrus.Fields{
		"user_id": userID,
		"command": command,
	})
}

// startHandler handles the /start command.
func (h *Handler) startHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	log := h.commandLog(update, "/start")
	log.Info("Received /start command")

	h.reply(ctx, b, update, log, welcomeMessage)
}

func (h *Handler) todayHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	log := h.commandLog(update, "/today")

	v := h.app.Load(ctx)
	if v.State != app.StateLoaded {
		h.reply(ctx, b, update, log, v.Message)
		return
	}
	h.sendRecord(ctx, b, update, log, v.Record)
}

func (h *Handler) dateHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	log := h.commandLog(update, "/date")

	date, ok := dateArgument(update.Message.Text)
	if !ok {
		h.reply(ctx, b, update, log, "Usage: /date YYYY-MM-DD")
		return
	}
	h.showDate(ctx, b, update, log.WithField("date", date), date)
}

func (h *Handler) historyHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	log := h.commandLog(update, "/history")
	h.reply(ctx, b, update, log, formatHistory(h.app.History(ctx), maxHistoryRows))
}

func (h *Handler) clearHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	log := h.commandLog(update, "/clear")
	h.app.ClearHistory(ctx)
	h.reply(ctx, b, update, log, "History cleared.")
}

func (h *Handler) defaultHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	text := strings.TrimSpace(update.Message.Text)
	if _, err := domain.ParseDate(text); err != nil {
		h.commandLog(update, "").WithField("text", text).Debug("Received unhandled message (default handler)")
		return
	}
	log := h.commandLog(update, "date")
	h.showDate(ctx, b, update, log.WithField("date", text), text)
}

// showDate prefers the history entry for date and fetches otherwise.
func (h *Handler) showDate(ctx context.Context, b *tgbot.Bot, update *models.Update, log logrus.FieldLogger, date string) {
	if entry, ok := h.app.HistoryEntry(ctx, date); ok {
		h.sendRecord(ctx, b, update, log, entry.Record)
		return
	}
	rec, err := h.app.Show(ctx, date)
	if err != nil {
		log.WithError(err).Warn("Failed to show record")
		h.reply(ctx, b, update, log, app.UserMessage(err))
		return
	}
	h.sendRecord(ctx, b, update, log, rec)
}

func (h *Handler) sendRecord(ctx context.Context, b *tgbot.Bot, update *models.Update, log logrus.FieldLogger, rec domain.Record) {
	if !rec.IsImage() {
		h.reply(ctx, b, update, log, formatCaption(rec)+"\n\n"+rec.URL)
		return
	}
	_, err := b.SendPhoto(ctx, &tgbot.SendPhotoParams{
		ChatID:  update.Message.Chat.ID,
		Photo:   &models.InputFileString{Data: rec.URL},
		Caption: formatCaption(rec),
	})
	if err != nil {
		log.WithError(err).Error("Failed to send photo")
	}
}

func (h *Handler) reply(ctx context.Context, b *tgbot.Bot, update *models.Update, log logrus.FieldLogger, text string) {
	_, err := b.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	})
	if err != nil {
		log.WithError(err).Error("Failed to send message")
	}
}
