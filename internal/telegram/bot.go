package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"coach-planner/internal/coach"
	"coach-planner/internal/config"
	"coach-planner/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// commandTimeout bounds one command, generation included.
const commandTimeout = 2 * time.Minute

// Bot wraps the Telegram API and the coaching service.
type Bot struct {
	api          *tgbotapi.BotAPI
	svc          *coach.Service
	sessions     *SessionRepository
	metricsStore *metrics.Store
	cfg          *config.Config
	allowed      map[int64]bool
	logger       *slog.Logger
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(
	cfg *config.Config,
	svc *coach.Service,
	sessions *SessionRepository,
	metricsStore *metrics.Store,
) (*Bot, error) {
	b, err := newBot(cfg, svc, sessions, metricsStore, slog.Default())
	if err != nil {
		return nil, err
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	b.logger.Info("TELEGRAM: Authorized", "account", api.Self.UserName)

	webhookURL := cfg.TelegramWebhookURL
	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", webhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", webhookURL, err)
	}
	b.logger.Info("TELEGRAM: Webhook set", "description", resp.Description)

	b.api = api
	return b, nil
}

// newBot builds everything but the API client.
func newBot(cfg *config.Config, svc *coach.Service, sessions *SessionRepository, metricsStore *metrics.Store, logger *slog.Logger) (*Bot, error) {
	ids, err := cfg.AllowedUserIDs()
	if err != nil {
		return nil, err
	}
	allowed := make(map[int64]bool, len(ids)+1)
	for _, id := range ids {
		allowed[id] = true
	}
	if cfg.AdminTelegramID != 0 {
		allowed[cfg.AdminTelegramID] = true
	}
	return &Bot{
		svc:          svc,
		sessions:     sessions,
		metricsStore: metricsStore,
		cfg:          cfg,
		allowed:      allowed,
		logger:       logger,
	}, nil
}

// RegisterHandlers registers the webhook handler with mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		b.logger.Error("TELEGRAM: Error parsing update", "error", err)
		return
	}
	if update.Message == nil || update.Message.From == nil {
		return
	}

	if !b.isAllowed(update.Message.From.ID) {
		b.logger.Warn("TELEGRAM: Unauthorized access attempt",
			"user_id", update.Message.From.ID,
			"username", update.Message.From.UserName)
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) isAllowed(userID int64) bool {
	return b.allowed[userID]
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	req := request{chatID: msg.Chat.ID, userID: msg.From.ID, text: msg.Text}
	name, _ := splitCommand(req.text)

	// Generation is slow, so a placeholder is sent first and edited later.
	if name == "generate" {
		sent, err := b.send(tgbotapi.NewMessage(req.chatID, "🧑‍🍳 *Generating plan...*"))
		if err != nil {
			b.logger.Error("TELEGRAM: Failed to send initial reply", "error", err)
			return
		}
		edit := tgbotapi.NewEditMessageText(req.chatID, sent.MessageID, b.dispatch(ctx, req))
		edit.ParseMode = tgbotapi.ModeMarkdown
		if _, err := b.api.Send(edit); err != nil {
			b.logger.Error("TELEGRAM: Failed to edit reply", "chat_id", req.chatID, "error", err)
		}
		return
	}

	if _, err := b.send(tgbotapi.NewMessage(req.chatID, b.dispatch(ctx, req))); err != nil {
		b.logger.Error("TELEGRAM: Failed to send reply", "chat_id", req.chatID, "error", err)
	}
}

func (b *Bot) send(msg tgbotapi.MessageConfig) (tgbotapi.Message, error) {
	msg.ParseMode = tgbotapi.ModeMarkdown
	return b.api.Send(msg)
}

// SendAdminAlert messages the admin, if one is configured.
func (b *Bot) SendAdminAlert(text string) {
	if b.cfg.AdminTelegramID == 0 || b.api == nil {
		return
	}
	if _, err := b.send(tgbotapi.NewMessage(b.cfg.AdminTelegramID, text)); err != nil {
		b.logger.Error("TELEGRAM: Failed to send admin alert", "error", err)
	}
}

func sessionID(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
