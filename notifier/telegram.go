package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const sendTimeout = 30 * time.Second

// ErrUnauthorized is returned when the Bot API rejects the bot token
var ErrUnauthorized = errors.New("telegram rejected the bot token")

// BotAPI sends messages through the Telegram Bot HTTP API
type BotAPI struct {
	bot    *bot.Bot
	token  string
	chatID string
}

// NewBotAPI creates a notifier posting to chatID as the bot identified by token.
// An empty serverURL selects api.telegram.org.
func NewBotAPI(token, chatID, serverURL string, client *http.Client) (*BotAPI, error) {
	if client == nil {
		client = &http.Client{Timeout: sendTimeout}
	}

	opts := []bot.Option{
		bot.WithSkipGetMe(),
		bot.WithHTTPClient(sendTimeout, client),
	}
	if serverURL != "" {
		opts = append(opts, bot.WithServerURL(strings.TrimSuffix(serverURL, "/")))
	}

	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &BotAPI{bot: b, token: token, chatID: chatID}, nil
}

// Send posts text as an HTML message to the configured chat
func (b *BotAPI) Send(ctx context.Context, text string) error {
	_, err := b.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    b.chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: bot.True(),
		},
	})
	switch {
	case errors.Is(err, bot.ErrorUnauthorized) || errors.Is(err, bot.ErrorNotFound):
		return fmt.Errorf("%s: %w", b.redact(err), ErrUnauthorized)
	case err != nil:
		return fmt.Errorf("telegram API error: %w", b.redact(err))
	}

	slog.Info("posted to Telegram", "chat_id", b.chatID, "length", len(text))
	return nil
}

// redact strips the bot token from transport errors, which embed the request URL
func (b *BotAPI) redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = strings.ReplaceAll(uerr.URL, b.token, "<token>")
	}
	return err
}
