package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"

	"github.com/scipunch/xmonitor/config"
	"github.com/scipunch/xmonitor/fetcher/types"
	"github.com/scipunch/xmonitor/parser"
)

const (
	defaultMessageLimit = 20
)

// TelegramFetcher fetches recent posts from public Telegram channels
type TelegramFetcher struct {
	sessionDir string
	creds      config.TelegramCredentials
	content    parser.Parser
}

// NewTelegramFetcher creates a new Telegram fetcher with provided credentials.
// The MTProto session is persisted in sessionDir.
func NewTelegramFetcher(sessionDir string, creds config.TelegramCredentials) *TelegramFetcher {
	return &TelegramFetcher{
		sessionDir: sessionDir,
		creds:      creds,
		content:    parser.TextParser{},
	}
}

func (f *TelegramFetcher) Name() string {
	return "telegram"
}

// Fetch retrieves the latest messages of a Telegram channel, oldest first
func (f *TelegramFetcher) Fetch(ctx context.Context, account string) ([]types.Post, error) {
	var posts []types.Post

	username, err := parseChannelURL(account)
	if err != nil {
		return nil, fmt.Errorf("invalid channel: %w", err)
	}

	err = RunWithAuth(ctx, f.sessionDir, f.creds, func(ctx context.Context, client *telegram.Client) error {
		api := client.API()

		resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
			Username: username,
		})
		if err != nil {
			return fmt.Errorf("failed to resolve channel @%s: %w", username, err)
		}

		var channel *tg.Channel
		for _, chat := range resolved.Chats {
			if ch, ok := chat.(*tg.Channel); ok {
				channel = ch
				break
			}
		}
		if channel == nil {
			return fmt.Errorf("channel @%s not found in resolved peers", username)
		}
		if !channel.Broadcast {
			return fmt.Errorf("@%s is not a channel (it's a group or supergroup)", username)
		}

		messagesData, err := api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer: &tg.InputPeerChannel{
				ChannelID:  channel.ID,
				AccessHash: channel.AccessHash,
			},
			Limit: defaultMessageLimit,
		})
		if err != nil {
			return fmt.Errorf("failed to fetch messages from @%s: %w", username, err)
		}

		var messages []tg.MessageClass
		switch m := messagesData.(type) {
		case *tg.MessagesMessages:
			messages = m.Messages
		case *tg.MessagesMessagesSlice:
			messages = m.Messages
		case *tg.MessagesChannelMessages:
			messages = m.Messages
		case *tg.MessagesMessagesNotModified:
			slog.Warn("messages not modified", "channel", username)
			return nil
		default:
			return fmt.Errorf("unexpected messages type: %T", messagesData)
		}

		posts = make([]types.Post, 0, len(messages))
		for _, msgClass := range messages {
			msg, ok := msgClass.(*tg.Message)
			if !ok {
				continue // Service messages
			}
			if msg.Message == "" {
				continue
			}

			text, err := f.content.Parse(msg.Message)
			if err != nil {
				continue
			}
			posts = append(posts, types.Post{
				Account:   account,
				ID:        int64(msg.ID),
				Text:      text,
				Link:      fmt.Sprintf("https://t.me/%s/%d", username, msg.ID),
				Published: time.Unix(int64(msg.Date), 0),
			})
		}

		// API returns newest first
		for i, j := 0, len(posts)-1; i < j; i, j = i+1, j-1 {
			posts[i], posts[j] = posts[j], posts[i]
		}

		slog.Info("fetched Telegram channel", "channel", username, "messages", len(posts))
		return nil
	})

	return posts, err
}

// parseChannelURL extracts the channel username from various URL formats
// Supports:
//   - https://t.me/channelname
//   - http://t.me/channelname
//   - t.me/channelname
//   - @channelname
//   - channelname
func parseChannelURL(url string) (string, error) {
	url = strings.TrimSpace(url)

	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")
	url = strings.TrimPrefix(url, "t.me/")
	url = strings.TrimPrefix(url, "@")
	url = strings.TrimSuffix(url, "/")

	if url == "" {
		return "", fmt.Errorf("empty channel username")
	}

	// No deep links
	if strings.Contains(url, "/") {
		return "", fmt.Errorf("invalid channel URL format: %s", url)
	}

	return url, nil
}
