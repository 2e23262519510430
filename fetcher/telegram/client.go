package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gotd/contrib/middleware/floodwait"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	tdauth "github.com/gotd/td/telegram/auth"

	"github.com/scipunch/xmonitor/config"
)

// ClientRunner is a function that runs with an authenticated client
type ClientRunner func(ctx context.Context, client *telegram.Client) error

// SessionFile is the name of the MTProto session file inside the session directory
const SessionFile = "telegram-session.json"

// RunWithAuth creates a Telegram client, authenticates it, and runs the provided function
func RunWithAuth(ctx context.Context, sessionDir string, creds config.TelegramCredentials, runner ClientRunner) error {
	if !creds.IsValid() {
		return fmt.Errorf("telegram credentials are incomplete")
	}
	if err := os.MkdirAll(sessionDir, 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	sessionStorage := &session.FileStorage{
		Path: filepath.Join(sessionDir, SessionFile),
	}

	waiter := floodwait.NewWaiter().WithCallback(func(ctx context.Context, wait floodwait.FloodWait) {
		slog.Warn("telegram rate limit", "retry_after", wait.Duration)
	})

	// gotd logs through zap
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	logger, err := zapConfig.Build()
	if err != nil {
		return fmt.Errorf("failed to build telegram logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	client := telegram.NewClient(creds.AppID, creds.AppHash, telegram.Options{
		SessionStorage: sessionStorage,
		Logger:         logger,
		Middlewares:    []telegram.Middleware{waiter},
	})

	flow := tdauth.NewFlow(
		TerminalUserAuthenticator{PhoneNumber: creds.PhoneNumber},
		tdauth.SendCodeOptions{},
	)

	return waiter.Run(ctx, func(ctx context.Context) error {
		return client.Run(ctx, func(ctx context.Context) error {
			if err := client.Auth().IfNecessary(ctx, flow); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}

			self, err := client.Self(ctx)
			if err != nil {
				return fmt.Errorf("failed to get self info: %w", err)
			}
			slog.Debug("telegram authenticated", "user_id", self.ID, "username", self.Username)

			return runner(ctx, client)
		})
	})
}
