package telegram

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
)

// ErrNonInteractive is returned when a login step needs input but stdin is not a terminal.
// Run once interactively (e.g. with -once) to create the session file.
var ErrNonInteractive = errors.New("telegram login requires an interactive terminal")

// TerminalUserAuthenticator implements auth.UserAuthenticator prompting the terminal for input.
type TerminalUserAuthenticator struct {
	PhoneNumber string // optional, will be prompted if empty
}

func requireTerminal() error {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return ErrNonInteractive
	}
	return nil
}

func readLine(prompt string) (string, error) {
	if err := requireTerminal(); err != nil {
		return "", err
	}
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (TerminalUserAuthenticator) SignUp(ctx context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, errors.New("signing up not implemented in Terminal")
}

func (TerminalUserAuthenticator) AcceptTermsOfService(ctx context.Context, tos tg.HelpTermsOfService) error {
	return &auth.SignUpRequired{TermsOfService: tos}
}

func (TerminalUserAuthenticator) Code(ctx context.Context, sentCode *tg.AuthSentCode) (string, error) {
	return readLine("A verification code has been sent to your Telegram app.\nEnter code: ")
}

func (a TerminalUserAuthenticator) Phone(_ context.Context) (string, error) {
	if a.PhoneNumber != "" {
		return a.PhoneNumber, nil
	}
	return readLine("Enter phone in international format (e.g. +1234567890): ")
}

func (TerminalUserAuthenticator) Password(_ context.Context) (string, error) {
	if err := requireTerminal(); err != nil {
		return "", err
	}
	fmt.Print("Enter 2FA password: ")
	bytePwd, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println()
	return strings.TrimSpace(string(bytePwd)), nil
}
