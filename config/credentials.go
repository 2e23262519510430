package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const credFileName = "creds.toml"

// Credentials holds the Telegram user credentials needed to read channels.
// Bot token and model API keys come from the environment instead.
type Credentials struct {
	Telegram TelegramCredentials `toml:"telegram"`
}

// TelegramCredentials holds Telegram API credentials
type TelegramCredentials struct {
	AppID       int    `toml:"api_id"`
	AppHash     string `toml:"api_hash"`
	PhoneNumber string `toml:"phone"`
}

// IsValid checks if telegram credentials are fully populated
func (tc TelegramCredentials) IsValid() bool {
	return tc.AppID != 0 && tc.AppHash != "" && tc.PhoneNumber != ""
}

// ReadCredentials reads credentials from the specified path
func ReadCredentials(path string) (Credentials, error) {
	var creds Credentials

	data, err := os.ReadFile(path)
	if err != nil {
		return creds, err
	}

	if _, err := toml.Decode(string(data), &creds); err != nil {
		return creds, fmt.Errorf("failed to decode credentials at %s: %w", path, err)
	}

	return creds, nil
}

// WriteCredentials writes credentials to the specified path
func WriteCredentials(path string, creds Credentials) error {
	blob, err := toml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	basePath := filepath.Dir(path)
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return fmt.Errorf("failed to create credentials directory at '%s': %w", basePath, err)
	}

	// Only owner can read/write
	if err := os.WriteFile(path, blob, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file at '%s': %w", path, err)
	}

	return nil
}

// CredentialsPath returns the credentials file living next to the config file
func CredentialsPath(cfgPath string) string {
	return filepath.Join(filepath.Dir(cfgPath), credFileName)
}

// PromptTelegramCredentials prompts the user for Telegram credentials
func PromptTelegramCredentials() (TelegramCredentials, error) {
	var creds TelegramCredentials

	fmt.Println("Telegram credentials not found. They are needed to read telegram_channel accounts.")
	fmt.Println()
	fmt.Println("To get API_ID and API_HASH:")
	fmt.Println("  1. Go to https://my.telegram.org")
	fmt.Println("  2. Log in with your phone number")
	fmt.Println("  3. Click 'API development tools'")
	fmt.Println("  4. Create a new application")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Enter API_ID: ")
	appIDStr, err := reader.ReadString('\n')
	if err != nil {
		return creds, fmt.Errorf("failed to read API_ID: %w", err)
	}
	appIDStr = strings.TrimSpace(appIDStr)
	if _, err := fmt.Sscanf(appIDStr, "%d", &creds.AppID); err != nil {
		return creds, fmt.Errorf("invalid API_ID format: %w", err)
	}

	fmt.Print("Enter API_HASH: ")
	appHash, err := reader.ReadString('\n')
	if err != nil {
		return creds, fmt.Errorf("failed to read API_HASH: %w", err)
	}
	creds.AppHash = strings.TrimSpace(appHash)

	fmt.Print("Enter phone number in international format (e.g. +1234567890): ")
	phone, err := reader.ReadString('\n')
	if err != nil {
		return creds, fmt.Errorf("failed to read phone number: %w", err)
	}
	creds.PhoneNumber = strings.TrimSpace(phone)

	if !creds.IsValid() {
		return creds, fmt.Errorf("all credential fields are required")
	}

	return creds, nil
}

// LoadOrPromptTelegramCredentials loads telegram credentials or prompts for them
func LoadOrPromptTelegramCredentials(credPath string) (TelegramCredentials, error) {
	creds, err := ReadCredentials(credPath)
	if err == nil && creds.Telegram.IsValid() {
		return creds.Telegram, nil
	}

	telegramCreds, err := PromptTelegramCredentials()
	if err != nil {
		return TelegramCredentials{}, err
	}

	creds.Telegram = telegramCreds
	if err := WriteCredentials(credPath, creds); err != nil {
		return telegramCreds, fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Printf("Credentials saved to %s\n", credPath)
	fmt.Println()

	return telegramCreds, nil
}
