package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRead_OverridesDefaults(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
interval = 600
chat_id = "-100123"
provider = "gemini"
model = "gemini-2.0-flash"

[[accounts]]
name = "@Raydium"
type = "x"
filters = ["long"]

[[accounts]]
name = "durov"
type = "telegram_channel"
enabled = false

[filters.long]
min_length = 40
`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	conf, err := Read(cfgPath)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if conf.Interval != 600 {
		t.Errorf("expected interval 600, got %d", conf.Interval)
	}
	if conf.Provider != Gemini {
		t.Errorf("expected gemini provider, got %s", conf.Provider)
	}
	if len(conf.Accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(conf.Accounts))
	}
	if conf.Accounts[0].Handle() != "Raydium" {
		t.Errorf("expected handle without @, got %s", conf.Accounts[0].Handle())
	}
	enabled := conf.EnabledAccounts()
	if len(enabled) != 1 || enabled[0].Name != "@Raydium" {
		t.Errorf("unexpected enabled accounts: %+v", enabled)
	}
	if conf.Filters["long"].MinLength != 40 {
		t.Errorf("filter not decoded: %+v", conf.Filters)
	}
	// Untouched keys keep their defaults
	if conf.MaxPosts != 20 {
		t.Errorf("expected default max_posts 20, got %d", conf.MaxPosts)
	}
}

func TestRead_Missing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestWriteThenRead(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := Write(cfgPath, Default()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	conf, err := Read(cfgPath)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(conf.Accounts) != len(Default().Accounts) {
		t.Errorf("expected %d accounts, got %d", len(Default().Accounts), len(conf.Accounts))
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvCerebrasKey, "csk-test")
	t.Setenv(EnvBotToken, "123:abc")
	t.Setenv(EnvChatID, "-5223082150")
	t.Setenv(EnvScanInterval, "120")

	conf := Default()
	if err := conf.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if conf.APIKey != "csk-test" || conf.BotToken != "123:abc" || conf.ChatID != "-5223082150" {
		t.Errorf("secrets not applied: %+v", conf)
	}
	if conf.Interval != 120 {
		t.Errorf("expected interval 120, got %d", conf.Interval)
	}
	if err := conf.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestApplyEnv_BadInterval(t *testing.T) {
	t.Setenv(EnvScanInterval, "hourly")
	conf := Default()
	if err := conf.ApplyEnv(); err == nil {
		t.Error("expected error for non-numeric interval")
	}
}

func TestValidate_MissingSecrets(t *testing.T) {
	conf := Default()
	conf.ChatID = ""
	err := conf.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{EnvCerebrasKey, EnvBotToken, EnvChatID} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %s in error, got: %v", want, err)
		}
	}
}

func TestValidate_BadAccounts(t *testing.T) {
	conf := Default()
	conf.APIKey, conf.BotToken, conf.ChatID = "k", "t", "c"
	conf.Accounts = []AccountConfig{{Name: "foo", T: "mastodon"}}
	if err := conf.Validate(); err == nil || !strings.Contains(err.Error(), "unknown type") {
		t.Errorf("expected unknown type error, got %v", err)
	}

	disabled := false
	conf.Accounts = []AccountConfig{{Name: "foo", T: X, Enabled: &disabled}}
	if err := conf.Validate(); err == nil || !strings.Contains(err.Error(), "no enabled accounts") {
		t.Errorf("expected no enabled accounts error, got %v", err)
	}
}

func TestCredentials_RoundTripPermissions(t *testing.T) {
	credPath := CredentialsPath(filepath.Join(t.TempDir(), "config.toml"))
	creds := Credentials{Telegram: TelegramCredentials{AppID: 42, AppHash: "hash", PhoneNumber: "+10000000000"}}
	if err := WriteCredentials(credPath, creds); err != nil {
		t.Fatalf("WriteCredentials failed: %v", err)
	}
	info, err := os.Stat(credPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}
	got, err := ReadCredentials(credPath)
	if err != nil {
		t.Fatalf("ReadCredentials failed: %v", err)
	}
	if !got.Telegram.IsValid() || got.Telegram.AppID != 42 {
		t.Errorf("unexpected credentials: %+v", got)
	}
}
