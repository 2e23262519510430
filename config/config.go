package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type AccountType = string

var (
	X               = AccountType("x")
	TelegramChannel = AccountType("telegram_channel")
)

type Provider = string

var (
	Cerebras = Provider("cerebras")
	Gemini   = Provider("gemini")
)

const (
	baseCfgPath     = "xmonitor/config.toml"
	DefaultInterval = 3600
)

// Environment variables read on top of the TOML config
const (
	EnvCerebrasKey  = "CEREBRAS_API_KEY"
	EnvGeminiKey    = "GEMINI_API_KEY"
	EnvBotToken     = "TELEGRAM_BOT_TOKEN"
	EnvChatID       = "TELEGRAM_CHAT_ID"
	EnvScanInterval = "SCAN_INTERVAL"
)

type Config struct {
	Accounts        []AccountConfig   `toml:"accounts"`
	DatabasePath    string            `toml:"database_path"`
	Interval        int               `toml:"interval"` // Seconds between scan cycles
	ChatID          string            `toml:"chat_id"`
	Provider        Provider          `toml:"provider"`
	Model           string            `toml:"model"`
	BaseURL         string            `toml:"base_url"` // Chat completions base URL for the cerebras provider
	RSSBridges      []string          `toml:"rss_bridges"`
	NitterInstances []string          `toml:"nitter_instances"`
	ScrapeBaseURL   string            `toml:"scrape_base_url"`
	RequestSpacing  int               `toml:"request_spacing"` // Seconds between outbound fetches
	MaxPosts        int               `toml:"max_posts"`       // Posts per summarization request
	Filters         map[string]Filter `toml:"filters"`         // Named filters that can be referenced by accounts

	// Secrets, only ever read from the environment
	APIKey   string `toml:"-"`
	BotToken string `toml:"-"`
}

type AccountConfig struct {
	Name        string      `toml:"name"`
	T           AccountType `toml:"type"`
	Enabled     *bool       `toml:"enabled"` // Whether this account is monitored (defaults to true if not set)
	FilterNames []string    `toml:"filters"` // Names of filters to apply (pipeline)
}

// Filter defines rules for filtering posts
type Filter struct {
	MinLength         int      `toml:"min_length"`         // Minimum character count (0 = no limit)
	MinWords          int      `toml:"min_words"`          // Minimum word count (0 = no limit)
	ExcludePatterns   []string `toml:"exclude_patterns"`   // Regex patterns to exclude
	RequireParagraphs bool     `toml:"require_paragraphs"` // Must have multiple lines/paragraphs
}

// IsEnabled returns true if the account is enabled (defaults to true if not explicitly set)
func (a AccountConfig) IsEnabled() bool {
	if a.Enabled == nil {
		return true
	}
	return *a.Enabled
}

// Handle returns the account name without a leading @
func (a AccountConfig) Handle() string {
	return strings.TrimPrefix(strings.TrimSpace(a.Name), "@")
}

// EnabledAccounts returns the accounts that are monitored, in config order
func (c Config) EnabledAccounts() []AccountConfig {
	var out []AccountConfig
	for _, a := range c.Accounts {
		if a.IsEnabled() {
			out = append(out, a)
		}
	}
	return out
}

func Read(path string) (Config, error) {
	conf := Default()
	dat, err := os.ReadFile(path)
	if err != nil {
		return conf, err
	}
	_, err = toml.Decode(string(dat), &conf)
	if err != nil {
		return conf, fmt.Errorf("failed to decode config at %s with %w", path, err)
	}
	return conf, nil
}

func Write(cfgPath string, cfg Config) error {
	blob, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config with %w", err)
	}
	basePath := path.Dir(cfgPath)
	err = os.MkdirAll(basePath, os.ModePerm)
	if err != nil {
		return fmt.Errorf("failed to create base config directory at '%s' with %w", basePath, err)
	}
	err = os.WriteFile(cfgPath, blob, 0644)
	if err != nil {
		return fmt.Errorf("failed to write into config file at '%s' with %w", cfgPath, err)
	}
	slog.Info("config written", "at", cfgPath)
	return nil
}

// LoadEnv loads .env files from the working directory when present.
// Variables already set in the process environment win.
func LoadEnv() {
	for _, file := range []string{".env", ".env.local"} {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			slog.Warn("failed to load env file", "file", file, "error", err)
			continue
		}
		slog.Debug("loaded env file", "file", file)
	}
}

// ApplyEnv overlays secrets and overrides from the environment onto the config
func (c *Config) ApplyEnv() error {
	switch c.Provider {
	case Gemini:
		c.APIKey = os.Getenv(EnvGeminiKey)
	default:
		c.APIKey = os.Getenv(EnvCerebrasKey)
	}
	c.BotToken = os.Getenv(EnvBotToken)
	if v := os.Getenv(EnvChatID); v != "" {
		c.ChatID = v
	}
	if v := os.Getenv(EnvScanInterval); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be an integer number of seconds, got %q", EnvScanInterval, v)
		}
		c.Interval = n
	}
	return nil
}

// Validate reports every configuration problem that would make a scan impossible
func (c Config) Validate() error {
	var errs []error
	if len(c.EnabledAccounts()) == 0 {
		errs = append(errs, errors.New("no enabled accounts configured"))
	}
	for _, a := range c.Accounts {
		if a.Handle() == "" {
			errs = append(errs, errors.New("account with empty name"))
		}
		if a.T != X && a.T != TelegramChannel {
			errs = append(errs, fmt.Errorf("account %q has unknown type %q", a.Name, a.T))
		}
	}
	switch c.Provider {
	case Cerebras:
		if c.APIKey == "" {
			errs = append(errs, fmt.Errorf("%s is not set", EnvCerebrasKey))
		}
	case Gemini:
		if c.APIKey == "" {
			errs = append(errs, fmt.Errorf("%s is not set", EnvGeminiKey))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}
	if c.Model == "" {
		errs = append(errs, errors.New("model is not set"))
	}
	if c.BotToken == "" {
		errs = append(errs, fmt.Errorf("%s is not set", EnvBotToken))
	}
	if c.ChatID == "" {
		errs = append(errs, fmt.Errorf("%s is not set", EnvChatID))
	}
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %d", c.Interval))
	}
	if c.MaxPosts <= 0 {
		errs = append(errs, fmt.Errorf("max_posts must be positive, got %d", c.MaxPosts))
	}
	return errors.Join(errs...)
}

func Default() Config {
	var dbBase = path.Join(os.Getenv("HOME"), ".local/share/xmonitor")
	return Config{
		DatabasePath: path.Join(dbBase, "state.db"),
		Interval:     DefaultInterval,
		Provider:     Cerebras,
		Model:        "llama-3.3-70b",
		BaseURL:      "https://api.cerebras.ai/v1",
		Accounts: []AccountConfig{
			{Name: "Pumpfun", T: X},
			{Name: "Raydium", T: X},
			{Name: "MeteoraAG", T: X},
			{Name: "MarioNawfal", T: X},
			{Name: "RohOnChain", T: X},
			{Name: "xDaily", T: X},
			{Name: "JupiterExchange", T: X},
		},
		RSSBridges: []string{
			"https://rss-bridge.org/bridge01/?action=display&bridge=TwitterBridge&context=By+username&u={account}&format=Atom",
		},
		NitterInstances: []string{
			"https://nitter.poast.org",
			"https://nitter.privacydev.net",
		},
		ScrapeBaseURL:  "https://twstalker.com",
		RequestSpacing: 2,
		MaxPosts:       20,
	}
}

func DefaultPath() string {
	var xdgHome = os.Getenv("XDG_CONFIG_HOME")
	if xdgHome != "" {
		return path.Join(xdgHome, baseCfgPath)
	}

	var home = os.Getenv("HOME")
	if home != "" {
		return path.Join(home, ".config", baseCfgPath)
	}

	panic("unclear where to search for the config fie")
}
