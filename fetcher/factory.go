package fetcher

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/scipunch/xmonitor/config"
	"github.com/scipunch/xmonitor/fetcher/telegram"
	"github.com/scipunch/xmonitor/fetcher/types"
)

const httpTimeout = 20 * time.Second

// GetFetchers creates a map of account types to their corresponding fetchers.
// All fetchers share one limiter so consecutive accounts are spaced apart.
func GetFetchers(conf config.Config, sessionDir string, creds config.TelegramCredentials) (map[config.AccountType]types.PostFetcher, error) {
	fetchers := make(map[config.AccountType]types.PostFetcher)

	spacing := rate.Inf
	if conf.RequestSpacing > 0 {
		spacing = rate.Every(time.Duration(conf.RequestSpacing) * time.Second)
	}
	limiter := rate.NewLimiter(spacing, 1)
	client := &http.Client{Timeout: httpTimeout}

	for _, account := range conf.EnabledAccounts() {
		if fetchers[account.T] != nil {
			continue
		}

		switch account.T {
		case config.X:
			fetchers[account.T] = NewSpaced(NewXChain(conf, client), limiter)
		case config.TelegramChannel:
			if !creds.IsValid() {
				return nil, fmt.Errorf("telegram credentials required for %s accounts", account.T)
			}
			fetchers[account.T] = NewSpaced(telegram.NewTelegramFetcher(sessionDir, creds), limiter)
		default:
			return nil, fmt.Errorf("unknown account type: %s", account.T)
		}
	}

	return fetchers, nil
}

// NewXChain builds the X fetch chain in order of reliability: RSS-Bridge, Nitter, HTML viewer
func NewXChain(conf config.Config, client *http.Client) *Chain {
	var chain []NamedFetcher
	if len(conf.RSSBridges) > 0 {
		chain = append(chain, NewRSSFetcher("rss-bridge", conf.RSSBridges, client))
	}
	if len(conf.NitterInstances) > 0 {
		chain = append(chain, NewRSSFetcher("nitter", conf.NitterInstances, client))
	}
	if conf.ScrapeBaseURL != "" {
		chain = append(chain, NewScrapeFetcher(conf.ScrapeBaseURL, client))
	}
	return NewChain(chain...)
}
