package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/scipunch/xmonitor/agent"
	"github.com/scipunch/xmonitor/config"
	"github.com/scipunch/xmonitor/fetcher/types"
	"github.com/scipunch/xmonitor/filter"
	"github.com/scipunch/xmonitor/metrics"
	"github.com/scipunch/xmonitor/notifier"
)

// Store keeps the last processed post ID per account
type Store interface {
	Cursor(ctx context.Context, account string) (int64, error)
	Advance(ctx context.Context, account string, id int64) (bool, error)
}

// Recorder receives per-cycle counters
type Recorder interface {
	PostsFetched(account string, n int)
	PostsNew(account string, n int)
	MessageSent(account string)
	AccountError(account string, stage metrics.Stage)
	CycleDone(started, ended time.Time)
}

type Outcome = string

var (
	OutcomeNoNew        = Outcome("no_new_posts")
	OutcomeNoHighlights = Outcome("no_highlights")
	OutcomeDelivered    = Outcome("delivered")
	OutcomeFailed       = Outcome("failed")
)

// AccountReport describes what one cycle did for one account
type AccountReport struct {
	Account    string
	Fetched    int
	New        int
	Highlights int
	Cursor     int64 // Cursor after the cycle
	Outcome    Outcome
	Stage      metrics.Stage // Failing stage, set when Outcome is OutcomeFailed
	Err        error
}

// CycleReport describes a whole scan cycle
type CycleReport struct {
	Started  time.Time
	Ended    time.Time
	Accounts []AccountReport
}

// Err joins the errors of every failed account
func (r CycleReport) Err() error {
	var errs []error
	for _, a := range r.Accounts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errors.Join(errs...)
}

// Delivered counts accounts whose highlights were sent
func (r CycleReport) Delivered() int {
	n := 0
	for _, a := range r.Accounts {
		if a.Outcome == OutcomeDelivered {
			n++
		}
	}
	return n
}

// Options configures a Monitor
type Options struct {
	Accounts []config.AccountConfig
	Fetchers map[config.AccountType]types.PostFetcher
	Filters  *filter.FilterPipeline
	Agent    agent.Agent
	Notifier notifier.Notifier
	Store    Store
	Recorder Recorder         // Optional
	MaxPosts int              // Posts per summarization request
	Force    bool             // Summarize the latest posts even when none are new, for one cycle only
	Now      func() time.Time // Optional clock, defaults to time.Now
}

// Monitor runs scan cycles over the configured accounts
type Monitor struct {
	accounts []config.AccountConfig
	fetchers map[config.AccountType]types.PostFetcher
	filters  *filter.FilterPipeline
	agent    agent.Agent
	notifier notifier.Notifier
	store    Store
	recorder Recorder
	maxPosts int
	force    bool
	now      func() time.Time
}

// New creates a Monitor from opts
func New(opts Options) (*Monitor, error) {
	switch {
	case opts.Agent == nil:
		return nil, errors.New("monitor: agent is required")
	case opts.Notifier == nil:
		return nil, errors.New("monitor: notifier is required")
	case opts.Store == nil:
		return nil, errors.New("monitor: store is required")
	}

	filters := opts.Filters
	if filters == nil {
		var err error
		if filters, err = filter.NewFilterPipeline(nil); err != nil {
			return nil, err
		}
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Monitor{
		accounts: opts.Accounts,
		fetchers: opts.Fetchers,
		filters:  filters,
		agent:    opts.Agent,
		notifier: opts.Notifier,
		store:    opts.Store,
		recorder: recorder,
		maxPosts: opts.MaxPosts,
		force:    opts.Force,
		now:      now,
	}, nil
}

// Run executes scan cycles until ctx is cancelled, sleeping interval between them
func (m *Monitor) Run(ctx context.Context, interval time.Duration) error {
	slog.Info("starting monitor service", "interval", interval, "accounts", len(m.accounts))

	for {
		report := m.RunCycle(ctx)
		if err := report.Err(); err != nil {
			slog.Warn("scan cycle finished with errors", "errors", err)
		}

		slog.Info("sleeping until next scan", "interval", interval)
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RunCycle scans every account once.
// A failure on one account is logged and never stops the other accounts.
// Force is consumed by the first cycle; later cycles only see new posts.
func (m *Monitor) RunCycle(ctx context.Context) CycleReport {
	report := CycleReport{Started: m.now()}
	slog.Info("starting scan", "accounts", len(m.accounts), "force", m.force)

	for _, acct := range m.accounts {
		if ctx.Err() != nil {
			slog.Info("scan interrupted", "remaining_from", acct.Handle())
			break
		}

		ar := m.scanAccount(ctx, acct)
		if ar.Err != nil {
			m.recorder.AccountError(ar.Account, ar.Stage)
			slog.Error("account skipped", "account", ar.Account, "stage", ar.Stage, "error", ar.Err)
		} else {
			slog.Info("account scanned",
				"account", ar.Account,
				"outcome", ar.Outcome,
				"fetched", ar.Fetched,
				"new", ar.New,
				"highlights", ar.Highlights,
				"cursor", ar.Cursor)
		}
		report.Accounts = append(report.Accounts, ar)
	}

	m.force = false
	report.Ended = m.now()
	m.recorder.CycleDone(report.Started, report.Ended)
	slog.Info("scan finished", "accounts", len(report.Accounts), "delivered", report.Delivered(), "took", report.Ended.Sub(report.Started))
	return report
}

func (m *Monitor) scanAccount(ctx context.Context, acct config.AccountConfig) AccountReport {
	handle := acct.Handle()
	key := cursorKey(acct)
	ar := AccountReport{Account: handle}

	fail := func(stage metrics.Stage, err error) AccountReport {
		ar.Outcome = OutcomeFailed
		ar.Stage = stage
		ar.Err = fmt.Errorf("@%s %s: %w", handle, stage, err)
		return ar
	}

	cursor, err := m.store.Cursor(ctx, key)
	if err != nil {
		return fail(metrics.StageCursor, err)
	}
	ar.Cursor = cursor

	f := m.fetchers[acct.T]
	if f == nil {
		return fail(metrics.StageFetch, fmt.Errorf("no fetcher for account type %q", acct.T))
	}
	posts, err := f.Fetch(ctx, handle)
	if err != nil {
		return fail(metrics.StageFetch, err)
	}
	ar.Fetched = len(posts)
	m.recorder.PostsFetched(handle, len(posts))

	fresh := types.Newer(posts, cursor)
	ar.New = len(fresh)
	m.recorder.PostsNew(handle, len(fresh))
	if len(fresh) == 0 && m.force {
		fresh = posts
	}
	if len(fresh) == 0 {
		ar.Outcome = OutcomeNoNew
		return ar
	}

	kept := m.filters.Apply(fresh, acct.FilterNames)
	highlights, err := agent.Highlights(ctx, m.agent, kept, m.maxPosts)
	if err != nil {
		return fail(metrics.StageAnalyze, err)
	}
	ar.Highlights = len(highlights)

	ar.Outcome = OutcomeNoHighlights
	if len(highlights) > 0 {
		text := notifier.Format(m.now(), handle, highlights)
		if err := m.notifier.Send(ctx, text); err != nil {
			return fail(metrics.StageDeliver, err)
		}
		m.recorder.MessageSent(handle)
		ar.Outcome = OutcomeDelivered
	}

	latest := types.Latest(fresh)
	if _, err := m.store.Advance(ctx, key, latest); err != nil {
		return fail(metrics.StageSave, err)
	}
	if latest > ar.Cursor {
		ar.Cursor = latest
	}
	return ar
}

// cursorKey namespaces cursors by account type, since IDs are only ordered within one source
func cursorKey(acct config.AccountConfig) string {
	return acct.T + ":" + acct.Handle()
}

type nopRecorder struct{}

func (nopRecorder) PostsFetched(string, int)           {}
func (nopRecorder) PostsNew(string, int)               {}
func (nopRecorder) MessageSent(string)                 {}
func (nopRecorder) AccountError(string, metrics.Stage) {}
func (nopRecorder) CycleDone(time.Time, time.Time)     {}
