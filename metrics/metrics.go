package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stage names the pipeline step an account error happened in
type Stage = string

var (
	StageCursor  = Stage("cursor")
	StageFetch   = Stage("fetch")
	StageAnalyze = Stage("analyze")
	StageDeliver = Stage("deliver")
	StageSave    = Stage("save")
)

// Collector holds the scan loop metrics
type Collector struct {
	registry       *prometheus.Registry
	cycles         prometheus.Counter
	postsFetched   *prometheus.CounterVec
	postsNew       *prometheus.CounterVec
	messagesSent   *prometheus.CounterVec
	accountErrors  *prometheus.CounterVec
	cycleDuration  prometheus.Histogram
	lastCycleEnded prometheus.Gauge
}

// New creates a collector registered on its own registry
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xmonitor_scan_cycles_total",
			Help: "Completed scan cycles",
		}),
		postsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xmonitor_posts_fetched_total",
			Help: "Posts fetched per account",
		}, []string{"account"}),
		postsNew: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xmonitor_posts_new_total",
			Help: "Fetched posts newer than the stored cursor",
		}, []string{"account"}),
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xmonitor_messages_sent_total",
			Help: "Highlight messages delivered per account",
		}, []string{"account"}),
		accountErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xmonitor_account_errors_total",
			Help: "Accounts skipped in a cycle, by failing stage",
		}, []string{"account", "stage"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "xmonitor_scan_cycle_duration_seconds",
			Help:    "Duration of scan cycles",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		lastCycleEnded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "xmonitor_last_cycle_timestamp_seconds",
			Help: "Unix time the last scan cycle finished",
		}),
	}

	c.registry.MustRegister(
		c.cycles,
		c.postsFetched,
		c.postsNew,
		c.messagesSent,
		c.accountErrors,
		c.cycleDuration,
		c.lastCycleEnded,
	)
	return c
}

func (c *Collector) PostsFetched(account string, n int) {
	c.postsFetched.WithLabelValues(account).Add(float64(n))
}

func (c *Collector) PostsNew(account string, n int) {
	c.postsNew.WithLabelValues(account).Add(float64(n))
}

func (c *Collector) MessageSent(account string) {
	c.messagesSent.WithLabelValues(account).Inc()
}

func (c *Collector) AccountError(account string, stage Stage) {
	c.accountErrors.WithLabelValues(account, stage).Inc()
}

func (c *Collector) CycleDone(started, ended time.Time) {
	c.cycles.Inc()
	c.cycleDuration.Observe(ended.Sub(started).Seconds())
	c.lastCycleEnded.Set(float64(ended.Unix()))
}

// Handler serves the collector's metrics in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
