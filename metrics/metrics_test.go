package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_Counts(t *testing.T) {
	c := New()
	c.PostsFetched("Raydium", 3)
	c.PostsNew("Raydium", 2)
	c.MessageSent("Raydium")
	c.AccountError("Pumpfun", StageFetch)
	c.AccountError("Pumpfun", StageFetch)

	started := time.Unix(1000, 0)
	c.CycleDone(started, started.Add(2*time.Second))

	if got := testutil.ToFloat64(c.postsFetched.WithLabelValues("Raydium")); got != 3 {
		t.Errorf("posts fetched = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.postsNew.WithLabelValues("Raydium")); got != 2 {
		t.Errorf("posts new = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.messagesSent.WithLabelValues("Raydium")); got != 1 {
		t.Errorf("messages sent = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.accountErrors.WithLabelValues("Pumpfun", StageFetch)); got != 2 {
		t.Errorf("account errors = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.cycles); got != 1 {
		t.Errorf("cycles = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.lastCycleEnded); got != 1002 {
		t.Errorf("last cycle = %v, want 1002", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := New()
	c.MessageSent("MeteoraAG")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `xmonitor_messages_sent_total{account="MeteoraAG"} 1`) {
		t.Errorf("metric missing from output:\n%s", body)
	}
}
