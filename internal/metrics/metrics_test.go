package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sneh-joshi/notifyring/internal/metrics"
	"github.com/sneh-joshi/notifyring/internal/notification"
	"github.com/sneh-joshi/notifyring/internal/types"
)

func TestRegistry_ObserveRoutesEvents(t *testing.T) {
	var reg metrics.Registry

	ev := func(typ notification.EventType) notification.Event {
		return notification.Event{Type: typ, Owner: 2, Kind: types.KindTech}
	}
	reg.Observe(ev(notification.EventAdded))
	reg.Observe(ev(notification.EventAdded))
	reg.Observe(ev(notification.EventRejected))
	reg.Observe(ev(notification.EventEvicted))
	reg.Observe(ev(notification.EventDismissed))
	reg.Observe(ev(notification.EventExpired))
	reg.Observe(ev(notification.EventDelivered))

	key := metrics.StoreKey(2, types.KindTech)
	if key != "2\ttech" {
		t.Fatalf("StoreKey: want %q, got %q", "2\ttech", key)
	}
	cases := []struct {
		name string
		got  int64
		want int64
	}{
		{"Added", reg.Added.Value(key), 2},
		{"Rejected", reg.Rejected.Value(key), 1},
		{"Evicted", reg.Evicted.Value(key), 1},
		{"Dismissed", reg.Dismissed.Value(key), 1},
		{"Expired", reg.Expired.Value(key), 1},
		{"Delivered", reg.Delivered.Value(key), 1},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Fatalf("%s: want %d, got %d", c.name, c.want, c.got)
		}
	}
}

func TestRegistry_HTTPCounters(t *testing.T) {
	var reg metrics.Registry

	durKey := metrics.HTTPDurKey("POST", "/players/{player}/notifications")
	reg.HTTPReqs.Inc(metrics.HTTPKey("POST", "/players/{player}/notifications", "201"))
	reg.HTTPDurMs.Add(durKey, 42)
	reg.HTTPDurMs.Add(durKey, 18)
	reg.HTTPDurCnt.Inc(durKey)
	reg.HTTPDurCnt.Inc(durKey)

	if got := reg.HTTPDurMs.Value(durKey); got != 60 {
		t.Fatalf("HTTPDurMs sum: want 60, got %d", got)
	}
	if got := reg.HTTPDurCnt.Value(durKey); got != 2 {
		t.Fatalf("HTTPDurCnt: want 2, got %d", got)
	}
	if got := reg.HTTPReqs.Value("missing"); got != 0 {
		t.Fatalf("unknown key: want 0, got %d", got)
	}
}

// ─── Prometheus output format ─────────────────────────────────────────────────

func scrape(t *testing.T, reg *metrics.Registry) (string, string) {
	t.Helper()
	srv := httptest.NewServer(reg.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return string(body), resp.Header.Get("Content-Type")
}

func TestHandler_EmptyRegistryOnlyHasGauge(t *testing.T) {
	var reg metrics.Registry
	body, ct := scrape(t, &reg)
	if !strings.Contains(ct, "text/plain") {
		t.Fatalf("Content-Type: want text/plain, got %q", ct)
	}
	mustContain(t, body, "notifyd_ws_clients 0")
	if strings.Contains(body, "_total") {
		t.Fatalf("empty registry should have no counter families:\n%s", body)
	}
}

func TestHandler_StoreFamilies(t *testing.T) {
	var reg metrics.Registry
	reg.Added.Add(metrics.StoreKey(0, types.KindProduction), 3)
	reg.Evicted.Inc(metrics.StoreKey(1, types.KindGeneric))
	reg.WSDropped.Inc(metrics.PlayerKey(1))
	reg.WSClients.Add(2)

	body, _ := scrape(t, &reg)

	mustContain(t, body, "# TYPE notifyd_notifications_added_total counter")
	mustContain(t, body, `notifyd_notifications_added_total{player="0",kind="production"} 3`)
	mustContain(t, body, `notifyd_notifications_evicted_total{player="1",kind="generic"} 1`)
	mustContain(t, body, `notifyd_ws_frames_dropped_total{player="1"} 1`)
	mustContain(t, body, "notifyd_ws_clients 2")
	if strings.Contains(body, "notifyd_notifications_rejected_total") {
		t.Fatal("families with no samples should be omitted")
	}
}

func TestHandler_HTTPFamilies(t *testing.T) {
	var reg metrics.Registry
	reg.HTTPReqs.Inc(metrics.HTTPKey("GET", "/health", "200"))
	reg.HTTPDurMs.Add(metrics.HTTPDurKey("GET", "/health"), 5)
	reg.HTTPDurCnt.Inc(metrics.HTTPDurKey("GET", "/health"))

	body, _ := scrape(t, &reg)

	mustContain(t, body, `notifyd_http_requests_total{method="GET",path="/health",status="200"} 1`)
	mustContain(t, body, `notifyd_http_request_duration_milliseconds_sum{method="GET",path="/health"} 5`)
	mustContain(t, body, "notifyd_http_request_duration_milliseconds_count")
}

func mustContain(t *testing.T, body, substr string) {
	t.Helper()
	if !strings.Contains(body, substr) {
		t.Errorf("expected body to contain %q\nbody:\n%s", substr, body)
	}
}

func TestRegistry_ConcurrentObserve(t *testing.T) {
	var reg metrics.Registry
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.Observe(notification.Event{Type: notification.EventAdded, Owner: 0, Kind: types.KindGeneric})
		}()
	}
	wg.Wait()
	if got := reg.Added.Value(metrics.StoreKey(0, types.KindGeneric)); got != 100 {
		t.Fatalf("concurrent Observe: want 100, got %d", got)
	}
}
