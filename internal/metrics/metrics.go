// Package metrics provides a small Prometheus-compatible metrics registry
// for notifyd, rendered by hand in the text exposition format.
//
// # Counter naming convention
//
// Every counter uses a tab-separated string as its label key so that a single
// sync.Map can hold all label combinations without nested maps.
//
//	Added / Rejected / Evicted / Dismissed / Delivered / Expired  →  key = "player\tkind"
//	WSDropped                                                     →  key = "player"
//	HTTPReqs                                                      →  key = "method\tpath\tstatus"
//	HTTPDurMs / HTTPDurCnt                                        →  key = "method\tpath"
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sneh-joshi/notifyring/internal/notification"
	"github.com/sneh-joshi/notifyring/internal/types"
)

// ─── labelCounter ─────────────────────────────────────────────────────────────

// labelCounter is a lock-free, label-keyed counter map.
type labelCounter struct {
	vals sync.Map // key string → *atomic.Int64
}

func (lc *labelCounter) get(key string) *atomic.Int64 {
	v, _ := lc.vals.LoadOrStore(key, new(atomic.Int64))
	return v.(*atomic.Int64)
}

// Inc increments the counter for key by 1.
func (lc *labelCounter) Inc(key string) { lc.get(key).Add(1) }

// Add increments the counter for key by n.
func (lc *labelCounter) Add(key string, n int64) { lc.get(key).Add(n) }

// Value returns the current count for key.
func (lc *labelCounter) Value(key string) int64 {
	v, ok := lc.vals.Load(key)
	if !ok {
		return 0
	}
	return v.(*atomic.Int64).Load()
}

// Each calls fn for every key/value pair in ascending key order.
func (lc *labelCounter) Each(fn func(key string, val int64)) {
	var keys []string
	lc.vals.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	for _, k := range keys {
		fn(k, lc.Value(k))
	}
}

// ─── Registry ─────────────────────────────────────────────────────────────────

// Registry holds all notifyd metrics. The zero value is ready to use.
type Registry struct {
	// Store transitions.  key = "player\tkind"
	Added     labelCounter
	Rejected  labelCounter
	Evicted   labelCounter
	Dismissed labelCounter
	Delivered labelCounter
	Expired   labelCounter

	// WebSocket fan-out.  key = "player"
	WSDropped labelCounter
	WSClients atomic.Int64

	// HTTP-level counters.
	HTTPReqs   labelCounter
	HTTPDurMs  labelCounter // sum of request durations in milliseconds
	HTTPDurCnt labelCounter // number of requests, same key as HTTPDurMs
}

var _ notification.Observer = (*Registry)(nil)

// Observe counts one store transition.
func (r *Registry) Observe(ev notification.Event) {
	key := StoreKey(ev.Owner, ev.Kind)
	switch ev.Type {
	case notification.EventAdded:
		r.Added.Inc(key)
	case notification.EventRejected:
		r.Rejected.Inc(key)
	case notification.EventEvicted:
		r.Evicted.Inc(key)
	case notification.EventDismissed:
		r.Dismissed.Inc(key)
	case notification.EventDelivered:
		r.Delivered.Inc(key)
	case notification.EventExpired:
		r.Expired.Inc(key)
	}
}

// ─── Prometheus text serialisation ────────────────────────────────────────────

// Handler returns an http.Handler that renders all metrics in the Prometheus
// plain-text exposition format (text/plain; version=0.0.4).
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, r.render())
	})
}

func (r *Registry) render() string {
	var b strings.Builder

	// ── store counters ────────────────────────────────────────────────────────
	for _, f := range []struct {
		name, help string
		c          *labelCounter
	}{
		{"notifyd_notifications_added_total", "Notifications accepted into a store", &r.Added},
		{"notifyd_notifications_rejected_total", "Adds rejected as ineligible or redundant", &r.Rejected},
		{"notifyd_notifications_evicted_total", "Records reclaimed by ring overflow", &r.Evicted},
		{"notifyd_notifications_dismissed_total", "Records dismissed by any path", &r.Dismissed},
		{"notifyd_notifications_delivered_total", "Records shown to their owner", &r.Delivered},
		{"notifyd_notifications_expired_total", "Records dismissed because their expiry predicate held", &r.Expired},
	} {
		c := f.c
		writeFamily(&b, f.name, f.help, "counter", func(fn func(labels, val string)) {
			c.Each(func(key string, val int64) {
				player, kind := splitTwo(key)
				fn(fmt.Sprintf(`player=%q,kind=%q`, player, kind), fmt.Sprintf("%d", val))
			})
		})
	}

	// ── websocket ─────────────────────────────────────────────────────────────
	writeFamily(&b, "notifyd_ws_frames_dropped_total",
		"Frames dropped because a client send queue was full", "counter",
		func(fn func(labels, val string)) {
			r.WSDropped.Each(func(key string, val int64) {
				fn(fmt.Sprintf(`player=%q`, key), fmt.Sprintf("%d", val))
			})
		})
	fmt.Fprintf(&b, "# HELP notifyd_ws_clients Connected websocket clients\n")
	fmt.Fprintf(&b, "# TYPE notifyd_ws_clients gauge\n")
	fmt.Fprintf(&b, "notifyd_ws_clients %d\n", r.WSClients.Load())

	// ── HTTP counters ─────────────────────────────────────────────────────────
	writeFamily(&b, "notifyd_http_requests_total",
		"Total HTTP requests by method, path, and status code", "counter",
		func(fn func(labels, val string)) {
			r.HTTPReqs.Each(func(key string, val int64) {
				method, path, status := splitThree(key)
				fn(fmt.Sprintf(`method=%q,path=%q,status=%q`, method, path, status),
					fmt.Sprintf("%d", val))
			})
		})
	for _, f := range []struct {
		name, help string
		c          *labelCounter
	}{
		{"notifyd_http_request_duration_milliseconds_sum", "Sum of HTTP request durations in milliseconds", &r.HTTPDurMs},
		{"notifyd_http_request_duration_milliseconds_count", "Count of observed HTTP request durations", &r.HTTPDurCnt},
	} {
		c := f.c
		writeFamily(&b, f.name, f.help, "counter", func(fn func(labels, val string)) {
			c.Each(func(key string, val int64) {
				method, path := splitTwo(key)
				fn(fmt.Sprintf(`method=%q,path=%q`, method, path), fmt.Sprintf("%d", val))
			})
		})
	}

	return b.String()
}

// ─── helpers ──────────────────────────────────────────────────────────────────

// writeFamily writes one metric family, skipping the header when it is empty.
func writeFamily(
	b *strings.Builder,
	name, help, typ string,
	fill func(fn func(labels, val string)),
) {
	var lines []string
	fill(func(labels, val string) {
		lines = append(lines, fmt.Sprintf("%s{%s} %s\n", name, labels, val))
	})
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s %s\n", name, typ)
	for _, l := range lines {
		b.WriteString(l)
	}
}

func splitTwo(key string) (string, string) {
	a, b, _ := strings.Cut(key, "\t")
	return a, b
}

func splitThree(key string) (string, string, string) {
	a, rest := splitTwo(key)
	b, c := splitTwo(rest)
	return a, b, c
}

// ─── Convenience key builders ─────────────────────────────────────────────────

// StoreKey builds the label key used by the store transition counters.
func StoreKey(p types.PlayerID, k types.Kind) string {
	return p.String() + "\t" + k.String()
}

// PlayerKey builds the label key used by WSDropped.
func PlayerKey(p types.PlayerID) string { return p.String() }

// HTTPKey builds the label key used by HTTPReqs.
func HTTPKey(method, path, status string) string {
	return method + "\t" + path + "\t" + status
}

// HTTPDurKey builds the label key used by HTTPDurMs / HTTPDurCnt.
func HTTPDurKey(method, path string) string {
	return method + "\t" + path
}
