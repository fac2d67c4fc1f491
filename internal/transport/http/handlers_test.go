package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sneh-joshi/notifyring/internal/hub"
	"github.com/sneh-joshi/notifyring/internal/metrics"
	"github.com/sneh-joshi/notifyring/internal/session"
	transphttp "github.com/sneh-joshi/notifyring/internal/transport/http"
)

// ─── helpers ─────────────────────────────────────────────────────────────────

func newTestServer(t *testing.T) (http.Handler, *metrics.Registry) {
	t.Helper()
	sess := session.New(session.Options{})
	h, err := hub.New(hub.Config{Players: 2, Local: 0}, sess, nil)
	if err != nil {
		t.Fatalf("hub.New: %v", err)
	}
	reg := &metrics.Registry{}
	srv := transphttp.New(h, transphttp.Options{HostID: "test-host", Metrics: reg})
	return srv.Handler(), reg
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &reqBody)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeResp(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v, body: %s", err, rr.Body.String())
	}
}

func addNotification(t *testing.T, h http.Handler, player int, body map[string]any) int32 {
	t.Helper()
	rr := doRequest(t, h, "POST", fmt.Sprintf("/players/%d/notifications", player), body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add: want 201, got %d body: %s", rr.Code, rr.Body)
	}
	var resp struct {
		LookupID int32 `json:"lookup_id"`
		Added    bool  `json:"added"`
	}
	decodeResp(t, rr, &resp)
	return resp.LookupID
}

type listed struct {
	Turn    int32 `json:"turn"`
	Records []struct {
		Kind      string `json:"kind"`
		Message   string `json:"message"`
		X         int32  `json:"x"`
		LookupID  int32  `json:"lookup_id"`
		Dismissed bool   `json:"dismissed"`
	} `json:"records"`
}

// ─── Health ───────────────────────────────────────────────────────────────────

func TestHTTP_Health(t *testing.T) {
	h, _ := newTestServer(t)
	rr := doRequest(t, h, "GET", "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("health: want 200, got %d body: %s", rr.Code, rr.Body)
	}
	var resp map[string]any
	decodeResp(t, rr, &resp)
	if resp["status"] != "ok" || resp["host_id"] != "test-host" || resp["players"] != float64(2) {
		t.Errorf("health: got %v", resp)
	}
}

// ─── Notifications ────────────────────────────────────────────────────────────

func TestHTTP_AddAndList(t *testing.T) {
	h, _ := newTestServer(t)
	id := addNotification(t, h, 0, map[string]any{"kind": "generic", "message": "hello"})

	rr := doRequest(t, h, "GET", "/players/0/notifications", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list: want 200, got %d", rr.Code)
	}
	var got listed
	decodeResp(t, rr, &got)
	if len(got.Records) != 1 {
		t.Fatalf("records: want 1, got %d", len(got.Records))
	}
	r := got.Records[0]
	if r.Kind != "generic" || r.Message != "hello" || r.LookupID != id {
		t.Fatalf("record: got %+v", r)
	}
	if r.X != -1 {
		t.Fatalf("absent x should default to -1, got %d", r.X)
	}
}

func TestHTTP_AddRemotePlayerIsDropped(t *testing.T) {
	h, _ := newTestServer(t)
	rr := doRequest(t, h, "POST", "/players/1/notifications", map[string]any{"kind": "generic"})
	if rr.Code != http.StatusOK {
		t.Fatalf("remote add: want 200, got %d", rr.Code)
	}
	var resp map[string]any
	decodeResp(t, rr, &resp)
	if resp["added"] != false {
		t.Fatalf("remote add should not be added, got %v", resp)
	}
}

func TestHTTP_AddValidation(t *testing.T) {
	h, _ := newTestServer(t)
	if rr := doRequest(t, h, "POST", "/players/0/notifications", map[string]any{"message": "x"}); rr.Code != http.StatusBadRequest {
		t.Fatalf("missing kind: want 400, got %d", rr.Code)
	}
	if rr := doRequest(t, h, "POST", "/players/0/notifications", map[string]any{"kind": "generic", "bogus": 1}); rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: want 400, got %d", rr.Code)
	}
	long := map[string]any{"kind": "generic", "message": strings.Repeat("x", 5000)}
	if rr := doRequest(t, h, "POST", "/players/0/notifications", long); rr.Code != http.StatusBadRequest {
		t.Fatalf("long message: want 400, got %d", rr.Code)
	}
	if rr := doRequest(t, h, "GET", "/players/9/notifications", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown player: want 404, got %d", rr.Code)
	}
	if rr := doRequest(t, h, "POST", "/players/0/notifications/abc/dismiss", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad id: want 400, got %d", rr.Code)
	}
}

func TestHTTP_DismissAndDismissible(t *testing.T) {
	h, _ := newTestServer(t)
	gen := addNotification(t, h, 0, map[string]any{"kind": "generic"})
	prod := addNotification(t, h, 0, map[string]any{"kind": "production", "x": 2, "y": 2, "primary_data": 1})

	var d map[string]bool
	rr := doRequest(t, h, "GET", fmt.Sprintf("/players/0/notifications/%d/dismissible", prod), nil)
	decodeResp(t, rr, &d)
	if d["dismissible"] {
		t.Fatal("production should not be dismissible")
	}

	rr = doRequest(t, h, "POST", fmt.Sprintf("/players/0/notifications/%d/dismiss", gen), nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("dismiss: want 204, got %d", rr.Code)
	}
	var got listed
	decodeResp(t, doRequest(t, h, "GET", "/players/0/notifications", nil), &got)
	if !got.Records[0].Dismissed || got.Records[1].Dismissed {
		t.Fatalf("dismissed flags: got %+v", got.Records)
	}

	rr = doRequest(t, h, "POST", fmt.Sprintf("/players/0/notifications/%d/activate", prod), nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("activate: want 204, got %d", rr.Code)
	}
}

// ─── Turn ─────────────────────────────────────────────────────────────────────

func TestHTTP_EndTurnBlocked(t *testing.T) {
	h, _ := newTestServer(t)
	prod := addNotification(t, h, 0, map[string]any{"kind": "production", "x": 1, "y": 1, "primary_data": 3})

	var b map[string]any
	decodeResp(t, doRequest(t, h, "GET", "/players/0/blocker", nil), &b)
	if b["blocked"] != true || b["blocking"] != "production" || b["lookup_id"] != float64(prod) {
		t.Fatalf("blocker: got %v", b)
	}

	rr := doRequest(t, h, "POST", "/turn/end", nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("blocked end turn: want 409, got %d body: %s", rr.Code, rr.Body)
	}

	rr = doRequest(t, h, "POST", "/turn/end", map[string]any{"force": true})
	if rr.Code != http.StatusOK {
		t.Fatalf("forced end turn: want 200, got %d body: %s", rr.Code, rr.Body)
	}
	var turn map[string]int32
	decodeResp(t, rr, &turn)
	if turn["turn"] != 1 {
		t.Fatalf("turn: want 1, got %d", turn["turn"])
	}
}

func TestHTTP_SaveWithoutStorage(t *testing.T) {
	h, _ := newTestServer(t)
	if rr := doRequest(t, h, "POST", "/save", nil); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("save: want 503, got %d", rr.Code)
	}
}

// ─── Middleware ───────────────────────────────────────────────────────────────

func TestHTTP_MetricsCountRoutes(t *testing.T) {
	h, reg := newTestServer(t)
	doRequest(t, h, "GET", "/players/0/notifications", nil)
	doRequest(t, h, "GET", "/players/1/notifications", nil)

	key := metrics.HTTPKey("GET", "/players/{player}/notifications", "200")
	if got := reg.HTTPReqs.Value(key); got != 2 {
		t.Fatalf("HTTPReqs[%q]: want 2, got %d", key, got)
	}

	rr := doRequest(t, h, "GET", "/metrics", nil)
	if !strings.Contains(rr.Body.String(), "notifyd_http_requests_total") {
		t.Fatalf("metrics body missing http family:\n%s", rr.Body)
	}
}

func TestHTTP_CORSPreflight(t *testing.T) {
	h, _ := newTestServer(t)
	req := httptest.NewRequest("OPTIONS", "/players/0/notifications", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("preflight: want 204, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("allow origin: got %q", got)
	}
}

func TestHTTP_RateLimit(t *testing.T) {
	sess := session.New(session.Options{})
	hb, err := hub.New(hub.Config{Players: 1}, sess, nil)
	if err != nil {
		t.Fatalf("hub.New: %v", err)
	}
	h := transphttp.New(hb, transphttp.Options{MaxRate: 1, Burst: 2}).Handler()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, doRequest(t, h, "GET", "/health", nil).Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("rate limit codes: got %v", codes)
	}
}

func TestHTTP_APIKey(t *testing.T) {
	sess := session.New(session.Options{})
	hb, err := hub.New(hub.Config{Players: 1}, sess, nil)
	if err != nil {
		t.Fatalf("hub.New: %v", err)
	}
	h := transphttp.New(hb, transphttp.Options{APIKey: "secret"}).Handler()

	if rr := doRequest(t, h, "GET", "/health", nil); rr.Code != http.StatusOK {
		t.Fatalf("health without key: want 200, got %d", rr.Code)
	}
	if rr := doRequest(t, h, "GET", "/players/0/notifications", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("list without key: want 401, got %d", rr.Code)
	}

	req := httptest.NewRequest("GET", "/players/0/notifications", nil)
	req.Header.Set("X-Api-Key", "secret")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("list with header: want 200, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/players/0/notifications?api_key=secret", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("list with query key: want 200, got %d", rr.Code)
	}
}
