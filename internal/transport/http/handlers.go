package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sneh-joshi/notifyring/internal/hub"
	"github.com/sneh-joshi/notifyring/internal/types"
)

// maxTextBytes caps message and summary strings accepted over HTTP.
const maxTextBytes = 4 << 10

// Hub is the part of hub.Hub the handlers use.
type Hub interface {
	Players() int
	Turn() int32
	AddByName(p types.PlayerID, kind, message, summary string, x, y, primary, secondary int32) (int32, bool, error)
	Dismiss(p types.PlayerID, id int32, userInvoked bool) error
	Activate(p types.PlayerID, id int32) error
	MayUserDismiss(p types.PlayerID, id int32) (bool, error)
	Blocker(p types.PlayerID) (types.BlockingType, int32, bool, error)
	Records(p types.PlayerID) ([]types.Record, error)
	EndTurn(force bool) (int32, error)
	Reconnect(p types.PlayerID) error
	Save() error
}

// Handler groups all HTTP request handlers around a Hub.
type Handler struct {
	hub     Hub
	hostID  string
	started time.Time
}

// ─── DTOs ─────────────────────────────────────────────────────────────────────

type addReq struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Summary string `json:"summary"`
	// Absent coordinates and data slots default to -1.
	X         *int32 `json:"x"`
	Y         *int32 `json:"y"`
	Primary   *int32 `json:"primary_data"`
	Secondary *int32 `json:"secondary_data"`
}

type addResp struct {
	LookupID int32 `json:"lookup_id"`
	Added    bool  `json:"added"`
}

type listResp struct {
	Player  types.PlayerID `json:"player"`
	Turn    int32          `json:"turn"`
	Records []types.Record `json:"records"`
}

type blockerResp struct {
	Blocked  bool               `json:"blocked"`
	Blocking types.BlockingType `json:"blocking"`
	LookupID int32              `json:"lookup_id"`
}

type dismissibleResp struct {
	Dismissible bool `json:"dismissible"`
}

type endTurnReq struct {
	Force bool `json:"force"`
}

type endTurnResp struct {
	Turn int32 `json:"turn"`
}

type endTurnBlockedResp struct {
	Error    string             `json:"error"`
	Player   types.PlayerID     `json:"player"`
	Blocking types.BlockingType `json:"blocking"`
	LookupID int32              `json:"lookup_id"`
}

type healthResp struct {
	Status   string `json:"status"`
	HostID   string `json:"host_id"`
	Players  int    `json:"players"`
	Turn     int32  `json:"turn"`
	Uptime   string `json:"uptime"`
	UptimeMs int64  `json:"uptime_ms"`
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	up := time.Since(h.started)
	writeJSON(w, http.StatusOK, healthResp{
		Status:   "ok",
		HostID:   h.hostID,
		Players:  h.hub.Players(),
		Turn:     h.hub.Turn(),
		Uptime:   up.Round(time.Second).String(),
		UptimeMs: up.Milliseconds(),
	})
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	p, ok := h.player(w, r)
	if !ok {
		return
	}
	recs, err := h.hub.Records(p)
	if err != nil {
		writeHubError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResp{Player: p, Turn: h.hub.Turn(), Records: recs})
}

func (h *Handler) addNotification(w http.ResponseWriter, r *http.Request) {
	p, ok := h.player(w, r)
	if !ok {
		return
	}
	var req addReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Kind == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kind is required"})
		return
	}
	if len(req.Message) > maxTextBytes || len(req.Summary) > maxTextBytes {
		writeJSON(w, http.StatusBadRequest,
			map[string]string{"error": fmt.Sprintf("message and summary are limited to %d bytes", maxTextBytes)})
		return
	}
	id, added, err := h.hub.AddByName(p, req.Kind, req.Message, req.Summary,
		orNone(req.X), orNone(req.Y), orNone(req.Primary), orNone(req.Secondary))
	if err != nil {
		writeHubError(w, err)
		return
	}
	code := http.StatusCreated
	if !added {
		code = http.StatusOK
	}
	writeJSON(w, code, addResp{LookupID: id, Added: added})
}

func (h *Handler) dismissNotification(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.playerAndID(w, r)
	if !ok {
		return
	}
	if err := h.hub.Dismiss(p, id, true); err != nil {
		writeHubError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) activateNotification(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.playerAndID(w, r)
	if !ok {
		return
	}
	if err := h.hub.Activate(p, id); err != nil {
		writeHubError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) mayUserDismiss(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.playerAndID(w, r)
	if !ok {
		return
	}
	may, err := h.hub.MayUserDismiss(p, id)
	if err != nil {
		writeHubError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dismissibleResp{Dismissible: may})
}

func (h *Handler) blocker(w http.ResponseWriter, r *http.Request) {
	p, ok := h.player(w, r)
	if !ok {
		return
	}
	b, id, blocked, err := h.hub.Blocker(p)
	if err != nil {
		writeHubError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, blockerResp{Blocked: blocked, Blocking: b, LookupID: id})
}

func (h *Handler) reconnect(w http.ResponseWriter, r *http.Request) {
	p, ok := h.player(w, r)
	if !ok {
		return
	}
	if err := h.hub.Reconnect(p); err != nil {
		writeHubError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) endTurn(w http.ResponseWriter, r *http.Request) {
	var req endTurnReq
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	turn, err := h.hub.EndTurn(req.Force)
	var blocked *hub.BlockedError
	if errors.As(err, &blocked) {
		writeJSON(w, http.StatusConflict, endTurnBlockedResp{
			Error:    "end turn blocked",
			Player:   blocked.Player,
			Blocking: blocked.Blocking,
			LookupID: blocked.LookupID,
		})
		return
	}
	if err != nil {
		writeHubError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, endTurnResp{Turn: turn})
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	if err := h.hub.Save(); err != nil {
		writeHubError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func (h *Handler) player(w http.ResponseWriter, r *http.Request) (types.PlayerID, bool) {
	n, err := strconv.Atoi(r.PathValue("player"))
	if err != nil || n < 0 || n >= h.hub.Players() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown player"})
		return types.PlayerNone, false
	}
	return types.PlayerID(n), true
}

func (h *Handler) playerAndID(w http.ResponseWriter, r *http.Request) (types.PlayerID, int32, bool) {
	p, ok := h.player(w, r)
	if !ok {
		return p, 0, false
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 32)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid notification id"})
		return p, 0, false
	}
	return p, int32(id), true
}

func orNone(v *int32) int32 {
	if v == nil {
		return -1
	}
	return *v
}

func writeHubError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, hub.ErrUnknownPlayer):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, hub.ErrNoStorage):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json: " + err.Error()})
		return false
	}
	return true
}
