package bridge

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fiddlegg/internal/ddragon"
)

type versionResponse struct {
	Version    string `json:"version"`
	ResolvedAt string `json:"resolvedAt,omitempty"`
	Fallback   bool   `json:"fallback"`
}

func (h *handlers) version(w http.ResponseWriter, r *http.Request) {
	v := h.svc.Version(r.Context(), r.URL.Query().Get("refresh") == "true")
	resp := versionResponse{Version: v.Value, Fallback: v.Fallback}
	if !v.ResolvedAt.IsZero() {
		resp.ResolvedAt = v.ResolvedAt.UTC().Format("2006-01-02T15:04:05Z")
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) summoner(w http.ResponseWriter, r *http.Request) {
	update, err := h.svc.SearchSummoner(r.Context(), chi.URLParam(r, "gameName"), chi.URLParam(r, "tagLine"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

func (h *handlers) ranks(w http.ResponseWriter, r *http.Request) {
	ranks, err := h.svc.Ranks(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rank": ranks})
}

func (h *handlers) mastery(w http.ResponseWriter, r *http.Request) {
	mastery, err := h.svc.Masteries(r.Context(), chi.URLParam(r, "puuid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mastery": mastery})
}

func (h *handlers) matches(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Matches(r.Context()))
}

func (h *handlers) nextMatches(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.NextMatches(r.Context(), chi.URLParam(r, "puuid")))
}

func (h *handlers) asset(w http.ResponseWriter, r *http.Request) {
	assetType, err := ddragon.ParseAssetType(chi.URLParam(r, "type"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	key := ddragon.AssetKey{
		Type:    assetType,
		ID:      chi.URLParam(r, "id"),
		Variant: r.URL.Query().Get("skin"),
	}

	url, err := h.svc.AssetURL(r.Context(), key)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, ddragon.ErrInvalidAsset) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key.String(), "url": url})
}

func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.History(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": items})
}

func (h *handlers) removeHistory(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.RemoveHistory(r.Context(), chi.URLParam(r, "gameName"), chi.URLParam(r, "tagLine"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": items})
}

func (h *handlers) clearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearHistory(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) websocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := NewClient(h.hub, conn)
	if hello, err := encodeEvent(TopicHello, map[string]string{"id": client.ID.String()}); err == nil {
		client.send <- hello
	}
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
