package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"fiddlegg/internal/api"
	"fiddlegg/internal/ddragon"
	"fiddlegg/internal/history"
)

// Service is what the bridge needs from the application
type Service interface {
	Version(ctx context.Context, refresh bool) ddragon.Version
	SearchSummoner(ctx context.Context, gameName, tagLine string) (*SummonerUpdate, error)
	Ranks(ctx context.Context, summonerID string) ([]RankView, error)
	Masteries(ctx context.Context, puuid string) ([]MasteryView, error)
	NextMatches(ctx context.Context, puuid string) MatchesView
	Matches(ctx context.Context) MatchesView
	AssetURL(ctx context.Context, key ddragon.AssetKey) (string, error)
	History(ctx context.Context) ([]history.Item, error)
	RemoveHistory(ctx context.Context, gameName, tagLine string) ([]history.Item, error)
	ClearHistory(ctx context.Context) error
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local frontend, any dev server origin
	},
}

// NewRouter builds the HTTP handler
func NewRouter(svc Service, hub *Hub, log logrus.FieldLogger) http.Handler {
	h := &handlers{svc: svc, hub: hub, log: log.WithField("component", "bridge")}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(requestLogger(h.log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", h.version)
		r.Get("/summoner/{gameName}/{tagLine}", h.summoner)
		r.Get("/ranks/{id}", h.ranks)
		r.Get("/mastery/{puuid}", h.mastery)

		r.Route("/matches", func(r chi.Router) {
			r.Get("/", h.matches)
			r.Post("/{puuid}/next", h.nextMatches)
		})

		r.Get("/assets/{type}/{id}", h.asset)

		r.Route("/history", func(r chi.Router) {
			r.Get("/", h.history)
			r.Delete("/", h.clearHistory)
			r.Delete("/{gameName}/{tagLine}", h.removeHistory)
		})
	})

	r.Get("/ws", h.websocket)
	return r
}

func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   ww.Status(),
				"duration": time.Since(start).String(),
				"request":  chiMiddleware.GetReqID(r.Context()),
			}).Debug("HTTP request")
		})
	}
}

type handlers struct {
	svc Service
	hub *Hub
	log logrus.FieldLogger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps a backend error onto a status and a user message
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case api.StatusCode(err) != 0:
		status = api.StatusCode(err)
	case errors.Is(err, api.ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, api.ErrNetwork), errors.Is(err, api.ErrDecode):
		status = http.StatusBadGateway
	case errors.Is(err, ddragon.ErrMappingNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrSuperseded):
		status = http.StatusConflict
	}
	writeJSON(w, status, errorResponse{Error: api.UserMessage(err)})
}
