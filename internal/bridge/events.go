// Package bridge exposes the core to a local frontend over HTTP and pushes
// state changes over a websocket.
package bridge

import (
	"encoding/json"
	"errors"

	"fiddlegg/internal/api"
	"fiddlegg/internal/hydrate"
	"fiddlegg/internal/matches"
)

// Event topics pushed to websocket clients
const (
	TopicHello    = "hello"
	TopicSummoner = "summoner:update"
	TopicMatches  = "matches:update"
	TopicAsset    = "asset:update"
	TopicToast    = "toast:error"
)

// ErrSuperseded is returned for a request whose result was dropped because
// a newer request of the same kind started after it
var ErrSuperseded = errors.New("superseded by a newer request")

// Event is the websocket frame format
type Event struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// Emitter publishes events to whoever is listening
type Emitter interface {
	Emit(topic string, data any)
}

// Toast is the payload of TopicToast
type Toast struct {
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
}

// SummonerUpdate is the payload of TopicSummoner. A nil Summoner means the
// profile was cleared.
type SummonerUpdate struct {
	Summoner *api.Summoner `json:"summoner"`
	IconURL  string        `json:"iconUrl,omitempty"`
	Ranks    []RankView    `json:"ranks,omitempty"`
	Mastery  []MasteryView `json:"mastery,omitempty"`
}

// RankView is a rank entry with display fields
type RankView struct {
	api.RankEntry
	QueueLabel string  `json:"queueLabel"`
	WinRate    float64 `json:"winRate"`
}

// MasteryView is a mastery entry resolved to a champion
type MasteryView struct {
	ChampionID     int    `json:"championId"`
	ChampionKey    string `json:"championKey"`
	ChampionName   string `json:"championName"`
	ChampionLevel  int    `json:"championLevel"`
	ChampionPoints int    `json:"championPoints"`
	IconURL        string `json:"iconUrl,omitempty"`
}

// MatchView is one match row
type MatchView struct {
	Summary matches.Summary     `json:"summary"`
	Assets  hydrate.MatchAssets `json:"assets"`
}

// MatchesView is the payload of TopicMatches and GET /api/matches
type MatchesView struct {
	PUUID   string      `json:"puuid"`
	Matches []MatchView `json:"matches"`
	HasMore bool        `json:"hasMore"`
	State   string      `json:"state"`
}
