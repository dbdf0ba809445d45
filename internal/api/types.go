package api

import (
	"bytes"
	"encoding/json"
)

// Summoner is the response of /league/searchUser/{gameName}/{tagLine}
type Summoner struct {
	ID            string `json:"id"`
	PUUID         string `json:"puuid"`
	GameName      string `json:"gameName"`
	TagLine       string `json:"tagLine"`
	ProfileIconID int    `json:"profileIconId"`
	SummonerLevel int    `json:"summonerLevel"`
}

// RankEntry is a ranked league entry from /league/getRankProfile/{id}
type RankEntry struct {
	LeagueID     string `json:"leagueId"`
	SummonerID   string `json:"summonerId"`
	QueueType    string `json:"queueType"` // RANKED_SOLO_5x5, RANKED_FLEX_SR
	Tier         string `json:"tier"`      // IRON ... CHALLENGER
	Rank         string `json:"rank"`      // I, II, III, IV
	LeaguePoints int    `json:"leaguePoints"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	Veteran      bool   `json:"veteran"`
	Inactive     bool   `json:"inactive"`
	FreshBlood   bool   `json:"freshBlood"`
	HotStreak    bool   `json:"hotStreak"`
}

type rankResponse struct {
	Rank []RankEntry `json:"rank"`
}

// GameID is the opaque game identifier. The backend sends it either as a
// JSON number or as a string.
type GameID string

// UnmarshalJSON accepts numbers and strings
func (g *GameID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*g = GameID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*g = GameID(n.String())
	return nil
}

// Match is one entry of the match list (match-v5 shape)
type Match struct {
	Metadata MatchMetadata `json:"metadata"`
	Info     MatchInfo     `json:"info"`
}

// ID returns the key used to deduplicate matches
func (m Match) ID() GameID {
	if m.Info.GameID != "" {
		return m.Info.GameID
	}
	return GameID(m.Metadata.MatchID)
}

// Participant returns the participant with the given puuid
func (m Match) Participant(puuid string) (MatchParticipant, bool) {
	for _, p := range m.Info.Participants {
		if p.PUUID == puuid {
			return p, true
		}
	}
	return MatchParticipant{}, false
}

type MatchMetadata struct {
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"` // PUUIDs
}

type MatchInfo struct {
	GameID       GameID             `json:"gameId"`
	GameCreation int64              `json:"gameCreation"`
	GameDuration int                `json:"gameDuration"` // seconds
	GameMode     string             `json:"gameMode"`
	QueueID      int                `json:"queueId"`
	Participants []MatchParticipant `json:"participants"`
}

type MatchParticipant struct {
	PUUID                string `json:"puuid"`
	SummonerName         string `json:"summonerName"`
	RiotIdGameName       string `json:"riotIdGameName"`
	RiotIdTagline        string `json:"riotIdTagline"`
	ChampionID           int    `json:"championId"`
	ChampionName         string `json:"championName"`
	TeamPosition         string `json:"teamPosition"`
	Win                  bool   `json:"win"`
	Kills                int    `json:"kills"`
	Deaths               int    `json:"deaths"`
	Assists              int    `json:"assists"`
	TotalMinionsKilled   int    `json:"totalMinionsKilled"`
	NeutralMinionsKilled int    `json:"neutralMinionsKilled"`
	Item0                int    `json:"item0"`
	Item1                int    `json:"item1"`
	Item2                int    `json:"item2"`
	Item3                int    `json:"item3"`
	Item4                int    `json:"item4"`
	Item5                int    `json:"item5"`
	Item6                int    `json:"item6"` // Trinket
}

// Items returns the seven item slots in display order. 0 means an empty slot.
func (p MatchParticipant) Items() [7]int {
	return [7]int{p.Item0, p.Item1, p.Item2, p.Item3, p.Item4, p.Item5, p.Item6}
}

// MatchPage is the response of /league/searchMatchs/{puuid}
type MatchPage struct {
	Matches    []Match    `json:"matchlist"`
	Pagination Pagination `json:"pagination"`
}

type Pagination struct {
	HasMore bool `json:"hasMore"`
}

// Mastery is one champion mastery entry
type Mastery struct {
	ChampionID     int `json:"championId"`
	ChampionLevel  int `json:"championLevel"`
	ChampionPoints int `json:"championPoints"`
}

type masteryResponse struct {
	Mastery []Mastery `json:"mastery"`
}
