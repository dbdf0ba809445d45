package matches

import (
	"fmt"

	"fiddlegg/internal/api"
)

// KDA returns (kills + assists) / deaths. A deathless game counts deaths as 1.
func KDA(kills, deaths, assists int) float64 {
	if deaths == 0 {
		return float64(kills + assists)
	}
	return float64(kills+assists) / float64(deaths)
}

// FormatKDA formats the KDA ratio with two decimals
func FormatKDA(kills, deaths, assists int) string {
	if deaths == 0 {
		return "Perfect"
	}
	return fmt.Sprintf("%.2f", KDA(kills, deaths, assists))
}

// FormatDuration renders a game length in seconds as "MMmin SSsec"
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02dmin %02dsec", seconds/60, seconds%60)
}

// CSPerMinute returns creep score per minute of game time
func CSPerMinute(cs, seconds int) float64 {
	if seconds <= 0 {
		return 0
	}
	return float64(cs) / (float64(seconds) / 60)
}

// Summary is the per-player view of one match
type Summary struct {
	GameID     api.GameID `json:"gameId"`
	Champion   string     `json:"champion"`
	ChampionID int        `json:"championId"`
	Win        bool       `json:"win"`
	Kills      int        `json:"kills"`
	Deaths     int        `json:"deaths"`
	Assists    int        `json:"assists"`
	KDA        string     `json:"kda"`
	CS         int        `json:"cs"`
	CSPerMin   string     `json:"csPerMin"`
	Duration   string     `json:"duration"`
	Items      [7]int     `json:"items"`
}

// Summarize builds the summary of m for the participant puuid
func Summarize(m api.Match, puuid string) (Summary, bool) {
	p, ok := m.Participant(puuid)
	if !ok {
		return Summary{}, false
	}
	cs := p.TotalMinionsKilled + p.NeutralMinionsKilled
	return Summary{
		GameID:     m.ID(),
		Champion:   p.ChampionName,
		ChampionID: p.ChampionID,
		Win:        p.Win,
		Kills:      p.Kills,
		Deaths:     p.Deaths,
		Assists:    p.Assists,
		KDA:        FormatKDA(p.Kills, p.Deaths, p.Assists),
		CS:         cs,
		CSPerMin:   fmt.Sprintf("%.2f", CSPerMinute(cs, m.Info.GameDuration)),
		Duration:   FormatDuration(m.Info.GameDuration),
		Items:      p.Items(),
	}, true
}
