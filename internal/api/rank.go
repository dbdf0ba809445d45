package api

import (
	"sort"
	"strings"
)

// Queue types returned by the rank endpoint
const (
	QueueSolo = "RANKED_SOLO_5x5"
	QueueFlex = "RANKED_FLEX_SR"
)

var queueLabels = map[string]string{
	QueueSolo: "Ranked Solo",
	QueueFlex: "Ranked Flex",
}

// QueueLabel returns the display label of a queue type. Unknown queues are
// returned unchanged.
func QueueLabel(queueType string) string {
	if label, ok := queueLabels[queueType]; ok {
		return label
	}
	return queueType
}

var tierOrder = map[string]int{
	"IRON":        0,
	"BRONZE":      1,
	"SILVER":      2,
	"GOLD":        3,
	"PLATINUM":    4,
	"EMERALD":     5,
	"DIAMOND":     6,
	"MASTER":      7,
	"GRANDMASTER": 8,
	"CHALLENGER":  9,
}

var divisionOrder = map[string]int{"IV": 0, "III": 1, "II": 2, "I": 3}

// TierOrder ranks a tier name from IRON (0) to CHALLENGER (9), -1 if unknown
func TierOrder(tier string) int {
	if n, ok := tierOrder[strings.ToUpper(tier)]; ok {
		return n
	}
	return -1
}

// WinRate returns the win percentage of the entry
func (r RankEntry) WinRate() float64 {
	games := r.Wins + r.Losses
	if games == 0 {
		return 0
	}
	return float64(r.Wins) * 100 / float64(games)
}

// Label is the queue label of the entry
func (r RankEntry) Label() string {
	return QueueLabel(r.QueueType)
}

// SortRanks orders entries solo queue first, then by tier, division and LP
// descending.
func SortRanks(entries []RankEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if (a.QueueType == QueueSolo) != (b.QueueType == QueueSolo) {
			return a.QueueType == QueueSolo
		}
		if ta, tb := TierOrder(a.Tier), TierOrder(b.Tier); ta != tb {
			return ta > tb
		}
		if da, db := divisionOrder[a.Rank], divisionOrder[b.Rank]; da != db {
			return da > db
		}
		return a.LeaguePoints > b.LeaguePoints
	})
}
