package matches

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fiddlegg/internal/api"
)

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func TestKDA(t *testing.T) {
	assert.InDelta(t, 3.0, KDA(5, 3, 4), 0.0001)
	assert.Equal(t, "3.00", FormatKDA(5, 3, 4))
	assert.Equal(t, "2.33", FormatKDA(3, 3, 4))
	assert.Equal(t, "Perfect", FormatKDA(10, 0, 2))
	assert.InDelta(t, 12.0, KDA(10, 0, 2), 0.0001)
}

func TestFormatDuration(t *testing.T) {
	tests := map[int]string{
		0:    "00min 00sec",
		65:   "01min 05sec",
		1805: "30min 05sec",
		3725: "62min 05sec",
		-4:   "00min 00sec",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatDuration(in), "seconds=%d", in)
	}
}

func TestCSPerMinute(t *testing.T) {
	assert.InDelta(t, 7.0, CSPerMinute(210, 1800), 0.0001)
	assert.Zero(t, CSPerMinute(100, 0))
}

func TestSummarize(t *testing.T) {
	m := api.Match{
		Metadata: api.MatchMetadata{MatchID: "BR1_1"},
		Info: api.MatchInfo{
			GameID:       "1",
			GameDuration: 1200,
			Participants: []api.MatchParticipant{
				{PUUID: "other", ChampionName: "Zed"},
				{
					PUUID: "me", ChampionName: "Ahri", ChampionID: 103, Win: true,
					Kills: 8, Deaths: 2, Assists: 6,
					TotalMinionsKilled: 150, NeutralMinionsKilled: 10,
					Item0: 3089, Item6: 3340,
				},
			},
		},
	}

	s, ok := Summarize(m, "me")
	assert.True(t, ok)
	assert.Equal(t, "Ahri", s.Champion)
	assert.Equal(t, "7.00", s.KDA)
	assert.Equal(t, 160, s.CS)
	assert.Equal(t, "8.00", s.CSPerMin)
	assert.Equal(t, "20min 00sec", s.Duration)
	assert.Equal(t, [7]int{3089, 0, 0, 0, 0, 0, 3340}, s.Items)

	_, ok = Summarize(m, "nobody")
	assert.False(t, ok)
}
