package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiddlegg/internal/api"
	"fiddlegg/internal/bridge"
	"fiddlegg/internal/config"
	"fiddlegg/internal/hydrate"
	"fiddlegg/internal/store"
)

type recorded struct {
	topic string
	data  any
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []recorded
}

func (r *recordingEmitter) Emit(topic string, data any) {
	r.mu.Lock()
	r.events = append(r.events, recorded{topic, data})
	r.mu.Unlock()
}

func (r *recordingEmitter) byTopic(topic string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, e := range r.events {
		if e.topic == topic {
			out = append(out, e.data)
		}
	}
	return out
}

const totalMatches = 25

// newBackend fakes the FiddleGG REST API for player Faker#KR1
func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/league/searchUser/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/league/searchUser/Faker/KR1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(api.Summoner{
			ID: "sum-1", PUUID: "p1", GameName: "Faker", TagLine: "KR1", ProfileIconID: 6, SummonerLevel: 512,
		})
	})
	mux.HandleFunc("/league/getRankProfile/sum-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rank":[
			{"queueType":"RANKED_FLEX_SR","tier":"GOLD","rank":"I","wins":1,"losses":1},
			{"queueType":"RANKED_SOLO_5x5","tier":"CHALLENGER","rank":"I","leaguePoints":1500,"wins":3,"losses":1}
		]}`))
	})
	mux.HandleFunc("/league/championMastery/p1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"mastery":[
			{"championId":103,"championLevel":7,"championPoints":500000},
			{"championId":9999,"championLevel":1,"championPoints":10},
			{"championId":62,"championLevel":5,"championPoints":20000}
		]}`))
	})
	mux.HandleFunc("/league/searchMatchs/p1", func(w http.ResponseWriter, r *http.Request) {
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		count, _ := strconv.Atoi(r.URL.Query().Get("count"))
		page := api.MatchPage{}
		for i := start; i < start+count && i < totalMatches; i++ {
			page.Matches = append(page.Matches, api.Match{
				Metadata: api.MatchMetadata{MatchID: fmt.Sprintf("KR_%d", i)},
				Info: api.MatchInfo{
					GameID:       api.GameID(strconv.Itoa(1000 + i)),
					GameDuration: 1800,
					Participants: []api.MatchParticipant{{
						PUUID: "p1", ChampionName: "Ahri", ChampionID: 103, Win: i%2 == 0,
						Kills: 5, Deaths: 1, Assists: 5, TotalMinionsKilled: 210,
						Item0: 3089, Item6: 3340,
					}},
				},
			})
		}
		page.Pagination.HasMore = start+len(page.Matches) < totalMatches
		json.NewEncoder(w).Encode(page)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// newCDN fakes Data Dragon
func newCDN(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/versions.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`["15.18.1","15.17.1"]`))
	})
	mux.HandleFunc("/cdn/15.18.1/data/en_US/champion.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{
			"Ahri":{"id":"Ahri","key":"103","name":"Ahri"},
			"MonkeyKing":{"id":"MonkeyKing","key":"62","name":"Wukong"}
		}}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testConfig(backend, cdn string) config.Config {
	return config.Config{
		APIURL:          backend,
		APITimeout:      2 * time.Second,
		CDNURL:          cdn,
		CDNTimeout:      2 * time.Second,
		FallbackVersion: "15.17.1",
		PageSize:        10,
		Store:           config.StoreMemory,
	}
}

func newTestApp(t *testing.T) (*App, *recordingEmitter, string) {
	t.Helper()
	backend := newBackend(t)
	cdn := newCDN(t)
	logger, _ := test.NewNullLogger()
	em := &recordingEmitter{}
	app := newApp(testConfig(backend.URL, cdn.URL), logger, em, store.NewMemoryStore())
	t.Cleanup(app.shutdown)
	return app, em, cdn.URL
}

func TestSearchSummoner(t *testing.T) {
	app, em, cdn := newTestApp(t)
	ctx := context.Background()

	update, err := app.SearchSummoner(ctx, "Faker", "KR1")
	require.NoError(t, err)

	assert.Equal(t, "p1", update.Summoner.PUUID)
	assert.Equal(t, cdn+"/cdn/15.18.1/img/profileicon/6.png", update.IconURL)

	require.Len(t, update.Ranks, 2)
	assert.Equal(t, "Ranked Solo", update.Ranks[0].QueueLabel)
	assert.InDelta(t, 75.0, update.Ranks[0].WinRate, 0.01)

	require.Len(t, update.Mastery, 2, "unknown champion 9999 is skipped")
	assert.Equal(t, "Ahri", update.Mastery[0].ChampionKey)
	assert.Equal(t, cdn+"/cdn/15.18.1/img/champion/Ahri.png", update.Mastery[0].IconURL)
	assert.Equal(t, "MonkeyKing", update.Mastery[1].ChampionKey)
	assert.Equal(t, "Wukong", update.Mastery[1].ChampionName)

	current, ok := app.CurrentSummoner()
	require.True(t, ok)
	assert.Equal(t, "Faker", current.GameName)
	assert.Equal(t, "p1", app.loader.Snapshot().PUUID)

	items, err := app.History(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Faker", items[0].GameName)

	assert.Len(t, em.byTopic(bridge.TopicSummoner), 1)
	assert.Empty(t, em.byTopic(bridge.TopicToast))
}

func TestSearchSummonerNotFound(t *testing.T) {
	app, em, _ := newTestApp(t)
	ctx := context.Background()

	_, err := app.SearchSummoner(ctx, "Faker", "KR1")
	require.NoError(t, err)

	_, err = app.SearchSummoner(ctx, "Nobody", "000")
	require.ErrorIs(t, err, api.ErrNotFound)

	_, ok := app.CurrentSummoner()
	assert.False(t, ok)
	assert.Empty(t, app.loader.Snapshot().PUUID)

	toasts := em.byTopic(bridge.TopicToast)
	require.Len(t, toasts, 1)
	assert.Equal(t, bridge.Toast{Message: "Player not found", Status: 404}, toasts[0])

	summoners := em.byTopic(bridge.TopicSummoner)
	require.Len(t, summoners, 2)
	assert.Nil(t, summoners[1].(*bridge.SummonerUpdate).Summoner)

	items, _ := app.History(ctx)
	assert.Len(t, items, 1, "failed searches are not remembered")
}

// newRacingBackend serves two players. Requests for Slow#A wait for release
// to be closed and then answer with slowStatus.
func newRacingBackend(t *testing.T, release <-chan struct{}, slowStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/league/searchUser/Slow/A", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		if slowStatus != http.StatusOK {
			w.WriteHeader(slowStatus)
			return
		}
		json.NewEncoder(w).Encode(api.Summoner{ID: "sum-a", PUUID: "pa", GameName: "Slow", TagLine: "A"})
	})
	mux.HandleFunc("/league/searchUser/Fast/B", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.Summoner{ID: "sum-b", PUUID: "pb", GameName: "Fast", TagLine: "B"})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestSearchSummonerOlderSearchFinishesLast(t *testing.T) {
	tests := []struct {
		name       string
		slowStatus int
		wantErr    error
	}{
		{"success", http.StatusOK, bridge.ErrSuperseded},
		{"failure", http.StatusNotFound, api.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			release := make(chan struct{})
			backend := newRacingBackend(t, release, tt.slowStatus)
			cdn := newCDN(t)
			logger, _ := test.NewNullLogger()
			em := &recordingEmitter{}
			app := newApp(testConfig(backend.URL, cdn.URL), logger, em, store.NewMemoryStore())
			t.Cleanup(app.shutdown)
			ctx := context.Background()

			slowDone := make(chan error, 1)
			go func() {
				_, err := app.SearchSummoner(ctx, "Slow", "A")
				slowDone <- err
			}()

			// the slow search must have started before the fast one
			require.Eventually(t, func() bool {
				app.searchMu.Lock()
				defer app.searchMu.Unlock()
				return app.searchGen == 1
			}, time.Second, 5*time.Millisecond)

			update, err := app.SearchSummoner(ctx, "Fast", "B")
			require.NoError(t, err)
			assert.Equal(t, "pb", update.Summoner.PUUID)

			close(release)
			select {
			case err := <-slowDone:
				assert.ErrorIs(t, err, tt.wantErr)
			case <-time.After(5 * time.Second):
				t.Fatal("slow search never returned")
			}

			current, ok := app.CurrentSummoner()
			require.True(t, ok)
			assert.Equal(t, "Fast", current.GameName)
			assert.Equal(t, "pb", app.loader.Snapshot().PUUID)

			summoners := em.byTopic(bridge.TopicSummoner)
			require.Len(t, summoners, 1)
			assert.Equal(t, "pb", summoners[0].(*bridge.SummonerUpdate).Summoner.PUUID)
			assert.Empty(t, em.byTopic(bridge.TopicToast))

			items, err := app.History(ctx)
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, "Fast", items[0].GameName)
		})
	}
}

func TestNextMatches(t *testing.T) {
	app, em, cdn := newTestApp(t)
	ctx := context.Background()

	view := app.NextMatches(ctx, "p1")
	assert.Len(t, view.Matches, 10)
	assert.True(t, view.HasMore)
	assert.Equal(t, "idle", view.State)
	assert.Equal(t, "5/1/5", fmt.Sprintf("%d/%d/%d", view.Matches[0].Summary.Kills, view.Matches[0].Summary.Deaths, view.Matches[0].Summary.Assists))
	assert.Equal(t, "10.00", view.Matches[0].Summary.KDA)
	assert.Equal(t, hydrate.StatusUnavailable, view.Matches[0].Assets.Items[1].Status)

	view = app.NextMatches(ctx, "p1")
	assert.Len(t, view.Matches, 20)
	view = app.NextMatches(ctx, "p1")
	assert.Len(t, view.Matches, 25)
	assert.False(t, view.HasMore)
	assert.Equal(t, "exhausted", view.State)

	app.hydrator.Wait()
	slot := app.hydrator.State(hydrate.ChampionKey("Ahri"))
	assert.Equal(t, hydrate.StatusReady, slot.Status)
	assert.Equal(t, cdn+"/cdn/15.18.1/img/champion/Ahri.png", slot.URL)
	assert.NotEmpty(t, em.byTopic(bridge.TopicAsset))
	assert.NotEmpty(t, em.byTopic(bridge.TopicMatches))
}

func TestNextMatchesSwitchesPlayer(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()

	app.NextMatches(ctx, "p1")
	view := app.NextMatches(ctx, "p2")
	assert.Equal(t, "p2", view.PUUID)
	assert.Empty(t, view.Matches)
	assert.Equal(t, "exhausted", view.State, "backend has no matches for p2")
}

func TestLoadMatchesSync(t *testing.T) {
	app, _, cdn := newTestApp(t)
	ctx := context.Background()

	_, err := app.SearchSummoner(ctx, "Faker", "KR1")
	require.NoError(t, err)

	views := app.LoadMatchesSync(ctx, 2)
	require.Len(t, views, 20)
	assert.Equal(t, api.GameID("1000"), views[0].Summary.GameID)
	assert.Equal(t, api.GameID("1019"), views[19].Summary.GameID)
	assert.Equal(t, hydrate.StatusReady, views[0].Assets.Champion.Status)
	assert.Equal(t, cdn+"/cdn/15.18.1/img/item/3089.png", views[0].Assets.Items[0].URL)
	assert.Equal(t, hydrate.StatusUnavailable, views[0].Assets.Items[3].Status)
}

func TestVersionFallback(t *testing.T) {
	backend := newBackend(t)
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	logger, _ := test.NewNullLogger()
	app := newApp(testConfig(backend.URL, dead.URL), logger, nil, store.NewMemoryStore())
	defer app.shutdown()

	v := app.Version(context.Background(), false)
	assert.Equal(t, "15.17.1", v.Value)
	assert.True(t, v.Fallback)
}

func TestParseRiotID(t *testing.T) {
	tests := []struct {
		in        string
		name, tag string
		wantErr   bool
	}{
		{"Faker#KR1", "Faker", "KR1", false},
		{"Hide on bush#KR1", "Hide on bush", "KR1", false},
		{"a#b#c", "a#b", "c", false},
		{"Faker", "", "", true},
		{"#KR1", "", "", true},
		{"Faker#", "", "", true},
	}
	for _, tt := range tests {
		name, tag, err := parseRiotID(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.name, name)
		assert.Equal(t, tt.tag, tag)
	}
}

func TestVersionCommand(t *testing.T) {
	cdn := newCDN(t)
	t.Setenv("FIDDLEGG_CDN_URL", cdn.URL)
	t.Setenv("FIDDLEGG_STORE", "memory")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "15.18.1 (resolved "), out.String())
}

func TestHistoryCommand(t *testing.T) {
	t.Setenv("FIDDLEGG_STORE", "memory")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"history"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "No recent searches\n", out.String())
}

func TestProfileCommandRejectsBadID(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"profile", "Faker"})

	assert.ErrorContains(t, root.Execute(), "expected name#tag")
}
