package matches

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiddlegg/internal/api"
)

type call struct {
	puuid        string
	start, count int
}

// fakeFetcher serves a fixed number of matches per puuid
type fakeFetcher struct {
	mu    sync.Mutex
	total map[string]int
	calls []call
	err   error
	short int           // when > 0, pages hold at most this many matches
	gate  chan struct{} // when set, Matches blocks until closed
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{total: map[string]int{}}
}

func (f *fakeFetcher) Matches(ctx context.Context, puuid string, start, count int) (*api.MatchPage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{puuid, start, count})
	gate, err, total, short := f.gate, f.err, f.total[puuid], f.short
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}

	n := count
	if short > 0 && short < n {
		n = short
	}
	page := &api.MatchPage{}
	for i := start; i < start+n && i < total; i++ {
		page.Matches = append(page.Matches, match(puuid, i))
	}
	page.Pagination.HasMore = start+len(page.Matches) < total
	return page, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func match(puuid string, i int) api.Match {
	return api.Match{
		Metadata: api.MatchMetadata{MatchID: fmt.Sprintf("BR1_%s_%d", puuid, i)},
		Info:     api.MatchInfo{GameID: api.GameID(fmt.Sprintf("%s-%d", puuid, i))},
	}
}

func ids(ms []api.Match) []api.GameID {
	out := make([]api.GameID, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID())
	}
	return out
}

func TestAppendInvariant(t *testing.T) {
	f := newFakeFetcher()
	f.total["p1"] = 25
	l := NewLoader(f)
	l.Reset("p1")

	first := l.LoadNextPage(context.Background())
	second := l.LoadNextPage(context.Background())

	assert.Len(t, first.Appended, 10)
	assert.Len(t, second.Appended, 10)
	assert.True(t, second.HasMore)
	assert.Equal(t, []call{{"p1", 0, 10}, {"p1", 10, 10}}, f.calls)

	snap := l.Snapshot()
	require.Len(t, snap.Matches, 20)
	for i, id := range ids(snap.Matches) {
		assert.Equal(t, api.GameID(fmt.Sprintf("p1-%d", i)), id)
	}
	assert.Equal(t, 20, snap.Start)
	assert.Equal(t, StateIdle, snap.State)
}

func TestExhaustionIsTerminal(t *testing.T) {
	f := newFakeFetcher()
	f.total["p1"] = 12
	l := NewLoader(f)
	l.Reset("p1")

	l.LoadNextPage(context.Background())
	last := l.LoadNextPage(context.Background())
	assert.Len(t, last.Appended, 2)
	assert.False(t, last.HasMore)
	assert.Equal(t, StateExhausted, l.State())

	again := l.LoadNextPage(context.Background())
	assert.Empty(t, again.Appended)
	assert.False(t, l.NearEnd(context.Background()))
	assert.Equal(t, 2, f.callCount())
}

func TestCursorAdvancesByBatchSize(t *testing.T) {
	f := newFakeFetcher()
	f.total["p1"] = 30
	f.short = 7
	l := NewLoader(f)
	l.Reset("p1")

	l.LoadNextPage(context.Background())
	l.LoadNextPage(context.Background())

	assert.Equal(t, []call{{"p1", 0, 10}, {"p1", 7, 10}}, f.calls)
	assert.Equal(t, 14, l.Snapshot().Start)
}

func TestDuplicateGameIDsSkipped(t *testing.T) {
	dup := &scriptedFetcher{pages: []*api.MatchPage{
		{Matches: []api.Match{match("p", 0), match("p", 1)}, Pagination: api.Pagination{HasMore: true}},
		{Matches: []api.Match{match("p", 1), match("p", 2)}, Pagination: api.Pagination{HasMore: false}},
	}}
	l := NewLoader(dup)
	l.Reset("p")

	l.LoadNextPage(context.Background())
	res := l.LoadNextPage(context.Background())

	assert.Equal(t, []api.GameID{"p-2"}, ids(res.Appended))
	snap := l.Snapshot()
	assert.Equal(t, []api.GameID{"p-0", "p-1", "p-2"}, ids(snap.Matches))
	assert.Equal(t, 4, snap.Start)
}

func TestIdentityReset(t *testing.T) {
	f := newFakeFetcher()
	f.total["p1"] = 30
	f.total["p2"] = 30
	l := NewLoader(f)
	l.Reset("p1")
	l.LoadNextPage(context.Background())
	require.Len(t, l.Snapshot().Matches, 10)

	l.Reset("p2")
	snap := l.Snapshot()
	assert.Empty(t, snap.Matches)
	assert.Equal(t, 0, snap.Start)
	assert.True(t, snap.HasMore)
	assert.Equal(t, "p2", snap.PUUID)
	assert.Equal(t, StateIdle, snap.State)

	l.LoadNextPage(context.Background())
	assert.Equal(t, call{"p2", 0, 10}, f.calls[1])
}

func TestStalePageDiscarded(t *testing.T) {
	f := newFakeFetcher()
	f.total["p1"] = 30
	f.total["p2"] = 30
	f.gate = make(chan struct{})
	l := NewLoader(f)
	l.Reset("p1")

	done := make(chan PageResult)
	go func() { done <- l.LoadNextPage(context.Background()) }()

	require.Eventually(t, func() bool { return f.callCount() == 1 }, timeout, tick)
	l.Reset("p2")
	close(f.gate)
	<-done

	snap := l.Snapshot()
	assert.Empty(t, snap.Matches)
	assert.Equal(t, "p2", snap.PUUID)
	assert.Equal(t, StateIdle, snap.State)
}

func TestNoConcurrentPageLoads(t *testing.T) {
	f := newFakeFetcher()
	f.total["p1"] = 30
	f.gate = make(chan struct{})
	l := NewLoader(f)
	l.Reset("p1")

	var started, skipped atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.NearEnd(context.Background()) {
				started.Add(1)
			} else {
				skipped.Add(1)
			}
		}()
	}
	require.Eventually(t, func() bool { return skipped.Load() == 4 }, timeout, tick)
	close(f.gate)
	wg.Wait()

	assert.Equal(t, int32(1), started.Load())
	assert.Equal(t, 1, f.callCount())
	assert.Len(t, l.Snapshot().Matches, 10)
}

func TestFailureExhaustsQuietly(t *testing.T) {
	f := newFakeFetcher()
	f.total["p1"] = 30
	f.err = errors.New("boom")
	logger, hook := test.NewNullLogger()
	l := NewLoader(f, WithLogger(logger))
	l.Reset("p1")

	res := l.LoadNextPage(context.Background())
	assert.Empty(t, res.Appended)
	assert.False(t, res.HasMore)
	assert.Equal(t, StateExhausted, l.State())

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	l.LoadNextPage(context.Background())
	assert.Equal(t, 1, f.callCount())
}

func TestNoIdentity(t *testing.T) {
	f := newFakeFetcher()
	l := NewLoader(f)

	assert.False(t, l.NearEnd(context.Background()))
	assert.Equal(t, StateExhausted, l.State())
	assert.Zero(t, f.callCount())
}

func TestOnChange(t *testing.T) {
	f := newFakeFetcher()
	f.total["p1"] = 5
	var snaps []Snapshot
	l := NewLoader(f, WithPageSize(3), WithOnChange(func(s Snapshot) { snaps = append(snaps, s) }))

	l.Reset("p1")
	l.LoadNextPage(context.Background())

	require.Len(t, snaps, 2)
	assert.Empty(t, snaps[0].Matches)
	assert.Len(t, snaps[1].Matches, 3)
	assert.Equal(t, "idle", snaps[1].Status)
	assert.Equal(t, call{"p1", 0, 3}, f.calls[0])
}

func TestEmptyPageEndsPagination(t *testing.T) {
	l := NewLoader(&scriptedFetcher{pages: []*api.MatchPage{
		{Pagination: api.Pagination{HasMore: true}},
	}})
	l.Reset("p")

	res := l.LoadNextPage(context.Background())
	assert.False(t, res.HasMore)
	assert.Equal(t, StateExhausted, l.State())
}

type scriptedFetcher struct {
	pages []*api.MatchPage
	next  int
}

func (s *scriptedFetcher) Matches(ctx context.Context, puuid string, start, count int) (*api.MatchPage, error) {
	if s.next >= len(s.pages) {
		return &api.MatchPage{}, nil
	}
	p := s.pages[s.next]
	s.next++
	return p, nil
}
