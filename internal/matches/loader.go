// Package matches keeps the paginated match history of one player.
package matches

import (
	"context"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"fiddlegg/internal/api"
	"fiddlegg/internal/logging"
)

// DefaultPageSize is the number of matches requested per page
const DefaultPageSize = 10

// State of the loader
type State int

const (
	StateIdle State = iota
	StateLoading
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Fetcher fetches one page of matches. *api.Client satisfies it.
type Fetcher interface {
	Matches(ctx context.Context, puuid string, start, count int) (*api.MatchPage, error)
}

// PageResult is what a LoadNextPage call appended
type PageResult struct {
	Appended []api.Match
	HasMore  bool
}

// Snapshot is a copy of the loader state
type Snapshot struct {
	PUUID   string      `json:"puuid"`
	Matches []api.Match `json:"matches"`
	Start   int         `json:"start"`
	HasMore bool        `json:"hasMore"`
	State   State       `json:"-"`
	Status  string      `json:"state"`
}

// Loader is a cursor over a player's match history. The list only grows
// until Reset is called with a new identity.
type Loader struct {
	fetcher  Fetcher
	pageSize int
	log      logrus.FieldLogger
	onChange func(Snapshot)

	mu         sync.Mutex
	puuid      string
	generation uint64
	matches    []api.Match
	seen       map[api.GameID]struct{}
	start      int
	hasMore    bool
	state      State
}

// Option configures a Loader
type Option func(*Loader)

// WithPageSize sets the page size. Values below 1 are ignored.
func WithPageSize(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.pageSize = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(l *Loader) {
		l.log = log
	}
}

// WithOnChange registers a callback invoked with a snapshot after every
// committed page and every reset.
func WithOnChange(fn func(Snapshot)) Option {
	return func(l *Loader) {
		l.onChange = fn
	}
}

// NewLoader creates a loader with no identity
func NewLoader(fetcher Fetcher, opts ...Option) *Loader {
	l := &Loader{
		fetcher:  fetcher,
		pageSize: DefaultPageSize,
		log:      logging.Discard(),
		seen:     make(map[api.GameID]struct{}),
		state:    StateExhausted,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.WithField("component", "matches")
	return l
}

// Reset switches the loader to puuid, dropping the list and cursor. Pages
// still in flight for the previous identity are discarded when they land.
func (l *Loader) Reset(puuid string) {
	l.mu.Lock()
	l.generation++
	l.puuid = puuid
	l.matches = nil
	l.seen = make(map[api.GameID]struct{})
	l.start = 0
	l.hasMore = puuid != ""
	if l.hasMore {
		l.state = StateIdle
	} else {
		l.state = StateExhausted
	}
	snap := l.snapshotLocked()
	l.mu.Unlock()

	l.log.WithField("puuid", puuid).Debug("Match history reset")
	l.notify(snap)
}

// LoadNextPage fetches the next page when the loader is idle. Calls made
// while a page is loading, after exhaustion, or before Reset append nothing.
// Fetch failures are logged and exhaust the loader.
func (l *Loader) LoadNextPage(ctx context.Context) PageResult {
	res, _ := l.load(ctx)
	return res
}

// NearEnd is the viewport signal that the end of the list is close. It
// loads the next page only when idle and reports whether it did.
func (l *Loader) NearEnd(ctx context.Context) bool {
	_, loaded := l.load(ctx)
	return loaded
}

func (l *Loader) load(ctx context.Context) (PageResult, bool) {
	l.mu.Lock()
	if l.state != StateIdle {
		res := PageResult{HasMore: l.hasMore}
		l.mu.Unlock()
		return res, false
	}
	l.state = StateLoading
	gen, puuid, start := l.generation, l.puuid, l.start
	l.mu.Unlock()

	page, err := l.fetcher.Matches(ctx, puuid, start, l.pageSize)

	l.mu.Lock()
	if gen != l.generation {
		res := PageResult{HasMore: l.hasMore}
		l.mu.Unlock()
		l.log.WithFields(logrus.Fields{"puuid": puuid, "start": start}).Debug("Discarding page for previous player")
		return res, true
	}

	var appended []api.Match
	if err != nil {
		l.log.WithError(err).WithFields(logrus.Fields{"puuid": puuid, "start": start}).Warn("Failed to load match page")
		l.hasMore = false
	} else {
		for _, m := range page.Matches {
			id := m.ID()
			if _, dup := l.seen[id]; dup {
				continue
			}
			l.seen[id] = struct{}{}
			appended = append(appended, m)
		}
		l.matches = append(l.matches, appended...)
		l.start += len(page.Matches)
		// an empty batch cannot move the cursor
		l.hasMore = page.Pagination.HasMore && len(page.Matches) > 0
	}
	if l.hasMore {
		l.state = StateIdle
	} else {
		l.state = StateExhausted
	}
	res := PageResult{Appended: appended, HasMore: l.hasMore}
	snap := l.snapshotLocked()
	l.mu.Unlock()

	if err == nil {
		l.log.WithFields(logrus.Fields{
			"puuid":    puuid,
			"start":    start,
			"appended": len(appended),
			"hasMore":  res.HasMore,
		}).Debug("Loaded match page")
	}
	l.notify(snap)
	return res, true
}

// State returns the current state
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Snapshot returns a copy of the current list and cursor
func (l *Loader) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Loader) snapshotLocked() Snapshot {
	return Snapshot{
		PUUID:   l.puuid,
		Matches: slices.Clone(l.matches),
		Start:   l.start,
		HasMore: l.hasMore,
		State:   l.state,
		Status:  l.state.String(),
	}
}

func (l *Loader) notify(snap Snapshot) {
	if l.onChange != nil {
		l.onChange(snap)
	}
}
