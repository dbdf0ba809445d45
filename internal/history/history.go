// Package history keeps the list of recently searched summoners.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"fiddlegg/internal/api"
	"fiddlegg/internal/logging"
	"fiddlegg/internal/store"
)

const (
	// StorageKey is the store key holding the serialized history
	StorageKey = "fiddlegg_search_history"

	// MaxItems is the number of searches kept
	MaxItems = 10
)

// Item is one remembered search
type Item struct {
	ID            string `json:"id"`
	GameName      string `json:"gameName"`
	TagLine       string `json:"tagLine"`
	ProfileIconID int    `json:"profileIconId"`
	SummonerLevel int    `json:"summonerLevel"`
	SearchedAt    int64  `json:"searchedAt"` // unix millis
}

func (i Item) same(gameName, tagLine string) bool {
	return i.GameName == gameName && i.TagLine == tagLine
}

// History is a most-recent-first list of searches persisted in a Store
type History struct {
	store store.Store
	now   func() time.Time
	log   logrus.FieldLogger

	mu sync.Mutex
}

// Option configures a History
type Option func(*History)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(h *History) {
		h.now = now
	}
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(h *History) {
		h.log = log
	}
}

// New creates a History backed by st
func New(st store.Store, opts ...Option) *History {
	h := &History{store: st, now: time.Now, log: logging.Discard()}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.WithField("component", "history")
	return h
}

// List returns the history, most recent first. An unreadable entry is
// logged and treated as empty.
func (h *History) List(ctx context.Context) ([]Item, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load(ctx)
}

// Add records a search for s, replacing an earlier search of the same
// Riot ID and trimming the list to MaxItems.
func (h *History) Add(ctx context.Context, s api.Summoner) ([]Item, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	items, err := h.load(ctx)
	if err != nil {
		return nil, err
	}
	item := Item{
		ID:            s.ID,
		GameName:      s.GameName,
		TagLine:       s.TagLine,
		ProfileIconID: s.ProfileIconID,
		SummonerLevel: s.SummonerLevel,
		SearchedAt:    h.now().UnixMilli(),
	}
	rest := lo.Reject(items, func(i Item, _ int) bool {
		return i.same(item.GameName, item.TagLine)
	})
	items = append([]Item{item}, rest...)
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}
	return items, h.save(ctx, items)
}

// Remove deletes the search of gameName#tagLine
func (h *History) Remove(ctx context.Context, gameName, tagLine string) ([]Item, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	items, err := h.load(ctx)
	if err != nil {
		return nil, err
	}
	items = lo.Reject(items, func(i Item, _ int) bool {
		return i.same(gameName, tagLine)
	})
	return items, h.save(ctx, items)
}

// Clear drops the whole history
func (h *History) Clear(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.store.Delete(ctx, StorageKey); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func (h *History) load(ctx context.Context) ([]Item, error) {
	data, err := h.store.Get(ctx, StorageKey)
	if errors.Is(err, store.ErrNotFound) {
		return []Item{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		h.log.WithError(err).Warn("Discarding unreadable search history")
		return []Item{}, nil
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].SearchedAt > items[j].SearchedAt
	})
	return items, nil
}

func (h *History) save(ctx context.Context, items []Item) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := h.store.Set(ctx, StorageKey, data); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}
