package hydrate

import (
	"context"
	"strconv"
	"sync"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"fiddlegg/internal/api"
	"fiddlegg/internal/ddragon"
	"fiddlegg/internal/logging"
)

// NoItem is the item id of an empty slot
const NoItem = 0

// maxParallel bounds HydrateMatchSync fan-out
const maxParallel = 8

// Status of one asset slot
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusReady
	StatusFailed
	StatusUnavailable
)

var statusNames = map[Status]string{
	StatusIdle:        "idle",
	StatusPending:     "pending",
	StatusReady:       "ready",
	StatusFailed:      "failed",
	StatusUnavailable: "unavailable",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the status by name
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Slot is the render state of one asset
type Slot struct {
	Key    string `json:"key"`
	Status Status `json:"status"`
	URL    string `json:"url,omitempty"`
}

// MatchAssets are the slots of one match row
type MatchAssets struct {
	GameID   api.GameID `json:"gameId"`
	Champion Slot       `json:"champion"`
	Items    [7]Slot    `json:"items"`
}

// Resolver resolves and caches asset URLs. *ddragon.AssetCache satisfies it.
type Resolver interface {
	GetURL(ctx context.Context, key ddragon.AssetKey) (string, error)
	Cached(key ddragon.AssetKey) (string, bool)
	ForceRefresh(ctx context.Context, key ddragon.AssetKey) (string, error)
}

// Hydrator requests asset URLs on demand and remembers failures until a
// retry.
type Hydrator struct {
	assets   Resolver
	pending  *PendingSet
	log      logrus.FieldLogger
	onChange func(Slot)

	mu     sync.RWMutex
	failed map[string]error

	wg sync.WaitGroup
}

// Option configures a Hydrator
type Option func(*Hydrator)

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(h *Hydrator) {
		h.log = log
	}
}

// WithOnChange registers a callback for every slot transition. It is called
// from the resolving goroutine.
func WithOnChange(fn func(Slot)) Option {
	return func(h *Hydrator) {
		h.onChange = fn
	}
}

// New creates a Hydrator over assets
func New(assets Resolver, opts ...Option) *Hydrator {
	h := &Hydrator{
		assets:  assets,
		pending: NewPendingSet(),
		log:     logging.Discard(),
		failed:  make(map[string]error),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.WithField("component", "hydrate")
	return h
}

// Pending exposes the placeholder set
func (h *Hydrator) Pending() *PendingSet {
	return h.pending
}

// Request starts resolving key in the background unless it is cached,
// pending or failed, and returns the slot state at the time of the call.
func (h *Hydrator) Request(ctx context.Context, key ddragon.AssetKey) Slot {
	if slot, done := h.settled(key); done {
		return slot
	}
	name := key.String()
	if !h.pending.Add(name) {
		return Slot{Key: name, Status: StatusPending}
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.resolve(context.WithoutCancel(ctx), key, h.assets.GetURL)
	}()
	return Slot{Key: name, Status: StatusPending}
}

// Retry clears a recorded failure and resolves key again, bypassing the
// URL cache.
func (h *Hydrator) Retry(ctx context.Context, key ddragon.AssetKey) Slot {
	name := key.String()
	if unavailable(key) {
		return Slot{Key: name, Status: StatusUnavailable}
	}
	h.mu.Lock()
	delete(h.failed, name)
	h.mu.Unlock()

	if !h.pending.Add(name) {
		return Slot{Key: name, Status: StatusPending}
	}
	h.notify(Slot{Key: name, Status: StatusPending})
	return h.resolve(ctx, key, h.assets.ForceRefresh)
}

// State returns the current slot state of key without starting any work
func (h *Hydrator) State(key ddragon.AssetKey) Slot {
	if slot, done := h.settled(key); done {
		return slot
	}
	name := key.String()
	if h.pending.Has(name) {
		return Slot{Key: name, Status: StatusPending}
	}
	return Slot{Key: name, Status: StatusIdle}
}

// Wait blocks until every background request has finished
func (h *Hydrator) Wait() {
	h.wg.Wait()
}

// HydrateMatch requests the champion icon and item icons of puuid's
// participant in m and returns their current slots.
func (h *Hydrator) HydrateMatch(ctx context.Context, m api.Match, puuid string) MatchAssets {
	champion, items := matchKeys(m, puuid)
	out := MatchAssets{GameID: m.ID(), Champion: h.Request(ctx, champion)}
	for i, key := range items {
		out.Items[i] = h.Request(ctx, key)
	}
	return out
}

// HydrateMatchSync resolves every asset of the match and waits for the
// results. Failures are reported as failed slots.
func (h *Hydrator) HydrateMatchSync(ctx context.Context, m api.Match, puuid string) MatchAssets {
	champion, items := matchKeys(m, puuid)
	out := MatchAssets{GameID: m.ID()}

	var g errgroup.Group
	g.SetLimit(maxParallel)
	g.Go(func() error {
		out.Champion = h.requestSync(ctx, champion)
		return nil
	})
	for i, key := range items {
		i, key := i, key
		g.Go(func() error {
			out.Items[i] = h.requestSync(ctx, key)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (h *Hydrator) requestSync(ctx context.Context, key ddragon.AssetKey) Slot {
	if slot, done := h.settled(key); done {
		return slot
	}
	name := key.String()
	if !h.pending.Add(name) {
		// someone else is resolving; the URL cache collapses both calls
		url, err := h.assets.GetURL(ctx, key)
		if err != nil {
			return Slot{Key: name, Status: StatusFailed}
		}
		return Slot{Key: name, Status: StatusReady, URL: url}
	}
	return h.resolve(ctx, key, h.assets.GetURL)
}

// settled reports slots that need no resolution
func (h *Hydrator) settled(key ddragon.AssetKey) (Slot, bool) {
	name := key.String()
	if unavailable(key) {
		return Slot{Key: name, Status: StatusUnavailable}, true
	}
	if url, ok := h.assets.Cached(key); ok {
		return Slot{Key: name, Status: StatusReady, URL: url}, true
	}
	h.mu.RLock()
	_, failed := h.failed[name]
	h.mu.RUnlock()
	if failed {
		return Slot{Key: name, Status: StatusFailed}, true
	}
	return Slot{}, false
}

// resolve runs fetch for a key the caller already marked pending
func (h *Hydrator) resolve(ctx context.Context, key ddragon.AssetKey, fetch func(context.Context, ddragon.AssetKey) (string, error)) Slot {
	name := key.String()
	url, err := fetch(ctx, key)

	var slot Slot
	if err != nil {
		h.mu.Lock()
		h.failed[name] = err
		h.mu.Unlock()
		h.log.WithError(err).WithField("key", name).Debug("Asset left unresolved")
		slot = Slot{Key: name, Status: StatusFailed}
	} else {
		slot = Slot{Key: name, Status: StatusReady, URL: url}
	}
	h.pending.Remove(name)
	h.notify(slot)
	return slot
}

func (h *Hydrator) notify(slot Slot) {
	if h.onChange != nil {
		h.onChange(slot)
	}
}

// unavailable reports keys that are never looked up: the empty item slot
// and missing identifiers.
func unavailable(key ddragon.AssetKey) bool {
	if key.ID == "" {
		return true
	}
	return key.Type == ddragon.AssetItem && key.ID == strconv.Itoa(NoItem)
}

// matchKeys extracts the champion icon and item keys of puuid's participant
func matchKeys(m api.Match, puuid string) (ddragon.AssetKey, [7]ddragon.AssetKey) {
	var items [7]ddragon.AssetKey
	p, ok := m.Participant(puuid)
	if !ok {
		for i := range items {
			items[i] = ItemKey(NoItem)
		}
		return ddragon.AssetKey{Type: ddragon.AssetChampion}, items
	}
	ids := p.Items()
	copy(items[:], lo.Map(ids[:], func(id int, _ int) ddragon.AssetKey {
		return ItemKey(id)
	}))
	return ChampionKey(p.ChampionName), items
}

// ChampionKey is the asset key of a champion icon
func ChampionKey(name string) ddragon.AssetKey {
	return ddragon.AssetKey{Type: ddragon.AssetChampion, ID: name}
}

// ItemKey is the asset key of an item icon
func ItemKey(id int) ddragon.AssetKey {
	return ddragon.AssetKey{Type: ddragon.AssetItem, ID: strconv.Itoa(id)}
}
