package ddragon

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// championManifestPath is the versioned champion manifest
const championManifestPath = "data/en_US/champion.json"

// ChampionData holds one champion entry of the manifest
type ChampionData struct {
	ID   string `json:"id"`  // slug used in CDN URLs, e.g. "MonkeyKing"
	Key  string `json:"key"` // numeric id, string encoded, e.g. "62"
	Name string `json:"name"`
}

// ChampionInfo is what the mapper knows about a numeric champion id
type ChampionInfo struct {
	Key  string // slug for CDN URLs (e.g. "MonkeyKing")
	Name string // display name (e.g. "Wukong")
}

// MapperStats describes the mapping table
type MapperStats struct {
	Loaded bool `json:"loaded"`
	Count  int  `json:"count"`
}

// DataURLBuilder builds versioned CDN data URLs
type DataURLBuilder interface {
	DataURL(ctx context.Context, path string) string
}

// ChampionMapper maps numeric champion ids to champion keys
type ChampionMapper struct {
	urls DataURLBuilder
	cdn  *cdnClient
	log  logrus.FieldLogger

	group singleflight.Group

	mu        sync.RWMutex
	champions map[string]ChampionInfo // numeric id -> info
	loaded    bool
}

// NewChampionMapper creates a mapper that loads its manifest through urls
func NewChampionMapper(urls DataURLBuilder, opts ...Option) *ChampionMapper {
	o := buildOptions(opts)
	return &ChampionMapper{
		urls:      urls,
		cdn:       &cdnClient{httpClient: o.httpClient, timeout: o.timeout},
		log:       o.logger.WithField("component", "champions"),
		champions: make(map[string]ChampionInfo),
	}
}

// KeyByID returns the champion key for a numeric id such as "266".
// The manifest is loaded on first use; a missing id is ErrMappingNotFound.
func (m *ChampionMapper) KeyByID(ctx context.Context, championID string) (string, error) {
	info, err := m.Lookup(ctx, championID)
	if err != nil {
		return "", err
	}
	return info.Key, nil
}

// Lookup returns key and display name for a numeric id
func (m *ChampionMapper) Lookup(ctx context.Context, championID string) (ChampionInfo, error) {
	if err := m.ensureLoaded(ctx); err != nil {
		return ChampionInfo{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	info, ok := m.champions[championID]
	if !ok {
		return ChampionInfo{}, fmt.Errorf("%w: champion %s", ErrMappingNotFound, championID)
	}
	return info, nil
}

// ForceReload drops the table and loads the manifest again
func (m *ChampionMapper) ForceReload(ctx context.Context) error {
	m.mu.Lock()
	m.champions = make(map[string]ChampionInfo)
	m.loaded = false
	m.mu.Unlock()

	return m.ensureLoaded(ctx)
}

// Stats reports whether the table is loaded and its size
func (m *ChampionMapper) Stats() MapperStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MapperStats{Loaded: m.loaded, Count: len(m.champions)}
}

// ensureLoaded loads the manifest once. Concurrent callers share one fetch
// and all receive its error; a failed load is not remembered.
func (m *ChampionMapper) ensureLoaded(ctx context.Context) error {
	m.mu.RLock()
	loaded := m.loaded
	m.mu.RUnlock()
	if loaded {
		return nil
	}

	ch := m.group.DoChan("manifest", func() (interface{}, error) {
		return nil, m.load(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// load fetches the champion manifest and inverts it into id -> key
func (m *ChampionMapper) load(ctx context.Context) error {
	url := m.urls.DataURL(ctx, championManifestPath)

	var champData struct {
		Data map[string]ChampionData `json:"data"`
	}
	if err := m.cdn.getJSON(ctx, url, &champData); err != nil {
		m.log.WithError(err).Error("Failed to load champion manifest")
		return fmt.Errorf("failed to fetch champions: %w", err)
	}

	champions := make(map[string]ChampionInfo, len(champData.Data))
	for id, champ := range champData.Data {
		if champ.Key == "" {
			continue
		}
		key := champ.ID
		if key == "" {
			key = id // the map key is the slug as well
		}
		champions[champ.Key] = ChampionInfo{Key: key, Name: champ.Name}
	}

	m.mu.Lock()
	m.champions = champions
	m.loaded = true
	m.mu.Unlock()

	m.log.WithField("count", len(champions)).Info("Loaded champions from Data Dragon")
	return nil
}
