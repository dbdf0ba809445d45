package ddragon

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// AssetType identifies an image family on the CDN
type AssetType string

const (
	AssetChampion AssetType = "champion"
	AssetSplash   AssetType = "splash"
	AssetLoading  AssetType = "loading"
	AssetItem     AssetType = "item"
	AssetProfile  AssetType = "profile"
)

// ParseAssetType validates a type name coming from outside the process
func ParseAssetType(s string) (AssetType, error) {
	switch t := AssetType(s); t {
	case AssetChampion, AssetSplash, AssetLoading, AssetItem, AssetProfile:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown asset type %q", ErrInvalidAsset, s)
}

// versioned reports whether URLs of this type carry the version segment.
// Splash and loading art live under a version-independent path.
func (t AssetType) versioned() bool {
	return t != AssetSplash && t != AssetLoading
}

// AssetKey identifies one cached URL
type AssetKey struct {
	Type    AssetType
	ID      string
	Variant string // skin number for splash/loading art
}

// String returns the composite cache key, e.g. "champion_Ahri" or "splash_Ahri_0"
func (k AssetKey) String() string {
	if k.Variant != "" {
		return fmt.Sprintf("%s_%s_%s", k.Type, k.ID, k.Variant)
	}
	return fmt.Sprintf("%s_%s", k.Type, k.ID)
}

// CacheStats describes the URL cache contents
type CacheStats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

// preloadParallel bounds the concurrent resolutions of one Preload
const preloadParallel = 8

// AssetCache builds CDN asset URLs and memoizes them per AssetKey
type AssetCache struct {
	versions VersionSource
	baseURL  string
	log      logrus.FieldLogger

	group singleflight.Group

	mu   sync.RWMutex
	urls map[string]string
}

// NewAssetCache creates a URL cache backed by versions
func NewAssetCache(versions VersionSource, opts ...Option) *AssetCache {
	o := buildOptions(opts)
	return &AssetCache{
		versions: versions,
		baseURL:  o.baseURL,
		log:      o.logger.WithField("component", "assets"),
		urls:     make(map[string]string),
	}
}

// GetURL returns the URL for key, resolving and caching it on first use.
// Concurrent misses for the same key share one resolution.
func (c *AssetCache) GetURL(ctx context.Context, key AssetKey) (string, error) {
	key, err := normalize(key)
	if err != nil {
		return "", err
	}

	if url, ok := c.Cached(key); ok {
		return url, nil
	}

	var res singleflight.Result
	if err := ctx.Err(); err != nil {
		res.Err = err
	} else {
		ch := c.group.DoChan(key.String(), func() (interface{}, error) {
			return c.resolve(context.WithoutCancel(ctx), key)
		})
		res = c.wait(ctx, ch)
	}
	if res.Err != nil {
		if !key.Type.versioned() {
			url := fallbackArtURL(key)
			c.log.WithError(res.Err).WithField("key", key.String()).Warn("Splash resolution failed, using static URL")
			return url, nil
		}
		c.log.WithError(res.Err).WithField("key", key.String()).Error("Failed to resolve asset URL")
		return "", res.Err
	}
	return res.Val.(string), nil
}

func (c *AssetCache) wait(ctx context.Context, ch <-chan singleflight.Result) singleflight.Result {
	select {
	case res := <-ch:
		return res
	case <-ctx.Done():
		return singleflight.Result{Err: ctx.Err()}
	}
}

// Cached returns the cached URL without doing any I/O
func (c *AssetCache) Cached(key AssetKey) (string, bool) {
	if k, err := normalize(key); err == nil {
		key = k
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	url, ok := c.urls[key.String()]
	return url, ok
}

// ForceRefresh evicts key and resolves it again
func (c *AssetCache) ForceRefresh(ctx context.Context, key AssetKey) (string, error) {
	key, err := normalize(key)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	delete(c.urls, key.String())
	c.mu.Unlock()
	c.group.Forget(key.String())

	return c.GetURL(ctx, key)
}

// Clear empties the cache
func (c *AssetCache) Clear() {
	c.mu.Lock()
	c.urls = make(map[string]string)
	c.mu.Unlock()
}

// Stats returns the cache size and its keys in sorted order
func (c *AssetCache) Stats() CacheStats {
	c.mu.RLock()
	keys := lo.Keys(c.urls)
	c.mu.RUnlock()

	sort.Strings(keys)
	return CacheStats{Size: len(keys), Keys: keys}
}

// ChampionIcon returns the square icon URL for a champion key (e.g. "Ahri")
func (c *AssetCache) ChampionIcon(ctx context.Context, championKey string) (string, error) {
	return c.GetURL(ctx, AssetKey{Type: AssetChampion, ID: championKey})
}

// ChampionSplash returns the splash art URL for a champion skin
func (c *AssetCache) ChampionSplash(ctx context.Context, championKey string, skinNum int) (string, error) {
	return c.GetURL(ctx, AssetKey{Type: AssetSplash, ID: championKey, Variant: strconv.Itoa(skinNum)})
}

// ChampionLoading returns the loading-screen art URL for a champion skin
func (c *AssetCache) ChampionLoading(ctx context.Context, championKey string, skinNum int) (string, error) {
	return c.GetURL(ctx, AssetKey{Type: AssetLoading, ID: championKey, Variant: strconv.Itoa(skinNum)})
}

// ItemIcon returns the icon URL for an item id
func (c *AssetCache) ItemIcon(ctx context.Context, itemID int) (string, error) {
	return c.GetURL(ctx, AssetKey{Type: AssetItem, ID: strconv.Itoa(itemID)})
}

// ProfileIcon returns the icon URL for a summoner profile icon id
func (c *AssetCache) ProfileIcon(ctx context.Context, iconID int) (string, error) {
	return c.GetURL(ctx, AssetKey{Type: AssetProfile, ID: strconv.Itoa(iconID)})
}

// Preload resolves the icons of champions and items into the cache. Every
// key is attempted: a failing one is logged and the rest still resolve.
// Item id 0 is an empty slot and is skipped.
func (c *AssetCache) Preload(ctx context.Context, champions []string, items []int) {
	keys := make([]AssetKey, 0, len(champions)+len(items))
	for _, name := range lo.Uniq(champions) {
		keys = append(keys, AssetKey{Type: AssetChampion, ID: name})
	}
	for _, id := range lo.Uniq(items) {
		if id == 0 {
			continue
		}
		keys = append(keys, AssetKey{Type: AssetItem, ID: strconv.Itoa(id)})
	}

	var g errgroup.Group
	g.SetLimit(preloadParallel)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			if _, err := c.GetURL(ctx, key); err != nil {
				c.log.WithError(err).WithField("key", key.String()).Warn("Preload skipped asset")
			}
			return nil
		})
	}
	_ = g.Wait()
	c.log.WithField("count", len(keys)).Debug("Preloaded assets")
}

// DataURL builds a versioned CDN URL for path (e.g. "data/en_US/champion.json")
func (c *AssetCache) DataURL(ctx context.Context, path string) string {
	v := c.versions.Resolve(ctx, false)
	return fmt.Sprintf("%s/cdn/%s/%s", c.baseURL, v.Value, path)
}

// resolve formats the URL for key and stores it. URLs built on the
// fallback version are returned but not stored.
func (c *AssetCache) resolve(ctx context.Context, key AssetKey) (string, error) {
	if url, ok := c.Cached(key); ok {
		return url, nil
	}

	var url string
	if key.Type.versioned() {
		v := c.versions.Resolve(ctx, false)
		url = versionedURL(c.baseURL, v.Value, key)
		if v.Fallback {
			// not stored, so the next lookup picks up the discovered version
			return url, nil
		}
	} else {
		url = artURL(c.baseURL, key)
	}

	c.mu.Lock()
	c.urls[key.String()] = url
	c.mu.Unlock()
	return url, nil
}

// normalize validates key and fills the default skin for art types
func normalize(key AssetKey) (AssetKey, error) {
	if _, err := ParseAssetType(string(key.Type)); err != nil {
		return key, err
	}
	if key.ID == "" {
		return key, fmt.Errorf("%w: empty %s identifier", ErrInvalidAsset, key.Type)
	}
	if !key.Type.versioned() && key.Variant == "" {
		key.Variant = "0"
	}
	if key.Type.versioned() {
		key.Variant = ""
	}
	return key, nil
}

func versionedURL(baseURL, version string, key AssetKey) string {
	switch key.Type {
	case AssetItem:
		return fmt.Sprintf("%s/cdn/%s/img/item/%s.png", baseURL, version, key.ID)
	case AssetProfile:
		return fmt.Sprintf("%s/cdn/%s/img/profileicon/%s.png", baseURL, version, key.ID)
	default:
		return fmt.Sprintf("%s/cdn/%s/img/champion/%s.png", baseURL, version, key.ID)
	}
}

func artURL(baseURL string, key AssetKey) string {
	return fmt.Sprintf("%s/cdn/img/champion/%s/%s_%s.jpg", baseURL, key.Type, key.ID, key.Variant)
}

// fallbackArtURL always points at the public CDN host
func fallbackArtURL(key AssetKey) string {
	return artURL(DefaultBaseURL, key)
}
